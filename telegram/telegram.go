// SPDX-License-Identifier: GPL-3.0-or-later

// Package telegram contains the QA scenarios for the telegram experiment.
package telegram

import (
	"github.com/rbmk-project/common/runtimex"
	"github.com/rbmk-project/qa/failure"
	"github.com/rbmk-project/qa/jafar"
	"github.com/rbmk-project/qa/netipx"
	"github.com/rbmk-project/qa/oracle"
)

// ExperimentName is the name of the experiment to run.
const ExperimentName = "telegram"

// Endpoints contains the telegram points of presence.
var Endpoints = runtimex.Try1(netipx.ParseAddrList(
	"149.154.175.50",
	"149.154.167.51",
	"149.154.175.100",
	"149.154.167.91",
	"149.154.171.5",
))

const (
	// WebHost is the hostname of the web interface.
	WebHost = "web.telegram.org"

	// WebHTTPURL is the URL of the plaintext web interface.
	WebHTTPURL = "http://web.telegram.org/"

	// WebHTTPSURL is the URL of the encrypted web interface.
	WebHTTPSURL = "https://web.telegram.org/"
)

// Test keys containing the experiment verdicts.
const (
	KeyTCPBlocking  = "telegram_tcp_blocking"
	KeyHTTPBlocking = "telegram_http_blocking"
	KeyWebFailure   = "telegram_web_failure"
	KeyWebStatus    = "telegram_web_status"
)

// Names of the scenarios returned by [Scenarios].
const (
	TCPBlockingAll   = "telegram_tcp_blocking_all"
	TCPBlockingSome  = "telegram_tcp_blocking_some"
	HTTPBlockingAll  = "telegram_http_blocking_all"
	HTTPBlockingSome = "telegram_http_blocking_some"
	WebFailureHTTP   = "telegram_web_failure_http"
	WebFailureHTTPS  = "telegram_web_failure_https"
)

// verdicts returns the expected telegram verdicts.
func verdicts(tcpBlocking, httpBlocking bool, webFailure *string, webStatus string) []oracle.Verdict {
	var wf any
	if webFailure != nil {
		wf = *webFailure
	}
	return []oracle.Verdict{
		{Key: KeyTCPBlocking, Value: tcpBlocking},
		{Key: KeyHTTPBlocking, Value: httpBlocking},
		{Key: KeyWebFailure, Value: wf},
		{Key: KeyWebStatus, Value: webStatus},
	}
}

// Scenarios returns the telegram scenarios in execution order.
func Scenarios() []*oracle.Scenario {
	all := oracle.MatchEndpoints{Endpoints: Endpoints}
	first := oracle.MatchEndpoints{Endpoints: Endpoints.Head(1)}
	reset := failure.ConnectionReset
	return []*oracle.Scenario{{
		Name:  TCPBlockingAll,
		Rules: jafar.ResetIPs(Endpoints),
		Expect: oracle.Expectation{
			Verdicts:   verdicts(true, true, nil, "ok"),
			TCPConnect: oracle.EntryPolicy{Failure: failure.ConnectionRefused, Match: all},
			Requests:   oracle.EntryPolicy{Failure: failure.ConnectionRefused, Match: all},
		},
	}, {
		Name:  TCPBlockingSome,
		Rules: jafar.ResetIPs(Endpoints.Head(1)),
		Expect: oracle.Expectation{
			Verdicts:   verdicts(false, false, nil, "ok"),
			TCPConnect: oracle.EntryPolicy{Failure: failure.ConnectionRefused, Match: first},
			Requests:   oracle.EntryPolicy{Failure: failure.ConnectionRefused, Match: first},
		},
	}, {
		Name:  HTTPBlockingAll,
		Rules: jafar.ResetKeywords(Endpoints),
		Expect: oracle.Expectation{
			Verdicts: verdicts(false, true, nil, "ok"),
			Requests: oracle.EntryPolicy{Failure: failure.ConnectionReset, Match: all},
		},
	}, {
		Name:  HTTPBlockingSome,
		Rules: jafar.ResetKeywords(Endpoints.Head(1)),
		Expect: oracle.Expectation{
			Verdicts: verdicts(false, false, nil, "ok"),
			Requests: oracle.EntryPolicy{Failure: failure.ConnectionReset, Match: first},
		},
	}, {
		Name:  WebFailureHTTP,
		Rules: []jafar.Rule{jafar.KeywordReset{Keyword: "Host: " + WebHost}},
		Expect: oracle.Expectation{
			Verdicts: verdicts(false, false, &reset, "blocked"),
			Requests: oracle.EntryPolicy{Failure: failure.ConnectionReset, Match: oracle.MatchURL{URL: WebHTTPURL}},
		},
	}, {
		Name:  WebFailureHTTPS,
		Rules: []jafar.Rule{jafar.ResetSNI(WebHost)},
		Expect: oracle.Expectation{
			Verdicts: verdicts(false, false, &reset, "blocked"),
			Requests: oracle.EntryPolicy{Failure: failure.ConnectionReset, Match: oracle.MatchURL{URL: WebHTTPSURL}},
		},
	}}
}
