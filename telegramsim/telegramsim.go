// SPDX-License-Identifier: GPL-3.0-or-later

/*
Package telegramsim simulates the telegram experiment under jafar.

We model a Linux host where jafar's rules apply to outgoing traffic: an
[jafar.IPReset] rule refuses connections to an address, while keyword rules
reset connections as soon as the client sends a segment containing the
keyword. The simulated experiment connects to each point of presence on
ports 80 and 443, POSTs to each of them over HTTP, and fetches the web
interface over HTTP and HTTPS, then computes its verdicts.

This package is meant for testing QA tooling without root privileges.
*/
package telegramsim

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/netip"
	"os"
	"slices"
	"syscall"

	"github.com/rbmk-project/qa/failure"
	"github.com/rbmk-project/qa/jafar"
	"github.com/rbmk-project/qa/netipx"
	"github.com/rbmk-project/qa/telegram"
)

// Config configures the simulation.
type Config struct {
	// Endpoints contains the points of presence.
	Endpoints netipx.AddrList

	// WebHost is the web interface hostname.
	WebHost string

	// WebAddr is the address WebHost resolves to.
	WebAddr netip.Addr

	// EOFURLs contains request URLs failing with an unexpected
	// EOF, which models an unstable network link.
	EOFURLs []string
}

// NewConfig returns the default [*Config].
func NewConfig() *Config {
	return &Config{
		Endpoints: telegram.Endpoints,
		WebHost:   telegram.WebHost,
		WebAddr:   netip.MustParseAddr("149.154.167.99"),
	}
}

// Measurement is a simulated measurement.
type Measurement struct {
	SoftwareName string    `json:"software_name"`
	TestKeys     *TestKeys `json:"test_keys"`
	TestName     string    `json:"test_name"`
}

// TestKeys contains the simulated test keys.
type TestKeys struct {
	Requests             []*RequestEntry    `json:"requests"`
	TCPConnect           []*TCPConnectEntry `json:"tcp_connect"`
	TelegramHTTPBlocking bool               `json:"telegram_http_blocking"`
	TelegramTCPBlocking  bool               `json:"telegram_tcp_blocking"`
	TelegramWebFailure   *string            `json:"telegram_web_failure"`
	TelegramWebStatus    string             `json:"telegram_web_status"`
}

// TCPConnectEntry is a TCP connect attempt.
type TCPConnectEntry struct {
	IP     string           `json:"ip"`
	Port   int              `json:"port"`
	Status TCPConnectStatus `json:"status"`
}

// TCPConnectStatus is the status of a [*TCPConnectEntry].
type TCPConnectStatus struct {
	Failure *string `json:"failure"`
	Success bool    `json:"success"`
}

// RequestEntry is an HTTP request.
type RequestEntry struct {
	Failure  *string      `json:"failure"`
	Request  HTTPRequest  `json:"request"`
	Response HTTPResponse `json:"response"`
}

// HTTPRequest is the request part of a [*RequestEntry].
type HTTPRequest struct {
	Method string `json:"method"`
	URL    string `json:"url"`
}

// HTTPResponse is the response part of a [*RequestEntry].
type HTTPResponse struct {
	Code int     `json:"code"`
	Body *string `json:"body"`
}

// network applies jafar rules to simulated flows.
type network struct {
	resetAddrs []string
	patterns   [][]byte
}

func newNetwork(rules []jafar.Rule) *network {
	n := &network{}
	for _, rule := range rules {
		switch r := rule.(type) {
		case jafar.IPReset:
			n.resetAddrs = append(n.resetAddrs, r.Addr.String())
		case jafar.KeywordReset:
			n.patterns = append(n.patterns, []byte(r.Keyword))
		case jafar.KeywordResetHex:
			n.patterns = append(n.patterns, r.Pattern)
		}
	}
	return n
}

func (n *network) connect(addr string) error {
	if slices.Contains(n.resetAddrs, addr) {
		return &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}
	}
	return nil
}

func (n *network) send(payload []byte) error {
	for _, pattern := range n.patterns {
		if bytes.Contains(payload, pattern) {
			return &net.OpError{Op: "read", Net: "tcp", Err: os.NewSyscallError("read", syscall.ECONNRESET)}
		}
	}
	return nil
}

// Run simulates running the experiment under the given rules.
func (c *Config) Run(rules []jafar.Rule) *Measurement {
	n := newNetwork(rules)
	tk := &TestKeys{}

	// connect to each POP
	var popConnectFailures int
	for _, addr := range c.Endpoints.Strings() {
		for _, port := range []int{80, 443} {
			entry := c.tcpConnect(n, addr, port)
			if entry.Status.Failure != nil {
				popConnectFailures++
			}
			tk.TCPConnect = append(tk.TCPConnect, entry)
		}
	}

	// POST to each POP
	var popRequestFailures int
	for _, addr := range c.Endpoints.Strings() {
		for _, hostport := range []string{addr, net.JoinHostPort(addr, "443")} {
			URL := "http://" + hostport + "/"
			payload := fmt.Sprintf("POST / HTTP/1.1\r\nHost: %s\r\nContent-Length: 0\r\n\r\n", hostport)
			entry := c.request(n, addr, "POST", URL, []byte(payload), 501)
			if entry.Failure != nil {
				popRequestFailures++
			}
			tk.Requests = append(tk.Requests, entry)
		}
	}

	// fetch the web interface
	webAddr := c.WebAddr.String()
	for _, port := range []int{80, 443} {
		tk.TCPConnect = append(tk.TCPConnect, c.tcpConnect(n, webAddr, port))
	}
	httpPayload := fmt.Sprintf("GET / HTTP/1.1\r\nHost: %s\r\nAccept: */*\r\n\r\n", c.WebHost)
	webRequests := []*RequestEntry{
		c.request(n, webAddr, "GET", "http://"+c.WebHost+"/", []byte(httpPayload), 200),
		c.request(n, webAddr, "GET", "https://"+c.WebHost+"/", clientHello(c.WebHost), 200),
	}
	tk.Requests = append(tk.Requests, webRequests...)

	// compute the verdicts
	tk.TelegramTCPBlocking = popConnectFailures == 2*c.Endpoints.Len()
	tk.TelegramHTTPBlocking = popRequestFailures == 2*c.Endpoints.Len()
	tk.TelegramWebStatus = "ok"
	for _, entry := range webRequests {
		if entry.Failure != nil {
			tk.TelegramWebFailure = entry.Failure
			tk.TelegramWebStatus = "blocked"
			break
		}
	}

	return &Measurement{
		SoftwareName: "telegramsim",
		TestKeys:     tk,
		TestName:     telegram.ExperimentName,
	}
}

func (c *Config) tcpConnect(n *network, addr string, port int) *TCPConnectEntry {
	err := n.connect(addr)
	return &TCPConnectEntry{
		IP:   addr,
		Port: port,
		Status: TCPConnectStatus{
			Failure: failure.New(err),
			Success: err == nil,
		},
	}
}

func (c *Config) request(n *network, addr, method, URL string, payload []byte, code int) *RequestEntry {
	entry := &RequestEntry{Request: HTTPRequest{Method: method, URL: URL}}
	err := n.connect(addr)
	if err == nil {
		err = n.send(payload)
	}
	if err == nil && slices.Contains(c.EOFURLs, URL) {
		err = io.ErrUnexpectedEOF
	}
	if err != nil {
		entry.Failure = failure.New(err)
		return entry
	}
	body := ""
	entry.Response = HTTPResponse{Code: code, Body: &body}
	return entry
}

// clientHello returns a minimal TLS ClientHello record whose
// extensions contain the server_name extension for hostname.
func clientHello(hostname string) []byte {
	extensions := jafar.SNIPattern(hostname)
	var body []byte
	body = binary.BigEndian.AppendUint16(body, 0x0303) // legacy_version
	body = append(body, make([]byte, 32)...)           // random
	body = append(body, 0x00)                          // session_id
	body = append(body, 0x00, 0x02, 0x13, 0x01)        // cipher_suites
	body = append(body, 0x01, 0x00)                    // compression_methods
	body = binary.BigEndian.AppendUint16(body, uint16(len(extensions)))
	body = append(body, extensions...)

	handshake := []byte{0x01, 0x00}
	handshake = binary.BigEndian.AppendUint16(handshake, uint16(len(body)))
	handshake = append(handshake, body...)

	record := []byte{0x16, 0x03, 0x01}
	record = binary.BigEndian.AppendUint16(record, uint16(len(handshake)))
	return append(record, handshake...)
}

// Marshal returns the measurement serialized as a JSONL line.
func (m *Measurement) Marshal() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// WriteFile writes the measurement to path.
func (m *Measurement) WriteFile(path string) error {
	data, err := m.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
