// SPDX-License-Identifier: GPL-3.0-or-later

package jafar

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"strings"

	"github.com/rbmk-project/qa/netipx"
)

// Rule is an interference rule for jafar.
//
// The set of rules is closed: the only implementations
// are [IPReset], [KeywordReset] and [KeywordResetHex].
type Rule interface {
	// Kind returns the rule kind (e.g., "ip_reset").
	Kind() string

	// String returns a human readable representation.
	String() string

	isRule()
}

const (
	// KindIPReset is the [IPReset] kind.
	KindIPReset = "ip_reset"

	// KindKeywordReset is the [KeywordReset] kind.
	KindKeywordReset = "keyword_reset"

	// KindKeywordResetHex is the [KeywordResetHex] kind.
	KindKeywordResetHex = "keyword_reset_hex"
)

// IPReset resets TCP connections towards Addr.
type IPReset struct {
	Addr netip.Addr
}

var _ Rule = IPReset{}

// Kind implements [Rule].
func (IPReset) Kind() string { return KindIPReset }

// String implements [Rule].
func (r IPReset) String() string { return KindIPReset + "(" + r.Addr.String() + ")" }

func (IPReset) isRule() {}

// KeywordReset resets TCP connections whose segments contain Keyword.
type KeywordReset struct {
	Keyword string
}

var _ Rule = KeywordReset{}

// Kind implements [Rule].
func (KeywordReset) Kind() string { return KindKeywordReset }

// String implements [Rule].
func (r KeywordReset) String() string { return fmt.Sprintf("%s(%q)", KindKeywordReset, r.Keyword) }

func (KeywordReset) isRule() {}

// KeywordResetHex resets TCP connections whose segments contain
// exactly the bytes in Pattern.
type KeywordResetHex struct {
	Pattern []byte
}

var _ Rule = KeywordResetHex{}

// Kind implements [Rule].
func (KeywordResetHex) Kind() string { return KindKeywordResetHex }

// String implements [Rule].
func (r KeywordResetHex) String() string {
	return KindKeywordResetHex + "(" + FormatHexPattern(r.Pattern) + ")"
}

func (KeywordResetHex) isRule() {}

// FormatHexPattern formats a byte pattern using the iptables string
// match hex syntax: lowercase bytes separated by spaces within pipes
// (e.g., "|00 15 77|").
func FormatHexPattern(pattern []byte) string {
	var sb strings.Builder
	sb.WriteString("|")
	for idx, b := range pattern {
		if idx > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(hex.EncodeToString([]byte{b}))
	}
	sb.WriteString("|")
	return sb.String()
}

// errInvalidHexPattern indicates a malformed hex pattern.
var errInvalidHexPattern = errors.New("jafar: invalid hex pattern")

// ParseHexPattern is the inverse of [FormatHexPattern].
func ParseHexPattern(value string) ([]byte, error) {
	if len(value) < 2 || !strings.HasPrefix(value, "|") || !strings.HasSuffix(value, "|") {
		return nil, fmt.Errorf("%w: %q: missing pipes", errInvalidHexPattern, value)
	}
	digits := strings.Join(strings.Fields(value[1:len(value)-1]), "")
	if digits == "" {
		return nil, fmt.Errorf("%w: %q: empty pattern", errInvalidHexPattern, value)
	}
	pattern, err := hex.DecodeString(digits)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %s", errInvalidHexPattern, value, err.Error())
	}
	return pattern, nil
}

// Flag names understood by jafar.
const (
	flagIPReset         = "-iptables-reset-ip"
	flagKeywordReset    = "-iptables-reset-keyword"
	flagKeywordResetHex = "-iptables-reset-keyword-hex"
)

// Args serializes rules to jafar's command line flags, one
// flag and value pair per rule, preserving the rules order.
func Args(rules []Rule) []string {
	args := make([]string, 0, 2*len(rules))
	for _, rule := range rules {
		switch r := rule.(type) {
		case IPReset:
			args = append(args, flagIPReset, r.Addr.String())
		case KeywordReset:
			args = append(args, flagKeywordReset, r.Keyword)
		case KeywordResetHex:
			args = append(args, flagKeywordResetHex, FormatHexPattern(r.Pattern))
		}
	}
	return args
}

// rulesLogValue implements [slog.LogValuer] for a list of rules.
type rulesLogValue []Rule

// LogValue implements [slog.LogValuer].
func (rv rulesLogValue) LogValue() slog.Value {
	values := make([]string, 0, len(rv))
	for _, rule := range rv {
		values = append(values, rule.String())
	}
	return slog.AnyValue(values)
}

// ResetIPs returns one [IPReset] rule for each address in addrs.
func ResetIPs(addrs netipx.AddrList) []Rule {
	rules := make([]Rule, 0, addrs.Len())
	for _, addr := range addrs.Addrs() {
		rules = append(rules, IPReset{Addr: addr})
	}
	return rules
}

// ResetKeywords returns one [KeywordReset] rule for each address in
// addrs, using the textual representation of the address as keyword.
func ResetKeywords(addrs netipx.AddrList) []Rule {
	rules := make([]Rule, 0, addrs.Len())
	for _, value := range addrs.Strings() {
		rules = append(rules, KeywordReset{Keyword: value})
	}
	return rules
}
