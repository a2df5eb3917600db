// SPDX-License-Identifier: GPL-3.0-or-later

package oracle

import (
	"errors"
	"fmt"

	"github.com/rbmk-project/qa/jafar"
	"github.com/rbmk-project/qa/netipx"
)

// Scenario is a named interference condition along with the
// invariants the resulting measurement must satisfy.
type Scenario struct {
	// Name is the unique scenario name.
	Name string

	// Rules are the interference rules reproducing the condition.
	Rules []jafar.Rule

	// Expect contains the expected invariants.
	Expect Expectation
}

// Expectation contains the invariants of a [*Scenario].
type Expectation struct {
	// Verdicts are the expected values of top-level test keys,
	// checked in order.
	Verdicts []Verdict

	// TCPConnect is the policy for "tcp_connect" entries, matched by IP.
	TCPConnect EntryPolicy

	// Requests is the policy for "requests" entries, matched by URL.
	Requests EntryPolicy
}

// Verdict is the expected value of a top-level test key.
type Verdict struct {
	// Key is the test key name (e.g., "telegram_tcp_blocking").
	Key string

	// Value is a bool, a string, or nil for JSON null.
	Value any
}

// EntryPolicy tells which failure each entry must contain. Entries
// selected by Match must contain Failure; all the other entries
// must contain a null failure.
type EntryPolicy struct {
	// Failure is the failure of matching entries.
	Failure string

	// Match selects entries. A nil Match selects no entry.
	Match Matcher
}

// expected returns the failure expected for an entry.
func (p EntryPolicy) expected(matched bool) *string {
	if !matched {
		return nil
	}
	failure := p.Failure
	return &failure
}

// String returns a human readable representation.
func (p EntryPolicy) String() string {
	if p.Match == nil {
		return "null always"
	}
	return fmt.Sprintf("%s iff %s, else null", p.Failure, p.Match.String())
}

// Matcher selects measurement entries.
type Matcher interface {
	// MatchHost is used for "tcp_connect" entries.
	MatchHost(host string) bool

	// MatchURL is used for "requests" entries.
	MatchURL(rawURL string) bool

	// String returns a human readable representation.
	String() string
}

// MatchEndpoints selects entries whose IP or URL hostname is
// the textual representation of one of the Endpoints.
type MatchEndpoints struct {
	Endpoints netipx.AddrList
}

var _ Matcher = MatchEndpoints{}

// MatchHost implements [Matcher].
func (m MatchEndpoints) MatchHost(host string) bool {
	return m.Endpoints.Contains(host)
}

// MatchURL implements [Matcher].
func (m MatchEndpoints) MatchURL(rawURL string) bool {
	hostname, err := netipx.URLHostname(rawURL)
	return err == nil && m.Endpoints.Contains(hostname)
}

// String implements [Matcher].
func (m MatchEndpoints) String() string {
	return fmt.Sprintf("host in %v", m.Endpoints.Strings())
}

// MatchURL selects requests whose URL is exactly URL. It does
// not select any "tcp_connect" entry.
type MatchURL struct {
	URL string
}

var _ Matcher = MatchURL{}

// MatchHost implements [Matcher].
func (m MatchURL) MatchHost(host string) bool {
	return false
}

// MatchURL implements [Matcher].
func (m MatchURL) MatchURL(rawURL string) bool {
	return rawURL == m.URL
}

// String implements [Matcher].
func (m MatchURL) String() string {
	return fmt.Sprintf("url == %q", m.URL)
}

// ErrInvalidScenario indicates a malformed scenario table.
var ErrInvalidScenario = errors.New("oracle: invalid scenario")

// validate checks whether the scenario is well formed.
func (s *Scenario) validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidScenario)
	}
	for _, v := range s.Expect.Verdicts {
		switch v.Value.(type) {
		case nil, bool, string:
		default:
			return fmt.Errorf("%w: %s: %s: unsupported value %v", ErrInvalidScenario, s.Name, v.Key, v.Value)
		}
	}
	for _, policy := range []EntryPolicy{s.Expect.TCPConnect, s.Expect.Requests} {
		if policy.Match != nil && policy.Failure == "" {
			return fmt.Errorf("%w: %s: policy without failure", ErrInvalidScenario, s.Name)
		}
	}
	return nil
}

// ValidateTable checks that every scenario is well formed
// and that scenario names are unique.
func ValidateTable(scenarios []*Scenario) error {
	seen := make(map[string]bool)
	for _, s := range scenarios {
		if err := s.validate(); err != nil {
			return err
		}
		if seen[s.Name] {
			return fmt.Errorf("%w: duplicate name %s", ErrInvalidScenario, s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// Select returns the scenarios whose name is in names, preserving the
// table order. An empty names selects all the scenarios. Unknown
// names cause an error.
func Select(scenarios []*Scenario, names ...string) ([]*Scenario, error) {
	if len(names) <= 0 {
		return scenarios, nil
	}
	wanted := make(map[string]bool)
	for _, name := range names {
		wanted[name] = true
	}
	var out []*Scenario
	for _, s := range scenarios {
		if wanted[s.Name] {
			out = append(out, s)
			delete(wanted, s.Name)
		}
	}
	for _, name := range names {
		if wanted[name] {
			return nil, fmt.Errorf("oracle: unknown scenario: %s", name)
		}
	}
	return out, nil
}
