// SPDX-License-Identifier: GPL-3.0-or-later

package oracle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rbmk-project/qa/failure"
	"github.com/rbmk-project/qa/measurement"
	"github.com/tidwall/gjson"
)

// EOFPolicy tells how to treat entries failing with [failure.EOFError]
// where the scenario expects something else.
type EOFPolicy int

const (
	// EOFStrict treats such entries as invariant violations.
	EOFStrict EOFPolicy = iota

	// EOFTolerate logs a warning and skips such entries.
	EOFTolerate
)

// String implements [fmt.Stringer].
func (p EOFPolicy) String() string {
	switch p {
	case EOFTolerate:
		return "tolerate"
	default:
		return "strict"
	}
}

// ParseEOFPolicy parses the output of [EOFPolicy.String].
func ParseEOFPolicy(value string) (EOFPolicy, error) {
	switch value {
	case "strict":
		return EOFStrict, nil
	case "tolerate":
		return EOFTolerate, nil
	default:
		return EOFStrict, fmt.Errorf("oracle: unknown EOF policy: %q", value)
	}
}

// Oracle checks measurements against scenarios.
//
// The zero value is ready to use and applies [EOFStrict].
type Oracle struct {
	// EOFPolicy is the [EOFPolicy] to apply.
	EOFPolicy EOFPolicy

	// Logger is the optional structured logger. If this field is
	// nil, we will not be emitting structured logs.
	Logger *slog.Logger
}

// Check returns the first invariant of s that tk violates as
// a [*SemanticError], or nil if tk satisfies all of them.
//
// We check the verdicts first, then "tcp_connect" entries and
// finally "requests" entries, each in order.
func (o *Oracle) Check(ctx context.Context, s *Scenario, tk *measurement.TestKeys) error {
	for _, v := range s.Expect.Verdicts {
		if err := checkVerdict(s.Name, v, tk.Get(v.Key)); err != nil {
			return err
		}
	}

	for idx, entry := range tk.TCPConnect {
		want := s.Expect.TCPConnect.expected(matchHost(s.Expect.TCPConnect.Match, entry.IP))
		path := fmt.Sprintf("test_keys.tcp_connect[%d].status.failure", idx)
		if err := o.checkFailure(ctx, s.Name, path, want, entry.Failure); err != nil {
			return err
		}
	}

	for idx, entry := range tk.Requests {
		want := s.Expect.Requests.expected(matchURL(s.Expect.Requests.Match, entry.URL))
		path := fmt.Sprintf("test_keys.requests[%d].failure", idx)
		if err := o.checkFailure(ctx, s.Name, path, want, entry.Failure); err != nil {
			return err
		}
	}

	return nil
}

func matchHost(m Matcher, host string) bool {
	return m != nil && m.MatchHost(host)
}

func matchURL(m Matcher, rawURL string) bool {
	return m != nil && m.MatchURL(rawURL)
}

func (o *Oracle) checkFailure(ctx context.Context, scenario, path string, want, got *string) error {
	if failure.Equal(want, got) {
		return nil
	}
	if o.EOFPolicy == EOFTolerate && got != nil && *got == failure.EOFError {
		if o.Logger != nil {
			o.Logger.WarnContext(
				ctx,
				"eofTolerated",
				slog.String("scenario", scenario),
				slog.String("path", path),
				slog.String("expected", failure.String(want)),
				slog.String("errClass", failure.Class(*got)),
			)
		}
		return nil
	}
	return &SemanticError{
		Scenario: scenario,
		Path:     path,
		Expected: failure.String(want),
		Actual:   failure.String(got),
	}
}

func checkVerdict(scenario string, v Verdict, got gjson.Result) error {
	var ok bool
	switch want := v.Value.(type) {
	case nil:
		ok = got.Exists() && got.Type == gjson.Null
	case bool:
		ok = got.IsBool() && got.Bool() == want
	case string:
		ok = got.Type == gjson.String && got.String() == want
	}
	if ok {
		return nil
	}
	actual := "<missing>"
	if got.Exists() {
		actual = got.Raw
	}
	return &SemanticError{
		Scenario: scenario,
		Path:     "test_keys." + v.Key,
		Expected: formatVerdictValue(v.Value),
		Actual:   actual,
	}
}

func formatVerdictValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// SemanticError indicates that a measurement violates an invariant.
type SemanticError struct {
	// Scenario is the scenario name.
	Scenario string

	// Path is the offending field path.
	Path string

	// Expected is the expected value.
	Expected string

	// Actual is the actual value.
	Actual string
}

// Error implements error.
func (e *SemanticError) Error() string {
	return fmt.Sprintf("oracle: %s: %s: expected %s, got %s", e.Scenario, e.Path, e.Expected, e.Actual)
}
