// SPDX-License-Identifier: GPL-3.0-or-later

/*
Package runner runs censorship scenarios in order.

For each scenario, the [*Runner] prints a start marker, asks its
[Invoker] to run the measurement under the scenario rules, loads and
validates the resulting artifact, and checks it with an [*oracle.Oracle].

The run is fail fast: the first error stops it and is returned as
a [*ScenarioError] wrapping the error of the failing [Stage].
*/
package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/rbmk-project/common/errclass"
	"github.com/rbmk-project/qa/jafar"
	"github.com/rbmk-project/qa/measurement"
	"github.com/rbmk-project/qa/oracle"
)

// Invoker runs the measurement under a set of rules.
//
// The [*jafar.Invoker] implements this interface.
type Invoker interface {
	Run(ctx context.Context, rules []jafar.Rule) error
}

var _ Invoker = &jafar.Invoker{}

// Stage is the stage of a scenario that failed.
type Stage string

const (
	// StageInvoke is the measurement invocation.
	StageInvoke = Stage("invoke")

	// StageLoad is loading and validating the artifact.
	StageLoad = Stage("load")

	// StageCheck is checking the artifact with the oracle.
	StageCheck = Stage("check")
)

// ScenarioError is the error returned by [*Runner.Run].
type ScenarioError struct {
	// Scenario is the name of the failed scenario.
	Scenario string

	// Stage is the failed stage.
	Stage Stage

	// Err is the underlying error.
	Err error
}

// Error implements error.
func (e *ScenarioError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Scenario, e.Stage, e.Err.Error())
}

// Unwrap returns the underlying error.
func (e *ScenarioError) Unwrap() error {
	return e.Err
}

// Runner runs scenarios.
//
// Construct using [New].
type Runner struct {
	// Invoker runs the measurement.
	Invoker Invoker

	// Output is the artifact written by the Invoker.
	Output string

	// Oracle checks the artifact.
	Oracle *oracle.Oracle

	// Logger is the optional structured logger.
	Logger *slog.Logger

	// Stdout is where we print start markers. If nil, we use [os.Stdout].
	Stdout io.Writer

	// TimeNow is an optional function to get the current time.
	TimeNow func() time.Time
}

// New creates a new [*Runner] with the given mandatory fields.
func New(invoker Invoker, output string, o *oracle.Oracle) *Runner {
	return &Runner{
		Invoker: invoker,
		Output:  output,
		Oracle:  o,
	}
}

// Run runs the scenarios sequentially and stops at the first error.
func (r *Runner) Run(ctx context.Context, scenarios []*oracle.Scenario) error {
	for _, s := range scenarios {
		if err := r.runScenario(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) runScenario(ctx context.Context, s *oracle.Scenario) (err error) {
	fmt.Fprintf(r.stdout(), "\n\n* %s\n", s.Name)

	t0 := r.timeNow()
	if r.Logger != nil {
		r.Logger.InfoContext(
			ctx,
			"scenarioStart",
			slog.String("scenario", s.Name),
			slog.Int("numRules", len(s.Rules)),
			slog.Time("t", t0),
		)
		defer func() {
			level := slog.LevelInfo
			if err != nil {
				level = slog.LevelError
			}
			r.Logger.Log(
				ctx,
				level,
				"scenarioDone",
				slog.String("scenario", s.Name),
				slog.Any("err", err),
				slog.String("errClass", errclass.New(err)),
				slog.Time("t0", t0),
				slog.Time("t", r.timeNow()),
			)
		}()
	}

	if err := r.Invoker.Run(ctx, s.Rules); err != nil {
		return &ScenarioError{Scenario: s.Name, Stage: StageInvoke, Err: err}
	}

	tk, err := r.load(ctx)
	if err != nil {
		return &ScenarioError{Scenario: s.Name, Stage: StageLoad, Err: err}
	}

	if err := r.checker().Check(ctx, s, tk); err != nil {
		return &ScenarioError{Scenario: s.Name, Stage: StageCheck, Err: err}
	}
	return nil
}

func (r *Runner) load(ctx context.Context) (*measurement.TestKeys, error) {
	t0 := r.timeNow()
	if r.Logger != nil {
		r.Logger.DebugContext(
			ctx,
			"loadStart",
			slog.String("path", r.Output),
			slog.Time("t", t0),
		)
	}

	tk, err := measurement.LoadAndValidate(r.Output)

	if r.Logger != nil {
		var numEntries int
		if tk != nil {
			numEntries = len(tk.TCPConnect) + len(tk.Requests)
		}
		r.Logger.DebugContext(
			ctx,
			"loadDone",
			slog.String("path", r.Output),
			slog.Any("err", err),
			slog.String("errClass", errclass.New(err)),
			slog.Int("numEntries", numEntries),
			slog.Time("t0", t0),
			slog.Time("t", r.timeNow()),
		)
	}
	return tk, err
}

func (r *Runner) checker() *oracle.Oracle {
	if r.Oracle != nil {
		return r.Oracle
	}
	return &oracle.Oracle{Logger: r.Logger}
}

func (r *Runner) stdout() io.Writer {
	if r.Stdout != nil {
		return r.Stdout
	}
	return os.Stdout
}

func (r *Runner) timeNow() time.Time {
	if r.TimeNow != nil {
		return r.TimeNow()
	}
	return time.Now()
}
