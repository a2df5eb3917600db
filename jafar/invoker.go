// SPDX-License-Identifier: GPL-3.0-or-later

package jafar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/rbmk-project/common/errclass"
)

// DefaultExecutable is the default path of the jafar executable.
const DefaultExecutable = "./jafar"

// Invoker runs a measurement tool under jafar.
//
// Construct using [NewInvoker].
type Invoker struct {
	// Executable is the path of the jafar executable.
	Executable string

	// Probe is the path of the measurement tool executable.
	Probe string

	// Experiment is the name of the experiment the tool must run.
	Experiment string

	// Output is the path where the tool writes the measurement.
	Output string

	// User is the user under which jafar runs the tool.
	User string

	// Logger is the optional structured logger. If this field is
	// nil, we will not be emitting structured logs.
	Logger *slog.Logger

	// Stdout is where we echo the command line and where the command
	// writes its standard output. If nil, we use [os.Stdout].
	Stdout io.Writer

	// Stderr is where the command writes its standard error. If
	// nil, we use [os.Stderr].
	Stderr io.Writer

	// TimeNow is an optional function that returns the current time.
	// If this field is nil, the [time.Now] function will be used.
	TimeNow func() time.Time
}

// NewInvoker creates a new [*Invoker] with the default jafar executable.
func NewInvoker(probe, experiment, output, user string) *Invoker {
	return &Invoker{
		Executable: DefaultExecutable,
		Probe:      probe,
		Experiment: experiment,
		Output:     output,
		User:       user,
	}
}

// MainCommand returns the shell command line jafar uses to run the tool.
func (inv *Invoker) MainCommand() string {
	return shellquote.Join(inv.Probe, "-gno", inv.Output, inv.Experiment)
}

// Argv returns the full jafar command line for the given rules.
func (inv *Invoker) Argv(rules []Rule) []string {
	argv := []string{
		inv.Executable,
		"-main-command", inv.MainCommand(),
		"-main-user", inv.User,
	}
	return append(argv, Args(rules)...)
}

// RemoveOutput removes the artifact left by a previous run, if any.
func (inv *Invoker) RemoveOutput() error {
	if err := os.Remove(inv.Output); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Run removes any stale artifact and runs jafar with the given rules,
// blocking until jafar terminates.
//
// The returned error only reports failures to remove the stale artifact. A
// failing jafar or measurement tool is logged and otherwise surfaces as a
// missing or invalid artifact when reading the measurement.
func (inv *Invoker) Run(ctx context.Context, rules []Rule) error {
	if err := inv.RemoveOutput(); err != nil {
		return fmt.Errorf("jafar: cannot remove stale artifact: %w", err)
	}

	argv := inv.Argv(rules)
	stdout := inv.stdout()
	fmt.Fprintf(stdout, "+ %s\n", shellquote.Join(argv...))

	t0 := inv.timeNow()
	if inv.Logger != nil {
		inv.Logger.InfoContext(
			ctx,
			"execStart",
			slog.Any("argv", argv),
			slog.Any("rules", rulesLogValue(rules)),
			slog.String("user", inv.User),
			slog.Time("t", t0),
		)
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = stdout
	cmd.Stderr = inv.stderr()
	err := cmd.Run()

	if inv.Logger != nil {
		level := slog.LevelInfo
		if err != nil {
			level = slog.LevelWarn
		}
		inv.Logger.Log(
			ctx,
			level,
			"execDone",
			slog.Any("err", err),
			slog.String("errClass", errclass.New(err)),
			slog.Int("exitCode", cmd.ProcessState.ExitCode()),
			slog.Time("t0", t0),
			slog.Time("t", inv.timeNow()),
		)
	}
	return nil
}

func (inv *Invoker) stdout() io.Writer {
	if inv.Stdout != nil {
		return inv.Stdout
	}
	return os.Stdout
}

func (inv *Invoker) stderr() io.Writer {
	if inv.Stderr != nil {
		return inv.Stderr
	}
	return os.Stderr
}

func (inv *Invoker) timeNow() time.Time {
	if inv.TimeNow != nil {
		return inv.TimeNow()
	}
	return time.Now()
}
