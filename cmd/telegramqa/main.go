// SPDX-License-Identifier: GPL-3.0-or-later

// Command telegramqa runs the telegram experiment under jafar for each
// censorship scenario and checks every resulting measurement.
//
// Usage:
//
//	sudo ./telegramqa [OPTIONS] PROBE
//
// PROBE is the path of the measurement tool. The command must run as root
// through sudo because jafar needs root privileges and uses SUDO_USER to
// drop privileges for the measurement tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"

	"github.com/jessevdk/go-flags"
	"github.com/lmittmann/tint"
	"github.com/rbmk-project/qa/jafar"
	"github.com/rbmk-project/qa/oracle"
	"github.com/rbmk-project/qa/runner"
	"github.com/rbmk-project/qa/telegram"
)

// options contains the command line options.
type options struct {
	Jafar     string   `long:"jafar" description:"path of the jafar executable" default:"./jafar"`
	Output    string   `long:"output" description:"path of the measurement artifact" default:"telegram.jsonl"`
	Scenarios string   `long:"scenarios" description:"YAML file replacing the built-in scenarios"`
	Only      []string `long:"only" description:"only run the named scenario (repeatable)"`
	EOFPolicy string   `long:"eof-policy" description:"how to treat unexpected eof_error entries" choice:"strict" choice:"tolerate" default:"strict"`
	LogJSON   bool     `long:"log-json" description:"emit structured logs as JSON"`
	Verbose   bool     `short:"v" long:"verbose" description:"emit debug logs"`

	Args struct {
		Probe string `positional-arg-name:"PROBE" description:"path of the measurement tool"`
	} `positional-args:"yes" required:"yes"`
}

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) int {
	opts := &options{}
	parser := flags.NewParser(opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = "telegramqa"
	if _, err := parser.ParseArgs(args); err != nil {
		if flags.WroteHelp(err) {
			fmt.Fprintln(stdout, err.Error())
			return exitOK
		}
		fmt.Fprintf(stderr, "telegramqa: %s\n\n", err.Error())
		parser.WriteHelp(stderr)
		return exitUsage
	}

	logger := newLogger(stderr, opts, getenv)

	if err := runScenarios(ctx, opts, stdout, logger, getenv); err != nil {
		logger.ErrorContext(ctx, "runDone", slog.Any("err", err))
		fmt.Fprintf(stderr, "telegramqa: %s\n", err.Error())
		return exitFailure
	}
	logger.InfoContext(ctx, "runDone", slog.Any("err", nil))
	return exitOK
}

// errNoSudoUser indicates that SUDO_USER is not set.
var errNoSudoUser = errors.New("SUDO_USER is not set: please run using sudo")

func runScenarios(ctx context.Context, opts *options, stdout io.Writer, logger *slog.Logger, getenv func(string) string) error {
	user := getenv("SUDO_USER")
	if user == "" {
		return errNoSudoUser
	}

	policy, err := oracle.ParseEOFPolicy(opts.EOFPolicy)
	if err != nil {
		return err
	}

	scenarios := telegram.Scenarios()
	if opts.Scenarios != "" {
		if scenarios, err = oracle.LoadFile(opts.Scenarios, telegram.Endpoints); err != nil {
			return err
		}
	}
	if scenarios, err = oracle.Select(scenarios, opts.Only...); err != nil {
		return err
	}

	inv := jafar.NewInvoker(opts.Args.Probe, telegram.ExperimentName, opts.Output, user)
	inv.Executable = opts.Jafar
	inv.Logger = logger
	inv.Stdout = stdout

	r := runner.New(inv, opts.Output, &oracle.Oracle{EOFPolicy: policy, Logger: logger})
	r.Logger = logger
	r.Stdout = stdout
	return r.Run(ctx, scenarios)
}

func newLogger(w io.Writer, opts *options, getenv func(string) string) *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	if opts.LogJSON {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:   level,
		NoColor: runtime.GOOS == "windows" || getenv("NO_COLOR") != "",
	}))
}
