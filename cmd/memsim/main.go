// Command memsim simulates a configurable CPU memory hierarchy — an
// optional DTLB, an optional paged virtual-memory translator, a mandatory
// L1 data cache, an optional unified L2 cache, and main memory — against a
// trace of read/write accesses, emitting a per-access log and aggregate
// statistics. Its flag/exit-code handling follows the same shape as the
// teacher CLI's cmd/cc/main.go.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/clevi2003/memory-hierarchy-simulator/internal/config"
	"github.com/clevi2003/memory-hierarchy-simulator/internal/simulator"
)

// exitError carries a specific process exit code out of run, mirroring the
// teacher's *initx.ExitError pattern.
type exitError struct {
	Code int
	Err  error
}

func (e *exitError) Error() string { return e.Err.Error() }
func (e *exitError) Unwrap() error { return e.Err }

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			fmt.Fprintf(os.Stderr, "memsim: %v\n", ee.Err)
			os.Exit(ee.Code)
		}
		fmt.Fprintf(os.Stderr, "memsim: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal invariant violation: %v", r)
		}
	}()

	fs := flag.NewFlagSet("memsim", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "path to the hierarchy configuration file")
	tracePath := fs.String("trace", "-", "path to the trace file, or - for stdin")
	verbose := fs.Bool("verbose", false, "enable verbose diagnostic logging")
	quiet := fs.Bool("quiet", false, "suppress diagnostic logging except errors")
	statsFormat := fs.String("stats-format", "text", "statistics output format: text or yaml")
	colorMode := fs.String("color", "auto", "banner color: auto, always, or never")

	if err := fs.Parse(args); err != nil {
		return &exitError{Code: 2, Err: err}
	}

	level := slog.LevelInfo
	switch {
	case *verbose:
		level = slog.LevelDebug
	case *quiet:
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	if *configPath == "" {
		return &exitError{Code: 2, Err: fmt.Errorf("--config is required")}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return &exitError{Code: 2, Err: err}
	}
	logger.Debug("loaded configuration", "path", *configPath, "address_bits", cfg.AddressBits)
	if *verbose {
		fmt.Fprint(stdout, cfg.Describe())
	}

	var traceFile io.Reader = os.Stdin
	var closer io.Closer
	if *tracePath != "-" {
		f, err := os.Open(*tracePath)
		if err != nil {
			return &exitError{Code: 2, Err: fmt.Errorf("opening trace: %w", err)}
		}
		traceFile = f
		closer = f
	}
	if closer != nil {
		defer closer.Close()
	}

	isTerminal := term.IsTerminal(int(os.Stdout.Fd()))

	if *tracePath != "-" && !*quiet && isTerminal {
		if fi, statErr := os.Stat(*tracePath); statErr == nil {
			bar := progressbar.DefaultBytes(fi.Size(), "simulating")
			traceFile = io.TeeReader(traceFile, bar)
		}
	}

	sim := simulator.New(cfg)

	if *statsFormat == "yaml" {
		return runWithYAMLStats(sim, traceFile, stdout)
	}
	return runWithTextStats(sim, traceFile, stdout, isTerminal, *colorMode)
}

// sgrBold and sgrReset are the raw SGR escape sequences for bold and reset.
const (
	sgrBold  = "\x1b[1m"
	sgrReset = "\x1b[0m"
)

func runWithTextStats(sim *simulator.Simulator, trace io.Reader, stdout io.Writer, isTerminal bool, colorMode string) error {
	banner := "Simulation statistics"
	useColor := colorMode == "always" || (colorMode == "auto" && isTerminal)
	if useColor {
		banner = sgrBold + banner + sgrReset
	}
	return sim.RunWithBanner(trace, stdout, banner)
}

func runWithYAMLStats(sim *simulator.Simulator, trace io.Reader, stdout io.Writer) error {
	if err := sim.RunAccessLogOnly(trace, stdout); err != nil {
		return err
	}
	enc := yaml.NewEncoder(stdout)
	defer enc.Close()
	return enc.Encode(sim.YAMLStats())
}
