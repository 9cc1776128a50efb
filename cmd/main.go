package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/IgorBayerl/mfp/internal/filesystem"
	"github.com/IgorBayerl/mfp/internal/glob"
	"github.com/IgorBayerl/mfp/internal/logging"
	"github.com/IgorBayerl/mfp/internal/metrics"
	"github.com/IgorBayerl/mfp/internal/processor"
	"github.com/IgorBayerl/mfp/internal/reportconfig"
	"github.com/IgorBayerl/mfp/internal/reporter"
)

const usageHeader = `Usage: mfp [flags] <file|pattern>...

Counts the words on every line of the given files, processing them concurrently.
Patterns support ?, *, **, [...] and {a,b}.

Flags:
`

var errNoFiles = errors.New("no input files given")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	start := time.Now()

	cfg, err := parseArgs(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fsys := filesystem.DefaultFS{}
	files, invalid, err := expandFiles(fsys, cfg.Files)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if len(invalid) > 0 {
		fmt.Fprintf(stderr, "Error: invalid or non-existent files: %s\n", strings.Join(invalid, ", "))
		return 1
	}

	logger := logging.NewLogger(stderr, cfg.VerbosityLevel())
	metricsObserver := metrics.NewObserver()

	opts := cfg.ProcessorOptions()
	opts.FS = fsys
	opts.Observer = processor.Observers{logging.NewObserver(logger), metricsObserver}
	proc := processor.NewTextProcessor(opts)

	if batchTimeout, _ := cfg.BatchTimeoutDuration(); batchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, batchTimeout)
		defer cancel()
	}

	procErr := proc.ProcessFiles(ctx, files)

	if cfg.MetricsFile != "" {
		if err := metricsObserver.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Error("Failed to write metrics file", slog.String("path", cfg.MetricsFile), slog.Any("error", err))
		}
	}

	if procErr != nil {
		if cfg.RenderPartial {
			if err := render(cfg, proc.Results(), stdout); err != nil {
				fmt.Fprintf(stderr, "format error: %v\n", err)
			}
		}
		fmt.Fprintf(stderr, "input error: failed to process files: %v\n", procErr)
		return 1
	}

	if err := render(cfg, proc.Results(), stdout); err != nil {
		fmt.Fprintf(stderr, "format error: %v\n", err)
		return 1
	}

	logger.Debug("Run finished", slog.Duration("elapsed", time.Since(start)))
	return 0
}

// parseArgs builds the run configuration: defaults, then the optional config
// file, then every flag given explicitly on the command line.
func parseArgs(args []string, stderr io.Writer) (*reportconfig.Configuration, error) {
	fset := flag.NewFlagSet("mfp", flag.ContinueOnError)
	fset.SetOutput(stderr)
	fset.Usage = func() {
		fmt.Fprint(stderr, usageHeader)
		fset.PrintDefaults()
	}

	defaults := reportconfig.Default()
	format := fset.String("format", defaults.Format, "Output format (text, json, html)")
	verbose := fset.Bool("verbose", false, "Include total word counts in the output")
	configPath := fset.String("config", "", "Optional YAML or TOML configuration file")
	verbosity := fset.String("verbosity", defaults.Verbosity, "Logging verbosity level (Verbose, Info, Warning, Error, Off)")
	jobs := fset.Int("jobs", 0, fmt.Sprintf("Maximum number of files processed at once (default %d)", processor.DefaultConcurrency))
	fileTimeout := fset.String("timeout", "", "Per-file processing deadline, e.g. 30s")
	batchTimeout := fset.String("batch-timeout", "", "Deadline for the whole run, e.g. 5m")
	output := fset.String("output", "", "Write the report to this file instead of stdout")
	metricsFile := fset.String("metrics-file", "", "Write Prometheus metrics to this file after the run")
	partial := fset.Bool("partial", false, "Render the files that succeeded even when some failed")

	if err := fset.Parse(args); err != nil {
		return nil, err
	}

	cfg := defaults
	if *configPath != "" {
		loaded, err := reportconfig.Load(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	fset.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "format":
			cfg.Format = *format
		case "verbose":
			cfg.Verbose = *verbose
		case "verbosity":
			cfg.Verbosity = *verbosity
		case "jobs":
			cfg.Concurrency = *jobs
		case "timeout":
			cfg.FileTimeout = *fileTimeout
		case "batch-timeout":
			cfg.BatchTimeout = *batchTimeout
		case "output":
			cfg.Output = *output
		case "metrics-file":
			cfg.MetricsFile = *metricsFile
		case "partial":
			cfg.RenderPartial = *partial
		}
	})
	cfg.Files = append(cfg.Files, fset.Args()...)

	if len(cfg.Files) == 0 {
		fset.Usage()
		return nil, errNoFiles
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandFiles resolves every argument to regular files. Existing files are
// kept as given; other arguments containing glob syntax are expanded.
// Arguments that resolve to nothing are returned in invalid.
func expandFiles(fsys filesystem.Filesystem, args []string) (files, invalid []string, err error) {
	seen := make(map[string]struct{})
	for _, arg := range args {
		var candidates []string
		switch {
		case glob.IsRegularFile(fsys, arg):
			candidates = []string{arg}
		case glob.HasMeta(arg):
			matches, err := glob.NewGlob(arg, fsys).Expand()
			if err != nil {
				return nil, nil, fmt.Errorf("invalid pattern '%s': %w", arg, err)
			}
			for _, m := range matches {
				if glob.IsRegularFile(fsys, m) {
					candidates = append(candidates, m)
				}
			}
		}
		if len(candidates) == 0 {
			invalid = append(invalid, arg)
			continue
		}

		for _, c := range candidates {
			key := c
			if abs, err := fsys.Abs(c); err == nil {
				key = abs
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			files = append(files, c)
		}
	}
	return files, invalid, nil
}

func render(cfg *reportconfig.Configuration, results map[string]processor.FileProcessingResult, stdout io.Writer) (err error) {
	rep, err := reporter.New(cfg.OutputFormat(), cfg.Verbose)
	if err != nil {
		return err
	}

	w := stdout
	if cfg.Output != "" {
		f, createErr := os.Create(cfg.Output)
		if createErr != nil {
			return fmt.Errorf("failed to create output file: %w", createErr)
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}
	return rep.Write(w, results)
}
