package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/IgorBayerl/mfp/internal/processor"
)

// VerbosityLevel defines the logging verbosity.
type VerbosityLevel int

const (
	Verbose VerbosityLevel = iota
	Info
	Warning
	Error
	Off
)

var verbosityNames = map[string]VerbosityLevel{
	"verbose": Verbose,
	"info":    Info,
	"warning": Warning,
	"error":   Error,
	"off":     Off,
}

// ParseVerbosity maps a case-insensitive level name to a VerbosityLevel.
func ParseVerbosity(s string) (VerbosityLevel, error) {
	level, ok := verbosityNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return Info, fmt.Errorf("invalid verbosity level '%s'. Valid levels are Verbose, Info, Warning, Error, Off", s)
	}
	return level, nil
}

func (v VerbosityLevel) String() string {
	switch v {
	case Verbose:
		return "Verbose"
	case Info:
		return "Info"
	case Warning:
		return "Warning"
	case Error:
		return "Error"
	default:
		return "Off"
	}
}

// SlogLevel returns the minimum slog level that is emitted at this verbosity.
func (v VerbosityLevel) SlogLevel() slog.Level {
	switch v {
	case Verbose:
		return slog.LevelDebug
	case Info:
		return slog.LevelInfo
	case Warning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// NewLogger returns a text logger writing to w. Off discards everything.
func NewLogger(w io.Writer, v VerbosityLevel) *slog.Logger {
	if v == Off {
		w = io.Discard
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: v.SlogLevel()}))
}

// Observer reports processor lifecycle events to a slog.Logger.
type Observer struct {
	logger *slog.Logger
}

// NewObserver returns an Observer logging to logger, or to slog.Default when logger is nil.
func NewObserver(logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{logger: logger.With("component", "processor")}
}

func (o *Observer) BatchStarted(batchID string, total int) {
	o.logger.Info(fmt.Sprintf("Starting to process %d files", total), "batch", batchID)
}

func (o *Observer) FileSucceeded(batchID, path string, result processor.FileProcessingResult, elapsed time.Duration) {
	o.logger.Info("Successfully processed file",
		"batch", batchID,
		"path", path,
		"lines", len(result.LineCounts),
		"words", result.TotalWords,
		"elapsed", elapsed)
}

func (o *Observer) FileFailed(batchID, path string, err error) {
	o.logger.Error("Error processing file",
		"batch", batchID,
		"path", path,
		"kind", processor.KindOf(err).String(),
		"error", err)
}

func (o *Observer) BatchFinished(summary processor.BatchSummary) {
	if summary.Succeeded() {
		o.logger.Info(fmt.Sprintf("Successfully processed all %d files", summary.TotalCount),
			"batch", summary.BatchID, "elapsed", summary.Elapsed)
		return
	}
	o.logger.Error(fmt.Sprintf("Failed to process %d out of %d files", summary.FailedCount, summary.TotalCount),
		"batch", summary.BatchID, "elapsed", summary.Elapsed)
}
