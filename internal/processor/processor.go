// Package processor implements the concurrent multi-file word counting engine.
//
// A TextProcessor fans out one unit of work per input path, bounded by a
// semaphore, and fans the outcomes back in on a channel. A single aggregator
// merges successes into the results table and counts failures, so the final
// state does not depend on the order in which files complete.
package processor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/IgorBayerl/mfp/internal/filereader"
	"github.com/IgorBayerl/mfp/internal/filesystem"
	"github.com/IgorBayerl/mfp/internal/wordcount"
)

// DefaultConcurrency caps the number of files read at the same time when
// Options.Concurrency is not set.
const DefaultConcurrency = 64

// Options configures a TextProcessor. The zero value is usable.
type Options struct {
	// Concurrency is the maximum number of files processed at once.
	Concurrency int
	// FileTimeout bounds the processing of each file. Zero means no deadline.
	FileTimeout time.Duration
	// FS defaults to the host filesystem.
	FS filesystem.Filesystem
	// Observer defaults to NopObserver.
	Observer Observer
}

// TextProcessor counts words in files and keeps the results of every batch it ran.
type TextProcessor struct {
	fs          filesystem.Filesystem
	observer    Observer
	concurrency int
	fileTimeout time.Duration

	mu      sync.RWMutex
	results map[string]FileProcessingResult
}

// NewTextProcessor creates a TextProcessor with an empty results table.
func NewTextProcessor(opts Options) *TextProcessor {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.FS == nil {
		opts.FS = filesystem.DefaultFS{}
	}
	if opts.Observer == nil {
		opts.Observer = NopObserver{}
	}
	return &TextProcessor{
		fs:          opts.FS,
		observer:    opts.Observer,
		concurrency: opts.Concurrency,
		fileTimeout: opts.FileTimeout,
		results:     make(map[string]FileProcessingResult),
	}
}

// ProcessFiles processes every path concurrently and merges the successful
// results into the processor's table. It waits for all files to finish, one
// failure never stops the others.
//
// It returns ErrEmptyFileList without doing any work when paths is empty, and
// a *PartialProcessingError when one or more files failed (including when all
// of them did). Individual failures are reported to the Observer only.
func (p *TextProcessor) ProcessFiles(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return ErrEmptyFileList
	}

	batchID := uuid.NewString()
	total := len(paths)
	start := time.Now()
	p.observer.BatchStarted(batchID, total)

	outcomes := make(chan fileOutcome, total)
	go p.dispatch(ctx, paths, outcomes)

	failed := 0
	for n := 0; n < total; n++ {
		outcome := <-outcomes
		if outcome.err != nil {
			failed++
			p.observer.FileFailed(batchID, outcome.path, outcome.err)
			continue
		}

		p.mu.Lock()
		p.results[outcome.path] = outcome.result
		p.mu.Unlock()
		p.observer.FileSucceeded(batchID, outcome.path, outcome.result.clone(), outcome.elapsed)
	}

	p.observer.BatchFinished(BatchSummary{
		BatchID:     batchID,
		TotalCount:  total,
		FailedCount: failed,
		Elapsed:     time.Since(start),
	})

	if failed > 0 {
		return &PartialProcessingError{FailedCount: failed, TotalCount: total}
	}
	return nil
}

// dispatch starts one goroutine per path, never more than p.concurrency at a
// time. Paths still waiting for a slot when ctx ends fail without being opened.
func (p *TextProcessor) dispatch(ctx context.Context, paths []string, outcomes chan<- fileOutcome) {
	sem := make(chan struct{}, p.concurrency)

	for _, path := range paths {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			outcomes <- fileOutcome{path: path, err: newContextError(path, "wait", ctx.Err())}
			continue
		}

		path := path
		go func() {
			defer func() { <-sem }()
			start := time.Now()
			result, err := p.processSingleFile(ctx, path)
			outcomes <- fileOutcome{path: path, result: result, err: err, elapsed: time.Since(start)}
		}()
	}
}

// processSingleFile runs the per-file pipeline: probe, open, stream and count.
// It produces either a complete result or an error, never a partial result.
func (p *TextProcessor) processSingleFile(ctx context.Context, path string) (FileProcessingResult, error) {
	if p.fileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.fileTimeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return FileProcessingResult{}, newContextError(path, "wait", err)
	}

	if _, err := p.fs.Stat(path); err != nil {
		return FileProcessingResult{}, &FileError{Path: path, Op: "stat", Kind: KindNotFound, Err: err}
	}

	file, err := p.fs.Open(path)
	if err != nil {
		return FileProcessingResult{}, &FileError{Path: path, Op: "open", Kind: KindIO, Err: err}
	}
	defer file.Close()

	// Closing the file unblocks a read that is stuck when the deadline passes.
	stop := context.AfterFunc(ctx, func() { file.Close() })
	defer stop()

	result := FileProcessingResult{LineCounts: []int{}}
	err = filereader.ForEachLine(ctx, file, func(line string) error {
		words := wordcount.CountWords(line)
		result.LineCounts = append(result.LineCounts, words)
		result.TotalWords += words
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return FileProcessingResult{}, newContextError(path, "read", ctxErr)
		}
		return FileProcessingResult{}, &FileError{Path: path, Op: "read", Kind: KindIO, Err: err}
	}
	return result, nil
}

// Results returns a copy of the accumulated results table, keyed by the
// paths as they were passed to ProcessFiles.
func (p *TextProcessor) Results() map[string]FileProcessingResult {
	p.mu.RLock()
	defer p.mu.RUnlock()

	results := make(map[string]FileProcessingResult, len(p.results))
	for path, result := range p.results {
		results[path] = result.clone()
	}
	return results
}

// Reset discards every accumulated result.
func (p *TextProcessor) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.results)
}
