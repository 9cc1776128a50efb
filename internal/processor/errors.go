package processor

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrEmptyFileList is returned by ProcessFiles when no paths are given.
	ErrEmptyFileList = errors.New("no files provided to process")
	// ErrFileNotFound matches a FileError whose metadata probe failed.
	ErrFileNotFound = errors.New("file not found")
	// ErrTimeout matches a FileError whose deadline expired.
	ErrTimeout = errors.New("processing timed out")
	// ErrCanceled matches a FileError whose context was canceled.
	ErrCanceled = errors.New("processing canceled")
)

// FailureKind classifies why a file could not be processed.
type FailureKind int

const (
	KindIO FailureKind = iota
	KindNotFound
	KindTimeout
	KindCanceled
)

func (k FailureKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindTimeout:
		return "timeout"
	case KindCanceled:
		return "canceled"
	default:
		return "io"
	}
}

// FileError is the failure of a single file. It never reaches the caller of
// ProcessFiles directly; observers receive it and the batch only counts it.
type FileError struct {
	Path string
	// Op is the step that failed: "stat", "open", "read" or "wait".
	Op   string
	Kind FailureKind
	Err  error
}

func (e *FileError) Error() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("file not found: %s", e.Path)
	case KindTimeout:
		return fmt.Sprintf("timed out processing %s during %s", e.Path, e.Op)
	case KindCanceled:
		return fmt.Sprintf("canceled processing %s during %s", e.Path, e.Op)
	default:
		return fmt.Sprintf("IO error: %s %s: %v", e.Op, e.Path, e.Err)
	}
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the package sentinels against the failure kind.
func (e *FileError) Is(target error) bool {
	switch target {
	case ErrFileNotFound:
		return e.Kind == KindNotFound
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrCanceled:
		return e.Kind == KindCanceled
	}
	return false
}

// KindOf returns the FailureKind carried by err, or KindIO when err is not a FileError.
func KindOf(err error) FailureKind {
	var fileErr *FileError
	if errors.As(err, &fileErr) {
		return fileErr.Kind
	}
	return KindIO
}

// PartialProcessingError is the batch result when at least one file failed.
// FailedCount == TotalCount when every file failed.
type PartialProcessingError struct {
	FailedCount int
	TotalCount  int
}

func (e *PartialProcessingError) Error() string {
	return fmt.Sprintf("failed to process %d out of %d files", e.FailedCount, e.TotalCount)
}

// newContextError converts a context error into a FileError for path.
func newContextError(path, op string, err error) *FileError {
	kind := KindCanceled
	if errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	return &FileError{Path: path, Op: op, Kind: kind, Err: err}
}
