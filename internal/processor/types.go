package processor

import (
	"slices"
	"time"
)

// FileProcessingResult holds the word counts of one successfully processed file.
type FileProcessingResult struct {
	// LineCounts has one entry per line, in file order. Empty, not nil, for a file without lines.
	LineCounts []int
	// TotalWords is the sum of LineCounts.
	TotalWords int
}

func (r FileProcessingResult) clone() FileProcessingResult {
	lineCounts := slices.Clone(r.LineCounts)
	if lineCounts == nil {
		lineCounts = []int{}
	}
	return FileProcessingResult{LineCounts: lineCounts, TotalWords: r.TotalWords}
}

// BatchSummary describes a finished ProcessFiles call.
type BatchSummary struct {
	BatchID     string
	TotalCount  int
	FailedCount int
	Elapsed     time.Duration
}

// Succeeded reports whether every file of the batch was processed.
func (s BatchSummary) Succeeded() bool {
	return s.FailedCount == 0
}

// fileOutcome is what a single unit of work hands back to the aggregator.
type fileOutcome struct {
	path    string
	result  FileProcessingResult
	err     error
	elapsed time.Duration
}
