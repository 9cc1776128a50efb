package reporter

import (
	"fmt"
	"io"

	"github.com/IgorBayerl/mfp/internal/processor"
)

// TextSummaryReporter prints one line per file with its line word counts.
type TextSummaryReporter struct {
	Verbose bool
}

func (r *TextSummaryReporter) Name() string {
	return "TextSummary"
}

func (r *TextSummaryReporter) Write(w io.Writer, results map[string]processor.FileProcessingResult) error {
	if _, err := fmt.Fprint(w, "\nProcessing Results:\n------------------\n"); err != nil {
		return err
	}

	for _, entry := range sortedEntries(results) {
		var err error
		if r.Verbose {
			_, err = fmt.Fprintf(w, "%s: %d words in total\n  Line counts: %s\n",
				entry.Name, entry.Result.TotalWords, formatCounts(entry.Result.LineCounts))
		} else {
			_, err = fmt.Fprintf(w, "%s: %s\n", entry.Name, formatCounts(entry.Result.LineCounts))
		}
		if err != nil {
			return err
		}
	}
	return nil
}
