package reporter

import (
	"encoding/json"
	"io"

	"github.com/IgorBayerl/mfp/internal/processor"
)

type jsonFileResult struct {
	LineCounts []int `json:"line_counts"`
	TotalWords *int  `json:"total_words,omitempty"`
}

type jsonOutput struct {
	Files map[string]jsonFileResult `json:"files"`
}

// JSONReporter writes {"files": {"<name>": {"line_counts": [...]}}}, adding
// total_words per file when Verbose is set.
type JSONReporter struct {
	Verbose bool
}

func (r *JSONReporter) Name() string {
	return "Json"
}

func (r *JSONReporter) Write(w io.Writer, results map[string]processor.FileProcessingResult) error {
	out := jsonOutput{Files: make(map[string]jsonFileResult, len(results))}
	for _, entry := range sortedEntries(results) {
		fileResult := jsonFileResult{LineCounts: entry.Result.LineCounts}
		if fileResult.LineCounts == nil {
			fileResult.LineCounts = []int{}
		}
		if r.Verbose {
			total := entry.Result.TotalWords
			fileResult.TotalWords = &total
		}
		out.Files[entry.Name] = fileResult
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
