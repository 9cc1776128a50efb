// Package reporter renders processing results for humans and machines.
package reporter

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/IgorBayerl/mfp/internal/processor"
)

// Format selects an output renderer.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatHTML Format = "html"
)

// SupportedFormats lists every format New accepts.
var SupportedFormats = []Format{FormatText, FormatJSON, FormatHTML}

// ParseFormat maps a case-insensitive name to a Format.
func ParseFormat(s string) (Format, error) {
	candidate := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, f := range SupportedFormats {
		if f == candidate {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported output format: %s", s)
}

// Reporter writes results to w.
type Reporter interface {
	Name() string
	Write(w io.Writer, results map[string]processor.FileProcessingResult) error
}

// New returns the Reporter for format. With verbose set, total word counts
// are included in the output.
func New(format Format, verbose bool) (Reporter, error) {
	switch format {
	case FormatText:
		return &TextSummaryReporter{Verbose: verbose}, nil
	case FormatJSON:
		return &JSONReporter{Verbose: verbose}, nil
	case FormatHTML:
		return &HTMLReporter{Verbose: verbose, Title: "Word Count Report"}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// fileEntry is one row of a report.
type fileEntry struct {
	Name   string
	Path   string
	Result processor.FileProcessingResult
}

// sortedEntries orders results by path and names each file by its base name.
// Files sharing a base name keep their full path so no row is lost.
func sortedEntries(results map[string]processor.FileProcessingResult) []fileEntry {
	paths := make([]string, 0, len(results))
	baseCount := make(map[string]int, len(results))
	for path := range results {
		paths = append(paths, path)
		baseCount[filepath.Base(path)]++
	}
	sort.Strings(paths)

	entries := make([]fileEntry, 0, len(paths))
	for _, path := range paths {
		name := filepath.Base(path)
		if baseCount[name] > 1 {
			name = path
		}
		entries = append(entries, fileEntry{Name: name, Path: path, Result: results[path]})
	}
	return entries
}

// formatCounts renders line counts as a bracketed, comma separated list.
func formatCounts(counts []int) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, n := range counts {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d", n)
	}
	b.WriteByte(']')
	return b.String()
}
