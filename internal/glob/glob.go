// Package glob finds files by matching their path names against a pattern.
// Supported syntax:
//   - `?`: Matches any single character in a file or directory name.
//   - `*`: Matches zero or more characters in a file or directory name.
//   - `**`: Matches zero or more recursive directories.
//   - `[...]`: Matches a set of characters in a name (e.g., `[abc]`, `[a-z]`).
//   - `{group1,group2,...}`: Matches any of the pattern groups.
//
// Case-insensitivity is the default behavior for wildcard matching.
package glob

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/IgorBayerl/mfp/internal/filesystem"
)

const globCharacters = "*?[]{}"

var (
	// regexSpecialChars are escaped when a glob segment is turned into a regex.
	regexSpecialChars = map[rune]bool{
		'[': true, '\\': true, '^': true, '$': true, '.': true, '|': true,
		'?': true, '*': true, '+': true, '(': true, ')': true, '{': true, '}': true,
	}

	// Key: segment + "|" + case-sensitivity flag.
	segmentCache = make(map[string]*segmentMatcher)
	cacheMutex   sync.Mutex
)

// segmentMatcher matches a single path element, either through a compiled
// regex or by literal comparison when the segment has no wildcards.
type segmentMatcher struct {
	re         *regexp.Regexp
	literal    string
	ignoreCase bool
}

func (m *segmentMatcher) isMatch(name string) bool {
	if m.re != nil {
		return m.re.MatchString(name)
	}
	if m.ignoreCase {
		return strings.EqualFold(m.literal, name)
	}
	return m.literal == name
}

// Glob holds the pattern and matching options.
type Glob struct {
	OriginalPattern string
	// IgnoreCase specifies whether wildcard matching is case-insensitive. Defaults to true.
	IgnoreCase bool

	fs filesystem.Filesystem
}

// NewGlob creates a Glob for pattern that resolves paths through fsys.
func NewGlob(pattern string, fsys filesystem.Filesystem) *Glob {
	if fsys == nil {
		fsys = filesystem.DefaultFS{}
	}
	return &Glob{
		OriginalPattern: pattern,
		IgnoreCase:      true,
		fs:              fsys,
	}
}

func (g *Glob) String() string {
	return g.OriginalPattern
}

// HasMeta reports whether pattern contains any glob syntax.
func HasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, globCharacters)
}

// Expand returns the sorted, de-duplicated paths matching the pattern.
// Relative patterns yield relative paths, absolute patterns absolute ones.
// Directories that cannot be read are skipped.
func (g *Glob) Expand() ([]string, error) {
	if g.OriginalPattern == "" {
		return []string{}, nil
	}

	// Groups may contain separators, so the whole pattern is ungrouped first.
	patterns, err := ungroup(filepath.ToSlash(g.OriginalPattern))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var matches []string
	for _, p := range patterns {
		found, err := g.expandPattern(p)
		if err != nil {
			return nil, err
		}
		for _, m := range found {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			matches = append(matches, filepath.FromSlash(m))
		}
	}
	sort.Strings(matches)
	if matches == nil {
		matches = []string{}
	}
	return matches, nil
}

// expandPattern walks a brace-free, slash-separated pattern segment by segment.
func (g *Glob) expandPattern(pattern string) ([]string, error) {
	root := "."
	if strings.HasPrefix(pattern, "/") {
		root = "/"
	}
	segments := strings.FieldsFunc(pattern, func(r rune) bool { return r == '/' })
	if len(segments) == 0 {
		return g.existing([]string{root}, false), nil
	}

	// Malformed segments fail even when an earlier segment matches nothing.
	for _, segment := range segments {
		if segment != "**" && HasMeta(segment) {
			if _, err := g.matcherFor(segment); err != nil {
				return nil, err
			}
		}
	}

	current := []string{root}
	for i, segment := range segments {
		last := i == len(segments)-1
		dirOnly := !last

		switch {
		case segment == "**":
			current = g.descend(current, dirOnly)
		case !HasMeta(segment):
			next := make([]string, 0, len(current))
			for _, dir := range current {
				next = append(next, path.Join(dir, segment))
			}
			current = g.existing(next, dirOnly)
		default:
			matcher, err := g.matcherFor(segment)
			if err != nil {
				return nil, err
			}
			var next []string
			for _, dir := range current {
				entries, err := g.fs.ReadDir(filepath.FromSlash(dir))
				if err != nil {
					continue
				}
				for _, entry := range entries {
					if dirOnly && !entry.IsDir() {
						continue
					}
					if matcher.isMatch(entry.Name()) {
						next = append(next, path.Join(dir, entry.Name()))
					}
				}
			}
			current = next
		}

		if len(current) == 0 {
			return nil, nil
		}
	}
	return current, nil
}

// existing keeps the candidates that exist, and only directories when dirOnly is set.
func (g *Glob) existing(candidates []string, dirOnly bool) []string {
	var out []string
	for _, c := range candidates {
		info, err := g.fs.Stat(filepath.FromSlash(c))
		if err != nil {
			continue
		}
		if dirOnly && !info.IsDir() {
			continue
		}
		out = append(out, c)
	}
	return out
}

// descend returns every directory and its descendants. Files are included
// unless dirOnly is set.
func (g *Glob) descend(dirs []string, dirOnly bool) []string {
	var out []string
	var walk func(dir string)
	walk = func(dir string) {
		out = append(out, dir)
		entries, err := g.fs.ReadDir(filepath.FromSlash(dir))
		if err != nil {
			return
		}
		for _, entry := range entries {
			child := path.Join(dir, entry.Name())
			if entry.IsDir() {
				walk(child)
			} else if !dirOnly {
				out = append(out, child)
			}
		}
	}
	for _, dir := range dirs {
		walk(dir)
	}
	return out
}

func (g *Glob) matcherFor(segment string) (*segmentMatcher, error) {
	cacheKey := fmt.Sprintf("%s|%t", segment, g.IgnoreCase)

	cacheMutex.Lock()
	defer cacheMutex.Unlock()
	if cached, ok := segmentCache[cacheKey]; ok {
		return cached, nil
	}

	m := &segmentMatcher{literal: segment, ignoreCase: g.IgnoreCase}
	if HasMeta(segment) {
		pattern, err := globToRegexPattern(segment, g.IgnoreCase)
		if err != nil {
			return nil, err
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to compile regex '%s' from glob segment '%s': %w", pattern, segment, err)
		}
		m.re = re
	}
	segmentCache[cacheKey] = m
	return m, nil
}

// globToRegexPattern converts a glob segment to an anchored regular expression.
func globToRegexPattern(segment string, ignoreCase bool) (string, error) {
	var regex strings.Builder
	if ignoreCase {
		regex.WriteString("(?i)")
	}
	regex.WriteRune('^')

	inCharClass := false
	for _, r := range segment {
		if inCharClass {
			if r == ']' {
				inCharClass = false
			}
			regex.WriteRune(r)
			continue
		}

		switch r {
		case '*':
			regex.WriteString(".*")
		case '?':
			regex.WriteRune('.')
		case '[':
			inCharClass = true
			regex.WriteRune(r)
		default:
			if regexSpecialChars[r] {
				regex.WriteRune('\\')
			}
			regex.WriteRune(r)
		}
	}

	if inCharClass {
		return "", fmt.Errorf("unterminated character class in glob segment: %s", segment)
	}
	regex.WriteRune('$')
	return regex.String(), nil
}

var errUnbalancedBraces = errors.New("unbalanced braces in pattern")

// ungroup expands braces, e.g. "{a,b}c" -> ["ac", "bc"]. Groups may nest.
func ungroup(pattern string) ([]string, error) {
	if !strings.ContainsAny(pattern, "{}") {
		return []string{pattern}, nil
	}

	level := 0
	open := -1
	for i, char := range pattern {
		switch char {
		case '{':
			if level == 0 {
				open = i
			}
			level++
		case '}':
			level--
			if level < 0 {
				return nil, fmt.Errorf("%w: %s", errUnbalancedBraces, pattern)
			}
			if level > 0 {
				continue
			}

			prefix := pattern[:open]
			suffix := pattern[i+1:]
			expandedSuffixes, err := ungroup(suffix)
			if err != nil {
				return nil, err
			}

			var results []string
			for _, part := range splitGroup(pattern[open+1 : i]) {
				expandedParts, err := ungroup(prefix + part)
				if err != nil {
					return nil, err
				}
				for _, ep := range expandedParts {
					for _, es := range expandedSuffixes {
						results = append(results, ep+es)
					}
				}
			}
			return results, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", errUnbalancedBraces, pattern)
}

// splitGroup splits the content of a brace group on its top-level commas.
func splitGroup(content string) []string {
	var parts []string
	var part strings.Builder
	depth := 0
	for _, c := range content {
		switch {
		case c == '{':
			depth++
		case c == '}':
			depth--
		case c == ',' && depth == 0:
			parts = append(parts, part.String())
			part.Reset()
			continue
		}
		part.WriteRune(c)
	}
	return append(parts, part.String())
}

// GetFiles expands pattern against the host file system.
func GetFiles(pattern string) ([]string, error) {
	return NewGlob(pattern, filesystem.DefaultFS{}).Expand()
}

// IsRegularFile reports whether name exists on fsys and is a regular file.
func IsRegularFile(fsys filesystem.Filesystem, name string) bool {
	info, err := fsys.Stat(name)
	return err == nil && info.Mode().IsRegular()
}
