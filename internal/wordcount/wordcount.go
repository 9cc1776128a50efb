// Package wordcount counts whitespace-delimited words in a line of text.
package wordcount

import (
	"unicode"
	"unicode/utf8"
)

// CountWords returns the number of maximal runs of non-whitespace runes in line.
// Whitespace is anything unicode.IsSpace reports, so tabs, no-break spaces and
// ideographic spaces all separate words. Any other run counts as one word,
// including punctuation-only and multi-byte tokens.
func CountWords(line string) int {
	count := 0
	inWord := false
	for i := 0; i < len(line); {
		r, size := rune(line[i]), 1
		if r >= utf8.RuneSelf {
			r, size = utf8.DecodeRuneInString(line[i:])
		}
		i += size

		if unicode.IsSpace(r) {
			inWord = false
			continue
		}
		if !inWord {
			count++
			inWord = true
		}
	}
	return count
}
