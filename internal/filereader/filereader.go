package filereader

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrInvalidEncoding is returned when a line is not valid UTF-8 after BOM decoding.
var ErrInvalidEncoding = errors.New("stream did not contain valid UTF-8")

// NewDecodingReader wraps r so that a leading byte order mark selects the
// encoding: a UTF-8 BOM is dropped and UTF-16 (LE or BE) input is transcoded
// to UTF-8. Input without a BOM passes through unchanged.
func NewDecodingReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(encoding.Nop.NewDecoder()))
}

// ForEachLine streams r line by line and calls fn for every line, in order.
// Lines are split on '\n' with a trailing '\r' removed; a final line without
// a terminator is still reported and an empty stream reports no lines.
// Only one line is held in memory at a time.
//
// The context is checked before each line. Errors from fn are returned as is.
func ForEachLine(ctx context.Context, r io.Reader, fn func(line string) error) error {
	reader := bufio.NewReader(NewDecodingReader(r))
	lineNumber := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, readErr := reader.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return readErr
		}
		if line == "" && readErr == io.EOF {
			return nil
		}

		lineNumber++
		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")
		if !utf8.ValidString(line) {
			return fmt.Errorf("line %d: %w", lineNumber, ErrInvalidEncoding)
		}
		if err := fn(line); err != nil {
			return err
		}

		if readErr == io.EOF {
			return nil
		}
	}
}
