// Package fsutil implements the file collaborators the core relies on:
// tolerant text reads, atomic artifact writes and an output-directory lock.
package fsutil

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ReadText reads path as text. UTF-8 and UTF-16 byte order marks are honoured
// and stripped, invalid UTF-8 bytes become U+FFFD, and CRLF line endings are
// normalized to LF. Only I/O failures are reported as errors.
func ReadText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	return DecodeText(f)
}

// DecodeText decodes r with the same rules as ReadText.
func DecodeText(r io.Reader) (string, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	data, err := io.ReadAll(transform.NewReader(r, decoder))
	if err != nil {
		return "", fmt.Errorf("decode text: %w", err)
	}
	return strings.ReplaceAll(string(data), "\r\n", "\n"), nil
}
