package core

// linereader.go reads text lines from an upload without loading it whole.
//
// Uploads often come from spreadsheet tools on Windows, so the reader:
//
//   - drops a leading UTF-8 BOM (0xEF 0xBB 0xBF)
//   - accepts both "\n" and "\r\n" line endings
//   - replaces invalid UTF-8 sequences with U+FFFD
//   - tracks bytes consumed for logging

import (
	"bufio"
	"io"
	"strings"
	"unicode/utf8"
)

const utf8BOM = "\uFEFF"

type lineReader struct {
	r         *bufio.Reader
	lineNo    int
	bytesRead int64
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReaderSize(r, 64*1024)}
}

// next returns the next line without its terminator. ok is false once the
// input is exhausted. A trailing newline at end of input does not produce an
// extra empty line.
func (lr *lineReader) next() (line string, ok bool, err error) {
	s, err := lr.r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", false, err
	}
	if s == "" {
		return "", false, nil
	}

	lr.bytesRead += int64(len(s))
	s = strings.TrimSuffix(s, "\n")
	s = strings.TrimSuffix(s, "\r")

	if lr.lineNo == 0 {
		s = strings.TrimPrefix(s, utf8BOM)
	}
	lr.lineNo++

	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, string(utf8.RuneError))
	}
	return s, true, nil
}

// LineNumber returns the 1-based number of the line last returned by next.
func (lr *lineReader) LineNumber() int {
	return lr.lineNo
}

// BytesRead returns the number of raw bytes consumed so far.
func (lr *lineReader) BytesRead() int64 {
	return lr.bytesRead
}
