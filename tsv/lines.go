// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package tsv

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const defaultBufferSize = 64 * 1024

// LineReader reads non-empty lines from a UTF-8 stream.
// A leading byte order mark is dropped and CRLF endings are normalized.
type LineReader struct {
	br     *bufio.Reader
	lineNo int
}

// NewLineReader wraps r. bufSize <= 0 selects a default buffer size.
func NewLineReader(r io.Reader, bufSize int) *LineReader {
	if bufSize <= 0 {
		bufSize = defaultBufferSize
	}
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	return &LineReader{br: bufio.NewReaderSize(decoded, bufSize)}
}

// ReadLine returns the next non-empty line without its line terminator and
// the 1-based physical line number it was read from. Only lines with no
// content are skipped; a line of delimiters or spaces is returned. It returns io.EOF once
// the stream is exhausted; any other error is a read failure.
func (l *LineReader) ReadLine() (string, int, error) {
	for {
		line, err := l.br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", l.lineNo, err
		}
		if line == "" && err != nil {
			return "", l.lineNo, io.EOF
		}
		l.lineNo++
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if err != nil {
				return "", l.lineNo, io.EOF
			}
			continue
		}
		return line, l.lineNo, nil
	}
}
