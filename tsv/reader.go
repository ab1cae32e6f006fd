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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/catalogsync/core"
)

// ErrMissingHeader is returned when a stream has no header line.
var ErrMissingHeader = errors.New("missing header line")

// Reader produces RawRows from a delimited stream whose first line is a header.
// The sequence is lazy, finite and cannot be restarted.
type Reader struct {
	lines     *LineReader
	closer    io.Closer
	path      string
	delimiter string
	header    []string
	nextIndex int
	err       error // latched stream-level failure
	logger    *slog.Logger
}

// Option configures a Reader.
type Option func(*Reader)

// WithDelimiter sets the field delimiter. Default is tab.
func WithDelimiter(delim rune) Option {
	return func(r *Reader) {
		r.delimiter = string(delim)
	}
}

// WithRowOffset sets the global index assigned to the first data row.
// Partition readers use it so rows keep their position in the original input.
func WithRowOffset(offset int) Option {
	return func(r *Reader) {
		r.nextIndex = offset
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reader) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewReader reads the header from src and returns a Reader positioned on the
// first data row.
func NewReader(src io.Reader, opts ...Option) (*Reader, error) {
	r := &Reader{
		lines:     NewLineReader(src, 0),
		delimiter: "\t",
		logger:    slog.Default().With("component", "tsv-reader"),
	}
	for _, opt := range opts {
		opt(r)
	}

	line, _, err := r.lines.ReadLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrMissingHeader
		}
		return nil, &core.IOError{Op: "read header", Path: r.path, Err: err}
	}
	r.header = strings.Split(line, r.delimiter)
	return r, nil
}

// Open opens the file at path and returns a Reader that owns it.
func Open(path string, opts ...Option) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &core.IOError{Op: "open", Path: path, Err: err}
	}
	r, err := NewReader(f, opts...)
	if err != nil {
		f.Close()
		var ioErr *core.IOError
		if errors.As(err, &ioErr) {
			ioErr.Path = path
			return nil, ioErr
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.closer = f
	r.path = path
	return r, nil
}

// Header returns the column names in file order.
func (r *Reader) Header() []string {
	return r.header
}

// Next returns the next row. It returns io.EOF when the stream is exhausted.
//
// A *core.ParseError means only the current line was rejected and Next may be
// called again. Any other error ends the sequence and is returned by every
// subsequent call; rows returned before it remain valid.
func (r *Reader) Next() (core.RawRow, error) {
	if r.err != nil {
		return core.RawRow{}, r.err
	}

	line, lineNo, err := r.lines.ReadLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			r.err = io.EOF
		} else {
			r.err = &core.IOError{Op: "read", Path: r.path, Err: err}
			r.logger.Error("stream read failed", "path", r.path, "line", lineNo, "err", err)
		}
		return core.RawRow{}, r.err
	}

	index := r.nextIndex
	r.nextIndex++

	fields := strings.Split(line, r.delimiter)
	if len(fields) != len(r.header) {
		return core.RawRow{}, &core.ParseError{
			Line:     lineNo,
			RowIndex: index,
			Expected: len(r.header),
			Actual:   len(fields),
		}
	}

	return core.RawRow{
		Index:   index,
		Columns: r.header,
		Values:  fields,
	}, nil
}

// Close releases the underlying file when the Reader was created by Open.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}
