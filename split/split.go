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


// Package split partitions a delimited input file into near-equal sub-files
// that each carry the original header line.
package split

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/tsv"
)

// ErrInvalidParts is returned when fewer than one partition is requested.
var ErrInvalidParts = errors.New("parts must be at least 1")

const ctxCheckInterval = 4096

// Coordinator splits input files in two passes: one to count data rows and
// one to distribute them.
type Coordinator struct {
	bufSize int
	logger  *slog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithBufferSize sets the read and write buffer size per file.
func WithBufferSize(size int) Option {
	return func(c *Coordinator) {
		if size > 0 {
			c.bufSize = size
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(opts ...Option) *Coordinator {
	c := &Coordinator{
		bufSize: 64 * 1024,
		logger:  slog.Default().With("component", "split"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Split partitions inputPath using a Coordinator with default settings.
func Split(ctx context.Context, inputPath, outputDir string, parts int) (*core.SplitManifest, error) {
	return NewCoordinator().Split(ctx, inputPath, outputDir, parts)
}

// PartitionPath returns the path of the n-th (1-based) partition file.
func PartitionPath(outputDir string, n int) string {
	return filepath.Join(outputDir, fmt.Sprintf("part_%d.tsv", n))
}

// Split writes parts partition files into outputDir and returns their manifest.
// Data rows are assigned contiguously, ceil(total/parts) per partition, so
// trailing partitions may hold fewer rows or only the header.
func (c *Coordinator) Split(ctx context.Context, inputPath, outputDir string, parts int) (*core.SplitManifest, error) {
	if parts < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidParts, parts)
	}

	header, total, err := c.count(ctx, inputPath)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, &core.IOError{Op: "mkdir", Path: outputDir, Err: err}
	}

	linesPerPart := (total + parts - 1) / parts
	if linesPerPart == 0 {
		linesPerPart = 1
	}

	c.logger.Info("splitting input",
		"input", inputPath,
		"rows", total,
		"parts", parts,
		"linesPerPart", linesPerPart)

	counts, err := c.distribute(ctx, inputPath, outputDir, header, parts, linesPerPart)
	if err != nil {
		return nil, err
	}

	manifest := &core.SplitManifest{
		InputPath:  inputPath,
		Header:     header,
		Partitions: make([]core.Partition, parts),
	}
	first := 0
	for i, n := range counts {
		manifest.Partitions[i] = core.Partition{
			ID:       i + 1,
			Path:     PartitionPath(outputDir, i+1),
			RowCount: n,
			FirstRow: first,
		}
		first += n
	}
	manifest.TotalRows = first

	if manifest.TotalRows != total {
		c.logger.Warn("input changed between passes", "counted", total, "written", manifest.TotalRows)
	}

	return manifest, nil
}

// count streams the input once and returns its header and number of data rows.
func (c *Coordinator) count(ctx context.Context, inputPath string) (string, int, error) {
	f, err := os.Open(inputPath)
	if err != nil {
		return "", 0, &core.IOError{Op: "open", Path: inputPath, Err: err}
	}
	defer f.Close()

	lines := tsv.NewLineReader(f, c.bufSize)
	header, _, err := lines.ReadLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = tsv.ErrMissingHeader
		}
		return "", 0, &core.IOError{Op: "read header", Path: inputPath, Err: err}
	}

	total := 0
	for {
		if total%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return "", 0, err
			}
		}
		_, _, err := lines.ReadLine()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", 0, &core.IOError{Op: "read", Path: inputPath, Err: err}
		}
		total++
	}

	return header, total, nil
}

type partitionFile struct {
	f *os.File
	w *bufio.Writer
}

// distribute re-streams the input and writes every data row to its partition.
// Every file opened so far is closed before an error is returned.
func (c *Coordinator) distribute(
	ctx context.Context,
	inputPath, outputDir, header string,
	parts, linesPerPart int,
) (counts []int, err error) {
	in, err := os.Open(inputPath)
	if err != nil {
		return nil, &core.IOError{Op: "open", Path: inputPath, Err: err}
	}
	defer in.Close()

	files := make([]partitionFile, 0, parts)
	defer func() {
		if err == nil {
			return
		}
		for _, pf := range files {
			pf.f.Close()
		}
	}()

	for i := 1; i <= parts; i++ {
		path := PartitionPath(outputDir, i)
		f, openErr := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if openErr != nil {
			return nil, &core.IOError{Op: "create", Path: path, Err: openErr}
		}
		pf := partitionFile{f: f, w: bufio.NewWriterSize(f, c.bufSize)}
		files = append(files, pf)
		if _, werr := pf.w.WriteString(header + "\n"); werr != nil {
			return nil, &core.IOError{Op: "write", Path: path, Err: werr}
		}
	}

	lines := tsv.NewLineReader(in, c.bufSize)
	if _, _, rerr := lines.ReadLine(); rerr != nil {
		return nil, &core.IOError{Op: "read header", Path: inputPath, Err: rerr}
	}

	counts = make([]int, parts)
	for rowIndex := 0; ; rowIndex++ {
		if rowIndex%ctxCheckInterval == 0 {
			if cerr := ctx.Err(); cerr != nil {
				return nil, cerr
			}
		}
		line, _, rerr := lines.ReadLine()
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return nil, &core.IOError{Op: "read", Path: inputPath, Err: rerr}
		}

		p := rowIndex / linesPerPart
		if p >= parts {
			p = parts - 1
		}
		if _, werr := files[p].w.WriteString(line + "\n"); werr != nil {
			return nil, &core.IOError{Op: "write", Path: files[p].f.Name(), Err: werr}
		}
		counts[p]++
	}

	for i, pf := range files {
		if ferr := pf.w.Flush(); ferr != nil {
			// Files before i are closed already; close the rest on the way out.
			files = files[i:]
			return nil, &core.IOError{Op: "flush", Path: pf.f.Name(), Err: ferr}
		}
		if cerr := pf.f.Close(); cerr != nil {
			files = files[i+1:]
			return nil, &core.IOError{Op: "close", Path: pf.f.Name(), Err: cerr}
		}
	}
	files = nil

	return counts, nil
}
