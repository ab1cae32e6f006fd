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


package pipeline

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/catalogsync/split"
	"github.com/poiesic/catalogsync/storage"
	"github.com/poiesic/catalogsync/transform"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithInput sets the catalog file to process. Required.
func WithInput(path string) Option {
	return func(o *Orchestrator) error {
		o.inputPath = path
		return nil
	}
}

// WithWorkDir sets the directory that holds partition files.
// Default is a catalogsync directory under os.TempDir().
func WithWorkDir(dir string) Option {
	return func(o *Orchestrator) error {
		o.workDir = dir
		return nil
	}
}

// WithOutputPath sets where the JSON artifact is written.
// An empty path disables the artifact.
func WithOutputPath(path string) Option {
	return func(o *Orchestrator) error {
		o.outputPath = path
		return nil
	}
}

// WithPartitions sets the number of partition files. Default is 10.
func WithPartitions(n int) Option {
	return func(o *Orchestrator) error {
		if n < 1 {
			return errors.New("partitions must be at least 1")
		}
		o.partitions = n
		return nil
	}
}

// WithPartitionConcurrency bounds how many partitions are read at once.
// Default is 2. Row-level concurrency is bounded by the transformer.
func WithPartitionConcurrency(n int) Option {
	return func(o *Orchestrator) error {
		if n < 1 {
			return errors.New("partition concurrency must be at least 1")
		}
		o.partitionConcurrency = n
		return nil
	}
}

// WithChunkSize sets how many products go into one BulkInsert call.
// Zero sends all products in a single call. Default is 500.
func WithChunkSize(n int) Option {
	return func(o *Orchestrator) error {
		if n < 0 {
			return errors.New("chunk size cannot be negative")
		}
		o.chunkSize = n
		return nil
	}
}

// WithSinkRetries sets how many times a chunk is retried after a retryable
// sink error. Default is 3.
func WithSinkRetries(n int) Option {
	return func(o *Orchestrator) error {
		if n < 0 {
			return errors.New("sink retries cannot be negative")
		}
		o.sinkRetries = n
		return nil
	}
}

// WithSinkBackoff sets the delay schedule between sink retries.
func WithSinkBackoff(b transform.Backoff) Option {
	return func(o *Orchestrator) error {
		o.sinkBackoff = b
		return nil
	}
}

// WithRunTimeout bounds the duration of a whole run. Zero means no limit.
func WithRunTimeout(d time.Duration) Option {
	return func(o *Orchestrator) error {
		if d < 0 {
			return errors.New("run timeout cannot be negative")
		}
		o.runTimeout = d
		return nil
	}
}

// WithKeepPartitions leaves partition files on disk after the run.
func WithKeepPartitions(keep bool) Option {
	return func(o *Orchestrator) error {
		o.keepPartitions = keep
		return nil
	}
}

// WithProgress writes row progress to w while partitions are processed.
func WithProgress(w io.Writer, reportInterval int) Option {
	return func(o *Orchestrator) error {
		if reportInterval < 1 {
			reportInterval = 1
		}
		o.progress = w
		o.progressInterval = reportInterval
		return nil
	}
}

// WithRunRepository persists every finished run's report.
func WithRunRepository(runs storage.RunRepository) Option {
	return func(o *Orchestrator) error {
		o.runs = runs
		return nil
	}
}

// WithSplitter replaces the default split coordinator.
func WithSplitter(c *split.Coordinator) Option {
	return func(o *Orchestrator) error {
		if c != nil {
			o.splitter = c
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}
