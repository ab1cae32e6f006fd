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
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker reports row progress for long-running operations.
// A nil *ProgressTracker ignores every call.
type ProgressTracker struct {
	writer         io.Writer
	total          int
	done           int
	failed         int
	reportInterval int
	lastReported   int
	startTime      time.Time
	started        bool
	mu             sync.Mutex
}

// NewProgressTracker creates a new progress tracker.
// writer: where to write progress output (typically os.Stderr)
// total: total number of rows to process
// reportInterval: report progress every N rows
func NewProgressTracker(writer io.Writer, total, reportInterval int) *ProgressTracker {
	return &ProgressTracker{
		writer:         writer,
		total:          total,
		reportInterval: max(reportInterval, 1),
	}
}

// Start begins tracking progress.
func (p *ProgressTracker) Start() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.done = 0
	p.failed = 0
	p.lastReported = 0
}

// Record counts one finished row.
func (p *ProgressTracker) Record(succeeded bool) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	if p.done < p.total {
		p.done++
	}
	if !succeeded {
		p.failed++
	}

	if p.done-p.lastReported >= p.reportInterval {
		p.report()
		p.lastReported = p.done
	}
}

// Finish prints final progress. Rows never recorded are not counted as done.
func (p *ProgressTracker) Finish() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.report()
	fmt.Fprintln(p.writer)
	p.started = false
}

// Elapsed returns the time elapsed since Start was called.
func (p *ProgressTracker) Elapsed() time.Duration {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}

	return time.Since(p.startTime)
}

// report prints the current progress. Must be called with lock held.
func (p *ProgressTracker) report() {
	elapsed := time.Since(p.startTime)
	rate := 0.0
	if secs := elapsed.Seconds(); secs > 0 {
		rate = float64(p.done) / secs
	}

	percentage := 100.0
	if p.total > 0 {
		percentage = float64(p.done) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.writer, "\rRows: %d/%d (%.1f%%), %d failed - %.1f rows/s",
		p.done, p.total, percentage, p.failed, rate)
}
