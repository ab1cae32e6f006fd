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


// Package aggregate collects per-row transform results, which complete in
// any order, and releases them in input order.
package aggregate

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/poiesic/catalogsync/core"
)

var (
	// ErrIncomplete is returned by Finalize while dispatched rows are still
	// pending or in flight.
	ErrIncomplete = errors.New("aggregate: jobs still in progress")

	// ErrDuplicateRow is returned by Merge when two aggregators hold the same row.
	ErrDuplicateRow = errors.New("aggregate: row index present in more than one aggregator")
)

// Aggregator accumulates TransformJobs keyed by row index.
// It is safe for concurrent use.
type Aggregator struct {
	mu   sync.Mutex
	jobs map[int]core.TransformJob
}

// New creates an empty Aggregator.
func New() *Aggregator {
	return &Aggregator{jobs: make(map[int]core.TransformJob)}
}

// Expect registers n pending rows starting at index first. Rows that are
// expected but never dispatched keep a run from finalizing cleanly.
func (a *Aggregator) Expect(first, n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for idx := first; idx < first+n; idx++ {
		if _, ok := a.jobs[idx]; !ok {
			a.jobs[idx] = core.TransformJob{RowIndex: idx, Status: core.JobPending}
		}
	}
}

// Dispatch registers a row as in flight. Dispatching a row that is already
// in flight or terminal leaves it untouched.
func (a *Aggregator) Dispatch(rowIndex int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if j, ok := a.jobs[rowIndex]; ok && j.Status != core.JobPending {
		return
	}
	a.jobs[rowIndex] = core.TransformJob{RowIndex: rowIndex, Status: core.JobInFlight}
}

// Accumulate records a job result. A job that is already terminal is never
// overwritten.
func (a *Aggregator) Accumulate(job core.TransformJob) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if prev, ok := a.jobs[job.RowIndex]; ok && prev.Status.Terminal() {
		return
	}
	a.jobs[job.RowIndex] = job
}

// Len returns the number of rows seen.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.jobs)
}

// Pending returns the number of rows not yet terminal.
func (a *Aggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, j := range a.jobs {
		if !j.Status.Terminal() {
			n++
		}
	}
	return n
}

// Finalize returns the successful products and the failed rows, both
// ordered by row index. It fails with ErrIncomplete if any row is still
// pending or in flight.
func (a *Aggregator) Finalize() ([]core.CanonicalProduct, []core.FailedRow, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, j := range a.jobs {
		if !j.Status.Terminal() {
			return nil, nil, fmt.Errorf("%w: row %d is %s", ErrIncomplete, j.RowIndex, j.Status)
		}
	}
	products, failed := a.collect()
	return products, failed, nil
}

// FinalizeAbandoned is Finalize for aborted runs: every row that is not
// terminal is reported as failed with core.ErrRunAbandoned and cause.
func (a *Aggregator) FinalizeAbandoned(cause error) ([]core.CanonicalProduct, []core.FailedRow) {
	a.mu.Lock()
	defer a.mu.Unlock()
	err := core.ErrRunAbandoned
	if cause != nil {
		err = fmt.Errorf("%w: %w", core.ErrRunAbandoned, cause)
	}
	for idx, j := range a.jobs {
		if j.Status.Terminal() {
			continue
		}
		j.Status = core.JobFailed
		j.Phase = core.PhaseMapping
		j.Err = err
		a.jobs[idx] = j
	}
	return a.collect()
}

func (a *Aggregator) collect() ([]core.CanonicalProduct, []core.FailedRow) {
	indexes := make([]int, 0, len(a.jobs))
	for idx := range a.jobs {
		indexes = append(indexes, idx)
	}
	slices.Sort(indexes)

	products := make([]core.CanonicalProduct, 0, len(indexes))
	var failed []core.FailedRow
	for _, idx := range indexes {
		j := a.jobs[idx]
		if j.Status == core.JobSucceeded && j.Product != nil {
			products = append(products, *j.Product)
			continue
		}
		fr := core.FailedRow{RowIndex: idx, Phase: j.Phase, Attempts: j.Attempts}
		if j.Err != nil {
			fr.Err = j.Err.Error()
		}
		failed = append(failed, fr)
	}
	return products, failed
}

// Merge combines per-partition aggregators into one. Row indexes must be
// disjoint.
func Merge(parts ...*Aggregator) (*Aggregator, error) {
	out := New()
	for _, p := range parts {
		if p == nil {
			continue
		}
		p.mu.Lock()
		for idx, j := range p.jobs {
			if _, dup := out.jobs[idx]; dup {
				p.mu.Unlock()
				return nil, fmt.Errorf("%w: %d", ErrDuplicateRow, idx)
			}
			out.jobs[idx] = j
		}
		p.mu.Unlock()
	}
	return out, nil
}
