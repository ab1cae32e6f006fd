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


package storage

import (
	"context"

	"github.com/poiesic/catalogsync/core"
)

// Sink accepts validated canonical products for bulk loading.
type Sink interface {
	// BulkInsert writes all products or returns a *StorageError.
	// Products are written in slice order.
	BulkInsert(ctx context.Context, products []core.CanonicalProduct) error

	// Close releases the connection to the backing store.
	Close() error
}

// ProductCounter is implemented by sinks that can report how many products
// they hold.
type ProductCounter interface {
	CountProducts(ctx context.Context) (int, error)
}

// RunRepository stores reports of finished pipeline runs.
type RunRepository interface {
	// SaveRun persists a report, replacing any earlier report with the same RunID.
	SaveRun(ctx context.Context, report *core.RunReport) error

	// GetRun retrieves a report by run ID.
	// Returns ErrNotFound if the report doesn't exist.
	GetRun(ctx context.Context, runID string) (*core.RunReport, error)

	// LatestRun returns the report with the most recent start time.
	// Returns ErrNotFound if no run has been recorded.
	LatestRun(ctx context.Context) (*core.RunReport, error)

	// ListRuns returns up to limit reports, most recent first.
	ListRuns(ctx context.Context, limit int) ([]*core.RunReport, error)

	// Close releases resources held by the repository.
	Close() error
}
