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


package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/storage"
)

// RunRepository implements storage.RunRepository for BadgerDB.
type RunRepository struct {
	backend *Backend
}

var _ storage.RunRepository = (*RunRepository)(nil)

// NewRunRepository creates a new RunRepository.
func NewRunRepository(backend *Backend) *RunRepository {
	return &RunRepository{
		backend: backend,
	}
}

// Close is a no-op; the backend is owned by the caller.
func (r *RunRepository) Close() error {
	return nil
}

// SaveRun persists a run report and indexes it by start time.
func (r *RunRepository) SaveRun(ctx context.Context, report *core.RunReport) error {
	if report.RunID == "" {
		return errors.New("run report has no run ID")
	}
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeRunKey(report.RunID)
		old, err := readRunReport(tx, key)
		if err != nil {
			return err
		}
		if old != nil {
			if err := tx.Delete(makeRunDateKey(old.StartedAt, old.RunID)); err != nil {
				return err
			}
		}
		if err := tx.Set(key, storage.MarshalRunReport(report)); err != nil {
			return err
		}
		if err := tx.Set(makeRunDateKey(report.StartedAt, report.RunID), []byte(report.RunID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetRun retrieves a run report by ID.
func (r *RunRepository) GetRun(ctx context.Context, runID string) (*core.RunReport, error) {
	var report *core.RunReport
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		report, err = readRunReport(tx, makeRunKey(runID))
		if err != nil {
			return err
		}
		if report == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return report, err
}

// LatestRun returns the report with the most recent start time.
func (r *RunRepository) LatestRun(ctx context.Context) (*core.RunReport, error) {
	reports, err := r.ListRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, storage.ErrNotFound
	}
	return reports[0], nil
}

// ListRuns returns up to limit reports, most recent first.
// A limit of zero or less returns every report.
func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]*core.RunReport, error) {
	var reports []*core.RunReport
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := []byte(runDatePrefix)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Reverse iteration starts from the last key under the prefix
		seekKey := append(append([]byte{}, prefix...), 0xFF)
		for iter.Seek(seekKey); iter.Valid(); iter.Next() {
			if limit > 0 && len(reports) >= limit {
				break
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			var runID []byte
			err := iter.Item().Value(func(val []byte) error {
				runID = append([]byte{}, val...)
				return nil
			})
			if err != nil {
				return err
			}
			report, err := readRunReport(tx, makeRunKey(string(runID)))
			if err != nil {
				return err
			}
			if report != nil {
				reports = append(reports, report)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return reports, nil
}

// readRunReport reads a report within a transaction.
// Returns nil, nil if the key doesn't exist.
func readRunReport(tx *badger.Txn, key []byte) (*core.RunReport, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	var report *core.RunReport
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		report, unmarshalErr = storage.UnmarshalRunReport(val)
		return unmarshalErr
	})
	return report, err
}
