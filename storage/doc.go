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


// Package storage provides the persistence abstraction layer for catalogsync.
//
// This package defines the interfaces that decouple the pipeline from the
// backing store: a Sink accepts validated canonical products for bulk
// loading, and a RunRepository keeps the reports of finished runs so the
// outcome of a scheduled run can be inspected after it completes.
//
// # Implementations
//
//   - badger: embedded Sink and RunRepository on BadgerDB
//   - postgres: Sink that copies products into a JSONB table
//
// Create embedded stores:
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	sink, err := badger.NewProductSink(backend)
//	runs := badger.NewRunRepository(backend)
//
// Use in tests with in-memory storage:
//
//	sink, runs, backend, err := badger.NewMemoryStores()
//
// # Errors
//
// Sink implementations return *StorageError. Only KindConnectionLost is
// retryable; callers check with IsRetryable. RunRepository lookups return
// ErrNotFound when nothing matches.
//
// # Thread Safety
//
// All implementations must be safe for concurrent use.
package storage
