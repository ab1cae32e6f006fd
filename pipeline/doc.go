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


// Package pipeline runs the catalog sync end to end.
//
// An Orchestrator moves through Idle, Splitting, Processing, Merging and
// Persisting for every run:
//
//   - the input file is split into partition files
//   - partitions are parsed and mapped concurrently through a transform.Transformer
//   - per-partition results are merged in input order and written as a JSON artifact
//   - products are handed to a storage.Sink in chunks, retrying lost connections
//
// Only one run may be active at a time. A second trigger while a run is in
// progress returns core.ErrConcurrentRun without affecting the active run.
// Row-scoped failures are recorded in the run's core.RunReport; failures
// affecting a whole file or the sink end the run in the Failed state.
package pipeline
