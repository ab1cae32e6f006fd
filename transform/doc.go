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


// Package transform converts raw catalog rows into validated canonical
// products by way of a mapping.Service.
//
// A Transformer owns a bounded worker pool. ProcessPartition streams rows
// from a RowSource into the pool, so at most Workers mapping calls are in
// flight at any time no matter how many partitions share the Transformer.
// Every row produces exactly one terminal TransformJob, reported to a
// Reporter keyed by its global row index.
//
// Transient mapping failures (timeouts, rate limits, unavailable services)
// are retried with exponential backoff. Structural failures (malformed
// output, rejected requests, products that fail validation) fail the row at
// once.
package transform
