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


package mapping

import "context"

// Service converts a raw row into text shaped like the schema template.
// Implementations must be thread-safe for concurrent use.
type Service interface {
	// Map sends the schema template and the JSON-encoded row to the mapper
	// and returns its raw response text.
	// Returns a *ServiceError if the call fails.
	Map(ctx context.Context, schemaTemplate string, rawRow []byte) (string, error)

	// Close releases resources held by the service.
	// After Close is called, the service should not be used.
	Close() error
}
