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

import "github.com/poiesic/catalogsync/core"

// BatchKeys returns the identity of every product in the batch, in order.
// Products sharing an identity are not rejected: the pipeline does not
// deduplicate, so a batch is accepted the same way whatever its size.
func BatchKeys(products []core.CanonicalProduct) []core.ID {
	keys := make([]core.ID, len(products))
	for i := range products {
		keys[i] = products[i].Key()
	}
	return keys
}
