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


// Package mock provides a test double for the mapping.Service interface.
//
// # Usage
//
//	svc := mock.NewMockService(
//	    mock.WithMapFunc(func(ctx context.Context, tmpl string, row []byte) (string, error) {
//	        return "", mapping.NewServiceError(mapping.KindRateLimited, errors.New("slow down"))
//	    }),
//	)
//
//	// Check call counts
//	count := svc.CallCount()
//
// # Default Behavior
//
// Without a MapFunc the mock returns a valid product document derived from
// the row: the "sku" (or "SKU") column becomes the variant SKU and the
// "name" column the product name. Rows without a SKU get one derived from
// a hash of the row, so output is deterministic.
package mock
