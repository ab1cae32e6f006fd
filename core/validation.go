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


package core

import (
	"fmt"
	"strings"
)

// ValidateProduct validates a CanonicalProduct according to domain rules.
//
// Validation rules:
//   - Name must not be empty
//   - VendorID and ManufacturerID must not be empty
//   - Variants must not be empty
//   - Every variant SKU must be present and unique within the product
//
// NOT validated (free-form or optional in the catalog):
//   - Options, Images, pricing fields
func ValidateProduct(product *CanonicalProduct) error {
	if product == nil {
		return fmt.Errorf("%w: product is nil", ErrInvalidProduct)
	}

	if strings.TrimSpace(product.Name) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidProduct, ErrEmptyName)
	}

	if strings.TrimSpace(product.VendorID) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidProduct, ErrMissingVendor)
	}

	if strings.TrimSpace(product.ManufacturerID) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidProduct, ErrMissingManufacturer)
	}

	if len(product.Variants) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidProduct, ErrNoVariants)
	}

	seen := make(map[string]int, len(product.Variants))
	for i, v := range product.Variants {
		sku := strings.TrimSpace(v.SKU)
		if sku == "" {
			return fmt.Errorf("%w: variant %d: %w", ErrInvalidProduct, i, ErrEmptySKU)
		}
		if prev, dup := seen[sku]; dup {
			return fmt.Errorf("%w: variants %d and %d sku %q: %w", ErrInvalidProduct, prev, i, sku, ErrDuplicateSKU)
		}
		seen[sku] = i
	}

	return nil
}
