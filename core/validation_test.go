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
	"testing"

	"github.com/stretchr/testify/assert"
)

func validProduct() *CanonicalProduct {
	return &CanonicalProduct{
		Name:           "HEMOSURE SYRINGE NEEDLE",
		VendorID:       "VfoeB-qlPBfT4NslMUR_V0zT",
		ManufacturerID: "dNW2ppqvSRGi9P3bFBs59cnT",
		Variants: []Variant{
			{ID: "hcjcdchdpneb", SKU: "1037618110042723BX"},
		},
	}
}

func TestValidateProduct(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *CanonicalProduct)
		wantErr error
	}{
		{
			name:    "valid product",
			mutate:  func(p *CanonicalProduct) {},
			wantErr: nil,
		},
		{
			name:    "empty name",
			mutate:  func(p *CanonicalProduct) { p.Name = "  " },
			wantErr: ErrEmptyName,
		},
		{
			name:    "missing vendor",
			mutate:  func(p *CanonicalProduct) { p.VendorID = "" },
			wantErr: ErrMissingVendor,
		},
		{
			name:    "missing manufacturer",
			mutate:  func(p *CanonicalProduct) { p.ManufacturerID = "" },
			wantErr: ErrMissingManufacturer,
		},
		{
			name:    "no variants",
			mutate:  func(p *CanonicalProduct) { p.Variants = nil },
			wantErr: ErrNoVariants,
		},
		{
			name:    "empty sku",
			mutate:  func(p *CanonicalProduct) { p.Variants = append(p.Variants, Variant{ID: "x"}) },
			wantErr: ErrEmptySKU,
		},
		{
			name: "duplicate sku",
			mutate: func(p *CanonicalProduct) {
				p.Variants = append(p.Variants, Variant{ID: "x", SKU: "1037618110042723BX"})
			},
			wantErr: ErrDuplicateSKU,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProduct()
			tt.mutate(p)
			err := ValidateProduct(p)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidProduct)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateProduct_Nil(t *testing.T) {
	assert.ErrorIs(t, ValidateProduct(nil), ErrInvalidProduct)
}

func TestErrorTypesUnwrap(t *testing.T) {
	cause := ErrDuplicateSKU
	assert.ErrorIs(t, &ValidationError{RowIndex: 3, Err: cause}, cause)
	assert.ErrorIs(t, &MappingError{RowIndex: 3, Err: cause}, cause)
	assert.ErrorIs(t, &IOError{Op: "open", Path: "x", Err: cause}, cause)

	pe := &ParseError{Line: 4, RowIndex: 2, Expected: 3, Actual: 2}
	assert.Contains(t, pe.Error(), "expected 3 fields, got 2")
}
