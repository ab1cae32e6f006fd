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
	"errors"
	"fmt"
)

// Domain validation errors
var (
	// ErrInvalidProduct indicates a CanonicalProduct failed validation.
	ErrInvalidProduct = errors.New("invalid product")

	// ErrEmptyName indicates the product name is empty.
	ErrEmptyName = errors.New("name cannot be empty")

	// ErrMissingVendor indicates vendorId is missing.
	ErrMissingVendor = errors.New("vendorId is required")

	// ErrMissingManufacturer indicates manufacturerId is missing.
	ErrMissingManufacturer = errors.New("manufacturerId is required")

	// ErrNoVariants indicates the product has no variants.
	ErrNoVariants = errors.New("at least one variant is required")

	// ErrEmptySKU indicates a variant has no SKU.
	ErrEmptySKU = errors.New("variant sku cannot be empty")

	// ErrDuplicateSKU indicates two variants of one product share a SKU.
	ErrDuplicateSKU = errors.New("variant sku must be unique within a product")
)

// Run-level errors
var (
	// ErrConcurrentRun is the concurrency error returned when a run is
	// triggered while another one is still active.
	ErrConcurrentRun = errors.New("pipeline run already in progress")

	// ErrRunAbandoned marks jobs that were still pending or in flight when a
	// run was aborted.
	ErrRunAbandoned = errors.New("job abandoned before completion")
)

// Phase names the pipeline step in which an error occurred.
type Phase string

const (
	PhaseSplit      Phase = "split"
	PhaseParse      Phase = "parse"
	PhaseMapping    Phase = "mapping"
	PhaseValidation Phase = "validation"
	PhaseMerge      Phase = "merge"
	PhaseOutput     Phase = "output"
	PhasePersist    Phase = "persist"
)

// IOError reports a file that could not be read or written. It is fatal to a run.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ParseError reports a malformed row. It is scoped to that row only.
type ParseError struct {
	Line     int // 1-based line number within the parsed file
	RowIndex int // Global row index the row would have had
	Expected int // Field count from the header
	Actual   int // Field count found on the line
	Err      error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse error: line %d (row %d): %v", e.Line, e.RowIndex, e.Err)
	}
	return fmt.Sprintf("parse error: line %d (row %d): expected %d fields, got %d",
		e.Line, e.RowIndex, e.Expected, e.Actual)
}

func (e *ParseError) Unwrap() error { return e.Err }

// MappingError reports a failed Mapping Service round trip for a row.
// Transient errors are eligible for retry; structural ones are not.
type MappingError struct {
	RowIndex  int
	Transient bool
	Err       error
}

func (e *MappingError) Error() string {
	kind := "structural"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("mapping error (%s): row %d: %v", kind, e.RowIndex, e.Err)
}

func (e *MappingError) Unwrap() error { return e.Err }

// ValidationError reports a mapped document that violates product invariants.
type ValidationError struct {
	RowIndex int
	Err      error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: row %d: %v", e.RowIndex, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }
