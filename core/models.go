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
	"bytes"
	"encoding/binary"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// RawRow is one data line of a delimited catalog export.
// Columns and their order come from the header line of the source file.
type RawRow struct {
	Index   int      // Global position of the row in the original input (0-based)
	Columns []string // Header names, shared between rows of the same file
	Values  []string // Cell values, aligned with Columns
}

// Get returns the value of the named column.
func (r RawRow) Get(column string) (string, bool) {
	for i, c := range r.Columns {
		if c == column {
			if i < len(r.Values) {
				return r.Values[i], true
			}
			return "", false
		}
	}
	return "", false
}

// Number returns the named column parsed as a float.
// Thousands separators and surrounding whitespace are tolerated.
func (r RawRow) Number(column string) (float64, bool) {
	v, ok := r.Get(column)
	if !ok {
		return 0, false
	}
	v = strings.ReplaceAll(strings.TrimSpace(v), ",", "")
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// MarshalJSON encodes the row as a JSON object whose keys follow header order.
func (r RawRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		var v string
		if i < len(r.Values) {
			v = r.Values[i]
		}
		val, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Partition describes one sub-file produced by splitting an input file.
type Partition struct {
	ID       int    // 1-based partition number
	Path     string // Location of the partition file
	RowCount int    // Number of data rows (header excluded)
	FirstRow int    // Global index of the first data row in the partition
}

// SplitManifest lists the partitions produced from a single input file.
// The sum of partition row counts always equals TotalRows.
type SplitManifest struct {
	InputPath  string
	Header     string
	TotalRows  int
	Partitions []Partition
}

// JobStatus is the lifecycle state of a TransformJob.
type JobStatus int

const (
	JobPending JobStatus = iota
	JobInFlight
	JobSucceeded
	JobFailed
)

func (s JobStatus) String() string {
	switch s {
	case JobPending:
		return "pending"
	case JobInFlight:
		return "in-flight"
	case JobSucceeded:
		return "succeeded"
	case JobFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is final.
func (s JobStatus) Terminal() bool {
	return s == JobSucceeded || s == JobFailed
}

// TransformJob tracks the conversion of a single row.
type TransformJob struct {
	RowIndex int
	Row      RawRow
	Status   JobStatus
	Attempts int
	Product  *CanonicalProduct // Set when Status is JobSucceeded
	Phase    Phase             // Phase in which the job failed
	Err      error             // Last error when Status is JobFailed
}

// CanonicalProduct is the target document every catalog row is mapped into.
type CanonicalProduct struct {
	Name                      string    `json:"name"`
	Type                      string    `json:"type"`
	ShortDescription          string    `json:"shortDescription"`
	Description               string    `json:"description"`
	VendorID                  string    `json:"vendorId"`
	ManufacturerID            string    `json:"manufacturerId"`
	StorefrontPriceVisibility string    `json:"storefrontPriceVisibility"`
	Variants                  []Variant `json:"variants"`
	Options                   []Option  `json:"options"`
	Availability              string    `json:"availability"`
	IsFragile                 bool      `json:"isFragile"`
	Published                 string    `json:"published"`
	IsTaxable                 bool      `json:"isTaxable"`
	Images                    []Image   `json:"images"`
}

// Key returns a deterministic identity for the product built from its
// vendor and variant SKUs.
func (p *CanonicalProduct) Key() ID {
	var sb strings.Builder
	sb.WriteString(p.VendorID)
	for _, v := range p.Variants {
		sb.WriteByte('|')
		sb.WriteString(v.SKU)
	}
	return IDFromContent(sb.String())
}

// VariantAttributes holds the attribute values that distinguish a variant.
type VariantAttributes struct {
	Packaging   string `json:"packaging"`
	Description string `json:"description"`
}

// Variant is a purchasable configuration of a product.
type Variant struct {
	ID                   string            `json:"id"`
	Available            bool              `json:"available"`
	Attributes           VariantAttributes `json:"attributes"`
	Cost                 float64           `json:"cost"`
	Currency             string            `json:"currency"`
	Depth                *float64          `json:"depth"`
	Description          string            `json:"description"`
	DimensionUom         *string           `json:"dimensionUom"`
	Height               *float64          `json:"height"`
	Width                *float64          `json:"width"`
	ManufacturerItemCode string            `json:"manufacturerItemCode"`
	ManufacturerItemID   string            `json:"manufacturerItemId"`
	Packaging            string            `json:"packaging"`
	Price                float64           `json:"price"`
	Volume               *float64          `json:"volume"`
	VolumeUom            *string           `json:"volumeUom"`
	Weight               *float64          `json:"weight"`
	WeightUom            *string           `json:"weightUom"`
	OptionName           string            `json:"optionName"`
	OptionsPath          string            `json:"optionsPath"`
	OptionItemsPath      string            `json:"optionItemsPath"`
	SKU                  string            `json:"sku"`
	Active               bool              `json:"active"`
	Images               []Image           `json:"images"`
	ItemCode             string            `json:"itemCode"`
}

// Option is a selectable product dimension such as packaging.
type Option struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	DataField *string       `json:"dataField"`
	Values    []OptionValue `json:"values"`
}

// OptionValue is one choice of an Option.
type OptionValue struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Image references a product or variant picture.
type Image struct {
	FileName string  `json:"fileName"`
	CDNLink  *string `json:"cdnLink"`
	Index    int     `json:"i"`
	Alt      *string `json:"alt"`
}
