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


// Package rules implements a deterministic Mapping Service that transcribes
// row columns into canonical product fields according to a fixed column map.
//
// The mapper never calls out to a model, so it is fast, free and repeatable.
// Identical rows always produce byte-identical documents.
package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/mapping"
	"github.com/zeebo/xxh3"
)

// Mapper implements mapping.Service with column rules.
type Mapper struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a rule-based mapper.
func New(cfg *Config) (mapping.Service, error) {
	return newMapper(cfg)
}

func newMapper(cfg *Config) (*Mapper, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Mapper{
		cfg:    *cfg,
		logger: slog.Default().With("component", "rules-mapper"),
	}, nil
}

// Map builds the canonical document for rawRow. The schema template is not
// consulted; the rules already produce the canonical shape.
func (m *Mapper) Map(ctx context.Context, _ string, rawRow []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	row, err := decodeRow(rawRow)
	if err != nil {
		return "", mapping.NewServiceError(mapping.KindRejected, err)
	}

	product, err := m.build(row)
	if err != nil {
		return "", mapping.NewServiceError(mapping.KindRejected, err)
	}

	out, err := json.Marshal(product)
	if err != nil {
		return "", mapping.NewServiceError(mapping.KindMalformedResponse, err)
	}
	return string(out), nil
}

// Close is a no-op.
func (m *Mapper) Close() error {
	return nil
}

func (m *Mapper) build(row map[string]string) (*core.CanonicalProduct, error) {
	c := m.cfg.Columns
	d := m.cfg.Defaults

	price, err := number(row, c.Price)
	if err != nil {
		return nil, err
	}
	cost, err := number(row, c.Cost)
	if err != nil {
		return nil, err
	}

	packaging := row[c.Packaging]
	variantDesc := row[c.VariantDescription]
	mfrItemID := row[c.ManufacturerItemID]

	sku := row[c.SKU]
	if sku == "" && mfrItemID != "" {
		sku = mfrItemID + packaging
	}

	name := row[c.Name]
	if name == "" {
		name = strings.ToUpper(variantDesc)
	}

	options := []core.Option{}
	var optionIDs, valueIDs, valueNames []string
	addOption := func(optName, value string) {
		if value == "" {
			return
		}
		opt := core.Option{
			ID:   shortID("option|" + optName),
			Name: optName,
			Values: []core.OptionValue{{
				ID:    shortID("value|" + optName + "|" + value),
				Name:  value,
				Value: value,
			}},
		}
		options = append(options, opt)
		optionIDs = append(optionIDs, opt.ID)
		valueIDs = append(valueIDs, opt.Values[0].ID)
		valueNames = append(valueNames, value)
	}
	addOption("packaging", packaging)
	addOption("description", variantDesc)

	variant := core.Variant{
		ID:        longID("variant|" + d.VendorID + "|" + sku),
		Available: d.Availability == "available",
		Attributes: core.VariantAttributes{
			Packaging:   packaging,
			Description: variantDesc,
		},
		Cost:                 cost,
		Currency:             d.Currency,
		Description:          variantDesc,
		ManufacturerItemCode: row[c.ManufacturerItemCode],
		ManufacturerItemID:   mfrItemID,
		Packaging:            packaging,
		Price:                price,
		OptionName:           strings.Join(valueNames, ", "),
		OptionsPath:          strings.Join(optionIDs, "."),
		OptionItemsPath:      strings.Join(valueIDs, "."),
		SKU:                  sku,
		Active:               true,
		Images:               []core.Image{{}},
		ItemCode:             row[c.ItemCode],
	}

	return &core.CanonicalProduct{
		Name:                      name,
		Type:                      d.Type,
		ShortDescription:          row[c.ShortDescription],
		Description:               row[c.Description],
		VendorID:                  d.VendorID,
		ManufacturerID:            d.ManufacturerID,
		StorefrontPriceVisibility: d.StorefrontPriceVisibility,
		Variants:                  []core.Variant{variant},
		Options:                   options,
		Availability:              d.Availability,
		IsFragile:                 d.IsFragile,
		Published:                 d.Published,
		IsTaxable:                 d.IsTaxable,
		Images:                    m.images(row),
	}, nil
}

func (m *Mapper) images(row map[string]string) []core.Image {
	file := row[m.cfg.Columns.Image]
	if file == "" {
		file = m.cfg.Defaults.Image
	}
	if file == "" {
		return []core.Image{}
	}
	img := core.Image{FileName: file}
	if base := m.cfg.Defaults.ImageBaseURL; base != "" {
		link := strings.TrimSuffix(base, "/") + "/" + file
		img.CDNLink = &link
	}
	return []core.Image{img}
}

// decodeRow reads a flat JSON object. Non-string values are rendered with
// their JSON text so numbers survive unchanged.
func decodeRow(raw []byte) (map[string]string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode row: %w", err)
	}
	row := make(map[string]string, len(fields))
	for k, v := range fields {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			row[k] = strings.TrimSpace(s)
			continue
		}
		if string(v) == "null" {
			continue
		}
		row[k] = string(v)
	}
	return row, nil
}

func number(row map[string]string, column string) (float64, error) {
	v := row[column]
	if v == "" {
		return 0, nil
	}
	clean := strings.NewReplacer("$", "", ",", "").Replace(v)
	f, err := strconv.ParseFloat(strings.TrimSpace(clean), 64)
	if err != nil {
		return 0, fmt.Errorf("column %q: %q is not a number", column, v)
	}
	return f, nil
}

const idAlphabet = "abcdefghijklmnopqrstuvwxyz"

// shortID derives a six letter identifier, the format used for option ids.
func shortID(seed string) string {
	return letters(xxh3.HashString(seed), 6)
}

// longID derives a twelve letter identifier, the format used for variant ids.
func longID(seed string) string {
	h := xxh3.HashString128(seed)
	return letters(h.Hi, 6) + letters(h.Lo, 6)
}

func letters(h uint64, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = idAlphabet[h%26]
		h /= 26
	}
	return string(b)
}
