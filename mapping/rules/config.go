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


package rules

import "errors"

// Columns names the source columns that feed each canonical field.
// An empty entry means the field is never read from the row.
type Columns struct {
	Name                 string `yaml:"name"`
	ShortDescription     string `yaml:"short_description"`
	Description          string `yaml:"description"`
	SKU                  string `yaml:"sku"`
	Price                string `yaml:"price"`
	Cost                 string `yaml:"cost"`
	Packaging            string `yaml:"packaging"`
	VariantDescription   string `yaml:"variant_description"`
	ManufacturerItemCode string `yaml:"manufacturer_item_code"`
	ManufacturerItemID   string `yaml:"manufacturer_item_id"`
	ItemCode             string `yaml:"item_code"`
	Image                string `yaml:"image"`
}

// Defaults are constant values written into every product.
type Defaults struct {
	Type                      string `yaml:"type"`
	VendorID                  string `yaml:"vendor_id"`
	ManufacturerID            string `yaml:"manufacturer_id"`
	Currency                  string `yaml:"currency"`
	StorefrontPriceVisibility string `yaml:"storefront_price_visibility"`
	Availability              string `yaml:"availability"`
	Published                 string `yaml:"published"`
	IsTaxable                 bool   `yaml:"is_taxable"`
	IsFragile                 bool   `yaml:"is_fragile"`
	Image                     string `yaml:"image"`
	ImageBaseURL              string `yaml:"image_base_url"`
}

// Config drives the rule-based mapper.
type Config struct {
	Columns  Columns  `yaml:"columns"`
	Defaults Defaults `yaml:"defaults"`
}

// DefaultConfig returns column names matching the distributor item export
// and the storefront defaults used by the product template.
func DefaultConfig() *Config {
	return &Config{
		Columns: Columns{
			Name:                 "ProductName",
			ShortDescription:     "ShortDescription",
			Description:          "LongDescription",
			SKU:                  "SKU",
			Price:                "Price",
			Cost:                 "Cost",
			Packaging:            "UOM",
			VariantDescription:   "ItemDescription",
			ManufacturerItemCode: "MfrItemCode",
			ManufacturerItemID:   "MfrItemID",
			ItemCode:             "ItemCode",
			Image:                "ImageFile",
		},
		Defaults: Defaults{
			Type:                      "non-inventory",
			Currency:                  "USD",
			StorefrontPriceVisibility: "members-only",
			Availability:              "available",
			Published:                 "published",
			IsTaxable:                 true,
		},
	}
}

// Validate checks that the configuration can produce valid products.
func (c *Config) Validate() error {
	if c.Defaults.VendorID == "" {
		return errors.New("rules config: Defaults.VendorID is required")
	}
	if c.Defaults.ManufacturerID == "" {
		return errors.New("rules config: Defaults.ManufacturerID is required")
	}
	if c.Columns.SKU == "" && c.Columns.ManufacturerItemID == "" {
		return errors.New("rules config: Columns.SKU or Columns.ManufacturerItemID is required")
	}
	if c.Columns.Name == "" && c.Columns.VariantDescription == "" {
		return errors.New("rules config: Columns.Name or Columns.VariantDescription is required")
	}
	return nil
}
