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

import (
	"fmt"
	"strings"
)

// SchemaTemplate is a complete example of the canonical product document.
// Mappers are asked to produce output with exactly this shape.
const SchemaTemplate = `{
  "name": "HEMOSURE SYRINGE  NEEDLE",
  "type": "non-inventory",
  "shortDescription": "",
  "description": "",
  "vendorId": "VfoeB-qlPBfT4NslMUR_V0zT",
  "manufacturerId": "dNW2ppqvSRGi9P3bFBs59cnT",
  "storefrontPriceVisibility": "members-only",
  "variants": [
    {
      "id": "hcjcdchdpneb",
      "available": true,
      "attributes": {
        "packaging": "BX",
        "description": "Caina Disposable Syringe wNeedle 1cc Luer Slip 25Gx1 100bx"
      },
      "cost": 12,
      "currency": "USD",
      "depth": null,
      "description": "Caina Disposable Syringe wNeedle 1cc Luer Slip 25Gx1 100bx",
      "dimensionUom": null,
      "height": null,
      "width": null,
      "manufacturerItemCode": "SN12510",
      "manufacturerItemId": "10376181",
      "packaging": "BX",
      "price": 16.8,
      "volume": null,
      "volumeUom": null,
      "weight": null,
      "weightUom": null,
      "optionName": "BX, Caina Disposable Syringe wNeedle 1cc Luer Slip 25Gx1 100bx",
      "optionsPath": "bhggiv.pctgaf",
      "optionItemsPath": "raaswx.cxuzfe",
      "sku": "1037618110042723BX",
      "active": true,
      "images": [
        {
          "fileName": "",
          "cdnLink": null,
          "i": 0,
          "alt": null
        }
      ],
      "itemCode": "HSI SN12510"
    }
  ],
  "options": [
    {
      "id": "bhggiv",
      "name": "packaging",
      "dataField": null,
      "values": [
        {
          "id": "raaswx",
          "name": "BX",
          "value": "BX"
        }
      ]
    },
    {
      "id": "pctgaf",
      "name": "description",
      "dataField": null,
      "values": [
        {
          "id": "cxuzfe",
          "name": "Caina Disposable Syringe wNeedle 1cc Luer Slip 25Gx1 100bx",
          "value": "Caina Disposable Syringe wNeedle 1cc Luer Slip 25Gx1 100bx"
        }
      ]
    }
  ],
  "availability": "available",
  "isFragile": false,
  "published": "published",
  "isTaxable": true,
  "images": [
    {
      "fileName": "medtech.png",
      "cdnLink": "https://template-b2b-commerce-business-logic-api-d8039-dev.global.ssl.fastly.net/public/company/2yTnVUyG6H9yRX3K1qIFIiRz/public/nao/productphotos/medtech.png",
      "i": 0,
      "alt": null
    }
  ]
}`

// SystemPrompt tells a chat model how to answer mapping requests.
const SystemPrompt = `You convert rows of a supplier product catalog into product documents.
Respond with a single JSON object and nothing else. Do not wrap it in markdown.
Keep every key of the desired format, use null where the row has no value and
copy numbers as JSON numbers. Never invent SKUs.`

// BuildPrompt renders the user message for a single row.
func BuildPrompt(schemaTemplate string, rawRow []byte) string {
	var sb strings.Builder
	sb.WriteString("Transform and map the following JSON to the specified JSON format:\n\n")
	fmt.Fprintf(&sb, "JSON Row: %s\n\n", strings.TrimSpace(string(rawRow)))
	sb.WriteString("Desired JSON Format:\n")
	sb.WriteString(schemaTemplate)
	return sb.String()
}
