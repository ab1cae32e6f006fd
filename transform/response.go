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


package transform

import (
	"encoding/json"
	"strings"

	"github.com/poiesic/catalogsync/core"
)

// cleanResponse strips markdown code fences and surrounding whitespace.
func cleanResponse(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// decodeProduct parses a cleaned response. Unknown keys are ignored; wrong
// value types and trailing data are errors. Text that does not decode as
// is gets one pass of repairJSON; the original error is returned if the
// repaired text fails too.
func decodeProduct(text string) (*core.CanonicalProduct, error) {
	var p core.CanonicalProduct
	err := json.Unmarshal([]byte(text), &p)
	if err == nil {
		return &p, nil
	}
	repaired := repairJSON(text)
	if repaired == text {
		return nil, err
	}
	p = core.CanonicalProduct{}
	if json.Unmarshal([]byte(repaired), &p) != nil {
		return nil, err
	}
	return &p, nil
}

// repairJSON adds the opening quote LLMs sometimes drop before an object key,
// as in `, sku":`. String literals are copied unchanged.
func repairJSON(s string) string {
	src := []rune(s)
	fixed := make([]rune, 0, len(src)+16)

	inString := false
	for i := 0; i < len(src); i++ {
		ch := src[i]
		fixed = append(fixed, ch)
		if inString {
			switch ch {
			case '\\':
				if i+1 < len(src) {
					i++
					fixed = append(fixed, src[i])
				}
			case '"':
				inString = false
			}
			continue
		}
		if ch == '"' {
			inString = true
			continue
		}
		if ch != '{' && ch != ',' {
			continue
		}

		keyStart := i + 1
		for keyStart < len(src) && isSpace(src[keyStart]) {
			keyStart++
		}
		if keyStart >= len(src) || !isLetter(src[keyStart]) {
			continue
		}
		keyEnd := keyStart
		for keyEnd < len(src) && (isLetter(src[keyEnd]) || src[keyEnd] == '_') {
			keyEnd++
		}
		if keyEnd+1 < len(src) && src[keyEnd] == '"' && src[keyEnd+1] == ':' {
			fixed = append(fixed, src[i+1:keyStart]...)
			fixed = append(fixed, '"')
			// Key plus its existing closing quote.
			fixed = append(fixed, src[keyStart:keyEnd+1]...)
			i = keyEnd
		}
	}

	return string(fixed)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}

// isLetter returns true if the rune is an ASCII letter.
func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
