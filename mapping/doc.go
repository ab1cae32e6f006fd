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


// Package mapping defines the Mapping Service capability used to turn a raw
// catalog row into a canonical product document.
//
// A Mapping Service receives a fixed example of the target document shape
// (SchemaTemplate) and the row encoded as a JSON object, and returns text
// that is expected to parse as a CanonicalProduct. It does not validate its
// own output; callers decide what counts as a usable document.
//
// # Implementation Packages
//
//   - mapping/rules: deterministic field-by-field transcription driven by a
//     column map. No network access.
//   - mapping/openai: OpenAI-compatible chat models via langchaingo.
//   - mapping/gemini: Gemini models via the Google GenAI SDK.
//   - mapping/mock: test doubles with call counting and behavior injection.
//
// Which implementation is used is a run-time configuration choice (see
// Config.Provider).
//
// # Errors
//
// Implementations report failures as *ServiceError. The Kind field tells the
// caller whether a retry may help:
//
//	if mapping.IsTransient(err) {
//	    // timeout, rate limit, temporary unavailability
//	}
package mapping
