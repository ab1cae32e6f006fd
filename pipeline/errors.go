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


package pipeline

import "errors"

var (
	// ErrTransformerRequired is returned when no transformer is provided.
	ErrTransformerRequired = errors.New("transformer required")

	// ErrSinkRequired is returned when no sink is provided.
	ErrSinkRequired = errors.New("sink required")

	// ErrInputRequired is returned when no input path is configured.
	ErrInputRequired = errors.New("input path required")
)
