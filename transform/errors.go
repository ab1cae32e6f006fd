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

import "errors"

var (
	// ErrServiceRequired is returned when no mapping service is supplied.
	ErrServiceRequired = errors.New("mapping service is required")

	// ErrReporterRequired is returned when ProcessPartition has nowhere to report results.
	ErrReporterRequired = errors.New("reporter is required")
)
