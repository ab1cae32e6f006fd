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


package badger

import (
	"encoding/binary"
	"time"

	"github.com/poiesic/catalogsync/core"
)

const (
	productPrefix    = "prod:"
	productKeyPrefix = "prodkey:"
	productIDSeq     = "prodseq"
	runPrefix        = "run:"
	runDatePrefix    = "rundt:"
)

// makeProductKey generates a key for a stored product by sequence ID.
// Format: prefix:id (BigEndian so iteration follows insertion order)
func makeProductKey(id uint64) []byte {
	buf := make([]byte, len(productPrefix)+8)
	offset := copy(buf, productPrefix)
	binary.BigEndian.PutUint64(buf[offset:], id)
	return buf
}

// makeProductIdentityKey generates the index key mapping a product's
// content identity to its sequence ID.
func makeProductIdentityKey(key core.ID) []byte {
	buf := make([]byte, len(productKeyPrefix)+8)
	offset := copy(buf, productKeyPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(key))
	return buf
}

// makeRunKey generates a key for a run report.
func makeRunKey(runID string) []byte {
	return []byte(runPrefix + runID)
}

// makeRunDateKey generates a composite key for the run start-time index.
// Format: prefix:timestamp:runID
func makeRunDateKey(startedAt time.Time, runID string) []byte {
	buf := make([]byte, len(runDatePrefix)+8+len(runID))
	offset := copy(buf, runDatePrefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(startedAt.UnixMicro()))
	offset += 8
	copy(buf[offset:], runID)
	return buf
}

func encodeSeq(id uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, id)
	return buf
}
