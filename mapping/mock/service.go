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


package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/mapping"
)

// MockService is a test double for mapping.Service.
// It is safe for concurrent use.
type MockService struct {
	// MapFunc, if set, replaces the default mapping behavior.
	MapFunc func(ctx context.Context, schemaTemplate string, rawRow []byte) (string, error)

	// Delay is applied before every call returns. Honors context cancellation.
	Delay time.Duration

	mu          sync.Mutex
	callCount   int
	inFlight    int
	maxInFlight int
	rows        [][]byte
	closed      bool
}

// Option configures a MockService.
type Option func(*MockService)

// WithMapFunc overrides the mapping behavior.
func WithMapFunc(fn func(ctx context.Context, schemaTemplate string, rawRow []byte) (string, error)) Option {
	return func(m *MockService) {
		m.MapFunc = fn
	}
}

// WithDelay makes every call take at least d.
func WithDelay(d time.Duration) Option {
	return func(m *MockService) {
		m.Delay = d
	}
}

// NewMockService creates a mock mapping service.
// Note: Returns concrete type to allow test assertions.
func NewMockService(opts ...Option) *MockService {
	m := &MockService{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Map records the call and returns either MapFunc's result or a default
// product document.
func (m *MockService) Map(ctx context.Context, schemaTemplate string, rawRow []byte) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	m.rows = append(m.rows, append([]byte(nil), rawRow...))
	fn := m.MapFunc
	delay := m.Delay
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-t.C:
		}
	}

	if fn != nil {
		return fn(ctx, schemaTemplate, rawRow)
	}
	return DefaultProduct(rawRow)
}

// DefaultProduct renders the document the mock returns by default.
func DefaultProduct(rawRow []byte) (string, error) {
	var row map[string]any
	if err := json.Unmarshal(rawRow, &row); err != nil {
		return "", mapping.NewServiceError(mapping.KindRejected, err)
	}

	sku := lookup(row, "sku", "SKU")
	if sku == "" {
		sku = fmt.Sprintf("SKU-%016x", uint64(core.IDFromContent(string(rawRow))))
	}
	name := lookup(row, "name", "Name")
	if name == "" {
		name = "Product " + sku
	}

	p := core.CanonicalProduct{
		Name:           name,
		Type:           "non-inventory",
		VendorID:       "mock-vendor",
		ManufacturerID: "mock-manufacturer",
		Variants: []core.Variant{{
			ID:        "v-" + sku,
			Available: true,
			Currency:  "USD",
			SKU:       sku,
			Active:    true,
			Images:    []core.Image{},
		}},
		Options:      []core.Option{},
		Availability: "available",
		Published:    "published",
		Images:       []core.Image{},
	}
	out, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func lookup(row map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := row[k]; ok && v != nil {
			return fmt.Sprint(v)
		}
	}
	return ""
}

// Close marks the service closed.
func (m *MockService) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// CallCount returns the number of times Map was called.
func (m *MockService) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// MaxInFlight returns the highest number of concurrent Map calls observed.
func (m *MockService) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInFlight
}

// Rows returns copies of the rows Map was called with, in call order.
func (m *MockService) Rows() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.rows))
	copy(out, m.rows)
	return out
}

// Closed reports whether Close was called.
func (m *MockService) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Reset clears the call history and custom function.
func (m *MockService) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MapFunc = nil
	m.callCount = 0
	m.inFlight = 0
	m.maxInFlight = 0
	m.rows = nil
	m.closed = false
}
