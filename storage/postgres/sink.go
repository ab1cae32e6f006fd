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


// Package postgres implements storage.Sink on PostgreSQL using pgx v5.
// Each BulkInsert is a single COPY into a table holding one JSONB document
// per product, so a batch is written completely or not at all.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/storage"
)

const DefaultTable = "public.catalog_products"

var (
	// ErrMissingDSN indicates no connection string was configured.
	ErrMissingDSN = errors.New("postgres DSN is required")

	// ErrInvalidTable indicates an empty or malformed table name.
	ErrInvalidTable = errors.New("invalid table name")
)

// Columns written by BulkInsert, in COPY order.
var copyColumns = []string{"product_key", "name", "vendor_id", "document"}

// Config holds Postgres sink configuration.
type Config struct {
	DSN         string // connection string for pgxpool
	Table       string // optionally schema-qualified target table
	CreateTable bool   // create the target table on connect if missing
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DSN) == "" {
		return ErrMissingDSN
	}
	if len(splitFQN(c.table())) == 0 {
		return ErrInvalidTable
	}
	return nil
}

func (c Config) table() string {
	if strings.TrimSpace(c.Table) == "" {
		return DefaultTable
	}
	return c.Table
}

// conn is the subset of *pgxpool.Pool used by the sink.
type conn interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Close()
}

// Sink copies canonical products into a Postgres table.
type Sink struct {
	conn   conn
	table  pgx.Identifier
	closed atomic.Bool
	logger *slog.Logger
}

var _ storage.Sink = (*Sink)(nil)

// NewSink connects to Postgres and optionally creates the target table.
func NewSink(ctx context.Context, cfg Config) (*Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	s := newSink(pool, cfg)
	if cfg.CreateTable {
		if err := s.createTable(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return s, nil
}

func newSink(c conn, cfg Config) *Sink {
	return &Sink{
		conn:   c,
		table:  splitFQN(cfg.table()),
		logger: slog.Default().With("component", "postgres-sink"),
	}
}

func (s *Sink) createTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  "id" bigserial PRIMARY KEY,
  "product_key" bigint NOT NULL,
  "name" text NOT NULL,
  "vendor_id" text NOT NULL,
  "document" jsonb NOT NULL,
  "inserted_at" timestamptz NOT NULL DEFAULT now()
)`, s.table.Sanitize())
	if _, err := s.conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

// BulkInsert copies products in slice order with a single COPY.
func (s *Sink) BulkInsert(ctx context.Context, products []core.CanonicalProduct) error {
	if len(products) == 0 {
		return nil
	}
	if s.closed.Load() {
		return storage.NewStorageError(storage.KindConnectionLost, storage.ErrStorageClosed)
	}
	keys := storage.BatchKeys(products)
	rows := make([][]any, len(products))
	for i := range products {
		doc, err := storage.MarshalProduct(&products[i])
		if err != nil {
			return storage.NewStorageError(storage.KindWriteRejected, err)
		}
		rows[i] = []any{int64(keys[i]), products[i].Name, products[i].VendorID, doc}
	}

	n, err := s.conn.CopyFrom(ctx, s.table, copyColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return classifyErr(ctx, err)
	}
	if int(n) != len(rows) {
		return storage.NewStorageError(storage.KindWriteRejected,
			fmt.Errorf("copy wrote %d of %d rows", n, len(rows)))
	}
	s.logger.Debug("products copied", "table", s.table.Sanitize(), "count", n)
	return nil
}

// Close releases the connection pool.
func (s *Sink) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.conn.Close()
	}
	return nil
}

// classifyErr maps a pgx error onto a storage.StorageError.
func classifyErr(ctx context.Context, err error) *storage.StorageError {
	if ctx.Err() != nil {
		return storage.NewStorageError(storage.KindWriteRejected, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505": // unique_violation
			return storage.NewStorageError(storage.KindDuplicateKey, err)
		case strings.HasPrefix(pgErr.Code, "08"), // connection exception
			pgErr.Code == "40001", // serialization_failure
			pgErr.Code == "40P01", // deadlock_detected
			strings.HasPrefix(pgErr.Code, "57P"): // operator intervention
			return storage.NewStorageError(storage.KindConnectionLost, err)
		default:
			return storage.NewStorageError(storage.KindWriteRejected, err)
		}
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return storage.NewStorageError(storage.KindConnectionLost, err)
	}
	var connectErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connectErr) || errors.As(err, &netErr) {
		return storage.NewStorageError(storage.KindConnectionLost, err)
	}
	return storage.NewStorageError(storage.KindWriteRejected, err)
}

// splitFQN converts "schema.table" into a pgx.Identifier {"schema","table"}.
// If no dot is present, returns {"table"}.
func splitFQN(fqn string) pgx.Identifier {
	parts := strings.Split(strings.TrimSpace(fqn), ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			id = append(id, p)
		}
	}
	return id
}
