package postgres

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn records COPY calls instead of talking to a database.
type fakeConn struct {
	copyErr error
	short   bool
	table   pgx.Identifier
	columns []string
	rows    [][]any
	execs   []string
	closed  int
}

func (f *fakeConn) CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error) {
	if f.copyErr != nil {
		return 0, f.copyErr
	}
	f.table = table
	f.columns = columns
	var n int64
	for src.Next() {
		values, err := src.Values()
		if err != nil {
			return n, err
		}
		f.rows = append(f.rows, values)
		n++
	}
	if f.short {
		n--
	}
	return n, src.Err()
}

func (f *fakeConn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func (f *fakeConn) Close() { f.closed++ }

func testProduct(sku string) core.CanonicalProduct {
	return core.CanonicalProduct{
		Name:           "Product " + sku,
		VendorID:       "v1",
		ManufacturerID: "m1",
		Variants:       []core.Variant{{SKU: sku}},
	}
}

func TestBulkInsert(t *testing.T) {
	fc := &fakeConn{}
	sink := newSink(fc, Config{DSN: "postgres://localhost/db", Table: "catalog.products"})

	products := []core.CanonicalProduct{testProduct("A"), testProduct("B")}
	require.NoError(t, sink.BulkInsert(context.Background(), products))

	assert.Equal(t, pgx.Identifier{"catalog", "products"}, fc.table)
	assert.Equal(t, copyColumns, fc.columns)
	require.Len(t, fc.rows, 2)
	for i, row := range fc.rows {
		assert.Equal(t, int64(products[i].Key()), row[0])
		assert.Equal(t, products[i].Name, row[1])
		assert.Equal(t, "v1", row[2])
		decoded, err := storage.UnmarshalProduct(row[3].([]byte))
		require.NoError(t, err)
		assert.Equal(t, products[i].Variants[0].SKU, decoded.Variants[0].SKU)
	}
}

func TestBulkInsert_Empty(t *testing.T) {
	fc := &fakeConn{}
	sink := newSink(fc, Config{DSN: "x"})

	require.NoError(t, sink.BulkInsert(context.Background(), nil))
	assert.Nil(t, fc.rows)
}

func TestBulkInsert_SharedIdentityInBatch(t *testing.T) {
	fc := &fakeConn{}
	sink := newSink(fc, Config{DSN: "x"})

	products := []core.CanonicalProduct{testProduct("A"), testProduct("A"), testProduct("B")}
	require.NoError(t, sink.BulkInsert(context.Background(), products))
	require.Len(t, fc.rows, 3)
	assert.Equal(t, fc.rows[0][0], fc.rows[1][0])
	assert.NotEqual(t, fc.rows[0][0], fc.rows[2][0])
}

func TestBulkInsert_ShortCopy(t *testing.T) {
	fc := &fakeConn{short: true}
	sink := newSink(fc, Config{DSN: "x"})

	err := sink.BulkInsert(context.Background(), []core.CanonicalProduct{testProduct("A")})
	var se *storage.StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, storage.KindWriteRejected, se.Kind)
}

func TestBulkInsert_Closed(t *testing.T) {
	fc := &fakeConn{}
	sink := newSink(fc, Config{DSN: "x"})
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())
	assert.Equal(t, 1, fc.closed)

	err := sink.BulkInsert(context.Background(), []core.CanonicalProduct{testProduct("A")})
	assert.True(t, storage.IsRetryable(err))
}

func TestBulkInsert_CopyError(t *testing.T) {
	fc := &fakeConn{copyErr: &pgconn.PgError{Code: "08006", Message: "connection failure"}}
	sink := newSink(fc, Config{DSN: "x"})

	err := sink.BulkInsert(context.Background(), []core.CanonicalProduct{testProduct("A")})
	assert.True(t, storage.IsRetryable(err))
}

func TestClassifyErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind storage.ErrorKind
	}{
		{"unique violation", &pgconn.PgError{Code: "23505"}, storage.KindDuplicateKey},
		{"connection failure", &pgconn.PgError{Code: "08006"}, storage.KindConnectionLost},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, storage.KindConnectionLost},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, storage.KindConnectionLost},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, storage.KindConnectionLost},
		{"invalid json", &pgconn.PgError{Code: "22P02"}, storage.KindWriteRejected},
		{"undefined table", &pgconn.PgError{Code: "42P01"}, storage.KindWriteRejected},
		{"connect error", &pgconn.ConnectError{Config: &pgconn.Config{}}, storage.KindConnectionLost},
		{"network error", &net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset")}, storage.KindConnectionLost},
		{"other", errors.New("boom"), storage.KindWriteRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se := classifyErr(context.Background(), tt.err)
			assert.Equal(t, tt.kind, se.Kind)
		})
	}

	t.Run("canceled context is not retryable", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		se := classifyErr(ctx, &pgconn.PgError{Code: "08006"})
		assert.Equal(t, storage.KindWriteRejected, se.Kind)
	})
}

func TestConfigValidate(t *testing.T) {
	assert.ErrorIs(t, Config{}.Validate(), ErrMissingDSN)
	assert.ErrorIs(t, Config{DSN: "x", Table: "."}.Validate(), ErrInvalidTable)
	assert.NoError(t, Config{DSN: "x"}.Validate())

	sink := newSink(&fakeConn{}, Config{DSN: "x"})
	assert.Equal(t, pgx.Identifier{"public", "catalog_products"}, sink.table)
}

func TestCreateTable(t *testing.T) {
	fc := &fakeConn{}
	sink := newSink(fc, Config{DSN: "x", Table: "products"})

	require.NoError(t, sink.createTable(context.Background()))
	require.Len(t, fc.execs, 1)
	assert.Contains(t, fc.execs[0], `CREATE TABLE IF NOT EXISTS "products"`)
	assert.Contains(t, fc.execs[0], "jsonb")
}
