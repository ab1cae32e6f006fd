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
	"context"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/storage"
)

// ProductSink implements storage.Sink on BadgerDB.
// Each product is stored under a sequence ID so reads return products in
// insertion order; an identity index maps CanonicalProduct.Key to that ID.
type ProductSink struct {
	backend *Backend
	idSeq   *badger.Sequence
	logger  *slog.Logger
}

var (
	_ storage.Sink           = (*ProductSink)(nil)
	_ storage.ProductCounter = (*ProductSink)(nil)
)

// NewProductSink creates a new ProductSink.
func NewProductSink(backend *Backend) (*ProductSink, error) {
	idSeq, err := backend.GetSequence(productIDSeq)
	if err != nil {
		return nil, err
	}

	return &ProductSink{
		backend: backend,
		idSeq:   idSeq,
		logger:  slog.Default().With("component", "badger-sink"),
	}, nil
}

// Close releases the ID sequence.
func (s *ProductSink) Close() error {
	return s.idSeq.Release()
}

// BulkInsert stores products in slice order. Products sharing an identity
// are all stored; the identity index points at the last one written.
func (s *ProductSink) BulkInsert(ctx context.Context, products []core.CanonicalProduct) error {
	if len(products) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return storage.NewStorageError(storage.KindWriteRejected, err)
	}
	if s.backend.IsClosed() {
		return storage.NewStorageError(storage.KindConnectionLost, storage.ErrStorageClosed)
	}

	keys := storage.BatchKeys(products)
	values := make([][]byte, len(products))
	for i := range products {
		value, err := storage.MarshalProduct(&products[i])
		if err != nil {
			return storage.NewStorageError(storage.KindWriteRejected, err)
		}
		values[i] = value
	}

	wb := s.backend.NewWriteBatch()
	defer wb.Cancel()
	for i := range products {
		id, err := s.nextID()
		if err != nil {
			return classifyErr(err)
		}
		if err := wb.Set(makeProductKey(id), values[i]); err != nil {
			return classifyErr(err)
		}
		if err := wb.Set(makeProductIdentityKey(keys[i]), encodeSeq(id)); err != nil {
			return classifyErr(err)
		}
	}
	if err := wb.Flush(); err != nil {
		return classifyErr(err)
	}

	s.logger.Debug("products stored", "count", len(products))
	return nil
}

// nextID returns the next product sequence ID, skipping 0.
func (s *ProductSink) nextID() (uint64, error) {
	id, err := s.idSeq.Next()
	if err != nil {
		return 0, err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if id == 0 {
		return s.idSeq.Next()
	}
	return id, nil
}

// CountProducts returns the number of stored products.
func (s *ProductSink) CountProducts(ctx context.Context) (int, error) {
	count := 0
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(productPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			count++
		}
		return nil
	}, false)
	return count, err
}

// ListProducts returns up to limit stored products in insertion order.
// A limit of zero or less returns every product.
func (s *ProductSink) ListProducts(ctx context.Context, limit int) ([]*core.CanonicalProduct, error) {
	var products []*core.CanonicalProduct
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(productPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if limit > 0 && len(products) >= limit {
				break
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			err := iter.Item().Value(func(val []byte) error {
				product, err := storage.UnmarshalProduct(val)
				if err != nil {
					return err
				}
				products = append(products, product)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct retrieves the most recently stored product with the given
// identity. Returns storage.ErrNotFound if none exists.
func (s *ProductSink) GetProduct(ctx context.Context, key core.ID) (*core.CanonicalProduct, error) {
	var product *core.CanonicalProduct
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeProductIdentityKey(key))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		var productKey []byte
		err = item.Value(func(val []byte) error {
			productKey = make([]byte, 0, len(productPrefix)+len(val))
			productKey = append(productKey, productPrefix...)
			productKey = append(productKey, val...)
			return nil
		})
		if err != nil {
			return err
		}
		item, err = tx.Get(productKey)
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			product, unmarshalErr = storage.UnmarshalProduct(val)
			return unmarshalErr
		})
	}, false)
	return product, err
}
