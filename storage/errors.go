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


package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey indicates a duplicate key violation.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrTruncatedData indicates encoded data ended before a complete record.
	ErrTruncatedData = errors.New("truncated data")

	// ErrUnsupportedVersion indicates stored data written by a newer format.
	ErrUnsupportedVersion = errors.New("unsupported encoding version")
)

// ErrorKind classifies a StorageError.
type ErrorKind int

const (
	KindDuplicateKey ErrorKind = iota + 1
	KindConnectionLost
	KindWriteRejected
)

func (k ErrorKind) String() string {
	switch k {
	case KindDuplicateKey:
		return "duplicate key"
	case KindConnectionLost:
		return "connection lost"
	case KindWriteRejected:
		return "write rejected"
	default:
		return "unknown"
	}
}

// StorageError is returned by Sink implementations.
type StorageError struct {
	Kind ErrorKind
	Err  error
}

// NewStorageError wraps err with the given kind.
func NewStorageError(kind ErrorKind, err error) *StorageError {
	return &StorageError{Kind: kind, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Retryable reports whether the write may succeed if attempted again.
func (e *StorageError) Retryable() bool {
	return e.Kind == KindConnectionLost
}

// IsRetryable reports whether err is a retryable StorageError.
func IsRetryable(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Retryable()
}
