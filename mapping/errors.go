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


package mapping

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies a Mapping Service failure.
type ErrorKind int

const (
	KindTimeout ErrorKind = iota + 1
	KindRateLimited
	KindUnavailable
	KindAuthFailure
	KindMalformedResponse
	// KindRejected covers requests the service refuses outright, such as an
	// unknown model or an oversized prompt.
	KindRejected
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindRateLimited:
		return "rate limited"
	case KindUnavailable:
		return "unavailable"
	case KindAuthFailure:
		return "auth failure"
	case KindMalformedResponse:
		return "malformed response"
	case KindRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// ErrEmptyResponse is returned when a mapper produced no text at all.
var ErrEmptyResponse = errors.New("empty response")

// ServiceError is the error type returned by Service implementations.
type ServiceError struct {
	Kind ErrorKind
	Err  error
}

// NewServiceError wraps err with the given kind.
func NewServiceError(kind ErrorKind, err error) *ServiceError {
	return &ServiceError{Kind: kind, Err: err}
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("mapping service: %s: %v", e.Kind, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Transient reports whether retrying the call may succeed.
func (e *ServiceError) Transient() bool {
	switch e.Kind {
	case KindTimeout, KindRateLimited, KindUnavailable:
		return true
	default:
		return false
	}
}

// IsTransient reports whether err is a failure worth retrying: a transient
// ServiceError, an expired per-call deadline, or a network timeout.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Transient()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}
