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


package openai

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/poiesic/catalogsync/mapping"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// emptyResponseText is the message of the client's unexported empty-choices
// error, which is returned without wrapping and cannot be matched with errors.Is.
const emptyResponseText = "empty response"

// classifyErr turns a langchaingo error into a *mapping.ServiceError.
// Cancellation by the caller is passed through untouched.
func classifyErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, openai.ErrEmptyResponse) || isEmptyResponse(err) {
		return mapping.NewServiceError(mapping.KindMalformedResponse, err)
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return mapping.NewServiceError(mapping.KindTimeout, err)
	}

	mapped := openai.MapError(err)
	switch {
	case llms.IsRateLimitError(mapped), llms.IsQuotaExceededError(mapped):
		return mapping.NewServiceError(mapping.KindRateLimited, err)
	case llms.IsAuthenticationError(mapped):
		return mapping.NewServiceError(mapping.KindAuthFailure, err)
	case llms.IsTimeoutError(mapped):
		return mapping.NewServiceError(mapping.KindTimeout, err)
	case llms.IsInvalidRequestError(mapped),
		llms.IsTokenLimitError(mapped),
		llms.IsContentFilterError(mapped),
		llms.IsNotImplementedError(mapped):
		return mapping.NewServiceError(mapping.KindRejected, err)
	case errors.Is(mapped, &llms.Error{Code: llms.ErrCodeResourceNotFound}):
		return mapping.NewServiceError(mapping.KindRejected, err)
	default:
		// Connection failures and 5xx answers
		return mapping.NewServiceError(mapping.KindUnavailable, err)
	}
}

func isEmptyResponse(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), emptyResponseText)
}
