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


// Package gemini provides a Mapping Service backed by Google Gemini models.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"

	"github.com/poiesic/catalogsync/mapping"
	"google.golang.org/genai"
)

// Mapper implements mapping.Service using the Google GenAI SDK.
type Mapper struct {
	client      *genai.Client
	model       string
	temperature float32
	logger      *slog.Logger
}

// New creates a Gemini mapper. config.Host, when set, overrides the API base
// URL, which is useful for proxies and tests.
func New(ctx context.Context, config *mapping.Config) (mapping.Service, error) {
	return newMapper(ctx, config)
}

func newMapper(ctx context.Context, config *mapping.Config) (*Mapper, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(config.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(config.Host) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(config.Host)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &Mapper{
		client:      client,
		model:       strings.TrimSpace(config.Model),
		temperature: float32(config.Temperature),
		logger:      slog.Default().With("component", "gemini-mapper"),
	}, nil
}

// Map asks the model to rewrite the row in the shape of schemaTemplate.
func (m *Mapper) Map(ctx context.Context, schemaTemplate string, rawRow []byte) (string, error) {
	resp, err := m.client.Models.GenerateContent(
		ctx,
		m.model,
		genai.Text(mapping.BuildPrompt(schemaTemplate, rawRow)),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(mapping.SystemPrompt, genai.RoleUser),
			CandidateCount:    1,
			Temperature:       genai.Ptr(m.temperature),
			ResponseMIMEType:  "application/json",
		},
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		err = classifyErr(err)
		m.logger.Debug("mapping call failed", "model", m.model, "err", err)
		return "", err
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", mapping.NewServiceError(mapping.KindMalformedResponse, mapping.ErrEmptyResponse)
	}
	return text, nil
}

// Close is a no-op; the GenAI client holds no resources that need releasing.
func (m *Mapper) Close() error {
	return nil
}

func classifyErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return mapping.NewServiceError(mapping.KindTimeout, err)
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 429:
			return mapping.NewServiceError(mapping.KindRateLimited, err)
		case apiErr.Code == 408 || apiErr.Code == 504:
			return mapping.NewServiceError(mapping.KindTimeout, err)
		case apiErr.Code/100 == 5:
			return mapping.NewServiceError(mapping.KindUnavailable, err)
		case apiErr.Code == 401 || apiErr.Code == 403:
			return mapping.NewServiceError(mapping.KindAuthFailure, err)
		default:
			return mapping.NewServiceError(mapping.KindRejected, err)
		}
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return mapping.NewServiceError(mapping.KindTimeout, err)
	}
	return mapping.NewServiceError(mapping.KindUnavailable, err)
}
