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
	"log/slog"
	"strings"

	"github.com/poiesic/catalogsync/mapping"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Mapper implements mapping.Service using OpenAI-compatible chat APIs.
type Mapper struct {
	client      llms.Model
	model       string
	temperature float64
	logger      *slog.Logger
}

// newMapper is an internal constructor that returns the concrete type.
func newMapper(config *mapping.Config) (*Mapper, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	opts := []openai.Option{openai.WithModel(config.Model)}
	if config.Host != "" {
		opts = append(opts, openai.WithBaseURL(config.Host))
	}
	switch {
	case config.APIKey != "":
		opts = append(opts, openai.WithToken(config.APIKey))
	case config.Host != "":
		// Local OpenAI-compatible services don't require authentication
		opts = append(opts, openai.WithToken("none"))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}

	return &Mapper{
		client:      client,
		model:       config.Model,
		temperature: config.Temperature,
		logger:      slog.Default().With("component", "openai-mapper"),
	}, nil
}

// New creates a new mapper using the provided configuration.
//
// Returns mapping.Service interface to enforce abstraction.
func New(config *mapping.Config) (mapping.Service, error) {
	return newMapper(config)
}

// Map asks the model to rewrite the row in the shape of schemaTemplate.
// The response text is returned as-is; callers strip fences and decode it.
func (m *Mapper) Map(ctx context.Context, schemaTemplate string, rawRow []byte) (string, error) {
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(mapping.SystemPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(mapping.BuildPrompt(schemaTemplate, rawRow)),
			},
		},
	}

	response, err := m.client.GenerateContent(ctx, content,
		llms.WithTemperature(m.temperature),
		llms.WithJSONMode(),
	)
	if err != nil {
		// The client flattens context errors into plain text
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		err = classifyErr(err)
		m.logger.Debug("mapping call failed", "model", m.model, "err", err)
		return "", err
	}

	if len(response.Choices) < 1 || strings.TrimSpace(response.Choices[0].Content) == "" {
		return "", mapping.NewServiceError(mapping.KindMalformedResponse, mapping.ErrEmptyResponse)
	}
	return response.Choices[0].Content, nil
}

// Close releases resources held by the mapper.
// Currently a no-op as the underlying client doesn't require explicit cleanup.
func (m *Mapper) Close() error {
	m.logger.Debug("closing OpenAI mapper")
	return nil
}
