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
	"errors"
	"fmt"
	"strings"
)

// Provider names accepted by Config.Provider.
const (
	ProviderRules  = "rules"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config holds configuration for Mapping Service implementations.
type Config struct {
	// Provider selects the implementation: "rules", "openai" or "gemini".
	// Default: "rules"
	Provider string

	// Host is the base URL for OpenAI-compatible APIs.
	// Example: "http://localhost:11434/v1" for a local server. Leave empty to
	// use the public OpenAI endpoint.
	Host string

	// Model is the chat model identifier.
	// Example: "gpt-3.5-turbo", "gemini-2.0-flash"
	Model string

	// APIKey authenticates against the hosted model. Local OpenAI-compatible
	// servers accept any value.
	APIKey string

	// Temperature controls sampling. Mapping wants deterministic output.
	// Default: 0
	Temperature float64
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithProvider selects the mapping implementation.
func WithProvider(provider string) ConfigOption {
	return func(c *Config) {
		c.Provider = provider
	}
}

// WithHost sets the model host URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithModel sets the model identifier.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) ConfigOption {
	return func(c *Config) {
		c.Temperature = t
	}
}

// DefaultConfig returns a Config that uses the rule-based mapper.
// Switching Provider to "openai" without further changes targets gpt-3.5-turbo.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderRules,
		Model:    "gpt-3.5-turbo",
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithProvider(ProviderOpenAI),
//	    WithHost("http://localhost:11434"),
//	    WithModel("qwen2.5:3b"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// OpenAI-compatible hosts get a /v1 suffix if missing.
func (c *Config) Normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = ProviderRules
	}
	if c.Provider == ProviderOpenAI && c.Host != "" && !strings.HasSuffix(c.Host, "/v1") {
		c.Host = strings.TrimSuffix(c.Host, "/") + "/v1"
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	switch c.Provider {
	case ProviderRules:
		return nil
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("mapping config: unknown provider %q", c.Provider)
	}
	if c.Model == "" {
		return errors.New("mapping config: Model is required")
	}
	if c.Provider == ProviderGemini && c.APIKey == "" {
		return errors.New("mapping config: APIKey is required for gemini")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return errors.New("mapping config: Temperature must be between 0 and 2")
	}
	return nil
}
