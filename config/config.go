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


// Package config loads catalogsync settings from YAML.
//
// Values are layered: built-in defaults, then the YAML file, then
// environment variables, then command-line flags applied by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/poiesic/catalogsync/mapping"
	"github.com/poiesic/catalogsync/mapping/rules"
	"gopkg.in/yaml.v3"
)

// Storage backends accepted by StorageConfig.Backend.
const (
	BackendBadger   = "badger"
	BackendPostgres = "postgres"
)

// Environment variables read by ApplyEnv.
const (
	EnvOpenAIKey   = "OPENAI_API_KEY"
	EnvGeminiKey   = "GEMINI_API_KEY"
	EnvPostgresDSN = "CATALOGSYNC_POSTGRES_DSN"
)

// InputConfig describes the catalog export and how it is split.
type InputConfig struct {
	Path           string `yaml:"path"`
	WorkDir        string `yaml:"work_dir"`
	Partitions     int    `yaml:"partitions"`
	KeepPartitions bool   `yaml:"keep_partitions"`
}

// PipelineConfig tunes concurrency, retries and timeouts.
type PipelineConfig struct {
	PartitionConcurrency int           `yaml:"partition_concurrency"`
	Workers              int           `yaml:"workers"`
	MaxRetries           int           `yaml:"max_retries"`
	RequestTimeout       time.Duration `yaml:"request_timeout"`
	RateLimit            float64       `yaml:"rate_limit"`
	RunTimeout           time.Duration `yaml:"run_timeout"`
	ChunkSize            int           `yaml:"chunk_size"`
	SinkRetries          int           `yaml:"sink_retries"`
}

// MappingConfig selects and configures the Mapping Service.
type MappingConfig struct {
	Provider    string        `yaml:"provider"`
	Host        string        `yaml:"host"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	Temperature float64       `yaml:"temperature"`
	Rules       *rules.Config `yaml:"rules"`
}

// StorageConfig selects the Sink and where run reports are kept.
type StorageConfig struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"` // badger directory, also holds run reports
	DSN         string `yaml:"dsn"`
	Table       string `yaml:"table"`
	CreateTable bool   `yaml:"create_table"`
}

// Config is the complete catalogsync configuration.
type Config struct {
	Input    InputConfig    `yaml:"input"`
	Output   string         `yaml:"output"`
	Schedule string         `yaml:"schedule"`
	LogLevel string         `yaml:"log_level"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Mapping  MappingConfig  `yaml:"mapping"`
	Storage  StorageConfig  `yaml:"storage"`
}

// Default returns the built-in configuration.
func Default() *Config {
	m := mapping.DefaultConfig()
	return &Config{
		Input: InputConfig{
			Path:       "images40.txt",
			Partitions: 10,
		},
		Output:   "products.json",
		Schedule: "@midnight",
		LogLevel: "info",
		Pipeline: PipelineConfig{
			PartitionConcurrency: 2,
			Workers:              max(runtime.NumCPU(), 1),
			MaxRetries:           3,
			RequestTimeout:       60 * time.Second,
			ChunkSize:            500,
			SinkRetries:          3,
		},
		Mapping: MappingConfig{
			Provider: m.Provider,
			Model:    m.Model,
			Rules:    rules.DefaultConfig(),
		},
		Storage: StorageConfig{
			Backend: BackendBadger,
			Path:    "catalogsync.db",
		},
	}
}

// Load reads path over the defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if cfg.Mapping.Rules == nil {
		cfg.Mapping.Rules = rules.DefaultConfig()
	}
	return cfg, nil
}

// ApplyEnv fills secrets from the environment when the file left them empty.
func (c *Config) ApplyEnv() {
	if c.Mapping.APIKey == "" {
		switch strings.ToLower(strings.TrimSpace(c.Mapping.Provider)) {
		case mapping.ProviderOpenAI:
			c.Mapping.APIKey = strings.TrimSpace(os.Getenv(EnvOpenAIKey))
		case mapping.ProviderGemini:
			c.Mapping.APIKey = strings.TrimSpace(os.Getenv(EnvGeminiKey))
		}
	}
	if c.Storage.DSN == "" {
		c.Storage.DSN = strings.TrimSpace(os.Getenv(EnvPostgresDSN))
	}
}

// MappingServiceConfig converts the mapping section for mapping implementations.
func (c *Config) MappingServiceConfig() *mapping.Config {
	return mapping.NewConfig(
		mapping.WithProvider(c.Mapping.Provider),
		mapping.WithHost(c.Mapping.Host),
		mapping.WithModel(c.Mapping.Model),
		mapping.WithAPIKey(c.Mapping.APIKey),
		mapping.WithTemperature(c.Mapping.Temperature),
	)
}

// Validate checks that the configuration is complete.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Input.Path) == "" {
		errs = append(errs, errors.New("input.path is required"))
	}
	if c.Input.Partitions < 1 {
		errs = append(errs, errors.New("input.partitions must be at least 1"))
	}
	p := c.Pipeline
	if p.PartitionConcurrency < 1 {
		errs = append(errs, errors.New("pipeline.partition_concurrency must be at least 1"))
	}
	if p.Workers < 1 {
		errs = append(errs, errors.New("pipeline.workers must be at least 1"))
	}
	if p.MaxRetries < 0 || p.SinkRetries < 0 {
		errs = append(errs, errors.New("pipeline retries cannot be negative"))
	}
	if p.RequestTimeout < 0 || p.RunTimeout < 0 {
		errs = append(errs, errors.New("pipeline timeouts cannot be negative"))
	}
	if p.RateLimit < 0 {
		errs = append(errs, errors.New("pipeline.rate_limit cannot be negative"))
	}
	if p.ChunkSize < 0 {
		errs = append(errs, errors.New("pipeline.chunk_size cannot be negative"))
	}

	mc := c.MappingServiceConfig()
	if err := mc.Validate(); err != nil {
		errs = append(errs, err)
	} else if mc.Provider == mapping.ProviderRules {
		if c.Mapping.Rules == nil {
			errs = append(errs, errors.New("mapping.rules is required for the rules provider"))
		} else if err := c.Mapping.Rules.Validate(); err != nil {
			errs = append(errs, err)
		}
	}

	switch strings.ToLower(c.Storage.Backend) {
	case BackendBadger:
		if strings.TrimSpace(c.Storage.Path) == "" {
			errs = append(errs, errors.New("storage.path is required for badger"))
		}
	case BackendPostgres:
		if strings.TrimSpace(c.Storage.DSN) == "" {
			errs = append(errs, fmt.Errorf("storage.dsn or %s is required for postgres", EnvPostgresDSN))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.backend %q", c.Storage.Backend))
	}
	return errors.Join(errs...)
}
