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


package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/poiesic/catalogsync/config"
	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/mapping"
	"github.com/poiesic/catalogsync/mapping/gemini"
	"github.com/poiesic/catalogsync/mapping/openai"
	"github.com/poiesic/catalogsync/mapping/rules"
	"github.com/poiesic/catalogsync/pipeline"
	"github.com/poiesic/catalogsync/schedule"
	"github.com/poiesic/catalogsync/storage"
	"github.com/poiesic/catalogsync/storage/badger"
	"github.com/poiesic/catalogsync/storage/postgres"
	"github.com/poiesic/catalogsync/transform"
)

// JobName is the scheduler entry registered by NewScheduler.
const JobName = "catalog-sync"

// Service wires configuration to a ready-to-run pipeline.
type Service struct {
	cfg          *config.Config
	backend      *badger.Backend
	runs         *badger.RunRepository
	products     *badger.ProductSink // nil unless the badger sink is selected
	sink         storage.Sink
	mapper       mapping.Service
	transformer  *transform.Transformer
	orchestrator *pipeline.Orchestrator
	baseLogger   *slog.Logger // handed to components that add their own attributes
	logger       *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	mapper   mapping.Service
	progress io.Writer
	logger   *slog.Logger
	inMemory bool
}

// WithMappingService uses svc instead of building one from the config.
// The Service takes ownership and closes it.
func WithMappingService(svc mapping.Service) ServiceOption {
	return func(o *serviceOptions) {
		o.mapper = svc
	}
}

// WithProgress writes row progress to w during runs.
func WithProgress(w io.Writer) ServiceOption {
	return func(o *serviceOptions) {
		o.progress = w
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// WithInMemoryStorage keeps run reports and badger products in memory.
func WithInMemoryStorage() ServiceOption {
	return func(o *serviceOptions) {
		o.inMemory = true
	}
}

// NewMappingService builds the Mapping Service selected by cfg.
func NewMappingService(ctx context.Context, cfg *config.Config) (mapping.Service, error) {
	mc := cfg.MappingServiceConfig()
	if err := mc.Validate(); err != nil {
		return nil, err
	}
	switch mc.Provider {
	case mapping.ProviderRules:
		return rules.New(cfg.Mapping.Rules)
	case mapping.ProviderOpenAI:
		return openai.New(mc)
	case mapping.ProviderGemini:
		return gemini.New(ctx, mc)
	}
	return nil, fmt.Errorf("unknown mapping provider %q", mc.Provider)
}

// Open validates cfg and builds every component. A nil cfg means
// config.Default().
func Open(ctx context.Context, cfg *config.Config, opts ...ServiceOption) (*Service, error) {
	options := &serviceOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s := &Service{
		cfg:        cfg,
		baseLogger: options.logger,
		logger:     options.logger.With("component", "service"),
	}
	if err := s.open(ctx, options); err != nil {
		// Partial construction; Close tolerates nil components
		if cerr := s.Close(); cerr != nil {
			s.logger.Error("error closing partially opened service", "err", cerr)
		}
		return nil, err
	}
	return s, nil
}

func (s *Service) open(ctx context.Context, options *serviceOptions) error {
	cfg := s.cfg

	backend, err := badger.OpenBackend(cfg.Storage.Path, options.inMemory)
	if err != nil {
		return err
	}
	s.backend = backend
	s.runs = badger.NewRunRepository(backend)

	switch strings.ToLower(cfg.Storage.Backend) {
	case config.BackendPostgres:
		sink, err := postgres.NewSink(ctx, postgres.Config{
			DSN:         cfg.Storage.DSN,
			Table:       cfg.Storage.Table,
			CreateTable: cfg.Storage.CreateTable,
		})
		if err != nil {
			return err
		}
		s.sink = sink
	default:
		products, err := badger.NewProductSink(backend)
		if err != nil {
			return err
		}
		s.products = products
		s.sink = products
	}

	s.mapper = options.mapper
	if s.mapper == nil {
		if s.mapper, err = NewMappingService(ctx, cfg); err != nil {
			return err
		}
	}

	s.transformer, err = transform.New(s.mapper,
		transform.WithWorkers(cfg.Pipeline.Workers),
		transform.WithMaxRetries(cfg.Pipeline.MaxRetries),
		transform.WithRequestTimeout(cfg.Pipeline.RequestTimeout),
		transform.WithRateLimit(cfg.Pipeline.RateLimit),
		transform.WithLogger(options.logger),
	)
	if err != nil {
		return err
	}

	popts := []pipeline.Option{
		pipeline.WithInput(cfg.Input.Path),
		pipeline.WithOutputPath(cfg.Output),
		pipeline.WithPartitions(cfg.Input.Partitions),
		pipeline.WithPartitionConcurrency(cfg.Pipeline.PartitionConcurrency),
		pipeline.WithChunkSize(cfg.Pipeline.ChunkSize),
		pipeline.WithSinkRetries(cfg.Pipeline.SinkRetries),
		pipeline.WithRunTimeout(cfg.Pipeline.RunTimeout),
		pipeline.WithKeepPartitions(cfg.Input.KeepPartitions),
		pipeline.WithRunRepository(s.runs),
		pipeline.WithLogger(options.logger),
	}
	if cfg.Input.WorkDir != "" {
		popts = append(popts, pipeline.WithWorkDir(cfg.Input.WorkDir))
	}
	if options.progress != nil {
		popts = append(popts, pipeline.WithProgress(options.progress, 100))
	}
	s.orchestrator, err = pipeline.New(s.transformer, s.sink, popts...)
	return err
}

// Close releases every component, continuing past failures.
func (s *Service) Close() error {
	var errs []error
	if s.transformer != nil {
		s.transformer.Release()
	}
	if s.mapper != nil {
		if err := s.mapper.Close(); err != nil {
			s.logger.Error("error closing mapping service", "err", err)
			errs = append(errs, err)
		}
	}
	if s.sink != nil {
		if err := s.sink.Close(); err != nil {
			s.logger.Error("error closing sink", "err", err)
			errs = append(errs, err)
		}
	}
	if s.runs != nil {
		if err := s.runs.Close(); err != nil {
			s.logger.Error("error closing run repository", "err", err)
			errs = append(errs, err)
		}
	}
	if s.backend != nil {
		if err := s.backend.Close(); err != nil {
			s.logger.Error("error closing backend storage", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run executes one pipeline run.
func (s *Service) Run(ctx context.Context) (*core.RunReport, error) {
	return s.orchestrator.Run(ctx)
}

// Config returns the validated configuration.
func (s *Service) Config() *config.Config {
	return s.cfg
}

// Orchestrator returns the pipeline orchestrator.
func (s *Service) Orchestrator() *pipeline.Orchestrator {
	return s.orchestrator
}

// RunRepository returns the store holding run reports.
func (s *Service) RunRepository() storage.RunRepository {
	return s.runs
}

// Sink returns the configured product sink.
func (s *Service) Sink() storage.Sink {
	return s.sink
}

// ProductCount reports how many products the sink holds. Only the badger
// sink can count; other sinks return storage.ErrNotFound.
func (s *Service) ProductCount(ctx context.Context) (int, error) {
	if s.products == nil {
		return 0, storage.ErrNotFound
	}
	return s.products.CountProducts(ctx)
}

// NewScheduler returns a scheduler with the pipeline registered under
// JobName using the configured schedule. The caller starts and stops it.
func (s *Service) NewScheduler(opts ...schedule.Option) (*schedule.Scheduler, error) {
	sched := schedule.New(append([]schedule.Option{schedule.WithLogger(s.baseLogger)}, opts...)...)
	if err := sched.Register(s.cfg.Schedule, JobName, s.orchestrator); err != nil {
		return nil, err
	}
	return sched, nil
}
