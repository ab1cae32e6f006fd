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


package transform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/mapping"
	"golang.org/x/time/rate"
)

// RowSource yields rows until io.EOF. A *core.ParseError affects only the
// offending row; any other error ends the stream.
type RowSource interface {
	Next() (core.RawRow, error)
}

// Reporter receives the lifecycle of every row handled by ProcessPartition.
// Dispatch is called before a row is handed to a worker, Accumulate once the
// row reaches a terminal state. Implementations must be thread-safe.
type Reporter interface {
	Dispatch(rowIndex int)
	Accumulate(job core.TransformJob)
}

// Transformer maps rows through a mapping.Service with retries, rate
// limiting and bounded concurrency.
type Transformer struct {
	service        mapping.Service
	schema         string
	maxRetries     int
	requestTimeout time.Duration
	backoff        Backoff
	limiter        *rate.Limiter
	pool           *ants.Pool
	workers        int
	logger         *slog.Logger
}

// Option configures a Transformer.
type Option func(*Transformer) error

// WithSchemaTemplate sets the document example sent with every row.
// Default is mapping.SchemaTemplate.
func WithSchemaTemplate(schema string) Option {
	return func(t *Transformer) error {
		t.schema = schema
		return nil
	}
}

// WithMaxRetries sets how many times a transient failure is retried.
// Default is 3.
func WithMaxRetries(n int) Option {
	return func(t *Transformer) error {
		if n < 0 {
			n = 0
		}
		t.maxRetries = n
		return nil
	}
}

// WithRequestTimeout bounds each individual mapping call. Zero disables it.
// Default is 60s.
func WithRequestTimeout(d time.Duration) Option {
	return func(t *Transformer) error {
		t.requestTimeout = d
		return nil
	}
}

// WithBackoff sets the retry backoff.
func WithBackoff(b Backoff) Option {
	return func(t *Transformer) error {
		t.backoff = b
		return nil
	}
}

// WithRateLimit caps mapping calls per second across all workers.
// Set to <=0 to disable.
func WithRateLimit(rps float64) Option {
	return func(t *Transformer) error {
		if rps <= 0 {
			t.limiter = nil
			return nil
		}
		t.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		return nil
	}
}

// WithWorkers sets the maximum number of concurrent mapping calls.
// Default is runtime.NumCPU(), with a minimum of 1.
func WithWorkers(n int) Option {
	return func(t *Transformer) error {
		if n < 1 {
			n = 1
		}
		t.workers = n
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transformer) error {
		if logger == nil {
			logger = slog.Default()
		}
		t.logger = logger
		return nil
	}
}

// New creates a Transformer. Call Release when done with it.
func New(service mapping.Service, opts ...Option) (*Transformer, error) {
	if service == nil {
		return nil, ErrServiceRequired
	}

	t := &Transformer{
		service:        service,
		schema:         mapping.SchemaTemplate,
		maxRetries:     3,
		requestTimeout: 60 * time.Second,
		backoff:        DefaultBackoff(),
		workers:        max(runtime.NumCPU(), 1),
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	t.logger = t.logger.With("component", "transformer")

	pool, err := ants.NewPool(t.workers)
	if err != nil {
		return nil, err
	}
	t.pool = pool
	return t, nil
}

// Workers returns the concurrency bound.
func (t *Transformer) Workers() int {
	return t.workers
}

// Release stops the worker pool.
// The Transformer should not be used after calling Release.
func (t *Transformer) Release() {
	if t.pool != nil {
		t.pool.Release()
	}
}

// Transform maps a single row into a validated product.
// Errors are *core.MappingError or *core.ValidationError.
func (t *Transformer) Transform(ctx context.Context, row core.RawRow) (*core.CanonicalProduct, error) {
	p, _, err := t.transform(ctx, row)
	return p, err
}

func (t *Transformer) transform(ctx context.Context, row core.RawRow) (*core.CanonicalProduct, int, error) {
	payload, err := json.Marshal(row)
	if err != nil {
		return nil, 0, &core.MappingError{RowIndex: row.Index, Err: err}
	}

	var text string
	attempts, err := RetryWithBackoff(ctx, func(ctx context.Context) error {
		if t.limiter != nil {
			if err := t.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		callCtx := ctx
		if t.requestTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, t.requestTimeout)
			defer cancel()
		}
		out, err := t.service.Map(callCtx, t.schema, payload)
		if err != nil {
			return err
		}
		text = out
		return nil
	}, t.maxRetries+1, t.backoff, func(err error) bool {
		return ctx.Err() == nil && mapping.IsTransient(err)
	})
	if err != nil {
		t.logger.Debug("mapping failed", "row", row.Index, "attempts", attempts, "err", err)
		return nil, attempts, &core.MappingError{
			RowIndex:  row.Index,
			Transient: mapping.IsTransient(err) || ctx.Err() != nil,
			Err:       err,
		}
	}

	product, err := decodeProduct(cleanResponse(text))
	if err != nil {
		return nil, attempts, &core.MappingError{
			RowIndex: row.Index,
			Err:      mapping.NewServiceError(mapping.KindMalformedResponse, err),
		}
	}
	if err := core.ValidateProduct(product); err != nil {
		return nil, attempts, &core.ValidationError{RowIndex: row.Index, Err: err}
	}
	return product, attempts, nil
}

// ProcessPartition reads every row from src, transforms the rows on the
// worker pool and reports each outcome to r. It returns after all submitted
// rows have finished.
//
// Rows still in flight when ctx is done are left non-terminal so the caller
// can report them as abandoned. The returned error is a fatal read error or
// ctx.Err(); per-row failures are only reported.
func (t *Transformer) ProcessPartition(ctx context.Context, src RowSource, r Reporter) error {
	if r == nil {
		return ErrReporterRequired
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var pe *core.ParseError
			if errors.As(err, &pe) {
				t.logger.Warn("skipping malformed row", "row", pe.RowIndex, "line", pe.Line, "err", err)
				r.Dispatch(pe.RowIndex)
				r.Accumulate(core.TransformJob{
					RowIndex: pe.RowIndex,
					Status:   core.JobFailed,
					Phase:    core.PhaseParse,
					Err:      err,
				})
				continue
			}
			return err
		}

		r.Dispatch(row.Index)
		wg.Add(1)
		submitErr := t.pool.Submit(func() {
			defer wg.Done()
			t.run(ctx, row, r)
		})
		if submitErr != nil {
			wg.Done()
			return fmt.Errorf("submit row %d: %w", row.Index, submitErr)
		}
	}
}

func (t *Transformer) run(ctx context.Context, row core.RawRow, r Reporter) {
	job := core.TransformJob{RowIndex: row.Index, Row: row, Status: core.JobInFlight}

	product, attempts, err := t.transform(ctx, row)
	job.Attempts = attempts
	if err != nil && ctx.Err() != nil {
		// Run aborted; the row stays non-terminal
		return
	}

	switch {
	case err == nil:
		job.Status = core.JobSucceeded
		job.Product = product
	case errors.As(err, new(*core.ValidationError)):
		job.Status = core.JobFailed
		job.Phase = core.PhaseValidation
		job.Err = err
	default:
		job.Status = core.JobFailed
		job.Phase = core.PhaseMapping
		job.Err = err
	}
	r.Accumulate(job)
}
