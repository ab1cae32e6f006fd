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


// Package schedule triggers pipeline runs on cron schedules.
//
// Jobs are registered explicitly with a Scheduler rather than discovered
// from annotations. Overlapping fires are not suppressed here: the job's
// own single-flight guard rejects them and the rejection is logged.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/poiesic/catalogsync/core"
	"github.com/robfig/cron/v3"
)

// DefaultSpec fires once a day at midnight.
const DefaultSpec = "@midnight"

var (
	// ErrDuplicateJob is returned when a job name is registered twice.
	ErrDuplicateJob = errors.New("job already registered")

	// ErrUnknownJob is returned when triggering a name that was never registered.
	ErrUnknownJob = errors.New("unknown job")
)

// Specs accept an optional leading seconds field and descriptors such as
// @midnight or @every 1h.
var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Job is a unit of scheduled work.
type Job interface {
	Run(ctx context.Context) (*core.RunReport, error)
}

// Entry describes a registered job.
type Entry struct {
	Name string
	Spec string
	Next time.Time // Zero until the scheduler is started
	Prev time.Time // Zero until the job has fired
}

type registration struct {
	id   cron.EntryID
	spec string
	job  Job
}

// Scheduler fires registered jobs on their cron schedules.
type Scheduler struct {
	cron     *cron.Cron
	location *time.Location
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *slog.Logger

	mu   sync.Mutex
	jobs map[string]registration
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLocation evaluates schedules in loc instead of the local time zone.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// New creates a stopped Scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		location: time.Local,
		logger:   slog.Default(),
		jobs:     make(map[string]registration),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "scheduler")
	s.ctx, s.cancel = context.WithCancel(context.Background())

	logger := &cronLoggerAdapter{logger: s.logger}
	s.cron = cron.New(
		cron.WithParser(parser),
		cron.WithLocation(s.location),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger)),
	)
	return s
}

// Register adds job under name, firing on spec.
func (s *Scheduler) Register(spec, name string, job Job) error {
	if job == nil {
		return fmt.Errorf("register %q: job is nil", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, name)
	}
	id, err := s.cron.AddFunc(spec, func() { s.fire(name, job) })
	if err != nil {
		return fmt.Errorf("register %q: invalid schedule %q: %w", name, spec, err)
	}
	s.jobs[name] = registration{id: id, spec: spec, job: job}
	s.logger.Info("job registered", "job", name, "spec", spec)
	return nil
}

// Unregister removes a job. Runs already in progress are not interrupted.
func (s *Scheduler) Unregister(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if reg, ok := s.jobs[name]; ok {
		s.cron.Remove(reg.id)
		delete(s.jobs, name)
	}
}

// Trigger runs a registered job immediately on the calling goroutine.
func (s *Scheduler) Trigger(ctx context.Context, name string) (*core.RunReport, error) {
	s.mu.Lock()
	reg, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return reg.job.Run(ctx)
}

// Entries lists registered jobs sorted by name.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.jobs))
	for name, reg := range s.jobs {
		e := s.cron.Entry(reg.id)
		out = append(out, Entry{Name: name, Spec: reg.spec, Next: e.Next, Prev: e.Prev})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Start begins firing jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.Entries()))
}

// Stop prevents new fires and waits for running jobs to finish. If ctx
// ends first, running jobs are canceled and ctx.Err() is returned.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	defer s.cancel()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out, canceling running jobs", "err", ctx.Err())
		return ctx.Err()
	}
}

func (s *Scheduler) fire(name string, job Job) {
	logger := s.logger.With("job", name)
	logger.Info("scheduled run starting")

	report, err := job.Run(s.ctx)
	switch {
	case errors.Is(err, core.ErrConcurrentRun):
		logger.Warn("scheduled run skipped", "err", err)
	case err != nil:
		logger.Error("scheduled run failed", "err", err)
	case report != nil:
		logger.Info("scheduled run finished",
			"run", report.RunID,
			"outcome", report.Outcome,
			"inserted", report.Inserted,
			"failed", len(report.Failed))
	default:
		logger.Info("scheduled run finished")
	}
}

// cronLoggerAdapter adapts slog.Logger to the cron.Logger interface.
type cronLoggerAdapter struct {
	logger *slog.Logger
}

var _ cron.Logger = (*cronLoggerAdapter)(nil)

func (cl *cronLoggerAdapter) Info(msg string, keysAndValues ...any) {
	cl.logger.Debug(msg, keysAndValues...)
}

func (cl *cronLoggerAdapter) Error(err error, msg string, keysAndValues ...any) {
	cl.logger.Error(msg, append(keysAndValues, "err", err)...)
}
