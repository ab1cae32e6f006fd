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


package pipeline

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/catalogsync/aggregate"
	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/split"
	"github.com/poiesic/catalogsync/storage"
	"github.com/poiesic/catalogsync/transform"
	"github.com/poiesic/catalogsync/tsv"
	"golang.org/x/sync/errgroup"
)

// reportSaveTimeout bounds persisting a report after the run context ended.
const reportSaveTimeout = 10 * time.Second

// Orchestrator drives split, transform, merge and persist for each run.
type Orchestrator struct {
	transformer          *transform.Transformer
	sink                 storage.Sink
	runs                 storage.RunRepository
	splitter             *split.Coordinator
	inputPath            string
	workDir              string
	outputPath           string
	partitions           int
	partitionConcurrency int
	chunkSize            int
	sinkRetries          int
	sinkBackoff          transform.Backoff
	runTimeout           time.Duration
	keepPartitions       bool
	progress             io.Writer
	progressInterval     int
	logger               *slog.Logger

	running sync.Mutex // held for the duration of a run

	mu    sync.Mutex // guards state and last
	state core.RunState
	last  *core.RunReport
}

// New creates an Orchestrator. The transformer and sink stay owned by the
// caller.
func New(transformer *transform.Transformer, sink storage.Sink, opts ...Option) (*Orchestrator, error) {
	if transformer == nil {
		return nil, ErrTransformerRequired
	}
	if sink == nil {
		return nil, ErrSinkRequired
	}

	o := &Orchestrator{
		transformer:          transformer,
		sink:                 sink,
		splitter:             split.NewCoordinator(),
		workDir:              filepath.Join(os.TempDir(), "catalogsync"),
		outputPath:           "products.json",
		partitions:           10,
		partitionConcurrency: 2,
		chunkSize:            500,
		sinkRetries:          3,
		sinkBackoff:          transform.DefaultBackoff(),
		progressInterval:     100,
		logger:               slog.Default(),
		state:                core.StateIdle,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.inputPath == "" {
		return nil, ErrInputRequired
	}
	o.logger = o.logger.With("component", "orchestrator")
	return o, nil
}

// State returns the current orchestrator state.
func (o *Orchestrator) State() core.RunState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// LastReport returns the report of the most recent finished run, or nil.
func (o *Orchestrator) LastReport() *core.RunReport {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

func (o *Orchestrator) setState(s core.RunState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = s
}

// Run executes one full pipeline run. It returns core.ErrConcurrentRun if a
// run is already active. Otherwise the report is always returned; err is
// non-nil when the run ended in the Failed state.
func (o *Orchestrator) Run(ctx context.Context) (*core.RunReport, error) {
	if !o.running.TryLock() {
		o.logger.Warn("run rejected", "err", core.ErrConcurrentRun)
		return nil, core.ErrConcurrentRun
	}
	defer o.running.Unlock()

	report := &core.RunReport{
		RunID:      uuid.NewString(),
		StartedAt:  time.Now().UTC(),
		OutputPath: o.outputPath,
	}
	logger := o.logger.With("run", report.RunID)
	logger.Info("run started", "input", o.inputPath, "partitions", o.partitions)

	runCtx := ctx
	if o.runTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, o.runTimeout)
		defer cancel()
	}

	err := o.execute(runCtx, report, logger)
	report.FinishedAt = time.Now().UTC()

	if err != nil {
		failedIn := o.State()
		o.setState(core.StateFailed)
		report.FinalState = core.StateFailed
		report.Outcome = core.OutcomeFailed
		report.Error = err.Error()
		logger.Error("run failed", "state", failedIn, "err", err)
	} else {
		o.setState(core.StateIdle)
		report.FinalState = core.StateIdle
		report.Outcome = core.OutcomeSuccess
		if len(report.Failed) > 0 {
			report.Outcome = core.OutcomePartial
		}
		logger.Info("run finished",
			"outcome", report.Outcome,
			"rows", report.TotalRows,
			"succeeded", report.Succeeded,
			"failed", len(report.Failed),
			"inserted", report.Inserted,
			"duration", report.Duration())
	}

	o.saveReport(ctx, report, logger)

	o.mu.Lock()
	o.last = report
	o.mu.Unlock()

	return report, err
}

func (o *Orchestrator) execute(ctx context.Context, report *core.RunReport, logger *slog.Logger) error {
	o.setState(core.StateSplitting)
	partDir := filepath.Join(o.workDir, "run-"+report.RunID)
	manifest, err := o.splitter.Split(ctx, o.inputPath, partDir, o.partitions)
	if !o.keepPartitions {
		defer func() {
			if err := os.RemoveAll(partDir); err != nil {
				logger.Warn("failed to remove partitions", "dir", partDir, "err", err)
			}
		}()
	}
	if err != nil {
		return fmt.Errorf("split: %w", err)
	}
	report.TotalRows = manifest.TotalRows
	report.Partitions = len(manifest.Partitions)

	o.setState(core.StateProcessing)
	merged, procErr := o.process(ctx, manifest, logger)

	o.setState(core.StateMerging)
	if merged == nil {
		return procErr
	}
	var (
		products []core.CanonicalProduct
		failed   []core.FailedRow
	)
	if procErr == nil {
		products, failed, err = merged.Finalize()
		if errors.Is(err, aggregate.ErrIncomplete) {
			procErr = cmp.Or(ctx.Err(), err)
		} else if err != nil {
			return err
		}
	}
	if procErr != nil {
		products, failed = merged.FinalizeAbandoned(procErr)
		report.Succeeded = len(products)
		report.Failed = failed
		return fmt.Errorf("process partitions: %w", procErr)
	}
	report.Succeeded = len(products)
	report.Failed = failed
	for _, f := range failed {
		logger.Warn("row excluded", "row", f.RowIndex, "phase", f.Phase, "attempts", f.Attempts, "err", f.Err)
	}

	if o.outputPath != "" {
		if err := writeArtifact(o.outputPath, products); err != nil {
			return fmt.Errorf("write artifact: %w", err)
		}
		logger.Info("artifact written", "path", o.outputPath, "products", len(products))
	}

	o.setState(core.StatePersisting)
	inserted, err := o.persist(ctx, products, logger)
	report.Inserted = inserted
	return err
}

// process maps every partition and merges the per-partition aggregators.
// A nil aggregator means nothing could be merged.
func (o *Orchestrator) process(ctx context.Context, manifest *core.SplitManifest, logger *slog.Logger) (*aggregate.Aggregator, error) {
	var tracker *ProgressTracker
	if o.progress != nil {
		tracker = NewProgressTracker(o.progress, manifest.TotalRows, o.progressInterval)
		tracker.Start()
		defer tracker.Finish()
	}

	aggs := make([]*aggregate.Aggregator, len(manifest.Partitions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.partitionConcurrency)
	for i, part := range manifest.Partitions {
		agg := aggregate.New()
		agg.Expect(part.FirstRow, part.RowCount)
		aggs[i] = agg
		reporter := &trackingReporter{Aggregator: agg, tracker: tracker}
		g.Go(func() error {
			return o.processPartition(gctx, part, reporter, logger)
		})
	}
	procErr := g.Wait()

	merged, err := aggregate.Merge(aggs...)
	if err != nil {
		return nil, err
	}
	return merged, procErr
}

func (o *Orchestrator) processPartition(ctx context.Context, part core.Partition, r transform.Reporter, logger *slog.Logger) error {
	reader, err := tsv.Open(part.Path, tsv.WithRowOffset(part.FirstRow), tsv.WithLogger(logger))
	if err != nil {
		return err
	}
	defer reader.Close()

	logger.Debug("processing partition", "partition", part.ID, "rows", part.RowCount, "firstRow", part.FirstRow)
	if err := o.transformer.ProcessPartition(ctx, reader, r); err != nil {
		return fmt.Errorf("partition %d: %w", part.ID, err)
	}
	return nil
}

// persist inserts products in chunks and returns how many were written.
// A chunk is retried while the sink reports a retryable error.
func (o *Orchestrator) persist(ctx context.Context, products []core.CanonicalProduct, logger *slog.Logger) (int, error) {
	size := o.chunkSize
	if size == 0 {
		size = len(products)
	}

	inserted := 0
	for start := 0; start < len(products); start += size {
		end := min(start+size, len(products))
		chunk := products[start:end]
		attempts, err := transform.RetryWithBackoff(ctx, func(ctx context.Context) error {
			return o.sink.BulkInsert(ctx, chunk)
		}, o.sinkRetries+1, o.sinkBackoff, func(err error) bool {
			if storage.IsRetryable(err) {
				logger.Warn("sink write failed, retrying", "from", start, "to", end, "err", err)
				return true
			}
			return false
		})
		if err != nil {
			return inserted, fmt.Errorf("insert products %d-%d after %d attempts: %w", start, end-1, attempts, err)
		}
		inserted += len(chunk)
		logger.Debug("chunk inserted", "from", start, "to", end, "attempts", attempts)
	}
	return inserted, nil
}

func (o *Orchestrator) saveReport(ctx context.Context, report *core.RunReport, logger *slog.Logger) {
	if o.runs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reportSaveTimeout)
	defer cancel()
	if err := o.runs.SaveRun(ctx, report); err != nil {
		logger.Error("failed to save run report", "err", err)
	}
}

// trackingReporter feeds an aggregator and a progress tracker.
type trackingReporter struct {
	*aggregate.Aggregator
	tracker *ProgressTracker
}

func (r *trackingReporter) Accumulate(job core.TransformJob) {
	r.Aggregator.Accumulate(job)
	if job.Status.Terminal() {
		r.tracker.Record(job.Status == core.JobSucceeded)
	}
}
