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


package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/poiesic/catalogsync"
	"github.com/poiesic/catalogsync/config"
	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/split"
	"github.com/poiesic/catalogsync/storage/badger"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

const configKey = "config"

// stopTimeout bounds how long schedule waits for an active run on shutdown.
const stopTimeout = 5 * time.Minute

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "catalogsync",
		Usage: "Split, map and load supplier product catalogs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				EnvVars: []string{"CATALOGSYNC_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error); overrides log_level in the config",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run the pipeline once",
				Action: runCommand,
				Flags: append(pipelineFlags(),
					&cli.BoolFlag{
						Name:  "no-progress",
						Usage: "Do not print row progress",
					},
				),
			},
			{
				Name:   "schedule",
				Usage:  "Run the pipeline on a cron schedule until interrupted",
				Action: scheduleCommand,
				Flags: append(pipelineFlags(),
					&cli.StringFlag{
						Name:  "spec",
						Usage: "Cron spec, e.g. \"@midnight\" or \"0 30 2 * * *\"",
					},
					&cli.BoolFlag{
						Name:  "now",
						Usage: "Also run once immediately",
					},
				),
			},
			{
				Name:   "split",
				Usage:  "Split a TSV file into partitions without processing it",
				Action: splitCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "input",
						Aliases: []string{"i"},
						Usage:   "Input TSV file (defaults to input.path from the config)",
					},
					&cli.StringFlag{
						Name:     "out",
						Aliases:  []string{"o"},
						Usage:    "Directory for partition files",
						Required: true,
					},
					&cli.IntFlag{
						Name:    "parts",
						Aliases: []string{"n"},
						Usage:   "Number of partitions (defaults to input.partitions from the config)",
					},
				},
			},
			{
				Name:   "status",
				Usage:  "Show recent run reports",
				Action: statusCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of runs to show",
						Value: 10,
					},
					&cli.StringFlag{
						Name:  "run",
						Usage: "Show one run in detail, including failed rows",
					},
				},
			},
			{
				Name:   "config",
				Usage:  "Print the effective configuration",
				Action: configCommand,
			},
		},
	}
}

func pipelineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "input",
			Aliases: []string{"i"},
			Usage:   "Input TSV file",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Path of the JSON product artifact; empty string disables it",
		},
		&cli.IntFlag{
			Name:    "partitions",
			Aliases: []string{"n"},
			Usage:   "Number of partitions",
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Maximum concurrent mapping calls",
		},
		&cli.StringFlag{
			Name:  "provider",
			Usage: "Mapping provider (rules, openai, gemini)",
		},
		&cli.StringFlag{
			Name:  "model",
			Usage: "Model name for AI providers",
		},
		&cli.StringFlag{
			Name:  "host",
			Usage: "Base URL for OpenAI-compatible APIs",
		},
		&cli.DurationFlag{
			Name:  "run-timeout",
			Usage: "Abort a run after this long; 0 disables",
		},
		&cli.BoolFlag{
			Name:  "keep-partitions",
			Usage: "Leave partition files on disk after the run",
		},
	}
}

// setup loads the configuration and installs the default logger.
func setup(c *cli.Context) error {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg.ApplyEnv()
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}

	if err := setupLogger(c.App.ErrWriter, cfg.LogLevel); err != nil {
		return err
	}
	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata[configKey] = cfg
	return nil
}

func loadedConfig(c *cli.Context) *config.Config {
	if cfg, ok := c.App.Metadata[configKey].(*config.Config); ok {
		return cfg
	}
	return config.Default()
}

// applyFlags overlays explicitly set command flags onto cfg.
func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("input") {
		cfg.Input.Path = c.String("input")
	}
	if c.IsSet("output") {
		cfg.Output = c.String("output")
	}
	if c.IsSet("partitions") {
		cfg.Input.Partitions = c.Int("partitions")
	}
	if c.IsSet("workers") {
		cfg.Pipeline.Workers = c.Int("workers")
	}
	if c.IsSet("provider") {
		cfg.Mapping.Provider = c.String("provider")
		cfg.Mapping.APIKey = ""
		cfg.ApplyEnv()
	}
	if c.IsSet("model") {
		cfg.Mapping.Model = c.String("model")
	}
	if c.IsSet("host") {
		cfg.Mapping.Host = c.String("host")
	}
	if c.IsSet("run-timeout") {
		cfg.Pipeline.RunTimeout = c.Duration("run-timeout")
	}
	if c.IsSet("keep-partitions") {
		cfg.Input.KeepPartitions = c.Bool("keep-partitions")
	}
	if c.IsSet("spec") {
		cfg.Schedule = c.String("spec")
	}
}

func runCommand(c *cli.Context) error {
	cfg := loadedConfig(c)
	applyFlags(c, cfg)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []catalogsync.ServiceOption
	if !c.Bool("no-progress") {
		opts = append(opts, catalogsync.WithProgress(c.App.ErrWriter))
	}
	svc, err := catalogsync.Open(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	defer svc.Close()

	fmt.Fprintf(c.App.ErrWriter, "Input: %s\n", cfg.Input.Path)
	fmt.Fprintf(c.App.ErrWriter, "Partitions: %d\n", cfg.Input.Partitions)
	fmt.Fprintf(c.App.ErrWriter, "Mapping provider: %s\n", cfg.Mapping.Provider)
	fmt.Fprintf(c.App.ErrWriter, "Storage: %s\n", cfg.Storage.Backend)
	fmt.Fprintln(c.App.ErrWriter)

	report, err := svc.Run(ctx)
	if report != nil {
		printReport(c.App.Writer, report, false)
	}
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}
	return nil
}

func scheduleCommand(c *cli.Context) error {
	cfg := loadedConfig(c)
	applyFlags(c, cfg)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := catalogsync.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	sched, err := svc.NewScheduler()
	if err != nil {
		return err
	}
	sched.Start()
	for _, e := range sched.Entries() {
		fmt.Fprintf(c.App.ErrWriter, "Scheduled %s (%s), next run %s\n", e.Name, e.Spec, e.Next.Format(time.RFC3339))
	}

	immediate := make(chan struct{})
	if c.Bool("now") {
		go func() {
			defer close(immediate)
			if _, err := sched.Trigger(ctx, catalogsync.JobName); err != nil {
				slog.Error("immediate run failed", "err", err)
			}
		}()
	} else {
		close(immediate)
	}

	<-ctx.Done()
	fmt.Fprintln(c.App.ErrWriter, "Shutting down, waiting for active run...")

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	err = sched.Stop(stopCtx)
	<-immediate
	return err
}

func splitCommand(c *cli.Context) error {
	cfg := loadedConfig(c)
	input := cfg.Input.Path
	if c.IsSet("input") {
		input = c.String("input")
	}
	parts := cfg.Input.Partitions
	if c.IsSet("parts") {
		parts = c.Int("parts")
	}

	manifest, err := split.Split(c.Context, input, c.String("out"), parts)
	if err != nil {
		return fmt.Errorf("split failed: %w", err)
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PARTITION\tFIRST ROW\tROWS\tPATH")
	for _, p := range manifest.Partitions {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\n", p.ID, p.FirstRow, p.RowCount, p.Path)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Total rows: %d\n", manifest.TotalRows)
	return nil
}

func statusCommand(c *cli.Context) error {
	cfg := loadedConfig(c)

	backend, err := badger.OpenBackend(cfg.Storage.Path, false)
	if err != nil {
		return fmt.Errorf("failed to open run store: %w", err)
	}
	defer backend.Close()
	runs := badger.NewRunRepository(backend)
	defer runs.Close()

	if id := c.String("run"); id != "" {
		report, err := runs.GetRun(c.Context, id)
		if err != nil {
			return fmt.Errorf("run %s: %w", id, err)
		}
		printReport(c.App.Writer, report, true)
		return nil
	}

	reports, err := runs.ListRuns(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		fmt.Fprintln(c.App.Writer, "No runs recorded")
		return nil
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tDURATION\tOUTCOME\tROWS\tOK\tFAILED\tINSERTED")
	for _, r := range reports {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			r.RunID, r.StartedAt.Local().Format(time.DateTime), r.Duration().Round(time.Millisecond),
			r.Outcome, r.TotalRows, r.Succeeded, len(r.Failed), r.Inserted)
	}
	return tw.Flush()
}

func configCommand(c *cli.Context) error {
	cfg := *loadedConfig(c)
	if cfg.Mapping.APIKey != "" {
		cfg.Mapping.APIKey = "********"
	}
	if cfg.Storage.DSN != "" {
		cfg.Storage.DSN = "********"
	}
	enc := yaml.NewEncoder(c.App.Writer)
	enc.SetIndent(2)
	if err := enc.Encode(&cfg); err != nil {
		return err
	}
	return enc.Close()
}

func printReport(w io.Writer, r *core.RunReport, detailed bool) {
	fmt.Fprintf(w, "Run: %s\n", r.RunID)
	fmt.Fprintf(w, "Outcome: %s (%s)\n", r.Outcome, r.Duration().Round(time.Millisecond))
	fmt.Fprintf(w, "Rows: %d total, %d mapped, %d failed\n", r.TotalRows, r.Succeeded, len(r.Failed))
	fmt.Fprintf(w, "Inserted: %d\n", r.Inserted)
	if r.OutputPath != "" {
		fmt.Fprintf(w, "Artifact: %s\n", r.OutputPath)
	}
	if r.Error != "" {
		fmt.Fprintf(w, "Error: %s (in %s)\n", r.Error, r.FinalState)
	}
	if !detailed || len(r.Failed) == 0 {
		return
	}
	fmt.Fprintln(w, "Failed rows:")
	for _, f := range r.Failed {
		fmt.Fprintf(w, "  row %d [%s, %d attempts]: %s\n", f.RowIndex, f.Phase, f.Attempts, f.Err)
	}
}

func setupLogger(w io.Writer, levelStr string) error {
	var level slog.Level
	switch strings.ToLower(levelStr) {
	case "debug":
		level = slog.LevelDebug
	case "", "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return nil
}
