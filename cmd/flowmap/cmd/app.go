package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"

	"flowmap/internal/config"
	"flowmap/internal/export"
	"flowmap/internal/extract"
	"flowmap/internal/merge"
	"flowmap/internal/scan"
	"flowmap/internal/scheduler"
	"flowmap/internal/snapshot"
	"flowmap/internal/store"
	"flowmap/internal/validate"
)

// app bundles the wired pipeline shared by the run and sync commands.
type app struct {
	cfg     *config.Config
	logger  *log.Logger
	graphs  *store.DiskStore
	cursor  *store.CursorDiskStore
	snaps   *snapshot.DiskSnapshotter
	sched   *scheduler.Scheduler
	relay   *notifyRelay
	closers []io.Closer
}

// notifyRelay lets the status server subscribe to scheduler events after
// the scheduler has been constructed.
type notifyRelay struct {
	target func(scheduler.Event)
}

func (r *notifyRelay) publish(ev scheduler.Event) {
	if r.target != nil {
		r.target(ev)
	}
}

func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := log.New(log.Writer(), "flowmap ", log.LstdFlags|log.Lmsgprefix)

	a := &app{
		cfg:    cfg,
		logger: logger,
		graphs: store.NewDiskStore(filepath.Join(cfg.DataDir, "graph.json")),
		cursor: store.NewCursorDiskStore(filepath.Join(cfg.DataDir, "cursor")),
		relay:  &notifyRelay{},
	}

	a.snaps, err = snapshot.New(cfg.BackupDir, cfg.BackupKeep)
	if err != nil {
		return nil, err
	}
	if cfg.S3.Endpoint != "" {
		sink, err := snapshot.NewS3Sink(cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("configure s3 mirror: %w", err)
		}
		a.snaps.WithMirror(sink)
	}

	var exporters []export.Exporter
	if cfg.MermaidPath != "" {
		exporters = append(exporters, export.NewFileExporter(cfg.MermaidPath, export.FormatMermaid))
	}
	if cfg.MarkdownPath != "" {
		exporters = append(exporters, export.NewFileExporter(cfg.MarkdownPath, export.FormatMarkdown))
	}
	if cfg.PostgresDSN != "" {
		mirror, err := export.NewPostgresMirror(ctx, cfg.PostgresDSN, "current")
		if err != nil {
			return nil, fmt.Errorf("configure postgres mirror: %w", err)
		}
		exporters = append(exporters, mirror)
		a.closers = append(a.closers, mirror)
	}

	a.sched, err = scheduler.New(scheduler.Params{
		Scanner: scan.NewGitScanner(cfg.SourcePath, cfg.AllowPatterns),
		Extract: extract.New().Parse,
		Merger:  merge.New(cfg.JourneyRules),
		Bounds: validate.Bounds{
			MaxJourneysAdded:   cfg.MaxJourneysAdded,
			MaxJourneysRemoved: cfg.MaxJourneysRemoved,
		},
		Graphs:    a.graphs,
		Cursor:    a.cursor,
		Snapshots: a.snaps,
		Exporters: exporters,
		Interval:  cfg.PollInterval.Std(),
		Cooldown:  cfg.Cooldown.Std(),
		Logger:    logger,
		Notify:    a.relay.publish,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) close() {
	for _, c := range a.closers {
		_ = c.Close()
	}
}
