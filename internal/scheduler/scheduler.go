// Package scheduler drives the synchronization pipeline: scan, extract,
// merge, validate, persist. One cycle runs at a time; state is an explicit
// struct threaded input to output through RunCycle so every transition is
// visible and testable.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"flowmap/internal/export"
	"flowmap/internal/merge"
	"flowmap/internal/scan"
	"flowmap/internal/snapshot"
	"flowmap/internal/store"
	"flowmap/internal/types"
	"flowmap/internal/validate"
)

const (
	// maxConsecutiveErrors failed cycles in a row park the scheduler in a
	// cooldown instead of tight-loop retrying a broken source tree.
	maxConsecutiveErrors = 5

	defaultInterval = 30 * time.Second
	defaultCooldown = 5 * time.Minute
)

// Status is the scheduler's externally visible run state.
type Status string

const (
	StatusRunning Status = "Running"
	StatusPaused  Status = "Paused"
)

// State is the full scheduler state, threaded through each cycle. It also
// serves as the status surface polled by external collaborators.
type State struct {
	Status             Status    `json:"status"`
	LastRevision       string    `json:"lastRevision"`
	LastCheckTime      time.Time `json:"lastCheckTime"`
	LastUpdateTime     time.Time `json:"lastUpdateTime"`
	PollInterval       string    `json:"pollInterval"`
	UpdatesApplied     int       `json:"updatesApplied"`
	PendingReviewTotal int       `json:"pendingReviewTotal"`
	ConsecutiveErrors  int       `json:"consecutiveErrors"`
	PausedUntil        time.Time `json:"pausedUntil,omitempty"`
}

// Event is one cycle's outcome, published to observers (log, websocket
// dashboard, metrics).
type Event struct {
	Kind        string    `json:"kind"` // commit | noop | failure | paused | resumed
	Revision    string    `json:"revision,omitempty"`
	Changes     int       `json:"changes,omitempty"`
	ReviewCount int       `json:"reviewCount,omitempty"`
	Errors      []string  `json:"errors,omitempty"`
	At          time.Time `json:"at"`
}

// Params wires the scheduler's collaborators. Scanner, Graphs and Cursor
// are required; everything else has a usable zero value.
type Params struct {
	Scanner   scan.Scanner
	Extract   func(path, content string) (*types.Descriptor, bool)
	Merger    *merge.Merger
	Bounds    validate.Bounds
	Graphs    store.GraphStore
	Cursor    store.CursorStore
	Snapshots *snapshot.DiskSnapshotter
	Exporters []export.Exporter

	Interval time.Duration
	Cooldown time.Duration
	Logger   *log.Logger
	Notify   func(Event)
}

// Scheduler owns the polling loop. All mutable cycle state lives in State;
// the struct itself only holds wiring plus the published copy for Status().
type Scheduler struct {
	p   Params
	now func() time.Time

	wake chan struct{}

	mu    sync.RWMutex
	state State
}

func New(p Params) (*Scheduler, error) {
	if p.Scanner == nil {
		return nil, fmt.Errorf("scheduler: scanner is required")
	}
	if p.Graphs == nil || p.Cursor == nil {
		return nil, fmt.Errorf("scheduler: graph and cursor stores are required")
	}
	if p.Extract == nil {
		return nil, fmt.Errorf("scheduler: extract function is required")
	}
	if p.Merger == nil {
		p.Merger = merge.New(nil)
	}
	if p.Bounds == (validate.Bounds{}) {
		p.Bounds = validate.DefaultBounds()
	}
	if p.Interval <= 0 {
		p.Interval = defaultInterval
	}
	if p.Cooldown <= 0 {
		p.Cooldown = defaultCooldown
	}
	if p.Logger == nil {
		p.Logger = log.Default()
	}
	return &Scheduler{p: p, now: time.Now, wake: make(chan struct{}, 1)}, nil
}

// WithClock replaces the time source for tests.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Status returns a copy of the most recently published state.
func (s *Scheduler) Status() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Wake requests an early cycle (e.g. from the source-tree watcher). It
// never blocks and coalesces with a pending wake-up.
func (s *Scheduler) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run executes cycles at the configured interval until ctx is cancelled.
// Cycles never overlap: the loop is strictly sequential, and a wake-up
// arriving mid-cycle only schedules the next one.
func (s *Scheduler) Run(ctx context.Context) error {
	st, err := s.initialState(ctx)
	if err != nil {
		return err
	}
	s.publish(st)

	ticker := time.NewTicker(s.p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-s.wake:
		}
		st = s.RunCycle(ctx, st)
		s.publish(st)
	}
}

// RunOnce executes a single cycle from the persisted cursor and returns the
// resulting state. Used by the one-shot sync command.
func (s *Scheduler) RunOnce(ctx context.Context) (State, error) {
	st, err := s.initialState(ctx)
	if err != nil {
		return State{}, err
	}
	st = s.RunCycle(ctx, st)
	s.publish(st)
	return st, nil
}

func (s *Scheduler) initialState(ctx context.Context) (State, error) {
	revision, err := s.p.Cursor.Load(ctx)
	if err != nil {
		return State{}, fmt.Errorf("load cursor: %w", err)
	}
	return State{
		Status:       StatusRunning,
		LastRevision: revision,
		PollInterval: s.p.Interval.String(),
	}, nil
}

// RunCycle performs one full synchronization cycle. Any panic inside the
// cycle is caught here and counted as a failure; the scheduler never
// crashes on a bad cycle.
func (s *Scheduler) RunCycle(ctx context.Context, st State) (out State) {
	start := s.now()
	defer func() {
		if r := recover(); r != nil {
			s.p.Logger.Printf("sync: cycle panic recovered: %v", r)
			out = s.fail(st, []string{fmt.Sprintf("panic: %v", r)})
		}
		observeCycle(s.now().Sub(start))
	}()

	st.LastCheckTime = start
	if st.Status == StatusPaused {
		if start.Before(st.PausedUntil) {
			return st
		}
		st.Status = StatusRunning
		st.ConsecutiveErrors = 0
		st.PausedUntil = time.Time{}
		s.p.Logger.Printf("sync: cooldown elapsed, resuming")
		s.emit(Event{Kind: "resumed", At: start})
	}

	diff, err := s.p.Scanner.Scan(ctx, st.LastRevision)
	if err != nil {
		s.p.Logger.Printf("sync: scan failed: %v", err)
		return s.fail(st, []string{err.Error()})
	}

	if diff.Empty() {
		if diff.CurrentRevision != st.LastRevision && diff.CurrentRevision != "" {
			if err := s.p.Cursor.Save(ctx, diff.CurrentRevision); err != nil {
				s.p.Logger.Printf("sync: persist cursor failed: %v", err)
				return s.fail(st, []string{err.Error()})
			}
			st.LastRevision = diff.CurrentRevision
		}
		st.ConsecutiveErrors = 0
		s.emit(Event{Kind: "noop", Revision: st.LastRevision, At: start})
		recordCycle("noop")
		updateGauges(st)
		return st
	}

	descriptors := s.extractAll(ctx, diff)

	previous, err := s.p.Graphs.Load(ctx)
	if err != nil {
		s.p.Logger.Printf("sync: load graph failed: %v", err)
		return s.fail(st, []string{err.Error()})
	}

	result := s.p.Merger.Merge(previous, diff, descriptors)

	verdict := validate.Validate(previous, result.Graph, s.p.Bounds)
	if !verdict.OK {
		for _, e := range verdict.Errors {
			s.p.Logger.Printf("sync: candidate rejected: %s", e)
		}
		return s.fail(st, verdict.Errors)
	}

	// Best-effort snapshot of the graph we are about to replace.
	if s.p.Snapshots != nil {
		if err := s.p.Snapshots.Take(ctx, previous, st.LastRevision); err != nil {
			s.p.Logger.Printf("sync: snapshot failed (continuing): %v", err)
		}
	}

	// Both writes are atomic replace-on-success; a crash between them
	// re-processes one diff, which the merger absorbs idempotently.
	if err := s.p.Graphs.Save(ctx, result.Graph); err != nil {
		s.p.Logger.Printf("sync: persist graph failed: %v", err)
		return s.fail(st, []string{err.Error()})
	}
	if err := s.p.Cursor.Save(ctx, diff.CurrentRevision); err != nil {
		s.p.Logger.Printf("sync: persist cursor failed: %v", err)
		return s.fail(st, []string{err.Error()})
	}

	for _, exp := range s.p.Exporters {
		if err := exp.Export(ctx, result.Graph); err != nil {
			s.p.Logger.Printf("sync: %s export failed (continuing): %v", exp.Name(), err)
		}
	}

	for _, rec := range result.ChangeLog {
		s.p.Logger.Printf("sync: %s %s/%s: %s", rec.Action, rec.JourneyID, rec.StepID, rec.Detail)
	}

	st.LastRevision = diff.CurrentRevision
	st.LastUpdateTime = start
	st.UpdatesApplied += len(result.ChangeLog)
	st.PendingReviewTotal += result.ReviewCount
	st.ConsecutiveErrors = 0

	s.emit(Event{
		Kind:        "commit",
		Revision:    diff.CurrentRevision,
		Changes:     len(result.ChangeLog),
		ReviewCount: result.ReviewCount,
		At:          start,
	})
	recordCycle("commit")
	updateGauges(st)
	return st
}

// extractAll runs descriptor extraction for added and modified files in
// parallel. Extraction is a pure function over independent inputs, so the
// only coordination needed is the result slice.
func (s *Scheduler) extractAll(ctx context.Context, diff types.ScanDiff) map[string]*types.Descriptor {
	files := diff.Changed()
	results := make([]*types.Descriptor, len(files))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, f := range files {
		g.Go(func() error {
			if d, ok := s.p.Extract(f.Path, f.Content); ok {
				results[i] = d
			}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	out := make(map[string]*types.Descriptor, len(files))
	for i, f := range files {
		if results[i] != nil {
			out[f.Path] = results[i]
		}
	}
	return out
}

func (s *Scheduler) fail(st State, errs []string) State {
	st.ConsecutiveErrors++
	recordCycle("failure")
	s.emit(Event{Kind: "failure", Errors: errs, At: s.now()})
	if st.ConsecutiveErrors >= maxConsecutiveErrors {
		st.Status = StatusPaused
		st.PausedUntil = s.now().Add(s.p.Cooldown)
		s.p.Logger.Printf("sync: %d consecutive failures, pausing until %s",
			st.ConsecutiveErrors, st.PausedUntil.Format(time.RFC3339))
		s.emit(Event{Kind: "paused", At: s.now()})
	}
	updateGauges(st)
	return st
}

func (s *Scheduler) publish(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Scheduler) emit(ev Event) {
	if s.p.Notify != nil {
		s.p.Notify(ev)
	}
}
