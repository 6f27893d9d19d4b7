package scheduler

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowmap/internal/extract"
	"flowmap/internal/merge"
	"flowmap/internal/store"
	"flowmap/internal/types"
)

// fakeScanner replays a scripted sequence of scan results.
type fakeScanner struct {
	results []scanResult
	calls   int
}

type scanResult struct {
	diff types.ScanDiff
	err  error
}

func (f *fakeScanner) Scan(_ context.Context, _ string) (types.ScanDiff, error) {
	i := f.calls
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	f.calls++
	r := f.results[i]
	return r.diff, r.err
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

type harness struct {
	sched  *Scheduler
	graphs *store.MemoryStore
	cursor *store.CursorMemoryStore
	events []Event
	clock  time.Time
}

func newHarness(t *testing.T, scanner *fakeScanner) *harness {
	t.Helper()
	h := &harness{
		graphs: store.NewMemoryStore(),
		cursor: store.NewCursorMemoryStore(),
		clock:  time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
	sched, err := New(Params{
		Scanner: scanner,
		Extract: extract.Parse,
		Merger:  merge.New(nil),
		Graphs:  h.graphs,
		Cursor:  h.cursor,
		Logger:  quietLogger(),
		Notify:  func(ev Event) { h.events = append(h.events, ev) },
	})
	require.NoError(t, err)
	h.sched = sched.WithClock(func() time.Time { return h.clock })
	return h
}

func (h *harness) kinds() []string {
	out := make([]string, len(h.events))
	for i, ev := range h.events {
		out[i] = ev.Kind
	}
	return out
}

func addedFile(path, entity string) types.TrackedFile {
	return types.TrackedFile{
		Path:    path,
		Status:  types.FileAdded,
		Content: "struct " + entity + ": View {\n    var body: some View { Text(\"x\") }\n}\n",
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Params{})
	require.Error(t, err)

	_, err = New(Params{Scanner: &fakeScanner{}})
	require.Error(t, err)

	_, err = New(Params{
		Scanner: &fakeScanner{},
		Graphs:  store.NewMemoryStore(),
		Cursor:  store.NewCursorMemoryStore(),
	})
	require.Error(t, err, "extract function is required")
}

func TestCycleCommit(t *testing.T) {
	scanner := &fakeScanner{results: []scanResult{{
		diff: types.ScanDiff{
			CurrentRevision: "r1",
			Added:           []types.TrackedFile{addedFile("Sources/WelcomeView.swift", "WelcomeView")},
		},
	}}}
	h := newHarness(t, scanner)
	ctx := context.Background()

	st, err := h.sched.RunOnce(ctx)
	require.NoError(t, err)

	assert.Equal(t, StatusRunning, st.Status)
	assert.Equal(t, "r1", st.LastRevision)
	assert.Equal(t, 1, st.UpdatesApplied)
	assert.Equal(t, 1, st.PendingReviewTotal)
	assert.Zero(t, st.ConsecutiveErrors)
	assert.Equal(t, []string{"commit"}, h.kinds())

	rev, err := h.cursor.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r1", rev)

	g, err := h.graphs.Load(ctx)
	require.NoError(t, err)
	require.Len(t, g.Journeys, 1)
	require.Len(t, g.Journeys[0].Steps, 1)
	assert.Equal(t, "WelcomeView", g.Journeys[0].Steps[0].SourceEntity)
}

func TestCycleNoopAdvancesCursor(t *testing.T) {
	scanner := &fakeScanner{results: []scanResult{{
		diff: types.ScanDiff{CurrentRevision: "r2"},
	}}}
	h := newHarness(t, scanner)
	require.NoError(t, h.cursor.Save(context.Background(), "r1"))

	st, err := h.sched.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "r2", st.LastRevision)
	assert.Zero(t, st.UpdatesApplied)
	assert.Equal(t, []string{"noop"}, h.kinds())

	rev, err := h.cursor.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "r2", rev, "empty diff still advances the cursor")

	g, err := h.graphs.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, g.Journeys, "noop cycles never touch the graph")
}

func TestCycleScanFailure(t *testing.T) {
	scanner := &fakeScanner{results: []scanResult{{err: errors.New("repo unreachable")}}}
	h := newHarness(t, scanner)
	require.NoError(t, h.cursor.Save(context.Background(), "r1"))

	st, err := h.sched.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, st.ConsecutiveErrors)
	assert.Equal(t, StatusRunning, st.Status)
	assert.Equal(t, []string{"failure"}, h.kinds())

	rev, err := h.cursor.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "r1", rev, "failed cycles never move the cursor")
}

func TestConsecutiveFailuresPause(t *testing.T) {
	scanner := &fakeScanner{results: []scanResult{{err: errors.New("boom")}}}
	h := newHarness(t, scanner)

	st := State{Status: StatusRunning, PollInterval: "30s"}
	for i := 0; i < maxConsecutiveErrors; i++ {
		st = h.sched.RunCycle(context.Background(), st)
	}

	assert.Equal(t, StatusPaused, st.Status)
	assert.Equal(t, maxConsecutiveErrors, st.ConsecutiveErrors)
	assert.Equal(t, h.clock.Add(defaultCooldown), st.PausedUntil)
	assert.Equal(t, "paused", h.kinds()[len(h.kinds())-1])

	// While paused, cycles are skipped entirely.
	calls := scanner.calls
	st = h.sched.RunCycle(context.Background(), st)
	assert.Equal(t, StatusPaused, st.Status)
	assert.Equal(t, calls, scanner.calls, "a paused scheduler must not scan")
}

func TestPauseResumeAfterCooldown(t *testing.T) {
	scanner := &fakeScanner{results: []scanResult{
		{err: errors.New("boom")},
		{diff: types.ScanDiff{CurrentRevision: "r1"}},
	}}
	h := newHarness(t, scanner)

	st := State{Status: StatusRunning}
	st = h.sched.RunCycle(context.Background(), st)
	require.Equal(t, 1, st.ConsecutiveErrors)

	// Push straight into the paused state.
	for i := 0; i < maxConsecutiveErrors-1; i++ {
		scanner.calls = 0 // keep replaying the failing result
		st = h.sched.RunCycle(context.Background(), st)
	}
	require.Equal(t, StatusPaused, st.Status)

	// Advance past the cooldown; the next cycle resumes and succeeds.
	h.clock = st.PausedUntil.Add(time.Second)
	scanner.calls = 1 // next replay returns the clean result
	st = h.sched.RunCycle(context.Background(), st)

	assert.Equal(t, StatusRunning, st.Status)
	assert.Zero(t, st.ConsecutiveErrors)
	assert.True(t, st.PausedUntil.IsZero())
	kinds := h.kinds()
	assert.Equal(t, "resumed", kinds[len(kinds)-2])
	assert.Equal(t, "noop", kinds[len(kinds)-1])
}

func TestCyclePanicRecovered(t *testing.T) {
	scanner := &fakeScanner{results: []scanResult{{
		diff: types.ScanDiff{
			CurrentRevision: "r1",
			Added:           []types.TrackedFile{addedFile("A.swift", "AView")},
		},
	}}}
	h := newHarness(t, scanner)
	h.sched.p.Extract = func(string, string) (*types.Descriptor, bool) {
		panic("extractor bug")
	}

	st := h.sched.RunCycle(context.Background(), State{Status: StatusRunning})
	assert.Equal(t, 1, st.ConsecutiveErrors)
	require.Equal(t, []string{"failure"}, h.kinds())
	assert.Contains(t, h.events[0].Errors[0], "extractor bug")
}

func TestCycleValidationReject(t *testing.T) {
	// Four files under four distinct prefixes force +4 journeys in one
	// cycle, which the default bounds reject.
	rules := []merge.JourneyRule{
		{PathPrefix: "a", JourneyID: "a", Name: "A"},
		{PathPrefix: "b", JourneyID: "b", Name: "B"},
		{PathPrefix: "c", JourneyID: "c", Name: "C"},
		{PathPrefix: "d", JourneyID: "d", Name: "D"},
	}
	scanner := &fakeScanner{results: []scanResult{{
		diff: types.ScanDiff{
			CurrentRevision: "r1",
			Added: []types.TrackedFile{
				addedFile("a/AView.swift", "AView"),
				addedFile("b/BView.swift", "BView"),
				addedFile("c/CView.swift", "CView"),
				addedFile("d/DView.swift", "DView"),
			},
		},
	}}}
	h := newHarness(t, scanner)
	h.sched.p.Merger = merge.New(rules)

	st := h.sched.RunCycle(context.Background(), State{Status: StatusRunning})

	assert.Equal(t, 1, st.ConsecutiveErrors)
	assert.Empty(t, st.LastRevision, "rejected cycles never move the cursor")

	g, err := h.graphs.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, g.Journeys, "rejected candidates are never persisted")

	require.Equal(t, []string{"failure"}, h.kinds())
	assert.NotEmpty(t, h.events[0].Errors)
	assert.Contains(t, h.events[0].Errors[0], "exceeds allowed")
}

func TestCursorNeverRegresses(t *testing.T) {
	scanner := &fakeScanner{results: []scanResult{
		{diff: types.ScanDiff{
			CurrentRevision: "r1",
			Added:           []types.TrackedFile{addedFile("A.swift", "AView")},
		}},
		{err: errors.New("transient")},
		{diff: types.ScanDiff{CurrentRevision: "r1"}},
	}}
	h := newHarness(t, scanner)
	ctx := context.Background()

	st := h.sched.RunCycle(ctx, State{Status: StatusRunning})
	require.Equal(t, "r1", st.LastRevision)

	st = h.sched.RunCycle(ctx, st)
	rev, err := h.cursor.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r1", rev)

	st = h.sched.RunCycle(ctx, st)
	assert.Equal(t, "r1", st.LastRevision)
	assert.Zero(t, st.ConsecutiveErrors, "a clean cycle resets the error counter")
}

func TestWakeCoalesces(t *testing.T) {
	scanner := &fakeScanner{results: []scanResult{{diff: types.ScanDiff{CurrentRevision: "r1"}}}}
	h := newHarness(t, scanner)

	h.sched.Wake()
	h.sched.Wake()
	h.sched.Wake()

	select {
	case <-h.sched.wake:
	default:
		t.Fatal("expected one pending wake-up")
	}
	select {
	case <-h.sched.wake:
		t.Fatal("wake-ups must coalesce into one")
	default:
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	scanner := &fakeScanner{results: []scanResult{{diff: types.ScanDiff{CurrentRevision: "r1"}}}}
	h := newHarness(t, scanner)
	h.sched.p.Interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.sched.Run(ctx) }()

	h.sched.Wake()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancellation")
	}

	assert.Equal(t, "r1", h.sched.Status().LastRevision)
}
