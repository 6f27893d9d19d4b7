// Package snapshot copies persisted graph documents to timestamped backups
// and compares them. Snapshots are best-effort: a failed snapshot is logged
// by the caller and never blocks a cycle from committing.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"flowmap/internal/safeio"
	"flowmap/internal/types"
	"flowmap/internal/util/jsonutil"
)

const stampLayout = "20060102T150405Z"

// Sink receives a serialized snapshot. DiskSnapshotter is the primary sink;
// an S3 sink can be attached for off-host copies.
type Sink interface {
	Store(ctx context.Context, name string, data []byte) error
}

// DiskSnapshotter writes timestamped graph snapshots under a backup
// directory and prunes old ones.
type DiskSnapshotter struct {
	fs     *safeio.SafeFS
	keep   int
	now    func() time.Time
	mirror Sink // optional secondary sink, best effort
}

// New creates a snapshotter rooted at dir, retaining at most keep snapshots
// on disk (0 means unlimited).
func New(dir string, keep int) (*DiskSnapshotter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot: mkdir %s: %w", dir, err)
	}
	fs, err := safeio.NewSafeFS(dir)
	if err != nil {
		return nil, err
	}
	return &DiskSnapshotter{fs: fs, keep: keep, now: time.Now}, nil
}

// WithMirror attaches a secondary sink (e.g. S3). Mirror failures are
// returned wrapped but the disk copy has already been written.
func (s *DiskSnapshotter) WithMirror(m Sink) *DiskSnapshotter {
	s.mirror = m
	return s
}

// Take persists one snapshot of the graph as it was at the given revision.
func (s *DiskSnapshotter) Take(ctx context.Context, g *types.Graph, revision string) error {
	if s == nil || g == nil {
		return nil
	}
	data, err := jsonutil.MarshalNoEscapeIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot: marshal graph: %w", err)
	}
	name := fmt.Sprintf("graph-%s-%s.json", s.now().UTC().Format(stampLayout), shortRev(revision))
	if err := s.fs.WriteFileAtomic(name, data, 0o644); err != nil {
		return err
	}
	s.prune()
	if s.mirror != nil {
		if err := s.mirror.Store(ctx, name, data); err != nil {
			return fmt.Errorf("snapshot: mirror %s: %w", name, err)
		}
	}
	return nil
}

// List returns snapshot file names, oldest first.
func (s *DiskSnapshotter) List() ([]string, error) {
	entries, err := s.fs.ReadDir(".")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Load reads one snapshot back as a graph document.
func (s *DiskSnapshotter) Load(name string) (*types.Graph, error) {
	data, err := s.fs.ReadFile(name)
	if err != nil {
		return nil, err
	}
	var g types.Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("snapshot: unmarshal %s: %w", name, err)
	}
	return &g, nil
}

func (s *DiskSnapshotter) prune() {
	if s.keep <= 0 {
		return
	}
	names, err := s.List()
	if err != nil || len(names) <= s.keep {
		return
	}
	for _, name := range names[:len(names)-s.keep] {
		_ = os.Remove(filepath.Join(s.fs.Root(), name))
	}
}

func shortRev(revision string) string {
	if revision == "" {
		return "none"
	}
	if len(revision) > 12 {
		return revision[:12]
	}
	return revision
}
