package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"flowmap/internal/safeio"
	"flowmap/internal/types"
	"flowmap/internal/util/jsonutil"
)

// DiskStore keeps the graph document as a JSON file on local disk. Writes
// go through safeio.WriteFileAtomic.
type DiskStore struct {
	graphPath string

	mu sync.Mutex
}

func NewDiskStore(graphPath string) *DiskStore {
	return &DiskStore{graphPath: graphPath}
}

// GraphPath returns the location of the graph document.
func (s *DiskStore) GraphPath() string {
	if s == nil {
		return ""
	}
	return s.graphPath
}

func (s *DiskStore) Load(_ context.Context) (*types.Graph, error) {
	if s == nil {
		return types.NewGraph(), nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.graphPath)
	if err != nil {
		if os.IsNotExist(err) {
			return types.NewGraph(), nil
		}
		return nil, fmt.Errorf("read graph document: %w", err)
	}
	var g types.Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("unmarshal graph document: %w", err)
	}
	if g.Journeys == nil {
		g.Journeys = []types.Journey{}
	}
	return &g, nil
}

func (s *DiskStore) Save(_ context.Context, g *types.Graph) error {
	if s == nil || g == nil {
		return nil
	}
	data, err := jsonutil.MarshalNoEscapeIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal graph document: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return safeio.WriteFileAtomic(s.graphPath, data, 0o644)
}

// CursorDiskStore persists the revision cursor as a single-line file.
type CursorDiskStore struct {
	path string
	mu   sync.Mutex
}

func NewCursorDiskStore(path string) *CursorDiskStore {
	return &CursorDiskStore{path: path}
}

func (s *CursorDiskStore) Load(_ context.Context) (string, error) {
	if s == nil {
		return "", nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read cursor: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *CursorDiskStore) Save(_ context.Context, revision string) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return safeio.WriteFileAtomic(s.path, []byte(revision+"\n"), 0o644)
}
