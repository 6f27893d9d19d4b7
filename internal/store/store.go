// Package store persists the graph document and the revision cursor.
//
// Both are written via atomic replace-on-success: a failed cycle leaves the
// previously committed state entirely untouched, and a crash mid-write never
// produces a partially written file.
package store

import (
	"context"

	"flowmap/internal/types"
)

// GraphStore persists the workflow graph document.
type GraphStore interface {
	// Load returns the committed graph. A store with no document yet
	// returns an empty graph, not an error.
	Load(ctx context.Context) (*types.Graph, error)
	// Save commits a validated candidate graph.
	Save(ctx context.Context, g *types.Graph) error
}

// CursorStore persists the last fully processed source-tree revision.
type CursorStore interface {
	// Load returns the cursor, or "" when none has been written.
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, revision string) error
}
