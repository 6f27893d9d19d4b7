// Package scan detects which tracked source files changed since the last
// processed revision. It is a pure read over the source tree: a scan never
// mutates repository state.
package scan

import (
	"context"

	"flowmap/internal/types"
)

// Scanner produces the change set between a previously processed revision
// and the source tree's current revision.
//
// Implementations must treat an empty lastRevision, or one equal to the
// current revision, as a no-op fast path returning an empty diff. Failures
// are fatal for the calling cycle and are never retried inline.
type Scanner interface {
	Scan(ctx context.Context, lastRevision string) (types.ScanDiff, error)
}
