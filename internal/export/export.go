// Package export renders the persisted graph document into side formats
// consumed outside the pipeline. Exports run after a cycle commits and are
// best-effort: failure is logged by the caller, never fatal.
package export

import (
	"context"
	"fmt"

	"flowmap/internal/safeio"
	"flowmap/internal/types"
)

// Exporter is one side-export target.
type Exporter interface {
	Name() string
	Export(ctx context.Context, g *types.Graph) error
}

// Format selects a text rendering.
type Format string

const (
	FormatMermaid  Format = "mermaid"
	FormatMarkdown Format = "markdown"
)

// Render produces the textual form of a graph in the given format.
func Render(g *types.Graph, format Format) (string, error) {
	switch format {
	case FormatMermaid:
		return Mermaid(g), nil
	case FormatMarkdown:
		return Markdown(g), nil
	}
	return "", fmt.Errorf("unknown export format %q", format)
}

// FileExporter renders to a file on each commit.
type FileExporter struct {
	path   string
	format Format
}

func NewFileExporter(path string, format Format) *FileExporter {
	return &FileExporter{path: path, format: format}
}

func (e *FileExporter) Name() string { return string(e.format) + " file" }

func (e *FileExporter) Export(_ context.Context, g *types.Graph) error {
	if e == nil || g == nil {
		return nil
	}
	text, err := Render(g, e.format)
	if err != nil {
		return err
	}
	return safeio.WriteFileAtomic(e.path, []byte(text), 0o644)
}
