package export

import (
	"fmt"
	"strings"

	"flowmap/internal/types"
)

// Markdown renders a human-readable report of the graph: one section per
// journey with a step table and per-journey review/tombstone tallies.
func Markdown(g *types.Graph) string {
	var b strings.Builder
	b.WriteString("# Workflow graph\n")
	if g == nil {
		return b.String()
	}
	if !g.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "\nGenerated: %s\n", g.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	}
	for _, j := range g.Journeys {
		fmt.Fprintf(&b, "\n## %s\n\n", j.Name)
		if j.Description != "" {
			fmt.Fprintf(&b, "%s\n\n", j.Description)
		}
		b.WriteString("| Step | Category | Source | Outgoing | Flags |\n")
		b.WriteString("|------|----------|--------|----------|-------|\n")
		review, tombstones := 0, 0
		for _, s := range j.Steps {
			var flags []string
			if s.Tombstoned {
				flags = append(flags, "tombstoned")
				tombstones++
			}
			if s.NeedsReview {
				flags = append(flags, "needs review")
				review++
			}
			fmt.Fprintf(&b, "| %s | %s | `%s` | %s | %s |\n",
				s.Label, s.Category, s.SourceFile,
				strings.Join(s.OutgoingIDs, ", "), strings.Join(flags, ", "))
		}
		fmt.Fprintf(&b, "\n%d steps, %d pending review, %d tombstoned\n", len(j.Steps), review, tombstones)
	}
	return b.String()
}
