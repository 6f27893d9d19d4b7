package export

import (
	"fmt"
	"strings"

	"flowmap/internal/types"
)

// Mermaid renders the graph as one mermaid flowchart per journey.
// Tombstoned steps render with a dashed class; needs-review steps carry a
// marker suffix so reviewers can spot them in rendered output.
func Mermaid(g *types.Graph) string {
	var b strings.Builder
	b.WriteString("flowchart TD\n")
	if g == nil {
		return b.String()
	}
	for _, j := range g.Journeys {
		fmt.Fprintf(&b, "  subgraph %s[%s]\n", sanitizeID(j.ID), escapeLabel(j.Name))
		for _, s := range j.Steps {
			label := s.Label
			if s.NeedsReview {
				label += " *"
			}
			fmt.Fprintf(&b, "    %s%s\n", sanitizeID(s.ID), shapeFor(s.Category, label))
		}
		for _, s := range j.Steps {
			for i, out := range s.OutgoingIDs {
				if i < len(s.EdgeLabels) && s.EdgeLabels[i] != "" {
					fmt.Fprintf(&b, "    %s -->|%s| %s\n", sanitizeID(s.ID), escapeLabel(s.EdgeLabels[i]), sanitizeID(out))
				} else {
					fmt.Fprintf(&b, "    %s --> %s\n", sanitizeID(s.ID), sanitizeID(out))
				}
			}
		}
		b.WriteString("  end\n")
	}

	var tombstoned []string
	for _, j := range g.Journeys {
		for _, s := range j.Steps {
			if s.Tombstoned {
				tombstoned = append(tombstoned, sanitizeID(s.ID))
			}
		}
	}
	if len(tombstoned) > 0 {
		b.WriteString("  classDef tombstoned stroke-dasharray: 5 5,opacity:0.5\n")
		fmt.Fprintf(&b, "  class %s tombstoned\n", strings.Join(tombstoned, ","))
	}
	return b.String()
}

// shapeFor picks the mermaid node shape by category: decisions are
// diamonds, inputs are parallelograms, system steps are stadiums.
func shapeFor(c types.Category, label string) string {
	l := escapeLabel(label)
	switch c {
	case types.CategoryDecision:
		return fmt.Sprintf("{%s}", l)
	case types.CategoryInput:
		return fmt.Sprintf("[/%s/]", l)
	case types.CategorySystem:
		return fmt.Sprintf("([%s])", l)
	case types.CategoryAction:
		return fmt.Sprintf(">%s]", l)
	default:
		return fmt.Sprintf("[%s]", l)
	}
}

func sanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' {
			return r
		}
		return '_'
	}, id)
}

func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, `"`, "'")
	s = strings.ReplaceAll(s, "|", "/")
	return s
}
