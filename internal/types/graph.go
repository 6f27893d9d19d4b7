package types

import "time"

// FormatVersion is the current schema version of the persisted graph document.
const FormatVersion = 2

// Category classifies a step by the primary way a user experiences it.
type Category string

const (
	CategoryAction   Category = "action"
	CategoryDisplay  Category = "display"
	CategoryDecision Category = "decision"
	CategoryInput    Category = "input"
	CategorySystem   Category = "system"
)

// Categories lists every valid category in a stable order.
var Categories = []Category{
	CategoryAction,
	CategoryDisplay,
	CategoryDecision,
	CategoryInput,
	CategorySystem,
}

// Valid reports whether c is one of the enumerated categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryAction, CategoryDisplay, CategoryDecision, CategoryInput, CategorySystem:
		return true
	}
	return false
}

// Step is one structural unit of a journey, corresponding to a single
// source-defined screen. Steps are tombstoned rather than deleted so the
// graph keeps its history.
type Step struct {
	ID string `json:"id"`
	// Label is the human-readable name shown by the editor.
	Label string `json:"label"`
	// SourceEntity is the defining entity name extracted from the source
	// file; edge targets resolve against it.
	SourceEntity string   `json:"sourceField"`
	Category     Category `json:"category"`
	// OutgoingIDs reference step ids within the same journey only.
	OutgoingIDs []string `json:"outgoingIds"`
	// EdgeLabels are positional: index i labels the edge to OutgoingIDs[i].
	// Never longer than OutgoingIDs.
	EdgeLabels []string `json:"edgeLabels,omitempty"`
	SourceFile string   `json:"sourceFile"`
	// Tombstoned is monotonic: once true it is never cleared.
	Tombstoned  bool `json:"tombstoned,omitempty"`
	NeedsReview bool `json:"needsReview,omitempty"`
}

// Journey groups the steps of one end-to-end user scenario.
type Journey struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Steps       []Step `json:"nodes"`
}

// Graph is the persisted workflow graph document.
type Graph struct {
	FormatVersion int       `json:"formatVersion"`
	GeneratedAt   time.Time `json:"generatedAt"`
	Journeys      []Journey `json:"containers"`
}

// NewGraph returns an empty graph at the current format version.
func NewGraph() *Graph {
	return &Graph{FormatVersion: FormatVersion, Journeys: []Journey{}}
}

// Clone returns a deep copy. The merger works on a clone so the committed
// graph is never mutated by a cycle that later fails validation.
func (g *Graph) Clone() *Graph {
	if g == nil {
		return NewGraph()
	}
	out := &Graph{
		FormatVersion: g.FormatVersion,
		GeneratedAt:   g.GeneratedAt,
		Journeys:      make([]Journey, len(g.Journeys)),
	}
	for i, j := range g.Journeys {
		cj := j
		cj.Steps = make([]Step, len(j.Steps))
		for k, s := range j.Steps {
			cs := s
			// Keep outgoingIds a list on the wire even when empty.
			cs.OutgoingIDs = append([]string{}, s.OutgoingIDs...)
			cs.EdgeLabels = append([]string(nil), s.EdgeLabels...)
			cj.Steps[k] = cs
		}
		out.Journeys[i] = cj
	}
	return out
}

// Journey returns the journey with the given id, or nil.
func (g *Graph) Journey(id string) *Journey {
	if g == nil {
		return nil
	}
	for i := range g.Journeys {
		if g.Journeys[i].ID == id {
			return &g.Journeys[i]
		}
	}
	return nil
}

// Step returns the step with the given id, or nil.
func (j *Journey) Step(id string) *Step {
	if j == nil {
		return nil
	}
	for i := range j.Steps {
		if j.Steps[i].ID == id {
			return &j.Steps[i]
		}
	}
	return nil
}

// StepBySourceFile locates the step tracking the given source path.
// Returns the owning journey and the step, or nils.
func (g *Graph) StepBySourceFile(path string) (*Journey, *Step) {
	if g == nil {
		return nil, nil
	}
	for i := range g.Journeys {
		for k := range g.Journeys[i].Steps {
			if g.Journeys[i].Steps[k].SourceFile == path {
				return &g.Journeys[i], &g.Journeys[i].Steps[k]
			}
		}
	}
	return nil, nil
}

// StepByEntity locates the first step whose source entity or label matches
// name, scanning journeys and steps in document order.
func (g *Graph) StepByEntity(name string) (*Journey, *Step) {
	if g == nil || name == "" {
		return nil, nil
	}
	for i := range g.Journeys {
		for k := range g.Journeys[i].Steps {
			s := &g.Journeys[i].Steps[k]
			if s.SourceEntity == name || s.Label == name {
				return &g.Journeys[i], s
			}
		}
	}
	return nil, nil
}

// StepIDs returns every step id in the graph, in document order.
func (g *Graph) StepIDs() []string {
	if g == nil {
		return nil
	}
	var out []string
	for i := range g.Journeys {
		for k := range g.Journeys[i].Steps {
			out = append(out, g.Journeys[i].Steps[k].ID)
		}
	}
	return out
}
