// Package validate checks structural and safety invariants between the
// committed graph and a merge candidate. A candidate that fails any check is
// discarded wholesale by the caller; there is no partial acceptance.
package validate

import (
	"fmt"

	"flowmap/internal/types"
)

// Bounds caps how much the journey count may move in one cycle. The caps
// guard against a corrupted diff producing runaway growth or shrinkage.
// They are policy constants, kept configurable on purpose.
type Bounds struct {
	MaxJourneysAdded   int
	MaxJourneysRemoved int
}

// DefaultBounds allows +3 added and -1 removed journeys per cycle.
func DefaultBounds() Bounds {
	return Bounds{MaxJourneysAdded: 3, MaxJourneysRemoved: 1}
}

// Result carries the verdict plus every violation found. Checks do not
// short-circuit (except a missing top-level shape), so one run reports all
// problems at once.
type Result struct {
	OK     bool
	Errors []string
}

// Validate runs all invariant checks on candidate against previous.
func Validate(previous, candidate *types.Graph, bounds Bounds) Result {
	var errs []string

	// Top-level shape. Without it none of the other checks can run.
	if candidate == nil || candidate.Journeys == nil {
		return Result{OK: false, Errors: []string{"candidate graph has no journey list"}}
	}

	errs = append(errs, checkJourneyDelta(previous, candidate, bounds)...)
	errs = append(errs, checkJourneyShape(candidate)...)
	errs = append(errs, checkSteps(candidate)...)
	errs = append(errs, checkPersistence(previous, candidate)...)

	return Result{OK: len(errs) == 0, Errors: errs}
}

func checkJourneyDelta(previous, candidate *types.Graph, bounds Bounds) []string {
	prevIDs := journeyIDSet(previous)
	candIDs := journeyIDSet(candidate)

	added, removed := 0, 0
	for id := range candIDs {
		if _, ok := prevIDs[id]; !ok {
			added++
		}
	}
	for id := range prevIDs {
		if _, ok := candIDs[id]; !ok {
			removed++
		}
	}

	var errs []string
	if added > bounds.MaxJourneysAdded {
		errs = append(errs, fmt.Sprintf("journey count delta +%d exceeds allowed +%d", added, bounds.MaxJourneysAdded))
	}
	if removed > bounds.MaxJourneysRemoved {
		errs = append(errs, fmt.Sprintf("journey count delta -%d exceeds allowed -%d", removed, bounds.MaxJourneysRemoved))
	}
	return errs
}

func checkJourneyShape(candidate *types.Graph) []string {
	var errs []string
	for i, j := range candidate.Journeys {
		if j.ID == "" {
			errs = append(errs, fmt.Sprintf("journey[%d] has no id", i))
		}
		if j.Name == "" {
			errs = append(errs, fmt.Sprintf("journey %q has no name", j.ID))
		}
		if j.Description == "" {
			errs = append(errs, fmt.Sprintf("journey %q has no description", j.ID))
		}
		if j.Steps == nil {
			errs = append(errs, fmt.Sprintf("journey %q has no step list", j.ID))
		}
	}
	return errs
}

func checkSteps(candidate *types.Graph) []string {
	var errs []string
	for _, j := range candidate.Journeys {
		ids := make(map[string]struct{}, len(j.Steps))
		for _, s := range j.Steps {
			if s.ID == "" {
				errs = append(errs, fmt.Sprintf("journey %q contains a step with no id", j.ID))
				continue
			}
			if _, dup := ids[s.ID]; dup {
				errs = append(errs, fmt.Sprintf("journey %q has duplicate step id %q", j.ID, s.ID))
			}
			ids[s.ID] = struct{}{}

			if s.Label == "" {
				errs = append(errs, fmt.Sprintf("step %q has no label", s.ID))
			}
			if s.SourceEntity == "" {
				errs = append(errs, fmt.Sprintf("step %q has no source entity", s.ID))
			}
			if !s.Category.Valid() {
				errs = append(errs, fmt.Sprintf("step %q has invalid category %q", s.ID, s.Category))
			}
			if len(s.EdgeLabels) > len(s.OutgoingIDs) {
				errs = append(errs, fmt.Sprintf("step %q has %d edge labels for %d outgoing edges", s.ID, len(s.EdgeLabels), len(s.OutgoingIDs)))
			}
		}
		// References stay inside the journey.
		for _, s := range j.Steps {
			for _, out := range s.OutgoingIDs {
				if _, ok := ids[out]; !ok {
					errs = append(errs, fmt.Sprintf("step %q references %q which does not exist in journey %q", s.ID, out, j.ID))
				}
			}
		}
	}
	return errs
}

// checkPersistence enforces the no-vanish rule: every step id present and
// non-tombstoned in the previous graph must still exist in the candidate,
// tombstoned or not. Full disappearance is never a legitimate outcome.
func checkPersistence(previous, candidate *types.Graph) []string {
	if previous == nil {
		return nil
	}
	candIDs := make(map[string]struct{})
	for _, j := range candidate.Journeys {
		for _, s := range j.Steps {
			candIDs[s.ID] = struct{}{}
		}
	}
	var errs []string
	for _, j := range previous.Journeys {
		for _, s := range j.Steps {
			if s.Tombstoned {
				continue
			}
			if _, ok := candIDs[s.ID]; !ok {
				errs = append(errs, fmt.Sprintf("step %q (journey %q) vanished from the candidate graph", s.ID, j.ID))
			}
		}
	}
	return errs
}

func journeyIDSet(g *types.Graph) map[string]struct{} {
	out := make(map[string]struct{})
	if g == nil {
		return out
	}
	for _, j := range g.Journeys {
		out[j.ID] = struct{}{}
	}
	return out
}
