package snapshot

import (
	"fmt"
	"sort"
	"strings"

	"flowmap/internal/types"
)

// Diff compares two graph documents structurally and renders a line-based
// report: journeys and steps added or gone, steps tombstoned, edge changes.
// Output is deterministic so successive reports can themselves be diffed.
func Diff(before, after *types.Graph) string {
	var b strings.Builder

	beforeJourneys := journeyMap(before)
	afterJourneys := journeyMap(after)

	for _, id := range sortedKeys(afterJourneys) {
		if _, ok := beforeJourneys[id]; !ok {
			fmt.Fprintf(&b, "+ journey %s (%s)\n", id, afterJourneys[id].Name)
		}
	}
	for _, id := range sortedKeys(beforeJourneys) {
		if _, ok := afterJourneys[id]; !ok {
			fmt.Fprintf(&b, "- journey %s (%s)\n", id, beforeJourneys[id].Name)
		}
	}

	beforeSteps := stepMap(before)
	afterSteps := stepMap(after)

	for _, id := range sortedKeys(afterSteps) {
		sa := afterSteps[id]
		sb, existed := beforeSteps[id]
		switch {
		case !existed:
			fmt.Fprintf(&b, "+ step %s (%s, %s)\n", id, sa.Label, sa.Category)
		case !sb.Tombstoned && sa.Tombstoned:
			fmt.Fprintf(&b, "~ step %s tombstoned\n", id)
		case !equalStrings(sb.OutgoingIDs, sa.OutgoingIDs):
			fmt.Fprintf(&b, "~ step %s edges %v -> %v\n", id, sb.OutgoingIDs, sa.OutgoingIDs)
		}
	}
	for _, id := range sortedKeys(beforeSteps) {
		if _, ok := afterSteps[id]; !ok {
			fmt.Fprintf(&b, "- step %s (vanished)\n", id)
		}
	}

	if b.Len() == 0 {
		return "no structural changes\n"
	}
	return b.String()
}

func journeyMap(g *types.Graph) map[string]types.Journey {
	out := make(map[string]types.Journey)
	if g == nil {
		return out
	}
	for _, j := range g.Journeys {
		out[j.ID] = j
	}
	return out
}

func stepMap(g *types.Graph) map[string]types.Step {
	out := make(map[string]types.Step)
	if g == nil {
		return out
	}
	for _, j := range g.Journeys {
		for _, s := range j.Steps {
			out[s.ID] = s
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
