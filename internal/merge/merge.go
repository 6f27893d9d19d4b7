// Package merge reconciles a scan diff and its extracted descriptors into
// the workflow graph. The merge is three-way and history preserving: files
// appearing add steps, files disappearing tombstone steps, files changing
// recompute edges. Steps are never destroyed.
package merge

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"flowmap/internal/types"
	"flowmap/internal/utils"
)

// UnassignedJourneyID is the catch-all journey for steps whose source path
// matches no prefix rule and that no existing step references.
const UnassignedJourneyID = "unassigned"

// JourneyRule assigns source sub-trees to fixed journeys. Rules are
// evaluated in order; the first prefix match wins.
type JourneyRule struct {
	PathPrefix string `yaml:"pathPrefix"`
	JourneyID  string `yaml:"journeyId"`
	Name       string `yaml:"name"`
}

// Result is the outcome of one merge.
type Result struct {
	// Graph is the candidate. It shares no memory with the input graph.
	Graph *types.Graph
	// ChangeLog is observational only; nothing downstream consumes it.
	ChangeLog []types.ChangeRecord
	// ReviewCount is the number of steps newly flagged for human review.
	ReviewCount int
}

// Merger combines the committed graph with one cycle's changes.
type Merger struct {
	rules []JourneyRule
	now   func() time.Time
	newID func() string
}

func New(rules []JourneyRule) *Merger {
	return &Merger{rules: rules, now: time.Now, newID: uuid.NewString}
}

// WithClock replaces the time source; tests pin it for stable output.
func (m *Merger) WithClock(now func() time.Time) *Merger {
	m.now = now
	return m
}

// Merge never mutates current. Descriptors are keyed by source path and may
// omit entries for files that carried no defining entity.
func (m *Merger) Merge(current *types.Graph, diff types.ScanDiff, descriptors map[string]*types.Descriptor) Result {
	cand := current.Clone()
	cand.FormatVersion = types.FormatVersion

	s := &session{
		merger:      m,
		graph:       cand,
		descriptors: descriptors,
		minter:      utils.NewStepIDMinter(cand.StepIDs()...),
	}

	// Rule-matched paths first, so that by the time a step falls through to
	// referrer-based placement its referrer is already in the graph.
	ruled, unruled := m.splitByRule(diff.Added)
	for _, f := range sortedByPath(ruled) {
		s.applyAdded(f)
	}
	for _, f := range sortedByPath(unruled) {
		s.applyAdded(f)
	}
	for _, f := range sortedByPath(diff.Modified) {
		s.applyModified(f)
	}
	removed := append([]string(nil), diff.Removed...)
	sort.Strings(removed)
	for _, path := range removed {
		s.applyRemoved(path)
	}
	s.reresolveCreated()

	if len(s.changeLog) > 0 {
		cand.GeneratedAt = m.now().UTC()
	}
	return Result{Graph: cand, ChangeLog: s.changeLog, ReviewCount: s.reviewCount}
}

type session struct {
	merger      *Merger
	graph       *types.Graph
	descriptors map[string]*types.Descriptor
	minter      *utils.StepIDMinter
	changeLog   []types.ChangeRecord
	reviewCount int
	// created tracks paths whose step was minted this cycle; their edges are
	// re-resolved once every add has been placed.
	created []string
}

func (m *Merger) splitByRule(files []types.TrackedFile) (ruled, unruled []types.TrackedFile) {
	for _, f := range files {
		matched := false
		for _, rule := range m.rules {
			if pathHasPrefix(f.Path, rule.PathPrefix) {
				matched = true
				break
			}
		}
		if matched {
			ruled = append(ruled, f)
		} else {
			unruled = append(unruled, f)
		}
	}
	return ruled, unruled
}

func (s *session) applyAdded(f types.TrackedFile) {
	desc := s.descriptors[f.Path]
	if desc == nil {
		return
	}
	// Re-delivery guard: a path already tracked by a step is a no-op.
	if _, existing := s.graph.StepBySourceFile(f.Path); existing != nil {
		return
	}
	s.createStep(f.Path, desc)
}

func (s *session) applyModified(f types.TrackedFile) {
	desc := s.descriptors[f.Path]
	if desc == nil {
		return
	}
	journey, step := s.graph.StepBySourceFile(f.Path)
	if step == nil {
		// The file only now grew a defining entity; from the graph's point
		// of view this is an add.
		s.createStep(f.Path, desc)
		return
	}

	next := s.resolveEdges(desc.Edges, journey.ID)
	if equalStrings(step.OutgoingIDs, next) {
		return
	}
	prev := step.OutgoingIDs
	step.OutgoingIDs = next
	// Edge labels are positional, not named: a shrunken edge list keeps
	// only the labels whose index survived.
	if len(step.EdgeLabels) > len(next) {
		step.EdgeLabels = step.EdgeLabels[:len(next)]
	}
	s.record(types.ChangeUpdateEdges, journey.ID, step.ID,
		fmt.Sprintf("outgoing edges of %q changed from %v to %v", step.SourceEntity, prev, next))
}

func (s *session) applyRemoved(path string) {
	journey, step := s.graph.StepBySourceFile(path)
	if step == nil || step.Tombstoned {
		return
	}
	step.Tombstoned = true
	s.record(types.ChangeDeprecate, journey.ID, step.ID,
		fmt.Sprintf("source %s removed; step %q tombstoned", path, step.SourceEntity))
}

func (s *session) createStep(path string, desc *types.Descriptor) {
	journeyID := s.chooseJourney(path, desc)
	step := types.Step{
		ID:           s.minter.Mint(desc.SourceEntity),
		Label:        utils.HumanizeEntity(desc.SourceEntity),
		SourceEntity: desc.SourceEntity,
		Category:     desc.Category,
		OutgoingIDs:  s.resolveEdges(desc.Edges, journeyID),
		SourceFile:   path,
		NeedsReview:  true,
	}
	j := s.graph.Journey(journeyID)
	j.Steps = append(j.Steps, step)
	s.created = append(s.created, path)
	s.reviewCount++
	s.record(types.ChangeAdd, journeyID, step.ID,
		fmt.Sprintf("added step %q from %s", desc.SourceEntity, path))
}

// reresolveCreated recomputes outgoing edges for steps minted this cycle.
// Mutual references between files added together resolve in neither
// direction during placement; with every step placed they resolve fully.
func (s *session) reresolveCreated() {
	for _, path := range s.created {
		desc := s.descriptors[path]
		j, step := s.graph.StepBySourceFile(path)
		if desc == nil || step == nil {
			continue
		}
		step.OutgoingIDs = s.resolveEdges(desc.Edges, j.ID)
	}
}

// resolveEdges maps edge targets to step ids. Targets match against the
// source entity or label of steps anywhere in the graph, first match wins;
// matches outside journeyID and unmatched targets are silently dropped so
// the same-journey reference invariant holds by construction.
func (s *session) resolveEdges(edges []types.Edge, journeyID string) []string {
	out := []string{}
	seen := make(map[string]struct{}, len(edges))
	for _, e := range edges {
		j, step := s.graph.StepByEntity(e.Target)
		if step == nil || j.ID != journeyID {
			continue
		}
		if _, dup := seen[step.ID]; dup {
			continue
		}
		seen[step.ID] = struct{}{}
		out = append(out, step.ID)
	}
	return out
}

// chooseJourney picks the container for a new step: (a) the first matching
// path-prefix rule, (b) the journey of a step whose descriptor references
// this entity, (c) the unassigned journey.
func (s *session) chooseJourney(path string, desc *types.Descriptor) string {
	for _, rule := range s.merger.rules {
		if pathHasPrefix(path, rule.PathPrefix) {
			return s.ensureJourney(rule.JourneyID, rule.Name,
				fmt.Sprintf("Journey for sources under %s", rule.PathPrefix))
		}
	}
	if id, ok := s.referrerJourney(desc.SourceEntity); ok {
		return id
	}
	return s.ensureJourney(UnassignedJourneyID, "Unassigned",
		"Steps not yet assigned to a journey")
}

// referrerJourney finds the journey of a step that navigates to the given
// entity. Referrers are found through this cycle's descriptors, matched back
// to their already-placed steps.
func (s *session) referrerJourney(entity string) (string, bool) {
	paths := make([]string, 0, len(s.descriptors))
	for p := range s.descriptors {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		d := s.descriptors[p]
		if d == nil || d.SourceEntity == entity {
			continue
		}
		for _, e := range d.Edges {
			if e.Target != entity {
				continue
			}
			if j, step := s.graph.StepBySourceFile(p); step != nil {
				return j.ID, true
			}
		}
	}
	return "", false
}

func (s *session) ensureJourney(id, name, description string) string {
	if s.graph.Journey(id) != nil {
		return id
	}
	s.graph.Journeys = append(s.graph.Journeys, types.Journey{
		ID:          id,
		Name:        name,
		Description: description,
		Steps:       []types.Step{},
	})
	return id
}

func (s *session) record(action types.ChangeAction, journeyID, stepID, detail string) {
	s.changeLog = append(s.changeLog, types.ChangeRecord{
		ID:        s.merger.newID(),
		Action:    action,
		JourneyID: journeyID,
		StepID:    stepID,
		Detail:    detail,
		At:        s.merger.now().UTC(),
	})
}

func sortedByPath(files []types.TrackedFile) []types.TrackedFile {
	out := append([]types.TrackedFile(nil), files...)
	sort.Slice(out, func(i, k int) bool { return out[i].Path < out[k].Path })
	return out
}

func pathHasPrefix(path, prefix string) bool {
	if prefix == "" {
		return false
	}
	if path == prefix {
		return true
	}
	if prefix[len(prefix)-1] != '/' {
		prefix += "/"
	}
	return len(path) > len(prefix) && path[:len(prefix)] == prefix
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
