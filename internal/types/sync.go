package types

import "time"

// Scan diff -----------------------------------------------------------------

// FileStatus marks how a tracked file changed between two revisions.
type FileStatus string

const (
	FileAdded    FileStatus = "added"
	FileModified FileStatus = "modified"
	FileRemoved  FileStatus = "removed"
)

// TrackedFile is one changed file in a scan diff. Content is present unless
// the file was removed.
type TrackedFile struct {
	Path    string
	Status  FileStatus
	Content string
}

// ScanDiff is the result of diffing the source tree against the last
// processed revision.
type ScanDiff struct {
	CurrentRevision string
	Added           []TrackedFile
	Modified        []TrackedFile
	Removed         []string
}

// Empty reports whether the diff carries no changes.
func (d ScanDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Modified) == 0 && len(d.Removed) == 0
}

// Changed returns added and modified files, in that order.
func (d ScanDiff) Changed() []TrackedFile {
	out := make([]TrackedFile, 0, len(d.Added)+len(d.Modified))
	out = append(out, d.Added...)
	out = append(out, d.Modified...)
	return out
}

// Descriptor ----------------------------------------------------------------

// Edge is one outgoing reference extracted from a source file: the named
// target entity plus the navigation mechanism that reaches it.
type Edge struct {
	Target    string `json:"target"`
	Mechanism string `json:"mechanism"`
}

// Descriptor is the structural fact set extracted from one source file.
// Extraction is heuristic; a descriptor flags its step for human review.
type Descriptor struct {
	SourceEntity string   `json:"sourceEntity"`
	Edges        []Edge   `json:"edges"`
	Category     Category `json:"category"`
}

// Change log ----------------------------------------------------------------

// ChangeAction tags what a merge did to a step.
type ChangeAction string

const (
	ChangeAdd         ChangeAction = "add"
	ChangeDeprecate   ChangeAction = "deprecate"
	ChangeUpdateEdges ChangeAction = "update-edges"
)

// ChangeRecord is an observational log entry emitted by the merger. Nothing
// downstream consumes it; it exists for audit.
type ChangeRecord struct {
	ID        string       `json:"id"`
	Action    ChangeAction `json:"action"`
	JourneyID string       `json:"journeyId"`
	StepID    string       `json:"stepId"`
	Detail    string       `json:"detail"`
	At        time.Time    `json:"at"`
}
