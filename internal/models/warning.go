package models

// WarningKind classifies an assembly warning.
type WarningKind string

const (
	// WarningSuperseded means a segment was dropped because a later one covered it.
	WarningSuperseded WarningKind = "segment_superseded"
	// WarningTruncated means a segment lost part of its interval to a later one.
	WarningTruncated WarningKind = "segment_truncated"
)

// Warning records an informational event during timeline assembly.
type Warning struct {
	Kind       WarningKind `json:"kind"`
	Segment    Segment     `json:"segment"`    // the affected segment, before the change
	Superseder Segment     `json:"superseder"` // the later-narrated segment that won
}
