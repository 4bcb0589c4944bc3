package valueobjects

import (
	"fmt"

	pkgerrors "fabula-backend/pkg/errors"
)

// ContentStatus tracks the generation lifecycle of a node's text.
// The set is closed; every switch over it is exhaustive.
type ContentStatus string

const (
	// StatusEmpty means no content of any kind yet.
	StatusEmpty ContentStatus = "empty"
	// StatusNotesOnly means the authoring brief exists but no body.
	StatusNotesOnly ContentStatus = "notes_only"
	// StatusGenerating means an AI stream is writing the body right now.
	StatusGenerating ContentStatus = "generating"
	// StatusGenerated means the body is AI-authored and untouched.
	StatusGenerated ContentStatus = "generated"
	// StatusUserRefined means the user edited an AI-authored body.
	StatusUserRefined ContentStatus = "user_refined"
	// StatusUserWritten means the user authored the body from scratch.
	StatusUserWritten ContentStatus = "user_written"
)

// IsValid reports whether the status is a member of the closed set
func (s ContentStatus) IsValid() bool {
	switch s {
	case StatusEmpty, StatusNotesOnly, StatusGenerating,
		StatusGenerated, StatusUserRefined, StatusUserWritten:
		return true
	}
	return false
}

// HasBody reports whether the status implies body text exists
func (s ContentStatus) HasBody() bool {
	switch s {
	case StatusGenerated, StatusUserRefined, StatusUserWritten:
		return true
	case StatusEmpty, StatusNotesOnly, StatusGenerating:
		return false
	}
	return false
}

// CanBeginGeneration reports whether BeginGeneration would succeed from
// this status. Batch eligibility scans use it without mutating anything.
func (s ContentStatus) CanBeginGeneration() bool {
	switch s {
	case StatusNotesOnly, StatusGenerated, StatusUserRefined:
		return true
	case StatusEmpty, StatusGenerating, StatusUserWritten:
		return false
	}
	return false
}

// NodeContent carries a node's text through the generation lifecycle:
// notes (the authoring brief), body (generated or user text), and status.
type NodeContent struct {
	Notes  string        `json:"notes"`
	Body   string        `json:"body,omitempty"`
	Status ContentStatus `json:"status"`
}

// EmptyContent returns the initial content state for a new node
func EmptyContent() NodeContent {
	return NodeContent{Status: StatusEmpty}
}

// WriteNotes updates the brief. It promotes Empty to NotesOnly and leaves
// every other status untouched; notes edits never demote a body.
func (c NodeContent) WriteNotes(notes string) NodeContent {
	c.Notes = notes
	if c.Status == StatusEmpty && notes != "" {
		c.Status = StatusNotesOnly
	}
	return c
}

// BeginGeneration transitions NotesOnly into Generating.
func (c NodeContent) BeginGeneration() (NodeContent, error) {
	switch c.Status {
	case StatusNotesOnly, StatusGenerated, StatusUserRefined:
		c.Status = StatusGenerating
		return c, nil
	case StatusGenerating:
		return c, pkgerrors.NewConflictError("generation already in progress")
	case StatusEmpty:
		return c, pkgerrors.NewValidationError("cannot generate without notes")
	case StatusUserWritten:
		return c, pkgerrors.NewValidationError("cannot generate over user-written text")
	}
	return c, pkgerrors.NewValidationError(fmt.Sprintf("unknown content status %q", c.Status))
}

// CompleteGeneration stores the streamed body and marks it Generated.
func (c NodeContent) CompleteGeneration(body string) (NodeContent, error) {
	if c.Status != StatusGenerating {
		return c, pkgerrors.NewConflictError(
			fmt.Sprintf("cannot complete generation from status %q", c.Status))
	}
	c.Body = body
	c.Status = StatusGenerated
	return c, nil
}

// FailGeneration rolls the transient Generating state back to NotesOnly.
func (c NodeContent) FailGeneration() NodeContent {
	if c.Status == StatusGenerating {
		c.Status = StatusNotesOnly
	}
	return c
}

// EditBody applies a user edit to the body. AI text becomes UserRefined;
// a body written where none existed becomes UserWritten.
func (c NodeContent) EditBody(body string) (NodeContent, error) {
	switch c.Status {
	case StatusGenerated:
		c.Status = StatusUserRefined
	case StatusEmpty, StatusNotesOnly:
		c.Status = StatusUserWritten
	case StatusUserRefined, StatusUserWritten:
		// Further edits keep the attribution.
	case StatusGenerating:
		return c, pkgerrors.NewConflictError("cannot edit body while generating")
	default:
		return c, pkgerrors.NewValidationError(fmt.Sprintf("unknown content status %q", c.Status))
	}
	c.Body = body
	return c, nil
}

// HasNotes reports whether the brief is non-empty after trimming
func (c NodeContent) HasNotes() bool {
	for _, r := range c.Notes {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return true
		}
	}
	return false
}
