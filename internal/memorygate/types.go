package memorygate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/governd/internal/classify"
)

// Common errors for memory gate operations.
var (
	ErrInvalidEntry      = errors.New("invalid memory entry")
	ErrEmptyContent      = errors.New("entry content cannot be empty")
	ErrEmptyScope        = errors.New("entry destination scope cannot be empty")
	ErrInvalidKind       = errors.New("invalid entry kind")
	ErrDuplicateEntry    = errors.New("entry ID already proposed")
	ErrInvalidTransition = errors.New("invalid entry transition")
	ErrInvalidValidator  = errors.New("validator must be a user principal")
)

// ContentRejectedError is returned when the classifier vetoes an entry's
// content at validation time. The entry stays Proposed and editable so the
// user can revise and re-attempt validation.
type ContentRejectedError struct {
	// Reasons lists every classification rule the content violated.
	Reasons []classify.Reason
}

func (e *ContentRejectedError) Error() string {
	reasons := make([]string, len(e.Reasons))
	for i, r := range e.Reasons {
		reasons[i] = string(r)
	}
	return fmt.Sprintf("content rejected: %s", strings.Join(reasons, ", "))
}

// EntryKind categorizes what a memory entry records.
type EntryKind string

const (
	// KindValidatedDecision is a decision that passed human validation.
	KindValidatedDecision EntryKind = "validated_decision"

	// KindValidatedAction is an action item that passed human validation.
	KindValidatedAction EntryKind = "validated_action"

	// KindValidatedInsight is an insight that passed human validation.
	KindValidatedInsight EntryKind = "validated_insight"

	// KindUserNote is a note authored directly by a user.
	KindUserNote EntryKind = "user_note"
)

// validKinds is the closed set of entry kinds.
var validKinds = map[EntryKind]bool{
	KindValidatedDecision: true,
	KindValidatedAction:   true,
	KindValidatedInsight:  true,
	KindUserNote:          true,
}

// EntryState is the lifecycle state of a memory entry in the gate.
type EntryState string

const (
	// StateProposed means the entry awaits human validation. Proposed entries
	// are editable and have not touched durable storage.
	StateProposed EntryState = "proposed"

	// StateValidated means a user approved the entry and it was handed to the
	// persistence sink. Terminal.
	StateValidated EntryState = "validated"

	// StateRejected means the entry was discarded. Rejected entries are
	// purged immediately, never retained. Terminal.
	StateRejected EntryState = "rejected"
)

// Destination is where a validated entry should be stored.
type Destination struct {
	// Scope is the knowledge scope (e.g. "business", "personal").
	Scope string `json:"scope"`

	// Location is a path-like hint within the scope (e.g. "decisions/2026").
	Location string `json:"location,omitempty"`
}

// MemoryEntry is a semantic-summary candidate for durable storage.
//
// Entries never contain raw transcripts or reasoning: the classifier enforces
// this at validation time, and content that trips it keeps the entry in
// Proposed so the human can edit and retry.
type MemoryEntry struct {
	// ID is the unique entry identifier (UUID).
	ID string `json:"id"`

	// Kind categorizes the entry.
	Kind EntryKind `json:"kind"`

	// Content is the semantic summary (at most classify.MaxContentLength chars
	// once validated).
	Content string `json:"content"`

	// SourceMeetingID links the entry to the meeting that produced it.
	// Empty for user notes proposed directly.
	SourceMeetingID string `json:"source_meeting_id,omitempty"`

	// Destination is the proposed storage destination.
	Destination Destination `json:"destination"`

	// State is the lifecycle state.
	State EntryState `json:"state"`

	// ValidatedBy is the user who approved the entry. Set only on validation.
	ValidatedBy string `json:"validated_by,omitempty"`

	// ValidatedAt is when the entry was approved.
	ValidatedAt *time.Time `json:"validated_at,omitempty"`

	// UserEditedContent holds the user's final text when it differs from the
	// originally proposed content.
	UserEditedContent string `json:"user_edited_content,omitempty"`

	// ProposedAt is when the entry entered the gate.
	ProposedAt time.Time `json:"proposed_at"`
}

// NewMemoryEntry creates a Proposed entry with a generated UUID.
func NewMemoryEntry(kind EntryKind, content, sourceMeetingID string, dest Destination) (*MemoryEntry, error) {
	if !validKinds[kind] {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	if content == "" {
		return nil, ErrEmptyContent
	}
	if dest.Scope == "" {
		return nil, ErrEmptyScope
	}

	return &MemoryEntry{
		ID:              uuid.New().String(),
		Kind:            kind,
		Content:         content,
		SourceMeetingID: sourceMeetingID,
		Destination:     dest,
		State:           StateProposed,
		ProposedAt:      time.Now(),
	}, nil
}

// Validate checks structural validity of the entry.
func (e *MemoryEntry) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidEntry)
	}
	if !validKinds[e.Kind] {
		return fmt.Errorf("%w: %q", ErrInvalidKind, e.Kind)
	}
	if e.Content == "" {
		return ErrEmptyContent
	}
	if e.Destination.Scope == "" {
		return ErrEmptyScope
	}
	return nil
}

// clone returns a deep copy so callers never share the gate's internal state.
func (e *MemoryEntry) clone() *MemoryEntry {
	c := *e
	if e.ValidatedAt != nil {
		at := *e.ValidatedAt
		c.ValidatedAt = &at
	}
	return &c
}
