package meeting

import (
	"errors"
	"time"

	"github.com/fyrsmithlabs/governd/internal/memorygate"
	"github.com/fyrsmithlabs/governd/internal/principal"
)

// Common errors for meeting lifecycle operations. All are local validation
// failures returned synchronously to the caller; none are retried by the core.
var (
	ErrMeetingNotFound        = errors.New("meeting not found")
	ErrInvalidKind            = errors.New("invalid meeting kind")
	ErrMissingScope           = errors.New("meeting scope is required")
	ErrMissingGoal            = errors.New("meeting goal is required")
	ErrMissingClosureCriteria = errors.New("meeting closure criteria are required")
	ErrMissingDuration        = errors.New("meeting max duration is required and must be positive")
	ErrInvalidInitiator       = errors.New("meetings may only be initiated by a user principal")
	ErrInvalidValidator       = errors.New("outputs may only be validated by a user principal")
	ErrInvalidTransition      = errors.New("invalid meeting transition")
	ErrClosureCriteriaUnmet   = errors.New("closure criteria unmet: required outputs missing")
	ErrOutputsNotValidated    = errors.New("mandatory outputs not yet validated")
	ErrDurationExceeded       = errors.New("meeting exceeded its maximum duration")
	ErrOutputNotFound         = errors.New("meeting output not found")
	ErrEmptyTimelineEntry     = errors.New("timeline entry content cannot be empty")
	ErrEmptyOutputContent     = errors.New("output content cannot be empty")
)

// Kind is the type of a meeting.
type Kind string

const (
	// KindReflection is an individual or collective reflection session.
	KindReflection Kind = "reflection"

	// KindTeamAlignment aligns a team around shared context.
	KindTeamAlignment Kind = "team_alignment"

	// KindDecision produces a decision record and its rationale.
	KindDecision Kind = "decision"

	// KindReviewAudit reviews past work and records findings.
	KindReviewAudit Kind = "review_audit"
)

// validKinds is the closed set of meeting kinds.
var validKinds = map[Kind]bool{
	KindReflection:    true,
	KindTeamAlignment: true,
	KindDecision:      true,
	KindReviewAudit:   true,
}

// Status is the lifecycle state of a meeting.
type Status string

const (
	// StatusScheduled means the meeting is created but not started.
	StatusScheduled Status = "scheduled"

	// StatusActive means the meeting is running and accepts timeline entries
	// and output proposals.
	StatusActive Status = "active"

	// StatusClosing means closure was requested; outputs may be validated.
	StatusClosing Status = "closing"

	// StatusCompleted is terminal: outputs were validated and candidate
	// memory entries were handed to the memory gate.
	StatusCompleted Status = "completed"

	// StatusCancelled is terminal: no memory entries are generated.
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is a terminal state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// OutputKind categorizes a meeting output.
type OutputKind string

const (
	OutputDecisionRecord OutputKind = "decision_record"
	OutputRationale      OutputKind = "rationale"
	OutputInsight        OutputKind = "insight"
	OutputActionItem     OutputKind = "action_item"
	OutputFindings       OutputKind = "findings"
	OutputAlignmentNote  OutputKind = "alignment_note"
	OutputProposal       OutputKind = "proposal"
)

// validOutputKinds is the closed set of output kinds.
var validOutputKinds = map[OutputKind]bool{
	OutputDecisionRecord: true,
	OutputRationale:      true,
	OutputInsight:        true,
	OutputActionItem:     true,
	OutputFindings:       true,
	OutputAlignmentNote:  true,
	OutputProposal:       true,
}

// requiredOutputs is the static per-kind table of outputs a meeting must
// produce before closure can be requested, and must have validated before it
// can complete.
var requiredOutputs = map[Kind][]OutputKind{
	KindDecision:      {OutputDecisionRecord, OutputRationale},
	KindReviewAudit:   {OutputFindings},
	KindReflection:    {OutputInsight},
	KindTeamAlignment: {OutputAlignmentNote},
}

// RequiredOutputs returns the output kinds a meeting of the given kind must
// produce. The returned slice must not be mutated.
func RequiredOutputs(kind Kind) []OutputKind {
	return requiredOutputs[kind]
}

// entryKindFor maps an output kind onto the memory entry kind used when the
// meeting completes.
func entryKindFor(kind OutputKind) memorygate.EntryKind {
	switch kind {
	case OutputDecisionRecord:
		return memorygate.KindValidatedDecision
	case OutputActionItem:
		return memorygate.KindValidatedAction
	default:
		return memorygate.KindValidatedInsight
	}
}

// OutputStatus is the validation state of a meeting output.
type OutputStatus string

const (
	// OutputDraft is the initial state of a proposed output.
	OutputDraft OutputStatus = "draft"

	// OutputValidated means a user approved the output during closing.
	OutputValidated OutputStatus = "validated"
)

// Definition declares a meeting's bounds up front. All fields are required;
// a meeting without a declared scope, goal, closure criteria and duration
// cannot be created.
type Definition struct {
	// Scope is the knowledge scope the meeting operates in.
	Scope string `json:"scope"`

	// Goal is what the meeting is meant to achieve.
	Goal string `json:"goal"`

	// ClosureCriteria describe when the meeting is considered done.
	ClosureCriteria string `json:"closure_criteria"`

	// MaxDuration bounds the active phase. Absence is a validation error,
	// not a default.
	MaxDuration time.Duration `json:"max_duration"`
}

// Validate checks that all required definition fields are present.
func (d Definition) Validate() error {
	if d.Scope == "" {
		return ErrMissingScope
	}
	if d.Goal == "" {
		return ErrMissingGoal
	}
	if d.ClosureCriteria == "" {
		return ErrMissingClosureCriteria
	}
	if d.MaxDuration <= 0 {
		return ErrMissingDuration
	}
	return nil
}

// TimelineEntry is one record in a meeting's append-only timeline. Entries
// are never mutated or removed once appended.
type TimelineEntry struct {
	// ID is the unique entry identifier (UUID).
	ID string `json:"id"`

	// AuthorID is the principal (user or agent) that produced the entry.
	AuthorID string `json:"author_id"`

	// Content is the entry text.
	Content string `json:"content"`

	// RecordedAt is when the entry was appended.
	RecordedAt time.Time `json:"recorded_at"`
}

// Output is a candidate artifact produced inside a meeting. It requires
// validation by a user before it can seed a memory entry.
type Output struct {
	// ID is the unique output identifier (UUID).
	ID string `json:"id"`

	// Kind categorizes the output.
	Kind OutputKind `json:"kind"`

	// Content is the output text.
	Content string `json:"content"`

	// Status is draft until a user validates it.
	Status OutputStatus `json:"status"`

	// ValidatedBy is the user who validated the output.
	ValidatedBy string `json:"validated_by,omitempty"`

	// ValidatedAt is when the output was validated.
	ValidatedAt *time.Time `json:"validated_at,omitempty"`
}

// Roster supplies the agent participants for a meeting. It is consulted only
// at creation time; the agents it returns are passive responders.
type Roster interface {
	AgentsFor(kind Kind, scope string) []principal.AgentRef
}

// StaticRoster is an in-memory Roster keyed by meeting kind.
type StaticRoster struct {
	byKind map[Kind][]principal.AgentRef
}

// NewStaticRoster creates an empty roster.
func NewStaticRoster() *StaticRoster {
	return &StaticRoster{
		byKind: make(map[Kind][]principal.AgentRef),
	}
}

// Add registers an agent for meetings of the given kind.
func (r *StaticRoster) Add(kind Kind, ref principal.AgentRef) {
	r.byKind[kind] = append(r.byKind[kind], ref)
}

// AgentsFor returns the agents registered for the kind. Scope is ignored by
// the static implementation.
func (r *StaticRoster) AgentsFor(kind Kind, scope string) []principal.AgentRef {
	refs := r.byKind[kind]
	out := make([]principal.AgentRef, len(refs))
	copy(out, refs)
	return out
}
