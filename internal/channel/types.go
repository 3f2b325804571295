package channel

import (
	"context"
	"errors"
	"time"

	"github.com/fyrsmithlabs/governd/internal/meeting"
)

// Common errors for channel operations.
var (
	ErrInvalidTransition   = errors.New("invalid channel transition")
	ErrReformulationFailed = errors.New("reformulation failed")
	ErrEmptyInput          = errors.New("input text cannot be empty")
	ErrSessionClosed       = errors.New("channel session is closed")
)

// State is the channel session state.
type State string

const (
	// StateIdle means no interaction is in flight.
	StateIdle State = "idle"

	// StateIntent means a reformulated intent awaits user confirmation.
	StateIntent State = "intent"

	// StateProposal means a pending proposal awaits accept or reject.
	StateProposal State = "proposal"
)

// ActionKind classifies what a reformulated intent asks for.
type ActionKind string

const (
	// ActionSimple is a plain action with no meeting involved.
	ActionSimple ActionKind = "simple"

	// ActionMeetingRequest asks to start a meeting.
	ActionMeetingRequest ActionKind = "meeting_request"

	// ActionNone means the input carries no actionable request; confirming
	// such an intent discards it and returns the session to idle.
	ActionNone ActionKind = "none"
)

// ProposalKind is the type of a pending proposal.
type ProposalKind string

const (
	// ProposalAction is a simple action awaiting user approval.
	ProposalAction ProposalKind = "action"

	// ProposalMeetingStart is a request to start a meeting.
	ProposalMeetingStart ProposalKind = "meeting_start"
)

// ProposalStatus is the decision state of a proposal.
type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "pending"
	ProposalAccepted ProposalStatus = "accepted"
	ProposalRejected ProposalStatus = "rejected"
)

// UserInput is one raw user utterance. Immutable after creation.
type UserInput struct {
	// ID is the unique input identifier (UUID).
	ID string `json:"id"`

	// Timestamp is when the input was submitted.
	Timestamp time.Time `json:"timestamp"`

	// RawText is the utterance exactly as entered.
	RawText string `json:"raw_text"`

	// ContextScope is the scope the user was operating in.
	ContextScope string `json:"context_scope,omitempty"`
}

// Intent is a structured, user-confirmable reformulation of raw input. The
// originating input is owned by the intent, so a session holds exactly one
// live artifact at a time.
type Intent struct {
	// ID is the unique intent identifier (UUID).
	ID string `json:"id"`

	// Input is the originating user input.
	Input UserInput `json:"input"`

	// ReformulatedText is the structured restatement shown to the user.
	// Unrecognized input is echoed verbatim with ActionSimple.
	ReformulatedText string `json:"reformulated_text"`

	// Scope is the set of scopes the intent touches.
	Scope []string `json:"scope,omitempty"`

	// ActionKind classifies the request.
	ActionKind ActionKind `json:"action_kind"`

	// MeetingKind is set when ActionKind is ActionMeetingRequest.
	MeetingKind meeting.Kind `json:"meeting_kind,omitempty"`

	// Objective is the goal extracted for a meeting request.
	Objective string `json:"objective,omitempty"`

	// Confirmed transitions false -> true exactly once, never back.
	Confirmed bool `json:"confirmed"`

	// ConfirmedAt is when the user confirmed.
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
}

// Proposal is a pending action or meeting-start request awaiting accept or
// reject. At most one proposal is live per session.
type Proposal struct {
	// ID is the unique proposal identifier (UUID).
	ID string `json:"id"`

	// IntentID links back to the confirmed intent.
	IntentID string `json:"intent_id"`

	// Kind is action or meeting_start.
	Kind ProposalKind `json:"kind"`

	// MeetingKind is set for meeting_start proposals.
	MeetingKind meeting.Kind `json:"meeting_kind,omitempty"`

	// Scope is carried over from the intent.
	Scope []string `json:"scope,omitempty"`

	// Objective is the goal for a meeting-start proposal.
	Objective string `json:"objective,omitempty"`

	// Status is pending until the user decides.
	Status ProposalStatus `json:"status"`

	// DecidedAt is when the user accepted or rejected.
	DecidedAt *time.Time `json:"decided_at,omitempty"`
}

// Reformulation is the structured verdict of a reformulation provider.
type Reformulation struct {
	// ReformulatedText is the restatement to show the user.
	ReformulatedText string `json:"reformulated_text"`

	// Scope is the set of scopes the provider assigned.
	Scope []string `json:"scope,omitempty"`

	// ActionKind classifies the request.
	ActionKind ActionKind `json:"action_kind"`

	// MeetingKind is required when ActionKind is ActionMeetingRequest.
	MeetingKind meeting.Kind `json:"meeting_kind,omitempty"`

	// Objective is the extracted goal for meeting requests.
	Objective string `json:"objective,omitempty"`
}

// Reformulator turns raw input into a structured reformulation. The channel
// treats it as opaque and does not retry: a failure surfaces as
// ErrReformulationFailed and the session returns to idle.
type Reformulator interface {
	Reformulate(ctx context.Context, input UserInput) (Reformulation, error)
}

// MeetingStarter receives accepted meeting-start proposals. The adapter
// behind it owns filling in the full meeting definition.
type MeetingStarter interface {
	StartMeeting(ctx context.Context, initiatorID string, kind meeting.Kind, scope, objective string) (meetingID string, err error)
}
