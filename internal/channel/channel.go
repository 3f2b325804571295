// Package channel implements the front-door state machine that turns one raw
// user utterance into at most one structured proposal.
//
// Sessions move idle -> intent -> proposal -> idle. Every transition is
// caused by an explicit external call; there is no timer-driven
// auto-transition and the channel never fabricates a proposal without a
// confirmable intent in between. Transitions called out of order are rejected
// with a typed error and logged, never silently ignored.
package channel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session is one user's interaction channel. At most one of
// {input, intent, proposal} is live at any instant; idle holds none.
//
// A session serializes its own transitions with a mutex, so concurrent calls
// on the same session cannot interleave; different sessions are fully
// independent.
type Session struct {
	userID       string
	reformulator Reformulator
	starter      MeetingStarter
	logger       *zap.Logger

	mu       sync.Mutex
	state    State
	intent   *Intent
	proposal *Proposal

	// now is injectable for tests.
	now func() time.Time
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithMeetingStarter wires the meeting lifecycle behind accepted
// meeting-start proposals.
func WithMeetingStarter(starter MeetingStarter) SessionOption {
	return func(s *Session) {
		s.starter = starter
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSession creates an idle session for the given user.
func NewSession(userID string, reformulator Reformulator, opts ...SessionOption) (*Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID cannot be empty")
	}
	if reformulator == nil {
		return nil, fmt.Errorf("reformulator cannot be nil")
	}

	s := &Session{
		userID:       userID,
		reformulator: reformulator,
		logger:       zap.NewNop(),
		state:        StateIdle,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// UserID returns the session's owning user.
func (s *Session) UserID() string {
	return s.userID
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentIntent returns a snapshot of the live intent, if any.
func (s *Session) CurrentIntent() (*Intent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.intent == nil {
		return nil, false
	}
	c := *s.intent
	return &c, true
}

// CurrentProposal returns a snapshot of the live proposal, if any.
func (s *Session) CurrentProposal() (*Proposal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proposal == nil {
		return nil, false
	}
	c := *s.proposal
	return &c, true
}

// SubmitInput starts an interaction cycle: it creates the immutable user
// input, runs the reformulation provider, and moves the session to intent.
//
// A reformulation failure returns the session to idle with
// ErrReformulationFailed; the provider is never retried by the channel.
func (s *Session) SubmitInput(ctx context.Context, rawText, contextScope string) (*Intent, error) {
	if rawText == "" {
		return nil, ErrEmptyInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		s.logger.Warn("submit rejected: session not idle",
			zap.String("user_id", s.userID),
			zap.String("state", string(s.state)))
		return nil, fmt.Errorf("%w: submitInput in state %q", ErrInvalidTransition, s.state)
	}

	input := UserInput{
		ID:           uuid.New().String(),
		Timestamp:    s.now(),
		RawText:      rawText,
		ContextScope: contextScope,
	}

	reformulation, err := s.reformulator.Reformulate(ctx, input)
	if err != nil {
		// Stay idle; the failure is the caller's to surface.
		s.logger.Warn("reformulation failed",
			zap.String("user_id", s.userID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrReformulationFailed, err)
	}

	intent := &Intent{
		ID:               uuid.New().String(),
		Input:            input,
		ReformulatedText: reformulation.ReformulatedText,
		Scope:            reformulation.Scope,
		ActionKind:       reformulation.ActionKind,
		MeetingKind:      reformulation.MeetingKind,
		Objective:        reformulation.Objective,
	}

	s.state = StateIntent
	s.intent = intent

	s.logger.Debug("intent derived",
		zap.String("user_id", s.userID),
		zap.String("intent_id", intent.ID),
		zap.String("action_kind", string(intent.ActionKind)))

	c := *intent
	return &c, nil
}

// Confirm confirms the live intent. An intent with an actionable kind
// becomes a pending proposal; an ActionNone intent is discarded and the
// session returns to idle with a nil proposal.
func (s *Session) Confirm(ctx context.Context) (*Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIntent {
		s.logger.Warn("confirm rejected: no live intent",
			zap.String("user_id", s.userID),
			zap.String("state", string(s.state)))
		return nil, fmt.Errorf("%w: confirm in state %q", ErrInvalidTransition, s.state)
	}

	now := s.now()
	s.intent.Confirmed = true
	s.intent.ConfirmedAt = &now

	if s.intent.ActionKind == ActionNone {
		s.logger.Debug("intent confirmed with no action; discarding",
			zap.String("user_id", s.userID),
			zap.String("intent_id", s.intent.ID))
		s.reset()
		return nil, nil
	}

	kind := ProposalAction
	if s.intent.ActionKind == ActionMeetingRequest {
		kind = ProposalMeetingStart
	}

	proposal := &Proposal{
		ID:          uuid.New().String(),
		IntentID:    s.intent.ID,
		Kind:        kind,
		MeetingKind: s.intent.MeetingKind,
		Scope:       s.intent.Scope,
		Objective:   s.intent.Objective,
		Status:      ProposalPending,
	}

	s.state = StateProposal
	s.intent = nil
	s.proposal = proposal

	s.logger.Debug("proposal built",
		zap.String("user_id", s.userID),
		zap.String("proposal_id", proposal.ID),
		zap.String("kind", string(proposal.Kind)))

	c := *proposal
	return &c, nil
}

// Cancel discards the live intent and returns the session to idle.
// Cancelling an already idle session is a no-op so retried calls are
// harmless; cancelling while a proposal is pending is an invalid transition
// because a pending proposal must be explicitly accepted or rejected.
func (s *Session) Cancel(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateIdle:
		return nil
	case StateIntent:
		s.logger.Debug("intent cancelled",
			zap.String("user_id", s.userID),
			zap.String("intent_id", s.intent.ID))
		s.reset()
		return nil
	default:
		s.logger.Warn("cancel rejected: proposal pending",
			zap.String("user_id", s.userID))
		return fmt.Errorf("%w: cancel in state %q", ErrInvalidTransition, s.state)
	}
}

// Accept accepts the pending proposal. Meeting-start proposals are handed to
// the meeting lifecycle; if that handoff fails the proposal stays pending so
// the user can retry or reject. On success the session clears to idle.
//
// The returned meeting ID is empty for plain action proposals.
func (s *Session) Accept(ctx context.Context) (*Proposal, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateProposal {
		s.logger.Warn("accept rejected: no pending proposal",
			zap.String("user_id", s.userID),
			zap.String("state", string(s.state)))
		return nil, "", fmt.Errorf("%w: accept in state %q", ErrInvalidTransition, s.state)
	}

	var meetingID string
	if s.proposal.Kind == ProposalMeetingStart {
		if s.starter == nil {
			return nil, "", fmt.Errorf("%w: no meeting starter configured", ErrInvalidTransition)
		}
		scope := ""
		if len(s.proposal.Scope) > 0 {
			scope = s.proposal.Scope[0]
		}
		id, err := s.starter.StartMeeting(ctx, s.userID, s.proposal.MeetingKind, scope, s.proposal.Objective)
		if err != nil {
			s.logger.Warn("meeting handoff failed; proposal stays pending",
				zap.String("user_id", s.userID),
				zap.String("proposal_id", s.proposal.ID),
				zap.Error(err))
			return nil, "", fmt.Errorf("starting meeting: %w", err)
		}
		meetingID = id
	}

	now := s.now()
	s.proposal.Status = ProposalAccepted
	s.proposal.DecidedAt = &now

	accepted := *s.proposal
	s.reset()

	s.logger.Info("proposal accepted",
		zap.String("user_id", s.userID),
		zap.String("proposal_id", accepted.ID),
		zap.String("meeting_id", meetingID))

	return &accepted, meetingID, nil
}

// Reject rejects the pending proposal and clears the session. Rejecting an
// idle session is a no-op so retried calls are harmless.
func (s *Session) Reject(ctx context.Context) (*Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateIdle:
		return nil, nil
	case StateProposal:
		now := s.now()
		s.proposal.Status = ProposalRejected
		s.proposal.DecidedAt = &now

		rejected := *s.proposal
		s.reset()

		s.logger.Info("proposal rejected",
			zap.String("user_id", s.userID),
			zap.String("proposal_id", rejected.ID))
		return &rejected, nil
	default:
		s.logger.Warn("reject rejected: no pending proposal",
			zap.String("user_id", s.userID),
			zap.String("state", string(s.state)))
		return nil, fmt.Errorf("%w: reject in state %q", ErrInvalidTransition, s.state)
	}
}

// reset clears all session artifacts. Callers hold the lock.
func (s *Session) reset() {
	s.state = StateIdle
	s.intent = nil
	s.proposal = nil
}
