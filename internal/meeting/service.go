package meeting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/governd/internal/memorygate"
	"github.com/fyrsmithlabs/governd/internal/principal"
)

// MemoryProposer receives candidate memory entries when a meeting completes.
// Satisfied by *memorygate.Gate.
type MemoryProposer interface {
	Propose(ctx context.Context, entry *memorygate.MemoryEntry) (*memorygate.MemoryEntry, error)
}

// Service manages meetings by ID.
//
// Completed and cancelled meetings stay in the registry (archived, not
// deleted) so their timelines remain auditable.
type Service struct {
	resolver principal.Resolver
	roster   Roster
	proposer MemoryProposer
	logger   *zap.Logger

	mu       sync.RWMutex
	meetings map[string]*Meeting

	// now is injectable for deadline tests.
	now func() time.Time
}

// NewService creates a meeting service.
func NewService(resolver principal.Resolver, roster Roster, proposer MemoryProposer, logger *zap.Logger) (*Service, error) {
	if resolver == nil {
		return nil, fmt.Errorf("resolver cannot be nil")
	}
	if roster == nil {
		return nil, fmt.Errorf("roster cannot be nil")
	}
	if proposer == nil {
		return nil, fmt.Errorf("memory proposer cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		resolver: resolver,
		roster:   roster,
		proposer: proposer,
		logger:   logger,
		meetings: make(map[string]*Meeting),
		now:      time.Now,
	}, nil
}

// Create validates the initiator and definition and registers a scheduled
// meeting.
//
// The initiator check comes first: an agent ID fails with ErrInvalidInitiator
// regardless of how valid the rest of the request is. Participants are
// populated from the roster at this point and never change afterwards.
func (s *Service) Create(ctx context.Context, initiatorID string, kind Kind, def Definition) (*Meeting, error) {
	p, err := s.resolver.Resolve(initiatorID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInitiator, initiatorID)
	}
	if !p.IsUser() {
		return nil, fmt.Errorf("%w: %s is an agent", ErrInvalidInitiator, initiatorID)
	}

	if !validKinds[kind] {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}

	agents := s.roster.AgentsFor(kind, def.Scope)
	m := newMeeting(initiatorID, kind, def, agents, s.now())

	s.mu.Lock()
	s.meetings[m.ID] = m
	s.mu.Unlock()

	s.logger.Info("meeting created",
		zap.String("meeting_id", m.ID),
		zap.String("kind", string(kind)),
		zap.String("initiated_by", initiatorID),
		zap.String("scope", def.Scope),
		zap.Int("agents", len(agents)))

	return m.snapshot(), nil
}

// Get returns a snapshot of a meeting.
func (s *Service) Get(id string) (*Meeting, error) {
	m, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return m.snapshot(), nil
}

// List returns snapshots of all meetings, archived ones included.
func (s *Service) List() []*Meeting {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Meeting, 0, len(s.meetings))
	for _, m := range s.meetings {
		out = append(out, m.snapshot())
	}
	return out
}

// Start transitions the meeting to active.
func (s *Service) Start(ctx context.Context, id string) (*Meeting, error) {
	m, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	if err := m.start(s.now()); err != nil {
		return nil, err
	}

	s.logger.Info("meeting started", zap.String("meeting_id", id))
	return m.snapshot(), nil
}

// AppendTimelineEntry appends to the meeting's append-only timeline.
func (s *Service) AppendTimelineEntry(ctx context.Context, id, authorID, content string) (*TimelineEntry, error) {
	m, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return m.appendTimeline(authorID, content, s.now())
}

// ProposeOutput adds a draft output to an active meeting.
func (s *Service) ProposeOutput(ctx context.Context, id string, kind OutputKind, content string) (*Output, error) {
	m, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return m.proposeOutput(kind, content, s.now())
}

// RequestClosure transitions the meeting to closing once its required
// outputs exist.
func (s *Service) RequestClosure(ctx context.Context, id string) (*Meeting, error) {
	m, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	if err := m.requestClosure(s.now()); err != nil {
		return nil, err
	}

	s.logger.Info("meeting closing", zap.String("meeting_id", id))
	return m.snapshot(), nil
}

// ValidateOutputs marks outputs validated. The validator must be a user
// principal; agents cannot approve their own artifacts.
func (s *Service) ValidateOutputs(ctx context.Context, id string, outputIDs []string, validatorID string) (*Meeting, error) {
	p, err := s.resolver.Resolve(validatorID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidValidator, validatorID)
	}
	if !p.IsUser() {
		return nil, fmt.Errorf("%w: %s is an agent", ErrInvalidValidator, validatorID)
	}

	m, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	if err := m.validateOutputs(outputIDs, validatorID, s.now()); err != nil {
		return nil, err
	}

	s.logger.Info("meeting outputs validated",
		zap.String("meeting_id", id),
		zap.Strings("output_ids", outputIDs),
		zap.String("validated_by", validatorID))
	return m.snapshot(), nil
}

// Complete transitions the meeting to completed and forwards its candidate
// memory entries to the gate as proposed.
func (s *Service) Complete(ctx context.Context, id string) ([]*memorygate.MemoryEntry, error) {
	m, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	entries, err := m.complete(s.now())
	if err != nil {
		return nil, err
	}

	proposed := make([]*memorygate.MemoryEntry, 0, len(entries))
	for _, entry := range entries {
		p, err := s.proposer.Propose(ctx, entry)
		if err != nil {
			// The meeting is already completed; surface the failure but keep
			// forwarding the remaining candidates.
			s.logger.Warn("failed to propose memory entry",
				zap.String("meeting_id", id),
				zap.String("entry_id", entry.ID),
				zap.Error(err))
			continue
		}
		proposed = append(proposed, p)
	}

	s.logger.Info("meeting completed",
		zap.String("meeting_id", id),
		zap.Int("entries_proposed", len(proposed)))
	return proposed, nil
}

// Cancel moves the meeting to cancelled. Idempotent on already-cancelled
// meetings; no memory entries are generated.
func (s *Service) Cancel(ctx context.Context, id string) (*Meeting, error) {
	m, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	if err := m.cancel(s.now()); err != nil {
		return nil, err
	}

	s.logger.Info("meeting cancelled", zap.String("meeting_id", id))
	return m.snapshot(), nil
}

func (s *Service) lookup(id string) (*Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.meetings[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMeetingNotFound, id)
	}
	return m, nil
}
