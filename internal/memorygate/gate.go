// Package memorygate owns the lifecycle of proposed memory entries and is the
// only component permitted to authorize durable writes.
//
// Entries move proposed -> validated | rejected. Classification happens at
// validation time, not proposal time, so a human can see and edit content
// before it is vetoed. Rejected entries are purged immediately; there is no
// soft delete and no retention window.
package memorygate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/governd/internal/classify"
	"github.com/fyrsmithlabs/governd/internal/principal"
)

var gateTracer = otel.Tracer("governd.memorygate")

// Sink receives validated entries for durable storage. The gate calls
// Persist exactly once per entry that becomes Validated and never for
// entries that are rejected.
type Sink interface {
	Persist(ctx context.Context, entry *MemoryEntry) error
}

// Gate mediates all writes to durable memory storage.
//
// A single mutex guards the entry set, so a validate and a concurrent reject
// on the same entry can never both succeed: whichever acquires the lock first
// removes the entry and the other observes an invalid transition.
type Gate struct {
	classifier classify.Classifier
	resolver   principal.Resolver
	sink       Sink
	logger     *zap.Logger
	metrics    *Metrics

	mu      sync.Mutex
	entries map[string]*MemoryEntry

	// now is injectable for tests.
	now func() time.Time
}

// NewGate creates a memory gate.
func NewGate(classifier classify.Classifier, resolver principal.Resolver, sink Sink, logger *zap.Logger) (*Gate, error) {
	if classifier == nil {
		return nil, fmt.Errorf("classifier cannot be nil")
	}
	if resolver == nil {
		return nil, fmt.Errorf("resolver cannot be nil")
	}
	if sink == nil {
		return nil, fmt.Errorf("sink cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Gate{
		classifier: classifier,
		resolver:   resolver,
		sink:       sink,
		logger:     logger,
		metrics:    NewMetrics(),
		entries:    make(map[string]*MemoryEntry),
		now:        time.Now,
	}, nil
}

// Propose accepts a Proposed entry into the gate.
//
// No classification happens here. A second propose with an ID already in the
// gate fails with ErrDuplicateEntry rather than silently overwriting.
func (g *Gate) Propose(ctx context.Context, entry *MemoryEntry) (*MemoryEntry, error) {
	if entry == nil {
		return nil, ErrInvalidEntry
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	if entry.State != "" && entry.State != StateProposed {
		return nil, fmt.Errorf("%w: cannot propose entry in state %q", ErrInvalidTransition, entry.State)
	}

	owned := entry.clone()
	owned.State = StateProposed
	if owned.ProposedAt.IsZero() {
		owned.ProposedAt = g.now()
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.entries[owned.ID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateEntry, owned.ID)
	}
	g.entries[owned.ID] = owned

	g.metrics.RecordProposed(string(owned.Kind))
	g.logger.Debug("memory entry proposed",
		zap.String("entry_id", owned.ID),
		zap.String("kind", string(owned.Kind)),
		zap.String("source_meeting", owned.SourceMeetingID))

	return owned.clone(), nil
}

// Validate runs the classifier over the entry's final text and, if it passes,
// hands the entry to the persistence sink and marks it Validated.
//
// finalText, when non-empty, replaces the proposed content and is recorded as
// the user's edit. If the classifier vetoes the text the entry is not
// transitioned: it remains Proposed and editable and the error carries the
// rejection reasons. If the sink fails the entry likewise remains Proposed so
// the caller may decide to retry; the gate itself never retries.
func (g *Gate) Validate(ctx context.Context, entryID, validatorID, finalText string) (*MemoryEntry, error) {
	ctx, span := gateTracer.Start(ctx, "Gate.Validate")
	defer span.End()
	span.SetAttributes(attribute.String("entry_id", entryID))

	p, err := g.resolver.Resolve(validatorID)
	if err != nil {
		span.SetStatus(codes.Error, "validator resolution failed")
		return nil, fmt.Errorf("%w: %s", ErrInvalidValidator, validatorID)
	}
	if !p.IsUser() {
		span.SetStatus(codes.Error, "validator is not a user")
		return nil, fmt.Errorf("%w: %s is an agent", ErrInvalidValidator, validatorID)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	entry, ok := g.entries[entryID]
	if !ok {
		span.SetStatus(codes.Error, "entry not in gate")
		return nil, fmt.Errorf("%w: entry %s is not in the gate", ErrInvalidTransition, entryID)
	}

	text := entry.Content
	if finalText != "" {
		text = finalText
	}

	result := g.classifier.Classify(text)
	if result.Forbidden {
		g.metrics.RecordContentRejection(result.Reasons)
		g.logger.Info("memory entry content rejected",
			zap.String("entry_id", entryID),
			zap.Any("reasons", result.Reasons))
		span.SetStatus(codes.Error, "content rejected")
		return nil, &ContentRejectedError{Reasons: result.Reasons}
	}

	validated := entry.clone()
	if finalText != "" && finalText != validated.Content {
		validated.UserEditedContent = finalText
		validated.Content = finalText
	}
	now := g.now()
	validated.State = StateValidated
	validated.ValidatedBy = validatorID
	validated.ValidatedAt = &now

	// Persist before transitioning so a sink failure leaves the entry
	// Proposed. Holding the lock here is what makes validate/reject on the
	// same entry mutually exclusive.
	if err := g.sink.Persist(ctx, validated.clone()); err != nil {
		g.metrics.RecordPersistFailure()
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return nil, fmt.Errorf("persisting entry %s: %w", entryID, err)
	}

	// Handed off to external storage; the in-core representation is dropped.
	delete(g.entries, entryID)

	g.metrics.RecordValidated(string(validated.Kind))
	g.logger.Info("memory entry validated",
		zap.String("entry_id", entryID),
		zap.String("validated_by", validatorID),
		zap.String("scope", validated.Destination.Scope))
	span.SetStatus(codes.Ok, "validated")

	return validated, nil
}

// Reject discards an entry. The entry is purged from the gate immediately;
// rejected content is deleted, not stored.
func (g *Gate) Reject(ctx context.Context, entryID string) error {
	_, span := gateTracer.Start(ctx, "Gate.Reject")
	defer span.End()
	span.SetAttributes(attribute.String("entry_id", entryID))

	g.mu.Lock()
	defer g.mu.Unlock()

	entry, ok := g.entries[entryID]
	if !ok {
		span.SetStatus(codes.Error, "entry not in gate")
		return fmt.Errorf("%w: entry %s is not in the gate", ErrInvalidTransition, entryID)
	}

	delete(g.entries, entryID)

	g.metrics.RecordRejected(string(entry.Kind))
	g.logger.Info("memory entry rejected",
		zap.String("entry_id", entryID),
		zap.String("kind", string(entry.Kind)))
	span.SetStatus(codes.Ok, "rejected")

	return nil
}

// Entry returns a snapshot of a pending entry.
func (g *Gate) Entry(entryID string) (*MemoryEntry, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	entry, ok := g.entries[entryID]
	if !ok {
		return nil, false
	}
	return entry.clone(), true
}

// Pending returns snapshots of all entries awaiting validation.
func (g *Gate) Pending() []*MemoryEntry {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]*MemoryEntry, 0, len(g.entries))
	for _, entry := range g.entries {
		out = append(out, entry.clone())
	}
	return out
}
