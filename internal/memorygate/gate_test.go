package memorygate

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/governd/internal/classify"
	"github.com/fyrsmithlabs/governd/internal/principal"
)

// captureSink records every persisted entry.
type captureSink struct {
	mu      sync.Mutex
	entries []*MemoryEntry
	err     error
}

func (s *captureSink) Persist(ctx context.Context, entry *MemoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func newTestResolver(t *testing.T) *principal.StaticResolver {
	t.Helper()
	r := principal.NewStaticResolver()
	require.NoError(t, r.RegisterUser("user_alice", "Alice"))
	require.NoError(t, r.RegisterAgent("agent_finance", "Finance Agent"))
	return r
}

func newTestGate(t *testing.T, sink Sink) *Gate {
	t.Helper()
	gate, err := NewGate(classify.NewRuleClassifier(), newTestResolver(t), sink, zap.NewNop())
	require.NoError(t, err)
	return gate
}

func newTestEntry(t *testing.T, content string) *MemoryEntry {
	t.Helper()
	entry, err := NewMemoryEntry(KindValidatedDecision, content, "meeting-1", Destination{
		Scope:    "business",
		Location: "decisions",
	})
	require.NoError(t, err)
	return entry
}

func TestNewMemoryEntry(t *testing.T) {
	tests := []struct {
		name    string
		kind    EntryKind
		content string
		scope   string
		wantErr error
	}{
		{name: "valid", kind: KindUserNote, content: "a note", scope: "personal"},
		{name: "invalid kind", kind: EntryKind("transcript"), content: "x", scope: "s", wantErr: ErrInvalidKind},
		{name: "empty content", kind: KindUserNote, content: "", scope: "s", wantErr: ErrEmptyContent},
		{name: "empty scope", kind: KindUserNote, content: "x", scope: "", wantErr: ErrEmptyScope},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := NewMemoryEntry(tt.kind, tt.content, "", Destination{Scope: tt.scope})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, entry.ID)
			assert.Equal(t, StateProposed, entry.State)
			assert.False(t, entry.ProposedAt.IsZero())
		})
	}
}

func TestGate_ProposeAndValidate(t *testing.T) {
	sink := &captureSink{}
	gate := newTestGate(t, sink)
	ctx := context.Background()

	entry := newTestEntry(t, "Adopt the Q3 budget with 5% contingency.")
	proposed, err := gate.Propose(ctx, entry)
	require.NoError(t, err)
	assert.Equal(t, StateProposed, proposed.State)

	// Not persisted at proposal time.
	assert.Zero(t, sink.count())

	validated, err := gate.Validate(ctx, entry.ID, "user_alice", "")
	require.NoError(t, err)
	assert.Equal(t, StateValidated, validated.State)
	assert.Equal(t, "user_alice", validated.ValidatedBy)
	require.NotNil(t, validated.ValidatedAt)

	// Persisted exactly once, and the in-core entry is gone.
	assert.Equal(t, 1, sink.count())
	_, ok := gate.Entry(entry.ID)
	assert.False(t, ok)
}

func TestGate_ValidateWithFinalText(t *testing.T) {
	sink := &captureSink{}
	gate := newTestGate(t, sink)
	ctx := context.Background()

	entry := newTestEntry(t, "Original summary.")
	_, err := gate.Propose(ctx, entry)
	require.NoError(t, err)

	validated, err := gate.Validate(ctx, entry.ID, "user_alice", "Edited summary.")
	require.NoError(t, err)
	assert.Equal(t, "Edited summary.", validated.Content)
	assert.Equal(t, "Edited summary.", validated.UserEditedContent)
	assert.Equal(t, "Edited summary.", sink.entries[0].Content)
}

func TestGate_ContentRejectedStaysProposed(t *testing.T) {
	sink := &captureSink{}
	gate := newTestGate(t, sink)
	ctx := context.Background()

	entry := newTestEntry(t, "reasoning: the agent speculates about revenue")
	_, err := gate.Propose(ctx, entry)
	require.NoError(t, err)

	_, err = gate.Validate(ctx, entry.ID, "user_alice", "")
	require.Error(t, err)

	var rejected *ContentRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.ElementsMatch(t,
		[]classify.Reason{classify.ReasonReasoningMarker, classify.ReasonSpeculationMarker},
		rejected.Reasons)

	// Entry remains Proposed and editable; nothing was persisted.
	pending, ok := gate.Entry(entry.ID)
	require.True(t, ok)
	assert.Equal(t, StateProposed, pending.State)
	assert.Zero(t, sink.count())

	// A revised text passes.
	validated, err := gate.Validate(ctx, entry.ID, "user_alice", "Revenue projection approved for Q3.")
	require.NoError(t, err)
	assert.Equal(t, StateValidated, validated.State)
	assert.Equal(t, 1, sink.count())
}

func TestGate_RejectPurgesEntry(t *testing.T) {
	sink := &captureSink{}
	gate := newTestGate(t, sink)
	ctx := context.Background()

	entry := newTestEntry(t, "A summary to discard.")
	_, err := gate.Propose(ctx, entry)
	require.NoError(t, err)

	require.NoError(t, gate.Reject(ctx, entry.ID))

	// Purged: no lookup, no persist, and validate now fails as an
	// invalid transition.
	_, ok := gate.Entry(entry.ID)
	assert.False(t, ok)
	assert.Zero(t, sink.count())

	_, err = gate.Validate(ctx, entry.ID, "user_alice", "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	err = gate.Reject(ctx, entry.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestGate_AgentCannotValidate(t *testing.T) {
	sink := &captureSink{}
	gate := newTestGate(t, sink)
	ctx := context.Background()

	entry := newTestEntry(t, "A fine summary.")
	_, err := gate.Propose(ctx, entry)
	require.NoError(t, err)

	_, err = gate.Validate(ctx, entry.ID, "agent_finance", "")
	assert.ErrorIs(t, err, ErrInvalidValidator)

	_, err = gate.Validate(ctx, entry.ID, "user_nobody", "")
	assert.ErrorIs(t, err, ErrInvalidValidator)
}

func TestGate_DuplicatePropose(t *testing.T) {
	sink := &captureSink{}
	gate := newTestGate(t, sink)
	ctx := context.Background()

	entry := newTestEntry(t, "First summary.")
	_, err := gate.Propose(ctx, entry)
	require.NoError(t, err)

	// Same ID proposed again, e.g. by a second meeting completing with a
	// colliding ID: must fail, never silently overwrite.
	other := newTestEntry(t, "Second summary.")
	other.ID = entry.ID
	_, err = gate.Propose(ctx, other)
	assert.ErrorIs(t, err, ErrDuplicateEntry)

	pending, ok := gate.Entry(entry.ID)
	require.True(t, ok)
	assert.Equal(t, "First summary.", pending.Content)
}

func TestGate_PersistFailureKeepsEntryProposed(t *testing.T) {
	sink := &captureSink{err: errors.New("disk full")}
	gate := newTestGate(t, sink)
	ctx := context.Background()

	entry := newTestEntry(t, "A summary.")
	_, err := gate.Propose(ctx, entry)
	require.NoError(t, err)

	_, err = gate.Validate(ctx, entry.ID, "user_alice", "")
	require.Error(t, err)

	pending, ok := gate.Entry(entry.ID)
	require.True(t, ok)
	assert.Equal(t, StateProposed, pending.State)
	assert.Empty(t, pending.ValidatedBy)

	// Caller decides to retry after the sink recovers.
	sink.err = nil
	_, err = gate.Validate(ctx, entry.ID, "user_alice", "")
	require.NoError(t, err)
	assert.Equal(t, 1, sink.count())
}

// A validate and a concurrent reject on the same entry never both succeed.
func TestGate_ConcurrentValidateReject(t *testing.T) {
	for i := 0; i < 50; i++ {
		sink := &captureSink{}
		gate := newTestGate(t, sink)
		ctx := context.Background()

		entry := newTestEntry(t, "Contended summary.")
		_, err := gate.Propose(ctx, entry)
		require.NoError(t, err)

		var wg sync.WaitGroup
		var validateErr, rejectErr error

		wg.Add(2)
		go func() {
			defer wg.Done()
			_, validateErr = gate.Validate(ctx, entry.ID, "user_alice", "")
		}()
		go func() {
			defer wg.Done()
			rejectErr = gate.Reject(ctx, entry.ID)
		}()
		wg.Wait()

		succeeded := 0
		if validateErr == nil {
			succeeded++
		}
		if rejectErr == nil {
			succeeded++
		}
		require.Equal(t, 1, succeeded, "exactly one of validate/reject must win")

		if validateErr == nil {
			assert.Equal(t, 1, sink.count())
		} else {
			assert.ErrorIs(t, validateErr, ErrInvalidTransition)
			assert.Zero(t, sink.count())
		}
	}
}

func TestGate_Pending(t *testing.T) {
	sink := &captureSink{}
	gate := newTestGate(t, sink)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := gate.Propose(ctx, newTestEntry(t, "pending summary"))
		require.NoError(t, err)
	}

	pending := gate.Pending()
	assert.Len(t, pending, 3)

	// Snapshots: mutating a returned entry does not affect the gate.
	pending[0].Content = "mutated"
	fresh, ok := gate.Entry(pending[0].ID)
	require.True(t, ok)
	assert.Equal(t, "pending summary", fresh.Content)
}
