package meeting

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/governd/internal/memorygate"
	"github.com/fyrsmithlabs/governd/internal/principal"
)

// captureProposer records entries forwarded at completion.
type captureProposer struct {
	mu      sync.Mutex
	entries []*memorygate.MemoryEntry
}

func (p *captureProposer) Propose(ctx context.Context, entry *memorygate.MemoryEntry) (*memorygate.MemoryEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, entry)
	return entry, nil
}

func newTestService(t *testing.T) (*Service, *captureProposer) {
	t.Helper()

	resolver := principal.NewStaticResolver()
	require.NoError(t, resolver.RegisterUser("user_alice", "Alice"))
	require.NoError(t, resolver.RegisterUser("user_bob", "Bob"))
	require.NoError(t, resolver.RegisterAgent("agent_finance", "Finance Agent"))

	roster := NewStaticRoster()
	roster.Add(KindDecision, principal.AgentRef{ID: "agent_finance", Role: "analyst"})

	proposer := &captureProposer{}
	svc, err := NewService(resolver, roster, proposer, zap.NewNop())
	require.NoError(t, err)
	return svc, proposer
}

func validDefinition() Definition {
	return Definition{
		Scope:           "business",
		Goal:            "decide on the Q3 budget",
		ClosureCriteria: "decision record and rationale validated",
		MaxDuration:     time.Hour,
	}
}

func TestService_Create(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	t.Run("valid creation", func(t *testing.T) {
		m, err := svc.Create(ctx, "user_alice", KindDecision, validDefinition())
		require.NoError(t, err)
		assert.Equal(t, StatusScheduled, m.Status)
		assert.Equal(t, "user_alice", m.InitiatedBy)
		assert.Len(t, m.Agents, 1)
		assert.NotEmpty(t, m.ID)
	})

	t.Run("missing fields", func(t *testing.T) {
		tests := []struct {
			name    string
			mutate  func(*Definition)
			wantErr error
		}{
			{"missing scope", func(d *Definition) { d.Scope = "" }, ErrMissingScope},
			{"missing goal", func(d *Definition) { d.Goal = "" }, ErrMissingGoal},
			{"missing closure criteria", func(d *Definition) { d.ClosureCriteria = "" }, ErrMissingClosureCriteria},
			{"missing duration", func(d *Definition) { d.MaxDuration = 0 }, ErrMissingDuration},
			{"negative duration", func(d *Definition) { d.MaxDuration = -time.Minute }, ErrMissingDuration},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				def := validDefinition()
				tt.mutate(&def)
				_, err := svc.Create(ctx, "user_alice", KindDecision, def)
				assert.ErrorIs(t, err, tt.wantErr)
			})
		}
	})

	t.Run("agent initiator refused regardless of valid fields", func(t *testing.T) {
		_, err := svc.Create(ctx, "agent_finance", KindDecision, validDefinition())
		assert.ErrorIs(t, err, ErrInvalidInitiator)
	})

	t.Run("unknown initiator refused", func(t *testing.T) {
		_, err := svc.Create(ctx, "user_nobody", KindDecision, validDefinition())
		assert.ErrorIs(t, err, ErrInvalidInitiator)
	})

	t.Run("invalid kind", func(t *testing.T) {
		_, err := svc.Create(ctx, "user_alice", Kind("standup"), validDefinition())
		assert.ErrorIs(t, err, ErrInvalidKind)
	})
}

func TestService_ClosureRequiresOutputs(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	m, err := svc.Create(ctx, "user_alice", KindDecision, validDefinition())
	require.NoError(t, err)
	_, err = svc.Start(ctx, m.ID)
	require.NoError(t, err)

	// No outputs yet: closure refused.
	_, err = svc.RequestClosure(ctx, m.ID)
	assert.ErrorIs(t, err, ErrClosureCriteriaUnmet)

	// Only one of the two required kinds: still refused.
	_, err = svc.ProposeOutput(ctx, m.ID, OutputDecisionRecord, "Adopt the Q3 budget.")
	require.NoError(t, err)
	_, err = svc.RequestClosure(ctx, m.ID)
	assert.ErrorIs(t, err, ErrClosureCriteriaUnmet)

	// Both required kinds present: closure succeeds.
	_, err = svc.ProposeOutput(ctx, m.ID, OutputRationale, "Budget fits projected revenue.")
	require.NoError(t, err)
	closed, err := svc.RequestClosure(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusClosing, closed.Status)
}

func TestService_CompleteForwardsEntries(t *testing.T) {
	svc, proposer := newTestService(t)
	ctx := context.Background()

	m, err := svc.Create(ctx, "user_alice", KindDecision, validDefinition())
	require.NoError(t, err)
	_, err = svc.Start(ctx, m.ID)
	require.NoError(t, err)

	record, err := svc.ProposeOutput(ctx, m.ID, OutputDecisionRecord, "Adopt the Q3 budget.")
	require.NoError(t, err)
	rationale, err := svc.ProposeOutput(ctx, m.ID, OutputRationale, "Budget fits projected revenue.")
	require.NoError(t, err)

	_, err = svc.RequestClosure(ctx, m.ID)
	require.NoError(t, err)

	// Completing before validation fails.
	_, err = svc.Complete(ctx, m.ID)
	assert.ErrorIs(t, err, ErrOutputsNotValidated)

	_, err = svc.ValidateOutputs(ctx, m.ID, []string{record.ID, rationale.ID}, "user_bob")
	require.NoError(t, err)

	entries, err := svc.Complete(ctx, m.ID)
	require.NoError(t, err)

	// One entry per validated output plus the mandatory summary.
	require.Len(t, entries, 3)
	require.Len(t, proposer.entries, 3)

	kinds := make(map[memorygate.EntryKind]int)
	for _, entry := range entries {
		kinds[entry.Kind]++
		assert.Equal(t, m.ID, entry.SourceMeetingID)
		assert.Equal(t, "business", entry.Destination.Scope)
		assert.Equal(t, memorygate.StateProposed, entry.State)
	}
	assert.Equal(t, 1, kinds[memorygate.KindValidatedDecision])
	assert.Equal(t, 2, kinds[memorygate.KindValidatedInsight]) // rationale + summary

	final, err := svc.Get(m.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, final.Status)
	require.NotNil(t, final.CompletedAt)
}

func TestService_ValidateOutputs(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	m, err := svc.Create(ctx, "user_alice", KindReflection, validDefinition())
	require.NoError(t, err)
	_, err = svc.Start(ctx, m.ID)
	require.NoError(t, err)
	insight, err := svc.ProposeOutput(ctx, m.ID, OutputInsight, "Weekly planning reduces context switching.")
	require.NoError(t, err)

	// Validation outside closing is an invalid transition.
	_, err = svc.ValidateOutputs(ctx, m.ID, []string{insight.ID}, "user_alice")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.RequestClosure(ctx, m.ID)
	require.NoError(t, err)

	// Agents cannot validate.
	_, err = svc.ValidateOutputs(ctx, m.ID, []string{insight.ID}, "agent_finance")
	assert.ErrorIs(t, err, ErrInvalidValidator)

	// Unknown output leaves everything untouched.
	_, err = svc.ValidateOutputs(ctx, m.ID, []string{insight.ID, "missing"}, "user_alice")
	assert.ErrorIs(t, err, ErrOutputNotFound)
	current, err := svc.Get(m.ID)
	require.NoError(t, err)
	assert.Equal(t, OutputDraft, current.Outputs[0].Status)

	validated, err := svc.ValidateOutputs(ctx, m.ID, []string{insight.ID}, "user_alice")
	require.NoError(t, err)
	assert.Equal(t, OutputValidated, validated.Outputs[0].Status)
	assert.Equal(t, "user_alice", validated.Outputs[0].ValidatedBy)
	require.NotNil(t, validated.Outputs[0].ValidatedAt)
}

func TestService_DurationExceeded(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	def := validDefinition()
	def.MaxDuration = 30 * time.Minute

	m, err := svc.Create(ctx, "user_alice", KindDecision, def)
	require.NoError(t, err)
	_, err = svc.Start(ctx, m.ID)
	require.NoError(t, err)

	_, err = svc.AppendTimelineEntry(ctx, m.ID, "agent_finance", "initial analysis")
	require.NoError(t, err)

	// Jump the clock past the budget: further writes are refused but the
	// meeting is not force-closed.
	svc.now = func() time.Time { return time.Now().Add(time.Hour) }

	_, err = svc.AppendTimelineEntry(ctx, m.ID, "agent_finance", "late entry")
	assert.ErrorIs(t, err, ErrDurationExceeded)
	_, err = svc.ProposeOutput(ctx, m.ID, OutputDecisionRecord, "late output")
	assert.ErrorIs(t, err, ErrDurationExceeded)

	current, err := svc.Get(m.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, current.Status)

	// Cancel remains available as the explicit decision.
	cancelled, err := svc.Cancel(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
}

func TestService_CancelIdempotent(t *testing.T) {
	svc, proposer := newTestService(t)
	ctx := context.Background()

	m, err := svc.Create(ctx, "user_alice", KindDecision, validDefinition())
	require.NoError(t, err)

	first, err := svc.Cancel(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, first.Status)

	// Second cancel is a no-op returning the same terminal state.
	second, err := svc.Cancel(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, second.Status)
	assert.Equal(t, first.CancelledAt.Unix(), second.CancelledAt.Unix())

	// Cancelled meetings never generate memory entries.
	assert.Empty(t, proposer.entries)

	// Operations on a cancelled meeting fail, and the meeting stays archived.
	_, err = svc.Start(ctx, m.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.Get(m.ID)
	assert.NoError(t, err)
}

func TestService_TimelineAppendOnly(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	m, err := svc.Create(ctx, "user_alice", KindDecision, validDefinition())
	require.NoError(t, err)

	// Timeline writes outside active are refused.
	_, err = svc.AppendTimelineEntry(ctx, m.ID, "user_alice", "too early")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.Start(ctx, m.ID)
	require.NoError(t, err)

	_, err = svc.AppendTimelineEntry(ctx, m.ID, "user_alice", "first")
	require.NoError(t, err)
	_, err = svc.AppendTimelineEntry(ctx, m.ID, "agent_finance", "second")
	require.NoError(t, err)
	_, err = svc.AppendTimelineEntry(ctx, m.ID, "user_alice", "")
	assert.ErrorIs(t, err, ErrEmptyTimelineEntry)

	current, err := svc.Get(m.ID)
	require.NoError(t, err)
	require.Len(t, current.Timeline, 2)
	assert.Equal(t, "first", current.Timeline[0].Content)
	assert.Equal(t, "second", current.Timeline[1].Content)

	// Snapshots are copies: mutating one does not touch the meeting.
	current.Timeline[0].Content = "tampered"
	fresh, err := svc.Get(m.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", fresh.Timeline[0].Content)
}

func TestService_UnknownMeeting(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Get("missing")
	assert.ErrorIs(t, err, ErrMeetingNotFound)
	_, err = svc.Start(ctx, "missing")
	assert.ErrorIs(t, err, ErrMeetingNotFound)
}

func TestRequiredOutputs(t *testing.T) {
	assert.ElementsMatch(t, []OutputKind{OutputDecisionRecord, OutputRationale}, RequiredOutputs(KindDecision))
	assert.ElementsMatch(t, []OutputKind{OutputFindings}, RequiredOutputs(KindReviewAudit))
	assert.ElementsMatch(t, []OutputKind{OutputInsight}, RequiredOutputs(KindReflection))
	assert.ElementsMatch(t, []OutputKind{OutputAlignmentNote}, RequiredOutputs(KindTeamAlignment))
}
