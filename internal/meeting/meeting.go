// Package meeting owns bounded, closable units of collaborative work.
//
// A meeting declares scope, goal, closure criteria and a maximum duration at
// creation and moves scheduled -> active -> closing -> completed, with
// cancelled reachable from any non-terminal state. Only users initiate
// meetings; agents participate but never start one. At completion the meeting
// generates candidate memory entries and hands them to the memory gate.
package meeting

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/governd/internal/classify"
	"github.com/fyrsmithlabs/governd/internal/memorygate"
	"github.com/fyrsmithlabs/governd/internal/principal"
)

// Meeting is a bounded collaborative work unit. It owns its timeline and
// outputs exclusively; snapshots returned by the service are deep copies.
//
// All mutation goes through methods that hold the meeting's own mutex, so
// transitions on one meeting are serialized while different meetings proceed
// fully in parallel.
type Meeting struct {
	mu sync.Mutex

	// ID is the unique meeting identifier (UUID).
	ID string `json:"id"`

	// Kind is the meeting type.
	Kind Kind `json:"kind"`

	// Status is the lifecycle state.
	Status Status `json:"status"`

	// Definition is the declared bounds of the meeting.
	Definition Definition `json:"definition"`

	// InitiatedBy is the user who created the meeting. Always a user
	// principal; agent IDs are refused at creation.
	InitiatedBy string `json:"initiated_by"`

	// Agents are the passive participants assigned from the roster.
	Agents []principal.AgentRef `json:"agents,omitempty"`

	// Timeline is the append-only activity log.
	Timeline []TimelineEntry `json:"timeline,omitempty"`

	// Outputs are the candidate artifacts proposed during the meeting.
	Outputs []*Output `json:"outputs,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	ClosingAt   *time.Time `json:"closing_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

// newMeeting builds a scheduled meeting. Callers have already validated the
// initiator and definition.
func newMeeting(initiatorID string, kind Kind, def Definition, agents []principal.AgentRef, now time.Time) *Meeting {
	return &Meeting{
		ID:          uuid.New().String(),
		Kind:        kind,
		Status:      StatusScheduled,
		Definition:  def,
		InitiatedBy: initiatorID,
		Agents:      agents,
		CreatedAt:   now,
	}
}

// start transitions scheduled -> active.
func (m *Meeting) start(now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Status != StatusScheduled {
		return fmt.Errorf("%w: cannot start meeting in state %q", ErrInvalidTransition, m.Status)
	}
	m.Status = StatusActive
	m.StartedAt = &now
	return nil
}

// overDeadline reports whether the active phase has outlived its budget.
// Duration is checked lazily on each write attempt; no timer force-closes
// the meeting.
func (m *Meeting) overDeadline(now time.Time) bool {
	return m.StartedAt != nil && now.Sub(*m.StartedAt) > m.Definition.MaxDuration
}

// appendTimeline appends an entry to the timeline. Permitted only while
// active and within the duration budget.
func (m *Meeting) appendTimeline(authorID, content string, now time.Time) (*TimelineEntry, error) {
	if content == "" {
		return nil, ErrEmptyTimelineEntry
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Status != StatusActive {
		return nil, fmt.Errorf("%w: cannot append to timeline in state %q", ErrInvalidTransition, m.Status)
	}
	if m.overDeadline(now) {
		return nil, fmt.Errorf("%w: request closure or cancel", ErrDurationExceeded)
	}

	entry := TimelineEntry{
		ID:         uuid.New().String(),
		AuthorID:   authorID,
		Content:    content,
		RecordedAt: now,
	}
	m.Timeline = append(m.Timeline, entry)
	return &entry, nil
}

// proposeOutput adds a draft output. Permitted only while active and within
// the duration budget.
func (m *Meeting) proposeOutput(kind OutputKind, content string, now time.Time) (*Output, error) {
	if !validOutputKinds[kind] {
		return nil, fmt.Errorf("%w: unknown output kind %q", ErrInvalidTransition, kind)
	}
	if content == "" {
		return nil, ErrEmptyOutputContent
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Status != StatusActive {
		return nil, fmt.Errorf("%w: cannot propose output in state %q", ErrInvalidTransition, m.Status)
	}
	if m.overDeadline(now) {
		return nil, fmt.Errorf("%w: request closure or cancel", ErrDurationExceeded)
	}

	output := &Output{
		ID:      uuid.New().String(),
		Kind:    kind,
		Content: content,
		Status:  OutputDraft,
	}
	m.Outputs = append(m.Outputs, output)

	c := *output
	return &c, nil
}

// requestClosure transitions active -> closing, provided every required
// output kind for the meeting's type has at least one proposed output.
func (m *Meeting) requestClosure(now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Status != StatusActive {
		return fmt.Errorf("%w: cannot request closure in state %q", ErrInvalidTransition, m.Status)
	}

	if missing := m.missingOutputKinds(nil); len(missing) > 0 {
		return fmt.Errorf("%w: %s (%s)", ErrClosureCriteriaUnmet, m.Kind, joinOutputKinds(missing))
	}

	m.Status = StatusClosing
	m.ClosingAt = &now
	return nil
}

// missingOutputKinds returns the required kinds that lack an output in one of
// the accepted statuses. A nil accept set means any status counts.
func (m *Meeting) missingOutputKinds(accept map[OutputStatus]bool) []OutputKind {
	var missing []OutputKind
	for _, required := range requiredOutputs[m.Kind] {
		found := false
		for _, output := range m.Outputs {
			if output.Kind != required {
				continue
			}
			if accept == nil || accept[output.Status] {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, required)
		}
	}
	return missing
}

// validateOutputs marks the given outputs validated. Only callable in
// closing. Either every referenced output exists or nothing is changed.
func (m *Meeting) validateOutputs(outputIDs []string, validatorID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Status != StatusClosing {
		return fmt.Errorf("%w: cannot validate outputs in state %q", ErrInvalidTransition, m.Status)
	}

	byID := make(map[string]*Output, len(m.Outputs))
	for _, output := range m.Outputs {
		byID[output.ID] = output
	}

	targets := make([]*Output, 0, len(outputIDs))
	for _, id := range outputIDs {
		output, ok := byID[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrOutputNotFound, id)
		}
		targets = append(targets, output)
	}

	for _, output := range targets {
		output.Status = OutputValidated
		output.ValidatedBy = validatorID
		at := now
		output.ValidatedAt = &at
	}
	return nil
}

// complete transitions closing -> completed and returns the candidate memory
// entries: one per validated output plus a mandatory summary entry. Fails if
// the kind's required outputs have not all been validated.
func (m *Meeting) complete(now time.Time) ([]*memorygate.MemoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Status != StatusClosing {
		return nil, fmt.Errorf("%w: cannot complete meeting in state %q", ErrInvalidTransition, m.Status)
	}

	validated := map[OutputStatus]bool{OutputValidated: true}
	if missing := m.missingOutputKinds(validated); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s (%s)", ErrOutputsNotValidated, m.Kind, joinOutputKinds(missing))
	}

	var entries []*memorygate.MemoryEntry
	for _, output := range m.Outputs {
		if output.Status != OutputValidated {
			continue
		}
		entry, err := memorygate.NewMemoryEntry(
			entryKindFor(output.Kind),
			output.Content,
			m.ID,
			memorygate.Destination{
				Scope:    m.Definition.Scope,
				Location: string(output.Kind),
			},
		)
		if err != nil {
			return nil, fmt.Errorf("building entry for output %s: %w", output.ID, err)
		}
		entries = append(entries, entry)
	}

	summary, err := memorygate.NewMemoryEntry(
		memorygate.KindValidatedInsight,
		m.summaryText(),
		m.ID,
		memorygate.Destination{
			Scope:    m.Definition.Scope,
			Location: "meeting_summaries",
		},
	)
	if err != nil {
		return nil, fmt.Errorf("building summary entry: %w", err)
	}
	entries = append(entries, summary)

	m.Status = StatusCompleted
	m.CompletedAt = &now
	return entries, nil
}

// summaryText composes the mandatory summary entry, bounded by the gate's
// content length limit.
func (m *Meeting) summaryText() string {
	count := 0
	for _, output := range m.Outputs {
		if output.Status == OutputValidated {
			count++
		}
	}

	text := fmt.Sprintf("%s meeting concluded. Goal: %s. Validated outputs: %d.",
		m.Kind, m.Definition.Goal, count)
	// Truncate by runes so a multi-byte goal is never split mid-sequence.
	if runes := []rune(text); len(runes) > classify.MaxContentLength {
		text = string(runes[:classify.MaxContentLength])
	}
	return text
}

// cancel moves any non-terminal state to cancelled. Calling cancel on an
// already cancelled meeting is a no-op, so retried client calls are
// harmless. Cancelling a completed meeting is an invalid transition.
func (m *Meeting) cancel(now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.Status {
	case StatusCancelled:
		return nil
	case StatusCompleted:
		return fmt.Errorf("%w: cannot cancel a completed meeting", ErrInvalidTransition)
	}

	m.Status = StatusCancelled
	m.CancelledAt = &now
	return nil
}

// snapshot returns a deep copy safe to hand to callers.
func (m *Meeting) snapshot() *Meeting {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := &Meeting{
		ID:          m.ID,
		Kind:        m.Kind,
		Status:      m.Status,
		Definition:  m.Definition,
		InitiatedBy: m.InitiatedBy,
		CreatedAt:   m.CreatedAt,
	}

	c.Agents = make([]principal.AgentRef, len(m.Agents))
	copy(c.Agents, m.Agents)

	c.Timeline = make([]TimelineEntry, len(m.Timeline))
	copy(c.Timeline, m.Timeline)

	c.Outputs = make([]*Output, len(m.Outputs))
	for i, output := range m.Outputs {
		o := *output
		if output.ValidatedAt != nil {
			at := *output.ValidatedAt
			o.ValidatedAt = &at
		}
		c.Outputs[i] = &o
	}

	c.StartedAt = copyTime(m.StartedAt)
	c.ClosingAt = copyTime(m.ClosingAt)
	c.CompletedAt = copyTime(m.CompletedAt)
	c.CancelledAt = copyTime(m.CancelledAt)

	return c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func joinOutputKinds(kinds []OutputKind) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ", ")
}
