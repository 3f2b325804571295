package server

import (
	"context"

	"github.com/fyrsmithlabs/governd/internal/config"
	"github.com/fyrsmithlabs/governd/internal/meeting"
)

// MeetingStarter adapts the meeting service to the channel's handoff
// interface. The channel only carries kind, scope and objective, so the
// starter fills in the remaining definition fields from configured defaults.
// The meeting is left scheduled; activating it is a separate user call.
type MeetingStarter struct {
	meetings *meeting.Service
	defaults config.MeetingConfig
}

// NewMeetingStarter creates the adapter.
func NewMeetingStarter(meetings *meeting.Service, defaults config.MeetingConfig) *MeetingStarter {
	return &MeetingStarter{
		meetings: meetings,
		defaults: defaults,
	}
}

// StartMeeting creates a scheduled meeting for an accepted proposal.
func (a *MeetingStarter) StartMeeting(ctx context.Context, initiatorID string, kind meeting.Kind, scope, objective string) (string, error) {
	goal := objective
	if goal == "" {
		goal = "objective to be set in the opening timeline entry"
	}
	if scope == "" {
		scope = "general"
	}

	m, err := a.meetings.Create(ctx, initiatorID, kind, meeting.Definition{
		Scope:           scope,
		Goal:            goal,
		ClosureCriteria: a.defaults.DefaultClosureCriteria,
		MaxDuration:     a.defaults.DefaultMaxDuration,
	})
	if err != nil {
		return "", err
	}
	return m.ID, nil
}
