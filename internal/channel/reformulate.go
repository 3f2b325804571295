package channel

import (
	"context"
	"regexp"

	"github.com/fyrsmithlabs/governd/internal/meeting"
)

// meetingRule pairs a compiled pattern with the meeting kind it detects.
// Rules are evaluated in order; the first match wins. More specific patterns
// come first to avoid shadowing.
type meetingRule struct {
	regex *regexp.Regexp
	kind  meeting.Kind
}

// RuleReformulator reformulates raw input with ordered keyword rules.
//
// Input matching a meeting rule becomes an ActionMeetingRequest with the
// detected kind. Anything else is echoed verbatim as ActionSimple, so
// unrecognized input still produces a confirmable intent rather than an
// error. Thread-safe: all patterns are compiled at construction time.
type RuleReformulator struct {
	rules []*meetingRule
}

// NewRuleReformulator creates a reformulator with the built-in rules.
func NewRuleReformulator() *RuleReformulator {
	return &RuleReformulator{
		rules: buildMeetingRules(),
	}
}

// buildMeetingRules returns the ordered meeting detection rules.
func buildMeetingRules() []*meetingRule {
	return []*meetingRule{
		{
			regex: regexp.MustCompile(`(?i)\b(?:make\s+a\s+decision|decide|decision\s+(?:about|on)|choose\s+between)\b`),
			kind:  meeting.KindDecision,
		},
		{
			regex: regexp.MustCompile(`(?i)\b(?:review|audit|retrospect\s+on\s+the\s+code)\b`),
			kind:  meeting.KindReviewAudit,
		},
		{
			regex: regexp.MustCompile(`(?i)\b(?:align(?:ment)?|sync\s+(?:up|with)|get\s+everyone\s+on\s+the\s+same\s+page)\b`),
			kind:  meeting.KindTeamAlignment,
		},
		{
			regex: regexp.MustCompile(`(?i)\b(?:reflect(?:ion)?|retro(?:spective)?|look\s+back)\b`),
			kind:  meeting.KindReflection,
		},
	}
}

// Reformulate classifies the input. Never returns an error: the rule set
// always has the echo fallback.
func (r *RuleReformulator) Reformulate(ctx context.Context, input UserInput) (Reformulation, error) {
	var scope []string
	if input.ContextScope != "" {
		scope = []string{input.ContextScope}
	}

	for _, rule := range r.rules {
		if rule.regex.MatchString(input.RawText) {
			return Reformulation{
				ReformulatedText: "Start a " + string(rule.kind) + " meeting: " + input.RawText,
				Scope:            scope,
				ActionKind:       ActionMeetingRequest,
				MeetingKind:      rule.kind,
				Objective:        input.RawText,
			}, nil
		}
	}

	// Echo fallback: unclear input stays confirmable instead of erroring.
	return Reformulation{
		ReformulatedText: input.RawText,
		Scope:            scope,
		ActionKind:       ActionSimple,
	}, nil
}
