// Package classify screens candidate memory content before it may be
// validated for durable storage.
//
// The classifier is a heuristic filter: it detects marker substrings that
// indicate raw reasoning, transcripts, or speculation, plus a hard length
// limit on semantic summaries. It makes no claim of semantic correctness;
// content without trigger words can still be raw, and a summary can trip a
// marker by accident. The Classifier interface keeps the strategy pluggable
// so a stronger implementation can replace the rule set without touching the
// memory gate's state machine.
package classify

import (
	"regexp"
	"unicode/utf8"
)

// MaxContentLength is the maximum length of a semantic summary, counted in
// runes. Anything longer is assumed to be a transcript or dump rather than a
// summary.
const MaxContentLength = 500

// Reason identifies why a piece of content was classified as forbidden.
type Reason string

const (
	// ReasonReasoningMarker indicates the content contains raw reasoning
	// markers such as "reasoning:" or "thinking:".
	ReasonReasoningMarker Reason = "contains_reasoning_marker"

	// ReasonTranscriptMarker indicates the content looks like a conversation
	// transcript ("transcript", "said:").
	ReasonTranscriptMarker Reason = "contains_transcript_marker"

	// ReasonSpeculationMarker indicates speculative content ("speculation",
	// "agent thinks").
	ReasonSpeculationMarker Reason = "contains_speculation_marker"

	// ReasonExceedsLength indicates the content exceeds MaxContentLength.
	ReasonExceedsLength Reason = "exceeds_length"
)

// Result is the outcome of classifying a piece of content.
type Result struct {
	// Forbidden is true when the content must not reach durable storage.
	Forbidden bool `json:"forbidden"`

	// Reasons lists every rule the content violated. Empty when allowed.
	Reasons []Reason `json:"reasons,omitempty"`
}

// Classifier decides whether content is forbidden from durable storage.
//
// Implementations must be safe for concurrent use.
type Classifier interface {
	Classify(text string) Result
}

// markerRule pairs a compiled pattern with the reason it detects.
// Rules are evaluated in order and every match is reported, so a single
// text can accumulate multiple reasons.
type markerRule struct {
	regex  *regexp.Regexp
	reason Reason
}

// RuleClassifier classifies content using ordered marker rules.
// Thread-safe: all patterns are compiled at construction time.
type RuleClassifier struct {
	rules     []*markerRule
	maxLength int
}

// Option configures a RuleClassifier.
type Option func(*RuleClassifier)

// WithMaxLength overrides the default content length limit.
func WithMaxLength(n int) Option {
	return func(c *RuleClassifier) {
		if n > 0 {
			c.maxLength = n
		}
	}
}

// NewRuleClassifier creates a classifier with the built-in marker rules.
func NewRuleClassifier(opts ...Option) *RuleClassifier {
	c := &RuleClassifier{
		rules:     buildMarkerRules(),
		maxLength: MaxContentLength,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// buildMarkerRules returns the ordered marker rules. All patterns are
// case-insensitive and deliberately unanchored: a marker substring is
// forbidden wherever it appears, embedded in a longer word included.
// Unlike category classification there is no first-match shortcut: every
// violated rule is reported so callers can show the full rejection to the
// user.
func buildMarkerRules() []*markerRule {
	return []*markerRule{
		{
			regex:  regexp.MustCompile(`(?i)(?:reasoning|thinking|chain[ -]of[ -]thought)\s*:`),
			reason: ReasonReasoningMarker,
		},
		{
			regex:  regexp.MustCompile(`(?i)(?:transcript|said\s*:)`),
			reason: ReasonTranscriptMarker,
		},
		{
			regex:  regexp.MustCompile(`(?i)(?:speculat(?:es?|ion|ive)|agent\s+thinks)`),
			reason: ReasonSpeculationMarker,
		},
	}
}

// Classify reports whether the given text is forbidden and why.
// All violated rules are returned, not just the first.
func (c *RuleClassifier) Classify(text string) Result {
	var reasons []Reason

	for _, rule := range c.rules {
		if rule.regex.MatchString(text) {
			reasons = append(reasons, rule.reason)
		}
	}

	// Length is counted in runes, not bytes: a multi-byte summary must not
	// be vetoed early.
	if utf8.RuneCountInString(text) > c.maxLength {
		reasons = append(reasons, ReasonExceedsLength)
	}

	return Result{
		Forbidden: len(reasons) > 0,
		Reasons:   reasons,
	}
}
