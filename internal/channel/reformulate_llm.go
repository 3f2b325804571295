package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/fyrsmithlabs/governd/internal/meeting"
)

// llmPrompt asks the model for a strict JSON verdict. Anything the model
// cannot classify should come back as "simple" so the echo policy applies.
const llmPrompt = `You classify a user request for an assistant system.
Respond with a single JSON object and nothing else:
{"action":"simple"|"meeting_request"|"none","meeting_kind":"reflection"|"team_alignment"|"decision"|"review_audit"|"","text":"<one-sentence restatement>","objective":"<goal if meeting_request, else empty>"}

User scope: %s
User request: %s`

// llmVerdict mirrors the JSON the model is asked to produce.
type llmVerdict struct {
	Action      string `json:"action"`
	MeetingKind string `json:"meeting_kind"`
	Text        string `json:"text"`
	Objective   string `json:"objective"`
}

// LLMReformulator reformulates input through a language model.
//
// The model is treated as an opaque provider: any call or parse failure is
// returned to the session, which surfaces ErrReformulationFailed and stays
// idle. No retries happen here.
type LLMReformulator struct {
	llm llms.Model
}

// NewLLMReformulator creates a reformulator backed by the given model.
func NewLLMReformulator(llm llms.Model) (*LLMReformulator, error) {
	if llm == nil {
		return nil, fmt.Errorf("llm cannot be nil")
	}
	return &LLMReformulator{llm: llm}, nil
}

// Reformulate asks the model for a structured verdict.
func (r *LLMReformulator) Reformulate(ctx context.Context, input UserInput) (Reformulation, error) {
	prompt := fmt.Sprintf(llmPrompt, input.ContextScope, input.RawText)

	response, err := llms.GenerateFromSinglePrompt(ctx, r.llm, prompt, llms.WithTemperature(0))
	if err != nil {
		return Reformulation{}, fmt.Errorf("llm call: %w", err)
	}

	verdict, err := parseVerdict(response)
	if err != nil {
		return Reformulation{}, fmt.Errorf("parsing llm verdict: %w", err)
	}

	var scope []string
	if input.ContextScope != "" {
		scope = []string{input.ContextScope}
	}

	switch verdict.Action {
	case "meeting_request":
		kind := meeting.Kind(verdict.MeetingKind)
		switch kind {
		case meeting.KindReflection, meeting.KindTeamAlignment, meeting.KindDecision, meeting.KindReviewAudit:
		default:
			return Reformulation{}, fmt.Errorf("llm returned unknown meeting kind %q", verdict.MeetingKind)
		}
		objective := verdict.Objective
		if objective == "" {
			objective = input.RawText
		}
		return Reformulation{
			ReformulatedText: verdict.Text,
			Scope:            scope,
			ActionKind:       ActionMeetingRequest,
			MeetingKind:      kind,
			Objective:        objective,
		}, nil
	case "none":
		return Reformulation{
			ReformulatedText: verdict.Text,
			Scope:            scope,
			ActionKind:       ActionNone,
		}, nil
	case "simple":
		text := verdict.Text
		if text == "" {
			text = input.RawText
		}
		return Reformulation{
			ReformulatedText: text,
			Scope:            scope,
			ActionKind:       ActionSimple,
		}, nil
	default:
		return Reformulation{}, fmt.Errorf("llm returned unknown action %q", verdict.Action)
	}
}

// parseVerdict extracts the JSON object from the model response, tolerating
// surrounding prose and markdown fences.
func parseVerdict(response string) (*llmVerdict, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var verdict llmVerdict
	if err := json.Unmarshal([]byte(response[start:end+1]), &verdict); err != nil {
		return nil, err
	}
	return &verdict, nil
}
