package planner

import (
	"encoding/json"
	"strings"

	"github.com/telos-labs/telos/pkg/core"
	"github.com/telos-labs/telos/pkg/errors"
	"github.com/telos-labs/telos/pkg/llm"
)

// Extraction runs in three tiers: (a) the backend returned a structured
// value, read fields directly; (b) the raw text decodes as the same JSON
// shape; (c) line-oriented scanning for the literal field prefixes. Any
// field not found defaults to an empty string.

type nextStepPayload struct {
	Justification string `json:"justification"`
	Context       string `json:"context"`
	SubGoal       string `json:"sub_goal"`
	ToolName      string `json:"tool_name"`
}

type verificationPayload struct {
	Analysis   string `json:"analysis"`
	StopSignal string `json:"stop_signal"`
	Conclusion string `json:"conclusion"`
}

// extractDecision decodes a next-step reply. A reply with no usable content
// at all is a decode failure; a reply that scans to empty fields is not (an
// empty tool name is the caller's "skip this iteration" signal).
func extractDecision(resp *llm.ChatResponse) (core.Decision, error) {
	if resp == nil || (resp.Structured == nil && strings.TrimSpace(resp.Content) == "") {
		return core.Decision{}, errors.New(errors.CodeDecodeFailure, "empty next-step response", nil)
	}

	var payload nextStepPayload
	if resp.Structured != nil {
		if err := json.Unmarshal(resp.Structured, &payload); err == nil {
			return decisionFromPayload(payload), nil
		}
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp.Content)), &payload); err == nil {
		return decisionFromPayload(payload), nil
	}
	return scanDecision(resp.Content), nil
}

func decisionFromPayload(p nextStepPayload) core.Decision {
	return core.Decision{
		Justification: strings.TrimSpace(p.Justification),
		Context:       strings.TrimSpace(p.Context),
		SubGoal:       strings.TrimSpace(p.SubGoal),
		ToolName:      strings.TrimSpace(p.ToolName),
	}
}

// scanDecision is the line-prefix fallback tier.
func scanDecision(content string) core.Decision {
	var decision core.Decision
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Justification:"):
			decision.Justification = strings.TrimSpace(strings.TrimPrefix(line, "Justification:"))
		case strings.HasPrefix(line, "Context:"):
			decision.Context = strings.TrimSpace(strings.TrimPrefix(line, "Context:"))
		case strings.HasPrefix(line, "Sub-Goal:"):
			decision.SubGoal = strings.TrimSpace(strings.TrimPrefix(line, "Sub-Goal:"))
		case strings.HasPrefix(line, "Sub-goal:"):
			decision.SubGoal = strings.TrimSpace(strings.TrimPrefix(line, "Sub-goal:"))
		case strings.HasPrefix(line, "Tool Name:"):
			decision.ToolName = strings.TrimSpace(strings.TrimPrefix(line, "Tool Name:"))
		case strings.HasPrefix(line, "Tool:"):
			decision.ToolName = strings.TrimSpace(strings.TrimPrefix(line, "Tool:"))
		}
	}
	return decision
}

// extractVerification decodes a verify reply. The conclusion defaults to
// CONTINUE whenever no unambiguous STOP token is found.
func extractVerification(resp *llm.ChatResponse) core.VerificationDecision {
	if resp == nil {
		return core.VerificationDecision{Conclusion: core.ConclusionContinue}
	}

	var payload verificationPayload
	if resp.Structured != nil {
		if err := json.Unmarshal(resp.Structured, &payload); err == nil {
			return verificationFromPayload(payload)
		}
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp.Content)), &payload); err == nil {
		return verificationFromPayload(payload)
	}
	return scanVerification(resp.Content)
}

func verificationFromPayload(p verificationPayload) core.VerificationDecision {
	signal := p.StopSignal
	if signal == "" {
		signal = p.Conclusion
	}
	return core.VerificationDecision{
		Analysis:   strings.TrimSpace(p.Analysis),
		Conclusion: parseConclusion(signal),
	}
}

func scanVerification(content string) core.VerificationDecision {
	var verdict core.VerificationDecision
	var conclusion string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Analysis:"):
			verdict.Analysis = strings.TrimSpace(strings.TrimPrefix(line, "Analysis:"))
		case strings.HasPrefix(line, "Conclusion:"):
			conclusion = strings.TrimSpace(strings.TrimPrefix(line, "Conclusion:"))
		}
	}
	verdict.Conclusion = parseConclusion(conclusion)
	return verdict
}

// parseConclusion maps a free-form verdict to STOP or CONTINUE. Quotes and
// case are tolerated; anything ambiguous keeps the loop running.
func parseConclusion(raw string) core.Conclusion {
	cleaned := strings.ToUpper(strings.Trim(strings.TrimSpace(raw), `"'.`))
	if cleaned == string(core.ConclusionStop) {
		return core.ConclusionStop
	}
	return core.ConclusionContinue
}

