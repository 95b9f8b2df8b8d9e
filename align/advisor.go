package align

import (
	"context"
	"fmt"
	"strings"

	"planalign/llm"
)

// Advisor generates improvement suggestions, guidance messages, and the
// executive summary. All three are free-text LLM calls with no structured
// contract beyond the prompt instructions.
type Advisor struct {
	chat llm.Provider
}

// NewAdvisor creates an advisor backed by the given chat provider.
func NewAdvisor(chat llm.Provider) *Advisor {
	return &Advisor{chat: chat}
}

const improvementSystemPrompt = `You are a strategic planning advisor for GreenField University.

Given alignment gaps (KPIs without supporting actions or weak coverage),
suggest SPECIFIC, ACTIONABLE improvements.

For each gap, provide:
- GAP: [description]
- SUGGESTED_ACTION: [specific new action with estimated timeline and owner]
- OWNER: [suggested responsible person/department]
- TIMELINE: [realistic timeline]
- IMPACT: [High|Medium|Low]
- REASONING: [why this improvement would help]

Be practical and specific. Reference actual departments and realistic timelines.`

// SuggestImprovements proposes new actions closing the given gaps.
func (a *Advisor) SuggestImprovements(ctx context.Context, objectiveID, objectiveName, gaps, currentActions string) (string, error) {
	prompt := fmt.Sprintf(`Objective: %s - %s

Identified Gaps:
%s

Current Actions:
%s

Suggest improvements:`, objectiveID, objectiveName, gaps, currentActions)

	resp, err := a.chat.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: improvementSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.5,
	})
	if err != nil {
		return "", fmt.Errorf("improvement suggestions: %w", err)
	}
	return resp.Content, nil
}

const guidanceSystemPrompt = `You are a strategic advisor generating guidance messages for university decision-makers.

Given alignment results for a strategic objective, generate 1-3 SHORT guidance messages.
Each message should be:
- Actionable and specific
- Under 20 words
- Prefixed with an appropriate emoji (✅ for on-track, ⚠️ for warning, 🔴 for critical, 📋 for recommendation)

Format: One message per line.`

// GuidanceMessages generates short per-objective guidance lines.
func (a *Advisor) GuidanceMessages(ctx context.Context, objectiveID, objectiveName string, score float64, level, gaps string) ([]string, error) {
	prompt := fmt.Sprintf(`Objective: %s - %s
Alignment Score: %.3f
Alignment Level: %s
Gaps: %s

Generate guidance messages:`, objectiveID, objectiveName, score, level, gaps)

	resp, err := a.chat.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: guidanceSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("guidance messages: %w", err)
	}

	var messages []string
	for _, line := range strings.Split(strings.TrimSpace(resp.Content), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			messages = append(messages, line)
		}
	}
	return messages, nil
}

const summarySystemPrompt = `You are an executive report writer for GreenField University.

Given the synchronization analysis results for all strategic objectives,
write a concise executive summary suitable for a dashboard display.

Include:
1. Overall alignment status (one paragraph)
2. Key strengths (3-4 bullet points)
3. Critical gaps requiring attention (3-4 bullet points)
4. Top 3 priority recommendations

Keep the summary under 300 words. Use clear, actionable language.`

// ExecutiveSummary writes the run-level summary from the per-objective
// score lines.
func (a *Advisor) ExecutiveSummary(ctx context.Context, syncResults string) (string, error) {
	resp, err := a.chat.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: summarySystemPrompt},
			{Role: "user", Content: fmt.Sprintf("Synchronization Results:\n%s\n\nWrite the executive summary:", syncResults)},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("executive summary: %w", err)
	}
	return resp.Content, nil
}
