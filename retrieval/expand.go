package retrieval

import (
	"context"
	"fmt"
	"strings"

	"planalign/llm"
)

// maxQueryVariants caps the reformulated query set (original included).
// A successful HyDE document is appended on top of this cap.
const maxQueryVariants = 4

const multiQuerySystemPrompt = `You are an expert at reformulating queries for information retrieval.
Given a query about strategic plan alignment, generate 3 alternative versions of the query
that might retrieve different relevant information.

Each query should approach the topic from a slightly different angle:
1. A more specific, detailed version
2. A broader, conceptual version
3. A version focusing on metrics/KPIs/outcomes

Return ONLY the 3 queries, one per line, numbered 1-3.`

const hydeSystemPrompt = `You are an expert in strategic planning and organizational alignment.
Given a strategic objective or query about a university's strategic plan alignment,
generate a HYPOTHETICAL ideal action plan response that would perfectly answer the query.

The hypothetical response should:
- Describe specific, concrete actions that would ideally support the objective
- Include relevant KPIs, timelines, and responsible parties
- Be written in the same style as an organizational action plan
- Be approximately 200-300 words
- Sound like a real action plan document, not a summary

This hypothetical document will be used for semantic search, so make it rich with
relevant terms and concepts that would appear in actual action plan entries.`

// expandQueries asks the LLM for reformulations of the query and returns
// the original plus up to three cleaned variants. On LLM failure the
// original query stands alone.
func (e *Engine) expandQueries(ctx context.Context, query string) []string {
	variants := []string{query}

	resp, err := e.chat.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: multiQuerySystemPrompt},
			{Role: "user", Content: query},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return variants
	}

	for _, line := range strings.Split(strings.TrimSpace(resp.Content), "\n") {
		line = strings.TrimSpace(line)
		if len(line) <= 5 {
			continue
		}
		cleaned := strings.TrimSpace(strings.TrimLeft(line, "0123456789.-) "))
		if cleaned != "" {
			variants = append(variants, cleaned)
		}
	}

	if len(variants) > maxQueryVariants {
		variants = variants[:maxQueryVariants]
	}
	return variants
}

// hydeDocument generates a hypothetical ideal action plan answer for the
// query. The document text is embedded instead of the query, bridging the
// gap between strategic phrasing and operational phrasing.
func (e *Engine) hydeDocument(ctx context.Context, query string) (string, error) {
	resp, err := e.chat.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: hydeSystemPrompt},
			{Role: "user", Content: query},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("hyde generation: %w", err)
	}
	return resp.Content, nil
}
