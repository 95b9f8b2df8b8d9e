package align

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"planalign/llm"
)

// ParseStatus classifies how much of the judge's structured reply could be
// recovered.
type ParseStatus int

const (
	// ParseOK means every expected field was present.
	ParseOK ParseStatus = iota
	// ParsePartial means some fields were missing and defaults were used;
	// Missing names them.
	ParsePartial
	// ParseFailed means no expected field was found at all.
	ParseFailed
)

func (s ParseStatus) String() string {
	switch s {
	case ParseOK:
		return "ok"
	case ParsePartial:
		return "partial"
	case ParseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Judgment is the LLM's alignment assessment for one objective.
type Judgment struct {
	Score         float64  `json:"alignment_score"`
	Level         string   `json:"alignment_level"`
	CoveredKPIs   []string `json:"covered_kpis"`
	UncoveredKPIs []string `json:"uncovered_kpis"`
	Justification string   `json:"justification"`
	Confidence    float64  `json:"confidence"`

	ParseStatus ParseStatus `json:"parse_status"`
	Missing     []string    `json:"missing_fields,omitempty"`
	Raw         string      `json:"raw_response,omitempty"`
}

// Judge asks an LLM to assess alignment between an objective and retrieved
// action plan context.
type Judge struct {
	chat llm.Provider
}

// NewJudge creates a judge backed by the given chat provider.
func NewJudge(chat llm.Provider) *Judge {
	return &Judge{chat: chat}
}

const judgeSystemPrompt = `You are an expert strategic alignment analyst for GreenField University.

Given a Strategic Objective and retrieved Action Plan chunks, assess the alignment.

Evaluate:
1. Coverage: Are all KPIs addressed by actions?
2. Depth: Are the actions detailed enough to achieve the KPI targets?
3. Timeline Alignment: Do action deadlines support milestone dates?
4. Resource Adequacy: Are sufficient resources/owners assigned?

A KPI is "covered" only if at least one action SPECIFICALLY targets what that
KPI measures. Do not assume coverage just because actions exist under the
same objective.

Provide your response in this EXACT format:
ALIGNMENT_SCORE: [0.0-1.0]
ALIGNMENT_LEVEL: [Full|Partial|Weak|Missing]
COVERED_KPIS: [comma-separated list of KPI IDs that have supporting actions]
UNCOVERED_KPIS: [comma-separated list of KPI IDs without adequate action support]
JUSTIFICATION: [2-3 sentences explaining the score]
CONFIDENCE: [0.0-1.0]`

// Assess runs the judgment prompt for one objective. objectiveDetails is the
// objective's description, actionChunks the retrieved context, and mapping
// the graph-derived KPI/action listing.
func (j *Judge) Assess(ctx context.Context, objectiveID, objectiveName, objectiveDetails, actionChunks, mapping string) (Judgment, error) {
	userPrompt := fmt.Sprintf(`Strategic Objective: %s - %s

Strategic Objective Details:
%s

Retrieved Action Plan Chunks:
%s

Ontology Mapping:
%s

Assess the alignment:`, objectiveID, objectiveName, objectiveDetails, actionChunks, mapping)

	resp, err := j.chat.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: judgeSystemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return Judgment{}, fmt.Errorf("judge assessment: %w", err)
	}

	judgment := ParseJudgment(resp.Content)
	if judgment.ParseStatus != ParseOK {
		slog.Warn("align: judge reply incomplete",
			"objective", objectiveID,
			"status", judgment.ParseStatus.String(),
			"missing", strings.Join(judgment.Missing, ","))
	}
	return judgment, nil
}

var judgmentFields = []string{
	"ALIGNMENT_SCORE", "ALIGNMENT_LEVEL", "COVERED_KPIS",
	"UNCOVERED_KPIS", "JUSTIFICATION", "CONFIDENCE",
}

// ParseJudgment extracts the structured fields from a judge reply. Missing
// fields fall back to neutral defaults and are recorded in Missing; a reply
// with no recognizable field at all is marked ParseFailed.
func ParseJudgment(text string) Judgment {
	j := Judgment{
		Score:      0.5,
		Level:      LevelPartial,
		Confidence: 0.5,
		Raw:        text,
	}

	found := make(map[string]bool)
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch key {
		case "ALIGNMENT_SCORE":
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				j.Score = f
				found[key] = true
			}
		case "ALIGNMENT_LEVEL":
			if value != "" {
				j.Level = value
				found[key] = true
			}
		case "COVERED_KPIS":
			j.CoveredKPIs = splitKPIList(value)
			found[key] = true
		case "UNCOVERED_KPIS":
			j.UncoveredKPIs = splitKPIList(value)
			found[key] = true
		case "JUSTIFICATION":
			j.Justification = value
			found[key] = true
		case "CONFIDENCE":
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				j.Confidence = f
				found[key] = true
			}
		}
	}

	for _, f := range judgmentFields {
		if !found[f] {
			j.Missing = append(j.Missing, f)
		}
	}
	switch len(j.Missing) {
	case 0:
		j.ParseStatus = ParseOK
	case len(judgmentFields):
		j.ParseStatus = ParseFailed
	default:
		j.ParseStatus = ParsePartial
	}
	return j
}

func splitKPIList(s string) []string {
	s = strings.Trim(s, "[]")
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" && !strings.EqualFold(p, "none") {
			out = append(out, p)
		}
	}
	return out
}
