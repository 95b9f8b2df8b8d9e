// Package align scores how well action plan items implement strategic
// objectives. It combines a structural score computed from the knowledge
// graph with an LLM judgment, and classifies the blend into alignment levels.
package align

import (
	"fmt"
	"math"
	"strings"

	"planalign/graph"
)

// Alignment levels, ordered from best to worst.
const (
	LevelFull    = "Full"
	LevelPartial = "Partial"
	LevelWeak    = "Weak"
	LevelMissing = "Missing"
)

// Gap severity labels.
const (
	SeverityHigh   = "High"
	SeverityMedium = "Medium"
)

// OntologyResult is the structural alignment score for one objective,
// computed purely from graph relationships without any LLM involvement.
type OntologyResult struct {
	ObjectiveID   string         `json:"objective_id"`
	ObjectiveName string         `json:"objective"`
	Score         float64        `json:"alignment_score"`
	Level         string         `json:"alignment_level"`
	TotalActions  int            `json:"total_actions"`
	TotalKPIs     int            `json:"total_kpis"`
	KPIsCovered   int            `json:"kpis_covered"`
	KPICoverage   float64        `json:"kpi_coverage"`
	AvgProgress   float64        `json:"avg_progress"`
	Actions       []ActionDetail `json:"action_details"`
}

// ActionDetail is the per-action summary carried in an OntologyResult.
type ActionDetail struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Progress int    `json:"progress"`
}

// ScoreOntology computes the structural alignment score for every objective
// in the catalog. The score weighs action density (actions per KPI, capped
// at 1.0) and KPI coverage at 0.4 each, plus average action progress at 0.2.
func ScoreOntology(v graph.View, catalog graph.Catalog) map[string]OntologyResult {
	results := make(map[string]OntologyResult, len(catalog.Objectives))

	for _, def := range catalog.Objectives {
		actions := v.ActionsForObjective(def.ID)
		kpis := v.KPIsForObjective(def.ID)
		covered := v.CoveredKPIs(def.ID)

		var avgProgress float64
		if len(actions) > 0 {
			sum := 0
			for _, a := range actions {
				sum += a.Progress
			}
			avgProgress = float64(sum) / float64(len(actions))
		}

		var density, coverage float64
		if len(kpis) > 0 {
			density = math.Min(float64(len(actions))/float64(len(kpis)), 1.0)
			coverage = float64(len(covered)) / float64(len(kpis))
		}

		// Progress values parsed from plan rows are not bounded at
		// 100, so the blend can exceed 1 without the clamp.
		score := clamp01(0.4*density + 0.4*coverage + 0.2*avgProgress/100)

		details := make([]ActionDetail, len(actions))
		for i, a := range actions {
			details[i] = ActionDetail{ID: a.ID, Title: a.Title, Progress: a.Progress}
		}

		results[def.ID] = OntologyResult{
			ObjectiveID:   def.ID,
			ObjectiveName: def.Title,
			Score:         round3(score),
			Level:         LevelForOntology(score),
			TotalActions:  len(actions),
			TotalKPIs:     len(kpis),
			KPIsCovered:   len(covered),
			KPICoverage:   round3(coverage),
			AvgProgress:   math.Round(avgProgress*10) / 10,
			Actions:       details,
		}
	}

	return results
}

// Gap is one alignment deficiency under an objective, either a KPI with no
// supporting actions or an action stalled below 25% progress.
type Gap struct {
	KPIID       string `json:"kpi_id,omitempty"`
	KPITitle    string `json:"kpi_title,omitempty"`
	ActionID    string `json:"action_id,omitempty"`
	ActionTitle string `json:"action_title,omitempty"`
	Progress    int    `json:"progress,omitempty"`
	Type        string `json:"gap_type"`
	Severity    string `json:"severity"`
}

// IdentifyGaps lists alignment gaps for an objective. Uncovered KPIs come
// first with High severity, followed by low-progress actions at Medium.
func IdentifyGaps(v graph.View, objectiveID string) []Gap {
	covered := make(map[string]bool)
	for _, id := range v.CoveredKPIs(objectiveID) {
		covered[id] = true
	}

	var gaps []Gap
	for _, kpi := range v.KPIsForObjective(objectiveID) {
		if !covered[kpi.ID] {
			gaps = append(gaps, Gap{
				KPIID:    kpi.ID,
				KPITitle: kpi.Title,
				Type:     "No supporting actions",
				Severity: SeverityHigh,
			})
		}
	}
	for _, a := range v.ActionsForObjective(objectiveID) {
		if a.Progress < 25 {
			gaps = append(gaps, Gap{
				ActionID:    a.ID,
				ActionTitle: a.Title,
				Progress:    a.Progress,
				Type:        "Low progress",
				Severity:    SeverityMedium,
			})
		}
	}
	return gaps
}

// MappingText renders the objective's KPIs and actions as plain text for
// inclusion in judge prompts.
func MappingText(v graph.View, catalog graph.Catalog, objectiveID string) string {
	def, _ := catalog.Objective(objectiveID)
	kpis := v.KPIsForObjective(objectiveID)
	actions := v.ActionsForObjective(objectiveID)

	var b strings.Builder
	fmt.Fprintf(&b, "Objective: %s - %s\n", objectiveID, def.Title)
	fmt.Fprintf(&b, "Total KPIs: %d\n", len(kpis))
	fmt.Fprintf(&b, "Total Actions: %d\n", len(actions))

	b.WriteString("\nKPIs to evaluate (decide if each is adequately covered by the actions):\n")
	for _, kpi := range kpis {
		fmt.Fprintf(&b, "  - %s: %s (Baseline: %s, Target: %s)\n",
			kpi.ID, orUnknown(kpi.Title), orUnknown(kpi.Baseline), orUnknown(kpi.Target))
	}

	b.WriteString("\nActions available:\n")
	for _, a := range actions {
		fmt.Fprintf(&b, "  - %s: %s (Progress: %d%%, Owner: %s)\n",
			a.ID, a.Title, a.Progress, orUnknown(a.Owner))
	}
	return b.String()
}

// GapsText renders the gaps for an objective as plain text for prompts.
func GapsText(v graph.View, objectiveID string) string {
	gaps := IdentifyGaps(v, objectiveID)
	if len(gaps) == 0 {
		return "No gaps identified."
	}
	var b strings.Builder
	for _, g := range gaps {
		switch g.Type {
		case "No supporting actions":
			fmt.Fprintf(&b, "- %s (%s): no supporting actions [severity: %s]\n", g.KPIID, g.KPITitle, g.Severity)
		default:
			fmt.Fprintf(&b, "- %s (%s): low progress at %d%% [severity: %s]\n", g.ActionID, g.ActionTitle, g.Progress, g.Severity)
		}
	}
	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
