package chunker

import (
	"regexp"
	"strings"
)

// GeneralObjective tags chunks that mention no specific objective.
const GeneralObjective = "GENERAL"

// objectivePatterns are tried in order; the first match wins. The
// captured digit becomes the SOn tag.
var objectivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`STRATEGIC OBJECTIVE (\d)`),
	regexp.MustCompile(`Strategic Objective (\d)`),
	regexp.MustCompile(`\bSO(\d)\b`),
	regexp.MustCompile(`(?s)Action Plan:.*?Objective (\d)`),
}

// ExtractObjectiveID infers which strategic objective a chunk belongs
// to, returning GeneralObjective when no pattern matches.
func ExtractObjectiveID(text string) string {
	for _, re := range objectivePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return "SO" + m[1]
		}
	}
	return GeneralObjective
}

// ExtractSectionType classifies a chunk by keyword so retrieval can
// filter on the kind of content it holds.
func ExtractSectionType(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "key performance indicator") || strings.Contains(lower, "| kpi"):
		return "kpi_table"
	case strings.Contains(lower, "timeline") || strings.Contains(lower, "milestone"):
		return "timeline"
	case strings.Contains(lower, "action id") || strings.Contains(lower, "| action"):
		return "action_table"
	case strings.Contains(lower, "risk") && strings.Contains(lower, "|"):
		return "risk_table"
	case strings.Contains(lower, "budget"):
		return "budget"
	case strings.Contains(lower, "alignment"):
		return "alignment"
	case strings.Contains(lower, "executive summary") || strings.Contains(lower, "vision"):
		return "executive_summary"
	case strings.Contains(lower, "governance"):
		return "governance"
	case strings.Contains(lower, "description"):
		return "description"
	default:
		return "general"
	}
}
