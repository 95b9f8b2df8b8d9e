// Package eval scores the engine's output against hand-crafted ground
// truth derived from the alignment matrix in the action plan.
package eval

import (
	"sort"
	"strings"
)

// Coverage levels assigned to each KPI in the ground truth.
const (
	CoverageFull    = "Full"
	CoveragePartial = "Partial"
	CoverageWeak    = "Weak"
	CoverageMissing = "Missing"
)

// GroundTruthEntry records which actions should support a KPI and how
// complete that support is.
type GroundTruthEntry struct {
	Actions  []string
	Coverage string
}

// GroundTruth maps full KPI IDs to their expected supporting actions.
// Derived from the alignment matrix in the action plan; the Missing
// and Weak entries are deliberate gaps the engine should surface.
var GroundTruth = map[string]GroundTruthEntry{
	// SO1: Digital Learning Transformation
	"SO1_D1": {Actions: []string{"A1.3", "A1.8", "A1.10", "A1.12"}, Coverage: CoverageFull},
	"SO1_D2": {Actions: []string{"A1.3", "A1.5", "A1.6", "A1.8"}, Coverage: CoverageFull},
	"SO1_D3": {Actions: []string{"A1.1", "A1.2", "A1.4", "A1.7"}, Coverage: CoverageFull},
	"SO1_D4": {Actions: []string{"A1.4", "A1.9", "A1.11"}, Coverage: CoverageFull},
	"SO1_D5": {Actions: []string{"A1.5", "A1.6", "A1.10"}, Coverage: CoverageFull},
	"SO1_D6": {Actions: []string{"A1.1", "A1.2", "A1.7", "A1.9", "A1.11", "A1.12"}, Coverage: CoverageFull},

	// SO2: Research Excellence and Innovation
	"SO2_R1": {Actions: []string{"A2.1", "A2.3"}, Coverage: CoveragePartial},
	"SO2_R2": {Actions: []string{"A2.2", "A2.4", "A2.6"}, Coverage: CoverageFull},
	"SO2_R3": {Actions: []string{"A2.5", "A2.7", "A2.8"}, Coverage: CoverageFull},
	"SO2_R4": {Actions: []string{"A2.9", "A2.10"}, Coverage: CoverageFull},
	"SO2_R5": {Actions: []string{"A2.4", "A2.6", "A2.11"}, Coverage: CoverageFull},
	"SO2_R6": {Actions: []string{"A2.2", "A2.12"}, Coverage: CoverageFull},

	// SO3: Student Experience and Wellbeing
	"SO3_S1": {Actions: []string{"A3.1", "A3.2", "A3.5"}, Coverage: CoverageFull},
	"SO3_S2": {Actions: []string{"A3.3", "A3.6"}, Coverage: CoverageFull},
	"SO3_S3": {Actions: []string{"A3.4", "A3.7", "A3.8"}, Coverage: CoverageFull},
	"SO3_S4": {Actions: []string{"A3.9", "A3.10"}, Coverage: CoverageFull},
	"SO3_S5": {Actions: []string{"A3.7", "A3.11"}, Coverage: CoveragePartial},
	"SO3_S6": {Actions: []string{"A3.8", "A3.10", "A3.12"}, Coverage: CoverageFull},

	// SO4: Industry Partnerships and Employability
	"SO4_I1": {Actions: []string{"A4.1", "A4.4", "A4.6"}, Coverage: CoverageFull},
	"SO4_I2": {Actions: []string{"A4.2", "A4.5"}, Coverage: CoverageFull},
	"SO4_I3": {Actions: []string{"A4.3", "A4.7", "A4.8"}, Coverage: CoverageFull},
	"SO4_I4": {Actions: nil, Coverage: CoverageMissing}, // employer satisfaction
	"SO4_I5": {Actions: []string{"A4.9", "A4.10"}, Coverage: CoverageFull},
	"SO4_I6": {Actions: []string{"A4.11", "A4.12"}, Coverage: CoverageFull},

	// SO5: Operational Efficiency and Sustainability
	"SO5_O1": {Actions: []string{"A5.1", "A5.2", "A5.5"}, Coverage: CoverageFull},
	"SO5_O2": {Actions: []string{"A5.3", "A5.6", "A5.7"}, Coverage: CoverageFull},
	"SO5_O3": {Actions: nil, Coverage: CoverageMissing}, // international recruitment
	"SO5_O4": {Actions: nil, Coverage: CoverageMissing}, // executive education
	"SO5_O5": {Actions: []string{"A5.8"}, Coverage: CoverageWeak}, // staff satisfaction
	"SO5_O6": {Actions: []string{"A5.9", "A5.10", "A5.11", "A5.12"}, Coverage: CoverageFull},
}

// Expectation is the alignment level and minimum combined score an
// objective should reach.
type Expectation struct {
	Level    string
	MinScore float64
}

// ExpectedAlignment holds the per-objective expectations.
var ExpectedAlignment = map[string]Expectation{
	"SO1": {Level: "Full", MinScore: 0.85},
	"SO2": {Level: "Full", MinScore: 0.80},
	"SO3": {Level: "Full", MinScore: 0.80},
	"SO4": {Level: "Partial", MinScore: 0.60},
	"SO5": {Level: "Partial", MinScore: 0.50},
}

// ExpectedGap is a known alignment gap the engine should detect.
type ExpectedGap struct {
	KPI         string `json:"kpi"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// ExpectedGaps lists the deliberate gaps seeded in the plan documents.
var ExpectedGaps = []ExpectedGap{
	{KPI: "SO4_I4", Type: CoverageMissing, Description: "Employer satisfaction - no supporting actions"},
	{KPI: "SO5_O3", Type: CoverageMissing, Description: "International student recruitment revenue - no actions"},
	{KPI: "SO5_O4", Type: CoverageMissing, Description: "Executive education income - no actions"},
	{KPI: "SO5_O5", Type: CoverageWeak, Description: "Staff satisfaction - only one supporting action"},
	{KPI: "SO2_R1", Type: CoveragePartial, Description: "Research income - limited action coverage"},
}

// ExpectedAction pairs an action ID with its title from the engine's
// action map, when known.
type ExpectedAction struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// KPIDetail is the per-KPI breakdown within a coverage summary.
type KPIDetail struct {
	KPIID           string           `json:"kpi_id"`
	Coverage        string           `json:"coverage"`
	ExpectedActions []ExpectedAction `json:"expected_actions"`
}

// CoverageSummary aggregates ground-truth coverage for one objective.
type CoverageSummary struct {
	ObjectiveID string      `json:"objective_id"`
	TotalKPIs   int         `json:"total_kpis"`
	Full        int         `json:"full"`
	Partial     int         `json:"partial"`
	Weak        int         `json:"weak"`
	Missing     int         `json:"missing"`
	CoveragePct float64     `json:"coverage_pct"`
	KPIDetails  []KPIDetail `json:"kpi_details,omitempty"`
}

// ObjectiveCoverage summarizes ground-truth coverage for one objective.
// Partial coverage counts half, weak a quarter. When actionTitles maps
// action IDs (dot form, e.g. "A1.1") to titles, a per-KPI breakdown is
// included.
func ObjectiveCoverage(objectiveID string, actionTitles map[string]string) CoverageSummary {
	prefix := objectiveID + "_"

	var kpiIDs []string
	for id := range GroundTruth {
		if strings.HasPrefix(id, prefix) {
			kpiIDs = append(kpiIDs, id)
		}
	}
	sort.Strings(kpiIDs)

	sum := CoverageSummary{ObjectiveID: objectiveID, TotalKPIs: len(kpiIDs)}
	for _, id := range kpiIDs {
		entry := GroundTruth[id]
		switch entry.Coverage {
		case CoverageFull:
			sum.Full++
		case CoveragePartial:
			sum.Partial++
		case CoverageWeak:
			sum.Weak++
		case CoverageMissing:
			sum.Missing++
		}

		if actionTitles != nil {
			detail := KPIDetail{KPIID: id, Coverage: entry.Coverage}
			for _, actionID := range entry.Actions {
				title, ok := actionTitles[actionID]
				if !ok {
					title = "Description not found"
				}
				detail.ExpectedActions = append(detail.ExpectedActions, ExpectedAction{ID: actionID, Title: title})
			}
			sum.KPIDetails = append(sum.KPIDetails, detail)
		}
	}

	if sum.TotalKPIs > 0 {
		sum.CoveragePct = (float64(sum.Full) + 0.5*float64(sum.Partial) + 0.25*float64(sum.Weak)) / float64(sum.TotalKPIs)
	}
	return sum
}
