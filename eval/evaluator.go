package eval

import (
	"fmt"
	"sort"
	"strings"

	"planalign/graph"
	"planalign/store"
)

// ObjectiveComparison places the engine's result for one objective
// next to its ground-truth coverage.
type ObjectiveComparison struct {
	Objective   string          `json:"objective"`
	GroundTruth CoverageSummary `json:"ground_truth"`
	SystemScore float64         `json:"system_score"`
	SystemLevel string          `json:"system_level"`
	Deviation   float64         `json:"deviation"` // system score minus ground-truth coverage
	CoveredKPIs []string        `json:"covered_kpis"`
}

// Report is the complete evaluation output.
type Report struct {
	AlignmentAccuracy     AccuracyReport                 `json:"alignment_accuracy"`
	GapDetection          GapReport                      `json:"gap_detection"`
	GroundTruthComparison map[string]ObjectiveComparison `json:"ground_truth_comparison"`
	ChunkingQuality       map[string]ChunkStats          `json:"chunking_quality,omitempty"`
}

// Evaluate runs the full evaluation: alignment accuracy, gap
// detection, a per-objective ground-truth comparison table and, when
// chunks are supplied, chunk quality per document type.
func Evaluate(catalog graph.Catalog, outcomes map[string]ObjectiveOutcome, chunks map[string][]store.Chunk) *Report {
	report := &Report{
		AlignmentAccuracy:     EvaluateAlignmentAccuracy(outcomes),
		GapDetection:          EvaluateGapDetection(outcomes),
		GroundTruthComparison: make(map[string]ObjectiveComparison),
	}

	for _, obj := range catalog.Objectives {
		outcome := outcomes[obj.ID]
		level := outcome.Level
		if level == "" {
			level = "Unknown"
		}
		gt := ObjectiveCoverage(obj.ID, outcome.ActionTitles)
		report.GroundTruthComparison[obj.ID] = ObjectiveComparison{
			Objective:   obj.Title,
			GroundTruth: gt,
			SystemScore: outcome.CombinedScore,
			SystemLevel: level,
			Deviation:   round3(outcome.CombinedScore - gt.CoveragePct),
			CoveredKPIs: outcome.CoveredKPIs,
		}
	}

	if len(chunks) > 0 {
		report.ChunkingQuality = make(map[string]ChunkStats, len(chunks))
		for docType, chunkList := range chunks {
			report.ChunkingQuality[docType] = ComputeChunkQuality(chunkList)
		}
	}
	return report
}

// FormatReport renders a report as a human-readable summary for CLI
// output.
func FormatReport(r *Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Alignment accuracy: %d/%d levels correct (%.0f%%), MAE %.3f\n",
		r.AlignmentAccuracy.CorrectLevels, r.AlignmentAccuracy.TotalObjectives,
		r.AlignmentAccuracy.LevelAccuracy*100, r.AlignmentAccuracy.MeanAbsoluteError)
	fmt.Fprintf(&b, "Gap detection: %d/%d (%.0f%%)\n",
		r.GapDetection.Detected, r.GapDetection.TotalExpectedGaps,
		r.GapDetection.DetectionRate*100)
	for _, g := range r.GapDetection.MissedGaps {
		fmt.Fprintf(&b, "  missed: %s (%s)\n", g.KPI, g.Type)
	}

	ids := make([]string, 0, len(r.GroundTruthComparison))
	for id := range r.GroundTruthComparison {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	b.WriteString("Ground truth comparison:\n")
	for _, id := range ids {
		c := r.GroundTruthComparison[id]
		fmt.Fprintf(&b, "  %-4s system %.2f (%s), expected coverage %.0f%% of %d KPIs\n",
			id, c.SystemScore, c.SystemLevel,
			c.GroundTruth.CoveragePct*100, c.GroundTruth.TotalKPIs)
	}

	if len(r.ChunkingQuality) > 0 {
		b.WriteString("Chunking quality:\n")
		docs := make([]string, 0, len(r.ChunkingQuality))
		for d := range r.ChunkingQuality {
			docs = append(docs, d)
		}
		sort.Strings(docs)
		for _, d := range docs {
			s := r.ChunkingQuality[d]
			fmt.Fprintf(&b, "  %-10s %d chunks, avg %.0f chars (min %d, max %d, std %.0f)\n",
				d, s.TotalChunks, s.AvgLength, s.MinLength, s.MaxLength, s.StdLength)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
