package align

// Score blending weights. The LLM judgment carries most of the weight since
// semantic understanding of the action text is what the structural score
// cannot see.
const (
	agentKPIWeight   = 0.8
	agentRawWeight   = 0.2
	combinedAgentWt  = 0.8
	combinedOntoWt   = 0.2
	improvementFloor = 0.7
)

// CorrectedAgentScore derives the agent score from the judge's own KPI
// coverage findings. LLMs are poorly calibrated at emitting raw floats, so
// the ratio of covered to total KPIs dominates and the raw score only
// nudges it. With no KPI findings at all, the raw score stands as is.
func CorrectedAgentScore(j Judgment) float64 {
	total := len(j.CoveredKPIs) + len(j.UncoveredKPIs)
	if total == 0 {
		return j.Score
	}
	ratio := float64(len(j.CoveredKPIs)) / float64(total)
	score := agentKPIWeight*ratio + agentRawWeight*j.Score
	return round3(clamp01(score))
}

// CombinedScore blends the corrected agent score with the structural
// ontology score.
func CombinedScore(agent, ontology float64) float64 {
	return round3(combinedAgentWt*agent + combinedOntoWt*ontology)
}

// NeedsImprovement reports whether an objective's combined score is low
// enough to warrant running the improvement pass.
func NeedsImprovement(combined float64) bool {
	return combined < improvementFloor
}

// LevelForCombined classifies a blended per-objective score.
func LevelForCombined(score float64) string {
	switch {
	case score >= 0.8:
		return LevelFull
	case score >= 0.6:
		return LevelPartial
	case score >= 0.4:
		return LevelWeak
	default:
		return LevelMissing
	}
}

// LevelForOntology classifies a structural ontology score. The thresholds
// are looser than the combined ones since the structural score saturates
// lower.
func LevelForOntology(score float64) string {
	switch {
	case score >= 0.75:
		return LevelFull
	case score >= 0.50:
		return LevelPartial
	case score >= 0.25:
		return LevelWeak
	default:
		return LevelMissing
	}
}

// LevelForOverall classifies the mean combined score across all objectives.
func LevelForOverall(score float64) string {
	return LevelForOntology(score)
}

// Overall returns the mean of the per-objective combined scores, rounded.
func Overall(combined []float64) float64 {
	if len(combined) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range combined {
		sum += s
	}
	return round3(sum / float64(len(combined)))
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
