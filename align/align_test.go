package align

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"testing"

	"planalign/graph"
	"planalign/llm"
)

const eps = 1e-9

// fakeChat returns canned responses in order and records requests.
type fakeChat struct {
	responses []string
	err       error
	requests  []llm.ChatRequest
}

func (f *fakeChat) Chat(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	i := len(f.requests) - 1
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return &llm.ChatResponse{Content: f.responses[i], Model: "fake"}, nil
}

func (f *fakeChat) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3, 0.4}
	}
	return out, nil
}

const testActionText = `
| A1.1 | Deploy new LMS campus-wide | IT Services | Q2 2025 | 75% |
| A1.2 | Train staff on digital tools | HR Department | Q4 2025 | 30 |
| A1.3 | Pilot online assessments | Registry | Q1 2026 | 20% |

[SO2_R1] Bid for two major research council grants.
`

func testView(t *testing.T) graph.View {
	t.Helper()
	return graph.Build(graph.DefaultCatalog(), "", testActionText).View()
}

func TestScoreOntology(t *testing.T) {
	results := ScoreOntology(testView(t), graph.DefaultCatalog())

	so1 := results["SO1"]
	// 3 actions over 6 KPIs: density 0.5, full coverage via fan-out,
	// avg progress (75+30+20)/3.
	avg := (75.0 + 30.0 + 20.0) / 3.0
	want := 0.4*0.5 + 0.4*1.0 + 0.2*avg/100
	want = math.Round(want*1000) / 1000
	if math.Abs(so1.Score-want) > eps {
		t.Errorf("SO1 score = %v, want %v", so1.Score, want)
	}
	if so1.Level != LevelPartial {
		t.Errorf("SO1 level = %q, want Partial", so1.Level)
	}
	if so1.TotalActions != 3 || so1.TotalKPIs != 6 || so1.KPIsCovered != 6 {
		t.Errorf("SO1 counts: %+v", so1)
	}

	// SO2 has a single addendum action covering one KPI with progress 20.
	so2 := results["SO2"]
	want2 := 0.4*(1.0/6.0) + 0.4*(1.0/6.0) + 0.2*20.0/100
	want2 = math.Round(want2*1000) / 1000
	if math.Abs(so2.Score-want2) > eps {
		t.Errorf("SO2 score = %v, want %v", so2.Score, want2)
	}
	if so2.Level != LevelMissing {
		t.Errorf("SO2 level = %q, want Missing", so2.Level)
	}

	// SO3 has nothing: only objectives and KPIs exist.
	so3 := results["SO3"]
	if so3.Score != 0 || so3.Level != LevelMissing || so3.TotalActions != 0 {
		t.Errorf("SO3 should be empty: %+v", so3)
	}
	if len(results) != 5 {
		t.Errorf("expected results for 5 objectives, got %d", len(results))
	}

	// Scoring an unmodified graph twice must give identical output.
	again := ScoreOntology(testView(t), graph.DefaultCatalog())
	if !reflect.DeepEqual(results, again) {
		t.Error("repeated scoring of the same graph diverged")
	}
}

// Progress columns are not bounded at 100, so a plan reporting
// overdelivery must not push the ontology score past 1.
func TestScoreOntologyClampsScore(t *testing.T) {
	rows := make([]string, 0, 6)
	for i := 1; i <= 6; i++ {
		rows = append(rows, fmt.Sprintf("| A1.%d | Overdelivered initiative %d | PMO | Q4 2025 | 150%% |", i, i))
	}
	v := graph.Build(graph.DefaultCatalog(), "", strings.Join(rows, "\n")).View()

	so1 := ScoreOntology(v, graph.DefaultCatalog())["SO1"]
	// Density and coverage both saturate, so the clamp is what keeps
	// the 150% average progress from producing 1.1.
	if so1.Score != 1 {
		t.Errorf("SO1 score = %v, want 1", so1.Score)
	}
	if so1.Level != LevelFull {
		t.Errorf("SO1 level = %q, want Full", so1.Level)
	}
}

func TestIdentifyGaps(t *testing.T) {
	v := testView(t)

	// SO2: five uncovered KPIs plus the low-progress addendum action.
	gaps := IdentifyGaps(v, "SO2")
	var high, medium int
	for _, g := range gaps {
		switch g.Severity {
		case SeverityHigh:
			high++
			if g.Type != "No supporting actions" || g.KPIID == "" {
				t.Errorf("bad high gap: %+v", g)
			}
		case SeverityMedium:
			medium++
			if g.Type != "Low progress" || g.Progress >= 25 {
				t.Errorf("bad medium gap: %+v", g)
			}
		}
	}
	if high != 5 || medium != 1 {
		t.Errorf("SO2 gaps: %d high, %d medium, want 5/1", high, medium)
	}

	// SO1 is fully covered but has one action under 25% progress.
	gaps = IdentifyGaps(v, "SO1")
	if len(gaps) != 1 || gaps[0].Type != "Low progress" || gaps[0].ActionID != "A1_3" {
		t.Errorf("SO1 gaps: %+v", gaps)
	}
}

func TestParseJudgmentComplete(t *testing.T) {
	reply := `ALIGNMENT_SCORE: 0.85
ALIGNMENT_LEVEL: Full
COVERED_KPIS: SO1_D1, SO1_D2, SO1_D3
UNCOVERED_KPIS: SO1_D4
JUSTIFICATION: Most KPIs have direct supporting actions with good progress.
CONFIDENCE: 0.9`

	j := ParseJudgment(reply)
	if j.ParseStatus != ParseOK {
		t.Fatalf("status = %v, missing = %v", j.ParseStatus, j.Missing)
	}
	if j.Score != 0.85 || j.Level != LevelFull || j.Confidence != 0.9 {
		t.Errorf("parsed fields: %+v", j)
	}
	if len(j.CoveredKPIs) != 3 || j.CoveredKPIs[2] != "SO1_D3" {
		t.Errorf("covered: %v", j.CoveredKPIs)
	}
	if len(j.UncoveredKPIs) != 1 || j.UncoveredKPIs[0] != "SO1_D4" {
		t.Errorf("uncovered: %v", j.UncoveredKPIs)
	}
}

func TestParseJudgmentPartial(t *testing.T) {
	reply := `ALIGNMENT_SCORE: 0.6
COVERED_KPIS: SO1_D1
UNCOVERED_KPIS:`

	j := ParseJudgment(reply)
	if j.ParseStatus != ParsePartial {
		t.Fatalf("status = %v", j.ParseStatus)
	}
	// Defaults stand in for the missing fields.
	if j.Level != LevelPartial || j.Confidence != 0.5 {
		t.Errorf("defaults: %+v", j)
	}
	wantMissing := []string{"ALIGNMENT_LEVEL", "JUSTIFICATION", "CONFIDENCE"}
	if len(j.Missing) != len(wantMissing) {
		t.Fatalf("missing = %v, want %v", j.Missing, wantMissing)
	}
	for i, m := range wantMissing {
		if j.Missing[i] != m {
			t.Errorf("missing[%d] = %q, want %q", i, j.Missing[i], m)
		}
	}
	// An empty UNCOVERED_KPIS line still counts as present.
	if len(j.UncoveredKPIs) != 0 {
		t.Errorf("uncovered: %v", j.UncoveredKPIs)
	}
}

func TestParseJudgmentFailed(t *testing.T) {
	j := ParseJudgment("I am unable to assess this objective right now.")
	if j.ParseStatus != ParseFailed {
		t.Fatalf("status = %v", j.ParseStatus)
	}
	if j.Score != 0.5 || j.Level != LevelPartial || j.Confidence != 0.5 {
		t.Errorf("defaults not applied: %+v", j)
	}
}

func TestCorrectedAgentScore(t *testing.T) {
	j := Judgment{
		Score:         0.7,
		CoveredKPIs:   []string{"SO1_D1", "SO1_D2", "SO1_D3", "SO1_D4"},
		UncoveredKPIs: []string{"SO1_D5", "SO1_D6"},
	}
	// 0.8 * 4/6 + 0.2 * 0.7 = 0.673 (rounded)
	if got := CorrectedAgentScore(j); math.Abs(got-0.673) > eps {
		t.Errorf("corrected = %v, want 0.673", got)
	}

	// No KPI findings: the raw score passes through untouched.
	if got := CorrectedAgentScore(Judgment{Score: 0.42}); got != 0.42 {
		t.Errorf("passthrough = %v", got)
	}

	// Result is clamped into [0, 1].
	over := Judgment{Score: 1.5, CoveredKPIs: []string{"a", "b"}}
	if got := CorrectedAgentScore(over); got != 1.0 {
		t.Errorf("clamp = %v", got)
	}
}

func TestCombinedScoreAndLevels(t *testing.T) {
	// 0.8*0.8 + 0.2*0.42 = 0.724
	if got := CombinedScore(0.8, 0.42); math.Abs(got-0.724) > eps {
		t.Errorf("combined = %v, want 0.724", got)
	}
	if lvl := LevelForCombined(0.724); lvl != LevelPartial {
		t.Errorf("level = %q, want Partial", lvl)
	}

	cases := []struct {
		score float64
		want  string
	}{
		{0.85, LevelFull},
		{0.8, LevelFull},
		{0.6, LevelPartial},
		{0.59, LevelWeak},
		{0.4, LevelWeak},
		{0.39, LevelMissing},
	}
	for _, tc := range cases {
		if got := LevelForCombined(tc.score); got != tc.want {
			t.Errorf("LevelForCombined(%v) = %q, want %q", tc.score, got, tc.want)
		}
	}

	if NeedsImprovement(0.724) != false {
		t.Error("0.724 should not need improvement")
	}
	if NeedsImprovement(0.69) != true {
		t.Error("0.69 should need improvement")
	}
}

func TestOverall(t *testing.T) {
	scores := []float64{0.724, 0.81, 0.55, 0.40, 0.90}
	want := math.Round((0.724+0.81+0.55+0.40+0.90)/5*1000) / 1000
	if got := Overall(scores); math.Abs(got-want) > eps {
		t.Errorf("overall = %v, want %v", got, want)
	}
	if lvl := LevelForOverall(Overall(scores)); lvl != LevelPartial {
		t.Errorf("overall level = %q", lvl)
	}
	if got := Overall(nil); got != 0 {
		t.Errorf("empty overall = %v", got)
	}
}

func TestJudgeAssess(t *testing.T) {
	chat := &fakeChat{responses: []string{`ALIGNMENT_SCORE: 0.7
ALIGNMENT_LEVEL: Partial
COVERED_KPIS: SO1_D1
UNCOVERED_KPIS: SO1_D2
JUSTIFICATION: Partial coverage.
CONFIDENCE: 0.8`}}

	judge := NewJudge(chat)
	j, err := judge.Assess(context.Background(), "SO1", "Digital Learning Transformation",
		"details", "chunks", "mapping")
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if j.ParseStatus != ParseOK || j.Score != 0.7 {
		t.Errorf("judgment: %+v", j)
	}

	req := chat.requests[0]
	if req.Temperature != 0.1 {
		t.Errorf("temperature = %v", req.Temperature)
	}
	if !strings.Contains(req.Messages[1].Content, "SO1 - Digital Learning Transformation") {
		t.Errorf("prompt missing objective header:\n%s", req.Messages[1].Content)
	}
}

func TestJudgeAssessError(t *testing.T) {
	judge := NewJudge(&fakeChat{err: errors.New("boom")})
	_, err := judge.Assess(context.Background(), "SO1", "x", "", "", "")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestAdvisorGuidanceMessages(t *testing.T) {
	chat := &fakeChat{responses: []string{"✅ SO1 on track.\n\n⚠️ Review D4 coverage.\n"}}
	advisor := NewAdvisor(chat)

	msgs, err := advisor.GuidanceMessages(context.Background(), "SO1", "Digital Learning Transformation", 0.81, LevelFull, "none")
	if err != nil {
		t.Fatalf("GuidanceMessages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("messages = %v", msgs)
	}
	if msgs[1] != "⚠️ Review D4 coverage." {
		t.Errorf("msgs[1] = %q", msgs[1])
	}
}

func TestMappingText(t *testing.T) {
	text := MappingText(testView(t), graph.DefaultCatalog(), "SO1")
	for _, want := range []string{
		"Objective: SO1 - Digital Learning Transformation",
		"Total KPIs: 6",
		"Total Actions: 3",
		"A1_1: Deploy new LMS campus-wide (Progress: 75%, Owner: IT Services)",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("mapping text missing %q:\n%s", want, text)
		}
	}
}
