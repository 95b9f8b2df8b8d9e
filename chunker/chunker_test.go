package chunker

import (
	"strings"
	"testing"
)

const samplePlan = `STRATEGIC PLAN 2025-2029

EXECUTIVE SUMMARY
Our vision is to become a regional leader in applied education.

================

STRATEGIC OBJECTIVE 1: Digital Learning Transformation

Description: Transform teaching through technology-enhanced delivery.

Key Performance Indicators:
| KPI | Description | Baseline | Target |
| D1 | % of modules with tech-enhanced learning | 20% | 80% |
| D2 | Student digital literacy score | 55 | 85 |

================

STRATEGIC OBJECTIVE 2: Research Excellence

Description: Grow applied research output and partnerships.

Timeline and Milestones:
2026: establish research office
2027: first external grants
`

func TestChunkFixedRespectsSize(t *testing.T) {
	c := New(Config{ChunkSize: 200, Overlap: 40})
	chunks := c.Chunk(samplePlan, "strategic_plan", StrategyFixed)
	if len(chunks) < 3 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	// Overlap may push a chunk past ChunkSize by at most the overlap.
	for i, ch := range chunks {
		if len(ch.Content) > 200+40+1 {
			t.Errorf("chunk %d length %d exceeds bound", i, len(ch.Content))
		}
		if ch.Strategy != StrategyFixed {
			t.Errorf("chunk %d strategy = %q", i, ch.Strategy)
		}
		if ch.DocType != "strategic_plan" {
			t.Errorf("chunk %d doc type = %q", i, ch.DocType)
		}
		if ch.ChunkIndex != i {
			t.Errorf("chunk %d index = %d", i, ch.ChunkIndex)
		}
	}
}

func TestChunkFixedOverlap(t *testing.T) {
	c := New(Config{ChunkSize: 150, Overlap: 30})
	chunks := c.Chunk(samplePlan, "strategic_plan", StrategyFixed)
	if len(chunks) < 2 {
		t.Fatalf("need at least two chunks, got %d", len(chunks))
	}
	prev := chunks[0].Content
	tail := prev
	if len(tail) > 30 {
		tail = tail[len(tail)-30:]
		if idx := strings.IndexByte(tail, ' '); idx >= 0 && idx < len(tail)-1 {
			tail = tail[idx+1:]
		}
	}
	if !strings.HasPrefix(chunks[1].Content, tail) {
		t.Errorf("second chunk does not start with overlap tail %q:\n%q", tail, chunks[1].Content)
	}
}

func TestChunkStructuralSections(t *testing.T) {
	c := New(Config{})
	chunks := c.Chunk(samplePlan, "strategic_plan", StrategyStructural)
	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 sections, got %d", len(chunks))
	}

	var so1 *int
	for i := range chunks {
		if chunks[i].ObjectiveID == "SO1" {
			so1 = &i
			break
		}
	}
	if so1 == nil {
		t.Fatal("no chunk tagged SO1")
	}
	ch := chunks[*so1]
	if !strings.Contains(ch.Content, "| D1 |") || !strings.Contains(ch.Content, "| D2 |") {
		t.Errorf("kpi table split across chunks:\n%s", ch.Content)
	}
	if ch.SectionType != "kpi_table" {
		t.Errorf("section type = %q, want kpi_table", ch.SectionType)
	}
}

func TestChunkStructuralOversizedSection(t *testing.T) {
	long := "STRATEGIC OBJECTIVE 3: Community Engagement\n\n" +
		strings.Repeat("Outreach programmes expand access to education for all. ", 40)
	c := New(Config{ChunkSize: 300, Overlap: 50})
	chunks := c.Chunk(long, "strategic_plan", StrategyStructural)
	if len(chunks) < 2 {
		t.Fatalf("oversized section not re-split, got %d chunks", len(chunks))
	}
	for i, ch := range chunks {
		if ch.Strategy != StrategyStructural {
			t.Errorf("chunk %d strategy = %q", i, ch.Strategy)
		}
	}
}

func TestChunkUnknownStrategyFallsBack(t *testing.T) {
	c := New(Config{})
	chunks := c.Chunk("short text here", "action_plan", "bogus")
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks", len(chunks))
	}
	if chunks[0].Strategy != StrategyFixed {
		t.Errorf("strategy = %q, want %q", chunks[0].Strategy, StrategyFixed)
	}
}

func TestExtractObjectiveID(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"banner upper", "STRATEGIC OBJECTIVE 2: Research Excellence", "SO2"},
		{"banner mixed", "Strategic Objective 4 covers partnerships", "SO4"},
		{"short code", "Actions under SO3 are delayed", "SO3"},
		{"action plan header", "Action Plan: implementation detail\nfor Objective 5", "SO5"},
		{"no match", "Budget allocation overview", GeneralObjective},
		{"code in word", "ISOLATED text without codes", GeneralObjective},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractObjectiveID(tt.text); got != tt.want {
				t.Errorf("ExtractObjectiveID(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractSectionType(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"kpi header", "Key Performance Indicators:\n| KPI | Target |", "kpi_table"},
		{"kpi pipe", "| KPI | Baseline |\n| D1 | 20% |", "kpi_table"},
		{"timeline", "Timeline: phase one starts 2026", "timeline"},
		{"milestone", "First milestone reached in Q2", "timeline"},
		{"action table", "| Action ID | Description | Owner |", "action_table"},
		{"risk table", "| RISK-001 | Funding risk | High |", "risk_table"},
		{"budget", "Budget breakdown by department", "budget"},
		{"alignment", "Alignment with national strategy", "alignment"},
		{"summary", "Executive Summary of the plan", "executive_summary"},
		{"vision", "Our vision for the decade", "executive_summary"},
		{"governance", "Governance structure and committees", "governance"},
		{"description", "Description: the objective focuses on", "description"},
		{"fallback", "Miscellaneous closing remarks", "general"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractSectionType(tt.text); got != tt.want {
				t.Errorf("ExtractSectionType = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplitSectionsKeepsTableHeadings(t *testing.T) {
	text := "INTRO\nsome text\n| CAPS CELL | value |\n| second | row |\nmore text"
	sections := splitSections(text)
	if len(sections) != 1 {
		t.Fatalf("table cell treated as heading, got %d sections", len(sections))
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := estimateTokens(strings.Repeat("a", 400)); got != 100 {
		t.Errorf("estimateTokens = %d, want 100", got)
	}
	if got := estimateTokens("ab"); got != 1 {
		t.Errorf("estimateTokens short = %d, want 1", got)
	}
}
