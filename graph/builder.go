package graph

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	actionRowRe   = regexp.MustCompile(`\|\s*(A\d+\.\d+)\s*\|\s*(.*?)\s*\|\s*(.*?)\s*\|\s*(.*?)\s*\|\s*(\d+)%?\s*\|`)
	addendumRe    = regexp.MustCompile(`\[(SO\d+_[A-Z]\d+)\]\s*(.*)`)
	riskRowRe     = regexp.MustCompile(`\|\s*(RISK-\d+)\s*\|\s*(.*?)\s*\|\s*(.*?)\s*\|\s*(.*?)\s*\|`)
	nonAlphaNumRe = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

// Build parses the strategic plan and action plan texts into a knowledge
// graph keyed by the catalog's objectives and KPIs. Parsing is best effort:
// rows that do not match the expected table grammar are skipped, and Build
// never fails. A graph built from empty inputs still carries the full
// objective and KPI skeleton from the catalog.
func Build(catalog Catalog, strategicText, actionText string) *Graph {
	g := newGraph()

	for _, def := range catalog.Objectives {
		g.addObjective(Objective{
			ID:          def.ID,
			Title:       def.Title,
			Description: extractObjectiveDescription(strategicText, def.ID),
		})
		for _, kpiDef := range def.KPIs {
			kpi := KPI{
				ID:          FullKPIID(def.ID, kpiDef.ShortID),
				ShortID:     kpiDef.ShortID,
				ObjectiveID: def.ID,
				Title:       kpiDef.ShortID,
				Description: kpiDef.Description,
			}
			if name, baseline, target, ok := extractKPIDetails(strategicText, kpiDef.ShortID); ok {
				kpi.Title = name
				kpi.Baseline = baseline
				kpi.Target = target
			}
			g.addKPI(kpi)
		}
	}

	extractActions(g, catalog, actionText)
	extractAddendumActions(g, actionText)
	extractRisks(g, actionText)
	extractPeople(g, actionText)

	return g
}

func extractObjectiveDescription(text, objectiveID string) string {
	num := strings.TrimPrefix(objectiveID, "SO")
	re, err := regexp.Compile(`(?is)STRATEGIC OBJECTIVE ` + num +
		`.*?Description:\s*(.*?)(?:Key Performance Indicators|Timeline|$)`)
	if err != nil {
		return ""
	}
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	desc := strings.TrimSpace(m[1])
	// Keep only the first paragraph.
	if i := strings.Index(desc, "\n\n"); i >= 0 {
		desc = strings.TrimSpace(desc[:i])
	}
	return truncate(desc, 500)
}

func extractKPIDetails(text, shortID string) (name, baseline, target string, ok bool) {
	re, err := regexp.Compile(`\|\s*` + regexp.QuoteMeta(shortID) + `\s*\|\s*(.*?)\s*\|\s*(.*?)\s*\|\s*(.*?)\s*\|`)
	if err != nil {
		return "", "", "", false
	}
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", "", "", false
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), strings.TrimSpace(m[3]), true
}

func extractActions(g *Graph, catalog Catalog, text string) {
	currentObj := "SO1"
	for _, m := range actionRowRe.FindAllStringSubmatch(text, -1) {
		id := strings.TrimSpace(m[1])
		title := strings.TrimSpace(m[2])
		owner := strings.TrimSpace(m[3])
		deadline := strings.TrimSpace(m[4])
		progress, err := strconv.Atoi(strings.TrimSpace(m[5]))
		if err != nil {
			continue
		}

		// Action ids carry their objective number: A3.2 belongs to SO3.
		num := strings.TrimPrefix(strings.SplitN(id, ".", 2)[0], "A")
		if len(num) == 1 && strings.Contains("123456", num) {
			currentObj = "SO" + num
		}

		// An action at the table level is taken to support every KPI of
		// its objective; only addendum entries name a single KPI.
		var kpiIDs []string
		if def, found := catalog.Objective(currentObj); found {
			for _, kpiDef := range def.KPIs {
				kpiIDs = append(kpiIDs, FullKPIID(currentObj, kpiDef.ShortID))
			}
		}

		g.addAction(Action{
			ID:          strings.ReplaceAll(id, ".", "_"),
			Title:       truncate(title, 200),
			Owner:       owner,
			Deadline:    deadline,
			Progress:    progress,
			Status:      ProgressToStatus(progress),
			ObjectiveID: currentObj,
			KPIIDs:      kpiIDs,
		})
	}
}

func extractAddendumActions(g *Graph, text string) {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		m := addendumRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		n++
		kpiID := strings.TrimSpace(m[1])
		objectiveID := strings.SplitN(kpiID, "_", 2)[0]

		// Addendum entries have no progress column; treat them as freshly
		// started work due by the end of the planning horizon.
		g.addAction(Action{
			ID:          fmt.Sprintf("%s_ADD_%d", objectiveID, n),
			Title:       truncate(strings.TrimSpace(m[2]), 300),
			Owner:       "Strategic Planning Team",
			Deadline:    "2029",
			Progress:    20,
			Status:      StatusInProgress,
			ObjectiveID: objectiveID,
			KPIIDs:      []string{kpiID},
			Addendum:    true,
		})
	}
}

func extractRisks(g *Graph, text string) {
	for _, m := range riskRowRe.FindAllStringSubmatch(text, -1) {
		g.addRisk(Risk{
			ID:         strings.ReplaceAll(strings.TrimSpace(m[1]), "-", "_"),
			Title:      truncate(strings.TrimSpace(m[2]), 200),
			Likelihood: strings.TrimSpace(m[3]),
			Impact:     strings.TrimSpace(m[4]),
		})
	}
}

func extractPeople(g *Graph, text string) {
	seen := make(map[string]bool)
	for _, m := range actionRowRe.FindAllStringSubmatch(text, -1) {
		owner := strings.TrimSpace(m[3])
		if len(owner) <= 2 || strings.HasPrefix(owner, "-") || seen[owner] {
			continue
		}
		seen[owner] = true
	}
	owners := make([]string, 0, len(seen))
	for owner := range seen {
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	for _, owner := range owners {
		g.addPerson(Person{ID: identifierSafe(owner), Title: owner})
	}
}

func identifierSafe(s string) string {
	return strings.Trim(nonAlphaNumRe.ReplaceAllString(s, "_"), "_")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
