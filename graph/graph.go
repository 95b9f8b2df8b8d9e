package graph

// Action status labels derived from progress percentages.
const (
	StatusCompleted  = "Completed"
	StatusInProgress = "In Progress"
	StatusStarted    = "Started"
	StatusNotStarted = "Not Started"
)

// Objective is a strategic objective node.
type Objective struct {
	ID          string
	Title       string
	Description string
}

// KPI is a key performance indicator node under an objective.
type KPI struct {
	ID          string // namespaced, e.g. "SO1_D1"
	ShortID     string // bare id used in document tables, e.g. "D1"
	ObjectiveID string
	Title       string
	Description string
	Baseline    string
	Target      string
}

// Action is an action plan item linked to an objective and a KPI set.
type Action struct {
	ID          string
	Title       string
	Owner       string
	Deadline    string
	Progress    int
	Status      string
	ObjectiveID string
	KPIIDs      []string
	Addendum    bool
}

// Risk is an entry from the action plan risk register.
type Risk struct {
	ID         string
	Title      string
	Likelihood string
	Impact     string
}

// Person is an action owner (person or department).
type Person struct {
	ID    string
	Title string
}

// Stats summarizes node counts for reporting.
type Stats struct {
	Objectives int `json:"objectives"`
	KPIs       int `json:"kpis"`
	Actions    int `json:"actions"`
	Risks      int `json:"risks"`
	People     int `json:"people"`
}

// Graph holds the parsed plan entities. It is populated by Build and then
// handed out only as a read-only View.
type Graph struct {
	objectives []Objective
	kpis       []KPI
	actions    []Action
	risks      []Risk
	people     []Person

	kpisByObjective    map[string][]int
	actionsByObjective map[string][]int
	kpiIndex           map[string]int
}

func newGraph() *Graph {
	return &Graph{
		kpisByObjective:    make(map[string][]int),
		actionsByObjective: make(map[string][]int),
		kpiIndex:           make(map[string]int),
	}
}

func (g *Graph) addObjective(o Objective) {
	g.objectives = append(g.objectives, o)
}

func (g *Graph) addKPI(k KPI) {
	g.kpiIndex[k.ID] = len(g.kpis)
	g.kpisByObjective[k.ObjectiveID] = append(g.kpisByObjective[k.ObjectiveID], len(g.kpis))
	g.kpis = append(g.kpis, k)
}

func (g *Graph) addAction(a Action) {
	g.actionsByObjective[a.ObjectiveID] = append(g.actionsByObjective[a.ObjectiveID], len(g.actions))
	g.actions = append(g.actions, a)
}

func (g *Graph) addRisk(r Risk) {
	g.risks = append(g.risks, r)
}

func (g *Graph) addPerson(p Person) {
	g.people = append(g.people, p)
}

// View returns a read-only handle over the graph.
func (g *Graph) View() View {
	return View{g: g}
}

// View is the read-only query surface over a built graph. All accessors
// return value copies, so callers cannot mutate graph state through it.
type View struct {
	g *Graph
}

// Objectives returns all strategic objectives in catalog order.
func (v View) Objectives() []Objective {
	out := make([]Objective, len(v.g.objectives))
	copy(out, v.g.objectives)
	return out
}

// KPIsForObjective returns the KPIs declared under an objective.
func (v View) KPIsForObjective(objectiveID string) []KPI {
	idxs := v.g.kpisByObjective[objectiveID]
	out := make([]KPI, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, v.g.kpis[i])
	}
	return out
}

// ActionsForObjective returns the actions linked to an objective.
func (v View) ActionsForObjective(objectiveID string) []Action {
	idxs := v.g.actionsByObjective[objectiveID]
	out := make([]Action, 0, len(idxs))
	for _, i := range idxs {
		a := v.g.actions[i]
		kpis := make([]string, len(a.KPIIDs))
		copy(kpis, a.KPIIDs)
		a.KPIIDs = kpis
		out = append(out, a)
	}
	return out
}

// CoveredKPIs returns the distinct KPI ids under an objective that at least
// one action supports.
func (v View) CoveredKPIs(objectiveID string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, i := range v.g.actionsByObjective[objectiveID] {
		for _, kpiID := range v.g.actions[i].KPIIDs {
			if !seen[kpiID] {
				seen[kpiID] = true
				out = append(out, kpiID)
			}
		}
	}
	return out
}

// KPI looks up a KPI by its namespaced id.
func (v View) KPI(id string) (KPI, bool) {
	i, ok := v.g.kpiIndex[id]
	if !ok {
		return KPI{}, false
	}
	return v.g.kpis[i], true
}

// Risks returns the risk register entries.
func (v View) Risks() []Risk {
	out := make([]Risk, len(v.g.risks))
	copy(out, v.g.risks)
	return out
}

// People returns the distinct action owners.
func (v View) People() []Person {
	out := make([]Person, len(v.g.people))
	copy(out, v.g.people)
	return out
}

// Stats returns node counts for the run summary.
func (v View) Stats() Stats {
	return Stats{
		Objectives: len(v.g.objectives),
		KPIs:       len(v.g.kpis),
		Actions:    len(v.g.actions),
		Risks:      len(v.g.risks),
		People:     len(v.g.people),
	}
}

// ProgressToStatus maps a progress percentage to a status label.
func ProgressToStatus(progress int) string {
	switch {
	case progress >= 100:
		return StatusCompleted
	case progress >= 50:
		return StatusInProgress
	case progress > 0:
		return StatusStarted
	default:
		return StatusNotStarted
	}
}
