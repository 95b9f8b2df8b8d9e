package graph

import "fmt"

// Catalog is the fixed enumerable configuration of strategic objectives and
// their KPI identifiers. It is built once and passed by value into every
// component that needs it; nothing mutates it after construction.
type Catalog struct {
	Objectives []ObjectiveDef
}

// ObjectiveDef declares one strategic objective and its KPI set.
type ObjectiveDef struct {
	ID    string
	Title string
	KPIs  []KPIDef
}

// KPIDef declares one KPI under an objective. ShortID is the bare identifier
// used in document tables ("D1"); the full graph id is "<objective>_<short>".
type KPIDef struct {
	ShortID     string
	Description string
}

// FullKPIID returns the namespaced KPI id, e.g. "SO1_D1".
func FullKPIID(objectiveID, shortID string) string {
	return fmt.Sprintf("%s_%s", objectiveID, shortID)
}

// ObjectiveIDs returns objective ids in declaration order.
func (c Catalog) ObjectiveIDs() []string {
	ids := make([]string, len(c.Objectives))
	for i, o := range c.Objectives {
		ids[i] = o.ID
	}
	return ids
}

// Objective looks up an objective definition by id.
func (c Catalog) Objective(id string) (ObjectiveDef, bool) {
	for _, o := range c.Objectives {
		if o.ID == id {
			return o, true
		}
	}
	return ObjectiveDef{}, false
}

// DefaultCatalog returns the GreenField University objective/KPI tables.
// These ids are fixed to the organization's documents; the ground-truth
// tables in the eval package reference the same ids.
func DefaultCatalog() Catalog {
	return Catalog{Objectives: []ObjectiveDef{
		{
			ID:    "SO1",
			Title: "Digital Learning Transformation",
			KPIs: []KPIDef{
				{ShortID: "D1", Description: "% of modules with tech-enhanced learning"},
				{ShortID: "D2", Description: "Student satisfaction with digital learning"},
				{ShortID: "D3", Description: "Staff completing digital skills training"},
				{ShortID: "D4", Description: "Number of fully online programmes"},
				{ShortID: "D5", Description: "LMS daily active users"},
				{ShortID: "D6", Description: "WCAG 2.1 AA compliance rate for materials"},
			},
		},
		{
			ID:    "SO2",
			Title: "Research Excellence and Innovation",
			KPIs: []KPIDef{
				{ShortID: "R1", Description: "Annual research funding secured (£M)"},
				{ShortID: "R2", Description: "REF outputs rated 3* or 4*"},
				{ShortID: "R3", Description: "Number of active research partnerships"},
				{ShortID: "R4", Description: "PhD completions per year"},
				{ShortID: "R5", Description: "Spin-out ventures created"},
				{ShortID: "R6", Description: "Research publications in top quartile"},
			},
		},
		{
			ID:    "SO3",
			Title: "Student Experience and Wellbeing",
			KPIs: []KPIDef{
				{ShortID: "S1", Description: "Overall NSS satisfaction score"},
				{ShortID: "S2", Description: "Counselling service average wait time (days)"},
				{ShortID: "S3", Description: "Student retention rate (Year 1 to Year 2)"},
				{ShortID: "S4", Description: "Students participating in extracurricular"},
				{ShortID: "S5", Description: "Graduate employability (within 15 months)"},
				{ShortID: "S6", Description: "Personal tutor meeting completion rate"},
			},
		},
		{
			ID:    "SO4",
			Title: "Industry Partnerships and Employability",
			KPIs: []KPIDef{
				{ShortID: "I1", Description: "Graduate employment rate (15 months)"},
				{ShortID: "I2", Description: "Students completing work placements"},
				{ShortID: "I3", Description: "Active industry partnerships"},
				{ShortID: "I4", Description: "Employer satisfaction with graduates"},
				{ShortID: "I5", Description: "Student start-ups launched"},
				{ShortID: "I6", Description: "KTPs and collaborative projects"},
			},
		},
		{
			ID:    "SO5",
			Title: "Operational Efficiency and Sustainability",
			KPIs: []KPIDef{
				{ShortID: "O1", Description: "Carbon emissions reduction (from 2020 base)"},
				{ShortID: "O2", Description: "Administrative process automation rate"},
				{ShortID: "O3", Description: "International student proportion"},
				{ShortID: "O4", Description: "Annual income from exec education (£M)"},
				{ShortID: "O5", Description: "Staff satisfaction with admin processes"},
				{ShortID: "O6", Description: "Energy consumption reduction per m²"},
			},
		},
	}}
}
