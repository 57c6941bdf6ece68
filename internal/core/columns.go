package core

// columns.go holds the workbook column catalog.
//
// The catalog is a fixed, ordered table generated once from two declarative
// sources: identity columns (one per student attribute) and semester column
// templates (instantiated for semesters 1..maxSemesters). Lookup by key is
// O(1) via an index map built alongside it.

import (
	"fmt"
	"strconv"
)

// DefaultMaxSemesters is the semester window when none is configured.
const DefaultMaxSemesters = 10

// ColumnDefinition projects an AggregatedRecord onto one workbook cell.
type ColumnDefinition struct {
	Key     string                        `json:"key"`
	Label   string                        `json:"label"`
	Extract func(AggregatedRecord) string `json:"-"`
}

var identityColumns = []ColumnDefinition{
	{Key: "reg_no", Label: "Registration No.", Extract: func(r AggregatedRecord) string {
		return r.Student.RegistrationNumber
	}},
	{Key: "name", Label: "Name", Extract: func(r AggregatedRecord) string {
		return orNotApplicable(r.Student.Name)
	}},
	{Key: "branch", Label: "Branch", Extract: func(r AggregatedRecord) string {
		return orNotApplicable(r.Student.Branch)
	}},
	{Key: "current_semester", Label: "Current Semester", Extract: func(r AggregatedRecord) string {
		if r.Student.CurrentSemester <= 0 {
			return NotApplicable
		}
		return strconv.Itoa(r.Student.CurrentSemester)
	}},
	{Key: "address", Label: "Address", Extract: func(r AggregatedRecord) string {
		return orNotApplicable(r.Student.Address)
	}},
	{Key: "cgpa", Label: "Overall CGPA", Extract: func(r AggregatedRecord) string {
		return FormatMetric(r.CGPA)
	}},
}

type semesterColumnTemplate struct {
	keyFormat   string
	labelFormat string
	extract     func(SemesterSummary) string
}

var semesterColumnTemplates = []semesterColumnTemplate{
	{"semester%d_sgpa", "Semester %d SGPA", func(s SemesterSummary) string {
		return FormatMetric(s.SGPA)
	}},
	{"semester%d_credits_obtained", "Semester %d Credits Obtained", func(s SemesterSummary) string {
		return FormatCredits(s)
	}},
	{"semester%d_total_credits", "Semester %d Total Credits", func(s SemesterSummary) string {
		return strconv.Itoa(s.CreditsAttempted)
	}},
}

// ColumnCatalog is the immutable set of selectable workbook columns.
type ColumnCatalog struct {
	columns      []ColumnDefinition
	index        map[string]int
	maxSemesters int
}

// NewColumnCatalog builds the catalog for semesters 1..maxSemesters.
// A non-positive maxSemesters uses DefaultMaxSemesters.
func NewColumnCatalog(maxSemesters int) *ColumnCatalog {
	if maxSemesters <= 0 {
		maxSemesters = DefaultMaxSemesters
	}

	cols := make([]ColumnDefinition, 0, len(identityColumns)+maxSemesters*len(semesterColumnTemplates))
	cols = append(cols, identityColumns...)
	for n := 1; n <= maxSemesters; n++ {
		for _, tmpl := range semesterColumnTemplates {
			cols = append(cols, semesterColumn(n, tmpl))
		}
	}

	index := make(map[string]int, len(cols))
	for i, c := range cols {
		index[c.Key] = i
	}

	return &ColumnCatalog{columns: cols, index: index, maxSemesters: maxSemesters}
}

func semesterColumn(n int, tmpl semesterColumnTemplate) ColumnDefinition {
	return ColumnDefinition{
		Key:   fmt.Sprintf(tmpl.keyFormat, n),
		Label: fmt.Sprintf(tmpl.labelFormat, n),
		Extract: func(r AggregatedRecord) string {
			sem, ok := r.Semester(n)
			if !ok {
				return NotApplicable
			}
			return tmpl.extract(sem)
		},
	}
}

// Resolve returns the definitions for keys in the requested order.
// An empty request returns the full catalog; unknown keys are dropped, so
// the result is empty only when every key is unknown.
func (c *ColumnCatalog) Resolve(keys []string) []ColumnDefinition {
	if len(keys) == 0 {
		return c.All()
	}

	out := make([]ColumnDefinition, 0, len(keys))
	for _, k := range keys {
		if i, ok := c.index[k]; ok {
			out = append(out, c.columns[i])
		}
	}
	return out
}

// Lookup returns the definition for key.
func (c *ColumnCatalog) Lookup(key string) (ColumnDefinition, bool) {
	i, ok := c.index[key]
	if !ok {
		return ColumnDefinition{}, false
	}
	return c.columns[i], true
}

// All returns a copy of the full catalog in display order.
func (c *ColumnCatalog) All() []ColumnDefinition {
	out := make([]ColumnDefinition, len(c.columns))
	copy(out, c.columns)
	return out
}

// MaxSemesters returns the semester window of the catalog.
func (c *ColumnCatalog) MaxSemesters() int {
	return c.maxSemesters
}

// FormatMetric renders SGPA/CGPA exactly as documents and workbooks show it.
func FormatMetric(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// FormatCredits renders "earned / attempted".
func FormatCredits(s SemesterSummary) string {
	return fmt.Sprintf("%d / %d", s.CreditsEarned, s.CreditsAttempted)
}

func orNotApplicable(s string) string {
	if s == "" {
		return NotApplicable
	}
	return s
}
