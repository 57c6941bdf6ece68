package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() AggregatedRecord {
	return NewAggregator(nil, nil).Summarize(
		StudentIdentity{RegistrationNumber: "S1", Name: "One", Branch: "CSE", CurrentSemester: 2},
		[]GradeRow{
			gradeRow(1, "A", "A", 4),
			gradeRow(1, "B", "B+", 3),
			gradeRow(2, "C", "F", 2),
		},
	)
}

func TestColumnCatalog_DefaultCatalog(t *testing.T) {
	catalog := NewColumnCatalog(10)

	all := catalog.Resolve(nil)
	require.Len(t, all, 6+10*3)

	keys := make([]string, 0, 9)
	for _, c := range all[:9] {
		keys = append(keys, c.Key)
	}
	assert.Equal(t, []string{
		"reg_no", "name", "branch", "current_semester", "address", "cgpa",
		"semester1_sgpa", "semester1_credits_obtained", "semester1_total_credits",
	}, keys)

	last := all[len(all)-1]
	assert.Equal(t, "semester10_total_credits", last.Key)
	assert.Equal(t, "Semester 10 Total Credits", last.Label)
}

func TestColumnCatalog_ResolveKeepsRequestedOrder(t *testing.T) {
	catalog := NewColumnCatalog(10)

	cols := catalog.Resolve([]string{"cgpa", "bogus", "reg_no", "semester2_sgpa"})
	require.Len(t, cols, 3)
	assert.Equal(t, "cgpa", cols[0].Key)
	assert.Equal(t, "reg_no", cols[1].Key)
	assert.Equal(t, "semester2_sgpa", cols[2].Key)
}

func TestColumnCatalog_AllUnknownIsEmpty(t *testing.T) {
	catalog := NewColumnCatalog(10)

	assert.Empty(t, catalog.Resolve([]string{"bogus"}))
	assert.Empty(t, catalog.Resolve([]string{"semester11_sgpa"}), "beyond the cap")
}

func TestColumnCatalog_Cap(t *testing.T) {
	catalog := NewColumnCatalog(2)
	assert.Equal(t, 2, catalog.MaxSemesters())

	_, ok := catalog.Lookup("semester2_sgpa")
	assert.True(t, ok)
	_, ok = catalog.Lookup("semester3_sgpa")
	assert.False(t, ok)

	assert.Equal(t, DefaultMaxSemesters, NewColumnCatalog(0).MaxSemesters())
}

func TestColumnCatalog_Extract(t *testing.T) {
	catalog := NewColumnCatalog(4)
	rec := sampleRecord()

	tests := []struct {
		key  string
		want string
	}{
		{"reg_no", "S1"},
		{"name", "One"},
		{"branch", "CSE"},
		{"current_semester", "2"},
		{"address", NotApplicable},
		{"cgpa", "5.89"},
		{"semester1_sgpa", "7.57"},
		{"semester1_credits_obtained", "7 / 7"},
		{"semester1_total_credits", "7"},
		{"semester2_sgpa", "0.00"},
		{"semester2_credits_obtained", "0 / 2"},
		{"semester3_sgpa", NotApplicable},
		{"semester3_credits_obtained", NotApplicable},
		{"semester4_total_credits", NotApplicable},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			col, ok := catalog.Lookup(tt.key)
			require.True(t, ok)
			assert.Equal(t, tt.want, col.Extract(rec))
		})
	}
}

func TestColumnCatalog_AllReturnsCopy(t *testing.T) {
	catalog := NewColumnCatalog(1)
	all := catalog.All()
	all[0].Label = "changed"

	col, _ := catalog.Lookup(all[0].Key)
	assert.Equal(t, "Registration No.", col.Label)
}

func TestFormatMetric(t *testing.T) {
	assert.Equal(t, "7.70", FormatMetric(7.7))
	assert.Equal(t, "0.00", FormatMetric(0))
	assert.Equal(t, "10.00", FormatMetric(10))
}
