package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradeRow(sem int, code, grade string, credits int) GradeRow {
	return GradeRow{Semester: sem, SubjectGrade: SubjectGrade{Code: code, Name: code, Grade: grade, Credits: credits}}
}

// ============================================================================
// Summarize
// ============================================================================

func TestSummarize_SGPA(t *testing.T) {
	agg := NewAggregator(nil, nil)

	rec := agg.Summarize(StudentIdentity{RegistrationNumber: "S1"}, []GradeRow{
		gradeRow(1, "CS101", "A", 4),
		gradeRow(1, "MA101", "B+", 3),
	})

	require.Len(t, rec.Semesters, 1)
	sem := rec.Semesters[0]
	assert.Equal(t, 7.57, sem.SGPA)
	assert.Equal(t, 7, sem.CreditsAttempted)
	assert.Equal(t, 7, sem.CreditsEarned)
	assert.Equal(t, 53.0, sem.WeightedPoints)
}

func TestSummarize_ZeroCreditSemester(t *testing.T) {
	agg := NewAggregator(nil, nil)

	rec := agg.Summarize(StudentIdentity{RegistrationNumber: "S1"}, []GradeRow{
		gradeRow(1, "SEM100", "A", 0),
	})

	require.Len(t, rec.Semesters, 1)
	assert.Equal(t, 0.0, rec.Semesters[0].SGPA)
	assert.Equal(t, 0.0, rec.CGPA)
}

func TestSummarize_CGPAIsWeightedNotMean(t *testing.T) {
	agg := NewAggregator(nil, nil)

	// Semester 1: 7 credits, 53 points. Semester 2: 3 credits, 24 points.
	rec := agg.Summarize(StudentIdentity{RegistrationNumber: "S1"}, []GradeRow{
		gradeRow(1, "CS101", "A", 4),
		gradeRow(1, "MA101", "B+", 3),
		gradeRow(2, "CS201", "A", 3),
	})

	require.Len(t, rec.Semesters, 2)
	assert.Equal(t, 7.57, rec.Semesters[0].SGPA)
	assert.Equal(t, 8.0, rec.Semesters[1].SGPA)
	assert.Equal(t, 7.7, rec.CGPA)

	mean := (rec.Semesters[0].SGPA + rec.Semesters[1].SGPA) / 2
	assert.NotEqual(t, round2(mean), rec.CGPA)
}

func TestSummarize_SemesterOrdering(t *testing.T) {
	agg := NewAggregator(nil, nil)

	rec := agg.Summarize(StudentIdentity{RegistrationNumber: "S1"}, []GradeRow{
		gradeRow(3, "C", "A", 1),
		gradeRow(1, "A", "A", 1),
		gradeRow(2, "B", "A", 1),
		gradeRow(1, "A2", "B", 1),
	})

	got := make([]int, len(rec.Semesters))
	for i, s := range rec.Semesters {
		got[i] = s.Number
	}
	assert.Equal(t, []int{1, 2, 3}, got)
	assert.Len(t, rec.Semesters[0].Subjects, 2, "rows of one semester stay together")
}

func TestSummarize_FailingGradesEarnNoCredits(t *testing.T) {
	agg := NewAggregator(nil, nil)

	rec := agg.Summarize(StudentIdentity{RegistrationNumber: "S1"}, []GradeRow{
		gradeRow(1, "A", "A+", 2),
		gradeRow(1, "B", "F", 1),
		gradeRow(1, "C", "absent", 3),
	})

	sem := rec.Semesters[0]
	assert.Equal(t, 2, sem.CreditsEarned)
	assert.Equal(t, 6, sem.CreditsAttempted)
	assert.Equal(t, StatusPass, sem.Subjects[0].Status)
	assert.Equal(t, StatusFail, sem.Subjects[1].Status)
	assert.Equal(t, StatusFail, sem.Subjects[2].Status)
}

func TestSummarize_UnknownGradeScoresZeroButPasses(t *testing.T) {
	agg := NewAggregator(nil, nil)

	rec := agg.Summarize(StudentIdentity{RegistrationNumber: "S1"}, []GradeRow{
		gradeRow(1, "A", "W", 4),
	})

	sub := rec.Semesters[0].Subjects[0]
	assert.Equal(t, 0.0, sub.Point)
	assert.Equal(t, StatusPass, sub.Status)
	assert.Equal(t, 4, rec.Semesters[0].CreditsEarned)
}

func TestSummarize_NoRows(t *testing.T) {
	agg := NewAggregator(nil, nil)
	rec := agg.Summarize(StudentIdentity{RegistrationNumber: "S1"}, nil)

	assert.True(t, rec.Valid())
	assert.Empty(t, rec.Semesters)
	assert.Equal(t, 0.0, rec.CGPA)
}

// ============================================================================
// Aggregate
// ============================================================================

func newTestRepo() *MemoryGrades {
	repo := NewMemoryGrades()
	repo.AddStudent(StudentIdentity{RegistrationNumber: "S1", Name: "One"},
		gradeRow(2, "B", "A", 3),
		gradeRow(1, "A", "A", 4),
		gradeRow(1, "C", "B+", 3),
	)
	repo.AddStudent(StudentIdentity{RegistrationNumber: "S2", Name: "Two"},
		gradeRow(1, "A", "O", 2),
	)
	return repo
}

func TestAggregate_PreservesOrderAndDuplicates(t *testing.T) {
	repo := newTestRepo()
	agg := NewAggregator(repo, nil)

	recs, err := agg.Aggregate(context.Background(), []string{"S2", "S1", "S2"})
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, "S2", recs[0].Student.RegistrationNumber)
	assert.Equal(t, "S1", recs[1].Student.RegistrationNumber)
	assert.Equal(t, recs[0], recs[2])
	assert.Equal(t, 7.7, recs[1].CGPA)
	assert.Zero(t, repo.Outstanding(), "reader must be released")
}

func TestAggregate_UnknownStudent(t *testing.T) {
	repo := newTestRepo()
	agg := NewAggregator(repo, nil)

	recs, err := agg.Aggregate(context.Background(), []string{"no-such-id"})
	require.NoError(t, err)
	require.Len(t, recs, 1)

	rec := recs[0]
	assert.False(t, rec.Valid())
	assert.Equal(t, "Student not found", rec.Error)
	assert.Equal(t, "no-such-id", rec.Student.RegistrationNumber)
	assert.Equal(t, NotApplicable, rec.Student.Name)
	assert.Empty(t, rec.Semesters)
	assert.Equal(t, 0.0, rec.CGPA)
}

func TestAggregate_RepositoryFailureIsFatal(t *testing.T) {
	repo := newTestRepo()
	repo.FailOn("S2", errors.New("connection reset by peer"))
	agg := NewAggregator(repo, nil)

	recs, err := agg.Aggregate(context.Background(), []string{"S1", "S2"})
	require.Error(t, err)
	assert.Nil(t, recs)
	assert.ErrorIs(t, err, ErrRepository)
	assert.Zero(t, repo.Outstanding(), "reader must be released on error")
}

func TestAggregate_Idempotent(t *testing.T) {
	repo := newTestRepo()
	agg := NewAggregator(repo, nil)
	ids := []string{"S1", "S2", "missing"}

	first, err := agg.Aggregate(context.Background(), ids)
	require.NoError(t, err)
	second, err := agg.Aggregate(context.Background(), ids)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAggregate_CancelledContext(t *testing.T) {
	agg := NewAggregator(newTestRepo(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := agg.Aggregate(ctx, []string{"S1"})
	assert.Error(t, err)
}

func TestAggregate_CustomScale(t *testing.T) {
	scale, err := NewGradeScale(map[string]float64{"PASS": 4, "FAIL": 0}, []string{"FAIL"})
	require.NoError(t, err)

	repo := NewMemoryGrades()
	repo.AddStudent(StudentIdentity{RegistrationNumber: "S1"},
		gradeRow(1, "A", "pass", 3),
		gradeRow(1, "B", "fail", 1),
	)

	recs, err := NewAggregator(repo, scale).Aggregate(context.Background(), []string{"S1"})
	require.NoError(t, err)
	assert.Equal(t, 3.0, recs[0].CGPA)
	assert.Equal(t, 3, recs[0].Semesters[0].CreditsEarned)
}
