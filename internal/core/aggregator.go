package core

import (
	"context"
	"errors"
	"math"
	"sort"
)

// Aggregator turns grade rows into AggregatedRecords using its grade scale.
type Aggregator struct {
	repo  GradeRepository
	scale *GradeScale
}

// NewAggregator creates an Aggregator. A nil scale uses DefaultGradeScale.
func NewAggregator(repo GradeRepository, scale *GradeScale) *Aggregator {
	if scale == nil {
		scale = DefaultGradeScale()
	}
	return &Aggregator{repo: repo, scale: scale}
}

// Scale returns the grade scale the aggregator scores with.
func (a *Aggregator) Scale() *GradeScale {
	return a.scale
}

// Aggregate returns exactly one record per identifier, in input order.
// Duplicated identifiers yield duplicated records.
//
// Unknown students become error-marked records. Any other repository failure
// aborts the whole batch with a RepositoryError. The connection is acquired
// once and released before returning.
func (a *Aggregator) Aggregate(ctx context.Context, ids []string) ([]AggregatedRecord, error) {
	reader, err := a.repo.Acquire(ctx)
	if err != nil {
		return nil, RepositoryError("aggregate", "acquire grade repository", err)
	}
	defer reader.Release()

	records := make([]AggregatedRecord, len(ids))
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec, err := a.aggregateOne(ctx, reader, id)
		if err != nil {
			return nil, err
		}
		records[i] = rec
	}

	return records, nil
}

func (a *Aggregator) aggregateOne(ctx context.Context, reader GradeReader, id string) (AggregatedRecord, error) {
	student, err := reader.Student(ctx, id)
	if errors.Is(err, ErrStudentNotFound) {
		return MissingRecord(id), nil
	}
	if err != nil {
		return AggregatedRecord{}, RepositoryError("aggregate", "read student "+id, err)
	}

	rows, err := reader.Grades(ctx, id)
	if err != nil {
		return AggregatedRecord{}, RepositoryError("aggregate", "read grades of "+id, err)
	}

	return a.Summarize(student, rows), nil
}

// MissingRecord is the error-marked record for an unresolved identifier.
func MissingRecord(id string) AggregatedRecord {
	return AggregatedRecord{
		Student: StudentIdentity{
			RegistrationNumber: id,
			Name:               NotApplicable,
		},
		Error: "Student not found",
	}
}

// Summarize groups rows by semester and computes SGPA and CGPA.
// It is pure: the same inputs always yield an identical record.
func (a *Aggregator) Summarize(student StudentIdentity, rows []GradeRow) AggregatedRecord {
	bySemester := make(map[int]*SemesterSummary)
	var order []int

	for _, row := range rows {
		sem, ok := bySemester[row.Semester]
		if !ok {
			sem = &SemesterSummary{Number: row.Semester}
			bySemester[row.Semester] = sem
			order = append(order, row.Semester)
		}

		outcome := SubjectOutcome{
			SubjectGrade: row.SubjectGrade,
			Point:        a.scale.Point(row.Grade),
			Status:       a.scale.Status(row.Grade),
		}
		sem.Subjects = append(sem.Subjects, outcome)
		sem.CreditsAttempted += row.Credits
		sem.WeightedPoints += outcome.Point * float64(row.Credits)
		if outcome.Status == StatusPass {
			sem.CreditsEarned += row.Credits
		}
	}

	sort.Ints(order)

	rec := AggregatedRecord{Student: student}
	var totalCredits int
	var totalPoints float64

	for _, n := range order {
		sem := bySemester[n]
		sem.SGPA = gradePointAverage(sem.WeightedPoints, sem.CreditsAttempted)
		totalCredits += sem.CreditsAttempted
		totalPoints += sem.WeightedPoints
		rec.Semesters = append(rec.Semesters, *sem)
	}

	rec.CGPA = gradePointAverage(totalPoints, totalCredits)
	return rec
}

// gradePointAverage is points/credits rounded to 2 decimals, 0 without credits.
func gradePointAverage(points float64, credits int) float64 {
	if credits == 0 {
		return 0
	}
	return round2(points / float64(credits))
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
