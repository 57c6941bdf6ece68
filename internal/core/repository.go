package core

import "context"

// GradeRepository hands out scoped read access to student and grade data.
// Implementations back it with a pooled connection; Release must return it.
type GradeRepository interface {
	Acquire(ctx context.Context) (GradeReader, error)
}

// GradeReader reads one student at a time over an acquired connection.
// It is used by a single goroutine and must be released on every exit path.
type GradeReader interface {
	// Student returns identity attributes, or an error wrapping
	// ErrStudentNotFound when the registration number is unknown.
	Student(ctx context.Context, id string) (StudentIdentity, error)

	// Grades returns every grade row of the student, in any order.
	Grades(ctx context.Context, id string) ([]GradeRow, error)

	Release()
}

// Authorizer decides whether a faculty member may report on students.
// It returns an error wrapping ErrForbidden when any distinct id is not mapped.
type Authorizer interface {
	Authorize(ctx context.Context, facultyID string, studentIDs []string) error
}

// DistinctIDs returns ids with duplicates removed, first occurrence order kept.
func DistinctIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
