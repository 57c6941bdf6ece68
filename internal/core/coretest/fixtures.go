package coretest

import (
	"bytes"
	"io"

	"github.com/JonMunkholm/gradereports/internal/core"
)

// Fixture registration numbers.
const (
	Alice = "21CS001"
	Bob   = "21CS002"
	Carol = "21EC003"
)

// Faculty is mapped to every fixture student.
const Faculty = "fac-1"

// NewRepository returns a repository with three students.
//
// Alice: semester 1 A(4) B+(3) -> SGPA 7.57; semester 2 A+(2) F(1) -> 6.00;
// CGPA (32+21+18+0)/10 = 7.10.
// Bob: one semester with O(3) -> SGPA 10.00.
// Carol: enrolled but without grades.
func NewRepository() *core.MemoryGrades {
	repo := core.NewMemoryGrades()
	repo.AddStudent(core.StudentIdentity{
		RegistrationNumber: Alice,
		Name:               "Alice Kumar",
		Address:            "12 Lake Road",
		Branch:             "CSE",
		CurrentSemester:    3,
	},
		row(2, "CS201", "Data Structures", "A+", 2),
		row(1, "CS101", "Programming", "A", 4),
		row(1, "MA101", "Calculus", "B+", 3),
		row(2, "CS202", "Discrete Math", "F", 1),
	)
	repo.AddStudent(core.StudentIdentity{
		RegistrationNumber: Bob,
		Name:               "Bob <Singh>",
		Branch:             "CSE",
		CurrentSemester:    2,
	},
		row(1, "CS101", "Programming", "o", 3),
	)
	repo.AddStudent(core.StudentIdentity{
		RegistrationNumber: Carol,
		Name:               "Carol Das",
		Branch:             "ECE",
	})
	repo.Map(Faculty, Alice, Bob, Carol)
	return repo
}

func row(sem int, code, name, grade string, credits int) core.GradeRow {
	return core.GradeRow{
		Semester:     sem,
		SubjectGrade: core.SubjectGrade{Code: code, Name: name, Grade: grade, Credits: credits},
	}
}

// BufferSink captures an artifact in memory.
type BufferSink struct {
	Artifact core.Artifact
	Begun    int
	Buf      bytes.Buffer

	// BeginErr fails Begin; WriteErr fails every write.
	BeginErr error
	WriteErr error
}

// Begin implements core.Sink.
func (s *BufferSink) Begin(a core.Artifact) (io.Writer, error) {
	s.Begun++
	if s.BeginErr != nil {
		return nil, s.BeginErr
	}
	s.Artifact = a
	if s.WriteErr != nil {
		return failingWriter{s.WriteErr}, nil
	}
	return &s.Buf, nil
}

type failingWriter struct{ err error }

func (w failingWriter) Write(p []byte) (int, error) { return 0, w.err }
