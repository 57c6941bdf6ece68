package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// MemoryGrades is an in-process GradeRepository and Authorizer.
// The CLI loads it from a JSON fixture for offline runs; tests use it directly.
type MemoryGrades struct {
	mu       sync.RWMutex
	students map[string]StudentIdentity
	grades   map[string][]GradeRow
	mapping  map[string]map[string]bool

	// failOn makes reads of the given student fail with the given error.
	failOn map[string]error

	acquired int
	released int
}

// MemoryFixture is the JSON layout accepted by LoadMemoryGrades.
type MemoryFixture struct {
	Students []struct {
		StudentIdentity
		Grades []GradeRow `json:"grades"`
	} `json:"students"`

	// Faculty maps a faculty id to the registration numbers it may see.
	Faculty map[string][]string `json:"faculty"`
}

// NewMemoryGrades creates an empty repository.
func NewMemoryGrades() *MemoryGrades {
	return &MemoryGrades{
		students: make(map[string]StudentIdentity),
		grades:   make(map[string][]GradeRow),
		mapping:  make(map[string]map[string]bool),
		failOn:   make(map[string]error),
	}
}

// LoadMemoryGrades decodes a MemoryFixture.
func LoadMemoryGrades(r io.Reader) (*MemoryGrades, error) {
	var fx MemoryFixture
	if err := json.NewDecoder(r).Decode(&fx); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}

	m := NewMemoryGrades()
	for _, s := range fx.Students {
		if s.RegistrationNumber == "" {
			return nil, fmt.Errorf("fixture student without registration_number")
		}
		m.AddStudent(s.StudentIdentity, s.Grades...)
	}
	for faculty, ids := range fx.Faculty {
		m.Map(faculty, ids...)
	}
	return m, nil
}

// AddStudent stores a student and appends grade rows.
func (m *MemoryGrades) AddStudent(s StudentIdentity, rows ...GradeRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students[s.RegistrationNumber] = s
	m.grades[s.RegistrationNumber] = append(m.grades[s.RegistrationNumber], rows...)
}

// Map entitles a faculty member to students.
func (m *MemoryGrades) Map(facultyID string, studentIDs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mapping[facultyID] == nil {
		m.mapping[facultyID] = make(map[string]bool)
	}
	for _, id := range studentIDs {
		m.mapping[facultyID][id] = true
	}
}

// FailOn makes every read of studentID return err.
func (m *MemoryGrades) FailOn(studentID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOn[studentID] = err
}

// Outstanding returns acquired readers that were not released.
func (m *MemoryGrades) Outstanding() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.acquired - m.released
}

// Acquire implements GradeRepository.
func (m *MemoryGrades) Acquire(ctx context.Context) (GradeReader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.acquired++
	m.mu.Unlock()
	return &memoryReader{m: m}, nil
}

// Authorize implements Authorizer.
func (m *MemoryGrades) Authorize(ctx context.Context, facultyID string, studentIDs []string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	allowed := m.mapping[facultyID]
	for _, id := range DistinctIDs(studentIDs) {
		if !allowed[id] {
			return ForbiddenError("authorize", "student not mapped to faculty", nil).
				WithDetail("faculty %s may not access %s", facultyID, id)
		}
	}
	return nil
}

// Students lists every stored registration number.
func (m *MemoryGrades) Students() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.students))
	for id := range m.students {
		ids = append(ids, id)
	}
	return ids
}

type memoryReader struct {
	m    *MemoryGrades
	once sync.Once
}

func (r *memoryReader) Student(ctx context.Context, id string) (StudentIdentity, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	if err := r.m.failOn[id]; err != nil {
		return StudentIdentity{}, err
	}
	s, ok := r.m.students[id]
	if !ok {
		return StudentIdentity{}, fmt.Errorf("%s: %w", id, ErrStudentNotFound)
	}
	return s, nil
}

func (r *memoryReader) Grades(ctx context.Context, id string) ([]GradeRow, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	rows := r.m.grades[id]
	out := make([]GradeRow, len(rows))
	copy(out, rows)
	return out, nil
}

func (r *memoryReader) Release() {
	r.once.Do(func() {
		r.m.mu.Lock()
		r.m.released++
		r.m.mu.Unlock()
	})
}
