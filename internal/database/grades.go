package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/gradereports/internal/core"
)

// Registrar schema: students(id, registration_number, name, address,
// branch_id, current_semester), branches(id, name), courses(course_code,
// name, credits), grades(registration_number, semester, course_code, grade)
// and faculty_student_mapping(faculty_id, student_id).
const (
	studentQuery = `
		SELECT s.registration_number, s.name, COALESCE(s.address, ''),
		       COALESCE(b.name, ''), COALESCE(s.current_semester, 0)
		FROM students s
		LEFT JOIN branches b ON s.branch_id = b.id
		WHERE s.registration_number = ?`

	gradesQuery = `
		SELECT g.semester, c.course_code, c.name, g.grade, c.credits
		FROM grades g
		JOIN courses c ON g.course_code = c.course_code
		WHERE g.registration_number = ?
		ORDER BY g.semester, c.course_code`

	authorizedCountPrefix = `
		SELECT COUNT(DISTINCT s.registration_number)
		FROM faculty_student_mapping fsm
		JOIN students s ON fsm.student_id = s.id
		WHERE CAST(fsm.faculty_id AS CHAR(64)) = ?`
)

// PostgresGrades reads registrar data from PostgreSQL.
// It implements core.GradeRepository and core.Authorizer.
type PostgresGrades struct {
	pool *pgxpool.Pool
}

// NewPostgresGrades creates a repository over pool.
func NewPostgresGrades(pool *pgxpool.Pool) *PostgresGrades {
	return &PostgresGrades{pool: pool}
}

// Acquire takes one pooled connection for the whole batch.
func (g *PostgresGrades) Acquire(ctx context.Context) (core.GradeReader, error) {
	conn, err := g.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return &pgReader{conn: conn}, nil
}

// Authorize checks that facultyID is mapped to every distinct student.
func (g *PostgresGrades) Authorize(ctx context.Context, facultyID string, studentIDs []string) error {
	ids := core.DistinctIDs(studentIDs)
	query := rebind(authorizedCountPrefix + ` AND s.registration_number = ANY(?)`)

	var count int
	if err := g.pool.QueryRow(ctx, query, facultyID, ids).Scan(&count); err != nil {
		return core.RepositoryError("authorize", "count mapped students", err)
	}
	return checkAuthorized(facultyID, count, len(ids))
}

type pgReader struct {
	conn *pgxpool.Conn
}

func (r *pgReader) Student(ctx context.Context, id string) (core.StudentIdentity, error) {
	var s core.StudentIdentity
	err := r.conn.QueryRow(ctx, rebind(studentQuery), id).Scan(
		&s.RegistrationNumber, &s.Name, &s.Address, &s.Branch, &s.CurrentSemester,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return s, fmt.Errorf("%s: %w", id, core.ErrStudentNotFound)
	}
	if err != nil {
		return s, fmt.Errorf("query student %s: %w", id, err)
	}
	return s, nil
}

func (r *pgReader) Grades(ctx context.Context, id string) ([]core.GradeRow, error) {
	rows, err := r.conn.Query(ctx, rebind(gradesQuery), id)
	if err != nil {
		return nil, fmt.Errorf("query grades %s: %w", id, err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.GradeRow, error) {
		var g core.GradeRow
		err := row.Scan(&g.Semester, &g.Code, &g.Name, &g.Grade, &g.Credits)
		return g, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan grades %s: %w", id, err)
	}
	return out, nil
}

func (r *pgReader) Release() {
	if r.conn != nil {
		r.conn.Release()
		r.conn = nil
	}
}

func checkAuthorized(facultyID string, mapped, requested int) error {
	if mapped == requested {
		return nil
	}
	return core.ForbiddenError("authorize", "student not mapped to faculty", nil).
		WithDetail("faculty %s may access %d of %d requested students", facultyID, mapped, requested)
}
