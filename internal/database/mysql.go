package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/JonMunkholm/gradereports/internal/core"
)

// MySQLGrades reads registrar data from a MySQL database with the same
// schema as PostgresGrades.
type MySQLGrades struct {
	db *sql.DB
}

// NewMySQLGrades creates a repository over db.
func NewMySQLGrades(db *sql.DB) *MySQLGrades {
	return &MySQLGrades{db: db}
}

// Acquire pins one connection for the whole batch.
func (g *MySQLGrades) Acquire(ctx context.Context) (core.GradeReader, error) {
	conn, err := g.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return &mysqlReader{conn: conn}, nil
}

// Authorize checks that facultyID is mapped to every distinct student.
func (g *MySQLGrades) Authorize(ctx context.Context, facultyID string, studentIDs []string) error {
	ids := core.DistinctIDs(studentIDs)
	if len(ids) == 0 {
		return nil
	}

	query := authorizedCountPrefix + ` AND s.registration_number IN (` + placeholders(len(ids)) + `)`
	args := make([]any, 0, len(ids)+1)
	args = append(args, facultyID)
	for _, id := range ids {
		args = append(args, id)
	}

	var count int
	if err := g.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return core.RepositoryError("authorize", "count mapped students", err)
	}
	return checkAuthorized(facultyID, count, len(ids))
}

type mysqlReader struct {
	conn *sql.Conn
}

func (r *mysqlReader) Student(ctx context.Context, id string) (core.StudentIdentity, error) {
	var s core.StudentIdentity
	err := r.conn.QueryRowContext(ctx, studentQuery, id).Scan(
		&s.RegistrationNumber, &s.Name, &s.Address, &s.Branch, &s.CurrentSemester,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return s, fmt.Errorf("%s: %w", id, core.ErrStudentNotFound)
	}
	if err != nil {
		return s, fmt.Errorf("query student %s: %w", id, err)
	}
	return s, nil
}

func (r *mysqlReader) Grades(ctx context.Context, id string) ([]core.GradeRow, error) {
	rows, err := r.conn.QueryContext(ctx, gradesQuery, id)
	if err != nil {
		return nil, fmt.Errorf("query grades %s: %w", id, err)
	}
	defer rows.Close()

	var out []core.GradeRow
	for rows.Next() {
		var g core.GradeRow
		if err := rows.Scan(&g.Semester, &g.Code, &g.Name, &g.Grade, &g.Credits); err != nil {
			return nil, fmt.Errorf("scan grades %s: %w", id, err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read grades %s: %w", id, err)
	}
	return out, nil
}

func (r *mysqlReader) Release() {
	if r.conn != nil {
		r.conn.Close()
		r.conn = nil
	}
}
