package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/gradereports/internal/core"
)

// Store keeps report history and schedule descriptors in PostgreSQL.
// It implements core.HistoryStore and core.ScheduleStore.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a store over pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// ----------------------------------------------------------------------------
// Report history
// ----------------------------------------------------------------------------

// RecordReport inserts one history row.
func (s *Store) RecordReport(ctx context.Context, rec core.ReportRecord) error {
	id, err := toPgUUID(rec.ID)
	if err != nil {
		return core.ValidationError("record report", "invalid report id", err)
	}

	params, err := marshalNullable(rec.Parameters)
	if err != nil {
		return fmt.Errorf("encode parameters: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO reports (id, name, type, format, created_by, file_name, file_size,
		                     students, parameters, omitted, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		id, rec.Name, rec.Type, string(rec.Format), rec.CreatedBy, rec.FileName, rec.SizeBytes,
		jsonArray(rec.Students), params, jsonArray(rec.Omitted), rec.CreatedAt,
	)
	if err != nil {
		return core.RepositoryError("record report", "insert history row", err)
	}
	return nil
}

// ListReports returns matching history rows, newest first.
func (s *Store) ListReports(ctx context.Context, filter core.ReportFilter) ([]core.ReportRecord, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = core.DefaultHistoryLimit
	}

	wb := NewWhereBuilder()
	wb.Add("created_by", filter.CreatedBy)
	wb.Add("format", string(filter.Format))
	wb.Add("type", filter.Type)
	wb.AddTimestampRange("created_at", filter.Since, filter.Until)
	where, args := wb.Build()

	query := `SELECT id, name, type, format, created_by, file_name, file_size,
		students, parameters, omitted, created_at
		FROM reports` + where + fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", wb.NextArgIndex())
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, core.RepositoryError("list reports", "query history", err)
	}

	records, err := pgx.CollectRows(rows, scanReport)
	if err != nil {
		return nil, core.RepositoryError("list reports", "scan history", err)
	}
	return records, nil
}

func scanReport(row pgx.CollectableRow) (core.ReportRecord, error) {
	var (
		rec               core.ReportRecord
		id                pgtype.UUID
		format            string
		students, omitted []byte
		params            []byte
	)
	err := row.Scan(&id, &rec.Name, &rec.Type, &format, &rec.CreatedBy, &rec.FileName, &rec.SizeBytes,
		&students, &params, &omitted, &rec.CreatedAt)
	if err != nil {
		return rec, err
	}

	rec.ID = uuidToString(id)
	rec.Format = core.Format(format)
	if err := unmarshalOptional(students, &rec.Students); err != nil {
		return rec, fmt.Errorf("decode students: %w", err)
	}
	if err := unmarshalOptional(omitted, &rec.Omitted); err != nil {
		return rec, fmt.Errorf("decode omitted: %w", err)
	}
	if err := unmarshalOptional(params, &rec.Parameters); err != nil {
		return rec, fmt.Errorf("decode parameters: %w", err)
	}
	return rec, nil
}

// DeleteReport removes a history row owned by createdBy.
func (s *Store) DeleteReport(ctx context.Context, id, createdBy string) error {
	pgID, err := toPgUUID(id)
	if err != nil {
		return core.NotFoundError("delete report", "report not found", nil).WithDetail("no report %q", id)
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM reports WHERE id = $1 AND created_by = $2`, pgID, createdBy)
	if err != nil {
		return core.RepositoryError("delete report", "delete history row", err)
	}
	if tag.RowsAffected() == 0 {
		return core.NotFoundError("delete report", "report not found", nil).WithDetail("no report %q", id)
	}
	return nil
}

// PurgeReportsBefore deletes every history row created before cutoff.
func (s *Store) PurgeReportsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM reports WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, core.RepositoryError("purge reports", "delete expired history", err)
	}
	return tag.RowsAffected(), nil
}

// ----------------------------------------------------------------------------
// Schedules
// ----------------------------------------------------------------------------

// CreateSchedule inserts a validated schedule.
func (s *Store) CreateSchedule(ctx context.Context, sc core.Schedule) error {
	id, err := toPgUUID(sc.ID)
	if err != nil {
		return core.ValidationError("create schedule", "invalid schedule id", err)
	}
	params, err := marshalNullable(sc.Parameters)
	if err != nil {
		return fmt.Errorf("encode parameters: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO scheduled_reports (id, name, type, format, schedule, next_run,
		                               created_by, recipients, parameters, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, sc.Name, sc.Type, string(sc.Format), sc.Schedule, sc.NextRun.Time,
		sc.CreatedBy, jsonArray(sc.Recipients), params, sc.CreatedAt,
	)
	if err != nil {
		return core.RepositoryError("create schedule", "insert schedule", err)
	}
	return nil
}

// ListSchedules returns the caller's schedules by next run, earliest first.
func (s *Store) ListSchedules(ctx context.Context, createdBy string) ([]core.Schedule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, type, format, schedule, next_run, created_by, recipients, parameters, created_at
		FROM scheduled_reports
		WHERE created_by = $1
		ORDER BY next_run ASC`, createdBy)
	if err != nil {
		return nil, core.RepositoryError("list schedules", "query schedules", err)
	}

	schedules, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Schedule, error) {
		var (
			sc                 core.Schedule
			id                 pgtype.UUID
			format             string
			recipients, params []byte
		)
		err := row.Scan(&id, &sc.Name, &sc.Type, &format, &sc.Schedule, &sc.NextRun.Time,
			&sc.CreatedBy, &recipients, &params, &sc.CreatedAt)
		if err != nil {
			return sc, err
		}
		sc.ID = uuidToString(id)
		sc.Format = core.Format(format)
		if err := unmarshalOptional(recipients, &sc.Recipients); err != nil {
			return sc, fmt.Errorf("decode recipients: %w", err)
		}
		if err := unmarshalOptional(params, &sc.Parameters); err != nil {
			return sc, fmt.Errorf("decode parameters: %w", err)
		}
		return sc, nil
	})
	if err != nil {
		return nil, core.RepositoryError("list schedules", "scan schedules", err)
	}
	return schedules, nil
}

// DeleteSchedule removes a schedule owned by createdBy.
func (s *Store) DeleteSchedule(ctx context.Context, id, createdBy string) error {
	pgID, err := toPgUUID(id)
	if err != nil {
		return core.NotFoundError("delete schedule", "scheduled report not found", nil).WithDetail("no schedule %q", id)
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM scheduled_reports WHERE id = $1 AND created_by = $2`, pgID, createdBy)
	if err != nil {
		return core.RepositoryError("delete schedule", "delete schedule", err)
	}
	if tag.RowsAffected() == 0 {
		return core.NotFoundError("delete schedule", "scheduled report not found", nil).WithDetail("no schedule %q", id)
	}
	return nil
}

// ----------------------------------------------------------------------------
// Conversion helpers
// ----------------------------------------------------------------------------

func toPgUUID(s string) (pgtype.UUID, error) {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}, err
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}, nil
}

func uuidToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

// jsonArray encodes a string slice, never as JSON null.
func jsonArray(values []string) []byte {
	if values == nil {
		values = []string{}
	}
	b, _ := json.Marshal(values)
	return b
}

// marshalNullable encodes v, or returns nil for SQL NULL when v is empty.
func marshalNullable(v map[string]any) ([]byte, error) {
	if len(v) == 0 {
		return nil, nil
	}
	return json.Marshal(v)
}

func unmarshalOptional(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
