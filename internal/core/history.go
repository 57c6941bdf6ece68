package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ReportRecord is the history row kept for every generated report.
// The artifact itself is not stored.
type ReportRecord struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Format     Format         `json:"format"`
	CreatedBy  string         `json:"created_by"`
	FileName   string         `json:"file_name"`
	SizeBytes  int64          `json:"file_size"`
	Students   []string       `json:"students"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Omitted    []string       `json:"omitted,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// NewReportRecord describes a finished report.
// Omitted lists unresolved students followed by per-student render omissions.
func NewReportRecord(req ReportRequest, out Outcome, createdBy string) ReportRecord {
	omitted := make([]string, 0, len(out.Artifact.Omitted)+len(out.RenderOmitted))
	omitted = append(omitted, out.Artifact.Omitted...)
	omitted = append(omitted, out.RenderOmitted...)

	return ReportRecord{
		ID:         out.ReportID,
		Name:       req.Name,
		Type:       req.Type,
		Format:     req.Format,
		CreatedBy:  createdBy,
		FileName:   out.Artifact.FileName,
		SizeBytes:  out.BytesWritten,
		Students:   req.StudentIDs,
		Parameters: req.Parameters,
		Omitted:    omitted,
		CreatedAt:  out.FinishedAt,
	}
}

// ReportFilter narrows a history listing. Zero fields are ignored.
type ReportFilter struct {
	CreatedBy string
	Format    Format
	Type      string
	Since     time.Time
	Until     time.Time
	Limit     int
}

// DefaultHistoryLimit caps listings that do not set a limit.
const DefaultHistoryLimit = 100

// HistoryStore persists report history.
type HistoryStore interface {
	RecordReport(ctx context.Context, rec ReportRecord) error
	ListReports(ctx context.Context, filter ReportFilter) ([]ReportRecord, error)
	// DeleteReport returns a NotFoundError when no row owned by createdBy
	// has the id.
	DeleteReport(ctx context.Context, id, createdBy string) error
	HistoryPurger
}

// ScheduleRequest describes a report to run later. Schedules are stored
// and listed only; nothing executes them.
type ScheduleRequest struct {
	Name       string         `json:"name" validate:"required,max=200"`
	Type       string         `json:"type" validate:"required,max=50"`
	Format     Format         `json:"format" validate:"required,oneof=pdf excel"`
	Schedule   string         `json:"schedule" validate:"required,max=50"`
	NextRun    RunDate        `json:"next_run" validate:"required"`
	Recipients []string       `json:"recipients" validate:"omitempty,dive,email"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// RunDate is a schedule's next run. It decodes from an RFC 3339 timestamp
// or a bare YYYY-MM-DD date, which is read as midnight UTC.
type RunDate struct {
	time.Time
}

// NewRunDate wraps t.
func NewRunDate(t time.Time) RunDate {
	return RunDate{Time: t}
}

func (d *RunDate) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		d.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("next_run must be a date string: %w", err)
	}
	t, err := ParseRunDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d RunDate) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Time.Format(time.RFC3339))
}

// ParseRunDate accepts RFC 3339 or YYYY-MM-DD. An empty string is the zero
// time, which validation then rejects as missing.
func ParseRunDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("next_run %q is neither RFC 3339 nor YYYY-MM-DD", s)
	}
	return t, nil
}

// Schedule is a stored ScheduleRequest.
type Schedule struct {
	ID        string    `json:"id"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	ScheduleRequest
}

// NewSchedule validates req and assigns an id.
func NewSchedule(req ScheduleRequest, createdBy string, now time.Time) (Schedule, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Type = strings.TrimSpace(req.Type)
	req.Schedule = strings.TrimSpace(req.Schedule)
	req.Format = Format(strings.ToLower(strings.TrimSpace(string(req.Format))))

	if err := ValidateStruct("schedule report", req); err != nil {
		return Schedule{}, err
	}
	if req.Recipients == nil {
		req.Recipients = []string{}
	}

	return Schedule{
		ID:              uuid.NewString(),
		CreatedBy:       createdBy,
		CreatedAt:       now,
		ScheduleRequest: req,
	}, nil
}

// ScheduleStore persists schedule descriptors.
type ScheduleStore interface {
	CreateSchedule(ctx context.Context, s Schedule) error
	// ListSchedules returns the caller's schedules by next run, earliest first.
	ListSchedules(ctx context.Context, createdBy string) ([]Schedule, error)
	DeleteSchedule(ctx context.Context, id, createdBy string) error
}
