package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReportRecord(t *testing.T) {
	finished := time.Date(2024, 6, 1, 12, 0, 5, 0, time.UTC)
	req := ReportRequest{
		Name:       "Term",
		Type:       "batch",
		Format:     FormatPDF,
		StudentIDs: []string{"A", "ghost", "B"},
		Parameters: map[string]any{"term": "2024"},
	}
	out := Outcome{
		ReportID:      "r-1",
		Artifact:      Artifact{FileName: "term_combined_1.pdf", Omitted: []string{"ghost"}},
		RenderOmitted: []string{"B"},
		BytesWritten:  2048,
		FinishedAt:    finished,
	}

	rec := NewReportRecord(req, out, "fac-1")

	assert.Equal(t, "r-1", rec.ID)
	assert.Equal(t, "fac-1", rec.CreatedBy)
	assert.Equal(t, "term_combined_1.pdf", rec.FileName)
	assert.Equal(t, int64(2048), rec.SizeBytes)
	assert.Equal(t, []string{"A", "ghost", "B"}, rec.Students)
	assert.Equal(t, []string{"ghost", "B"}, rec.Omitted)
	assert.Equal(t, finished, rec.CreatedAt)
}

func TestNewSchedule(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	s, err := NewSchedule(ScheduleRequest{
		Name:     "  Weekly  ",
		Type:     "batch",
		Format:   "PDF",
		Schedule: "weekly",
		NextRun:  NewRunDate(now.AddDate(0, 0, 7)),
	}, "fac-1", now)
	require.NoError(t, err)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "Weekly", s.Name)
	assert.Equal(t, FormatPDF, s.Format)
	assert.Equal(t, "fac-1", s.CreatedBy)
	assert.Equal(t, now, s.CreatedAt)
	assert.NotNil(t, s.Recipients)
}

func TestNewSchedule_Validation(t *testing.T) {
	valid := ScheduleRequest{
		Name:     "Weekly",
		Type:     "batch",
		Format:   FormatExcel,
		Schedule: "weekly",
		NextRun:  NewRunDate(time.Now()),
	}

	tests := []struct {
		name   string
		mutate func(*ScheduleRequest)
		want   string
	}{
		{"missing name", func(r *ScheduleRequest) { r.Name = " " }, "name is required"},
		{"missing type", func(r *ScheduleRequest) { r.Type = "" }, "type is required"},
		{"bad format", func(r *ScheduleRequest) { r.Format = "csv" }, "format must be pdf or excel"},
		{"missing schedule", func(r *ScheduleRequest) { r.Schedule = "" }, "schedule is required"},
		{"missing next run", func(r *ScheduleRequest) { r.NextRun = RunDate{} }, "next_run is required"},
		{"bad recipient", func(r *ScheduleRequest) { r.Recipients = []string{"not-an-email"} }, "recipients[0] failed email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)

			_, err := NewSchedule(req, "fac-1", time.Now())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRunDate_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		body string
		want time.Time
	}{
		{"date only", `{"next_run":"2024-05-15"}`, time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)},
		{"rfc3339", `{"next_run":"2024-05-15T09:30:00Z"}`, time.Date(2024, 5, 15, 9, 30, 0, 0, time.UTC)},
		{"offset", `{"next_run":"2024-05-15T09:30:00+05:30"}`, time.Date(2024, 5, 15, 4, 0, 0, 0, time.UTC)},
		{"null", `{"next_run":null}`, time.Time{}},
		{"blank", `{"next_run":" "}`, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req ScheduleRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))
			assert.True(t, tt.want.Equal(req.NextRun.Time), "got %v", req.NextRun.Time)
		})
	}
}

func TestRunDate_UnmarshalJSON_Invalid(t *testing.T) {
	for _, body := range []string{`{"next_run":"15/05/2024"}`, `{"next_run":20240515}`} {
		var req ScheduleRequest
		assert.Error(t, json.Unmarshal([]byte(body), &req), body)
	}
}

func TestRunDate_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(NewRunDate(time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.JSONEq(t, `"2024-05-15T00:00:00Z"`, string(b))

	b, err = json.Marshal(RunDate{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))
}

func TestNewSchedule_DateOnlyRequest(t *testing.T) {
	var req ScheduleRequest
	body := `{"name":"Term end","type":"batch","format":"pdf","schedule":"once","next_run":"2024-05-15"}`
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	s, err := NewSchedule(req, "fac-1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "2024-05-15", s.NextRun.Format(time.DateOnly))
}
