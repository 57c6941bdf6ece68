package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/gradereports/internal/core"
	"github.com/JonMunkholm/gradereports/internal/logging"
)

// Response headers that expose partial omission.
const (
	HeaderOmitted       = "X-Report-Omitted"
	HeaderRenderOmitted = "X-Report-Render-Omitted"
)

// historyWriteTimeout bounds the history insert after a report is sent.
const historyWriteTimeout = 5 * time.Second

// generateRequest is the body of POST /api/reports/generate.
type generateRequest struct {
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Format     core.Format    `json:"format"`
	StudentIDs []string       `json:"student_ids"`
	Parameters map[string]any `json:"parameters"`
	PDFOptions struct {
		Type core.PackagingMode `json:"type"`
	} `json:"pdf_options"`
	ExcelOptions struct {
		Columns []string `json:"columns"`
	} `json:"excel_options"`
}

func (g generateRequest) toReportRequest() core.ReportRequest {
	return core.ReportRequest{
		Name:       g.Name,
		Type:       g.Type,
		Format:     g.Format,
		StudentIDs: g.StudentIDs,
		Mode:       g.PDFOptions.Type,
		Columns:    g.ExcelOptions.Columns,
		Parameters: g.Parameters,
	}
}

// httpSink streams an artifact as the response body. Begin writes the
// status line and headers, so everything before it can still fail as JSON.
type httpSink struct {
	w http.ResponseWriter
}

func (s *httpSink) Begin(a core.Artifact) (io.Writer, error) {
	h := s.w.Header()
	h.Set("Content-Type", a.ContentType)
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.FileName))
	h.Set("Cache-Control", "no-store")
	if len(a.Omitted) > 0 {
		h.Set(HeaderOmitted, strings.Join(a.Omitted, ","))
	}
	// Per-student render failures are only known once the body is done.
	h.Set("Trailer", HeaderRenderOmitted)
	s.w.WriteHeader(http.StatusOK)

	return core.NewFlushingWriter(s.w, responseFlusher{http.NewResponseController(s.w)}), nil
}

type responseFlusher struct {
	rc *http.ResponseController
}

func (f responseFlusher) Flush() {
	_ = f.rc.Flush()
}

// handleGenerate validates, checks entitlement, then streams the artifact.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	facultyID, ok := requireFaculty(w, r)
	if !ok {
		return
	}

	var body generateRequest
	if err := decodeJSON(w, r, "generate report", &body); err != nil {
		respondError(w, r, err)
		return
	}

	req := body.toReportRequest()
	core.NormalizeRequest(&req)
	if err := core.ValidateRequest(req, s.cfg.Report.MaxStudents); err != nil {
		respondError(w, r, err)
		return
	}

	ctx := r.Context()
	if s.deps.Authorizer != nil {
		if err := s.deps.Authorizer.Authorize(ctx, facultyID, req.StudentIDs); err != nil {
			respondError(w, r, err)
			return
		}
	}

	if timeout := s.cfg.Server.GenerateTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	out, err := s.deps.Reports.Generate(ctx, req, &httpSink{w: w})
	if err != nil {
		if !out.Committed {
			respondError(w, r, err)
		}
		// After commit the status line is gone; the truncated body is the
		// client's signal and the service has logged the cause.
		return
	}

	if len(out.RenderOmitted) > 0 {
		w.Header().Set(HeaderRenderOmitted, strings.Join(out.RenderOmitted, ","))
	}

	s.recordHistory(r, core.NewReportRecord(req, out, facultyID))
}

func (s *Server) recordHistory(r *http.Request, rec core.ReportRecord) {
	if s.deps.History == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), historyWriteTimeout)
	defer cancel()

	if err := s.deps.History.RecordReport(ctx, rec); err != nil {
		logging.FromContext(r.Context()).Error("failed to record report history",
			"report_id", rec.ID,
			"error", err,
		)
	}
}

// handleListReports returns the caller's history, newest first.
// Query: format, type, since, until, limit.
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	facultyID, ok := requireFaculty(w, r)
	if !ok {
		return
	}

	since, err := parseTimeParam(r, "since")
	if err != nil {
		respondError(w, r, err)
		return
	}
	until, err := parseTimeParam(r, "until")
	if err != nil {
		respondError(w, r, err)
		return
	}

	records, err := s.deps.History.ListReports(r.Context(), core.ReportFilter{
		CreatedBy: facultyID,
		Format:    core.Format(strings.ToLower(r.URL.Query().Get("format"))),
		Type:      r.URL.Query().Get("type"),
		Since:     since,
		Until:     until,
		Limit:     parseIntParam(r, "limit", core.DefaultHistoryLimit),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	if records == nil {
		records = []core.ReportRecord{}
	}
	writeJSON(w, records)
}

// handleDeleteReport removes one of the caller's history rows.
func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	facultyID, ok := requireFaculty(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.deps.History.DeleteReport(r.Context(), id, facultyID); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"message": "Report deleted successfully"})
}
