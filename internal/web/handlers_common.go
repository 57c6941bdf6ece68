package web

// This file contains shared request helpers and the catalog and health
// endpoints.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/gradereports/internal/core"
)

// MaxRequestBody caps JSON request bodies (1MB).
const MaxRequestBody = 1 << 20

// decodeJSON reads a single JSON object from the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, op string, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestBody))
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return core.ValidationError(op, "request body too large", err)
		case errors.Is(err, io.EOF):
			return core.ValidationError(op, "request body is empty", nil)
		default:
			return core.ValidationError(op, "invalid JSON body", err)
		}
	}
	return nil
}

// parseIntParam parses a positive integer query parameter with a default.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// parseTimeParam parses an RFC 3339 timestamp or a YYYY-MM-DD date.
// Empty yields the zero time.
func parseTimeParam(r *http.Request, name string) (time.Time, error) {
	val := r.URL.Query().Get(name)
	if val == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, val)
	if err != nil {
		return time.Time{}, core.ValidationError("parse query", fmt.Sprintf("%s must be a date", name), err)
	}
	return t, nil
}

// handleListColumns returns the workbook column catalog in display order.
func (s *Server) handleListColumns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.deps.Reports.Catalog().All())
}

// handleGradeScale returns the grade scale, highest point first.
func (s *Server) handleGradeScale(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.deps.Reports.Scale().Entries())
}

type healthResponse struct {
	Status string                    `json:"status"`
	Checks map[string]string         `json:"checks,omitempty"`
	Render *core.RenderLimiterStatus `json:"render,omitempty"`
}

// handleHealth runs every dependency check. Any failure yields 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(s.deps.Checks))}
	for name, check := range s.deps.Checks {
		if err := check(ctx); err != nil {
			resp.Status = "degraded"
			resp.Checks[name] = err.Error()
			continue
		}
		resp.Checks[name] = "ok"
	}
	if s.deps.Render != nil {
		st := s.deps.Render.Status()
		resp.Render = &st
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSONStatus(w, status, resp)
}
