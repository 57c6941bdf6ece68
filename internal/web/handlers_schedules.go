package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/gradereports/internal/core"
)

// handleCreateSchedule stores a schedule descriptor. Nothing runs it.
func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	facultyID, ok := requireFaculty(w, r)
	if !ok {
		return
	}

	var req core.ScheduleRequest
	if err := decodeJSON(w, r, "schedule report", &req); err != nil {
		respondError(w, r, err)
		return
	}

	sc, err := core.NewSchedule(req, facultyID, time.Now().UTC())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.deps.Schedules.CreateSchedule(r.Context(), sc); err != nil {
		respondError(w, r, err)
		return
	}

	writeJSONStatus(w, http.StatusCreated, map[string]any{
		"message": "Report scheduled successfully",
		"report":  sc,
	})
}

// handleListSchedules returns the caller's schedules, earliest run first.
func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	facultyID, ok := requireFaculty(w, r)
	if !ok {
		return
	}

	schedules, err := s.deps.Schedules.ListSchedules(r.Context(), facultyID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if schedules == nil {
		schedules = []core.Schedule{}
	}
	writeJSON(w, schedules)
}

// handleDeleteSchedule removes one of the caller's schedules.
func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	facultyID, ok := requireFaculty(w, r)
	if !ok {
		return
	}

	if err := s.deps.Schedules.DeleteSchedule(r.Context(), chi.URLParam(r, "id"), facultyID); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"message": "Scheduled report deleted successfully"})
}
