package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JonMunkholm/gradereports/internal/core"
)

func TestResponseWriter_CapturesStatusAndBytes(t *testing.T) {
	rec := httptest.NewRecorder()
	ww := &responseWriter{ResponseWriter: rec, status: http.StatusOK}

	ww.WriteHeader(http.StatusAccepted)
	ww.WriteHeader(http.StatusInternalServerError)
	ww.Write([]byte("hello"))
	ww.Flush()

	if ww.status != http.StatusAccepted {
		t.Errorf("status = %d, want 202", ww.status)
	}
	if ww.bytes != 5 {
		t.Errorf("bytes = %d, want 5", ww.bytes)
	}
	if !rec.Flushed {
		t.Error("Flush was not forwarded")
	}
}

func TestCaptureFaculty(t *testing.T) {
	var seen *requestInfo
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestInfoFrom(r.Context())
	})

	handler := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = r.WithContext(core.ContextWithFacultyID(r.Context(), "fac-1"))
		CaptureFaculty(inner).ServeHTTP(w, r)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == nil || seen.facultyID != "fac-1" {
		t.Fatalf("faculty id not captured: %+v", seen)
	}
}
