package web

import (
	"net/http"

	"github.com/JonMunkholm/gradereports/internal/core"
)

// requireFaculty returns the caller's faculty id, or writes 401 and
// returns false when the request carries none.
func requireFaculty(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := core.FacultyIDFromContext(r.Context())
	if id == "" {
		writeJSONStatus(w, http.StatusUnauthorized, ErrorResponse{
			Kind:    "authentication",
			Error:   "faculty id missing",
			Message: "Faculty ID missing from credentials.",
			Code:    "AUTH002",
			Action:  "Sign in again and retry.",
		})
		return "", false
	}
	return id, true
}
