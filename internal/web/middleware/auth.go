package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/JonMunkholm/gradereports/internal/config"
	"github.com/JonMunkholm/gradereports/internal/core"
)

// FacultyHeader names the faculty member when authentication is disabled.
const FacultyHeader = "X-Faculty-ID"

var errNoFacultyClaim = errors.New("token carries no faculty id")

// BearerAuth validates "Authorization: Bearer <jwt>" with the configured
// HMAC secret and stores the token's faculty id in the request context.
//
// The faculty id is read from the "id" claim, falling back to "sub".
// When AuthRequired is false no token is checked and the id is taken from
// the X-Faculty-ID header, if present.
func BearerAuth(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	secret := []byte(cfg.JWTSecret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{
		jwt.SigningMethodHS256.Alg(),
		jwt.SigningMethodHS384.Alg(),
		jwt.SigningMethodHS512.Alg(),
	}))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.AuthRequired {
				if id := strings.TrimSpace(r.Header.Get(FacultyHeader)); id != "" {
					r = r.WithContext(core.ContextWithFacultyID(r.Context(), id))
				}
				next.ServeHTTP(w, r)
				return
			}

			raw, ok := bearerToken(r)
			if !ok {
				slog.Warn("auth: missing bearer token",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				writeAuthError(w, http.StatusUnauthorized, "missing bearer token", "AUTH_MISSING_TOKEN")
				return
			}

			claims := jwt.MapClaims{}
			_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
				return secret, nil
			})
			if err == nil {
				var id string
				id, err = facultyID(claims)
				if err == nil {
					next.ServeHTTP(w, r.WithContext(core.ContextWithFacultyID(r.Context(), id)))
					return
				}
			}

			slog.Warn("auth: invalid bearer token",
				"path", r.URL.Path,
				"method", r.Method,
				"remote_addr", r.RemoteAddr,
				"error", err,
			)
			writeAuthError(w, http.StatusUnauthorized, "invalid or expired token", "AUTH_INVALID_TOKEN")
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// facultyID accepts string and numeric "id" claims.
func facultyID(claims jwt.MapClaims) (string, error) {
	switch v := claims["id"].(type) {
	case string:
		if v != "" {
			return v, nil
		}
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	}
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		return sub, nil
	}
	return "", errNoFacultyClaim
}

func writeAuthError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"kind":    "authentication",
		"error":   message,
		"message": message,
		"code":    code,
	})
}
