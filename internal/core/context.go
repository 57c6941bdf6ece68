package core

import "context"

type contextKey string

const (
	ctxKeyFacultyID contextKey = "faculty_id"
	ctxKeyIPAddress contextKey = "client_ip"
)

// ContextWithFacultyID records the authenticated faculty member.
func ContextWithFacultyID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyFacultyID, id)
}

// FacultyIDFromContext returns the authenticated faculty member, or "".
func FacultyIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyFacultyID).(string); ok {
		return v
	}
	return ""
}

// ContextWithIPAddress adds the client IP address for rate limiting and logs.
func ContextWithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyIPAddress, ip)
}

// GetIPAddressFromContext extracts the client IP address from context.
func GetIPAddressFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyIPAddress).(string); ok {
		return v
	}
	return ""
}
