package middleware

import "context"

type ctxKey int

const requestInfoKey ctxKey = iota

// requestInfo carries values discovered by inner middleware back out to
// Logger.
type requestInfo struct {
	facultyID string
}

func withRequestInfo(ctx context.Context, info *requestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey, info)
}

func requestInfoFrom(ctx context.Context) *requestInfo {
	info, _ := ctx.Value(requestInfoKey).(*requestInfo)
	return info
}
