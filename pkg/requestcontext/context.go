// Package requestcontext carries the request id and the pinned "now" through
// service calls. The HTTP middleware and the sweeps set both; everything
// below reads them instead of calling time.Now.
package requestcontext

import (
	"context"
	"time"
)

type key int

const (
	requestIDKey key = iota
	nowKey
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID returns "" outside a request.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithTime pins the instant every Now call under ctx returns, so one
// request or one batch evaluates expiry and stamps rows consistently.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, nowKey, t)
}

// Now returns the pinned instant, or the wall clock when nothing was pinned.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(nowKey).(time.Time); ok {
		return t
	}
	return time.Now()
}
