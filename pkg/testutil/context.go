package testutil

import (
	"context"
	"time"

	"procura/pkg/requestcontext"
)

// FixedNow is the instant service tests pin their context to.
var FixedNow = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

// Context returns a background context carrying now and a request id, the
// way the HTTP middleware chain and the sweeps prepare one.
func Context(now time.Time) context.Context {
	ctx := requestcontext.WithTime(context.Background(), now)
	return requestcontext.WithRequestID(ctx, "test-request")
}
