// Package store provides directory persistence: an in-memory implementation
// for tests and a PostgreSQL implementation for deployments.
package store

import (
	"context"
	"time"

	"procura/pkg/requestcontext"
)

func nowFrom(ctx context.Context) time.Time {
	return requestcontext.Now(ctx).UTC()
}
