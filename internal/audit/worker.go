package audit

import (
	"context"
	"log/slog"
	"time"
)

// streamTimeout bounds a single mirror write.
const streamTimeout = 5 * time.Second

// Worker drains stored entries into a Streamer until its inbox is closed.
type Worker struct {
	streamer Streamer
	inbox    <-chan Entry
	logger   *slog.Logger
}

func NewWorker(streamer Streamer, inbox <-chan Entry, logger *slog.Logger) *Worker {
	return &Worker{streamer: streamer, inbox: inbox, logger: logger}
}

// Run returns once the inbox is closed and drained.
func (w *Worker) Run() {
	for entry := range w.inbox {
		ctx, cancel := context.WithTimeout(context.Background(), streamTimeout)
		err := w.streamer.Stream(ctx, entry)
		cancel()
		if err != nil && w.logger != nil {
			w.logger.Warn("audit stream failed",
				"action", string(entry.Action),
				"entity_id", entry.EntityID,
				"error", err,
			)
		}
	}
}
