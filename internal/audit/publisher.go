package audit

import (
	"context"
	"log/slog"
	"sync"

	id "procura/pkg/domain"
	"procura/pkg/requestcontext"
)

// Log appends audit entries on behalf of business operations.
//
// Append never returns an error: a failed audit write is logged and counted,
// and the operation being documented proceeds. When a Streamer is configured,
// entries that were persisted are also handed to a background worker that
// mirrors them to the stream; a full buffer drops the mirror copy, never the
// stored entry.
type Log struct {
	store   Store
	logger  *slog.Logger
	metrics *Metrics

	streamer Streamer
	inbox    chan Entry
	wg       sync.WaitGroup
	closeMu  sync.Mutex
	closed   bool
}

// Option configures the Log.
type Option func(*Log)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Log) {
		l.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(l *Log) {
		l.metrics = m
	}
}

// WithStreamer mirrors stored entries to s through a buffer of the given size.
func WithStreamer(s Streamer, buffer int) Option {
	return func(l *Log) {
		if buffer <= 0 {
			buffer = 256
		}
		l.streamer = s
		l.inbox = make(chan Entry, buffer)
	}
}

func NewLog(store Store, opts ...Option) *Log {
	l := &Log{store: store}
	for _, opt := range opts {
		opt(l)
	}
	if l.streamer != nil {
		w := NewWorker(l.streamer, l.inbox, l.logger)
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			w.Run()
		}()
	}
	return l
}

// Append records an action. Failures are swallowed after logging.
func (l *Log) Append(ctx context.Context, action Action, entityType, entityID, actor, detail string) {
	entry := Entry{
		ID:         id.NewAuditEntryID(),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Actor:      actor,
		Detail:     detail,
		CreatedAt:  requestcontext.Now(ctx).UTC(),
	}

	if err := l.store.Append(ctx, entry); err != nil {
		l.metrics.incWriteFailures()
		if l.logger != nil {
			l.logger.ErrorContext(ctx, "audit append failed",
				"action", string(action),
				"entity_type", entityType,
				"entity_id", entityID,
				"actor", actor,
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
		return
	}
	l.metrics.incAppended(action)
	l.enqueue(entry)
}

// List returns the trail for one entity, oldest first.
func (l *Log) List(ctx context.Context, entityType, entityID string) ([]Entry, error) {
	return l.store.ListByEntity(ctx, entityType, entityID)
}

func (l *Log) enqueue(entry Entry) {
	if l.inbox == nil {
		return
	}
	l.closeMu.Lock()
	defer l.closeMu.Unlock()
	if l.closed {
		return
	}
	select {
	case l.inbox <- entry:
	default:
		l.metrics.incStreamDropped()
	}
}

// Close drains pending stream entries and stops the worker.
func (l *Log) Close() {
	if l.inbox == nil {
		return
	}
	l.closeMu.Lock()
	if l.closed {
		l.closeMu.Unlock()
		return
	}
	l.closed = true
	close(l.inbox)
	l.closeMu.Unlock()
	l.wg.Wait()
}
