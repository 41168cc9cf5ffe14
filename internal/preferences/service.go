// Package preferences owns per-user notification preferences. A user's row is
// created with defaults on first access; callers never see "no preferences".
package preferences

import (
	"context"
	"log/slog"

	id "procura/pkg/domain"
	dErrors "procura/pkg/domain-errors"
	"procura/pkg/requestcontext"
)

// Store persists preferences keyed by user id.
type Store interface {
	// GetOrCreate returns the stored row, inserting defaults when absent.
	// Concurrent calls for the same user must yield a single row.
	GetOrCreate(ctx context.Context, defaults *Preferences) (*Preferences, error)
	// Update loads (or creates from defaults) the row, applies mutate, and
	// persists the result atomically.
	Update(ctx context.Context, defaults *Preferences, mutate func(*Preferences)) (*Preferences, error)
}

type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the user's preferences, persisting defaults on first access.
func (s *Service) Get(ctx context.Context, userID id.UserID) (*Preferences, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	prefs, err := s.store.GetOrCreate(ctx, Defaults(userID, requestcontext.Now(ctx)))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load notification preferences")
	}
	return prefs, nil
}

// Update merges patch into the user's preferences.
func (s *Service) Update(ctx context.Context, userID id.UserID, patch Patch) (*Preferences, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	if patch.IsEmpty() {
		return s.Get(ctx, userID)
	}
	now := requestcontext.Now(ctx)
	prefs, err := s.store.Update(ctx, Defaults(userID, now), func(p *Preferences) {
		patch.Apply(p, now)
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update notification preferences")
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "notification preferences updated",
			"user_id", userID.String(),
			"email_enabled", prefs.EmailEnabled,
			"in_app_enabled", prefs.InAppEnabled,
		)
	}
	return prefs, nil
}
