package notification

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"procura/internal/directory"
	id "procura/pkg/domain"
)

// Directory resolves recipients.
type Directory interface {
	FindUser(ctx context.Context, userID id.UserID) (*directory.User, error)
	ListActiveByRole(ctx context.Context, role directory.Role) ([]*directory.User, error)
}

// Dispatcher fans a persisted notification out to its recipients. Per-recipient
// channel failures are recorded on delivery rows and never returned; an error
// means the delivery rows themselves could not be recorded.
type Dispatcher interface {
	Deliver(ctx context.Context, n *Notification, recipients []*directory.User) error
}

// Publisher pushes to connected sessions. Failures are not errors for the
// caller; no connected session is the common case.
type Publisher interface {
	PublishNotification(ctx context.Context, userID id.UserID, n *Notification) error
	PublishUnreadCount(ctx context.Context, userID id.UserID, count int) error
}
