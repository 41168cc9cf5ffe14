package delivery

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"procura/internal/directory"
	"procura/internal/notification"
	"procura/internal/preferences"
	id "procura/pkg/domain"
)

// Message is a rendered email ready for the transport.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

// EmailSender is the outbound email transport. Implementations must honour
// ctx cancellation and return ErrTransportTimeout or ErrTransportRejected
// (wrapped) on failure.
type EmailSender interface {
	Send(ctx context.Context, msg Message) error
}

// Store is the slice of the notification store the scheduler writes to.
type Store interface {
	FindByID(ctx context.Context, notificationID id.NotificationID) (*notification.Notification, error)
	CreateDeliveries(ctx context.Context, deliveries []*notification.Delivery) error
	UpdateDelivery(ctx context.Context, d *notification.Delivery) error
	ClaimFailedDeliveries(ctx context.Context, channel notification.Channel, limit int, staleBefore, now time.Time) ([]*notification.Delivery, error)
	CountUnread(ctx context.Context, userID id.UserID, role directory.Role, now time.Time) (int, error)
}

// Preferences returns a recipient's preferences, creating defaults on first
// access.
type Preferences interface {
	Get(ctx context.Context, userID id.UserID) (*preferences.Preferences, error)
}

// Users looks up recipients when retrying failed deliveries.
type Users interface {
	FindUser(ctx context.Context, userID id.UserID) (*directory.User, error)
}
