// Package realtime pushes notification events to connected sessions through
// Redis pub/sub. Gateways holding user sessions subscribe to the per-user
// channel; this package only publishes.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"procura/internal/notification"
	id "procura/pkg/domain"
)

const (
	channelPrefix  = "procura:notifications:user:"
	unreadPrefix   = "procura:notifications:unread:"
	unreadCountTTL = 24 * time.Hour
)

// UserChannel is the pub/sub channel a session for userID subscribes to.
func UserChannel(userID id.UserID) string { return channelPrefix + userID.String() }

// UnreadKey holds the last published unread count for userID.
func UnreadKey(userID id.UserID) string { return unreadPrefix + userID.String() }

// Event is the envelope published on a user channel.
type Event struct {
	Kind         string            `json:"kind"`
	Notification *NotificationView `json:"notification,omitempty"`
	UnreadCount  *int              `json:"unreadCount,omitempty"`
	SentAt       time.Time         `json:"sentAt"`
}

type NotificationView struct {
	ID          id.NotificationID     `json:"id"`
	Type        notification.Type     `json:"type"`
	Title       string                `json:"title"`
	Message     string                `json:"message"`
	Priority    notification.Priority `json:"priority"`
	Category    notification.Category `json:"category"`
	ActionURL   string                `json:"actionUrl,omitempty"`
	ActionLabel string                `json:"actionLabel,omitempty"`
	Payload     notification.Payload  `json:"data,omitempty"`
	CreatedAt   time.Time             `json:"createdAt"`
}

const (
	KindNotification = "notification"
	KindUnreadCount  = "unread_count"
)

// Publisher implements notification.Publisher on Redis.
type Publisher struct {
	client redis.UniversalClient
}

func NewPublisher(client redis.UniversalClient) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) PublishNotification(ctx context.Context, userID id.UserID, n *notification.Notification) error {
	return p.publish(ctx, userID, Event{
		Kind: KindNotification,
		Notification: &NotificationView{
			ID:          n.ID,
			Type:        n.Type,
			Title:       n.Title,
			Message:     n.Message,
			Priority:    n.Priority,
			Category:    n.Category,
			ActionURL:   n.ActionURL,
			ActionLabel: n.ActionLabel,
			Payload:     n.Payload,
			CreatedAt:   n.CreatedAt,
		},
		SentAt: time.Now().UTC(),
	})
}

// PublishUnreadCount stores the count for late subscribers and publishes it.
func (p *Publisher) PublishUnreadCount(ctx context.Context, userID id.UserID, count int) error {
	if err := p.client.Set(ctx, UnreadKey(userID), count, unreadCountTTL).Err(); err != nil {
		return fmt.Errorf("store unread count: %w", err)
	}
	return p.publish(ctx, userID, Event{
		Kind:        KindUnreadCount,
		UnreadCount: &count,
		SentAt:      time.Now().UTC(),
	})
}

func (p *Publisher) publish(ctx context.Context, userID id.UserID, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal realtime event: %w", err)
	}
	if err := p.client.Publish(ctx, UserChannel(userID), body).Err(); err != nil {
		return fmt.Errorf("publish realtime event: %w", err)
	}
	return nil
}
