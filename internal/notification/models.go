package notification

import (
	"fmt"
	"time"

	"procura/internal/directory"
	id "procura/pkg/domain"
	dErrors "procura/pkg/domain-errors"
)

// Type is the closed set of notification kinds.
type Type string

const (
	TypeManagerAssignment   Type = "MANAGER_ASSIGNMENT"
	TypeRequestStatusChange Type = "REQUEST_STATUS_CHANGE"
	TypeEmployeeAssignment  Type = "EMPLOYEE_ASSIGNMENT"
	TypePurchaseOrderUpdate Type = "PURCHASE_ORDER_UPDATE"
	TypeSystemAlert         Type = "SYSTEM_ALERT"
)

func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case TypeManagerAssignment, TypeRequestStatusChange, TypeEmployeeAssignment,
		TypePurchaseOrderUpdate, TypeSystemAlert:
		return t, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown notification type %q", s))
}

// Priority is totally ordered: LOW < MEDIUM < HIGH < URGENT.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

func ParsePriority(s string) (Priority, error) {
	if p := Priority(s); p.Rank() > 0 {
		return p, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown priority %q", s))
}

// Rank returns 1..4 for known priorities and 0 otherwise.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityUrgent:
		return 4
	}
	return 0
}

// IsElevated reports HIGH or URGENT.
func (p Priority) IsElevated() bool { return p.Rank() >= PriorityHigh.Rank() }

// Status is the recipient-driven lifecycle. Transitions only move forward:
// UNREAD -> READ -> DISMISSED, or UNREAD -> DISMISSED.
type Status string

const (
	StatusUnread    Status = "UNREAD"
	StatusRead      Status = "READ"
	StatusDismissed Status = "DISMISSED"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusUnread, StatusRead, StatusDismissed:
		return st, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown notification status %q", s))
}

func (s Status) rank() int {
	switch s {
	case StatusUnread:
		return 0
	case StatusRead:
		return 1
	case StatusDismissed:
		return 2
	}
	return -1
}

// Category groups notifications for filtering.
type Category string

const (
	CategoryManagerAssignment  Category = "MANAGER_ASSIGNMENT"
	CategoryRequestUpdate      Category = "REQUEST_UPDATE"
	CategoryEmployeeManagement Category = "EMPLOYEE_MANAGEMENT"
	CategoryPurchaseOrder      Category = "PURCHASE_ORDER"
	CategorySystem             Category = "SYSTEM"
)

// Target addresses either one user or every active holder of a role.
type Target struct {
	UserID *id.UserID     `json:"userId,omitempty"`
	Role   directory.Role `json:"role,omitempty"`
}

func ForUser(userID id.UserID) Target {
	return Target{UserID: &userID}
}

func ForRole(role directory.Role) Target {
	return Target{Role: role}
}

func (t Target) validate() error {
	switch {
	case t.UserID != nil && t.Role != "":
		return dErrors.New(dErrors.CodeInvalidInput, "notification target must be a user or a role, not both")
	case t.UserID != nil:
		if t.UserID.IsNil() {
			return dErrors.New(dErrors.CodeInvalidInput, "notification target user is required")
		}
		return nil
	case t.Role != "":
		_, err := directory.ParseRole(string(t.Role))
		return err
	}
	return dErrors.New(dErrors.CodeInvalidInput, "notification target is required")
}

// Addresses reports whether the target reaches the given user.
func (t Target) Addresses(user *directory.User) bool {
	if t.UserID != nil {
		return *t.UserID == user.ID
	}
	return t.Role == user.Role
}

// Notification is the persisted record a domain event produces.
//
// DepartmentRef is set only for MANAGER_ASSIGNMENT notifications; together
// with Type and Status it forms the duplicate-suppression key.
type Notification struct {
	ID            id.NotificationID
	Type          Type
	Title         string
	Message       string
	Payload       Payload
	Priority      Priority
	Status        Status
	Category      Category
	Target        Target
	ActionURL     string
	ActionLabel   string
	DepartmentRef *id.DepartmentID
	ExpiresAt     *time.Time
	ReadAt        *time.Time
	DismissedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsExpired reports whether the notification has passed its expiry.
func (n *Notification) IsExpired(now time.Time) bool {
	return n.ExpiresAt != nil && !n.ExpiresAt.After(now)
}

// Advance moves the status forward. A transition that would not move
// forward is ignored and reported as false.
func (n *Notification) Advance(to Status, now time.Time) bool {
	if to.rank() <= n.Status.rank() {
		return false
	}
	switch to {
	case StatusRead:
		n.ReadAt = &now
	case StatusDismissed:
		if n.ReadAt == nil {
			n.ReadAt = &now
		}
		n.DismissedAt = &now
	}
	n.Status = to
	n.UpdatedAt = now
	return true
}

// Channel is a delivery medium.
type Channel string

const (
	ChannelInApp Channel = "IN_APP"
	ChannelEmail Channel = "EMAIL"
)

// DeliveryStatus: PENDING -> DELIVERED or PENDING -> FAILED. A FAILED email
// delivery may be retried explicitly, which moves it to DELIVERED or leaves
// it FAILED with one more attempt recorded.
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "PENDING"
	DeliveryDelivered DeliveryStatus = "DELIVERED"
	DeliveryFailed    DeliveryStatus = "FAILED"
)

// Delivery records one channel attempt for one recipient of a notification.
type Delivery struct {
	ID             id.DeliveryID
	NotificationID id.NotificationID
	RecipientID    id.UserID
	Channel        Channel
	Status         DeliveryStatus
	Attempts       int
	LastError      string
	LastAttemptAt  *time.Time
	DeliveredAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func NewDelivery(notificationID id.NotificationID, recipientID id.UserID, channel Channel, now time.Time) *Delivery {
	return &Delivery{
		ID:             id.NewDeliveryID(),
		NotificationID: notificationID,
		RecipientID:    recipientID,
		Channel:        channel,
		Status:         DeliveryPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (d *Delivery) MarkDelivered(now time.Time) {
	d.Status = DeliveryDelivered
	d.Attempts++
	d.LastError = ""
	d.LastAttemptAt = &now
	d.DeliveredAt = &now
	d.UpdatedAt = now
}

// Release returns a claimed delivery to FAILED without counting an attempt.
func (d *Delivery) Release(now time.Time) {
	d.Status = DeliveryFailed
	d.UpdatedAt = now
}

func (d *Delivery) MarkFailed(cause error, now time.Time) {
	d.Status = DeliveryFailed
	d.Attempts++
	d.LastError = cause.Error()
	d.LastAttemptAt = &now
	d.UpdatedAt = now
}

// ListFilter narrows a recipient's notification list.
type ListFilter struct {
	Status   Status
	Category Category
	Type     Type
	Limit    int
	Offset   int
}

// DefaultListLimit applies when ListFilter.Limit is zero.
const DefaultListLimit = 50

// Query is the store-level form of a list request for one recipient.
type Query struct {
	UserID id.UserID
	Role   directory.Role
	Now    time.Time
	ListFilter
}
