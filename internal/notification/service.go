// Package notification turns domain events into persisted notifications,
// resolves who should receive them, and owns their recipient-driven
// lifecycle. Channel delivery is handed to a Dispatcher.
package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"procura/internal/directory"
	id "procura/pkg/domain"
	dErrors "procura/pkg/domain-errors"
	"procura/pkg/platform/sentinel"
	"procura/pkg/requestcontext"
)

// Store persists notifications and their delivery rows.
type Store interface {
	Create(ctx context.Context, n *Notification) error
	// CreateAssignmentRequestIfAbsent inserts n unless an UNREAD
	// MANAGER_ASSIGNMENT notification already references n.DepartmentRef, in
	// which case it returns sentinel.ErrAlreadyUsed. The check and the insert
	// are a single atomic operation.
	CreateAssignmentRequestIfAbsent(ctx context.Context, n *Notification) error
	FindPendingAssignmentRequest(ctx context.Context, deptID id.DepartmentID) (*Notification, error)
	FindByID(ctx context.Context, notificationID id.NotificationID) (*Notification, error)
	// Execute validates then mutates one notification while holding it locked.
	Execute(ctx context.Context, notificationID id.NotificationID, validate func(*Notification) error, mutate func(*Notification)) (*Notification, error)
	List(ctx context.Context, q Query) ([]*Notification, error)
	CountUnread(ctx context.Context, userID id.UserID, role directory.Role, now time.Time) (int, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)

	CreateDeliveries(ctx context.Context, deliveries []*Delivery) error
	UpdateDelivery(ctx context.Context, d *Delivery) error
	ListDeliveries(ctx context.Context, notificationID id.NotificationID) ([]*Delivery, error)
	// ClaimFailedDeliveries moves up to limit FAILED rows of the channel, plus
	// PENDING rows untouched since staleBefore, back to PENDING and returns
	// them. A row is handed to at most one concurrent caller.
	ClaimFailedDeliveries(ctx context.Context, channel Channel, limit int, staleBefore, now time.Time) ([]*Delivery, error)
}

type Orchestrator struct {
	store      Store
	directory  Directory
	dispatcher Dispatcher
	publisher  Publisher
	logger     *slog.Logger
	metrics    *Metrics
	tracer     trace.Tracer
}

type Option func(*Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithPublisher enables real-time pushes of unread counts after status
// transitions.
func WithPublisher(p Publisher) Option {
	return func(o *Orchestrator) {
		o.publisher = p
	}
}

func NewOrchestrator(store Store, dir Directory, dispatcher Dispatcher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:      store,
		directory:  dir,
		dispatcher: dispatcher,
		tracer:     otel.Tracer("procura/notification"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Raise builds, persists and dispatches the notification for ev. Assignment
// requests go through duplicate suppression; when one is already pending the
// existing notification is returned and nothing is dispatched.
func (o *Orchestrator) Raise(ctx context.Context, ev Event) (*Notification, error) {
	if req, ok := ev.(AssignmentRequested); ok {
		n, _, err := o.RaiseAssignmentRequest(ctx, req)
		return n, err
	}
	if ev == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "event is required")
	}

	ctx, span := o.tracer.Start(ctx, "notification.Raise")
	defer span.End()

	n := ev.build(requestcontext.Now(ctx))
	span.SetAttributes(attribute.String("notification.type", string(n.Type)))
	if err := n.Target.validate(); err != nil {
		return nil, err
	}
	if err := o.store.Create(ctx, n); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create notification")
	}
	o.metrics.incRaised(n.Type)
	o.dispatch(ctx, n)
	return n, nil
}

// RaiseAssignmentRequest creates a MANAGER_ASSIGNMENT notification for the
// department unless an UNREAD one already exists. created reports whether a
// new notification was stored.
func (o *Orchestrator) RaiseAssignmentRequest(ctx context.Context, ev AssignmentRequested) (n *Notification, created bool, err error) {
	if ev.Department == nil {
		return nil, false, dErrors.New(dErrors.CodeInvalidInput, "department is required")
	}

	ctx, span := o.tracer.Start(ctx, "notification.RaiseAssignmentRequest",
		trace.WithAttributes(
			attribute.String("department.id", ev.Department.ID.String()),
			attribute.String("scenario", string(ev.Scenario)),
		))
	defer span.End()

	n = ev.build(requestcontext.Now(ctx))
	err = o.store.CreateAssignmentRequestIfAbsent(ctx, n)
	if errors.Is(err, sentinel.ErrAlreadyUsed) {
		o.metrics.incDuplicateSkipped()
		existing, findErr := o.store.FindPendingAssignmentRequest(ctx, ev.Department.ID)
		if findErr != nil && !errors.Is(findErr, sentinel.ErrNotFound) {
			return nil, false, dErrors.Wrap(findErr, dErrors.CodeInternal, "failed to load pending assignment request")
		}
		return existing, false, nil
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create assignment request")
	}

	o.metrics.incRaised(n.Type)
	if o.logger != nil {
		o.logger.InfoContext(ctx, "assignment request raised",
			"notification_id", n.ID.String(),
			"department_id", ev.Department.ID.String(),
			"scenario", string(ev.Scenario),
		)
	}
	o.dispatch(ctx, n)
	return n, true, nil
}

// PendingAssignmentRequest returns the UNREAD assignment request for the
// department, or nil when there is none.
func (o *Orchestrator) PendingAssignmentRequest(ctx context.Context, deptID id.DepartmentID) (*Notification, error) {
	n, err := o.store.FindPendingAssignmentRequest(ctx, deptID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up pending assignment request")
	}
	return n, nil
}

// ResolveRecipients returns the ACTIVE users the notification addresses.
// An inactive or unknown target user yields an empty set.
func (o *Orchestrator) ResolveRecipients(ctx context.Context, n *Notification) ([]*directory.User, error) {
	if n.Target.UserID != nil {
		u, err := o.directory.FindUser(ctx, *n.Target.UserID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve target user")
		}
		if !u.IsActive() {
			return nil, nil
		}
		return []*directory.User{u}, nil
	}
	users, err := o.directory.ListActiveByRole(ctx, n.Target.Role)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve target role")
	}
	return users, nil
}

func (o *Orchestrator) dispatch(ctx context.Context, n *Notification) {
	recipients, err := o.ResolveRecipients(ctx, n)
	if err == nil {
		err = o.dispatcher.Deliver(ctx, n, recipients)
	}
	if err != nil {
		o.metrics.incDispatchFailure()
		if o.logger != nil {
			o.logger.ErrorContext(ctx, "notification dispatch failed",
				"notification_id", n.ID.String(),
				"type", string(n.Type),
				"error", err,
			)
		}
	}
}

// MarkRead moves the notification to READ for the acting user.
func (o *Orchestrator) MarkRead(ctx context.Context, notificationID id.NotificationID, userID id.UserID) (*Notification, error) {
	return o.transition(ctx, notificationID, userID, StatusRead)
}

// MarkDismissed moves the notification to DISMISSED for the acting user.
func (o *Orchestrator) MarkDismissed(ctx context.Context, notificationID id.NotificationID, userID id.UserID) (*Notification, error) {
	return o.transition(ctx, notificationID, userID, StatusDismissed)
}

// BulkMarkRead marks every listed notification addressed to the user as READ
// and returns how many moved. Unknown or foreign ids are skipped.
func (o *Orchestrator) BulkMarkRead(ctx context.Context, notificationIDs []id.NotificationID, userID id.UserID) (int, error) {
	user, err := o.actingUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	now := requestcontext.Now(ctx)
	moved := 0
	for _, nid := range notificationIDs {
		changed := false
		_, err := o.store.Execute(ctx, nid,
			func(n *Notification) error {
				if !n.Target.Addresses(user) {
					return sentinel.ErrNotFound
				}
				return nil
			},
			func(n *Notification) {
				changed = n.Advance(StatusRead, now)
			},
		)
		if errors.Is(err, sentinel.ErrNotFound) {
			continue
		}
		if err != nil {
			return moved, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark notifications read")
		}
		if changed {
			moved++
			o.metrics.incTransition(StatusRead)
		}
	}
	o.publishUnreadCount(ctx, user)
	return moved, nil
}

func (o *Orchestrator) transition(ctx context.Context, notificationID id.NotificationID, userID id.UserID, to Status) (*Notification, error) {
	user, err := o.actingUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	changed := false
	n, err := o.store.Execute(ctx, notificationID,
		func(n *Notification) error {
			if !n.Target.Addresses(user) {
				return sentinel.ErrNotFound
			}
			return nil
		},
		func(n *Notification) {
			changed = n.Advance(to, now)
		},
	)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, ErrNotificationNotFound
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("failed to mark notification %s", to))
	}
	if changed {
		o.metrics.incTransition(to)
		o.publishUnreadCount(ctx, user)
	}
	return n, nil
}

// actingUser loads the user performing a status change. An unknown user can
// address nothing, so it is reported as a missing notification.
func (o *Orchestrator) actingUser(ctx context.Context, userID id.UserID) (*directory.User, error) {
	u, err := o.directory.FindUser(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, ErrNotificationNotFound
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return u, nil
}

// List returns the user's non-expired notifications, highest priority first
// and newest first within a priority.
func (o *Orchestrator) List(ctx context.Context, userID id.UserID, filter ListFilter) ([]*Notification, error) {
	u, err := o.directory.FindUser(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultListLimit
	}
	items, err := o.store.List(ctx, Query{
		UserID:     u.ID,
		Role:       u.Role,
		Now:        requestcontext.Now(ctx),
		ListFilter: filter,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notifications")
	}
	return items, nil
}

// UnreadCount counts the user's UNREAD, non-expired notifications.
func (o *Orchestrator) UnreadCount(ctx context.Context, userID id.UserID) (int, error) {
	u, err := o.directory.FindUser(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	count, err := o.store.CountUnread(ctx, u.ID, u.Role, requestcontext.Now(ctx))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count unread notifications")
	}
	return count, nil
}

func (o *Orchestrator) publishUnreadCount(ctx context.Context, user *directory.User) {
	if o.publisher == nil {
		return
	}
	count, err := o.store.CountUnread(ctx, user.ID, user.Role, requestcontext.Now(ctx))
	if err == nil {
		err = o.publisher.PublishUnreadCount(ctx, user.ID, count)
	}
	if err != nil && o.logger != nil {
		o.logger.DebugContext(ctx, "unread count push skipped", "user_id", user.ID.String(), "error", err)
	}
}

// CleanupExpired deletes notifications past their expiry together with their
// delivery rows.
func (o *Orchestrator) CleanupExpired(ctx context.Context) (int, error) {
	deleted, err := o.store.DeleteExpired(ctx, requestcontext.Now(ctx))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete expired notifications")
	}
	o.metrics.addExpired(deleted)
	if deleted > 0 && o.logger != nil {
		o.logger.InfoContext(ctx, "expired notifications deleted", "count", deleted)
	}
	return deleted, nil
}
