// Package delivery fans notifications out to recipients over the in-app and
// email channels and records the outcome of every attempt.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"procura/internal/directory"
	"procura/internal/notification"
	"procura/internal/preferences"
	dErrors "procura/pkg/domain-errors"
	"procura/pkg/requestcontext"
)

const (
	// DefaultSendTimeout bounds one email transport call.
	DefaultSendTimeout = 10 * time.Second
	// DefaultConcurrency caps recipients delivered in parallel.
	DefaultConcurrency = 8
)

// Scheduler implements notification.Dispatcher.
//
// Deliver runs in two phases. First every delivery row for the notification is
// recorded as PENDING; only then are channels executed, one goroutine per
// recipient. A recipient's failure is written to its own rows and never
// reaches other recipients or the caller.
type Scheduler struct {
	store       Store
	prefs       Preferences
	users       Users
	sender      EmailSender
	publisher   notification.Publisher
	baseURL     string
	sendTimeout time.Duration
	concurrency int
	logger      *slog.Logger
	metrics     *Metrics
	tracer      trace.Tracer
}

type Option func(*Scheduler)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// WithPublisher enables best-effort real-time pushes after in-app delivery.
func WithPublisher(p notification.Publisher) Option {
	return func(s *Scheduler) {
		s.publisher = p
	}
}

// WithBaseURL makes relative action links absolute in emails.
func WithBaseURL(baseURL string) Option {
	return func(s *Scheduler) {
		s.baseURL = baseURL
	}
}

func WithSendTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.sendTimeout = d
		}
	}
}

func WithConcurrency(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func NewScheduler(store Store, prefs Preferences, users Users, sender EmailSender, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:       store,
		prefs:       prefs,
		users:       users,
		sender:      sender,
		sendTimeout: DefaultSendTimeout,
		concurrency: DefaultConcurrency,
		tracer:      otel.Tracer("procura/delivery"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type recipientPlan struct {
	user  *directory.User
	inApp *notification.Delivery
	email *notification.Delivery
}

// Deliver records and executes deliveries for every recipient. The only
// returned error is a failure to record the PENDING rows.
func (s *Scheduler) Deliver(ctx context.Context, n *notification.Notification, recipients []*directory.User) error {
	ctx, span := s.tracer.Start(ctx, "delivery.Deliver", trace.WithAttributes(
		attribute.String("notification.id", n.ID.String()),
		attribute.Int("recipients", len(recipients)),
	))
	defer span.End()

	now := requestcontext.Now(ctx)
	plans := make([]recipientPlan, 0, len(recipients))
	var rows []*notification.Delivery
	for _, user := range recipients {
		prefs, err := s.prefs.Get(ctx, user.ID)
		if err != nil {
			s.logError(ctx, "preferences unavailable, recipient skipped", n, user, err)
			continue
		}
		plan := recipientPlan{user: user}
		if prefs.InAppEnabled {
			plan.inApp = notification.NewDelivery(n.ID, user.ID, notification.ChannelInApp, now)
			rows = append(rows, plan.inApp)
		}
		if prefs.EmailEnabled && CategoryAllows(prefs, n.Type) && user.Email != "" {
			plan.email = notification.NewDelivery(n.ID, user.ID, notification.ChannelEmail, now)
			rows = append(rows, plan.email)
		}
		if plan.inApp != nil || plan.email != nil {
			plans = append(plans, plan)
		}
	}
	if len(rows) == 0 {
		return nil
	}
	if err := s.store.CreateDeliveries(ctx, rows); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record deliveries")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, plan := range plans {
		g.Go(func() error {
			s.deliverTo(gctx, n, plan)
			return nil
		})
	}
	return g.Wait()
}

func (s *Scheduler) deliverTo(ctx context.Context, n *notification.Notification, plan recipientPlan) {
	if plan.inApp != nil {
		plan.inApp.MarkDelivered(requestcontext.Now(ctx))
		if err := s.store.UpdateDelivery(ctx, plan.inApp); err != nil {
			s.logError(ctx, "in-app delivery update failed", n, plan.user, err)
		} else {
			s.metrics.observeOutcome(notification.ChannelInApp, notification.DeliveryDelivered)
			s.push(ctx, n, plan.user)
		}
	}
	if plan.email != nil {
		s.sendEmail(ctx, n, plan.user, plan.email)
	}
}

// sendEmail performs one time-bounded transport attempt and records it.
func (s *Scheduler) sendEmail(ctx context.Context, n *notification.Notification, user *directory.User, d *notification.Delivery) {
	err := s.attempt(ctx, n, user)
	now := requestcontext.Now(ctx)
	if err != nil {
		d.MarkFailed(err, now)
		s.logWarn(ctx, "email delivery failed", n, user, err)
	} else {
		d.MarkDelivered(now)
	}
	s.metrics.observeOutcome(notification.ChannelEmail, d.Status)
	if err := s.store.UpdateDelivery(ctx, d); err != nil {
		s.logError(ctx, "email delivery update failed", n, user, err)
	}
}

func (s *Scheduler) attempt(ctx context.Context, n *notification.Notification, user *directory.User) error {
	msg, err := renderEmail(n, user, s.baseURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransportRejected, err)
	}
	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	start := time.Now()
	err = s.sender.Send(sendCtx, msg)
	s.metrics.observeSendLatency(time.Since(start))
	return classifyTransportError(sendCtx, err)
}

// classifyTransportError maps any transport failure onto the two transport
// error kinds.
func classifyTransportError(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTransportTimeout), errors.Is(err, ErrTransportRejected):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTransportTimeout, err)
	default:
		return fmt.Errorf("%w: %v", ErrTransportRejected, err)
	}
}

func (s *Scheduler) push(ctx context.Context, n *notification.Notification, user *directory.User) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishNotification(ctx, user.ID, n)
	if err == nil {
		var count int
		count, err = s.store.CountUnread(ctx, user.ID, user.Role, requestcontext.Now(ctx))
		if err == nil {
			err = s.publisher.PublishUnreadCount(ctx, user.ID, count)
		}
	}
	if err != nil && s.logger != nil {
		s.logger.DebugContext(ctx, "real-time push skipped",
			"notification_id", n.ID.String(),
			"user_id", user.ID.String(),
			"error", err,
		)
	}
}

// RetryReport summarises one RetryFailed run.
type RetryReport struct {
	Attempted int
	Delivered int
	Failed    int
	Skipped   int
}

// staleClaim is how long an email row may sit in PENDING before a retry run
// treats its previous attempt as lost.
const staleClaim = 10 * time.Minute

// RetryFailed claims up to limit FAILED email deliveries, oldest first, and
// re-attempts them. Claiming makes concurrent runs pick disjoint rows.
// Deliveries whose recipient is no longer active, or who has since turned
// email off, are skipped and released back to FAILED.
func (s *Scheduler) RetryFailed(ctx context.Context, limit int) (RetryReport, error) {
	var report RetryReport
	now := requestcontext.Now(ctx)
	claimed, err := s.store.ClaimFailedDeliveries(ctx, notification.ChannelEmail, limit, now.Add(-staleClaim), now)
	if err != nil {
		return report, dErrors.Wrap(err, dErrors.CodeInternal, "failed to claim failed deliveries")
	}
	for _, d := range claimed {
		n, user, ok := s.retryTarget(ctx, d)
		if !ok {
			report.Skipped++
			d.Release(requestcontext.Now(ctx))
			if err := s.store.UpdateDelivery(ctx, d); err != nil && s.logger != nil {
				s.logger.ErrorContext(ctx, "failed to release skipped delivery",
					"delivery_id", d.ID.String(),
					"error", err,
				)
			}
			continue
		}

		report.Attempted++
		s.sendEmail(ctx, n, user, d)
		if d.Status == notification.DeliveryDelivered {
			report.Delivered++
		} else {
			report.Failed++
		}
	}
	if s.logger != nil && report.Attempted > 0 {
		s.logger.InfoContext(ctx, "failed email deliveries retried",
			"attempted", report.Attempted,
			"delivered", report.Delivered,
			"failed", report.Failed,
			"skipped", report.Skipped,
		)
	}
	return report, nil
}

// retryTarget loads what a retry needs and reports whether the delivery is
// still wanted.
func (s *Scheduler) retryTarget(ctx context.Context, d *notification.Delivery) (*notification.Notification, *directory.User, bool) {
	n, err := s.store.FindByID(ctx, d.NotificationID)
	if err != nil {
		return nil, nil, false
	}
	user, err := s.users.FindUser(ctx, d.RecipientID)
	if err != nil || !user.IsActive() {
		return nil, nil, false
	}
	prefs, err := s.prefs.Get(ctx, user.ID)
	if err != nil || !prefs.EmailEnabled || !CategoryAllows(prefs, n.Type) {
		return nil, nil, false
	}
	return n, user, true
}

// CategoryAllows applies the per-category opt-in for a notification type.
// Types without a dedicated switch are always allowed.
func CategoryAllows(p *preferences.Preferences, t notification.Type) bool {
	switch t {
	case notification.TypeRequestStatusChange:
		return p.RequestStatusChanges
	case notification.TypeManagerAssignment:
		return p.ManagerAssignments
	case notification.TypeSystemAlert:
		return p.SystemAlerts
	}
	return true
}

func (s *Scheduler) logWarn(ctx context.Context, msg string, n *notification.Notification, user *directory.User, err error) {
	if s.logger == nil {
		return
	}
	s.logger.WarnContext(ctx, msg,
		"notification_id", n.ID.String(),
		"user_id", user.ID.String(),
		"error", err,
	)
}

func (s *Scheduler) logError(ctx context.Context, msg string, n *notification.Notification, user *directory.User, err error) {
	if s.logger == nil {
		return
	}
	s.logger.ErrorContext(ctx, msg,
		"notification_id", n.ID.String(),
		"user_id", user.ID.String(),
		"error", err,
	)
}
