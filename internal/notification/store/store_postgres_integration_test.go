//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"procura/internal/directory"
	"procura/internal/notification"
	"procura/internal/notification/store"
	id "procura/pkg/domain"
	"procura/pkg/platform/sentinel"
	"procura/pkg/testutil"
	"procura/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgresStore(s.postgres.DB)
	s.now = testutil.FixedNow
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "notification_deliveries", "notifications")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) assignmentRequest(deptID id.DepartmentID) *notification.Notification {
	return &notification.Notification{
		ID:       id.NewNotificationID(),
		Type:     notification.TypeManagerAssignment,
		Title:    "Manager assignment required",
		Message:  "Engineering has several managers",
		Priority: notification.PriorityHigh,
		Status:   notification.StatusUnread,
		Category: notification.CategoryManagerAssignment,
		Target:   notification.ForRole(directory.RoleAdmin),
		Payload: notification.ManagerAssignmentPayload{
			DepartmentID:   deptID,
			DepartmentName: "Engineering",
			DepartmentCode: "ENG",
			Scenario:       notification.ScenarioMultipleManagers,
			AvailableManagers: []notification.ManagerSummary{
				{ID: id.NewUserID(), Name: "Ada", Email: "ada@example.com"},
			},
		},
		DepartmentRef: &deptID,
		CreatedAt:     s.now,
		UpdatedAt:     s.now,
	}
}

func (s *PostgresStoreSuite) userNotification(userID id.UserID, priority notification.Priority, createdAt time.Time) *notification.Notification {
	return &notification.Notification{
		ID:        id.NewNotificationID(),
		Type:      notification.TypeSystemAlert,
		Title:     "Maintenance",
		Message:   "Scheduled downtime",
		Priority:  priority,
		Status:    notification.StatusUnread,
		Category:  notification.CategorySystem,
		Target:    notification.ForUser(userID),
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// TestConcurrentAssignmentRequests verifies the partial unique index lets
// exactly one of many simultaneous raises for a department through.
func (s *PostgresStoreSuite) TestConcurrentAssignmentRequests() {
	ctx := context.Background()
	deptID := id.NewDepartmentID()
	const goroutines = 50

	var wg sync.WaitGroup
	var created, suppressed, failed atomic.Int32
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.CreateAssignmentRequestIfAbsent(ctx, s.assignmentRequest(deptID))
			switch {
			case err == nil:
				created.Add(1)
			case errors.Is(err, sentinel.ErrAlreadyUsed):
				suppressed.Add(1)
			default:
				failed.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), created.Load(), "exactly one request should be stored")
	s.Equal(int32(goroutines-1), suppressed.Load())
	s.Zero(failed.Load())

	pending, err := s.store.FindPendingAssignmentRequest(ctx, deptID)
	s.Require().NoError(err)
	payload, ok := pending.Payload.(notification.ManagerAssignmentPayload)
	s.Require().True(ok, "payload should decode to its concrete type")
	s.Equal(deptID, payload.DepartmentID)
	s.Len(payload.AvailableManagers, 1)
}

func (s *PostgresStoreSuite) TestDismissedRequestFreesTheSlot() {
	ctx := context.Background()
	deptID := id.NewDepartmentID()
	first := s.assignmentRequest(deptID)
	s.Require().NoError(s.store.CreateAssignmentRequestIfAbsent(ctx, first))

	_, err := s.store.Execute(ctx, first.ID,
		func(*notification.Notification) error { return nil },
		func(n *notification.Notification) { n.Advance(notification.StatusDismissed, s.now.Add(time.Minute)) },
	)
	s.Require().NoError(err)

	_, err = s.store.FindPendingAssignmentRequest(ctx, deptID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.NoError(s.store.CreateAssignmentRequestIfAbsent(ctx, s.assignmentRequest(deptID)))
}

func (s *PostgresStoreSuite) TestListOrdersByPriorityThenRecency() {
	ctx := context.Background()
	user := id.NewUserID()
	low := s.userNotification(user, notification.PriorityLow, s.now.Add(time.Hour))
	urgent := s.userNotification(user, notification.PriorityUrgent, s.now)
	olderHigh := s.userNotification(user, notification.PriorityHigh, s.now)
	newerHigh := s.userNotification(user, notification.PriorityHigh, s.now.Add(time.Minute))
	for _, n := range []*notification.Notification{low, urgent, olderHigh, newerHigh} {
		s.Require().NoError(s.store.Create(ctx, n))
	}
	s.Require().NoError(s.store.Create(ctx, s.userNotification(id.NewUserID(), notification.PriorityUrgent, s.now)))

	got, err := s.store.List(ctx, notification.Query{
		UserID:     user,
		Role:       directory.RoleManager,
		Now:        s.now,
		ListFilter: notification.ListFilter{Limit: 10},
	})
	s.Require().NoError(err)

	var ids []id.NotificationID
	for _, n := range got {
		ids = append(ids, n.ID)
	}
	s.Equal([]id.NotificationID{urgent.ID, newerHigh.ID, olderHigh.ID, low.ID}, ids)
}

func (s *PostgresStoreSuite) TestRoleTargetsAndExpiryInCounts() {
	ctx := context.Background()
	admin := id.NewUserID()
	expired := s.now.Add(-time.Minute)

	roleWide := s.assignmentRequest(id.NewDepartmentID())
	s.Require().NoError(s.store.Create(ctx, roleWide))
	stale := s.userNotification(admin, notification.PriorityMedium, s.now.Add(-time.Hour))
	stale.ExpiresAt = &expired
	s.Require().NoError(s.store.Create(ctx, stale))

	count, err := s.store.CountUnread(ctx, admin, directory.RoleAdmin, s.now)
	s.Require().NoError(err)
	s.Equal(1, count, "expired rows are invisible and role rows count")

	count, err = s.store.CountUnread(ctx, admin, directory.RoleEmployee, s.now)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *PostgresStoreSuite) TestDeleteExpiredCascadesToDeliveries() {
	ctx := context.Background()
	user := id.NewUserID()
	expired := s.now.Add(-time.Minute)
	n := s.userNotification(user, notification.PriorityMedium, s.now.Add(-time.Hour))
	n.ExpiresAt = &expired
	s.Require().NoError(s.store.Create(ctx, n))
	s.Require().NoError(s.store.CreateDeliveries(ctx, []*notification.Delivery{
		notification.NewDelivery(n.ID, user, notification.ChannelInApp, s.now),
		notification.NewDelivery(n.ID, user, notification.ChannelEmail, s.now),
	}))

	deleted, err := s.store.DeleteExpired(ctx, s.now)
	s.Require().NoError(err)
	s.Equal(1, deleted)

	deliveries, err := s.store.ListDeliveries(ctx, n.ID)
	s.Require().NoError(err)
	s.Empty(deliveries)
}

func (s *PostgresStoreSuite) TestFailedDeliveriesRoundTrip() {
	ctx := context.Background()
	user := id.NewUserID()
	n := s.userNotification(user, notification.PriorityHigh, s.now)
	s.Require().NoError(s.store.Create(ctx, n))

	email := notification.NewDelivery(n.ID, user, notification.ChannelEmail, s.now)
	s.Require().NoError(s.store.CreateDeliveries(ctx, []*notification.Delivery{email}))

	email.MarkFailed(errors.New("smtp: connection refused"), s.now.Add(time.Second))
	s.Require().NoError(s.store.UpdateDelivery(ctx, email))

	claimAt := s.now.Add(2 * time.Second)
	claimed, err := s.store.ClaimFailedDeliveries(ctx, notification.ChannelEmail, 10, s.now.Add(-time.Hour), claimAt)
	s.Require().NoError(err)
	s.Require().Len(claimed, 1)
	s.Equal(email.ID, claimed[0].ID)
	s.Equal(notification.DeliveryPending, claimed[0].Status)
	s.Equal(1, claimed[0].Attempts)
	s.Equal("smtp: connection refused", claimed[0].LastError)

	again, err := s.store.ClaimFailedDeliveries(ctx, notification.ChannelEmail, 10, s.now.Add(-time.Hour), claimAt)
	s.Require().NoError(err)
	s.Empty(again, "a fresh claim is not handed out twice")

	stale, err := s.store.ClaimFailedDeliveries(ctx, notification.ChannelEmail, 10, claimAt.Add(time.Second), claimAt.Add(time.Hour))
	s.Require().NoError(err)
	s.Len(stale, 1, "an abandoned claim becomes claimable again")

	missing := notification.NewDelivery(n.ID, user, notification.ChannelInApp, s.now)
	s.ErrorIs(s.store.UpdateDelivery(ctx, missing), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestConcurrentClaimsAreDisjoint() {
	ctx := context.Background()
	const rows = 20
	var failed []*notification.Delivery
	for range rows {
		user := id.NewUserID()
		n := s.userNotification(user, notification.PriorityHigh, s.now)
		s.Require().NoError(s.store.Create(ctx, n))
		d := notification.NewDelivery(n.ID, user, notification.ChannelEmail, s.now)
		d.MarkFailed(errors.New("451 local error"), s.now)
		failed = append(failed, d)
	}
	s.Require().NoError(s.store.CreateDeliveries(ctx, failed))

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		seen = make(map[id.DeliveryID]int)
	)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := s.store.ClaimFailedDeliveries(ctx, notification.ChannelEmail, 10, s.now.Add(-time.Hour), s.now)
			s.NoError(err)
			mu.Lock()
			defer mu.Unlock()
			for _, d := range claimed {
				seen[d.ID]++
			}
		}()
	}
	wg.Wait()

	s.Len(seen, rows)
	for deliveryID, n := range seen {
		s.Equal(1, n, "delivery %s claimed more than once", deliveryID)
	}
}
