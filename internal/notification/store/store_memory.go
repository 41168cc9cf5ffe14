// Package store persists notifications and their delivery rows.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"procura/internal/directory"
	"procura/internal/notification"
	id "procura/pkg/domain"
	"procura/pkg/platform/sentinel"
)

// InMemoryStore keeps notifications and deliveries in maps guarded by one
// mutex, so the assignment-request uniqueness check and insert are atomic.
type InMemoryStore struct {
	mu            sync.Mutex
	notifications map[id.NotificationID]*notification.Notification
	deliveries    map[id.DeliveryID]*notification.Delivery
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		notifications: make(map[id.NotificationID]*notification.Notification),
		deliveries:    make(map[id.DeliveryID]*notification.Delivery),
	}
}

func (s *InMemoryStore) Create(_ context.Context, n *notification.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[n.ID] = cloneNotification(n)
	return nil
}

func (s *InMemoryStore) CreateAssignmentRequestIfAbsent(_ context.Context, n *notification.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.DepartmentRef != nil && s.pendingLocked(*n.DepartmentRef) != nil {
		return sentinel.ErrAlreadyUsed
	}
	s.notifications[n.ID] = cloneNotification(n)
	return nil
}

func (s *InMemoryStore) FindPendingAssignmentRequest(_ context.Context, deptID id.DepartmentID) (*notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := s.pendingLocked(deptID); n != nil {
		return cloneNotification(n), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) pendingLocked(deptID id.DepartmentID) *notification.Notification {
	for _, n := range s.notifications {
		if n.Type == notification.TypeManagerAssignment &&
			n.Status == notification.StatusUnread &&
			n.DepartmentRef != nil && *n.DepartmentRef == deptID {
			return n
		}
	}
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, notificationID id.NotificationID) (*notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[notificationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneNotification(n), nil
}

// Execute runs validate and mutate on a copy under the store lock and
// persists the copy only when validation passes.
func (s *InMemoryStore) Execute(_ context.Context, notificationID id.NotificationID, validate func(*notification.Notification) error, mutate func(*notification.Notification)) (*notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.notifications[notificationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	n := cloneNotification(existing)
	if err := validate(n); err != nil {
		return nil, err
	}
	mutate(n)
	s.notifications[notificationID] = n
	return cloneNotification(n), nil
}

func (s *InMemoryStore) List(_ context.Context, q notification.Query) ([]*notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recipient := &directory.User{ID: q.UserID, Role: q.Role}
	var out []*notification.Notification
	for _, n := range s.notifications {
		if !n.Target.Addresses(recipient) || n.IsExpired(q.Now) {
			continue
		}
		if q.Status != "" && n.Status != q.Status {
			continue
		}
		if q.Category != "" && n.Category != q.Category {
			continue
		}
		if q.Type != "" && n.Type != q.Type {
			continue
		}
		out = append(out, cloneNotification(n))
	}
	sort.Slice(out, func(i, j int) bool {
		if ri, rj := out[i].Priority.Rank(), out[j].Priority.Rank(); ri != rj {
			return ri > rj
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if q.Offset >= len(out) {
		return nil, nil
	}
	out = out[q.Offset:]
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *InMemoryStore) CountUnread(_ context.Context, userID id.UserID, role directory.Role, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recipient := &directory.User{ID: userID, Role: role}
	count := 0
	for _, n := range s.notifications {
		if n.Status == notification.StatusUnread && n.Target.Addresses(recipient) && !n.IsExpired(now) {
			count++
		}
	}
	return count, nil
}

// DeleteExpired removes expired notifications and cascades to their deliveries.
func (s *InMemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for nid, n := range s.notifications {
		if !n.IsExpired(now) {
			continue
		}
		delete(s.notifications, nid)
		for did, d := range s.deliveries {
			if d.NotificationID == nid {
				delete(s.deliveries, did)
			}
		}
		deleted++
	}
	return deleted, nil
}

func (s *InMemoryStore) CreateDeliveries(_ context.Context, deliveries []*notification.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range deliveries {
		if _, ok := s.notifications[d.NotificationID]; !ok {
			return sentinel.ErrNotFound
		}
	}
	for _, d := range deliveries {
		cp := *d
		s.deliveries[d.ID] = &cp
	}
	return nil
}

func (s *InMemoryStore) UpdateDelivery(_ context.Context, d *notification.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.deliveries[d.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *d
	s.deliveries[d.ID] = &cp
	return nil
}

func (s *InMemoryStore) ListDeliveries(_ context.Context, notificationID id.NotificationID) ([]*notification.Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*notification.Delivery
	for _, d := range s.deliveries {
		if d.NotificationID == notificationID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sortDeliveries(out)
	return out, nil
}

func (s *InMemoryStore) ClaimFailedDeliveries(_ context.Context, channel notification.Channel, limit int, staleBefore, now time.Time) ([]*notification.Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var candidates []*notification.Delivery
	for _, d := range s.deliveries {
		if d.Channel != channel {
			continue
		}
		stale := d.Status == notification.DeliveryPending && d.UpdatedAt.Before(staleBefore)
		if d.Status == notification.DeliveryFailed || stale {
			candidates = append(candidates, d)
		}
	}
	sortDeliveries(candidates)
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]*notification.Delivery, 0, len(candidates))
	for _, d := range candidates {
		d.Status = notification.DeliveryPending
		d.UpdatedAt = now
		cp := *d
		out = append(out, &cp)
	}
	return out, nil
}

func sortDeliveries(ds []*notification.Delivery) {
	sort.Slice(ds, func(i, j int) bool {
		if !ds[i].CreatedAt.Equal(ds[j].CreatedAt) {
			return ds[i].CreatedAt.Before(ds[j].CreatedAt)
		}
		return ds[i].ID.String() < ds[j].ID.String()
	})
}

func cloneNotification(n *notification.Notification) *notification.Notification {
	cp := *n
	return &cp
}
