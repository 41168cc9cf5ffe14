package store

import (
	"context"
	"sort"
	"sync"

	"procura/internal/directory"
	id "procura/pkg/domain"
	"procura/pkg/platform/sentinel"
)

// InMemory is a process-local directory. It backs tests and single-node
// development; the Postgres store is the production implementation.
type InMemory struct {
	mu          sync.RWMutex
	departments map[id.DepartmentID]*directory.Department
	users       map[id.UserID]*directory.User
}

func NewInMemory() *InMemory {
	return &InMemory{
		departments: make(map[id.DepartmentID]*directory.Department),
		users:       make(map[id.UserID]*directory.User),
	}
}

// SaveDepartment inserts or replaces a department.
func (s *InMemory) SaveDepartment(_ context.Context, d *directory.Department) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.departments[d.ID] = copyDepartment(d)
	return nil
}

// SaveUser inserts or replaces a user.
func (s *InMemory) SaveUser(_ context.Context, u *directory.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	cp.ManagedDepartments = nil
	s.users[u.ID] = &cp
	return nil
}

func (s *InMemory) FindDepartment(_ context.Context, deptID id.DepartmentID) (*directory.Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.departments[deptID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyDepartment(d), nil
}

func (s *InMemory) ListActiveDepartments(_ context.Context) ([]*directory.Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*directory.Department, 0, len(s.departments))
	for _, d := range s.departments {
		if d.IsActive() {
			out = append(out, copyDepartment(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *InMemory) FindUser(_ context.Context, userID id.UserID) (*directory.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.withManaged(u), nil
}

// ListRoster returns ACTIVE MANAGER users whose home department is deptID.
func (s *InMemory) ListRoster(_ context.Context, deptID id.DepartmentID) ([]*directory.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*directory.User
	for _, u := range s.users {
		if u.IsEligibleManager() && u.BelongsTo(deptID) {
			out = append(out, s.withManaged(u))
		}
	}
	sortUsers(out)
	return out, nil
}

func (s *InMemory) ListActiveByRole(_ context.Context, role directory.Role) ([]*directory.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*directory.User
	for _, u := range s.users {
		if u.Role == role && u.IsActive() {
			out = append(out, s.withManaged(u))
		}
	}
	sortUsers(out)
	return out, nil
}

// ListManagedBy returns departments whose assignment references userID.
func (s *InMemory) ListManagedBy(_ context.Context, userID id.UserID) ([]id.DepartmentID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.managedBy(userID), nil
}

// CompareAndSetAssignment replaces the department's assignment only when it
// still equals expected.
func (s *InMemory) CompareAndSetAssignment(ctx context.Context, deptID id.DepartmentID, expected, next *id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.departments[deptID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !directory.SameAssignment(d.AssignedManagerID, expected) {
		return sentinel.ErrConflict
	}
	d.AssignedManagerID = copyUserID(next)
	d.UpdatedAt = nowFrom(ctx)
	return nil
}

func (s *InMemory) withManaged(u *directory.User) *directory.User {
	cp := *u
	cp.ManagedDepartments = s.managedBy(u.ID)
	return &cp
}

func (s *InMemory) managedBy(userID id.UserID) []id.DepartmentID {
	var out []id.DepartmentID
	for _, d := range s.departments {
		if d.IsAssignedTo(userID) {
			out = append(out, d.ID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func copyDepartment(d *directory.Department) *directory.Department {
	cp := *d
	cp.AssignedManagerID = copyUserID(d.AssignedManagerID)
	return &cp
}

func copyUserID(u *id.UserID) *id.UserID {
	if u == nil {
		return nil
	}
	v := *u
	return &v
}

func sortUsers(users []*directory.User) {
	sort.Slice(users, func(i, j int) bool {
		if users[i].Name != users[j].Name {
			return users[i].Name < users[j].Name
		}
		return users[i].ID.String() < users[j].ID.String()
	})
}
