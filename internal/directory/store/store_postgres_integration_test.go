//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"procura/internal/directory"
	"procura/internal/directory/store"
	id "procura/pkg/domain"
	"procura/pkg/platform/sentinel"
	"procura/pkg/testutil"
	"procura/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	ctx      context.Context
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
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.ctx = testutil.Context(testutil.FixedNow)
	err := s.postgres.TruncateTables(context.Background(), "users", "departments")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) department(name, code string, status directory.Status) *directory.Department {
	d := &directory.Department{
		ID:        id.NewDepartmentID(),
		Name:      name,
		Code:      code,
		Status:    status,
		CreatedAt: testutil.FixedNow,
		UpdatedAt: testutil.FixedNow,
	}
	s.Require().NoError(s.store.SaveDepartment(s.ctx, d))
	return d
}

func (s *PostgresStoreSuite) user(name string, role directory.Role, status directory.Status, dept *directory.Department) *directory.User {
	u := &directory.User{
		ID:        id.NewUserID(),
		Name:      name,
		Email:     name + "@example.com",
		Role:      role,
		Status:    status,
		CreatedAt: testutil.FixedNow,
		UpdatedAt: testutil.FixedNow,
	}
	if dept != nil {
		u.DepartmentID = &dept.ID
	}
	s.Require().NoError(s.store.SaveUser(s.ctx, u))
	return u
}

func (s *PostgresStoreSuite) TestRosterHoldsOnlyActiveManagers() {
	eng := s.department("Engineering", "ENG", directory.StatusActive)
	s.user("bea", directory.RoleManager, directory.StatusActive, eng)
	s.user("ada", directory.RoleManager, directory.StatusActive, eng)
	s.user("cyd", directory.RoleManager, directory.StatusInactive, eng)
	s.user("dov", directory.RoleEmployee, directory.StatusActive, eng)

	roster, err := s.store.ListRoster(s.ctx, eng.ID)
	s.Require().NoError(err)

	var names []string
	for _, u := range roster {
		names = append(names, u.Name)
	}
	s.Equal([]string{"ada", "bea"}, names)
}

func (s *PostgresStoreSuite) TestManagedDepartmentsAreAggregated() {
	eng := s.department("Engineering", "ENG", directory.StatusActive)
	ops := s.department("Operations", "OPS", directory.StatusActive)
	mgr := s.user("ada", directory.RoleManager, directory.StatusActive, eng)

	s.Require().NoError(s.store.CompareAndSetAssignment(s.ctx, eng.ID, nil, &mgr.ID))
	s.Require().NoError(s.store.CompareAndSetAssignment(s.ctx, ops.ID, nil, &mgr.ID))

	got, err := s.store.FindUser(s.ctx, mgr.ID)
	s.Require().NoError(err)
	s.ElementsMatch([]id.DepartmentID{eng.ID, ops.ID}, got.ManagedDepartments)

	managed, err := s.store.ListManagedBy(s.ctx, mgr.ID)
	s.Require().NoError(err)
	s.ElementsMatch([]id.DepartmentID{eng.ID, ops.ID}, managed)
}

func (s *PostgresStoreSuite) TestCompareAndSetRejectsStaleExpectation() {
	eng := s.department("Engineering", "ENG", directory.StatusActive)
	ada := s.user("ada", directory.RoleManager, directory.StatusActive, eng)
	bea := s.user("bea", directory.RoleManager, directory.StatusActive, eng)

	s.Require().NoError(s.store.CompareAndSetAssignment(s.ctx, eng.ID, nil, &ada.ID))
	s.ErrorIs(s.store.CompareAndSetAssignment(s.ctx, eng.ID, nil, &bea.ID), sentinel.ErrConflict)
	s.Require().NoError(s.store.CompareAndSetAssignment(s.ctx, eng.ID, &ada.ID, nil))

	got, err := s.store.FindDepartment(s.ctx, eng.ID)
	s.Require().NoError(err)
	s.Nil(got.AssignedManagerID)
	s.Equal(testutil.FixedNow, got.UpdatedAt.UTC())

	s.ErrorIs(s.store.CompareAndSetAssignment(s.ctx, id.NewDepartmentID(), nil, &ada.ID), sentinel.ErrNotFound)
}

// TestConcurrentCompareAndSet verifies that exactly one writer wins when many
// race from the same observed value.
func (s *PostgresStoreSuite) TestConcurrentCompareAndSet() {
	eng := s.department("Engineering", "ENG", directory.StatusActive)
	const writers = 20
	managers := make([]*directory.User, writers)
	for i := range managers {
		managers[i] = s.user("mgr"+string(rune('a'+i)), directory.RoleManager, directory.StatusActive, eng)
	}

	var wg sync.WaitGroup
	var won, lost atomic.Int32
	for _, m := range managers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			switch err := s.store.CompareAndSetAssignment(s.ctx, eng.ID, nil, &m.ID); err {
			case nil:
				won.Add(1)
			case sentinel.ErrConflict:
				lost.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), won.Load())
	s.Equal(int32(writers-1), lost.Load())
}

func (s *PostgresStoreSuite) TestListsSkipInactiveRows() {
	s.department("Operations", "OPS", directory.StatusActive)
	s.department("Archive", "ARC", directory.StatusInactive)
	s.department("Engineering", "ENG", directory.StatusActive)
	s.user("root", directory.RoleAdmin, directory.StatusActive, nil)
	s.user("gone", directory.RoleAdmin, directory.StatusInactive, nil)

	depts, err := s.store.ListActiveDepartments(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(depts, 2)
	s.Equal("Engineering", depts[0].Name)
	s.Equal("Operations", depts[1].Name)

	admins, err := s.store.ListActiveByRole(s.ctx, directory.RoleAdmin)
	s.Require().NoError(err)
	s.Require().Len(admins, 1)
	s.Equal("root", admins[0].Name)

	_, err = s.store.FindDepartment(s.ctx, id.NewDepartmentID())
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindUser(s.ctx, id.NewUserID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}
