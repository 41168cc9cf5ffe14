package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"procura/internal/directory"
	id "procura/pkg/domain"
	"procura/pkg/platform/sentinel"
)

type DirectoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	dept  *directory.Department
}

func TestDirectoryStoreSuite(t *testing.T) {
	suite.Run(t, new(DirectoryStoreSuite))
}

func (s *DirectoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.dept = &directory.Department{
		ID:        id.NewDepartmentID(),
		Name:      "Finance",
		Code:      "FIN",
		Status:    directory.StatusActive,
		CreatedAt: time.Now(),
	}
	s.Require().NoError(s.store.SaveDepartment(s.ctx, s.dept))
}

func (s *DirectoryStoreSuite) newUser(name string, role directory.Role, status directory.Status, dept *id.DepartmentID) *directory.User {
	u := &directory.User{
		ID:           id.NewUserID(),
		Name:         name,
		Email:        name + "@example.com",
		Role:         role,
		Status:       status,
		DepartmentID: dept,
	}
	s.Require().NoError(s.store.SaveUser(s.ctx, u))
	return u
}

func (s *DirectoryStoreSuite) TestRoster() {
	deptID := s.dept.ID
	other := id.NewDepartmentID()

	m1 := s.newUser("alice", directory.RoleManager, directory.StatusActive, &deptID)
	s.newUser("bob", directory.RoleManager, directory.StatusInactive, &deptID)
	s.newUser("carol", directory.RoleEmployee, directory.StatusActive, &deptID)
	s.newUser("dave", directory.RoleManager, directory.StatusActive, &other)
	m2 := s.newUser("erin", directory.RoleManager, directory.StatusActive, &deptID)

	roster, err := s.store.ListRoster(s.ctx, deptID)
	s.Require().NoError(err)
	s.Require().Len(roster, 2)
	s.Equal(m1.ID, roster[0].ID)
	s.Equal(m2.ID, roster[1].ID)
}

func (s *DirectoryStoreSuite) TestCompareAndSetAssignment() {
	deptID := s.dept.ID
	manager := s.newUser("alice", directory.RoleManager, directory.StatusActive, &deptID)

	s.Run("sets when expectation matches", func() {
		s.Require().NoError(s.store.CompareAndSetAssignment(s.ctx, deptID, nil, &manager.ID))

		found, err := s.store.FindDepartment(s.ctx, deptID)
		s.Require().NoError(err)
		s.Require().NotNil(found.AssignedManagerID)
		s.Equal(manager.ID, *found.AssignedManagerID)
	})

	s.Run("rejects stale expectation", func() {
		err := s.store.CompareAndSetAssignment(s.ctx, deptID, nil, nil)
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("reports managed departments on the user", func() {
		found, err := s.store.FindUser(s.ctx, manager.ID)
		s.Require().NoError(err)
		s.Equal([]id.DepartmentID{deptID}, found.ManagedDepartments)
	})

	s.Run("unknown department", func() {
		err := s.store.CompareAndSetAssignment(s.ctx, id.NewDepartmentID(), nil, nil)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *DirectoryStoreSuite) TestReturnedValuesAreCopies() {
	deptID := s.dept.ID
	manager := s.newUser("alice", directory.RoleManager, directory.StatusActive, &deptID)

	found, err := s.store.FindDepartment(s.ctx, deptID)
	s.Require().NoError(err)
	found.AssignedManagerID = &manager.ID

	again, err := s.store.FindDepartment(s.ctx, deptID)
	s.Require().NoError(err)
	s.Nil(again.AssignedManagerID)
}
