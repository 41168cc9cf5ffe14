//go:build integration

package assignment_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"procura/internal/assignment"
	"procura/internal/audit"
	auditstore "procura/internal/audit/store"
	"procura/internal/directory"
	dirstore "procura/internal/directory/store"
	"procura/internal/notification"
	notificationmocks "procura/internal/notification/mocks"
	notificationstore "procura/internal/notification/store"
	id "procura/pkg/domain"
	"procura/pkg/testutil"
	"procura/pkg/testutil/containers"
)

const replicas = 3

// ReplicaSuite runs several services over one database. Each service has its
// own in-process locks, so only the conditional writes and the pending
// request index keep them consistent.
type ReplicaSuite struct {
	suite.Suite
	postgres  *containers.PostgresContainer
	ctx       context.Context
	directory *dirstore.PostgresStore
	auditLog  *audit.Log
	services  []*assignment.Service
	admin     *directory.User
}

func TestReplicaSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ReplicaSuite))
}

func (s *ReplicaSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
}

func (s *ReplicaSuite) SetupTest() {
	s.ctx = testutil.Context(testutil.FixedNow)
	s.Require().NoError(s.postgres.TruncateTables(context.Background(),
		"audit_log_entries", "notification_deliveries", "notifications", "users", "departments"))

	ctrl := gomock.NewController(s.T())
	dispatcher := notificationmocks.NewMockDispatcher(ctrl)
	dispatcher.EXPECT().Deliver(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	db := s.postgres.DB
	s.directory = dirstore.NewPostgres(db)
	s.auditLog = audit.NewLog(auditstore.NewPostgresStore(db))
	s.services = nil
	for range replicas {
		orchestrator := notification.NewOrchestrator(notificationstore.NewPostgresStore(db), s.directory, dispatcher)
		s.services = append(s.services, assignment.NewService(s.directory, orchestrator, s.auditLog))
	}
	s.admin = s.saveUser("root", directory.RoleAdmin, nil)
}

func (s *ReplicaSuite) saveDepartment(name, code string) *directory.Department {
	d := &directory.Department{
		ID:        id.NewDepartmentID(),
		Name:      name,
		Code:      code,
		Status:    directory.StatusActive,
		CreatedAt: testutil.FixedNow,
		UpdatedAt: testutil.FixedNow,
	}
	s.Require().NoError(s.directory.SaveDepartment(s.ctx, d))
	return d
}

func (s *ReplicaSuite) saveUser(name string, role directory.Role, dept *directory.Department) *directory.User {
	u := &directory.User{
		ID:        id.NewUserID(),
		Name:      name,
		Email:     name + "@example.com",
		Role:      role,
		Status:    directory.StatusActive,
		CreatedAt: testutil.FixedNow,
		UpdatedAt: testutil.FixedNow,
	}
	if dept != nil {
		u.DepartmentID = &dept.ID
	}
	s.Require().NoError(s.directory.SaveUser(s.ctx, u))
	return u
}

// fanOut runs review on every replica several times at once.
func (s *ReplicaSuite) fanOut(deptID id.DepartmentID) (requests int32) {
	var (
		wg      sync.WaitGroup
		created atomic.Int32
	)
	for _, svc := range s.services {
		for range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				out, err := svc.RequestAssignmentReview(s.ctx, deptID)
				s.NoError(err)
				if err == nil && out.RequestCreated {
					created.Add(1)
				}
			}()
		}
	}
	wg.Wait()
	return created.Load()
}

func (s *ReplicaSuite) TestReplicasRaiseOneRequest() {
	dept := s.saveDepartment("Logistics", "LOG")
	s.saveUser("max", directory.RoleManager, dept)
	s.saveUser("moe", directory.RoleManager, dept)

	s.Equal(int32(1), s.fanOut(dept.ID))

	managers, err := s.services[0].ListAvailableManagers(s.ctx)
	s.Require().NoError(err)
	s.Len(managers, 2)

	var rows int
	err = s.postgres.DB.QueryRowContext(s.ctx,
		`SELECT COUNT(*) FROM notifications WHERE department_ref = $1 AND status = 'UNREAD'`, dept.ID).Scan(&rows)
	s.Require().NoError(err)
	s.Equal(1, rows)
}

func (s *ReplicaSuite) TestReplicasAutoAssignOnce() {
	dept := s.saveDepartment("Finance", "FIN")
	mgr := s.saveUser("mia", directory.RoleManager, dept)

	s.Zero(s.fanOut(dept.ID))

	got, err := s.directory.FindDepartment(s.ctx, dept.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got.AssignedManagerID)
	s.Equal(mgr.ID, *got.AssignedManagerID)

	entries, err := s.auditLog.List(s.ctx, audit.EntityDepartment, dept.ID.String())
	s.Require().NoError(err)
	s.Require().Len(entries, 1, "losing writers must not audit")
	s.Equal(audit.ActionManagerAutoAssigned, entries[0].Action)
}

func (s *ReplicaSuite) TestManualOverrideIsAudited() {
	dept := s.saveDepartment("Logistics", "LOG")
	lead := s.saveUser("max", directory.RoleManager, dept)
	s.saveUser("moe", directory.RoleManager, dept)

	updated, err := s.services[1].ManuallyAssignManager(s.ctx, dept.ID, lead.ID, s.admin.ID)
	s.Require().NoError(err)
	s.Equal(lead.ID, *updated.AssignedManagerID)

	summary, err := s.services[2].ProcessAllDepartments(s.ctx)
	s.Require().NoError(err)
	s.Zero(summary.AutoAssigned)
	s.Zero(summary.Errors)

	entries, err := s.auditLog.List(s.ctx, audit.EntityDepartment, dept.ID.String())
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(audit.ActionManagerManuallyAssigned, entries[0].Action)
	s.Equal(s.admin.ID.String(), entries[0].Actor)
}
