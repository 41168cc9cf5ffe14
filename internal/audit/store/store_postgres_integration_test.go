//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"procura/internal/audit"
	"procura/internal/audit/store"
	id "procura/pkg/domain"
	"procura/pkg/testutil"
	"procura/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
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
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "audit_log_entries")
	s.Require().NoError(err)
}

func entry(deptID id.DepartmentID, action audit.Action, at time.Time) audit.Entry {
	return audit.Entry{
		ID:         id.NewAuditEntryID(),
		Action:     action,
		EntityType: audit.EntityDepartment,
		EntityID:   deptID.String(),
		Actor:      id.SystemActor,
		Detail:     "Manager Ada automatically assigned to department Engineering",
		CreatedAt:  at,
	}
}

func (s *PostgresStoreSuite) TestListByEntityIsChronological() {
	ctx := context.Background()
	deptID := id.NewDepartmentID()
	second := entry(deptID, audit.ActionManagerAssignmentClear, testutil.FixedNow.Add(time.Minute))
	first := entry(deptID, audit.ActionManagerAutoAssigned, testutil.FixedNow)
	s.Require().NoError(s.store.Append(ctx, second))
	s.Require().NoError(s.store.Append(ctx, first))
	s.Require().NoError(s.store.Append(ctx, entry(id.NewDepartmentID(), audit.ActionManagerAutoAssigned, testutil.FixedNow)))

	got, err := s.store.ListByEntity(ctx, audit.EntityDepartment, deptID.String())
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(first.ID, got[0].ID)
	s.Equal(second.ID, got[1].ID)
	s.Equal(audit.ActionManagerAssignmentClear, got[1].Action)

	recent, err := s.store.ListRecent(ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(recent, 1)
	s.Equal(second.ID, recent[0].ID)
}

func (s *PostgresStoreSuite) TestEntriesCannotBeRewritten() {
	ctx := context.Background()
	e := entry(id.NewDepartmentID(), audit.ActionManagerAutoAssigned, testutil.FixedNow)
	s.Require().NoError(s.store.Append(ctx, e))

	_, err := s.postgres.DB.ExecContext(ctx, `UPDATE audit_log_entries SET actor = 'someone' WHERE id = $1`, e.ID)
	s.Require().Error(err)
	s.Contains(err.Error(), "append-only")

	_, err = s.postgres.DB.ExecContext(ctx, `DELETE FROM audit_log_entries WHERE id = $1`, e.ID)
	s.Require().Error(err)

	got, err := s.store.ListByEntity(ctx, e.EntityType, e.EntityID)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(id.SystemActor, got[0].Actor)
}
