//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"procura/internal/preferences"
	"procura/internal/preferences/store"
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
	err := s.postgres.TruncateTables(context.Background(), "notification_preferences")
	s.Require().NoError(err)
}

// TestConcurrentFirstAccess verifies that racing first reads converge on a
// single defaults row instead of failing on the primary key.
func (s *PostgresStoreSuite) TestConcurrentFirstAccess() {
	ctx := context.Background()
	userID := id.NewUserID()
	const goroutines = 30

	var wg sync.WaitGroup
	var errs atomic.Int32
	for i := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defaults := preferences.Defaults(userID, testutil.FixedNow.Add(time.Duration(i)*time.Second))
			if _, err := s.store.GetOrCreate(ctx, defaults); err != nil {
				errs.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Zero(errs.Load())

	var rows int
	err := s.postgres.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notification_preferences WHERE user_id = $1`, userID).Scan(&rows)
	s.Require().NoError(err)
	s.Equal(1, rows)
}

func (s *PostgresStoreSuite) TestUpdateAppliesOnTopOfDefaults() {
	ctx := context.Background()
	userID := id.NewUserID()
	off := false
	later := testutil.FixedNow.Add(time.Hour)

	updated, err := s.store.Update(ctx, preferences.Defaults(userID, testutil.FixedNow), func(p *preferences.Preferences) {
		preferences.Patch{EmailEnabled: &off}.Apply(p, later)
	})
	s.Require().NoError(err)
	s.False(updated.EmailEnabled)
	s.True(updated.InAppEnabled)

	got, err := s.store.GetOrCreate(ctx, preferences.Defaults(userID, later))
	s.Require().NoError(err)
	s.False(got.EmailEnabled, "existing row must win over fresh defaults")
	s.True(got.ManagerAssignments)
	s.False(got.WeeklyDigest)
	s.Equal(testutil.FixedNow, got.CreatedAt.UTC())
	s.Equal(later, got.UpdatedAt.UTC())
}

// TestConcurrentPatchesDoNotLoseWrites verifies the row lock serialises
// read-modify-write cycles on different fields.
func (s *PostgresStoreSuite) TestConcurrentPatchesDoNotLoseWrites() {
	ctx := context.Background()
	userID := id.NewUserID()
	off, on := false, true
	patches := []preferences.Patch{
		{EmailEnabled: &off},
		{SystemAlerts: &off},
		{WeeklyDigest: &on},
		{RequestStatusChanges: &off},
	}

	var wg sync.WaitGroup
	for _, patch := range patches {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Update(ctx, preferences.Defaults(userID, testutil.FixedNow), func(p *preferences.Preferences) {
				patch.Apply(p, testutil.FixedNow)
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	got, err := s.store.GetOrCreate(ctx, preferences.Defaults(userID, testutil.FixedNow))
	s.Require().NoError(err)
	s.False(got.EmailEnabled)
	s.False(got.SystemAlerts)
	s.True(got.WeeklyDigest)
	s.False(got.RequestStatusChanges)
	s.True(got.InAppEnabled)
}
