package audit_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"procura/internal/audit"
	"procura/internal/audit/store"
)

type failingStore struct {
	store.InMemoryStore
}

func (f *failingStore) Append(context.Context, audit.Entry) error {
	return errors.New("disk full")
}

type recordingStreamer struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (r *recordingStreamer) Stream(_ context.Context, e audit.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

type LogSuite struct {
	suite.Suite
	store *store.InMemoryStore
	log   *audit.Log
}

func TestLogSuite(t *testing.T) {
	suite.Run(t, new(LogSuite))
}

func (s *LogSuite) SetupTest() {
	s.store = store.NewInMemoryStore()
	s.log = audit.NewLog(s.store)
}

func (s *LogSuite) TestAppend() {
	ctx := context.Background()

	s.Run("records entry with actor and detail", func() {
		s.log.Append(ctx, audit.ActionManagerAutoAssigned, audit.EntityDepartment, "dept-1", "system", "assigned u-1")

		entries, err := s.log.List(ctx, audit.EntityDepartment, "dept-1")
		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		s.Equal(audit.ActionManagerAutoAssigned, entries[0].Action)
		s.Equal("system", entries[0].Actor)
		s.Equal("assigned u-1", entries[0].Detail)
		s.False(entries[0].ID.IsNil())
		s.False(entries[0].CreatedAt.IsZero())
	})

	s.Run("trail is scoped to entity", func() {
		s.log.Append(ctx, audit.ActionManagerManuallyAssigned, audit.EntityDepartment, "dept-2", "admin-1", "")

		entries, err := s.log.List(ctx, audit.EntityDepartment, "dept-2")
		s.Require().NoError(err)
		s.Len(entries, 1)
	})
}

func (s *LogSuite) TestAppendFailureIsSwallowed() {
	log := audit.NewLog(&failingStore{})
	assert.NotPanics(s.T(), func() {
		log.Append(context.Background(), audit.ActionManagerAssignmentClear, audit.EntityDepartment, "dept-1", "system", "")
	})
}

func TestLogStreamsPersistedEntries(t *testing.T) {
	streamer := &recordingStreamer{}
	log := audit.NewLog(store.NewInMemoryStore(), audit.WithStreamer(streamer, 4))

	log.Append(context.Background(), audit.ActionManagerAutoAssigned, audit.EntityDepartment, "dept-1", "system", "")
	log.Append(context.Background(), audit.ActionManagerAssignmentClear, audit.EntityDepartment, "dept-1", "system", "")
	log.Close()

	streamer.mu.Lock()
	defer streamer.mu.Unlock()
	require.Len(t, streamer.entries, 2)
	assert.Equal(t, audit.ActionManagerAutoAssigned, streamer.entries[0].Action)
	assert.Equal(t, audit.ActionManagerAssignmentClear, streamer.entries[1].Action)
}

func TestLogDoesNotStreamFailedWrites(t *testing.T) {
	streamer := &recordingStreamer{}
	log := audit.NewLog(&failingStore{}, audit.WithStreamer(streamer, 4))

	log.Append(context.Background(), audit.ActionManagerAutoAssigned, audit.EntityDepartment, "dept-1", "system", "")
	log.Close()

	streamer.mu.Lock()
	defer streamer.mu.Unlock()
	assert.Empty(t, streamer.entries)
}
