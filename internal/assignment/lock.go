package assignment

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	id "procura/pkg/domain"
	dErrors "procura/pkg/domain-errors"
)

// numDepartmentShards spreads departments over a fixed set of semaphores so
// that evaluations of the same department serialize while unrelated
// departments proceed in parallel.
const numDepartmentShards = 128

// defaultLockTimeout bounds how long an evaluation may wait for and hold its
// shard when the caller supplied no deadline.
const defaultLockTimeout = 5 * time.Second

type departmentLocks struct {
	shards  [numDepartmentShards]*semaphore.Weighted
	timeout time.Duration
}

func newDepartmentLocks() *departmentLocks {
	l := &departmentLocks{timeout: defaultLockTimeout}
	for i := range l.shards {
		l.shards[i] = semaphore.NewWeighted(1)
	}
	return l
}

// withDepartment runs fn while holding the shard for deptID. Waiting for the
// shard honours ctx. The store-level compare-and-set remains the guard across
// processes; this lock only keeps one process from racing itself.
func (l *departmentLocks) withDepartment(ctx context.Context, deptID id.DepartmentID, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "evaluation aborted: context cancelled")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline && l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	shard := l.shards[shardFor(deptID)]
	if err := shard.Acquire(ctx, 1); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "timed out waiting for department lock")
	}
	defer shard.Release(1)

	return fn(ctx)
}

// shardFor hashes the department id with FNV-1a.
func shardFor(deptID id.DepartmentID) int {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for _, b := range deptID {
		h ^= uint32(b)
		h *= fnvPrime
	}
	return int(h % numDepartmentShards)
}
