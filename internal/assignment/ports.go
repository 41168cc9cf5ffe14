package assignment

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"procura/internal/audit"
	"procura/internal/directory"
	"procura/internal/notification"
	id "procura/pkg/domain"
)

// Directory is the department and user store the engine reads and the one
// place it writes assignments.
type Directory interface {
	FindDepartment(ctx context.Context, deptID id.DepartmentID) (*directory.Department, error)
	ListActiveDepartments(ctx context.Context) ([]*directory.Department, error)
	FindUser(ctx context.Context, userID id.UserID) (*directory.User, error)
	ListRoster(ctx context.Context, deptID id.DepartmentID) ([]*directory.User, error)
	ListActiveByRole(ctx context.Context, role directory.Role) ([]*directory.User, error)
	ListManagedBy(ctx context.Context, userID id.UserID) ([]id.DepartmentID, error)
	CompareAndSetAssignment(ctx context.Context, deptID id.DepartmentID, expected, next *id.UserID) error
}

// Notifier raises decision requests with duplicate suppression.
type Notifier interface {
	PendingAssignmentRequest(ctx context.Context, deptID id.DepartmentID) (*notification.Notification, error)
	RaiseAssignmentRequest(ctx context.Context, ev notification.AssignmentRequested) (*notification.Notification, bool, error)
}

// AuditLog records assignment actions. Append never fails the caller.
type AuditLog interface {
	Append(ctx context.Context, action audit.Action, entityType, entityID, actor, detail string)
}
