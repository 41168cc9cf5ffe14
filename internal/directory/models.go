// Package directory models the departments and users the assignment engine
// reasons about. It owns the Department.AssignedManagerID field's storage but
// not its policy: all writes go through the assignment service.
package directory

import (
	"fmt"
	"time"

	id "procura/pkg/domain"
	dErrors "procura/pkg/domain-errors"
)

// Role is a closed set of user roles.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleManager  Role = "MANAGER"
	RoleEmployee Role = "EMPLOYEE"
)

// ParseRole constructs a Role from external input.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleAdmin, RoleManager, RoleEmployee:
		return r, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown role %q", s))
}

func (r Role) String() string { return string(r) }

// Status is a closed set of user and department lifecycle states.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// ParseStatus constructs a Status from external input.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusActive, StatusInactive:
		return st, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown status %q", s))
}

func (s Status) String() string { return string(s) }

// User is a directory entry.
//
// DepartmentID is the home department (membership). ManagedDepartments lists
// departments whose AssignedManagerID references this user; it can include
// departments other than the home one after a manual override.
type User struct {
	ID                 id.UserID
	Name               string
	Email              string
	Role               Role
	Status             Status
	DepartmentID       *id.DepartmentID
	ManagedDepartments []id.DepartmentID
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (u *User) IsActive() bool { return u.Status == StatusActive }

// IsEligibleManager reports whether the user may be assigned to manage a
// department: an ACTIVE user with role MANAGER.
func (u *User) IsEligibleManager() bool {
	return u != nil && u.Role == RoleManager && u.Status == StatusActive
}

// BelongsTo reports department membership.
func (u *User) BelongsTo(deptID id.DepartmentID) bool {
	return u.DepartmentID != nil && *u.DepartmentID == deptID
}

// DisplayName prefers the user's name and falls back to the email address.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// Department is the aggregate the assignment engine mutates.
//
// Invariant: AssignedManagerID is nil, or references an ACTIVE MANAGER who is
// a member of the department or was manually assigned to it.
type Department struct {
	ID                id.DepartmentID
	Name              string
	Code              string
	Status            Status
	AssignedManagerID *id.UserID
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (d *Department) IsActive() bool { return d.Status == StatusActive }

// HasAssignment reports whether a manager is currently assigned.
func (d *Department) HasAssignment() bool { return d.AssignedManagerID != nil }

// IsAssignedTo reports whether the given user is the assigned manager.
func (d *Department) IsAssignedTo(userID id.UserID) bool {
	return d.AssignedManagerID != nil && *d.AssignedManagerID == userID
}

// SameAssignment compares two optional manager references.
func SameAssignment(a, b *id.UserID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
