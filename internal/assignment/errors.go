package assignment

import dErrors "procura/pkg/domain-errors"

var (
	// ErrDepartmentNotFound is returned when a department id does not resolve.
	ErrDepartmentNotFound = dErrors.New(dErrors.CodeNotFound, "department not found")
	// ErrInvalidManager is returned when a manual assignment names a user who
	// is not an ACTIVE MANAGER.
	ErrInvalidManager = dErrors.New(dErrors.CodeValidation, "invalid manager selected")
	// ErrAssignmentContention is returned when the department kept changing
	// underneath every compare-and-set attempt.
	ErrAssignmentContention = dErrors.New(dErrors.CodeConflict, "department assignment changed concurrently")
)
