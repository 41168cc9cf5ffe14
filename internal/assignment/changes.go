package assignment

import (
	"fmt"

	id "procura/pkg/domain"
	dErrors "procura/pkg/domain-errors"
)

// ChangeKind names a roster change that can alter a department's decision.
type ChangeKind string

const (
	ChangeManagerAdded        ChangeKind = "MANAGER_ADDED"
	ChangeManagerActivated    ChangeKind = "MANAGER_ACTIVATED"
	ChangeManagerDeactivated  ChangeKind = "MANAGER_DEACTIVATED"
	ChangeManagerRemoved      ChangeKind = "MANAGER_REMOVED"
	ChangeManagerTransferred  ChangeKind = "MANAGER_TRANSFERRED"
	ChangeDepartmentCreated   ChangeKind = "DEPARTMENT_CREATED"
	ChangeDepartmentActivated ChangeKind = "DEPARTMENT_ACTIVATED"
)

// ParseChangeKind constructs a ChangeKind from external input.
func ParseChangeKind(s string) (ChangeKind, error) {
	switch k := ChangeKind(s); k {
	case ChangeManagerAdded, ChangeManagerActivated, ChangeManagerDeactivated,
		ChangeManagerRemoved, ChangeManagerTransferred,
		ChangeDepartmentCreated, ChangeDepartmentActivated:
		return k, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown roster change %q", s))
}

// RosterChange describes what happened. DepartmentID is the department the
// change happened in; for a transfer it is the destination and
// FromDepartmentID the source. ManagerID is optional except for
// deactivations and transfers, where it widens the set of departments
// evaluated to those the manager is assigned to.
type RosterChange struct {
	Kind             ChangeKind
	DepartmentID     id.DepartmentID
	FromDepartmentID *id.DepartmentID
	ManagerID        *id.UserID
}

func (c RosterChange) validate() error {
	if _, err := ParseChangeKind(string(c.Kind)); err != nil {
		return err
	}
	if c.DepartmentID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "department id is required")
	}
	if c.Kind == ChangeManagerTransferred && (c.FromDepartmentID == nil || c.FromDepartmentID.IsNil()) {
		return dErrors.New(dErrors.CodeInvalidInput, "transfer requires a source department")
	}
	return nil
}

// affected returns the departments to evaluate, in order, without repeats.
// A transfer evaluates its source before its destination. managed lists the
// departments the changed manager is currently assigned to.
func (c RosterChange) affected(managed []id.DepartmentID) []id.DepartmentID {
	var order []id.DepartmentID
	seen := make(map[id.DepartmentID]struct{})
	add := func(d id.DepartmentID) {
		if _, ok := seen[d]; ok {
			return
		}
		seen[d] = struct{}{}
		order = append(order, d)
	}
	if c.Kind == ChangeManagerTransferred && c.FromDepartmentID != nil {
		add(*c.FromDepartmentID)
	}
	add(c.DepartmentID)
	for _, d := range managed {
		add(d)
	}
	return order
}

// widensToManaged reports whether the change can invalidate assignments held
// by the manager outside the department it happened in.
func (c RosterChange) widensToManaged() bool {
	switch c.Kind {
	case ChangeManagerDeactivated, ChangeManagerRemoved, ChangeManagerTransferred:
		return c.ManagerID != nil
	}
	return false
}
