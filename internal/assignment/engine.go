// Package assignment decides who manages each department and applies that
// decision. Decide is a pure function of a roster snapshot; Service gathers
// the snapshot, serializes evaluations per department, writes assignments
// through a compare-and-set, raises decision requests, and audits every
// automatic action.
package assignment

import (
	"procura/internal/directory"
	"procura/internal/notification"
	id "procura/pkg/domain"
)

// Action is the outcome class of one evaluation.
type Action string

const (
	ActionAutoAssign           Action = "AUTO_ASSIGN"
	ActionClearAssignment      Action = "CLEAR_ASSIGNMENT"
	ActionRequestHumanDecision Action = "REQUEST_HUMAN_DECISION"
	ActionNoAction             Action = "NO_ACTION"
)

// Snapshot is everything Decide looks at.
type Snapshot struct {
	Department *directory.Department
	// Roster holds the ACTIVE managers whose home department is Department.
	Roster []*directory.User
	// Assignee is the user AssignedManagerID resolves to, or nil when the
	// department is unassigned or the reference no longer resolves.
	Assignee *directory.User
	// AssigneeLeft marks an assignee who has just left the department's
	// roster (transfer or removal); their assignment no longer counts as a
	// manual override.
	AssigneeLeft bool
	// RequestPending is true when an UNREAD assignment request exists.
	RequestPending bool
}

func (s Snapshot) assigneeValid() bool {
	return s.Assignee.IsEligibleManager() && !s.AssigneeLeft
}

// Decision is what the service should do.
//
// ClearAssignment may accompany ActionRequestHumanDecision: the stale
// assignment is cleared first and the request raised afterwards.
type Decision struct {
	Action          Action
	Scenario        notification.Scenario
	ManagerID       *id.UserID
	ClearAssignment bool
	Reason          string
}

// Writes reports whether applying the decision mutates the department.
func (d Decision) Writes() bool {
	return d.Action == ActionAutoAssign || d.ClearAssignment
}

// Decide maps a snapshot to a decision. It performs no I/O and returns the
// same decision for the same snapshot.
//
//	roster 0   clear any assignment, then request NO_MANAGERS
//	roster 1   assign the manager when unassigned or when the assignee is no
//	           longer an eligible manager; keep a valid manual override
//	roster 2+  request MULTIPLE_MANAGERS, clearing an ineligible assignee
//
// A request is never raised while one is already pending.
func Decide(s Snapshot) Decision {
	d := s.Department
	switch len(s.Roster) {
	case 0:
		return requestOrClear(s, notification.ScenarioNoManagers, d.HasAssignment(),
			"no active managers in department")

	case 1:
		only := s.Roster[0]
		switch {
		case !d.HasAssignment():
			return autoAssign(only, "single active manager")
		case d.IsAssignedTo(only.ID):
			return Decision{Action: ActionNoAction, Reason: "already assigned to the only manager"}
		case s.assigneeValid():
			return Decision{Action: ActionNoAction, Reason: "manual assignment still valid"}
		default:
			return autoAssign(only, "assigned manager no longer eligible")
		}

	default:
		stale := d.HasAssignment() && !s.assigneeValid()
		return requestOrClear(s, notification.ScenarioMultipleManagers, stale,
			"multiple active managers in department")
	}
}

func autoAssign(u *directory.User, reason string) Decision {
	managerID := u.ID
	return Decision{Action: ActionAutoAssign, ManagerID: &managerID, Reason: reason}
}

func requestOrClear(s Snapshot, scenario notification.Scenario, clear bool, reason string) Decision {
	if s.RequestPending {
		if clear {
			return Decision{Action: ActionClearAssignment, ClearAssignment: true, Reason: reason + "; request already pending"}
		}
		return Decision{Action: ActionNoAction, Reason: "assignment request already pending"}
	}
	return Decision{
		Action:          ActionRequestHumanDecision,
		Scenario:        scenario,
		ClearAssignment: clear,
		Reason:          reason,
	}
}
