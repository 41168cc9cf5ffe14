package assignment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"procura/internal/audit"
	"procura/internal/directory"
	"procura/internal/notification"
	id "procura/pkg/domain"
	dErrors "procura/pkg/domain-errors"
	"procura/pkg/platform/sentinel"
)

// maxWriteAttempts bounds re-evaluation after losing a compare-and-set.
const maxWriteAttempts = 3

// Outcome reports one department evaluation.
type Outcome struct {
	DepartmentID id.DepartmentID
	Decision     Decision
	// AssignedManagerID is the department's assignment after the evaluation.
	AssignedManagerID *id.UserID
	// Notification is the pending assignment request, when one was raised or
	// already existed.
	Notification   *notification.Notification
	RequestCreated bool
}

// BatchSummary reports a ProcessAllDepartments run. Processed counts every
// department attempted, including the ones in Failed.
type BatchSummary struct {
	Processed         int
	AutoAssigned      int
	NotificationsSent int
	Errors            int
	Failed            []id.DepartmentID
}

// DepartmentRef is a compact department reference.
type DepartmentRef struct {
	ID   id.DepartmentID
	Name string
	Code string
}

// AvailableManager is a candidate for manual assignment.
type AvailableManager struct {
	ID                 id.UserID
	Name               string
	Email              string
	CurrentDepartment  *DepartmentRef
	ManagedDepartments []DepartmentRef
}

func (m AvailableManager) IsCurrentlyManaging() bool { return len(m.ManagedDepartments) > 0 }

// Service is the single write path for Department.AssignedManagerID.
type Service struct {
	directory Directory
	notifier  Notifier
	audit     AuditLog
	locks     *departmentLocks
	logger    *slog.Logger
	metrics   *Metrics
	tracer    trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLockTimeout overrides how long one evaluation may wait for and hold
// its department when the caller set no deadline.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.locks.timeout = d
		}
	}
}

func NewService(dir Directory, notifier Notifier, auditLog AuditLog, opts ...Option) *Service {
	s := &Service{
		directory: dir,
		notifier:  notifier,
		audit:     auditLog,
		locks:     newDepartmentLocks(),
		tracer:    otel.Tracer("procura/assignment"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestAssignmentReview evaluates one department now and applies the
// resulting decision.
func (s *Service) RequestAssignmentReview(ctx context.Context, deptID id.DepartmentID) (*Outcome, error) {
	if deptID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "department id is required")
	}
	ctx, span := s.tracer.Start(ctx, "assignment.RequestAssignmentReview",
		trace.WithAttributes(attribute.String("department.id", deptID.String())))
	defer span.End()

	out, err := s.evaluate(ctx, deptID, nil)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return out, nil
}

// ProcessRosterChange evaluates every department the change can affect.
// Departments are evaluated independently; a failure in one is reported in
// the joined error and does not stop the others.
func (s *Service) ProcessRosterChange(ctx context.Context, change RosterChange) ([]*Outcome, error) {
	if err := change.validate(); err != nil {
		return nil, err
	}
	ctx, span := s.tracer.Start(ctx, "assignment.ProcessRosterChange",
		trace.WithAttributes(
			attribute.String("department.id", change.DepartmentID.String()),
			attribute.String("change.kind", string(change.Kind)),
		))
	defer span.End()

	var managed []id.DepartmentID
	if change.widensToManaged() {
		var err error
		managed, err = s.directory.ListManagedBy(ctx, *change.ManagerID)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list departments managed by changed manager")
		}
	}

	var left *id.UserID
	if change.Kind == ChangeManagerRemoved || change.Kind == ChangeManagerTransferred {
		left = change.ManagerID
	}

	var (
		outcomes []*Outcome
		errs     []error
	)
	for _, deptID := range change.affected(managed) {
		out, err := s.evaluate(ctx, deptID, left)
		if err != nil {
			errs = append(errs, fmt.Errorf("department %s: %w", deptID, err))
			continue
		}
		outcomes = append(outcomes, out)
	}
	if err := errors.Join(errs...); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return outcomes, err
	}
	return outcomes, nil
}

// ProcessAllDepartments evaluates every ACTIVE department sequentially.
// Re-running it with no intervening roster change performs no writes.
func (s *Service) ProcessAllDepartments(ctx context.Context) (BatchSummary, error) {
	ctx, span := s.tracer.Start(ctx, "assignment.ProcessAllDepartments")
	defer span.End()

	var summary BatchSummary
	departments, err := s.directory.ListActiveDepartments(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return summary, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list departments")
	}

	for _, d := range departments {
		if err := ctx.Err(); err != nil {
			return summary, dErrors.Wrap(err, dErrors.CodeTimeout, "batch aborted")
		}
		summary.Processed++
		out, err := s.evaluate(ctx, d.ID, nil)
		if err != nil {
			summary.Errors++
			summary.Failed = append(summary.Failed, d.ID)
			s.metrics.incBatchFailure()
			if s.logger != nil {
				s.logger.ErrorContext(ctx, "department evaluation failed",
					"department_id", d.ID.String(),
					"error", err,
				)
			}
			continue
		}
		if out.Decision.Action == ActionAutoAssign {
			summary.AutoAssigned++
		}
		if out.RequestCreated {
			summary.NotificationsSent++
		}
	}

	span.SetAttributes(
		attribute.Int("batch.processed", summary.Processed),
		attribute.Int("batch.errors", summary.Errors),
	)
	if s.logger != nil {
		s.logger.InfoContext(ctx, "department batch processed",
			"processed", summary.Processed,
			"auto_assigned", summary.AutoAssigned,
			"notifications_sent", summary.NotificationsSent,
			"errors", summary.Errors,
		)
	}
	return summary, nil
}

// ManuallyAssignManager writes an administrator's explicit choice, bypassing
// the decision table. Any pending assignment request is left for the
// administrator to dismiss.
func (s *Service) ManuallyAssignManager(ctx context.Context, deptID id.DepartmentID, managerID, adminID id.UserID) (*directory.Department, error) {
	if deptID.IsNil() || managerID.IsNil() || adminID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "department, manager and acting administrator are required")
	}
	ctx, span := s.tracer.Start(ctx, "assignment.ManuallyAssignManager",
		trace.WithAttributes(
			attribute.String("department.id", deptID.String()),
			attribute.String("manager.id", managerID.String()),
		))
	defer span.End()

	manager, err := s.directory.FindUser(ctx, managerID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, ErrInvalidManager
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load manager")
	}
	if !manager.IsEligibleManager() {
		return nil, ErrInvalidManager
	}

	var dept *directory.Department
	err = s.locks.withDepartment(ctx, deptID, func(ctx context.Context) error {
		for range maxWriteAttempts {
			d, err := s.loadDepartment(ctx, deptID)
			if err != nil {
				return err
			}
			next := manager.ID
			err = s.directory.CompareAndSetAssignment(ctx, deptID, d.AssignedManagerID, &next)
			if errors.Is(err, sentinel.ErrConflict) {
				s.metrics.incWriteConflict()
				continue
			}
			if err != nil {
				return translateWriteErr(err)
			}
			d.AssignedManagerID = &next
			dept = d
			return nil
		}
		return ErrAssignmentContention
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.audit.Append(ctx, audit.ActionManagerManuallyAssigned, audit.EntityDepartment, deptID.String(), adminID.String(),
		fmt.Sprintf("Manager %s manually assigned to department %s", manager.DisplayName(), dept.Name))
	if s.logger != nil {
		s.logger.InfoContext(ctx, "manager manually assigned",
			"department_id", deptID.String(),
			"manager_id", managerID.String(),
			"admin_id", adminID.String(),
		)
	}
	return dept, nil
}

// ListAvailableManagers returns every ACTIVE manager with their home
// department and the departments they currently manage.
func (s *Service) ListAvailableManagers(ctx context.Context) ([]AvailableManager, error) {
	managers, err := s.directory.ListActiveByRole(ctx, directory.RoleManager)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list managers")
	}

	refs := make(map[id.DepartmentID]*DepartmentRef)
	ref := func(deptID id.DepartmentID) (*DepartmentRef, error) {
		if r, ok := refs[deptID]; ok {
			return r, nil
		}
		d, err := s.directory.FindDepartment(ctx, deptID)
		if errors.Is(err, sentinel.ErrNotFound) {
			refs[deptID] = nil
			return nil, nil
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load department")
		}
		r := &DepartmentRef{ID: d.ID, Name: d.Name, Code: d.Code}
		refs[deptID] = r
		return r, nil
	}

	out := make([]AvailableManager, 0, len(managers))
	for _, m := range managers {
		am := AvailableManager{ID: m.ID, Name: m.Name, Email: m.Email}
		if m.DepartmentID != nil {
			if am.CurrentDepartment, err = ref(*m.DepartmentID); err != nil {
				return nil, err
			}
		}
		for _, deptID := range m.ManagedDepartments {
			r, err := ref(deptID)
			if err != nil {
				return nil, err
			}
			if r != nil {
				am.ManagedDepartments = append(am.ManagedDepartments, *r)
			}
		}
		out = append(out, am)
	}
	return out, nil
}

// evaluate serializes on the department and retries when a concurrent writer
// wins the compare-and-set. left is a manager who just left a roster.
func (s *Service) evaluate(ctx context.Context, deptID id.DepartmentID, left *id.UserID) (*Outcome, error) {
	var out *Outcome
	err := s.locks.withDepartment(ctx, deptID, func(ctx context.Context) error {
		for range maxWriteAttempts {
			o, err := s.evaluateOnce(ctx, deptID, left)
			if errors.Is(err, sentinel.ErrConflict) {
				s.metrics.incWriteConflict()
				continue
			}
			if err != nil {
				return err
			}
			out = o
			return nil
		}
		return ErrAssignmentContention
	})
	if err != nil {
		return nil, err
	}
	s.metrics.incDecision(out.Decision.Action)
	return out, nil
}

func (s *Service) evaluateOnce(ctx context.Context, deptID id.DepartmentID, left *id.UserID) (*Outcome, error) {
	snap, err := s.snapshot(ctx, deptID, left)
	if err != nil {
		return nil, err
	}
	dept := snap.Department
	if !dept.IsActive() {
		return &Outcome{
			DepartmentID:      deptID,
			Decision:          Decision{Action: ActionNoAction, Reason: "department inactive"},
			AssignedManagerID: dept.AssignedManagerID,
		}, nil
	}

	decision := Decide(snap)
	out := &Outcome{DepartmentID: deptID, Decision: decision, AssignedManagerID: dept.AssignedManagerID}

	if decision.ClearAssignment {
		if err := s.writeAssignment(ctx, dept, nil); err != nil {
			return nil, err
		}
		s.audit.Append(ctx, audit.ActionManagerAssignmentClear, audit.EntityDepartment, deptID.String(), id.SystemActor,
			clearDetail(snap, decision))
		out.AssignedManagerID = nil
	}

	switch decision.Action {
	case ActionAutoAssign:
		manager := snap.Roster[0]
		if err := s.writeAssignment(ctx, dept, decision.ManagerID); err != nil {
			return nil, err
		}
		s.audit.Append(ctx, audit.ActionManagerAutoAssigned, audit.EntityDepartment, deptID.String(), id.SystemActor,
			fmt.Sprintf("Manager %s automatically assigned to department %s", manager.DisplayName(), dept.Name))
		out.AssignedManagerID = decision.ManagerID

	case ActionRequestHumanDecision:
		ev := notification.AssignmentRequested{
			Department:        dept,
			Scenario:          decision.Scenario,
			AvailableManagers: summaries(decision.Scenario, snap.Roster),
		}
		n, created, err := s.notifier.RaiseAssignmentRequest(ctx, ev)
		if err != nil {
			return nil, err
		}
		out.Notification = n
		out.RequestCreated = created
	}

	if s.logger != nil && decision.Action != ActionNoAction {
		s.logger.InfoContext(ctx, "department evaluated",
			"department_id", deptID.String(),
			"action", string(decision.Action),
			"scenario", string(decision.Scenario),
			"reason", decision.Reason,
		)
	}
	return out, nil
}

func (s *Service) snapshot(ctx context.Context, deptID id.DepartmentID, left *id.UserID) (Snapshot, error) {
	dept, err := s.loadDepartment(ctx, deptID)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{Department: dept}
	if !dept.IsActive() {
		return snap, nil
	}

	if snap.Roster, err = s.directory.ListRoster(ctx, deptID); err != nil {
		return Snapshot{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load roster")
	}
	if dept.AssignedManagerID != nil {
		assignee, err := s.directory.FindUser(ctx, *dept.AssignedManagerID)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
		case err != nil:
			return Snapshot{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load assigned manager")
		default:
			snap.Assignee = assignee
			snap.AssigneeLeft = left != nil && assignee.ID == *left && !assignee.BelongsTo(deptID)
		}
	}
	pending, err := s.notifier.PendingAssignmentRequest(ctx, deptID)
	if err != nil {
		return Snapshot{}, err
	}
	snap.RequestPending = pending != nil
	return snap, nil
}

func (s *Service) loadDepartment(ctx context.Context, deptID id.DepartmentID) (*directory.Department, error) {
	d, err := s.directory.FindDepartment(ctx, deptID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, ErrDepartmentNotFound
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load department")
	}
	return d, nil
}

// writeAssignment moves the department from its observed assignment to next.
// A lost race surfaces as sentinel.ErrConflict so the caller re-evaluates.
func (s *Service) writeAssignment(ctx context.Context, dept *directory.Department, next *id.UserID) error {
	err := s.directory.CompareAndSetAssignment(ctx, dept.ID, dept.AssignedManagerID, next)
	if errors.Is(err, sentinel.ErrConflict) {
		return err
	}
	if err != nil {
		return translateWriteErr(err)
	}
	dept.AssignedManagerID = next
	return nil
}

func translateWriteErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return ErrDepartmentNotFound
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to write department assignment")
}

func clearDetail(snap Snapshot, decision Decision) string {
	who := "unknown manager"
	if snap.Assignee != nil {
		who = snap.Assignee.DisplayName()
	}
	return fmt.Sprintf("Manager %s cleared from department %s: %s", who, snap.Department.Name, decision.Reason)
}

// summaries lists the candidates included in the request payload. A
// NO_MANAGERS request has none.
func summaries(scenario notification.Scenario, roster []*directory.User) []notification.ManagerSummary {
	if scenario == notification.ScenarioNoManagers {
		return []notification.ManagerSummary{}
	}
	out := make([]notification.ManagerSummary, 0, len(roster))
	for _, u := range roster {
		out = append(out, notification.ManagerSummary{ID: u.ID, Name: u.Name, Email: u.Email})
	}
	return out
}
