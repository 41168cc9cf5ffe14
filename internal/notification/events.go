package notification

import (
	"fmt"
	"time"

	"procura/internal/directory"
	id "procura/pkg/domain"
)

// Event is a domain occurrence that produces exactly one notification. The
// set of events is closed; each kind carries a fixed priority and template.
type Event interface {
	build(now time.Time) *Notification
}

func newNotification(t Type, cat Category, prio Priority, target Target, now time.Time) *Notification {
	return &Notification{
		ID:        id.NewNotificationID(),
		Type:      t,
		Priority:  prio,
		Status:    StatusUnread,
		Category:  cat,
		Target:    target,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AssignmentRequested asks administrators to resolve a department's manager.
type AssignmentRequested struct {
	Department        *directory.Department
	Scenario          Scenario
	AvailableManagers []ManagerSummary
}

func (e AssignmentRequested) build(now time.Time) *Notification {
	d := e.Department
	n := newNotification(TypeManagerAssignment, CategoryManagerAssignment, PriorityHigh,
		ForRole(directory.RoleAdmin), now)
	deptID := d.ID
	n.DepartmentRef = &deptID
	n.ActionURL = "/admin/departments/" + d.ID.String()
	n.ActionLabel = "Assign Manager"
	n.Payload = ManagerAssignmentPayload{
		DepartmentID:      d.ID,
		DepartmentName:    d.Name,
		DepartmentCode:    d.Code,
		Scenario:          e.Scenario,
		AvailableManagers: e.AvailableManagers,
	}

	switch {
	case e.Scenario == ScenarioNoManagers:
		n.Title = fmt.Sprintf("No Manager Available for %s", d.Name)
		n.Message = fmt.Sprintf("Department %q has no managers. Please create a new manager or reassign an existing manager from another department.", d.Name)
	case d.HasAssignment():
		n.Title = fmt.Sprintf("Multiple Managers Available for %s", d.Name)
		n.Message = fmt.Sprintf("Department %q has %d active managers but only one is assigned as primary. Please review and reassign if needed.", d.Name, len(e.AvailableManagers))
	default:
		n.Title = fmt.Sprintf("Multiple Managers Available for %s", d.Name)
		n.Message = fmt.Sprintf("Department %q has %d managers. Please select which manager should be assigned to this department.", d.Name, len(e.AvailableManagers))
	}
	return n
}

// RequestStatusChanged tells a requester their procurement request moved.
type RequestStatusChanged struct {
	RequestID    string
	RequestTitle string
	RequesterID  id.UserID
	OldStatus    string
	NewStatus    string
	ApproverName string
	Comments     string
}

func (e RequestStatusChanged) build(now time.Time) *Notification {
	by := ""
	if e.ApproverName != "" {
		by = " by " + e.ApproverName
	}
	note := func(label string) string {
		if e.Comments == "" {
			return ""
		}
		return fmt.Sprintf(" %s: %s", label, e.Comments)
	}

	var (
		title, message string
		prio           = PriorityMedium
	)
	switch e.NewStatus {
	case "APPROVED":
		title = "Request Approved: " + e.RequestTitle
		message = fmt.Sprintf("Your request %q has been approved%s.%s", e.RequestTitle, by, note("Comments"))
		prio = PriorityHigh
	case "REJECTED":
		title = "Request Rejected: " + e.RequestTitle
		message = fmt.Sprintf("Your request %q has been rejected%s.%s", e.RequestTitle, by, note("Reason"))
		prio = PriorityHigh
	case "IN_PROGRESS":
		title = "Request In Progress: " + e.RequestTitle
		message = fmt.Sprintf("Your request %q is now being processed%s.%s", e.RequestTitle, by, note("Comments"))
	case "COMPLETED":
		title = "Request Completed: " + e.RequestTitle
		message = fmt.Sprintf("Your request %q has been completed and is ready for delivery.", e.RequestTitle)
		prio = PriorityHigh
	case "CANCELLED":
		title = "Request Cancelled: " + e.RequestTitle
		message = fmt.Sprintf("Your request %q has been cancelled.%s", e.RequestTitle, note("Reason"))
	default:
		title = "Request Status Updated: " + e.RequestTitle
		message = fmt.Sprintf("Your request %q status has been updated to %s.%s", e.RequestTitle, e.NewStatus, note("Comments"))
	}

	n := newNotification(TypeRequestStatusChange, CategoryRequestUpdate, prio, ForUser(e.RequesterID), now)
	n.Title = title
	n.Message = message
	n.ActionURL = "/requests/" + e.RequestID
	n.ActionLabel = "View Request"
	n.Payload = RequestStatusPayload{
		RequestID:    e.RequestID,
		RequestTitle: e.RequestTitle,
		OldStatus:    e.OldStatus,
		NewStatus:    e.NewStatus,
		ApproverName: e.ApproverName,
		Comments:     e.Comments,
	}
	return n
}

// EmployeeAssigned tells a manager an employee joined their department.
type EmployeeAssigned struct {
	ManagerID      id.UserID
	EmployeeID     id.UserID
	EmployeeName   string
	EmployeeEmail  string
	DepartmentID   id.DepartmentID
	DepartmentName string
}

func (e EmployeeAssigned) build(now time.Time) *Notification {
	n := newNotification(TypeEmployeeAssignment, CategoryEmployeeManagement, PriorityMedium, ForUser(e.ManagerID), now)
	n.Title = "New Employee Assigned: " + e.EmployeeName
	n.Message = fmt.Sprintf("%s (%s) has been assigned to your department %q on %s.",
		e.EmployeeName, e.EmployeeEmail, e.DepartmentName, now.Format("2006-01-02"))
	n.ActionURL = "/admin/users/" + e.EmployeeID.String()
	n.ActionLabel = "View Employee"
	n.Payload = EmployeeAssignmentPayload{
		EmployeeID:     e.EmployeeID,
		EmployeeName:   e.EmployeeName,
		EmployeeEmail:  e.EmployeeEmail,
		DepartmentID:   e.DepartmentID,
		DepartmentName: e.DepartmentName,
	}
	return n
}

// PurchaseOrderUpdated tells the order's creator about a status change.
type PurchaseOrderUpdated struct {
	OrderID      string
	OrderNumber  string
	Status       string
	SupplierName string
	CreatedByID  id.UserID
}

func (e PurchaseOrderUpdated) build(now time.Time) *Notification {
	var (
		title, message string
		prio           = PriorityMedium
	)
	switch e.Status {
	case "SENT":
		title = "Purchase Order Sent: " + e.OrderNumber
		to := ""
		if e.SupplierName != "" {
			to = " to " + e.SupplierName
		}
		message = fmt.Sprintf("Purchase order %s%s has been sent successfully.", e.OrderNumber, to)
	case "RECEIVED":
		title = "Purchase Order Received: " + e.OrderNumber
		from := ""
		if e.SupplierName != "" {
			from = " from " + e.SupplierName
		}
		message = fmt.Sprintf("Purchase order %s%s has been received and processed.", e.OrderNumber, from)
		prio = PriorityHigh
	case "CANCELLED":
		title = "Purchase Order Cancelled: " + e.OrderNumber
		message = fmt.Sprintf("Purchase order %s has been cancelled.", e.OrderNumber)
	default:
		title = "Purchase Order Updated: " + e.OrderNumber
		message = fmt.Sprintf("Purchase order %s status has been updated to %s.", e.OrderNumber, e.Status)
	}

	n := newNotification(TypePurchaseOrderUpdate, CategoryPurchaseOrder, prio, ForUser(e.CreatedByID), now)
	n.Title = title
	n.Message = message
	n.ActionURL = "/orders/" + e.OrderID
	n.ActionLabel = "View Order"
	n.Payload = PurchaseOrderPayload{
		OrderID:      e.OrderID,
		OrderNumber:  e.OrderNumber,
		Status:       e.Status,
		SupplierName: e.SupplierName,
	}
	return n
}

// SystemAlert is an operator-authored alert. Exactly one of TargetUserID and
// TargetRole should be set; when neither is, administrators are targeted.
type SystemAlert struct {
	Title        string
	Message      string
	TargetUserID *id.UserID
	TargetRole   directory.Role
	ActionURL    string
	ActionLabel  string
	ExpiresAt    *time.Time
}

func (e SystemAlert) build(now time.Time) *Notification {
	target := ForRole(directory.RoleAdmin)
	switch {
	case e.TargetUserID != nil:
		target = ForUser(*e.TargetUserID)
	case e.TargetRole != "":
		target = ForRole(e.TargetRole)
	}
	n := newNotification(TypeSystemAlert, CategorySystem, PriorityHigh, target, now)
	n.Title = e.Title
	n.Message = e.Message
	n.ActionURL = e.ActionURL
	n.ActionLabel = e.ActionLabel
	n.ExpiresAt = e.ExpiresAt
	n.Payload = SystemAlertPayload{AlertKind: "SYSTEM_ALERT"}
	return n
}

// LowStock alerts administrators that an inventory item needs reordering.
type LowStock struct {
	ItemName     string
	CurrentStock int
	MinimumStock int
}

func (e LowStock) build(now time.Time) *Notification {
	n := newNotification(TypeSystemAlert, CategorySystem, PriorityHigh, ForRole(directory.RoleAdmin), now)
	n.Title = "Low Stock Alert: " + e.ItemName
	n.Message = fmt.Sprintf("Item %q is running low on stock. Current: %d, Minimum: %d. Please reorder soon.",
		e.ItemName, e.CurrentStock, e.MinimumStock)
	n.ActionURL = "/inventory"
	n.ActionLabel = "View Inventory"
	n.Payload = SystemAlertPayload{
		AlertKind:    "LOW_STOCK",
		ItemName:     e.ItemName,
		CurrentStock: e.CurrentStock,
		MinimumStock: e.MinimumStock,
	}
	return n
}
