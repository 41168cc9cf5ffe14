package notification

import (
	"encoding/json"
	"fmt"

	id "procura/pkg/domain"
)

// Payload is the typed body carried by a notification. Each Type has exactly
// one payload shape; switch on the concrete type to consume it.
type Payload interface {
	Type() Type
}

// Scenario explains why an assignment decision needs a human.
type Scenario string

const (
	ScenarioNoManagers       Scenario = "NO_MANAGERS"
	ScenarioMultipleManagers Scenario = "MULTIPLE_MANAGERS"
)

// ManagerSummary identifies a candidate manager in an assignment request.
type ManagerSummary struct {
	ID    id.UserID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

type ManagerAssignmentPayload struct {
	DepartmentID      id.DepartmentID  `json:"departmentId"`
	DepartmentName    string           `json:"departmentName"`
	DepartmentCode    string           `json:"departmentCode"`
	Scenario          Scenario         `json:"scenario"`
	AvailableManagers []ManagerSummary `json:"availableManagers"`
}

func (ManagerAssignmentPayload) Type() Type { return TypeManagerAssignment }

type RequestStatusPayload struct {
	RequestID    string `json:"requestId"`
	RequestTitle string `json:"requestTitle"`
	OldStatus    string `json:"oldStatus"`
	NewStatus    string `json:"newStatus"`
	ApproverName string `json:"approverName,omitempty"`
	Comments     string `json:"comments,omitempty"`
}

func (RequestStatusPayload) Type() Type { return TypeRequestStatusChange }

type EmployeeAssignmentPayload struct {
	EmployeeID     id.UserID       `json:"employeeId"`
	EmployeeName   string          `json:"employeeName"`
	EmployeeEmail  string          `json:"employeeEmail"`
	DepartmentID   id.DepartmentID `json:"departmentId"`
	DepartmentName string          `json:"departmentName"`
}

func (EmployeeAssignmentPayload) Type() Type { return TypeEmployeeAssignment }

type PurchaseOrderPayload struct {
	OrderID      string `json:"orderId"`
	OrderNumber  string `json:"orderNumber"`
	Status       string `json:"status"`
	SupplierName string `json:"supplierName,omitempty"`
}

func (PurchaseOrderPayload) Type() Type { return TypePurchaseOrderUpdate }

type SystemAlertPayload struct {
	AlertKind    string `json:"alertKind"`
	ItemName     string `json:"itemName,omitempty"`
	CurrentStock int    `json:"currentStock,omitempty"`
	MinimumStock int    `json:"minimumStock,omitempty"`
}

func (SystemAlertPayload) Type() Type { return TypeSystemAlert }

// EncodePayload serializes a payload for storage. A nil payload encodes as
// JSON null.
func EncodePayload(p Payload) ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}
	return json.Marshal(p)
}

// DecodePayload restores the payload for a notification type.
func DecodePayload(t Type, raw []byte) (Payload, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var p Payload
	switch t {
	case TypeManagerAssignment:
		var v ManagerAssignmentPayload
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", t, err)
		}
		p = v
	case TypeRequestStatusChange:
		var v RequestStatusPayload
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", t, err)
		}
		p = v
	case TypeEmployeeAssignment:
		var v EmployeeAssignmentPayload
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", t, err)
		}
		p = v
	case TypePurchaseOrderUpdate:
		var v PurchaseOrderPayload
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", t, err)
		}
		p = v
	case TypeSystemAlert:
		var v SystemAlertPayload
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", t, err)
		}
		p = v
	default:
		return nil, fmt.Errorf("decode payload: unknown notification type %q", t)
	}
	return p, nil
}
