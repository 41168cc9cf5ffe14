// Package domain holds identifier types shared across modules.
//
// Each entity gets its own named UUID type so that a DepartmentID can never be
// passed where a UserID is expected. Construct IDs from external input with the
// Parse* functions; they reject empty, malformed, and nil UUIDs.
package domain

import (
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"

	dErrors "procura/pkg/domain-errors"
)

type (
	UserID         uuid.UUID
	DepartmentID   uuid.UUID
	NotificationID uuid.UUID
	DeliveryID     uuid.UUID
	AuditEntryID   uuid.UUID
)

// SystemActor is the literal actor recorded for automatic actions.
const SystemActor = "system"

func parseUUID(kind, s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("invalid %s: must be a UUID", kind))
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" must not be the nil UUID")
	}
	return u, nil
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID("user id", s)
	return UserID(u), err
}

func ParseDepartmentID(s string) (DepartmentID, error) {
	u, err := parseUUID("department id", s)
	return DepartmentID(u), err
}

func ParseNotificationID(s string) (NotificationID, error) {
	u, err := parseUUID("notification id", s)
	return NotificationID(u), err
}

func ParseDeliveryID(s string) (DeliveryID, error) {
	u, err := parseUUID("delivery id", s)
	return DeliveryID(u), err
}

func NewUserID() UserID                 { return UserID(uuid.New()) }
func NewDepartmentID() DepartmentID     { return DepartmentID(uuid.New()) }
func NewNotificationID() NotificationID { return NotificationID(uuid.New()) }
func NewDeliveryID() DeliveryID         { return DeliveryID(uuid.New()) }
func NewAuditEntryID() AuditEntryID     { return AuditEntryID(uuid.New()) }

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id DepartmentID) String() string   { return uuid.UUID(id).String() }
func (id NotificationID) String() string { return uuid.UUID(id).String() }
func (id DeliveryID) String() string     { return uuid.UUID(id).String() }
func (id AuditEntryID) String() string   { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id DepartmentID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id NotificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id DeliveryID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id AuditEntryID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

// -----------------------------------------------------------------------------
// Text encoding (JSON payloads, map keys in logs)
// -----------------------------------------------------------------------------

func (id UserID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }
func (id DepartmentID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id NotificationID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}
func (id DeliveryID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id AuditEntryID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

func (id *UserID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id *DepartmentID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id *NotificationID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id *DeliveryID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id *AuditEntryID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

// -----------------------------------------------------------------------------
// database/sql integration
// -----------------------------------------------------------------------------

func (id UserID) Value() (driver.Value, error)         { return uuid.UUID(id).Value() }
func (id DepartmentID) Value() (driver.Value, error)   { return uuid.UUID(id).Value() }
func (id NotificationID) Value() (driver.Value, error) { return uuid.UUID(id).Value() }
func (id DeliveryID) Value() (driver.Value, error)     { return uuid.UUID(id).Value() }
func (id AuditEntryID) Value() (driver.Value, error)   { return uuid.UUID(id).Value() }

func (id *UserID) Scan(src any) error         { return (*uuid.UUID)(id).Scan(src) }
func (id *DepartmentID) Scan(src any) error   { return (*uuid.UUID)(id).Scan(src) }
func (id *NotificationID) Scan(src any) error { return (*uuid.UUID)(id).Scan(src) }
func (id *DeliveryID) Scan(src any) error     { return (*uuid.UUID)(id).Scan(src) }
func (id *AuditEntryID) Scan(src any) error   { return (*uuid.UUID)(id).Scan(src) }
