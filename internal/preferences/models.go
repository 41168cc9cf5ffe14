package preferences

import (
	"time"

	id "procura/pkg/domain"
)

// Preferences holds one user's channel switches and per-category opt-ins.
type Preferences struct {
	UserID               id.UserID `json:"userId"`
	EmailEnabled         bool      `json:"emailEnabled"`
	InAppEnabled         bool      `json:"inAppEnabled"`
	RequestStatusChanges bool      `json:"requestStatusChanges"`
	ManagerAssignments   bool      `json:"managerAssignments"`
	SystemAlerts         bool      `json:"systemAlerts"`
	WeeklyDigest         bool      `json:"weeklyDigest"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// Defaults enables every channel and category. The weekly digest is opt-in.
func Defaults(userID id.UserID, now time.Time) *Preferences {
	return &Preferences{
		UserID:               userID,
		EmailEnabled:         true,
		InAppEnabled:         true,
		RequestStatusChanges: true,
		ManagerAssignments:   true,
		SystemAlerts:         true,
		WeeklyDigest:         false,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	EmailEnabled         *bool `json:"emailEnabled,omitempty"`
	InAppEnabled         *bool `json:"inAppEnabled,omitempty"`
	RequestStatusChanges *bool `json:"requestStatusChanges,omitempty"`
	ManagerAssignments   *bool `json:"managerAssignments,omitempty"`
	SystemAlerts         *bool `json:"systemAlerts,omitempty"`
	WeeklyDigest         *bool `json:"weeklyDigest,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.EmailEnabled == nil && p.InAppEnabled == nil &&
		p.RequestStatusChanges == nil && p.ManagerAssignments == nil &&
		p.SystemAlerts == nil && p.WeeklyDigest == nil
}

// Apply merges the patch into prefs and stamps UpdatedAt.
func (p Patch) Apply(prefs *Preferences, now time.Time) {
	set := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	set(&prefs.EmailEnabled, p.EmailEnabled)
	set(&prefs.InAppEnabled, p.InAppEnabled)
	set(&prefs.RequestStatusChanges, p.RequestStatusChanges)
	set(&prefs.ManagerAssignments, p.ManagerAssignments)
	set(&prefs.SystemAlerts, p.SystemAlerts)
	set(&prefs.WeeklyDigest, p.WeeklyDigest)
	prefs.UpdatedAt = now
}
