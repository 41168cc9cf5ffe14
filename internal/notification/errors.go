package notification

import (
	dErrors "procura/pkg/domain-errors"
)

// ErrNotificationNotFound is returned when a notification does not exist or
// is not addressed to the acting user. Both cases look the same to callers.
var ErrNotificationNotFound = dErrors.New(dErrors.CodeNotFound, "notification not found")
