package delivery

import (
	dErrors "procura/pkg/domain-errors"
)

// Transport failures. Both are recorded on the delivery row and never
// returned to the code that raised the notification.
var (
	ErrTransportTimeout  = dErrors.New(dErrors.CodeTimeout, "email transport timed out")
	ErrTransportRejected = dErrors.New(dErrors.CodeUnavailable, "email transport rejected message")
)
