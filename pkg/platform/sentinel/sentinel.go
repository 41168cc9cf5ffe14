// Package sentinel lists the storage outcomes every store reports the same
// way. Services translate them into coded domain errors; nothing above the
// service layer should see them.
package sentinel

import "errors"

var (
	// ErrNotFound: no row for the key.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyUsed: a uniqueness guard suppressed the insert, e.g. the
	// department already has an unread assignment request.
	ErrAlreadyUsed = errors.New("already used")
	// ErrConflict: a compare-and-set lost to a concurrent writer.
	ErrConflict = errors.New("conflict")
)
