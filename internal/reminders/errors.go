package reminders

import "errors"

var (
	// ErrAmbiguous rejects parse results carrying neither or both of an
	// absolute time and a recurrence rule.
	ErrAmbiguous = errors.New("ambiguous reminder: need exactly one of time or recurrence")

	// ErrDuplicate rejects a create when an identical active reminder
	// already exists for the chat.
	ErrDuplicate = errors.New("identical active reminder already exists")

	// ErrNotFound reports an edit or delete whose target is not owned
	// by the chat or is already inactive. Zero rows affected, not a
	// storage failure.
	ErrNotFound = errors.New("reminder not found or not owned by chat")
)
