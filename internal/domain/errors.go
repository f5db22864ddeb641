package domain

import "fmt"

// ValidationError reports bad user input or a malformed import. The
// operation that produced it aborts with no partial state change.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NotFoundError reports that an update or delete target does not exist
// in the local store.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("event %s not found", e.ID)
}

// RemoteError reports a failed remote-store operation. It is a warning,
// never a reason to roll back the already-committed local mutation.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s failed: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}
