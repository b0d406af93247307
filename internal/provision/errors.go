package provision

import (
	"errors"
	"fmt"
)

// ErrIdentityMismatch is reported when the identity provider creates the
// account under an id other than the customer id it was given.
var ErrIdentityMismatch = errors.New("identity provider assigned a different id")

// CollaboratorError reports the external call that stopped a provisioning
// run. By the time it is returned, everything committed before it has been
// compensated. It carries only the original failure.
type CollaboratorError struct {
	Step StepKind
	Op   string
	Err  error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// Kind classifies the error for the transport layer.
func (e *CollaboratorError) Kind() string { return "collaborator" }

// NotificationError reports that the account exists but its credentials
// email was not delivered.
type NotificationError struct {
	Op  string
	Err error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("credentials not sent: failed to %s: %v", e.Op, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

// Kind classifies the error for the transport layer.
func (e *NotificationError) Kind() string { return "notification" }
