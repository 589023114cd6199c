package alert

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository manages alert persistence
type Repository interface {
	Create(ctx context.Context, a *Alert) error
	ListByGroup(ctx context.Context, groupID uuid.UUID, limit, offset int) ([]*Alert, error)
	MarkRead(ctx context.Context, id uuid.UUID) error

	// ExistsSince reports whether an alert of the given type already exists
	// for the (group, member) pair created at or after since. The overdue
	// sweep uses this with the start of the current day to emit at most one
	// warning per member per day.
	ExistsSince(ctx context.Context, groupID uuid.UUID, userID *uuid.UUID, alertType Type, since time.Time) (bool, error)
}

// ErrAlertNotFound indicates missing alert
type ErrAlertNotFound struct {
	AlertID uuid.UUID
}

func (e ErrAlertNotFound) Error() string {
	return "alert not found: " + e.AlertID.String()
}

// Is implements the errors.Is interface for ErrAlertNotFound
func (e ErrAlertNotFound) Is(target error) bool {
	t, ok := target.(ErrAlertNotFound)
	if !ok {
		return false
	}
	if t.AlertID == uuid.Nil {
		return true
	}
	return e.AlertID == t.AlertID
}
