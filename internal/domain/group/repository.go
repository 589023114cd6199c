package group

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines group persistence operations
type Repository interface {
	Create(ctx context.Context, g *Group) error
	GetByID(ctx context.Context, id uuid.UUID) (*Group, error)
	ListByStatus(ctx context.Context, statuses ...Status) ([]*Group, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Group, error)
	ListAll(ctx context.Context) ([]*Group, error)

	// UpdateStatus applies a conditional status write: the row is only updated
	// when its current status equals from. Returns ErrStaleStatus when the
	// precondition no longer holds, which keeps the lifecycle monotonic under
	// concurrent sweeps.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) error

	// AddMember atomically appends the member and removes their chosen slot
	// from the group's available numbers.
	AddMember(ctx context.Context, groupID uuid.UUID, m Member) error

	WithTx(tx pgx.Tx) Repository
}

// ErrGroupNotFound indicates missing group
type ErrGroupNotFound struct {
	GroupID uuid.UUID
}

func (e ErrGroupNotFound) Error() string {
	return "group not found: " + e.GroupID.String()
}

// Is implements the errors.Is interface for ErrGroupNotFound
func (e ErrGroupNotFound) Is(target error) bool {
	t, ok := target.(ErrGroupNotFound)
	if !ok {
		return false
	}
	if t.GroupID == uuid.Nil {
		return true
	}
	return e.GroupID == t.GroupID
}

// ErrStaleStatus indicates a conditional status update whose precondition no
// longer held: another writer already advanced the group.
type ErrStaleStatus struct {
	GroupID uuid.UUID
}

func (e ErrStaleStatus) Error() string {
	return "stale status precondition for group: " + e.GroupID.String()
}

// Is implements the errors.Is interface for ErrStaleStatus
func (e ErrStaleStatus) Is(target error) bool {
	t, ok := target.(ErrStaleStatus)
	if !ok {
		return false
	}
	if t.GroupID == uuid.Nil {
		return true
	}
	return e.GroupID == t.GroupID
}
