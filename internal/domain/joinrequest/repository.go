package joinrequest

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines join request persistence operations
type Repository interface {
	Create(ctx context.Context, r *Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)
	ListPendingByGroup(ctx context.Context, groupID uuid.UUID) ([]*Request, error)
	GetPendingByGroupAndUser(ctx context.Context, groupID, userID uuid.UUID) (*Request, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	WithTx(tx pgx.Tx) Repository
}

// ErrRequestNotFound indicates missing join request
type ErrRequestNotFound struct {
	RequestID uuid.UUID
}

func (e ErrRequestNotFound) Error() string {
	return "join request not found: " + e.RequestID.String()
}

// Is implements the errors.Is interface for ErrRequestNotFound
func (e ErrRequestNotFound) Is(target error) bool {
	t, ok := target.(ErrRequestNotFound)
	if !ok {
		return false
	}
	if t.RequestID == uuid.Nil {
		return true
	}
	return e.RequestID == t.RequestID
}
