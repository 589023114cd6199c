package contribution

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Filter narrows ledger queries and aggregations. Zero values mean
// "no constraint" except Statuses, which callers should normally set to
// successful-only for anything feeding balances or compliance.
type Filter struct {
	GroupID        uuid.UUID
	UserID         *uuid.UUID
	Methods        []Method
	ExcludeMethods []Method
	Statuses       []Status
	From           *time.Time
	To             *time.Time
}

// Repository manages the append-only ledger. Entries are never updated or
// deleted through this interface.
type Repository interface {
	// Append stores a new entry. When a reference is present, a second entry
	// with the same reference fails with ErrDuplicateReference and leaves the
	// existing entry untouched.
	Append(ctx context.Context, entry *Entry) error

	GetByReference(ctx context.Context, reference string) (*Entry, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Entry, error)

	// SumAmount totals the amounts of entries matching the filter.
	// An empty match sums to zero, never an error.
	SumAmount(ctx context.Context, filter Filter) (int64, error)

	// Count counts the entries matching the filter
	Count(ctx context.Context, filter Filter) (int64, error)
}

// ErrDuplicateReference indicates reference uniqueness violation
type ErrDuplicateReference struct {
	Reference string
}

func (e ErrDuplicateReference) Error() string {
	return "ledger entry already exists for reference: " + e.Reference
}

// Is implements the errors.Is interface for ErrDuplicateReference
func (e ErrDuplicateReference) Is(target error) bool {
	t, ok := target.(ErrDuplicateReference)
	if !ok {
		return false
	}
	if t.Reference == "" {
		return true
	}
	return e.Reference == t.Reference
}

// ErrEntryNotFound indicates missing ledger entry
type ErrEntryNotFound struct {
	Reference string
}

func (e ErrEntryNotFound) Error() string {
	return "ledger entry not found: " + e.Reference
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	if t.Reference == "" {
		return true
	}
	return e.Reference == t.Reference
}
