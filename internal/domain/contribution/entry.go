package contribution

import (
	"fmt"
	"time"

	"github.com/esusu-circle-engine/internal/domain/shared"
	"github.com/google/uuid"
)

// Method defines how money entered or left the pool
type Method string

const (
	MethodTransfer Method = "transfer"
	MethodCard     Method = "card"
	MethodPayout   Method = "payout"
)

// Status defines ledger entry states. Only successful entries count toward
// balances and compliance.
type Status string

const (
	StatusSuccessful Status = "successful"
	StatusPending    Status = "pending"
	StatusFailed     Status = "failed"
)

// Entry is one immutable record in a group's append-only ledger. Positive
// amounts are contribution inflows; payouts carry a negative amount.
// Corrections are new entries, never edits. Amounts are minor units (kobo).
type Entry struct {
	ID        uuid.UUID `json:"id" bson:"entry_id"`
	GroupID   uuid.UUID `json:"group_id" bson:"group_id"`
	UserID    uuid.UUID `json:"user_id" bson:"user_id"`
	Amount    int64     `json:"amount" bson:"amount"`
	Method    Method    `json:"method" bson:"method"`
	Status    Status    `json:"status" bson:"status"`
	Reference string    `json:"reference,omitempty" bson:"reference,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"` // Authoritative for windowing
}

// NewContribution builds a successful inflow entry
func NewContribution(groupID, userID uuid.UUID, amount int64, method Method, reference string) (*Entry, error) {
	if amount <= 0 {
		return nil, shared.ValidationError{Field: "amount", Reason: "contribution must be positive"}
	}
	if method == MethodPayout {
		return nil, shared.ValidationError{Field: "method", Reason: "payout entries are appended by the engine"}
	}
	return &Entry{
		ID:        uuid.New(),
		GroupID:   groupID,
		UserID:    userID,
		Amount:    amount,
		Method:    method,
		Status:    StatusSuccessful,
		Reference: reference,
		CreatedAt: time.Now(),
	}, nil
}

// NewPayout builds the outflow entry for one executed payout. The reference
// is deterministic per (group, cycle): the ledger's uniqueness guarantee on
// references makes a raced or replayed append fail as a duplicate instead of
// double-paying the cycle.
func NewPayout(groupID, recipientID uuid.UUID, payoutAmount int64, cycle int) (*Entry, error) {
	if payoutAmount <= 0 {
		return nil, shared.ValidationError{Field: "amount", Reason: "payout amount must be positive"}
	}
	if cycle < 1 {
		return nil, shared.ValidationError{Field: "cycle", Reason: "cycle numbers are 1-based"}
	}
	return &Entry{
		ID:        uuid.New(),
		GroupID:   groupID,
		UserID:    recipientID,
		Amount:    -payoutAmount,
		Method:    MethodPayout,
		Status:    StatusSuccessful,
		Reference: PayoutReference(groupID, cycle),
		CreatedAt: time.Now(),
	}, nil
}

// PayoutReference is the dedup key for the automatic payout of one cycle
func PayoutReference(groupID uuid.UUID, cycle int) string {
	return fmt.Sprintf("AUTO-PAYOUT-%s-%d", groupID.String(), cycle)
}
