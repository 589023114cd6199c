package joinrequest

import (
	"time"

	"github.com/esusu-circle-engine/internal/domain/shared"
	"github.com/google/uuid"
)

// Status defines join request states
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Request is a user's application for a payout slot in a group, reviewed by
// the group admin before the member is added.
type Request struct {
	ID            uuid.UUID `json:"id"`
	GroupID       uuid.UUID `json:"group_id"`
	UserID        uuid.UUID `json:"user_id"`
	FullName      string    `json:"full_name"`
	PhoneNumber   string    `json:"phone_number"`
	ChosenNumber  int       `json:"chosen_number"`
	AccountNumber string    `json:"account_number"`
	BankName      string    `json:"bank_name"`
	AccountName   string    `json:"account_name"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewRequest creates a pending join request
func NewRequest(groupID, userID uuid.UUID, fullName, phoneNumber string, chosenNumber int, accountNumber, bankName, accountName string) (*Request, error) {
	if fullName == "" {
		return nil, shared.ValidationError{Field: "full_name", Reason: "full name is required"}
	}
	if phoneNumber == "" {
		return nil, shared.ValidationError{Field: "phone_number", Reason: "phone number is required"}
	}
	if chosenNumber < 1 {
		return nil, shared.ValidationError{Field: "chosen_number", Reason: "chosen number must be positive"}
	}
	if accountNumber == "" || bankName == "" || accountName == "" {
		return nil, shared.ValidationError{Field: "bank_details", Reason: "account number, bank name and account name are required"}
	}

	now := time.Now()
	return &Request{
		ID:            uuid.New(),
		GroupID:       groupID,
		UserID:        userID,
		FullName:      fullName,
		PhoneNumber:   phoneNumber,
		ChosenNumber:  chosenNumber,
		AccountNumber: accountNumber,
		BankName:      bankName,
		AccountName:   accountName,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}
