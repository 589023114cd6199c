package service

import (
	"context"
	"errors"
	"time"

	"github.com/esusu-circle-engine/internal/domain/alert"
	"github.com/esusu-circle-engine/internal/domain/contribution"
	"github.com/esusu-circle-engine/internal/domain/group"
	"github.com/esusu-circle-engine/internal/domain/joinrequest"
	"github.com/esusu-circle-engine/internal/domain/shared"
	"github.com/esusu-circle-engine/internal/engine/compliance"
	"github.com/google/uuid"
)

// ErrNotGroupAdmin is returned when a non-admin attempts an admin-only operation
var ErrNotGroupAdmin = errors.New("only the group admin may perform this operation")

// EventPublisher pushes engine events to the event stream
type EventPublisher interface {
	Publish(ctx context.Context, event *shared.EngineEvent) error
}

// CreateGroupParams carries the fixed configuration of a new group
type CreateGroupParams struct {
	AdminID            uuid.UUID
	AdminName          string
	Name               string
	PayoutAmount       int64
	ContributionAmount int64
	StartingDate       time.Time
	PayoutInterval     int
	NumberOfMembers    int
	AdminChosenNumber  int
	PhoneNumber        string
	CorporateAccount   string
	BankName           string
	AccountName        string
}

// CycleStatus is the live view of a group's rotation: where the cycle stands,
// how much is pooled, who receives next, and who is short.
type CycleStatus struct {
	GroupID       uuid.UUID
	Status        group.Status
	CycleNumber   int
	Complete      bool
	Deadline      time.Time
	WindowStart   time.Time
	TotalPooled   int64
	NextRecipient *group.Member
	Shortfalls    []compliance.MemberShortfall
}

// GroupService defines the interface for group lifecycle operations
type GroupService interface {
	// CreateGroup creates a Pending group with the admin as its first member
	CreateGroup(ctx context.Context, params CreateGroupParams) (*group.Group, error)

	// GetGroupByID retrieves a group by its ID
	// Returns ErrGroupNotFound if the group doesn't exist
	GetGroupByID(ctx context.Context, id uuid.UUID) (*group.Group, error)

	// ListGroups retrieves every group
	ListGroups(ctx context.Context) ([]*group.Group, error)

	// ListGroupsByUser retrieves the groups the user belongs to
	ListGroupsByUser(ctx context.Context, userID uuid.UUID) ([]*group.Group, error)

	// GetCycleStatus computes the live cycle view for a group
	GetCycleStatus(ctx context.Context, groupID uuid.UUID) (*CycleStatus, error)
}

// RequestService defines the interface for join request operations
type RequestService interface {
	// Submit files a join request for a payout slot in a Pending group
	Submit(ctx context.Context, groupID, userID uuid.UUID, fullName, phoneNumber string,
		chosenNumber int, accountNumber, bankName, accountName string) (*joinrequest.Request, error)

	// ListPending retrieves the open requests for the admin's review
	ListPending(ctx context.Context, groupID, adminID uuid.UUID) ([]*joinrequest.Request, error)

	// Approve admits the requester as a member and claims their slot.
	// The membership insert and the request's status change commit atomically.
	Approve(ctx context.Context, requestID, adminID uuid.UUID) error

	// Reject closes the request without admitting the requester
	Reject(ctx context.Context, requestID, adminID uuid.UUID) error
}

// ContributionService defines the interface for ledger write and read operations
type ContributionService interface {
	// LogTransfer appends a bank-transfer contribution to the group's ledger
	LogTransfer(ctx context.Context, groupID, userID uuid.UUID, amount int64, reference string) (*contribution.Entry, error)

	// LogCard verifies a card charge with the payment gateway and, only on a
	// settled charge whose amount matches, appends the contribution
	LogCard(ctx context.Context, groupID, userID uuid.UUID, amount int64, reference string) (*contribution.Entry, error)

	// ListByGroup retrieves a paginated ledger slice plus the total entry
	// count, newest first. A non-nil userID narrows the history to one member.
	ListByGroup(ctx context.Context, groupID uuid.UUID, userID *uuid.UUID, page, perPage int) ([]*contribution.Entry, int64, error)

	// Balance reports the group's pooled funds, or one member's lifetime
	// contribution total when userID is non-nil
	Balance(ctx context.Context, groupID uuid.UUID, userID *uuid.UUID) (int64, error)
}

// AlertService defines the interface for alert operations
type AlertService interface {
	ListByGroup(ctx context.Context, groupID uuid.UUID, page, perPage int) ([]*alert.Alert, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
}
