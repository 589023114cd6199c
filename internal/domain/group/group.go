package group

import (
	"fmt"
	"time"

	"github.com/esusu-circle-engine/internal/domain/shared"
	"github.com/google/uuid"
)

// Status is the lifecycle state of a group. Transitions are monotonic:
// Pending -> Active -> Completed, never backwards.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusActive    Status = "Active"
	StatusCompleted Status = "Completed"
)

// Member is a participant in the rotation. ChosenNumber is the member's fixed
// payout slot, not their join order.
type Member struct {
	UserID        uuid.UUID `json:"user_id"`
	FullName      string    `json:"full_name"`
	ChosenNumber  int       `json:"chosen_number"`
	BankName      string    `json:"bank_name,omitempty"`
	AccountName   string    `json:"account_name,omitempty"`
	AccountNumber string    `json:"account_number,omitempty"`
	JoinedAt      time.Time `json:"joined_at"`
}

// Group is a rotating-savings circle: fixed configuration set at creation
// plus mutable status, membership, and the pool of unclaimed payout slots.
// Amounts are stored in minor units (kobo).
type Group struct {
	ID                 uuid.UUID `json:"id"`
	AdminID            uuid.UUID `json:"admin_id"`
	Name               string    `json:"name"`
	PayoutAmount       int64     `json:"payout_amount"`
	ContributionAmount int64     `json:"contribution_amount"`
	StartingDate       time.Time `json:"starting_date"`
	PayoutInterval     int       `json:"payout_interval"` // days between cycles
	NumberOfMembers    int       `json:"number_of_members"`
	PhoneNumber        string    `json:"phone_number"`
	CorporateAccount   string    `json:"corporate_account"`
	BankName           string    `json:"bank_name"`
	AccountName        string    `json:"account_name"`
	Status             Status    `json:"status"`
	Members            []Member  `json:"members"`
	AvailableNumbers   []int     `json:"available_numbers"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// NewGroup creates a Pending group with the admin occupying adminChosenNumber.
// AvailableNumbers is initialized to every slot in [1, numberOfMembers] except
// the admin's.
func NewGroup(
	adminID uuid.UUID,
	adminName string,
	name string,
	payoutAmount int64,
	contributionAmount int64,
	startingDate time.Time,
	payoutInterval int,
	numberOfMembers int,
	adminChosenNumber int,
) (*Group, error) {
	if name == "" {
		return nil, shared.ValidationError{Field: "name", Reason: "group name cannot be empty"}
	}
	if payoutAmount <= 0 {
		return nil, shared.ValidationError{Field: "payout_amount", Reason: "must be positive"}
	}
	if contributionAmount <= 0 {
		return nil, shared.ValidationError{Field: "contribution_amount", Reason: "must be positive"}
	}
	if payoutInterval <= 0 {
		return nil, shared.ValidationError{Field: "payout_interval", Reason: "must be at least one day"}
	}
	if numberOfMembers < 2 {
		return nil, shared.ValidationError{Field: "number_of_members", Reason: "a circle needs at least two members"}
	}
	if adminChosenNumber < 1 || adminChosenNumber > numberOfMembers {
		return nil, shared.ValidationError{Field: "chosen_number", Reason: fmt.Sprintf("must be within [1, %d]", numberOfMembers)}
	}

	available := make([]int, 0, numberOfMembers-1)
	for n := 1; n <= numberOfMembers; n++ {
		if n != adminChosenNumber {
			available = append(available, n)
		}
	}

	now := time.Now()
	return &Group{
		ID:                 uuid.New(),
		AdminID:            adminID,
		Name:               name,
		PayoutAmount:       payoutAmount,
		ContributionAmount: contributionAmount,
		StartingDate:       startingDate,
		PayoutInterval:     payoutInterval,
		NumberOfMembers:    numberOfMembers,
		Status:             StatusPending,
		Members: []Member{{
			UserID:       adminID,
			FullName:     adminName,
			ChosenNumber: adminChosenNumber,
			JoinedAt:     now,
		}},
		AvailableNumbers: available,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// MemberBySlot returns the member holding payout slot n. A group that reaches
// a cycle with no matching member is corrupt, so the miss is reported as a
// DataIntegrityFault rather than skipped.
func (g *Group) MemberBySlot(n int) (*Member, error) {
	for i := range g.Members {
		if g.Members[i].ChosenNumber == n {
			return &g.Members[i], nil
		}
	}
	return nil, shared.DataIntegrityFault{
		GroupID: g.ID.String(),
		Detail:  fmt.Sprintf("no member holds payout slot %d", n),
	}
}

// HasMember reports whether the user already belongs to the group
func (g *Group) HasMember(userID uuid.UUID) bool {
	for i := range g.Members {
		if g.Members[i].UserID == userID {
			return true
		}
	}
	return false
}

// SlotAvailable reports whether slot n is still unclaimed
func (g *Group) SlotAvailable(n int) bool {
	for _, available := range g.AvailableNumbers {
		if available == n {
			return true
		}
	}
	return false
}

// AddMember places a member into an available slot, removing the slot from
// AvailableNumbers. The slot-set invariant (chosen numbers and available
// numbers partition [1, N]) is preserved.
func (g *Group) AddMember(m Member) error {
	if m.ChosenNumber < 1 || m.ChosenNumber > g.NumberOfMembers {
		return shared.ValidationError{Field: "chosen_number", Reason: fmt.Sprintf("must be within [1, %d]", g.NumberOfMembers)}
	}
	if g.HasMember(m.UserID) {
		return shared.ConflictError{Resource: "group member", Reason: "user is already a member of this group"}
	}
	if len(g.Members) >= g.NumberOfMembers {
		return shared.ConflictError{Resource: "group member", Reason: "group is already full"}
	}
	if !g.SlotAvailable(m.ChosenNumber) {
		return shared.ConflictError{Resource: "payout slot", Reason: fmt.Sprintf("slot %d is not available", m.ChosenNumber)}
	}

	g.Members = append(g.Members, m)
	remaining := g.AvailableNumbers[:0]
	for _, n := range g.AvailableNumbers {
		if n != m.ChosenNumber {
			remaining = append(remaining, n)
		}
	}
	g.AvailableNumbers = remaining
	g.UpdatedAt = time.Now()
	return nil
}

// Activate moves a Pending group to Active once its starting date has been
// reached, compared at day granularity. Re-observing an already-Active group
// is a no-op; the returned bool reports whether a transition happened.
func (g *Group) Activate(now time.Time) bool {
	if g.Status != StatusPending {
		return false
	}
	if startOfDay(g.StartingDate).After(startOfDay(now)) {
		return false
	}
	g.Status = StatusActive
	g.UpdatedAt = now
	return true
}

// Complete moves an Active group to Completed. Idempotent.
func (g *Group) Complete(now time.Time) bool {
	if g.Status != StatusActive {
		return false
	}
	g.Status = StatusCompleted
	g.UpdatedAt = now
	return true
}

// CheckSlotInvariant verifies that the chosen numbers and the available
// numbers are disjoint and together cover exactly [1, NumberOfMembers]
func (g *Group) CheckSlotInvariant() error {
	seen := make(map[int]string, g.NumberOfMembers)
	for i := range g.Members {
		n := g.Members[i].ChosenNumber
		if n < 1 || n > g.NumberOfMembers {
			return shared.DataIntegrityFault{GroupID: g.ID.String(), Detail: fmt.Sprintf("member slot %d out of range", n)}
		}
		if _, dup := seen[n]; dup {
			return shared.DataIntegrityFault{GroupID: g.ID.String(), Detail: fmt.Sprintf("slot %d held twice", n)}
		}
		seen[n] = "member"
	}
	for _, n := range g.AvailableNumbers {
		if n < 1 || n > g.NumberOfMembers {
			return shared.DataIntegrityFault{GroupID: g.ID.String(), Detail: fmt.Sprintf("available slot %d out of range", n)}
		}
		if holder, dup := seen[n]; dup {
			return shared.DataIntegrityFault{GroupID: g.ID.String(), Detail: fmt.Sprintf("slot %d both %s and available", n, holder)}
		}
		seen[n] = "available"
	}
	if len(seen) != g.NumberOfMembers {
		return shared.DataIntegrityFault{GroupID: g.ID.String(), Detail: fmt.Sprintf("slots covered %d of %d", len(seen), g.NumberOfMembers)}
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
