package handler

// CreateGroupRequest represents a request to create a new savings group.
// Amounts are minor units (kobo); starting_date is RFC 3339.
type CreateGroupRequest struct {
	AdminID            string `json:"admin_id" binding:"required,uuid"`
	AdminName          string `json:"admin_name" binding:"required"`
	Name               string `json:"name" binding:"required"`
	PayoutAmount       int64  `json:"payout_amount" binding:"required,gt=0"`
	ContributionAmount int64  `json:"contribution_amount" binding:"required,gt=0"`
	StartingDate       string `json:"starting_date" binding:"required"`
	PayoutInterval     int    `json:"payout_interval" binding:"required,gt=0"`
	NumberOfMembers    int    `json:"number_of_members" binding:"required,min=2"`
	AdminChosenNumber  int    `json:"admin_chosen_number" binding:"required,min=1"`
	PhoneNumber        string `json:"phone_number,omitempty"`
	CorporateAccount   string `json:"corporate_account,omitempty"`
	BankName           string `json:"bank_name,omitempty"`
	AccountName        string `json:"account_name,omitempty"`
}

// MemberResponse represents a group member in API responses
type MemberResponse struct {
	UserID       string `json:"user_id"`
	FullName     string `json:"full_name"`
	ChosenNumber int    `json:"chosen_number"`
	JoinedAt     string `json:"joined_at"`
}

// GroupResponse represents a group in API responses
type GroupResponse struct {
	ID                 string           `json:"id"`
	AdminID            string           `json:"admin_id"`
	Name               string           `json:"name"`
	PayoutAmount       int64            `json:"payout_amount"`
	ContributionAmount int64            `json:"contribution_amount"`
	StartingDate       string           `json:"starting_date"`
	PayoutInterval     int              `json:"payout_interval"`
	NumberOfMembers    int              `json:"number_of_members"`
	Status             string           `json:"status"`
	Members            []MemberResponse `json:"members"`
	AvailableNumbers   []int            `json:"available_numbers"`
	CreatedAt          string           `json:"created_at"`
}

// ShortfallResponse itemizes one member's missing contribution for the
// current cycle
type ShortfallResponse struct {
	UserID    string `json:"user_id"`
	FullName  string `json:"full_name"`
	Slot      int    `json:"slot"`
	Required  int64  `json:"required"`
	Paid      int64  `json:"paid"`
	Shortfall int64  `json:"shortfall"`
}

// CycleStatusResponse represents the live cycle view of a group
type CycleStatusResponse struct {
	GroupID       string              `json:"group_id"`
	Status        string              `json:"status"`
	CycleNumber   int                 `json:"cycle_number"`
	Complete      bool                `json:"complete"`
	WindowStart   string              `json:"window_start,omitempty"`
	Deadline      string              `json:"deadline,omitempty"`
	TotalPooled   int64               `json:"total_pooled"`
	NextRecipient *MemberResponse     `json:"next_recipient,omitempty"`
	Shortfalls    []ShortfallResponse `json:"shortfalls"`
}

// SubmitJoinRequest represents a request to join a group
type SubmitJoinRequest struct {
	UserID        string `json:"user_id" binding:"required,uuid"`
	FullName      string `json:"full_name" binding:"required"`
	PhoneNumber   string `json:"phone_number" binding:"required"`
	ChosenNumber  int    `json:"chosen_number" binding:"required,min=1"`
	AccountNumber string `json:"account_number" binding:"required"`
	BankName      string `json:"bank_name" binding:"required"`
	AccountName   string `json:"account_name" binding:"required"`
}

// JoinRequestResponse represents a join request in API responses
type JoinRequestResponse struct {
	ID           string `json:"id"`
	GroupID      string `json:"group_id"`
	UserID       string `json:"user_id"`
	FullName     string `json:"full_name"`
	ChosenNumber int    `json:"chosen_number"`
	Status       string `json:"status"`
	CreatedAt    string `json:"created_at"`
}

// LogContributionRequest represents a request to record a contribution.
// Card contributions are verified with the payment gateway before being
// admitted to the ledger; the reference is then mandatory.
type LogContributionRequest struct {
	UserID    string `json:"user_id" binding:"required,uuid"`
	Amount    int64  `json:"amount" binding:"required,gt=0"`
	Method    string `json:"method" binding:"required,oneof=transfer card"`
	Reference string `json:"reference,omitempty"`
}

// ContributionResponse represents a ledger entry in API responses
type ContributionResponse struct {
	ID        string `json:"id"`
	GroupID   string `json:"group_id"`
	UserID    string `json:"user_id"`
	Amount    int64  `json:"amount"`
	Method    string `json:"method"`
	Status    string `json:"status"`
	Reference string `json:"reference,omitempty"`
	CreatedAt string `json:"created_at"`
}

// BalanceResponse carries a pooled or per-member balance in kobo
type BalanceResponse struct {
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id,omitempty"`
	Balance int64  `json:"balance"`
}

// AlertResponse represents an alert in API responses
type AlertResponse struct {
	ID        string `json:"id"`
	GroupID   string `json:"group_id"`
	UserID    string `json:"user_id,omitempty"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"created_at"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}
