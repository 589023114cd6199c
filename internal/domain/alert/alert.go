package alert

import (
	"time"

	"github.com/google/uuid"
)

// Type is the severity of an alert. A closed set: member-specific overdue
// warnings, group-wide critical payout blocks, and informational notices.
type Type string

const (
	TypeNotice   Type = "notice"
	TypeWarning  Type = "warning"
	TypeCritical Type = "critical"
)

// Alert is a derived, append-only record surfaced to group members.
// UserID is nil for group-wide alerts.
type Alert struct {
	ID        uuid.UUID  `json:"id" bson:"alert_id"`
	GroupID   uuid.UUID  `json:"group_id" bson:"group_id"`
	UserID    *uuid.UUID `json:"user_id,omitempty" bson:"user_id,omitempty"`
	Message   string     `json:"message" bson:"message"`
	Type      Type       `json:"type" bson:"type"`
	Read      bool       `json:"read" bson:"read"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
}

// NewGroupAlert builds a group-wide alert
func NewGroupAlert(groupID uuid.UUID, alertType Type, message string) *Alert {
	return &Alert{
		ID:        uuid.New(),
		GroupID:   groupID,
		Message:   message,
		Type:      alertType,
		CreatedAt: time.Now(),
	}
}

// NewMemberAlert builds an alert targeting one member
func NewMemberAlert(groupID, userID uuid.UUID, alertType Type, message string) *Alert {
	a := NewGroupAlert(groupID, alertType, message)
	a.UserID = &userID
	return a
}
