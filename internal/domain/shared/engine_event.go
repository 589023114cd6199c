package shared

import (
	"time"

	"github.com/google/uuid"
)

// EngineEventType defines the kinds of events the cycle engine publishes
type EngineEventType string

const (
	EngineEventGroupActivated      EngineEventType = "GROUP_ACTIVATED"
	EngineEventGroupCompleted      EngineEventType = "GROUP_COMPLETED"
	EngineEventPayoutExecuted      EngineEventType = "PAYOUT_EXECUTED"
	EngineEventPayoutBlocked       EngineEventType = "PAYOUT_BLOCKED"
	EngineEventMemberOverdue       EngineEventType = "MEMBER_OVERDUE"
	EngineEventContributionLogged  EngineEventType = "CONTRIBUTION_LOGGED"
	EngineEventMemberJoined        EngineEventType = "MEMBER_JOINED"
)

// EngineEvent is the message published to the engine event stream.
// Delivery is best effort: the state change that produced an event is never
// rolled back because publishing failed.
type EngineEvent struct {
	EventID   uuid.UUID       `json:"event_id"`
	Type      EngineEventType `json:"type"`
	GroupID   uuid.UUID       `json:"group_id"`
	UserID    *uuid.UUID      `json:"user_id,omitempty"` // Set for member-specific events
	Cycle     int             `json:"cycle,omitempty"`
	Amount    int64           `json:"amount,omitempty"` // Minor units (kobo)
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEngineEvent builds an event with a fresh id and timestamp
func NewEngineEvent(eventType EngineEventType, groupID uuid.UUID, message string) *EngineEvent {
	return &EngineEvent{
		EventID:   uuid.New(),
		Type:      eventType,
		GroupID:   groupID,
		Message:   message,
		Timestamp: time.Now(),
	}
}
