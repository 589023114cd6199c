// Package cycle derives the funding cycle timeline of a group from its
// configuration and the count of executed payouts. Everything here is a pure
// function; both the payout gate and the overdue sweep use this one
// definition of cycle number, deadline, and funding window so the two can
// never disagree at boundary dates.
package cycle

import (
	"time"

	"github.com/esusu-circle-engine/internal/domain/group"
	"github.com/esusu-circle-engine/internal/domain/shared"
)

// Schedule captures the cycle-relevant configuration of a group
type Schedule struct {
	StartingDate    time.Time
	IntervalDays    int
	NumberOfMembers int
}

// ForGroup builds the schedule for a group
func ForGroup(g *group.Group) Schedule {
	return Schedule{
		StartingDate:    g.StartingDate,
		IntervalDays:    g.PayoutInterval,
		NumberOfMembers: g.NumberOfMembers,
	}
}

// CycleNumber returns the 1-based cycle currently being funded. Cycle 1 pays
// the member holding slot 1, so after N executed payouts cycle N+1 is live.
func (s Schedule) CycleNumber(executedPayouts int) int {
	return executedPayouts + 1
}

// IsComplete reports whether every member has been paid out
func (s Schedule) IsComplete(cycleNumber int) bool {
	return cycleNumber > s.NumberOfMembers
}

// Deadline is the payout deadline of a cycle, normalized to end of day:
// startingDate + (cycleNumber-1) * interval days. Cycle 1's deadline is the
// starting date itself.
func (s Schedule) Deadline(cycleNumber int) time.Time {
	d := s.StartingDate.AddDate(0, 0, (cycleNumber-1)*s.IntervalDays)
	return EndOfDay(d)
}

// WindowStart is the opening of a cycle's funding window, normalized to start
// of day: one full interval before the deadline.
func (s Schedule) WindowStart(cycleNumber int) time.Time {
	d := s.Deadline(cycleNumber).AddDate(0, 0, -s.IntervalDays)
	return StartOfDay(d)
}

// Window returns the inclusive funding window [start, deadline] of a cycle.
// Contributions timestamped inside it count toward the cycle.
func (s Schedule) Window(cycleNumber int) (start, deadline time.Time) {
	return s.WindowStart(cycleNumber), s.Deadline(cycleNumber)
}

// MemberForCycle resolves the payout recipient of a cycle. A missing slot
// holder surfaces as a DataIntegrityFault from the group.
func MemberForCycle(g *group.Group, cycleNumber int) (*group.Member, error) {
	m, err := g.MemberBySlot(cycleNumber)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Validate rejects schedules that cannot produce a sane timeline
func (s Schedule) Validate() error {
	if s.IntervalDays <= 0 {
		return shared.ValidationError{Field: "payout_interval", Reason: "must be at least one day"}
	}
	if s.NumberOfMembers < 1 {
		return shared.ValidationError{Field: "number_of_members", Reason: "must be positive"}
	}
	if s.StartingDate.IsZero() {
		return shared.ValidationError{Field: "starting_date", Reason: "is required"}
	}
	return nil
}

// StartOfDay truncates t to midnight in its own location
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay moves t to the last nanosecond of its day
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

// SameDayOrBefore reports whether a falls on the same calendar day as b or
// earlier, ignoring time of day
func SameDayOrBefore(a, b time.Time) bool {
	return !StartOfDay(a).After(StartOfDay(b))
}
