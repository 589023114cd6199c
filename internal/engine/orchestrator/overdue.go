package orchestrator

import (
	"context"
	"fmt"

	"github.com/esusu-circle-engine/internal/domain/alert"
	"github.com/esusu-circle-engine/internal/domain/group"
	"github.com/esusu-circle-engine/internal/domain/shared"
	"github.com/esusu-circle-engine/internal/engine/cycle"
	"github.com/google/uuid"
)

// RunOverdueSweep surfaces members whose contribution to the live cycle is
// short once the cycle's deadline is at least a full day behind. It is
// advisory: it uses the same cycle and compliance computation as the payout
// gate but never gates it. At most one warning per member per calendar day is
// emitted, so repeated sweeps within a day stay quiet.
func (o *Orchestrator) RunOverdueSweep(ctx context.Context) error {
	now := o.now()
	o.logger.Info("overdue contribution sweep started")

	running, err := o.groups.ListByStatus(ctx, group.StatusPending, group.StatusActive)
	if err != nil {
		return fmt.Errorf("overdue sweep failed to list running groups: %w", err)
	}

	o.forEachGroup(ctx, running, func(ctx context.Context, g *group.Group) error {
		// Only groups that have started
		if !cycle.SameDayOrBefore(g.StartingDate, now) {
			return nil
		}

		sched, cycleNumber, err := o.currentCycle(ctx, g)
		if err != nil {
			return err
		}
		if sched.IsComplete(cycleNumber) {
			// Rotation finished; the payout sweep owns the status move
			return nil
		}

		deadline := sched.Deadline(cycleNumber)
		daysOverdue := int(now.Sub(deadline).Hours() / 24)
		if daysOverdue < 1 {
			return nil
		}

		windowStart, windowEnd := sched.Window(cycleNumber)
		result, err := o.evaluator.Evaluate(ctx, g, windowStart, windowEnd, g.ContributionAmount)
		if err != nil {
			return err
		}

		for _, short := range result.Shortfalls {
			if err := o.warnOverdueMember(ctx, g, short.UserID, short.FullName, cycleNumber, daysOverdue); err != nil {
				return err
			}
		}
		return nil
	})

	o.logger.Info("overdue contribution sweep finished", "groups_checked", len(running))
	return nil
}

// warnOverdueMember emits the member's daily warning unless one already
// exists for today
func (o *Orchestrator) warnOverdueMember(ctx context.Context, g *group.Group, userID uuid.UUID, fullName string, cycleNumber, daysOverdue int) error {
	uid := userID
	startOfToday := cycle.StartOfDay(o.now())

	exists, err := o.alerts.ExistsSince(ctx, g.ID, &uid, alert.TypeWarning, startOfToday)
	if err != nil {
		return fmt.Errorf("failed to check existing warnings for member %s: %w", uid, err)
	}
	if exists {
		return nil
	}

	msg := fmt.Sprintf(
		"Payment Overdue: %s's contribution of %s is %d days overdue (Cycle #%d).",
		fullName,
		shared.FormatNaira(g.ContributionAmount),
		daysOverdue,
		cycleNumber,
	)
	if err := o.alerts.Create(ctx, alert.NewMemberAlert(g.ID, uid, alert.TypeWarning, msg)); err != nil {
		return fmt.Errorf("failed to create overdue warning for member %s: %w", uid, err)
	}
	o.logger.Info("overdue warning created",
		"group_id", g.ID.String(), "user_id", uid.String(), "days_overdue", daysOverdue)

	event := shared.NewEngineEvent(shared.EngineEventMemberOverdue, g.ID, msg)
	event.UserID = &uid
	event.Cycle = cycleNumber
	o.publishEvent(ctx, event)
	return nil
}
