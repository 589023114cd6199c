// Package payout implements the gate that decides, for one group at one
// moment, whether the current cycle's payout may fire. Checks run in strict
// order from cheap and likely-false to expensive and rare: completion, date,
// pooled funds, then per-member compliance. Failing a check aborts the
// evaluation with that decision; no later check runs.
package payout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/esusu-circle-engine/internal/domain/alert"
	"github.com/esusu-circle-engine/internal/domain/contribution"
	"github.com/esusu-circle-engine/internal/domain/group"
	"github.com/esusu-circle-engine/internal/domain/shared"
	"github.com/esusu-circle-engine/internal/engine/compliance"
	"github.com/esusu-circle-engine/internal/engine/cycle"
	"github.com/esusu-circle-engine/internal/engine/ledger"
)

// Decision is the single outcome of one gate evaluation
type Decision string

const (
	DecisionAlreadyComplete    Decision = "ALREADY_COMPLETE"
	DecisionTooEarly           Decision = "TOO_EARLY"
	DecisionInsufficientFunds  Decision = "INSUFFICIENT_FUNDS"
	DecisionMembersNoncompliant Decision = "MEMBERS_NONCOMPLIANT"
	DecisionGo                 Decision = "GO"
)

// Outcome reports what the gate decided and why
type Outcome struct {
	Decision   Decision
	Cycle      int
	Deadline   time.Time
	Pooled     int64                        // Set when funds were checked
	Shortfalls []compliance.MemberShortfall // Set for MEMBERS_NONCOMPLIANT
	Recipient  *group.Member                // Set for GO
	Entry      *contribution.Entry          // The appended payout entry, set for GO
}

// EventPublisher pushes engine events to the notification side-channel.
// Delivery is best effort: the gate never fails or rolls back on publish
// errors.
type EventPublisher interface {
	Publish(ctx context.Context, event *shared.EngineEvent) error
}

// Gate evaluates payout eligibility and, on GO, appends the payout entry
type Gate struct {
	reader    *ledger.Reader
	evaluator *compliance.Evaluator
	entries   contribution.Repository
	alerts    alert.Repository
	events    EventPublisher
	logger    *slog.Logger
}

// NewGate creates a payout gate
func NewGate(
	logger *slog.Logger,
	reader *ledger.Reader,
	evaluator *compliance.Evaluator,
	entries contribution.Repository,
	alerts alert.Repository,
	events EventPublisher,
) *Gate {
	return &Gate{
		reader:    reader,
		evaluator: evaluator,
		entries:   entries,
		alerts:    alerts,
		events:    events,
		logger:    logger,
	}
}

// Evaluate runs the ordered checks for one group and applies the side effects
// of the resulting decision: a critical alert for a blocked payout, or the
// ledger append plus a notice alert for GO. The payout reference is
// deterministic per (group, cycle), so a concurrent evaluation that loses the
// append race fails with a ConflictError instead of double-paying.
func (gt *Gate) Evaluate(ctx context.Context, g *group.Group, now time.Time) (*Outcome, error) {
	logger := gt.logger.With("group_id", g.ID.String(), "group_name", g.Name)

	sched := cycle.ForGroup(g)
	if err := sched.Validate(); err != nil {
		return nil, fmt.Errorf("group %s has an invalid schedule: %w", g.ID, err)
	}

	executed, err := gt.reader.ExecutedPayoutCount(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	cycleNumber := sched.CycleNumber(executed)

	// Check 1: rotation finished
	if sched.IsComplete(cycleNumber) {
		logger.Info("rotation complete, all members paid", "executed_payouts", executed)
		return &Outcome{Decision: DecisionAlreadyComplete, Cycle: cycleNumber}, nil
	}

	deadline := sched.Deadline(cycleNumber)
	outcome := &Outcome{Cycle: cycleNumber, Deadline: deadline}

	// Check 2: deadline not reached
	if now.Before(deadline) {
		outcome.Decision = DecisionTooEarly
		logger.Debug("payout date not reached", "cycle", cycleNumber, "deadline", deadline)
		return outcome, nil
	}

	// Check 3: pooled funds cover the payout
	pooled, err := gt.reader.TotalPooled(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	outcome.Pooled = pooled
	if pooled < g.PayoutAmount {
		outcome.Decision = DecisionInsufficientFunds
		logger.Warn("payout blocked, pool short",
			"cycle", cycleNumber, "pooled", pooled, "required", g.PayoutAmount)
		if err := gt.emitInsufficientFundsAlert(ctx, g, cycleNumber, deadline, pooled); err != nil {
			return nil, err
		}
		return outcome, nil
	}

	// Check 4: every member funded the current window
	windowStart, windowEnd := sched.Window(cycleNumber)
	result, err := gt.evaluator.Evaluate(ctx, g, windowStart, windowEnd, g.ContributionAmount)
	if err != nil {
		return nil, err
	}
	if !result.AllCompliant() {
		outcome.Decision = DecisionMembersNoncompliant
		outcome.Shortfalls = result.Shortfalls
		logger.Warn("payout blocked, members noncompliant",
			"cycle", cycleNumber, "short_members", len(result.Shortfalls))
		if err := gt.emitNoncompliantAlert(ctx, g, result); err != nil {
			return nil, err
		}
		return outcome, nil
	}

	// GO: append the payout entry, then confirm to the recipient
	recipient, err := cycle.MemberForCycle(g, cycleNumber)
	if err != nil {
		return nil, err
	}

	entry, err := contribution.NewPayout(g.ID, recipient.UserID, g.PayoutAmount, cycleNumber)
	if err != nil {
		return nil, err
	}
	if err := gt.entries.Append(ctx, entry); err != nil {
		if errors.Is(err, contribution.ErrDuplicateReference{}) {
			// Another evaluation already paid this cycle
			return nil, shared.ConflictError{
				Resource: "payout",
				Reason:   fmt.Sprintf("cycle %d of group %s was already paid", cycleNumber, g.ID),
			}
		}
		return nil, fmt.Errorf("failed to append payout entry: %w", err)
	}

	outcome.Decision = DecisionGo
	outcome.Recipient = recipient
	outcome.Entry = entry
	logger.Info("payout executed",
		"cycle", cycleNumber,
		"recipient", recipient.UserID.String(),
		"amount", g.PayoutAmount,
		"reference", entry.Reference,
	)

	if err := gt.emitPayoutNotice(ctx, g, recipient, cycleNumber); err != nil {
		// The payout already happened; a lost notice must not undo it
		logger.Error("payout succeeded but notice alert failed", "error", err)
	}
	gt.publishEvent(ctx, payoutExecutedEvent(g, recipient, cycleNumber))

	return outcome, nil
}

func (gt *Gate) emitInsufficientFundsAlert(ctx context.Context, g *group.Group, cycleNumber int, deadline time.Time, pooled int64) error {
	msg := fmt.Sprintf(
		"CRITICAL: Payout due for Member #%d on %s but only %s of %s collected.",
		cycleNumber,
		deadline.Format("2006-01-02"),
		shared.FormatNaira(pooled),
		shared.FormatNaira(g.PayoutAmount),
	)
	if err := gt.alerts.Create(ctx, alert.NewGroupAlert(g.ID, alert.TypeCritical, msg)); err != nil {
		return fmt.Errorf("failed to create insufficient-funds alert: %w", err)
	}
	gt.publishEvent(ctx, blockedEvent(g, cycleNumber, msg))
	return nil
}

func (gt *Gate) emitNoncompliantAlert(ctx context.Context, g *group.Group, result compliance.Result) error {
	items := make([]string, 0, len(result.Shortfalls))
	for _, s := range result.Shortfalls {
		items = append(items, fmt.Sprintf("%s (Num: %d, Short: %s)", s.FullName, s.Slot, shared.FormatNaira(s.Shortfall)))
	}
	msg := fmt.Sprintf(
		"CRITICAL: Payout blocked! %d member(s) have incomplete contributions for the current cycle (%s required per member). Overdue: %s",
		len(result.Shortfalls),
		shared.FormatNaira(result.Required),
		strings.Join(items, "; "),
	)
	if err := gt.alerts.Create(ctx, alert.NewGroupAlert(g.ID, alert.TypeCritical, msg)); err != nil {
		return fmt.Errorf("failed to create noncompliance alert: %w", err)
	}
	gt.publishEvent(ctx, blockedEvent(g, 0, msg))
	return nil
}

func (gt *Gate) emitPayoutNotice(ctx context.Context, g *group.Group, recipient *group.Member, cycleNumber int) error {
	msg := fmt.Sprintf(
		"AUTOMATIC PAYOUT executed successfully for Member #%d (%s). Funds transferred.",
		cycleNumber, recipient.FullName,
	)
	if err := gt.alerts.Create(ctx, alert.NewMemberAlert(g.ID, recipient.UserID, alert.TypeNotice, msg)); err != nil {
		return fmt.Errorf("failed to create payout notice: %w", err)
	}
	return nil
}

// publishEvent pushes to the event stream, swallowing failures
func (gt *Gate) publishEvent(ctx context.Context, event *shared.EngineEvent) {
	if gt.events == nil {
		return
	}
	if err := gt.events.Publish(ctx, event); err != nil {
		gt.logger.Warn("failed to publish engine event", "type", string(event.Type), "error", err)
	}
}

func payoutExecutedEvent(g *group.Group, recipient *group.Member, cycleNumber int) *shared.EngineEvent {
	e := shared.NewEngineEvent(shared.EngineEventPayoutExecuted, g.ID,
		fmt.Sprintf("Payout for cycle %d executed", cycleNumber))
	e.UserID = &recipient.UserID
	e.Cycle = cycleNumber
	e.Amount = g.PayoutAmount
	return e
}

func blockedEvent(g *group.Group, cycleNumber int, msg string) *shared.EngineEvent {
	e := shared.NewEngineEvent(shared.EngineEventPayoutBlocked, g.ID, msg)
	e.Cycle = cycleNumber
	return e
}
