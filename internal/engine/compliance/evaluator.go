// Package compliance classifies the members of a group against the required
// contribution for one funding window. Both the payout gate and the overdue
// warning sweep consume the same evaluation, so "payout-blocking" and
// "overdue" can never mean different things.
package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/esusu-circle-engine/internal/domain/group"
	"github.com/esusu-circle-engine/internal/engine/ledger"
	"github.com/google/uuid"
)

// MemberShortfall itemizes one non-compliant member
type MemberShortfall struct {
	UserID    uuid.UUID
	FullName  string
	Slot      int
	Required  int64
	Paid      int64
	Shortfall int64
}

// Result is the itemized outcome of evaluating every current member.
// Shortfalls holds only the non-compliant members; an empty slice means the
// whole group is compliant.
type Result struct {
	Required   int64
	Shortfalls []MemberShortfall
}

// AllCompliant reports whether no member is short
func (r Result) AllCompliant() bool {
	return len(r.Shortfalls) == 0
}

// Evaluator computes per-member compliance from ledger window sums
type Evaluator struct {
	reader *ledger.Reader
	logger *slog.Logger
}

// NewEvaluator creates a compliance evaluator
func NewEvaluator(logger *slog.Logger, reader *ledger.Reader) *Evaluator {
	return &Evaluator{
		reader: reader,
		logger: logger,
	}
}

// Evaluate checks every current member of the group against requiredAmount
// over [windowStart, windowEnd]. A member is compliant iff
// max(0, required - paid) == 0; the itemized shortfall list is returned for
// both payout gating and alerting.
func (e *Evaluator) Evaluate(ctx context.Context, g *group.Group, windowStart, windowEnd time.Time, requiredAmount int64) (Result, error) {
	result := Result{Required: requiredAmount}

	for i := range g.Members {
		m := &g.Members[i]
		paid, err := e.reader.MemberPaidInWindow(ctx, g.ID, m.UserID, windowStart, windowEnd)
		if err != nil {
			return Result{}, fmt.Errorf("failed to evaluate compliance for member %s: %w", m.UserID, err)
		}

		shortfall := requiredAmount - paid
		if shortfall <= 0 {
			continue
		}
		result.Shortfalls = append(result.Shortfalls, MemberShortfall{
			UserID:    m.UserID,
			FullName:  m.FullName,
			Slot:      m.ChosenNumber,
			Required:  requiredAmount,
			Paid:      paid,
			Shortfall: shortfall,
		})
	}

	if !result.AllCompliant() {
		e.logger.Debug("compliance evaluation found short members",
			"group_id", g.ID.String(),
			"short_members", len(result.Shortfalls),
		)
	}
	return result, nil
}
