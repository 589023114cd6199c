// Package ledger provides the read-side aggregates of a group's transaction
// log. Every consumer of pooled funds, executed payout counts, or per-member
// window sums goes through the Reader so there is a single definition of each
// aggregate.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/esusu-circle-engine/internal/domain/contribution"
	"github.com/google/uuid"
)

// Reader computes aggregate sums over a group's append-only transaction log
type Reader struct {
	entries contribution.Repository
	logger  *slog.Logger
}

// NewReader creates a ledger reader over the given entry store
func NewReader(logger *slog.Logger, entries contribution.Repository) *Reader {
	return &Reader{
		entries: entries,
		logger:  logger,
	}
}

// TotalPooled is the net funds held by a group: the sum of all successful
// entry amounts. Payout entries are negative, so prior payouts are already
// subtracted. An empty ledger pools zero.
func (r *Reader) TotalPooled(ctx context.Context, groupID uuid.UUID) (int64, error) {
	total, err := r.entries.SumAmount(ctx, contribution.Filter{
		GroupID:  groupID,
		Statuses: []contribution.Status{contribution.StatusSuccessful},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to sum pooled funds for group %s: %w", groupID, err)
	}
	return total, nil
}

// ExecutedPayoutCount counts the successful payout entries of a group
func (r *Reader) ExecutedPayoutCount(ctx context.Context, groupID uuid.UUID) (int, error) {
	count, err := r.entries.Count(ctx, contribution.Filter{
		GroupID:  groupID,
		Methods:  []contribution.Method{contribution.MethodPayout},
		Statuses: []contribution.Status{contribution.StatusSuccessful},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count executed payouts for group %s: %w", groupID, err)
	}
	return int(count), nil
}

// MemberPaidInWindow sums a member's successful, non-payout entries
// timestamped within [windowStart, windowEnd]. A member with no entries in
// the window has paid zero.
func (r *Reader) MemberPaidInWindow(ctx context.Context, groupID, userID uuid.UUID, windowStart, windowEnd time.Time) (int64, error) {
	total, err := r.entries.SumAmount(ctx, contribution.Filter{
		GroupID:        groupID,
		UserID:         &userID,
		ExcludeMethods: []contribution.Method{contribution.MethodPayout},
		Statuses:       []contribution.Status{contribution.StatusSuccessful},
		From:           &windowStart,
		To:             &windowEnd,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to sum window contributions for member %s in group %s: %w", userID, groupID, err)
	}
	return total, nil
}

// MemberContributed sums everything a member has ever successfully paid into
// the group, across all cycles. Payout entries are excluded: receiving the
// pot does not reduce what a member contributed.
func (r *Reader) MemberContributed(ctx context.Context, groupID, userID uuid.UUID) (int64, error) {
	total, err := r.entries.SumAmount(ctx, contribution.Filter{
		GroupID:        groupID,
		UserID:         &userID,
		ExcludeMethods: []contribution.Method{contribution.MethodPayout},
		Statuses:       []contribution.Status{contribution.StatusSuccessful},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to sum contributions for member %s in group %s: %w", userID, groupID, err)
	}
	return total, nil
}
