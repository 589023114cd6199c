// Package postgres provides PostgreSQL implementations of the domain
// repositories. Group configuration and membership live here; the
// contribution ledger and alerts live in MongoDB.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/esusu-circle-engine/internal/domain/group"
	"github.com/esusu-circle-engine/internal/domain/shared"
	"github.com/esusu-circle-engine/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GroupRepository implements the group.Repository interface for PostgreSQL
type GroupRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewGroupRepository creates a new PostgreSQL group repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewGroupRepository(logger *slog.Logger, db *persistence.PostgresDB) group.Repository {
	return &GroupRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic
// operations across multiple repository calls.
func (r *GroupRepository) WithTx(tx pgx.Tx) group.Repository {
	return &GroupRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new group together with its founding members
func (r *GroupRepository) Create(ctx context.Context, g *group.Group) error {
	query := `
		INSERT INTO groups (id, admin_id, name, payout_amount, contribution_amount, starting_date,
			payout_interval, number_of_members, phone_number, corporate_account, bank_name,
			account_name, status, available_numbers, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.querier.Exec(ctx, query,
		g.ID,
		g.AdminID,
		g.Name,
		g.PayoutAmount,
		g.ContributionAmount,
		g.StartingDate,
		g.PayoutInterval,
		g.NumberOfMembers,
		g.PhoneNumber,
		g.CorporateAccount,
		g.BankName,
		g.AccountName,
		string(g.Status),
		intsToInt32(g.AvailableNumbers),
		g.CreatedAt,
		g.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create group", "error", err)
		return fmt.Errorf("failed to create group: %w", err)
	}

	for _, m := range g.Members {
		if err := r.insertMember(ctx, g.ID, m); err != nil {
			return err
		}
	}
	return nil
}

// GetByID retrieves a group and its membership by ID
func (r *GroupRepository) GetByID(ctx context.Context, id uuid.UUID) (*group.Group, error) {
	query := selectGroupQuery + ` WHERE id = $1`

	g, err := r.scanGroup(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, group.ErrGroupNotFound{GroupID: id}
		}
		r.logger.Error("Failed to get group", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	if err := r.loadMembers(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// ListByStatus retrieves all groups in any of the given statuses. The sweeps
// use it to scope each run to the lifecycle states they own.
func (r *GroupRepository) ListByStatus(ctx context.Context, statuses ...group.Status) ([]*group.Group, error) {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}

	query := selectGroupQuery + ` WHERE status = ANY($1) ORDER BY created_at`
	rows, err := r.querier.Query(ctx, query, values)
	if err != nil {
		r.logger.Error("Failed to list groups by status", "error", err)
		return nil, fmt.Errorf("failed to list groups by status: %w", err)
	}
	defer rows.Close()

	return r.collectGroups(ctx, rows)
}

// ListByUser retrieves all groups the user is a member of
func (r *GroupRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*group.Group, error) {
	query := selectGroupQuery + `
		WHERE id IN (SELECT group_id FROM group_members WHERE user_id = $1)
		ORDER BY created_at
	`
	rows, err := r.querier.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to list groups by user", "user_id", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to list groups by user: %w", err)
	}
	defer rows.Close()

	return r.collectGroups(ctx, rows)
}

// ListAll retrieves every group
func (r *GroupRepository) ListAll(ctx context.Context) ([]*group.Group, error) {
	query := selectGroupQuery + ` ORDER BY created_at`
	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list groups", "error", err)
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	return r.collectGroups(ctx, rows)
}

// UpdateStatus applies a conditional status write. The WHERE clause on the
// current status makes concurrent sweeps race-safe: only one writer can move
// the group, the rest see ErrStaleStatus.
func (r *GroupRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to group.Status) error {
	query := `
		UPDATE groups
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`

	result, err := r.querier.Exec(ctx, query, string(to), id, string(from))
	if err != nil {
		r.logger.Error("Failed to update group status", "id", id.String(), "error", err)
		return fmt.Errorf("failed to update group status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return group.ErrStaleStatus{GroupID: id}
	}
	return nil
}

// AddMember appends the member and claims their chosen slot. The UPDATE only
// matches while the slot is still in available_numbers, so two concurrent
// joins for the same slot cannot both succeed.
func (r *GroupRepository) AddMember(ctx context.Context, groupID uuid.UUID, m group.Member) error {
	query := `
		UPDATE groups
		SET available_numbers = array_remove(available_numbers, $1), updated_at = NOW()
		WHERE id = $2 AND $1 = ANY(available_numbers)
	`

	result, err := r.querier.Exec(ctx, query, int32(m.ChosenNumber), groupID)
	if err != nil {
		r.logger.Error("Failed to claim payout slot", "group_id", groupID.String(), "error", err)
		return fmt.Errorf("failed to claim payout slot: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ConflictError{
			Reason: fmt.Sprintf("payout slot %d is no longer available in group %s", m.ChosenNumber, groupID),
		}
	}

	return r.insertMember(ctx, groupID, m)
}

func (r *GroupRepository) insertMember(ctx context.Context, groupID uuid.UUID, m group.Member) error {
	query := `
		INSERT INTO group_members (group_id, user_id, full_name, chosen_number, bank_name,
			account_name, account_number, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		groupID,
		m.UserID,
		m.FullName,
		m.ChosenNumber,
		m.BankName,
		m.AccountName,
		m.AccountNumber,
		m.JoinedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert group member",
			"group_id", groupID.String(), "user_id", m.UserID.String(), "error", err)
		return fmt.Errorf("failed to insert group member: %w", err)
	}
	return nil
}

const selectGroupQuery = `
	SELECT id, admin_id, name, payout_amount, contribution_amount, starting_date,
		payout_interval, number_of_members, phone_number, corporate_account, bank_name,
		account_name, status, available_numbers, created_at, updated_at
	FROM groups`

func (r *GroupRepository) scanGroup(row pgx.Row) (*group.Group, error) {
	var g group.Group
	var status string
	var available []int32
	err := row.Scan(
		&g.ID,
		&g.AdminID,
		&g.Name,
		&g.PayoutAmount,
		&g.ContributionAmount,
		&g.StartingDate,
		&g.PayoutInterval,
		&g.NumberOfMembers,
		&g.PhoneNumber,
		&g.CorporateAccount,
		&g.BankName,
		&g.AccountName,
		&status,
		&available,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	g.Status = group.Status(status)
	g.AvailableNumbers = int32ToInts(available)
	return &g, nil
}

func (r *GroupRepository) collectGroups(ctx context.Context, rows pgx.Rows) ([]*group.Group, error) {
	var groups []*group.Group
	for rows.Next() {
		g, err := r.scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group row: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group rows: %w", err)
	}

	for _, g := range groups {
		if err := r.loadMembers(ctx, g); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

func (r *GroupRepository) loadMembers(ctx context.Context, g *group.Group) error {
	query := `
		SELECT user_id, full_name, chosen_number, bank_name, account_name, account_number, joined_at
		FROM group_members
		WHERE group_id = $1
		ORDER BY chosen_number
	`

	rows, err := r.querier.Query(ctx, query, g.ID)
	if err != nil {
		r.logger.Error("Failed to load group members", "group_id", g.ID.String(), "error", err)
		return fmt.Errorf("failed to load group members: %w", err)
	}
	defer rows.Close()

	g.Members = g.Members[:0]
	for rows.Next() {
		var m group.Member
		err := rows.Scan(
			&m.UserID,
			&m.FullName,
			&m.ChosenNumber,
			&m.BankName,
			&m.AccountName,
			&m.AccountNumber,
			&m.JoinedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to scan group member row: %w", err)
		}
		g.Members = append(g.Members, m)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate group member rows: %w", err)
	}
	return nil
}

func intsToInt32(values []int) []int32 {
	out := make([]int32, len(values))
	for i, v := range values {
		out[i] = int32(v)
	}
	return out
}

func int32ToInts(values []int32) []int {
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = int(v)
	}
	return out
}
