package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/esusu-circle-engine/internal/domain/joinrequest"
	"github.com/esusu-circle-engine/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// JoinRequestRepository implements the joinrequest.Repository interface for PostgreSQL
type JoinRequestRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewJoinRequestRepository creates a new PostgreSQL join request repository
func NewJoinRequestRepository(logger *slog.Logger, db *persistence.PostgresDB) joinrequest.Repository {
	return &JoinRequestRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction. Approval flows use it so
// the request's status change and the membership insert commit together.
func (r *JoinRequestRepository) WithTx(tx pgx.Tx) joinrequest.Repository {
	return &JoinRequestRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new join request
func (r *JoinRequestRepository) Create(ctx context.Context, req *joinrequest.Request) error {
	query := `
		INSERT INTO join_requests (id, group_id, user_id, full_name, phone_number, chosen_number,
			account_number, bank_name, account_name, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.querier.Exec(ctx, query,
		req.ID,
		req.GroupID,
		req.UserID,
		req.FullName,
		req.PhoneNumber,
		req.ChosenNumber,
		req.AccountNumber,
		req.BankName,
		req.AccountName,
		string(req.Status),
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create join request", "error", err)
		return fmt.Errorf("failed to create join request: %w", err)
	}
	return nil
}

// GetByID retrieves a join request by its ID
func (r *JoinRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*joinrequest.Request, error) {
	query := selectRequestQuery + ` WHERE id = $1`

	req, err := scanRequest(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, joinrequest.ErrRequestNotFound{RequestID: id}
		}
		r.logger.Error("Failed to get join request", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get join request: %w", err)
	}
	return req, nil
}

// ListPendingByGroup retrieves the open requests awaiting the admin's review
func (r *JoinRequestRepository) ListPendingByGroup(ctx context.Context, groupID uuid.UUID) ([]*joinrequest.Request, error) {
	query := selectRequestQuery + ` WHERE group_id = $1 AND status = $2 ORDER BY created_at`

	rows, err := r.querier.Query(ctx, query, groupID, string(joinrequest.StatusPending))
	if err != nil {
		r.logger.Error("Failed to list pending join requests", "group_id", groupID.String(), "error", err)
		return nil, fmt.Errorf("failed to list pending join requests: %w", err)
	}
	defer rows.Close()

	var requests []*joinrequest.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan join request row: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate join request rows: %w", err)
	}
	return requests, nil
}

// GetPendingByGroupAndUser returns the user's open request for the group, or
// nil when none exists. The service layer uses it to reject double applications.
func (r *JoinRequestRepository) GetPendingByGroupAndUser(ctx context.Context, groupID, userID uuid.UUID) (*joinrequest.Request, error) {
	query := selectRequestQuery + ` WHERE group_id = $1 AND user_id = $2 AND status = $3`

	req, err := scanRequest(r.querier.QueryRow(ctx, query, groupID, userID, string(joinrequest.StatusPending)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get pending join request",
			"group_id", groupID.String(), "user_id", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to get pending join request: %w", err)
	}
	return req, nil
}

// UpdateStatus moves a request to its reviewed state
func (r *JoinRequestRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status joinrequest.Status) error {
	query := `
		UPDATE join_requests
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, string(status), id)
	if err != nil {
		r.logger.Error("Failed to update join request status", "id", id.String(), "error", err)
		return fmt.Errorf("failed to update join request status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return joinrequest.ErrRequestNotFound{RequestID: id}
	}
	return nil
}

const selectRequestQuery = `
	SELECT id, group_id, user_id, full_name, phone_number, chosen_number,
		account_number, bank_name, account_name, status, created_at, updated_at
	FROM join_requests`

func scanRequest(row pgx.Row) (*joinrequest.Request, error) {
	var req joinrequest.Request
	var status string
	err := row.Scan(
		&req.ID,
		&req.GroupID,
		&req.UserID,
		&req.FullName,
		&req.PhoneNumber,
		&req.ChosenNumber,
		&req.AccountNumber,
		&req.BankName,
		&req.AccountName,
		&status,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	req.Status = joinrequest.Status(status)
	return &req, nil
}
