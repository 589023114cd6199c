package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/esusu-circle-engine/internal/domain/group"
	"github.com/esusu-circle-engine/internal/domain/joinrequest"
	"github.com/esusu-circle-engine/internal/domain/shared"
	"github.com/esusu-circle-engine/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TxRunner runs a function inside a database transaction.
// *persistence.PostgresDB satisfies it.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

var _ TxRunner = (*persistence.PostgresDB)(nil)

// RequestServiceImpl implements the RequestService interface
type RequestServiceImpl struct {
	requestRepo joinrequest.Repository
	groupRepo   group.Repository
	db          TxRunner
	events      EventPublisher
	logger      *slog.Logger
}

// NewRequestService creates a new join request service
func NewRequestService(logger *slog.Logger, db TxRunner, requestRepo joinrequest.Repository, groupRepo group.Repository, events EventPublisher) RequestService {
	return &RequestServiceImpl{
		requestRepo: requestRepo,
		groupRepo:   groupRepo,
		db:          db,
		events:      events,
		logger:      logger,
	}
}

// Submit files a join request after checking the group still has room and the
// slot is open. The definitive slot claim happens at approval; this check
// only rejects requests that can never succeed.
func (s *RequestServiceImpl) Submit(ctx context.Context, groupID, userID uuid.UUID, fullName, phoneNumber string,
	chosenNumber int, accountNumber, bankName, accountName string) (*joinrequest.Request, error) {

	g, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g.Status != group.StatusPending {
		return nil, shared.ValidationError{Field: "group_id", Reason: "group is no longer accepting members"}
	}
	if g.HasMember(userID) {
		return nil, shared.ConflictError{Resource: "membership", Reason: "user is already a member of this group"}
	}
	if chosenNumber < 1 || chosenNumber > g.NumberOfMembers {
		return nil, shared.ValidationError{
			Field:  "chosen_number",
			Reason: fmt.Sprintf("must be within [1, %d]", g.NumberOfMembers),
		}
	}
	if !g.SlotAvailable(chosenNumber) {
		return nil, shared.ConflictError{
			Resource: "payout_slot",
			Reason:   fmt.Sprintf("payout slot %d is already taken", chosenNumber),
		}
	}

	existing, err := s.requestRepo.GetPendingByGroupAndUser(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, shared.ConflictError{Resource: "join_request", Reason: "user already has an open request for this group"}
	}

	req, err := joinrequest.NewRequest(groupID, userID, fullName, phoneNumber, chosenNumber, accountNumber, bankName, accountName)
	if err != nil {
		return nil, err
	}
	if err := s.requestRepo.Create(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// ListPending retrieves the open requests for the admin's review
func (s *RequestServiceImpl) ListPending(ctx context.Context, groupID, adminID uuid.UUID) ([]*joinrequest.Request, error) {
	g, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g.AdminID != adminID {
		return nil, ErrNotGroupAdmin
	}
	return s.requestRepo.ListPendingByGroup(ctx, groupID)
}

// Approve admits the requester. The slot claim and the request's status
// change run in one transaction, so a raced slot rolls everything back and
// the request stays pending for the admin to re-review.
func (s *RequestServiceImpl) Approve(ctx context.Context, requestID, adminID uuid.UUID) error {
	req, g, err := s.loadForReview(ctx, requestID, adminID)
	if err != nil {
		return err
	}

	member := group.Member{
		UserID:        req.UserID,
		FullName:      req.FullName,
		ChosenNumber:  req.ChosenNumber,
		BankName:      req.BankName,
		AccountName:   req.AccountName,
		AccountNumber: req.AccountNumber,
		JoinedAt:      req.CreatedAt,
	}

	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.groupRepo.WithTx(tx).AddMember(ctx, g.ID, member); err != nil {
			return err
		}
		return s.requestRepo.WithTx(tx).UpdateStatus(ctx, requestID, joinrequest.StatusApproved)
	})
	if err != nil {
		return err
	}

	event := shared.NewEngineEvent(shared.EngineEventMemberJoined, g.ID,
		fmt.Sprintf("%s joined %q with payout slot %d", member.FullName, g.Name, member.ChosenNumber))
	event.UserID = &member.UserID
	if pubErr := s.events.Publish(ctx, event); pubErr != nil {
		s.logger.Warn("failed to publish member joined event", "group_id", g.ID.String(), "error", pubErr)
	}
	return nil
}

// Reject closes the request without admitting the requester
func (s *RequestServiceImpl) Reject(ctx context.Context, requestID, adminID uuid.UUID) error {
	req, _, err := s.loadForReview(ctx, requestID, adminID)
	if err != nil {
		return err
	}
	return s.requestRepo.UpdateStatus(ctx, req.ID, joinrequest.StatusRejected)
}

func (s *RequestServiceImpl) loadForReview(ctx context.Context, requestID, adminID uuid.UUID) (*joinrequest.Request, *group.Group, error) {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}
	if req.Status != joinrequest.StatusPending {
		return nil, nil, shared.ConflictError{
			Resource: "join_request",
			Reason:   fmt.Sprintf("request has already been %s", req.Status),
		}
	}

	g, err := s.groupRepo.GetByID(ctx, req.GroupID)
	if err != nil {
		return nil, nil, err
	}
	if g.AdminID != adminID {
		return nil, nil, ErrNotGroupAdmin
	}
	return req, g, nil
}
