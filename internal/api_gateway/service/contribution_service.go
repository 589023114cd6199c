package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/esusu-circle-engine/internal/domain/alert"
	"github.com/esusu-circle-engine/internal/domain/contribution"
	"github.com/esusu-circle-engine/internal/domain/group"
	"github.com/esusu-circle-engine/internal/domain/shared"
	"github.com/esusu-circle-engine/internal/engine/ledger"
	"github.com/esusu-circle-engine/internal/platform/payments"
	"github.com/google/uuid"
)

// ContributionServiceImpl implements the ContributionService interface
type ContributionServiceImpl struct {
	entryRepo contribution.Repository
	groupRepo group.Repository
	alertRepo alert.Repository
	reader    *ledger.Reader
	verifier  payments.Verifier
	events    EventPublisher
	logger    *slog.Logger
}

// NewContributionService creates a new contribution service
func NewContributionService(logger *slog.Logger, entryRepo contribution.Repository, groupRepo group.Repository,
	alertRepo alert.Repository, reader *ledger.Reader, verifier payments.Verifier, events EventPublisher) ContributionService {
	return &ContributionServiceImpl{
		entryRepo: entryRepo,
		groupRepo: groupRepo,
		alertRepo: alertRepo,
		reader:    reader,
		verifier:  verifier,
		events:    events,
		logger:    logger,
	}
}

// LogTransfer appends a bank-transfer contribution to the group's ledger.
// A reference is generated when the caller does not supply one.
func (s *ContributionServiceImpl) LogTransfer(ctx context.Context, groupID, userID uuid.UUID, amount int64, reference string) (*contribution.Entry, error) {
	g, err := s.memberGroup(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if reference == "" {
		reference = fmt.Sprintf("TRF-%s", uuid.New())
	}
	return s.append(ctx, g, userID, amount, contribution.MethodTransfer, reference)
}

// LogCard verifies the charge with the gateway before anything touches the
// ledger. Order matters: an unverifiable or short charge must fail before the
// duplicate-reference check, so nothing is ever recorded on uncertainty.
func (s *ContributionServiceImpl) LogCard(ctx context.Context, groupID, userID uuid.UUID, amount int64, reference string) (*contribution.Entry, error) {
	g, err := s.memberGroup(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}

	verification, err := s.verifier.Verify(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !verification.Succeeded() {
		return nil, shared.ValidationError{
			Field:  "reference",
			Reason: fmt.Sprintf("card charge %s was not successful", reference),
		}
	}
	if verification.Amount != amount {
		return nil, shared.ValidationError{
			Field: "amount",
			Reason: fmt.Sprintf("charged amount %s does not match declared amount %s",
				shared.FormatNaira(verification.Amount), shared.FormatNaira(amount)),
		}
	}

	return s.append(ctx, g, userID, amount, contribution.MethodCard, reference)
}

// ListByGroup retrieves a paginated ledger slice plus the total entry count
func (s *ContributionServiceImpl) ListByGroup(ctx context.Context, groupID uuid.UUID, userID *uuid.UUID, page, perPage int) ([]*contribution.Entry, int64, error) {
	filter := contribution.Filter{GroupID: groupID, UserID: userID}

	total, err := s.entryRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	entries, err := s.entryRepo.List(ctx, filter, perPage, offset)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// Balance reports pooled group funds, or one member's lifetime contribution
// total when userID is set
func (s *ContributionServiceImpl) Balance(ctx context.Context, groupID uuid.UUID, userID *uuid.UUID) (int64, error) {
	if _, err := s.groupRepo.GetByID(ctx, groupID); err != nil {
		return 0, err
	}
	if userID != nil {
		return s.reader.MemberContributed(ctx, groupID, *userID)
	}
	return s.reader.TotalPooled(ctx, groupID)
}

func (s *ContributionServiceImpl) memberGroup(ctx context.Context, groupID, userID uuid.UUID) (*group.Group, error) {
	g, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !g.HasMember(userID) {
		return nil, shared.ValidationError{Field: "user_id", Reason: "user is not a member of this group"}
	}
	return g, nil
}

func (s *ContributionServiceImpl) append(ctx context.Context, g *group.Group, userID uuid.UUID, amount int64,
	method contribution.Method, reference string) (*contribution.Entry, error) {

	entry, err := contribution.NewContribution(g.ID, userID, amount, method, reference)
	if err != nil {
		return nil, err
	}
	if err := s.entryRepo.Append(ctx, entry); err != nil {
		return nil, err
	}

	// Derived records after the entry is durable. Neither failing rolls the
	// contribution back.
	notice := alert.NewMemberAlert(g.ID, userID,
		alert.TypeNotice, fmt.Sprintf("Contribution of %s received for %q", shared.FormatNaira(amount), g.Name))
	if alertErr := s.alertRepo.Create(ctx, notice); alertErr != nil {
		s.logger.Warn("failed to create contribution notice", "group_id", g.ID.String(), "error", alertErr)
	}

	event := shared.NewEngineEvent(shared.EngineEventContributionLogged, g.ID,
		fmt.Sprintf("Contribution of %s recorded for %q", shared.FormatNaira(amount), g.Name))
	event.UserID = &userID
	event.Amount = amount
	if pubErr := s.events.Publish(ctx, event); pubErr != nil {
		s.logger.Warn("failed to publish contribution event", "group_id", g.ID.String(), "error", pubErr)
	}
	return entry, nil
}
