package service

import (
	"context"

	"github.com/esusu-circle-engine/internal/domain/group"
	"github.com/esusu-circle-engine/internal/engine/compliance"
	"github.com/esusu-circle-engine/internal/engine/cycle"
	"github.com/esusu-circle-engine/internal/engine/ledger"
	"github.com/google/uuid"
)

// GroupServiceImpl implements the GroupService interface
type GroupServiceImpl struct {
	groupRepo group.Repository
	reader    *ledger.Reader
	evaluator *compliance.Evaluator
}

// NewGroupService creates a new group service
func NewGroupService(groupRepo group.Repository, reader *ledger.Reader, evaluator *compliance.Evaluator) GroupService {
	return &GroupServiceImpl{
		groupRepo: groupRepo,
		reader:    reader,
		evaluator: evaluator,
	}
}

// CreateGroup creates a Pending group with the admin holding their chosen slot
func (s *GroupServiceImpl) CreateGroup(ctx context.Context, params CreateGroupParams) (*group.Group, error) {
	g, err := group.NewGroup(
		params.AdminID,
		params.AdminName,
		params.Name,
		params.PayoutAmount,
		params.ContributionAmount,
		params.StartingDate,
		params.PayoutInterval,
		params.NumberOfMembers,
		params.AdminChosenNumber,
	)
	if err != nil {
		return nil, err
	}
	g.PhoneNumber = params.PhoneNumber
	g.CorporateAccount = params.CorporateAccount
	g.BankName = params.BankName
	g.AccountName = params.AccountName

	if err := s.groupRepo.Create(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// GetGroupByID retrieves a group by its ID
func (s *GroupServiceImpl) GetGroupByID(ctx context.Context, id uuid.UUID) (*group.Group, error) {
	return s.groupRepo.GetByID(ctx, id)
}

// ListGroups retrieves every group
func (s *GroupServiceImpl) ListGroups(ctx context.Context) ([]*group.Group, error) {
	return s.groupRepo.ListAll(ctx)
}

// ListGroupsByUser retrieves the groups the user belongs to
func (s *GroupServiceImpl) ListGroupsByUser(ctx context.Context, userID uuid.UUID) ([]*group.Group, error) {
	return s.groupRepo.ListByUser(ctx, userID)
}

// GetCycleStatus computes the live cycle view for a group: the read-only
// counterpart of what the payout sweep evaluates.
func (s *GroupServiceImpl) GetCycleStatus(ctx context.Context, groupID uuid.UUID) (*CycleStatus, error) {
	g, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}

	sched := cycle.ForGroup(g)
	if err := sched.Validate(); err != nil {
		return nil, err
	}

	executed, err := s.reader.ExecutedPayoutCount(ctx, groupID)
	if err != nil {
		return nil, err
	}
	cycleNumber := sched.CycleNumber(executed)

	pooled, err := s.reader.TotalPooled(ctx, groupID)
	if err != nil {
		return nil, err
	}

	status := &CycleStatus{
		GroupID:     g.ID,
		Status:      g.Status,
		CycleNumber: cycleNumber,
		Complete:    sched.IsComplete(cycleNumber),
		TotalPooled: pooled,
	}
	if status.Complete {
		return status, nil
	}

	status.WindowStart, status.Deadline = sched.Window(cycleNumber)

	recipient, err := cycle.MemberForCycle(g, cycleNumber)
	if err != nil {
		return nil, err
	}
	status.NextRecipient = recipient

	result, err := s.evaluator.Evaluate(ctx, g, status.WindowStart, status.Deadline, g.ContributionAmount)
	if err != nil {
		return nil, err
	}
	status.Shortfalls = result.Shortfalls

	return status, nil
}
