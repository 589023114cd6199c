package service

import (
	"context"
	"time"

	"github.com/esusu-circle-engine/internal/domain/alert"
	"github.com/esusu-circle-engine/internal/domain/contribution"
	"github.com/esusu-circle-engine/internal/domain/group"
	"github.com/esusu-circle-engine/internal/domain/joinrequest"
	"github.com/esusu-circle-engine/internal/domain/shared"
	"github.com/esusu-circle-engine/internal/platform/payments"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

// MockGroupRepo mocks group.Repository
type MockGroupRepo struct {
	mock.Mock
}

func (m *MockGroupRepo) Create(ctx context.Context, g *group.Group) error {
	args := m.Called(ctx, g)
	return args.Error(0)
}

func (m *MockGroupRepo) GetByID(ctx context.Context, id uuid.UUID) (*group.Group, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*group.Group), args.Error(1)
}

func (m *MockGroupRepo) ListByStatus(ctx context.Context, statuses ...group.Status) ([]*group.Group, error) {
	args := m.Called(ctx, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*group.Group), args.Error(1)
}

func (m *MockGroupRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*group.Group, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*group.Group), args.Error(1)
}

func (m *MockGroupRepo) ListAll(ctx context.Context) ([]*group.Group, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*group.Group), args.Error(1)
}

func (m *MockGroupRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to group.Status) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}

func (m *MockGroupRepo) AddMember(ctx context.Context, groupID uuid.UUID, member group.Member) error {
	args := m.Called(ctx, groupID, member)
	return args.Error(0)
}

func (m *MockGroupRepo) WithTx(tx pgx.Tx) group.Repository {
	return m
}

// MockRequestRepo mocks joinrequest.Repository
type MockRequestRepo struct {
	mock.Mock
}

func (m *MockRequestRepo) Create(ctx context.Context, r *joinrequest.Request) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*joinrequest.Request, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*joinrequest.Request), args.Error(1)
}

func (m *MockRequestRepo) ListPendingByGroup(ctx context.Context, groupID uuid.UUID) ([]*joinrequest.Request, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*joinrequest.Request), args.Error(1)
}

func (m *MockRequestRepo) GetPendingByGroupAndUser(ctx context.Context, groupID, userID uuid.UUID) (*joinrequest.Request, error) {
	args := m.Called(ctx, groupID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*joinrequest.Request), args.Error(1)
}

func (m *MockRequestRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status joinrequest.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockRequestRepo) WithTx(tx pgx.Tx) joinrequest.Repository {
	return m
}

// MockEntryRepo mocks contribution.Repository
type MockEntryRepo struct {
	mock.Mock
}

func (m *MockEntryRepo) Append(ctx context.Context, entry *contribution.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockEntryRepo) GetByReference(ctx context.Context, reference string) (*contribution.Entry, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*contribution.Entry), args.Error(1)
}

func (m *MockEntryRepo) List(ctx context.Context, filter contribution.Filter, limit, offset int) ([]*contribution.Entry, error) {
	args := m.Called(ctx, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*contribution.Entry), args.Error(1)
}

func (m *MockEntryRepo) SumAmount(ctx context.Context, filter contribution.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockEntryRepo) Count(ctx context.Context, filter contribution.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

// MockAlertRepo mocks alert.Repository
type MockAlertRepo struct {
	mock.Mock
}

func (m *MockAlertRepo) Create(ctx context.Context, a *alert.Alert) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAlertRepo) ListByGroup(ctx context.Context, groupID uuid.UUID, limit, offset int) ([]*alert.Alert, error) {
	args := m.Called(ctx, groupID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*alert.Alert), args.Error(1)
}

func (m *MockAlertRepo) MarkRead(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAlertRepo) ExistsSince(ctx context.Context, groupID uuid.UUID, userID *uuid.UUID, alertType alert.Type, since time.Time) (bool, error) {
	args := m.Called(ctx, groupID, userID, alertType, since)
	return args.Bool(0), args.Error(1)
}

// MockVerifier mocks payments.Verifier
type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, reference string) (*payments.Verification, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.Verification), args.Error(1)
}

// MockPublisher mocks EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event *shared.EngineEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockTxRunner runs the transaction function directly with a nil transaction
type MockTxRunner struct {
	mock.Mock
}

func (m *MockTxRunner) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	args := m.Called(ctx)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(nil)
}
