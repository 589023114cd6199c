package payout

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/esusu-circle-engine/internal/domain/alert"
	"github.com/esusu-circle-engine/internal/domain/contribution"
	"github.com/esusu-circle-engine/internal/domain/group"
	"github.com/esusu-circle-engine/internal/domain/shared"
	"github.com/esusu-circle-engine/internal/engine/compliance"
	"github.com/esusu-circle-engine/internal/engine/cycle"
	"github.com/esusu-circle-engine/internal/engine/ledger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEntryRepo for testing
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

// MockAlertRepo for testing
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

// MockPublisher for testing
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event *shared.EngineEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type gateFixture struct {
	gate    *Gate
	entries *MockEntryRepo
	alerts  *MockAlertRepo
	events  *MockPublisher
	group   *group.Group
}

// newGateFixture builds a three-member group starting on the given day with a
// 30-day interval, 300k payout, 100k contribution (minor units).
func newGateFixture(t *testing.T, startingDate time.Time) *gateFixture {
	t.Helper()
	g, err := group.NewGroup(uuid.New(), "Ada Obi", "Market Women Circle", 300_000, 100_000, startingDate, 30, 3, 1)
	require.NoError(t, err)
	require.NoError(t, g.AddMember(group.Member{UserID: uuid.New(), FullName: "Bola Ade", ChosenNumber: 2}))
	require.NoError(t, g.AddMember(group.Member{UserID: uuid.New(), FullName: "Chi Eze", ChosenNumber: 3}))
	g.Activate(startingDate)

	entries := &MockEntryRepo{}
	alerts := &MockAlertRepo{}
	events := &MockPublisher{}
	logger := newTestLogger()
	reader := ledger.NewReader(logger, entries)
	evaluator := compliance.NewEvaluator(logger, reader)

	return &gateFixture{
		gate:    NewGate(logger, reader, evaluator, entries, alerts, events),
		entries: entries,
		alerts:  alerts,
		events:  events,
		group:   g,
	}
}

func (f *gateFixture) expectPayoutCount(count int64) {
	f.entries.On("Count", mock.Anything, mock.MatchedBy(func(filter contribution.Filter) bool {
		return len(filter.Methods) == 1 && filter.Methods[0] == contribution.MethodPayout
	})).Return(count, nil)
}

func (f *gateFixture) expectPooled(total int64) {
	f.entries.On("SumAmount", mock.Anything, mock.MatchedBy(func(filter contribution.Filter) bool {
		return filter.UserID == nil
	})).Return(total, nil)
}

func (f *gateFixture) expectMemberPaid(userID uuid.UUID, paid int64) {
	f.entries.On("SumAmount", mock.Anything, mock.MatchedBy(func(filter contribution.Filter) bool {
		return filter.UserID != nil && *filter.UserID == userID
	})).Return(paid, nil)
}

func TestGate_TooEarlyBeforeEndOfDeadlineDay(t *testing.T) {
	// Scenario: starting date is today, zero payouts, zero entries.
	// Before end of today the gate must not even look at funds.
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	f := newGateFixture(t, start)
	f.expectPayoutCount(0)

	now := time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)
	outcome, err := f.gate.Evaluate(context.Background(), f.group, now)
	require.NoError(t, err)

	assert.Equal(t, DecisionTooEarly, outcome.Decision)
	assert.Equal(t, 1, outcome.Cycle)
	assert.Equal(t, cycle.EndOfDay(start), outcome.Deadline)
	f.entries.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	f.alerts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestGate_InsufficientFundsAfterDeadline(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	f := newGateFixture(t, start)
	f.expectPayoutCount(0)
	f.expectPooled(0)
	f.alerts.On("Create", mock.Anything, mock.MatchedBy(func(a *alert.Alert) bool {
		return a.Type == alert.TypeCritical && a.UserID == nil
	})).Return(nil).Once()
	f.events.On("Publish", mock.Anything, mock.Anything).Return(nil)

	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	outcome, err := f.gate.Evaluate(context.Background(), f.group, now)
	require.NoError(t, err)

	assert.Equal(t, DecisionInsufficientFunds, outcome.Decision)
	assert.Zero(t, outcome.Pooled)
	f.entries.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	f.alerts.AssertExpectations(t)
}

func TestGate_GoAppendsPayoutForSlotOne(t *testing.T) {
	// Scenario: all three members contributed 100k each by the deadline
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	f := newGateFixture(t, start)
	f.expectPayoutCount(0)
	f.expectPooled(300_000)
	for i := range f.group.Members {
		f.expectMemberPaid(f.group.Members[i].UserID, 100_000)
	}

	var appended *contribution.Entry
	f.entries.On("Append", mock.Anything, mock.AnythingOfType("*contribution.Entry")).
		Run(func(args mock.Arguments) {
			appended = args.Get(1).(*contribution.Entry)
		}).Return(nil).Once()
	f.alerts.On("Create", mock.Anything, mock.MatchedBy(func(a *alert.Alert) bool {
		return a.Type == alert.TypeNotice && a.UserID != nil
	})).Return(nil).Once()
	f.events.On("Publish", mock.Anything, mock.MatchedBy(func(e *shared.EngineEvent) bool {
		return e.Type == shared.EngineEventPayoutExecuted
	})).Return(nil).Once()

	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	outcome, err := f.gate.Evaluate(context.Background(), f.group, now)
	require.NoError(t, err)

	assert.Equal(t, DecisionGo, outcome.Decision)
	require.NotNil(t, outcome.Recipient)
	assert.Equal(t, 1, outcome.Recipient.ChosenNumber)

	require.NotNil(t, appended)
	assert.Equal(t, int64(-300_000), appended.Amount)
	assert.Equal(t, contribution.MethodPayout, appended.Method)
	assert.Equal(t, contribution.StatusSuccessful, appended.Status)
	assert.Equal(t, contribution.PayoutReference(f.group.ID, 1), appended.Reference)
	assert.Equal(t, f.group.AdminID, appended.UserID)

	f.entries.AssertExpectations(t)
	f.alerts.AssertExpectations(t)
	f.events.AssertExpectations(t)
}

func TestGate_NoncompliantMemberBlocksPayout(t *testing.T) {
	// Scenario: one member contributed only 60k of the required 100k
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	f := newGateFixture(t, start)
	f.expectPayoutCount(0)
	f.expectPooled(300_000)
	f.expectMemberPaid(f.group.Members[0].UserID, 100_000)
	f.expectMemberPaid(f.group.Members[1].UserID, 60_000)
	f.expectMemberPaid(f.group.Members[2].UserID, 100_000)

	f.alerts.On("Create", mock.Anything, mock.MatchedBy(func(a *alert.Alert) bool {
		return a.Type == alert.TypeCritical && a.UserID == nil
	})).Return(nil).Once()
	f.events.On("Publish", mock.Anything, mock.Anything).Return(nil)

	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	outcome, err := f.gate.Evaluate(context.Background(), f.group, now)
	require.NoError(t, err)

	assert.Equal(t, DecisionMembersNoncompliant, outcome.Decision)
	require.Len(t, outcome.Shortfalls, 1)
	assert.Equal(t, int64(40_000), outcome.Shortfalls[0].Shortfall)
	assert.Equal(t, "Bola Ade", outcome.Shortfalls[0].FullName)
	assert.Equal(t, 2, outcome.Shortfalls[0].Slot)

	f.entries.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	f.alerts.AssertNumberOfCalls(t, "Create", 1)
}

func TestGate_SecondEvaluationAfterGoIsTooEarly(t *testing.T) {
	// After cycle 1 pays out, the ledger holds one payout; re-running the gate
	// immediately must land in cycle 2 before its deadline, never pay twice.
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	f := newGateFixture(t, start)
	f.expectPayoutCount(1)

	now := time.Date(2026, 3, 2, 8, 5, 0, 0, time.UTC)
	outcome, err := f.gate.Evaluate(context.Background(), f.group, now)
	require.NoError(t, err)

	assert.Equal(t, DecisionTooEarly, outcome.Decision)
	assert.Equal(t, 2, outcome.Cycle)
	f.entries.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestGate_AlreadyCompleteAfterAllPayouts(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	f := newGateFixture(t, start)
	f.expectPayoutCount(3)

	outcome, err := f.gate.Evaluate(context.Background(), f.group, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, DecisionAlreadyComplete, outcome.Decision)
	assert.Equal(t, 4, outcome.Cycle)
}

func TestGate_LostAppendRaceIsConflict(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	f := newGateFixture(t, start)
	f.expectPayoutCount(0)
	f.expectPooled(300_000)
	for i := range f.group.Members {
		f.expectMemberPaid(f.group.Members[i].UserID, 100_000)
	}
	f.entries.On("Append", mock.Anything, mock.Anything).
		Return(contribution.ErrDuplicateReference{Reference: contribution.PayoutReference(f.group.ID, 1)})

	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	_, err := f.gate.Evaluate(context.Background(), f.group, now)
	require.Error(t, err)

	var conflict shared.ConflictError
	assert.ErrorAs(t, err, &conflict)
	f.alerts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestGate_MissingSlotHolderIsIntegrityFault(t *testing.T) {
	// Slot 1 vacated after creation: the gate must report, not skip silently
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	f := newGateFixture(t, start)
	f.group.Members = f.group.Members[1:] // drop the admin holding slot 1
	f.expectPayoutCount(0)
	f.expectPooled(300_000)
	for i := range f.group.Members {
		f.expectMemberPaid(f.group.Members[i].UserID, 100_000)
	}

	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	_, err := f.gate.Evaluate(context.Background(), f.group, now)
	require.Error(t, err)

	var fault shared.DataIntegrityFault
	assert.ErrorAs(t, err, &fault)
}
