package service

import (
	"context"
	"testing"
	"time"

	"github.com/esusu-circle-engine/internal/domain/group"
	"github.com/esusu-circle-engine/internal/domain/joinrequest"
	"github.com/esusu-circle-engine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type requestServiceFixture struct {
	svc      RequestService
	groups   *MockGroupRepo
	requests *MockRequestRepo
	tx       *MockTxRunner
	events   *MockPublisher
}

func newRequestServiceFixture() *requestServiceFixture {
	f := &requestServiceFixture{
		groups:   &MockGroupRepo{},
		requests: &MockRequestRepo{},
		tx:       &MockTxRunner{},
		events:   &MockPublisher{},
	}
	f.svc = NewRequestService(newTestLogger(), f.tx, f.requests, f.groups, f.events)
	return f
}

func pendingGroup(t *testing.T) *group.Group {
	t.Helper()
	g, err := group.NewGroup(uuid.New(), "Ada Obi", "Ajo Circle",
		300_000, 100_000, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), 30, 3, 1)
	require.NoError(t, err)
	return g
}

func TestRequestService_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		f := newRequestServiceFixture()
		g := pendingGroup(t)
		userID := uuid.New()

		f.groups.On("GetByID", mock.Anything, g.ID).Return(g, nil)
		f.requests.On("GetPendingByGroupAndUser", mock.Anything, g.ID, userID).Return(nil, nil)
		f.requests.On("Create", mock.Anything, mock.MatchedBy(func(r *joinrequest.Request) bool {
			return r.GroupID == g.ID && r.ChosenNumber == 2 && r.Status == joinrequest.StatusPending
		})).Return(nil).Once()

		req, err := f.svc.Submit(ctx, g.ID, userID, "Bola Ade", "+2348023456789", 2, "0222222222", "UBA", "Bola Ade")
		require.NoError(t, err)
		assert.Equal(t, joinrequest.StatusPending, req.Status)
		f.requests.AssertExpectations(t)
	})

	t.Run("taken slot", func(t *testing.T) {
		f := newRequestServiceFixture()
		g := pendingGroup(t)
		f.groups.On("GetByID", mock.Anything, g.ID).Return(g, nil)

		_, err := f.svc.Submit(ctx, g.ID, uuid.New(), "Bola Ade", "+2348023456789", 1, "0222222222", "UBA", "Bola Ade")
		var conflict shared.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "payout_slot", conflict.Resource)
	})

	t.Run("active group rejects new members", func(t *testing.T) {
		f := newRequestServiceFixture()
		g := pendingGroup(t)
		g.Status = group.StatusActive
		f.groups.On("GetByID", mock.Anything, g.ID).Return(g, nil)

		_, err := f.svc.Submit(ctx, g.ID, uuid.New(), "Bola Ade", "+2348023456789", 2, "0222222222", "UBA", "Bola Ade")
		var validationErr shared.ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})

	t.Run("double application", func(t *testing.T) {
		f := newRequestServiceFixture()
		g := pendingGroup(t)
		userID := uuid.New()
		open, err := joinrequest.NewRequest(g.ID, userID, "Bola Ade", "+2348023456789", 2, "0222222222", "UBA", "Bola Ade")
		require.NoError(t, err)

		f.groups.On("GetByID", mock.Anything, g.ID).Return(g, nil)
		f.requests.On("GetPendingByGroupAndUser", mock.Anything, g.ID, userID).Return(open, nil)

		_, err = f.svc.Submit(ctx, g.ID, userID, "Bola Ade", "+2348023456789", 2, "0222222222", "UBA", "Bola Ade")
		var conflict shared.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "join_request", conflict.Resource)
	})
}

func TestRequestService_Approve(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		f := newRequestServiceFixture()
		g := pendingGroup(t)
		req, err := joinrequest.NewRequest(g.ID, uuid.New(), "Bola Ade", "+2348023456789", 2, "0222222222", "UBA", "Bola Ade")
		require.NoError(t, err)

		f.requests.On("GetByID", mock.Anything, req.ID).Return(req, nil)
		f.groups.On("GetByID", mock.Anything, g.ID).Return(g, nil)
		f.tx.On("ExecuteTx", mock.Anything).Return(nil)
		f.groups.On("AddMember", mock.Anything, g.ID, mock.MatchedBy(func(m group.Member) bool {
			return m.UserID == req.UserID && m.ChosenNumber == 2 && m.BankName == "UBA"
		})).Return(nil).Once()
		f.requests.On("UpdateStatus", mock.Anything, req.ID, joinrequest.StatusApproved).Return(nil).Once()
		f.events.On("Publish", mock.Anything, mock.MatchedBy(func(e *shared.EngineEvent) bool {
			return e.Type == shared.EngineEventMemberJoined && *e.UserID == req.UserID
		})).Return(nil).Once()

		require.NoError(t, f.svc.Approve(ctx, req.ID, g.AdminID))
		f.groups.AssertExpectations(t)
		f.requests.AssertExpectations(t)
		f.events.AssertExpectations(t)
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		f := newRequestServiceFixture()
		g := pendingGroup(t)
		req, err := joinrequest.NewRequest(g.ID, uuid.New(), "Bola Ade", "+2348023456789", 2, "0222222222", "UBA", "Bola Ade")
		require.NoError(t, err)

		f.requests.On("GetByID", mock.Anything, req.ID).Return(req, nil)
		f.groups.On("GetByID", mock.Anything, g.ID).Return(g, nil)

		assert.ErrorIs(t, f.svc.Approve(ctx, req.ID, uuid.New()), ErrNotGroupAdmin)
		f.groups.AssertNotCalled(t, "AddMember", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("raced slot rolls back", func(t *testing.T) {
		f := newRequestServiceFixture()
		g := pendingGroup(t)
		req, err := joinrequest.NewRequest(g.ID, uuid.New(), "Bola Ade", "+2348023456789", 2, "0222222222", "UBA", "Bola Ade")
		require.NoError(t, err)

		f.requests.On("GetByID", mock.Anything, req.ID).Return(req, nil)
		f.groups.On("GetByID", mock.Anything, g.ID).Return(g, nil)
		f.tx.On("ExecuteTx", mock.Anything).Return(nil)
		f.groups.On("AddMember", mock.Anything, g.ID, mock.Anything).
			Return(shared.ConflictError{Resource: "payout_slot", Reason: "slot taken"}).Once()

		err = f.svc.Approve(ctx, req.ID, g.AdminID)
		var conflict shared.ConflictError
		require.ErrorAs(t, err, &conflict)
		f.requests.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
		f.events.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("already reviewed", func(t *testing.T) {
		f := newRequestServiceFixture()
		g := pendingGroup(t)
		req, err := joinrequest.NewRequest(g.ID, uuid.New(), "Bola Ade", "+2348023456789", 2, "0222222222", "UBA", "Bola Ade")
		require.NoError(t, err)
		req.Status = joinrequest.StatusRejected

		f.requests.On("GetByID", mock.Anything, req.ID).Return(req, nil)

		err = f.svc.Approve(ctx, req.ID, g.AdminID)
		var conflict shared.ConflictError
		assert.ErrorAs(t, err, &conflict)
	})
}

func TestRequestService_Reject(t *testing.T) {
	ctx := context.Background()
	f := newRequestServiceFixture()
	g := pendingGroup(t)
	req, err := joinrequest.NewRequest(g.ID, uuid.New(), "Bola Ade", "+2348023456789", 2, "0222222222", "UBA", "Bola Ade")
	require.NoError(t, err)

	f.requests.On("GetByID", mock.Anything, req.ID).Return(req, nil)
	f.groups.On("GetByID", mock.Anything, g.ID).Return(g, nil)
	f.requests.On("UpdateStatus", mock.Anything, req.ID, joinrequest.StatusRejected).Return(nil).Once()

	require.NoError(t, f.svc.Reject(ctx, req.ID, g.AdminID))
	f.requests.AssertExpectations(t)
}
