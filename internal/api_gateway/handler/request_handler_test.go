package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/esusu-circle-engine/internal/api_gateway/service"
	"github.com/esusu-circle-engine/internal/domain/joinrequest"
	"github.com/esusu-circle-engine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRequestService struct {
	mock.Mock
}

func (m *MockRequestService) Submit(ctx context.Context, groupID, userID uuid.UUID, fullName, phoneNumber string,
	chosenNumber int, accountNumber, bankName, accountName string) (*joinrequest.Request, error) {
	args := m.Called(ctx, groupID, userID, fullName, phoneNumber, chosenNumber, accountNumber, bankName, accountName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*joinrequest.Request), args.Error(1)
}

func (m *MockRequestService) ListPending(ctx context.Context, groupID, adminID uuid.UUID) ([]*joinrequest.Request, error) {
	args := m.Called(ctx, groupID, adminID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*joinrequest.Request), args.Error(1)
}

func (m *MockRequestService) Approve(ctx context.Context, requestID, adminID uuid.UUID) error {
	args := m.Called(ctx, requestID, adminID)
	return args.Error(0)
}

func (m *MockRequestService) Reject(ctx context.Context, requestID, adminID uuid.UUID) error {
	args := m.Called(ctx, requestID, adminID)
	return args.Error(0)
}

func TestRequestHandler_Submit(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	groupID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockRequestService)
		handler := NewRequestHandler(logger, mockService)

		userID := uuid.New()
		expected, err := joinrequest.NewRequest(groupID, userID, "Bola Ade", "+2348023456789", 2, "0222222222", "UBA", "Bola Ade")
		require.NoError(t, err)
		mockService.On("Submit", mock.Anything, groupID, userID, "Bola Ade", "+2348023456789", 2, "0222222222", "UBA", "Bola Ade").
			Return(expected, nil)

		router := setupTestRouter()
		router.POST("/groups/:id/requests", handler.Submit)

		reqBody := SubmitJoinRequest{
			UserID:        userID.String(),
			FullName:      "Bola Ade",
			PhoneNumber:   "+2348023456789",
			ChosenNumber:  2,
			AccountNumber: "0222222222",
			BankName:      "UBA",
			AccountName:   "Bola Ade",
		}
		jsonBody, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/groups/"+groupID.String()+"/requests", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var topLevelResponse Response
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &topLevelResponse))
		dataBytes, err := json.Marshal(topLevelResponse.Data)
		require.NoError(t, err)
		var body JoinRequestResponse
		require.NoError(t, json.Unmarshal(dataBytes, &body))

		assert.Equal(t, expected.ID.String(), body.ID)
		assert.Equal(t, string(joinrequest.StatusPending), body.Status)
		mockService.AssertExpectations(t)
	})

	t.Run("SlotTaken", func(t *testing.T) {
		mockService := new(MockRequestService)
		handler := NewRequestHandler(logger, mockService)

		mockService.On("Submit", mock.Anything, groupID, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, shared.ConflictError{Resource: "payout_slot", Reason: "payout slot 2 is already taken"})

		router := setupTestRouter()
		router.POST("/groups/:id/requests", handler.Submit)

		reqBody := SubmitJoinRequest{
			UserID:        uuid.New().String(),
			FullName:      "Bola Ade",
			PhoneNumber:   "+2348023456789",
			ChosenNumber:  2,
			AccountNumber: "0222222222",
			BankName:      "UBA",
			AccountName:   "Bola Ade",
		}
		jsonBody, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/groups/"+groupID.String()+"/requests", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})
}

func TestRequestHandler_Review(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	requestID := uuid.New()
	adminID := uuid.New()

	t.Run("ApproveSuccess", func(t *testing.T) {
		mockService := new(MockRequestService)
		handler := NewRequestHandler(logger, mockService)

		mockService.On("Approve", mock.Anything, requestID, adminID).Return(nil)

		router := setupTestRouter()
		router.POST("/requests/:id/approve", handler.Approve)

		req, _ := http.NewRequest(http.MethodPost, "/requests/"+requestID.String()+"/approve?admin_id="+adminID.String(), nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("ApproveByNonAdmin", func(t *testing.T) {
		mockService := new(MockRequestService)
		handler := NewRequestHandler(logger, mockService)

		mockService.On("Approve", mock.Anything, requestID, adminID).Return(service.ErrNotGroupAdmin)

		router := setupTestRouter()
		router.POST("/requests/:id/approve", handler.Approve)

		req, _ := http.NewRequest(http.MethodPost, "/requests/"+requestID.String()+"/approve?admin_id="+adminID.String(), nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("RejectMissingAdminQuery", func(t *testing.T) {
		mockService := new(MockRequestService)
		handler := NewRequestHandler(logger, mockService)

		router := setupTestRouter()
		router.POST("/requests/:id/reject", handler.Reject)

		req, _ := http.NewRequest(http.MethodPost, "/requests/"+requestID.String()+"/reject", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "Reject", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("RejectUnknownRequest", func(t *testing.T) {
		mockService := new(MockRequestService)
		handler := NewRequestHandler(logger, mockService)

		mockService.On("Reject", mock.Anything, requestID, adminID).
			Return(joinrequest.ErrRequestNotFound{RequestID: requestID})

		router := setupTestRouter()
		router.POST("/requests/:id/reject", handler.Reject)

		req, _ := http.NewRequest(http.MethodPost, "/requests/"+requestID.String()+"/reject?admin_id="+adminID.String(), nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
