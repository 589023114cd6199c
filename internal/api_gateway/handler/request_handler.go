package handler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/esusu-circle-engine/internal/api_gateway/service"
	"github.com/esusu-circle-engine/internal/domain/group"
	"github.com/esusu-circle-engine/internal/domain/joinrequest"
	"github.com/esusu-circle-engine/internal/domain/shared"
)

// RequestHandler handles HTTP requests for join request operations
type RequestHandler struct {
	requestService service.RequestService
	logger         *slog.Logger
}

// NewRequestHandler creates a new join request handler
func NewRequestHandler(logger *slog.Logger, requestService service.RequestService) *RequestHandler {
	return &RequestHandler{
		requestService: requestService,
		logger:         logger,
	}
}

// Submit files a join request for a payout slot in a group
func (h *RequestHandler) Submit(c *gin.Context) {
	groupID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req SubmitJoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		RespondBadRequest(c, "Invalid user ID")
		return
	}

	request, err := h.requestService.Submit(c.Request.Context(), groupID, userID,
		req.FullName, req.PhoneNumber, req.ChosenNumber, req.AccountNumber, req.BankName, req.AccountName)
	if err != nil {
		h.respondServiceError(c, err, "Failed to submit join request")
		return
	}

	RespondCreated(c, mapRequestToResponse(request))
}

// ListPending retrieves the open requests for the admin's review.
// The requesting admin is identified by the admin_id query parameter.
func (h *RequestHandler) ListPending(c *gin.Context) {
	groupID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	adminID, ok := parseAdminQuery(c)
	if !ok {
		return
	}

	requests, err := h.requestService.ListPending(c.Request.Context(), groupID, adminID)
	if err != nil {
		h.respondServiceError(c, err, "Failed to list join requests")
		return
	}

	responses := make([]JoinRequestResponse, 0, len(requests))
	for _, r := range requests {
		responses = append(responses, mapRequestToResponse(r))
	}
	RespondOK(c, responses)
}

// Approve admits the requester as a group member
func (h *RequestHandler) Approve(c *gin.Context) {
	h.review(c, h.requestService.Approve)
}

// Reject closes the request without admitting the requester
func (h *RequestHandler) Reject(c *gin.Context) {
	h.review(c, h.requestService.Reject)
}

func (h *RequestHandler) review(c *gin.Context, decide func(ctx context.Context, requestID, adminID uuid.UUID) error) {
	requestID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	adminID, ok := parseAdminQuery(c)
	if !ok {
		return
	}

	if err := decide(c.Request.Context(), requestID, adminID); err != nil {
		h.respondServiceError(c, err, "Failed to review join request")
		return
	}
	RespondNoContent(c)
}

func (h *RequestHandler) respondServiceError(c *gin.Context, err error, logMessage string) {
	var validationErr shared.ValidationError
	var conflictErr shared.ConflictError
	switch {
	case errors.Is(err, service.ErrNotGroupAdmin):
		RespondForbidden(c, service.ErrNotGroupAdmin.Error())
	case errors.Is(err, group.ErrGroupNotFound{}):
		RespondNotFound(c, "Group not found")
	case errors.Is(err, joinrequest.ErrRequestNotFound{}):
		RespondNotFound(c, "Join request not found")
	case errors.As(err, &validationErr):
		RespondBadRequest(c, validationErr.Error())
	case errors.As(err, &conflictErr):
		RespondConflict(c, conflictErr.Reason)
	default:
		h.logger.Error(logMessage, "error", err)
		RespondInternalError(c)
	}
}

func parseAdminQuery(c *gin.Context) (uuid.UUID, bool) {
	adminID, err := uuid.Parse(c.Query("admin_id"))
	if err != nil {
		RespondBadRequest(c, "Invalid or missing admin_id query parameter")
		return uuid.Nil, false
	}
	return adminID, true
}

// mapRequestToResponse maps a join request entity to its response DTO
func mapRequestToResponse(r *joinrequest.Request) JoinRequestResponse {
	return JoinRequestResponse{
		ID:           r.ID.String(),
		GroupID:      r.GroupID.String(),
		UserID:       r.UserID.String(),
		FullName:     r.FullName,
		ChosenNumber: r.ChosenNumber,
		Status:       string(r.Status),
		CreatedAt:    r.CreatedAt.Format(time.RFC3339),
	}
}
