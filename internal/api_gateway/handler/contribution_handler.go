package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/esusu-circle-engine/internal/api_gateway/service"
	"github.com/esusu-circle-engine/internal/domain/contribution"
	"github.com/esusu-circle-engine/internal/domain/group"
	"github.com/esusu-circle-engine/internal/domain/shared"
)

// ContributionHandler handles HTTP requests for ledger operations
type ContributionHandler struct {
	contributionService service.ContributionService
	logger              *slog.Logger
}

// NewContributionHandler creates a new contribution handler
func NewContributionHandler(logger *slog.Logger, contributionService service.ContributionService) *ContributionHandler {
	return &ContributionHandler{
		contributionService: contributionService,
		logger:              logger,
	}
}

// Create records a contribution to a group's ledger. Card contributions are
// verified with the payment gateway first; an unverifiable charge is a 502,
// never a recorded entry.
func (h *ContributionHandler) Create(c *gin.Context) {
	groupID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req LogContributionRequest
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

	var entry *contribution.Entry
	switch contribution.Method(req.Method) {
	case contribution.MethodCard:
		if req.Reference == "" {
			RespondBadRequest(c, "Card contributions require a payment reference")
			return
		}
		entry, err = h.contributionService.LogCard(c.Request.Context(), groupID, userID, req.Amount, req.Reference)
	default:
		entry, err = h.contributionService.LogTransfer(c.Request.Context(), groupID, userID, req.Amount, req.Reference)
	}
	if err != nil {
		var validationErr shared.ValidationError
		var serviceErr shared.ExternalServiceError
		switch {
		case errors.Is(err, group.ErrGroupNotFound{}):
			RespondNotFound(c, "Group not found")
		case errors.Is(err, contribution.ErrDuplicateReference{}):
			RespondConflict(c, "A contribution with this reference already exists")
		case errors.As(err, &validationErr):
			RespondBadRequest(c, validationErr.Error())
		case errors.As(err, &serviceErr):
			h.logger.Error("Payment gateway verification failed", "reference", req.Reference, "error", err)
			RespondBadGateway(c, "Payment verification is currently unavailable")
		default:
			h.logger.Error("Failed to record contribution", "group_id", groupID.String(), "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondCreated(c, mapEntryToResponse(entry))
}

// List retrieves a paginated slice of a group's ledger, newest first
func (h *ContributionHandler) List(c *gin.Context) {
	groupID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	userID, ok := parseOptionalUserQuery(c)
	if !ok {
		return
	}

	entries, total, err := h.contributionService.ListByGroup(c.Request.Context(), groupID, userID, params.Page, params.PerPage)
	if err != nil {
		h.logger.Error("Failed to list contributions", "group_id", groupID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]ContributionResponse, 0, len(entries))
	for _, e := range entries {
		responses = append(responses, mapEntryToResponse(e))
	}
	RespondWithPaginatedData(c, http.StatusOK, responses, params.Page, params.PerPage, int(total))
}

// Balance returns the group's pooled balance, or a single member's lifetime
// contribution total when a user_id query parameter is supplied.
func (h *ContributionHandler) Balance(c *gin.Context) {
	groupID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	userID, ok := parseOptionalUserQuery(c)
	if !ok {
		return
	}

	balance, err := h.contributionService.Balance(c.Request.Context(), groupID, userID)
	if err != nil {
		if errors.Is(err, group.ErrGroupNotFound{}) {
			RespondNotFound(c, "Group not found")
			return
		}
		h.logger.Error("Failed to compute balance", "group_id", groupID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	resp := BalanceResponse{GroupID: groupID.String(), Balance: balance}
	if userID != nil {
		resp.UserID = userID.String()
	}
	RespondWithData(c, http.StatusOK, resp)
}

// parseOptionalUserQuery reads the optional user_id query parameter. A 400 has
// already been written when ok is false.
func parseOptionalUserQuery(c *gin.Context) (*uuid.UUID, bool) {
	raw := c.Query("user_id")
	if raw == "" {
		return nil, true
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		RespondBadRequest(c, "Invalid user ID")
		return nil, false
	}
	return &userID, true
}

// mapEntryToResponse maps a ledger entry to its response DTO
func mapEntryToResponse(e *contribution.Entry) ContributionResponse {
	return ContributionResponse{
		ID:        e.ID.String(),
		GroupID:   e.GroupID.String(),
		UserID:    e.UserID.String(),
		Amount:    e.Amount,
		Method:    string(e.Method),
		Status:    string(e.Status),
		Reference: e.Reference,
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
	}
}
