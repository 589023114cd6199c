package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/esusu-circle-engine/internal/api_gateway/service"
	"github.com/esusu-circle-engine/internal/domain/group"
	"github.com/esusu-circle-engine/internal/domain/shared"
)

// GroupHandler handles HTTP requests for group operations
type GroupHandler struct {
	groupService service.GroupService
	logger       *slog.Logger
}

// NewGroupHandler creates a new group handler
func NewGroupHandler(logger *slog.Logger, groupService service.GroupService) *GroupHandler {
	return &GroupHandler{
		groupService: groupService,
		logger:       logger,
	}
}

// Create handles creation of a new savings group
func (h *GroupHandler) Create(c *gin.Context) {
	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	adminID, err := uuid.Parse(req.AdminID)
	if err != nil {
		RespondBadRequest(c, "Invalid admin ID")
		return
	}
	startingDate, err := time.Parse(time.RFC3339, req.StartingDate)
	if err != nil {
		RespondBadRequest(c, "Invalid starting date, expected RFC 3339")
		return
	}

	g, err := h.groupService.CreateGroup(c.Request.Context(), service.CreateGroupParams{
		AdminID:            adminID,
		AdminName:          req.AdminName,
		Name:               req.Name,
		PayoutAmount:       req.PayoutAmount,
		ContributionAmount: req.ContributionAmount,
		StartingDate:       startingDate,
		PayoutInterval:     req.PayoutInterval,
		NumberOfMembers:    req.NumberOfMembers,
		AdminChosenNumber:  req.AdminChosenNumber,
		PhoneNumber:        req.PhoneNumber,
		CorporateAccount:   req.CorporateAccount,
		BankName:           req.BankName,
		AccountName:        req.AccountName,
	})
	if err != nil {
		var validationErr shared.ValidationError
		if errors.As(err, &validationErr) {
			RespondBadRequest(c, validationErr.Error())
			return
		}
		h.logger.Error("Failed to create group", "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, mapGroupToResponse(g))
}

// GetByID retrieves a group by its ID, returning 404 if not found. When a
// user_id query is supplied the caller must be a member of the group.
func (h *GroupHandler) GetByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	userID, ok := parseOptionalUserQuery(c)
	if !ok {
		return
	}

	g, err := h.groupService.GetGroupByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, group.ErrGroupNotFound{}) {
			RespondNotFound(c, "Group not found")
			return
		}
		h.logger.Error("Failed to get group", "id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}
	if userID != nil && !g.HasMember(*userID) {
		RespondForbidden(c, "Only group members can view this group")
		return
	}

	RespondOK(c, mapGroupToResponse(g))
}

// List retrieves all savings groups
func (h *GroupHandler) List(c *gin.Context) {
	groups, err := h.groupService.ListGroups(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list groups", "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]GroupResponse, 0, len(groups))
	for _, g := range groups {
		responses = append(responses, mapGroupToResponse(g))
	}
	RespondOK(c, responses)
}

// ListByUser retrieves the groups a user belongs to
func (h *GroupHandler) ListByUser(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	groups, err := h.groupService.ListGroupsByUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list groups for user", "user_id", userID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]GroupResponse, 0, len(groups))
	for _, g := range groups {
		responses = append(responses, mapGroupToResponse(g))
	}
	RespondOK(c, responses)
}

// CycleStatus returns the live cycle view of a group: current cycle, funding
// window, pooled total, next recipient, and outstanding shortfalls
func (h *GroupHandler) CycleStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	status, err := h.groupService.GetCycleStatus(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, group.ErrGroupNotFound{}) {
			RespondNotFound(c, "Group not found")
			return
		}
		h.logger.Error("Failed to compute cycle status", "group_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapCycleStatusToResponse(status))
}

// parseIDParam parses a UUID path parameter, responding 400 on failure
func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	idParam := c.Param(name)
	id, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid "+name+" parameter")
		return uuid.Nil, false
	}
	return id, true
}

// mapGroupToResponse maps a group entity to a group response DTO
func mapGroupToResponse(g *group.Group) GroupResponse {
	members := make([]MemberResponse, 0, len(g.Members))
	for _, m := range g.Members {
		members = append(members, MemberResponse{
			UserID:       m.UserID.String(),
			FullName:     m.FullName,
			ChosenNumber: m.ChosenNumber,
			JoinedAt:     m.JoinedAt.Format(time.RFC3339),
		})
	}

	return GroupResponse{
		ID:                 g.ID.String(),
		AdminID:            g.AdminID.String(),
		Name:               g.Name,
		PayoutAmount:       g.PayoutAmount,
		ContributionAmount: g.ContributionAmount,
		StartingDate:       g.StartingDate.Format(time.RFC3339),
		PayoutInterval:     g.PayoutInterval,
		NumberOfMembers:    g.NumberOfMembers,
		Status:             string(g.Status),
		Members:            members,
		AvailableNumbers:   g.AvailableNumbers,
		CreatedAt:          g.CreatedAt.Format(time.RFC3339),
	}
}

// mapCycleStatusToResponse maps the cycle view to its response DTO
func mapCycleStatusToResponse(status *service.CycleStatus) CycleStatusResponse {
	resp := CycleStatusResponse{
		GroupID:     status.GroupID.String(),
		Status:      string(status.Status),
		CycleNumber: status.CycleNumber,
		Complete:    status.Complete,
		TotalPooled: status.TotalPooled,
		Shortfalls:  make([]ShortfallResponse, 0, len(status.Shortfalls)),
	}
	if !status.Complete {
		resp.WindowStart = status.WindowStart.Format(time.RFC3339)
		resp.Deadline = status.Deadline.Format(time.RFC3339)
	}
	if status.NextRecipient != nil {
		resp.NextRecipient = &MemberResponse{
			UserID:       status.NextRecipient.UserID.String(),
			FullName:     status.NextRecipient.FullName,
			ChosenNumber: status.NextRecipient.ChosenNumber,
			JoinedAt:     status.NextRecipient.JoinedAt.Format(time.RFC3339),
		}
	}
	for _, s := range status.Shortfalls {
		resp.Shortfalls = append(resp.Shortfalls, ShortfallResponse{
			UserID:    s.UserID.String(),
			FullName:  s.FullName,
			Slot:      s.Slot,
			Required:  s.Required,
			Paid:      s.Paid,
			Shortfall: s.Shortfall,
		})
	}
	return resp
}
