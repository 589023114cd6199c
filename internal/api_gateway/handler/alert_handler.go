package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/esusu-circle-engine/internal/api_gateway/service"
	"github.com/esusu-circle-engine/internal/domain/alert"
)

// AlertHandler handles HTTP requests for alert operations
type AlertHandler struct {
	alertService service.AlertService
	logger       *slog.Logger
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(logger *slog.Logger, alertService service.AlertService) *AlertHandler {
	return &AlertHandler{
		alertService: alertService,
		logger:       logger,
	}
}

// List retrieves a group's alerts, newest first
func (h *AlertHandler) List(c *gin.Context) {
	groupID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	alerts, err := h.alertService.ListByGroup(c.Request.Context(), groupID, params.Page, params.PerPage)
	if err != nil {
		h.logger.Error("Failed to list alerts", "group_id", groupID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]AlertResponse, 0, len(alerts))
	for _, a := range alerts {
		responses = append(responses, mapAlertToResponse(a))
	}
	RespondOK(c, responses)
}

// MarkRead flags an alert as read
func (h *AlertHandler) MarkRead(c *gin.Context) {
	alertID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.alertService.MarkRead(c.Request.Context(), alertID); err != nil {
		if errors.Is(err, alert.ErrAlertNotFound{}) {
			RespondNotFound(c, "Alert not found")
			return
		}
		h.logger.Error("Failed to mark alert read", "alert_id", alertID.String(), "error", err)
		RespondInternalError(c)
		return
	}
	RespondNoContent(c)
}

// mapAlertToResponse maps an alert entity to its response DTO
func mapAlertToResponse(a *alert.Alert) AlertResponse {
	resp := AlertResponse{
		ID:        a.ID.String(),
		GroupID:   a.GroupID.String(),
		Message:   a.Message,
		Type:      string(a.Type),
		Read:      a.Read,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
	}
	if a.UserID != nil {
		resp.UserID = a.UserID.String()
	}
	return resp
}
