package service

import (
	"context"

	"github.com/esusu-circle-engine/internal/domain/alert"
	"github.com/google/uuid"
)

// AlertServiceImpl implements the AlertService interface
type AlertServiceImpl struct {
	alertRepo alert.Repository
}

// NewAlertService creates a new alert service
func NewAlertService(alertRepo alert.Repository) AlertService {
	return &AlertServiceImpl{
		alertRepo: alertRepo,
	}
}

// ListByGroup retrieves a paginated list of a group's alerts, newest first
func (s *AlertServiceImpl) ListByGroup(ctx context.Context, groupID uuid.UUID, page, perPage int) ([]*alert.Alert, error) {
	offset := (page - 1) * perPage
	return s.alertRepo.ListByGroup(ctx, groupID, perPage, offset)
}

// MarkRead flags an alert as read
func (s *AlertServiceImpl) MarkRead(ctx context.Context, id uuid.UUID) error {
	return s.alertRepo.MarkRead(ctx, id)
}
