package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/esusu-circle-engine/internal/domain/alert"
	"github.com/google/uuid"
)

const (
	// AlertCollectionName is the name of the alerts collection in MongoDB
	AlertCollectionName = "alerts"
)

// AlertRepository implements the alert.Repository interface for MongoDB
type AlertRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewAlertRepository creates a new MongoDB alert repository
func NewAlertRepository(logger *slog.Logger, db *mongo.Database) alert.Repository {
	return &AlertRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a new alert
func (r *AlertRepository) Create(ctx context.Context, a *alert.Alert) error {
	collection := r.db.Collection(AlertCollectionName)

	_, err := collection.InsertOne(ctx, a)
	if err != nil {
		r.logger.Error("Failed to create alert",
			"group_id", a.GroupID.String(),
			"type", string(a.Type),
			"error", err)
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

// ListByGroup retrieves paginated alerts for a group, newest first
func (r *AlertRepository) ListByGroup(ctx context.Context, groupID uuid.UUID, limit, offset int) ([]*alert.Alert, error) {
	collection := r.db.Collection(AlertCollectionName)

	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, bson.M{"group_id": groupID}, opts)
	if err != nil {
		r.logger.Error("Failed to list alerts",
			"group_id", groupID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer cursor.Close(ctx)

	var alerts []*alert.Alert
	if err := cursor.All(ctx, &alerts); err != nil {
		r.logger.Error("Failed to decode alerts",
			"group_id", groupID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode alerts: %w", err)
	}

	return alerts, nil
}

// MarkRead flags an alert as read.
// Returns ErrAlertNotFound if the alert doesn't exist.
func (r *AlertRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	collection := r.db.Collection(AlertCollectionName)

	result, err := collection.UpdateOne(ctx,
		bson.M{"alert_id": id},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		r.logger.Error("Failed to mark alert read",
			"alert_id", id.String(),
			"error", err)
		return fmt.Errorf("failed to mark alert read: %w", err)
	}
	if result.MatchedCount == 0 {
		return alert.ErrAlertNotFound{AlertID: id}
	}
	return nil
}

// ExistsSince reports whether an alert of the given type already exists for
// the (group, member) pair created at or after since
func (r *AlertRepository) ExistsSince(ctx context.Context, groupID uuid.UUID, userID *uuid.UUID, alertType alert.Type, since time.Time) (bool, error) {
	collection := r.db.Collection(AlertCollectionName)

	query := bson.M{
		"group_id":   groupID,
		"type":       alertType,
		"created_at": bson.M{"$gte": since},
	}
	if userID != nil {
		query["user_id"] = *userID
	}

	count, err := collection.CountDocuments(ctx, query, options.Count().SetLimit(1))
	if err != nil {
		r.logger.Error("Failed to check for existing alert",
			"group_id", groupID.String(),
			"type", string(alertType),
			"error", err)
		return false, fmt.Errorf("failed to check for existing alert: %w", err)
	}

	return count > 0, nil
}
