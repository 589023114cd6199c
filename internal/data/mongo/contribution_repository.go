// Package mongo provides MongoDB implementations of the ledger and alert
// repositories. The ledger is append-only: a unique index on reference is the
// storage-level guard against double payouts.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/esusu-circle-engine/internal/domain/contribution"
)

const (
	// ContributionCollectionName is the name of the ledger collection in MongoDB
	ContributionCollectionName = "contributions"
)

// ContributionRepository implements the contribution.Repository interface for MongoDB
type ContributionRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewContributionRepository creates a new MongoDB contribution repository
func NewContributionRepository(logger *slog.Logger, db *mongo.Database) contribution.Repository {
	return &ContributionRepository{
		db:     db,
		logger: logger,
	}
}

// Append stores a new ledger entry. Entries carrying a reference are checked
// against existing ones first; the unique index on reference backstops the
// check, so a raced duplicate still surfaces as ErrDuplicateReference.
func (r *ContributionRepository) Append(ctx context.Context, entry *contribution.Entry) error {
	collection := r.db.Collection(ContributionCollectionName)

	if entry.Reference != "" {
		existing, err := r.GetByReference(ctx, entry.Reference)
		if err != nil && !errors.Is(err, contribution.ErrEntryNotFound{}) {
			r.logger.Error("Failed to check for existing ledger entry",
				"reference", entry.Reference,
				"error", err)
			return fmt.Errorf("failed to check for existing ledger entry: %w", err)
		}
		if existing != nil {
			return contribution.ErrDuplicateReference{Reference: entry.Reference}
		}
	}

	_, err := collection.InsertOne(ctx, entry)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return contribution.ErrDuplicateReference{Reference: entry.Reference}
		}
		r.logger.Error("Failed to append ledger entry",
			"group_id", entry.GroupID.String(),
			"error", err)
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	return nil
}

// GetByReference retrieves a ledger entry by its reference.
// Returns ErrEntryNotFound if no entry carries the reference.
func (r *ContributionRepository) GetByReference(ctx context.Context, reference string) (*contribution.Entry, error) {
	if reference == "" {
		return nil, errors.New("reference cannot be empty")
	}

	collection := r.db.Collection(ContributionCollectionName)

	var entry contribution.Entry
	err := collection.FindOne(ctx, bson.M{"reference": reference}).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, contribution.ErrEntryNotFound{Reference: reference}
		}
		r.logger.Error("Failed to get ledger entry",
			"reference", reference,
			"error", err)
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}

	return &entry, nil
}

// List retrieves paginated ledger entries matching the filter.
// Results are sorted by creation time in descending order (newest first).
func (r *ContributionRepository) List(ctx context.Context, filter contribution.Filter, limit, offset int) ([]*contribution.Entry, error) {
	collection := r.db.Collection(ContributionCollectionName)

	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, buildMatch(filter), opts)
	if err != nil {
		r.logger.Error("Failed to list ledger entries",
			"group_id", filter.GroupID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*contribution.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode ledger entries",
			"group_id", filter.GroupID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode ledger entries: %w", err)
	}

	return entries, nil
}

// SumAmount totals the amounts of entries matching the filter. An empty match
// sums to zero.
func (r *ContributionRepository) SumAmount(ctx context.Context, filter contribution.Filter) (int64, error) {
	collection := r.db.Collection(ContributionCollectionName)

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: buildMatch(filter)}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$amount"},
		}}},
	}

	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		r.logger.Error("Failed to sum ledger entries",
			"group_id", filter.GroupID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to sum ledger entries: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, fmt.Errorf("failed to decode ledger sum: %w", err)
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Total, nil
}

// Count counts the entries matching the filter
func (r *ContributionRepository) Count(ctx context.Context, filter contribution.Filter) (int64, error) {
	collection := r.db.Collection(ContributionCollectionName)

	count, err := collection.CountDocuments(ctx, buildMatch(filter))
	if err != nil {
		r.logger.Error("Failed to count ledger entries",
			"group_id", filter.GroupID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	return count, nil
}

// buildMatch translates a domain filter into the Mongo query document
func buildMatch(filter contribution.Filter) bson.M {
	match := bson.M{"group_id": filter.GroupID}

	if filter.UserID != nil {
		match["user_id"] = *filter.UserID
	}
	if len(filter.Methods) > 0 {
		match["method"] = bson.M{"$in": filter.Methods}
	} else if len(filter.ExcludeMethods) > 0 {
		match["method"] = bson.M{"$nin": filter.ExcludeMethods}
	}
	if len(filter.Statuses) > 0 {
		match["status"] = bson.M{"$in": filter.Statuses}
	}

	timeRange := bson.M{}
	if filter.From != nil {
		timeRange["$gte"] = *filter.From
	}
	if filter.To != nil {
		timeRange["$lte"] = *filter.To
	}
	if len(timeRange) > 0 {
		match["created_at"] = timeRange
	}

	return match
}
