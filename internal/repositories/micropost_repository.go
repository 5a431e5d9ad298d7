package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/driftlinehq/driftline/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MicropostRepository defines the interface for micropost data operations
type MicropostRepository interface {
	CreateMicropost(ctx context.Context, post *models.Micropost) error
	GetMicropostByID(ctx context.Context, id string) (*models.Micropost, error)
	GetMicropostsByAuthorID(ctx context.Context, authorID uint, skip, limit int64) ([]models.Micropost, error)
	GetMicropostsByAuthorIDs(ctx context.Context, authorIDs []uint, skip, limit int64) ([]models.Micropost, error)
	DeleteMicropost(ctx context.Context, id string, authorID uint) error
	IncrementReactionsCount(ctx context.Context, id string) error
	DecrementReactionsCount(ctx context.Context, id string) error
	IncrementCommentsCount(ctx context.Context, id string) error
	DecrementCommentsCount(ctx context.Context, id string) error
	IncrementSharesCount(ctx context.Context, id string) error
}

// MongoMicropostRepository implements MicropostRepository for MongoDB
type MongoMicropostRepository struct {
	collection *mongo.Collection
}

// NewMongoMicropostRepository creates a new MongoMicropostRepository
func NewMongoMicropostRepository(db *mongo.Database) *MongoMicropostRepository {
	return &MongoMicropostRepository{collection: db.Collection("microposts")}
}

func (r *MongoMicropostRepository) CreateMicropost(ctx context.Context, post *models.Micropost) error {
	post.ID = primitive.NewObjectID()
	post.CreatedAt = time.Now()
	post.UpdatedAt = post.CreatedAt
	_, err := r.collection.InsertOne(ctx, post)
	return err
}

func (r *MongoMicropostRepository) GetMicropostByID(ctx context.Context, id string) (*models.Micropost, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid micropost ID format: %w", err)
	}

	var post models.Micropost
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("micropost %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &post, nil
}

func (r *MongoMicropostRepository) GetMicropostsByAuthorID(ctx context.Context, authorID uint, skip, limit int64) ([]models.Micropost, error) {
	return r.find(ctx, bson.M{"author_id": authorID}, skip, limit)
}

// GetMicropostsByAuthorIDs powers the home feed: posts from every followed
// author (plus the caller's own), newest first.
func (r *MongoMicropostRepository) GetMicropostsByAuthorIDs(ctx context.Context, authorIDs []uint, skip, limit int64) ([]models.Micropost, error) {
	if len(authorIDs) == 0 {
		return []models.Micropost{}, nil
	}
	return r.find(ctx, bson.M{"author_id": bson.M{"$in": authorIDs}}, skip, limit)
}

func (r *MongoMicropostRepository) find(ctx context.Context, filter bson.M, skip, limit int64) ([]models.Micropost, error) {
	var posts []models.Micropost
	findOptions := options.Find().SetSkip(skip).SetLimit(limit).SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *MongoMicropostRepository) DeleteMicropost(ctx context.Context, id string, authorID uint) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid micropost ID format: %w", err)
	}

	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": objID, "author_id": authorID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("micropost %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *MongoMicropostRepository) IncrementReactionsCount(ctx context.Context, id string) error {
	return r.adjustCount(ctx, id, "reactions_count", 1)
}

func (r *MongoMicropostRepository) DecrementReactionsCount(ctx context.Context, id string) error {
	return r.adjustCount(ctx, id, "reactions_count", -1)
}

func (r *MongoMicropostRepository) IncrementCommentsCount(ctx context.Context, id string) error {
	return r.adjustCount(ctx, id, "comments_count", 1)
}

func (r *MongoMicropostRepository) DecrementCommentsCount(ctx context.Context, id string) error {
	return r.adjustCount(ctx, id, "comments_count", -1)
}

func (r *MongoMicropostRepository) IncrementSharesCount(ctx context.Context, id string) error {
	return r.adjustCount(ctx, id, "shares_count", 1)
}

func (r *MongoMicropostRepository) adjustCount(ctx context.Context, id, field string, delta int) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid micropost ID format: %w", err)
	}
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$inc": bson.M{field: delta}})
	return err
}
