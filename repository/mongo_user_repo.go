package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tieubaoca/research-assistant/types"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

type mongoUserRepo struct {
	collection *mongo.Collection
}

// NewMongoUserRepo expects unique indexes on username and email
// (see database.EnsureUserIndexes).
func NewMongoUserRepo(collection *mongo.Collection) UserRepo {
	return &mongoUserRepo{
		collection: collection,
	}
}

func (r *mongoUserRepo) CreateUser(ctx context.Context, user *types.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	res, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrUserExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	if id, ok := res.InsertedID.(bson.ObjectID); ok {
		user.ID = id.Hex()
	}
	return nil
}

func (r *mongoUserRepo) GetUserByUsername(ctx context.Context, username string) (*types.User, error) {
	var user types.User
	err := r.collection.FindOne(ctx, bson.D{{Key: "username", Value: username}}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &user, nil
}
