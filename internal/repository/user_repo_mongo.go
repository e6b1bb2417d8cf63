package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agriconnect/internal/ids"
	"agriconnect/internal/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// UsersCollection is the collection holding user documents
const UsersCollection = "users"

type mongoUserRepository struct {
	col *mongo.Collection
}

// NewMongoUserRepository creates a MongoDB-backed UserRepository and ensures its indexes.
// The unique phone index is what rejects the losing side of a concurrent signup.
func NewMongoUserRepository(ctx context.Context, db *mongo.Database) (UserRepository, error) {
	r := &mongoUserRepository{col: db.Collection(UsersCollection)}
	if err := r.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *mongoUserRepository) ensureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "phone", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "phone", Value: 1}, {Key: "role", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to ensure user indexes: %w", err)
	}
	return nil
}

func (r *mongoUserRepository) Create(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = ids.New()
	}
	if _, err := r.col.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicatePhone
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *mongoUserRepository) FindByPhone(ctx context.Context, phone string) (*model.User, error) {
	return r.findOne(ctx, bson.D{{Key: "phone", Value: phone}})
}

func (r *mongoUserRepository) FindByPhoneAndRole(ctx context.Context, phone string, role model.Role) (*model.User, error) {
	return r.findOne(ctx, bson.D{{Key: "phone", Value: phone}, {Key: "role", Value: string(role)}})
}

func (r *mongoUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (r *mongoUserRepository) List(ctx context.Context, filters model.UserFilters) ([]*model.User, error) {
	filter := bson.D{}
	if filters.Role != nil {
		filter = append(filter, bson.E{Key: "role", Value: string(*filters.Role)})
	}
	if filters.Verified != nil {
		filter = append(filter, bson.E{Key: "verified", Value: *filters.Verified})
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer cursor.Close(ctx)

	users := []*model.User{}
	for cursor.Next(ctx) {
		var user model.User
		if err := cursor.Decode(&user); err != nil {
			return nil, fmt.Errorf("failed to decode user: %w", err)
		}
		users = append(users, &user)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

func (r *mongoUserRepository) SetVerification(ctx context.Context, id string, verified bool, verifiedAt *time.Time) error {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "verified", Value: verified},
		{Key: "verified_at", Value: verifiedAt},
	}}}
	res, err := r.col.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, update)
	if err != nil {
		return fmt.Errorf("failed to update user verification: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *mongoUserRepository) Ping(ctx context.Context) error {
	return r.col.Database().Client().Ping(ctx, nil)
}

func (r *mongoUserRepository) findOne(ctx context.Context, filter bson.D) (*model.User, error) {
	var user model.User
	if err := r.col.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}
