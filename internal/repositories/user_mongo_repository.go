package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bazaar/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const usersCollection = "users"

// MongoUserRepository keeps mirrored orders as an embedded array on the user
// document, the layout the users service reads.
type MongoUserRepository struct {
	users *mongo.Collection
}

// NewMongoUserRepository creates a repository over db.users.
func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{users: db.Collection(usersCollection)}
}

type mongoUser struct {
	ID               interface{}              `bson:"_id"`
	MobileNumber     string                   `bson:"mobile_number"`
	Name             string                   `bson:"name"`
	Email            string                   `bson:"email"`
	Orders           []models.UserOrderRecord `bson:"orders"`
	AccountCreatedAt time.Time                `bson:"account_created_at"`
}

// userKey turns a user id into the stored _id: ObjectIDs for 24-char hex ids, strings otherwise.
func userKey(id string) interface{} {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

// Create inserts a user document with an empty order list.
func (r *MongoUserRepository) Create(ctx context.Context, user *models.UserProfile) error {
	var key interface{}
	if user.ID == "" {
		oid := primitive.NewObjectID()
		user.ID = oid.Hex()
		key = oid
	} else {
		key = userKey(user.ID)
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	doc := mongoUser{
		ID:               key,
		MobileNumber:     user.MobileNumber,
		Name:             user.Name,
		Email:            user.Email,
		Orders:           []models.UserOrderRecord{},
		AccountCreatedAt: now,
	}
	if _, err := r.users.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID loads a user document.
func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (*models.UserProfile, error) {
	var doc mongoUser
	err := r.users.FindOne(ctx, bson.M{"_id": userKey(id)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, id)
		}
		return nil, fmt.Errorf("failed to get user by ID %s: %w", id, err)
	}
	return &models.UserProfile{
		ID:           id,
		MobileNumber: doc.MobileNumber,
		Name:         doc.Name,
		Email:        doc.Email,
		Orders:       doc.Orders,
		CreatedAt:    doc.AccountCreatedAt,
	}, nil
}

// AppendOrder $pushes record onto the user's orders array.
func (r *MongoUserRepository) AppendOrder(ctx context.Context, userID string, record models.UserOrderRecord) error {
	res, err := r.users.UpdateOne(ctx,
		bson.M{"_id": userKey(userID)},
		bson.M{
			"$push": bson.M{"orders": record},
			"$set":  bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to append order %s to user %s: %w", record.OrderID, userID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	return nil
}

// HasOrder reports whether the user's orders array already holds orderID.
func (r *MongoUserRepository) HasOrder(ctx context.Context, userID, orderID string) (bool, error) {
	n, err := r.users.CountDocuments(ctx, bson.M{"_id": userKey(userID), "orders.orderId": orderID})
	if err != nil {
		return false, fmt.Errorf("failed to check order %s for user %s: %w", orderID, userID, err)
	}
	return n > 0, nil
}
