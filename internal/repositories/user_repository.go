package repositories

import (
	"context"
	"errors"

	"bazaar/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository is the user order mirror in the secondary database.
// AppendOrder pushes onto the user's ordered order list and does not dedupe.
type UserRepository interface {
	Create(ctx context.Context, user *models.UserProfile) error
	GetByID(ctx context.Context, id string) (*models.UserProfile, error)
	AppendOrder(ctx context.Context, userID string, record models.UserOrderRecord) error
	HasOrder(ctx context.Context, userID, orderID string) (bool, error)
}
