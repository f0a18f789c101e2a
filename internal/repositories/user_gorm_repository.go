package repositories

import (
	"context"
	"errors"
	"fmt"

	"bazaar/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMUserRepository is a GORM implementation of UserRepository.
// Orders live in their own table and keep insertion order through the primary key.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Create creates a new user in the database.
func (r *GORMUserRepository) Create(ctx context.Context, user *models.UserProfile) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user and their mirrored orders, oldest first.
func (r *GORMUserRepository) GetByID(ctx context.Context, id string) (*models.UserProfile, error) {
	var user models.UserProfile
	err := r.db.WithContext(ctx).
		Preload("Orders", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, id)
		}
		return nil, fmt.Errorf("failed to get user by ID %s: %w", id, err)
	}
	return &user, nil
}

// AppendOrder adds record to the end of the user's order list.
func (r *GORMUserRepository) AppendOrder(ctx context.Context, userID string, record models.UserOrderRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.UserProfile{}).Where("id = ?", userID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to look up user %s: %w", userID, err)
		}
		if count == 0 {
			return fmt.Errorf("%w: %s", ErrUserNotFound, userID)
		}

		record.ID = 0
		record.UserID = userID
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("failed to append order %s to user %s: %w", record.OrderID, userID, err)
		}
		return nil
	})
}

// HasOrder reports whether the user's list already holds orderID.
func (r *GORMUserRepository) HasOrder(ctx context.Context, userID, orderID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UserOrderRecord{}).
		Where("user_id = ? AND order_id = ?", userID, orderID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check order %s for user %s: %w", orderID, userID, err)
	}
	return count > 0, nil
}
