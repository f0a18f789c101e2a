package repositories

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"bazaar/internal/models"

	"github.com/google/uuid"
)

// MockUserRepository is an in-memory implementation of UserRepository.
type MockUserRepository struct {
	users map[string]models.UserProfile
	mu    sync.RWMutex
	// AppendErr, when set, fails every AppendOrder call.
	AppendErr error
}

// NewMockUserRepository creates a new instance of MockUserRepository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users: make(map[string]models.UserProfile),
	}
}

// Create adds a new user.
func (r *MockUserRepository) Create(_ context.Context, user *models.UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	r.users[user.ID] = *user
	return nil
}

// GetByID returns a user by id.
func (r *MockUserRepository) GetByID(_ context.Context, id string) (*models.UserProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}
	user.Orders = slices.Clone(user.Orders)
	return &user, nil
}

// AppendOrder pushes record onto the user's order list.
func (r *MockUserRepository) AppendOrder(_ context.Context, userID string, record models.UserOrderRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.AppendErr != nil {
		return r.AppendErr
	}
	user, ok := r.users[userID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	record.UserID = userID
	user.Orders = append(user.Orders, record)
	r.users[userID] = user
	return nil
}

// HasOrder reports whether the user's list already holds orderID.
func (r *MockUserRepository) HasOrder(_ context.Context, userID, orderID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, o := range r.users[userID].Orders {
		if o.OrderID == orderID {
			return true, nil
		}
	}
	return false, nil
}
