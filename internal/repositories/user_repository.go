package repositories

import (
	"context"

	"github.com/cliplab/backend/internal/models"
)

// UserRepository defines the data access contract for users.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	// DebitCredits atomically subtracts cost from the user's balance. It
	// reports false, without modifying the balance, when the user holds
	// fewer credits than cost.
	DebitCredits(ctx context.Context, userID string, cost int) (bool, error)
}
