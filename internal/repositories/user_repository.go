package repositories

import (
	"context"
	"time"

	"github.com/reelview/backend/internal/models"
)

// UserRepository defines the data access contract for users.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	Update(ctx context.Context, user models.User) error
	Delete(ctx context.Context, id string) error

	// RecordFailedLogin atomically increments the failed attempt counter and,
	// when the counter reaches max on this attempt, locks the account until
	// lockUntil. It returns the post-update user state.
	RecordFailedLogin(ctx context.Context, id string, max int, lockUntil time.Time) (models.User, error)
	// ResetLockout clears the failed attempt counter and any lock.
	ResetLockout(ctx context.Context, id string) error
}
