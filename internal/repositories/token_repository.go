package repositories

import (
	"context"

	"github.com/reelview/backend/internal/models"
)

// ValidationTokenRepository persists single-use email validation tokens.
type ValidationTokenRepository interface {
	Insert(ctx context.Context, token models.ValidationToken) error
	Find(ctx context.Context, token string) (models.ValidationToken, error)
	// Delete removes the token, returning ErrNotFound when it was already
	// consumed. The rows-affected count is what makes consumption single-use.
	Delete(ctx context.Context, token string) error
}
