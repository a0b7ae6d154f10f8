package repositories

import (
	"context"

	"github.com/reelview/backend/internal/models"
)

// ReviewRepository defines the data access contract for reviews. Every write
// recomputes the owning title's aggregate rating in the same transaction.
type ReviewRepository interface {
	Create(ctx context.Context, review models.Review) (models.Review, error)
	FindByID(ctx context.Context, id int) (models.Review, error)
	ListForTitle(ctx context.Context, titleID int) ([]models.Review, error)
	Update(ctx context.Context, id int, rating float64, comment string) error
	Delete(ctx context.Context, id int) error
}
