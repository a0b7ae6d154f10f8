package repositories

import (
	"context"

	"github.com/reelview/backend/internal/catalog"
	"github.com/reelview/backend/internal/models"
)

// TitleRepository defines the data access contract for catalogue titles.
type TitleRepository interface {
	// Create inserts the title and returns it with its assigned id. When the
	// incoming id is zero the lowest unused positive integer is chosen inside
	// the insert transaction.
	Create(ctx context.Context, title models.Title) (models.Title, error)
	FindByID(ctx context.Context, id int) (models.Title, error)
	// List applies the validated query and returns the requested page along
	// with the total number of matching titles.
	List(ctx context.Context, q catalog.TitleQuery) ([]models.Title, int, error)
	Update(ctx context.Context, title models.Title) error
	Delete(ctx context.Context, id int) error
}

// GenreRepository defines the data access contract for genres.
type GenreRepository interface {
	Create(ctx context.Context, genre models.Genre) (models.Genre, error)
	FindByID(ctx context.Context, id int) (models.Genre, error)
	List(ctx context.Context) ([]models.Genre, error)
	Update(ctx context.Context, genre models.Genre) error
	Delete(ctx context.Context, id int) error
	// UpsertByName inserts genres that do not exist yet, matching on name.
	UpsertByName(ctx context.Context, genres []models.Genre) error
}
