package metadata

import (
	"context"
	"errors"

	"github.com/reelview/backend/internal/models"
)

// ErrProviderUnavailable indicates the external metadata provider cannot be
// reached or is not configured.
var ErrProviderUnavailable = errors.New("metadata provider unavailable")

// SearchResult is one catalogue entry returned by the external provider.
type SearchResult struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Overview    string  `json:"overview"`
	ReleaseDate string  `json:"releaseDate"`
	PosterURL   string  `json:"posterUrl"`
	MovieOrTV   string  `json:"movieOrTv"`
	Popularity  float64 `json:"popularity"`
	GenreIDs    []int   `json:"genreIds"`
}

// Provider resolves titles and genres from an external catalogue API.
type Provider interface {
	SearchTitles(ctx context.Context, query, kind string) ([]SearchResult, error)
	ListGenres(ctx context.Context) ([]models.Genre, error)
}
