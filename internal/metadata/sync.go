package metadata

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/reelview/backend/internal/logging"
	"github.com/reelview/backend/internal/models"
)

// GenreUpserter persists provider genres without duplicating existing rows.
type GenreUpserter interface {
	UpsertByName(ctx context.Context, genres []models.Genre) error
}

// SyncGenres pulls the provider's genre list and upserts it into the local
// catalogue. Invoked explicitly at startup; a provider outage is logged and
// reported but must not prevent the service from starting.
func SyncGenres(ctx context.Context, provider Provider, store GenreUpserter, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	ctx = logging.WithLogger(ctx, logger)
	ctx, span := logging.StartSpan(ctx, "metadata.sync_genres")
	defer span.End()

	genres, err := provider.ListGenres(ctx)
	if err != nil {
		return fmt.Errorf("list provider genres: %w", err)
	}

	if err := store.UpsertByName(ctx, genres); err != nil {
		return fmt.Errorf("upsert genres: %w", err)
	}

	logger.Info("genre sync completed", "count", len(genres))
	return nil
}
