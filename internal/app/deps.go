package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/reelview/backend/internal/auth"
	"github.com/reelview/backend/internal/catalog"
	"github.com/reelview/backend/internal/config"
	"github.com/reelview/backend/internal/db"
	"github.com/reelview/backend/internal/handlers"
	"github.com/reelview/backend/internal/mailer"
	"github.com/reelview/backend/internal/metadata"
	"github.com/reelview/backend/internal/middleware"
	"github.com/reelview/backend/internal/posters"
	"github.com/reelview/backend/internal/repositories"
	"github.com/reelview/backend/internal/storage"
	"github.com/reelview/backend/internal/tokens"
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The returned cleanup drains background workers and must be called
// before the process exits.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, func(context.Context) error, error) {
	users := repositories.NewPostgresUserRepository(pool)
	titles := repositories.NewPostgresTitleRepository(pool)
	genres := repositories.NewPostgresGenreRepository(pool)
	reviews := repositories.NewPostgresReviewRepository(pool)
	sessionStore := repositories.NewPostgresSessionStore(pool)
	tokenRepo := repositories.NewPostgresValidationTokenRepository(pool)

	sessions := auth.NewManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, sessionStore, users)
	gate := auth.NewGate(users, cfg.MaxFailedLogins, cfg.LockoutDuration)
	oauth := auth.NewGoogleVerifier(cfg.GoogleTokenInfo, cfg.MetadataTimeout)
	tokenService := tokens.NewService(tokenRepo, cfg.ValidationTTL)
	mail := mailer.NewSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)

	tmdb := metadata.NewClient(cfg.MetadataBaseURL, cfg.MetadataAPIKey, cfg.MetadataTimeout)
	provider := metadata.NewCachingProvider(tmdb, cfg.MetadataCacheTTL)

	var mirror *posters.Mirror
	var posterMirror handlers.PosterMirror
	if cfg.ObjectStore.Bucket != "" {
		store, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
		if err != nil {
			return handlers.Dependencies{}, nil, fmt.Errorf("configure poster storage: %w", err)
		}
		mirror = posters.NewMirror(store, titles, posters.MirrorConfig{}, slog.Default())
		posterMirror = mirror
	}

	cleanup := func(ctx context.Context) error {
		if mirror != nil {
			return mirror.Shutdown(ctx)
		}
		return nil
	}

	deps := handlers.Dependencies{
		Users:    users,
		Titles:   titles,
		Genres:   genres,
		Reviews:  reviews,
		Sessions: sessions,
		Gate:     gate,
		Tokens:   tokenService,
		Mailer:   mail,
		Metadata: provider,
		OAuth:    oauth,
		Posters:  posterMirror,
		Limiter:  middleware.NewIPRateLimiter(10, time.Minute, 10, 10*time.Minute),

		Bounds: catalog.Bounds{
			RatingMin:       cfg.RatingMin,
			RatingMax:       cfg.RatingMax,
			YearMin:         cfg.YearMin,
			DefaultPageSize: cfg.DefaultPageSize,
			MaxPageSize:     cfg.MaxPageSize,
		},
		MinPasswordBits: cfg.MinPasswordBits,
		TokenTTL:        cfg.ValidationTTL,
	}

	return deps, cleanup, nil
}
