package handlers

import (
	"context"

	"github.com/reelview/backend/internal/auth"
	"github.com/reelview/backend/internal/catalog"
	"github.com/reelview/backend/internal/metadata"
	"github.com/reelview/backend/internal/models"
)

// UserStore captures the persistence operations required by the user handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	Update(ctx context.Context, user models.User) error
	Delete(ctx context.Context, id string) error
}

// TitleStore captures persistence for catalogue titles.
type TitleStore interface {
	Create(ctx context.Context, title models.Title) (models.Title, error)
	FindByID(ctx context.Context, id int) (models.Title, error)
	List(ctx context.Context, q catalog.TitleQuery) ([]models.Title, int, error)
	Update(ctx context.Context, title models.Title) error
	Delete(ctx context.Context, id int) error
}

// GenreStore captures persistence for genres.
type GenreStore interface {
	Create(ctx context.Context, genre models.Genre) (models.Genre, error)
	FindByID(ctx context.Context, id int) (models.Genre, error)
	List(ctx context.Context) ([]models.Genre, error)
	Update(ctx context.Context, genre models.Genre) error
	Delete(ctx context.Context, id int) error
}

// ReviewStore captures persistence for reviews.
type ReviewStore interface {
	Create(ctx context.Context, review models.Review) (models.Review, error)
	FindByID(ctx context.Context, id int) (models.Review, error)
	ListForTitle(ctx context.Context, titleID int) ([]models.Review, error)
	Update(ctx context.Context, id int, rating float64, comment string) error
	Delete(ctx context.Context, id int) error
}

// SessionManager issues, refreshes, and verifies authentication tokens.
type SessionManager interface {
	Issue(ctx context.Context, user models.User) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	VerifyAccess(token string) (*auth.Claims, error)
	Revoke(ctx context.Context, refreshToken string)
}

// Authenticator verifies credentials behind the lockout gate.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (models.User, error)
}

// TokenService issues and redeems email validation tokens.
type TokenService interface {
	Issue(ctx context.Context, email string) (models.ValidationToken, error)
	Verify(ctx context.Context, email, token string) error
	Consume(ctx context.Context, token string) error
}

// Mailer delivers validation tokens to their email address.
type Mailer interface {
	SendValidationToken(to, token string, ttlMinutes int) error
}

// MetadataSearcher proxies search requests to the external catalogue provider.
type MetadataSearcher interface {
	SearchTitles(ctx context.Context, query, kind string) ([]metadata.SearchResult, error)
}

// OAuthVerifier validates third-party login credentials.
type OAuthVerifier interface {
	Verify(ctx context.Context, idToken string) (auth.GoogleIdentity, error)
}

// PosterMirror schedules background mirroring of poster images.
type PosterMirror interface {
	Enqueue(ctx context.Context, titleID int, url string) error
}
