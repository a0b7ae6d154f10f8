package tokens

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/reelview/backend/internal/models"
	"github.com/reelview/backend/internal/repositories"
)

// ErrInvalidToken covers every verification failure: unknown token, email
// mismatch, expiry, and double consumption.
var ErrInvalidToken = errors.New("invalid or expired token")

// Service issues and redeems single-use email validation tokens.
type Service struct {
	repo repositories.ValidationTokenRepository
	ttl  time.Duration

	// NowFunc overrides the clock in tests.
	NowFunc func() time.Time
}

// NewService constructs a Service whose tokens expire after ttl.
func NewService(repo repositories.ValidationTokenRepository, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 3 * time.Minute
	}
	return &Service{repo: repo, ttl: ttl}
}

// Issue mints a fresh token bound to the email address.
func (s *Service) Issue(ctx context.Context, email string) (models.ValidationToken, error) {
	token := models.ValidationToken{
		Email:     email,
		Token:     uuid.NewString(),
		CreatedAt: s.now(),
	}

	if err := s.repo.Insert(ctx, token); err != nil {
		return models.ValidationToken{}, err
	}

	return token, nil
}

// Verify checks that the token exists, belongs to the email, and is younger
// than the configured TTL. The token stays valid afterwards.
func (s *Service) Verify(ctx context.Context, email, token string) error {
	record, err := s.repo.Find(ctx, token)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}

	if record.Email != email {
		return ErrInvalidToken
	}
	if s.now().Sub(record.CreatedAt) > s.ttl {
		return ErrInvalidToken
	}

	return nil
}

// Consume deletes the token. The delete's rows-affected count decides the
// winner when two callers race, so a token redeems at most once.
func (s *Service) Consume(ctx context.Context, token string) error {
	if err := s.repo.Delete(ctx, token); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	return nil
}

func (s *Service) now() time.Time {
	if s.NowFunc != nil {
		return s.NowFunc()
	}
	return time.Now().UTC()
}
