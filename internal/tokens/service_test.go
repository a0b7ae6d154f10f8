package tokens

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/reelview/backend/internal/models"
	"github.com/reelview/backend/internal/repositories"
)

type memoryTokenRepo struct {
	tokens map[string]models.ValidationToken
}

func newMemoryTokenRepo() *memoryTokenRepo {
	return &memoryTokenRepo{tokens: make(map[string]models.ValidationToken)}
}

func (r *memoryTokenRepo) Insert(_ context.Context, token models.ValidationToken) error {
	if _, exists := r.tokens[token.Token]; exists {
		return repositories.ErrConflict
	}
	r.tokens[token.Token] = token
	return nil
}

func (r *memoryTokenRepo) Find(_ context.Context, token string) (models.ValidationToken, error) {
	record, ok := r.tokens[token]
	if !ok {
		return models.ValidationToken{}, repositories.ErrNotFound
	}
	return record, nil
}

func (r *memoryTokenRepo) Delete(_ context.Context, token string) error {
	if _, ok := r.tokens[token]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.tokens, token)
	return nil
}

func TestServiceIssueAndVerify(t *testing.T) {
	repo := newMemoryTokenRepo()
	service := NewService(repo, 3*time.Minute)

	token, err := service.Issue(context.Background(), "me@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token.Token == "" {
		t.Fatal("expected a token value")
	}

	if err := service.Verify(context.Background(), "me@example.com", token.Token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Verify does not consume.
	if err := service.Verify(context.Background(), "me@example.com", token.Token); err != nil {
		t.Fatalf("unexpected error on second verify: %v", err)
	}
}

func TestServiceVerifyEmailMismatch(t *testing.T) {
	repo := newMemoryTokenRepo()
	service := NewService(repo, 3*time.Minute)

	token, err := service.Issue(context.Background(), "me@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := service.Verify(context.Background(), "other@example.com", token.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken got %v", err)
	}
}

func TestServiceVerifyExpired(t *testing.T) {
	repo := newMemoryTokenRepo()
	service := NewService(repo, 3*time.Minute)

	token, err := service.Issue(context.Background(), "me@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	service.NowFunc = func() time.Time { return time.Now().UTC().Add(4 * time.Minute) }

	if err := service.Verify(context.Background(), "me@example.com", token.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken got %v", err)
	}
}

func TestServiceConsumeOnce(t *testing.T) {
	repo := newMemoryTokenRepo()
	service := NewService(repo, 3*time.Minute)

	token, err := service.Issue(context.Background(), "me@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := service.Consume(context.Background(), token.Token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := service.Consume(context.Background(), token.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected second consume to fail, got %v", err)
	}
	if err := service.Verify(context.Background(), "me@example.com", token.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected consumed token to be invalid, got %v", err)
	}
}
