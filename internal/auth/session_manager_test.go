package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/reelview/backend/internal/db"
	"github.com/reelview/backend/internal/models"
)

type userSourceMap map[string]models.User

func (m userSourceMap) FindByID(_ context.Context, id string) (models.User, error) {
	user, ok := m[id]
	if !ok {
		return models.User{}, db.ErrNotFound
	}
	return user, nil
}

func TestManagerIssueAndVerify(t *testing.T) {
	users := userSourceMap{"user-1": {ID: "user-1", Username: "me", IsStaff: true}}
	manager := NewManager("secret", time.Minute, time.Hour, NewInMemorySessionStore(), users)

	tokens, err := manager.Issue(context.Background(), users["user-1"])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("expected tokens, got %+v", tokens)
	}

	claims, err := manager.VerifyAccess(tokens.AccessToken)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if claims.UserID() != "user-1" || claims.Username != "me" || !claims.IsStaff {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestManagerIssueRequiresUserID(t *testing.T) {
	manager := NewManager("secret", time.Minute, time.Hour, NewInMemorySessionStore(), userSourceMap{})

	if _, err := manager.Issue(context.Background(), models.User{}); err == nil {
		t.Fatal("expected error for empty user id")
	}
}

func TestManagerVerifyRejectsForeignSignature(t *testing.T) {
	users := userSourceMap{"user-1": {ID: "user-1"}}
	manager := NewManager("secret", time.Minute, time.Hour, NewInMemorySessionStore(), users)
	other := NewManager("different", time.Minute, time.Hour, NewInMemorySessionStore(), users)

	tokens, err := other.Issue(context.Background(), users["user-1"])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := manager.VerifyAccess(tokens.AccessToken); !errors.Is(err, ErrInvalidAccessToken) {
		t.Fatalf("expected ErrInvalidAccessToken got %v", err)
	}
}

func TestManagerRefreshRotatesToken(t *testing.T) {
	users := userSourceMap{"user-1": {ID: "user-1", Username: "me"}}
	store := NewInMemorySessionStore()
	manager := NewManager("secret", time.Minute, time.Hour, store, users)

	issued, err := manager.Issue(context.Background(), users["user-1"])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	refreshed, err := manager.Refresh(context.Background(), issued.RefreshToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if refreshed.RefreshToken == issued.RefreshToken {
		t.Fatal("expected a rotated refresh token")
	}

	if _, err := manager.Refresh(context.Background(), issued.RefreshToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected consumed token to be rejected, got %v", err)
	}
}

func TestManagerRefreshExpired(t *testing.T) {
	users := userSourceMap{"user-1": {ID: "user-1"}}
	store := NewInMemorySessionStore()
	manager := NewManager("secret", time.Minute, time.Hour, store, users)

	if err := store.Save(context.Background(), Session{
		RefreshToken: "stale",
		UserID:       "user-1",
		ExpiresAt:    time.Now().UTC().Add(-time.Minute),
	}); err != nil {
		t.Fatalf("save session: %v", err)
	}

	if _, err := manager.Refresh(context.Background(), "stale"); !errors.Is(err, ErrRefreshTokenExpired) {
		t.Fatalf("expected ErrRefreshTokenExpired got %v", err)
	}
	if store.Has("stale") {
		t.Fatal("expected expired session to be deleted")
	}
}

func TestManagerRevoke(t *testing.T) {
	users := userSourceMap{"user-1": {ID: "user-1"}}
	store := NewInMemorySessionStore()
	manager := NewManager("secret", time.Minute, time.Hour, store, users)

	issued, err := manager.Issue(context.Background(), users["user-1"])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	manager.Revoke(context.Background(), issued.RefreshToken)

	if store.Has(issued.RefreshToken) {
		t.Fatal("expected session to be removed")
	}
}
