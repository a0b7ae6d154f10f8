package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/reelview/backend/internal/db"
	"github.com/reelview/backend/internal/models"
)

var (
	// ErrInvalidCredentials indicates an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked indicates the account is under an active lockout.
	ErrAccountLocked = errors.New("your account has been locked due to multiple failed login attempts")
)

// GateUserStore captures the persistence operations the lockout gate needs.
type GateUserStore interface {
	FindByEmail(ctx context.Context, email string) (models.User, error)
	RecordFailedLogin(ctx context.Context, id string, max int, lockUntil time.Time) (models.User, error)
	ResetLockout(ctx context.Context, id string) error
}

// Gate authenticates credentials while tracking failed attempts per account.
type Gate struct {
	users      GateUserStore
	maxFailed  int
	lockWindow time.Duration

	// NowFunc overrides the clock in tests.
	NowFunc func() time.Time
}

// NewGate constructs a Gate locking accounts for lockWindow after maxFailed
// consecutive failures.
func NewGate(users GateUserStore, maxFailed int, lockWindow time.Duration) *Gate {
	if maxFailed <= 0 {
		maxFailed = 5
	}
	if lockWindow <= 0 {
		lockWindow = 30 * time.Minute
	}
	return &Gate{users: users, maxFailed: maxFailed, lockWindow: lockWindow}
}

// Authenticate verifies the email and password pair.
//
// A wrong password for a known account counts one failed attempt; the attempt
// that reaches the configured maximum locks the account for the lock window.
// While the lock is active every attempt is rejected without counting,
// correct credentials included. An expired lock is cleared by the next
// successful login.
func (g *Gate) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	user, err := g.users.FindByEmail(ctx, email)
	if err != nil {
		// Only a missing account is an authentication failure; a store
		// outage must not masquerade as bad credentials.
		if errors.Is(err, db.ErrNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, fmt.Errorf("look up account: %w", err)
	}

	now := g.now()
	if user.IsLocked && user.LockUntil != nil && now.Before(*user.LockUntil) {
		return models.User{}, ErrAccountLocked
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		if !user.IsLocked {
			if _, err := g.users.RecordFailedLogin(ctx, user.ID, g.maxFailed, now.Add(g.lockWindow)); err != nil {
				return models.User{}, err
			}
		}
		return models.User{}, ErrInvalidCredentials
	}

	if user.FailedLoginAttempts > 0 || user.IsLocked {
		if err := g.users.ResetLockout(ctx, user.ID); err != nil {
			return models.User{}, err
		}
		user.FailedLoginAttempts = 0
		user.IsLocked = false
		user.LockUntil = nil
	}

	return user, nil
}

func (g *Gate) now() time.Time {
	if g.NowFunc != nil {
		return g.NowFunc()
	}
	return time.Now().UTC()
}
