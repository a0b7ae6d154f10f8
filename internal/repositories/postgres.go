package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/reelview/backend/internal/db"
	"github.com/reelview/backend/internal/models"
)

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

const userColumns = `id, email, username, password_hash, is_staff, failed_login_attempts, is_locked, lock_until, created_at, updated_at`

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	var lockUntil *time.Time
	if err := row.Scan(&user.ID, &user.Email, &user.Username, &user.Password, &user.IsStaff,
		&user.FailedLoginAttempts, &user.IsLocked, &lockUntil, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return models.User{}, err
	}
	if lockUntil != nil {
		t := lockUntil.UTC()
		user.LockUntil = &t
	}
	return user, nil
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, email, username, password_hash, is_staff, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, user.ID, user.Email, user.Username, user.Password, user.IsStaff, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByID fetches a user by their identifier.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user by id: %w", err)
	}

	return user, nil
}

// FindByEmail fetches a user by their email address.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user by email: %w", err)
	}

	return user, nil
}

// Update modifies an existing user record.
func (r *PostgresUserRepository) Update(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET email = $2, username = $3, password_hash = $4, is_staff = $5, updated_at = $6
        WHERE id = $1
    `, user.ID, user.Email, user.Username, user.Password, user.IsStaff, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("update user: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a user together with their reviews via the cascade.
func (r *PostgresUserRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// RecordFailedLogin bumps the failed attempt counter in a single statement so
// concurrent failures never lose an increment. The account locks until
// lockUntil on the attempt that reaches max.
func (r *PostgresUserRepository) RecordFailedLogin(ctx context.Context, id string, max int, lockUntil time.Time) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        UPDATE users
        SET failed_login_attempts = failed_login_attempts + 1,
            is_locked = is_locked OR failed_login_attempts + 1 >= $2,
            lock_until = CASE
                WHEN NOT is_locked AND failed_login_attempts + 1 >= $2 THEN $3
                ELSE lock_until
            END,
            updated_at = NOW()
        WHERE id = $1
        RETURNING `+userColumns+`
    `, id, max, lockUntil.UTC())

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("record failed login: %w", err)
	}

	return user, nil
}

// ResetLockout clears the failed attempt counter and any expired lock.
func (r *PostgresUserRepository) ResetLockout(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET failed_login_attempts = 0, is_locked = FALSE, lock_until = NULL, updated_at = NOW()
        WHERE id = $1
    `, id)
	if err != nil {
		return fmt.Errorf("reset lockout: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// PostgresValidationTokenRepository persists email validation tokens.
type PostgresValidationTokenRepository struct {
	pool db.Pool
}

// NewPostgresValidationTokenRepository constructs a token repository backed by PostgreSQL.
func NewPostgresValidationTokenRepository(pool db.Pool) *PostgresValidationTokenRepository {
	return &PostgresValidationTokenRepository{pool: pool}
}

// Insert stores a freshly issued validation token.
func (r *PostgresValidationTokenRepository) Insert(ctx context.Context, token models.ValidationToken) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO validation_tokens (email, token, created_at)
        VALUES ($1, $2, $3)
    `, token.Email, token.Token, token.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert validation token: %w", err)
	}

	return nil
}

// Find loads a validation token by its value.
func (r *PostgresValidationTokenRepository) Find(ctx context.Context, token string) (models.ValidationToken, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ValidationToken{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT email, token, created_at
        FROM validation_tokens
        WHERE token = $1
    `, token)

	var record models.ValidationToken
	if err := row.Scan(&record.Email, &record.Token, &record.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ValidationToken{}, ErrNotFound
		}
		return models.ValidationToken{}, fmt.Errorf("select validation token: %w", err)
	}

	return record, nil
}

// Delete consumes a token. Concurrent consumers race on the rows-affected
// count, so at most one of them succeeds.
func (r *PostgresValidationTokenRepository) Delete(ctx context.Context, token string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM validation_tokens WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("delete validation token: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ ValidationTokenRepository = (*PostgresValidationTokenRepository)(nil)
