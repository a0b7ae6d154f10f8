package repositories

import (
	"context"
	"errors"
	"fmt"

	crdbpgxv5 "github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgxv5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/reelview/backend/internal/db"
	"github.com/reelview/backend/internal/models"
)

// PostgresReviewRepository provides PostgreSQL-backed persistence for reviews.
// Review writes and the owning title's rating recomputation share one
// retryable transaction.
type PostgresReviewRepository struct {
	pool db.Pool
}

// NewPostgresReviewRepository constructs a review repository backed by PostgreSQL.
func NewPostgresReviewRepository(pool db.Pool) *PostgresReviewRepository {
	return &PostgresReviewRepository{pool: pool}
}

const recomputeRatingQuery = `
        UPDATE titles
        SET rating = COALESCE((SELECT ROUND(AVG(rating)::numeric, 1) FROM reviews WHERE title_id = $1), 0.0)
        WHERE id = $1`

// Create inserts a review and refreshes the title's aggregate rating. A
// second review by the same author on the title surfaces as ErrConflict.
func (r *PostgresReviewRepository) Create(ctx context.Context, review models.Review) (models.Review, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Review{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	err = crdbpgxv5.ExecuteTx(ctx, conn, pgx.TxOptions{}, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
            INSERT INTO reviews (title_id, author_id, rating, comment, created_at)
            VALUES ($1, $2, $3, $4, $5)
            RETURNING id
        `, review.TitleID, review.AuthorID, review.Rating, review.Comment, review.CreatedAt)
		if err := row.Scan(&review.ID); err != nil {
			return fmt.Errorf("insert review: %w", err)
		}

		if _, err := tx.Exec(ctx, recomputeRatingQuery, review.TitleID); err != nil {
			return fmt.Errorf("recompute title rating: %w", err)
		}

		return nil
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return models.Review{}, ErrConflict
			case "23503":
				return models.Review{}, ErrNotFound
			}
		}
		return models.Review{}, err
	}

	return review, nil
}

// FindByID fetches a review together with its author's username.
func (r *PostgresReviewRepository) FindByID(ctx context.Context, id int) (models.Review, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Review{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT r.id, r.title_id, r.author_id, u.username, r.rating, r.comment, r.created_at
        FROM reviews r
        JOIN users u ON u.id = r.author_id
        WHERE r.id = $1
    `, id)

	var review models.Review
	if err := row.Scan(&review.ID, &review.TitleID, &review.AuthorID, &review.AuthorName, &review.Rating, &review.Comment, &review.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Review{}, ErrNotFound
		}
		return models.Review{}, fmt.Errorf("select review: %w", err)
	}

	return review, nil
}

// ListForTitle returns a title's reviews, newest first.
func (r *PostgresReviewRepository) ListForTitle(ctx context.Context, titleID int) ([]models.Review, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT r.id, r.title_id, r.author_id, u.username, r.rating, r.comment, r.created_at
        FROM reviews r
        JOIN users u ON u.id = r.author_id
        WHERE r.title_id = $1
        ORDER BY r.created_at DESC, r.id DESC
    `, titleID)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	var reviews []models.Review
	for rows.Next() {
		var review models.Review
		if err := rows.Scan(&review.ID, &review.TitleID, &review.AuthorID, &review.AuthorName, &review.Rating, &review.Comment, &review.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}

	return reviews, nil
}

// Update rewrites a review's rating and comment. The author and title stay
// fixed, and the title's aggregate rating refreshes in the same transaction.
func (r *PostgresReviewRepository) Update(ctx context.Context, id int, rating float64, comment string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return crdbpgxv5.ExecuteTx(ctx, conn, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var titleID int
		row := tx.QueryRow(ctx, `
            UPDATE reviews
            SET rating = $2, comment = $3
            WHERE id = $1
            RETURNING title_id
        `, id, rating, comment)
		if err := row.Scan(&titleID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("update review: %w", err)
		}

		if _, err := tx.Exec(ctx, recomputeRatingQuery, titleID); err != nil {
			return fmt.Errorf("recompute title rating: %w", err)
		}

		return nil
	})
}

// Delete removes a review and refreshes the title's aggregate rating.
func (r *PostgresReviewRepository) Delete(ctx context.Context, id int) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return crdbpgxv5.ExecuteTx(ctx, conn, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var titleID int
		row := tx.QueryRow(ctx, `DELETE FROM reviews WHERE id = $1 RETURNING title_id`, id)
		if err := row.Scan(&titleID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("delete review: %w", err)
		}

		if _, err := tx.Exec(ctx, recomputeRatingQuery, titleID); err != nil {
			return fmt.Errorf("recompute title rating: %w", err)
		}

		return nil
	})
}

var _ ReviewRepository = (*PostgresReviewRepository)(nil)
