package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	crdbpgxv5 "github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgxv5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/reelview/backend/internal/catalog"
	"github.com/reelview/backend/internal/db"
	"github.com/reelview/backend/internal/models"
)

// PostgresTitleRepository provides PostgreSQL-backed persistence for titles.
type PostgresTitleRepository struct {
	pool db.Pool
}

// NewPostgresTitleRepository constructs a title repository backed by PostgreSQL.
func NewPostgresTitleRepository(pool db.Pool) *PostgresTitleRepository {
	return &PostgresTitleRepository{pool: pool}
}

// lowestFreeIDQuery picks the smallest positive integer not yet used as a
// title id. It runs inside the insert transaction so retries re-pick.
const lowestFreeIDQuery = `
        SELECT g.id
        FROM generate_series(1, (SELECT COALESCE(MAX(id), 0) + 1 FROM titles)) AS g(id)
        WHERE g.id NOT IN (SELECT id FROM titles)
        ORDER BY g.id
        LIMIT 1`

// titleIDRetryLimit caps re-picks when concurrent creates race for the same
// free id.
const titleIDRetryLimit = 5

// Create inserts a title and its genre links. A zero id is replaced with the
// lowest unused positive integer. The transaction runs serializable so two
// concurrent creates cannot both claim the same free id; a primary-key
// collision on an auto-assigned id re-picks instead of surfacing a conflict.
func (r *PostgresTitleRepository) Create(ctx context.Context, title models.Title) (models.Title, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Title{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	assignID := title.ID == 0
	for attempt := 0; ; attempt++ {
		err = crdbpgxv5.ExecuteTx(ctx, conn, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
			if assignID {
				if err := tx.QueryRow(ctx, lowestFreeIDQuery).Scan(&title.ID); err != nil {
					return fmt.Errorf("allocate title id: %w", err)
				}
			}

			_, err := tx.Exec(ctx, `
            INSERT INTO titles (id, name, release_date, overview, img_url, movie_or_tv, rating)
            VALUES ($1, $2, $3, $4, $5, $6, $7)
        `, title.ID, title.Name, title.ReleaseDate, title.Overview, title.ImgURL, title.MovieOrTV, title.Rating)
			if err != nil {
				return fmt.Errorf("insert title: %w", err)
			}

			return insertGenreLinks(ctx, tx, title.ID, title.GenreIDs)
		})
		if err == nil {
			return title, nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			// Serialization failures retry inside ExecuteTx; a duplicate key
			// on titles_pkey here means another connection took the id we
			// picked, so pick again. An explicit id that collides is a
			// genuine conflict.
			if pgErr.Code == "23505" && pgErr.ConstraintName == "titles_pkey" && assignID && attempt < titleIDRetryLimit {
				continue
			}
			switch pgErr.Code {
			case "23505":
				return models.Title{}, ErrConflict
			case "23503":
				return models.Title{}, ErrNotFound
			}
		}
		return models.Title{}, err
	}
}

func insertGenreLinks(ctx context.Context, tx pgx.Tx, titleID int, genreIDs []int) error {
	for _, genreID := range genreIDs {
		if _, err := tx.Exec(ctx, `
            INSERT INTO title_genres (title_id, genre_id) VALUES ($1, $2)
        `, titleID, genreID); err != nil {
			return fmt.Errorf("link genre %d: %w", genreID, err)
		}
	}
	return nil
}

// FindByID fetches a single title with its genre ids.
func (r *PostgresTitleRepository) FindByID(ctx context.Context, id int) (models.Title, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Title{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, name, release_date, overview, img_url, movie_or_tv, rating
        FROM titles
        WHERE id = $1
    `, id)

	var title models.Title
	if err := row.Scan(&title.ID, &title.Name, &title.ReleaseDate, &title.Overview, &title.ImgURL, &title.MovieOrTV, &title.Rating); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Title{}, ErrNotFound
		}
		return models.Title{}, fmt.Errorf("select title: %w", err)
	}

	rows, err := conn.Query(ctx, `SELECT genre_id FROM title_genres WHERE title_id = $1 ORDER BY genre_id`, id)
	if err != nil {
		return models.Title{}, fmt.Errorf("query title genres: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var genreID int
		if err := rows.Scan(&genreID); err != nil {
			return models.Title{}, fmt.Errorf("scan title genre: %w", err)
		}
		title.GenreIDs = append(title.GenreIDs, genreID)
	}
	if err := rows.Err(); err != nil {
		return models.Title{}, fmt.Errorf("iterate title genres: %w", err)
	}

	return title, nil
}

// List applies the validated catalogue query. Field orderings paginate in
// SQL; best-match ranking fetches the filtered set and ranks it in memory.
func (r *PostgresTitleRepository) List(ctx context.Context, q catalog.TitleQuery) ([]models.Title, int, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	where, args := compileTitleFilters(q)

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM titles`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count titles: %w", err)
	}

	if !q.All {
		totalPages := (total + q.PageSize - 1) / q.PageSize
		if totalPages == 0 {
			totalPages = 1
		}
		if q.Page > totalPages {
			return nil, 0, catalog.ErrInvalidPage
		}
	}

	direction := "ASC"
	if q.OrderDesc && !q.BestMatch {
		direction = "DESC"
	}
	orderField := q.OrderField
	if q.BestMatch {
		// Ranking is stable, so rows enter it in the default -rating order.
		orderField, direction = "rating", "DESC"
	}

	query := `
        SELECT id, name, release_date, overview, img_url, movie_or_tv, rating
        FROM titles` + where + fmt.Sprintf(" ORDER BY %s %s, id ASC", orderField, direction)

	if !q.All && !q.BestMatch {
		args = append(args, q.PageSize, (q.Page-1)*q.PageSize)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query titles: %w", err)
	}
	defer rows.Close()

	var titles []models.Title
	for rows.Next() {
		var title models.Title
		if err := rows.Scan(&title.ID, &title.Name, &title.ReleaseDate, &title.Overview, &title.ImgURL, &title.MovieOrTV, &title.Rating); err != nil {
			return nil, 0, fmt.Errorf("scan title: %w", err)
		}
		titles = append(titles, title)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate titles: %w", err)
	}

	if q.BestMatch {
		catalog.RankTitles(titles, q.Search, q.OrderDesc)
		if !q.All {
			start := (q.Page - 1) * q.PageSize
			end := start + q.PageSize
			if end > len(titles) {
				end = len(titles)
			}
			titles = titles[start:end]
		}
	}

	if err := attachGenreIDs(ctx, conn, titles); err != nil {
		return nil, 0, err
	}

	return titles, total, nil
}

func compileTitleFilters(q catalog.TitleQuery) (string, []any) {
	var clauses []string
	var args []any

	if q.Search != "" {
		args = append(args, "%"+q.Search+"%")
		clauses = append(clauses, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if q.Kind != "" && q.Kind != models.KindAll {
		args = append(args, q.Kind)
		clauses = append(clauses, fmt.Sprintf("movie_or_tv = $%d", len(args)))
	}
	if len(q.GenreIDs) > 0 {
		args = append(args, q.GenreIDs)
		clauses = append(clauses, fmt.Sprintf("EXISTS (SELECT 1 FROM title_genres tg WHERE tg.title_id = titles.id AND tg.genre_id = ANY($%d))", len(args)))
	}
	if q.YearStart != nil && q.YearEnd != nil {
		args = append(args, *q.YearStart)
		clauses = append(clauses, fmt.Sprintf("release_date >= make_date($%d, 1, 1)", len(args)))
		args = append(args, *q.YearEnd)
		clauses = append(clauses, fmt.Sprintf("release_date <= make_date($%d, 12, 31)", len(args)))
	}
	if q.RatingStart != nil && q.RatingEnd != nil {
		args = append(args, *q.RatingStart)
		clauses = append(clauses, fmt.Sprintf("rating >= $%d", len(args)))
		args = append(args, *q.RatingEnd)
		clauses = append(clauses, fmt.Sprintf("rating <= $%d", len(args)))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type genreQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func attachGenreIDs(ctx context.Context, conn genreQuerier, titles []models.Title) error {
	if len(titles) == 0 {
		return nil
	}

	ids := make([]int, len(titles))
	index := make(map[int]*models.Title, len(titles))
	for i := range titles {
		ids[i] = titles[i].ID
		index[titles[i].ID] = &titles[i]
	}

	rows, err := conn.Query(ctx, `
        SELECT title_id, genre_id
        FROM title_genres
        WHERE title_id = ANY($1)
        ORDER BY title_id, genre_id
    `, ids)
	if err != nil {
		return fmt.Errorf("query title genres: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var titleID, genreID int
		if err := rows.Scan(&titleID, &genreID); err != nil {
			return fmt.Errorf("scan title genre: %w", err)
		}
		if title, ok := index[titleID]; ok {
			title.GenreIDs = append(title.GenreIDs, genreID)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate title genres: %w", err)
	}

	return nil
}

// Update rewrites a title row and its genre links.
func (r *PostgresTitleRepository) Update(ctx context.Context, title models.Title) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	err = crdbpgxv5.ExecuteTx(ctx, conn, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
            UPDATE titles
            SET name = $2, release_date = $3, overview = $4, img_url = $5, movie_or_tv = $6
            WHERE id = $1
        `, title.ID, title.Name, title.ReleaseDate, title.Overview, title.ImgURL, title.MovieOrTV)
		if err != nil {
			return fmt.Errorf("update title: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}

		if _, err := tx.Exec(ctx, `DELETE FROM title_genres WHERE title_id = $1`, title.ID); err != nil {
			return fmt.Errorf("clear title genres: %w", err)
		}

		return insertGenreLinks(ctx, tx, title.ID, title.GenreIDs)
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return err
	}

	return nil
}

// UpdateImgURL rewrites only the poster location, used after a successful
// mirror into object storage.
func (r *PostgresTitleRepository) UpdateImgURL(ctx context.Context, id int, imgURL string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `UPDATE titles SET img_url = $2 WHERE id = $1`, id, imgURL)
	if err != nil {
		return fmt.Errorf("update title poster: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a title; reviews and genre links go with it via cascades.
func (r *PostgresTitleRepository) Delete(ctx context.Context, id int) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM titles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete title: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// PostgresGenreRepository provides PostgreSQL-backed persistence for genres.
type PostgresGenreRepository struct {
	pool db.Pool
}

// NewPostgresGenreRepository constructs a genre repository backed by PostgreSQL.
func NewPostgresGenreRepository(pool db.Pool) *PostgresGenreRepository {
	return &PostgresGenreRepository{pool: pool}
}

// Create inserts a genre, honouring an explicit id when provided.
func (r *PostgresGenreRepository) Create(ctx context.Context, genre models.Genre) (models.Genre, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Genre{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var row pgx.Row
	if genre.ID != 0 {
		row = conn.QueryRow(ctx, `INSERT INTO genres (id, name) VALUES ($1, $2) RETURNING id`, genre.ID, genre.Name)
	} else {
		row = conn.QueryRow(ctx, `INSERT INTO genres (name) VALUES ($1) RETURNING id`, genre.Name)
	}

	if err := row.Scan(&genre.ID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.Genre{}, ErrConflict
		}
		return models.Genre{}, fmt.Errorf("insert genre: %w", err)
	}

	return genre, nil
}

// FindByID fetches a genre by id.
func (r *PostgresGenreRepository) FindByID(ctx context.Context, id int) (models.Genre, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Genre{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var genre models.Genre
	row := conn.QueryRow(ctx, `SELECT id, name FROM genres WHERE id = $1`, id)
	if err := row.Scan(&genre.ID, &genre.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Genre{}, ErrNotFound
		}
		return models.Genre{}, fmt.Errorf("select genre: %w", err)
	}

	return genre, nil
}

// List returns all genres ordered by id.
func (r *PostgresGenreRepository) List(ctx context.Context) ([]models.Genre, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `SELECT id, name FROM genres ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query genres: %w", err)
	}
	defer rows.Close()

	var genres []models.Genre
	for rows.Next() {
		var genre models.Genre
		if err := rows.Scan(&genre.ID, &genre.Name); err != nil {
			return nil, fmt.Errorf("scan genre: %w", err)
		}
		genres = append(genres, genre)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate genres: %w", err)
	}

	return genres, nil
}

// Update renames a genre.
func (r *PostgresGenreRepository) Update(ctx context.Context, genre models.Genre) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `UPDATE genres SET name = $2 WHERE id = $1`, genre.ID, genre.Name)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("update genre: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a genre and its title links.
func (r *PostgresGenreRepository) Delete(ctx context.Context, id int) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM genres WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete genre: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// UpsertByName inserts provider genres that are not present yet. Existing
// rows keep their local id and name.
func (r *PostgresGenreRepository) UpsertByName(ctx context.Context, genres []models.Genre) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	for _, genre := range genres {
		if _, err := conn.Exec(ctx, `
            INSERT INTO genres (id, name)
            VALUES ($1, $2)
            ON CONFLICT DO NOTHING
        `, genre.ID, genre.Name); err != nil {
			return fmt.Errorf("upsert genre %q: %w", genre.Name, err)
		}
	}

	return nil
}

var _ TitleRepository = (*PostgresTitleRepository)(nil)
var _ GenreRepository = (*PostgresGenreRepository)(nil)
