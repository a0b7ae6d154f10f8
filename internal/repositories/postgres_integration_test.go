package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reelview/backend/internal/auth"
	"github.com/reelview/backend/internal/catalog"
	"github.com/reelview/backend/internal/models"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()

	os.Exit(code)
}

func TestPostgresUserRepository_CreateFindAndUpdate(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUserRepository(testPool)

	user := models.User{
		ID:        uuid.NewString(),
		Email:     "alice@example.com",
		Username:  "alice",
		Password:  "secret-hash",
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		UpdatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	dup := models.User{
		ID:        uuid.NewString(),
		Email:     user.Email,
		Username:  "alice-again",
		Password:  "another-hash",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict when creating duplicate email, got %v", err)
	}

	fetched, err := repo.FindByEmail(ctx, user.Email)
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}

	if fetched.ID != user.ID || fetched.Username != user.Username || fetched.Password != user.Password {
		t.Fatalf("unexpected user fetched: %+v", fetched)
	}

	updated := user
	updated.Email = "updated@example.com"
	updated.Password = "rotated-hash"
	updated.UpdatedAt = time.Now().UTC().Add(time.Minute)

	if err := repo.Update(ctx, updated); err != nil {
		t.Fatalf("update user: %v", err)
	}

	fetched, err = repo.FindByEmail(ctx, updated.Email)
	if err != nil {
		t.Fatalf("find by updated email: %v", err)
	}

	if fetched.Email != updated.Email || fetched.Password != updated.Password {
		t.Fatalf("expected updated fields to persist, got %+v", fetched)
	}

	missing := models.User{
		ID:        uuid.NewString(),
		Email:     "missing@example.com",
		Username:  "missing",
		Password:  "hash",
		UpdatedAt: time.Now().UTC(),
	}

	if err := repo.Update(ctx, missing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating missing user, got %v", err)
	}
}

func TestPostgresUserRepository_FailedLoginLockout(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUserRepository(testPool)
	user := createTestUser(t, repo, "lockme@example.com", "lockme")

	lockUntil := time.Now().UTC().Add(time.Hour)

	for attempt := 1; attempt <= 2; attempt++ {
		record, err := repo.RecordFailedLogin(ctx, user.ID, 3, lockUntil)
		if err != nil {
			t.Fatalf("record failed login %d: %v", attempt, err)
		}
		if record.FailedLoginAttempts != attempt {
			t.Fatalf("expected %d failed attempts, got %d", attempt, record.FailedLoginAttempts)
		}
		if record.IsLocked {
			t.Fatalf("account locked after %d attempts", attempt)
		}
	}

	record, err := repo.RecordFailedLogin(ctx, user.ID, 3, lockUntil)
	if err != nil {
		t.Fatalf("record locking attempt: %v", err)
	}
	if !record.IsLocked {
		t.Fatal("expected account to lock on the third attempt")
	}
	if record.LockUntil == nil || !timesClose(*record.LockUntil, lockUntil, time.Millisecond) {
		t.Fatalf("expected lock_until %v, got %v", lockUntil, record.LockUntil)
	}

	if err := repo.ResetLockout(ctx, user.ID); err != nil {
		t.Fatalf("reset lockout: %v", err)
	}

	fetched, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find user after reset: %v", err)
	}
	if fetched.IsLocked || fetched.FailedLoginAttempts != 0 || fetched.LockUntil != nil {
		t.Fatalf("expected lockout cleared, got %+v", fetched)
	}

	if _, err := repo.RecordFailedLogin(ctx, uuid.NewString(), 3, lockUntil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
}

func TestPostgresTitleRepository_CreateFindAndDelete(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	genreRepo := NewPostgresGenreRepository(testPool)
	titleRepo := NewPostgresTitleRepository(testPool)

	action, err := genreRepo.Create(ctx, models.Genre{ID: 28, Name: "Action"})
	if err != nil {
		t.Fatalf("create genre: %v", err)
	}
	scifi, err := genreRepo.Create(ctx, models.Genre{ID: 878, Name: "Science Fiction"})
	if err != nil {
		t.Fatalf("create genre: %v", err)
	}

	title, err := titleRepo.Create(ctx, models.Title{
		Name:        "Dune",
		ReleaseDate: time.Date(2021, 9, 15, 0, 0, 0, 0, time.UTC),
		Overview:    "Spice.",
		MovieOrTV:   models.KindMovie,
		GenreIDs:    []int{action.ID, scifi.ID},
	})
	if err != nil {
		t.Fatalf("create title: %v", err)
	}
	if title.ID == 0 {
		t.Fatal("expected an allocated title id")
	}

	// Names are not unique, so the TV remake coexists with the film.
	remake := models.Title{
		Name:        title.Name,
		ReleaseDate: time.Date(2024, 11, 17, 0, 0, 0, 0, time.UTC),
		MovieOrTV:   models.KindTV,
	}
	created, err := titleRepo.Create(ctx, remake)
	if err != nil {
		t.Fatalf("create same-name title: %v", err)
	}
	if created.ID == title.ID {
		t.Fatalf("expected a fresh id for the same-name title, got %d twice", created.ID)
	}

	taken := models.Title{ID: title.ID, Name: "Taken", MovieOrTV: models.KindMovie}
	if _, err := titleRepo.Create(ctx, taken); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for explicit duplicate id, got %v", err)
	}

	orphan := models.Title{Name: "Orphan", MovieOrTV: models.KindMovie, GenreIDs: []int{9999}}
	if _, err := titleRepo.Create(ctx, orphan); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown genre link, got %v", err)
	}

	fetched, err := titleRepo.FindByID(ctx, title.ID)
	if err != nil {
		t.Fatalf("find title: %v", err)
	}
	if len(fetched.GenreIDs) != 2 || fetched.GenreIDs[0] != action.ID || fetched.GenreIDs[1] != scifi.ID {
		t.Fatalf("unexpected genre ids %v", fetched.GenreIDs)
	}

	if err := titleRepo.Delete(ctx, title.ID); err != nil {
		t.Fatalf("delete title: %v", err)
	}
	if _, err := titleRepo.FindByID(ctx, title.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := titleRepo.Delete(ctx, title.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestPostgresTitleRepository_ConcurrentCreateAssignsDistinctIDs(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	titleRepo := NewPostgresTitleRepository(testPool)

	const writers = 8

	var wg sync.WaitGroup
	errs := make([]error, writers)
	ids := make([]int, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			created, err := titleRepo.Create(ctx, models.Title{
				Name:        fmt.Sprintf("Simultaneous %d", i),
				ReleaseDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
				MovieOrTV:   models.KindMovie,
			})
			errs[i] = err
			ids[i] = created.ID
		}(i)
	}
	wg.Wait()

	seen := make(map[int]int, writers)
	for i := 0; i < writers; i++ {
		if errs[i] != nil {
			t.Fatalf("concurrent create %d: %v", i, errs[i])
		}
		if prev, taken := seen[ids[i]]; taken {
			t.Fatalf("creates %d and %d were both assigned id %d", prev, i, ids[i])
		}
		seen[ids[i]] = i
	}
}

func TestPostgresTitleRepository_ListPagination(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	titleRepo := NewPostgresTitleRepository(testPool)

	for i := 1; i <= 5; i++ {
		_, err := titleRepo.Create(ctx, models.Title{
			Name:        fmt.Sprintf("Title %d", i),
			ReleaseDate: time.Date(2000+i, 1, 1, 0, 0, 0, 0, time.UTC),
			MovieOrTV:   models.KindMovie,
		})
		if err != nil {
			t.Fatalf("create title %d: %v", i, err)
		}
	}

	q := catalog.TitleQuery{
		Kind:       models.KindAll,
		OrderField: "id",
		Page:       2,
		PageSize:   2,
	}

	titles, total, err := titleRepo.List(ctx, q)
	if err != nil {
		t.Fatalf("list titles: %v", err)
	}
	if total != 5 {
		t.Fatalf("expected total 5, got %d", total)
	}
	if len(titles) != 2 || titles[0].Name != "Title 3" || titles[1].Name != "Title 4" {
		t.Fatalf("unexpected page contents: %+v", titles)
	}

	q.Page = 4
	if _, _, err := titleRepo.List(ctx, q); !errors.Is(err, catalog.ErrInvalidPage) {
		t.Fatalf("expected ErrInvalidPage beyond the last page, got %v", err)
	}

	q.Page = 1
	q.Search = "Title 2"
	titles, total, err = titleRepo.List(ctx, q)
	if err != nil {
		t.Fatalf("list filtered titles: %v", err)
	}
	if total != 1 || len(titles) != 1 || titles[0].Name != "Title 2" {
		t.Fatalf("unexpected filtered result: %+v", titles)
	}
}

func TestPostgresReviewRepository_RatingRecompute(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	titleRepo := NewPostgresTitleRepository(testPool)
	reviewRepo := NewPostgresReviewRepository(testPool)

	alice := createTestUser(t, userRepo, "alice@example.com", "alice")
	bob := createTestUser(t, userRepo, "bob@example.com", "bob")

	title, err := titleRepo.Create(ctx, models.Title{
		Name:        "Severance",
		ReleaseDate: time.Date(2022, 2, 17, 0, 0, 0, 0, time.UTC),
		MovieOrTV:   models.KindTV,
	})
	if err != nil {
		t.Fatalf("create title: %v", err)
	}

	first, err := reviewRepo.Create(ctx, models.Review{
		TitleID:   title.ID,
		AuthorID:  alice.ID,
		Rating:    8.0,
		Comment:   "Gripping.",
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create first review: %v", err)
	}

	if _, err := reviewRepo.Create(ctx, models.Review{
		TitleID:   title.ID,
		AuthorID:  alice.ID,
		Rating:    9.0,
		Comment:   "Changed my mind.",
		CreatedAt: time.Now().UTC(),
	}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for second review by the same author, got %v", err)
	}

	if _, err := reviewRepo.Create(ctx, models.Review{
		TitleID:   99999,
		AuthorID:  bob.ID,
		Rating:    5.0,
		CreatedAt: time.Now().UTC(),
	}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown title, got %v", err)
	}

	if _, err := reviewRepo.Create(ctx, models.Review{
		TitleID:   title.ID,
		AuthorID:  bob.ID,
		Rating:    9.0,
		Comment:   "Great.",
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("create second review: %v", err)
	}

	fetched, err := titleRepo.FindByID(ctx, title.ID)
	if err != nil {
		t.Fatalf("find title: %v", err)
	}
	if fetched.Rating != 8.5 {
		t.Fatalf("expected recomputed rating 8.5, got %v", fetched.Rating)
	}

	if err := reviewRepo.Update(ctx, first.ID, 4.0, "On reflection."); err != nil {
		t.Fatalf("update review: %v", err)
	}
	fetched, err = titleRepo.FindByID(ctx, title.ID)
	if err != nil {
		t.Fatalf("find title after update: %v", err)
	}
	if fetched.Rating != 6.5 {
		t.Fatalf("expected recomputed rating 6.5, got %v", fetched.Rating)
	}

	reviews, err := reviewRepo.ListForTitle(ctx, title.ID)
	if err != nil {
		t.Fatalf("list reviews: %v", err)
	}
	if len(reviews) != 2 {
		t.Fatalf("expected 2 reviews, got %d", len(reviews))
	}
	for _, review := range reviews {
		if review.AuthorName == "" {
			t.Fatalf("expected author name on review %+v", review)
		}
	}

	if err := reviewRepo.Delete(ctx, first.ID); err != nil {
		t.Fatalf("delete review: %v", err)
	}
	fetched, err = titleRepo.FindByID(ctx, title.ID)
	if err != nil {
		t.Fatalf("find title after delete: %v", err)
	}
	if fetched.Rating != 9.0 {
		t.Fatalf("expected recomputed rating 9.0, got %v", fetched.Rating)
	}

	if err := reviewRepo.Delete(ctx, first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestPostgresGenreRepository_UpsertByName(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresGenreRepository(testPool)

	if _, err := repo.Create(ctx, models.Genre{ID: 18, Name: "Drama"}); err != nil {
		t.Fatalf("create genre: %v", err)
	}

	provider := []models.Genre{
		{ID: 18, Name: "Drama"},
		{ID: 35, Name: "Comedy"},
	}
	if err := repo.UpsertByName(ctx, provider); err != nil {
		t.Fatalf("upsert genres: %v", err)
	}
	if err := repo.UpsertByName(ctx, provider); err != nil {
		t.Fatalf("second upsert must be a no-op: %v", err)
	}

	genres, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list genres: %v", err)
	}
	if len(genres) != 2 {
		t.Fatalf("expected 2 genres, got %+v", genres)
	}
}

func TestPostgresSessionStore_SaveFindAndDelete(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	user := createTestUser(t, userRepo, "owner@example.com", "owner")

	store := NewPostgresSessionStore(testPool)
	expires := time.Now().UTC().Add(24 * time.Hour)
	session := auth.Session{
		RefreshToken: uuid.NewString(),
		UserID:       user.ID,
		ExpiresAt:    expires,
	}

	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("save session: %v", err)
	}

	loaded, err := store.Find(ctx, session.RefreshToken)
	if err != nil {
		t.Fatalf("find session: %v", err)
	}

	if loaded.UserID != session.UserID || !timesClose(loaded.ExpiresAt, expires.UTC(), time.Millisecond) {
		t.Fatalf("unexpected session loaded: %+v", loaded)
	}

	updated := session
	updated.ExpiresAt = expires.Add(48 * time.Hour)
	if err := store.Save(ctx, updated); err != nil {
		t.Fatalf("update session: %v", err)
	}

	loaded, err = store.Find(ctx, session.RefreshToken)
	if err != nil {
		t.Fatalf("find session after update: %v", err)
	}

	if !timesClose(loaded.ExpiresAt, updated.ExpiresAt.UTC(), time.Millisecond) {
		t.Fatalf("expected updated expiry, got %v", loaded.ExpiresAt)
	}

	if err := store.Delete(ctx, session.RefreshToken); err != nil {
		t.Fatalf("delete session: %v", err)
	}

	if _, err := store.Find(ctx, session.RefreshToken); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after delete, got %v", err)
	}

	if err := store.Delete(ctx, session.RefreshToken); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound deleting twice, got %v", err)
	}
}

func TestPostgresValidationTokenRepository_SingleUse(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresValidationTokenRepository(testPool)

	token := models.ValidationToken{
		Email:     "pending@example.com",
		Token:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}

	if err := repo.Insert(ctx, token); err != nil {
		t.Fatalf("insert token: %v", err)
	}
	if err := repo.Insert(ctx, token); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate token, got %v", err)
	}

	loaded, err := repo.Find(ctx, token.Token)
	if err != nil {
		t.Fatalf("find token: %v", err)
	}
	if loaded.Email != token.Email {
		t.Fatalf("unexpected token loaded: %+v", loaded)
	}

	if err := repo.Delete(ctx, token.Token); err != nil {
		t.Fatalf("delete token: %v", err)
	}
	if err := repo.Delete(ctx, token.Token); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir := filepath.Join("..", "..", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		contents, err := os.ReadFile(filepath.Join(migrationsDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		if _, err := pool.Exec(ctx, string(contents)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

func resetDatabase(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	conn, err := testPool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "TRUNCATE TABLE reviews, title_genres, titles, genres, sessions, validation_tokens, users CASCADE"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

func createTestUser(t *testing.T, repo *PostgresUserRepository, email, username string) models.User {
	t.Helper()
	user := models.User{
		ID:        uuid.NewString(),
		Email:     email,
		Username:  username,
		Password:  "password-hash",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return user
}

func timesClose(a, b time.Time, delta time.Duration) bool {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= delta
}
