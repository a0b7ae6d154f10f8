package handlers

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/reelview/backend/internal/auth"
	"github.com/reelview/backend/internal/catalog"
	"github.com/reelview/backend/internal/metadata"
	"github.com/reelview/backend/internal/models"
	"github.com/reelview/backend/internal/repositories"
)

type inMemoryUserStore struct {
	users map[string]models.User
}

func newInMemoryUserStore() *inMemoryUserStore {
	return &inMemoryUserStore{users: make(map[string]models.User)}
}

func (s *inMemoryUserStore) Create(_ context.Context, user models.User) error {
	for _, existing := range s.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return repositories.ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *inMemoryUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s *inMemoryUserStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *inMemoryUserStore) Update(_ context.Context, user models.User) error {
	if _, ok := s.users[user.ID]; !ok {
		return repositories.ErrNotFound
	}
	for _, existing := range s.users {
		if existing.ID == user.ID {
			continue
		}
		if existing.Email == user.Email || existing.Username == user.Username {
			return repositories.ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *inMemoryUserStore) Delete(_ context.Context, id string) error {
	if _, ok := s.users[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

type inMemoryTitleStore struct {
	titles  map[int]models.Title
	nextID  int
	listErr error
	lastQ   catalog.TitleQuery
}

func newInMemoryTitleStore() *inMemoryTitleStore {
	return &inMemoryTitleStore{titles: make(map[int]models.Title), nextID: 1}
}

func (s *inMemoryTitleStore) Create(_ context.Context, title models.Title) (models.Title, error) {
	if title.ID == 0 {
		title.ID = s.nextID
	} else if _, exists := s.titles[title.ID]; exists {
		return models.Title{}, repositories.ErrConflict
	}
	if title.ID >= s.nextID {
		s.nextID = title.ID + 1
	}
	s.titles[title.ID] = title
	return title, nil
}

func (s *inMemoryTitleStore) FindByID(_ context.Context, id int) (models.Title, error) {
	title, ok := s.titles[id]
	if !ok {
		return models.Title{}, repositories.ErrNotFound
	}
	return title, nil
}

func (s *inMemoryTitleStore) List(_ context.Context, q catalog.TitleQuery) ([]models.Title, int, error) {
	s.lastQ = q
	if s.listErr != nil {
		return nil, 0, s.listErr
	}
	var titles []models.Title
	for _, title := range s.titles {
		titles = append(titles, title)
	}
	sort.Slice(titles, func(i, j int) bool { return titles[i].ID < titles[j].ID })
	return titles, len(titles), nil
}

func (s *inMemoryTitleStore) Update(_ context.Context, title models.Title) error {
	if _, ok := s.titles[title.ID]; !ok {
		return repositories.ErrNotFound
	}
	s.titles[title.ID] = title
	return nil
}

func (s *inMemoryTitleStore) Delete(_ context.Context, id int) error {
	if _, ok := s.titles[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.titles, id)
	return nil
}

type inMemoryGenreStore struct {
	genres map[int]models.Genre
	nextID int
}

func newInMemoryGenreStore() *inMemoryGenreStore {
	return &inMemoryGenreStore{genres: make(map[int]models.Genre), nextID: 1}
}

func (s *inMemoryGenreStore) Create(_ context.Context, genre models.Genre) (models.Genre, error) {
	for _, existing := range s.genres {
		if existing.Name == genre.Name {
			return models.Genre{}, repositories.ErrConflict
		}
	}
	if genre.ID == 0 {
		genre.ID = s.nextID
	}
	s.nextID = genre.ID + 1
	s.genres[genre.ID] = genre
	return genre, nil
}

func (s *inMemoryGenreStore) FindByID(_ context.Context, id int) (models.Genre, error) {
	genre, ok := s.genres[id]
	if !ok {
		return models.Genre{}, repositories.ErrNotFound
	}
	return genre, nil
}

func (s *inMemoryGenreStore) List(_ context.Context) ([]models.Genre, error) {
	var genres []models.Genre
	for _, genre := range s.genres {
		genres = append(genres, genre)
	}
	sort.Slice(genres, func(i, j int) bool { return genres[i].ID < genres[j].ID })
	return genres, nil
}

func (s *inMemoryGenreStore) Update(_ context.Context, genre models.Genre) error {
	if _, ok := s.genres[genre.ID]; !ok {
		return repositories.ErrNotFound
	}
	s.genres[genre.ID] = genre
	return nil
}

func (s *inMemoryGenreStore) Delete(_ context.Context, id int) error {
	if _, ok := s.genres[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.genres, id)
	return nil
}

type inMemoryReviewStore struct {
	reviews map[int]models.Review
	nextID  int
}

func newInMemoryReviewStore() *inMemoryReviewStore {
	return &inMemoryReviewStore{reviews: make(map[int]models.Review), nextID: 1}
}

func (s *inMemoryReviewStore) Create(_ context.Context, review models.Review) (models.Review, error) {
	for _, existing := range s.reviews {
		if existing.TitleID == review.TitleID && existing.AuthorID == review.AuthorID {
			return models.Review{}, repositories.ErrConflict
		}
	}
	review.ID = s.nextID
	s.nextID++
	s.reviews[review.ID] = review
	return review, nil
}

func (s *inMemoryReviewStore) FindByID(_ context.Context, id int) (models.Review, error) {
	review, ok := s.reviews[id]
	if !ok {
		return models.Review{}, repositories.ErrNotFound
	}
	return review, nil
}

func (s *inMemoryReviewStore) ListForTitle(_ context.Context, titleID int) ([]models.Review, error) {
	var reviews []models.Review
	for _, review := range s.reviews {
		if review.TitleID == titleID {
			reviews = append(reviews, review)
		}
	}
	sort.Slice(reviews, func(i, j int) bool { return reviews[i].ID > reviews[j].ID })
	return reviews, nil
}

func (s *inMemoryReviewStore) Update(_ context.Context, id int, rating float64, comment string) error {
	review, ok := s.reviews[id]
	if !ok {
		return repositories.ErrNotFound
	}
	review.Rating = rating
	review.Comment = comment
	s.reviews[id] = review
	return nil
}

func (s *inMemoryReviewStore) Delete(_ context.Context, id int) error {
	if _, ok := s.reviews[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.reviews, id)
	return nil
}

// newTestSessions returns a real session manager over the in-memory store so
// tests mint and verify genuine bearer tokens.
func newTestSessions(users auth.UserSource) *auth.Manager {
	return auth.NewManager("test-secret", time.Minute, time.Hour, auth.NewInMemorySessionStore(), users)
}

func bearerFor(t *testing.T, sessions *auth.Manager, user models.User) string {
	t.Helper()
	tokens, err := sessions.Issue(context.Background(), user)
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}
	return "Bearer " + tokens.AccessToken
}

type stubTokenService struct {
	issued    []string
	verifyErr error
	consumed  []string
}

func (s *stubTokenService) Issue(_ context.Context, email string) (models.ValidationToken, error) {
	s.issued = append(s.issued, email)
	return models.ValidationToken{Email: email, Token: "token-123", CreatedAt: time.Now().UTC()}, nil
}

func (s *stubTokenService) Verify(_ context.Context, _, _ string) error {
	return s.verifyErr
}

func (s *stubTokenService) Consume(_ context.Context, token string) error {
	s.consumed = append(s.consumed, token)
	return nil
}

type recordingMailer struct {
	sent []string
	err  error
}

func (m *recordingMailer) SendValidationToken(to, _ string, _ int) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to)
	return nil
}

type stubMetadata struct {
	results []metadata.SearchResult
	err     error
	queries []string
}

func (s *stubMetadata) SearchTitles(_ context.Context, query, _ string) ([]metadata.SearchResult, error) {
	s.queries = append(s.queries, query)
	return s.results, s.err
}

type stubOAuth struct {
	identity auth.GoogleIdentity
	err      error
}

func (s *stubOAuth) Verify(_ context.Context, _ string) (auth.GoogleIdentity, error) {
	return s.identity, s.err
}

type recordingMirror struct {
	titleIDs []int
	urls     []string
}

func (m *recordingMirror) Enqueue(_ context.Context, titleID int, url string) error {
	m.titleIDs = append(m.titleIDs, titleID)
	m.urls = append(m.urls, url)
	return nil
}
