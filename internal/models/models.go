package models

import "time"

// Kind values distinguish movies from TV shows in the catalogue.
const (
	KindMovie = "movie"
	KindTV    = "tv"
	KindAll   = "all"
)

// Title is a movie or TV show catalogue entry.
type Title struct {
	ID          int
	Name        string
	ReleaseDate time.Time
	Overview    string
	ImgURL      string
	MovieOrTV   string
	// Rating is the rounded mean of all review ratings, 0.0 when unreviewed.
	// It is only ever written by the review write path.
	Rating   float64
	GenreIDs []int
}

// Genre is a catalogue category referenced, never owned, by titles.
type Genre struct {
	ID   int
	Name string
}

// Review is a user's rating and comment for a title. A user holds at most
// one review per title.
type Review struct {
	ID         int
	TitleID    int
	AuthorID   string
	AuthorName string
	Rating     float64
	Comment    string
	CreatedAt  time.Time
}

// ValidationToken is a short-lived, single-use secret proving control of an
// email address during registration or password reset.
type ValidationToken struct {
	Email     string
	Token     string
	CreatedAt time.Time
}

// User represents an account within the ReelView platform.
type User struct {
	ID       string
	Email    string
	Username string
	Password string
	IsStaff  bool

	// Lockout state. While IsLocked is true and LockUntil is in the future,
	// authentication is rejected regardless of credentials.
	FailedLoginAttempts int
	IsLocked            bool
	LockUntil           *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
