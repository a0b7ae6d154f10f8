package handlers

import (
	"net/http"
	"time"

	"github.com/reelview/backend/internal/catalog"
	"github.com/reelview/backend/internal/middleware"
)

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	auth := AuthHandler{Users: deps.Users, Gate: deps.Gate, Sessions: deps.Sessions, OAuth: deps.OAuth}
	users := UserHandler{Users: deps.Users, Tokens: deps.Tokens, Sessions: deps.Sessions, MinPasswordBits: deps.MinPasswordBits}
	validation := ValidationHandler{Users: deps.Users, Tokens: deps.Tokens, Mailer: deps.Mailer, TokenTTL: deps.TokenTTL}
	titles := TitleHandler{Titles: deps.Titles, Sessions: deps.Sessions, Posters: deps.Posters, Bounds: deps.Bounds}
	genres := GenreHandler{Genres: deps.Genres, Sessions: deps.Sessions}
	reviews := ReviewHandler{Reviews: deps.Reviews, Sessions: deps.Sessions, RatingMin: float64(deps.Bounds.RatingMin), RatingMax: float64(deps.Bounds.RatingMax)}
	search := SearchHandler{Metadata: deps.Metadata, Sessions: deps.Sessions}

	mux.HandleFunc("/healthz", health.Handle)

	mux.HandleFunc("POST /api/v1/auth/login", auth.Login)
	mux.HandleFunc("POST /api/v1/auth/google", auth.GoogleLogin)
	mux.HandleFunc("POST /api/v1/auth/refresh", auth.Refresh)
	mux.HandleFunc("POST /api/v1/auth/logout", auth.Logout)

	mux.HandleFunc("POST /api/v1/users", RateLimited(deps.Limiter, users.Register))
	mux.HandleFunc("GET /api/v1/users/{id}", users.Get)
	mux.HandleFunc("PATCH /api/v1/users/{id}", users.Patch)
	mux.HandleFunc("DELETE /api/v1/users/{id}", users.Delete)
	mux.HandleFunc("POST /api/v1/password-reset", RateLimited(deps.Limiter, users.ResetPassword))
	mux.HandleFunc("POST /api/v1/validation", RateLimited(deps.Limiter, validation.Request))

	mux.HandleFunc("GET /api/v1/titles", titles.List)
	mux.HandleFunc("POST /api/v1/titles", titles.Create)
	mux.HandleFunc("GET /api/v1/titles/{id}", titles.Get)
	mux.HandleFunc("PUT /api/v1/titles/{id}", titles.Update)
	mux.HandleFunc("DELETE /api/v1/titles/{id}", titles.Delete)

	mux.HandleFunc("GET /api/v1/genres", genres.List)
	mux.HandleFunc("POST /api/v1/genres", genres.Create)
	mux.HandleFunc("GET /api/v1/genres/{id}", genres.Get)
	mux.HandleFunc("PUT /api/v1/genres/{id}", genres.Update)
	mux.HandleFunc("DELETE /api/v1/genres/{id}", genres.Delete)

	mux.HandleFunc("GET /api/v1/reviews", reviews.List)
	mux.HandleFunc("POST /api/v1/reviews", RateLimited(deps.Limiter, reviews.Create))
	mux.HandleFunc("GET /api/v1/reviews/{id}", reviews.Get)
	mux.HandleFunc("PUT /api/v1/reviews/{id}", reviews.Update)
	mux.HandleFunc("DELETE /api/v1/reviews/{id}", reviews.Delete)

	mux.HandleFunc("GET /api/v1/metadata/search", search.Search)
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users    UserStore
	Titles   TitleStore
	Genres   GenreStore
	Reviews  ReviewStore
	Sessions SessionManager
	Gate     Authenticator
	Tokens   TokenService
	Mailer   Mailer
	Metadata MetadataSearcher
	OAuth    OAuthVerifier
	Posters  PosterMirror
	Limiter  middleware.RateLimiter

	Bounds          catalog.Bounds
	MinPasswordBits float64
	TokenTTL        time.Duration
}
