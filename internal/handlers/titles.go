package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/reelview/backend/internal/catalog"
	"github.com/reelview/backend/internal/logging"
	"github.com/reelview/backend/internal/models"
	"github.com/reelview/backend/internal/policy"
	"github.com/reelview/backend/internal/repositories"
)

const maxOverviewLength = 1000

// TitleHandler implements the catalogue endpoints.
type TitleHandler struct {
	Titles   TitleStore
	Sessions SessionManager
	Posters  PosterMirror
	Bounds   catalog.Bounds
}

// List handles GET /api/v1/titles requests with filtering, ranking, and pagination.
func (h TitleHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Titles == nil {
		logger.Error("title store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "catalogue unavailable"})
		return
	}

	bounds := h.Bounds
	if bounds.YearMax == 0 {
		bounds.YearMax = time.Now().Year()
	}

	q, err := catalog.ParseTitleQuery(r.URL.Query(), bounds)
	if err != nil {
		if errors.Is(err, catalog.ErrInvalidPage) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	titles, total, err := h.Titles.List(ctx, q)
	if err != nil {
		if errors.Is(err, catalog.ErrInvalidPage) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		logger.Error("title listing failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to list titles"})
		return
	}

	totalPages := 1
	if !q.All && q.PageSize > 0 {
		totalPages = (total + q.PageSize - 1) / q.PageSize
		if totalPages == 0 {
			totalPages = 1
		}
	}

	payload := make([]titlePayload, 0, len(titles))
	for _, title := range titles {
		payload = append(payload, newTitlePayload(title))
	}

	respondJSON(ctx, w, http.StatusOK, listTitlesResponse{
		Titles:     payload,
		Total:      total,
		TotalPages: totalPages,
	})
}

// Get handles GET /api/v1/titles/{id} requests.
func (h TitleHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid title id"})
		return
	}

	title, err := h.Titles.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "title not found"})
			return
		}
		logger.Error("title lookup failed", "error", err, "titleId", id)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to load title"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, titleResponse{Title: newTitlePayload(title)})
}

// Create handles POST /api/v1/titles requests. Staff only.
func (h TitleHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	actor, ok := bearerActor(r, h.Sessions)
	if !ok {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}
	if !policy.CanManageCatalog(actor) {
		respondJSON(ctx, w, http.StatusForbidden, map[string]string{"error": "staff access required"})
		return
	}

	var req titleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	title, err := req.toModel()
	if err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	created, err := h.Titles.Create(ctx, title)
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "title id already exists"})
			return
		}
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "unknown genre id"})
			return
		}
		logger.Error("title create failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to create title"})
		return
	}

	if h.Posters != nil && created.ImgURL != "" {
		if err := h.Posters.Enqueue(ctx, created.ID, created.ImgURL); err != nil {
			logger.Warn("poster mirror enqueue failed", "error", err, "titleId", created.ID)
		}
	}

	respondJSON(ctx, w, http.StatusCreated, titleResponse{Title: newTitlePayload(created)})
}

// Update handles PUT /api/v1/titles/{id} requests. Staff only.
func (h TitleHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	actor, ok := bearerActor(r, h.Sessions)
	if !ok {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}
	if !policy.CanManageCatalog(actor) {
		respondJSON(ctx, w, http.StatusForbidden, map[string]string{"error": "staff access required"})
		return
	}

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid title id"})
		return
	}

	var req titleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	title, err := req.toModel()
	if err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	title.ID = id

	if err := h.Titles.Update(ctx, title); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "title not found"})
			return
		}
		logger.Error("title update failed", "error", err, "titleId", id)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to update title"})
		return
	}

	updated, err := h.Titles.FindByID(ctx, id)
	if err != nil {
		logger.Error("title reload failed", "error", err, "titleId", id)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to load title"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, titleResponse{Title: newTitlePayload(updated)})
}

// Delete handles DELETE /api/v1/titles/{id} requests. Staff only. Reviews go
// with the title.
func (h TitleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	actor, ok := bearerActor(r, h.Sessions)
	if !ok {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}
	if !policy.CanManageCatalog(actor) {
		respondJSON(ctx, w, http.StatusForbidden, map[string]string{"error": "staff access required"})
		return
	}

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid title id"})
		return
	}

	if err := h.Titles.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "title not found"})
			return
		}
		logger.Error("title delete failed", "error", err, "titleId", id)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to delete title"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type titleRequest struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
	Overview    string `json:"overview"`
	ImgURL      string `json:"img_url"`
	MovieOrTV   string `json:"movie_or_tv"`
	Genres      []int  `json:"genres"`
}

func (req titleRequest) toModel() (models.Title, error) {
	name := strings.TrimSpace(req.Title)
	if name == "" {
		return models.Title{}, errors.New("title is required")
	}
	if len(req.Overview) > maxOverviewLength {
		return models.Title{}, errors.New("overview must be at most 1000 characters")
	}
	if req.MovieOrTV != models.KindMovie && req.MovieOrTV != models.KindTV {
		return models.Title{}, errors.New("movie_or_tv must be movie or tv")
	}

	releaseDate, err := time.Parse("2006-01-02", req.ReleaseDate)
	if err != nil {
		return models.Title{}, errors.New("release_date must be formatted YYYY-MM-DD")
	}

	var genres []int
	seen := make(map[int]struct{}, len(req.Genres))
	for _, id := range req.Genres {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		genres = append(genres, id)
	}

	return models.Title{
		ID:          req.ID,
		Name:        name,
		ReleaseDate: releaseDate,
		Overview:    req.Overview,
		ImgURL:      strings.TrimSpace(req.ImgURL),
		MovieOrTV:   req.MovieOrTV,
		GenreIDs:    genres,
	}, nil
}

type titlePayload struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	ReleaseDate string  `json:"release_date"`
	Overview    string  `json:"overview"`
	ImgURL      string  `json:"img_url"`
	MovieOrTV   string  `json:"movie_or_tv"`
	Rating      float64 `json:"rating"`
	Genres      []int   `json:"genres"`
}

type titleResponse struct {
	Title titlePayload `json:"title"`
}

type listTitlesResponse struct {
	Titles     []titlePayload `json:"titles"`
	Total      int            `json:"total"`
	TotalPages int            `json:"total_pages"`
}

func newTitlePayload(title models.Title) titlePayload {
	genres := title.GenreIDs
	if genres == nil {
		genres = []int{}
	}
	return titlePayload{
		ID:          title.ID,
		Title:       title.Name,
		ReleaseDate: title.ReleaseDate.Format("02/01/2006"),
		Overview:    title.Overview,
		ImgURL:      title.ImgURL,
		MovieOrTV:   title.MovieOrTV,
		Rating:      title.Rating,
		Genres:      genres,
	}
}
