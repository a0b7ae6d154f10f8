package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/reelview/backend/internal/logging"
	"github.com/reelview/backend/internal/models"
	"github.com/reelview/backend/internal/policy"
	"github.com/reelview/backend/internal/repositories"
)

// GenreHandler implements the genre endpoints.
type GenreHandler struct {
	Genres   GenreStore
	Sessions SessionManager
}

// List handles GET /api/v1/genres requests.
func (h GenreHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	genres, err := h.Genres.List(ctx)
	if err != nil {
		logger.Error("genre listing failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to list genres"})
		return
	}

	payload := make([]genrePayload, 0, len(genres))
	for _, genre := range genres {
		payload = append(payload, genrePayload{ID: genre.ID, Name: genre.Name})
	}

	respondJSON(ctx, w, http.StatusOK, listGenresResponse{Genres: payload})
}

// Get handles GET /api/v1/genres/{id} requests.
func (h GenreHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid genre id"})
		return
	}

	genre, err := h.Genres.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "genre not found"})
			return
		}
		logger.Error("genre lookup failed", "error", err, "genreId", id)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to load genre"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, genreResponse{Genre: genrePayload{ID: genre.ID, Name: genre.Name}})
}

// Create handles POST /api/v1/genres requests. Staff only.
func (h GenreHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	var req genreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "genre name is required"})
		return
	}

	created, err := h.Genres.Create(ctx, models.Genre{ID: req.ID, Name: name})
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "genre already exists"})
			return
		}
		logger.Error("genre create failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to create genre"})
		return
	}

	respondJSON(ctx, w, http.StatusCreated, genreResponse{Genre: genrePayload{ID: created.ID, Name: created.Name}})
}

// Update handles PUT /api/v1/genres/{id} requests. Staff only.
func (h GenreHandler) Update(w http.ResponseWriter, r *http.Request) {
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
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid genre id"})
		return
	}

	var req genreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "genre name is required"})
		return
	}

	if err := h.Genres.Update(ctx, models.Genre{ID: id, Name: name}); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "genre not found"})
			return
		}
		if errors.Is(err, repositories.ErrConflict) {
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "genre already exists"})
			return
		}
		logger.Error("genre update failed", "error", err, "genreId", id)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to update genre"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, genreResponse{Genre: genrePayload{ID: id, Name: name}})
}

// Delete handles DELETE /api/v1/genres/{id} requests. Staff only.
func (h GenreHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid genre id"})
		return
	}

	if err := h.Genres.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "genre not found"})
			return
		}
		logger.Error("genre delete failed", "error", err, "genreId", id)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to delete genre"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type genreRequest struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type genrePayload struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type genreResponse struct {
	Genre genrePayload `json:"genre"`
}

type listGenresResponse struct {
	Genres []genrePayload `json:"genres"`
}
