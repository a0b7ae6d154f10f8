package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/reelview/backend/internal/logging"
	"github.com/reelview/backend/internal/models"
	"github.com/reelview/backend/internal/policy"
	"github.com/reelview/backend/internal/repositories"
)

const (
	maxCommentLength = 200

	duplicateReviewMessage = "you have already reviewed this title; you can only review each title once"
)

// ReviewHandler implements the review endpoints.
type ReviewHandler struct {
	Reviews   ReviewStore
	Sessions  SessionManager
	RatingMin float64
	RatingMax float64
	NowFunc   func() time.Time
}

// List handles GET /api/v1/reviews?title={id} requests.
func (h ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Reviews == nil {
		logger.Error("review store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "review service unavailable"})
		return
	}

	raw := r.URL.Query().Get("title")
	if raw == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "title query parameter is required"})
		return
	}
	titleID, err := strconv.Atoi(raw)
	if err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid title id"})
		return
	}

	reviews, err := h.Reviews.ListForTitle(ctx, titleID)
	if err != nil {
		logger.Error("review listing failed", "error", err, "titleId", titleID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to list reviews"})
		return
	}

	payload := make([]reviewPayload, 0, len(reviews))
	for _, review := range reviews {
		payload = append(payload, newReviewPayload(review))
	}

	respondJSON(ctx, w, http.StatusOK, listReviewsResponse{Reviews: payload})
}

// Get handles GET /api/v1/reviews/{id} requests.
func (h ReviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid review id"})
		return
	}

	review, err := h.Reviews.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "review not found"})
			return
		}
		logger.Error("review lookup failed", "error", err, "reviewId", id)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to load review"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, reviewResponse{Review: newReviewPayload(review)})
}

// Create handles POST /api/v1/reviews requests. The author comes from the
// access token, never the payload.
func (h ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	var req createReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.TitleID <= 0 {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "title id is required"})
		return
	}
	if err := h.validateRating(req.Rating); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if len(req.Comment) > maxCommentLength {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "comment must be at most 200 characters"})
		return
	}

	review := models.Review{
		TitleID:   req.TitleID,
		AuthorID:  actor.UserID,
		Rating:    req.Rating,
		Comment:   req.Comment,
		CreatedAt: h.now(),
	}

	created, err := h.Reviews.Create(ctx, review)
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": duplicateReviewMessage})
			return
		}
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "title not found"})
			return
		}
		logger.Error("review create failed", "error", err, "titleId", req.TitleID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to create review"})
		return
	}

	respondJSON(ctx, w, http.StatusCreated, reviewResponse{Review: newReviewPayload(created)})
}

// Update handles PUT /api/v1/reviews/{id} requests. Only the author may edit;
// the payload cannot move the review to another title or author.
func (h ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid review id"})
		return
	}

	review, err := h.Reviews.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "review not found"})
			return
		}
		logger.Error("review lookup failed", "error", err, "reviewId", id)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to load review"})
		return
	}

	if !policy.CanEditReview(actor, review.AuthorID) {
		respondJSON(ctx, w, http.StatusForbidden, map[string]string{"error": "you can only edit your own reviews"})
		return
	}

	var req updateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := h.validateRating(req.Rating); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if len(req.Comment) > maxCommentLength {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "comment must be at most 200 characters"})
		return
	}

	if err := h.Reviews.Update(ctx, id, req.Rating, req.Comment); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "review not found"})
			return
		}
		logger.Error("review update failed", "error", err, "reviewId", id)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to update review"})
		return
	}

	review.Rating = req.Rating
	review.Comment = req.Comment
	respondJSON(ctx, w, http.StatusOK, reviewResponse{Review: newReviewPayload(review)})
}

// Delete handles DELETE /api/v1/reviews/{id} requests. The author and staff
// may both delete.
func (h ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid review id"})
		return
	}

	review, err := h.Reviews.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "review not found"})
			return
		}
		logger.Error("review lookup failed", "error", err, "reviewId", id)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to load review"})
		return
	}

	if !policy.CanDeleteReview(actor, review.AuthorID) {
		respondJSON(ctx, w, http.StatusForbidden, map[string]string{"error": "you cannot delete this review"})
		return
	}

	if err := h.Reviews.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "review not found"})
			return
		}
		logger.Error("review delete failed", "error", err, "reviewId", id)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to delete review"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h ReviewHandler) validateRating(rating float64) error {
	min, max := h.RatingMin, h.RatingMax
	if max == 0 {
		max = 10
	}
	if rating < min || rating > max {
		return fmt.Errorf("rating must be between %g and %g", min, max)
	}
	return nil
}

type createReviewRequest struct {
	TitleID int     `json:"title"`
	Rating  float64 `json:"rating"`
	Comment string  `json:"comment"`
}

type updateReviewRequest struct {
	Rating  float64 `json:"rating"`
	Comment string  `json:"comment"`
}

type reviewPayload struct {
	ID         int     `json:"id"`
	TitleID    int     `json:"title"`
	AuthorID   string  `json:"author"`
	AuthorName string  `json:"author_name"`
	Rating     float64 `json:"rating"`
	Comment    string  `json:"comment"`
	CreatedAt  string  `json:"date_posted"`
}

type reviewResponse struct {
	Review reviewPayload `json:"review"`
}

type listReviewsResponse struct {
	Reviews []reviewPayload `json:"reviews"`
}

func newReviewPayload(review models.Review) reviewPayload {
	return reviewPayload{
		ID:         review.ID,
		TitleID:    review.TitleID,
		AuthorID:   review.AuthorID,
		AuthorName: review.AuthorName,
		Rating:     review.Rating,
		Comment:    review.Comment,
		CreatedAt:  review.CreatedAt.Format(time.RFC3339),
	}
}

func (h ReviewHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
