package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/reelview/backend/internal/logging"
	"github.com/reelview/backend/internal/repositories"
)

// ValidationHandler issues email validation tokens for registration and
// password reset flows.
type ValidationHandler struct {
	Users  UserStore
	Tokens TokenService
	Mailer Mailer
	// TokenTTL is only used to tell recipients how long the code lasts.
	TokenTTL time.Duration
}

// Request handles POST /api/v1/validation requests.
func (h ValidationHandler) Request(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Users == nil || h.Tokens == nil || h.Mailer == nil {
		logger.Error("validation dependencies unavailable", "hasUsers", h.Users != nil, "hasTokens", h.Tokens != nil, "hasMailer", h.Mailer != nil)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "validation services unavailable"})
		return
	}

	var req validationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid validation payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "email is required"})
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid email address"})
		return
	}

	_, err := h.Users.FindByEmail(ctx, req.Email)
	switch req.Type {
	case "register":
		if err == nil {
			logger.Warn("validation requested for existing email", "email", req.Email)
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "email already exists"})
			return
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			logger.Error("validation email lookup failed", "error", err, "email", req.Email)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to verify existing accounts"})
			return
		}
	case "reset_password":
		if errors.Is(err, repositories.ErrNotFound) {
			logger.Warn("validation requested for unknown email", "email", req.Email)
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "email not found"})
			return
		}
		if err != nil {
			logger.Error("validation email lookup failed", "error", err, "email", req.Email)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to verify existing accounts"})
			return
		}
	default:
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "type must be register or reset_password"})
		return
	}

	token, err := h.Tokens.Issue(ctx, req.Email)
	if err != nil {
		logger.Error("failed to issue validation token", "error", err, "email", req.Email)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to issue validation token"})
		return
	}

	ttlMinutes := int(h.TokenTTL.Minutes())
	if ttlMinutes <= 0 {
		ttlMinutes = 3
	}

	if err := h.Mailer.SendValidationToken(req.Email, token.Token, ttlMinutes); err != nil {
		logger.Error("failed to send validation email", "error", err, "email", req.Email)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to send validation email"})
		return
	}

	respondJSON(ctx, w, http.StatusAccepted, map[string]string{"status": "validation token sent"})
}

type validationRequest struct {
	Type  string `json:"type"`
	Email string `json:"email"`
}
