package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/reelview/backend/internal/auth"
	"github.com/reelview/backend/internal/logging"
	"github.com/reelview/backend/internal/models"
	"github.com/reelview/backend/internal/repositories"
)

// AuthHandler implements login, session, and OAuth endpoints.
type AuthHandler struct {
	Users    UserStore
	Gate     Authenticator
	Sessions SessionManager
	OAuth    OAuthVerifier
	NowFunc  func() time.Time
}

// Login handles POST /api/v1/auth/login requests.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Gate == nil || h.Sessions == nil {
		logger.Error("authentication dependencies unavailable", "hasGate", h.Gate != nil, "hasSessions", h.Sessions != nil)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "authentication services unavailable"})
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		logger.Warn("login missing credentials", "email", req.Email)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "email and password are required"})
		return
	}

	user, err := h.Gate.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrAccountLocked):
			logger.Warn("login rejected for locked account", "email", req.Email)
			respondJSON(ctx, w, http.StatusForbidden, map[string]string{"error": err.Error()})
		case errors.Is(err, auth.ErrInvalidCredentials):
			logger.Warn("login credential mismatch", "email", req.Email)
			respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		default:
			logger.Error("login failed", "error", err, "email", req.Email)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to process login"})
		}
		return
	}

	tokens, err := h.Sessions.Issue(ctx, user)
	if err != nil {
		logger.Error("failed to issue session", "error", err, "userId", user.ID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to create session"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, authResponse{Tokens: tokens})
}

// Refresh exchanges a refresh token for a new session.
func (h AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Sessions == nil {
		logger.Error("session manager unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "session service unavailable"})
		return
	}

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid refresh payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.RefreshToken = strings.TrimSpace(req.RefreshToken)
	if req.RefreshToken == "" {
		logger.Warn("missing refresh token")
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "refresh token is required"})
		return
	}

	tokens, err := h.Sessions.Refresh(ctx, req.RefreshToken)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, auth.ErrRefreshTokenExpired) || errors.Is(err, auth.ErrSessionNotFound) {
			status = http.StatusUnauthorized
		}
		logger.Error("refresh failed", "error", err, "status", status)
		respondJSON(ctx, w, status, map[string]string{"error": "unable to refresh session"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, authResponse{Tokens: tokens})
}

// Logout revokes a refresh token.
func (h AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	if h.Sessions == nil {
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "session service unavailable"})
		return
	}

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	h.Sessions.Revoke(ctx, strings.TrimSpace(req.RefreshToken))
	w.WriteHeader(http.StatusNoContent)
}

// GoogleLogin handles POST /api/v1/auth/google requests. The local account is
// fetched or created by the email the provider asserts.
func (h AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Users == nil || h.Sessions == nil || h.OAuth == nil {
		logger.Error("oauth dependencies unavailable", "hasUsers", h.Users != nil, "hasSessions", h.Sessions != nil, "hasOAuth", h.OAuth != nil)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "authentication services unavailable"})
		return
	}

	var req googleLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid google login payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	identity, err := h.OAuth.Verify(ctx, req.Credential)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidOAuthCredential) {
			logger.Warn("oauth credential rejected")
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid oauth credential"})
			return
		}
		logger.Error("oauth verification failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to verify credential"})
		return
	}

	email := strings.TrimSpace(strings.ToLower(identity.Email))
	user, err := h.Users.FindByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		user, err = h.createOAuthUser(r, email, identity)
	}
	if err != nil {
		logger.Error("oauth account lookup failed", "error", err, "email", email)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to process login"})
		return
	}

	tokens, err := h.Sessions.Issue(ctx, user)
	if err != nil {
		logger.Error("failed to issue session", "error", err, "userId", user.ID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to create session"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, authResponse{Tokens: tokens})
}

func (h AuthHandler) createOAuthUser(r *http.Request, email string, identity auth.GoogleIdentity) (models.User, error) {
	username := strings.TrimSpace(identity.Name)
	if username == "" {
		username, _, _ = strings.Cut(email, "@")
	}

	// OAuth accounts have no usable local password; store a hash nothing
	// can ever match.
	placeholder, err := randomPasswordHash()
	if err != nil {
		return models.User{}, err
	}

	now := h.now()
	user := models.User{
		ID:        uuid.NewString(),
		Email:     email,
		Username:  username,
		Password:  placeholder,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Users.Create(r.Context(), user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			// Username collision; retry once with a suffixed name.
			user.Username = username + "-" + user.ID[:8]
			if err := h.Users.Create(r.Context(), user); err != nil {
				return models.User{}, err
			}
			return user, nil
		}
		return models.User{}, err
	}

	return user, nil
}

func randomPasswordHash() (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type googleLoginRequest struct {
	Credential string `json:"credential"`
}

type authResponse struct {
	Tokens models.SessionTokens `json:"tokens"`
}

func (h AuthHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
