package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	passwordvalidator "github.com/wagslane/go-password-validator"
	"golang.org/x/crypto/bcrypt"

	"github.com/reelview/backend/internal/logging"
	"github.com/reelview/backend/internal/models"
	"github.com/reelview/backend/internal/policy"
	"github.com/reelview/backend/internal/repositories"
	"github.com/reelview/backend/internal/tokens"
)

// UserHandler implements registration, account management, and password reset.
type UserHandler struct {
	Users    UserStore
	Tokens   TokenService
	Sessions SessionManager
	// MinPasswordBits is the entropy floor new passwords must clear.
	MinPasswordBits float64
	NowFunc         func() time.Time
}

// Register handles POST /api/v1/users requests. A valid validation token for
// the email address is required and consumed on success.
func (h UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Users == nil || h.Tokens == nil {
		logger.Error("registration dependencies unavailable", "hasUsers", h.Users != nil, "hasTokens", h.Tokens != nil)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "registration services unavailable"})
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid registration payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if req.Email == "" || req.Username == "" || req.Password == "" || req.Token == "" {
		logger.Warn("registration missing fields", "email", req.Email)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "email, username, password, and token are required"})
		return
	}

	if _, err := mail.ParseAddress(req.Email); err != nil {
		logger.Warn("registration invalid email", "email", req.Email, "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid email address"})
		return
	}

	if err := h.Tokens.Verify(ctx, req.Email, req.Token); err != nil {
		if errors.Is(err, tokens.ErrInvalidToken) {
			logger.Warn("registration token rejected", "email", req.Email)
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid or expired token"})
			return
		}
		logger.Error("registration token verification failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to verify token"})
		return
	}

	if err := passwordvalidator.Validate(req.Password, h.MinPasswordBits); err != nil {
		logger.Warn("registration weak password", "email", req.Email)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if _, err := h.Users.FindByEmail(ctx, req.Email); err == nil {
		logger.Warn("registration existing email", "email", req.Email)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "email already exists"})
		return
	} else if !errors.Is(err, repositories.ErrNotFound) {
		logger.Error("registration email lookup failed", "error", err, "email", req.Email)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to verify existing accounts"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("registration failed to hash password", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to secure password"})
		return
	}

	now := h.now()
	user := models.User{
		ID:        uuid.NewString(),
		Email:     req.Email,
		Username:  req.Username,
		Password:  string(hashed),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			logger.Warn("registration username conflict", "username", req.Username)
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "username already exists"})
			return
		}
		logger.Error("registration failed to create user", "error", err, "email", req.Email)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to create account"})
		return
	}

	if err := h.Tokens.Consume(ctx, req.Token); err != nil {
		logger.Error("registration token consume failed", "error", err, "email", req.Email)
	}

	respondJSON(ctx, w, http.StatusCreated, userResponse{User: newUserPayload(user)})
}

// Get handles GET /api/v1/users/{id} requests.
func (h UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
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

	id := r.PathValue("id")
	if !policy.CanReadUser(actor, id) {
		respondJSON(ctx, w, http.StatusForbidden, map[string]string{"error": "you cannot view this user"})
		return
	}

	user, err := h.Users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "user not found"})
			return
		}
		logger.Error("user lookup failed", "error", err, "userId", id)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to load user"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, userResponse{User: newUserPayload(user)})
}

// Patch handles PATCH /api/v1/users/{id} requests with partial updates.
func (h UserHandler) Patch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
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

	id := r.PathValue("id")
	if !policy.CanUpdateUser(actor, id) {
		respondJSON(ctx, w, http.StatusForbidden, map[string]string{"error": "you cannot modify this user"})
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	user, err := h.Users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "user not found"})
			return
		}
		logger.Error("user lookup failed", "error", err, "userId", id)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to load user"})
		return
	}

	if req.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*req.Email))
		if _, err := mail.ParseAddress(email); err != nil {
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid email address"})
			return
		}
		user.Email = email
	}
	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if username == "" {
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "username must not be empty"})
			return
		}
		user.Username = username
	}
	if req.Password != nil {
		if err := passwordvalidator.Validate(*req.Password, h.MinPasswordBits); err != nil {
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			logger.Error("failed to hash password", "error", err)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to secure password"})
			return
		}
		user.Password = string(hashed)
	}

	user.UpdatedAt = h.now()
	if err := h.Users.Update(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "email or username already exists"})
			return
		}
		logger.Error("user update failed", "error", err, "userId", id)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to update user"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, userResponse{User: newUserPayload(user)})
}

// Delete handles DELETE /api/v1/users/{id} requests.
func (h UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	id := r.PathValue("id")
	if !policy.CanDeleteUser(actor, id) {
		respondJSON(ctx, w, http.StatusForbidden, map[string]string{"error": "you cannot delete this user"})
		return
	}

	if err := h.Users.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "user not found"})
			return
		}
		logger.Error("user delete failed", "error", err, "userId", id)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to delete user"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ResetPassword handles POST /api/v1/password-reset requests. The validation
// token is verified and consumed in the same request.
func (h UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Users == nil || h.Tokens == nil {
		logger.Error("password reset dependencies unavailable", "hasUsers", h.Users != nil, "hasTokens", h.Tokens != nil)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "password reset services unavailable"})
		return
	}

	var req passwordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Token == "" || req.NewPassword == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "email, token, and new password are required"})
		return
	}

	if err := h.Tokens.Verify(ctx, req.Email, req.Token); err != nil {
		if errors.Is(err, tokens.ErrInvalidToken) {
			logger.Warn("password reset token rejected", "email", req.Email)
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid or expired token"})
			return
		}
		logger.Error("password reset token verification failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to verify token"})
		return
	}

	if err := passwordvalidator.Validate(req.NewPassword, h.MinPasswordBits); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	user, err := h.Users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "email not found"})
			return
		}
		logger.Error("password reset lookup failed", "error", err, "email", req.Email)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to process password reset"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("failed to hash password", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to secure password"})
		return
	}

	user.Password = string(hashed)
	user.UpdatedAt = h.now()
	if err := h.Users.Update(ctx, user); err != nil {
		logger.Error("password reset update failed", "error", err, "userId", user.ID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to update password"})
		return
	}

	if err := h.Tokens.Consume(ctx, req.Token); err != nil {
		logger.Error("password reset token consume failed", "error", err, "email", req.Email)
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "password updated"})
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Token    string `json:"token"`
}

type updateUserRequest struct {
	Email    *string `json:"email"`
	Username *string `json:"username"`
	Password *string `json:"password"`
}

type passwordResetRequest struct {
	Email       string `json:"email"`
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type userPayload struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	IsStaff  bool   `json:"isStaff"`
}

type userResponse struct {
	User userPayload `json:"user"`
}

func newUserPayload(user models.User) userPayload {
	return userPayload{
		ID:       user.ID,
		Email:    user.Email,
		Username: user.Username,
		IsStaff:  user.IsStaff,
	}
}

func (h UserHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
