package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/reelview/backend/internal/logging"
	"github.com/reelview/backend/internal/policy"
)

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

// bearerActor resolves the policy actor behind the Authorization header. The
// zero actor with ok=false means the request carries no valid access token.
func bearerActor(r *http.Request, sessions SessionManager) (policy.Actor, bool) {
	if sessions == nil {
		return policy.Actor{}, false
	}

	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || strings.TrimSpace(token) == "" {
		return policy.Actor{}, false
	}

	claims, err := sessions.VerifyAccess(strings.TrimSpace(token))
	if err != nil {
		return policy.Actor{}, false
	}

	return policy.Actor{UserID: claims.UserID(), IsStaff: claims.IsStaff}, true
}
