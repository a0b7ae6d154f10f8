package handlers

import (
	"errors"
	"net/http"

	"github.com/reelview/backend/internal/logging"
	"github.com/reelview/backend/internal/metadata"
	"github.com/reelview/backend/internal/models"
	"github.com/reelview/backend/internal/policy"
)

// SearchHandler proxies catalogue searches to the external metadata provider.
// Staff use it to look titles up before adding them.
type SearchHandler struct {
	Metadata MetadataSearcher
	Sessions SessionManager
}

// Search handles GET /api/v1/metadata/search requests.
func (h SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
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
	if !policy.CanSearchMetadata(actor) {
		respondJSON(ctx, w, http.StatusForbidden, map[string]string{"error": "staff access required"})
		return
	}

	if h.Metadata == nil {
		logger.Error("metadata provider unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "metadata provider unavailable"})
		return
	}

	term := r.URL.Query().Get("search-term")
	if term == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "no search term provided"})
		return
	}

	kind := r.URL.Query().Get("movie-or-tv")
	if kind == "" {
		kind = models.KindMovie
	}
	if kind != models.KindMovie && kind != models.KindTV {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "movie-or-tv must be movie or tv"})
		return
	}

	results, err := h.Metadata.SearchTitles(ctx, term, kind)
	if err != nil {
		if errors.Is(err, metadata.ErrProviderUnavailable) {
			logger.Error("metadata provider unavailable", "error", err)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "metadata provider unavailable"})
			return
		}
		logger.Error("metadata search failed", "error", err, "term", term)
		respondJSON(ctx, w, http.StatusBadGateway, map[string]string{"error": "metadata search failed"})
		return
	}

	if results == nil {
		results = []metadata.SearchResult{}
	}

	respondJSON(ctx, w, http.StatusOK, searchResponse{Results: results})
}

type searchResponse struct {
	Results []metadata.SearchResult `json:"results"`
}
