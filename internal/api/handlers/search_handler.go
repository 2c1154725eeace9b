package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/aroundme/aroundme/internal/application/services"
	"github.com/aroundme/aroundme/internal/domain/entities"
)

// SearchHandler handles place search requests.
type SearchHandler struct {
	search   *services.SearchService
	sessions *services.SessionStore
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(search *services.SearchService, sessions *services.SessionStore) *SearchHandler {
	return &SearchHandler{
		search:   search,
		sessions: sessions,
	}
}

type searchRequest struct {
	Query     string   `json:"query"`
	Latitude  *float64 `json:"lat"`
	Longitude *float64 `json:"lng"`
	SessionID string   `json:"sessionId,omitempty"`
}

// Search handles POST /api/ai-search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		respondWithError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		respondWithError(w, http.StatusBadRequest, "lat and lng are required")
		return
	}

	resp, err := h.search.Search(r.Context(), entities.SearchRequest{
		Query:     req.Query,
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
	})
	if err != nil {
		respondAppError(w, err)
		return
	}

	// The session keeps the result set around so refine and explain can
	// operate on it without re-querying providers.
	session := h.sessions.Get(sessionID(r, req.SessionID))
	session.SetResults(resp.Places)

	respondWithJSON(w, http.StatusOK, resp)
}
