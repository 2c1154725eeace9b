package handlers

import (
	"net/http"

	"github.com/aroundme/aroundme/internal/application/services"
	"github.com/aroundme/aroundme/internal/domain/entities"
)

// ExplainHandler builds grounded explanations for why a result ranked
// where it did.
type ExplainHandler struct {
	explain  *services.ExplainService
	sessions *services.SessionStore
}

// NewExplainHandler creates a new explain handler.
func NewExplainHandler(explain *services.ExplainService, sessions *services.SessionStore) *ExplainHandler {
	return &ExplainHandler{
		explain:  explain,
		sessions: sessions,
	}
}

// GetExplanation handles GET /api/explain?placeId=...&query=...
func (h *ExplainHandler) GetExplanation(w http.ResponseWriter, r *http.Request) {
	placeID := r.URL.Query().Get("placeId")
	if placeID == "" {
		respondWithError(w, http.StatusBadRequest, "placeId is required")
		return
	}

	session := h.sessions.Get(sessionID(r, r.URL.Query().Get("sessionId")))

	var place *entities.NormalizedPlace
	for _, p := range session.Results() {
		if p.ID == placeID {
			place = &p
			break
		}
	}
	if place == nil {
		respondWithError(w, http.StatusNotFound, "place not found in current results")
		return
	}

	payload := entities.NewExplainPayload(*place)
	intro := h.explain.BuildIntro(payload, r.URL.Query().Get("query"), services.ExplainHints{
		SuggestPreferences: r.URL.Query().Get("suggest") == "true",
	})

	// The last explained place becomes the default grounding context for
	// chat follow-ups in this session.
	session.SetLastExplain(payload)

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"explanation": payload,
		"intro":       intro,
	})
}
