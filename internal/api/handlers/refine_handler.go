package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/aroundme/aroundme/internal/application/services"
)

// RefineHandler re-ranks the session's current results against
// constraints parsed from free text.
type RefineHandler struct {
	parser     *services.ConstraintParser
	refinement *services.RefinementService
	sessions   *services.SessionStore
}

// NewRefineHandler creates a new refine handler.
func NewRefineHandler(parser *services.ConstraintParser, refinement *services.RefinementService, sessions *services.SessionStore) *RefineHandler {
	return &RefineHandler{
		parser:     parser,
		refinement: refinement,
		sessions:   sessions,
	}
}

type refineRequest struct {
	Text      string `json:"text"`
	SessionID string `json:"sessionId,omitempty"`
}

// Refine handles POST /api/refine
func (h *RefineHandler) Refine(w http.ResponseWriter, r *http.Request) {
	var req refineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		respondWithError(w, http.StatusBadRequest, "text is required")
		return
	}

	session := h.sessions.Get(sessionID(r, req.SessionID))
	places := session.Results()
	if len(places) == 0 {
		respondWithError(w, http.StatusNotFound, "no results to refine; run a search first")
		return
	}

	constraint := h.parser.Parse(req.Text)
	ranked := h.refinement.Refine(places, constraint)

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"places":     ranked,
		"constraint": constraint,
		"matched":    !constraint.IsEmpty(),
	})
}
