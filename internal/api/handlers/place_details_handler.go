package handlers

import (
	"net/http"

	"github.com/aroundme/aroundme/internal/application/services"
)

// PlaceDetailsHandler handles place detail lookups.
type PlaceDetailsHandler struct {
	details *services.PlaceDetailsService
}

// NewPlaceDetailsHandler creates a new place details handler.
func NewPlaceDetailsHandler(details *services.PlaceDetailsService) *PlaceDetailsHandler {
	return &PlaceDetailsHandler{details: details}
}

// GetPlaceDetails handles GET /api/place-details/{id}
func (h *PlaceDetailsHandler) GetPlaceDetails(w http.ResponseWriter, r *http.Request) {
	placeID := r.PathValue("id")
	if placeID == "" {
		respondWithError(w, http.StatusBadRequest, "place ID is required")
		return
	}

	details, err := h.details.Details(r.Context(), placeID)
	if err != nil {
		respondAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, details)
}
