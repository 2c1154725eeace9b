package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aroundme/aroundme/internal/api/handlers"
	"github.com/aroundme/aroundme/internal/application/services"
	"github.com/aroundme/aroundme/internal/domain/entities"
	apperrors "github.com/aroundme/aroundme/pkg/errors"
)

type detailsOnlySource struct {
	details *entities.PlaceDetails
	err     error
}

func (s *detailsOnlySource) TextSearch(ctx context.Context, query string, loc entities.Coordinates, radius float64) ([]entities.RawPlace, error) {
	return nil, nil
}

func (s *detailsOnlySource) Details(ctx context.Context, placeID string) (*entities.PlaceDetails, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.details, nil
}

func TestPlaceDetailsHandler_Found(t *testing.T) {
	google := &detailsOnlySource{details: &entities.PlaceDetails{ID: "g1", Name: "Cafe Nero"}}
	svc := services.NewPlaceDetailsService(google, &detailsOnlySource{err: apperrors.NewNotFoundError("no")}, zerolog.Nop())
	handler := handlers.NewPlaceDetailsHandler(svc)

	req := httptest.NewRequest("GET", "/api/place-details/g1", nil)
	req.SetPathValue("id", "g1")
	w := httptest.NewRecorder()
	handler.GetPlaceDetails(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var details entities.PlaceDetails
	require.NoError(t, json.NewDecoder(w.Body).Decode(&details))
	assert.Equal(t, "Cafe Nero", details.Name)
}

func TestPlaceDetailsHandler_NotFound(t *testing.T) {
	missing := &detailsOnlySource{err: apperrors.NewNotFoundError("place not found")}
	svc := services.NewPlaceDetailsService(missing, missing, zerolog.Nop())
	handler := handlers.NewPlaceDetailsHandler(svc)

	req := httptest.NewRequest("GET", "/api/place-details/nope", nil)
	req.SetPathValue("id", "nope")
	w := httptest.NewRecorder()
	handler.GetPlaceDetails(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPlaceDetailsHandler_MissingID(t *testing.T) {
	svc := services.NewPlaceDetailsService(&detailsOnlySource{}, &detailsOnlySource{}, zerolog.Nop())
	handler := handlers.NewPlaceDetailsHandler(svc)

	req := httptest.NewRequest("GET", "/api/place-details/", nil)
	w := httptest.NewRecorder()
	handler.GetPlaceDetails(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
