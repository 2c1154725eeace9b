package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aroundme/aroundme/internal/api/handlers"
	"github.com/aroundme/aroundme/internal/application/services"
	"github.com/aroundme/aroundme/internal/domain/entities"
	"github.com/aroundme/aroundme/internal/domain/providers"
	"github.com/aroundme/aroundme/pkg/config"
)

type stubPlaceSource struct {
	results []entities.RawPlace
	err     error
}

func (s *stubPlaceSource) TextSearch(ctx context.Context, query string, loc entities.Coordinates, radius float64) ([]entities.RawPlace, error) {
	return s.results, s.err
}

func (s *stubPlaceSource) Details(ctx context.Context, placeID string) (*entities.PlaceDetails, error) {
	return nil, s.err
}

func testScoring() config.ScoringConfig {
	return config.ScoringConfig{
		RatingWeight:      0.45,
		DistanceWeight:    -0.25,
		PriceWeight:       0.10,
		ReviewsWeight:     0.20,
		DriveMetersPerMin: 800,
		WalkMetersPerMin:  83,
		USDPerPriceTier:   10,
	}
}

func rawGooglePlace(id, name string, rating float64, lat, lng float64) entities.RawPlace {
	return entities.RawPlace{
		Source: entities.SourceGoogle,
		Google: &entities.GooglePlace{
			PlaceID:          id,
			Name:             name,
			Rating:           rating,
			UserRatingsTotal: 120,
			Geometry:         entities.GoogleGeometry{Location: entities.GoogleLatLng{Lat: lat, Lng: lng}},
		},
	}
}

func buildSearchHandler(t *testing.T, source *stubPlaceSource) (*handlers.SearchHandler, *services.SessionStore) {
	t.Helper()
	normalizer := services.NewPlaceNormalizer(testScoring(), zerolog.Nop())
	search := services.NewSearchService(nil, []providers.PlaceSource{source}, nil, nil, normalizer, zerolog.Nop())
	sessions := services.NewSessionStore()
	return handlers.NewSearchHandler(search, sessions), sessions
}

func TestSearchHandler_MissingQuery(t *testing.T) {
	handler, _ := buildSearchHandler(t, &stubPlaceSource{})

	req := httptest.NewRequest("POST", "/api/ai-search", strings.NewReader(`{"lat":6.5,"lng":3.3}`))
	w := httptest.NewRecorder()
	handler.Search(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchHandler_MissingLocation(t *testing.T) {
	handler, _ := buildSearchHandler(t, &stubPlaceSource{})

	req := httptest.NewRequest("POST", "/api/ai-search", strings.NewReader(`{"query":"ramen"}`))
	w := httptest.NewRecorder()
	handler.Search(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchHandler_Success_StoresSessionResults(t *testing.T) {
	source := &stubPlaceSource{results: []entities.RawPlace{
		rawGooglePlace("g1", "Ramen Ichiro", 4.6, 6.5244, 3.3792),
		rawGooglePlace("g2", "Noodle House", 4.1, 6.5250, 3.3800),
	}}
	handler, sessions := buildSearchHandler(t, source)

	body := `{"query":"ramen","lat":6.5244,"lng":3.3792,"sessionId":"s1"}`
	req := httptest.NewRequest("POST", "/api/ai-search", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.Search(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp entities.SearchResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Len(t, resp.Places, 2)
	assert.Equal(t, "ramen", resp.QueryIntent.OriginalQuery)
	for _, p := range resp.Places {
		require.NotNil(t, p.Explain)
		assert.Equal(t, p.ID, p.Explain.PlaceID)
	}

	stored := sessions.Get("s1").Results()
	assert.Len(t, stored, 2)
}

func TestSearchHandler_InvalidBody(t *testing.T) {
	handler, _ := buildSearchHandler(t, &stubPlaceSource{})

	req := httptest.NewRequest("POST", "/api/ai-search", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	handler.Search(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
