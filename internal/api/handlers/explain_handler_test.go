package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aroundme/aroundme/internal/api/handlers"
	"github.com/aroundme/aroundme/internal/application/services"
	"github.com/aroundme/aroundme/internal/domain/entities"
)

func buildExplainHandler(t *testing.T) (*handlers.ExplainHandler, *services.SessionStore) {
	t.Helper()
	sessions := services.NewSessionStore()
	return handlers.NewExplainHandler(services.NewExplainService(), sessions), sessions
}

func TestExplainHandler_BuildsGroundedIntro(t *testing.T) {
	handler, sessions := buildExplainHandler(t)
	sessions.Get("s1").SetResults([]entities.NormalizedPlace{
		{
			ID: "p1", Name: "Cafe Nero", Rating: 4.5, ReviewCount: 320,
			PriceLevel: 2, PriceKnown: true,
			DistanceMeters: 450, DistanceKnown: true,
			Score: 2.4,
			Contributions: entities.ScoreContributions{
				Rating: 2.025, Distance: -0.1125, Price: 0.1, Reviews: 0.5,
			},
		},
	})

	req := httptest.NewRequest("GET", "/api/explain?placeId=p1&sessionId=s1&query=coffee", nil)
	w := httptest.NewRecorder()
	handler.GetExplanation(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Explanation entities.ExplainPayload `json:"explanation"`
		Intro       string                  `json:"intro"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))

	assert.Equal(t, "p1", resp.Explanation.PlaceID)
	assert.Contains(t, resp.Intro, "Cafe Nero")
	assert.Contains(t, resp.Intro, "4.5")

	// The explained place becomes the session's chat grounding default.
	last := sessions.Get("s1").LastExplain()
	require.NotNil(t, last)
	assert.Equal(t, "p1", last.PlaceID)
}

func TestExplainHandler_MissingPlaceID(t *testing.T) {
	handler, _ := buildExplainHandler(t)

	req := httptest.NewRequest("GET", "/api/explain", nil)
	w := httptest.NewRecorder()
	handler.GetExplanation(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExplainHandler_PlaceNotInResults(t *testing.T) {
	handler, sessions := buildExplainHandler(t)
	sessions.Get("default").SetResults([]entities.NormalizedPlace{{ID: "other", Name: "Other"}})

	req := httptest.NewRequest("GET", "/api/explain?placeId=missing", nil)
	w := httptest.NewRecorder()
	handler.GetExplanation(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
