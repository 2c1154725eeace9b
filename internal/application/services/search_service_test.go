package services

import (
	"context"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aroundme/aroundme/internal/domain/entities"
	"github.com/aroundme/aroundme/internal/domain/providers"
	apperrors "github.com/aroundme/aroundme/pkg/errors"
)

type stubSuggestions struct {
	valid       bool
	reason      string
	cleaned     string
	suggestions []string
}

func (s *stubSuggestions) ValidateQuery(_ context.Context, _ string) (*providers.QueryValidation, error) {
	return &providers.QueryValidation{
		IsValid:           s.valid,
		IsLocationRelated: s.valid,
		Reason:            s.reason,
		CleanedQuery:      s.cleaned,
	}, nil
}

func (s *stubSuggestions) SuggestSearches(_ context.Context, _ string, _ int) ([]string, error) {
	return s.suggestions, nil
}

type stubSource struct {
	results []entities.RawPlace
	queries []string
}

func (s *stubSource) TextSearch(_ context.Context, query string, _ entities.Coordinates, _ float64) ([]entities.RawPlace, error) {
	s.queries = append(s.queries, query)
	return s.results, nil
}

func (s *stubSource) Details(_ context.Context, _ string) (*entities.PlaceDetails, error) {
	return nil, apperrors.NewNotFoundError("place not found")
}

func googleRaw(id, name string, rating float64, lat, lng float64) entities.RawPlace {
	return entities.RawPlace{
		Source: entities.SourceGoogle,
		Google: &entities.GooglePlace{
			PlaceID:          id,
			Name:             name,
			Rating:           rating,
			UserRatingsTotal: 50,
			Geometry: entities.GoogleGeometry{
				Location: entities.GoogleLatLng{Lat: lat, Lng: lng},
			},
		},
	}
}

func newTestSearchService(sources ...providers.PlaceSource) *SearchService {
	return NewSearchService(nil, sources, nil, nil, newTestNormalizer(), zerolog.Nop())
}

func TestSearch_EmptyQueryRejected(t *testing.T) {
	svc := newTestSearchService(&stubSource{})

	_, err := svc.Search(context.Background(), entities.SearchRequest{Query: "   "})

	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
}

func TestSearch_RanksByRatingAndCaps(t *testing.T) {
	var raws []entities.RawPlace
	for i := 0; i < 12; i++ {
		rating := 3.0 + float64(i)*0.1
		raws = append(raws, googleRaw(string(rune('a'+i)), "Place "+string(rune('A'+i)), rating, 37.77+float64(i)*0.01, -122.41))
	}
	src := &stubSource{results: raws}
	svc := newTestSearchService(src)

	resp, err := svc.Search(context.Background(), entities.SearchRequest{
		Query:    "coffee",
		Latitude: 37.7749, Longitude: -122.4194,
	})

	require.NoError(t, err)
	assert.Len(t, resp.Places, 8)
	for i := 1; i < len(resp.Places); i++ {
		assert.GreaterOrEqual(t, resp.Places[i-1].Rating, resp.Places[i].Rating)
	}
	assert.InDelta(t, resp.Places[0].Rating*20, resp.Places[0].MatchScore, 1e-9)
	assert.Len(t, resp.ScoringBreakdown, len(resp.Places))
}

func TestSearch_RatingOutranksReviewVolume(t *testing.T) {
	popular := googleRaw("popular", "Crowded Diner", 4.0, 37.771, -122.41)
	popular.Google.UserRatingsTotal = 5000
	gem := googleRaw("gem", "Quiet Gem", 4.8, 37.79, -122.41)
	gem.Google.UserRatingsTotal = 40
	src := &stubSource{results: []entities.RawPlace{popular, gem}}
	svc := newTestSearchService(src)

	resp, err := svc.Search(context.Background(), entities.SearchRequest{
		Query:    "dinner",
		Latitude: 37.7749, Longitude: -122.4194,
	})

	require.NoError(t, err)
	require.Len(t, resp.Places, 2)
	assert.Equal(t, "gem", resp.Places[0].ID)
}

func TestSearch_NearMeUnknownDistanceRanksLast(t *testing.T) {
	located := googleRaw("located", "Known Cafe", 3.5, 37.776, -122.419)
	unlocated := googleRaw("unlocated", "Mystery Cafe", 5.0, 0, 0)
	src := &stubSource{results: []entities.RawPlace{unlocated, located}}
	svc := newTestSearchService(src)

	resp, err := svc.Search(context.Background(), entities.SearchRequest{
		Query:    "coffee near me",
		Latitude: 37.7749, Longitude: -122.4194,
	})

	require.NoError(t, err)
	require.Len(t, resp.Places, 2)
	assert.Equal(t, "located", resp.Places[0].ID)
	assert.Equal(t, "unlocated", resp.Places[1].ID)
}

func TestSearch_RejectedQueryReturnsValidationError(t *testing.T) {
	src := &stubSource{results: []entities.RawPlace{
		googleRaw("g1", "Cafe", 4.0, 37.77, -122.41),
	}}
	suggestions := &stubSuggestions{valid: false, reason: "not about places"}
	svc := NewSearchService(suggestions, []providers.PlaceSource{src}, nil, nil, newTestNormalizer(), zerolog.Nop())

	resp, err := svc.Search(context.Background(), entities.SearchRequest{
		Query:    "write my essay",
		Latitude: 37.7749, Longitude: -122.4194,
	})

	require.Error(t, err)
	assert.Nil(t, resp)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
	assert.Contains(t, appErr.Message, "not about places")
	assert.Empty(t, src.queries)
}

func TestSearch_CleanedQuerySearchedWhenNoSuggestions(t *testing.T) {
	src := &stubSource{results: []entities.RawPlace{
		googleRaw("g1", "Cafe", 4.0, 37.77, -122.41),
	}}
	suggestions := &stubSuggestions{valid: true, cleaned: "coffee shops"}
	svc := NewSearchService(suggestions, []providers.PlaceSource{src}, nil, nil, newTestNormalizer(), zerolog.Nop())

	resp, err := svc.Search(context.Background(), entities.SearchRequest{
		Query:    "um, like, coffee shops please",
		Latitude: 37.7749, Longitude: -122.4194,
	})

	require.NoError(t, err)
	assert.Equal(t, "coffee shops", resp.QueryIntent.CleanedQuery)
	assert.Contains(t, src.queries, "coffee shops")
}

func TestSearch_NearMeRanksByDistance(t *testing.T) {
	far := googleRaw("far", "Far Cafe", 5.0, 37.85, -122.41)
	near := googleRaw("near", "Near Cafe", 3.0, 37.776, -122.419)
	src := &stubSource{results: []entities.RawPlace{far, near}}
	svc := newTestSearchService(src)

	resp, err := svc.Search(context.Background(), entities.SearchRequest{
		Query:    "coffee near me",
		Latitude: 37.7749, Longitude: -122.4194,
	})

	require.NoError(t, err)
	assert.True(t, resp.QueryIntent.NearMe)
	require.NotEmpty(t, resp.Places)
	assert.Equal(t, "near", resp.Places[0].ID)
	assert.Greater(t, resp.Places[0].MatchScore, resp.Places[1].MatchScore)
}

func yelpRaw(id, name string, rating float64, reviews int, lat, lng float64) entities.RawPlace {
	return entities.RawPlace{
		Source: entities.SourceYelp,
		Yelp: &entities.YelpBusiness{
			ID:          id,
			Name:        name,
			Rating:      rating,
			ReviewCount: reviews,
			Coordinates: entities.Coordinates{Latitude: lat, Longitude: lng},
		},
	}
}

func TestSearch_DedupeMergesYelpTwinIntoSurvivor(t *testing.T) {
	google := googleRaw("g1", "Blue Bottle Coffee", 4.5, 37.77, -122.41)
	google.Google.UserRatingsTotal = 0
	yelp := yelpRaw("y1", "Blue Bottle Coffee", 4.4, 321, 37.7701, -122.4101)
	yelp.Yelp.Price = "$$"
	yelp.Yelp.Categories = []string{"coffee", "cafes"}
	src := &stubSource{results: []entities.RawPlace{google, yelp}}
	svc := newTestSearchService(src)

	resp, err := svc.Search(context.Background(), entities.SearchRequest{
		Query:    "coffee",
		Latitude: 37.7749, Longitude: -122.4194,
	})

	require.NoError(t, err)
	require.Len(t, resp.Places, 1)
	survivor := resp.Places[0]
	assert.Equal(t, "g1", survivor.ID)
	assert.Equal(t, 4.5, survivor.Rating)
	assert.Equal(t, 321, survivor.ReviewCount)
	assert.True(t, survivor.PriceKnown)
	assert.Equal(t, 2, survivor.PriceLevel)
	assert.ElementsMatch(t, []string{"coffee", "cafes"}, survivor.Categories)
	// Merged fields feed back into the score.
	assert.InDelta(t, 0.20*math.Log10(322), survivor.Contributions.Reviews, 1e-9)
	assert.InDelta(t, survivor.Contributions.Sum(), survivor.Score, 1e-9)
}

func TestSearch_DedupesSameNormalizedName(t *testing.T) {
	a := googleRaw("g1", "Blue Bottle Coffee", 4.5, 37.77, -122.41)
	b := googleRaw("g2", "  blue bottle   COFFEE ", 4.4, 37.7701, -122.4101)
	src := &stubSource{results: []entities.RawPlace{a, b}}
	svc := newTestSearchService(src)

	resp, err := svc.Search(context.Background(), entities.SearchRequest{
		Query:    "coffee",
		Latitude: 37.7749, Longitude: -122.4194,
	})

	require.NoError(t, err)
	assert.Len(t, resp.Places, 1)
	assert.Equal(t, "g1", resp.Places[0].ID)
}

func TestSearch_DedupesNearbySimilarNames(t *testing.T) {
	a := googleRaw("g1", "Joe's Diner", 4.0, 37.7700, -122.4100)
	b := googleRaw("g2", "Joes Diner", 4.0, 37.77005, -122.41005)
	distinct := googleRaw("g3", "Completely Different", 4.0, 37.7700, -122.4100)
	src := &stubSource{results: []entities.RawPlace{a, b, distinct}}
	svc := newTestSearchService(src)

	resp, err := svc.Search(context.Background(), entities.SearchRequest{
		Query:    "diner",
		Latitude: 37.7749, Longitude: -122.4194,
	})

	require.NoError(t, err)
	assert.Len(t, resp.Places, 2)
}

func TestSearch_SuggestionFanOut(t *testing.T) {
	src := &stubSource{results: []entities.RawPlace{
		googleRaw("g1", "Cafe", 4.0, 37.77, -122.41),
	}}
	suggestions := &stubSuggestions{valid: true, suggestions: []string{"espresso bar", "coffee shop"}}
	svc := NewSearchService(suggestions, []providers.PlaceSource{src}, nil, nil, newTestNormalizer(), zerolog.Nop())

	resp, err := svc.Search(context.Background(), entities.SearchRequest{
		Query:    "coffee",
		Latitude: 37.7749, Longitude: -122.4194,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"espresso bar", "coffee shop"}, resp.QueryIntent.Suggestions)
	assert.Contains(t, src.queries, "espresso bar")
	assert.Contains(t, src.queries, "coffee shop")
}

func TestSearch_AttachesExplainPayloads(t *testing.T) {
	src := &stubSource{results: []entities.RawPlace{
		googleRaw("g1", "Cafe A", 4.2, 37.77, -122.41),
		googleRaw("g2", "Cafe B", 3.9, 37.78, -122.42),
	}}
	svc := newTestSearchService(src)

	resp, err := svc.Search(context.Background(), entities.SearchRequest{
		Query:    "coffee",
		Latitude: 37.7749, Longitude: -122.4194,
	})

	require.NoError(t, err)
	require.Len(t, resp.Places, 2)
	for _, p := range resp.Places {
		require.NotNil(t, p.Explain)
		assert.Equal(t, p.ID, p.Explain.PlaceID)
		assert.InDelta(t, p.Score, p.Explain.Score, 1e-9)
		assert.Equal(t, p.Rating, p.Explain.Raw.Rating)
	}
}

func TestSearch_FallbackWhenTooFewResults(t *testing.T) {
	src := &stubSource{results: []entities.RawPlace{
		googleRaw("only", "Only Result", 4.0, 37.77, -122.41),
	}}
	svc := newTestSearchService(src)

	resp, err := svc.Search(context.Background(), entities.SearchRequest{
		Query:    "obscure thing",
		Latitude: 37.7749, Longitude: -122.4194,
	})

	require.NoError(t, err)
	require.NotNil(t, resp.SearchDebug)
	assert.True(t, resp.SearchDebug.FallbackUsed)
}
