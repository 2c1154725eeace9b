package services

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aroundme/aroundme/internal/domain/entities"
	"github.com/aroundme/aroundme/pkg/config"
)

func testWeights() config.ScoringConfig {
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

func newTestNormalizer() *PlaceNormalizer {
	return NewPlaceNormalizer(testWeights(), zerolog.Nop())
}

func intPtr(v int) *int { return &v }

func TestHaversineMeters_SamePoint(t *testing.T) {
	p := entities.Coordinates{Latitude: 37.7749, Longitude: -122.4194}
	assert.Zero(t, HaversineMeters(p, p))
}

func TestHaversineMeters_OneDegreeLongitudeAtEquator(t *testing.T) {
	d := HaversineMeters(entities.Coordinates{}, entities.Coordinates{Longitude: 1})
	assert.InEpsilon(t, 111195, d, 0.01)
}

func TestNormalize_GooglePlace(t *testing.T) {
	n := newTestNormalizer()
	userLoc := &entities.Coordinates{Latitude: 37.7749, Longitude: -122.4194}

	raw := entities.RawPlace{
		Source: entities.SourceGoogle,
		Google: &entities.GooglePlace{
			PlaceID:          "g1",
			Name:             "Cafe X",
			Rating:           4.5,
			UserRatingsTotal: 120,
			PriceLevel:       intPtr(2),
			Geometry: entities.GoogleGeometry{
				Location: entities.GoogleLatLng{Lat: 37.77, Lng: -122.41},
			},
		},
	}

	p := n.Normalize(raw, userLoc)

	assert.Equal(t, "g1", p.ID)
	assert.Equal(t, "Cafe X", p.Name)
	assert.Equal(t, entities.SourceGoogle, p.Source)
	assert.Equal(t, 4.5, p.Rating)
	assert.Equal(t, 120, p.ReviewCount)
	require.True(t, p.PriceKnown)
	assert.Equal(t, 2, p.PriceLevel)
	require.True(t, p.DistanceKnown)
	assert.Greater(t, p.DistanceMeters, 0.0)
	assert.Less(t, p.DistanceMeters, 2000.0)

	// Score follows the weighted formula exactly.
	want := 0.45*4.5 +
		-0.25*(p.DistanceMeters/1000) +
		0.10*(3-2) +
		0.20*math.Log10(121)
	assert.InDelta(t, want, p.Score, 1e-9)
}

func TestNormalize_YelpBusiness(t *testing.T) {
	n := newTestNormalizer()

	raw := entities.RawPlace{
		Source: entities.SourceYelp,
		Yelp: &entities.YelpBusiness{
			ID:             "y1",
			Name:           "Taco Spot",
			Rating:         4.0,
			ReviewCount:    50,
			Price:          "$$",
			DistanceMeters: 350,
		},
	}

	p := n.Normalize(raw, nil)

	assert.Equal(t, "y1", p.ID)
	assert.Equal(t, entities.SourceYelp, p.Source)
	require.True(t, p.PriceKnown)
	assert.Equal(t, 2, p.PriceLevel)
	require.True(t, p.DistanceKnown)
	assert.Equal(t, 350.0, p.DistanceMeters)
}

func TestNormalize_ScoreEqualsContributionSum(t *testing.T) {
	n := newTestNormalizer()

	raws := []entities.RawPlace{
		{Source: entities.SourceGoogle, Google: &entities.GooglePlace{PlaceID: "a", Name: "A", Rating: 4.2, UserRatingsTotal: 33}},
		{Source: entities.SourceYelp, Yelp: &entities.YelpBusiness{ID: "b", Name: "B", Rating: 3.1, ReviewCount: 900, Price: "$$$", DistanceMeters: 4200}},
		{Source: entities.SourceGoogle, Google: &entities.GooglePlace{Name: "No Rating"}},
	}

	for _, p := range n.NormalizeAll(raws, nil) {
		assert.InDelta(t, p.Contributions.Sum(), p.Score, 1e-6, "place %s", p.ID)
	}
}

func TestNormalize_UnknownFieldsContributeZero(t *testing.T) {
	n := newTestNormalizer()

	p := n.Normalize(entities.RawPlace{
		Source: entities.SourceGoogle,
		Google: &entities.GooglePlace{Name: "Bare"},
	}, nil)

	assert.False(t, p.PriceKnown)
	assert.False(t, p.DistanceKnown)
	assert.Zero(t, p.Contributions.Price)
	assert.Zero(t, p.Contributions.Distance)
	// Reviews floor at log10(2), never negative.
	assert.InDelta(t, 0.20*math.Log10(2), p.Contributions.Reviews, 1e-9)
}

func TestNormalize_Deterministic(t *testing.T) {
	n := newTestNormalizer()
	raw := entities.RawPlace{
		Source: entities.SourceGoogle,
		Google: &entities.GooglePlace{PlaceID: "g1", Name: "Cafe X", Rating: 4.5, UserRatingsTotal: 120},
	}

	first := n.Normalize(raw, nil)
	second := n.Normalize(raw, nil)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Score, second.Score)
}

func TestNormalize_SynthesizedIDStableWithinSession(t *testing.T) {
	n := newTestNormalizer()
	raw := entities.RawPlace{
		Source: entities.SourceGoogle,
		Google: &entities.GooglePlace{
			Rating:           3.3,
			UserRatingsTotal: 7,
			Geometry: entities.GoogleGeometry{
				Location: entities.GoogleLatLng{Lat: 1.5, Lng: 2.5},
			},
		},
	}

	first := n.Normalize(raw, nil)
	second := n.Normalize(raw, nil)

	require.NotEmpty(t, first.ID)
	assert.Equal(t, first.ID, second.ID)
}

func TestNormalize_NameFallbackID(t *testing.T) {
	n := newTestNormalizer()
	p := n.Normalize(entities.RawPlace{
		Source: entities.SourceYelp,
		Yelp:   &entities.YelpBusiness{Name: "Unnamed Id Bar"},
	}, nil)

	assert.Equal(t, "Unnamed Id Bar", p.ID)
}
