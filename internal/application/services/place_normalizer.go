package services

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aroundme/aroundme/internal/domain/entities"
	"github.com/aroundme/aroundme/pkg/config"
)

const earthRadiusMeters = 6371000

// HaversineMeters computes the great-circle distance between two points
// in meters using the mean Earth radius.
func HaversineMeters(from, to entities.Coordinates) float64 {
	lat1 := from.Latitude * math.Pi / 180
	lat2 := to.Latitude * math.Pi / 180
	dLat := (to.Latitude - from.Latitude) * math.Pi / 180
	dLng := (to.Longitude - from.Longitude) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// PlaceNormalizer maps provider records into the canonical scoring
// schema. Normalization is deterministic apart from id synthesis for
// records lacking any identifier, and synthesized ids are stable for
// the lifetime of the normalizer.
type PlaceNormalizer struct {
	weights config.ScoringConfig
	logger  zerolog.Logger

	mu          sync.Mutex
	synthesized map[string]string
}

// NewPlaceNormalizer creates a normalizer with the given scoring weights.
func NewPlaceNormalizer(weights config.ScoringConfig, logger zerolog.Logger) *PlaceNormalizer {
	return &PlaceNormalizer{
		weights:     weights,
		logger:      logger.With().Str("component", "place_normalizer").Logger(),
		synthesized: make(map[string]string),
	}
}

// Normalize converts one provider record into a NormalizedPlace. The
// user location, when known, is used to derive missing distances.
func (n *PlaceNormalizer) Normalize(raw entities.RawPlace, userLoc *entities.Coordinates) entities.NormalizedPlace {
	var place entities.NormalizedPlace

	switch raw.Source {
	case entities.SourceYelp:
		if raw.Yelp != nil {
			place = n.fromYelp(raw.Yelp)
		}
	default:
		if raw.Google != nil {
			place = n.fromGoogle(raw.Google)
		}
	}

	if !place.DistanceKnown && place.Coordinates != nil && userLoc != nil {
		place.DistanceMeters = HaversineMeters(*userLoc, *place.Coordinates)
		place.DistanceKnown = true
	}

	if place.ID == "" {
		place.ID = n.stableID(place)
	}

	place.Contributions = n.contributions(place)
	place.Score = place.Contributions.Sum()

	return place
}

// Rescore recomputes the contributions and score after a merge changed
// the underlying fields.
func (n *PlaceNormalizer) Rescore(p *entities.NormalizedPlace) {
	p.Contributions = n.contributions(*p)
	p.Score = p.Contributions.Sum()
}

// NormalizeAll normalizes a batch preserving input order.
func (n *PlaceNormalizer) NormalizeAll(raws []entities.RawPlace, userLoc *entities.Coordinates) []entities.NormalizedPlace {
	places := make([]entities.NormalizedPlace, 0, len(raws))
	for _, raw := range raws {
		places = append(places, n.Normalize(raw, userLoc))
	}
	return places
}

func (n *PlaceNormalizer) fromGoogle(g *entities.GooglePlace) entities.NormalizedPlace {
	place := entities.NormalizedPlace{
		ID:          g.PlaceID,
		Name:        g.Name,
		Source:      entities.SourceGoogle,
		Rating:      g.Rating,
		ReviewCount: g.UserRatingsTotal,
		Address:     g.FormattedAddress,
		Categories:  g.Types,
	}

	if g.PriceLevel != nil {
		place.PriceLevel = *g.PriceLevel
		place.PriceKnown = true
	}

	loc := g.Geometry.Location
	if loc.Lat != 0 || loc.Lng != 0 {
		coords := loc.Coordinates()
		place.Coordinates = &coords
	}

	return place
}

func (n *PlaceNormalizer) fromYelp(y *entities.YelpBusiness) entities.NormalizedPlace {
	place := entities.NormalizedPlace{
		ID:          y.ID,
		Name:        y.Name,
		Source:      entities.SourceYelp,
		Rating:      y.Rating,
		ReviewCount: y.ReviewCount,
		Address:     y.Address,
		Categories:  y.Categories,
	}

	// Yelp encodes the price tier as a run of dollar signs.
	if tier := strings.Count(y.Price, "$"); tier > 0 {
		place.PriceLevel = tier
		place.PriceKnown = true
	}

	if y.DistanceMeters > 0 {
		place.DistanceMeters = y.DistanceMeters
		place.DistanceKnown = true
	}

	if y.Coordinates.Latitude != 0 || y.Coordinates.Longitude != 0 {
		place.Coordinates = &entities.Coordinates{
			Latitude:  y.Coordinates.Latitude,
			Longitude: y.Coordinates.Longitude,
		}
	}

	return place
}

func (n *PlaceNormalizer) contributions(p entities.NormalizedPlace) entities.ScoreContributions {
	c := entities.ScoreContributions{
		Rating:  n.weights.RatingWeight * p.Rating,
		Reviews: n.weights.ReviewsWeight * math.Log10(math.Max(float64(p.ReviewCount), 1)+1),
	}
	if p.DistanceKnown {
		c.Distance = n.weights.DistanceWeight * (p.DistanceMeters / 1000)
	}
	if p.PriceKnown {
		c.Price = n.weights.PriceWeight * float64(3-p.PriceLevel)
	}
	return c
}

// stableID falls back to the name, then to a synthesized token that is
// reused for repeated normalizations of the same record.
func (n *PlaceNormalizer) stableID(p entities.NormalizedPlace) string {
	if p.Name != "" {
		return p.Name
	}

	key := fingerprint(p)

	n.mu.Lock()
	defer n.mu.Unlock()

	if id, ok := n.synthesized[key]; ok {
		return id
	}
	id := uuid.New().String()
	n.synthesized[key] = id
	n.logger.Debug().Str("fingerprint", key).Str("id", id).Msg("synthesized place id")
	return id
}

func fingerprint(p entities.NormalizedPlace) string {
	lat, lng := 0.0, 0.0
	if p.Coordinates != nil {
		lat, lng = p.Coordinates.Latitude, p.Coordinates.Longitude
	}
	return fmt.Sprintf("%s|%.6f|%.6f|%.1f|%d", p.Source, lat, lng, p.Rating, p.ReviewCount)
}
