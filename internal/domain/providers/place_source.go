package providers

import (
	"context"

	"github.com/aroundme/aroundme/internal/domain/entities"
)

// PlaceSource defines the interface a place data provider must satisfy.
// Each result is wrapped in a RawPlace so the normalizer can dispatch on
// its origin.
type PlaceSource interface {
	// TextSearch finds places matching a free-text query near a location.
	TextSearch(ctx context.Context, query string, location entities.Coordinates, radiusMeters float64) ([]entities.RawPlace, error)

	// Details fetches the full detail record for one place.
	Details(ctx context.Context, placeID string) (*entities.PlaceDetails, error)
}
