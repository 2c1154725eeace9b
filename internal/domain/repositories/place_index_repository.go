package repositories

import (
	"context"

	"github.com/aroundme/aroundme/internal/domain/entities"
)

// PlaceIndexRepository maintains the local search index that backs
// typo-tolerant lookups over places already seen by the pipeline.
type PlaceIndexRepository interface {
	// Index upserts normalized places into the index.
	Index(ctx context.Context, places []entities.NormalizedPlace) error

	// Search queries the index near a location.
	Search(ctx context.Context, query string, location entities.Coordinates, limit int) ([]entities.NormalizedPlace, error)
}
