package search

import (
	"context"
	"fmt"
	"time"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/aroundme/aroundme/internal/domain/entities"
	"github.com/aroundme/aroundme/internal/domain/repositories"
	tsclient "github.com/aroundme/aroundme/internal/infrastructure/clients/typesense"
)

const searchRadiusKm = 25.0

// TypesenseAdapter maintains the typo-tolerant place index that serves
// repeat lookups without another provider round trip.
type TypesenseAdapter struct {
	client *tsclient.Client
}

var _ repositories.PlaceIndexRepository = (*TypesenseAdapter)(nil)

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client *tsclient.Client) *TypesenseAdapter {
	return &TypesenseAdapter{client: client}
}

// Index upserts normalized places into the places collection.
func (a *TypesenseAdapter) Index(ctx context.Context, places []entities.NormalizedPlace) error {
	now := time.Now().Unix()
	for _, place := range places {
		document := map[string]interface{}{
			"id":           place.ID,
			"name":         place.Name,
			"source":       string(place.Source),
			"rating":       place.Rating,
			"review_count": place.ReviewCount,
			"score":        place.Score,
			"indexed_at":   now,
		}
		if place.PriceKnown {
			document["price_level"] = place.PriceLevel
		}
		if place.Address != "" {
			document["address"] = place.Address
		}
		if place.Coordinates != nil {
			document["location"] = []float64{place.Coordinates.Latitude, place.Coordinates.Longitude}
		} else {
			// geopoint is required by the schema; places without
			// coordinates are not worth indexing for nearby lookups.
			continue
		}

		if _, err := a.client.Client().Collection(tsclient.PlacesCollection).Documents().Upsert(ctx, document); err != nil {
			return fmt.Errorf("failed to index place %s: %w", place.ID, err)
		}
	}
	return nil
}

// Search queries the index by name near a location.
func (a *TypesenseAdapter) Search(ctx context.Context, query string, location entities.Coordinates, limit int) ([]entities.NormalizedPlace, error) {
	if limit <= 0 {
		limit = 10
	}

	searchParams := &api.SearchCollectionParams{
		Q:        pointer.String(query),
		QueryBy:  pointer.String("name,address"),
		FilterBy: pointer.String(fmt.Sprintf("location:(%f, %f, %f km)", location.Latitude, location.Longitude, searchRadiusKm)),
		SortBy:   pointer.String("_text_match:desc,score:desc"),
		PerPage:  pointer.Int(limit),
	}

	result, err := a.client.Client().Collection(tsclient.PlacesCollection).Documents().Search(ctx, searchParams)
	if err != nil {
		return nil, fmt.Errorf("failed to search places index: %w", err)
	}

	places := []entities.NormalizedPlace{}
	if result.Hits == nil {
		return places, nil
	}
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		places = append(places, documentToPlace(*hit.Document))
	}
	return places, nil
}

func documentToPlace(doc map[string]interface{}) entities.NormalizedPlace {
	place := entities.NormalizedPlace{
		ID:     stringField(doc, "id"),
		Name:   stringField(doc, "name"),
		Source: entities.PlaceSource(stringField(doc, "source")),
	}

	if v, ok := doc["rating"].(float64); ok {
		place.Rating = v
	}
	if v, ok := doc["review_count"].(float64); ok {
		place.ReviewCount = int(v)
	}
	if v, ok := doc["price_level"].(float64); ok {
		place.PriceLevel = int(v)
		place.PriceKnown = true
	}
	if v, ok := doc["score"].(float64); ok {
		place.Score = v
	}
	place.Address = stringField(doc, "address")

	if loc, ok := doc["location"].([]interface{}); ok && len(loc) == 2 {
		lat, latOK := loc[0].(float64)
		lng, lngOK := loc[1].(float64)
		if latOK && lngOK {
			place.Coordinates = &entities.Coordinates{Latitude: lat, Longitude: lng}
		}
	}

	return place
}

func stringField(doc map[string]interface{}, key string) string {
	if v, ok := doc[key].(string); ok {
		return v
	}
	return ""
}
