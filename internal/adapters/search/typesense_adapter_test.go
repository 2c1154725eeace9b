package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aroundme/aroundme/internal/domain/entities"
)

func TestDocumentToPlace(t *testing.T) {
	doc := map[string]interface{}{
		"id":           "g1",
		"name":         "Cafe X",
		"source":       "google",
		"rating":       4.5,
		"review_count": float64(120),
		"price_level":  float64(2),
		"score":        2.37,
		"address":      "123 Main St",
		"location":     []interface{}{37.77, -122.41},
	}

	place := documentToPlace(doc)

	assert.Equal(t, "g1", place.ID)
	assert.Equal(t, entities.SourceGoogle, place.Source)
	assert.Equal(t, 4.5, place.Rating)
	assert.Equal(t, 120, place.ReviewCount)
	require.True(t, place.PriceKnown)
	assert.Equal(t, 2, place.PriceLevel)
	require.NotNil(t, place.Coordinates)
	assert.Equal(t, 37.77, place.Coordinates.Latitude)
}

func TestDocumentToPlace_MissingOptionalFields(t *testing.T) {
	place := documentToPlace(map[string]interface{}{
		"id":   "y1",
		"name": "Bare Bar",
	})

	assert.Equal(t, "y1", place.ID)
	assert.False(t, place.PriceKnown)
	assert.Nil(t, place.Coordinates)
	assert.Zero(t, place.Rating)
}
