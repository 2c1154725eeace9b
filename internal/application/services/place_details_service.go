package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/aroundme/aroundme/internal/domain/entities"
	"github.com/aroundme/aroundme/internal/domain/providers"
	apperrors "github.com/aroundme/aroundme/pkg/errors"
)

// yelpIDLength is the fixed length of Yelp business ids; Google place
// ids are longer and prefixed differently.
const yelpIDLength = 22

// PlaceDetailsService resolves a place id to its detail record, routing
// to the likelier provider first and falling back to the other.
type PlaceDetailsService struct {
	google providers.PlaceSource
	yelp   providers.PlaceSource
	logger zerolog.Logger
}

// NewPlaceDetailsService wires the details lookup. Either source may be
// nil when its provider is not configured.
func NewPlaceDetailsService(google, yelp providers.PlaceSource, logger zerolog.Logger) *PlaceDetailsService {
	return &PlaceDetailsService{
		google: google,
		yelp:   yelp,
		logger: logger.With().Str("component", "place_details_service").Logger(),
	}
}

// Details fetches detail data for one place id.
func (s *PlaceDetailsService) Details(ctx context.Context, placeID string) (*entities.PlaceDetails, error) {
	if placeID == "" {
		return nil, apperrors.NewValidationError("place id is required")
	}

	first, second := s.google, s.yelp
	if len(placeID) == yelpIDLength {
		first, second = s.yelp, s.google
	}

	if first != nil {
		details, err := first.Details(ctx, placeID)
		if err == nil {
			return details, nil
		}
		if !isNotFound(err) {
			return nil, err
		}
	}

	if second != nil {
		details, err := second.Details(ctx, placeID)
		if err == nil {
			return details, nil
		}
		if !isNotFound(err) {
			return nil, err
		}
	}

	return nil, apperrors.NewNotFoundError("place not found")
}

func isNotFound(err error) bool {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Type == apperrors.ErrorTypeNotFound
	}
	return false
}
