// Package places contains the upstream place data providers. Each
// provider maps its own wire format into RawPlace records for the
// normalizer and PlaceDetails for the detail endpoint.
package places

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aroundme/aroundme/internal/domain/entities"
	"github.com/aroundme/aroundme/internal/domain/providers"
	apperrors "github.com/aroundme/aroundme/pkg/errors"
)

const (
	googleTextSearchURL   = "https://maps.googleapis.com/maps/api/place/textsearch/json"
	googleDetailsURL      = "https://maps.googleapis.com/maps/api/place/details/json"
	googleSearchCacheTTL  = 60 * 10
	googleDetailsCacheTTL = 60 * 60
	defaultHTTPTimeout    = 8 * time.Second

	googleDetailsFields = "name,rating,user_ratings_total,formatted_address,formatted_phone_number,website,price_level,opening_hours,photos,reviews,types"
)

// GoogleClient implements PlaceSource against the Google Places API.
type GoogleClient struct {
	apiKey     string
	httpClient *http.Client
	cache      providers.CacheProvider
	searchURL  string
	detailsURL string
}

var _ providers.PlaceSource = (*GoogleClient)(nil)

// NewGoogleClient creates a Google place source.
func NewGoogleClient(apiKey string, cache providers.CacheProvider) *GoogleClient {
	return NewGoogleClientWithOptions(apiKey, cache, "", nil)
}

// NewGoogleClientWithOptions allows overriding the base URL and HTTP
// client (used for tests).
func NewGoogleClientWithOptions(apiKey string, cache providers.CacheProvider, baseURL string, httpClient *http.Client) *GoogleClient {
	searchURL := googleTextSearchURL
	detailsURL := googleDetailsURL
	if strings.TrimSpace(baseURL) != "" {
		base := strings.TrimRight(baseURL, "/")
		searchURL = base + "/textsearch/json"
		detailsURL = base + "/details/json"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &GoogleClient{
		apiKey:     apiKey,
		httpClient: httpClient,
		cache:      cache,
		searchURL:  searchURL,
		detailsURL: detailsURL,
	}
}

type googleSearchResponse struct {
	Status  string                 `json:"status"`
	Results []entities.GooglePlace `json:"results"`
}

// TextSearch finds places matching a query near a location.
func (g *GoogleClient) TextSearch(ctx context.Context, query string, location entities.Coordinates, radiusMeters float64) ([]entities.RawPlace, error) {
	cacheKey := "places:google:search:" + hashKey(fmt.Sprintf("%s|%.4f|%.4f|%.0f", strings.ToLower(query), location.Latitude, location.Longitude, radiusMeters))
	if g.cache != nil {
		if cached, err := g.cache.Get(ctx, cacheKey); err == nil && len(cached) > 0 {
			var raws []entities.RawPlace
			if err := json.Unmarshal(cached, &raws); err == nil {
				return raws, nil
			}
		}
	}

	params := url.Values{
		"query":    []string{query},
		"location": []string{fmt.Sprintf("%f,%f", location.Latitude, location.Longitude)},
		"radius":   []string{strconv.Itoa(int(radiusMeters))},
		"key":      []string{g.apiKey},
	}

	var payload googleSearchResponse
	if err := g.get(ctx, g.searchURL+"?"+params.Encode(), &payload); err != nil {
		return nil, err
	}
	if payload.Status != "OK" && payload.Status != "ZERO_RESULTS" {
		return nil, apperrors.NewExternalError("google places search failed", fmt.Errorf("status %s", payload.Status))
	}

	raws := make([]entities.RawPlace, 0, len(payload.Results))
	for i := range payload.Results {
		raws = append(raws, entities.RawPlace{
			Source: entities.SourceGoogle,
			Google: &payload.Results[i],
		})
	}

	if g.cache != nil {
		if data, err := json.Marshal(raws); err == nil {
			_ = g.cache.Set(ctx, cacheKey, data, googleSearchCacheTTL)
		}
	}
	return raws, nil
}

type googleDetailsResponse struct {
	Status string `json:"status"`
	Result struct {
		Name                 string   `json:"name"`
		Rating               float64  `json:"rating"`
		UserRatingsTotal     int      `json:"user_ratings_total"`
		FormattedAddress     string   `json:"formatted_address"`
		FormattedPhoneNumber string   `json:"formatted_phone_number"`
		Website              string   `json:"website"`
		PriceLevel           *int     `json:"price_level"`
		Types                []string `json:"types"`
		OpeningHours         struct {
			WeekdayText []string `json:"weekday_text"`
		} `json:"opening_hours"`
		Photos []struct {
			PhotoReference string `json:"photo_reference"`
		} `json:"photos"`
		Reviews []struct {
			AuthorName              string  `json:"author_name"`
			Rating                  float64 `json:"rating"`
			Text                    string  `json:"text"`
			RelativeTimeDescription string  `json:"relative_time_description"`
		} `json:"reviews"`
	} `json:"result"`
}

// Details fetches the full detail record for one place.
func (g *GoogleClient) Details(ctx context.Context, placeID string) (*entities.PlaceDetails, error) {
	cacheKey := "places:google:details:" + hashKey(placeID)
	if g.cache != nil {
		if cached, err := g.cache.Get(ctx, cacheKey); err == nil && len(cached) > 0 {
			var details entities.PlaceDetails
			if err := json.Unmarshal(cached, &details); err == nil && details.Name != "" {
				return &details, nil
			}
		}
	}

	params := url.Values{
		"place_id": []string{placeID},
		"fields":   []string{googleDetailsFields},
		"key":      []string{g.apiKey},
	}

	var payload googleDetailsResponse
	if err := g.get(ctx, g.detailsURL+"?"+params.Encode(), &payload); err != nil {
		return nil, err
	}
	if payload.Status == "NOT_FOUND" || payload.Status == "INVALID_REQUEST" {
		return nil, apperrors.NewNotFoundError("place not found")
	}
	if payload.Status != "OK" {
		return nil, apperrors.NewExternalError("google place details failed", fmt.Errorf("status %s", payload.Status))
	}

	result := payload.Result
	details := &entities.PlaceDetails{
		ID:                   placeID,
		Name:                 result.Name,
		Rating:               result.Rating,
		ReviewCount:          result.UserRatingsTotal,
		FormattedAddress:     result.FormattedAddress,
		FormattedPhoneNumber: result.FormattedPhoneNumber,
		Website:              result.Website,
		PriceLevel:           result.PriceLevel,
		OpeningHours:         result.OpeningHours.WeekdayText,
		Categories:           result.Types,
		Source:               entities.SourceGoogle,
	}
	for _, photo := range result.Photos {
		details.Photos = append(details.Photos, photo.PhotoReference)
	}
	for _, review := range result.Reviews {
		details.Reviews = append(details.Reviews, entities.PlaceReview{
			Author:  review.AuthorName,
			Rating:  review.Rating,
			Text:    review.Text,
			TimeAgo: review.RelativeTimeDescription,
		})
	}

	if g.cache != nil {
		if data, err := json.Marshal(details); err == nil {
			_ = g.cache.Set(ctx, cacheKey, data, googleDetailsCacheTTL)
		}
	}
	return details, nil
}

func (g *GoogleClient) get(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return apperrors.NewExternalError("google places request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperrors.NewExternalError("google places request failed", fmt.Errorf("status %d: %s", resp.StatusCode, body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewExternalError("failed to decode google places response", err)
	}
	return nil
}

func hashKey(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
