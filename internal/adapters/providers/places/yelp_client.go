package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/aroundme/aroundme/internal/domain/entities"
	"github.com/aroundme/aroundme/internal/domain/providers"
	apperrors "github.com/aroundme/aroundme/pkg/errors"
)

const (
	yelpBaseURL         = "https://api.yelp.com/v3"
	yelpSearchCacheTTL  = 60 * 10
	yelpDetailsCacheTTL = 60 * 60
	yelpSearchLimit     = 20
)

var yelpWeekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// YelpClient implements PlaceSource against the Yelp Fusion API.
type YelpClient struct {
	apiKey     string
	httpClient *http.Client
	cache      providers.CacheProvider
	baseURL    string
}

var _ providers.PlaceSource = (*YelpClient)(nil)

// NewYelpClient creates a Yelp place source.
func NewYelpClient(apiKey string, cache providers.CacheProvider) *YelpClient {
	return NewYelpClientWithOptions(apiKey, cache, "", nil)
}

// NewYelpClientWithOptions allows overriding the base URL and HTTP
// client (used for tests).
func NewYelpClientWithOptions(apiKey string, cache providers.CacheProvider, baseURL string, httpClient *http.Client) *YelpClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = yelpBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &YelpClient{
		apiKey:     apiKey,
		httpClient: httpClient,
		cache:      cache,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

type yelpBusinessPayload struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
	Price       string  `json:"price"`
	Distance    float64 `json:"distance"`
	Phone       string  `json:"display_phone"`
	URL         string  `json:"url"`
	Coordinates struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"coordinates"`
	Location struct {
		DisplayAddress []string `json:"display_address"`
	} `json:"location"`
	Categories []struct {
		Title string `json:"title"`
	} `json:"categories"`
	Photos []string `json:"photos"`
	Hours  []struct {
		Open []yelpOpenWindow `json:"open"`
	} `json:"hours"`
}

type yelpOpenWindow struct {
	Day   int    `json:"day"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type yelpSearchResponse struct {
	Businesses []yelpBusinessPayload `json:"businesses"`
}

// TextSearch finds businesses matching a query near a location.
func (y *YelpClient) TextSearch(ctx context.Context, query string, location entities.Coordinates, radiusMeters float64) ([]entities.RawPlace, error) {
	cacheKey := "places:yelp:search:" + hashKey(fmt.Sprintf("%s|%.4f|%.4f|%.0f", strings.ToLower(query), location.Latitude, location.Longitude, radiusMeters))
	if y.cache != nil {
		if cached, err := y.cache.Get(ctx, cacheKey); err == nil && len(cached) > 0 {
			var raws []entities.RawPlace
			if err := json.Unmarshal(cached, &raws); err == nil {
				return raws, nil
			}
		}
	}

	// Yelp rejects radii above 40km.
	radius := int(radiusMeters)
	if radius > 40000 {
		radius = 40000
	}
	params := url.Values{
		"term":      []string{query},
		"latitude":  []string{fmt.Sprintf("%f", location.Latitude)},
		"longitude": []string{fmt.Sprintf("%f", location.Longitude)},
		"radius":    []string{strconv.Itoa(radius)},
		"limit":     []string{strconv.Itoa(yelpSearchLimit)},
	}

	var payload yelpSearchResponse
	if err := y.get(ctx, y.baseURL+"/businesses/search?"+params.Encode(), &payload); err != nil {
		return nil, err
	}

	raws := make([]entities.RawPlace, 0, len(payload.Businesses))
	for _, biz := range payload.Businesses {
		raws = append(raws, entities.RawPlace{
			Source: entities.SourceYelp,
			Yelp:   toYelpBusiness(biz),
		})
	}

	if y.cache != nil {
		if data, err := json.Marshal(raws); err == nil {
			_ = y.cache.Set(ctx, cacheKey, data, yelpSearchCacheTTL)
		}
	}
	return raws, nil
}

type yelpReviewsResponse struct {
	Reviews []struct {
		User struct {
			Name string `json:"name"`
		} `json:"user"`
		Rating      float64 `json:"rating"`
		Text        string  `json:"text"`
		TimeCreated string  `json:"time_created"`
	} `json:"reviews"`
}

// Details fetches a business and its reviews.
func (y *YelpClient) Details(ctx context.Context, placeID string) (*entities.PlaceDetails, error) {
	cacheKey := "places:yelp:details:" + hashKey(placeID)
	if y.cache != nil {
		if cached, err := y.cache.Get(ctx, cacheKey); err == nil && len(cached) > 0 {
			var details entities.PlaceDetails
			if err := json.Unmarshal(cached, &details); err == nil && details.Name != "" {
				return &details, nil
			}
		}
	}

	var biz yelpBusinessPayload
	if err := y.get(ctx, y.baseURL+"/businesses/"+url.PathEscape(placeID), &biz); err != nil {
		return nil, err
	}

	details := &entities.PlaceDetails{
		ID:                   biz.ID,
		Name:                 biz.Name,
		Rating:               biz.Rating,
		ReviewCount:          biz.ReviewCount,
		FormattedAddress:     strings.Join(biz.Location.DisplayAddress, ", "),
		FormattedPhoneNumber: biz.Phone,
		Website:              biz.URL,
		Photos:               biz.Photos,
		Source:               entities.SourceYelp,
	}
	if tier := strings.Count(biz.Price, "$"); tier > 0 {
		details.PriceLevel = &tier
	}
	for _, category := range biz.Categories {
		details.Categories = append(details.Categories, category.Title)
	}
	if len(biz.Hours) > 0 {
		details.OpeningHours = formatYelpHours(biz.Hours[0].Open)
	}

	// Reviews come from a separate endpoint; failures here degrade to a
	// detail record without reviews.
	var reviews yelpReviewsResponse
	if err := y.get(ctx, y.baseURL+"/businesses/"+url.PathEscape(placeID)+"/reviews", &reviews); err == nil {
		for _, review := range reviews.Reviews {
			details.Reviews = append(details.Reviews, entities.PlaceReview{
				Author:  review.User.Name,
				Rating:  review.Rating,
				Text:    review.Text,
				TimeAgo: review.TimeCreated,
			})
		}
	}

	if y.cache != nil {
		if data, err := json.Marshal(details); err == nil {
			_ = y.cache.Set(ctx, cacheKey, data, yelpDetailsCacheTTL)
		}
	}
	return details, nil
}

func toYelpBusiness(biz yelpBusinessPayload) *entities.YelpBusiness {
	out := &entities.YelpBusiness{
		ID:             biz.ID,
		Name:           biz.Name,
		Rating:         biz.Rating,
		ReviewCount:    biz.ReviewCount,
		Price:          biz.Price,
		DistanceMeters: biz.Distance,
		Phone:          biz.Phone,
		Address:        strings.Join(biz.Location.DisplayAddress, ", "),
		Coordinates: entities.Coordinates{
			Latitude:  biz.Coordinates.Latitude,
			Longitude: biz.Coordinates.Longitude,
		},
	}
	for _, category := range biz.Categories {
		out.Categories = append(out.Categories, category.Title)
	}
	return out
}

// formatYelpHours turns Yelp's numeric day windows into the same weekday
// text shape Google details use. Yelp days start at Monday=0.
func formatYelpHours(open []yelpOpenWindow) []string {
	byDay := make(map[int][]string)
	for _, window := range open {
		if window.Day < 0 || window.Day >= len(yelpWeekdays) {
			continue
		}
		byDay[window.Day] = append(byDay[window.Day], formatClock(window.Start)+" - "+formatClock(window.End))
	}

	var out []string
	for day, name := range yelpWeekdays {
		windows, ok := byDay[day]
		if !ok {
			out = append(out, name+": Closed")
			continue
		}
		out = append(out, name+": "+strings.Join(windows, ", "))
	}
	return out
}

// formatClock converts "1130" to "11:30 AM".
func formatClock(hhmm string) string {
	if len(hhmm) != 4 {
		return hhmm
	}
	hour, err := strconv.Atoi(hhmm[:2])
	if err != nil {
		return hhmm
	}
	minute := hhmm[2:]

	suffix := "AM"
	switch {
	case hour == 0:
		hour = 12
	case hour == 12:
		suffix = "PM"
	case hour > 12:
		hour -= 12
		suffix = "PM"
	}
	return fmt.Sprintf("%d:%s %s", hour, minute, suffix)
}

func (y *YelpClient) get(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+y.apiKey)

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return apperrors.NewExternalError("yelp request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return apperrors.NewNotFoundError("business not found")
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperrors.NewExternalError("yelp request failed", fmt.Errorf("status %d: %s", resp.StatusCode, body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewExternalError("failed to decode yelp response", err)
	}
	return nil
}
