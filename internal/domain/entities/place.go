package entities

// PlaceSource identifies which upstream provider a place record came from.
type PlaceSource string

const (
	SourceGoogle PlaceSource = "google"
	SourceYelp   PlaceSource = "yelp"
)

// Coordinates represents geographical coordinates
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RawPlace is a provider record before normalization. Exactly one of the
// provider fields is set, discriminated by Source.
type RawPlace struct {
	Source PlaceSource   `json:"source"`
	Google *GooglePlace  `json:"google,omitempty"`
	Yelp   *YelpBusiness `json:"yelp,omitempty"`
}

// GooglePlace mirrors the subset of a Google Places result the pipeline
// consumes. Coordinates are nested under geometry as the API returns them.
type GooglePlace struct {
	PlaceID          string  `json:"place_id"`
	Name             string  `json:"name"`
	FormattedAddress string  `json:"formatted_address,omitempty"`
	Rating           float64 `json:"rating,omitempty"`
	UserRatingsTotal int     `json:"user_ratings_total,omitempty"`
	// PriceLevel is 0..4; nil when the provider did not report one.
	PriceLevel *int           `json:"price_level,omitempty"`
	Geometry   GoogleGeometry `json:"geometry"`
	Types      []string       `json:"types,omitempty"`
	OpenNow    *bool          `json:"open_now,omitempty"`
}

// GoogleGeometry nests the location as the Places API does.
type GoogleGeometry struct {
	Location GoogleLatLng `json:"location"`
}

// GoogleLatLng is the Places API coordinate pair. The wire keys are lat
// and lng, not the canonical latitude/longitude names.
type GoogleLatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Coordinates converts the wire pair into canonical coordinates.
func (l GoogleLatLng) Coordinates() Coordinates {
	return Coordinates{Latitude: l.Lat, Longitude: l.Lng}
}

// YelpBusiness mirrors the subset of a Yelp Fusion business the pipeline
// consumes. Price is a string of repeated dollar signs; distance comes
// precomputed in meters.
type YelpBusiness struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Rating         float64     `json:"rating,omitempty"`
	ReviewCount    int         `json:"review_count,omitempty"`
	Price          string      `json:"price,omitempty"`
	DistanceMeters float64     `json:"distance,omitempty"`
	Coordinates    Coordinates `json:"coordinates"`
	Address        string      `json:"address,omitempty"`
	Phone          string      `json:"phone,omitempty"`
	Categories     []string    `json:"categories,omitempty"`
}

// ScoreContributions holds the signed additive components of a place's
// score, one per factor. Keys are fixed; an inapplicable factor is 0.
type ScoreContributions struct {
	Rating   float64 `json:"rating"`
	Distance float64 `json:"distance"`
	Price    float64 `json:"price"`
	Reviews  float64 `json:"reviews"`
}

// Sum returns the total score implied by the contributions.
func (c ScoreContributions) Sum() float64 {
	return c.Rating + c.Distance + c.Price + c.Reviews
}

// NormalizedPlace is the canonical per-result record with unified
// rating, price, distance and score fields regardless of data source.
type NormalizedPlace struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Source      PlaceSource `json:"source"`
	Rating      float64     `json:"rating"`
	ReviewCount int         `json:"review_count"`
	// PriceLevel is 0..4 and only meaningful when PriceKnown is true.
	PriceLevel int  `json:"price_level"`
	PriceKnown bool `json:"price_known"`
	// DistanceMeters is only meaningful when DistanceKnown is true.
	DistanceMeters float64            `json:"distance_meters"`
	DistanceKnown  bool               `json:"distance_known"`
	Coordinates    *Coordinates       `json:"coordinates,omitempty"`
	Address        string             `json:"address,omitempty"`
	Categories     []string           `json:"categories,omitempty"`
	Score          float64            `json:"score"`
	Contributions  ScoreContributions `json:"contributions"`
	// MatchScore is an upstream 0-100 relevance score when the search
	// service produced one; 0 otherwise.
	MatchScore float64 `json:"match_score,omitempty"`
	// Explain grounds the result: the search and refine responses attach
	// it to every returned place so the chat layer can cite real metrics.
	Explain *ExplainPayload `json:"explain,omitempty"`
}

// RankedPlace is a normalized place annotated with a constraint-refined
// score. Refinement never drops places, it only re-orders them.
type RankedPlace struct {
	NormalizedPlace
	RefinedScore int `json:"refined_score"`
}
