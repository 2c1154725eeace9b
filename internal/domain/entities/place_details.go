package entities

// PlaceReview is a single user review attached to place details.
type PlaceReview struct {
	Author  string  `json:"author"`
	Rating  float64 `json:"rating"`
	Text    string  `json:"text"`
	TimeAgo string  `json:"time_ago,omitempty"`
}

// PlaceDetails is the merged detail view served for a single place,
// shaped the same regardless of which provider supplied it.
type PlaceDetails struct {
	ID                   string        `json:"id"`
	Name                 string        `json:"name"`
	Rating               float64       `json:"rating"`
	ReviewCount          int           `json:"review_count"`
	FormattedAddress     string        `json:"formatted_address"`
	FormattedPhoneNumber string        `json:"formatted_phone_number,omitempty"`
	Website              string        `json:"website,omitempty"`
	PriceLevel           *int          `json:"price_level,omitempty"`
	OpeningHours         []string      `json:"opening_hours,omitempty"`
	Photos               []string      `json:"photos,omitempty"`
	Reviews              []PlaceReview `json:"reviews,omitempty"`
	Categories           []string      `json:"categories,omitempty"`
	Source               PlaceSource   `json:"source"`
}
