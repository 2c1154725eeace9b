package entities

// SearchRequest is a free-text place search anchored at the user's
// location.
type SearchRequest struct {
	Query     string  `json:"query"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// QueryIntent summarizes what the search pipeline understood from the
// raw query before any provider was called.
type QueryIntent struct {
	OriginalQuery string   `json:"original_query"`
	CleanedQuery  string   `json:"cleaned_query,omitempty"`
	IsValid       bool     `json:"is_valid"`
	Suggestions   []string `json:"suggestions,omitempty"`
	NearMe        bool     `json:"near_me"`
}

// ScoringBreakdown records how one result's position was computed, for
// transparency in the response payload.
type ScoringBreakdown struct {
	PlaceID        string  `json:"place_id"`
	Name           string  `json:"name"`
	MatchScore     float64 `json:"match_score"`
	Rating         float64 `json:"rating"`
	DistanceMeters float64 `json:"distance_meters,omitempty"`
}

// SearchDebug carries pipeline counters useful when tuning the search.
type SearchDebug struct {
	SuggestionCount int  `json:"suggestion_count"`
	RawResultCount  int  `json:"raw_result_count"`
	DedupedCount    int  `json:"deduped_count"`
	FallbackUsed    bool `json:"fallback_used"`
	CacheHit        bool `json:"cache_hit"`
}

// SearchResponse is the ranked result set returned for a search,
// including the intent and scoring transparency blocks.
type SearchResponse struct {
	Places           []NormalizedPlace  `json:"places"`
	QueryIntent      QueryIntent        `json:"query_intent"`
	ScoringBreakdown []ScoringBreakdown `json:"scoring_breakdown,omitempty"`
	SearchDebug      *SearchDebug       `json:"search_debug,omitempty"`
}
