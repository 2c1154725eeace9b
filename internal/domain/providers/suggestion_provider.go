package providers

import (
	"context"
)

// QueryValidation is the model's judgement of a raw search query. A
// query passes only when it is both valid and about physical places.
type QueryValidation struct {
	IsValid           bool   `json:"is_valid"`
	IsLocationRelated bool   `json:"is_location_related"`
	Reason            string `json:"reason,omitempty"`
	// CleanedQuery is the query with filler stripped; empty when the
	// model did not rewrite it.
	CleanedQuery string `json:"cleaned_query,omitempty"`
}

// Accepted reports whether the query should proceed to providers.
func (v QueryValidation) Accepted() bool {
	return v.IsValid && v.IsLocationRelated
}

// SuggestionProvider expands and validates search queries using a
// language model before any place provider is consulted.
type SuggestionProvider interface {
	// ValidateQuery checks whether the query is a plausible place search.
	ValidateQuery(ctx context.Context, query string) (*QueryValidation, error)

	// SuggestSearches rewrites the query into concrete provider search
	// strings, best first.
	SuggestSearches(ctx context.Context, query string, max int) ([]string, error)
}
