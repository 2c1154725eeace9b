package openai

import (
	"encoding/json"
	"fmt"
)

const validationSystemPrompt = `You validate search queries for a local place discovery app. Return ONLY valid JSON with this schema:
{
  "is_valid": boolean (true when the query is safe and plausibly describes places, food, services, or activities),
  "is_location_related": boolean (true when the query is about physical places someone could visit),
  "reason": string (one short sentence, only when the query is rejected),
  "cleaned_query": string (the query with filler stripped, when accepted)
}
Gibberish, empty intent, harmful requests, or questions unrelated to physical places are rejected. Be permissive with typos.`

const suggestionSystemPrompt = `You rewrite a user's place search into concrete search strings for a map provider. Return ONLY valid JSON with this schema:
{
  "suggestions": string[] (specific search strings, best first; include cuisine, category, or venue-type variants)
}
Keep each suggestion under six words. Never include the user's location in the strings.`

func buildValidationUserPrompt(query string) string {
	return fmt.Sprintf("Query: %s\n", query)
}

func buildSuggestionUserPrompt(query string, max int) string {
	return fmt.Sprintf("Query: %s\nReturn at most %d suggestions.\n", query, max)
}

type suggestionPayload struct {
	Suggestions []string `json:"suggestions"`
}

func parseSuggestions(data []byte) ([]string, error) {
	var payload suggestionPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse suggestion payload: %w", err)
	}

	out := payload.Suggestions[:0]
	for _, s := range payload.Suggestions {
		if s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}
