package entities

// ExplainFacts carries the raw metrics an explanation may cite. Only
// known, non-zero values are stated to the user; the rest are omitted.
type ExplainFacts struct {
	Rating     float64     `json:"rating"`
	DistanceM  float64     `json:"distance_m"`
	PriceLevel int         `json:"price_level"`
	Reviews    int         `json:"reviews"`
	PriceKnown bool        `json:"price_known"`
	DistKnown  bool        `json:"distance_known"`
	Source     PlaceSource `json:"source"`
}

// ExplainPayload is the compact grounding object attached to each ranked
// place and forwarded to the chat backend so its answers are tied to a
// specific place's actual metrics.
type ExplainPayload struct {
	PlaceID       string             `json:"placeId"`
	Name          string             `json:"name"`
	Score         float64            `json:"score"`
	Contributions ScoreContributions `json:"contributions"`
	Raw           ExplainFacts       `json:"raw"`
}

// NewExplainPayload derives the grounding payload from a normalized place.
func NewExplainPayload(p NormalizedPlace) ExplainPayload {
	return ExplainPayload{
		PlaceID:       p.ID,
		Name:          p.Name,
		Score:         p.Score,
		Contributions: p.Contributions,
		Raw: ExplainFacts{
			Rating:     p.Rating,
			DistanceM:  p.DistanceMeters,
			PriceLevel: p.PriceLevel,
			Reviews:    p.ReviewCount,
			PriceKnown: p.PriceKnown,
			DistKnown:  p.DistanceKnown,
			Source:     p.Source,
		},
	}
}
