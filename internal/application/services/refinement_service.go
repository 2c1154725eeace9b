package services

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/aroundme/aroundme/internal/domain/entities"
	"github.com/aroundme/aroundme/pkg/config"
)

// Penalty weights for the soft constraint policy. Missing data never
// removes a place; it only costs a small fixed amount.
const (
	unknownDistancePenalty = 0.25
	priceOverPenalty       = 0.5
	unknownPricePenalty    = 0.15
	penaltyScale           = 20
	reviewBaselineCap      = 200
)

// RefinementService re-ranks a result set against parsed constraints.
// Every input place survives refinement; constraint violations and
// missing fields lower the refined score but never filter.
type RefinementService struct {
	usdPerTier float64
	logger     zerolog.Logger
}

// NewRefinementService creates a refinement service. The USD-per-tier
// approximation comes from configuration.
func NewRefinementService(cfg config.ScoringConfig, logger zerolog.Logger) *RefinementService {
	return &RefinementService{
		usdPerTier: cfg.USDPerPriceTier,
		logger:     logger.With().Str("component", "refinement_service").Logger(),
	}
}

// Refine scores every place against the constraint and returns the full
// set sorted by refined score descending. Ties keep their original
// relative order.
func (s *RefinementService) Refine(places []entities.NormalizedPlace, c entities.Constraint) []entities.RankedPlace {
	ranked := make([]entities.RankedPlace, 0, len(places))
	for _, p := range places {
		penalty := s.penalty(p, c)
		baseline := s.baseline(p)
		score := int(math.Max(0, math.Round(baseline-penalty*penaltyScale)))
		rp := entities.RankedPlace{NormalizedPlace: p, RefinedScore: score}
		payload := entities.NewExplainPayload(p)
		rp.Explain = &payload
		ranked = append(ranked, rp)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RefinedScore > ranked[j].RefinedScore
	})

	s.logger.Debug().Int("places", len(ranked)).Bool("constrained", !c.IsEmpty()).Msg("refined result set")
	return ranked
}

func (s *RefinementService) penalty(p entities.NormalizedPlace, c entities.Constraint) float64 {
	penalty := 0.0

	if c.MaxDistanceMeters != nil {
		if p.DistanceKnown {
			if over := p.DistanceMeters - *c.MaxDistanceMeters; over > 0 {
				penalty += over / *c.MaxDistanceMeters
			}
		} else {
			penalty += unknownDistancePenalty
		}
	}

	switch {
	case c.MaxPriceUSD != nil:
		if p.PriceKnown {
			if float64(p.PriceLevel)*s.usdPerTier > *c.MaxPriceUSD {
				penalty += priceOverPenalty
			}
		} else {
			penalty += unknownPricePenalty
		}
	case c.MaxPriceLevel != nil:
		if p.PriceKnown {
			if p.PriceLevel > *c.MaxPriceLevel {
				penalty += priceOverPenalty
			}
		} else {
			penalty += unknownPricePenalty
		}
	}

	return penalty
}

// baseline prefers an upstream match score when one exists; otherwise it
// derives one from rating and review volume.
func (s *RefinementService) baseline(p entities.NormalizedPlace) float64 {
	if p.MatchScore != 0 {
		return p.MatchScore
	}
	return p.Rating*10 + math.Min(float64(p.ReviewCount), reviewBaselineCap)/20
}
