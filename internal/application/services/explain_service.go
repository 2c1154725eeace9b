package services

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/aroundme/aroundme/internal/domain/entities"
)

var priceTierLabels = map[int]string{
	1: "budget-friendly",
	2: "moderate",
	3: "higher-end",
	4: "premium",
}

var factorLabels = map[string]string{
	"rating":   "ratings",
	"reviews":  "review volume",
	"distance": "proximity",
	"price":    "price fit",
}

// ExplainHints controls optional extras appended to an explanation.
type ExplainHints struct {
	SuggestPreferences bool
}

// ExplainService builds short grounded justifications for why a place
// ranked where it did. It only ever states facts the payload actually
// carries; unknown fields are omitted, never invented.
type ExplainService struct{}

// NewExplainService creates an explain service.
func NewExplainService() *ExplainService {
	return &ExplainService{}
}

// BuildIntro produces the natural-language justification for a ranked
// place in the context of the user's query.
func (s *ExplainService) BuildIntro(explain entities.ExplainPayload, userQuery string, hints ExplainHints) string {
	var b strings.Builder

	name := explain.Name
	if name == "" {
		name = "This place"
	}

	reasons := topFactors(explain.Contributions, 3)
	if userQuery != "" {
		fmt.Fprintf(&b, "%s stands out for %q mainly because of %s.", name, userQuery, joinReasons(reasons))
	} else {
		fmt.Fprintf(&b, "%s stands out mainly because of %s.", name, joinReasons(reasons))
	}

	if facts := s.factSentence(explain.Raw); facts != "" {
		b.WriteString(" ")
		b.WriteString(facts)
	}

	if hints.SuggestPreferences {
		b.WriteString(" Tell me a distance or price preference and I can re-rank the results for you.")
	}

	return b.String()
}

func (s *ExplainService) factSentence(raw entities.ExplainFacts) string {
	var facts []string

	if raw.Rating > 0 {
		facts = append(facts, fmt.Sprintf("it is rated %.1f", raw.Rating))
	}
	if raw.Reviews > 0 {
		facts = append(facts, fmt.Sprintf("has %d reviews", raw.Reviews))
	}
	if raw.PriceKnown {
		if label, ok := priceTierLabels[raw.PriceLevel]; ok {
			facts = append(facts, fmt.Sprintf("is %s", label))
		}
	}
	if raw.DistKnown && raw.DistanceM > 0 {
		facts = append(facts, fmt.Sprintf("is %s away", humanizeDistance(raw.DistanceM)))
	}

	if len(facts) == 0 {
		return ""
	}
	return "Concretely, " + joinReasons(facts) + "."
}

// topFactors ranks the non-zero contributions by absolute magnitude and
// returns up to max human labels, falling back to "overall fit".
func topFactors(c entities.ScoreContributions, max int) []string {
	type factor struct {
		key   string
		value float64
	}
	factors := []factor{
		{"rating", c.Rating},
		{"distance", c.Distance},
		{"price", c.Price},
		{"reviews", c.Reviews},
	}

	informative := factors[:0]
	for _, f := range factors {
		if f.value != 0 {
			informative = append(informative, f)
		}
	}
	if len(informative) == 0 {
		return []string{"overall fit"}
	}

	sort.SliceStable(informative, func(i, j int) bool {
		return math.Abs(informative[i].value) > math.Abs(informative[j].value)
	})
	if len(informative) > max {
		informative = informative[:max]
	}

	labels := make([]string, 0, len(informative))
	for _, f := range informative {
		labels = append(labels, factorLabels[f.key])
	}
	return labels
}

func joinReasons(parts []string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	case 2:
		return parts[0] + " and " + parts[1]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + ", and " + parts[len(parts)-1]
	}
}

func humanizeDistance(meters float64) string {
	if meters < 900 {
		return fmt.Sprintf("%dm", int(math.Round(meters)))
	}
	return fmt.Sprintf("%.1fkm", meters/1000)
}
