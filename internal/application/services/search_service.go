package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/rs/zerolog"

	"github.com/aroundme/aroundme/internal/domain/entities"
	"github.com/aroundme/aroundme/internal/domain/providers"
	"github.com/aroundme/aroundme/internal/domain/repositories"
	apperrors "github.com/aroundme/aroundme/pkg/errors"
)

const (
	maxSuggestions     = 5
	maxResults         = 8
	minResultsBeforeFB = 5
	searchRadiusMeters = 5000
	dedupeDistanceM    = 100
	dedupeSimilarity   = 0.8
	searchCacheTTLSecs = 300
)

var nearMePhrases = []string{"near me", "nearby", "close to me"}

// SearchService runs the full search pipeline: query validation and
// expansion, provider fan-out, dedupe, normalization and ranking.
type SearchService struct {
	suggestions providers.SuggestionProvider
	sources     []providers.PlaceSource
	cache       providers.CacheProvider
	index       repositories.PlaceIndexRepository
	normalizer  *PlaceNormalizer
	logger      zerolog.Logger
}

// NewSearchService wires the pipeline. The suggestion provider, cache
// and index may be nil; the pipeline degrades to direct provider search
// without them.
func NewSearchService(
	suggestions providers.SuggestionProvider,
	sources []providers.PlaceSource,
	cache providers.CacheProvider,
	index repositories.PlaceIndexRepository,
	normalizer *PlaceNormalizer,
	logger zerolog.Logger,
) *SearchService {
	return &SearchService{
		suggestions: suggestions,
		sources:     sources,
		cache:       cache,
		index:       index,
		normalizer:  normalizer,
		logger:      logger.With().Str("component", "search_service").Logger(),
	}
}

// Search executes a search request and returns the ranked result set.
func (s *SearchService) Search(ctx context.Context, req entities.SearchRequest) (*entities.SearchResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, apperrors.NewValidationError("query is required")
	}

	if cached := s.cachedResponse(ctx, req); cached != nil {
		return cached, nil
	}

	intent := entities.QueryIntent{
		OriginalQuery: query,
		IsValid:       true,
		NearMe:        detectNearMe(query),
	}

	searches, err := s.expandQuery(ctx, query, &intent)
	if err != nil {
		return nil, err
	}

	fallbackQuery := query
	if intent.CleanedQuery != "" {
		fallbackQuery = intent.CleanedQuery
	}

	userLoc := &entities.Coordinates{Latitude: req.Latitude, Longitude: req.Longitude}
	raws, fallbackUsed := s.fanOut(ctx, searches, fallbackQuery, *userLoc)
	rawCount := len(raws)

	places := s.normalizer.NormalizeAll(raws, userLoc)
	places = s.dedupe(places)
	dedupedCount := len(places)

	s.rank(places, intent.NearMe)
	if len(places) > maxResults {
		places = places[:maxResults]
	}
	attachExplain(places)

	if s.index != nil && len(places) > 0 {
		if err := s.index.Index(ctx, places); err != nil {
			s.logger.Warn().Err(err).Msg("failed to index search results")
		}
	}

	resp := &entities.SearchResponse{
		Places:           places,
		QueryIntent:      intent,
		ScoringBreakdown: breakdown(places),
		SearchDebug: &entities.SearchDebug{
			SuggestionCount: len(searches),
			RawResultCount:  rawCount,
			DedupedCount:    dedupedCount,
			FallbackUsed:    fallbackUsed,
		},
	}

	s.storeResponse(ctx, req, resp)
	return resp, nil
}

// expandQuery validates the query and rewrites it into provider search
// strings. Rejected queries stop the pipeline with a validation error;
// accepted ones proceed under the model's cleaned form. Without a
// suggestion provider the raw query is used as-is.
func (s *SearchService) expandQuery(ctx context.Context, query string, intent *entities.QueryIntent) ([]string, error) {
	if s.suggestions == nil {
		return []string{query}, nil
	}

	if v, err := s.suggestions.ValidateQuery(ctx, query); err != nil {
		s.logger.Warn().Err(err).Msg("query validation failed, proceeding")
	} else if v != nil {
		if !v.Accepted() {
			intent.IsValid = false
			reason := v.Reason
			if reason == "" {
				reason = "not a place search"
			}
			return nil, apperrors.NewValidationError(
				fmt.Sprintf("invalid query: %s. Try asking about restaurants, cafes, or other places to visit.", reason))
		}
		if cleaned := strings.TrimSpace(v.CleanedQuery); cleaned != "" {
			query = cleaned
			intent.CleanedQuery = cleaned
		}
	}

	suggested, err := s.suggestions.SuggestSearches(ctx, query, maxSuggestions)
	if err != nil || len(suggested) == 0 {
		if err != nil {
			s.logger.Warn().Err(err).Msg("query expansion failed, using raw query")
		}
		return []string{query}, nil
	}

	intent.Suggestions = suggested
	return suggested, nil
}

// fanOut runs each search string against every source, then widens to a
// plain fallback search when too few results came back.
func (s *SearchService) fanOut(ctx context.Context, searches []string, original string, loc entities.Coordinates) ([]entities.RawPlace, bool) {
	var raws []entities.RawPlace
	for _, q := range searches {
		for _, src := range s.sources {
			results, err := src.TextSearch(ctx, q, loc, searchRadiusMeters)
			if err != nil {
				s.logger.Warn().Err(err).Str("query", q).Msg("place source search failed")
				continue
			}
			raws = append(raws, results...)
		}
	}

	fallbackUsed := false
	if len(raws) < minResultsBeforeFB {
		fallbackUsed = true
		for _, src := range s.sources {
			results, err := src.TextSearch(ctx, original, loc, searchRadiusMeters*2)
			if err != nil {
				continue
			}
			raws = append(raws, results...)
		}
	}

	return raws, fallbackUsed
}

// dedupe folds places that duplicate an earlier entry into the survivor
// instead of dropping them: same normalized name, or close coordinates
// with highly similar names.
func (s *SearchService) dedupe(places []entities.NormalizedPlace) []entities.NormalizedPlace {
	kept := make([]entities.NormalizedPlace, 0, len(places))
	for _, candidate := range places {
		merged := false
		for i := range kept {
			if isDuplicate(kept[i], candidate) {
				s.mergeDuplicate(&kept[i], candidate)
				merged = true
				break
			}
		}
		if !merged {
			kept = append(kept, candidate)
		}
	}
	return kept
}

// mergeDuplicate copies the richer fields of a duplicate record into the
// survivor. Yelp often carries review counts and price tiers a Google
// twin lacks; the score is re-derived after the merge.
func (s *SearchService) mergeDuplicate(survivor *entities.NormalizedPlace, dup entities.NormalizedPlace) {
	if dup.Rating > 0 && survivor.Rating == 0 {
		survivor.Rating = dup.Rating
	}
	if dup.ReviewCount > survivor.ReviewCount {
		survivor.ReviewCount = dup.ReviewCount
	}
	if dup.PriceKnown && !survivor.PriceKnown {
		survivor.PriceLevel = dup.PriceLevel
		survivor.PriceKnown = true
	}
	if dup.DistanceKnown && !survivor.DistanceKnown {
		survivor.DistanceMeters = dup.DistanceMeters
		survivor.DistanceKnown = true
	}
	if survivor.Coordinates == nil {
		survivor.Coordinates = dup.Coordinates
	}
	survivor.Categories = mergeCategories(survivor.Categories, dup.Categories)
	s.normalizer.Rescore(survivor)
}

func mergeCategories(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, c := range append(append([]string{}, a...), b...) {
		key := strings.ToLower(c)
		if c == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

func isDuplicate(a, b entities.NormalizedPlace) bool {
	nameA, nameB := normalizeName(a.Name), normalizeName(b.Name)
	if nameA != "" && nameA == nameB {
		return true
	}
	if a.Coordinates == nil || b.Coordinates == nil {
		return false
	}
	if HaversineMeters(*a.Coordinates, *b.Coordinates) > dedupeDistanceM {
		return false
	}
	return nameSimilarity(nameA, nameB) >= dedupeSimilarity
}

func normalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Join(strings.Fields(name), " ")
}

func nameSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	longest := math.Max(float64(len(a)), float64(len(b)))
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/longest
}

// rank orders places in-place and fills MatchScore. Near-me queries rank
// known distances first, closest wins; everything else ranks by rating
// and breaks ties on review count.
func (s *SearchService) rank(places []entities.NormalizedPlace, nearMe bool) {
	for i := range places {
		if nearMe && places[i].DistanceKnown {
			places[i].MatchScore = math.Max(0, 100-(places[i].DistanceMeters/1000)*20)
		} else {
			places[i].MatchScore = places[i].Rating * 20
		}
	}

	sort.SliceStable(places, func(i, j int) bool {
		a, b := places[i], places[j]
		if nearMe {
			if a.DistanceKnown != b.DistanceKnown {
				return a.DistanceKnown
			}
			if a.DistanceKnown && a.DistanceMeters != b.DistanceMeters {
				return a.DistanceMeters < b.DistanceMeters
			}
			return a.Rating > b.Rating
		}
		if a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
		return a.ReviewCount > b.ReviewCount
	})
}

// attachExplain grounds each returned place with its scoring payload.
func attachExplain(places []entities.NormalizedPlace) {
	for i := range places {
		payload := entities.NewExplainPayload(places[i])
		places[i].Explain = &payload
	}
}

func breakdown(places []entities.NormalizedPlace) []entities.ScoringBreakdown {
	out := make([]entities.ScoringBreakdown, 0, len(places))
	for _, p := range places {
		entry := entities.ScoringBreakdown{
			PlaceID:    p.ID,
			Name:       p.Name,
			MatchScore: p.MatchScore,
			Rating:     p.Rating,
		}
		if p.DistanceKnown {
			entry.DistanceMeters = p.DistanceMeters
		}
		out = append(out, entry)
	}
	return out
}

func detectNearMe(query string) bool {
	lower := strings.ToLower(query)
	for _, phrase := range nearMePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func (s *SearchService) cachedResponse(ctx context.Context, req entities.SearchRequest) *entities.SearchResponse {
	if s.cache == nil {
		return nil
	}
	data, err := s.cache.Get(ctx, searchCacheKey(req))
	if err != nil || data == nil {
		return nil
	}
	var resp entities.SearchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil
	}
	if resp.SearchDebug != nil {
		resp.SearchDebug.CacheHit = true
	}
	return &resp
}

func (s *SearchService) storeResponse(ctx context.Context, req entities.SearchRequest, resp *entities.SearchResponse) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, searchCacheKey(req), data, searchCacheTTLSecs); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache search response")
	}
}

// searchCacheKey rounds coordinates so nearby requests share an entry.
func searchCacheKey(req entities.SearchRequest) string {
	seed := fmt.Sprintf("%s|%.3f|%.3f", strings.ToLower(strings.TrimSpace(req.Query)), req.Latitude, req.Longitude)
	sum := sha256.Sum256([]byte(seed))
	return "search:" + hex.EncodeToString(sum[:])
}
