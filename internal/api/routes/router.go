package routes

import (
	"net/http"

	"github.com/aroundme/aroundme/internal/api/handlers"
	"github.com/aroundme/aroundme/internal/api/middleware"
	"github.com/aroundme/aroundme/internal/infrastructure/observability"
)

// Router holds all route handlers

type Router struct {
	mux *http.ServeMux

	searchHandler *handlers.SearchHandler

	placeDetailsHandler *handlers.PlaceDetailsHandler

	refineHandler *handlers.RefineHandler

	explainHandler *handlers.ExplainHandler

	chatHandler *handlers.ChatHandler

	cacheMiddleware *middleware.CacheMiddleware
	metrics         *observability.Metrics
}

// NewRouter creates a new router

func NewRouter(

	searchHandler *handlers.SearchHandler,

	placeDetailsHandler *handlers.PlaceDetailsHandler,

	refineHandler *handlers.RefineHandler,

	explainHandler *handlers.ExplainHandler,

	chatHandler *handlers.ChatHandler,

	cacheMiddleware *middleware.CacheMiddleware,

	metrics *observability.Metrics,

) *Router {

	return &Router{

		mux: http.NewServeMux(),

		searchHandler: searchHandler,

		placeDetailsHandler: placeDetailsHandler,

		refineHandler: refineHandler,

		explainHandler: explainHandler,

		chatHandler: chatHandler,

		cacheMiddleware: cacheMiddleware,
		metrics:         metrics,
	}

}

// SetupRoutes configures all application routes

func (r *Router) SetupRoutes() http.Handler {

	// Health check endpoint

	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {

		w.WriteHeader(http.StatusOK)

		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}

	})

	// Search endpoints

	r.mux.HandleFunc("POST /api/ai-search", r.searchHandler.Search)

	r.mux.HandleFunc("GET /api/place-details/{id}", r.placeDetailsHandler.GetPlaceDetails)

	// Refinement and explanation endpoints

	r.mux.HandleFunc("POST /api/refine", r.refineHandler.Refine)

	r.mux.HandleFunc("GET /api/explain", r.explainHandler.GetExplanation)

	// Chat endpoints

	r.mux.HandleFunc("POST /api/chat/stream", r.chatHandler.StreamChat)

	r.mux.HandleFunc("GET /api/chat/history/{id}", r.chatHandler.GetHistory)

	// Apply middleware in reverse order (last middleware wraps first)
	// CORS must be outermost so cached responses also get CORS headers.

	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)

	// Apply cache middleware if available
	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}

	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)

	// Apply HTTP performance optimizations (compression, ETag, cache headers)
	handler = middleware.ResponseOptimization(handler)

	// CORS wraps everything so headers are set even on cache HITs
	handler = middleware.CORSMiddleware(handler)

	return handler
}
