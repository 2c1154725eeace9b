package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aroundme/aroundme/internal/adapters/cache"
	"github.com/aroundme/aroundme/internal/adapters/database"
	"github.com/aroundme/aroundme/internal/adapters/providers/places"
	"github.com/aroundme/aroundme/internal/adapters/search"
	"github.com/aroundme/aroundme/internal/api/handlers"
	"github.com/aroundme/aroundme/internal/api/middleware"
	"github.com/aroundme/aroundme/internal/api/routes"
	"github.com/aroundme/aroundme/internal/application/services"
	domainproviders "github.com/aroundme/aroundme/internal/domain/providers"
	"github.com/aroundme/aroundme/internal/domain/repositories"
	"github.com/aroundme/aroundme/internal/infrastructure/clients/openai"
	"github.com/aroundme/aroundme/internal/infrastructure/clients/postgres"
	"github.com/aroundme/aroundme/internal/infrastructure/clients/redis"
	"github.com/aroundme/aroundme/internal/infrastructure/clients/typesense"
	"github.com/aroundme/aroundme/internal/infrastructure/observability"
	"github.com/aroundme/aroundme/pkg/config"
)

func main() {

	// Load configuration

	cfg, err := config.Load()

	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Environment)
	logger := observability.GetLogger()

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	var shutdown func(context.Context) error
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err = observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			log.Printf("Warning: Failed to set up OpenTelemetry: %v", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Printf("Error shutting down OpenTelemetry: %v", err)
				}
			}()
			log.Println("OpenTelemetry initialized successfully")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}

	// Initialize Redis client (optional: the app works without caching)
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Printf("Warning: Failed to initialize Redis client: %v", err)
	} else {
		defer redisClient.Close()
		log.Println("Redis client initialized successfully")
	}

	var cacheProvider domainproviders.CacheProvider
	if redisClient != nil {
		cacheProvider = cache.NewRedisAdapter(redisClient)
	}

	// Initialize database client (optional: chat history is not persisted
	// without it)
	var conversationRepo repositories.ConversationRepository
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Printf("Warning: Failed to initialize PostgreSQL client: %v", err)
	} else {
		defer pgClient.Close()
		conversationRepo = database.NewConversationAdapter(pgClient)
		log.Println("PostgreSQL client initialized successfully")
	}

	// Initialize Typesense client (optional: results are simply not indexed)
	var placeIndex repositories.PlaceIndexRepository
	typesenseClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		log.Printf("Warning: Failed to initialize Typesense client: %v", err)
	} else {
		adapter := search.NewTypesenseAdapter(typesenseClient)
		if err := typesenseClient.InitSchema(context.Background()); err != nil {
			log.Printf("Warning: Failed to init Typesense schema: %v", err)
		}
		placeIndex = adapter
		log.Println("Typesense client initialized successfully")
	}

	// Place data sources
	var sources []domainproviders.PlaceSource
	var googleSource, yelpSource domainproviders.PlaceSource
	if cfg.GooglePlaces.APIKey != "" {
		googleSource = places.NewGoogleClient(cfg.GooglePlaces.APIKey, cacheProvider)
		sources = append(sources, googleSource)
	} else {
		log.Println("Warning: GOOGLE_PLACES_API_KEY is not set; Google source disabled")
	}
	if cfg.Yelp.APIKey != "" {
		yelpSource = places.NewYelpClient(cfg.Yelp.APIKey, cacheProvider)
		sources = append(sources, yelpSource)
	} else {
		log.Println("Warning: YELP_API_KEY is not set; Yelp source disabled")
	}
	if len(sources) == 0 {
		log.Println("Warning: no place sources configured; searches will return empty results")
	}

	// OpenAI powers query suggestions and grounded chat. Without a key
	// the search runs un-expanded and chat falls back to a local echo.
	var suggestionProvider domainproviders.SuggestionProvider
	var chatStreamer domainproviders.ChatStreamer = openai.NewEchoStreamer()
	if cfg.OpenAI.APIKey == "" {
		log.Println("Warning: OPENAI_API_KEY is not set; using echo chat streamer")
	} else {
		openaiClient, err := openai.NewClient(&cfg.OpenAI)
		if err != nil {
			log.Printf("Warning: Failed to initialize OpenAI client: %v", err)
		} else {
			suggestionProvider = openaiClient
			chatStreamer = openaiClient
		}
	}

	// Initialize services

	normalizer := services.NewPlaceNormalizer(cfg.Scoring, *logger)

	searchService := services.NewSearchService(
		suggestionProvider,
		sources,
		cacheProvider,
		placeIndex,
		normalizer,
		*logger,
	)

	detailsService := services.NewPlaceDetailsService(googleSource, yelpSource, *logger)
	chatService := services.NewChatService(chatStreamer, conversationRepo, *logger)
	constraintParser := services.NewConstraintParser(cfg.Scoring)
	refinementService := services.NewRefinementService(cfg.Scoring, *logger)
	explainService := services.NewExplainService()
	sessions := services.NewSessionStore()

	// Initialize handlers

	searchHandler := handlers.NewSearchHandler(searchService, sessions)

	placeDetailsHandler := handlers.NewPlaceDetailsHandler(detailsService)

	refineHandler := handlers.NewRefineHandler(constraintParser, refinementService, sessions)

	explainHandler := handlers.NewExplainHandler(explainService, sessions)

	chatHandler := handlers.NewChatHandler(chatService, sessions, *logger)

	// Initialize cache middleware
	var cacheMiddleware *middleware.CacheMiddleware
	if cacheProvider != nil {
		cacheMiddleware = middleware.NewCacheMiddleware(cacheProvider)
		log.Println("Cache middleware initialized successfully")
	}

	// Set up router

	router := routes.NewRouter(
		searchHandler,
		placeDetailsHandler,
		refineHandler,
		explainHandler,
		chatHandler,
		cacheMiddleware,
		metrics,
	)

	handler := router.SetupRoutes()

	// Create HTTP server. The write timeout is generous because chat
	// replies stream for as long as the model keeps producing tokens.
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s", serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during server shutdown: %v", err)
	}
}
