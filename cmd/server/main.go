package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"supportdesk/internal/analytics"
	"supportdesk/internal/auth"
	"supportdesk/internal/config"
	"supportdesk/internal/database"
	"supportdesk/internal/email"
	"supportdesk/internal/feed"
	"supportdesk/internal/handlers"
	"supportdesk/internal/intent"
	"supportdesk/internal/knowledge"
	"supportdesk/internal/openai"
	"supportdesk/internal/router"
	"supportdesk/internal/server"
	"supportdesk/internal/utils"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

// embeddingDimensions matches text-embedding-3-small
const embeddingDimensions = 1536

// storage holds the conversation store and platform directory
type storage struct {
	store     router.ConversationStore
	directory router.Directory
	convDB    *sqlx.DB // nil in dev mode
	health    map[string]handlers.Pinger
}

func openStorage(ctx context.Context, cfg *config.Config, logger zerolog.Logger) storage {
	if cfg.DevMode() {
		logger.Warn().Msg("CONVERSATIONS_DATABASE_URL not set, keeping conversations in memory")
		mem := database.NewMemoryStore()
		return storage{store: mem, directory: mem, health: map[string]handlers.Pinger{"conversations": mem}}
	}

	convDB, err := database.NewWriteClient(cfg.ConversationsDatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Conversation database connection failed")
	}
	store, err := database.NewStore(ctx, convDB)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to prepare conversation store")
	}
	logger.Info().Msg("Conversation database connection established successfully")

	platformDB, err := database.New(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Platform database connection failed")
	}
	logger.Info().Msg("Platform database connection established successfully")

	platform := database.NewDirectory(platformDB)
	return storage{
		store:     store,
		directory: database.NewCachedDirectory(platform, cfg.SubscriptionCacheDuration()),
		convDB:    convDB,
		health:    map[string]handlers.Pinger{"conversations": store, "platform": platform},
	}
}

func openRetriever(ctx context.Context, cfg *config.Config, ai *openai.Client, convDB *sqlx.DB, logger zerolog.Logger) knowledge.Retriever {
	if ai == nil && cfg.KnowledgeBackend != config.KnowledgeNone {
		logger.Warn().Str("backend", cfg.KnowledgeBackend).Msg("No embedding provider configured, knowledge search disabled")
		return knowledge.NoopRetriever{}
	}

	switch cfg.KnowledgeBackend {
	case config.KnowledgeQdrant:
		retriever, err := knowledge.NewQdrantRetriever(knowledge.QdrantConfig{
			Host:       cfg.QdrantHost,
			Port:       cfg.QdrantPort,
			APIKey:     cfg.QdrantAPIKey,
			UseTLS:     cfg.QdrantUseTLS,
			Collection: cfg.QdrantCollection,
		}, ai)
		if err != nil {
			logger.Fatal().Err(err).Msg("Qdrant connection failed")
		}
		if err := retriever.EnsureCollection(ctx, embeddingDimensions); err != nil {
			logger.Fatal().Err(err).Msg("Failed to prepare qdrant collection")
		}
		logger.Info().Str("collection", cfg.QdrantCollection).Msg("Knowledge backend: qdrant")
		return retriever
	case config.KnowledgePgvector:
		if convDB == nil {
			logger.Warn().Msg("pgvector backend needs CONVERSATIONS_DATABASE_URL, knowledge search disabled")
			return knowledge.NoopRetriever{}
		}
		retriever := knowledge.NewPgvectorRetriever(convDB, ai)
		if err := retriever.CreateTables(ctx); err != nil {
			logger.Fatal().Err(err).Msg("Failed to prepare pgvector tables")
		}
		logger.Info().Msg("Knowledge backend: pgvector")
		return retriever
	default:
		logger.Warn().Str("backend", cfg.KnowledgeBackend).Msg("Knowledge search disabled")
		return knowledge.NoopRetriever{}
	}
}

func main() {
	// Load configuration
	cfg := config.Load()

	// Setup logger
	logger := cfg.SetupLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st := openStorage(ctx, cfg, logger)

	patterns := intent.DefaultPatternSet()
	if cfg.IntentPatternsFile != "" {
		loaded, err := intent.LoadPatternSet(cfg.IntentPatternsFile)
		if err != nil {
			logger.Fatal().Err(err).Str("file", cfg.IntentPatternsFile).Msg("Failed to load intent patterns")
		}
		patterns = loaded
	}

	var ai *openai.Client
	if cfg.HasOpenAI() {
		client, err := openai.NewClient(cfg, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("OpenAI client unavailable")
		} else {
			ai = client
		}
	}

	searcher := knowledge.NewSearcher(
		openRetriever(ctx, cfg, ai, st.convDB, logger),
		knowledge.WithMinScore(cfg.KnowledgeMinScore),
		knowledge.WithLimit(cfg.KnowledgeSearchLimit),
	)

	routerCfg := router.Config{
		Store:         st.store,
		Directory:     st.directory,
		Searcher:      searcher,
		Patterns:      patterns,
		Locales:       utils.NewLocaleDetector(cfg.DefaultLocale),
		HistoryWindow: cfg.HistoryWindow,
		Logger:        logger,
	}

	var subscriber feed.Subscriber
	if cfg.RedisAddr != "" {
		redisFeed, err := feed.NewRedisFeed(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Redis connection failed")
		}
		defer func() { _ = redisFeed.Close() }()
		routerCfg.Publisher = redisFeed
		subscriber = redisFeed
		st.health["feed"] = redisFeed
	} else {
		hub := feed.NewHub()
		routerCfg.Publisher = hub
		subscriber = hub
	}

	if ai != nil && cfg.EnableAnswerGeneration {
		routerCfg.Generator = ai
	}

	if cfg.EscalationEmailEnabled {
		var summarizer email.Summarizer
		if ai != nil {
			summarizer = ai
		}
		notifier, err := email.NewEscalationNotifier(cfg.SendGridAPIKey, cfg.SupportEmail, summarizer, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("Escalation emails disabled")
		} else {
			routerCfg.Notifier = notifier
		}
	}

	var summaries handlers.SummaryProvider
	if st.convDB != nil {
		service, err := analytics.NewService(ctx, st.convDB, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("Analytics disabled")
		} else {
			routerCfg.Tracker = service
			summaries = service
		}
	}

	rt, err := router.New(routerCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create router")
	}

	// Create and initialize server
	srv := server.New(cfg, server.Deps{
		Router:     rt,
		Feed:       subscriber,
		Auth:       auth.NewManager(cfg),
		Analytics:  summaries,
		HealthDeps: st.health,
	}, logger)
	srv.Initialize()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Server shutdown failed")
		}
	}()

	// Start server
	if err := srv.Start(); err != nil && ctx.Err() == nil {
		logger.Fatal().Err(err).Msg("Server failed to start")
	}
	logger.Info().Msg("Server stopped")
}
