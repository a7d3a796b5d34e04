package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/AnshRaj112/moodlog-backend/internal/config"
	"github.com/AnshRaj112/moodlog-backend/internal/database"
	"github.com/AnshRaj112/moodlog-backend/internal/handlers"
	"github.com/AnshRaj112/moodlog-backend/internal/middleware"
	"github.com/AnshRaj112/moodlog-backend/internal/routes"
	"github.com/AnshRaj112/moodlog-backend/internal/services"
)

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	// Relational store
	log.Printf("Connecting to %s...", cfg.DatabaseDriver)
	db, dialect, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN())
	if err != nil {
		log.Fatal("Failed to open database: ", err)
	}
	defer db.Close()

	store, err := services.NewStore(db, dialect)
	if err != nil {
		log.Fatal("Failed to create store: ", err)
	}

	// Redis: sessions, prompt-context cache, submission limiter
	log.Printf("Connecting to Redis...")
	rdb, err := database.ConnectRedis(cfg.RedisURI)
	if err != nil {
		log.Fatal("Failed to connect to Redis: ", err)
	}
	defer rdb.Close()

	// MongoDB run log is optional
	var runs services.RunLog = services.NopRunLog{}
	if cfg.MongoURI != "" {
		log.Printf("Connecting to MongoDB...")
		mongoClient, mongoDB, err := database.ConnectMongo(cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			log.Fatal("Failed to connect to MongoDB: ", err)
		}
		defer database.DisconnectMongo(mongoClient)

		runLog := services.NewMongoRunLog(mongoDB)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := runLog.EnsureIndexes(ctx, cfg.RunLogRetentionDays); err != nil {
			log.Printf("⚠️  WARNING: failed to ensure pipeline run indexes: %v", err)
		} else {
			log.Println("✅ Pipeline run indexes ensured")
		}
		cancel()
		defer runLog.Wait()
		runs = runLog
	} else {
		log.Println("⚠️  MONGODB_URI not set. Pipeline run log is disabled.")
	}

	llm, err := services.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIMaxOutputTokens)
	if err != nil {
		log.Fatal("Failed to create OpenAI client: ", err)
	}

	cache := services.NewRedisContextCache(rdb, cfg.ContextCacheTTL)
	journal := services.NewJournalService(
		store,
		services.NewAnalyzer(llm, cfg.OpenAIModel),
		services.NewMemoryUpdater(llm, cfg.OpenAIMemoryModel, store),
		cache,
		runs,
	)
	profile := services.NewProfileService(store, cache)
	accounts := services.NewAccountService(store, services.NewRedisSessions(rdb))

	h := handlers.New(journal, profile, accounts, cfg.AllowedOrigins)

	// Setup router
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if cfg.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	if cfg.IsProduction() {
		mws, stopLimiters := middleware.ProductionSecurity(hostname(cfg.Host), cfg.TrustProxy)
		defer stopLimiters()
		for _, mw := range mws {
			r.Use(mw)
		}
		log.Println("✅ Production security enabled (security headers, host check, per-IP + login rate limiting)")
	}

	routes.SetupRoutes(r, h, routes.Options{
		Resolver:           accounts,
		SubmissionCounter:  middleware.NewRedisCounter(rdb),
		SubmissionsPerHour: cfg.JournalSubmissionsPerHour,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("🚀 Moodlog backend running on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server: ", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
	journal.Wait()
}

// hostname extracts the bare host from HOST (e.g. https://api.moodlog.app -> api.moodlog.app).
func hostname(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	if u.Hostname() == "localhost" {
		return ""
	}
	return u.Hostname()
}
