package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/recallware/memspace/internal/api/handlers"
	"github.com/recallware/memspace/internal/config"
	"github.com/recallware/memspace/internal/domain"
	"github.com/recallware/memspace/internal/jobs"
	"github.com/recallware/memspace/internal/llm"
	"github.com/recallware/memspace/internal/repository"
	"github.com/recallware/memspace/internal/server"
	"github.com/recallware/memspace/internal/service"
	"github.com/recallware/memspace/internal/session"
	"github.com/recallware/memspace/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the memspace API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	spaceRepo := repository.NewSpaceRepository(pool)
	factRepo := repository.NewFactRepository(pool)
	noteRepo := repository.NewNoteRepository(pool)
	profileRepo := repository.NewProfileRepository(pool)
	timelineRepo := repository.NewTimelineRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)

	authSvc := service.NewAuthService(apiKeyRepo)

	if cfg.InitOwnerID != "" && cfg.InitAPIKey != "" {
		if err := bootstrapInitialKey(ctx, cfg, authSvc); err != nil {
			return fmt.Errorf("failed to bootstrap initial API key: %w", err)
		}
	}

	// Session store: Redis when configured, otherwise in-memory with a
	// background pruner.
	var sessionStore service.SessionStoreInterface
	var pruneWorker *jobs.Worker
	if cfg.HasRedis() {
		redisStore, err := session.NewRedisStore(ctx, session.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			IdleTTL:  cfg.SessionIdleTTL,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisStore.Close()
		sessionStore = redisStore
		log.Println("using redis session store")
	} else {
		memStore := session.NewMemoryStore()
		sessionStore = memStore
		pruner := jobs.NewSessionPruner(memStore, cfg.SessionIdleTTL)
		pruneWorker = jobs.NewWorker(pruner, time.Hour)
		go pruneWorker.Start(ctx)
		log.Println("using in-memory session store")
	}

	var transport *llm.Client
	if cfg.HasOpenAI() {
		transport = llm.NewClientWithConfig(llm.Config{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
		})
		log.Printf("chat transport configured (model: %s)", cfg.OpenAIModel)
	} else {
		transport = llm.NewClientWithAPI(nil)
		log.Println("chat transport not configured: OPENAI_API_KEY missing")
	}

	timelineSvc := service.NewTimelineService(timelineRepo)
	spaceSvc := service.NewSpaceService(spaceRepo)
	factSvc := service.NewFactService(factRepo, timelineSvc)
	noteSvc := service.NewNoteService(noteRepo, factRepo, timelineSvc)
	profileSvc := service.NewProfileService(profileRepo, timelineSvc)
	sessionSvc := service.NewSessionService(sessionStore)

	contextBuilder := service.NewContextBuilder(&contextStoreAdapter{
		spaces:   spaceRepo,
		profiles: profileRepo,
		facts:    factRepo,
		notes:    noteRepo,
		timeline: timelineRepo,
	})

	extractor := service.NewMemoryExtractor(factSvc, noteSvc, profileSvc)
	chatSvc := service.NewChatService(spaceRepo, sessionSvc, contextBuilder, transport, extractor)

	routerCfg := server.RouterConfig{
		AuthValidator:   authSvc,
		SpaceHandler:    handlers.NewSpaceHandler(spaceSvc),
		ChatHandler:     handlers.NewChatHandler(spaceSvc, chatSvc),
		FactHandler:     handlers.NewFactHandler(spaceSvc, factSvc),
		NoteHandler:     handlers.NewNoteHandler(spaceSvc, noteSvc),
		ProfileHandler:  handlers.NewProfileHandler(spaceSvc, profileSvc),
		TimelineHandler: handlers.NewTimelineHandler(spaceSvc, timelineSvc),
		SessionHandler:  handlers.NewSessionHandler(spaceSvc, sessionSvc),
		AuthHandler:     handlers.NewAuthHandler(authSvc),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if pruneWorker != nil {
		pruneWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// contextStoreAdapter exposes the repositories under the read surface
// the context builder consumes.
type contextStoreAdapter struct {
	spaces   *repository.SpaceRepository
	profiles *repository.ProfileRepository
	facts    *repository.FactRepository
	notes    *repository.NoteRepository
	timeline *repository.TimelineRepository
}

func (a *contextStoreAdapter) GetSpace(ctx context.Context, spaceID string) (*domain.Space, error) {
	return a.spaces.GetByID(ctx, spaceID)
}

func (a *contextStoreAdapter) ListProfile(ctx context.Context, spaceID string) ([]*domain.ProfileEntry, error) {
	return a.profiles.ListBySpace(ctx, spaceID)
}

func (a *contextStoreAdapter) ListFacts(ctx context.Context, spaceID string) ([]*domain.Fact, error) {
	return a.facts.ListBySpace(ctx, spaceID)
}

func (a *contextStoreAdapter) ListNotes(ctx context.Context, spaceID string) ([]*domain.Note, error) {
	return a.notes.ListBySpace(ctx, spaceID)
}

func (a *contextStoreAdapter) ListTimeline(ctx context.Context, spaceID string) ([]*domain.TimelineEntry, error) {
	return a.timeline.ListBySpace(ctx, spaceID)
}

func bootstrapInitialKey(ctx context.Context, cfg *config.Config, authSvc *service.AuthService) error {
	if !service.IsValidAPIToken(cfg.InitAPIKey) {
		return fmt.Errorf("invalid MEMSPACE_INIT_API_KEY format (expected 'mem_<64 hex chars>')")
	}

	ownerID, err := authSvc.ValidateAPIKey(ctx, cfg.InitAPIKey)
	if err == nil {
		log.Printf("bootstrap: API key already exists (owner: %s)", ownerID)
		return nil
	}
	if err != domain.ErrInvalidAPIKey {
		return err
	}

	if err := authSvc.CreateAPIKeyWithToken(ctx, cfg.InitOwnerID, "bootstrap", cfg.InitAPIKey); err != nil {
		return fmt.Errorf("failed to create API key: %w", err)
	}
	log.Printf("bootstrap: created API key for owner %s", cfg.InitOwnerID)
	return nil
}

func runMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
