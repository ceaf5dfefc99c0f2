package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"bookshelf-backend/internal/api"
	"bookshelf-backend/internal/auth"
	"bookshelf-backend/internal/config"
	"bookshelf-backend/internal/database"
	"bookshelf-backend/internal/library"
	"bookshelf-backend/internal/openlibrary"
	"bookshelf-backend/internal/redisstore"
	"bookshelf-backend/internal/templates"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	dbCfg := database.Config{Driver: database.Dialect(cfg.DBDriver)}
	if dbCfg.Driver == database.DialectPostgres {
		dbCfg.URL = cfg.PostgresURL()
		log.Printf("Initializing postgres database at %s", cfg.PGHost)
	} else {
		// Ensure absolute path
		dbPath := cfg.DBPath
		if !filepath.IsAbs(dbPath) {
			cwd, _ := os.Getwd()
			dbPath = filepath.Join(cwd, dbPath)
		}
		dbCfg.Path = dbPath
		log.Printf("Initializing database at %s", dbPath)
	}

	db, err := database.Open(ctx, dbCfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()
	log.Printf("Database ready (%s)", db.Dialect())

	// Session store
	var sessions auth.SessionStore = database.NewSessionRepo(db)
	if cfg.SessionStore == "redis" {
		store, err := redisstore.Connect(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer store.Close()
		sessions = store
		log.Printf("Using redis session store")
	}

	// Initialize services
	authSvc := auth.NewService(database.NewUserRepo(db), sessions, auth.Options{
		BcryptCost:     cfg.BcryptCost,
		SessionTimeout: cfg.SessionTimeout,
	})
	lookup := openlibrary.NewClient(cfg.OpenLibraryAPIURL, cfg.MetadataTimeout)
	librarySvc := library.NewService(database.NewBookRepo(db), lookup)

	renderer, err := templates.NewRenderer(cfg.CoversBaseURL)
	if err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Renderer = renderer

	// Middleware
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	api.RegisterRoutes(e, api.Dependencies{
		DB:           db,
		Auth:         authSvc,
		Library:      librarySvc,
		SecureCookie: cfg.CookieSecure,
	})

	authSvc.StartSessionCleanup(ctx, cfg.SessionCleanupInterval, e.Logger)

	go func() {
		log.Printf("Starting Bookshelf on port %s", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
