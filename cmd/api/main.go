package main

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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"fanfilter/internal/application"
	appinsights "fanfilter/internal/application/insights"
	appsessions "fanfilter/internal/application/sessions"
	"fanfilter/internal/config"
	domain "fanfilter/internal/domain/followers"
	openaiClient "fanfilter/internal/infra/ai/openai"
	"fanfilter/internal/infra/checkpoint"
	mysqlp "fanfilter/internal/infra/db/mysql"
	postgresp "fanfilter/internal/infra/db/postgres"
	sqlitep "fanfilter/internal/infra/db/sqlite"
	"fanfilter/internal/infra/httpserver"
	minioStore "fanfilter/internal/infra/storage"
	"fanfilter/internal/infra/stream"
	"fanfilter/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx := context.Background()

	// run-history repository, driver per config
	var db *sql.DB
	var repo domain.RunRepository
	checkers := map[string]middleware.HealthChecker{}
	switch cfg.Database.Driver {
	case "mysql":
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			log.Fatalf("mysql connect error: %v", err)
		}
		repo = mysqlp.NewRunRepository(db)
	case "postgres":
		db, err = postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			log.Fatalf("postgres connect error: %v", err)
		}
		repo = postgresp.NewRunRepository(db)
	case "sqlite":
		db, err = sqlitep.Connect(ctx, cfg.Database.Path)
		if err != nil {
			log.Fatalf("sqlite connect error: %v", err)
		}
		repo = sqlitep.NewRunRepository(db)
	case "":
		log.Println("no database driver configured, run history disabled")
	default:
		log.Fatalf("unknown database driver: %s", cfg.Database.Driver)
	}
	if db != nil {
		defer db.Close()
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	}

	// artifact store (optional)
	var artifacts domain.ArtifactStore
	if cfg.Minio.Endpoint != "" {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			log.Fatalf("minio init error: %v", err)
		}
		artifacts = store
	}

	// cursor checkpoints
	checkpoints, err := checkpoint.Open(cfg.Checkpoint.Path)
	if err != nil {
		log.Fatalf("checkpoint open error: %v", err)
	}
	defer checkpoints.Close()

	// stream client against the filtering backend
	if cfg.Backend.BaseURL == "" {
		log.Fatalf("backend.baseUrl is required")
	}
	streams := stream.NewClient(cfg.Backend.BaseURL)

	sessionsSvc := appsessions.NewService(streams, repo, artifacts, checkpoints, application.SystemClock{})

	// ai digest (optional)
	var insightsSvc *appinsights.Service
	if cfg.OpenAI.APIKey != "" {
		insightsSvc = appinsights.NewService(openaiClient.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model))
	} else {
		insightsSvc = appinsights.NewService(nil)
	}

	// router + middleware
	mux := chi.NewRouter()
	mux.Use(middleware.Logging)
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.APIKeyAuth(cfg.Auth.APIKeys))
	mux.Use(middleware.NewRateLimiter(30, 1).Limit)
	if len(cfg.CORS.AllowedOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
		}))
	}
	mux.Mount("/", httpserver.NewRouter(sessionsSvc, insightsSvc, checkers))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
