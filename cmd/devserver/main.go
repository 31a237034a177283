package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"sidewayqr/internal/config"
	"sidewayqr/internal/devserver"
	"sidewayqr/internal/metrics"
	"sidewayqr/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	ctx := context.Background()

	var (
		repo    devserver.Repository
		healthy func(context.Context) bool
	)
	switch cfg.RepoBackend {
	case "postgres":
		db, err := store.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		pg := devserver.NewPostgresRepository(db.Client)
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		if err := pg.SeedDemo(ctx); err != nil {
			return err
		}
		repo = pg
		healthy = func(ctx context.Context) bool { return db.Client.PingContext(ctx) == nil }
		log.Println("repository: postgres")
	default:
		mem, err := devserver.NewMemoryRepository()
		if err != nil {
			return err
		}
		repo = mem
		log.Println("repository: memory")
	}

	r := devserver.NewRouter(repo, devserver.Options{
		Issuer:          cfg.JWTIssuer,
		SigningKey:      cfg.JWTSigningKey,
		SessionTTL:      cfg.SessionTTL,
		RateLimitPerMin: cfg.RateLimitPerMin,
		Metrics:         metrics.NewServer(prometheus.DefaultRegisterer),
		Healthy:         healthy,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s (demo login %s / %s)", cfg.HTTPPort, devserver.DemoEmail, devserver.DemoPassword)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}
