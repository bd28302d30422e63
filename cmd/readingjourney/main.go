package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/readingjourney/readingjourney/internal/config"
	"github.com/readingjourney/readingjourney/internal/cover"
	"github.com/readingjourney/readingjourney/internal/database"
	"github.com/readingjourney/readingjourney/internal/email"
	"github.com/readingjourney/readingjourney/internal/logging"
	"github.com/readingjourney/readingjourney/internal/server"
	"github.com/readingjourney/readingjourney/internal/token"
)

func main() {
	// .env is optional; absence is the normal case in production.
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to YAML config file (optional)")
	flag.Parse()

	cfg := config.MustLoad(*configPath)
	logger := logging.Setup(cfg.LogLevel)

	db, err := database.Open(cfg.DB.Path)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	emailClient := email.NewClient(cfg.Email.PostmarkToken, cfg.Email.From, cfg.BaseURL)
	if !emailClient.Configured() {
		logger.Warn("email is not configured, verification and reset mails will not be delivered")
	}

	covers := cover.New(cover.Config{
		Endpoint:      cfg.S3.Endpoint,
		Region:        cfg.S3.Region,
		Bucket:        cfg.S3.Bucket,
		AccessKey:     cfg.S3.AccessKey,
		SecretKey:     cfg.S3.SecretKey,
		PublicBaseURL: cfg.S3.PublicBaseURL,
	})
	if !covers.Configured() {
		logger.Warn("cover storage is not configured, uploads are disabled")
	}

	tokens := token.NewService(cfg.SecretKey)

	srv := server.New(db, tokens, emailClient, covers, logger)

	httpServer := &http.Server{
		Addr:              cfg.Address,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	// Background cleanup goroutine
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(); err != nil {
					slog.Error("cleanup expired sessions", "error", err)
				} else if n > 0 {
					slog.Info("cleaned up expired sessions", "count", n)
				}
				if n, err := srv.RedemptionStore().DeleteExpired(); err != nil {
					slog.Error("cleanup expired redemptions", "error", err)
				} else if n > 0 {
					slog.Info("cleaned up expired redemptions", "count", n)
				}
				srv.RateLimiter().Cleanup()
			case <-cleanupCtx.Done():
				return
			}
		}
	}()

	go func() {
		slog.Info("reading journey starting", "addr", cfg.Address, "env", cfg.Env)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	cleanupCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
