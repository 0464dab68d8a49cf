package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/tendant/simple-publish/pkg/simplepublish/api"
	"github.com/tendant/simple-publish/pkg/simplepublish/auth"
	"github.com/tendant/simple-publish/pkg/simplepublish/config"
)

func main() {
	envHelp := flag.Bool("env-help", false, "print the environment variables the server reads and exit")
	issueToken := flag.String("issue-token", "", "print an admin token for the given subject and exit")
	flag.Parse()

	if *envHelp {
		usage, err := config.EnvUsage()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(usage)
		return
	}

	// A missing .env file is fine; the process environment still applies.
	_ = godotenv.Load()

	if err := run(*issueToken); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// newHandler builds the root handler. RealIP rewrites RemoteAddr from
// forwarded headers, which the feedback rate limiter keys on, so it only
// runs behind a trusted proxy.
func newHandler(cfg *config.ServerConfig, comps *config.Components, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Mount("/", api.NewRouter(cfg.APIConfig(comps, logger)))

	if len(cfg.CORSOrigins) == 0 {
		return r
	}
	return cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
	}).Handler(r)
}

func run(issueToken string) error {
	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	comps, err := cfg.Build(ctx, logger)
	if err != nil {
		return fmt.Errorf("failed to build services: %w", err)
	}
	defer comps.Close()

	if issueToken != "" {
		if comps.Authorizer == nil {
			return errors.New("JWT_SECRET is not set; cannot issue tokens")
		}
		token, err := comps.Authorizer.IssueToken(issueToken, auth.RoleAdmin)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	}

	handler := newHandler(cfg, comps, logger)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			"port", cfg.Port,
			"environment", cfg.Environment,
			"database", cfg.DatabaseType,
			"mirror_storage", cfg.Mirror.Type,
			"media_storage", cfg.Media.Type,
			"auth", cfg.AuthEnabled(),
			"trust_proxy", cfg.TrustProxy,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exiting")
	return nil
}
