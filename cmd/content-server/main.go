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
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/chi-demo/middleware"
	"github.com/tendant/site-content/pkg/sitecontent"
	"github.com/tendant/site-content/pkg/sitecontent/api"
	"github.com/tendant/site-content/pkg/sitecontent/config"
	"github.com/tendant/site-content/pkg/sitecontent/documents"
)

const envPrefix = "SITECONTENT_"

func main() {
	printEnv := flag.Bool("env-help", false, "print supported environment variables and exit")
	flag.Parse()
	if *printEnv {
		fmt.Print(config.EnvUsage(envPrefix))
		return
	}

	cfg, err := config.Load(config.WithEnv(envPrefix))
	if err != nil {
		slog.Error("Failed to load configuration", "err", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, cleanup, err := cfg.BuildService(ctx, logger)
	if err != nil {
		logger.Error("Failed to build content service", "err", err)
		os.Exit(1)
	}
	defer cleanup()

	handler, err := newHandler(cfg, svc, logger)
	if err != nil {
		logger.Error("Failed to initialize API handler", "err", err)
		os.Exit(1)
	}

	server := app.DefaultApp()
	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	server.R.Route("/api/v1", func(r chi.Router) {
		r.Use(chimiddleware.RequestID)
		r.Use(chimiddleware.RealIP)
		r.Use(api.LoggingMiddleware(logger))
		r.Use(chimiddleware.Recoverer)
		if cfg.Environment == "development" {
			r.Use(api.CORSMiddleware(nil))
		}
		r.Mount("/", handler.Routes())
	})
	server.R.Handle("/defaults/*", http.StripPrefix("/defaults/", http.FileServer(http.FS(documents.FS()))))

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.R,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Change listener stopped", "err", err)
		}
	}()

	go func() {
		logger.Info("Site content server starting", "port", cfg.Port, "env", cfg.Environment, "store", cfg.StoreURL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "err", err)
	}
}

func newHandler(cfg *config.ServerConfig, svc sitecontent.ContentService, logger *slog.Logger) (*api.Handler, error) {
	opts := []api.Option{api.WithLogger(logger)}

	if cfg.JWTSecret != "" {
		opts = append(opts, api.WithTokenAuth(api.NewTokenAuth(cfg.JWTSecret)))
	}
	if cfg.APIKeySHA256 != "" {
		apiKeyMiddleware, err := middleware.ApiKeyMiddleware(middleware.ApiKeyConfig{
			APIKeys: map[string]string{
				"admin": cfg.APIKeySHA256,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize API key middleware: %w", err)
		}
		opts = append(opts, api.WithAdminMiddleware(apiKeyMiddleware))
	}
	if cfg.Environment == "development" {
		opts = append(opts, api.WithAllowedOrigins("*"))
	}
	if cfg.JWTSecret == "" && cfg.APIKeySHA256 == "" {
		logger.Warn("No admin credentials configured, write routes are disabled")
	}

	return api.NewHandler(svc, opts...), nil
}
