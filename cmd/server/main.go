// CafiCafe restaurant chatbot server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/caficafe-chat/internal/agent"
	"github.com/ashureev/caficafe-chat/internal/api"
	"github.com/ashureev/caficafe-chat/internal/config"
	"github.com/ashureev/caficafe-chat/internal/middleware"
	"github.com/ashureev/caficafe-chat/internal/realtime"
	"github.com/ashureev/caficafe-chat/internal/restaurant"
	"github.com/ashureev/caficafe-chat/internal/store"
	"github.com/ashureev/caficafe-chat/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped successfully")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	slog.Info("Starting server", "port", cfg.Port, "grpc_health_port", cfg.GRPCHealthPort, "model", cfg.Gemini.Model)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()
	slog.Info("Database connected", "path", cfg.DBPath)

	restaurantCtx := restaurant.Load(cfg.DataDir, logger)
	slog.Info("Restaurant context loaded", "name", restaurantCtx.Name(), "dir", cfg.DataDir)

	gemini, err := agent.NewGeminiClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, logger)
	if err != nil {
		return err
	}

	service := agent.NewService(gemini, repo, restaurantCtx.Prompt(), agent.Config{
		MaxMessageLength: cfg.Chat.MaxMessageLength,
		HistoryLimit:     cfg.Chat.HistoryLimit,
		ModelTimeout:     cfg.Gemini.Timeout,
		HealthCacheTTL:   cfg.HealthCacheTTL,
	}, logger)

	limiter := agent.NewRateLimiter(cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.WindowDuration)
	chatHandler := agent.NewHandler(service, limiter, logger)
	defer chatHandler.Close()

	healthHandler := api.NewHealthHandler(service, repo, cfg.AllowedOrigins, logger)
	sm := realtime.NewSessionManager(logger)
	wsHandler := realtime.NewHandler(service, sm, limiter, cfg.Chat.MaxMessageLength, cfg.AllowedOrigins, logger)

	// Setup router.
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	healthHandler.RegisterRoutes(r)
	chatHandler.RegisterRoutes(r)
	r.Get("/ws/chat", wsHandler.ServeHTTP)
	r.Handle(web.WidgetPrefix+"*", web.WidgetHandler())

	// No WriteTimeout: /ws/chat connections are long-lived.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return store.RunRetentionWorker(gctx, repo, store.RetentionConfig{
			MaxAge:   cfg.HistoryRetention,
			Interval: store.DefaultRetentionInterval,
		}, logger)
	})

	if cfg.GRPCHealthEnabled() {
		grpcSrv, hs := api.NewGRPCHealthServer()
		lis, err := net.Listen("tcp", ":"+cfg.GRPCHealthPort)
		if err != nil {
			return err
		}
		g.Go(func() error {
			slog.Info("gRPC health listening", "addr", lis.Addr().String())
			return grpcSrv.Serve(lis)
		})
		g.Go(func() error {
			return api.SyncGRPCHealth(gctx, hs, service, cfg.HealthCacheTTL, logger)
		})
		g.Go(func() error {
			<-gctx.Done()
			grpcSrv.GracefulStop()
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		sm.CloseAll()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server forced to shutdown", "error", err)
			return err
		}
		return nil
	})

	return g.Wait()
}
