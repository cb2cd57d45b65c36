package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sparrow/config"
	"sparrow/database"
	"sparrow/handlers"
	"sparrow/logger"
	"sparrow/services"
)

const (
	shutdownTimeout = 10 * time.Second
	eventChannel    = "sparrow:conversation:"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and WebSocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFile, cfg.IsRelease())
	defer log.Sync()

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	// Database
	database.Connect(cfg, log)
	if err := database.Migrate(database.DB); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}
	if err := database.SeedSessions(database.DB); err != nil {
		log.Fatal("session seed failed", zap.Error(err))
	}

	// Redis (optional)
	database.ConnectRedis(cfg, log)

	var (
		publisher      services.Publisher = services.NopPublisher{}
		redisPublisher *services.RedisPublisher
	)
	if database.RDB != nil {
		redisPublisher = services.NewRedisPublisher(database.RDB, eventChannel)
		publisher = redisPublisher
		defer database.RDB.Close()
	}

	// Services
	catalog := services.NewDBCatalog(database.DB, nil)
	registry := services.NewRegistry(cfg.ConversationTTL, services.ConversationOptions{
		ReplyDelay: cfg.ReplyDelay,
		Catalog:    catalog,
		Publisher:  publisher,
		Logger:     log,
	})
	defer registry.Close()

	router := handlers.NewRouter(handlers.RouterDeps{
		Registry:       registry,
		Catalog:        catalog,
		Redis:          database.RDB,
		Publisher:      redisPublisher,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
