package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/maxviazov/gameday-service/internal/config"
	"github.com/maxviazov/gameday-service/internal/handler"
	"github.com/maxviazov/gameday-service/internal/logger"
	"github.com/maxviazov/gameday-service/internal/realtime"
	"github.com/maxviazov/gameday-service/internal/repository"
	"github.com/maxviazov/gameday-service/internal/repository/memory"
	"github.com/maxviazov/gameday-service/internal/repository/postgres"
	"github.com/maxviazov/gameday-service/internal/service"
)

type storage interface {
	repository.MatchRepository
	repository.Pinger
}

func main() {
	cfg, err := config.Load(configPath())
	if err != nil {
		log.Fatalf("config loading failed: %v", err)
	}

	appLogger, err := logger.New(&cfg.Logger)
	if err != nil {
		log.Fatalf("logger initialization failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger); err != nil {
		appLogger.Fatal().Err(err).Msg("service stopped with error")
	}
	appLogger.Info().Msg("service stopped")
}

func configPath() string {
	if p := os.Getenv("APP_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}

func run(ctx context.Context, cfg *config.Config, appLogger zerolog.Logger) error {
	g, ctx := errgroup.WithContext(ctx)

	repo, closeStorage, err := openStorage(ctx, g, cfg, appLogger)
	if err != nil {
		return err
	}
	defer closeStorage()

	hub := realtime.NewHub(repo, cfg.Realtime, appLogger)
	defer hub.Close()

	// committed changes reach viewers through the repository; reverts never
	// touch storage, so the controller reports them directly
	matches := service.NewMatchService(repo, appLogger, service.WithObserver(func(ev service.ChangeEvent) {
		if ev.Kind == service.ChangeReverted {
			hub.BroadcastToRoom(ev.Match.ID, realtime.Message{Type: realtime.TypeReverted, MatchID: ev.Match.ID, Payload: ev.Match})
		}
	}))

	if cfg.App.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	handler.Register(engine, handler.Deps{
		Storage:       repo,
		StorageDriver: cfg.Storage.Driver,
		Matches:       matches,
		Hub:           hub,
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.App.Port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		appLogger.Info().
			Int("port", cfg.App.Port).
			Str("storage", cfg.Storage.Driver).
			Str("version", cfg.App.Version).
			Msg("service started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		appLogger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.App.ShutdownTimeout)*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStorage builds the configured repository. Background work it needs,
// such as the postgres change listener, joins g.
func openStorage(ctx context.Context, g *errgroup.Group, cfg *config.Config, appLogger zerolog.Logger) (storage, func(), error) {
	switch cfg.Storage.Driver {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.Postgres, appLogger)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres connection failed: %w", err)
		}
		if cfg.Storage.MigrateOnStart {
			if err := postgres.Migrate(ctx, pool, appLogger); err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("migrations failed: %w", err)
			}
		}
		repo := postgres.NewMatchRepository(pool, cfg.Postgres.NotifyChannel, appLogger)
		g.Go(func() error { return repo.Listen(ctx) })
		return repo, pool.Close, nil
	default:
		appLogger.Warn().Msg("using in-memory storage; matches are lost on restart")
		return memory.NewMatchRepository(appLogger), func() {}, nil
	}
}
