package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/partygames/bingo/internal/directory"
	"github.com/partygames/bingo/internal/docstore"
	"github.com/partygames/bingo/internal/identity"
	"github.com/partygames/bingo/internal/lifecycle"
	"github.com/partygames/bingo/internal/server"
)

// ServerCmd runs the game server.
type ServerCmd struct {
	Config string `kong:"default='bingod.hcl',help='Path to HCL config file'"`
	Debug  bool   `kong:"help='Enable debug logging'"`
}

func (c *ServerCmd) Run() error {
	cfg, err := server.LoadServerConfig(c.Config)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := setupLogger(cfg.Server.LogLevel, c.Debug)

	store, err := buildStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	var idp identity.Provider
	if cfg.Auth.JWTSecret != "" {
		idp = identity.NewJWTProvider([]byte(cfg.Auth.JWTSecret), tokenTTL(cfg))
	} else {
		logger.Warn("No jwt_secret configured, running with dev-mode identity")
		idp = identity.NewStaticProvider()
	}

	mgr := lifecycle.NewManager(store, logger, lifecycle.Config{
		DefaultMaxPlayers: cfg.Games.DefaultMaxPlayers,
		AllowedSizes:      cfg.Games.BoardSizes,
	})
	dir := directory.New(store)

	srv := server.NewServer(cfg.GetServerAddress(), store, mgr, dir, idp, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down")
		return srv.Stop()
	})
	return g.Wait()
}

func buildStore(cfg *server.ServerConfig, logger *log.Logger) (docstore.Store, error) {
	switch cfg.Storage.Backend {
	case "redis":
		return docstore.NewRedisStore(context.Background(), logger, cfg.Storage.RedisAddr, cfg.Storage.RedisPassword, cfg.Storage.RedisDB)
	default:
		if cfg.Storage.PersistDir != "" {
			return docstore.OpenMemoryStore(logger, cfg.Storage.PersistDir)
		}
		return docstore.NewMemoryStore(logger), nil
	}
}
