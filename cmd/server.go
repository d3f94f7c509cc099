package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/albertnahas/booker-agent/internal/agent"
	"github.com/albertnahas/booker-agent/internal/api"
	"github.com/albertnahas/booker-agent/internal/auth"
	"github.com/albertnahas/booker-agent/internal/config"
	"github.com/albertnahas/booker-agent/internal/db"
	"github.com/albertnahas/booker-agent/internal/manager"
	"github.com/albertnahas/booker-agent/internal/migrate"
	"github.com/albertnahas/booker-agent/internal/notify"
	"github.com/albertnahas/booker-agent/internal/store"
	memorystore "github.com/albertnahas/booker-agent/internal/store/memory"
	pgstore "github.com/albertnahas/booker-agent/internal/store/postgres"
	redisstore "github.com/albertnahas/booker-agent/internal/store/redis"
	"github.com/albertnahas/booker-agent/internal/web"
)

func newServerCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the booking API (and optional dashboard)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := newLogger(cfg.LogLevel)
			slog.SetDefault(logger)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			var d *db.DB
			if cfg.Store == "postgres" || cfg.DashboardEnabled() {
				d, err = db.Open(ctx, cfg.DatabaseURL)
				if err != nil {
					return err
				}
				defer d.Close()
				if err := d.Ping(ctx); err != nil {
					return fmt.Errorf("db ping: %w", err)
				}
				if migrateUp {
					if err := migrate.Up(ctx, d); err != nil {
						return err
					}
				}
			}

			st, err := openStore(ctx, cfg, d)
			if err != nil {
				return err
			}

			agentClient := agent.New(agent.Options{
				BaseURL:    cfg.AgentURL,
				Token:      cfg.AgentToken,
				GeocodeURL: cfg.GeocodeURL,
				Logger:     logger,
			})

			mgr := manager.New(manager.Options{
				Store:         st,
				Agent:         agentClient,
				Notifier:      notify.New(logger),
				MaxConcurrent: cfg.MaxConcurrent,
				AgentTimeout:  cfg.AgentTimeout,
				DefaultModel:  cfg.DefaultModel,
				Logger:        logger,
			})
			defer mgr.Close()

			if cfg.RetentionTTL > 0 {
				go retentionLoop(ctx, st, cfg, logger)
			}

			mux := http.NewServeMux()
			apiServer := &api.Server{Manager: mgr, Logger: logger}
			apiServer.Register(mux)

			if cfg.DashboardEnabled() {
				hashKey, blockKey, err := cfg.CookieKeys()
				if err != nil {
					return err
				}
				ws := &web.Server{
					Auth:   auth.NewStore(d, hashKey, blockKey),
					Store:  st,
					Logger: logger,
				}
				ws.Register(mux)
				logger.Info("dashboard enabled", "path", "/ui")
			}

			return api.Start(ctx, cfg.ListenAddr, mux, logger)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	return cmd
}

func openStore(ctx context.Context, cfg config.Config, d *db.DB) (store.Store, error) {
	switch cfg.Store {
	case "postgres":
		return pgstore.New(d), nil
	case "redis":
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return redisstore.New(client, cfg.RetentionTTL), nil
	default:
		return memorystore.New(), nil
	}
}

// retentionLoop evicts terminal bookings past their TTL. Redis expires
// keys natively, so its purge is a cheap no-op.
func retentionLoop(ctx context.Context, st store.Store, cfg config.Config, logger *slog.Logger) {
	t := time.NewTicker(cfg.RetentionInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := st.PurgeTerminal(ctx, time.Now().Add(-cfg.RetentionTTL))
			if err != nil {
				logger.Error("retention purge failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("purged terminal bookings", "count", n)
			}
		}
	}
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
