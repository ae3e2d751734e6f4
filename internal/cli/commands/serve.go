package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/redline-cms/redline/internal/cli/config"
	"github.com/redline-cms/redline/internal/cli/ui"
	"github.com/redline-cms/redline/internal/cms/app"
	"github.com/redline-cms/redline/internal/web/auth"
	"github.com/redline-cms/redline/internal/web/cache"
	"github.com/redline-cms/redline/internal/web/ratelimit"
	"github.com/redline-cms/redline/internal/web/server"
)

var (
	servePort int
	serveHost string
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the admin server",
		Long: `Start the Redline admin server.

The server exposes the admin API: authentication, record management,
shadow drafts, and revision snapshots. Configuration comes from
redline.yml in the current directory.

Examples:
  redline serve
  redline serve --port 8080
  redline serve --host 0.0.0.0`,
		RunE: runServe,
	}

	cmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides config)")
	cmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (overrides config)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	infoColor := color.New(color.FgCyan)
	successColor := color.New(color.FgGreen, color.Bold)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprint(os.Stderr, ui.ConfigError(err.Error(), nil, false))
		return err
	}
	if cfg.Auth.Secret == "" {
		err := fmt.Errorf("auth.secret is not set")
		fmt.Fprint(os.Stderr, ui.ConfigError(err.Error(),
			[]string{"Run 'redline init' to generate a config"}, false))
		return err
	}
	if cfg.Auth.AdminPasswordHash == "" {
		err := fmt.Errorf("auth.admin_password_hash is not set")
		fmt.Fprint(os.Stderr, ui.ConfigError(err.Error(),
			[]string{"Generate one with 'redline hashpass'"}, false))
		return err
	}

	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}

	logger, err := newLogger(cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := openDatabase(cfg)
	if err != nil {
		fmt.Fprint(os.Stderr, ui.ServerError(err.Error(),
			[]string{"Check database settings in redline.yml", "Run 'redline migrate' first"}, false))
		return err
	}
	defer db.Close()

	application := app.New(db, app.Options{
		Logger: logger,
		Types:  defaultTypes(),
	})

	var (
		listCache    cache.Cache
		loginLimiter ratelimit.Limiter
	)
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Config:   cache.DefaultConfig(),
		})
		if err != nil {
			fmt.Fprint(os.Stderr, ui.ServerError(fmt.Sprintf("redis unavailable: %v", err),
				[]string{"Check redis.addr in redline.yml", "Set redis.enabled: false to use the in-memory cache"}, false))
			return err
		}
		defer redisCache.Close()
		listCache = redisCache

		// Redis-backed limiter so login throttling survives restarts.
		loginLimiter = ratelimit.NewRedis(redisCache.Client(), 10, time.Minute)
	} else {
		listCache = cache.NewMemoryCache(cache.DefaultConfig())
	}

	tokens := auth.NewTokenService(cfg.Auth.Secret, cfg.Auth.TokenTTL)

	srv := server.New(server.Config{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		AdminUser:         cfg.Auth.AdminUser,
		AdminPasswordHash: cfg.Auth.AdminPasswordHash,
		AdminRoles:        cfg.Auth.AdminRoles,
		LoginLimiter:      loginLimiter,
	}, application, tokens, listCache, logger)

	successColor.Printf("Starting admin server on %s:%d...\n", cfg.Server.Host, cfg.Server.Port)
	infoColor.Printf("Admin URL: http://%s:%d/admin\n\n", cfg.Server.Host, cfg.Server.Port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			fmt.Fprint(os.Stderr, ui.ServerError(err.Error(),
				[]string{"Change server.port if the address is in use"}, false))
		}
		return err
	case <-sigChan:
		infoColor.Println("\nShutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		successColor.Println("Server stopped")
		return nil
	}
}
