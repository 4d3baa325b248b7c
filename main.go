// chat123 is a two-party real-time chat service: REST endpoints for accounts
// and messages plus a live channel delivering new messages and typing
// signals to connected peers.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tomershatz123/chat123/config"
	"github.com/tomershatz123/chat123/modules/api"
	"github.com/tomershatz123/chat123/modules/auth"
	"github.com/tomershatz123/chat123/modules/message"
	"github.com/tomershatz123/chat123/modules/ratelimit"
	"github.com/tomershatz123/chat123/modules/realtime"
	"github.com/tomershatz123/chat123/modules/storage"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "chat123",
		Short:         "Two-party real-time chat service",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(configFile)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default ./config.yaml)")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API and live channel",
			RunE: func(_ *cobra.Command, _ []string) error {
				return runServe(configFile)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the database schema and exit",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runMigrate(cmd.Context(), configFile)
			},
		},
	)
	return rootCmd
}

func loadConfig(configFile string) (*config.Config, error) {
	cfg, err := config.Load(viper.New(), configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	store, err := storage.Open(ctx, storage.Config{
		Driver:   cfg.Database.Driver,
		DSN:      cfg.Database.DSN(),
		MaxConns: cfg.Database.MaxConns,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Database.Driver, err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

func runMigrate(ctx context.Context, configFile string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	log.Printf("Schema is up to date (%s)", cfg.Database.Driver)
	return store.Close()
}

func runServe(configFile string) error {
	log.Println("=== chat123 ===")

	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}

	store, err := openStore(context.Background(), cfg)
	if err != nil {
		return err
	}

	logLevel := mono.LogLevelInfo
	if cfg.Log.Level == "error" {
		logLevel = mono.LogLevelError
	}

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		mono.WithLogLevel(logLevel),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("failed to create application: %w", err)
	}

	authModule := auth.NewModule(store, auth.Config{
		JWT: auth.JWTConfig{
			SecretKey:            cfg.JWT.Secret,
			AccessTokenDuration:  cfg.JWT.AccessDuration,
			RefreshTokenDuration: cfg.JWT.RefreshDuration,
			Issuer:               cfg.JWT.Issuer,
		},
		BcryptCost: cfg.Bcrypt.Cost,
	})
	messageModule := message.NewModule(store)
	realtimeModule := realtime.NewModule(realtime.HubConfig{
		SendBuffer:      cfg.Realtime.SendBuffer,
		EventsPerSecond: cfg.Realtime.EventsPerSecond,
		EventBurst:      cfg.Realtime.EventBurst,
		RequireAuth:     cfg.Realtime.RequireAuth,
	})
	rateLimitModule := ratelimit.NewModule(cfg.Redis.Addr, ratelimit.Config{
		RequestsPerWindow: cfg.RateLimit.MessagesPerMinute,
		WindowSize:        time.Minute,
	})
	apiModule := api.NewModule(api.Config{
		Addr:        cfg.Server.Addr(),
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	apiModule.SetHub(realtimeModule.GetHub())
	apiModule.SetRateLimitModule(rateLimitModule)

	// Order: independent modules first, then dependent modules
	app.Register(authModule)
	app.Register(messageModule)
	app.Register(realtimeModule)
	app.Register(rateLimitModule)
	app.Register(apiModule)

	if err := app.Start(context.Background()); err != nil {
		_ = store.Close()
		return fmt.Errorf("failed to start application: %w", err)
	}

	printStartupInfo(cfg)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.Server.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				// Modules stop before the store they share is closed.
				return errors.Join(app.Stop(ctx), store.Close())
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
	return nil
}

func printStartupInfo(cfg *config.Config) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Printf("Storage: %s", cfg.Database.Driver)
	if cfg.Redis.Addr != "" {
		log.Printf("Send rate limit: %d messages per minute (Redis %s)", cfg.RateLimit.MessagesPerMinute, cfg.Redis.Addr)
	} else {
		log.Println("Send rate limit: disabled (no Redis configured)")
	}
	log.Printf("Live channel auth required: %v", cfg.Realtime.RequireAuth)
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%d):", cfg.Server.Port)
	log.Println("  POST   /api/auth/register         - Register a new user")
	log.Println("  POST   /api/auth/login            - Login and get tokens")
	log.Println("  POST   /api/auth/refresh          - Refresh access token")
	log.Println("  GET    /api/users/me              - Current user")
	log.Println("  GET    /api/users                 - Contact list")
	log.Println("  POST   /api/messages              - Send a message")
	log.Println("  GET    /api/messages/:otherUserId - Conversation history")
	log.Println("  GET    /health                    - Health check")
	log.Println("  GET    /metrics                   - Prometheus metrics")
	log.Println("  GET    /ws?token=<access token>   - Live channel")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
