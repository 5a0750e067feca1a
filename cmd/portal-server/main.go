package main

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medisight/portal/internal/config"
	"github.com/medisight/portal/internal/domain/users"
	"github.com/medisight/portal/internal/platform/blobstore"
	"github.com/medisight/portal/internal/platform/db"
	"github.com/medisight/portal/internal/platform/events"
	"github.com/medisight/portal/internal/platform/identity"
	"github.com/medisight/portal/internal/platform/inference"
	"github.com/medisight/portal/internal/platform/websocket"
	"github.com/medisight/portal/internal/server"
	"github.com/medisight/portal/internal/storage/memory"
	"github.com/medisight/portal/migrations"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "portal-server",
		Short:        "Health portal API server",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(usersCmd())
	return root
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			autoMigrate, _ := cmd.Flags().GetBool("migrate")
			return runServer(autoMigrate)
		},
	}
	cmd.Flags().Bool("migrate", false, "Apply pending migrations before serving")
	return cmd
}

// migrationSource returns the embedded migrations unless dir is set.
func migrationSource(dir string) fs.FS {
	if dir == "" {
		return migrations.FS
	}
	return os.DirFS(dir)
}

// withMigrator loads config, connects and hands fn a migrator over dir.
func withMigrator(dir string, fn func(ctx context.Context, m *db.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cfg.UsesPostgres() {
		return fmt.Errorf("migrations need STORAGE_DRIVER=%s", config.StorageDriverPostgres)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(ctx, db.NewMigrator(pool, migrationSource(dir)))
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			return withMigrator(dir, func(ctx context.Context, m *db.Migrator) error {
				count, err := m.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	}
	upCmd.Flags().String("dir", "", "Read migrations from this directory instead of the embedded set")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			return withMigrator(dir, func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				printStatus(cmd, statuses)
				return nil
			})
		},
	}
	statusCmd.Flags().String("dir", "", "Read migrations from this directory instead of the embedded set")
	cmd.AddCommand(statusCmd)

	return cmd
}

func printStatus(cmd *cobra.Command, statuses []db.MigrationStatus) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	for _, s := range statuses {
		status, appliedAt := "pending", ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format(time.RFC3339)
			}
		}
		fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

func usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage portal users",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user and everything they own",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cfg.UsesPostgres() {
				return fmt.Errorf("users delete needs STORAGE_DRIVER=%s", config.StorageDriverPostgres)
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := users.NewService(users.NewUserRepoPG(pool), users.NewBcryptHasher(cfg.BcryptCost))
			if err := svc.Delete(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted user %d.\n", id)
			return nil
		},
	})
	return cmd
}

func runServer(autoMigrate bool) error {
	logger := newLogger(os.Getenv("ENV"))

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger = newLogger(cfg.Env)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	deps := server.Deps{Config: cfg, Logger: logger}

	// Storage
	if cfg.UsesPostgres() {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		logger.Info().Msg("connected to database")

		if autoMigrate {
			count, err := db.NewMigrator(pool, migrations.FS).Up(ctx)
			if err != nil {
				logger.Fatal().Err(err).Msg("migration failed")
			}
			logger.Info().Int("applied", count).Msg("migrations up to date")
		}
		deps.Repos = server.PostgresRepositories(pool)
		deps.DB = pool
	} else {
		logger.Warn().Msg("using in-memory storage; data is lost on restart")
		deps.Repos = server.MemoryRepositories(memory.New())
	}

	// Object storage
	if cfg.BlobDriver == config.BlobDriverS3 {
		client, err := blobstore.NewS3Client(ctx, cfg.S3Endpoint)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure s3")
		}
		deps.Blobs = blobstore.NewS3BlobStore(client, cfg.S3Bucket)
	} else {
		deps.Blobs = blobstore.NewInMemoryBlobStore()
	}

	// Identity provider
	if cfg.FirebaseProjectID != "" {
		keys := identity.NewKeySet(identity.FirebaseJWKSURL, time.Hour, &http.Client{Timeout: 10 * time.Second})
		deps.Verifier = identity.NewFirebaseVerifier(cfg.FirebaseProjectID, keys)
	} else {
		logger.Warn().Msg("FIREBASE_PROJECT_ID not set; /api/auth/firebase is disabled")
	}

	if cfg.InferenceURL != "" {
		deps.Inference = inference.NewClient(cfg.InferenceURL, cfg.InferenceTimeout)
	}

	// Events: the hub serves local websocket clients. With Redis configured
	// every instance publishes through the relay and the relay feeds the hub.
	hub := websocket.NewHub(logger)
	deps.Hub = hub
	fanout := events.Fanout{}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		relay := websocket.NewRelay(rdb, websocket.DefaultRelayChannel, hub, logger)
		go func() {
			if err := relay.Run(ctx, rdb); err != nil {
				logger.Error().Err(err).Msg("redis relay stopped")
			}
		}()
		fanout = append(fanout, relay)
	} else {
		fanout = append(fanout, hub)
	}

	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic, logger))
		defer func() {
			if err := kp.Close(); err != nil {
				logger.Error().Err(err).Msg("kafka writer close failed")
			}
		}()
		fanout = append(fanout, kp)
	}
	deps.Publisher = fanout

	e, err := server.New(deps)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}

	addr := ":" + cfg.Port
	go func() {
		logger.Info().Str("addr", addr).Str("storage", cfg.StorageDriver).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
