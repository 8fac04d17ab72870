package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/societyhub/society_backend/internal/config"
	"github.com/societyhub/society_backend/internal/database"
	"github.com/societyhub/society_backend/internal/logging"
	"github.com/societyhub/society_backend/internal/middleware"
	"github.com/societyhub/society_backend/internal/routes"
	"github.com/societyhub/society_backend/internal/services"
	"github.com/societyhub/society_backend/internal/ws"
)

var configPath string

func main() {
	// Load .env (non-fatal if missing in production)
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "society",
		Short:         "Residential society management API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (env vars take precedence)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads config, the logger and a migrated database.
func bootstrap(ctx context.Context) (*config.Config, logging.Logger, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	log := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)

	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
		return nil, nil, nil, fmt.Errorf("database migration failed: %w", err)
	}
	return cfg, log, db, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, log, db, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			if err := database.SeedSuperAdmin(ctx, db, cfg, log); err != nil {
				return fmt.Errorf("super admin seed failed: %w", err)
			}
			return serve(ctx, cfg, log, db)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log logging.Logger, db *gorm.DB) error {
	hubs := ws.NewHubs(log.With("component", "ws"))
	hubs.Run(ctx)

	var limiter middleware.Limiter
	if cfg.RateLimitPerMinute > 0 {
		if cfg.RedisAddr != "" {
			rdb := redis.NewClient(&redis.Options{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
			defer rdb.Close()
			limiter = middleware.NewRedisLimiter(rdb, cfg.RateLimitPerMinute)
		} else {
			limiter = middleware.NewMemoryLimiter(cfg.RateLimitPerMinute)
		}
	}

	var payments *services.PaymentService
	if cfg.PaymentsEnabled() {
		gateway := services.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
		payments = services.NewPaymentService(db, log, gateway, cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.PaymentCurrency)
	} else {
		log.Warn(ctx, "payments disabled: razorpay credentials not set")
	}
	var media *services.MediaService
	if cfg.MediaEnabled() {
		media = services.NewMediaService(services.MediaConfig{
			Region:        cfg.S3Region,
			Bucket:        cfg.S3Bucket,
			Endpoint:      cfg.S3Endpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: cfg.S3PublicBaseURL,
		}, log)
	} else {
		log.Warn(ctx, "media uploads disabled: s3 bucket not set")
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	routes.Register(r, routes.Deps{
		DB:       db,
		Cfg:      cfg,
		Log:      log,
		Hubs:     hubs,
		Limiter:  limiter,
		Payments: payments,
		Media:    media,
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", "addr", srv.Addr, "db_driver", cfg.DBDriver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, _, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			log.Info(cmd.Context(), "migrations applied")
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	var demo bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the super admin and, with --demo, a sample society",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log, db, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			if err := database.SeedSuperAdmin(ctx, db, cfg, log); err != nil {
				return err
			}
			if demo {
				return database.SeedDemoSociety(ctx, db, log)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&demo, "demo", false, "also create a demo society with buildings and flats")
	return cmd
}
