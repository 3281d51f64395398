package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"school-app-server/internal/config"
	"school-app-server/internal/logger"
	"school-app-server/internal/middleware"
	"school-app-server/internal/migrations"
	"school-app-server/internal/models"
	"school-app-server/internal/routes"
	"school-app-server/internal/scheduling"
	"school-app-server/internal/services"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:          "school-app-server",
		Short:        "School management API server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(func(cfg *config.Config, log *zap.Logger, db *gorm.DB) error {
				migrator, err := migrations.NewMigrator(db, cfg.Database.Driver, log)
				if err != nil {
					return err
				}
				return migrator.Run(cmd.Context())
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the current migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(func(cfg *config.Config, log *zap.Logger, db *gorm.DB) error {
				migrator, err := migrations.NewMigrator(db, cfg.Database.Driver, log)
				if err != nil {
					return err
				}
				version, err := migrator.Version(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("driver: %s\nversion: %d\n", cfg.Database.Driver, version)
				return nil
			})
		},
	})

	return cmd
}

// withDatabase loads configuration, builds the logger and opens the
// database before handing them to fn.
func withDatabase(fn func(cfg *config.Config, log *zap.Logger, db *gorm.DB) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Environment)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	db, err := models.Open(models.DatabaseConfig{
		Driver:       cfg.Database.Driver,
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
	})
	if err != nil {
		log.Error("failed to connect to database", zap.Error(err))
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	return fn(cfg, log, db)
}

func runServer() error {
	return withDatabase(func(cfg *config.Config, log *zap.Logger, db *gorm.DB) error {
		template, err := cfg.Schedule.Template()
		if err != nil {
			return fmt.Errorf("schedule template: %w", err)
		}

		if cfg.Database.AutoMigrate {
			migrator, err := migrations.NewMigrator(db, cfg.Database.Driver, log)
			if err != nil {
				return err
			}
			if err := migrator.Run(context.Background()); err != nil {
				return err
			}
		}

		if cfg.IsProduction() {
			gin.SetMode(gin.ReleaseMode)
		}
		router := gin.New()
		router.Use(gin.Recovery())
		router.Use(middleware.RequestLogger(log))

		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = []string{cfg.Origin}
		corsConfig.AllowCredentials = true
		corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
		router.Use(cors.New(corsConfig))

		appointments := services.NewAppointmentService(db, template, scheduling.SystemClock(), log)
		routes.SetupRoutes(router, db, cfg, appointments)

		srv := &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			log.Info("server starting",
				zap.String("addr", srv.Addr),
				zap.String("env", cfg.Environment),
				zap.String("schedule", cfg.Schedule.Blocks),
				zap.String("timezone", template.Location().String()),
			)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal("server error", zap.Error(err))
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		log.Info("server stopped")
		return nil
	})
}
