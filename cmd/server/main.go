package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/codecraft-dev/codecraft/internal/api"
	"github.com/codecraft-dev/codecraft/internal/app"
	"github.com/codecraft-dev/codecraft/internal/app/maintenance"
	iauth "github.com/codecraft-dev/codecraft/internal/auth"
	"github.com/codecraft-dev/codecraft/internal/database"
	"github.com/codecraft-dev/codecraft/internal/execution"
	"github.com/codecraft-dev/codecraft/internal/realtime"
	"github.com/codecraft-dev/codecraft/internal/services"
	"github.com/codecraft-dev/codecraft/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("codecraft-server", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var configPath string
	fs.StringVar(&configPath, "config", "", "Path to configuration directory or file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(configPath)
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	log := logger.WithModule("bootstrap")

	if err := ensureAuthConfigured(cfg); err != nil {
		return err
	}

	db, err := initialiseDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db, log)

	verifier, err := iauth.NewVerifier(ctx, iauth.Config{
		Issuer:    cfg.Auth.Issuer,
		Audience:  cfg.Auth.Audience,
		DevSecret: cfg.Auth.DevSecret,
	})
	if err != nil {
		return fmt.Errorf("initialise token verifier: %w", err)
	}

	hub := realtime.NewHub()

	presence, err := services.NewPresenceService(db, services.WithPresenceBroadcaster(hub))
	if err != nil {
		return fmt.Errorf("initialise presence service: %w", err)
	}

	collab, err := services.NewCollabService(db, presence,
		services.WithCollabBroadcaster(hub),
		services.WithOwnedSessionQuota(cfg.Collaboration.MaxOwnedSessions))
	if err != nil {
		return fmt.Errorf("initialise collab service: %w", err)
	}

	codeSync, err := services.NewCodeSyncService(db, services.WithCodeSyncBroadcaster(hub))
	if err != nil {
		return fmt.Errorf("initialise code sync service: %w", err)
	}

	chat, err := services.NewChatService(db, services.WithChatBroadcaster(hub))
	if err != nil {
		return fmt.Errorf("initialise chat service: %w", err)
	}

	saved, err := services.NewSavedSessionService(db, collab,
		services.WithSavedSessionQuota(cfg.Collaboration.MaxSavedSessions))
	if err != nil {
		return fmt.Errorf("initialise saved session service: %w", err)
	}

	files, err := services.NewFileService(db)
	if err != nil {
		return fmt.Errorf("initialise file service: %w", err)
	}

	snippets, err := services.NewSnippetService(db)
	if err != nil {
		return fmt.Errorf("initialise snippet service: %w", err)
	}

	sandbox, err := execution.NewClient(cfg.Execution.Endpoint, execution.WithTimeout(cfg.Execution.Timeout))
	if err != nil {
		return fmt.Errorf("initialise sandbox client: %w", err)
	}

	executions, err := services.NewExecutionService(db, sandbox)
	if err != nil {
		return fmt.Errorf("initialise execution service: %w", err)
	}

	billing, err := services.NewBillingService(db, cfg.Billing.SigningSecret)
	if err != nil {
		return fmt.Errorf("initialise billing service: %w", err)
	}

	users, err := services.NewUserService(db)
	if err != nil {
		return fmt.Errorf("initialise user service: %w", err)
	}

	sweeper := maintenance.NewSweeper(collab,
		maintenance.WithLivenessSchedule(cfg.Collaboration.LivenessSchedule),
		maintenance.WithExpirySchedule(cfg.Collaboration.ExpirySchedule))
	if err := sweeper.Start(); err != nil {
		return fmt.Errorf("start maintenance jobs: %w", err)
	}
	defer func() {
		stopCtx := sweeper.Stop()
		if err := sweeper.RunOnce(stopCtx); err != nil {
			log.Warn("maintenance shutdown sweep failed", zap.Error(err))
		}
	}()

	router, err := api.NewRouter(api.Deps{
		DB:         db,
		Config:     cfg,
		Verifier:   verifier,
		Hub:        hub,
		Collab:     collab,
		Presence:   presence,
		CodeSync:   codeSync,
		Chat:       chat,
		Saved:      saved,
		Files:      files,
		Snippets:   snippets,
		Executions: executions,
		Billing:    billing,
		Users:      users,
	})
	if err != nil {
		return fmt.Errorf("build api router: %w", err)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	if err, ok := <-serverErr; ok && err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

func loadApplicationConfig(path string) (*app.Config, error) {
	switch {
	case strings.TrimSpace(path) == "":
		return app.LoadConfig()
	default:
		info, err := os.Stat(path)
		if err == nil {
			if info.IsDir() {
				return app.LoadConfig(path)
			}
			return app.LoadConfig(filepath.Dir(path))
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config path %q does not exist", path)
		}
		return nil, fmt.Errorf("stat config path: %w", err)
	}
}

func ensureAuthConfigured(cfg *app.Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Auth.Issuer = strings.TrimSpace(cfg.Auth.Issuer)
	cfg.Auth.DevSecret = strings.TrimSpace(cfg.Auth.DevSecret)
	if cfg.Auth.Issuer == "" && cfg.Auth.DevSecret == "" {
		return errors.New("auth.issuer or auth.dev_secret must be configured")
	}

	return nil
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.MustMigrate(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:   strings.TrimSpace(cfg.Database.Path),
		DSN:    strings.TrimSpace(cfg.Database.DSN),
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		dbCfg.Host = strings.TrimSpace(cfg.Database.Postgres.Host)
		dbCfg.Port = cfg.Database.Postgres.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.Postgres.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.Postgres.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.Postgres.Password)
	case "mysql":
		dbCfg.Host = strings.TrimSpace(cfg.Database.MySQL.Host)
		dbCfg.Port = cfg.Database.MySQL.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.MySQL.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.MySQL.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.MySQL.Password)
	default:
		// Leave driver as-is to surface unsupported driver error during open.
	}

	return dbCfg
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
