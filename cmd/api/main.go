package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/kizunalab/machiba/internal/activity"
	"github.com/kizunalab/machiba/internal/analytics"
	"github.com/kizunalab/machiba/internal/api/middleware"
	"github.com/kizunalab/machiba/internal/api/rest"
	"github.com/kizunalab/machiba/internal/api/server"
	"github.com/kizunalab/machiba/internal/auth"
	"github.com/kizunalab/machiba/internal/config"
	"github.com/kizunalab/machiba/internal/domain"
	"github.com/kizunalab/machiba/internal/line"
	"github.com/kizunalab/machiba/internal/logger"
	"github.com/kizunalab/machiba/internal/media"
	"github.com/kizunalab/machiba/internal/messaging"
	"github.com/kizunalab/machiba/internal/paypay"
	"github.com/kizunalab/machiba/internal/providers/jetstream"
	"github.com/kizunalab/machiba/internal/store"
	"github.com/kizunalab/machiba/internal/store/schema"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadAPIConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:     cfg.Debug,
		SentryDSN: cfg.SentryDSN,
		Service:   "api-server",
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Machiba API")

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}

	// Configure connection pool
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	if err := store.AutoMigrate(db); err != nil {
		logger.FatalCtx(ctx, "Failed to run migrations", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database",
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
	)

	dataStore := store.NewPGStore(db)

	// Seed the first admin account when configured and none exists
	if err := bootstrapAdmin(ctx, dataStore, cfg.Auth); err != nil {
		logger.FatalCtx(ctx, "Failed to bootstrap admin user", zap.Error(err))
	}

	// Optional access-event firehose
	var publisher messaging.Publisher
	if cfg.NATS.URL != "" {
		publisher, err = jetstream.NewPublisher(jetstream.Config{
			URL:            cfg.NATS.URL,
			StreamName:     cfg.NATS.StreamName,
			MaxReconnects:  cfg.NATS.MaxReconnects,
			ReconnectWait:  cfg.NATS.ReconnectWait,
			ConnectionName: cfg.NATS.ConnectionName,
		})
		if err != nil {
			logger.FatalCtx(ctx, "Failed to connect to NATS", zap.Error(err))
		}
		defer publisher.Close()
		logger.InfoCtx(ctx, "Connected to NATS", zap.String("url", cfg.NATS.URL))
	}

	analyticsService := analytics.NewService(dataStore, publisher, analytics.Config{
		DefaultDays: cfg.Analytics.DefaultDays,
		MaxDays:     cfg.Analytics.MaxDays,
	})
	activityService := activity.NewService(dataStore)
	issuer := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// Optional integrations
	var lineClient line.Client
	if cfg.LINE.ChannelToken != "" {
		lineClient = line.NewClient(cfg.LINE.APIURL, cfg.LINE.ChannelToken, cfg.LINE.Timeout, cfg.LINE.MulticastPoolSize)
	} else {
		logger.WarnCtx(ctx, "LINE channel token not configured, messaging disabled")
	}

	var paypayClient paypay.Client
	if cfg.PayPay.APIKey != "" {
		paypayClient = paypay.NewClient(cfg.PayPay.APIURL, cfg.PayPay.APIKey, cfg.PayPay.APISecret, cfg.PayPay.MerchantID, cfg.PayPay.Timeout)
	} else {
		logger.WarnCtx(ctx, "PayPay credentials not configured, payment links disabled")
	}

	var uploader *media.Uploader
	if cfg.Cloudflare.APIToken != "" {
		cfClient, err := media.NewCloudflareClient(cfg.Cloudflare.APIToken)
		if err != nil {
			logger.FatalCtx(ctx, "Failed to create Cloudflare client", zap.Error(err))
		}
		uploader = media.NewUploader(cfClient, cfg.Cloudflare.AccountID, cfg.Upload.MaxImageSize)
	} else {
		logger.WarnCtx(ctx, "Cloudflare API token not configured, uploads disabled")
	}

	handler := rest.NewHandler(rest.Deps{
		Store:             dataStore,
		Analytics:         analyticsService,
		Activities:        activityService,
		Issuer:            issuer,
		LineClient:        lineClient,
		LineChannelSecret: cfg.LINE.ChannelSecret,
		PayPayClient:      paypayClient,
		Uploader:          uploader,
	})

	serverConfig := server.Config{
		Debug:          cfg.Debug,
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    time.Duration(cfg.Server.IdleTimeout) * time.Second,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}
	authCfg := middleware.AuthConfig{
		Issuer:  issuer,
		APIKeys: cfg.Auth.APIKeys,
	}

	srv := server.New(serverConfig, handler, authCfg)

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
		cancel()
	}

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.FatalCtx(shutdownCtx, "Server forced to shutdown", zap.Error(err))
	}

	logger.Info("API server stopped")
}

// bootstrapAdmin seeds the first admin account from config when the
// users table is empty
func bootstrapAdmin(ctx context.Context, dataStore store.Store, cfg config.AuthConfig) error {
	if cfg.BootstrapUsername == "" || cfg.BootstrapPassword == "" {
		return nil
	}

	users, err := dataStore.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}
	if len(users) > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.BootstrapPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash bootstrap password: %w", err)
	}

	user := &schema.AdminUser{
		UserID:       uuid.New().String(),
		Username:     cfg.BootstrapUsername,
		DisplayName:  cfg.BootstrapUsername,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
	}
	if err := dataStore.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to create bootstrap user: %w", err)
	}

	logger.InfoCtx(ctx, "Seeded bootstrap admin user", zap.String("username", user.Username))
	return nil
}
