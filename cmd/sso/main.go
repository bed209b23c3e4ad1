package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/vutonyhue/warm-hug-backend-sub000/internal/config"
	cronrunner "github.com/vutonyhue/warm-hug-backend-sub000/internal/cron"
	"github.com/vutonyhue/warm-hug-backend-sub000/internal/db"
	"github.com/vutonyhue/warm-hug-backend-sub000/internal/handler"
	"github.com/vutonyhue/warm-hug-backend-sub000/internal/logger"
	"github.com/vutonyhue/warm-hug-backend-sub000/internal/ratelimit"
	"github.com/vutonyhue/warm-hug-backend-sub000/internal/repository"
	gormrepository "github.com/vutonyhue/warm-hug-backend-sub000/internal/repository/gorm"
	"github.com/vutonyhue/warm-hug-backend-sub000/internal/repository/memory"
	"github.com/vutonyhue/warm-hug-backend-sub000/internal/service"
	"github.com/vutonyhue/warm-hug-backend-sub000/internal/token"
	"github.com/vutonyhue/warm-hug-backend-sub000/internal/wallet"

	_ "github.com/vutonyhue/warm-hug-backend-sub000/docs"
)

func main() {
	cfgPath := os.Getenv("SSO_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("SSO_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	signingKey, err := token.DeriveSigningKey(cfg.Auth.SharedSecret, cfg.Auth.KeyDomain)
	if err != nil {
		logger.Fatal("signing key unavailable", zap.Error(err))
	}

	var store repository.Repository
	switch strings.ToLower(cfg.DB.Driver) {
	case "memory":
		logger.Warn("using in-memory store, data is lost on restart")
		store = memory.New()
	default:
		dbConn, err := db.Open(cfg.DB)
		if err != nil {
			logger.Fatal("db open failed", zap.Error(err))
		}
		defer db.Close(dbConn)
		if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
			logger.Warn("failed to set timezone", zap.Error(err))
		}
		if err := db.AutoMigrate(dbConn); err != nil {
			logger.Fatal("auto-migrate failed", zap.Error(err))
		}
		store = gormrepository.New(dbConn.Gorm)
	}

	var counter ratelimit.Counter = ratelimit.StoreCounter{Repo: store}
	if strings.EqualFold(cfg.RateLimit.Backend, "redis") {
		rc := ratelimit.NewRedisCounter(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rc.Close()
		counter = rc
	}
	limiter := &ratelimit.Limiter{Counter: counter, Logger: logger}

	signer := token.Signer{Key: signingKey, Issuer: cfg.Auth.Issuer, TokenTTL: cfg.Auth.AccessTokenTTL}
	limits := service.LimitsFromConfig(cfg.Sync)
	minter := &service.CredentialMinter{Repo: store, Signer: signer, RefreshTTL: cfg.Auth.RefreshTokenTTL, Logger: logger}
	verifier := &service.TokenVerifier{Repo: store, Signer: signer, Logger: logger}

	registration := &service.RegistrationBridge{
		Repo:          store,
		Minter:        minter,
		Limiter:       limiter,
		RateLimit:     cfg.RateLimit,
		Limits:        limits,
		DefaultScope:  cfg.Auth.DefaultScope,
		WalletTimeout: cfg.Wallet.Timeout,
		Logger:        logger,
	}
	if wc := wallet.New(cfg.Wallet.BaseURL, cfg.Wallet.APIKey, cfg.Wallet.Timeout); wc != nil {
		registration.Wallet = wc
	} else {
		logger.Warn("wallet service not configured, new users get no custodial wallet")
	}

	ssoHandler := &handler.SSOHandler{
		Issuer:       &service.TokenIssuer{Repo: store, Minter: minter, Logger: logger},
		Refresher:    &service.TokenRefresher{Repo: store, Minter: minter, Logger: logger},
		Registration: registration,
		Verifier:     verifier,
		Sync: &service.StateSynchronizer{
			Repo:            store,
			Verifier:        verifier,
			Limiter:         limiter,
			RateLimit:       cfg.RateLimit,
			Limits:          limits,
			LegacyFinancial: cfg.Sync.LegacyFinancial,
			MaxSaveAttempts: cfg.Sync.MaxSaveAttempts,
			Logger:          logger,
		},
		Ledger: &service.FinancialLedger{
			Repo:      store,
			Verifier:  verifier,
			Limiter:   limiter,
			RateLimit: cfg.RateLimit,
			Config:    cfg.Ledger,
			Limits:    limits,
			Logger:    logger,
		},
		Revoker:      &service.TokenRevoker{Repo: store, Logger: logger},
		MaxBodyBytes: int64(cfg.Sync.MaxPayloadBytes) * 4,
		Logger:       logger,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(handler.CORS())
	engine.Use(handler.RequestLogger(logger))

	healthHandler := &handler.HealthHandler{Store: store}
	healthHandler.Register(engine)
	ssoHandler.Register(engine)
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Cron.Enabled {
		cronRunner := cronrunner.New(logger, ctx)
		maintenance := &service.Maintenance{
			Repo:            store,
			Logger:          logger,
			CodeGrace:       time.Hour,
			CounterGrace:    cfg.RateLimit.Window,
			CredentialGrace: 7 * 24 * time.Hour,
		}
		if _, err := cronRunner.Add(cfg.Cron.Maintenance, cronrunner.MaintenanceJob(maintenance, logger)); err != nil {
			logger.Warn("cron register maintenance failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	go func() {
		logger.Info("http server started", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown failed", zap.Error(err))
	}
	logger.Info("http server stopped")
}
