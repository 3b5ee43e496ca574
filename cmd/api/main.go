package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"

	"call-ledger/internal/access"
	"call-ledger/internal/audit"
	"call-ledger/internal/config"
	"call-ledger/internal/httpapi"
	"call-ledger/internal/ledger"
	"call-ledger/internal/provider"
	"call-ledger/internal/reporting"
	"call-ledger/internal/users"
	"call-ledger/pkg/logger"
	"call-ledger/pkg/utils"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := access.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Services
	callStore := ledger.NewPostgresStore(db)
	var guard ledger.Guard
	if cfg.Calls.MaxActivePerUser > 0 {
		guard = ledger.NewRedisGuard(rdb, cfg.Calls.MaxActivePerUser, cfg.Calls.ActiveCallTTL)
	}
	ledgerSvc := ledger.NewService(callStore, guard)
	userSvc := users.NewService(users.NewPostgresStore(db))
	reportingSvc := reporting.NewService(ledgerSvc)
	auditSvc := audit.NewService(audit.NewPostgresRepo(db))
	webhook := provider.NewWebhook(ledgerSvc, cfg.Provider.WebhookSecret, log)

	h := httpapi.Handlers{
		Auth:      authManager,
		Ledger:    ledgerSvc,
		Users:     userSvc,
		Reporting: reportingSvc,
		Audit:     auditSvc,
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, h, webhook, access.RequireAccessToken(authManager), db)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
