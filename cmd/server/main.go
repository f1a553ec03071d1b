package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	app "github.com/erp/settlement/internal/application/settlement"
	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/infrastructure/cache"
	"github.com/erp/settlement/internal/infrastructure/config"
	"github.com/erp/settlement/internal/infrastructure/logger"
	"github.com/erp/settlement/internal/infrastructure/persistence"
	"github.com/erp/settlement/internal/interfaces/http/handler"
	"github.com/erp/settlement/internal/interfaces/http/middleware"
	"github.com/erp/settlement/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting settlement service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	draftStore, cleanup, err := newDraftStore(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize draft store", zap.Error(err))
	}
	defer cleanup()

	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	voucherRepo := persistence.NewGormVoucherRepository(db.DB)

	draftService := app.NewDraftService(invoiceRepo, voucherRepo, draftStore, log)
	voucherService := app.NewVoucherService(voucherRepo, invoiceRepo, log)

	draftHandler := handler.NewDraftHandler(draftService)
	voucherHandler := handler.NewVoucherHandler(voucherService)
	systemHandler := handler.NewSystemHandler(db)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowOrigins:  cfg.HTTP.CORSAllowOrigins,
		AllowMethods:  cfg.HTTP.CORSAllowMethods,
		AllowHeaders:  cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))

	router.NewRouter(engine).
		Register(draftHandler).
		Register(voucherHandler).
		Register(systemHandler).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// newDraftStore builds the configured draft store backend. The in-memory
// store is for local development only; drafts do not survive a restart.
func newDraftStore(cfg *config.Config, log *zap.Logger) (settlement.DraftStore, func(), error) {
	if cfg.Draft.Store == "memory" {
		log.Warn("Using in-memory draft store; sessions are lost on restart")
		return cache.NewInMemoryDraftStore(cfg.Draft.TTL), func() {}, nil
	}

	store, err := cache.NewRedisDraftStore(cfg.Redis, cfg.Draft.TTL)
	if err != nil {
		return nil, nil, err
	}
	log.Info("Redis draft store connected",
		zap.String("addr", cfg.Redis.Addr()),
		zap.Duration("ttl", cfg.Draft.TTL),
	)
	cleanup := func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing redis client", zap.Error(err))
		}
	}
	return store, cleanup, nil
}
