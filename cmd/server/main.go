package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	zlog "github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ksred/klear-journal/internal/analytics"
	"github.com/ksred/klear-journal/internal/auth"
	"github.com/ksred/klear-journal/internal/cleanup"
	"github.com/ksred/klear-journal/internal/config"
	"github.com/ksred/klear-journal/internal/database"
	"github.com/ksred/klear-journal/internal/export"
	"github.com/ksred/klear-journal/internal/logger"
	"github.com/ksred/klear-journal/internal/screenshots"
	"github.com/ksred/klear-journal/internal/trades"
	"github.com/ksred/klear-journal/internal/users"
	"github.com/ksred/klear-journal/pkg/middleware"
)

// app holds the wired services behind the HTTP router
type app struct {
	router      *gin.Engine
	processor   *cleanup.Processor
	limiter     *middleware.RateLimiter
	analytics   *analytics.Service
	localUpload string // directory served under /uploads, empty for remote stores
}

// main loads configuration, wires the services and runs the API server
// until SIGINT or SIGTERM
func main() {
	configPath := flag.String("config", "configs", "directory containing config.yml")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Setup(cfg.Logger, cfg.IsProduction())

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Get(cfg.Database, cfg.Logger.Level == "debug")
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	a, err := newApp(cfg, db)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer a.analytics.Close()

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	go a.processor.Start(bgCtx)
	go a.limiter.Cleanup(bgCtx, time.Minute, 3*time.Minute)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: a.router,
	}

	go func() {
		zlog.Info().Int("port", cfg.Server.Port).Str("env", cfg.Env).Msg("Starting journal API")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	bgCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// newApp builds every service on db and registers the routes
func newApp(cfg config.Config, db *gorm.DB) (*app, error) {
	store, err := screenshots.NewStore(cfg.Screenshots)
	if err != nil {
		return nil, err
	}

	authService := auth.NewService(cfg.Auth)
	userService := users.NewService(db)

	analyticsService, err := analytics.NewService(
		trades.NewDatabase(db),
		cfg.Cache,
		analytics.EquityOptionsFromConfig(cfg.Equity),
	)
	if err != nil {
		return nil, err
	}

	processor := cleanup.NewProcessor(db, store, cfg.Cleanup)
	tradeService := trades.NewService(db, store, processor, analyticsService)
	exportService := export.NewService(tradeService)

	limiter := middleware.NewRateLimiter(
		middleware.RouteLimit{Prefix: "/api/v1/auth", PerMinute: cfg.RateLimit.Auth, Burst: int(cfg.RateLimit.Auth)},
		middleware.RouteLimit{Prefix: "/api/v1/export", PerMinute: cfg.RateLimit.Export, Burst: int(cfg.RateLimit.Export)},
		middleware.RouteLimit{
			Prefix:    "/api/v1/trades",
			Methods:   []string{http.MethodPost, http.MethodPut, http.MethodDelete},
			PerMinute: cfg.RateLimit.Write,
			Burst:     int(cfg.RateLimit.Write),
		},
	)

	a := &app{
		router:    gin.New(),
		processor: processor,
		limiter:   limiter,
		analytics: analyticsService,
	}
	if local, ok := store.(*screenshots.LocalStore); ok {
		a.localUpload = local.Dir()
	}

	a.router.Use(gin.Recovery(), middleware.RequestLogger())
	a.router.MaxMultipartMemory = cfg.Screenshots.MaxBytes + 1<<20

	setupRoutes(a.router, routeHandlers{
		auth:      auth.NewGinHandlers(authService),
		trades:    trades.NewGinHandlers(tradeService, cfg.Screenshots.MaxBytes),
		analytics: analytics.NewGinHandlers(analyticsService),
		export:    export.NewGinHandlers(exportService),
		validator: authService,
		users:     userService,
		limiter:   limiter,
	})

	if a.localUpload != "" {
		a.router.Static("/uploads", a.localUpload)
	}

	return a, nil
}

type routeHandlers struct {
	auth      *auth.GinHandlers
	trades    *trades.GinHandlers
	analytics *analytics.GinHandlers
	export    *export.GinHandlers
	validator middleware.TokenValidator
	users     *users.Service
	limiter   *middleware.RateLimiter
}

// setupRoutes configures all API endpoints:
//   - /api/v1/auth: public token endpoint, limited per client IP
//   - /api/v1/trades, /analytics, /export: JWT protected, limited per user
func setupRoutes(router *gin.Engine, h routeHandlers) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		authGroup := v1.Group("/auth")
		authGroup.Use(h.limiter.Middleware())
		{
			authGroup.POST("/token", h.auth.GenerateTokenHandler())
		}

		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(h.validator), h.limiter.Middleware(), h.users.CurrentUser())
		{
			protected.GET("/trades", h.trades.ListTradesHandler())
			protected.POST("/trades", h.trades.CreateTradeHandler())
			protected.GET("/trades/:id", h.trades.GetTradeHandler())
			protected.PUT("/trades/:id", h.trades.UpdateTradeHandler())
			protected.DELETE("/trades/:id", h.trades.DeleteTradeHandler())

			protected.GET("/analytics", h.analytics.DashboardHandler())

			protected.GET("/export", h.export.DownloadHandler())
			protected.POST("/export", h.export.PreviewHandler())
		}
	}
}
