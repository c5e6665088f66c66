package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/campus-transit-api/internal/handler"
	"github.com/noah-isme/campus-transit-api/internal/middleware"
	"github.com/noah-isme/campus-transit-api/internal/models"
	"github.com/noah-isme/campus-transit-api/internal/repository"
	"github.com/noah-isme/campus-transit-api/internal/scheduler"
	"github.com/noah-isme/campus-transit-api/internal/service"
	"github.com/noah-isme/campus-transit-api/internal/shiftwindow"
	"github.com/noah-isme/campus-transit-api/pkg/cache"
	"github.com/noah-isme/campus-transit-api/pkg/clock"
	"github.com/noah-isme/campus-transit-api/pkg/config"
	"github.com/noah-isme/campus-transit-api/pkg/database"
	"github.com/noah-isme/campus-transit-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-transit-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-transit-api/pkg/middleware/requestid"
	"github.com/noah-isme/campus-transit-api/pkg/token"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	clk, err := clock.NewReal(cfg.Timezone)
	if err != nil {
		logr.Sugar().Fatalw("invalid timezone", "timezone", cfg.Timezone, "error", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close()

	rdb, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect redis", "error", err)
	}
	defer rdb.Close()

	policy, err := shiftwindow.NewPolicy(cfg.Shifts)
	if err != nil {
		logr.Sugar().Fatalw("invalid shift window config", "error", err)
	}
	codec := token.NewCodec(cfg.Credential.Secret, cfg.Credential.Prefix)
	validate := validator.New()

	driverRepo := repository.NewDriverRepository(db)
	credentialRepo := repository.NewCredentialRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	journeyRepo := repository.NewJourneyRepository(db)
	scanRepo := repository.NewScanRepository(db)
	checkpointRepo := repository.NewCheckpointRepository(db)
	intentRepo := repository.NewIntentRepository(db)
	forecastRepo := repository.NewForecastRepository(db)
	routeRepo := repository.NewRouteRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db, rdb)

	metricsSvc := service.NewMetricsService()
	notifier := service.NewNotifier(rdb, cfg.Jobs.NotificationChannel, logr)

	authSvc := service.NewAuthService(driverRepo, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})
	scanSvc := service.NewScanService(codec, policy, credentialRepo, attendanceRepo, scanRepo, checkpointRepo, analyticsRepo, metricsSvc, clk, logr)
	checkpointSvc := service.NewCheckpointService(checkpointRepo, metricsSvc, clk, logr)
	journeySvc := service.NewJourneyService(journeyRepo, clk, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, clk, logr)
	forecastSvc := service.NewForecastService(intentRepo, forecastRepo, attendanceRepo, routeRepo, clk, logr)
	absenceSvc := service.NewAbsenceService(credentialRepo, journeyRepo, clk, logr)
	analyticsSvc := service.NewAnalyticsService(analyticsRepo, clk, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	scanHandler := handler.NewScanHandler(scanSvc)
	checkpointHandler := handler.NewCheckpointHandler(checkpointSvc)
	journeyHandler := handler.NewJourneyHandler(journeySvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	forecastHandler := handler.NewForecastHandler(forecastSvc)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc), middleware.RequireRole(models.RoleDriver))
	{
		protected.POST("/scans", scanHandler.Scan)

		protected.POST("/checkpoints/start-shift", checkpointHandler.StartShift)
		protected.POST("/checkpoints/reached-destination", checkpointHandler.ReachedDestination)
		protected.POST("/checkpoints/start-return", checkpointHandler.StartReturn)
		protected.POST("/checkpoints/reached-home", checkpointHandler.ReachedHome)
		protected.GET("/checkpoints/today", checkpointHandler.Today)

		protected.GET("/journeys/today", journeyHandler.Today)
		protected.GET("/journeys/students/:studentId", journeyHandler.ForStudent)

		protected.GET("/attendance", attendanceHandler.List)
		if cfg.Exports.Enabled {
			protected.GET("/attendance/manifest", attendanceHandler.Manifest)
		}

		protected.GET("/forecasts", forecastHandler.List)
		protected.GET("/routes/:routeId/analytics/today", analyticsHandler.RouteToday)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifier.Start(ctx)
	defer notifier.Stop()

	if cfg.Jobs.Enabled {
		sched := scheduler.New(clk, cfg.Jobs.RunTimeout, metricsSvc, notifier, logr)
		register := func(name, spec string, fn scheduler.JobFunc) {
			if err := sched.Register(name, spec, fn); err != nil {
				logr.Sugar().Fatalw("failed to register job", "job", name, "error", err)
			}
		}
		register("absence-sweep", cfg.Jobs.AbsenceSweepSpec, absenceSvc.Run)
		register("forecast-build", cfg.Jobs.ForecastBuildSpec, forecastSvc.BuildForecasts)
		register("intent-reconciliation", cfg.Jobs.ReconciliationSpec, forecastSvc.Reconcile)
		sched.Start()
		defer sched.Stop()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
