package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/siwes-portal-api/api/swagger"
	"github.com/noah-isme/siwes-portal-api/internal/handler"
	"github.com/noah-isme/siwes-portal-api/internal/middleware"
	"github.com/noah-isme/siwes-portal-api/internal/repository"
	"github.com/noah-isme/siwes-portal-api/internal/service"
	"github.com/noah-isme/siwes-portal-api/pkg/cache"
	"github.com/noah-isme/siwes-portal-api/pkg/config"
	"github.com/noah-isme/siwes-portal-api/pkg/database"
	"github.com/noah-isme/siwes-portal-api/pkg/jobs"
	"github.com/noah-isme/siwes-portal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/siwes-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/siwes-portal-api/pkg/middleware/requestid"
)

// @title SIWES Portal API
// @version 1.0.0
// @description Weekly report lifecycle, attendance and grading engine for SIWES placements
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	reportRepo := repository.NewWeeklyReportRepository(db)
	preregRepo := repository.NewPreRegistrationRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	auditSvc := service.NewAuditService(auditRepo, notificationRepo, userRepo, jobs.QueueConfig{
		Workers:    cfg.Audit.Workers,
		BufferSize: cfg.Audit.BufferSize,
		MaxRetries: cfg.Audit.MaxRetries,
		RetryDelay: cfg.Audit.RetryDelay,
	}, logr)
	auditSvc.Start(context.Background())
	defer auditSvc.Stop()

	authSvc := service.NewAuthService(userRepo, auditSvc, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "siwes-portal-api",
	})
	studentSvc := service.NewStudentService(studentRepo, auditSvc, validate, logr)
	preregSvc := service.NewPreRegistrationService(preregRepo, studentRepo, auditSvc, validate, logr)
	metricsSvc := service.NewMetricsService()
	reportSvc := service.NewReportService(reportRepo, studentRepo, preregSvc, auditSvc, validate, logr).WithMetrics(metricsSvc)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, studentRepo, auditSvc, cacheRepo, cfg.Attendance, cfg.Grading, validate, logr)
	gradingSvc := service.NewGradingService(attendanceRepo, reportRepo, gradeRepo, studentRepo, auditSvc, cacheRepo, cfg.Grading, validate, logr).WithMetrics(metricsSvc)
	notificationSvc := service.NewNotificationService(notificationRepo, cacheRepo, cfg.Notifications, logr)
	exportSvc := service.NewExportService(reportRepo, gradeRepo, studentRepo, logr)

	handlers := handler.Handlers{
		Auth:            handler.NewAuthHandler(authSvc),
		Students:        handler.NewStudentHandler(studentSvc),
		Reports:         handler.NewReportHandler(reportSvc),
		PreRegistration: handler.NewPreRegistrationHandler(preregSvc),
		Attendance:      handler.NewAttendanceHandler(attendanceSvc),
		Grading:         handler.NewGradingHandler(gradingSvc),
		Notifications:   handler.NewNotificationHandler(notificationSvc),
		Exports:         handler.NewExportHandler(exportSvc),
		Audit:           handler.NewAuditHandler(auditSvc),
		Metrics:         handler.NewMetricsHandler(metricsSvc),
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", handlers.Metrics.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", handlers.Metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, cfg.APIPrefix, handlers, authSvc, auditSvc)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	// Let in-flight requests finish before the deferred audit queue and
	// connection teardown run.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("forced shutdown", "error", err)
	}
}
