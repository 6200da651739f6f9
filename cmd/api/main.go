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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/goosenest/degree-audit-api/api/swagger"
	"github.com/goosenest/degree-audit-api/internal/handler"
	"github.com/goosenest/degree-audit-api/internal/middleware"
	"github.com/goosenest/degree-audit-api/internal/repository"
	"github.com/goosenest/degree-audit-api/internal/service"
	"github.com/goosenest/degree-audit-api/pkg/cache"
	"github.com/goosenest/degree-audit-api/pkg/config"
	"github.com/goosenest/degree-audit-api/pkg/database"
	"github.com/goosenest/degree-audit-api/pkg/logger"
	corsmiddleware "github.com/goosenest/degree-audit-api/pkg/middleware/cors"
	reqidmiddleware "github.com/goosenest/degree-audit-api/pkg/middleware/requestid"
)

// @title Degree Audit API
// @version 0.1.0
// @description Degree requirement auditing, term planning and catalog management
// @BasePath /
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
	facultyRepo := repository.NewFacultyRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	planRepo := repository.NewPlanRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	catalogSvc := service.NewCatalogService(courseRepo, facultyRepo, cacheRepo, cfg.Catalog.CacheTTL, cfg.Catalog.SearchLimit, validate, logr)
	groupSvc := service.NewGroupService(groupRepo, courseRepo, validate, logr)
	templateSvc := service.NewTemplateService(templateRepo, validate, logr)
	materializer := service.NewMaterializer(planRepo, templateRepo, groupRepo, userRepo, logr)
	degreeSvc := service.NewDegreeService(
		planRepo, templateRepo, groupRepo, courseRepo, scheduleRepo, userRepo,
		cacheRepo, materializer, userRepo, cfg.Degree.CacheTTL, validate, logr,
	)
	scheduleSvc := service.NewScheduleService(scheduleRepo, courseRepo, userRepo, cacheRepo, validate, logr)
	exportSvc := service.NewExportService(degreeSvc, cfg.Exports.Enabled, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Auth:      handler.NewAuthHandler(authSvc),
		Courses:   handler.NewCourseHandler(catalogSvc),
		Faculties: handler.NewFacultyHandler(catalogSvc),
		Groups:    handler.NewGroupHandler(groupSvc),
		Templates: handler.NewTemplateHandler(templateSvc),
		Degrees:   handler.NewDegreeHandler(degreeSvc, exportSvc),
		Schedules: handler.NewScheduleHandler(scheduleSvc),
	}, middleware.JWT(authSvc))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
