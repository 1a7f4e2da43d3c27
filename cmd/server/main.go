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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/archihub/archihub-api/api/swagger"
	"github.com/archihub/archihub-api/internal/handler"
	"github.com/archihub/archihub-api/internal/middleware"
	"github.com/archihub/archihub-api/internal/models"
	"github.com/archihub/archihub-api/internal/repository"
	"github.com/archihub/archihub-api/internal/service"
	"github.com/archihub/archihub-api/pkg/cache"
	"github.com/archihub/archihub-api/pkg/config"
	"github.com/archihub/archihub-api/pkg/database"
	"github.com/archihub/archihub-api/pkg/jobs"
	"github.com/archihub/archihub-api/pkg/logger"
	corsmiddleware "github.com/archihub/archihub-api/pkg/middleware/cors"
	reqidmiddleware "github.com/archihub/archihub-api/pkg/middleware/requestid"
	"github.com/archihub/archihub-api/pkg/storage"
)

// @title ArchiHub API
// @version 0.1.0
// @description Student community platform for architecture students
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
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close() //nolint:errcheck

	migrator, err := database.NewMigrator(db.DB, cfg.Database.MigrationsPath, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to init migrator", "error", err)
	}
	if err := migrator.Up(); err != nil {
		logr.Sugar().Fatalw("failed to run migrations", "error", err)
	}

	var cacheRepo *repository.CacheRepository
	if cfg.Catalog.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, catalog cache disabled", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
			defer cacheRepo.Close() //nolint:errcheck
		}
	}

	uploadStore, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init upload storage", "error", err)
	}

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	catedraRepo := repository.NewCatedraRepository(db)
	tpRepo := repository.NewTPRepository(db)
	userTPRepo := repository.NewUserTPRepository(db)
	postRepo := repository.NewPostRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	ratingRepo := repository.NewRatingRepository(db)
	resourceRepo := repository.NewResourceRepository(db)

	// Services.
	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration, cfg.JWT.RefreshExpiration, logr)
	progressSvc := service.NewProgressService(tpRepo, userTPRepo, subjectRepo, logr)
	ratingSvc := service.NewRatingService(ratingRepo, catedraRepo, logr)
	feedSvc := service.NewFeedService(postRepo, likeRepo, subjectRepo, uploadStore, cfg.Uploads.MaxImageBytes, logr)
	resourceSvc := service.NewResourceService(resourceRepo, subjectRepo, uploadStore, logr)
	userSvc := service.NewUserService(userRepo, postRepo, logr)

	var subjectSvc *service.SubjectService
	if cacheRepo != nil {
		subjectSvc = service.NewSubjectService(subjectRepo, catedraRepo, tpRepo, cacheRepo, cfg.Catalog.CacheTTL, logr)
	} else {
		subjectSvc = service.NewSubjectService(subjectRepo, catedraRepo, tpRepo, nil, cfg.Catalog.CacheTTL, logr)
	}
	subjectSvc.SetMetrics(metricsSvc)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	subjectHandler := handler.NewSubjectHandler(subjectSvc)
	progressHandler := handler.NewProgressHandler(progressSvc)
	ratingHandler := handler.NewRatingHandler(ratingSvc)
	feedHandler := handler.NewFeedHandler(feedSvc)
	resourceHandler := handler.NewResourceHandler(resourceSvc)
	userHandler := handler.NewUserHandler(userSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	// Optional asynchronous report generation.
	var reportQueue *jobs.Queue
	var reportHandler *handler.ReportHandler
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Reports.Enabled {
		reportStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init report storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		reportRepo := repository.NewReportRepository(db)
		reportSvc := service.NewReportService(reportRepo, progressSvc, userRepo, reportStore, signer, logr)
		reportSvc.SetMetrics(metricsSvc)

		reportQueue = jobs.NewQueue("reports", reportSvc.HandleJob, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
		})
		reportQueue.Start(ctx)
		defer reportQueue.Stop()
		reportSvc.SetQueue(reportQueue)

		reportHandler = handler.NewReportHandler(reportSvc)
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

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))
	{
		protected.GET("/subjects", subjectHandler.List)
		protected.GET("/subjects/:id", subjectHandler.Get)
		protected.GET("/subjects/:id/catedras", subjectHandler.ListCatedras)
		protected.GET("/subjects/:id/tps", subjectHandler.ListTPs)
		protected.GET("/subjects/:id/progress", progressHandler.SubjectProgress)
		protected.GET("/subjects/:id/resources", resourceHandler.ListBySubject)
		protected.POST("/subjects/:id/resources", resourceHandler.Create)

		admin := middleware.RequireRoles(models.RoleAdmin, models.RoleProfessor)
		protected.POST("/subjects", admin, subjectHandler.Create)
		protected.POST("/subjects/:id/catedras", admin, subjectHandler.CreateCatedra)
		protected.POST("/subjects/:id/tps", admin, subjectHandler.CreateTP)
		protected.DELETE("/resources/:id", admin, resourceHandler.Delete)

		protected.GET("/tps/:id/state", progressHandler.GetState)
		protected.PUT("/tps/:id/state", progressHandler.SetState)
		protected.GET("/progress/overview", progressHandler.Overview)

		protected.GET("/posts", feedHandler.List)
		protected.POST("/posts", feedHandler.Publish)
		protected.POST("/posts/:id/like", feedHandler.ToggleLike)
		protected.GET("/posts/:id/image", feedHandler.Image)

		protected.GET("/ranking/catedras", ratingHandler.Ranking)
		protected.POST("/catedras/:id/ratings", ratingHandler.Submit)
		protected.DELETE("/catedras/:id/ratings", ratingHandler.Retract)
		protected.GET("/catedras/:id/ratings/summary", ratingHandler.Summary)
		protected.GET("/catedras/:id/ratings/me", ratingHandler.Own)

		protected.GET("/resources/:id/download", resourceHandler.Download)

		protected.GET("/users/:id", userHandler.Get)
		protected.GET("/users/:id/posts", userHandler.Portfolio)
		protected.PUT("/users/me", userHandler.UpdateProfile)

		if reportHandler != nil {
			protected.POST("/reports", reportHandler.Request)
			protected.GET("/reports/:id", reportHandler.Status)
		}
	}
	if reportHandler != nil {
		api.GET("/report-downloads", reportHandler.Download)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
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
