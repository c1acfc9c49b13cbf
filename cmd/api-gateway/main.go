package main

import (
	"context"
	"errors"
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

	_ "github.com/timegrid/timegrid-api/api/swagger"
	"github.com/timegrid/timegrid-api/internal/handler"
	"github.com/timegrid/timegrid-api/internal/middleware"
	"github.com/timegrid/timegrid-api/internal/models"
	"github.com/timegrid/timegrid-api/internal/repository"
	"github.com/timegrid/timegrid-api/internal/service"
	"github.com/timegrid/timegrid-api/pkg/cache"
	"github.com/timegrid/timegrid-api/pkg/config"
	"github.com/timegrid/timegrid-api/pkg/database"
	"github.com/timegrid/timegrid-api/pkg/logger"
	corsmiddleware "github.com/timegrid/timegrid-api/pkg/middleware/cors"
	reqidmiddleware "github.com/timegrid/timegrid-api/pkg/middleware/requestid"
	"github.com/timegrid/timegrid-api/pkg/storage"
)

// @title Timegrid API
// @version 1.0.0
// @description School timetable generation and what-if planning service
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
		logr.Sugar().Warnw("redis unavailable, resolved views will not be cached", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	localStorage, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	teacherRepo := repository.NewTeacherRepository(db)
	classRepo := repository.NewClassRepository(db)
	configRepo := repository.NewSchoolConfigRepository(db)
	priorityRepo := repository.NewPriorityRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	scenarioRepo := repository.NewScenarioRepository(db)
	userRepo := repository.NewUserRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	validate := validator.New()
	metrics := service.NewMetricsService()

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:        cfg.JWT.Secret,
		AccessExpiry:  cfg.JWT.Expiration,
		RefreshExpiry: cfg.JWT.RefreshExpiration,
	})
	rosterService := service.NewRosterService(teacherRepo, validate, logr)
	classService := service.NewClassService(classRepo, teacherRepo, validate, logr)
	configService := service.NewConfigService(configRepo, priorityRepo, classRepo, validate, logr)
	activityService := service.NewActivityService(activityRepo, logr)

	timetableService := service.NewTimetableService(
		teacherRepo,
		classRepo,
		configRepo,
		priorityRepo,
		timetableRepo,
		activityRepo,
		validate,
		logr,
		service.TimetableServiceConfig{
			TimeBudget:  cfg.Solver.TimeBudget,
			ProposalTTL: cfg.Solver.ProposalTTL,
			Iterations:  cfg.Improver.Iterations,
			Seed:        cfg.Improver.Seed,
			Rotations:   cfg.Rotations.Weeks,
			Workers:     cfg.Solver.Workers,
		},
	).WithMetrics(metrics)

	scenarioService := service.NewScenarioService(
		scenarioRepo,
		timetableRepo,
		teacherRepo,
		classRepo,
		configRepo,
		cacheRepo,
		cfg.Scenarios.CacheTTL,
		validate,
		logr,
	).WithMetrics(metrics)

	exportService := service.NewExportService(
		timetableRepo,
		configRepo,
		teacherRepo,
		localStorage,
		signer,
		service.ExportServiceConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Exports.SignedURLTTL,
		},
		validate,
		logr,
	)

	solveCtx, cancelSolve := context.WithCancel(context.Background())
	defer cancelSolve()
	timetableService.StartWorkers(solveCtx)
	defer timetableService.StopWorkers()

	authHandler := handler.NewAuthHandler(authService)
	teacherHandler := handler.NewTeacherHandler(rosterService)
	classHandler := handler.NewClassHandler(classService)
	configHandler := handler.NewConfigHandler(configService)
	timetableHandler := handler.NewTimetableHandler(timetableService, scenarioService)
	scenarioHandler := handler.NewScenarioHandler(scenarioService)
	exportHandler := handler.NewExportHandler(exportService)
	activityHandler := handler.NewActivityHandler(activityService)
	metricsHandler := handler.NewMetricsHandler(metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.GET("/me", middleware.JWT(authService), authHandler.Me)
		auth.POST("/register",
			middleware.JWT(authService),
			middleware.RequireRoles(models.RoleAdmin),
			authHandler.Register)
	}

	authed := api.Group("", middleware.JWT(authService))
	planner := middleware.RequireRoles(models.RoleAdmin, models.RolePlanner)

	teachers := authed.Group("/teachers")
	{
		teachers.GET("", teacherHandler.List)
		teachers.GET("/:id", teacherHandler.Get)
		teachers.POST("", planner, middleware.Audit(activityService, "teacher.create", "teachers"), teacherHandler.Create)
		teachers.PUT("/:id", planner, middleware.Audit(activityService, "teacher.update", "teachers"), teacherHandler.Update)
		teachers.DELETE("/:id", planner, middleware.Audit(activityService, "teacher.delete", "teachers"), teacherHandler.Delete)
	}

	classes := authed.Group("/classes")
	{
		classes.GET("", classHandler.List)
		classes.GET("/:id", classHandler.Get)
		classes.POST("", planner, middleware.Audit(activityService, "class.create", "classes"), classHandler.Create)
		classes.PUT("/:id", planner, middleware.Audit(activityService, "class.update", "classes"), classHandler.Update)
		classes.DELETE("/:id", planner, middleware.Audit(activityService, "class.delete", "classes"), classHandler.Delete)
	}

	schoolConfig := authed.Group("/config")
	{
		schoolConfig.GET("", configHandler.Get)
		schoolConfig.PUT("", planner, middleware.Audit(activityService, "config.update", "config"), configHandler.Update)
		schoolConfig.GET("/priorities", configHandler.Priorities)
		schoolConfig.PUT("/priorities/:classId", planner, configHandler.SetPriority)
		schoolConfig.DELETE("/priorities/:classId", planner, configHandler.ClearPriority)
	}

	timetables := authed.Group("/timetables")
	{
		timetables.GET("", timetableHandler.List)
		timetables.GET("/active", timetableHandler.Active)
		timetables.GET("/:id", timetableHandler.Get)
		timetables.GET("/:id/rotations", timetableHandler.Rotations)
		timetables.GET("/:id/teacher-view", timetableHandler.TeacherView)
		timetables.GET("/:id/score", timetableHandler.Score)
		timetables.GET("/:id/heatmaps", timetableHandler.Heatmaps)
		timetables.POST("/generate", planner, timetableHandler.Generate)
		timetables.GET("/jobs/:id", planner, timetableHandler.Job)
		timetables.POST("", planner, timetableHandler.Save)
		timetables.POST("/:id/activate", planner, middleware.Audit(activityService, "timetable.activate", "timetables"), timetableHandler.Activate)
		timetables.POST("/:id/archive", planner, middleware.Audit(activityService, "timetable.archive", "timetables"), timetableHandler.Archive)
		timetables.DELETE("/:id", planner, middleware.Audit(activityService, "timetable.delete", "timetables"), timetableHandler.Delete)
	}

	scenarios := authed.Group("/scenarios")
	{
		scenarios.GET("", scenarioHandler.State)
		scenarios.POST("/toggle", scenarioHandler.Toggle)
		scenarios.PUT("/day", scenarioHandler.SelectDay)
		scenarios.DELETE("", scenarioHandler.Reset)
		scenarios.GET("/resolve", scenarioHandler.Resolve)
	}

	exports := api.Group("/exports")
	{
		exports.POST("", middleware.JWT(authService), exportHandler.Generate)
		exports.GET("/download/:token", exportHandler.Download)
	}

	authed.GET("/activity", activityHandler.List)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
