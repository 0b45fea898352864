package app

import (
	"context"
	"microcourse_backend/internal/config"
	"microcourse_backend/internal/controller"
	"microcourse_backend/internal/repository"
	"microcourse_backend/internal/repository/memstore"
	"microcourse_backend/internal/service"
	"microcourse_backend/pkg/database"
	"microcourse_backend/pkg/logger"
	"microcourse_backend/pkg/monitoring"
	"microcourse_backend/pkg/tracing"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client
	Store  *repository.Store

	services *services
	tracer   *sdktrace.TracerProvider

	mu              sync.RWMutex
	configCallbacks []func(*config.Config)
}

type services struct {
	ai         *service.AIService
	storage    *service.StorageService
	auth       *service.AuthService
	course     *service.CourseService
	content    *service.ContentService
	enrollment *service.EnrollmentService
	attempt    *service.AttemptService
	badge      *service.BadgeService
	quiz       *service.QuizService
	analytics  *service.AnalyticsService
	sessions   service.QuizSessionStore
	revoker    service.TokenRevoker
}

type controllers struct {
	auth      *controller.AuthController
	course    *controller.CourseController
	content   *controller.ContentController
	learning  *controller.LearningController
	quiz      *controller.QuizController
	analytics *controller.AnalyticsController
	health    *controller.HealthController
}

// RegisterConfigCallback 注册配置热更新回调
func (a *App) RegisterConfigCallback(cb func(*config.Config)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.configCallbacks = append(a.configCallbacks, cb)
}

// ApplyConfig 由配置监听器调用，依次通知所有回调
func (a *App) ApplyConfig(cfg *config.Config) {
	a.mu.RLock()
	callbacks := append([]func(*config.Config){}, a.configCallbacks...)
	a.mu.RUnlock()

	for _, cb := range callbacks {
		cb(cfg)
	}
	logger.Log.Info("Configuration reloaded")
}

func (a *App) initStore(cfg *config.Config) error {
	if cfg.Database.Driver == "memory" {
		a.Store = memstore.New()
		logger.Log.Warn("Using in-memory store, data will be lost on restart")
		return nil
	}

	migrate := cfg.ForceMigrate || cfg.Server.Mode != gin.ReleaseMode
	db, err := database.InitDB(&cfg.Database, migrate, cfg.Server.Mode == gin.DebugMode)
	if err != nil {
		return err
	}
	a.DB = db
	a.Store = repository.NewGormStore(db)
	return nil
}

func (a *App) initRedis(cfg *config.Config) error {
	if !cfg.Redis.Enabled {
		return nil
	}
	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		return err
	}
	a.Redis = rdb
	return nil
}

func (a *App) initServices(cfg *config.Config) *services {
	s := &services{}

	if a.Redis != nil {
		s.sessions = service.NewRedisQuizSessionStore(a.Redis, cfg.Quiz.SessionTTL())
		s.revoker = service.NewRedisTokenRevoker(a.Redis)
	} else {
		s.sessions = service.NewMemoryQuizSessionStore(cfg.Quiz.SessionTTL())
		s.revoker = service.NewMemoryTokenRevoker()
	}

	s.ai = service.NewAIService(cfg.AI)
	s.storage = service.NewStorageService(&cfg.Storage)

	s.auth = service.NewAuthService(a.Store, s.revoker, cfg.JWT)
	s.course = service.NewCourseService(a.Store, s.ai, s.storage, cfg.Course)
	s.content = service.NewContentService(a.Store, s.ai)
	s.enrollment = service.NewEnrollmentService(a.Store)
	s.attempt = service.NewAttemptService(a.Store.Attempts)
	s.badge = service.NewBadgeService(a.Store.Badges, cfg.Course.DeduplicateBadges)
	s.quiz = service.NewQuizService(a.Store, s.sessions, s.enrollment, s.attempt, s.badge)
	s.analytics = service.NewAnalyticsService(a.Store)

	a.RegisterConfigCallback(func(newCfg *config.Config) {
		s.ai.UpdateConfig(newCfg.AI)
	})

	return s
}

func (a *App) initControllers(s *services) *controllers {
	return &controllers{
		auth:      controller.NewAuthController(s.auth),
		course:    controller.NewCourseController(s.course, s.enrollment),
		content:   controller.NewContentController(s.content),
		learning:  controller.NewLearningController(s.enrollment, s.attempt, s.badge),
		quiz:      controller.NewQuizController(s.quiz),
		analytics: controller.NewAnalyticsController(s.analytics),
		health:    controller.NewHealthController(a.DB, a.Redis),
	}
}

// New 组装应用但不初始化全局日志，测试中直接使用
func New(cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	if err := app.initStore(cfg); err != nil {
		return nil, err
	}
	if err := app.initRedis(cfg); err != nil {
		return nil, err
	}

	monitoring.Init()
	controller.UseJSONFieldNames()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing)
		if err != nil {
			return nil, err
		}
		app.tracer = tp
	}

	app.services = app.initServices(cfg)
	controllers := app.initControllers(app.services)

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.New()
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app, nil
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	app, err := New(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize application", zap.Error(err))
	}
	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("Server listen failed", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	a.Close(ctx)
	logger.Log.Info("Server exiting")
}

// Close 释放 tracer、Redis 和数据库连接
func (a *App) Close(ctx context.Context) {
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			logger.Log.Error("Failed to close redis", zap.Error(err))
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
}
