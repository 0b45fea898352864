package app

import (
	"microcourse_backend/docs"
	"microcourse_backend/internal/config"
	"microcourse_backend/internal/middleware"
	"microcourse_backend/internal/model"
	"microcourse_backend/pkg/monitoring"
	"microcourse_backend/pkg/security"
	"microcourse_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c, cfg)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg.JWT.Secret, a.services.revoker))
	{
		// 学习者/通用 授权接口
		a.registerLearnerRoutes(authGroup, c)

		// 课程管理接口（owner / admin）
		a.registerManagerRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/auth/login", c.auth.Login)
		// token 失效或缺失时登出同样成功
		public.POST("/auth/logout", middleware.OptionalAuthMiddleware(cfg.JWT.Secret), c.auth.Logout)
	}
}

func (a *App) registerLearnerRoutes(group *gin.RouterGroup, c *controllers) {
	group.GET("/auth/me", c.auth.Me)

	courses := group.Group("/courses")
	{
		courses.GET("", c.course.List)
		courses.GET("/:id", c.course.Get)
		courses.GET("/:id/progress", c.course.Progress)
	}

	modules := group.Group("/modules")
	{
		modules.GET("/:id", c.quiz.Open)
		modules.GET("/:id/quiz", c.quiz.State)
		modules.POST("/:id/quiz/start", c.quiz.Start)
		modules.POST("/:id/quiz/select", c.quiz.Select)
		modules.POST("/:id/quiz/submit", c.quiz.Submit)
		modules.POST("/:id/quiz/next", c.quiz.Next)
		modules.POST("/:id/quiz/previous", c.quiz.Previous)
		modules.POST("/:id/quiz/retry", c.quiz.Retry)
		modules.POST("/:id/quiz/complete", c.quiz.Complete)
	}

	group.POST("/enrollments", c.learning.Enroll)
	group.GET("/enrollments/my", c.learning.MyEnrollments)
	group.POST("/attempts", c.learning.RecordAttempt)
	group.GET("/attempts/:courseId", c.learning.ListAttempts)
	group.POST("/badges", c.learning.AwardBadge)
	group.GET("/badges/my", c.learning.MyBadges)
}

func (a *App) registerManagerRoutes(group *gin.RouterGroup, c *controllers) {
	manager := group.Group("")
	manager.Use(middleware.RoleMiddleware(model.RoleOwner, model.RoleAdmin))
	{
		manager.POST("/courses/generate", c.course.Generate)
		manager.PATCH("/courses/:id", c.course.Update)
		manager.DELETE("/courses/:id", c.course.Delete)
		manager.POST("/courses/:id/modules", c.content.CreateModule)

		manager.PATCH("/modules/:id", c.content.UpdateModule)
		manager.DELETE("/modules/:id", c.content.DeleteModule)
		manager.POST("/modules/:id/improve", c.content.ImproveModule)
		manager.POST("/modules/:id/regenerate-quiz", c.content.RegenerateQuiz)

		manager.PATCH("/questions/:id", c.content.UpdateQuestion)
		manager.DELETE("/questions/:id", c.content.DeleteQuestion)

		manager.GET("/analytics/overview", c.analytics.Overview)
	}
}
