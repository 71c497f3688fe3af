package app

import (
	"learnsphere_backend/docs"
	"learnsphere_backend/internal/config"
	"learnsphere_backend/internal/middleware"
	"learnsphere_backend/internal/model"
	"learnsphere_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 学生测评接口
	studentGroup := router.Group("/api/student")
	studentGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		a.registerStudentRoutes(studentGroup, c)
	}

	// 3. 管理端接口（教师与管理员）
	adminGroup := router.Group("/api/admin")
	adminGroup.Use(
		middleware.AuthMiddleware(cfg),
		middleware.ActivityMiddleware(repos.user),
		middleware.RoleMiddleware(model.Teacher, model.Admin),
	)
	{
		a.registerAdminRoutes(adminGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.Health)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	authorized := router.Group("/api")
	authorized.Use(middleware.AuthMiddleware(a.Config))
	{
		authorized.GET("/profile", c.auth.Profile)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	assessments := rg.Group("/assessments")
	{
		assessments.GET("/templates", c.student.ListAvailableTemplates)
		assessments.POST("/start", c.student.StartAssessment)
		assessments.GET("/session/:token", c.student.GetSession)
		assessments.GET("/session/:token/question/:questionId", c.student.GetSessionQuestion)
		assessments.PUT("/session/:token/pause", c.student.PauseSession)
		assessments.PUT("/session/:token/resume", c.student.ResumeSession)
		assessments.POST("/response", c.student.SubmitResponse)
		assessments.POST("/finish", c.student.FinishAssessment)
		assessments.GET("/history", c.student.GetHistory)
		assessments.GET("/results/:sessionId", c.student.GetResults)
		assessments.GET("/results/:sessionId/detailed", c.student.GetDetailedResults)
	}
}

func (a *App) registerAdminRoutes(rg *gin.RouterGroup, c *controllers) {
	assessments := rg.Group("/assessments")
	{
		questions := assessments.Group("/questions")
		{
			questions.POST("", c.admin.CreateQuestion)
			questions.GET("", c.admin.ListQuestions)
			questions.POST("/image", c.admin.UploadQuestionImage)
			questions.GET("/:id", c.admin.GetQuestion)
			questions.PUT("/:id", c.admin.UpdateQuestion)
			questions.DELETE("/:id", c.admin.DeleteQuestion)
		}

		templates := assessments.Group("/templates")
		{
			templates.POST("", c.admin.CreateTemplate)
			templates.GET("", c.admin.ListTemplates)
			templates.GET("/:id", c.admin.GetTemplate)
			templates.PUT("/:id", c.admin.UpdateTemplate)
			templates.DELETE("/:id", c.admin.DeleteTemplate)
		}
	}
}
