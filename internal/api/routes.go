package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"rayzum/internal/api/middleware"
	"rayzum/internal/auth"
	"rayzum/internal/config"
	"rayzum/internal/events"
	"rayzum/internal/store"
)

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(
	router *gin.Engine,
	db *gorm.DB,
	asynqClient *asynq.Client,
	authService *auth.AuthService,
	redisClient *redis.Client,
	logger *slog.Logger,
	authCfg config.AuthConfig,
) {
	dataStore := store.New(db)
	publisher := events.NewPublisher(redisClient, logger)

	nameHandler := NewNameHandler(dataStore, publisher, asynqClient)
	phoneHandler := NewPhoneHandler(dataStore, publisher, asynqClient)
	emailHandler := NewEmailHandler(dataStore, publisher, asynqClient)
	educationHandler := NewEducationHandler(dataStore, publisher, asynqClient)
	experienceHandler := NewExperienceHandler(dataStore, publisher, asynqClient)
	resumeHandler := NewResumeHandler(dataStore, publisher, asynqClient)
	authHandler := NewAuthHandler(db, authService, redisClient, logger, authCfg.LoginRateLimitPerHour, authCfg.CookieDomain)
	wsHandler := NewWsHandler(redisClient, authService, logger, nil)
	authMiddleware := middleware.AuthMiddleware(authService)

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authMiddleware, authHandler.Logout)
		}

		for path, h := range map[string]*ContactHandler{
			"/names":  nameHandler,
			"/phones": phoneHandler,
			"/emails": emailHandler,
		} {
			group := v1.Group(path)
			group.Use(authMiddleware)
			{
				group.GET("", h.List)
				group.POST("", h.Create)
				group.PUT("/:id", h.Update)
				group.DELETE("/:id", h.Delete)
				group.POST("/:id/default", h.SetDefault)
			}
		}

		educationGroup := v1.Group("/education-items")
		educationGroup.Use(authMiddleware)
		{
			educationGroup.GET("", educationHandler.List)
			educationGroup.POST("", educationHandler.Create)
			educationGroup.PUT("/:id", educationHandler.Update)
			educationGroup.DELETE("/:id", educationHandler.Delete)
			educationGroup.POST("/:id/default", educationHandler.SetDefault)
		}

		experienceGroup := v1.Group("/experience")
		experienceGroup.Use(authMiddleware)
		{
			experienceGroup.GET("", experienceHandler.List)
			experienceGroup.POST("", experienceHandler.Create)
			experienceGroup.GET("/:id", experienceHandler.Get)
			experienceGroup.PUT("/:id", experienceHandler.Update)
			experienceGroup.DELETE("/:id", experienceHandler.Delete)
		}

		resumeGroup := v1.Group("/resumes")
		resumeGroup.Use(authMiddleware)
		{
			resumeGroup.GET("", resumeHandler.List)
			resumeGroup.POST("", resumeHandler.Create)
			resumeGroup.GET("/:id", resumeHandler.Get)
			resumeGroup.PUT("/:id", resumeHandler.Update)
			resumeGroup.DELETE("/:id", resumeHandler.Delete)
			resumeGroup.GET("/:id/print", resumeHandler.Print)
		}
	}
}
