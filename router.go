package main

import (
	"github.com/gin-gonic/gin"

	"github.com/muhammadolammi/resumeparser/internal/config"
)

func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	uploadLimit := int64(cfg.MaxUploadMB) << 20
	r.MaxMultipartMemory = uploadLimit
	r.Use(gin.Recovery())
	r.Use(RequestLogger(handler.worker.Logger))
	r.Use(CORSMiddleware())

	r.GET("/", handler.Home)
	r.GET("/health", handler.HealthCheck)

	api := r.Group("/")
	api.Use(BodyLimit(uploadLimit))
	if cfg.SupabaseJWTSecret != "" {
		api.Use(AuthMiddleware(cfg.SupabaseJWTSecret))
	}
	{
		api.POST("/parse-resumes/", handler.ParseResumes)
		api.POST("/sessions", handler.CreateSession)
		api.GET("/sessions/:id", handler.GetSession)
	}

	return r
}
