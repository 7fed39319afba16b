package router

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/kbase/internal/config"
	"github.com/kbase/internal/handler"
	"gorm.io/gorm"
)

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(cfg config.AppConfig, gdb *gorm.DB) *gin.Engine {
	r := gin.Default()

	// 配置会话中间件
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	r.Use(sessions.Sessions("kbase_session", store))
	r.Use(handler.SessionUser())

	api := handler.NewAPI(gdb, cfg.UploadDir, cfg.UploadURLPath)

	// 上传文件静态服务
	r.Static(cfg.UploadURLPath, cfg.UploadDir)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	v1 := r.Group("/api")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login", api.Login)
			auth.POST("/logout", api.Logout)
		}

		articles := v1.Group("/articles")
		{
			articles.GET("", api.ListArticles)
			articles.GET("/popular", api.PopularArticles)
			articles.GET("/recent", api.RecentArticles)
			articles.GET("/search", api.SearchArticles)
			articles.GET("/:slug", api.GetArticle)

			protected := articles.Group("")
			protected.Use(handler.AuthRequired())
			{
				protected.POST("", api.CreateArticle)
				protected.PUT("/:id", api.UpdateArticle)
				protected.DELETE("/:id", api.DeleteArticle)
				protected.POST("/:id/rate", api.RateArticle)
				protected.POST("/:id/images", api.UploadArticleImage)
				protected.POST("/:id/attachments", api.UploadAttachment)
			}

			admin := articles.Group("")
			admin.Use(handler.AuthRequired(), handler.AdminRequired())
			{
				admin.GET("/stats", api.GetStats)
			}
		}

		categories := v1.Group("/categories")
		{
			categories.GET("", api.ListCategories)
			categories.GET("/:slug", api.GetCategory)

			adminCategories := categories.Group("")
			adminCategories.Use(handler.AuthRequired(), handler.AdminRequired())
			{
				adminCategories.POST("", api.CreateCategory)
				adminCategories.PUT("/:id", api.UpdateCategory)
				adminCategories.DELETE("/:id", api.DeleteCategory)
			}
		}
	}

	return r
}
