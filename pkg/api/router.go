package api

import (
	"github.com/gin-gonic/gin"

	"github.com/LENAX/dependent-engine/pkg/api/handler"
	"github.com/LENAX/dependent-engine/pkg/api/middleware"
)

// SetupRouter 设置路由
func SetupRouter(registry handler.WatchRegistry, version string, ready handler.ReadinessCheck) *gin.Engine {
	// 设置gin模式
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// 全局中间件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	dependentHandler := handler.NewDependentHandler(registry)
	healthHandler := handler.NewHealthHandler(version, ready)

	// 健康检查路由（不带前缀）
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// API v1 路由组
	v1 := router.Group("/api/v1")
	{
		dependents := v1.Group("/dependents")
		{
			dependents.GET("", dependentHandler.List)
			dependents.GET("/:id", dependentHandler.Get)
			dependents.DELETE("/:id", dependentHandler.Cancel)
		}
	}

	return router
}
