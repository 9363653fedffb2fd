/*
 * @Description: 路由注册
 * @Author: 青陌
 * @Date: 2025-06-19 14:18:36
 * @LastEditTime: 2025-09-28 17:40:22
 * @LastEditors: 青陌
 */
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qingmo-c/qingtu-app/internal/app/middleware"
	adminhandler "github.com/qingmo-c/qingtu-app/pkg/handler/admin"
	imagehandler "github.com/qingmo-c/qingtu-app/pkg/handler/image"
	userhandler "github.com/qingmo-c/qingtu-app/pkg/handler/user"
	"github.com/qingmo-c/qingtu-app/pkg/response"
)

// Router 把处理器和中间件装配到 Gin 引擎上
type Router struct {
	mw           *middleware.Middleware
	imageHandler *imagehandler.Handler
	userHandler  *userhandler.Handler
	adminHandler *adminhandler.Handler
}

// NewRouter 创建路由装配器
func NewRouter(
	mw *middleware.Middleware,
	imageHandler *imagehandler.Handler,
	userHandler *userhandler.Handler,
	adminHandler *adminhandler.Handler,
) *Router {
	return &Router{
		mw:           mw,
		imageHandler: imageHandler,
		userHandler:  userHandler,
		adminHandler: adminHandler,
	}
}

// Setup 将所有路由注册到 Gin 引擎。
// 这是在启动流程中被调用的唯一入口点。
func (r *Router) Setup(engine *gin.Engine) {
	engine.Use(middleware.Cors())

	engine.GET("/healthz", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "ok"}, "ok")
	})

	apiGroup := engine.Group("/api")

	r.registerAuthRoutes(apiGroup)
	r.registerImageRoutes(apiGroup)
	r.registerAdminRoutes(apiGroup)

	engine.NoRoute(func(c *gin.Context) {
		response.Fail(c, http.StatusNotFound, "接口不存在")
	})
}

func (r *Router) registerAuthRoutes(api *gin.RouterGroup) {
	api.POST("/login", r.userHandler.Login)
	api.POST("/token/refresh", r.userHandler.Refresh)
}

func (r *Router) registerImageRoutes(api *gin.RouterGroup) {
	// 上传：登录通道和访客通道
	api.POST("/upload", r.mw.JWTAuth(), r.imageHandler.Upload)
	api.POST("/upload/guest", middleware.GuestUploadRateLimit(), r.imageHandler.GuestUpload)

	// 交付与元信息：匿名可访问公开资产，携带 Token 可访问自己的私有资产
	api.GET("/image/:id", r.mw.JWTAuthOptional(), r.imageHandler.Deliver)
	api.GET("/image/:id/info", r.mw.JWTAuthOptional(), r.imageHandler.Info)

	// 管理自己的资产
	api.GET("/images", r.mw.JWTAuth(), r.imageHandler.List)
	api.PUT("/image/:id", r.mw.JWTAuth(), r.imageHandler.Update)
	api.DELETE("/image/:id", r.mw.JWTAuth(), r.imageHandler.Delete)
}

func (r *Router) registerAdminRoutes(api *gin.RouterGroup) {
	adminGroup := api.Group("/admin", r.mw.JWTAuth(), r.mw.AdminAuth())
	{
		adminGroup.GET("/audit", r.adminHandler.AuditLogs)
	}
}
