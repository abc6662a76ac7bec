package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"boxatlas/backend/config"
	"boxatlas/backend/internal/api/handler"
	"boxatlas/backend/internal/api/middleware"
	"boxatlas/backend/pkg/jwt"
	"boxatlas/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时限流中间件降级放行
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// ── 健康检查与监控 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr))
	v1.Use(middleware.RateLimit(rdb, cfg.Redis.RateLimit, cfg.Redis.RateWindow, logger))

	// 所有资源都挂在工作区下，成员校验由 Service 层完成
	ws := v1.Group("/workspaces/:ws")
	{
		// 地点模块
		locations := ws.Group("/locations")
		{
			locations.GET("", h.Location.ListChildren)
			locations.POST("", h.Location.CreateLocation)
			locations.GET("/:id", h.Location.GetLocation)
			locations.GET("/:id/breadcrumb", h.Location.GetBreadcrumb)
			locations.PUT("/:id", h.Location.UpdateLocation)
			locations.DELETE("/:id", h.Location.DeleteLocation)
		}

		// 箱子模块
		boxes := ws.Group("/boxes")
		{
			boxes.GET("", h.Box.ListBoxes)
			boxes.POST("", h.Box.CreateBox)
			boxes.GET("/short/:short_id", h.Box.GetBoxByShortID)
			boxes.GET("/:id", h.Box.GetBox)
			boxes.PUT("/:id", h.Box.UpdateBox)
			boxes.DELETE("/:id", h.Box.DeleteBox)
		}

		// 二维码模块
		qrCodes := ws.Group("/qr-codes")
		{
			qrCodes.GET("", h.QrCode.ListQrCodes)
			qrCodes.POST("/batch", h.QrCode.GenerateBatch)
			qrCodes.GET("/export", h.QrCode.ExportLabels)
			qrCodes.POST("/printed", h.QrCode.MarkPrinted)
			qrCodes.GET("/resolve/:code", h.QrCode.Resolve)
			qrCodes.GET("/:id", h.QrCode.GetQrCode)
		}
	}

	return r
}
