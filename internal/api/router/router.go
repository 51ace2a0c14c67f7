package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"supervitec-sgd/backend/config"
	"supervitec-sgd/backend/internal/api/handler"
	"supervitec-sgd/backend/internal/api/middleware"
	"supervitec-sgd/backend/pkg/jwt"
	"supervitec-sgd/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时跳过限流与 Token 黑名单
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 管理员登录（无需认证）
		v1.POST("/auth/login", middleware.RateLimit(rdb, cfg.Server.PublicRateLimit, cfg.Server.PublicRateWindow), h.Auth.Login)

		// 司机端（公开，限流）
		public := v1.Group("/preop")
		public.Use(middleware.RateLimit(rdb, cfg.Server.PublicRateLimit, cfg.Server.PublicRateWindow))
		{
			public.POST("/submit/:vehicleType", h.Preop.Submit)
			public.GET("/check-availability", h.Preop.CheckAvailability)
			public.GET("/form/:vehicleType", h.Preop.Form)
			public.GET("/drivers", h.Driver.PublicList)
		}

		// 管理端
		admin := v1.Group("")
		admin.Use(middleware.JWTAuth(jwtMgr, rdb), middleware.RoleAuth(jwt.RoleAdmin))
		{
			admin.POST("/auth/logout", h.Auth.Logout)
			admin.GET("/auth/me", h.Auth.Me)

			// 预检
			preop := admin.Group("/preop")
			{
				preop.GET("/daily-status", h.Preop.DailyStatus)
				preop.POST("/check-missed", h.Preop.CheckMissed)
				preop.GET("/history", h.Preop.History)
				preop.GET("/sanctions", h.Preop.Sanctions)
				preop.GET("/user-calendar", h.Preop.UserCalendar)
				preop.POST("/sync-review", h.Review.SyncReview)
			}

			// 工作日历
			calendars := admin.Group("/calendars")
			{
				calendars.GET("/:userId/:year/:month", h.Calendar.Get)
				calendars.PUT("/:userId/:year/:month", h.Calendar.Update)
				calendars.DELETE("/:userId/:year/:month", h.Calendar.Delete)
			}

			// 司机目录
			drivers := admin.Group("/drivers")
			{
				drivers.GET("", h.Driver.List)
				drivers.POST("", h.Driver.Create)
				drivers.PUT("/:id", h.Driver.Update)
				drivers.POST("/import", h.Driver.Import)
			}

			// 约谈
			citations := admin.Group("/citations")
			{
				citations.POST("", h.Citation.Create)
				citations.GET("", h.Citation.List)
				citations.PATCH("/:id/attendance", h.Citation.MarkAttendance)
				citations.PATCH("/:id/cancel", h.Citation.Cancel)
				citations.POST("/unblock/:userId", h.Citation.Unblock)
			}

			// 月度审查
			review := admin.Group("/review")
			{
				review.GET("", h.Review.Review)
				review.GET("/months", h.Review.Months)
				review.GET("/export", h.Export.ExportReview)
				review.POST("/citar-automatico", h.Review.CitarAutomatico)
				review.PUT("/:field", h.Review.UpdateField)
			}
		}
	}

	return r
}
