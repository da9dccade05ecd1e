package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"clinic-ledger/backend/config"
	"clinic-ledger/backend/internal/api/handler"
	"clinic-ledger/backend/internal/api/middleware"
	"clinic-ledger/backend/internal/model"
	"clinic-ledger/backend/pkg/jwt"
	"clinic-ledger/backend/pkg/redis"
)

const maxBodyBytes = 1 << 20

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时黑名单与登录限流均降级关闭
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	r := gin.New()

	// nil *redis.Client 不能直接赋给接口
	var (
		checker middleware.TokenChecker
		limiter middleware.Limiter
	)
	if rdb != nil {
		checker = rdb
		limiter = rdb
	}

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── 健康检查与指标 ──
	r.GET("/health", func(c *gin.Context) {
		redisStatus := "disabled"
		if rdb != nil {
			redisStatus = "ok"
			if err := rdb.Health(c.Request.Context()); err != nil {
				redisStatus = "down"
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "redis": redisStatus})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	adminOnly := middleware.RoleAuth(model.RoleAdmin)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.RateLimit(limiter, cfg.RateLimit.LoginLimit, cfg.RateLimit.LoginWindow), h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, checker))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)

			// 用户模块（管理员）
			users := authorized.Group("/users", adminOnly)
			{
				users.POST("", h.User.Register)
				users.GET("", h.User.ListUsers)
				users.PUT("/:id/activate", h.User.ToggleActivation)
				users.PUT("/:id/templates", h.User.AssignTemplates)
			}

			// 班次模板
			templates := authorized.Group("/shift-templates")
			{
				templates.GET("", h.ShiftTemplate.ListTemplates)
				templates.POST("", adminOnly, h.ShiftTemplate.CreateTemplate)
				templates.PUT("/:id", adminOnly, h.ShiftTemplate.UpdateTemplate)
				templates.DELETE("/:id", adminOnly, h.ShiftTemplate.DeleteTemplate)
			}

			// 班次
			shifts := authorized.Group("/shifts")
			{
				shifts.GET("/current", h.Shift.GetCurrent)
				shifts.POST("", h.Shift.StartShift)
				shifts.GET("", h.Shift.ListShifts)
				shifts.POST("/:id/end", h.Shift.EndShift) // 本人或管理员（Service 层鉴权）
				shifts.GET("/:id/operations", h.Shift.ListOperations)
			}

			// 记账
			entries := authorized.Group("/entries")
			{
				entries.POST("", h.Entry.CreateEntry)
				entries.GET("", h.Entry.ListEntries)
				entries.GET("/credits", h.Entry.ListCredits)
				entries.POST("/consultations/:id/credit", h.Entry.SwitchToCredit)
				entries.POST("/credits/:id/pay", h.Entry.PayCredit)
			}

			// 汇总
			summary := authorized.Group("/summary")
			{
				summary.GET("/activity", h.Summary.Activity)
				summary.GET("/dashboard", adminOnly, h.Summary.Dashboard)
				summary.GET("/chart", h.Summary.Chart)
			}

			// 导出（管理员）
			export := authorized.Group("/export", adminOnly)
			{
				export.GET("/shifts.xlsx", h.Export.ExportShiftsExcel)
				export.GET("/shifts.ics", h.Export.ExportShiftsICS)
			}
		}
	}

	return r
}
