package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Nicoleon0812/calendario-carrera/config"
	"github.com/Nicoleon0812/calendario-carrera/internal/api/handler"
	"github.com/Nicoleon0812/calendario-carrera/internal/api/middleware"
	"github.com/Nicoleon0812/calendario-carrera/pkg/jwt"
	"github.com/Nicoleon0812/calendario-carrera/pkg/metrics"
	"github.com/Nicoleon0812/calendario-carrera/pkg/ratelimit"
	"github.com/Nicoleon0812/calendario-carrera/pkg/redis"
)

const maxBodyBytes = 64 << 10

// Setup 初始化并返回 Gin 路由引擎
// rdb 可为 nil：黑名单检查跳过，登录限流降级为进程内 loginLimiter
func Setup(
	cfg *config.Config,
	h *handler.Handler,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	loginLimiter *ratelimit.KeyedLimiter,
	logger *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Metrics())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── 运维 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 无需认证
		v1.POST("/auth/login",
			middleware.RateLimit(rdb, loginLimiter, cfg.RateLimit.LoginLimit, cfg.RateLimit.LoginWindow),
			h.Auth.Login,
		)
		v1.GET("/grid", h.Catalog.GetGrid)

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb, logger))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)

			authorized.GET("/catalog", h.Catalog.ListCourses)

			// 课表
			schedule := authorized.Group("/schedule")
			{
				schedule.GET("", h.Planner.GetSchedule)
				schedule.DELETE("", h.Planner.ClearAll)
				schedule.POST("/placements", h.Planner.Place)
				schedule.DELETE("/placements/:id", h.Planner.Remove)
			}

			// 导出
			export := authorized.Group("/export")
			{
				export.GET("/xlsx", h.Export.ExportXLSX)
				export.GET("/png", h.Export.ExportPNG)
				export.GET("/ics", h.Export.ExportICS)
			}
		}
	}

	return r
}
