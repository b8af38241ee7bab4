package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Nicoleon0812/calendario-carrera/pkg/ratelimit"
	"github.com/Nicoleon0812/calendario-carrera/pkg/redis"
	"github.com/Nicoleon0812/calendario-carrera/pkg/response"
)

// RateLimit 基于 Redis 滑动窗口的速率限制中间件
// limit: 窗口内允许的最大请求数
// window: 滑动窗口时长
// rdb 为 nil 或出错时降级为进程内限流（fallback）
func RateLimit(rdb *redis.Client, fallback *ratelimit.KeyedLimiter, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("horario:rate_limit:%s:%s", c.ClientIP(), c.FullPath())

		allowed := true
		if rdb != nil {
			ok, err := rdb.CheckRateLimit(c.Request.Context(), key, limit, window)
			if err == nil {
				allowed = ok
			} else if fallback != nil {
				allowed = fallback.Allow(key)
			}
		} else if fallback != nil {
			allowed = fallback.Allow(key)
		}

		if !allowed {
			response.Error(c, http.StatusTooManyRequests, 10004, "Demasiados intentos, espera un momento")
			c.Abort()
			return
		}

		c.Next()
	}
}
