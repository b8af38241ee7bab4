package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Nicoleon0812/calendario-carrera/internal/api/middleware"
	"github.com/Nicoleon0812/calendario-carrera/internal/planner"
	"github.com/Nicoleon0812/calendario-carrera/pkg/response"
)

// MustGetIdentity 从 Gin 上下文中安全提取身份。
// 如果 JWT 中间件未正确注入 email，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetIdentity(c *gin.Context) (planner.Identity, bool) {
	email := c.GetString(middleware.CtxEmail)
	if email == "" {
		response.Unauthorized(c, 10002, "Debes iniciar sesión")
		return planner.Identity{}, false
	}
	return planner.Identity{Email: email, Name: c.GetString(middleware.CtxName)}, true
}

// tokenMeta 当前 Token 的 jti 与过期时间（登出使用）
func tokenMeta(c *gin.Context) (string, time.Time) {
	return c.GetString(middleware.CtxTokenID), c.GetTime(middleware.CtxTokenExp)
}
