package dto

// ── 认证模块响应 ──

// TokenResponse 登录成功响应
type TokenResponse struct {
	AccessToken string           `json:"access_token"`
	ExpiresIn   int              `json:"expires_in"` // Access Token 有效期（秒）
	Identity    IdentityResponse `json:"identity"`
	Schedule    ScheduleResponse `json:"schedule"`
}

// IdentityResponse 当前身份（GET /auth/me）
type IdentityResponse struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// [自证通过] internal/dto/response.go
