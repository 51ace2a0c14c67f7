package dto

// ── 认证模块 DTO ──

// LoginRequest 管理员登录请求
type LoginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse 登录成功响应
type TokenResponse struct {
	AccessToken string        `json:"accessToken"`
	ExpiresIn   int           `json:"expiresIn"` // Access Token 有效期（秒）
	Admin       AdminResponse `json:"admin"`
}

// AdminResponse 当前管理员信息（GET /auth/me）
type AdminResponse struct {
	Email     string `json:"email"`
	Role      string `json:"role"`
	ExpiresAt string `json:"expiresAt,omitempty"`
}
