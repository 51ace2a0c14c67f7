package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"supervitec-sgd/backend/config"
	"supervitec-sgd/backend/internal/dto"
	"supervitec-sgd/backend/pkg/jwt"
)

var (
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrAdminNotConfigured = errors.New("未配置管理员账号")
)

// TokenBlacklist Token 黑名单，由 *redis.Client 实现
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// AuthService 认证业务接口
// 系统只有一个管理员身份，邮箱与 bcrypt 哈希来自配置
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	// Logout 将当前 Token 加入黑名单直到过期
	Logout(ctx context.Context, claims *jwt.Claims) error
	Me(claims *jwt.Claims) *dto.AdminResponse
}

type authService struct {
	cfg       *config.AuthConfig
	jwtMgr    *jwt.Manager
	blacklist TokenBlacklist
	logger    *zap.Logger
}

// NewAuthService 创建 AuthService 实例；blacklist 为 nil 时登出仅由客户端丢弃 Token
func NewAuthService(
	cfg *config.AuthConfig,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:       cfg,
		jwtMgr:    jwtMgr,
		blacklist: blacklist,
		logger:    logger,
	}
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	if s.cfg.AdminEmail == "" || s.cfg.AdminPasswordHash == "" {
		return nil, ErrAdminNotConfigured
	}

	// 1. 校验邮箱（不区分大小写）
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email != strings.ToLower(s.cfg.AdminEmail) {
		return nil, ErrInvalidCredentials
	}

	// 2. 验证密码 (bcrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.AdminPasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// 3. 生成 Token
	accessToken, err := s.jwtMgr.GenerateAccessToken(email, jwt.RoleAdmin)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}

	ttl := s.jwtMgr.AccessTokenTTL()
	s.logger.Info("管理员登录", zap.String("email", email))

	return &dto.TokenResponse{
		AccessToken: accessToken,
		ExpiresIn:   int(ttl.Seconds()),
		Admin: dto.AdminResponse{
			Email:     email,
			Role:      jwt.RoleAdmin,
			ExpiresAt: time.Now().Add(ttl).UTC().Format(time.RFC3339),
		},
	}, nil
}

func (s *authService) Logout(ctx context.Context, claims *jwt.Claims) error {
	if s.blacklist == nil || claims == nil || claims.ID == "" {
		return nil
	}
	if err := s.blacklist.BlacklistToken(ctx, claims.ID, claims.RemainingTTL(time.Now())); err != nil {
		s.logger.Error("Token 加入黑名单失败", zap.Error(err))
		return err
	}
	return nil
}

func (s *authService) Me(claims *jwt.Claims) *dto.AdminResponse {
	resp := &dto.AdminResponse{Email: claims.Email, Role: claims.Role}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time.UTC().Format(time.RFC3339)
	}
	return resp
}
