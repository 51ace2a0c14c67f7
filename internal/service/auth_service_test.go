package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"supervitec-sgd/backend/config"
	"supervitec-sgd/backend/internal/dto"
	"supervitec-sgd/backend/pkg/jwt"
)

// ── Mock TokenBlacklist ──

type fakeBlacklist struct {
	tokens map[string]time.Duration
}

func (f *fakeBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	f.tokens[jti] = ttl
	return nil
}

func (f *fakeBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	_, ok := f.tokens[jti]
	return ok, nil
}

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

func setupAuth(t *testing.T) (AuthService, *jwt.Manager, *fakeBlacklist) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("Clave#2025"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("生成密码哈希失败: %v", err)
	}
	cfg := &config.AuthConfig{
		JWTSecret:         "test-secret",
		AccessTokenTTL:    2 * time.Hour,
		AdminEmail:        "Admin@Supervitec.co",
		AdminPasswordHash: string(hash),
	}
	mgr := jwt.NewManager(cfg)
	bl := &fakeBlacklist{tokens: make(map[string]time.Duration)}
	return NewAuthService(cfg, mgr, bl, zap.NewNop()), mgr, bl
}

// ═══════════════════════════════════════════════════════════
// Login / Logout
// ═══════════════════════════════════════════════════════════

func TestLogin_Success(t *testing.T) {
	svc, mgr, _ := setupAuth(t)

	resp, err := svc.Login(context.Background(), &dto.LoginRequest{Email: " admin@supervitec.co ", Password: "Clave#2025"})
	if err != nil {
		t.Fatalf("登录失败: %v", err)
	}
	if resp.ExpiresIn != 7200 || resp.Admin.Role != jwt.RoleAdmin {
		t.Errorf("登录响应错误: %+v", resp)
	}

	claims, err := mgr.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("解析 Token 失败: %v", err)
	}
	if claims.Email != "admin@supervitec.co" {
		t.Errorf("期望小写邮箱, 实际=%s", claims.Email)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc, _, _ := setupAuth(t)
	ctx := context.Background()

	cases := []dto.LoginRequest{
		{Email: "otro@supervitec.co", Password: "Clave#2025"},
		{Email: "admin@supervitec.co", Password: "clave#2025"},
	}
	for _, req := range cases {
		if _, err := svc.Login(ctx, &req); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("%s 期望 ErrInvalidCredentials, 实际=%v", req.Email, err)
		}
	}
}

func TestLogin_AdminNotConfigured(t *testing.T) {
	cfg := &config.AuthConfig{JWTSecret: "x", AccessTokenTTL: time.Hour}
	svc := NewAuthService(cfg, jwt.NewManager(cfg), nil, zap.NewNop())

	_, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "a@b.co", Password: "x"})
	if !errors.Is(err, ErrAdminNotConfigured) {
		t.Errorf("期望 ErrAdminNotConfigured, 实际=%v", err)
	}
}

func TestLogout_BlacklistsToken(t *testing.T) {
	svc, mgr, bl := setupAuth(t)
	ctx := context.Background()

	resp, _ := svc.Login(ctx, &dto.LoginRequest{Email: "admin@supervitec.co", Password: "Clave#2025"})
	claims, _ := mgr.ParseToken(resp.AccessToken)

	if err := svc.Logout(ctx, claims); err != nil {
		t.Fatalf("登出失败: %v", err)
	}
	ttl, ok := bl.tokens[claims.ID]
	if !ok {
		t.Fatal("期望 Token 加入黑名单")
	}
	if ttl <= 0 || ttl > 2*time.Hour {
		t.Errorf("黑名单 TTL 应为剩余有效期, 实际=%v", ttl)
	}

	me := svc.Me(claims)
	if me.Email != "admin@supervitec.co" || me.ExpiresAt == "" {
		t.Errorf("Me 响应错误: %+v", me)
	}
}
