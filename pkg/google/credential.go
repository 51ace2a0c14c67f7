package google

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	"supervitec-sgd/backend/config"
)

// ErrNoCredential 未配置可用的 Google 凭证
var ErrNoCredential = errors.New("未配置 Google 凭证")

// 镜像与日历所需权限
var scopes = []string{
	"https://www.googleapis.com/auth/spreadsheets",
	"https://www.googleapis.com/auth/calendar.events",
}

// Credential 访问凭证：AccessToken + Expiry，过期由 TokenSource 使用 RefreshToken 刷新
type Credential = oauth2.Token

// CredentialProvider 凭证提供者
// 实现 oauth2.TokenSource，可直接交给 Google API 客户端
type CredentialProvider interface {
	oauth2.TokenSource
	// Credential 返回当前有效凭证，必要时刷新
	Credential(ctx context.Context) (*Credential, error)
}

// adminCredentialProvider 基于已保存的管理员 RefreshToken
type adminCredentialProvider struct {
	mu sync.Mutex
	ts oauth2.TokenSource
}

// NewAdminCredentialProvider 创建管理员凭证提供者
func NewAdminCredentialProvider(cfg *config.GoogleConfig) (CredentialProvider, error) {
	if cfg.ClientID == "" || cfg.AdminRefreshToken == "" {
		return nil, ErrNoCredential
	}
	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     googleoauth.Endpoint,
		Scopes:       scopes,
	}
	seed := &oauth2.Token{RefreshToken: cfg.AdminRefreshToken}
	return &adminCredentialProvider{
		ts: oauth2.ReuseTokenSource(nil, oc.TokenSource(context.Background(), seed)),
	}, nil
}

func (p *adminCredentialProvider) Token() (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ts.Token()
}

func (p *adminCredentialProvider) Credential(ctx context.Context) (*Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tok, err := p.Token()
	if err != nil {
		return nil, err
	}
	if !tok.Valid() {
		return nil, ErrNoCredential
	}
	return tok, nil
}
