package auth

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"kirogate/config"
	"kirogate/logger"
	"kirogate/types"
	"kirogate/utils"
)

// 认证方式
const (
	AuthMethodSocial = "social"
	AuthMethodIdC    = "idc"
)

// 过期判定的提前量，避免拿到临界token
const expirySkew = 5 * time.Minute

// AccountSource 按ID提供账号快照
type AccountSource interface {
	Get(accountID string) (types.Account, bool)
}

var errNoRefreshToken = fmt.Errorf("账号缺少refreshToken")

type cachedToken struct {
	accessToken string
	expiresAt   time.Time
}

// Manager 账号级token管理器，按需刷新并缓存访问令牌
type Manager struct {
	source AccountSource
	client *http.Client

	mu    sync.Mutex
	cache map[string]cachedToken
}

// NewManager 创建token管理器
func NewManager(source AccountSource) *Manager {
	return &Manager{
		source: source,
		client: utils.SharedHTTPClient,
		cache:  make(map[string]cachedToken),
	}
}

// EnsureValidToken 返回账号的有效访问令牌，必要时执行刷新
func (m *Manager) EnsureValidToken(ctx context.Context, accountID string) (string, error) {
	account, ok := m.source.Get(accountID)
	if !ok {
		return "", fmt.Errorf("账号不存在: %s", accountID)
	}

	m.mu.Lock()
	cached, hit := m.cache[accountID]
	m.mu.Unlock()
	if hit && time.Until(cached.expiresAt) > expirySkew {
		return cached.accessToken, nil
	}

	// 凭证自带的访问令牌未过期时直接使用
	if account.Credential.AccessToken != "" {
		if expiresAt, err := time.Parse(time.RFC3339, account.Credential.ExpiresAt); err == nil &&
			time.Until(expiresAt) > expirySkew {
			m.store(accountID, account.Credential.AccessToken, expiresAt)
			return account.Credential.AccessToken, nil
		}
	}

	token, expiresAt, err := m.refresh(ctx, account)
	if err != nil {
		return "", err
	}
	m.store(accountID, token, expiresAt)
	return token, nil
}

func (m *Manager) store(accountID, token string, expiresAt time.Time) {
	m.mu.Lock()
	m.cache[accountID] = cachedToken{accessToken: token, expiresAt: expiresAt}
	m.mu.Unlock()
}

// Invalidate 丢弃账号的缓存token，下次取用强制刷新
func (m *Manager) Invalidate(accountID string) {
	m.mu.Lock()
	delete(m.cache, accountID)
	m.mu.Unlock()
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type idcRefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	GrantType    string `json:"grantType"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
	ExpiresAt    string `json:"expiresAt"`
	ProfileArn   string `json:"profileArn"`
}

// refresh 执行一次token刷新，social与idc走不同端点
func (m *Manager) refresh(ctx context.Context, account types.Account) (string, time.Time, error) {
	cred := account.Credential
	if cred.RefreshToken == "" {
		return "", time.Time{}, fmt.Errorf("%w: %s", errNoRefreshToken, account.ID)
	}

	var refreshURL string
	var payload any
	switch cred.AuthType {
	case AuthMethodIdC:
		refreshURL = config.IdCRefreshURL
		payload = idcRefreshRequest{
			RefreshToken: cred.RefreshToken,
			ClientID:     cred.ClientID,
			ClientSecret: cred.ClientSecret,
			GrantType:    "refresh_token",
		}
	default:
		refreshURL = config.SocialRefreshURL
		payload = refreshRequest{RefreshToken: cred.RefreshToken}
	}

	body, err := utils.SafeMarshal(payload)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("序列化刷新请求失败: %w", err)
	}

	logger.Debug("发送token刷新请求",
		logger.String("account_id", account.ID),
		logger.String("url", refreshURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, refreshURL, bytes.NewReader(body))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("创建刷新请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("刷新token请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("读取刷新响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, fmt.Errorf("刷新token失败: 状态码 %d, 响应: %s", resp.StatusCode, string(respBody))
	}

	var parsed refreshResponse
	if err := utils.SafeUnmarshal(respBody, &parsed); err != nil {
		return "", time.Time{}, fmt.Errorf("解析刷新响应失败: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", time.Time{}, fmt.Errorf("刷新响应缺少accessToken")
	}

	expiresAt := time.Now().Add(50 * time.Minute)
	if parsed.ExpiresAt != "" {
		if t, err := time.Parse(time.RFC3339, parsed.ExpiresAt); err == nil {
			expiresAt = t
		}
	} else if parsed.ExpiresIn > 0 {
		expiresAt = time.Now().Add(time.Duration(parsed.ExpiresIn) * time.Second)
	}

	logger.Info("Token刷新成功",
		logger.String("account_id", account.ID),
		logger.String("expires_at", expiresAt.Format(time.RFC3339)))
	return parsed.AccessToken, expiresAt, nil
}
