package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"kirogate/config"
	"kirogate/logger"
	"kirogate/types"
	"kirogate/utils"

	"github.com/google/uuid"
)

// UsageChecker 账号用量探测器
type UsageChecker struct {
	client *http.Client
}

// NewUsageChecker 创建用量探测器
func NewUsageChecker() *UsageChecker {
	return &UsageChecker{client: utils.SharedHTTPClient}
}

// CheckUsageLimits 查询token的用量限额并归一化为快照
func (c *UsageChecker) CheckUsageLimits(ctx context.Context, token string) (*types.UsageSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, config.UsageLimitsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("创建用量查询请求失败: %w", err)
	}

	req.Header.Set("x-amz-user-agent", config.SDKUserAgentPrefix+" KiroIDE")
	req.Header.Set("amz-sdk-invocation-id", uuid.NewString())
	req.Header.Set("amz-sdk-request", "attempt=1; max=1")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Connection", "close")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("用量查询请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取用量响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("用量查询失败: 状态码 %d, 响应: %s", resp.StatusCode, string(body))
	}

	var limits types.UsageLimits
	if err := utils.SafeUnmarshal(body, &limits); err != nil {
		return nil, fmt.Errorf("解析用量响应失败: %w", err)
	}

	snapshot := buildSnapshot(&limits)
	logger.Debug("用量探测完成",
		logger.Int("usage_limit", snapshot.UsageLimit),
		logger.Int("current_usage", snapshot.CurrentUsage),
		logger.Int("available", snapshot.Available),
		logger.String("user_email", snapshot.UserEmail))
	return snapshot, nil
}

// buildSnapshot 从上游响应提取VIBE资源的归一化视图
func buildSnapshot(limits *types.UsageLimits) *types.UsageSnapshot {
	snapshot := &types.UsageSnapshot{
		Available:        limits.AvailableCount(),
		UserEmail:        limits.UserInfo.Email,
		SubscriptionType: limits.SubscriptionInfo.Type,
		CheckedAt:        time.Now(),
	}
	for _, breakdown := range limits.UsageBreakdownList {
		if breakdown.ResourceType == "VIBE" {
			snapshot.UsageLimit = breakdown.UsageLimit
			snapshot.CurrentUsage = breakdown.CurrentUsage
			if breakdown.NextDateReset > 0 {
				snapshot.NextReset = time.Unix(int64(breakdown.NextDateReset), 0)
			}
			break
		}
	}
	if snapshot.NextReset.IsZero() && limits.NextDateReset > 0 {
		snapshot.NextReset = time.Unix(int64(limits.NextDateReset), 0)
	}
	return snapshot
}
