package types

import "time"

// UsageSnapshot 账号用量探测结果的归一化视图
type UsageSnapshot struct {
	UsageLimit       int       `json:"usageLimit"`
	CurrentUsage     int       `json:"currentUsage"`
	Available        int       `json:"available"`
	UserEmail        string    `json:"userEmail,omitempty"`
	SubscriptionType string    `json:"subscriptionType,omitempty"`
	NextReset        time.Time `json:"nextReset,omitempty"`
	CheckedAt        time.Time `json:"checkedAt"`
}

// UsageLimits 上游getUsageLimits的响应结构
type UsageLimits struct {
	Limits               []any            `json:"limits"`
	UsageBreakdownList   []UsageBreakdown `json:"usageBreakdownList"`
	UserInfo             UserInfo         `json:"userInfo"`
	DaysUntilReset       int              `json:"daysUntilReset"`
	OverageConfiguration OverageConfig    `json:"overageConfiguration"`
	NextDateReset        float64          `json:"nextDateReset"`
	SubscriptionInfo     SubscriptionInfo `json:"subscriptionInfo"`
}

// UsageBreakdown 单类资源的用量明细
type UsageBreakdown struct {
	NextDateReset   float64        `json:"nextDateReset"`
	OverageCharges  float64        `json:"overageCharges"`
	ResourceType    string         `json:"resourceType"`
	Unit            string         `json:"unit"`
	UsageLimit      int            `json:"usageLimit"`
	OverageRate     float64        `json:"overageRate"`
	CurrentUsage    int            `json:"currentUsage"`
	OverageCap      int            `json:"overageCap"`
	Currency        string         `json:"currency"`
	CurrentOverages int            `json:"currentOverages"`
	FreeTrialInfo   *FreeTrialInfo `json:"freeTrialInfo,omitempty"`
}

// FreeTrialInfo 免费试用信息
type FreeTrialInfo struct {
	FreeTrialExpiry float64 `json:"freeTrialExpiry"`
	FreeTrialStatus string  `json:"freeTrialStatus"`
	UsageLimit      int     `json:"usageLimit"`
	CurrentUsage    int     `json:"currentUsage"`
}

// UserInfo 用户信息
type UserInfo struct {
	Email  string `json:"email"`
	UserID string `json:"userId"`
}

// OverageConfig 超额配置
type OverageConfig struct {
	OverageStatus string `json:"overageStatus"`
}

// SubscriptionInfo 订阅信息
type SubscriptionInfo struct {
	SubscriptionManagementTarget string `json:"subscriptionManagementTarget"`
	OverageCapability            string `json:"overageCapability"`
	SubscriptionTitle            string `json:"subscriptionTitle"`
	Type                         string `json:"type"`
	UpgradeCapability            string `json:"upgradeCapability"`
}

// AvailableCount 计算VIBE资源剩余可用次数，含生效中的试用额度
func (u *UsageLimits) AvailableCount() int {
	for _, breakdown := range u.UsageBreakdownList {
		if breakdown.ResourceType != "VIBE" {
			continue
		}
		available := breakdown.UsageLimit - breakdown.CurrentUsage
		if breakdown.FreeTrialInfo != nil && breakdown.FreeTrialInfo.FreeTrialStatus == "ACTIVE" {
			available += breakdown.FreeTrialInfo.UsageLimit - breakdown.FreeTrialInfo.CurrentUsage
		}
		return available
	}
	return 0
}
