package config

import "time"

// 上游端点常量
const (
	// DefaultRegion 上游默认区域
	DefaultRegion = "us-east-1"

	// SocialRefreshURL social认证的token刷新URL
	SocialRefreshURL = "https://prod.us-east-1.auth.desktop.kiro.dev/refreshToken"

	// IdCRefreshURL IdC认证的token刷新URL
	IdCRefreshURL = "https://oidc.us-east-1.amazonaws.com/token"

	// UsageLimitsURL 用量查询URL
	UsageLimitsURL = "https://codewhisperer.us-east-1.amazonaws.com/getUsageLimits?isEmailRequired=true&origin=AI_EDITOR&resourceType=AGENTIC_REQUEST"
)

// 上游请求头常量
const (
	// SDKUserAgentPrefix aws-sdk-js的UA前缀
	SDKUserAgentPrefix = "aws-sdk-js/1.0.27"

	// DefaultKiroVersion 默认KiroIDE版本号
	DefaultKiroVersion = "0.8.0"

	// AgentModeVibe x-amzn-kiro-agent-mode的取值
	AgentModeVibe = "vibe"
)

// 信封构造常量
const (
	// OriginAIEditor userInputMessage.origin的固定取值
	OriginAIEditor = "AI_EDITOR"

	// TriggerManual 默认会话触发类型
	TriggerManual = "MANUAL"

	// TriggerAuto 工具强制调用时的触发类型
	TriggerAuto = "AUTO"

	// AgentTaskTypeVibe conversationState.agentTaskType的固定取值
	AgentTaskTypeVibe = "vibe"

	// SystemAckText 系统提示注入后的助手应答
	SystemAckText = "I will follow these instructions."

	// FillerAssistantText 补齐交替序列的助手占位内容
	FillerAssistantText = "OK"

	// ContinueText 空用户内容的占位
	ContinueText = "continue"

	// ThinkingDefaultBudget 思考模式默认的token预算
	ThinkingDefaultBudget = 10000

	// ToolDescriptionMaxLen 工具描述截断长度
	ToolDescriptionMaxLen = 10000
)

// 账号池常量
const (
	// CooldownInterval 限流冷却时长，到期后自动恢复active
	CooldownInterval = 5 * time.Minute
)

// HTTP客户端常量
const (
	// ResponseHeaderTimeout 响应头超时时间
	ResponseHeaderTimeout = 5 * time.Minute

	// StreamResponseTimeout 流式响应超时时间
	StreamResponseTimeout = 10 * time.Minute

	// SimpleRequestTimeout 简单请求超时时间
	SimpleRequestTimeout = 2 * time.Minute
)
