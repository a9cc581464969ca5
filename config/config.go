package config

import (
	"fmt"
	"os"
	"strings"

	"kirogate/types"
)

// DefaultModelRules 内置模型映射规则，未绑定外部规则表时使用
var DefaultModelRules = []types.ModelMappingRule{
	{Pattern: "claude-sonnet-4-20250514", InternalID: "CLAUDE_SONNET_4_20250514_V1_0", MatchType: types.MatchExact, Priority: 100, Enabled: true},
	{Pattern: "claude-3-7-sonnet-20250219", InternalID: "CLAUDE_3_7_SONNET_20250219_V1_0", MatchType: types.MatchExact, Priority: 100, Enabled: true},
	{Pattern: "claude-3-5-haiku-20241022", InternalID: "CLAUDE_3_5_HAIKU_20241022_V1_0", MatchType: types.MatchExact, Priority: 100, Enabled: true},
}

// 模型家族兜底映射，规则表未命中时按子串扫描
var (
	FallbackSonnetID = "CLAUDE_SONNET_4_20250514_V1_0"
	FallbackOpusID   = "CLAUDE_OPUS_4_1_20250805_V1_0"
	FallbackHaikuID  = "CLAUDE_3_5_HAIKU_20241022_V1_0"
)

// Config 服务运行配置，全部来自环境变量
type Config struct {
	Port            string
	Region          string
	RosterPath      string
	MySQLDSN        string
	KiroVersion     string
	ClientAuthToken string
	SelectionPolicy types.SelectionPolicy

	// UpstreamBase 非空时覆盖按区域拼出的上游端点
	UpstreamBase string
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Region:          getEnv("KIRO_REGION", DefaultRegion),
		RosterPath:      getEnv("ACCOUNTS_FILE", "accounts.json"),
		MySQLDSN:        os.Getenv("MYSQL_DSN"),
		KiroVersion:     getEnv("KIRO_VERSION", DefaultKiroVersion),
		ClientAuthToken: os.Getenv("AUTH_TOKEN"),
		SelectionPolicy: types.SelectRoundRobin,
		UpstreamBase:    os.Getenv("KIRO_UPSTREAM_URL"),
	}

	switch policy := strings.ToLower(os.Getenv("SELECTION_POLICY")); policy {
	case "", "round_robin", "roundrobin":
		cfg.SelectionPolicy = types.SelectRoundRobin
	case "random":
		cfg.SelectionPolicy = types.SelectRandom
	case "least_used", "leastused":
		cfg.SelectionPolicy = types.SelectLeastUsed
	default:
		return nil, fmt.Errorf("不支持的账号选取策略: %s", policy)
	}

	return cfg, nil
}

// UpstreamURL 根据区域拼出上游端点，UpstreamBase非空时直接使用
func (c *Config) UpstreamURL() string {
	if c.UpstreamBase != "" {
		return c.UpstreamBase
	}
	return fmt.Sprintf("https://q.%s.amazonaws.com/generateAssistantResponse", c.Region)
}

// UpstreamHost 上游Host头
func (c *Config) UpstreamHost() string {
	return fmt.Sprintf("q.%s.amazonaws.com", c.Region)
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
