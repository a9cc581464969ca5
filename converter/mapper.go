package converter

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"kirogate/config"
	"kirogate/logger"
	"kirogate/types"
)

// ErrUnsupportedModel 模型标签无法解析为上游模型标识
var ErrUnsupportedModel = errors.New("不支持的模型")

// ModelMappingStore 模型映射规则的外部存储
type ModelMappingStore interface {
	FindMapping(clientModel string) (*types.ModelMappingRule, bool)
}

// ModelMapper 将客户端模型标签解析为上游模型标识
type ModelMapper struct {
	store ModelMappingStore
	rules []types.ModelMappingRule
}

// NewModelMapper 创建模型映射器，store为nil时使用内置规则表
func NewModelMapper(store ModelMappingStore) *ModelMapper {
	rules := make([]types.ModelMappingRule, len(config.DefaultModelRules))
	copy(rules, config.DefaultModelRules)
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority > rules[j].Priority
	})
	return &ModelMapper{store: store, rules: rules}
}

// Map 解析模型标签，规则表未命中时按模型家族子串兜底
func (m *ModelMapper) Map(clientModel string) (string, error) {
	label := strings.ToLower(strings.TrimSpace(clientModel))
	if label == "" {
		return "", fmt.Errorf("%w: 模型标签为空", ErrUnsupportedModel)
	}

	if m.store != nil {
		if rule, ok := m.store.FindMapping(clientModel); ok && rule.Enabled {
			return rule.InternalID, nil
		}
	} else {
		for _, rule := range m.rules {
			if rule.Enabled && matchRule(rule, label) {
				return rule.InternalID, nil
			}
		}
	}

	// 规则未命中，按家族子串扫描
	switch {
	case strings.Contains(label, "sonnet"):
		return config.FallbackSonnetID, nil
	case strings.Contains(label, "opus"):
		return config.FallbackOpusID, nil
	case strings.Contains(label, "haiku"):
		return config.FallbackHaikuID, nil
	}

	logger.Warn("模型映射失败", logger.String("model", clientModel))
	return "", fmt.Errorf("%w: %s", ErrUnsupportedModel, clientModel)
}

// matchRule 按匹配方式比较规则与小写标签
func matchRule(rule types.ModelMappingRule, label string) bool {
	pattern := strings.ToLower(rule.Pattern)
	switch rule.MatchType {
	case types.MatchExact:
		return label == pattern
	case types.MatchPrefix:
		return strings.HasPrefix(label, pattern)
	case types.MatchContains:
		return strings.Contains(label, pattern)
	default:
		return false
	}
}
