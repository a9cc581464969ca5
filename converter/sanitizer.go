package converter

import (
	"fmt"
	"strings"
)

// 不支持转发的工具名（小写比较）
var unsupportedToolNames = map[string]bool{
	"web_search": true,
	"websearch":  true,
}

// IsUnsupportedTool 判断工具是否在不支持名单中，原始名与规整后的形态都参与比较
func IsUnsupportedTool(name string) bool {
	return unsupportedToolNames[strings.ToLower(name)] ||
		unsupportedToolNames[strings.ToLower(sanitizeBase(name))]
}

// ToolNameSanitizer 单次请求内的工具名重写器，维护原始名与清洗名的双射
type ToolNameSanitizer struct {
	assigned map[string]string // 原始名 -> 清洗名
	used     map[string]bool   // 已占用的清洗名
}

// NewToolNameSanitizer 创建工具名重写器
func NewToolNameSanitizer() *ToolNameSanitizer {
	return &ToolNameSanitizer{
		assigned: make(map[string]string),
		used:     make(map[string]bool),
	}
}

// Sanitize 返回原始名对应的清洗名，同一原始名总是返回同一结果
func (s *ToolNameSanitizer) Sanitize(name string) string {
	if assigned, ok := s.assigned[name]; ok {
		return assigned
	}

	base := sanitizeBase(name)
	candidate := base
	for i := 2; s.used[candidate]; i++ {
		candidate = fmt.Sprintf("%s_%d", base, i)
	}

	s.assigned[name] = candidate
	s.used[candidate] = true
	return candidate
}

// NameMap 返回清洗名到原始名的映射，供响应侧还原工具名
func (s *ToolNameSanitizer) NameMap() map[string]string {
	m := make(map[string]string, len(s.assigned))
	for original, sanitized := range s.assigned {
		m[sanitized] = original
	}
	return m
}

// sanitizeBase 将任意工具名规整到标识符命名空间
func sanitizeBase(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}

	// 折叠连续下划线并去掉首尾下划线
	parts := strings.FieldsFunc(b.String(), func(r rune) bool { return r == '_' })
	result := strings.Join(parts, "_")

	if result == "" {
		return "tool"
	}
	if result[0] >= '0' && result[0] <= '9' {
		result = "t_" + result
	}
	return result
}
