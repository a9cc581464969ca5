package dispatcher

import (
	"fmt"
	"sort"

	"kirogate/utils"
)

// 调试摘要的递归边界
const (
	// MaxDebugDepth 摘要递归深度上限
	MaxDebugDepth = 6

	// MaxSampleElements 数组采样元素个数
	MaxSampleElements = 3

	// MaxObjectKeys 对象键名个数上限
	MaxObjectKeys = 60
)

// SummarizeRequest 生成请求体的结构化摘要，摘要不含任何负载内容，可安全写入日志
func SummarizeRequest(v any) any {
	data, err := utils.FastMarshal(v)
	if err != nil {
		return fmt.Sprintf("<unserializable: %v>", err)
	}
	var decoded any
	if err := utils.FastUnmarshal(data, &decoded); err != nil {
		return fmt.Sprintf("<undecodable: %v>", err)
	}
	return summarize(decoded, 0)
}

// summarize 按类型打标递归摘要
func summarize(v any, depth int) any {
	if depth >= MaxDebugDepth {
		return "[MaxDepth]"
	}

	switch value := v.(type) {
	case string:
		return fmt.Sprintf("<string len=%d>", len(value))
	case []any:
		sample := make([]any, 0, MaxSampleElements)
		for i, item := range value {
			if i >= MaxSampleElements {
				break
			}
			sample = append(sample, summarize(item, depth+1))
		}
		return map[string]any{
			"_type":  "array",
			"length": len(value),
			"sample": sample,
		}
	case map[string]any:
		names := make([]string, 0, len(value))
		for key := range value {
			names = append(names, key)
		}
		sort.Strings(names)
		if len(names) > MaxObjectKeys {
			names = names[:MaxObjectKeys]
		}
		keys := make(map[string]any, len(names))
		for _, key := range names {
			keys[key] = summarize(value[key], depth+1)
		}
		return map[string]any{
			"_type": "object",
			"keys":  keys,
		}
	default:
		// 数字、布尔、null原样透传
		return value
	}
}
