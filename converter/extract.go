package converter

import (
	"strings"

	"kirogate/config"
	"kirogate/types"
	"kirogate/utils"
)

// UserContent 用户消息的归一化结果
type UserContent struct {
	Text        string
	ToolResults []types.ToolResult
}

// AssistantContent 助手消息的归一化结果
type AssistantContent struct {
	Text     string
	ToolUses []types.ToolUse
}

// ExtractText 提取消息内容的纯文本，未知形态返回空串
func ExtractText(content any) string {
	switch v := content.(type) {
	case string:
		return v
	default:
		blocks := normalizeBlocks(content)
		if blocks == nil {
			return ""
		}
		var texts []string
		for _, block := range blocks {
			if block.Type == "text" && block.Text != nil {
				texts = append(texts, *block.Text)
			}
		}
		return strings.Join(texts, "\n")
	}
}

// ExtractUserContent 提取用户消息的文本与工具结果
func ExtractUserContent(content any) UserContent {
	if s, ok := content.(string); ok {
		return UserContent{Text: s}
	}

	blocks := normalizeBlocks(content)
	if blocks == nil {
		return UserContent{}
	}

	var texts []string
	var toolResults []types.ToolResult
	for _, block := range blocks {
		switch block.Type {
		case "text":
			if block.Text != nil {
				texts = append(texts, *block.Text)
			}
		case "tool_result":
			result := types.ToolResult{
				Status:  "success",
				Content: []types.ToolResultContent{{Text: coerceResultText(block.Content)}},
			}
			if block.ToolUseId != nil {
				result.ToolUseId = *block.ToolUseId
			}
			if block.IsError != nil && *block.IsError {
				result.Status = "error"
			}
			toolResults = append(toolResults, result)
		}
	}

	return UserContent{Text: strings.Join(texts, "\n"), ToolResults: toolResults}
}

// ExtractAssistantContent 提取助手消息的文本与工具调用，工具名经sanitizer重写
func ExtractAssistantContent(content any, sanitizer *ToolNameSanitizer) AssistantContent {
	if s, ok := content.(string); ok {
		return AssistantContent{Text: s}
	}

	blocks := normalizeBlocks(content)
	if blocks == nil {
		return AssistantContent{}
	}

	var thinking strings.Builder
	var texts []string
	var toolUses []types.ToolUse
	for _, block := range blocks {
		switch block.Type {
		case "thinking":
			if block.Thinking != nil {
				thinking.WriteString(*block.Thinking)
			}
		case "text":
			if block.Text != nil {
				texts = append(texts, *block.Text)
			}
		case "tool_use":
			if block.Name == nil || IsUnsupportedTool(*block.Name) {
				continue
			}
			use := types.ToolUse{
				Name:  sanitizer.Sanitize(*block.Name),
				Input: map[string]any{},
			}
			if block.ID != nil {
				use.ToolUseId = *block.ID
			}
			if block.Input != nil {
				use.Input = CoerceJSONObject(*block.Input)
			}
			toolUses = append(toolUses, use)
		}
	}

	joined := strings.Join(texts, "\n")
	var text string
	switch {
	case thinking.Len() > 0 && joined != "":
		text = "<thinking>" + thinking.String() + "</thinking>\n\n" + joined
	case thinking.Len() > 0:
		text = "<thinking>" + thinking.String() + "</thinking>"
	default:
		text = joined
	}
	if text == "" && len(toolUses) > 0 {
		text = config.FillerAssistantText
	}

	return AssistantContent{Text: text, ToolUses: toolUses}
}

// CoerceJSONObject 将任意值规整为JSON对象，字符串尝试解析，其余形态得到空对象
func CoerceJSONObject(v any) map[string]any {
	switch value := v.(type) {
	case map[string]any:
		return value
	case string:
		var parsed map[string]any
		if err := utils.FastUnmarshal([]byte(value), &parsed); err != nil || parsed == nil {
			return map[string]any{}
		}
		return parsed
	default:
		return map[string]any{}
	}
}

// coerceResultText 将tool_result的content规整为字符串
func coerceResultText(content any) string {
	switch v := content.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		blocks := normalizeBlocks(content)
		if blocks == nil {
			return ""
		}
		var texts []string
		for _, block := range blocks {
			if block.Type == "text" && block.Text != nil {
				texts = append(texts, *block.Text)
			}
		}
		return strings.Join(texts, "\n")
	}
}

// normalizeBlocks 将多态content规整为内容块序列，无法识别时返回nil
func normalizeBlocks(content any) []types.ContentBlock {
	switch v := content.(type) {
	case []types.ContentBlock:
		return v
	case []any:
		blocks := make([]types.ContentBlock, 0, len(v))
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			blocks = append(blocks, blockFromMap(m))
		}
		return blocks
	default:
		return nil
	}
}

// blockFromMap 从解码后的map构造内容块
func blockFromMap(m map[string]any) types.ContentBlock {
	block := types.ContentBlock{}
	if t, ok := m["type"].(string); ok {
		block.Type = t
	}
	if text, ok := m["text"].(string); ok {
		block.Text = &text
	}
	if thinking, ok := m["thinking"].(string); ok {
		block.Thinking = &thinking
	}
	if id, ok := m["id"].(string); ok {
		block.ID = &id
	}
	if name, ok := m["name"].(string); ok {
		block.Name = &name
	}
	if toolUseID, ok := m["tool_use_id"].(string); ok {
		block.ToolUseId = &toolUseID
	}
	if isError, ok := m["is_error"].(bool); ok {
		block.IsError = &isError
	}
	if input, ok := m["input"]; ok {
		block.Input = &input
	}
	if content, ok := m["content"]; ok {
		block.Content = content
	}
	return block
}
