package converter

import (
	"errors"
	"fmt"
	"strings"

	"kirogate/config"
	"kirogate/types"
	"kirogate/utils"

	"github.com/google/uuid"
)

// ErrEmptyMessages 请求未携带任何消息
var ErrEmptyMessages = errors.New("消息列表为空")

// TranslationResult 一次翻译的产物
type TranslationResult struct {
	Request *types.KiroRequest
	// NameMap 清洗名到原始名的映射，供响应侧还原工具名
	NameMap map[string]string
	ModelID string
}

// Translator 将客户端请求翻译为上游会话状态信封
type Translator struct {
	mapper *ModelMapper
}

// NewTranslator 创建请求翻译器
func NewTranslator(mapper *ModelMapper) *Translator {
	return &Translator{mapper: mapper}
}

// Translate 执行一次完整翻译，profileArn来自选中账号的凭证
func (t *Translator) Translate(req *types.AnthropicRequest, profileArn string) (*TranslationResult, error) {
	if len(req.Messages) == 0 {
		return nil, ErrEmptyMessages
	}

	modelID, err := t.mapper.Map(req.Model)
	if err != nil {
		return nil, err
	}

	// 当前窗口为末尾连续的用户消息
	windowStart := len(req.Messages)
	for windowStart > 0 && req.Messages[windowStart-1].Role == "user" {
		windowStart--
	}
	historyEnd := windowStart
	endsWithAssistant := false
	if windowStart == len(req.Messages) {
		endsWithAssistant = true
	}

	thinkingPrefix := buildThinkingPrefix(req.Thinking)
	sanitizer := NewToolNameSanitizer()

	var history []types.HistoryEntry

	// 系统提示注入
	systemText := coerceSystemText(req.System)
	if systemText != "" {
		content := systemText
		if thinkingPrefix != "" &&
			!strings.Contains(systemText, "<thinking_mode>") &&
			!strings.Contains(systemText, "<max_thinking_length>") {
			content = thinkingPrefix + "\n" + systemText
		}
		history = appendSystemPair(history, content, modelID)
	} else if thinkingPrefix != "" {
		history = appendSystemPair(history, thinkingPrefix, modelID)
	}

	// 历史遍历，挂起的用户消息按合并规则成对输出
	var pendingUsers []types.RequestMessage
	for _, msg := range req.Messages[:historyEnd] {
		switch msg.Role {
		case "user":
			pendingUsers = append(pendingUsers, msg)
		case "assistant":
			if len(pendingUsers) > 0 {
				history = append(history, types.HistoryEntry{UserInputMessage: mergeUserMessages(pendingUsers, modelID)})
				pendingUsers = nil
			}
			extracted := ExtractAssistantContent(msg.Content, sanitizer)
			history = append(history, types.HistoryEntry{AssistantResponseMessage: &types.AssistantResponseMessage{
				Content:  extracted.Text,
				ToolUses: extracted.ToolUses,
			}})
		}
	}
	if len(pendingUsers) > 0 {
		history = append(history, types.HistoryEntry{UserInputMessage: mergeUserMessages(pendingUsers, modelID)})
		history = append(history, types.HistoryEntry{AssistantResponseMessage: &types.AssistantResponseMessage{
			Content: config.FillerAssistantText,
		}})
		pendingUsers = nil
	}

	// 当前消息
	current := types.UserInputMessage{
		ModelId: modelID,
		Origin:  config.OriginAIEditor,
	}
	var currentResults []types.ToolResult
	if endsWithAssistant {
		current.Content = config.ContinueText
	} else {
		var texts []string
		for _, msg := range req.Messages[windowStart:] {
			extracted := ExtractUserContent(msg.Content)
			if extracted.Text != "" {
				texts = append(texts, extracted.Text)
			}
			currentResults = append(currentResults, extracted.ToolResults...)
		}
		current.Content = strings.Join(texts, "\n")
		if current.Content == "" {
			current.Content = config.ContinueText
		}
	}

	// 工具定义
	var kiroTools []types.KiroTool
	for _, tool := range req.Tools {
		if IsUnsupportedTool(tool.Name) {
			continue
		}
		kiroTools = append(kiroTools, types.KiroTool{ToolSpecification: types.ToolSpecification{
			Name:        sanitizer.Sanitize(tool.Name),
			Description: utils.TruncateString(tool.Description, config.ToolDescriptionMaxLen),
			InputSchema: types.InputSchema{Json: CoerceJSONObject(tool.InputSchema)},
		}})
	}

	if len(kiroTools) > 0 || len(currentResults) > 0 {
		current.UserInputMessageContext = &types.UserInputMessageContext{
			Tools:       kiroTools,
			ToolResults: currentResults,
		}
	}

	trigger := config.TriggerManual
	if len(kiroTools) > 0 && req.ToolChoice != nil &&
		(req.ToolChoice.Type == "any" || req.ToolChoice.Type == "tool") {
		trigger = config.TriggerAuto
	}

	kiroReq := &types.KiroRequest{
		ConversationState: types.ConversationState{
			ChatTriggerType:     trigger,
			ConversationId:      uuid.NewString(),
			AgentContinuationId: uuid.NewString(),
			AgentTaskType:       config.AgentTaskTypeVibe,
			CurrentMessage:      types.CurrentMessage{UserInputMessage: current},
			History:             history,
		},
		ProfileArn: profileArn,
	}

	return &TranslationResult{
		Request: kiroReq,
		NameMap: sanitizer.NameMap(),
		ModelID: modelID,
	}, nil
}

// buildThinkingPrefix 构造思考模式前缀，未启用时返回空串
func buildThinkingPrefix(thinking *types.Thinking) string {
	if thinking == nil || thinking.Type != "enabled" {
		return ""
	}
	budget := thinking.BudgetTokens
	if budget <= 0 {
		budget = config.ThinkingDefaultBudget
	}
	return fmt.Sprintf("<thinking_mode>enabled</thinking_mode><max_thinking_length>%d</max_thinking_length>", budget)
}

// coerceSystemText 将system字段规整为字符串，非文本块被丢弃
func coerceSystemText(system any) string {
	if system == nil {
		return ""
	}
	if s, ok := system.(string); ok {
		return s
	}
	return ExtractText(system)
}

// appendSystemPair 注入系统提示的用户/助手对
func appendSystemPair(history []types.HistoryEntry, content, modelID string) []types.HistoryEntry {
	history = append(history, types.HistoryEntry{UserInputMessage: &types.UserInputMessage{
		Content: content,
		ModelId: modelID,
		Origin:  config.OriginAIEditor,
	}})
	history = append(history, types.HistoryEntry{AssistantResponseMessage: &types.AssistantResponseMessage{
		Content: config.SystemAckText,
	}})
	return history
}

// mergeUserMessages 按合并规则将连续用户消息折叠为一条userInputMessage
func mergeUserMessages(messages []types.RequestMessage, modelID string) *types.UserInputMessage {
	var texts []string
	var toolResults []types.ToolResult
	for _, msg := range messages {
		extracted := ExtractUserContent(msg.Content)
		if extracted.Text != "" {
			texts = append(texts, extracted.Text)
		}
		toolResults = append(toolResults, extracted.ToolResults...)
	}

	content := strings.Join(texts, "\n")
	if content == "" && len(toolResults) > 0 {
		content = config.ContinueText
	}

	merged := &types.UserInputMessage{
		Content: content,
		ModelId: modelID,
		Origin:  config.OriginAIEditor,
	}
	if len(toolResults) > 0 {
		merged.UserInputMessageContext = &types.UserInputMessageContext{ToolResults: toolResults}
	}
	return merged
}
