package converter

import (
	"strings"
	"testing"

	"kirogate/config"
	"kirogate/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTranslator() *Translator {
	return NewTranslator(NewModelMapper(nil))
}

func simpleRequest(messages ...types.RequestMessage) *types.AnthropicRequest {
	return &types.AnthropicRequest{
		Model:    "claude-sonnet-4-20250514",
		Messages: messages,
	}
}

func TestTranslateEmptyMessages(t *testing.T) {
	tr := newTestTranslator()
	_, err := tr.Translate(&types.AnthropicRequest{Model: "claude-sonnet-4-20250514"}, "")
	assert.ErrorIs(t, err, ErrEmptyMessages)
}

func TestTranslateUnsupportedModel(t *testing.T) {
	tr := newTestTranslator()
	req := &types.AnthropicRequest{
		Model:    "gpt-4o",
		Messages: []types.RequestMessage{{Role: "user", Content: "hi"}},
	}
	_, err := tr.Translate(req, "")
	assert.ErrorIs(t, err, ErrUnsupportedModel)
}

func TestTranslateSingleUserMessage(t *testing.T) {
	tr := newTestTranslator()
	result, err := tr.Translate(simpleRequest(
		types.RequestMessage{Role: "user", Content: "你好"},
	), "arn:aws:profile/test")
	require.NoError(t, err)

	state := result.Request.ConversationState
	assert.Equal(t, "你好", state.CurrentMessage.UserInputMessage.Content)
	assert.Equal(t, "CLAUDE_SONNET_4_20250514_V1_0", state.CurrentMessage.UserInputMessage.ModelId)
	assert.Equal(t, config.OriginAIEditor, state.CurrentMessage.UserInputMessage.Origin)
	assert.Empty(t, state.History, "单条用户消息不应产生历史")
	assert.Equal(t, config.TriggerManual, state.ChatTriggerType)
	assert.Equal(t, config.AgentTaskTypeVibe, state.AgentTaskType)
	assert.NotEmpty(t, state.ConversationId)
	assert.NotEmpty(t, state.AgentContinuationId)
	assert.Equal(t, "arn:aws:profile/test", result.Request.ProfileArn)
	assert.Equal(t, "CLAUDE_SONNET_4_20250514_V1_0", result.ModelID)
}

func TestTranslateFreshConversationIDs(t *testing.T) {
	tr := newTestTranslator()
	req := simpleRequest(types.RequestMessage{Role: "user", Content: "你好"})

	first, err := tr.Translate(req, "")
	require.NoError(t, err)
	second, err := tr.Translate(req, "")
	require.NoError(t, err)

	assert.NotEqual(t,
		first.Request.ConversationState.ConversationId,
		second.Request.ConversationState.ConversationId,
		"每次翻译应生成新的会话ID")
}

func TestTranslateSystemPair(t *testing.T) {
	tr := newTestTranslator()
	req := simpleRequest(types.RequestMessage{Role: "user", Content: "你好"})
	req.System = "你是一个助手"

	result, err := tr.Translate(req, "")
	require.NoError(t, err)

	history := result.Request.ConversationState.History
	require.Len(t, history, 2, "系统提示应展开为一对历史消息")
	require.NotNil(t, history[0].UserInputMessage)
	assert.Equal(t, "你是一个助手", history[0].UserInputMessage.Content)
	require.NotNil(t, history[1].AssistantResponseMessage)
	assert.Equal(t, config.SystemAckText, history[1].AssistantResponseMessage.Content)
}

func TestTranslateThinkingPrefix(t *testing.T) {
	tr := newTestTranslator()

	t.Run("有系统提示时前缀拼在系统文本前", func(t *testing.T) {
		req := simpleRequest(types.RequestMessage{Role: "user", Content: "你好"})
		req.System = "你是一个助手"
		req.Thinking = &types.Thinking{Type: "enabled", BudgetTokens: 4096}

		result, err := tr.Translate(req, "")
		require.NoError(t, err)

		history := result.Request.ConversationState.History
		require.Len(t, history, 2)
		content := history[0].UserInputMessage.Content
		assert.True(t, strings.HasPrefix(content,
			"<thinking_mode>enabled</thinking_mode><max_thinking_length>4096</max_thinking_length>\n"),
			"思考前缀应出现在系统文本之前: %s", content)
		assert.Contains(t, content, "你是一个助手")
	})

	t.Run("无系统提示时前缀独立成对", func(t *testing.T) {
		req := simpleRequest(types.RequestMessage{Role: "user", Content: "你好"})
		req.Thinking = &types.Thinking{Type: "enabled"}

		result, err := tr.Translate(req, "")
		require.NoError(t, err)

		history := result.Request.ConversationState.History
		require.Len(t, history, 2)
		assert.Equal(t,
			"<thinking_mode>enabled</thinking_mode><max_thinking_length>10000</max_thinking_length>",
			history[0].UserInputMessage.Content, "未给预算时使用默认值")
	})

	t.Run("系统文本已含标记时不重复注入", func(t *testing.T) {
		req := simpleRequest(types.RequestMessage{Role: "user", Content: "你好"})
		req.System = "<thinking_mode>enabled</thinking_mode>已配置"
		req.Thinking = &types.Thinking{Type: "enabled"}

		result, err := tr.Translate(req, "")
		require.NoError(t, err)

		history := result.Request.ConversationState.History
		require.Len(t, history, 2)
		assert.Equal(t, "<thinking_mode>enabled</thinking_mode>已配置",
			history[0].UserInputMessage.Content)
	})

	t.Run("未启用时无前缀", func(t *testing.T) {
		req := simpleRequest(types.RequestMessage{Role: "user", Content: "你好"})
		req.Thinking = &types.Thinking{Type: "disabled"}

		result, err := tr.Translate(req, "")
		require.NoError(t, err)
		assert.Empty(t, result.Request.ConversationState.History)
	})
}

func TestTranslateHistoryAlternation(t *testing.T) {
	tr := newTestTranslator()
	result, err := tr.Translate(simpleRequest(
		types.RequestMessage{Role: "user", Content: "第一问"},
		types.RequestMessage{Role: "assistant", Content: "第一答"},
		types.RequestMessage{Role: "user", Content: "第二问"},
	), "")
	require.NoError(t, err)

	state := result.Request.ConversationState
	require.Len(t, state.History, 2)
	assert.Equal(t, "第一问", state.History[0].UserInputMessage.Content)
	assert.Equal(t, "第一答", state.History[1].AssistantResponseMessage.Content)
	assert.Equal(t, "第二问", state.CurrentMessage.UserInputMessage.Content)
}

func TestTranslateMergesConsecutiveUsers(t *testing.T) {
	tr := newTestTranslator()
	result, err := tr.Translate(simpleRequest(
		types.RequestMessage{Role: "user", Content: "第一句"},
		types.RequestMessage{Role: "user", Content: "第二句"},
		types.RequestMessage{Role: "assistant", Content: "回答"},
		types.RequestMessage{Role: "user", Content: "新问题"},
	), "")
	require.NoError(t, err)

	state := result.Request.ConversationState
	require.Len(t, state.History, 2)
	assert.Equal(t, "第一句\n第二句", state.History[0].UserInputMessage.Content,
		"连续用户消息应按换行合并")
	assert.Equal(t, "新问题", state.CurrentMessage.UserInputMessage.Content)
}

func TestTranslateCurrentWindowMerge(t *testing.T) {
	tr := newTestTranslator()
	result, err := tr.Translate(simpleRequest(
		types.RequestMessage{Role: "user", Content: "历史问题"},
		types.RequestMessage{Role: "assistant", Content: "历史回答"},
		types.RequestMessage{Role: "user", Content: "第一段"},
		types.RequestMessage{Role: "user", Content: "第二段"},
	), "")
	require.NoError(t, err)

	state := result.Request.ConversationState
	require.Len(t, state.History, 2, "当前窗口是末尾全部连续用户消息")
	assert.Equal(t, "第一段\n第二段", state.CurrentMessage.UserInputMessage.Content)
}

func TestTranslateEndsWithAssistant(t *testing.T) {
	tr := newTestTranslator()
	result, err := tr.Translate(simpleRequest(
		types.RequestMessage{Role: "user", Content: "问题"},
		types.RequestMessage{Role: "assistant", Content: "回答到一半"},
	), "")
	require.NoError(t, err)

	state := result.Request.ConversationState
	assert.Equal(t, config.ContinueText, state.CurrentMessage.UserInputMessage.Content,
		"末尾为助手消息时当前消息应为continue")
	require.Len(t, state.History, 2)
	assert.Equal(t, "回答到一半", state.History[1].AssistantResponseMessage.Content)
}

func TestTranslateToolResultsInCurrentWindow(t *testing.T) {
	tr := newTestTranslator()
	result, err := tr.Translate(simpleRequest(
		types.RequestMessage{Role: "user", Content: "查天气"},
		types.RequestMessage{Role: "assistant", Content: []any{
			map[string]any{
				"type": "tool_use", "id": "toolu_01", "name": "get_weather",
				"input": map[string]any{"city": "Beijing"},
			},
		}},
		types.RequestMessage{Role: "user", Content: []any{
			map[string]any{
				"type": "tool_result", "tool_use_id": "toolu_01", "content": "晴",
			},
		}},
	), "")
	require.NoError(t, err)

	state := result.Request.ConversationState
	current := state.CurrentMessage.UserInputMessage
	assert.Equal(t, config.ContinueText, current.Content,
		"只有工具结果没有文本时当前消息为continue")
	require.NotNil(t, current.UserInputMessageContext)
	require.Len(t, current.UserInputMessageContext.ToolResults, 1)
	assert.Equal(t, "toolu_01", current.UserInputMessageContext.ToolResults[0].ToolUseId)

	// 历史中的助手工具调用保留
	require.Len(t, state.History, 2)
	require.Len(t, state.History[1].AssistantResponseMessage.ToolUses, 1)
	assert.Equal(t, "get_weather", state.History[1].AssistantResponseMessage.ToolUses[0].Name)
	assert.Equal(t, config.FillerAssistantText, state.History[1].AssistantResponseMessage.Content)
}

func TestTranslateHistoryUserWithOnlyToolResults(t *testing.T) {
	tr := newTestTranslator()
	result, err := tr.Translate(simpleRequest(
		types.RequestMessage{Role: "user", Content: []any{
			map[string]any{
				"type": "tool_result", "tool_use_id": "toolu_00", "content": "结果",
			},
		}},
		types.RequestMessage{Role: "assistant", Content: "继续"},
		types.RequestMessage{Role: "user", Content: "新问题"},
	), "")
	require.NoError(t, err)

	state := result.Request.ConversationState
	require.Len(t, state.History, 2)
	user := state.History[0].UserInputMessage
	assert.Equal(t, config.ContinueText, user.Content, "仅含工具结果的历史用户消息内容为continue")
	require.NotNil(t, user.UserInputMessageContext)
	assert.Len(t, user.UserInputMessageContext.ToolResults, 1)
}

func TestTranslateToolDefinitions(t *testing.T) {
	tr := newTestTranslator()
	req := simpleRequest(types.RequestMessage{Role: "user", Content: "帮我查询"})
	req.Tools = []types.AnthropicTool{
		{
			Name:        "get weather!",
			Description: "查询天气",
			InputSchema: map[string]any{"type": "object"},
		},
		{Name: "web_search", Description: "搜索"},
	}

	result, err := tr.Translate(req, "")
	require.NoError(t, err)

	current := result.Request.ConversationState.CurrentMessage.UserInputMessage
	require.NotNil(t, current.UserInputMessageContext)
	tools := current.UserInputMessageContext.Tools
	require.Len(t, tools, 1, "不支持的工具应被过滤")
	assert.Equal(t, "get_weather", tools[0].ToolSpecification.Name)
	assert.Equal(t, "查询天气", tools[0].ToolSpecification.Description)
	assert.Equal(t, map[string]any{"type": "object"}, tools[0].ToolSpecification.InputSchema.Json)

	// 名字映射只包含保留的工具
	assert.Equal(t, map[string]string{"get_weather": "get weather!"}, result.NameMap)
}

func TestTranslateToolDescriptionTruncated(t *testing.T) {
	tr := newTestTranslator()
	req := simpleRequest(types.RequestMessage{Role: "user", Content: "查询"})
	req.Tools = []types.AnthropicTool{{
		Name:        "big_tool",
		Description: strings.Repeat("x", config.ToolDescriptionMaxLen+500),
	}}

	result, err := tr.Translate(req, "")
	require.NoError(t, err)

	tools := result.Request.ConversationState.CurrentMessage.UserInputMessage.UserInputMessageContext.Tools
	require.Len(t, tools, 1)
	assert.Len(t, tools[0].ToolSpecification.Description, config.ToolDescriptionMaxLen,
		"超长描述应被截断")
}

func TestTranslateChatTriggerType(t *testing.T) {
	tr := newTestTranslator()

	base := func() *types.AnthropicRequest {
		req := simpleRequest(types.RequestMessage{Role: "user", Content: "查询"})
		req.Tools = []types.AnthropicTool{{Name: "get_weather", Description: "查询天气"}}
		return req
	}

	t.Run("无tool_choice为MANUAL", func(t *testing.T) {
		result, err := tr.Translate(base(), "")
		require.NoError(t, err)
		assert.Equal(t, config.TriggerManual, result.Request.ConversationState.ChatTriggerType)
	})

	t.Run("tool_choice any为AUTO", func(t *testing.T) {
		req := base()
		req.ToolChoice = &types.ToolChoice{Type: "any"}
		result, err := tr.Translate(req, "")
		require.NoError(t, err)
		assert.Equal(t, config.TriggerAuto, result.Request.ConversationState.ChatTriggerType)
	})

	t.Run("tool_choice tool为AUTO", func(t *testing.T) {
		req := base()
		req.ToolChoice = &types.ToolChoice{Type: "tool", Name: "get_weather"}
		result, err := tr.Translate(req, "")
		require.NoError(t, err)
		assert.Equal(t, config.TriggerAuto, result.Request.ConversationState.ChatTriggerType)
	})

	t.Run("工具全被过滤时保持MANUAL", func(t *testing.T) {
		req := simpleRequest(types.RequestMessage{Role: "user", Content: "查询"})
		req.Tools = []types.AnthropicTool{{Name: "web_search"}}
		req.ToolChoice = &types.ToolChoice{Type: "any"}
		result, err := tr.Translate(req, "")
		require.NoError(t, err)
		assert.Equal(t, config.TriggerManual, result.Request.ConversationState.ChatTriggerType)
	})
}

func TestTranslateConsistentToolNamesAcrossHistoryAndDefs(t *testing.T) {
	tr := newTestTranslator()
	req := simpleRequest(
		types.RequestMessage{Role: "user", Content: "查天气"},
		types.RequestMessage{Role: "assistant", Content: []any{
			map[string]any{
				"type": "tool_use", "id": "toolu_01", "name": "get weather!",
				"input": map[string]any{},
			},
		}},
		types.RequestMessage{Role: "user", Content: []any{
			map[string]any{
				"type": "tool_result", "tool_use_id": "toolu_01", "content": "晴",
			},
		}},
	)
	req.Tools = []types.AnthropicTool{{Name: "get weather!", Description: "查询天气"}}

	result, err := tr.Translate(req, "")
	require.NoError(t, err)

	state := result.Request.ConversationState
	historyName := state.History[1].AssistantResponseMessage.ToolUses[0].Name
	defName := state.CurrentMessage.UserInputMessage.UserInputMessageContext.Tools[0].ToolSpecification.Name
	assert.Equal(t, historyName, defName, "同一原始名在历史与定义中必须得到同一清洗名")
	assert.Len(t, result.NameMap, 1)
}
