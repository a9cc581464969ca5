package types

// KiroRequest 表示上游 generateAssistantResponse 的请求结构
type KiroRequest struct {
	ConversationState ConversationState `json:"conversationState"`
	ProfileArn        string            `json:"profileArn,omitempty"`
}

// ConversationState 表示上游会话状态信封
type ConversationState struct {
	ChatTriggerType     string         `json:"chatTriggerType"`
	ConversationId      string         `json:"conversationId"`
	AgentContinuationId string         `json:"agentContinuationId"`
	AgentTaskType       string         `json:"agentTaskType"`
	CurrentMessage      CurrentMessage `json:"currentMessage"`
	History             []HistoryEntry `json:"history"`
}

// CurrentMessage 表示当前驱动回复的用户消息
type CurrentMessage struct {
	UserInputMessage UserInputMessage `json:"userInputMessage"`
}

// HistoryEntry 表示历史记录中的一条消息，两个字段有且只有一个非空
type HistoryEntry struct {
	UserInputMessage         *UserInputMessage         `json:"userInputMessage,omitempty"`
	AssistantResponseMessage *AssistantResponseMessage `json:"assistantResponseMessage,omitempty"`
}

// UserInputMessage 表示上游的用户输入消息
type UserInputMessage struct {
	Content                 string                   `json:"content"`
	ModelId                 string                   `json:"modelId"`
	Origin                  string                   `json:"origin"`
	UserInputMessageContext *UserInputMessageContext `json:"userInputMessageContext,omitempty"`
}

// UserInputMessageContext 携带工具定义与工具结果
type UserInputMessageContext struct {
	Tools       []KiroTool   `json:"tools,omitempty"`
	ToolResults []ToolResult `json:"toolResults,omitempty"`
}

// AssistantResponseMessage 表示上游的助手回复消息
type AssistantResponseMessage struct {
	Content  string    `json:"content"`
	ToolUses []ToolUse `json:"toolUses,omitempty"`
}

// ToolUse 表示助手消息中的一次工具调用
type ToolUse struct {
	ToolUseId string         `json:"toolUseId"`
	Name      string         `json:"name"`
	Input     map[string]any `json:"input"`
}

// ToolResult 表示用户消息携带的工具执行结果
type ToolResult struct {
	ToolUseId string              `json:"toolUseId"`
	Status    string              `json:"status"`
	Content   []ToolResultContent `json:"content"`
}

// ToolResultContent 工具结果的文本内容
type ToolResultContent struct {
	Text string `json:"text"`
}

// KiroTool 表示上游工具结构
type KiroTool struct {
	ToolSpecification ToolSpecification `json:"toolSpecification"`
}

// ToolSpecification 表示工具规范的结构
type ToolSpecification struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

// InputSchema 表示工具输入模式的结构
type InputSchema struct {
	Json map[string]any `json:"json"`
}
