package types

// AnthropicTool 表示客户端请求中的工具定义
type AnthropicTool struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	InputSchema any    `json:"input_schema,omitempty"`
}

// ToolChoice 表示客户端的工具选择策略
type ToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// Thinking 表示思考模式配置
type Thinking struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens,omitempty"`
}

// AnthropicRequest 表示客户端发来的消息请求
type AnthropicRequest struct {
	Model       string           `json:"model"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	System      any              `json:"system,omitempty"` // string 或 []ContentBlock
	Messages    []RequestMessage `json:"messages"`
	Tools       []AnthropicTool  `json:"tools,omitempty"`
	ToolChoice  *ToolChoice      `json:"tool_choice,omitempty"`
	Thinking    *Thinking        `json:"thinking,omitempty"`
	Stream      bool             `json:"stream,omitempty"`
	Temperature *float64         `json:"temperature,omitempty"`
	Metadata    map[string]any   `json:"metadata,omitempty"`
}

// RequestMessage 表示请求中的单条消息
type RequestMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string 或 []ContentBlock
}

// ContentBlock 表示消息内容块的结构
type ContentBlock struct {
	Type      string  `json:"type"`
	Text      *string `json:"text,omitempty"`
	Thinking  *string `json:"thinking,omitempty"`
	ToolUseId *string `json:"tool_use_id,omitempty"`
	Content   any     `json:"content,omitempty"` // tool_result的内容，string 或 []any
	Name      *string `json:"name,omitempty"`
	Input     *any    `json:"input,omitempty"`
	ID        *string `json:"id,omitempty"`
	IsError   *bool   `json:"is_error,omitempty"`
}
