package types

import "time"

// RequestLogRow 一次上游调用的审计记录
type RequestLogRow struct {
	ID             string        `json:"id"`
	Timestamp      time.Time     `json:"timestamp"`
	AccountID      string        `json:"accountId"`
	AccountName    string        `json:"accountName"`
	Model          string        `json:"model"`
	ModelID        string        `json:"modelId"`
	ConversationID string        `json:"conversationId"`
	Success        bool          `json:"success"`
	StatusCode     int           `json:"statusCode"`
	ErrorMessage   string        `json:"errorMessage,omitempty"`
	Duration       time.Duration `json:"duration"`
}
