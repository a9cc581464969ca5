package dispatcher

import (
	"context"

	"kirogate/types"
)

// TokenProvider 为账号提供有效的访问令牌
type TokenProvider interface {
	EnsureValidToken(ctx context.Context, accountID string) (string, error)
}

// LogSink 请求审计记录的写入端
type LogSink interface {
	InsertLog(ctx context.Context, row types.RequestLogRow) error
}

// UsageProbe 账号用量探测端
type UsageProbe interface {
	CheckUsageLimits(ctx context.Context, token string) (*types.UsageSnapshot, error)
}
