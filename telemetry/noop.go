package telemetry

import (
	"context"

	"kirogate/types"
)

// NoopSink 未配置数据库时的空日志汇
type NoopSink struct{}

// InsertLog 丢弃记录
func (NoopSink) InsertLog(ctx context.Context, row types.RequestLogRow) error {
	return nil
}
