package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"kirogate/logger"
	"kirogate/types"

	_ "github.com/go-sql-driver/mysql"
)

// 建表语句，服务启动时幂等执行
const schema = `
CREATE TABLE IF NOT EXISTS request_logs (
  id VARCHAR(64) PRIMARY KEY,
  ts TIMESTAMP NOT NULL,
  account_id VARCHAR(64) NOT NULL,
  account_name VARCHAR(255) NOT NULL DEFAULT '',
  model VARCHAR(255) NOT NULL,
  model_id VARCHAR(255) NOT NULL,
  conversation_id VARCHAR(64) NOT NULL DEFAULT '',
  success TINYINT(1) NOT NULL,
  status_code INT NOT NULL DEFAULT 0,
  error_message TEXT,
  duration_ms BIGINT NOT NULL DEFAULT 0,
  INDEX idx_request_logs_ts (ts),
  INDEX idx_request_logs_account (account_id),
  INDEX idx_request_logs_model (model),
  INDEX idx_request_logs_success (success)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;

CREATE TABLE IF NOT EXISTS model_mappings (
  id BIGINT AUTO_INCREMENT PRIMARY KEY,
  pattern VARCHAR(255) NOT NULL,
  internal_id VARCHAR(255) NOT NULL,
  match_type VARCHAR(32) NOT NULL DEFAULT 'exact',
  priority INT NOT NULL DEFAULT 0,
  enabled TINYINT(1) NOT NULL DEFAULT 1,
  INDEX idx_model_mappings_pattern (pattern)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;
`

// Store 基于MySQL的请求日志与模型映射存储
type Store struct {
	db *sql.DB
}

// Open 连接MySQL并确保表结构存在
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("打开MySQL连接失败: %w", err)
	}
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("MySQL连接探测失败: %w", err)
	}

	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("初始化表结构失败: %w", err)
		}
	}

	return &Store{db: db}, nil
}

// Close 关闭底层连接
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertLog 写入一条请求审计记录
func (s *Store) InsertLog(ctx context.Context, row types.RequestLogRow) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO request_logs
		 (id, ts, account_id, account_name, model, model_id, conversation_id, success, status_code, error_message, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.Timestamp, row.AccountID, row.AccountName,
		row.Model, row.ModelID, row.ConversationID,
		row.Success, row.StatusCode, row.ErrorMessage, row.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("写入请求日志失败: %w", err)
	}
	return nil
}

// FindMapping 按优先级返回首条命中的启用规则
func (s *Store) FindMapping(clientModel string) (*types.ModelMappingRule, bool) {
	label := strings.ToLower(clientModel)
	rows, err := s.db.Query(
		`SELECT pattern, internal_id, match_type, priority, enabled
		 FROM model_mappings WHERE enabled = 1 ORDER BY priority DESC, id ASC`)
	if err != nil {
		logger.Error("查询模型映射失败", logger.Err(err))
		return nil, false
	}
	defer rows.Close()

	for rows.Next() {
		var rule types.ModelMappingRule
		if err := rows.Scan(&rule.Pattern, &rule.InternalID, &rule.MatchType, &rule.Priority, &rule.Enabled); err != nil {
			logger.Error("读取模型映射行失败", logger.Err(err))
			return nil, false
		}
		if matchPattern(rule, label) {
			return &rule, true
		}
	}
	return nil, false
}

func matchPattern(rule types.ModelMappingRule, label string) bool {
	pattern := strings.ToLower(rule.Pattern)
	switch rule.MatchType {
	case types.MatchExact:
		return label == pattern
	case types.MatchPrefix:
		return strings.HasPrefix(label, pattern)
	case types.MatchContains:
		return strings.Contains(label, pattern)
	default:
		return false
	}
}
