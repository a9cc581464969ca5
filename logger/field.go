package logger

import "time"

// Field 结构化日志字段
type Field struct {
	Key   string
	Value any
}

// String 创建字符串类型字段
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int 创建整数类型字段
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Int64 创建int64类型字段
func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

// Float64 创建浮点数类型字段
func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

// Bool 创建布尔类型字段
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Duration 创建时间间隔类型字段
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// Err 创建错误类型字段
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Any 创建任意类型字段
func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}
