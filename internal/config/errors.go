package config

import "fmt"

// FieldError 提供字段路径与错误原因，便于 CLI 向用户反馈。
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// newFieldError 创建包含字段路径与原因的 error，便于 CLI 定位。
func newFieldError(field, reason string) error {
	return FieldError{Field: field, Reason: reason}
}

// transformField 拼接 Transform 段字段路径，输出 Transform.Field 形式。
func transformField(field string) string {
	return fmt.Sprintf("Transform.%s", field)
}

// cacheField 拼接 Cache 段字段路径，输出 Cache.Field 形式。
func cacheField(field string) string {
	return fmt.Sprintf("Cache.%s", field)
}
