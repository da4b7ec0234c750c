package transform

import (
	"errors"
	"fmt"
)

// 流水线自身产生的错误码。
const (
	CodePayloadRead = "PAYLOAD_READ_FAILED"
)

// MessageInternal 是缺少可用源码位置时的脱敏消息。
const MessageInternal = "Internal transform error"

var (
	// ErrPayloadRead 表示流式正文在读完前失败。
	ErrPayloadRead = errors.New("transform: read payload")
	// ErrNoPayload 表示 Materialize 收到了 BodyNone。
	ErrNoPayload = errors.New("transform: no payload")
)

// Location 指向出错的源码位置：Line 从 1 开始，Column 从 0 开始。
type Location struct {
	Line   int
	Column int
}

func (l *Location) valid() bool {
	return l != nil && l.Line >= 1 && l.Column >= 0
}

// Error 是交给响应链路的结构化错误。
type Error struct {
	Code     string
	Message  string
	Location *Location
	// Err 为底层错误，脱敏后的错误不携带。
	Err error
}

// NewError 以错误码、消息与可选位置构造 Error。
func NewError(code, message string, loc *Location) *Error {
	return &Error{Code: code, Message: message, Location: loc}
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Mask 基于 err 构造新的对外错误：保留 *Error 的错误码与位置，丢弃消息与底层错误。
func Mask(err error) *Error {
	if err == nil {
		return nil
	}
	var te *Error
	if !errors.As(err, &te) {
		return NewError("", MessageInternal, nil)
	}
	masked := &Error{Code: te.Code, Message: MaskedMessage(te.Code, te.Location)}
	if te.Location.valid() {
		loc := *te.Location
		masked.Location = &loc
	}
	return masked
}

// MaskedMessage 根据错误码与位置生成脱敏消息。
func MaskedMessage(code string, loc *Location) string {
	if code == "" || !loc.valid() {
		return MessageInternal
	}
	return fmt.Sprintf("Transform error %s at line %d, column %d.", code, loc.Line, loc.Column)
}

// ErrorCode 提取 err 携带的错误码，没有时返回空串。
func ErrorCode(err error) string {
	var te *Error
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}
