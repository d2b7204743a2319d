package engine

import (
	"errors"
	"fmt"
)

// Kind 引擎调用失败的分类
type Kind int

const (
	// KindTransport 连接失败或超时，引擎没有给出响应
	KindTransport Kind = iota + 1
	// KindProtocol 引擎可达，但返回了非 200 状态
	KindProtocol
	// KindMalformed 响应体无法解析
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindProtocol:
		return "protocol"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Error 是引擎调用唯一的错误类型，只由 normalizer 创建。
// Message 可以直接展示给用户；Err 保存底层原因，只用于日志
type Error struct {
	Kind    Kind
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Detail 带上分类和底层原因，日志用
func (e *Error) Detail() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (status=%d): %v", e.Kind, e.Message, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s (status=%d)", e.Kind, e.Message, e.Status)
}

// AsError 从错误链里取出 *Error
func AsError(err error) (*Error, bool) {
	var ee *Error
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}

// IsKind 判断错误链里是否有指定分类的引擎错误
func IsKind(err error, kind Kind) bool {
	ee, ok := AsError(err)
	return ok && ee.Kind == kind
}
