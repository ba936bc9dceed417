// Package errs 定义了仿真流程中各阶段共用的错误类型。
package errs

import (
	"errors"
	"fmt"
)

// Kind 错误类别
type Kind string

const (
	// ProcessUnavailable 求解器可执行文件缺失或无法启动（批处理致命）
	ProcessUnavailable Kind = "PROCESS_UNAVAILABLE"
	// NoResult 输出流在出现JSON结果之前关闭（可重试一次）
	NoResult Kind = "NO_RESULT"
	// MalformedResult JSON结果缺少矩阵键或矩阵形状不正确
	MalformedResult Kind = "MALFORMED_RESULT"
	// SingularLineMatrix 单位长度矩阵退化（奇异或零长度）
	SingularLineMatrix Kind = "SINGULAR_LINE_MATRIX"
	// SingularNetwork 网络级联或端接时互连矩阵奇异
	SingularNetwork Kind = "SINGULAR_NETWORK"
	// PortCountMismatch 组合网络端口数或频率轴不一致
	PortCountMismatch Kind = "PORT_COUNT_MISMATCH"
	// TerminationCountMismatch 端接描述数量与端口数不一致
	TerminationCountMismatch Kind = "TERMINATION_COUNT_MISMATCH"
	// InvalidInput 参数校验失败
	InvalidInput Kind = "INVALID_INPUT"
	// Io 文件读写错误
	Io Kind = "IO_ERROR"
)

// Error 带类别与上下文的错误
type Error struct {
	Kind    Kind           `json:"kind"`
	Message string         `json:"message"`
	Cause   error          `json:"-"`
	Context map[string]any `json:"context,omitempty"`
}

// Error 实现 error 接口
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap 返回底层错误
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext 附加上下文信息
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// New 创建错误
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap 包装底层错误
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf 返回错误链中第一个 *Error 的类别，不存在时返回空字符串
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind 判断错误链中是否包含指定类别
func IsKind(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Cause
	}
	return false
}

// Retryable 只有 NoResult 允许在新的求解器进程上重试
func Retryable(err error) bool {
	return IsKind(err, NoResult)
}
