package errorx

import (
	"errors"
	"fmt"
	"net/http"
)

// CodeError 带业务错误码的错误
// 支持 %w 包装底层错误，可被 errors.Is/errors.As 识别
type CodeError struct {
	Code  int    // 业务错误码
	Msg   string // 对外可见的错误消息
	cause error  // 被包装的底层错误
}

// Error 存在底层错误时返回 "消息: 底层错误"，否则仅返回消息
func (e *CodeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.cause)
	}
	return e.Msg
}

// Unwrap 支持 errors.Is/errors.As 向下追溯
func (e *CodeError) Unwrap() error {
	return e.cause
}

// New 创建一个新的 CodeError
func New(code int, msg string) *CodeError {
	return &CodeError{
		Code: code,
		Msg:  msg,
	}
}

// Newf 创建一个带格式化消息的 CodeError
func Newf(code int, format string, args ...any) *CodeError {
	return &CodeError{
		Code: code,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// Wrap 包装底层错误，添加业务错误码和消息
// 用法: errorx.Wrap(err, CodeNotFound, "Message not found")
func Wrap(err error, code int, msg string) *CodeError {
	return &CodeError{
		Code:  code,
		Msg:   msg,
		cause: err,
	}
}

// Wrapf 包装底层错误，支持格式化消息
func Wrapf(err error, code int, format string, args ...any) *CodeError {
	return &CodeError{
		Code:  code,
		Msg:   fmt.Sprintf(format, args...),
		cause: err,
	}
}

// GetCode 从错误中提取业务错误码，如果不是 CodeError 则返回 CodeServerBusy
func GetCode(err error) int {
	var codeErr *CodeError
	if errors.As(err, &codeErr) {
		return codeErr.Code
	}
	return CodeServerBusy
}

// GetMsg 返回可以直接展示给客户端的消息
// 非 CodeError 的内部错误统一返回 fallback，避免泄露实现细节
func GetMsg(err error, fallback string) string {
	var codeErr *CodeError
	if errors.As(err, &codeErr) {
		return codeErr.Msg
	}
	return fallback
}

// 业务状态码
//
// 网关层的错误分类与状态码对应关系：
//   - 认证错误   CodeUnauthorized
//   - 校验错误   CodeInvalidParam
//   - 资源不存在 CodeNotFound
//   - 传输错误   CodeTransportError
const (
	CodeSuccess        = 1000 // 成功
	CodeInvalidParam   = 1001 // 请求参数错误
	CodeServerBusy     = 1005 // 服务繁忙
	CodeUnauthorized   = 1006 // 未授权/认证失败
	CodeForbidden      = 1007 // 无权限
	CodeNotFound       = 1008 // 资源不存在
	CodeDBError        = 1010 // 数据库错误
	CodeCacheError     = 1011 // 缓存错误
	CodeTransportError = 1012 // 推送/消息队列错误
)

// 预定义常用错误实例
var (
	ErrInvalidParam = New(CodeInvalidParam, "Invalid request parameters")
	ErrServerBusy   = New(CodeServerBusy, "Server busy")
	ErrUnauthorized = New(CodeUnauthorized, "Unauthorized")
	ErrForbidden    = New(CodeForbidden, "Forbidden")
)

// IsNotFound 检查错误是否为"未找到"类型（包括 gorm.ErrRecordNotFound）
func IsNotFound(err error) bool {
	var codeErr *CodeError
	if errors.As(err, &codeErr) && codeErr.Code == CodeNotFound {
		return true
	}
	return err != nil && err.Error() == "record not found"
}

// IsValidation 检查错误是否为参数校验错误
func IsValidation(err error) bool {
	return GetCode(err) == CodeInvalidParam
}

// IsClientError 错误原因在调用方（参数、鉴权、权限、资源不存在），消息可以原样返回
func IsClientError(err error) bool {
	switch GetCode(err) {
	case CodeInvalidParam, CodeUnauthorized, CodeForbidden, CodeNotFound:
		return true
	}
	return false
}

// HTTPStatus 业务码对应的 HTTP 状态码
func HTTPStatus(code int) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
