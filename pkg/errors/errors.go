// Package errors 提供统一的错误定义
package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误 (1xxx)
	CodeSuccess       ErrorCode = "0"
	CodeUnknown       ErrorCode = "1000"
	CodeInvalidParam  ErrorCode = "1001"
	CodeNotFound      ErrorCode = "1002"
	CodeConflict      ErrorCode = "1003"
	CodeInternalError ErrorCode = "1004"
	CodeCanceled      ErrorCode = "1005"

	// 资源错误 (2xxx)
	CodeRunNotFound ErrorCode = "2001"

	// 生成错误 (3xxx)
	CodeCredentialMissing  ErrorCode = "3001"
	CodeTimeout            ErrorCode = "3002"
	CodeProviderError      ErrorCode = "3003"
	CodeMalformedResponse  ErrorCode = "3004"
	CodeEmptyResponse      ErrorCode = "3005"
	CodeAllProvidersFailed ErrorCode = "3006"

	// 导出错误 (4xxx)
	CodeConversionError ErrorCode = "4001"
)

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail 添加详细信息
func (e *AppError) WithDetail(detail string) *AppError {
	e.Detail = detail
	return e
}

// WithError 添加底层错误
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

// codeToHTTPStatus 错误码转 HTTP 状态码
func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam:
		return http.StatusBadRequest
	case CodeNotFound, CodeRunNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeCanceled:
		// nginx 约定的 client closed request
		return 499
	case CodeCredentialMissing, CodeProviderError, CodeMalformedResponse, CodeEmptyResponse:
		return http.StatusBadGateway
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeAllProvidersFailed:
		return http.StatusServiceUnavailable
	case CodeConversionError:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误
var (
	ErrInvalidParam  = New(CodeInvalidParam, "invalid parameter")
	ErrNotFound      = New(CodeNotFound, "resource not found")
	ErrConflict      = New(CodeConflict, "resource conflict")
	ErrInternalError = New(CodeInternalError, "internal server error")

	ErrRunNotFound = New(CodeRunNotFound, "generation run not found")
)

// CredentialMissing 指定后端未配置凭证
func CredentialMissing(provider string) *AppError {
	return New(CodeCredentialMissing, fmt.Sprintf("no credential configured for provider %s", provider))
}

// Timeout 调用超出截止时间
func Timeout(op string, err error) *AppError {
	return Wrap(err, CodeTimeout, fmt.Sprintf("%s exceeded deadline", op))
}

// Canceled 调用方主动取消
func Canceled(op string, err error) *AppError {
	return Wrap(err, CodeCanceled, fmt.Sprintf("%s canceled", op))
}

// ProviderError 后端返回非成功响应
func ProviderError(provider string, err error) *AppError {
	return Wrap(err, CodeProviderError, fmt.Sprintf("provider %s returned an error", provider))
}

// MalformedResponse 结构化输出解析失败
func MalformedResponse(provider string, err error) *AppError {
	return Wrap(err, CodeMalformedResponse, fmt.Sprintf("provider %s returned unparsable output", provider))
}

// EmptyResponse 后端返回空文本
func EmptyResponse(provider string) *AppError {
	return New(CodeEmptyResponse, fmt.Sprintf("provider %s returned empty text", provider))
}

// ConversionError 文档转换失败
func ConversionError(format string, err error) *AppError {
	return Wrap(err, CodeConversionError, fmt.Sprintf("%s conversion failed", format))
}

// IsAppError 检查是否为 AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}

// CodeOf 提取错误码；非 AppError 返回 CodeUnknown
func CodeOf(err error) ErrorCode {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return CodeUnknown
}
