// Package errors 提供统一的错误定义
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误 (1xxx)
	CodeSuccess            ErrorCode = "0"
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeNotFound           ErrorCode = "1004"
	CodeConflict           ErrorCode = "1005"
	CodeTooManyRequests    ErrorCode = "1006"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"

	// 星盘计算错误 (41xx)
	CodeMissingBirthTime     ErrorCode = "4101"
	CodeMissingLocation      ErrorCode = "4102"
	CodeGeocodingFailed      ErrorCode = "4103"
	CodeEphemerisUnavailable ErrorCode = "4104"

	// 编排错误 (42xx)
	CodeEmptyInput          ErrorCode = "4201"
	CodeUpstreamUnavailable ErrorCode = "4202"
	CodeMalformedResponse   ErrorCode = "4203"
	CodeNoValidResponses    ErrorCode = "4204"
	CodeSessionBusy         ErrorCode = "4205"

	// 外部服务错误 (5xxx)
	CodeCacheError ErrorCode = "5002"
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

// Is 按错误码比较，使 errors.Is(err, ErrXxx) 对包装后的错误同样成立
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail 返回带详细信息的副本
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithError 返回带底层错误的副本
func (e *AppError) WithError(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
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
	case CodeInvalidParam, CodeMissingBirthTime, CodeMissingLocation, CodeEmptyInput:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeSessionBusy:
		return http.StatusConflict
	case CodeNoValidResponses:
		return http.StatusUnprocessableEntity
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeGeocodingFailed, CodeMalformedResponse:
		return http.StatusBadGateway
	case CodeServiceUnavailable, CodeEphemerisUnavailable, CodeUpstreamUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误
var (
	ErrInvalidParam       = New(CodeInvalidParam, "invalid parameter")
	ErrNotFound           = New(CodeNotFound, "resource not found")
	ErrConflict           = New(CodeConflict, "resource conflict")
	ErrTooManyRequests    = New(CodeTooManyRequests, "too many requests")
	ErrInternalError      = New(CodeInternalError, "internal server error")
	ErrServiceUnavailable = New(CodeServiceUnavailable, "service unavailable")

	ErrMissingBirthTime     = New(CodeMissingBirthTime, "birth date and time are required")
	ErrMissingLocation      = New(CodeMissingLocation, "birth location is required")
	ErrGeocodingFailed      = New(CodeGeocodingFailed, "could not resolve the birth location")
	ErrEphemerisUnavailable = New(CodeEphemerisUnavailable, "planetary positions are temporarily unavailable")

	ErrEmptyInput          = New(CodeEmptyInput, "a message and a chart are required")
	ErrUpstreamUnavailable = New(CodeUpstreamUnavailable, "the planets are unreachable right now, please try again")
	ErrMalformedResponse   = New(CodeMalformedResponse, "the planets answered in an unreadable format")
	ErrNoValidResponses    = New(CodeNoValidResponses, "none of your planets had anything to say")
	ErrSessionBusy         = New(CodeSessionBusy, "a reply is still being written for this session")
	ErrSessionNotFound     = New(CodeNotFound, "session not found")
	ErrMessageNotFound     = New(CodeNotFound, "message not found")
)

// IsAppError 检查是否为 AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}

// Is 判断 err 链上是否存在与 target 同码的 AppError
func Is(err error, target *AppError) bool {
	return stderrors.Is(err, target)
}
