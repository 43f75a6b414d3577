package node

import (
	"context"
	"errors"
	"net"
	"strings"
)

// IsResponseFormatUnsupportedError 提供商不支持 response_format/json_schema
func IsResponseFormatUnsupportedError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "response_format"):
		return true
	case strings.Contains(msg, "json_schema"):
		return true
	case strings.Contains(msg, "unknown parameter") && strings.Contains(msg, "response"):
		return true
	case strings.Contains(msg, "response_schema"):
		return true
	default:
		return false
	}
}

// IsTransientLLMError 超时、网络错误、限流与 5xx，重试可能恢复
func IsTransientLLMError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"timeout", "timed out", "deadline exceeded", "connection refused", "connection reset", "eof",
		"status code: 429", "status code: 500", "status code: 502", "status code: 503", "status code: 504",
		"rate limit", "overloaded", "temporarily unavailable", "no such host",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
