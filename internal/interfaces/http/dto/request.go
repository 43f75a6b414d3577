package dto

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// BindHistoryLimit 绑定 ?last=，缺省 50，0 表示全部
func BindHistoryLimit(c *gin.Context) int {
	last := parseIntWithDefault(c.Query("last"), defaultHistoryLimit)
	if last < 0 {
		return defaultHistoryLimit
	}
	if last > maxHistoryLimit {
		return maxHistoryLimit
	}
	return last
}

// parseIntWithDefault 解析整数，失败时返回默认值
func parseIntWithDefault(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
