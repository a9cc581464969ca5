package server

import (
	"fmt"
	"net/http"

	"kirogate/logger"

	"github.com/gin-gonic/gin"
)

// respondError 以Anthropic风格的错误信封回复客户端
func respondError(c *gin.Context, status int, errType string, format string, args ...any) {
	c.JSON(status, gin.H{
		"type": "error",
		"error": gin.H{
			"type":    errType,
			"message": fmt.Sprintf(format, args...),
		},
	})
}

// handleParseError 处理请求体解析错误
func handleParseError(c *gin.Context, err error) {
	logger.Warn("解析请求体失败", logger.Err(err), logger.String("path", c.Request.URL.Path))
	respondError(c, http.StatusBadRequest, "invalid_request_error", "解析请求体失败: %v", err)
}
