package server

import (
	"net/http"
	"strings"

	"kirogate/logger"

	"github.com/gin-gonic/gin"
)

// PathBasedAuthMiddleware 创建基于路径前缀的API密钥验证中间件，authToken为空时放行全部请求
func PathBasedAuthMiddleware(authToken string, protectedPrefixes []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authToken == "" {
			c.Next()
			return
		}

		path := c.Request.URL.Path
		if !requiresAuth(path, protectedPrefixes) {
			c.Next()
			return
		}

		if !validateAPIKey(c, authToken) {
			c.Abort()
			return
		}

		c.Next()
	}
}

// requiresAuth 检查指定路径是否需要认证
func requiresAuth(path string, protectedPrefixes []string) bool {
	for _, prefix := range protectedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// extractAPIKey 提取API密钥，兼容Authorization Bearer与x-api-key两种写法
func extractAPIKey(c *gin.Context) string {
	apiKey := c.GetHeader("Authorization")
	if apiKey == "" {
		apiKey = c.GetHeader("x-api-key")
	} else {
		apiKey = strings.TrimPrefix(apiKey, "Bearer ")
	}
	return apiKey
}

// validateAPIKey 验证API密钥
func validateAPIKey(c *gin.Context, authToken string) bool {
	providedApiKey := extractAPIKey(c)

	if providedApiKey == "" {
		logger.Warn("请求缺少Authorization或x-api-key头", logger.String("path", c.Request.URL.Path))
		respondError(c, http.StatusUnauthorized, "authentication_error", "缺少API密钥")
		return false
	}

	if providedApiKey != authToken {
		logger.Warn("API密钥验证失败", logger.String("path", c.Request.URL.Path))
		respondError(c, http.StatusUnauthorized, "authentication_error", "API密钥无效")
		return false
	}

	return true
}

// corsMiddleware 允许跨域调用
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, x-api-key, anthropic-version")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
