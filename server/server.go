package server

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"kirogate/config"
	"kirogate/logger"

	"github.com/gin-gonic/gin"
)

// StartServer 注册路由并启动HTTP服务，阻塞直到服务退出
func StartServer(cfg *config.Config, h *Handler) error {
	ginMode := os.Getenv("GIN_MODE")
	if ginMode == "" {
		ginMode = gin.ReleaseMode
	}
	gin.SetMode(ginMode)

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(corsMiddleware())
	// 业务与管理端点均要求认证，健康检查除外
	r.Use(PathBasedAuthMiddleware(cfg.ClientAuthToken, []string{"/v1", "/api"}))

	r.GET("/health", h.handleHealth)

	r.GET("/v1/models", h.handleModels)
	r.POST("/v1/messages", h.handleMessages)

	r.GET("/api/accounts", h.handleListAccounts)
	r.PUT("/api/accounts/:id/status", h.handleSetAccountStatus)
	r.GET("/api/accounts/:id/usage", h.handleAccountUsage)

	r.NoRoute(func(c *gin.Context) {
		logger.Warn("访问未知端点",
			logger.String("path", c.Request.URL.Path),
			logger.String("method", c.Request.Method))
		respondError(c, http.StatusNotFound, "not_found_error", "未知端点: %s", c.Request.URL.Path)
	})

	readTimeout := serverTimeoutFromEnv("SERVER_READ_TIMEOUT_MINUTES", 16) * time.Minute
	writeTimeout := serverTimeoutFromEnv("SERVER_WRITE_TIMEOUT_MINUTES", 16) * time.Minute

	// 流式响应可能持续很久，读写超时放宽到分钟级
	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	logger.Info("启动HTTP服务器",
		logger.String("port", cfg.Port),
		logger.Duration("read_timeout", readTimeout),
		logger.Duration("write_timeout", writeTimeout))

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// serverTimeoutFromEnv 从环境变量读取超时分钟数
func serverTimeoutFromEnv(envVar string, defaultMinutes int) time.Duration {
	if env := os.Getenv(envVar); env != "" {
		if minutes, err := strconv.Atoi(env); err == nil && minutes > 0 {
			return time.Duration(minutes)
		}
	}
	return time.Duration(defaultMinutes)
}
