package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"kirogate/config"
	"kirogate/converter"
	"kirogate/dispatcher"
	"kirogate/logger"
	"kirogate/pool"
	"kirogate/types"
	"kirogate/utils"

	"github.com/gin-gonic/gin"
)

// Handler 汇集HTTP入口依赖的各个协作方
type Handler struct {
	cfg        *config.Config
	dispatcher *dispatcher.Dispatcher
	accounts   *pool.Pool
	tokens     dispatcher.TokenProvider
	usage      dispatcher.UsageProbe
}

// NewHandler 创建HTTP处理器
func NewHandler(cfg *config.Config, d *dispatcher.Dispatcher, accounts *pool.Pool, tokens dispatcher.TokenProvider, usage dispatcher.UsageProbe) *Handler {
	return &Handler{
		cfg:        cfg,
		dispatcher: d,
		accounts:   accounts,
		tokens:     tokens,
		usage:      usage,
	}
}

// handleMessages 翻译并分发聊天请求，上游字节流原样回传
func (h *Handler) handleMessages(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		handleParseError(c, err)
		return
	}

	var req types.AnthropicRequest
	if err := utils.SafeUnmarshal(body, &req); err != nil {
		handleParseError(c, err)
		return
	}

	result, err := h.dispatcher.Dispatch(c.Request.Context(), &req)
	if err != nil {
		h.respondDispatchError(c, err)
		return
	}
	defer result.Response.Body.Close()

	// 工具名映射随响应头返回，供下游解码器还原工具名
	if len(result.NameMap) > 0 {
		if nameMapJSON, err := utils.FastMarshal(result.NameMap); err == nil {
			c.Header("X-Kirogate-Tool-Names", string(nameMapJSON))
		}
	}
	c.Header("X-Kirogate-Account", result.Account.ID)
	c.Header("X-Kirogate-Model-Id", result.ModelID)

	contentType := result.Response.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)

	if err := copyStream(c, result.Response.Body); err != nil {
		logger.Warn("回传上游响应中断",
			logger.Err(err),
			logger.String("account_id", result.Account.ID))
	}
}

// copyStream 将上游响应体边读边写回客户端，每个数据块后立即刷出
func copyStream(c *gin.Context, src io.Reader) error {
	buf := make([]byte, 32*1024)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := c.Writer.Write(buf[:n]); werr != nil {
				return werr
			}
			c.Writer.Flush()
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

// respondDispatchError 按错误类别映射HTTP状态码
func (h *Handler) respondDispatchError(c *gin.Context, err error) {
	var upstreamErr *dispatcher.UpstreamError
	var transportErr *dispatcher.TransportError

	switch {
	case errors.Is(err, converter.ErrEmptyMessages):
		respondError(c, http.StatusBadRequest, "invalid_request_error", "%v", err)
	case errors.Is(err, converter.ErrUnsupportedModel):
		respondError(c, http.StatusBadRequest, "invalid_request_error", "%v", err)
	case errors.Is(err, pool.ErrNoAccountAvailable):
		respondError(c, http.StatusServiceUnavailable, "overloaded_error", "%v", err)
	case errors.As(err, &upstreamErr):
		logger.Error("上游服务错误", logger.Int("status_code", upstreamErr.StatusCode))
		respondError(c, http.StatusBadGateway, "api_error", "上游服务错误: 状态码 %d", upstreamErr.StatusCode)
	case errors.As(err, &transportErr):
		respondError(c, http.StatusBadGateway, "api_error", "%v", err)
	default:
		logger.Error("分发请求失败", logger.Err(err))
		respondError(c, http.StatusInternalServerError, "api_error", "%v", err)
	}
}

// handleModels 返回内置模型规则对应的客户端模型列表
func (h *Handler) handleModels(c *gin.Context) {
	models := make([]gin.H, 0, len(config.DefaultModelRules))
	for _, rule := range config.DefaultModelRules {
		if !rule.Enabled {
			continue
		}
		models = append(models, gin.H{
			"type":         "model",
			"id":           rule.Pattern,
			"display_name": rule.Pattern,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"data":     models,
		"has_more": false,
	})
}

// handleHealth 健康检查
func (h *Handler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleListAccounts 返回账号池快照，凭证不外泄
func (h *Handler) handleListAccounts(c *gin.Context) {
	snapshot := h.accounts.Snapshot()
	out := make([]gin.H, 0, len(snapshot))
	for _, account := range snapshot {
		entry := gin.H{
			"id":            account.ID,
			"name":          account.Name,
			"status":        account.Status,
			"request_count": account.RequestCount,
			"error_count":   account.ErrorCount,
		}
		if !account.LastUsedAt.IsZero() {
			entry["last_used_at"] = account.LastUsedAt.Format(time.RFC3339)
		}
		if account.Usage != nil {
			entry["usage"] = account.Usage
		}
		out = append(out, entry)
	}
	c.JSON(http.StatusOK, gin.H{"accounts": out})
}

// handleSetAccountStatus 管理端修改账号状态
func (h *Handler) handleSetAccountStatus(c *gin.Context) {
	accountID := c.Param("id")

	var payload struct {
		Status types.AccountStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		handleParseError(c, err)
		return
	}

	switch payload.Status {
	case types.AccountActive, types.AccountCooldown, types.AccountInvalid, types.AccountDisabled:
	default:
		respondError(c, http.StatusBadRequest, "invalid_request_error", "未知账号状态: %s", payload.Status)
		return
	}

	if err := h.accounts.SetStatus(accountID, payload.Status); err != nil {
		respondError(c, http.StatusNotFound, "not_found_error", "%v", err)
		return
	}

	logger.Info("账号状态已更新",
		logger.String("account_id", accountID),
		logger.String("status", string(payload.Status)))
	c.JSON(http.StatusOK, gin.H{"id": accountID, "status": payload.Status})
}

// handleAccountUsage 实时探测账号用量并刷新池内快照
func (h *Handler) handleAccountUsage(c *gin.Context) {
	accountID := c.Param("id")
	if _, ok := h.accounts.Get(accountID); !ok {
		respondError(c, http.StatusNotFound, "not_found_error", "账号不存在: %s", accountID)
		return
	}

	token, err := h.tokens.EnsureValidToken(c.Request.Context(), accountID)
	if err != nil {
		logger.Error("获取token失败", logger.Err(err), logger.String("account_id", accountID))
		respondError(c, http.StatusInternalServerError, "api_error", "获取token失败: %v", err)
		return
	}

	snapshot, err := h.usage.CheckUsageLimits(c.Request.Context(), token)
	if err != nil {
		logger.Error("查询用量失败", logger.Err(err), logger.String("account_id", accountID))
		respondError(c, http.StatusBadGateway, "api_error", "查询用量失败: %v", err)
		return
	}

	h.accounts.UpdateUsage(accountID, snapshot)
	c.JSON(http.StatusOK, gin.H{"id": accountID, "usage": snapshot})
}
