package dispatcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"kirogate/config"
	"kirogate/converter"
	"kirogate/logger"
	"kirogate/pool"
	"kirogate/types"
	"kirogate/utils"

	"github.com/google/uuid"
)

// 连续token失败达到该次数后账号置为invalid
const tokenFailureThreshold = 3

// Dispatcher 将翻译后的请求绑定到账号并调用上游
type Dispatcher struct {
	cfg        *config.Config
	translator *converter.Translator
	accounts   *pool.Pool
	tokens     TokenProvider
	sink       LogSink
	client     *http.Client

	mu            sync.Mutex
	tokenFailures map[string]int
}

// New 创建分发器
func New(cfg *config.Config, translator *converter.Translator, accounts *pool.Pool, tokens TokenProvider, sink LogSink) *Dispatcher {
	return &Dispatcher{
		cfg:           cfg,
		translator:    translator,
		accounts:      accounts,
		tokens:        tokens,
		sink:          sink,
		client:        utils.StreamingClient,
		tokenFailures: make(map[string]int),
	}
}

// DispatchResult 一次成功分发的产物，Response的Body由调用方负责关闭
type DispatchResult struct {
	Response *http.Response
	// NameMap 清洗名到原始名的映射，供响应侧还原工具名
	NameMap map[string]string
	Account types.Account
	ModelID string
}

// Dispatch 翻译请求、选取账号并发起上游流式调用
func (d *Dispatcher) Dispatch(ctx context.Context, req *types.AnthropicRequest) (*DispatchResult, error) {
	// 翻译失败不产生审计记录
	result, err := d.translator.Translate(req, "")
	if err != nil {
		return nil, err
	}

	account, err := d.accounts.Select()
	if err != nil {
		return nil, err
	}
	result.Request.ProfileArn = account.Credential.ProfileArn

	start := time.Now()
	row := types.RequestLogRow{
		ID:             uuid.NewString(),
		Timestamp:      start,
		AccountID:      account.ID,
		AccountName:    account.Name,
		Model:          req.Model,
		ModelID:        result.ModelID,
		ConversationID: result.Request.ConversationState.ConversationId,
	}

	token, err := d.tokens.EnsureValidToken(ctx, account.ID)
	if err != nil {
		d.recordTokenFailure(account.ID)
		d.finishLog(row, start, 0, err)
		return nil, fmt.Errorf("获取token失败: %w", err)
	}
	d.clearTokenFailures(account.ID)

	body, err := utils.FastMarshal(result.Request)
	if err != nil {
		d.finishLog(row, start, 0, err)
		return nil, fmt.Errorf("序列化上游请求失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.UpstreamURL(), bytes.NewReader(body))
	if err != nil {
		d.finishLog(row, start, 0, err)
		return nil, fmt.Errorf("创建上游请求失败: %w", err)
	}
	buildUpstreamHeaders(httpReq, d.cfg, token, account.Credential)

	logger.Debug("调用上游",
		logger.String("account_id", account.ID),
		logger.String("model_id", result.ModelID),
		logger.String("conversation_id", row.ConversationID))

	resp, err := d.client.Do(httpReq)
	if err != nil {
		d.accounts.RecordError(account.ID)
		d.finishLog(row, start, 0, err)
		return nil, &TransportError{Err: err, RequestSummary: SummarizeRequest(result.Request)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		upstreamErr := &UpstreamError{
			StatusCode:     resp.StatusCode,
			Body:           string(respBody),
			RequestSummary: SummarizeRequest(result.Request),
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			d.accounts.RecordRateLimit(account.ID)
		} else {
			d.accounts.RecordError(account.ID)
		}

		logger.Error("上游返回错误",
			logger.String("account_id", account.ID),
			logger.Int("status_code", resp.StatusCode),
			logger.Any("request_summary", upstreamErr.RequestSummary))
		d.finishLog(row, start, resp.StatusCode, upstreamErr)
		return nil, upstreamErr
	}

	row.Success = true
	d.finishLog(row, start, resp.StatusCode, nil)

	return &DispatchResult{
		Response: resp,
		NameMap:  result.NameMap,
		Account:  account,
		ModelID:  result.ModelID,
	}, nil
}

// finishLog 补全并异步写入审计记录，失败只记日志
func (d *Dispatcher) finishLog(row types.RequestLogRow, start time.Time, statusCode int, dispatchErr error) {
	row.Duration = time.Since(start)
	row.StatusCode = statusCode
	if dispatchErr != nil {
		row.Success = false
		row.ErrorMessage = dispatchErr.Error()
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := d.sink.InsertLog(ctx, row); err != nil {
			logger.Error("写入请求日志失败", logger.Err(err), logger.String("log_id", row.ID))
		}
	}()
}

// recordTokenFailure 连续token失败计数，越过阈值后置invalid
func (d *Dispatcher) recordTokenFailure(accountID string) {
	d.mu.Lock()
	d.tokenFailures[accountID]++
	failures := d.tokenFailures[accountID]
	d.mu.Unlock()

	if failures >= tokenFailureThreshold {
		d.accounts.MarkInvalid(accountID)
	}
}

func (d *Dispatcher) clearTokenFailures(accountID string) {
	d.mu.Lock()
	delete(d.tokenFailures, accountID)
	d.mu.Unlock()
}
