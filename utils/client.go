package utils

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"kirogate/config"
	"kirogate/logger"
)

var (
	// SharedHTTPClient 共享的HTTP客户端实例，用于token刷新等短请求
	SharedHTTPClient *http.Client
	// StreamingClient 专用于上游流式请求的HTTP客户端
	StreamingClient *http.Client
)

func init() {
	proxyFunc := buildProxyFunc()

	// 基础传输配置
	createBaseTransport := func() *http.Transport {
		return &http.Transport{
			Proxy:               proxyFunc,
			MaxIdleConns:        200,
			MaxIdleConnsPerHost: 50,
			MaxConnsPerHost:     100,
			IdleConnTimeout:     120 * time.Second,

			DialContext: (&net.Dialer{
				Timeout:   15 * time.Second,
				KeepAlive: 60 * time.Second,
			}).DialContext,

			TLSHandshakeTimeout: 15 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
				MaxVersion: tls.VersionTLS13,
			},

			ForceAttemptHTTP2:     true,
			WriteBufferSize:       32 * 1024,
			ReadBufferSize:        32 * 1024,
			ResponseHeaderTimeout: config.ResponseHeaderTimeout,
			ExpectContinueTimeout: 2 * time.Second,
		}
	}

	SharedHTTPClient = &http.Client{
		Timeout:   config.SimpleRequestTimeout,
		Transport: createBaseTransport(),
	}

	// 流式连接池更大，响应头超时更长
	streamTransport := createBaseTransport()
	streamTransport.MaxIdleConnsPerHost = 100
	streamTransport.ResponseHeaderTimeout = config.StreamResponseTimeout
	streamTransport.WriteBufferSize = 64 * 1024
	streamTransport.ReadBufferSize = 64 * 1024
	StreamingClient = &http.Client{
		Transport: streamTransport,
	}
}

// buildProxyFunc 构造代理选择函数，HTTPS_PROXY_URL优先于系统环境
func buildProxyFunc() func(*http.Request) (*url.URL, error) {
	if proxyURL := os.Getenv("HTTPS_PROXY_URL"); proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			logger.Warn("代理地址解析失败，忽略", logger.String("proxy", proxyURL), logger.Err(err))
			return http.ProxyFromEnvironment
		}
		logger.Info("上游流量经由代理", logger.String("proxy", parsed.Redacted()))
		return http.ProxyURL(parsed)
	}
	return http.ProxyFromEnvironment
}
