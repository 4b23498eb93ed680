package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// TLSConfig TLS配置
type TLSConfig struct {
	CertFile string // 证书文件路径
	KeyFile  string // 私钥文件路径
	Enabled  bool
}

// NewTLSConfig 创建TLS配置
func NewTLSConfig(certFile, keyFile string, enabled bool) *TLSConfig {
	return &TLSConfig{
		CertFile: certFile,
		KeyFile:  keyFile,
		Enabled:  enabled,
	}
}

// GetTLSConfig 获取标准TLS配置
func (c *TLSConfig) GetTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12, // 最低TLS 1.2
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
		},
	}
}

// ValidateCertificates 验证证书文件
func (c *TLSConfig) ValidateCertificates() error {
	if !c.Enabled {
		return nil
	}
	if _, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile); err != nil {
		return fmt.Errorf("验证TLS证书失败: %w", err)
	}
	return nil
}

// NewHTTPServer 创建 HTTP/HTTPS 服务器，TLS 证书无效时回退到 HTTP
func NewHTTPServer(handler http.Handler, port int, tlsCfg *TLSConfig, log *zap.Logger) *HTTPServer {
	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(port),
		Handler: handler,

		// WebSocket 连接由 gorilla 自己管理读写超时，这里不设置 WriteTimeout
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	if tlsCfg != nil && tlsCfg.Enabled {
		if err := tlsCfg.ValidateCertificates(); err != nil {
			log.Warn("TLS证书验证失败，回退到HTTP模式", zap.Error(err))
			tlsCfg = NewTLSConfig("", "", false)
		} else {
			srv.TLSConfig = tlsCfg.GetTLSConfig()
		}
	}
	if tlsCfg == nil {
		tlsCfg = NewTLSConfig("", "", false)
	}
	return &HTTPServer{srv: srv, tls: tlsCfg, log: log}
}

// HTTPServer 包装 http.Server，按配置选择 HTTP 或 HTTPS
type HTTPServer struct {
	srv *http.Server
	tls *TLSConfig
	log *zap.Logger
}

func (s *HTTPServer) ListenAndServe() error {
	if s.tls.Enabled {
		s.log.Info("HTTPS服务器已启动", zap.String("addr", s.srv.Addr), zap.String("cert", s.tls.CertFile))
		return s.srv.ListenAndServeTLS(s.tls.CertFile, s.tls.KeyFile)
	}
	s.log.Info("HTTP服务器已启动", zap.String("addr", s.srv.Addr))
	return s.srv.ListenAndServe()
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
