package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Listener HTTPServer 的最小接口，便于测试
type Listener interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPService 把 HTTP 服务器包装成 suture 服务，ctx 取消时优雅关闭
type HTTPService struct {
	server          Listener
	shutdownTimeout time.Duration
}

func NewHTTPService(server Listener, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPService{server: server, shutdownTimeout: shutdownTimeout}
}

func (h *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (h *HTTPService) String() string {
	return "http-server"
}
