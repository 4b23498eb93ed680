package catalog

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SyncService 定时执行目录同步，作为 suture 服务运行
type SyncService struct {
	syncer   *Syncer
	interval time.Duration
	log      *zap.Logger
}

func NewSyncService(syncer *Syncer, interval time.Duration, log *zap.Logger) *SyncService {
	return &SyncService{syncer: syncer, interval: interval, log: log}
}

// Serve 启动后立即同步一次，之后按间隔执行
func (s *SyncService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.syncer.Run(ctx); err != nil && ctx.Err() == nil {
			s.log.Error("目录同步失败", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *SyncService) String() string {
	return "catalog-sync"
}
