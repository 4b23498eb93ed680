package redisclient

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Options Redis 连接参数
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Connect 初始化Redis连接，Ping 失败时返回错误并关闭客户端
func Connect(ctx context.Context, opts Options, log *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	// 测试连接
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn("Redis连接失败", zap.String("addr", opts.Addr), zap.Error(err))
		_ = client.Close()
		return nil, err
	}

	log.Info("Redis连接成功", zap.String("addr", opts.Addr))
	return client, nil
}
