package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"movienight/internal/config"
	"movienight/internal/database"
	"movienight/internal/logger"
	"movienight/internal/mq"
	"movienight/internal/redisclient"
	"movienight/internal/server"
	"movienight/internal/service"
	"movienight/internal/supervisor"
	"movienight/internal/validate"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	// 读取配置
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	zl, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Error("服务异常退出", zap.Error(err))
		os.Exit(1)
	}
	zl.Info("服务器已安全关闭")
}

func run(cfg *config.Config, zl *zap.Logger) error {
	validate.Setup()
	if cfg.TicketSecretGenerated() {
		zl.Warn("未配置 realtime.ticket_secret，已随机生成；多实例部署必须配置相同的密钥")
	}
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化数据库
	db, err := database.Open(cfg, zl)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			zl.Warn("关闭数据库失败", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 初始化Redis
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = redisclient.Connect(ctx, redisclient.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, zl)
		if err != nil {
			zl.Warn("Redis 初始化失败，系统将在无Redis的情况下继续运行", zap.Error(err))
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	// 消息队列，只用于把通知转发给外部推送服务
	var publisher *mq.Publisher
	if cfg.MQ.URL != "" {
		publisher, err = mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange, zl)
		if err != nil {
			zl.Warn("消息队列初始化失败，通知将不会转发", zap.Error(err))
			publisher = nil
		}
	}

	// 创建统一服务管理器
	serviceMgr := service.NewManager(cfg, db, rdb, publisher, zl)
	defer serviceMgr.Shutdown()

	tree := supervisor.NewTree(zl, supervisor.DefaultTreeConfig())
	if svc := serviceMgr.SyncService(); svc != nil {
		tree.AddDataService(svc)
	}
	tree.AddRealtimeService(serviceMgr.GetRegistry())

	tlsCfg := server.NewTLSConfig(cfg.Server.CertFile, cfg.Server.KeyFile, cfg.Server.EnableTLS)
	httpServer := server.NewHTTPServer(serviceMgr.Router(), cfg.Server.Port, tlsCfg, zl)
	tree.AddAPIService(server.NewHTTPService(httpServer, 10*time.Second))

	zl.Info("服务启动", zap.Int("port", cfg.Server.Port), zap.String("instance", cfg.Realtime.InstanceID))

	// 阻塞直到收到退出信号
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) && ctx.Err() == nil {
		return err
	}
	zl.Info("正在关闭服务器...")
	return nil
}
