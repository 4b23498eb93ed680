package service

import (
	"context"

	"movienight/internal/catalog"
	"movienight/internal/config"
	"movienight/internal/dashboard"
	"movienight/internal/event"
	"movienight/internal/friend"
	"movienight/internal/identity"
	"movienight/internal/middleware"
	"movienight/internal/movie"
	"movienight/internal/mq"
	"movienight/internal/notification"
	"movienight/internal/realtime"
	"movienight/internal/router"
	"movienight/internal/session"
	"movienight/internal/user"
	"movienight/internal/watch"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/thejerf/suture/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Manager 统一服务管理器，负责组装仓储、服务和处理器
type Manager struct {
	cfg *config.Config
	db  *gorm.DB
	log *zap.Logger

	publisher *mq.Publisher

	sessions session.Store
	registry *realtime.Registry
	syncer   *catalog.Syncer
	handlers *router.Handlers
}

// NewManager 创建服务管理器，rdb 和 publisher 可以为 nil
func NewManager(cfg *config.Config, db *gorm.DB, rdb *redis.Client, publisher *mq.Publisher, log *zap.Logger) *Manager {
	m := &Manager{cfg: cfg, db: db, log: log, publisher: publisher}

	// ----- 仓储 -----
	userRepo := user.NewRepositoryGorm(db)
	movieRepo := movie.NewRepositoryGorm(db)
	watchRepo := watch.NewRepositoryGorm(db)
	friendRepo := friend.NewRepositoryGorm(db)
	eventRepo := event.NewRepositoryGorm(db)
	notificationRepo := notification.NewRepositoryGorm(db)

	ids := identity.NewMapper(userRepo, cfg.AllowInternalIDFallback())
	m.sessions = session.NewStore(db, rdb, cfg.Session.TTL, cfg.Session.CacheTTL, log)

	// ----- 实时通道 -----
	var broker realtime.Broker
	if rdb != nil {
		broker = realtime.NewRedisBroker(rdb, cfg.Realtime.InstanceID, cfg.Realtime.Channel, cfg.Realtime.PresenceTTL, log)
	}
	m.registry = realtime.NewRegistry(broker, cfg.Realtime.InstanceID, cfg.Realtime.PresenceTTL/2, log)

	// ----- 外部目录 -----
	catalogClient := catalog.NewClient(catalog.Options{
		APIKey:         cfg.Catalog.APIKey,
		BaseURL:        cfg.Catalog.BaseURL,
		RequestsPerSec: cfg.Catalog.RequestsPerSec,
		BreakerTimeout: cfg.Catalog.BreakerTimeout,
		HTTPTimeout:    cfg.Catalog.PageTimeout,
	}, log)
	m.syncer = catalog.NewSyncer(catalogClient, movieRepo, catalog.SyncOptions{
		List:        cfg.Catalog.List,
		Pages:       cfg.Catalog.SyncPages,
		PageDelay:   cfg.Catalog.PageDelay,
		PageTimeout: cfg.Catalog.PageTimeout,
	}, log)

	// ----- 业务服务 -----
	var pub notification.Publisher
	if publisher != nil {
		pub = publisher
	}
	notifications := notification.NewService(notificationRepo, m.registry, pub, ids, log)

	movies := movie.NewService(movieRepo, catalogClient, log)
	accounts := user.NewAccountService(userRepo, m.sessions, ids, cfg.Auth.AdminEmails, log)

	opts := watch.Options{
		AllowDuplicateSuggestions: cfg.AllowDuplicateSuggestions(),
		DefaultDesireRating:       cfg.Workflow.DefaultDesireRating,
	}
	suggestions := watch.NewSuggestionService(watchRepo, movies, ids, notifications, opts, log)
	watchlist := watch.NewWatchlistService(watchRepo, movies, opts, log)
	friends := friend.NewService(friendRepo, ids, m.registry, notifications, log)
	events := event.NewService(eventRepo, movies, ids, notifications, log)
	summary := dashboard.NewService(suggestions, watchRepo, friends, notifications, events)

	tickets := middleware.NewTicketIssuer(cfg.Realtime.TicketSecret, cfg.Realtime.TicketTTL)

	m.handlers = &router.Handlers{
		User: user.NewHandler(accounts, user.CookieOptions{
			Name:   cfg.Session.CookieName,
			TTL:    cfg.Session.TTL,
			Secure: cfg.Session.Secure,
		}),
		Movie:        movie.NewHandler(movies),
		Catalog:      catalog.NewHandler(m.syncer),
		Watch:        watch.NewHandler(suggestions, watchlist),
		Friend:       friend.NewHandler(friends),
		Event:        event.NewHandler(events),
		Notification: notification.NewHandler(notifications),
		Dashboard:    dashboard.NewHandler(summary),
		Realtime:     realtime.NewHandler(m.registry, tickets, ids, cfg.Server.CORSOrigins, log),
	}

	log.Info("服务管理器初始化完成",
		zap.Bool("redis", rdb != nil),
		zap.Bool("mq", publisher != nil),
	)
	return m
}

// Router 构建 HTTP 路由
func (m *Manager) Router() *gin.Engine {
	return router.SetupRouter(m.handlers, router.Options{
		CORSOrigins: m.cfg.Server.CORSOrigins,
		CookieName:  m.cfg.Session.CookieName,
		Sessions:    m.sessions,
		Ping:        m.ping,
	}, m.log)
}

func (m *Manager) ping(ctx context.Context) error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// GetRegistry 获取实时通道注册表
func (m *Manager) GetRegistry() *realtime.Registry {
	return m.registry
}

// SyncService 定时目录同步服务，未启用时返回 nil
func (m *Manager) SyncService() suture.Service {
	if !m.cfg.Catalog.SyncEnabled {
		return nil
	}
	return catalog.NewSyncService(m.syncer, m.cfg.Catalog.SyncInterval, m.log)
}

// Shutdown 关闭服务管理器持有的外部连接
func (m *Manager) Shutdown() {
	m.log.Info("正在关闭服务管理器...")

	if m.publisher != nil {
		if err := m.publisher.Close(); err != nil {
			m.log.Warn("关闭消息队列连接失败", zap.Error(err))
		}
	}

	m.log.Info("服务管理器已关闭")
}
