// Package realtime 用户实时通道：本地连接表、跨实例转发和在线状态
package realtime

import (
	"context"
	"sync"
	"time"

	"movienight/internal/metrics"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Registry 本地用户 -> 连接集合，broker 为空时只做本地投递
type Registry struct {
	mu      sync.RWMutex
	clients map[uint]map[*Client]struct{}

	broker     Broker
	instanceID string
	heartbeat  time.Duration
	log        *zap.Logger
}

func NewRegistry(broker Broker, instanceID string, heartbeat time.Duration, log *zap.Logger) *Registry {
	if heartbeat <= 0 {
		heartbeat = time.Minute
	}
	return &Registry{
		clients:    make(map[uint]map[*Client]struct{}),
		broker:     broker,
		instanceID: instanceID,
		heartbeat:  heartbeat,
		log:        log.Named("realtime"),
	}
}

// Attach 为已升级的连接创建客户端并启动读写协程
func (r *Registry) Attach(conn *websocket.Conn, userID uint) *Client {
	c := newClient(r, conn, userID)
	r.Register(c)
	go c.writePump()
	go c.readPump()
	return c
}

// Register 登记连接，用户的第一条连接会写入在线状态
func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	set, ok := r.clients[c.userID]
	if !ok {
		set = make(map[*Client]struct{})
		r.clients[c.userID] = set
	}
	set[c] = struct{}{}
	first := len(set) == 1
	r.mu.Unlock()

	metrics.RealtimeConnections.Inc()
	if first && r.broker != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := r.broker.MarkOnline(ctx, c.userID); err != nil {
			r.log.Warn("登记在线状态失败", zap.Uint("user_id", c.userID), zap.Error(err))
		}
	}
	r.log.Debug("连接已注册", zap.Uint("user_id", c.userID))
}

// Unregister 注销连接，可重复调用
func (r *Registry) Unregister(c *Client) {
	r.mu.Lock()
	set, ok := r.clients[c.userID]
	if !ok {
		r.mu.Unlock()
		return
	}
	if _, ok := set[c]; !ok {
		r.mu.Unlock()
		return
	}
	delete(set, c)
	last := len(set) == 0
	if last {
		delete(r.clients, c.userID)
	}
	r.mu.Unlock()

	metrics.RealtimeConnections.Dec()
	if last && r.broker != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := r.broker.MarkOffline(ctx, c.userID); err != nil {
			r.log.Warn("清除在线状态失败", zap.Uint("user_id", c.userID), zap.Error(err))
		}
	}
	r.log.Debug("连接已注销", zap.Uint("user_id", c.userID))
}

// Push 向用户推送一条消息，不保证送达
func (r *Registry) Push(ctx context.Context, userID uint, frameType string, data any) error {
	f, err := NewFrame(frameType, data)
	if err != nil {
		return err
	}
	r.deliverLocal(userID, f)

	if r.broker != nil {
		env := &Envelope{Origin: r.instanceID, UserID: userID, Frame: f}
		if err := r.broker.Publish(ctx, env); err != nil {
			return err
		}
	}
	return nil
}

// deliverLocal 返回成功入队的连接数
func (r *Registry) deliverLocal(userID uint, f *Frame) int {
	r.mu.RLock()
	set := r.clients[userID]
	targets := make([]*Client, 0, len(set))
	for c := range set {
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	if len(targets) == 0 {
		return 0
	}
	raw, err := json.Marshal(f)
	if err != nil {
		return 0
	}
	sent := 0
	for _, c := range targets {
		if c.enqueue(raw) {
			sent++
		} else {
			metrics.RealtimeMessages.WithLabelValues("dropped").Inc()
		}
	}
	metrics.RealtimeMessages.WithLabelValues("local").Add(float64(sent))
	return sent
}

// relay 处理其他实例转发来的消息
func (r *Registry) relay(env *Envelope) {
	if env.Origin == r.instanceID || env.Frame == nil {
		return
	}
	if n := r.deliverLocal(env.UserID, env.Frame); n > 0 {
		metrics.RealtimeMessages.WithLabelValues("relayed").Add(float64(n))
	}
}

// IsOnline 本地有连接，或其他实例登记了在线
func (r *Registry) IsOnline(ctx context.Context, userID uint) bool {
	if r.ConnectionCount(userID) > 0 {
		return true
	}
	if r.broker == nil {
		return false
	}
	online, err := r.broker.IsOnline(ctx, userID)
	if err != nil {
		r.log.Debug("查询在线状态失败", zap.Uint("user_id", userID), zap.Error(err))
		return false
	}
	return online
}

// ConnectionCount 用户在本实例的连接数
func (r *Registry) ConnectionCount(userID uint) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients[userID])
}

func (r *Registry) localUsers() []uint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]uint, 0, len(r.clients))
	for id := range r.clients {
		users = append(users, id)
	}
	return users
}

// Serve 运行转发订阅和心跳，ctx 取消时关闭所有本地连接并清理在线状态
func (r *Registry) Serve(ctx context.Context) error {
	var wg sync.WaitGroup
	if r.broker != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				if err := r.broker.Subscribe(ctx, r.relay); err != nil && ctx.Err() == nil {
					r.log.Warn("实时频道订阅中断，稍后重试", zap.Error(err))
					select {
					case <-ctx.Done():
					case <-time.After(time.Second):
					}
				}
			}
		}()
	}

	ticker := time.NewTicker(r.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			r.shutdown()
			return ctx.Err()
		case <-ticker.C:
			if r.broker == nil {
				continue
			}
			users := r.localUsers()
			hbCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := r.broker.Refresh(hbCtx, users); err != nil {
				r.log.Warn("刷新在线状态失败", zap.Error(err))
			}
			cancel()
		}
	}
}

func (r *Registry) shutdown() {
	r.mu.Lock()
	var all []*Client
	for _, set := range r.clients {
		for c := range set {
			all = append(all, c)
		}
	}
	r.clients = make(map[uint]map[*Client]struct{})
	r.mu.Unlock()

	for _, c := range all {
		c.Close()
	}
	metrics.RealtimeConnections.Sub(float64(len(all)))

	if r.broker != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.broker.Cleanup(ctx); err != nil {
			r.log.Warn("清理在线状态失败", zap.Error(err))
		}
	}
	r.log.Info("实时通道已关闭", zap.Int("connections", len(all)))
}

func (r *Registry) String() string {
	return "realtime-registry"
}
