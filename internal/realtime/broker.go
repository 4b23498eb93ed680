package realtime

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"movienight/internal/constants"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Broker 跨实例转发与在线状态
type Broker interface {
	Publish(ctx context.Context, env *Envelope) error
	// Subscribe 阻塞直到 ctx 取消
	Subscribe(ctx context.Context, fn func(*Envelope)) error
	MarkOnline(ctx context.Context, userID uint) error
	MarkOffline(ctx context.Context, userID uint) error
	Refresh(ctx context.Context, userIDs []uint) error
	IsOnline(ctx context.Context, userID uint) (bool, error)
	Cleanup(ctx context.Context) error
}

// RedisBroker 基于 Redis pub/sub 和在线表
// 在线表为每个用户一个有序集合，成员是实例ID，分数是该实例登记的过期时间，
// 同一用户在多个实例上的连接互不覆盖
type RedisBroker struct {
	rdb         *redis.Client
	instanceID  string
	channel     string
	presenceTTL time.Duration
	log         *zap.Logger
}

var _ Broker = (*RedisBroker)(nil)

func NewRedisBroker(rdb *redis.Client, instanceID, channel string, presenceTTL time.Duration, log *zap.Logger) *RedisBroker {
	return &RedisBroker{
		rdb:         rdb,
		instanceID:  instanceID,
		channel:     channel,
		presenceTTL: presenceTTL,
		log:         log.Named("realtime-broker"),
	}
}

func userKey(userID uint) string {
	return fmt.Sprintf(constants.RedisKeyUserRegistry, userID)
}

func (b *RedisBroker) serverKey() string {
	return fmt.Sprintf(constants.RedisKeyServerUsers, b.instanceID)
}

func (b *RedisBroker) Publish(ctx context.Context, env *Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, data).Err()
}

func (b *RedisBroker) Subscribe(ctx context.Context, fn func(*Envelope)) error {
	sub := b.rdb.Subscribe(ctx, b.channel)
	defer sub.Close()

	// 等待订阅确认
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("订阅频道 %s 失败: %w", b.channel, err)
	}
	b.log.Info("已订阅实时频道", zap.String("channel", b.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return errors.New("实时频道已关闭")
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.log.Warn("解析转发消息失败", zap.Error(err))
				continue
			}
			fn(&env)
		}
	}
}

// MarkOnline 登记本实例上的用户连接，同时加入本实例用户集合，便于下线时批量清理
func (b *RedisBroker) MarkOnline(ctx context.Context, userID uint) error {
	pipe := b.rdb.TxPipeline()
	b.touch(ctx, pipe, userID, time.Now())
	pipe.SAdd(ctx, b.serverKey(), userID)
	_, err := pipe.Exec(ctx)
	return err
}

// MarkOffline 只移除本实例的登记，其他实例上的连接不受影响
func (b *RedisBroker) MarkOffline(ctx context.Context, userID uint) error {
	pipe := b.rdb.TxPipeline()
	pipe.ZRem(ctx, userKey(userID), b.instanceID)
	pipe.SRem(ctx, b.serverKey(), userID)
	_, err := pipe.Exec(ctx)
	return err
}

// Refresh 重新登记本地用户，键被删除或过期后也会重建
func (b *RedisBroker) Refresh(ctx context.Context, userIDs []uint) error {
	if len(userIDs) == 0 {
		return nil
	}
	now := time.Now()
	pipe := b.rdb.Pipeline()
	for _, id := range userIDs {
		b.touch(ctx, pipe, id, now)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// touch 写入本实例的过期时间并清理已过期的实例
func (b *RedisBroker) touch(ctx context.Context, pipe redis.Pipeliner, userID uint, now time.Time) {
	key := userKey(userID)
	pipe.ZAdd(ctx, key, &redis.Z{
		Score:  float64(now.Add(b.presenceTTL).Unix()),
		Member: b.instanceID,
	})
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(now.Unix(), 10))
	pipe.Expire(ctx, key, b.presenceTTL)
}

// IsOnline 任一实例的登记未过期即在线
func (b *RedisBroker) IsOnline(ctx context.Context, userID uint) (bool, error) {
	n, err := b.rdb.ZCount(ctx, userKey(userID), "("+strconv.FormatInt(time.Now().Unix(), 10), "+inf").Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Cleanup 实例下线时清理本实例登记的所有用户
func (b *RedisBroker) Cleanup(ctx context.Context) error {
	users, err := b.rdb.SMembers(ctx, b.serverKey()).Result()
	if err != nil {
		return fmt.Errorf("获取服务器用户列表失败: %w", err)
	}
	pipe := b.rdb.Pipeline()
	for _, raw := range users {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			continue
		}
		pipe.ZRem(ctx, userKey(uint(id)), b.instanceID)
	}
	pipe.Del(ctx, b.serverKey())
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	b.log.Info("实例下线，清理在线信息", zap.String("instance", b.instanceID), zap.Int("users", len(users)))
	return nil
}
