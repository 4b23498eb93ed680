// Package session 服务端会话：数据库为准，Redis 作为读缓存
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"movienight/internal/apperr"
	"movienight/internal/constants"
	"movienight/internal/model"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Store 会话存储
type Store interface {
	Create(ctx context.Context, userID uint) (*model.Session, error)
	Resolve(ctx context.Context, token string) (*model.User, error)
	Delete(ctx context.Context, token string) error
}

type store struct {
	db       *gorm.DB
	rdb      *redis.Client
	ttl      time.Duration
	cacheTTL time.Duration
	log      *zap.Logger
	now      func() time.Time
}

var _ Store = (*store)(nil)

// NewStore rdb 为 nil 时不使用缓存
func NewStore(db *gorm.DB, rdb *redis.Client, ttl, cacheTTL time.Duration, log *zap.Logger) Store {
	return &store{db: db, rdb: rdb, ttl: ttl, cacheTTL: cacheTTL, log: log, now: time.Now}
}

type cachedSession struct {
	UserID    uint      `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewToken 32字节随机数的十六进制
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (s *store) Create(ctx context.Context, userID uint) (*model.Session, error) {
	token, err := NewToken()
	if err != nil {
		return nil, err
	}
	now := s.now()
	sess := &model.Session{
		Token:     token,
		UserID:    userID,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := gorm.G[model.Session](s.db).Create(ctx, sess); err != nil {
		return nil, err
	}
	s.cache(ctx, sess)
	return sess, nil
}

// Resolve token -> 用户，不存在或已过期返回 Unauthenticated
func (s *store) Resolve(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, apperr.Unauthenticated(constants.ErrUnauthenticated)
	}

	cs, ok := s.cached(ctx, token)
	if !ok {
		row, err := gorm.G[model.Session](s.db).Where("token = ?", token).First(ctx)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthenticated(constants.ErrUnauthenticated)
		}
		if err != nil {
			return nil, err
		}
		cs = cachedSession{UserID: row.UserID, ExpiresAt: row.ExpiresAt}
		s.cache(ctx, &row)
	}

	if !s.now().Before(cs.ExpiresAt) {
		if err := s.Delete(ctx, token); err != nil {
			s.log.Warn("删除过期会话失败", zap.Error(err))
		}
		return nil, apperr.Unauthenticated("session expired")
	}

	u, err := gorm.G[model.User](s.db).Where("id = ?", cs.UserID).First(ctx)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Unauthenticated(constants.ErrUnauthenticated)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *store) Delete(ctx context.Context, token string) error {
	if s.rdb != nil {
		if err := s.rdb.Del(ctx, cacheKey(token)).Err(); err != nil {
			s.log.Warn("删除会话缓存失败", zap.Error(err))
		}
	}
	_, err := gorm.G[model.Session](s.db).Where("token = ?", token).Delete(ctx)
	return err
}

func cacheKey(token string) string {
	return fmt.Sprintf(constants.RedisKeySession, token)
}

func (s *store) cache(ctx context.Context, sess *model.Session) {
	if s.rdb == nil {
		return
	}
	ttl := s.cacheTTL
	if remaining := sess.ExpiresAt.Sub(s.now()); remaining < ttl {
		ttl = remaining
	}
	if ttl <= 0 {
		return
	}
	data, err := json.Marshal(cachedSession{UserID: sess.UserID, ExpiresAt: sess.ExpiresAt})
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, cacheKey(sess.Token), data, ttl).Err(); err != nil {
		s.log.Warn("写入会话缓存失败", zap.Error(err))
	}
}

func (s *store) cached(ctx context.Context, token string) (cachedSession, bool) {
	var cs cachedSession
	if s.rdb == nil {
		return cs, false
	}
	data, err := s.rdb.Get(ctx, cacheKey(token)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn("读取会话缓存失败", zap.Error(err))
		}
		return cs, false
	}
	if err := json.Unmarshal(data, &cs); err != nil {
		return cs, false
	}
	return cs, true
}
