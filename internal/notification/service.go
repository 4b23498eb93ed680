// Package notification 通知收件箱与尽力而为的推送
package notification

import (
	"context"
	"errors"
	"time"

	"movienight/internal/apperr"
	"movienight/internal/constants"
	"movienight/internal/metrics"
	"movienight/internal/model"
	"movienight/internal/mq"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Notifier 业务流程依赖的通知入口，失败只记录日志
type Notifier interface {
	Notify(ctx context.Context, userID uint, typ model.NotificationType, payload any)
}

// Pusher 实时推送，由 realtime.Registry 实现
type Pusher interface {
	Push(ctx context.Context, userID uint, frameType string, data any) error
}

// Publisher 外部推送服务的消息通道，由 mq.Publisher 实现
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// PublicIDs 内部ID -> 对外ID
type PublicIDs interface {
	Summaries(ctx context.Context, ids ...uint) (map[uint]model.UserSummary, error)
}

// Service 通知服务
type Service interface {
	Notifier
	List(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, userID, id uint) (*model.Notification, error)
	MarkAllRead(ctx context.Context, userID uint) (int, error)
	UnreadCount(ctx context.Context, userID uint) (int64, error)
}

type service struct {
	repo      Repository
	pusher    Pusher
	publisher Publisher
	ids       PublicIDs
	log       *zap.Logger
}

var _ Service = (*service)(nil)

// NewService pusher 和 publisher 可以为 nil
func NewService(repo Repository, pusher Pusher, publisher Publisher, ids PublicIDs, log *zap.Logger) Service {
	return &service{
		repo:      repo,
		pusher:    pusher,
		publisher: publisher,
		ids:       ids,
		log:       log.Named("notification"),
	}
}

// Notify 写入收件箱，在线时实时推送，再投递给外部推送服务
func (s *service) Notify(ctx context.Context, userID uint, typ model.NotificationType, payload any) {
	log := s.log.With(zap.Uint("user_id", userID), zap.String("type", string(typ)))

	raw, err := json.Marshal(payload)
	if err != nil {
		metrics.NotificationFailures.WithLabelValues("store").Inc()
		log.Error("序列化通知内容失败", zap.Error(err))
		return
	}

	n := &model.Notification{
		UserID:    userID,
		Type:      typ,
		Payload:   datatypes.JSON(raw),
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		metrics.NotificationFailures.WithLabelValues("store").Inc()
		log.Error("保存通知失败", zap.Error(err))
		return
	}
	metrics.NotificationsCreated.WithLabelValues(string(typ)).Inc()

	if s.pusher != nil {
		if err := s.pusher.Push(ctx, userID, constants.MessageTypeNotification, n); err != nil {
			metrics.NotificationFailures.WithLabelValues("push").Inc()
			log.Warn("实时推送通知失败", zap.Error(err))
		}
	}

	if s.publisher != nil {
		s.publish(ctx, n, log)
	}
}

func (s *service) publish(ctx context.Context, n *model.Notification, log *zap.Logger) {
	summaries, err := s.ids.Summaries(ctx, n.UserID)
	if err != nil {
		metrics.NotificationFailures.WithLabelValues("publish").Inc()
		log.Warn("查询用户对外ID失败", zap.Error(err))
		return
	}
	u, ok := summaries[n.UserID]
	if !ok {
		return
	}
	event := mq.NotificationEvent{
		NotificationID: n.ID,
		UserID:         u.ID,
		Type:           string(n.Type),
		Payload:        json.RawMessage(n.Payload),
		CreatedAt:      n.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, string(n.Type), event); err != nil {
		metrics.NotificationFailures.WithLabelValues("publish").Inc()
		log.Warn("投递通知事件失败", zap.Error(err))
	}
}

func (s *service) List(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]model.Notification, error) {
	if limit <= 0 || limit > constants.MaxPageSize {
		limit = constants.DefaultPageSize
	}
	return s.repo.List(ctx, userID, unreadOnly, limit)
}

// MarkRead 标记已读，别人的通知按不存在处理
func (s *service) MarkRead(ctx context.Context, userID, id uint) (*model.Notification, error) {
	n, err := s.repo.Find(ctx, userID, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound(constants.ErrNotificationNF)
	}
	if err != nil {
		return nil, err
	}
	if n.Read {
		return n, nil
	}
	if err := s.repo.MarkRead(ctx, userID, id); err != nil {
		return nil, err
	}
	n.Read = true
	return n, nil
}

func (s *service) MarkAllRead(ctx context.Context, userID uint) (int, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *service) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}
