// Package friend 好友请求状态机
package friend

import (
	"context"
	"errors"
	"time"

	"movienight/internal/apperr"
	"movienight/internal/constants"
	"movienight/internal/model"
	"movienight/internal/notification"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Identities 由 identity.Mapper 实现
type Identities interface {
	Resolve(ctx context.Context, external string) (uint, bool, error)
	Summaries(ctx context.Context, ids ...uint) (map[uint]model.UserSummary, error)
}

// Presence 在线状态，由 realtime.Registry 实现
type Presence interface {
	IsOnline(ctx context.Context, userID uint) bool
}

// RequestView 好友请求
type RequestView struct {
	ID          uint                   `json:"id"`
	User        model.UserSummary      `json:"user"`
	Status      model.FriendshipStatus `json:"status"`
	RequestedBy string                 `json:"requestedBy"`
	Incoming    bool                   `json:"incoming"`
	CreatedAt   time.Time              `json:"createdAt"`
}

// FriendView 好友
type FriendView struct {
	model.UserSummary
	Online bool      `json:"online"`
	Since  time.Time `json:"since"`
}

// Service 好友
type Service interface {
	Request(ctx context.Context, userID uint, target string) (*RequestView, error)
	Respond(ctx context.Context, userID, requestID uint, action string) (*RequestView, error)
	Friends(ctx context.Context, userID uint) ([]FriendView, error)
	Requests(ctx context.Context, userID uint, incoming bool) ([]RequestView, error)
	Remove(ctx context.Context, userID uint, target string) error
	Count(ctx context.Context, userID uint) (int64, error)
}

type service struct {
	repo     Repository
	ids      Identities
	presence Presence
	notifier notification.Notifier
	log      *zap.Logger
}

var _ Service = (*service)(nil)

// NewService presence 可以为 nil
func NewService(repo Repository, ids Identities, presence Presence, notifier notification.Notifier, log *zap.Logger) Service {
	return &service{repo: repo, ids: ids, presence: presence, notifier: notifier, log: log.Named("friend")}
}

func (s *service) resolveTarget(ctx context.Context, target string) (uint, error) {
	id, found, err := s.ids.Resolve(ctx, target)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, apperr.NotFound(constants.ErrUserNotFound)
	}
	return id, nil
}

// Request 发起好友请求；被拒绝过的关系重新打开为待处理
func (s *service) Request(ctx context.Context, userID uint, target string) (*RequestView, error) {
	targetID, err := s.resolveTarget(ctx, target)
	if err != nil {
		return nil, err
	}
	if targetID == userID {
		return nil, apperr.Field("userId", "cannot send a friend request to yourself")
	}

	var f *model.Friendship
	err = s.repo.Transaction(ctx, func(tx Repository) error {
		existing, err := tx.FindPair(ctx, userID, targetID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			f = &model.Friendship{
				UserID1:     userID,
				UserID2:     targetID,
				Status:      model.FriendshipPending,
				RequestedBy: userID,
			}
			err = tx.Create(ctx, f)
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("friend request already exists")
			}
			return err
		case err != nil:
			return err
		}

		switch existing.Status {
		case model.FriendshipAccepted:
			return apperr.Conflict("already friends")
		case model.FriendshipPending:
			return apperr.Conflict("friend request already exists")
		}
		if err := tx.UpdateStatus(ctx, existing.ID, model.FriendshipPending, userID); err != nil {
			return err
		}
		existing.Status = model.FriendshipPending
		existing.RequestedBy = userID
		f = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	views, err := s.requestViews(ctx, userID, []model.Friendship{*f})
	if err != nil {
		return nil, err
	}
	s.log.Info("好友请求已发送", zap.Uint("from", userID), zap.Uint("to", targetID))

	s.notifier.Notify(ctx, targetID, model.NotificationFriendRequest, map[string]any{
		"requestId": f.ID,
		"from":      s.summaryOf(ctx, userID),
	})
	return &views[0], nil
}

// Respond 只有非发起方可以处理待处理的请求
func (s *service) Respond(ctx context.Context, userID, requestID uint, action string) (*RequestView, error) {
	var status model.FriendshipStatus
	switch action {
	case constants.SuggestionActionAccept:
		status = model.FriendshipAccepted
	case constants.SuggestionActionReject:
		status = model.FriendshipRejected
	default:
		return nil, apperr.Field("action", "must be one of [accept reject]")
	}

	var f *model.Friendship
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		var err error
		f, err = tx.FindByID(ctx, requestID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound(constants.ErrFriendshipNF)
		}
		if err != nil {
			return err
		}
		if !f.Involves(userID) || f.RequestedBy == userID {
			return apperr.Forbidden()
		}
		if f.Status != model.FriendshipPending {
			return apperr.Conflict("friend request already " + string(f.Status))
		}
		if err := tx.UpdateStatus(ctx, f.ID, status, f.RequestedBy); err != nil {
			return err
		}
		f.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	if status == model.FriendshipAccepted {
		s.notifier.Notify(ctx, f.RequestedBy, model.NotificationFriendAccepted, map[string]any{
			"requestId": f.ID,
			"user":      s.summaryOf(ctx, userID),
		})
	}

	views, err := s.requestViews(ctx, userID, []model.Friendship{*f})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *service) Friends(ctx context.Context, userID uint) ([]FriendView, error) {
	list, err := s.repo.ListAccepted(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(list))
	for i := range list {
		ids = append(ids, list[i].Other(userID))
	}
	users, err := s.ids.Summaries(ctx, ids...)
	if err != nil {
		return nil, err
	}

	out := make([]FriendView, 0, len(list))
	for i := range list {
		other := list[i].Other(userID)
		u, ok := users[other]
		if !ok {
			continue
		}
		out = append(out, FriendView{
			UserSummary: u,
			Online:      s.presence != nil && s.presence.IsOnline(ctx, other),
			Since:       list[i].UpdatedAt,
		})
	}
	return out, nil
}

func (s *service) Requests(ctx context.Context, userID uint, incoming bool) ([]RequestView, error) {
	list, err := s.repo.ListPending(ctx, userID, incoming)
	if err != nil {
		return nil, err
	}
	return s.requestViews(ctx, userID, list)
}

// Remove 删除好友或撤回待处理的请求
func (s *service) Remove(ctx context.Context, userID uint, target string) error {
	targetID, err := s.resolveTarget(ctx, target)
	if err != nil {
		return err
	}
	f, err := s.repo.FindPair(ctx, userID, targetID)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && f.Status == model.FriendshipRejected) {
		return apperr.NotFound(constants.ErrFriendshipNF)
	}
	if err != nil {
		return err
	}
	if f.Status == model.FriendshipPending && f.RequestedBy != userID {
		// 收到的请求应该拒绝而不是删除
		return apperr.Forbidden()
	}
	return s.repo.Delete(ctx, f.ID)
}

func (s *service) Count(ctx context.Context, userID uint) (int64, error) {
	return s.repo.CountAccepted(ctx, userID)
}

// summaryOf 通知载荷中的用户信息，查询失败只记录日志
func (s *service) summaryOf(ctx context.Context, userID uint) model.UserSummary {
	users, err := s.ids.Summaries(ctx, userID)
	if err != nil {
		s.log.Warn("获取用户信息失败，通知缺少用户字段", zap.Uint("user_id", userID), zap.Error(err))
	}
	return users[userID]
}

func (s *service) requestViews(ctx context.Context, viewer uint, list []model.Friendship) ([]RequestView, error) {
	ids := make([]uint, 0, len(list)*2)
	for i := range list {
		ids = append(ids, list[i].UserID1, list[i].UserID2)
	}
	users, err := s.ids.Summaries(ctx, ids...)
	if err != nil {
		return nil, err
	}
	out := make([]RequestView, 0, len(list))
	for i := range list {
		f := &list[i]
		out = append(out, RequestView{
			ID:          f.ID,
			User:        users[f.Other(viewer)],
			Status:      f.Status,
			RequestedBy: users[f.RequestedBy].ID,
			Incoming:    f.RequestedBy != viewer,
			CreatedAt:   f.CreatedAt,
		})
	}
	return out, nil
}
