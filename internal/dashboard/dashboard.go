// Package dashboard 首页汇总，各项查询并发执行
package dashboard

import (
	"context"
	"fmt"

	"movienight/internal/event"
	"movienight/internal/middleware"
	"movienight/internal/model"
	"movienight/internal/response"
	"movienight/internal/watch"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// 依赖的数据源，分别由对应包的 Service / Repository 实现
type (
	SuggestionSource interface {
		ListReceived(ctx context.Context, userID uint, status model.SuggestionStatus) ([]watch.SuggestionView, error)
	}
	WatchCounter interface {
		CountDesires(ctx context.Context, userID uint) (int64, error)
		CountWatched(ctx context.Context, userID uint) (int64, error)
	}
	FriendCounter interface {
		Count(ctx context.Context, userID uint) (int64, error)
	}
	UnreadCounter interface {
		UnreadCount(ctx context.Context, userID uint) (int64, error)
	}
	EventSource interface {
		List(ctx context.Context, userID uint, upcoming bool) ([]event.View, error)
	}
)

// Summary 首页数据
type Summary struct {
	PendingSuggestions  []watch.SuggestionView `json:"pendingSuggestions"`
	DesireCount         int64                  `json:"desireCount"`
	WatchedCount        int64                  `json:"watchedCount"`
	FriendCount         int64                  `json:"friendCount"`
	UnreadNotifications int64                  `json:"unreadNotifications"`
	UpcomingEvents      []event.View           `json:"upcomingEvents"`
}

type Service struct {
	suggestions SuggestionSource
	watch       WatchCounter
	friends     FriendCounter
	unread      UnreadCounter
	events      EventSource
}

func NewService(suggestions SuggestionSource, watch WatchCounter, friends FriendCounter, unread UnreadCounter, events EventSource) *Service {
	return &Service{
		suggestions: suggestions,
		watch:       watch,
		friends:     friends,
		unread:      unread,
		events:      events,
	}
}

// Get 任何一项失败整体失败
func (s *Service) Get(ctx context.Context, userID uint) (*Summary, error) {
	var out Summary
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		out.PendingSuggestions, err = s.suggestions.ListReceived(ctx, userID, model.SuggestionPending)
		return wrap("pending suggestions", err)
	})
	g.Go(func() (err error) {
		out.DesireCount, err = s.watch.CountDesires(ctx, userID)
		return wrap("desires", err)
	})
	g.Go(func() (err error) {
		out.WatchedCount, err = s.watch.CountWatched(ctx, userID)
		return wrap("history", err)
	})
	g.Go(func() (err error) {
		out.FriendCount, err = s.friends.Count(ctx, userID)
		return wrap("friends", err)
	})
	g.Go(func() (err error) {
		out.UnreadNotifications, err = s.unread.UnreadCount(ctx, userID)
		return wrap("notifications", err)
	})
	g.Go(func() (err error) {
		out.UpcomingEvents, err = s.events.List(ctx, userID, true)
		return wrap("events", err)
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

func wrap(part string, err error) error {
	if err != nil {
		return fmt.Errorf("dashboard %s: %w", part, err)
	}
	return nil
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Get GET /api/dashboard
func (h *Handler) Get(c *gin.Context) {
	sum, err := h.svc.Get(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sum)
}
