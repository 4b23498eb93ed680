// Package event 观影活动：主办人、电影、时间和参与者
package event

import (
	"context"
	"errors"
	"time"

	"movienight/internal/apperr"
	"movienight/internal/constants"
	"movienight/internal/model"
	"movienight/internal/movie"
	"movienight/internal/notification"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MovieResolver 由 movie.Service 实现
type MovieResolver interface {
	Resolve(ctx context.Context, ref movie.Ref) (*model.Movie, error)
}

// Identities 由 identity.Mapper 实现
type Identities interface {
	Resolve(ctx context.Context, external string) (uint, bool, error)
	Summaries(ctx context.Context, ids ...uint) (map[uint]model.UserSummary, error)
}

// CreateEventRequest 创建活动
type CreateEventRequest struct {
	movie.Ref
	Title          string    `json:"title" binding:"required,max=200"`
	Description    string    `json:"description" binding:"max=2000"`
	ScheduledAt    time.Time `json:"scheduledAt" binding:"required"`
	ParticipantIDs []string  `json:"participantIds" binding:"max=50"`
}

// View 活动详情
type View struct {
	ID           uint                `json:"id"`
	Host         model.UserSummary   `json:"host"`
	MovieID      uint                `json:"movieId"`
	Movie        *model.Movie        `json:"movie,omitempty"`
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	ScheduledAt  time.Time           `json:"scheduledAt"`
	Participants []model.UserSummary `json:"participants"`
	CreatedAt    time.Time           `json:"createdAt"`
}

// Service 观影活动
type Service interface {
	Create(ctx context.Context, hostID uint, req *CreateEventRequest) (*View, error)
	List(ctx context.Context, userID uint, upcoming bool) ([]View, error)
	Get(ctx context.Context, userID, eventID uint) (*View, error)
	Delete(ctx context.Context, userID, eventID uint) error
	AddParticipant(ctx context.Context, userID, eventID uint, target string) (*View, error)
	Leave(ctx context.Context, userID, eventID uint) error
	CountUpcoming(ctx context.Context, userID uint) (int64, error)
}

type service struct {
	repo     Repository
	movies   MovieResolver
	ids      Identities
	notifier notification.Notifier
	log      *zap.Logger
	now      func() time.Time
}

var _ Service = (*service)(nil)

func NewService(repo Repository, movies MovieResolver, ids Identities, notifier notification.Notifier, log *zap.Logger) Service {
	return &service{
		repo:     repo,
		movies:   movies,
		ids:      ids,
		notifier: notifier,
		log:      log.Named("event"),
		now:      time.Now,
	}
}

// resolveParticipants 去重并排除主办人，任何一个找不到都返回 404
func (s *service) resolveParticipants(ctx context.Context, hostID uint, external []string) ([]uint, error) {
	seen := map[uint]struct{}{hostID: {}}
	out := make([]uint, 0, len(external))
	for _, ext := range external {
		id, found, err := s.ids.Resolve(ctx, ext)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, apperr.NotFound(constants.ErrUserNotFound)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

// Create 活动和参与者在同一事务中写入，成功后逐个发邀请通知
func (s *service) Create(ctx context.Context, hostID uint, req *CreateEventRequest) (*View, error) {
	if req.Ref.IsZero() {
		return nil, apperr.Field("movieId", "is required")
	}
	if req.ScheduledAt.IsZero() {
		return nil, apperr.Field("scheduledAt", "is required")
	}
	participants, err := s.resolveParticipants(ctx, hostID, req.ParticipantIDs)
	if err != nil {
		return nil, err
	}
	m, err := s.movies.Resolve(ctx, req.Ref)
	if err != nil {
		return nil, err
	}

	now := s.now()
	e := &model.Event{
		HostID:      hostID,
		MovieID:     m.ID,
		Title:       req.Title,
		Description: req.Description,
		ScheduledAt: req.ScheduledAt,
	}
	for _, uid := range participants {
		e.Participants = append(e.Participants, model.EventParticipant{UserID: uid, JoinedAt: now})
	}
	err = s.repo.Transaction(ctx, func(tx Repository) error {
		return tx.Create(ctx, e)
	})
	if err != nil {
		return nil, err
	}
	e.Movie = *m

	view, err := s.view(ctx, e)
	if err != nil {
		return nil, err
	}
	s.log.Info("活动已创建", zap.Uint("event_id", e.ID), zap.Uint("host_id", hostID), zap.Int("participants", len(participants)))
	for _, uid := range participants {
		s.invite(ctx, uid, view)
	}
	return view, nil
}

func (s *service) invite(ctx context.Context, userID uint, v *View) {
	s.notifier.Notify(ctx, userID, model.NotificationEventInvite, map[string]any{
		"eventId":     v.ID,
		"title":       v.Title,
		"host":        v.Host,
		"movieId":     v.MovieID,
		"scheduledAt": v.ScheduledAt,
	})
}

func (s *service) List(ctx context.Context, userID uint, upcoming bool) ([]View, error) {
	var from *time.Time
	if upcoming {
		now := s.now()
		from = &now
	}
	list, err := s.repo.ListForUser(ctx, userID, from, constants.MaxPageSize)
	if err != nil {
		return nil, err
	}
	out := make([]View, 0, len(list))
	for i := range list {
		v, err := s.view(ctx, &list[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

func (s *service) find(ctx context.Context, eventID uint) (*model.Event, error) {
	e, err := s.repo.FindByID(ctx, eventID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound(constants.ErrEventNotFound)
	}
	return e, err
}

// Get 只有主办人和参与者可以查看
func (s *service) Get(ctx context.Context, userID, eventID uint) (*View, error) {
	e, err := s.find(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if e.HostID != userID && !isParticipant(e, userID) {
		return nil, apperr.Forbidden()
	}
	return s.view(ctx, e)
}

// Delete 仅主办人可操作
func (s *service) Delete(ctx context.Context, userID, eventID uint) error {
	e, err := s.find(ctx, eventID)
	if err != nil {
		return err
	}
	if e.HostID != userID {
		return apperr.Forbidden()
	}
	return s.repo.Transaction(ctx, func(tx Repository) error {
		return tx.Delete(ctx, e.ID)
	})
}

// AddParticipant 仅主办人可以邀请
func (s *service) AddParticipant(ctx context.Context, userID, eventID uint, target string) (*View, error) {
	e, err := s.find(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if e.HostID != userID {
		return nil, apperr.Forbidden()
	}
	targetID, found, err := s.ids.Resolve(ctx, target)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperr.NotFound(constants.ErrUserNotFound)
	}
	if targetID == e.HostID {
		return nil, apperr.Field("userId", "the host is already part of the event")
	}
	if isParticipant(e, targetID) {
		return nil, apperr.Conflict("user already participates")
	}

	p := model.EventParticipant{EventID: e.ID, UserID: targetID, JoinedAt: s.now()}
	if err := s.repo.AddParticipant(ctx, &p); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("user already participates")
		}
		return nil, err
	}
	e.Participants = append(e.Participants, p)

	v, err := s.view(ctx, e)
	if err != nil {
		return nil, err
	}
	s.invite(ctx, targetID, v)
	return v, nil
}

// Leave 参与者退出；主办人不能退出，只能删除活动
func (s *service) Leave(ctx context.Context, userID, eventID uint) error {
	e, err := s.find(ctx, eventID)
	if err != nil {
		return err
	}
	if e.HostID == userID {
		return apperr.Validation("the host cannot leave, delete the event instead", nil)
	}
	n, err := s.repo.RemoveParticipant(ctx, eventID, userID)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.Forbidden()
	}
	return nil
}

func (s *service) CountUpcoming(ctx context.Context, userID uint) (int64, error) {
	return s.repo.CountUpcoming(ctx, userID, s.now())
}

func isParticipant(e *model.Event, userID uint) bool {
	for _, p := range e.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

func (s *service) view(ctx context.Context, e *model.Event) (*View, error) {
	ids := make([]uint, 0, len(e.Participants)+1)
	ids = append(ids, e.HostID)
	for _, p := range e.Participants {
		ids = append(ids, p.UserID)
	}
	users, err := s.ids.Summaries(ctx, ids...)
	if err != nil {
		return nil, err
	}
	v := &View{
		ID:           e.ID,
		Host:         users[e.HostID],
		MovieID:      e.MovieID,
		Title:        e.Title,
		Description:  e.Description,
		ScheduledAt:  e.ScheduledAt,
		Participants: make([]model.UserSummary, 0, len(e.Participants)),
		CreatedAt:    e.CreatedAt,
	}
	if e.Movie.ID != 0 {
		m := e.Movie
		v.Movie = &m
	}
	for _, p := range e.Participants {
		if u, ok := users[p.UserID]; ok {
			v.Participants = append(v.Participants, u)
		}
	}
	return v, nil
}
