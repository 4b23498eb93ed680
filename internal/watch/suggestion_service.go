// Package watch 推荐、想看、看过的流转
package watch

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

// Options 流程开关
type Options struct {
	AllowDuplicateSuggestions bool
	DefaultDesireRating       int
}

// SuggestionService 推荐
type SuggestionService interface {
	Create(ctx context.Context, fromUserID uint, req *CreateSuggestionRequest) (*SuggestionView, error)
	Respond(ctx context.Context, userID, suggestionID uint, req *RespondSuggestionRequest) (*SuggestionView, error)
	ListReceived(ctx context.Context, userID uint, status model.SuggestionStatus) ([]SuggestionView, error)
	ListSent(ctx context.Context, userID uint) ([]SuggestionView, error)
}

type suggestionService struct {
	repo     Repository
	movies   MovieResolver
	ids      Identities
	notifier notification.Notifier
	opts     Options
	log      *zap.Logger
	now      func() time.Time
}

var _ SuggestionService = (*suggestionService)(nil)

func NewSuggestionService(repo Repository, movies MovieResolver, ids Identities, notifier notification.Notifier, opts Options, log *zap.Logger) SuggestionService {
	if opts.DefaultDesireRating == 0 {
		opts.DefaultDesireRating = 5
	}
	return &suggestionService{
		repo:     repo,
		movies:   movies,
		ids:      ids,
		notifier: notifier,
		opts:     opts,
		log:      log.Named("suggestion"),
		now:      time.Now,
	}
}

// Create 推荐电影给另一个用户
func (s *suggestionService) Create(ctx context.Context, fromUserID uint, req *CreateSuggestionRequest) (*SuggestionView, error) {
	if req.Ref.IsZero() {
		return nil, apperr.Field("movieId", "is required")
	}
	toUserID, found, err := s.ids.Resolve(ctx, req.ToUserID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperr.NotFound(constants.ErrUserNotFound)
	}
	if toUserID == fromUserID {
		return nil, apperr.Field("toUserId", "cannot suggest a movie to yourself")
	}

	m, err := s.movies.Resolve(ctx, req.Ref)
	if err != nil {
		return nil, err
	}

	if !s.opts.AllowDuplicateSuggestions {
		dup, err := s.repo.HasPendingSuggestion(ctx, fromUserID, toUserID, m.ID)
		if err != nil {
			return nil, err
		}
		if dup {
			return nil, apperr.Conflict("suggestion already pending")
		}
	}

	sg := &model.Suggestion{
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		MovieID:    m.ID,
		Message:    req.Message,
		Status:     model.SuggestionPending,
	}
	if err := s.repo.CreateSuggestion(ctx, sg); err != nil {
		return nil, err
	}
	sg.Movie = *m

	views, err := s.views(ctx, []model.Suggestion{*sg})
	if err != nil {
		return nil, err
	}
	view := &views[0]

	s.log.Info("已创建推荐", zap.Uint("suggestion_id", sg.ID), zap.Uint("from", fromUserID), zap.Uint("to", toUserID), zap.Uint("movie_id", m.ID))
	s.notifier.Notify(ctx, toUserID, model.NotificationSuggestion, map[string]any{
		"suggestionId": sg.ID,
		"from":         view.From,
		"movieId":      m.ID,
		"movieTitle":   m.Title,
		"message":      sg.Message,
	})
	return view, nil
}

// Respond 只有接收者可以接受或拒绝；接受时在同一事务中写入想看
func (s *suggestionService) Respond(ctx context.Context, userID, suggestionID uint, req *RespondSuggestionRequest) (*SuggestionView, error) {
	var (
		sg      *model.Suggestion
		changed bool
	)
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		var err error
		sg, err = tx.FindSuggestion(ctx, suggestionID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound(constants.ErrSuggestionNF)
		}
		if err != nil {
			return err
		}
		if sg.ToUserID != userID {
			return apperr.Forbidden()
		}

		switch req.Action {
		case constants.SuggestionActionAccept:
			changed, err = s.accept(ctx, tx, sg, req.Rating)
		case constants.SuggestionActionReject:
			changed, err = s.reject(ctx, tx, sg)
		default:
			err = apperr.Field("action", "must be one of [accept reject]")
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	if changed && sg.Status == model.SuggestionAccepted {
		s.notifier.Notify(ctx, sg.FromUserID, model.NotificationSuggestionAccepted, map[string]any{
			"suggestionId": sg.ID,
			"movieId":      sg.MovieID,
			"movieTitle":   sg.Movie.Title,
		})
	}

	views, err := s.views(ctx, []model.Suggestion{*sg})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// accept 重复接受是幂等的，想看仍然只有一条
func (s *suggestionService) accept(ctx context.Context, tx Repository, sg *model.Suggestion, rating *int) (bool, error) {
	changed := false
	switch sg.Status {
	case model.SuggestionRejected:
		return false, apperr.Conflict("suggestion already rejected")
	case model.SuggestionPending:
		now := s.now()
		if err := tx.UpdateSuggestionStatus(ctx, sg.ID, model.SuggestionAccepted, now); err != nil {
			return false, err
		}
		sg.Status = model.SuggestionAccepted
		sg.RespondedAt = &now
		changed = true
	}

	r, err := s.desireRating(ctx, tx, sg.ToUserID, sg.MovieID, rating)
	if err != nil {
		return false, err
	}
	id := sg.ID
	_, err = tx.UpsertDesire(ctx, &model.WatchDesire{
		UserID:       sg.ToUserID,
		MovieID:      sg.MovieID,
		Rating:       r,
		SuggestionID: &id,
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

func (s *suggestionService) reject(ctx context.Context, tx Repository, sg *model.Suggestion) (bool, error) {
	switch sg.Status {
	case model.SuggestionAccepted:
		return false, apperr.Conflict("suggestion already accepted")
	case model.SuggestionRejected:
		return false, nil
	}
	now := s.now()
	if err := tx.UpdateSuggestionStatus(ctx, sg.ID, model.SuggestionRejected, now); err != nil {
		return false, err
	}
	sg.Status = model.SuggestionRejected
	sg.RespondedAt = &now
	return true, nil
}

// desireRating 未指定评分时沿用已有想看的评分，否则用默认值
func (s *suggestionService) desireRating(ctx context.Context, repo Repository, userID, movieID uint, rating *int) (int, error) {
	if rating != nil {
		return *rating, nil
	}
	existing, err := repo.FindDesire(ctx, userID, movieID)
	switch {
	case err == nil:
		return existing.Rating, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return s.opts.DefaultDesireRating, nil
	default:
		return 0, err
	}
}

func (s *suggestionService) ListReceived(ctx context.Context, userID uint, status model.SuggestionStatus) ([]SuggestionView, error) {
	switch status {
	case "", model.SuggestionPending, model.SuggestionAccepted, model.SuggestionRejected:
	default:
		return nil, apperr.Field("status", "must be one of [pending accepted rejected]")
	}
	list, err := s.repo.ListReceived(ctx, userID, status, constants.MaxPageSize)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, list)
}

func (s *suggestionService) ListSent(ctx context.Context, userID uint) ([]SuggestionView, error) {
	list, err := s.repo.ListSent(ctx, userID, constants.MaxPageSize)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, list)
}

// views 把内部用户ID换成对外摘要
func (s *suggestionService) views(ctx context.Context, list []model.Suggestion) ([]SuggestionView, error) {
	ids := make([]uint, 0, len(list)*2)
	for _, sg := range list {
		ids = append(ids, sg.FromUserID, sg.ToUserID)
	}
	users, err := s.ids.Summaries(ctx, ids...)
	if err != nil {
		return nil, err
	}
	out := make([]SuggestionView, 0, len(list))
	for _, sg := range list {
		out = append(out, SuggestionView{
			ID:          sg.ID,
			From:        users[sg.FromUserID],
			To:          users[sg.ToUserID],
			MovieID:     sg.MovieID,
			Movie:       movieOrNil(sg.Movie),
			Message:     sg.Message,
			Status:      sg.Status,
			RespondedAt: sg.RespondedAt,
			CreatedAt:   sg.CreatedAt,
		})
	}
	return out, nil
}
