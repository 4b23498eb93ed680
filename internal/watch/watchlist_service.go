package watch

import (
	"context"
	"errors"
	"time"

	"movienight/internal/apperr"
	"movienight/internal/constants"
	"movienight/internal/model"
	"movienight/internal/movie"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// WatchlistService 想看与观影历史
type WatchlistService interface {
	AddDesire(ctx context.Context, userID uint, req *AddDesireRequest) (*DesireView, error)
	RemoveDesire(ctx context.Context, userID, movieID uint) error
	ListDesires(ctx context.Context, userID uint) ([]DesireView, error)
	MarkWatched(ctx context.Context, userID uint, req *MarkWatchedRequest) (*WatchedView, error)
	RemoveWatched(ctx context.Context, userID, movieID uint) error
	History(ctx context.Context, userID uint) ([]WatchedView, error)
	SetStatus(ctx context.Context, userID, movieID uint, req *WatchlistRequest) (*WatchlistEntry, error)
}

type watchlistService struct {
	repo   Repository
	movies MovieResolver
	opts   Options
	log    *zap.Logger
	now    func() time.Time
}

var _ WatchlistService = (*watchlistService)(nil)

func NewWatchlistService(repo Repository, movies MovieResolver, opts Options, log *zap.Logger) WatchlistService {
	if opts.DefaultDesireRating == 0 {
		opts.DefaultDesireRating = 5
	}
	return &watchlistService{
		repo:   repo,
		movies: movies,
		opts:   opts,
		log:    log.Named("watchlist"),
		now:    time.Now,
	}
}

// AddDesire 加入想看；已看过的电影也允许加入，列表以看过为准
func (s *watchlistService) AddDesire(ctx context.Context, userID uint, req *AddDesireRequest) (*DesireView, error) {
	if req.Ref.IsZero() {
		return nil, apperr.Field("movieId", "is required")
	}
	m, err := s.movies.Resolve(ctx, req.Ref)
	if err != nil {
		return nil, err
	}

	rating := s.opts.DefaultDesireRating
	if req.Rating != nil {
		rating = *req.Rating
	} else if existing, err := s.repo.FindDesire(ctx, userID, m.ID); err == nil {
		rating = existing.Rating
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	d, err := s.repo.UpsertDesire(ctx, &model.WatchDesire{UserID: userID, MovieID: m.ID, Rating: rating})
	if err != nil {
		return nil, err
	}
	if d.Movie.ID == 0 {
		d.Movie = *m
	}
	view := toDesireView(d)
	return &view, nil
}

func (s *watchlistService) RemoveDesire(ctx context.Context, userID, movieID uint) error {
	n, err := s.repo.DeleteDesire(ctx, userID, movieID)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound(constants.ErrDesireNF)
	}
	return nil
}

func (s *watchlistService) ListDesires(ctx context.Context, userID uint) ([]DesireView, error) {
	list, err := s.repo.ListDesires(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]DesireView, 0, len(list))
	for i := range list {
		out = append(out, toDesireView(&list[i]))
	}
	return out, nil
}

// MarkWatched 写入看过并删除同一部电影的想看，两步在一个事务里
func (s *watchlistService) MarkWatched(ctx context.Context, userID uint, req *MarkWatchedRequest) (*WatchedView, error) {
	if req.Ref.IsZero() {
		return nil, apperr.Field("movieId", "is required")
	}
	m, err := s.movies.Resolve(ctx, req.Ref)
	if err != nil {
		return nil, err
	}

	watchedAt := s.now()
	if req.WatchedAt != nil && !req.WatchedAt.IsZero() {
		watchedAt = *req.WatchedAt
	}

	var w *model.WatchedMovie
	err = s.repo.Transaction(ctx, func(tx Repository) error {
		var err error
		w, err = tx.UpsertWatched(ctx, &model.WatchedMovie{
			UserID:    userID,
			MovieID:   m.ID,
			WatchedAt: watchedAt,
			Score:     req.Score,
			Reaction:  req.Reaction,
		})
		if err != nil {
			return err
		}
		_, err = tx.DeleteDesire(ctx, userID, m.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if w.Movie.ID == 0 {
		w.Movie = *m
	}

	s.log.Debug("已标记看过", zap.Uint("user_id", userID), zap.Uint("movie_id", m.ID))
	view := toWatchedView(w)
	return &view, nil
}

func (s *watchlistService) RemoveWatched(ctx context.Context, userID, movieID uint) error {
	n, err := s.repo.DeleteWatched(ctx, userID, movieID)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound(constants.ErrHistoryNF)
	}
	return nil
}

func (s *watchlistService) History(ctx context.Context, userID uint) ([]WatchedView, error) {
	list, err := s.repo.ListWatched(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]WatchedView, 0, len(list))
	for i := range list {
		out = append(out, toWatchedView(&list[i]))
	}
	return out, nil
}

// SetStatus 通用清单接口，和专用接口走同一套逻辑
func (s *watchlistService) SetStatus(ctx context.Context, userID, movieID uint, req *WatchlistRequest) (*WatchlistEntry, error) {
	ref := movie.Ref{MovieID: movieID}
	switch req.Status {
	case constants.WatchlistStatusDesired:
		d, err := s.AddDesire(ctx, userID, &AddDesireRequest{Ref: ref, Rating: req.Rating})
		if err != nil {
			return nil, err
		}
		return &WatchlistEntry{Status: req.Status, Desire: d}, nil
	case constants.WatchlistStatusWatched:
		w, err := s.MarkWatched(ctx, userID, &MarkWatchedRequest{
			Ref:       ref,
			Score:     req.Score,
			Reaction:  req.Reaction,
			WatchedAt: req.WatchedAt,
		})
		if err != nil {
			return nil, err
		}
		return &WatchlistEntry{Status: req.Status, Watched: w}, nil
	default:
		return nil, apperr.Field("status", "must be one of [desired watched]")
	}
}
