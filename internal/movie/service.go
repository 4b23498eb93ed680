package movie

import (
	"context"
	"errors"
	"strings"

	"movienight/internal/apperr"
	"movienight/internal/catalog"
	"movienight/internal/constants"
	"movienight/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Ref 电影引用：本地ID 或 外部目录ID，二选一
type Ref struct {
	MovieID uint  `json:"movieId"`
	TMDBID  int64 `json:"tmdbId"`
}

func (r Ref) IsZero() bool {
	return r.MovieID == 0 && r.TMDBID == 0
}

// Service 电影目录
type Service interface {
	Resolve(ctx context.Context, ref Ref) (*model.Movie, error)
	Get(ctx context.Context, id uint) (*model.Movie, error)
	List(ctx context.Context, q ListQuery) ([]model.Movie, int64, error)
	Search(ctx context.Context, query string, page int) (*catalog.Page, error)
}

type service struct {
	movies  Repository
	catalog catalog.Catalog
	log     *zap.Logger
}

var _ Service = (*service)(nil)

func NewService(movies Repository, cat catalog.Catalog, log *zap.Logger) Service {
	return &service{movies: movies, catalog: cat, log: log}
}

// Resolve 找到本地电影，tmdbId 不在本地时从目录导入；目录的任何错误都视为不存在
func (s *service) Resolve(ctx context.Context, ref Ref) (*model.Movie, error) {
	if ref.MovieID != 0 {
		return s.Get(ctx, ref.MovieID)
	}
	if ref.TMDBID <= 0 {
		return nil, apperr.Field("movieId", "is required")
	}

	m, err := s.movies.FindByTMDBID(ctx, ref.TMDBID)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	remote, err := s.catalog.GetMovie(ctx, ref.TMDBID)
	if err != nil {
		s.log.Info("从目录导入电影失败", zap.Int64("tmdb_id", ref.TMDBID), zap.Error(err))
		return nil, apperr.NotFound(constants.ErrMovieNotFound)
	}
	imported, err := s.movies.UpsertByTMDBID(ctx, catalog.ToModel(remote, nil))
	if err != nil {
		return nil, err
	}
	s.log.Info("已从目录导入电影", zap.Int64("tmdb_id", ref.TMDBID), zap.Uint("movie_id", imported.ID))
	return imported, nil
}

func (s *service) Get(ctx context.Context, id uint) (*model.Movie, error) {
	m, err := s.movies.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound(constants.ErrMovieNotFound)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *service) List(ctx context.Context, q ListQuery) ([]model.Movie, int64, error) {
	if q.Limit <= 0 || q.Limit > constants.MaxPageSize {
		q.Limit = constants.DefaultPageSize
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return s.movies.List(ctx, q)
}

// Search 直接查询外部目录，失败返回 502
func (s *service) Search(ctx context.Context, query string, page int) (*catalog.Page, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.Field("q", "is required")
	}
	p, err := s.catalog.SearchMovies(ctx, query, page)
	if err != nil {
		return nil, apperr.External(constants.ErrCatalogFailure, err)
	}
	return p, nil
}
