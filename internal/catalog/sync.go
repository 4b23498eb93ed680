package catalog

import (
	"context"
	"sync"
	"time"

	"movienight/internal/metrics"
	"movienight/internal/model"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Upserter 按 tmdbId 写入本地电影表
type Upserter interface {
	UpsertByTMDBID(ctx context.Context, m *model.Movie) (*model.Movie, error)
}

// SyncOptions 同步参数
type SyncOptions struct {
	List        string
	Pages       int
	PageDelay   time.Duration
	PageTimeout time.Duration
}

// SyncResult 一次同步的统计
type SyncResult struct {
	PagesFetched int       `json:"pagesFetched"`
	PagesFailed  int       `json:"pagesFailed"`
	Upserted     int       `json:"upserted"`
	Failed       int       `json:"failed"`
	StartedAt    time.Time `json:"startedAt"`
	FinishedAt   time.Time `json:"finishedAt"`
}

// Syncer 把外部目录分页拉取到本地，多次调用串行执行
type Syncer struct {
	catalog Catalog
	store   Upserter
	opts    SyncOptions
	log     *zap.Logger

	mu sync.Mutex
}

func NewSyncer(catalog Catalog, store Upserter, opts SyncOptions, log *zap.Logger) *Syncer {
	if opts.List == "" {
		opts.List = "popular"
	}
	if opts.Pages <= 0 {
		opts.Pages = 1
	}
	if opts.PageTimeout <= 0 {
		opts.PageTimeout = 10 * time.Second
	}
	return &Syncer{catalog: catalog, store: store, opts: opts, log: log.Named("catalog-sync")}
}

// Run 执行一次同步，失败的页只记录并跳过
func (s *Syncer) Run(ctx context.Context) (*SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := &SyncResult{StartedAt: time.Now()}
	genres := s.genreNames(ctx)

	for page := 1; page <= s.opts.Pages; page++ {
		if page > 1 && s.opts.PageDelay > 0 {
			select {
			case <-ctx.Done():
				metrics.CatalogSyncRuns.WithLabelValues("canceled").Inc()
				return res, ctx.Err()
			case <-time.After(s.opts.PageDelay):
			}
		}

		p, err := s.fetchPage(ctx, page)
		if err != nil {
			if ctx.Err() != nil {
				metrics.CatalogSyncRuns.WithLabelValues("canceled").Inc()
				return res, ctx.Err()
			}
			res.PagesFailed++
			metrics.CatalogPagesFailed.Inc()
			s.log.Warn("拉取目录页失败，跳过", zap.Int("page", page), zap.Error(err))
			continue
		}
		res.PagesFetched++

		for i := range p.Results {
			m := ToModel(&p.Results[i], genres)
			if _, err := s.store.UpsertByTMDBID(ctx, m); err != nil {
				res.Failed++
				s.log.Warn("写入电影失败", zap.Int64("tmdb_id", p.Results[i].ID), zap.Error(err))
				continue
			}
			res.Upserted++
			metrics.CatalogMoviesUpserted.Inc()
		}

		if p.TotalPages > 0 && page >= p.TotalPages {
			break
		}
	}

	res.FinishedAt = time.Now()
	metrics.CatalogSyncRuns.WithLabelValues("completed").Inc()
	s.log.Info("目录同步完成",
		zap.Int("pages", res.PagesFetched),
		zap.Int("pages_failed", res.PagesFailed),
		zap.Int("upserted", res.Upserted),
		zap.Duration("took", res.FinishedAt.Sub(res.StartedAt)),
	)
	return res, nil
}

func (s *Syncer) fetchPage(ctx context.Context, page int) (*Page, error) {
	pageCtx, cancel := context.WithTimeout(ctx, s.opts.PageTimeout)
	defer cancel()
	return s.catalog.ListMovies(pageCtx, s.opts.List, page)
}

// genreNames 取类型表失败时返回 nil，电影照常写入但本次不改动已有类型
func (s *Syncer) genreNames(ctx context.Context) map[int]string {
	gctx, cancel := context.WithTimeout(ctx, s.opts.PageTimeout)
	defer cancel()
	list, err := s.catalog.Genres(gctx)
	if err != nil {
		s.log.Warn("获取类型列表失败，保留已有类型", zap.Error(err))
		return nil
	}
	out := make(map[int]string, len(list))
	for _, g := range list {
		out[g.ID] = g.Name
	}
	return out
}

// ToModel 外部电影 -> 本地模型
// 列表结果只有 genre_ids，genres 为 nil 时无法换算，Genres 留空表示类型未知
func ToModel(m *Movie, genres map[int]string) *model.Movie {
	id := m.ID
	mv := &model.Movie{
		TMDBID:      &id,
		Title:       m.Title,
		Overview:    m.Overview,
		PosterPath:  m.PosterPath,
		ReleaseDate: m.ReleaseDate,
		Rating:      m.VoteAverage,
	}
	if len(m.Genres) > 0 || genres != nil {
		names, _ := json.Marshal(GenreNames(m, genres))
		mv.Genres = datatypes.JSON(names)
	}
	return mv
}
