package movie

import (
	"context"

	"movienight/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository 电影数据访问
type Repository interface {
	FindByID(ctx context.Context, id uint) (*model.Movie, error)
	FindByTMDBID(ctx context.Context, tmdbID int64) (*model.Movie, error)
	UpsertByTMDBID(ctx context.Context, m *model.Movie) (*model.Movie, error)
	List(ctx context.Context, q ListQuery) ([]model.Movie, int64, error)
}

// ListQuery 本地目录分页查询
type ListQuery struct {
	Genre  string
	Title  string
	Limit  int
	Offset int
}

type repositoryGorm struct {
	db *gorm.DB
}

var _ Repository = (*repositoryGorm)(nil)

func NewRepositoryGorm(db *gorm.DB) *repositoryGorm {
	return &repositoryGorm{db: db}
}

func (r *repositoryGorm) FindByID(ctx context.Context, id uint) (*model.Movie, error) {
	m, err := gorm.G[model.Movie](r.db).Where("id = ?", id).First(ctx)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repositoryGorm) FindByTMDBID(ctx context.Context, tmdbID int64) (*model.Movie, error) {
	m, err := gorm.G[model.Movie](r.db).Where("tmdb_id = ?", tmdbID).First(ctx)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// UpsertByTMDBID 已存在时更新目录字段，内部ID保持不变
// Genres 为 nil 表示类型未知：新行写入空列表，已有行保留原值
func (r *repositoryGorm) UpsertByTMDBID(ctx context.Context, m *model.Movie) (*model.Movie, error) {
	columns := []string{"title", "overview", "poster_path", "release_date", "rating", "updated_at"}
	if m.Genres == nil {
		m.Genres = datatypes.JSON("[]")
	} else {
		columns = append(columns, "genres")
	}
	upsert := clause.OnConflict{
		Columns:   []clause.Column{{Name: "tmdb_id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}
	if err := gorm.G[model.Movie](r.db, upsert).Create(ctx, m); err != nil {
		return nil, err
	}
	// 更新分支下 MySQL 不会回填主键
	return r.FindByTMDBID(ctx, *m.TMDBID)
}

func (r *repositoryGorm) List(ctx context.Context, q ListQuery) ([]model.Movie, int64, error) {
	chain := gorm.G[model.Movie](r.db).Where("1 = 1")
	if q.Genre != "" {
		chain = chain.Where(datatypes.JSONArrayQuery("genres").Contains(q.Genre))
	}
	if q.Title != "" {
		chain = chain.Where("title LIKE ?", "%"+q.Title+"%")
	}

	total, err := chain.Count(ctx, "id")
	if err != nil {
		return nil, 0, err
	}
	movies, err := chain.Order("rating DESC").Order("id").Limit(q.Limit).Offset(q.Offset).Find(ctx)
	if err != nil {
		return nil, 0, err
	}
	return movies, total, nil
}
