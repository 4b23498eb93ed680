package watch

import (
	"context"
	"time"

	"movienight/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository 推荐、想看、看过三张表的数据访问
type Repository interface {
	// Transaction 在同一个数据库事务中执行 fn，fn 返回错误时回滚
	Transaction(ctx context.Context, fn func(tx Repository) error) error

	CreateSuggestion(ctx context.Context, s *model.Suggestion) error
	FindSuggestion(ctx context.Context, id uint) (*model.Suggestion, error)
	UpdateSuggestionStatus(ctx context.Context, id uint, status model.SuggestionStatus, at time.Time) error
	HasPendingSuggestion(ctx context.Context, fromUserID, toUserID, movieID uint) (bool, error)
	ListReceived(ctx context.Context, userID uint, status model.SuggestionStatus, limit int) ([]model.Suggestion, error)
	ListSent(ctx context.Context, userID uint, limit int) ([]model.Suggestion, error)
	CountPendingReceived(ctx context.Context, userID uint) (int64, error)

	FindDesire(ctx context.Context, userID, movieID uint) (*model.WatchDesire, error)
	UpsertDesire(ctx context.Context, d *model.WatchDesire) (*model.WatchDesire, error)
	DeleteDesire(ctx context.Context, userID, movieID uint) (int, error)
	ListDesires(ctx context.Context, userID uint) ([]model.WatchDesire, error)
	CountDesires(ctx context.Context, userID uint) (int64, error)

	UpsertWatched(ctx context.Context, w *model.WatchedMovie) (*model.WatchedMovie, error)
	DeleteWatched(ctx context.Context, userID, movieID uint) (int, error)
	ListWatched(ctx context.Context, userID uint) ([]model.WatchedMovie, error)
	CountWatched(ctx context.Context, userID uint) (int64, error)
}

type repositoryGorm struct {
	db *gorm.DB
}

var _ Repository = (*repositoryGorm)(nil)

func NewRepositoryGorm(db *gorm.DB) *repositoryGorm {
	return &repositoryGorm{db: db}
}

func (r *repositoryGorm) Transaction(ctx context.Context, fn func(tx Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&repositoryGorm{db: tx})
	})
}

// ---- suggestions ----

func (r *repositoryGorm) CreateSuggestion(ctx context.Context, s *model.Suggestion) error {
	return gorm.G[model.Suggestion](r.db).Create(ctx, s)
}

func (r *repositoryGorm) FindSuggestion(ctx context.Context, id uint) (*model.Suggestion, error) {
	s, err := gorm.G[model.Suggestion](r.db).Preload("Movie", nil).Where("id = ?", id).First(ctx)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repositoryGorm) UpdateSuggestionStatus(ctx context.Context, id uint, status model.SuggestionStatus, at time.Time) error {
	_, err := gorm.G[model.Suggestion](r.db).
		Where("id = ?", id).
		Updates(ctx, model.Suggestion{Status: status, RespondedAt: &at})
	return err
}

func (r *repositoryGorm) HasPendingSuggestion(ctx context.Context, fromUserID, toUserID, movieID uint) (bool, error) {
	n, err := gorm.G[model.Suggestion](r.db).
		Where("from_user_id = ? AND to_user_id = ? AND movie_id = ? AND status = ?",
			fromUserID, toUserID, movieID, model.SuggestionPending).
		Count(ctx, "id")
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListReceived status 为空时返回全部状态
func (r *repositoryGorm) ListReceived(ctx context.Context, userID uint, status model.SuggestionStatus, limit int) ([]model.Suggestion, error) {
	chain := gorm.G[model.Suggestion](r.db).Preload("Movie", nil).Where("to_user_id = ?", userID)
	if status != "" {
		chain = chain.Where("status = ?", status)
	}
	return chain.Order("created_at DESC").Order("id DESC").Limit(limit).Find(ctx)
}

func (r *repositoryGorm) ListSent(ctx context.Context, userID uint, limit int) ([]model.Suggestion, error) {
	return gorm.G[model.Suggestion](r.db).
		Preload("Movie", nil).
		Where("from_user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(ctx)
}

func (r *repositoryGorm) CountPendingReceived(ctx context.Context, userID uint) (int64, error) {
	return gorm.G[model.Suggestion](r.db).
		Where("to_user_id = ? AND status = ?", userID, model.SuggestionPending).
		Count(ctx, "id")
}

// ---- desires ----

func (r *repositoryGorm) FindDesire(ctx context.Context, userID, movieID uint) (*model.WatchDesire, error) {
	d, err := gorm.G[model.WatchDesire](r.db).
		Preload("Movie", nil).
		Where("user_id = ? AND movie_id = ?", userID, movieID).
		First(ctx)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// UpsertDesire 按 (user_id, movie_id) 插入或更新评分，SuggestionID 为空时保留原来的来源
func (r *repositoryGorm) UpsertDesire(ctx context.Context, d *model.WatchDesire) (*model.WatchDesire, error) {
	columns := []string{"rating", "updated_at"}
	if d.SuggestionID != nil {
		columns = append(columns, "suggestion_id")
	}
	upsert := clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "movie_id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}
	if err := gorm.G[model.WatchDesire](r.db, upsert).Create(ctx, d); err != nil {
		return nil, err
	}
	return r.FindDesire(ctx, d.UserID, d.MovieID)
}

func (r *repositoryGorm) DeleteDesire(ctx context.Context, userID, movieID uint) (int, error) {
	return gorm.G[model.WatchDesire](r.db).Where("user_id = ? AND movie_id = ?", userID, movieID).Delete(ctx)
}

// ListDesires 不包含已看过的电影
func (r *repositoryGorm) ListDesires(ctx context.Context, userID uint) ([]model.WatchDesire, error) {
	return gorm.G[model.WatchDesire](r.db).
		Preload("Movie", nil).
		Where("user_id = ?", userID).
		Where("NOT EXISTS (SELECT 1 FROM watched_movies w WHERE w.user_id = watch_desires.user_id AND w.movie_id = watch_desires.movie_id)").
		Order("rating DESC").Order("created_at DESC").
		Find(ctx)
}

func (r *repositoryGorm) CountDesires(ctx context.Context, userID uint) (int64, error) {
	return gorm.G[model.WatchDesire](r.db).
		Where("user_id = ?", userID).
		Where("NOT EXISTS (SELECT 1 FROM watched_movies w WHERE w.user_id = watch_desires.user_id AND w.movie_id = watch_desires.movie_id)").
		Count(ctx, "id")
}

// ---- history ----

// UpsertWatched 每个 (user_id, movie_id) 一条，重复标记时更新时间、评分和感受
func (r *repositoryGorm) UpsertWatched(ctx context.Context, w *model.WatchedMovie) (*model.WatchedMovie, error) {
	upsert := clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "movie_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"watched_at", "score", "reaction", "updated_at"}),
	}
	if err := gorm.G[model.WatchedMovie](r.db, upsert).Create(ctx, w); err != nil {
		return nil, err
	}
	out, err := gorm.G[model.WatchedMovie](r.db).
		Preload("Movie", nil).
		Where("user_id = ? AND movie_id = ?", w.UserID, w.MovieID).
		First(ctx)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *repositoryGorm) DeleteWatched(ctx context.Context, userID, movieID uint) (int, error) {
	return gorm.G[model.WatchedMovie](r.db).Where("user_id = ? AND movie_id = ?", userID, movieID).Delete(ctx)
}

func (r *repositoryGorm) ListWatched(ctx context.Context, userID uint) ([]model.WatchedMovie, error) {
	return gorm.G[model.WatchedMovie](r.db).
		Preload("Movie", nil).
		Where("user_id = ?", userID).
		Order("watched_at DESC").Order("id DESC").
		Find(ctx)
}

func (r *repositoryGorm) CountWatched(ctx context.Context, userID uint) (int64, error) {
	return gorm.G[model.WatchedMovie](r.db).Where("user_id = ?", userID).Count(ctx, "id")
}
