package notification

import (
	"context"

	"movienight/internal/model"

	"gorm.io/gorm"
)

// Repository 通知数据访问
type Repository interface {
	Create(ctx context.Context, n *model.Notification) error
	Find(ctx context.Context, userID, id uint) (*model.Notification, error)
	List(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, userID, id uint) error
	MarkAllRead(ctx context.Context, userID uint) (int, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
}

type repositoryGorm struct {
	db *gorm.DB
}

var _ Repository = (*repositoryGorm)(nil)

func NewRepositoryGorm(db *gorm.DB) *repositoryGorm {
	return &repositoryGorm{db: db}
}

func (r *repositoryGorm) Create(ctx context.Context, n *model.Notification) error {
	return gorm.G[model.Notification](r.db).Create(ctx, n)
}

// Find 只返回属于该用户的通知
func (r *repositoryGorm) Find(ctx context.Context, userID, id uint) (*model.Notification, error) {
	n, err := gorm.G[model.Notification](r.db).Where("id = ? AND user_id = ?", id, userID).First(ctx)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *repositoryGorm) List(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]model.Notification, error) {
	chain := gorm.G[model.Notification](r.db).Where("user_id = ?", userID)
	if unreadOnly {
		chain = chain.Where("is_read = ?", false)
	}
	return chain.Order("created_at DESC").Order("id DESC").Limit(limit).Find(ctx)
}

func (r *repositoryGorm) MarkRead(ctx context.Context, userID, id uint) error {
	_, err := gorm.G[model.Notification](r.db).
		Where("id = ? AND user_id = ?", id, userID).
		Update(ctx, "is_read", true)
	return err
}

func (r *repositoryGorm) MarkAllRead(ctx context.Context, userID uint) (int, error) {
	return gorm.G[model.Notification](r.db).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update(ctx, "is_read", true)
}

func (r *repositoryGorm) CountUnread(ctx context.Context, userID uint) (int64, error) {
	return gorm.G[model.Notification](r.db).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(ctx, "id")
}
