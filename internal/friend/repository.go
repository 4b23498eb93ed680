package friend

import (
	"context"

	"movienight/internal/model"

	"gorm.io/gorm"
)

// Repository 好友关系数据访问，按规范化的 (user_id1, user_id2) 存储
type Repository interface {
	Transaction(ctx context.Context, fn func(tx Repository) error) error
	FindByID(ctx context.Context, id uint) (*model.Friendship, error)
	FindPair(ctx context.Context, a, b uint) (*model.Friendship, error)
	Create(ctx context.Context, f *model.Friendship) error
	UpdateStatus(ctx context.Context, id uint, status model.FriendshipStatus, requestedBy uint) error
	Delete(ctx context.Context, id uint) error
	ListAccepted(ctx context.Context, userID uint) ([]model.Friendship, error)
	ListPending(ctx context.Context, userID uint, incoming bool) ([]model.Friendship, error)
	CountAccepted(ctx context.Context, userID uint) (int64, error)
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

func (r *repositoryGorm) FindByID(ctx context.Context, id uint) (*model.Friendship, error) {
	f, err := gorm.G[model.Friendship](r.db).Where("id = ?", id).First(ctx)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// FindPair 参数顺序无关
func (r *repositoryGorm) FindPair(ctx context.Context, a, b uint) (*model.Friendship, error) {
	lo, hi := model.CanonicalPair(a, b)
	f, err := gorm.G[model.Friendship](r.db).Where("user_id1 = ? AND user_id2 = ?", lo, hi).First(ctx)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *repositoryGorm) Create(ctx context.Context, f *model.Friendship) error {
	f.UserID1, f.UserID2 = model.CanonicalPair(f.UserID1, f.UserID2)
	return gorm.G[model.Friendship](r.db).Create(ctx, f)
}

func (r *repositoryGorm) UpdateStatus(ctx context.Context, id uint, status model.FriendshipStatus, requestedBy uint) error {
	_, err := gorm.G[model.Friendship](r.db).
		Where("id = ?", id).
		Updates(ctx, model.Friendship{Status: status, RequestedBy: requestedBy})
	return err
}

func (r *repositoryGorm) Delete(ctx context.Context, id uint) error {
	_, err := gorm.G[model.Friendship](r.db).Where("id = ?", id).Delete(ctx)
	return err
}

func (r *repositoryGorm) ListAccepted(ctx context.Context, userID uint) ([]model.Friendship, error) {
	return gorm.G[model.Friendship](r.db).
		Where("(user_id1 = ? OR user_id2 = ?) AND status = ?", userID, userID, model.FriendshipAccepted).
		Order("updated_at DESC").
		Find(ctx)
}

// ListPending incoming 为 true 时返回别人发给我的请求，否则返回我发出的
func (r *repositoryGorm) ListPending(ctx context.Context, userID uint, incoming bool) ([]model.Friendship, error) {
	chain := gorm.G[model.Friendship](r.db).
		Where("(user_id1 = ? OR user_id2 = ?) AND status = ?", userID, userID, model.FriendshipPending)
	if incoming {
		chain = chain.Where("requested_by <> ?", userID)
	} else {
		chain = chain.Where("requested_by = ?", userID)
	}
	return chain.Order("created_at DESC").Find(ctx)
}

func (r *repositoryGorm) CountAccepted(ctx context.Context, userID uint) (int64, error) {
	return gorm.G[model.Friendship](r.db).
		Where("(user_id1 = ? OR user_id2 = ?) AND status = ?", userID, userID, model.FriendshipAccepted).
		Count(ctx, "id")
}
