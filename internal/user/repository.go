package user

import (
	"context"

	"movienight/internal/identity"
	"movienight/internal/model"

	"gorm.io/gorm"
)

// Repository 用户数据访问
type Repository interface {
	identity.UserLookup
	Create(ctx context.Context, u *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByLogin(ctx context.Context, login string) (*model.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	Search(ctx context.Context, query string, excludeID uint, limit int) ([]model.User, error)
}

type repositoryGorm struct {
	db *gorm.DB
}

var _ Repository = (*repositoryGorm)(nil)

func NewRepositoryGorm(db *gorm.DB) *repositoryGorm {
	return &repositoryGorm{db: db}
}

func (r *repositoryGorm) Create(ctx context.Context, u *model.User) error {
	return gorm.G[model.User](r.db).Create(ctx, u)
}

func (r *repositoryGorm) FindByID(ctx context.Context, id uint) (*model.User, error) {
	u, err := gorm.G[model.User](r.db).Where("id = ?", id).First(ctx)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repositoryGorm) FindByPublicID(ctx context.Context, publicID string) (*model.User, error) {
	u, err := gorm.G[model.User](r.db).Where("public_id = ?", publicID).First(ctx)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repositoryGorm) FindByIDs(ctx context.Context, ids []uint) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return gorm.G[model.User](r.db).Where("id IN ?", ids).Find(ctx)
}

func (r *repositoryGorm) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := gorm.G[model.User](r.db).Where("email = ?", email).First(ctx)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByLogin 按用户名或邮箱查找
func (r *repositoryGorm) FindByLogin(ctx context.Context, login string) (*model.User, error) {
	u, err := gorm.G[model.User](r.db).Where("username = ? OR email = ?", login, login).First(ctx)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repositoryGorm) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	n, err := gorm.G[model.User](r.db).Where("username = ? OR email = ?", username, email).Count(ctx, "id")
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Search 按用户名或显示名模糊搜索
func (r *repositoryGorm) Search(ctx context.Context, query string, excludeID uint, limit int) ([]model.User, error) {
	like := "%" + query + "%"
	return gorm.G[model.User](r.db).
		Where("(username LIKE ? OR display_name LIKE ?) AND id <> ?", like, like, excludeID).
		Order("username").
		Limit(limit).
		Find(ctx)
}
