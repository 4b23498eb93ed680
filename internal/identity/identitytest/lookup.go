// Package identitytest 提供内存版用户查询，供其他包的测试使用
package identitytest

import (
	"context"
	"sync"

	"movienight/internal/model"

	"gorm.io/gorm"
)

// Users 内存用户表
type Users struct {
	mu    sync.RWMutex
	byID  map[uint]*model.User
	order []uint
}

func NewUsers(users ...*model.User) *Users {
	u := &Users{byID: make(map[uint]*model.User)}
	for _, x := range users {
		u.Add(x)
	}
	return u
}

// Add 添加用户
func (u *Users) Add(x *model.User) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.byID[x.ID]; !ok {
		u.order = append(u.order, x.ID)
	}
	u.byID[x.ID] = x
}

func (u *Users) FindByPublicID(_ context.Context, publicID string) (*model.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	for _, id := range u.order {
		if x := u.byID[id]; x.PublicID == publicID {
			cp := *x
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (u *Users) FindByID(_ context.Context, id uint) (*model.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	x, ok := u.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *x
	return &cp, nil
}

func (u *Users) FindByIDs(_ context.Context, ids []uint) ([]model.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	var out []model.User
	for _, id := range ids {
		if x, ok := u.byID[id]; ok {
			out = append(out, *x)
		}
	}
	return out, nil
}
