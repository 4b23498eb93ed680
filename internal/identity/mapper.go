// Package identity 把对外的用户标识转换为内部主键
package identity

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"movienight/internal/model"

	"gorm.io/gorm"
)

// UserLookup 身份映射依赖的用户查询
type UserLookup interface {
	FindByPublicID(ctx context.Context, publicID string) (*model.User, error)
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByIDs(ctx context.Context, ids []uint) ([]model.User, error)
}

// Mapper 外部ID -> 内部ID
type Mapper struct {
	users         UserLookup
	allowFallback bool
}

// NewMapper allowFallback 为 true 时，数字形式的外部ID可以回退匹配内部主键
func NewMapper(users UserLookup, allowFallback bool) *Mapper {
	return &Mapper{users: users, allowFallback: allowFallback}
}

// Resolve 返回内部ID，未找到时 found=false 且 err=nil
func (m *Mapper) Resolve(ctx context.Context, external string) (uint, bool, error) {
	u, found, err := m.ResolveUser(ctx, external)
	if err != nil || !found {
		return 0, found, err
	}
	return u.ID, true, nil
}

// ResolveUser 同 Resolve，但返回完整用户
func (m *Mapper) ResolveUser(ctx context.Context, external string) (*model.User, bool, error) {
	external = strings.TrimSpace(external)
	if external == "" {
		return nil, false, nil
	}

	u, err := m.users.FindByPublicID(ctx, external)
	switch {
	case err == nil:
		return u, true, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, err
	}

	if !m.allowFallback {
		return nil, false, nil
	}
	id, perr := strconv.ParseUint(external, 10, 64)
	if perr != nil || id == 0 {
		return nil, false, nil
	}
	u, err = m.users.FindByID(ctx, uint(id))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}

// Summaries 内部ID -> 用户摘要，缺失的ID不出现在结果中
func (m *Mapper) Summaries(ctx context.Context, ids ...uint) (map[uint]model.UserSummary, error) {
	out := make(map[uint]model.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	seen := make(map[uint]struct{}, len(ids))
	uniq := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}
	users, err := m.users.FindByIDs(ctx, uniq)
	if err != nil {
		return nil, err
	}
	for i := range users {
		out[users[i].ID] = users[i].Summary()
	}
	return out, nil
}
