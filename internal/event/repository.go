package event

import (
	"context"
	"time"

	"movienight/internal/model"

	"gorm.io/gorm"
)

// Repository 观影活动数据访问
type Repository interface {
	Transaction(ctx context.Context, fn func(tx Repository) error) error
	Create(ctx context.Context, e *model.Event) error
	FindByID(ctx context.Context, id uint) (*model.Event, error)
	ListForUser(ctx context.Context, userID uint, from *time.Time, limit int) ([]model.Event, error)
	CountUpcoming(ctx context.Context, userID uint, from time.Time) (int64, error)
	Delete(ctx context.Context, id uint) error
	AddParticipant(ctx context.Context, p *model.EventParticipant) error
	RemoveParticipant(ctx context.Context, eventID, userID uint) (int, error)
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

// Create 同时写入参与者
func (r *repositoryGorm) Create(ctx context.Context, e *model.Event) error {
	return gorm.G[model.Event](r.db).Create(ctx, e)
}

func (r *repositoryGorm) FindByID(ctx context.Context, id uint) (*model.Event, error) {
	e, err := gorm.G[model.Event](r.db).
		Preload("Movie", nil).
		Preload("Participants", nil).
		Where("id = ?", id).
		First(ctx)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

const participatingClause = "(host_id = ? OR id IN (SELECT event_id FROM event_participants WHERE user_id = ?))"

// ListForUser 主办或参与的活动，from 不为空时只返回之后的活动
func (r *repositoryGorm) ListForUser(ctx context.Context, userID uint, from *time.Time, limit int) ([]model.Event, error) {
	chain := gorm.G[model.Event](r.db).
		Preload("Movie", nil).
		Preload("Participants", nil).
		Where(participatingClause, userID, userID)
	if from != nil {
		chain = chain.Where("scheduled_at >= ?", *from)
	}
	return chain.Order("scheduled_at").Limit(limit).Find(ctx)
}

func (r *repositoryGorm) CountUpcoming(ctx context.Context, userID uint, from time.Time) (int64, error) {
	return gorm.G[model.Event](r.db).
		Where(participatingClause, userID, userID).
		Where("scheduled_at >= ?", from).
		Count(ctx, "id")
}

// Delete 先删参与者再删活动
func (r *repositoryGorm) Delete(ctx context.Context, id uint) error {
	if _, err := gorm.G[model.EventParticipant](r.db).Where("event_id = ?", id).Delete(ctx); err != nil {
		return err
	}
	_, err := gorm.G[model.Event](r.db).Where("id = ?", id).Delete(ctx)
	return err
}

func (r *repositoryGorm) AddParticipant(ctx context.Context, p *model.EventParticipant) error {
	return gorm.G[model.EventParticipant](r.db).Create(ctx, p)
}

func (r *repositoryGorm) RemoveParticipant(ctx context.Context, eventID, userID uint) (int, error) {
	return gorm.G[model.EventParticipant](r.db).Where("event_id = ? AND user_id = ?", eventID, userID).Delete(ctx)
}
