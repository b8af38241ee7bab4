package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Nicoleon0812/calendario-carrera/internal/model"
)

// PlacementRepository 已排课程数据访问接口（满足 planner.Store）
type PlacementRepository interface {
	ListByEmail(ctx context.Context, email string) ([]model.Placement, error)
	Create(ctx context.Context, p *model.Placement) error
	DeleteByID(ctx context.Context, email string, id int64) error
	DeleteByEmail(ctx context.Context, email string) error
}

type placementRepo struct {
	db *gorm.DB
}

// NewPlacementRepo 创建 PlacementRepository 实例
func NewPlacementRepo(db *gorm.DB) PlacementRepository {
	return &placementRepo{db: db}
}

func (r *placementRepo) ListByEmail(ctx context.Context, email string) ([]model.Placement, error) {
	var rows []model.Placement
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *placementRepo) Create(ctx context.Context, p *model.Placement) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *placementRepo) DeleteByID(ctx context.Context, email string, id int64) error {
	// 带上 email，避免删除他人的行
	return r.db.WithContext(ctx).
		Where("id = ? AND email = ?", id, email).
		Delete(&model.Placement{}).Error
}

func (r *placementRepo) DeleteByEmail(ctx context.Context, email string) error {
	// 单条语句删除，要么全部成功要么全部失败
	return r.db.WithContext(ctx).
		Where("email = ?", email).
		Delete(&model.Placement{}).Error
}
