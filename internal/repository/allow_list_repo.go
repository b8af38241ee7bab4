package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Nicoleon0812/calendario-carrera/internal/model"
)

// AllowListRepository 登录白名单数据访问接口
type AllowListRepository interface {
	// GetByEmail 未找到时返回 gorm.ErrRecordNotFound
	GetByEmail(ctx context.Context, email string) (*model.AllowedUser, error)
	Upsert(ctx context.Context, user *model.AllowedUser) error
}

type allowListRepo struct {
	db *gorm.DB
}

// NewAllowListRepo 创建 AllowListRepository 实例
func NewAllowListRepo(db *gorm.DB) AllowListRepository {
	return &allowListRepo{db: db}
}

func (r *allowListRepo) GetByEmail(ctx context.Context, email string) (*model.AllowedUser, error) {
	var user model.AllowedUser
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *allowListRepo) Upsert(ctx context.Context, user *model.AllowedUser) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"nombre"}),
		}).
		Create(user).Error
}
