package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Nicoleon0812/calendario-carrera/internal/model"
)

// CourseRepository 课程目录数据访问接口
type CourseRepository interface {
	List(ctx context.Context) ([]model.Course, error)
	// Upsert 按代码插入或覆盖名称与学分（import-catalog 使用）
	Upsert(ctx context.Context, courses []model.Course) error
}

type courseRepo struct {
	db *gorm.DB
}

// NewCourseRepo 创建 CourseRepository 实例
func NewCourseRepo(db *gorm.DB) CourseRepository {
	return &courseRepo{db: db}
}

func (r *courseRepo) List(ctx context.Context) ([]model.Course, error) {
	var courses []model.Course
	err := r.db.WithContext(ctx).
		Order("id ASC").
		Find(&courses).Error
	return courses, err
}

func (r *courseRepo) Upsert(ctx context.Context, courses []model.Course) error {
	if len(courses) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"nombre", "creditos"}),
		}).
		CreateInBatches(&courses, 200).Error
}
