package service

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Nicoleon0812/calendario-carrera/internal/dto"
	"github.com/Nicoleon0812/calendario-carrera/internal/planner"
	"github.com/Nicoleon0812/calendario-carrera/internal/repository"
)

// CatalogService 课程目录。启动时加载一次，之后只读
type CatalogService interface {
	// Load 从数据库加载目录，必须在开始接收请求前完成
	Load(ctx context.Context) error
	// Catalog 未加载时返回 nil
	Catalog() *planner.Catalog
	List(query string) ([]dto.CourseResponse, error)
	Grid() dto.GridResponse
	Import(ctx context.Context, rows []ImportCourseRow) (*dto.ImportCatalogResponse, error)
}

type catalogService struct {
	repo    *repository.Repository
	catalog atomic.Pointer[planner.Catalog]
	logger  *zap.Logger
}

// NewCatalogService 创建 CatalogService 实例
func NewCatalogService(repo *repository.Repository, logger *zap.Logger) CatalogService {
	return &catalogService{repo: repo, logger: logger}
}

func (s *catalogService) Load(ctx context.Context) error {
	rows, err := s.repo.Course.List(ctx)
	if err != nil {
		s.logger.Error("加载课程目录失败", zap.Error(err))
		return err
	}
	catalog, err := planner.NewCatalog(rows)
	if err != nil {
		s.logger.Error("课程目录数据非法", zap.Error(err))
		return err
	}
	s.catalog.Store(catalog)
	s.logger.Info("课程目录已加载", zap.Int("courses", catalog.Len()))
	return nil
}

func (s *catalogService) Catalog() *planner.Catalog {
	return s.catalog.Load()
}

func (s *catalogService) List(query string) ([]dto.CourseResponse, error) {
	catalog := s.catalog.Load()
	if catalog == nil {
		return nil, planner.ErrCatalogNotLoaded
	}
	courses := catalog.Search(query)
	list := make([]dto.CourseResponse, 0, len(courses))
	for _, c := range courses {
		list = append(list, dto.CourseResponse{
			ID:      c.ID,
			Name:    c.Name,
			Credits: c.Credits,
			Color:   planner.ColorFor(c.Name),
		})
	}
	return list, nil
}

func (s *catalogService) Grid() dto.GridResponse {
	grid := dto.GridResponse{
		Days:   make([]string, len(planner.Days)),
		Blocks: make([]string, len(planner.Blocks)),
	}
	for i, d := range planner.Days {
		grid.Days[i] = string(d)
	}
	for i, b := range planner.Blocks {
		grid.Blocks[i] = string(b)
	}
	return grid
}
