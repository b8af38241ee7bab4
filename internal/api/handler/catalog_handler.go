package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Nicoleon0812/calendario-carrera/internal/dto"
	"github.com/Nicoleon0812/calendario-carrera/internal/service"
	"github.com/Nicoleon0812/calendario-carrera/pkg/response"
)

// CatalogHandler 课程目录与网格 HTTP 处理器
type CatalogHandler struct {
	catalogSvc service.CatalogService
}

// NewCatalogHandler 创建 CatalogHandler
func NewCatalogHandler(catalogSvc service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogSvc: catalogSvc}
}

// ListCourses 目录检索（代码或名称，忽略大小写与重音）
// GET /api/v1/catalog?q=
func (h *CatalogHandler) ListCourses(c *gin.Context) {
	var query dto.CatalogQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, 10001, "Parámetros inválidos")
		return
	}

	list, err := h.catalogSvc.List(query.Q)
	if err != nil {
		handlePlannerError(c, err)
		return
	}
	response.OK(c, list)
}

// GetGrid 网格定义
// GET /api/v1/grid
func (h *CatalogHandler) GetGrid(c *gin.Context) {
	response.OK(c, h.catalogSvc.Grid())
}
