package handler

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Nicoleon0812/calendario-carrera/internal/dto"
	"github.com/Nicoleon0812/calendario-carrera/internal/planner"
	"github.com/Nicoleon0812/calendario-carrera/internal/service"
	"github.com/Nicoleon0812/calendario-carrera/pkg/response"
)

// PlannerHandler 课表 HTTP 处理器
type PlannerHandler struct {
	plannerSvc service.PlannerService
}

// NewPlannerHandler 创建 PlannerHandler
func NewPlannerHandler(plannerSvc service.PlannerService) *PlannerHandler {
	return &PlannerHandler{plannerSvc: plannerSvc}
}

// GetSchedule 当前课表
// GET /api/v1/schedule
func (h *PlannerHandler) GetSchedule(c *gin.Context) {
	identity, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	result, err := h.plannerSvc.GetSchedule(c.Request.Context(), identity)
	if err != nil {
		handlePlannerError(c, err)
		return
	}
	response.OK(c, result)
}

// Place 放置课程
// POST /api/v1/schedule/placements
func (h *PlannerHandler) Place(c *gin.Context) {
	identity, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	var req dto.PlaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Parámetros inválidos")
		return
	}

	result, err := h.plannerSvc.Place(c.Request.Context(), identity, &req)
	if err != nil {
		handlePlannerError(c, err)
		return
	}
	if result.Placed {
		response.Created(c, result)
		return
	}
	response.OK(c, result)
}

// Remove 删除课表条目
// DELETE /api/v1/schedule/placements/:id
func (h *PlannerHandler) Remove(c *gin.Context) {
	identity, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, 10001, "Identificador inválido")
		return
	}

	result, err := h.plannerSvc.Remove(c.Request.Context(), identity, id)
	if err != nil {
		handlePlannerError(c, err)
		return
	}
	response.OK(c, result)
}

// ClearAll 清空课表，需 confirm=true
// DELETE /api/v1/schedule?confirm=true
func (h *PlannerHandler) ClearAll(c *gin.Context) {
	identity, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	var req dto.ClearRequest
	if err := c.ShouldBindQuery(&req); err != nil || !req.Confirm {
		response.BadRequest(c, 13007, "Confirma que deseas borrar todo tu horario")
		return
	}

	result, err := h.plannerSvc.ClearAll(c.Request.Context(), identity)
	if err != nil {
		handlePlannerError(c, err)
		return
	}
	response.OK(c, result)
}

// handlePlannerError 课表相关错误到响应码的映射
func handlePlannerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, planner.ErrCapacityExceeded):
		response.Conflict(c, 13001, limitMessage(err, planner.ErrCapacityExceeded, "Máximo %d ramos por bloque."))
	case errors.Is(err, planner.ErrCreditCeilingExceeded):
		response.Conflict(c, 13002, limitMessage(err, planner.ErrCreditCeilingExceeded, "Tope de %d créditos."))
	case errors.Is(err, planner.ErrPersistence):
		response.ServiceUnavailable(c, 13003, planner.ErrPersistence.Error())
	case errors.Is(err, planner.ErrCourseNotFound):
		response.NotFound(c, 13004, planner.ErrCourseNotFound.Error())
	case errors.Is(err, planner.ErrEntryNotFound):
		response.NotFound(c, 13005, planner.ErrEntryNotFound.Error())
	case errors.Is(err, planner.ErrInvalidSlot):
		response.BadRequest(c, 13006, planner.ErrInvalidSlot.Error())
	case errors.Is(err, planner.ErrCatalogNotLoaded):
		response.ServiceUnavailable(c, 12001, planner.ErrCatalogNotLoaded.Error())
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}

// limitMessage 按实际配置的上限生成提示，拿不到上限时退回错误文案
func limitMessage(err, sentinel error, format string) string {
	var le *planner.LimitError
	if errors.As(err, &le) {
		return fmt.Sprintf(format, le.Limit)
	}
	return sentinel.Error()
}
