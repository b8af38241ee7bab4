package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Nicoleon0812/calendario-carrera/internal/planner"
	"github.com/Nicoleon0812/calendario-carrera/internal/service"
	"github.com/Nicoleon0812/calendario-carrera/pkg/response"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

type exportFunc func(ctx context.Context, identity planner.Identity) (*bytes.Buffer, string, error)

// ExportXLSX 导出 Excel
// GET /api/v1/export/xlsx
func (h *ExportHandler) ExportXLSX(c *gin.Context) {
	h.serve(c, h.exportSvc.ExportXLSX, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
}

// ExportPNG 导出图片
// GET /api/v1/export/png
func (h *ExportHandler) ExportPNG(c *gin.Context) {
	h.serve(c, h.exportSvc.ExportPNG, "image/png")
}

// ExportICS 导出日历
// GET /api/v1/export/ics
func (h *ExportHandler) ExportICS(c *gin.Context) {
	h.serve(c, h.exportSvc.ExportICS, "text/calendar; charset=utf-8")
}

func (h *ExportHandler) serve(c *gin.Context, export exportFunc, contentType string) {
	identity, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	buf, filename, err := export(c.Request.Context(), identity)
	if err != nil {
		if errors.Is(err, service.ErrExportGenerateFail) {
			response.Error(c, http.StatusInternalServerError, 14001, service.ErrExportGenerateFail.Error())
			return
		}
		handlePlannerError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
