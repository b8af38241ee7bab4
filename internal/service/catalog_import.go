package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/Nicoleon0812/calendario-carrera/internal/dto"
	"github.com/Nicoleon0812/calendario-carrera/internal/model"
	"github.com/Nicoleon0812/calendario-carrera/internal/planner"
)

// ────────────────────── ParseCatalogFile ──────────────────────

const maxImportRows = 5000

var (
	ErrImportNoData      = errors.New("el archivo no tiene filas de datos (la primera fila es el encabezado)")
	ErrImportTooManyRows = fmt.Errorf("el archivo supera el máximo de %d filas", maxImportRows)
	ErrImportBadHeader   = errors.New("faltan columnas obligatorias en el encabezado (id / nombre / creditos)")
	ErrImportNoSheet     = errors.New("la hoja indicada no existe")
)

// ImportCourseRow 目录导入的一行
type ImportCourseRow struct {
	Row     int
	ID      string
	Name    string
	Credits string
}

// ParseCatalogFile 解析目录 Excel 文件。sheet 为空时取第一个工作表
func ParseCatalogFile(reader io.Reader, sheet string) ([]ImportCourseRow, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("无法解析Excel文件: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	} else if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		return nil, ErrImportNoSheet
	}
	excelRows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %w", err)
	}

	if len(excelRows) < 2 {
		return nil, ErrImportNoData
	}

	// 解析表头（支持灵活列序）
	colIndex := parseHeaderIndex(excelRows[0])
	if colIndex["id"] < 0 || colIndex["name"] < 0 || colIndex["credits"] < 0 {
		return nil, ErrImportBadHeader
	}

	var rows []ImportCourseRow
	for i := 1; i < len(excelRows); i++ {
		row := excelRows[i]
		item := ImportCourseRow{Row: i + 1}

		if idx := colIndex["id"]; idx < len(row) {
			item.ID = strings.TrimSpace(row[idx])
		}
		if idx := colIndex["name"]; idx < len(row) {
			item.Name = strings.TrimSpace(row[idx])
		}
		if idx := colIndex["credits"]; idx < len(row) {
			item.Credits = strings.TrimSpace(row[idx])
		}

		// 跳过全空行
		if item.ID == "" && item.Name == "" && item.Credits == "" {
			continue
		}

		rows = append(rows, item)
	}

	if len(rows) == 0 {
		return nil, ErrImportNoData
	}
	if len(rows) > maxImportRows {
		return nil, ErrImportTooManyRows
	}

	return rows, nil
}

// parseHeaderIndex 解析表头，返回列名 -> 列索引映射（忽略大小写与重音）
func parseHeaderIndex(header []string) map[string]int {
	idx := map[string]int{
		"id":      -1,
		"name":    -1,
		"credits": -1,
	}
	for i, h := range header {
		switch planner.Fold(h) {
		case "id", "codigo", "sigla", "ramo_id":
			idx["id"] = i
		case "name", "nombre", "ramo", "asignatura":
			idx["name"] = i
		case "credits", "creditos", "sct":
			idx["credits"] = i
		}
	}
	return idx
}

// ────────────────────── Import ──────────────────────

// Import 校验并按代码写入目录。无效行跳过并记录原因，不影响其余行。
// 写入后不会刷新已加载的目录，重启服务后生效
func (s *catalogService) Import(ctx context.Context, rows []ImportCourseRow) (*dto.ImportCatalogResponse, error) {
	resp := &dto.ImportCatalogResponse{Total: len(rows)}
	seen := make(map[string]int, len(rows))
	courses := make([]model.Course, 0, len(rows))

	fail := func(r ImportCourseRow, reason string) {
		resp.Failed = append(resp.Failed, dto.ImportRowError{Row: r.Row, ID: r.ID, Reason: reason})
	}

	for _, r := range rows {
		if r.ID == "" {
			fail(r, "código vacío")
			continue
		}
		if r.Name == "" {
			fail(r, "nombre vacío")
			continue
		}
		credits, err := strconv.Atoi(r.Credits)
		if err != nil || credits <= 0 {
			fail(r, "créditos inválidos: "+r.Credits)
			continue
		}
		if first, dup := seen[r.ID]; dup {
			fail(r, fmt.Sprintf("código repetido (fila %d)", first))
			continue
		}
		seen[r.ID] = r.Row
		courses = append(courses, model.Course{ID: r.ID, Name: r.Name, Credits: credits})
	}

	if err := s.repo.Course.Upsert(ctx, courses); err != nil {
		s.logger.Error("写入课程目录失败", zap.Error(err))
		return nil, err
	}
	resp.Imported = len(courses)

	s.logger.Info("课程目录导入完成",
		zap.Int("total", resp.Total),
		zap.Int("imported", resp.Imported),
		zap.Int("failed", len(resp.Failed)),
	)
	return resp, nil
}
