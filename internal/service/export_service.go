package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/Nicoleon0812/calendario-carrera/config"
	"github.com/Nicoleon0812/calendario-carrera/internal/planner"
)

// ── 导出模块业务错误 ──

var ErrExportGenerateFail = errors.New("no se pudo generar el archivo")

// ExportService 导出业务接口
//
// 导出只读取会话快照，不等待进行中的变更，也不访问远端存储（会话不存在时除外）。
// 结果以 bytes.Buffer 返回，由 Handler 层设置响应头。
type ExportService interface {
	// ExportXLSX 导出为 Excel，行为时段、列为星期
	ExportXLSX(ctx context.Context, identity planner.Identity) (*bytes.Buffer, string, error)
	// ExportPNG 导出网格图片
	ExportPNG(ctx context.Context, identity planner.Identity) (*bytes.Buffer, string, error)
	// ExportICS 导出为按周重复的日历事件
	ExportICS(ctx context.Context, identity planner.Identity) (*bytes.Buffer, string, error)
}

type exportService struct {
	cfg       *config.ExportConfig
	planner   PlannerService
	termStart time.Time
	loc       *time.Location
	logger    *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(cfg *config.ExportConfig, plannerSvc PlannerService, logger *zap.Logger) ExportService {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn("时区无法加载，ICS 导出使用 UTC", zap.String("timezone", cfg.Timezone), zap.Error(err))
		loc = time.UTC
	}
	// 格式已由 config.Validate 校验
	termStart, _ := time.ParseInLocation("2006-01-02", cfg.TermStart, loc)

	return &exportService{
		cfg:       cfg,
		planner:   plannerSvc,
		termStart: termStart,
		loc:       loc,
		logger:    logger,
	}
}

func (s *exportService) snapshot(ctx context.Context, identity planner.Identity) (planner.Snapshot, error) {
	sess, err := s.planner.Session(ctx, identity)
	if err != nil {
		return planner.Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

// ═══════════════════════════════════════════════════════════
// ExportXLSX
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet 名取 export.sheet_name（默认 "Horario"）
//   - A1 为 "Horario"，B1~G1 为星期
//   - 每个时段一行，单元格为 "<代码> <名称>"，多门课以 " / " 连接

func (s *exportService) ExportXLSX(ctx context.Context, identity planner.Identity) (*bytes.Buffer, string, error) {
	snap, err := s.snapshot(ctx, identity)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := s.cfg.SheetName
	if sheet == "" {
		sheet = "Horario"
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		s.logger.Error("设置 Sheet 名失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	// 列宽：时段列 15，星期列 25
	lastCol := colName(len(planner.Days))
	f.SetColWidth(sheet, "A", "A", 15)
	f.SetColWidth(sheet, "B", lastCol, 25)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#2C3E50"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	cellStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "center", WrapText: true},
	})

	// 表头
	f.SetCellValue(sheet, "A1", "Horario")
	for i, d := range planner.Days {
		f.SetCellValue(sheet, cell(colName(i+1), 1), string(d))
	}
	f.SetCellStyle(sheet, "A1", cell(lastCol, 1), headerStyle)

	// 数据行
	for r, b := range planner.Blocks {
		row := r + 2
		f.SetCellValue(sheet, cell("A", row), string(b))
		for c, d := range planner.Days {
			f.SetCellValue(sheet, cell(colName(c+1), row), cellText(snap.Cell(planner.Slot{Day: d, Block: b})))
		}
	}
	f.SetCellStyle(sheet, "B2", cell(lastCol, len(planner.Blocks)+1), cellStyle)

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	return buf, fmt.Sprintf("Horario_%s.xlsx", snap.Identity.Email), nil
}

// cellText 单元格文本，多门课以 " / " 连接
func cellText(entries []planner.Entry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, e.Course.ID+" "+e.Course.Name)
	}
	return strings.Join(parts, " / ")
}

// ═══════════════════════════════════════════════════════════
// ExportPNG
// ═══════════════════════════════════════════════════════════

const (
	pngBlockColW = 110
	pngDayColW   = 180
	pngHeaderH   = 30
	pngRowH      = 72
	pngPad       = 3
)

var (
	pngBackground = color.RGBA{0xff, 0xff, 0xff, 0xff}
	pngHeaderBg   = color.RGBA{0x2c, 0x3e, 0x50, 0xff}
	pngGridLine   = color.RGBA{0xdd, 0xdd, 0xdd, 0xff}
	pngText       = color.RGBA{0x21, 0x21, 0x21, 0xff}
)

func (s *exportService) ExportPNG(ctx context.Context, identity planner.Identity) (*bytes.Buffer, string, error) {
	snap, err := s.snapshot(ctx, identity)
	if err != nil {
		return nil, "", err
	}

	width := pngBlockColW + pngDayColW*len(planner.Days)
	height := pngHeaderH + pngRowH*len(planner.Blocks)
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(pngBackground), image.Point{}, draw.Src)

	// 表头
	fillRect(img, image.Rect(0, 0, width, pngHeaderH), pngHeaderBg)
	drawText(img, 8, 20, "Horario", color.White, pngBlockColW-8)
	for i, d := range planner.Days {
		x := pngBlockColW + i*pngDayColW
		drawText(img, x+8, 20, string(d), color.White, pngDayColW-8)
	}

	capacity := snap.CellCapacity
	if capacity <= 0 {
		capacity = 1
	}
	cardH := (pngRowH - pngPad*(capacity+1)) / capacity

	for r, b := range planner.Blocks {
		y := pngHeaderH + r*pngRowH
		fillRect(img, image.Rect(0, y, width, y+1), pngGridLine)
		drawText(img, 8, y+pngRowH/2+4, string(b), pngText, pngBlockColW-8)

		for c, d := range planner.Days {
			x := pngBlockColW + c*pngDayColW
			fillRect(img, image.Rect(x, y, x+1, y+pngRowH), pngGridLine)

			for k, e := range snap.Cell(planner.Slot{Day: d, Block: b}) {
				top := y + pngPad + k*(cardH+pngPad)
				card := image.Rect(x+pngPad, top, x+pngDayColW-pngPad, top+cardH)
				if card.Max.Y > y+pngRowH {
					break // 超容量的历史数据只画得下前几张
				}
				fillRect(img, card, parseHex(planner.ColorFor(e.Course.Name)))
				drawText(img, card.Min.X+4, card.Min.Y+13, e.Course.ID, pngText, card.Dx()-8)
				if cardH >= 30 {
					drawText(img, card.Min.X+4, card.Min.Y+27, e.Course.Name, pngText, card.Dx()-8)
				}
			}
		}
	}

	buf := new(bytes.Buffer)
	if err := png.Encode(buf, img); err != nil {
		s.logger.Error("写入 PNG 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	return buf, fmt.Sprintf("Horario_%s.png", snap.Identity.Email), nil
}

func fillRect(img draw.Image, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

// drawText 在 (x, y) 基线处绘制文本，超出 maxW 像素的部分截断
func drawText(img draw.Image, x, y int, text string, c color.Color, maxW int) {
	face := basicfont.Face7x13
	maxRunes := maxW / face.Advance
	if maxRunes <= 0 {
		return
	}
	if runes := []rune(text); len(runes) > maxRunes {
		text = string(runes[:maxRunes-1]) + "."
	}
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// parseHex 解析 "#rrggbb"，失败时返回浅灰
func parseHex(hex string) color.RGBA {
	v, err := strconv.ParseUint(strings.TrimPrefix(hex, "#"), 16, 32)
	if err != nil || len(hex) != 7 {
		return color.RGBA{0xee, 0xee, 0xee, 0xff}
	}
	return color.RGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 0xff}
}

// ═══════════════════════════════════════════════════════════
// ExportICS
// ═══════════════════════════════════════════════════════════
//
// 每个条目一个 VEVENT，从 term_start 所在周起按周重复 term_weeks 次，
// 时间按配置时区写入 TZID，避免夏令时切换后课时漂移。

func (s *exportService) ExportICS(ctx context.Context, identity planner.Identity) (*bytes.Buffer, string, error) {
	snap, err := s.snapshot(ctx, identity)
	if err != nil {
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//calendario-carrera//Horario//ES")
	cal.SetXWRCalName("Horario " + snap.Identity.Email)
	cal.SetXWRTimezone(s.loc.String())

	tzid := &ics.KeyValues{Key: string(ics.ParameterTzid), Value: []string{s.loc.String()}}
	stamp := time.Now().UTC()

	for _, e := range snap.Entries {
		start, end, err := s.occurrence(e.Slot)
		if err != nil {
			s.logger.Warn("跳过无法换算时间的条目", zap.Int64("entry_id", e.ID), zap.Error(err))
			continue
		}

		event := cal.AddEvent(fmt.Sprintf("%d-%s@calendario-carrera", e.ID, snap.Identity.Email))
		event.SetDtStampTime(stamp)
		event.SetProperty(ics.ComponentPropertyDtStart, start.Format("20060102T150405"), tzid)
		event.SetProperty(ics.ComponentPropertyDtEnd, end.Format("20060102T150405"), tzid)
		event.SetSummary(e.Course.ID + " " + e.Course.Name)
		event.SetDescription(fmt.Sprintf("%d créditos", e.Course.Credits))
		event.AddProperty(ics.ComponentPropertyRrule, fmt.Sprintf("FREQ=WEEKLY;COUNT=%d", s.cfg.TermWeeks))
	}

	buf := bytes.NewBufferString(cal.Serialize())
	return buf, fmt.Sprintf("Horario_%s.ics", snap.Identity.Email), nil
}

// occurrence 条目在学期第一周的起止时间
func (s *exportService) occurrence(slot planner.Slot) (time.Time, time.Time, error) {
	day := slot.Day.Index()
	if day < 0 {
		return time.Time{}, time.Time{}, planner.ErrInvalidSlot
	}
	// term_start 不一定是周一，对齐到所在周的周一
	offset := (int(s.termStart.Weekday()) + 6) % 7
	date := s.termStart.AddDate(0, 0, day-offset)
	if day < offset {
		date = date.AddDate(0, 0, 7)
	}

	start, err := clockOn(date, slot.Block.Start(), s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := clockOn(date, slot.Block.End(), s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// clockOn 把 "HH:MM" 放到指定日期上
func clockOn(date time.Time, hhmm string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
