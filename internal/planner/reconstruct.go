package planner

import (
	"fmt"
	"sort"

	"github.com/Nicoleon0812/calendario-carrera/internal/model"
)

// WarningReason 重建时丢弃一行的原因
type WarningReason string

const (
	WarnUnknownCourse WarningReason = "unknown_course" // 课程代码不在当前目录中
	WarnInvalidSlot   WarningReason = "invalid_slot"   // 星期或时段无法解析
	WarnDuplicate     WarningReason = "duplicate"      // 同一课程同一单元格的重复行
)

// Warning 数据质量告警：对应远端一行被跳过，不影响其余行
type Warning struct {
	RowID    int64
	CourseID string
	Day      string
	Block    string
	Reason   WarningReason
}

func (w Warning) String() string {
	return fmt.Sprintf("fila %d (%s, %s %s): %s", w.RowID, w.CourseID, w.Day, w.Block, w.Reason)
}

// Reconstruct 由远端行重建课表。
//
// 行按 ID 升序处理；课程代码需在目录中可解析，星期与时段需可解析，
// 同一 (课程, 单元格) 只保留 ID 最小的一行。学分由解析成功的不同课程推导。
// 单元格超容量、学分超上限的历史数据原样保留。
func Reconstruct(rows []model.Placement, catalog *Catalog) (*Schedule, []Warning) {
	sorted := make([]model.Placement, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	state := NewSchedule()
	var warnings []Warning
	for _, row := range sorted {
		w := Warning{RowID: row.ID, CourseID: row.CourseID, Day: row.Day, Block: row.Block}

		course, ok := catalog.Get(row.CourseID)
		if !ok {
			w.Reason = WarnUnknownCourse
			warnings = append(warnings, w)
			continue
		}
		slot, err := ParseSlot(row.Day, row.Block)
		if err != nil {
			w.Reason = WarnInvalidSlot
			warnings = append(warnings, w)
			continue
		}
		if _, dup := state.At(course.ID, slot); dup {
			w.Reason = WarnDuplicate
			warnings = append(warnings, w)
			continue
		}
		state.add(Entry{ID: row.ID, Course: course, Slot: slot})
	}
	return state, warnings
}
