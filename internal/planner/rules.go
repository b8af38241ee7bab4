package planner

import "fmt"

// 默认约束
const (
	DefaultCellCapacity  = 2
	DefaultCreditCeiling = 30
)

// Rules 放置前的约束
type Rules struct {
	CellCapacity  int
	CreditCeiling int
}

// DefaultRules 每格最多 2 门课，总学分不超过 30
func DefaultRules() Rules {
	return Rules{CellCapacity: DefaultCellCapacity, CreditCeiling: DefaultCreditCeiling}
}

// Check 依次校验：单元格容量 → 同格重复 → 学分上限，先失败者生效。
//
// 同一课程已在该单元格时返回已有条目且 dup=true，调用方应静默跳过，不写远端。
// 学分上限使用严格大于：恰好等于上限是允许的。已超过上限的历史课表只阻止新增课程。
func (r Rules) Check(s *Schedule, course *Course, slot Slot) (existing Entry, dup bool, err error) {
	if n := len(s.InSlot(slot)); n >= r.CellCapacity {
		return Entry{}, false, &LimitError{
			Err:    ErrCapacityExceeded,
			Limit:  r.CellCapacity,
			Detail: fmt.Sprintf("máximo %d en %s", r.CellCapacity, slot),
		}
	}
	if e, ok := s.At(course.ID, slot); ok {
		return e, true, nil
	}
	if !s.Contains(course.ID) {
		if total := s.Credits() + course.Credits; total > r.CreditCeiling {
			return Entry{}, false, &LimitError{
				Err:    ErrCreditCeilingExceeded,
				Limit:  r.CreditCeiling,
				Detail: fmt.Sprintf("%d + %d > %d", s.Credits(), course.Credits, r.CreditCeiling),
			}
		}
	}
	return Entry{}, false, nil
}
