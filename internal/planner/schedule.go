package planner

import "sort"

// Entry 课表中的一个条目。ID 由远端存储分配。
type Entry struct {
	ID     int64
	Course *Course
	Slot   Slot
}

// Schedule 某个身份的课表状态
//
// 不做并发保护，由 Session 负责串行化；学分总数每次按不同课程重新推导。
type Schedule struct {
	entries []Entry
}

// NewSchedule 创建空课表
func NewSchedule() *Schedule {
	return &Schedule{}
}

// Len 条目数
func (s *Schedule) Len() int {
	return len(s.entries)
}

// Entries 按网格顺序（星期、时段、ID）返回条目副本
func (s *Schedule) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if di, dj := a.Slot.Day.Index(), b.Slot.Day.Index(); di != dj {
			return di < dj
		}
		if bi, bj := a.Slot.Block.Index(), b.Slot.Block.Index(); bi != bj {
			return bi < bj
		}
		return a.ID < b.ID
	})
	return out
}

// InSlot 某单元格内的条目
func (s *Schedule) InSlot(slot Slot) []Entry {
	var out []Entry
	for _, e := range s.entries {
		if e.Slot == slot {
			out = append(out, e)
		}
	}
	return out
}

// Contains 课程是否已出现在任意单元格
func (s *Schedule) Contains(courseID string) bool {
	for _, e := range s.entries {
		if e.Course.ID == courseID {
			return true
		}
	}
	return false
}

// At 查找同一课程在指定单元格的条目
func (s *Schedule) At(courseID string, slot Slot) (Entry, bool) {
	for _, e := range s.entries {
		if e.Slot == slot && e.Course.ID == courseID {
			return e, true
		}
	}
	return Entry{}, false
}

// Entry 按 ID 查找条目
func (s *Schedule) Entry(id int64) (Entry, bool) {
	for _, e := range s.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Credits 不同课程的学分之和：同一课程放在多个单元格只计一次
func (s *Schedule) Credits() int {
	seen := make(map[string]struct{}, len(s.entries))
	total := 0
	for _, e := range s.entries {
		if _, ok := seen[e.Course.ID]; ok {
			continue
		}
		seen[e.Course.ID] = struct{}{}
		total += e.Course.Credits
	}
	return total
}

// CourseCount 课表中不同课程的数量
func (s *Schedule) CourseCount() int {
	seen := make(map[string]struct{}, len(s.entries))
	for _, e := range s.entries {
		seen[e.Course.ID] = struct{}{}
	}
	return len(seen)
}

func (s *Schedule) add(e Entry) {
	s.entries = append(s.entries, e)
}

func (s *Schedule) remove(id int64) (Entry, bool) {
	for i, e := range s.entries {
		if e.ID == id {
			s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
			return e, true
		}
	}
	return Entry{}, false
}

func (s *Schedule) reset() {
	s.entries = nil
}
