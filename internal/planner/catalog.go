package planner

import (
	"fmt"
	"strings"

	"github.com/Nicoleon0812/calendario-carrera/internal/model"
)

// Course 目录中的一门课程。加载后不可变，课表条目只持有其指针。
type Course struct {
	ID      string
	Name    string
	Credits int
}

// Catalog 课程目录，按加载顺序保存
type Catalog struct {
	courses []*Course
	byID    map[string]*Course
	folded  []string // 与 courses 一一对应的检索文本
}

// NewCatalog 由目录表行构建目录；ID 重复或学分非正时报错
func NewCatalog(rows []model.Course) (*Catalog, error) {
	c := &Catalog{
		courses: make([]*Course, 0, len(rows)),
		byID:    make(map[string]*Course, len(rows)),
		folded:  make([]string, 0, len(rows)),
	}
	for _, r := range rows {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			return nil, fmt.Errorf("catálogo: ramo sin código")
		}
		if _, dup := c.byID[id]; dup {
			return nil, fmt.Errorf("catálogo: código duplicado %q", id)
		}
		if r.Credits <= 0 {
			return nil, fmt.Errorf("catálogo: ramo %q con créditos no positivos (%d)", id, r.Credits)
		}
		course := &Course{ID: id, Name: strings.TrimSpace(r.Name), Credits: r.Credits}
		c.courses = append(c.courses, course)
		c.byID[id] = course
		c.folded = append(c.folded, Fold(course.ID)+"\x00"+Fold(course.Name))
	}
	return c, nil
}

// Get 按课程代码查找
func (c *Catalog) Get(id string) (*Course, bool) {
	course, ok := c.byID[strings.TrimSpace(id)]
	return course, ok
}

// Len 课程数量
func (c *Catalog) Len() int {
	return len(c.courses)
}

// All 返回全部课程（新切片，元素共享）
func (c *Catalog) All() []*Course {
	out := make([]*Course, len(c.courses))
	copy(out, c.courses)
	return out
}

// Search 按代码或名称做包含匹配，忽略大小写与重音；空查询返回全部
func (c *Catalog) Search(query string) []*Course {
	q := Fold(query)
	if q == "" {
		return c.All()
	}
	var out []*Course
	for i, course := range c.courses {
		if strings.Contains(c.folded[i], q) {
			out = append(out, course)
		}
	}
	return out
}
