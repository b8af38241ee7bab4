package dto

// ── 课程目录 ──

// CatalogQuery 目录查询参数
type CatalogQuery struct {
	Q string `form:"q" binding:"max=100"`
}

// CourseResponse 目录课程
type CourseResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Credits int    `json:"credits"`
	Color   string `json:"color"`
}

// GridResponse 网格定义
type GridResponse struct {
	Days   []string `json:"days"`
	Blocks []string `json:"blocks"`
}

// ── 课表 ──

// PlaceRequest 放置课程请求
type PlaceRequest struct {
	CourseID string `json:"course_id" binding:"required,max=32"`
	Day      string `json:"day"       binding:"required,weekday"`
	Block    string `json:"block"     binding:"required,block"`
}

// ClearRequest 清空课表参数，必须显式确认
type ClearRequest struct {
	Confirm bool `form:"confirm"`
}

// EntryResponse 课表条目
type EntryResponse struct {
	ID       int64  `json:"id"`
	CourseID string `json:"course_id"`
	Name     string `json:"name"`
	Credits  int    `json:"credits"`
	Day      string `json:"day"`
	Block    string `json:"block"`
	Color    string `json:"color"`
}

// WarningResponse 重建时被跳过的数据行
type WarningResponse struct {
	RowID    int64  `json:"row_id"`
	CourseID string `json:"course_id"`
	Day      string `json:"day"`
	Block    string `json:"block"`
	Reason   string `json:"reason"`
}

// ScheduleResponse 课表快照
type ScheduleResponse struct {
	Email         string            `json:"email"`
	Name          string            `json:"name,omitempty"`
	Entries       []EntryResponse   `json:"entries"`
	Credits       int               `json:"credits"`
	CreditCeiling int               `json:"credit_ceiling"`
	CellCapacity  int               `json:"cell_capacity"`
	OverCeiling   bool              `json:"over_ceiling"`
	Warnings      []WarningResponse `json:"warnings,omitempty"`
}

// PlaceResponse 放置结果。Placed=false 表示该课程已在该单元格
type PlaceResponse struct {
	Entry    EntryResponse    `json:"entry"`
	Placed   bool             `json:"placed"`
	Schedule ScheduleResponse `json:"schedule"`
}

// ── 目录导入 ──

// ImportRowError 导入失败的行
type ImportRowError struct {
	Row    int    `json:"row"`
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// ImportCatalogResponse 目录导入结果
type ImportCatalogResponse struct {
	Total    int              `json:"total"`
	Imported int              `json:"imported"`
	Failed   []ImportRowError `json:"failed,omitempty"`
}
