package model

// Course 课程目录表 — 对应 asignaturas
// 目录由 import-catalog 命令维护，服务运行期间只读
type Course struct {
	ID      string `gorm:"column:id;type:varchar(32);primaryKey"  json:"id"`
	Name    string `gorm:"column:nombre;type:varchar(200);not null" json:"nombre"`
	Credits int    `gorm:"column:creditos;type:smallint;not null"  json:"creditos"`
}

// TableName 指定表名
func (Course) TableName() string { return "asignaturas" }
