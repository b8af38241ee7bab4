package model

// AllowedUser 登录白名单表 — 对应 usuarios_autorizados
type AllowedUser struct {
	Email string `gorm:"column:email;type:varchar(255);primaryKey" json:"email"`
	Name  string `gorm:"column:nombre;type:varchar(200);not null"  json:"nombre"`
	CreatedModel
}

// TableName 指定表名
func (AllowedUser) TableName() string { return "usuarios_autorizados" }
