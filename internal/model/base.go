package model

import (
	"time"

	"github.com/google/uuid"
)

// BaseModel 通用审计字段（所有业务模型嵌入）
// 操作人记录管理员邮箱或 "system"（定时任务）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	CreatedBy *string   `gorm:"size:128"                           json:"created_by,omitempty"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	UpdatedBy *string   `gorm:"size:128"                           json:"updated_by,omitempty"`
}

// VersionedModel 支持乐观锁的模型
type VersionedModel struct {
	BaseModel
	Version int `gorm:"not null;default:1" json:"version"`
}

// SystemActor 定时任务等非人工操作的操作人标识
const SystemActor = "system"

// newID 生成主键；主键由应用生成以兼容 sqlite/mysql
func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// AllModels 返回全部持久化模型（sqlite/mysql 下用于 AutoMigrate）
func AllModels() []interface{} {
	return []interface{}{
		&Driver{},
		&WorkCalendar{},
		&SubmissionRecord{},
		&SanctionRecord{},
		&SanctionEntry{},
		&MissedCitationEntry{},
		&UnblockEntry{},
		&Citation{},
		&NotificationLog{},
	}
}
