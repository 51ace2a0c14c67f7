package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 预检记录状态
const (
	SubmissionCompleted     = "completed"
	SubmissionLate          = "late"
	SubmissionMissing       = "missing"
	SubmissionNonWorkingDay = "non_working_day"
	// SubmissionPending 仅用于每日状态视图，不落库
	SubmissionPending = "pending"
)

// SubmissionRecord 每日预检记录 对应 submission_records
// (user_id, date) 唯一；date 为波哥大时区的 YYYY-MM-DD
type SubmissionRecord struct {
	RecordID      string            `gorm:"size:36;primaryKey"                                json:"id"`
	UserID        string            `gorm:"size:64;not null;uniqueIndex:uk_submission_user_date" json:"user_id"`
	UserName      string            `gorm:"size:150;not null"                                 json:"user_name"`
	Date          string            `gorm:"size:10;not null;uniqueIndex:uk_submission_user_date;index" json:"date"`
	VehicleType   string            `gorm:"size:20"                                           json:"vehicle_type,omitempty"`
	Status        string            `gorm:"size:20;not null;default:'missing'"                json:"status"`
	DeliveredAt   *time.Time        `json:"delivered_at,omitempty"`
	FormData      datatypes.JSONMap `json:"form_data,omitempty"`
	WasLate       bool              `gorm:"not null;default:false"                            json:"was_late"`
	AdminNotified bool              `gorm:"not null;default:false"                            json:"admin_notified"`
	BaseModel
}

// TableName 指定表名
func (SubmissionRecord) TableName() string { return "submission_records" }

func (r *SubmissionRecord) BeforeCreate(_ *gorm.DB) error {
	newID(&r.RecordID)
	return nil
}

// IsRegistered 已提交（按时或迟交）
func (r *SubmissionRecord) IsRegistered() bool {
	return r.Status == SubmissionCompleted || r.Status == SubmissionLate
}
