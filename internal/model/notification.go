package model

import (
	"time"

	"gorm.io/gorm"
)

// 通知类型
const (
	NotifyKindMissed      = "missed"
	NotifyKindOverdue     = "overdue"
	NotifyKindLate        = "late"
	NotifyKindCitation    = "citation"
	NotifyKindReminder    = "reminder"
	NotifyKindDailyReport = "daily_report"
)

// 发送结果
const (
	NotifySent    = "sent"
	NotifyFailed  = "failed"
	NotifySkipped = "skipped"
)

// NotificationLog 通知发送流水 对应 notification_logs
// 邮件发送为尽力而为，失败只记录不回滚业务
type NotificationLog struct {
	NotificationID string    `gorm:"size:36;primaryKey"                 json:"id"`
	Kind           string    `gorm:"size:30;not null;index"             json:"kind"`
	UserID         *string   `gorm:"size:64;index"                      json:"user_id,omitempty"`
	Recipient      string    `gorm:"size:255;not null"                  json:"recipient"`
	Subject        string    `gorm:"size:255;not null"                  json:"subject"`
	Status         string    `gorm:"size:20;not null"                   json:"status"`
	Error          string    `gorm:"type:text"                          json:"error,omitempty"`
	CreatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName 指定表名
func (NotificationLog) TableName() string { return "notification_logs" }

func (n *NotificationLog) BeforeCreate(_ *gorm.DB) error {
	newID(&n.NotificationID)
	return nil
}
