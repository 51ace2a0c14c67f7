package model

import (
	"time"

	"gorm.io/gorm"
)

// 约谈状态
const (
	CitationScheduled = "scheduled"
	CitationAttended  = "attended"
	CitationNoShow    = "no_show"
	CitationCancelled = "cancelled"
)

// 约谈原因
const (
	CitationReasonAccumulatedSanctions = "accumulated_sanctions"
	CitationReasonBehaviorReview       = "behavior_review"
	CitationReasonOther                = "other"
)

// Citation 纪律约谈 对应 citations，只追加不删除
//
// ActiveKey 在约谈为该司机当前有效的 scheduled 约谈时等于 user_id，否则为 NULL；
// 其上的唯一索引保证每个司机至多一条有效约谈（并发创建时由数据库兜底）
type Citation struct {
	CitationID      string     `gorm:"size:36;primaryKey"                                   json:"id"`
	UserID          string     `gorm:"size:64;not null;index:idx_citation_user_status"     json:"user_id"`
	UserName        string     `gorm:"size:150;not null"                                    json:"user_name"`
	CitationDate    time.Time  `gorm:"not null;index"                                       json:"citation_date"`
	Reason          string     `gorm:"size:30;not null"                                     json:"reason"`
	ReasonDetails   string     `gorm:"type:text"                                            json:"reason_details,omitempty"`
	Status          string     `gorm:"size:20;not null;default:'scheduled';index:idx_citation_user_status" json:"status"`
	Automatic       bool       `gorm:"not null;default:false"                               json:"automatic"`
	CalendarEventID *string    `gorm:"size:255"                                             json:"calendar_event_id,omitempty"`
	ActiveKey       *string    `gorm:"size:64;uniqueIndex:uk_citation_active"               json:"-"`
	MarkedBy        *string    `gorm:"size:128"                                             json:"marked_by,omitempty"`
	MarkedAt        *time.Time `json:"marked_at,omitempty"`
	Notes           string     `gorm:"type:text"                                            json:"notes,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Citation) TableName() string { return "citations" }

func (c *Citation) BeforeCreate(_ *gorm.DB) error {
	newID(&c.CitationID)
	return nil
}

// IsTerminal 约谈已结案（出席/缺席/取消）
func (c *Citation) IsTerminal() bool {
	return c.Status != CitationScheduled
}
