package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WorkCalendar 司机月度工作日历 对应 work_calendars
// 每个 (user_id, year, month) 至多一条；周日不存储，始终视为非工作日
type WorkCalendar struct {
	WorkCalendarID string                      `gorm:"size:36;primaryKey"                                      json:"id"`
	UserID         string                      `gorm:"size:64;not null;uniqueIndex:uk_work_calendar_user_month" json:"user_id"`
	Year           int                         `gorm:"not null;uniqueIndex:uk_work_calendar_user_month"         json:"year"`
	Month          int                         `gorm:"not null;uniqueIndex:uk_work_calendar_user_month"         json:"month"`
	NonWorkingDays datatypes.JSONSlice[string] `json:"non_working_days"`
	BaseModel
}

// TableName 指定表名
func (WorkCalendar) TableName() string { return "work_calendars" }

func (c *WorkCalendar) BeforeCreate(_ *gorm.DB) error {
	newID(&c.WorkCalendarID)
	return nil
}

// HasNonWorkingDay 判断日期（YYYY-MM-DD）是否被标记为非工作日
func (c *WorkCalendar) HasNonWorkingDay(date string) bool {
	for _, d := range c.NonWorkingDays {
		if d == date {
			return true
		}
	}
	return false
}
