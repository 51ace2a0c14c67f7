package dto

// ── 工作日历 DTO ──

// UpdateWorkCalendarRequest 覆盖某月的非工作日集合
type UpdateWorkCalendarRequest struct {
	NonWorkingDays []string `json:"nonWorkingDays" binding:"max=31,dive,datetime=2006-01-02"`
}

// DeleteWorkCalendarResponse 清除某月日历的结果
// deleted=false 表示该月本就未配置
type DeleteWorkCalendarResponse struct {
	UserID  string `json:"userId"`
	Year    int    `json:"year"`
	Month   int    `json:"month"`
	Deleted bool   `json:"deleted"`
}

// WorkCalendarResponse 月度工作日历
// configured=false 表示该月尚未配置（按工作日处理）
type WorkCalendarResponse struct {
	UserID         string   `json:"userId"`
	Year           int      `json:"year"`
	Month          int      `json:"month"`
	NonWorkingDays []string `json:"nonWorkingDays"`
	Configured     bool     `json:"configured"`
	UpdatedBy      *string  `json:"updatedBy,omitempty"`
	UpdatedAt      string   `json:"updatedAt,omitempty"`
}
