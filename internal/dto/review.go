package dto

// ── 月度审查 DTO ──

// ReviewRequest 月度审查查询，month 形如 MARZO_2025
type ReviewRequest struct {
	Month string `form:"month" binding:"required"`
}

// LateDelivery 迟交记录
type LateDelivery struct {
	Day         int    `json:"day"`
	DeliveredAt string `json:"deliveredAt"`
}

// BadItemsDay 某日检查不合格项
type BadItemsDay struct {
	Day   int      `json:"day"`
	Items []string `json:"items"`
}

// MonthStatsResponse 司机月度统计
type MonthStatsResponse struct {
	UserID           string         `json:"userId"`
	UserName         string         `json:"userName"`
	Year             int            `json:"year"`
	Month            int            `json:"month"`
	TotalWorkingDays int            `json:"totalWorkingDays"`
	RegisteredDays   []int          `json:"registeredDays"`
	MissingDays      []int          `json:"missingDays"`
	LateDeliveries   []LateDelivery `json:"lateDeliveries"`
	LateCount        int            `json:"lateCount"`
	BadItems         []BadItemsDay  `json:"badItems"`
	Maintenance      string         `json:"maintenance"`
	Support          string         `json:"support"`
	Receipt          string         `json:"receipt"`
	Emails           string         `json:"emails"`
	ComplianceRate   string         `json:"complianceRate"`
	RequiresCitation bool           `json:"requiresCitation"`
}

// ReviewResponse 月度审查列表
type ReviewResponse struct {
	Month         string               `json:"month"`
	Year          int                  `json:"year"`
	MonthNumber   int                  `json:"monthNumber"`
	Rows          []MonthStatsResponse `json:"rows"`
	NotConfigured []DriverRef          `json:"notConfigured"`
}

// ConductorRef 审查页面传入的司机信息
type ConductorRef struct {
	UserID         string `json:"userId"         binding:"required"`
	Nombre         string `json:"nombre"         binding:"required"`
	TotalTardanzas int    `json:"totalTardanzas"`
}

// CitarAutomaticoRequest 从审查页面直接发起自动约谈
type CitarAutomaticoRequest struct {
	Conductor ConductorRef `json:"conductor"`
}

// UpdateReviewFieldRequest 管理员修改审查表中的人工字段
type UpdateReviewFieldRequest struct {
	Month  string `json:"month"  binding:"required"`
	UserID string `json:"userId" binding:"required"`
	Value  string `json:"value"  binding:"max=5000"`
}
