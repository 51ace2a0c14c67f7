package dto

// ── 约谈模块 DTO ──

// CreateCitationRequest 手动创建约谈
type CreateCitationRequest struct {
	UserID        string `json:"userId"        binding:"required,max=64"`
	UserName      string `json:"userName"      binding:"required,max=150"`
	CitationDate  string `json:"citationDate"  binding:"required"` // RFC3339
	Reason        string `json:"reason"        binding:"required,oneof=accumulated_sanctions behavior_review other"`
	ReasonDetails string `json:"reasonDetails" binding:"max=2000"`
}

// MarkAttendanceRequest 标记出席结果
type MarkAttendanceRequest struct {
	Status string `json:"status" binding:"required,oneof=attended no_show"`
	Notes  string `json:"notes"  binding:"max=2000"`
}

// CancelCitationRequest 取消约谈
type CancelCitationRequest struct {
	Notes string `json:"notes" binding:"max=2000"`
}

// UnblockRequest 解封司机
type UnblockRequest struct {
	Reason string `json:"reason" binding:"max=2000"`
}

// CitationListRequest 约谈列表筛选
type CitationListRequest struct {
	Status string `form:"status" binding:"omitempty,oneof=scheduled attended no_show cancelled"`
	UserID string `form:"userId"`
	Search string `form:"search"`
}

// CitationResponse 约谈信息（附带司机当前封禁状态）
type CitationResponse struct {
	ID                   string  `json:"id"`
	UserID               string  `json:"userId"`
	UserName             string  `json:"userName"`
	CitationDate         string  `json:"citationDate"`
	Reason               string  `json:"reason"`
	ReasonDetails        string  `json:"reasonDetails,omitempty"`
	Status               string  `json:"status"`
	Automatic            bool    `json:"automatic"`
	CalendarEventID      *string `json:"calendarEventId,omitempty"`
	MarkedBy             *string `json:"markedBy,omitempty"`
	MarkedAt             *string `json:"markedAt,omitempty"`
	Notes                string  `json:"notes,omitempty"`
	CreatedBy            *string `json:"createdBy,omitempty"`
	CreatedAt            string  `json:"createdAt"`
	IsBlocked            bool    `json:"isBlocked"`
	MissedCitationsCount int     `json:"missedCitationsCount"`
}

// AttendanceResponse 标记出席后的约谈与封禁状态
type AttendanceResponse struct {
	Citation             CitationResponse `json:"citation"`
	IsBlocked            bool             `json:"isBlocked"`
	MissedCitationsCount int              `json:"missedCitationsCount"`
	JustBlocked          bool             `json:"justBlocked"`
}

// UnblockResponse 解封结果
type UnblockResponse struct {
	UserID               string `json:"userId"`
	IsBlocked            bool   `json:"isBlocked"`
	MissedCitationsCount int    `json:"missedCitationsCount"`
	UnblockedBy          string `json:"unblockedBy"`
	UnblockedAt          string `json:"unblockedAt"`
}
