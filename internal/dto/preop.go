package dto

// ── 预检（preoperacional）DTO ──

// SubmitPreopResponse 提交预检结果
type SubmitPreopResponse struct {
	Status    string `json:"status"`
	WasLate   bool   `json:"wasLate"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

// AvailabilityRequest 查询今日是否可填写
type AvailabilityRequest struct {
	UserID   string `form:"userId"   binding:"required"`
	UserName string `form:"userName"`
}

// AvailabilityResponse 可填写状态
//   - reason: already_completed | non_working_day | past_deadline
//   - timeWindow: normal | late | expired
type AvailabilityResponse struct {
	CanFill    bool   `json:"canFill"`
	Reason     string `json:"reason,omitempty"`
	TimeWindow string `json:"timeWindow,omitempty"`
	Message    string `json:"message,omitempty"`
	Date       string `json:"date"`
	IsBlocked  bool   `json:"isBlocked"`
}

// DailyStatusRequest 每日状态查询
type DailyStatusRequest struct {
	Date string `form:"date"`
}

// DailyStatusItem 单个司机当日状态
type DailyStatusItem struct {
	UserID      string  `json:"userId"`
	UserName    string  `json:"userName"`
	VehicleType string  `json:"vehicleType"`
	Status      string  `json:"status"`
	DeliveredAt *string `json:"deliveredAt,omitempty"`
	WasLate     bool    `json:"wasLate"`
}

// DailyStatusSummary 当日汇总
type DailyStatusSummary struct {
	Total         int `json:"total"`
	Completed     int `json:"completed"`
	Late          int `json:"late"`
	Missing       int `json:"missing"`
	Pending       int `json:"pending"`
	NonWorkingDay int `json:"nonWorkingDay"`
}

// DailyStatusResponse 每日状态
type DailyStatusResponse struct {
	Date    string             `json:"date"`
	Items   []DailyStatusItem  `json:"items"`
	Summary DailyStatusSummary `json:"summary"`
}

// CheckMissedRequest 手动触发缺交检查；date 为空时取今天
type CheckMissedRequest struct {
	Date string `json:"date"`
}

// CheckMissedResponse 缺交检查结果
type CheckMissedResponse struct {
	Date               string   `json:"date"`
	Checked            int      `json:"checked"`
	Sanctioned         int      `json:"sanctioned"`
	CitationsTriggered int      `json:"citationsTriggered"`
	Skipped            int      `json:"skipped"`
	Failed             []string `json:"failed,omitempty"`
}

// UserRangeRequest 按司机与日期区间查询
type UserRangeRequest struct {
	UserID    string `form:"userId"    binding:"required"`
	StartDate string `form:"startDate" binding:"required"`
	EndDate   string `form:"endDate"   binding:"required"`
}

// SubmissionResponse 预检记录
type SubmissionResponse struct {
	ID          string                 `json:"id"`
	UserID      string                 `json:"userId"`
	UserName    string                 `json:"userName"`
	Date        string                 `json:"date"`
	VehicleType string                 `json:"vehicleType,omitempty"`
	Status      string                 `json:"status"`
	DeliveredAt *string                `json:"deliveredAt,omitempty"`
	WasLate     bool                   `json:"wasLate"`
	FormData    map[string]interface{} `json:"formData,omitempty"`
}

// CalendarDayResponse 司机日历中的一天
type CalendarDayResponse struct {
	Date       string `json:"date"`
	Weekday    int    `json:"weekday"` // 0=周日
	WorkingDay bool   `json:"workingDay"`
	Status     string `json:"status,omitempty"`
}

// UserCalendarResponse 司机日期区间日历
type UserCalendarResponse struct {
	UserID string                `json:"userId"`
	Days   []CalendarDayResponse `json:"days"`
}

// SanctionRequest 查询处罚
type SanctionRequest struct {
	UserID string `form:"userId" binding:"required"`
}

// SanctionEntryResponse 单次处罚
type SanctionEntryResponse struct {
	Date           string `json:"date"`
	Reason         string `json:"reason"`
	SanctionNumber int    `json:"sanctionNumber"`
	CreatedAt      string `json:"createdAt"`
}

// MissedCitationResponse 缺席约谈记录
type MissedCitationResponse struct {
	CitationID   string `json:"citationId"`
	CitationDate string `json:"citationDate"`
	MarkedBy     string `json:"markedBy"`
	Notes        string `json:"notes,omitempty"`
	CreatedAt    string `json:"createdAt"`
}

// UnblockEntryResponse 解封记录
type UnblockEntryResponse struct {
	UnblockedBy          string `json:"unblockedBy"`
	Reason               string `json:"reason,omitempty"`
	Note                 string `json:"note"`
	MissedCitationsCount int    `json:"missedCitationsCount"`
	CreatedAt            string `json:"createdAt"`
}

// SanctionResponse 司机处罚汇总
type SanctionResponse struct {
	UserID                string                   `json:"userId"`
	UserName              string                   `json:"userName"`
	TotalSanctions        int                      `json:"totalSanctions"`
	LastSanctionDate      *string                  `json:"lastSanctionDate,omitempty"`
	HasCitation           bool                     `json:"hasCitation"`
	CitationDate          *string                  `json:"citationDate,omitempty"`
	IsBlocked             bool                     `json:"isBlocked"`
	BlockReason           *string                  `json:"blockReason,omitempty"`
	MissedCitationsCount  int                      `json:"missedCitationsCount"`
	SanctionHistory       []SanctionEntryResponse  `json:"sanctionHistory"`
	MissedCitationHistory []MissedCitationResponse `json:"missedCitationHistory"`
	UnblockHistory        []UnblockEntryResponse   `json:"unblockHistory"`
}

// SyncReviewRequest 手动同步月度报表；userId 为空时同步全部在岗司机
type SyncReviewRequest struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Year     int    `json:"year"  binding:"required,min=2000,max=2100"`
	Month    int    `json:"month" binding:"required,min=1,max=12"`
}

// SyncReviewResponse 同步结果
type SyncReviewResponse struct {
	Synced        int         `json:"synced"`
	NotConfigured []DriverRef `json:"notConfigured,omitempty"`
}

// FormField 表单字段定义
//   - type: text | select | number | textarea | date
type FormField struct {
	Label       string   `json:"label"`
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	Required    bool     `json:"required"`
	Options     []string `json:"options,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
}

// PreopFormResponse 某车辆类型的预检表单
type PreopFormResponse struct {
	VehicleType string      `json:"vehicleType"`
	Fields      []FormField `json:"fields"`
}
