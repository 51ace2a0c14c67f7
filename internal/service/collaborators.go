package service

import (
	"context"
	"time"

	"supervitec-sgd/backend/internal/dto"
	"supervitec-sgd/backend/internal/model"
)

// ── 外部协作者 ──
//
// 邮件、Google Sheets 镜像、Google Calendar 与司机目录均通过接口注入。
// 除司机目录外，调用方把协作者的失败视为尽力而为：记录日志，不回滚业务数据。

// DriverInfo 司机目录条目
type DriverInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	VehicleType string `json:"vehicleType"`
	Email       string `json:"email,omitempty"`
	Active      bool   `json:"active"`
}

// DriverDirectory 在岗司机目录
type DriverDirectory interface {
	ListActive(ctx context.Context) ([]DriverInfo, error)
	// Lookup 查询单个司机；不存在时返回 (nil, nil)
	Lookup(ctx context.Context, userID string) (*DriverInfo, error)
}

// CitationNotice 约谈邮件内容
type CitationNotice struct {
	Citation *model.Citation
	Email    string // 司机邮箱，可能为空
	History  []model.SanctionEntry
}

// Notifier 通知协作者
type Notifier interface {
	// NotifyMissed 通知管理员某司机未交预检（已处罚）
	NotifyMissed(ctx context.Context, userID, userName, date string) error
	// NotifyLate 通知管理员某司机迟交
	NotifyLate(ctx context.Context, userID, userName, date string, deliveredAt time.Time) error
	// NotifyOverdue 09:00 截止后汇总通知管理员尚未提交的司机
	NotifyOverdue(ctx context.Context, date string, drivers []DriverInfo) error
	// SendCitation 发送约谈通知给司机与管理员邮箱，附 .ics 邀请
	SendCitation(ctx context.Context, notice CitationNotice) error
	SendReminder(ctx context.Context, driver DriverInfo, date string) error
	SendDailyReport(ctx context.Context, report *dto.DailyStatusResponse) error
}

// Mirror Google Sheets 持久镜像
type Mirror interface {
	WriteReviewRow(ctx context.Context, stats *dto.MonthStatsResponse) error
	// UpdateReviewCell 更新审查表中由管理员维护的列
	UpdateReviewCell(ctx context.Context, year, month int, userID string, column ReviewColumn, value string) error
	AppendCitation(ctx context.Context, c *model.Citation) error
	AppendAttendance(ctx context.Context, c *model.Citation, rec *model.SanctionRecord) error
	AppendUnblock(ctx context.Context, rec *model.SanctionRecord, entry *model.UnblockEntry) error
}

// CalendarSync 约谈日历事件
type CalendarSync interface {
	// CreateCitationEvent 返回外部事件 ID
	CreateCitationEvent(ctx context.Context, c *model.Citation, attendeeEmail string) (string, error)
	DeleteEvent(ctx context.Context, eventID string) error
}

// ReviewColumn 审查表中由管理员编辑的列
type ReviewColumn string

const (
	ReviewColumnMaintenance ReviewColumn = "G"
	ReviewColumnObservation ReviewColumn = "I"
	ReviewColumnReceipt     ReviewColumn = "J"
)

// ── 未配置时的空实现 ──

type noopMirror struct{}

// NewNoopMirror Google 集成关闭时使用
func NewNoopMirror() Mirror { return noopMirror{} }

func (noopMirror) WriteReviewRow(context.Context, *dto.MonthStatsResponse) error { return nil }

func (noopMirror) UpdateReviewCell(context.Context, int, int, string, ReviewColumn, string) error {
	return ErrMirrorNotConfigured
}

func (noopMirror) AppendCitation(context.Context, *model.Citation) error { return nil }

func (noopMirror) AppendAttendance(context.Context, *model.Citation, *model.SanctionRecord) error {
	return nil
}

func (noopMirror) AppendUnblock(context.Context, *model.SanctionRecord, *model.UnblockEntry) error {
	return nil
}

type noopCalendar struct{}

// NewNoopCalendar Google 集成关闭时使用，约谈不生成外部事件
func NewNoopCalendar() CalendarSync { return noopCalendar{} }

func (noopCalendar) CreateCitationEvent(context.Context, *model.Citation, string) (string, error) {
	return "", nil
}

func (noopCalendar) DeleteEvent(context.Context, string) error { return nil }
