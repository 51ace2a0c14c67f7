package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"supervitec-sgd/backend/internal/dto"
	"supervitec-sgd/backend/internal/model"
	"supervitec-sgd/backend/pkg/google"
)

// ── Google Sheets 镜像 ──
//
// 审查表：每月一个工作表 MES_AAAA，每个司机一行，以 K 列（ID USUARIO）定位。
// A:H 与 J:K 由系统写入，I 列（OBSERVACIÓN）留给管理员。
// 约谈表：Citaciones / Asistencias / Desbloqueos 三个工作表只追加。

// SheetStore 表格读写能力，由 *google.SheetsClient 实现
type SheetStore interface {
	AppendRow(ctx context.Context, spreadsheetID, rng string, row []interface{}) error
	GetValues(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error)
	UpdateRange(ctx context.Context, spreadsheetID, rng string, values [][]interface{}) error
	EnsureSheet(ctx context.Context, spreadsheetID, title string, header []interface{}) error
}

var monthNames = [...]string{
	"ENERO", "FEBRERO", "MARZO", "ABRIL", "MAYO", "JUNIO",
	"JULIO", "AGOSTO", "SEPTIEMBRE", "OCTUBRE", "NOVIEMBRE", "DICIEMBRE",
}

// ReviewSheetName 月度审查工作表名，例如 MARZO_2025
func ReviewSheetName(year, month int) string {
	return fmt.Sprintf("%s_%d", monthNames[month-1], year)
}

// ParseReviewMonth 解析 MES_AAAA；不区分大小写与重音
func ParseReviewMonth(key string) (int, int, error) {
	parts := strings.Split(foldText(key), "_")
	if len(parts) != 2 {
		return 0, 0, ErrInvalidReviewMonth
	}
	var year int
	if _, err := fmt.Sscanf(parts[1], "%d", &year); err != nil || year < 2000 || year > 2100 {
		return 0, 0, ErrInvalidReviewMonth
	}
	for i, name := range monthNames {
		if parts[0] == name {
			return year, i + 1, nil
		}
	}
	return 0, 0, ErrInvalidReviewMonth
}

var reviewHeader = []interface{}{
	"NOMBRE", "CORREO(S)", "ITEM EN MAL ESTADO", "DÍAS HÁBILES", "DÍAS REGISTRADOS",
	"DÍAS FALTANTES", "MANTENIMIENTO", "SOPORTE", "OBSERVACIÓN", "RECIBO", "ID USUARIO",
}

const (
	reviewKeyRange   = "K2:K200"
	citationsRange   = "Citaciones!A:J"
	attendanceRange  = "Asistencias!A:K"
	unblockRange     = "Desbloqueos!A:H"
	sheetTimeLayout  = "02/01/2006 15:04"
	notAvailableCell = "N/A"
)

type sheetMirror struct {
	store            SheetStore
	reviewSheetID    string
	citationsSheetID string
	logger           *zap.Logger
}

// NewSheetMirror 创建 Sheets 镜像；未配置的表格 ID 对应的写入直接跳过
func NewSheetMirror(store SheetStore, reviewSheetID, citationsSheetID string, logger *zap.Logger) Mirror {
	return &sheetMirror{
		store:            store,
		reviewSheetID:    reviewSheetID,
		citationsSheetID: citationsSheetID,
		logger:           logger,
	}
}

// findReviewRow 按 ID USUARIO 查找行号；create=true 时未找到返回下一空行
func (m *sheetMirror) findReviewRow(ctx context.Context, sheet, userID string, create bool) (int, error) {
	values, err := m.store.GetValues(ctx, m.reviewSheetID, sheet+"!"+reviewKeyRange)
	if err != nil {
		return 0, err
	}
	want := foldText(userID)
	for i, row := range values {
		if len(row) > 0 && foldText(fmt.Sprint(row[0])) == want {
			return i + 2, nil
		}
	}
	if !create {
		return 0, ErrReviewRowNotFound
	}
	return len(values) + 2, nil
}

func (m *sheetMirror) WriteReviewRow(ctx context.Context, stats *dto.MonthStatsResponse) error {
	if m.reviewSheetID == "" {
		return nil
	}
	sheet := ReviewSheetName(stats.Year, stats.Month)
	if err := m.store.EnsureSheet(ctx, m.reviewSheetID, sheet, reviewHeader); err != nil {
		return err
	}

	row, err := m.findReviewRow(ctx, sheet, stats.UserID, true)
	if err != nil {
		return err
	}

	ah := [][]interface{}{{
		stats.UserName,
		stats.Emails,
		formatBadItems(stats.BadItems),
		stats.TotalWorkingDays,
		formatDayList(stats.RegisteredDays),
		formatDayList(stats.MissingDays),
		stats.Maintenance,
		stats.Support,
	}}
	if err := m.store.UpdateRange(ctx, m.reviewSheetID, fmt.Sprintf("%s!A%d:H%d", sheet, row, row), ah); err != nil {
		return err
	}

	jk := [][]interface{}{{stats.Receipt, stats.UserID}}
	if err := m.store.UpdateRange(ctx, m.reviewSheetID, fmt.Sprintf("%s!J%d:K%d", sheet, row, row), jk); err != nil {
		return err
	}

	m.logger.Debug("审查表已更新",
		zap.String("sheet", sheet),
		zap.Int("row", row),
		zap.String("user_id", stats.UserID),
	)
	return nil
}

func (m *sheetMirror) UpdateReviewCell(ctx context.Context, year, month int, userID string, column ReviewColumn, value string) error {
	if m.reviewSheetID == "" {
		return ErrMirrorNotConfigured
	}
	sheet := ReviewSheetName(year, month)
	row, err := m.findReviewRow(ctx, sheet, userID, false)
	if err != nil {
		return err
	}
	cellRange := fmt.Sprintf("%s!%s%d", sheet, column, row)
	return m.store.UpdateRange(ctx, m.reviewSheetID, cellRange, [][]interface{}{{value}})
}

func (m *sheetMirror) AppendCitation(ctx context.Context, c *model.Citation) error {
	if m.citationsSheetID == "" {
		return nil
	}
	row := []interface{}{
		c.CitationID,
		c.UserID,
		c.UserName,
		sheetTime(c.CitationDate),
		c.Reason,
		c.ReasonDetails,
		c.Status,
		deref(c.CreatedBy),
		sheetTime(c.CreatedAt),
		orNA(c.CalendarEventID),
	}
	return m.store.AppendRow(ctx, m.citationsSheetID, citationsRange, row)
}

func (m *sheetMirror) AppendAttendance(ctx context.Context, c *model.Citation, rec *model.SanctionRecord) error {
	if m.citationsSheetID == "" {
		return nil
	}
	markedAt := ""
	if c.MarkedAt != nil {
		markedAt = sheetTime(*c.MarkedAt)
	}
	row := []interface{}{
		c.CitationID,
		c.UserID,
		c.UserName,
		sheetTime(c.CitationDate),
		c.Reason,
		c.Status,
		deref(c.MarkedBy),
		markedAt,
		c.Notes,
		rec.MissedCitations,
		yesNo(rec.IsBlocked),
	}
	return m.store.AppendRow(ctx, m.citationsSheetID, attendanceRange, row)
}

func (m *sheetMirror) AppendUnblock(ctx context.Context, rec *model.SanctionRecord, entry *model.UnblockEntry) error {
	if m.citationsSheetID == "" {
		return nil
	}
	row := []interface{}{
		sheetTime(entry.CreatedAt),
		rec.UserID,
		rec.UserName,
		"Desbloqueado",
		entry.Reason,
		entry.UnblockedBy,
		rec.MissedCitations,
		rec.TotalSanctions,
	}
	return m.store.AppendRow(ctx, m.citationsSheetID, unblockRange, row)
}

// ── Google Calendar ──

// EventStore 日历事件读写能力，由 *google.CalendarClient 实现
type EventStore interface {
	CreateEvent(ctx context.Context, ev google.CalendarEvent) (string, error)
	DeleteEvent(ctx context.Context, eventID string) error
}

const citationDuration = 30 * time.Minute

type googleCalendarSync struct {
	events       EventStore
	adminMailbox string
}

// NewGoogleCalendarSync 创建约谈日历同步
func NewGoogleCalendarSync(events EventStore, adminMailbox string) CalendarSync {
	return &googleCalendarSync{events: events, adminMailbox: adminMailbox}
}

func (g *googleCalendarSync) CreateCitationEvent(ctx context.Context, c *model.Citation, attendeeEmail string) (string, error) {
	desc := fmt.Sprintf("Conductor: %s\nID: %s\nMotivo: %s", c.UserName, c.UserID, c.Reason)
	if c.ReasonDetails != "" {
		desc += "\nDetalles: " + c.ReasonDetails
	}
	return g.events.CreateEvent(ctx, google.CalendarEvent{
		Summary:     "Citación formal - " + c.UserName,
		Description: desc,
		Start:       c.CitationDate,
		Duration:    citationDuration,
		TimeZone:    BogotaTimezone,
		Attendees:   []string{attendeeEmail, g.adminMailbox},
	})
}

func (g *googleCalendarSync) DeleteEvent(ctx context.Context, eventID string) error {
	return g.events.DeleteEvent(ctx, eventID)
}

// ── 单元格格式 ──

func sheetTime(t time.Time) string {
	return t.In(bogota).Format(sheetTimeLayout)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func orNA(s *string) string {
	if s == nil || *s == "" {
		return notAvailableCell
	}
	return *s
}

func yesNo(b bool) string {
	if b {
		return "SÍ"
	}
	return "NO"
}

// formatDayList 日序号列表格式化为 "3-4-10"，空列表为 "-"
func formatDayList(days []int) string {
	if len(days) == 0 {
		return "-"
	}
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = fmt.Sprint(d)
	}
	return strings.Join(parts, "-")
}

// formatBadItems 格式化为 "05:PITO: MALO/CASCO: MALO | 12:..."
func formatBadItems(days []dto.BadItemsDay) string {
	if len(days) == 0 {
		return "-"
	}
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = fmt.Sprintf("%02d:%s", d.Day, strings.Join(d.Items, "/"))
	}
	return strings.Join(parts, " | ")
}
