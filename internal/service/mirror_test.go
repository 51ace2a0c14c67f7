package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"

	"supervitec-sgd/backend/internal/dto"
	"supervitec-sgd/backend/internal/model"
	"supervitec-sgd/backend/pkg/google"
)

// ── Mock SheetStore ──

// fakeSheetStore 只模拟审查表 K 列定位与写入记录
type fakeSheetStore struct {
	ensured  []string
	keys     map[string][]string // sheet → 第 2 行起的 ID USUARIO
	updates  map[string][][]interface{}
	appended map[string][][]interface{}
}

func newFakeSheetStore() *fakeSheetStore {
	return &fakeSheetStore{
		keys:     make(map[string][]string),
		updates:  make(map[string][][]interface{}),
		appended: make(map[string][][]interface{}),
	}
}

func (f *fakeSheetStore) AppendRow(_ context.Context, _, rng string, row []interface{}) error {
	f.appended[rng] = append(f.appended[rng], row)
	return nil
}

func (f *fakeSheetStore) GetValues(_ context.Context, _, rng string) ([][]interface{}, error) {
	sheet := strings.SplitN(rng, "!", 2)[0]
	var out [][]interface{}
	for _, k := range f.keys[sheet] {
		out = append(out, []interface{}{k})
	}
	return out, nil
}

func (f *fakeSheetStore) UpdateRange(_ context.Context, _, rng string, values [][]interface{}) error {
	f.updates[rng] = values
	parts := strings.SplitN(rng, "!", 2)
	if strings.HasPrefix(parts[1], "J") {
		var row int
		fmt.Sscanf(parts[1], "J%d", &row)
		for len(f.keys[parts[0]]) < row-1 {
			f.keys[parts[0]] = append(f.keys[parts[0]], "")
		}
		f.keys[parts[0]][row-2] = fmt.Sprint(values[0][1])
	}
	return nil
}

func (f *fakeSheetStore) EnsureSheet(_ context.Context, _, title string, _ []interface{}) error {
	f.ensured = append(f.ensured, title)
	return nil
}

func sampleStats(userID, name string) *dto.MonthStatsResponse {
	return &dto.MonthStatsResponse{
		UserID: userID, UserName: name, Year: 2025, Month: 3,
		TotalWorkingDays: 25,
		RegisteredDays:   []int{3, 4},
		MissingDays:      []int{},
		Maintenance:      "-",
		Support:          "-",
		Receipt:          "04: REC-778",
		Emails:           "-",
	}
}

// ═══════════════════════════════════════════════════════════
// 审查表
// ═══════════════════════════════════════════════════════════

func TestWriteReviewRow_UpsertsByUserID(t *testing.T) {
	store := newFakeSheetStore()
	m := NewSheetMirror(store, "review-sheet", "citations-sheet", zap.NewNop())
	ctx := context.Background()

	m.WriteReviewRow(ctx, sampleStats("1001", "José Pérez"))
	m.WriteReviewRow(ctx, sampleStats("1002", "Ana Gómez"))

	stats := sampleStats("1001", "José Pérez")
	stats.RegisteredDays = []int{3, 4, 5}
	if err := m.WriteReviewRow(ctx, stats); err != nil {
		t.Fatalf("写入失败: %v", err)
	}

	if got := store.keys["MARZO_2025"]; len(got) != 2 || got[0] != "1001" || got[1] != "1002" {
		t.Fatalf("期望每个司机一行, 实际=%v", got)
	}
	row := store.updates["MARZO_2025!A2:H2"][0]
	if row[0] != "José Pérez" || row[4] != "3-4-5" || row[5] != "-" {
		t.Errorf("A:H 内容错误: %v", row)
	}
	if jk := store.updates["MARZO_2025!J3:K3"][0]; jk[1] != "1002" {
		t.Errorf("J:K 内容错误: %v", jk)
	}
	if _, ok := store.updates["MARZO_2025!I2"]; ok {
		t.Error("系统写入不应覆盖 I 列")
	}
	if len(store.ensured) != 3 || store.ensured[0] != "MARZO_2025" {
		t.Errorf("期望每次写入前确保工作表存在, 实际=%v", store.ensured)
	}
}

func TestUpdateReviewCell(t *testing.T) {
	store := newFakeSheetStore()
	m := NewSheetMirror(store, "review-sheet", "", zap.NewNop())
	ctx := context.Background()

	m.WriteReviewRow(ctx, sampleStats("1001", "José Pérez"))

	if err := m.UpdateReviewCell(ctx, 2025, 3, "1001", ReviewColumnObservation, "Revisado"); err != nil {
		t.Fatalf("更新失败: %v", err)
	}
	if v := store.updates["MARZO_2025!I2"]; len(v) != 1 || v[0][0] != "Revisado" {
		t.Errorf("期望写入 I2, 实际=%v", v)
	}

	if err := m.UpdateReviewCell(ctx, 2025, 3, "9999", ReviewColumnReceipt, "x"); !errors.Is(err, ErrReviewRowNotFound) {
		t.Errorf("期望 ErrReviewRowNotFound, 实际=%v", err)
	}
}

func TestSheetMirror_NotConfigured(t *testing.T) {
	store := newFakeSheetStore()
	m := NewSheetMirror(store, "", "", zap.NewNop())
	ctx := context.Background()

	if err := m.WriteReviewRow(ctx, sampleStats("1001", "José")); err != nil {
		t.Errorf("未配置审查表时写入应跳过, 实际=%v", err)
	}
	if err := m.UpdateReviewCell(ctx, 2025, 3, "1001", ReviewColumnMaintenance, "x"); !errors.Is(err, ErrMirrorNotConfigured) {
		t.Errorf("期望 ErrMirrorNotConfigured, 实际=%v", err)
	}
	if err := m.AppendCitation(ctx, testCitation()); err != nil {
		t.Errorf("未配置约谈表时应跳过, 实际=%v", err)
	}
	if len(store.updates) != 0 || len(store.appended) != 0 {
		t.Error("未配置时不应访问表格")
	}
}

// ═══════════════════════════════════════════════════════════
// 约谈表
// ═══════════════════════════════════════════════════════════

func TestCitationSheets_AppendOnly(t *testing.T) {
	store := newFakeSheetStore()
	m := NewSheetMirror(store, "", "citations-sheet", zap.NewNop())
	ctx := context.Background()

	c := testCitation()
	m.AppendCitation(ctx, c)
	row := store.appended[citationsRange][0]
	if len(row) != 10 || row[0] != "c-1" || row[3] != "14/03/2025 09:00" || row[9] != notAvailableCell {
		t.Errorf("约谈行错误: %v", row)
	}

	c.Status = model.CitationNoShow
	rec := &model.SanctionRecord{UserID: "1001", UserName: "José", MissedCitations: 3, IsBlocked: true, TotalSanctions: 4}
	m.AppendAttendance(ctx, c, rec)
	if att := store.appended[attendanceRange][0]; att[9] != 3 || att[10] != "SÍ" {
		t.Errorf("出席行错误: %v", att)
	}

	entry := &model.UnblockEntry{UserID: "1001", UnblockedBy: testAdmin, Reason: defaultUnblockReason, CreatedAt: c.CitationDate}
	m.AppendUnblock(ctx, rec, entry)
	if ub := store.appended[unblockRange][0]; ub[3] != "Desbloqueado" || ub[7] != 4 {
		t.Errorf("解封行错误: %v", ub)
	}
}

// ═══════════════════════════════════════════════════════════
// Google Calendar
// ═══════════════════════════════════════════════════════════

type fakeEventStore struct {
	events []google.CalendarEvent
}

func (f *fakeEventStore) CreateEvent(_ context.Context, ev google.CalendarEvent) (string, error) {
	f.events = append(f.events, ev)
	return "evt-1", nil
}

func (f *fakeEventStore) DeleteEvent(context.Context, string) error { return nil }

func TestGoogleCalendarSync_CreateEvent(t *testing.T) {
	store := &fakeEventStore{}
	calSync := NewGoogleCalendarSync(store, "admin@supervitec.co")

	id, err := calSync.CreateCitationEvent(context.Background(), testCitation(), "jose@supervitec.co")
	if err != nil || id != "evt-1" {
		t.Fatalf("创建事件失败: id=%s err=%v", id, err)
	}
	ev := store.events[0]
	if ev.TimeZone != BogotaTimezone || ev.Duration != citationDuration {
		t.Errorf("事件时区或时长错误: %+v", ev)
	}
	if len(ev.Attendees) != 2 || ev.Attendees[0] != "jose@supervitec.co" {
		t.Errorf("参与人错误: %v", ev.Attendees)
	}
	if !strings.Contains(ev.Description, "Detalles: 3 sanciones") {
		t.Errorf("描述应含详情, 实际=%q", ev.Description)
	}
}

// ── 单元格格式 ──

func TestFormatHelpers(t *testing.T) {
	if s := formatDayList([]int{3, 4, 10}); s != "3-4-10" {
		t.Errorf("期望 3-4-10, 实际=%s", s)
	}
	if s := formatDayList(nil); s != "-" {
		t.Errorf("空列表期望 -, 实际=%s", s)
	}
	items := []dto.BadItemsDay{{Day: 5, Items: []string{"PITO: MALO", "CASCO: MALO"}}, {Day: 12, Items: []string{"Derrame de fluidos"}}}
	if s := formatBadItems(items); s != "05:PITO: MALO/CASCO: MALO | 12:Derrame de fluidos" {
		t.Errorf("不合格项格式错误: %s", s)
	}
	if orNA(nil) != notAvailableCell || yesNo(false) != "NO" {
		t.Error("单元格辅助函数错误")
	}
}
