package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"supervitec-sgd/backend/internal/dto"
	"supervitec-sgd/backend/internal/model"
)

// marchRecords 2025 年 3 月：3 日按时，4 日迟交并报告不合格项
func marchRecords() []model.SubmissionRecord {
	onTime := at(2025, 3, 3, 8, 0, 0).UTC()
	late := at(2025, 3, 4, 10, 30, 0).UTC()
	return []model.SubmissionRecord{
		{
			UserID: "1001", Date: "2025-03-03", Status: model.SubmissionCompleted, DeliveredAt: &onTime,
			FormData: map[string]interface{}{fieldEmail: "jose@supervitec.co", fieldReceipt: "N/A"},
		},
		{
			UserID: "1001", Date: "2025-03-04", Status: model.SubmissionLate, WasLate: true, DeliveredAt: &late,
			FormData: map[string]interface{}{
				"PITO":               "MALO",
				fieldMaintenanceFlag: "SI",
				fieldMaintenanceDesc: "Cambio de aceite",
				fieldReceipt:         "REC-778",
			},
		},
	}
}

func marchCalendar() *model.WorkCalendar {
	return &model.WorkCalendar{UserID: "1001", Year: 2025, Month: 3, NonWorkingDays: []string{"2025-03-10"}}
}

// ═══════════════════════════════════════════════════════════
// buildMonthStats
// ═══════════════════════════════════════════════════════════

func TestBuildMonthStats_March2025(t *testing.T) {
	stats := buildMonthStats("1001", "José Pérez", 2025, 3, marchCalendar(), marchRecords(), "2025-03-05")

	// 31 天减去 5 个周日与 3 月 10 日
	if stats.TotalWorkingDays != 25 {
		t.Errorf("期望 25 个工作日, 实际=%d", stats.TotalWorkingDays)
	}
	if !reflect.DeepEqual(stats.RegisteredDays, []int{3, 4}) {
		t.Errorf("期望已提交 [3 4], 实际=%v", stats.RegisteredDays)
	}
	// 6 日之后尚未到来，不计缺交
	if !reflect.DeepEqual(stats.MissingDays, []int{1, 5}) {
		t.Errorf("期望缺交 [1 5], 实际=%v", stats.MissingDays)
	}
	if stats.LateCount != 1 || stats.LateDeliveries[0].Day != 4 {
		t.Errorf("期望 4 日迟交, 实际=%+v", stats.LateDeliveries)
	}
	if stats.ComplianceRate != "8.0" {
		t.Errorf("期望合规率 8.0, 实际=%s", stats.ComplianceRate)
	}
	if !stats.RequiresCitation {
		t.Error("迟交 1 次加缺交 2 次应标记需约谈")
	}
	if len(stats.BadItems) != 1 || stats.BadItems[0].Day != 4 || stats.BadItems[0].Items[0] != "PITO: MALO" {
		t.Errorf("不合格项错误: %+v", stats.BadItems)
	}
	if stats.Maintenance != "04: Cambio de aceite" {
		t.Errorf("保养汇总错误: %q", stats.Maintenance)
	}
	if stats.Receipt != "04: REC-778" || stats.Support != "-" || stats.Emails != "03: jose@supervitec.co" {
		t.Errorf("汇总字段错误: receipt=%q support=%q emails=%q", stats.Receipt, stats.Support, stats.Emails)
	}
}

func TestBuildMonthStats_Deterministic(t *testing.T) {
	a := buildMonthStats("1001", "José Pérez", 2025, 3, marchCalendar(), marchRecords(), "2025-03-05")
	b := buildMonthStats("1001", "José Pérez", 2025, 3, marchCalendar(), marchRecords(), "2025-03-05")
	if !reflect.DeepEqual(a, b) {
		t.Error("相同输入应得到相同统计")
	}
}

func TestBuildMonthStats_MissingRecordStored(t *testing.T) {
	records := []model.SubmissionRecord{{UserID: "1001", Date: "2025-03-20", Status: model.SubmissionMissing}}
	stats := buildMonthStats("1001", "José Pérez", 2025, 3, marchCalendar(), records, "2025-03-05")

	// 已落库的 missing 记录即使在“今天”之后也计入
	if !reflect.DeepEqual(stats.MissingDays, []int{1, 3, 4, 5, 20}) {
		t.Errorf("期望缺交 [1 3 4 5 20], 实际=%v", stats.MissingDays)
	}
	if stats.ComplianceRate != "0.0" {
		t.Errorf("期望合规率 0.0, 实际=%s", stats.ComplianceRate)
	}
}

func TestComplianceRate_Rounding(t *testing.T) {
	if r := complianceRate(2, 3); r != "66.7" {
		t.Errorf("期望 66.7, 实际=%s", r)
	}
	if r := complianceRate(0, 0); r != "0.0" {
		t.Errorf("期望 0.0, 实际=%s", r)
	}
}

// ═══════════════════════════════════════════════════════════
// ReviewService
// ═══════════════════════════════════════════════════════════

func TestReview_NotConfiguredDrivers(t *testing.T) {
	env := setupTestEnv(at(2025, 3, 5, 18, 0, 0))
	env.setNonWorking(t, "1001", 2025, 3, "2025-03-10")
	ctx := context.Background()

	resp, err := env.review.Review(ctx, "marzo_2025")
	if err != nil {
		t.Fatalf("Review 失败: %v", err)
	}
	if resp.Month != "MARZO_2025" || resp.Year != 2025 || resp.MonthNumber != 3 {
		t.Errorf("月份解析错误: %+v", resp)
	}
	if len(resp.Rows) != 1 || resp.Rows[0].UserID != "1001" {
		t.Errorf("期望仅 1001 有统计, 实际=%+v", resp.Rows)
	}
	if len(resp.NotConfigured) != 2 {
		t.Errorf("期望 2 名司机未配置日历, 实际=%v", resp.NotConfigured)
	}
	if len(env.mirror.reviewRows) != 0 {
		t.Error("Review 只读，不应写镜像")
	}

	if _, err := env.review.Review(ctx, "MARZO-2025"); !errors.Is(err, ErrInvalidReviewMonth) {
		t.Errorf("期望 ErrInvalidReviewMonth, 实际=%v", err)
	}
}

func TestSyncMonth(t *testing.T) {
	env := setupTestEnv(at(2025, 3, 5, 18, 0, 0))
	env.setNonWorking(t, "1001", 2025, 3, "2025-03-10")
	ctx := context.Background()

	resp, err := env.review.SyncMonth(ctx, &dto.SyncReviewRequest{Year: 2025, Month: 3})
	if err != nil {
		t.Fatalf("SyncMonth 失败: %v", err)
	}
	if resp.Synced != 1 || len(resp.NotConfigured) != 2 || len(env.mirror.reviewRows) != 1 {
		t.Errorf("同步结果错误: %+v rows=%d", resp, len(env.mirror.reviewRows))
	}
	if env.mirror.reviewRows[0].UserName != "José Pérez" {
		t.Errorf("期望镜像行带司机姓名, 实际=%s", env.mirror.reviewRows[0].UserName)
	}

	_, err = env.review.SyncMonth(ctx, &dto.SyncReviewRequest{UserID: "1002", Year: 2025, Month: 3})
	if !errors.Is(err, ErrCalendarNotConfigured) {
		t.Errorf("期望 ErrCalendarNotConfigured, 实际=%v", err)
	}
	if _, err := env.review.SyncMonth(ctx, &dto.SyncReviewRequest{Year: 2025, Month: 13}); !errors.Is(err, ErrInvalidCalendarMonth) {
		t.Errorf("期望 ErrInvalidCalendarMonth, 实际=%v", err)
	}
}

func TestSubmissionRefreshesReviewRow(t *testing.T) {
	env := setupTestEnv(at(2025, 3, 11, 8, 0, 0))
	env.setNonWorking(t, "1001", 2025, 3, "2025-03-10")

	if _, err := env.preop.RecordSubmission(context.Background(), "1001", "José Pérez", model.VehicleMoto, sampleForm(), env.clock); err != nil {
		t.Fatalf("提交失败: %v", err)
	}
	if len(env.mirror.reviewRows) != 1 {
		t.Fatalf("期望提交后刷新审查行, 实际=%d", len(env.mirror.reviewRows))
	}
	if row := env.mirror.reviewRows[0]; !reflect.DeepEqual(row.RegisteredDays, []int{11}) {
		t.Errorf("期望已提交 [11], 实际=%v", row.RegisteredDays)
	}
}

func TestMonths(t *testing.T) {
	env := setupTestEnv(at(2025, 2, 10, 8, 0, 0))

	got := env.review.Months(3)
	want := []string{"FEBRERO_2025", "ENERO_2025", "DICIEMBRE_2024"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("期望 %v, 实际 %v", want, got)
	}
	if n := len(env.review.Months(0)); n != 12 {
		t.Errorf("默认期望 12 个月, 实际=%d", n)
	}
}

func TestUpdateField(t *testing.T) {
	env := setupTestEnv(at(2025, 3, 11, 8, 0, 0))
	ctx := context.Background()

	req := &dto.UpdateReviewFieldRequest{Month: "MARZO_2025", UserID: "1001", Value: "Revisado"}
	if err := env.review.UpdateField(ctx, ReviewColumnObservation, req, testAdmin); err != nil {
		t.Fatalf("UpdateField 失败: %v", err)
	}
	if v := env.mirror.cells["MARZO_2025|1001|I"]; v != "Revisado" {
		t.Errorf("期望写入 I 列, 实际=%q", v)
	}

	bad := &dto.UpdateReviewFieldRequest{Month: "2025-03", UserID: "1001", Value: "x"}
	if err := env.review.UpdateField(ctx, ReviewColumnObservation, bad, testAdmin); !errors.Is(err, ErrInvalidReviewMonth) {
		t.Errorf("期望 ErrInvalidReviewMonth, 实际=%v", err)
	}

	noop := NewReviewService(env.repo, env.directory, env.citation, NewNoopMirror(), zap.NewNop())
	if err := noop.UpdateField(ctx, ReviewColumnReceipt, req, testAdmin); !errors.Is(err, ErrMirrorNotConfigured) {
		t.Errorf("期望 ErrMirrorNotConfigured, 实际=%v", err)
	}
}

func TestCitarAutomatico(t *testing.T) {
	env := setupTestEnv(at(2025, 3, 11, 15, 0, 0))
	ctx := context.Background()

	if _, err := env.review.CitarAutomatico(ctx, &dto.CitarAutomaticoRequest{}, testAdmin); !errors.Is(err, ErrConductorRequired) {
		t.Errorf("期望 ErrConductorRequired, 实际=%v", err)
	}

	req := &dto.CitarAutomaticoRequest{Conductor: dto.ConductorRef{UserID: "1002", Nombre: "Ana Gómez", TotalTardanzas: 4}}
	resp, err := env.review.CitarAutomatico(ctx, req, testAdmin)
	if err != nil {
		t.Fatalf("CitarAutomatico 失败: %v", err)
	}
	if !resp.Automatic || resp.Reason != model.CitationReasonAccumulatedSanctions {
		t.Errorf("期望自动约谈, 实际=%+v", resp)
	}
	if resp.ReasonDetails != "Citación automática por acumular 4 tardanzas" {
		t.Errorf("约谈说明错误: %q", resp.ReasonDetails)
	}
	if want := formatTime(at(2025, 3, 14, 9, 0, 0).UTC()); resp.CitationDate != want {
		t.Errorf("期望约谈时间 %s, 实际 %s", want, resp.CitationDate)
	}

	if _, err := env.review.CitarAutomatico(ctx, req, testAdmin); !errors.Is(err, ErrActiveCitationExists) {
		t.Errorf("重复约谈期望 ErrActiveCitationExists, 实际=%v", err)
	}
}

// ═══════════════════════════════════════════════════════════
// 工作表命名
// ═══════════════════════════════════════════════════════════

func TestParseReviewMonth(t *testing.T) {
	tests := []struct {
		key   string
		year  int
		month int
		ok    bool
	}{
		{"MARZO_2025", 2025, 3, true},
		{"septiembre_2024", 2024, 9, true},
		{"Diciembre_2030", 2030, 12, true},
		{"MARZO2025", 0, 0, false},
		{"MARCH_2025", 0, 0, false},
		{"MARZO_1999", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			y, m, err := ParseReviewMonth(tt.key)
			if tt.ok != (err == nil) {
				t.Fatalf("期望 ok=%v, 实际 err=%v", tt.ok, err)
			}
			if y != tt.year || m != tt.month {
				t.Errorf("期望 %d-%d, 实际 %d-%d", tt.year, tt.month, y, m)
			}
		})
	}
	if ReviewSheetName(2025, 1) != "ENERO_2025" {
		t.Error("工作表命名错误")
	}
}
