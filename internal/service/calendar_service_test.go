package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"supervitec-sgd/backend/internal/dto"
	"supervitec-sgd/backend/internal/repository"
)

func setupCalendar() (CalendarService, *mockWorkCalendarRepo) {
	calendars := newMockWorkCalendarRepo()
	repo := &repository.Repository{WorkCalendar: calendars}
	return NewCalendarService(repo, zap.NewNop()), calendars
}

// ═══════════════════════════════════════════════════════════
// Get / Update
// ═══════════════════════════════════════════════════════════

func TestCalendarGet_Unconfigured(t *testing.T) {
	svc, _ := setupCalendar()

	resp, err := svc.Get(context.Background(), "1001", 2025, 3)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if resp.Configured || resp.NonWorkingDays == nil || len(resp.NonWorkingDays) != 0 {
		t.Errorf("未配置时期望空列表且 configured=false, 实际=%+v", resp)
	}
}

func TestCalendarUpdate_NormalizesDays(t *testing.T) {
	svc, _ := setupCalendar()
	ctx := context.Background()

	req := &dto.UpdateWorkCalendarRequest{NonWorkingDays: []string{"2025-03-20", "2025-03-10", "2025-03-09", "2025-03-10"}}
	resp, err := svc.Update(ctx, "1001", 2025, 3, req, testAdmin)
	if err != nil {
		t.Fatalf("更新失败: %v", err)
	}
	// 去重、排序，周日不入库
	if !reflect.DeepEqual(resp.NonWorkingDays, []string{"2025-03-10", "2025-03-20"}) {
		t.Errorf("期望 [2025-03-10 2025-03-20], 实际=%v", resp.NonWorkingDays)
	}
	if !resp.Configured || resp.UpdatedBy == nil || *resp.UpdatedBy != testAdmin {
		t.Errorf("期望记录编辑人, 实际=%+v", resp)
	}

	// 覆盖而非合并
	svc.Update(ctx, "1001", 2025, 3, &dto.UpdateWorkCalendarRequest{NonWorkingDays: []string{"2025-03-11"}}, testAdmin)
	got, _ := svc.Get(ctx, "1001", 2025, 3)
	if !reflect.DeepEqual(got.NonWorkingDays, []string{"2025-03-11"}) {
		t.Errorf("期望覆盖为 [2025-03-11], 实际=%v", got.NonWorkingDays)
	}
}

func TestCalendarUpdate_Validation(t *testing.T) {
	svc, _ := setupCalendar()
	ctx := context.Background()

	if _, err := svc.Update(ctx, "1001", 2025, 13, &dto.UpdateWorkCalendarRequest{}, testAdmin); !errors.Is(err, ErrInvalidCalendarMonth) {
		t.Errorf("期望 ErrInvalidCalendarMonth, 实际=%v", err)
	}
	if _, err := svc.Update(ctx, "1001", 2025, 3, &dto.UpdateWorkCalendarRequest{NonWorkingDays: []string{"2025-04-01"}}, testAdmin); !errors.Is(err, ErrCalendarDateOutOfMonth) {
		t.Errorf("期望 ErrCalendarDateOutOfMonth, 实际=%v", err)
	}
	if _, err := svc.Update(ctx, "1001", 2025, 3, &dto.UpdateWorkCalendarRequest{NonWorkingDays: []string{"10/03/2025"}}, testAdmin); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("期望 ErrInvalidDate, 实际=%v", err)
	}
}

func TestCalendarDelete(t *testing.T) {
	svc, _ := setupCalendar()
	ctx := context.Background()

	svc.Update(ctx, "1001", 2025, 3, &dto.UpdateWorkCalendarRequest{NonWorkingDays: []string{"2025-03-10"}}, testAdmin)

	resp, err := svc.Delete(ctx, "1001", 2025, 3, testAdmin)
	if err != nil {
		t.Fatalf("删除失败: %v", err)
	}
	if !resp.Deleted {
		t.Errorf("期望 deleted=true, 实际=%+v", resp)
	}

	// 清除后恢复为未配置，原非工作日重新按工作日处理
	got, _ := svc.Get(ctx, "1001", 2025, 3)
	if got.Configured {
		t.Errorf("清除后期望 configured=false, 实际=%+v", got)
	}
	if ok, _ := svc.IsWorkingDay(ctx, "1001", "2025-03-10"); !ok {
		t.Error("清除后 2025-03-10 应为工作日")
	}

	resp, err = svc.Delete(ctx, "1001", 2025, 3, testAdmin)
	if err != nil || resp.Deleted {
		t.Errorf("未配置月份期望 deleted=false, 实际=%+v err=%v", resp, err)
	}

	if _, err := svc.Delete(ctx, "1001", 1999, 3, testAdmin); !errors.Is(err, ErrInvalidCalendarMonth) {
		t.Errorf("期望 ErrInvalidCalendarMonth, 实际=%v", err)
	}
}

// ═══════════════════════════════════════════════════════════
// IsWorkingDay / Range
// ═══════════════════════════════════════════════════════════

func TestIsWorkingDay(t *testing.T) {
	svc, _ := setupCalendar()
	ctx := context.Background()

	svc.Update(ctx, "1001", 2025, 3, &dto.UpdateWorkCalendarRequest{NonWorkingDays: []string{"2025-03-10"}}, testAdmin)

	tests := []struct {
		user string
		date string
		want bool
	}{
		{"1001", "2025-03-09", false}, // 周日
		{"1001", "2025-03-10", false},
		{"1001", "2025-03-11", true},
		{"1002", "2025-03-10", true}, // 未配置默认工作日
		{"1002", "2025-03-16", false},
	}
	for _, tt := range tests {
		got, err := svc.IsWorkingDay(ctx, tt.user, tt.date)
		if err != nil {
			t.Fatalf("IsWorkingDay(%s, %s) 失败: %v", tt.user, tt.date, err)
		}
		if got != tt.want {
			t.Errorf("IsWorkingDay(%s, %s) 期望 %v, 实际 %v", tt.user, tt.date, tt.want, got)
		}
	}
}

func TestCalendarRange(t *testing.T) {
	svc, _ := setupCalendar()
	ctx := context.Background()

	svc.Update(ctx, "1001", 2025, 4, &dto.UpdateWorkCalendarRequest{NonWorkingDays: []string{"2025-04-01"}}, testAdmin)

	days, err := svc.Range(ctx, "1001", "2025-03-30", "2025-04-02")
	if err != nil {
		t.Fatalf("Range 失败: %v", err)
	}
	want := []bool{false, true, false, true}
	if len(days) != len(want) {
		t.Fatalf("期望 %d 天, 实际=%d", len(want), len(days))
	}
	for i, d := range days {
		if d.WorkingDay != want[i] {
			t.Errorf("%s 期望 workingDay=%v", d.Date, want[i])
		}
	}
	if days[0].Weekday != 0 {
		t.Errorf("2025-03-30 应为周日, 实际 weekday=%d", days[0].Weekday)
	}

	if _, err := svc.Range(ctx, "1001", "2025-04-02", "2025-03-30"); !errors.Is(err, ErrInvalidDateRange) {
		t.Errorf("期望 ErrInvalidDateRange, 实际=%v", err)
	}
	if _, err := svc.Range(ctx, "1001", "2024-01-01", "2025-03-01"); !errors.Is(err, ErrDateRangeTooLarge) {
		t.Errorf("期望 ErrDateRangeTooLarge, 实际=%v", err)
	}
}
