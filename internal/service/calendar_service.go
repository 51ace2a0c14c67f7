package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"supervitec-sgd/backend/internal/dto"
	"supervitec-sgd/backend/internal/model"
	"supervitec-sgd/backend/internal/repository"
)

// ── 工作日历模块业务错误 ──

var (
	ErrInvalidCalendarMonth   = errors.New("年份或月份无效")
	ErrCalendarDateOutOfMonth = errors.New("非工作日必须属于所选月份")
	ErrDateRangeTooLarge      = errors.New("日期区间不能超过 366 天")
)

const maxRangeDays = 366

// CalendarService 工作日历业务接口
type CalendarService interface {
	Get(ctx context.Context, userID string, year, month int) (*dto.WorkCalendarResponse, error)
	// Update 覆盖某月非工作日集合，首次编辑时创建
	Update(ctx context.Context, userID string, year, month int, req *dto.UpdateWorkCalendarRequest, callerID string) (*dto.WorkCalendarResponse, error)
	// Delete 清除某月日历，该月恢复为未配置状态
	Delete(ctx context.Context, userID string, year, month int, callerID string) (*dto.DeleteWorkCalendarResponse, error)
	// IsWorkingDay 周日恒为非工作日；无日历时按 DefaultWorkingDayWhenUnconfigured 处理
	IsWorkingDay(ctx context.Context, userID, date string) (bool, error)
	// Range 返回区间内每天是否为工作日
	Range(ctx context.Context, userID, startDate, endDate string) ([]dto.CalendarDayResponse, error)
}

type calendarService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewCalendarService 创建 CalendarService 实例
func NewCalendarService(repo *repository.Repository, logger *zap.Logger) CalendarService {
	return &calendarService{repo: repo, logger: logger}
}

func validMonth(year, month int) bool {
	return year >= 2000 && year <= 2100 && month >= 1 && month <= 12
}

// ────────────────────── Get ──────────────────────

func (s *calendarService) Get(ctx context.Context, userID string, year, month int) (*dto.WorkCalendarResponse, error) {
	if !validMonth(year, month) {
		return nil, ErrInvalidCalendarMonth
	}

	cal, err := s.repo.WorkCalendar.Get(ctx, userID, year, month)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &dto.WorkCalendarResponse{
				UserID:         userID,
				Year:           year,
				Month:          month,
				NonWorkingDays: []string{},
			}, nil
		}
		s.logger.Error("查询工作日历失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	return toWorkCalendarResponse(cal), nil
}

// ────────────────────── Update ──────────────────────

func (s *calendarService) Update(ctx context.Context, userID string, year, month int, req *dto.UpdateWorkCalendarRequest, callerID string) (*dto.WorkCalendarResponse, error) {
	if !validMonth(year, month) {
		return nil, ErrInvalidCalendarMonth
	}

	// 去重、排序；周日由规则计算，不入库
	seen := make(map[string]bool, len(req.NonWorkingDays))
	days := make([]string, 0, len(req.NonWorkingDays))
	for _, d := range req.NonWorkingDays {
		t, err := ParseDate(d)
		if err != nil {
			return nil, err
		}
		if t.Year() != year || int(t.Month()) != month {
			return nil, ErrCalendarDateOutOfMonth
		}
		if IsSunday(t) || seen[d] {
			continue
		}
		seen[d] = true
		days = append(days, d)
	}
	sort.Strings(days)

	cal := &model.WorkCalendar{
		UserID:         userID,
		Year:           year,
		Month:          month,
		NonWorkingDays: days,
	}
	cal.CreatedBy = &callerID
	cal.UpdatedBy = &callerID
	cal.UpdatedAt = time.Now().UTC()

	if err := s.repo.WorkCalendar.Upsert(ctx, cal); err != nil {
		s.logger.Error("保存工作日历失败",
			zap.String("user_id", userID),
			zap.Int("year", year),
			zap.Int("month", month),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("工作日历已更新",
		zap.String("user_id", userID),
		zap.Int("year", year),
		zap.Int("month", month),
		zap.Int("non_working_days", len(days)),
		zap.String("by", callerID),
	)
	return toWorkCalendarResponse(cal), nil
}

// ────────────────────── Delete ──────────────────────

func (s *calendarService) Delete(ctx context.Context, userID string, year, month int, callerID string) (*dto.DeleteWorkCalendarResponse, error) {
	if !validMonth(year, month) {
		return nil, ErrInvalidCalendarMonth
	}

	deleted, err := s.repo.WorkCalendar.Delete(ctx, userID, year, month)
	if err != nil {
		s.logger.Error("删除工作日历失败",
			zap.String("user_id", userID),
			zap.Int("year", year),
			zap.Int("month", month),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("工作日历已清除",
		zap.String("user_id", userID),
		zap.Int("year", year),
		zap.Int("month", month),
		zap.Bool("deleted", deleted),
		zap.String("by", callerID),
	)
	return &dto.DeleteWorkCalendarResponse{UserID: userID, Year: year, Month: month, Deleted: deleted}, nil
}

// ────────────────────── IsWorkingDay ──────────────────────

func (s *calendarService) IsWorkingDay(ctx context.Context, userID, date string) (bool, error) {
	t, err := ParseDate(date)
	if err != nil {
		return false, err
	}
	if IsSunday(t) {
		return false, nil
	}

	cal, err := s.loadCalendar(ctx, userID, t.Year(), int(t.Month()))
	if err != nil {
		return false, err
	}
	return isWorkingDayIn(cal, t), nil
}

// ────────────────────── Range ──────────────────────

func (s *calendarService) Range(ctx context.Context, userID, startDate, endDate string) ([]dto.CalendarDayResponse, error) {
	start, err := ParseDate(startDate)
	if err != nil {
		return nil, err
	}
	end, err := ParseDate(endDate)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, ErrInvalidDateRange
	}
	if end.Sub(start) > maxRangeDays*24*time.Hour {
		return nil, ErrDateRangeTooLarge
	}

	calendars := make(map[[2]int]*model.WorkCalendar)
	var days []dto.CalendarDayResponse
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := [2]int{d.Year(), int(d.Month())}
		cal, ok := calendars[key]
		if !ok {
			cal, err = s.loadCalendar(ctx, userID, key[0], key[1])
			if err != nil {
				return nil, err
			}
			calendars[key] = cal
		}
		days = append(days, dto.CalendarDayResponse{
			Date:       d.Format(DateLayout),
			Weekday:    int(d.Weekday()),
			WorkingDay: isWorkingDayIn(cal, d),
		})
	}
	return days, nil
}

// loadCalendar 未配置时返回 (nil, nil)
func (s *calendarService) loadCalendar(ctx context.Context, userID string, year, month int) (*model.WorkCalendar, error) {
	cal, err := s.repo.WorkCalendar.Get(ctx, userID, year, month)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		s.logger.Error("查询工作日历失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return cal, nil
}

// isWorkingDayIn 判断某天在给定日历下是否为工作日；cal 为 nil 表示未配置
func isWorkingDayIn(cal *model.WorkCalendar, day time.Time) bool {
	if IsSunday(day) {
		return false
	}
	if cal == nil {
		return DefaultWorkingDayWhenUnconfigured
	}
	return !cal.HasNonWorkingDay(day.Format(DateLayout))
}

func toWorkCalendarResponse(cal *model.WorkCalendar) *dto.WorkCalendarResponse {
	days := []string(cal.NonWorkingDays)
	if days == nil {
		days = []string{}
	}
	resp := &dto.WorkCalendarResponse{
		UserID:         cal.UserID,
		Year:           cal.Year,
		Month:          cal.Month,
		NonWorkingDays: days,
		Configured:     true,
		UpdatedBy:      cal.UpdatedBy,
	}
	if !cal.UpdatedAt.IsZero() {
		resp.UpdatedAt = formatTime(cal.UpdatedAt)
	}
	return resp
}
