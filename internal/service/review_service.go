package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"supervitec-sgd/backend/internal/dto"
	"supervitec-sgd/backend/internal/model"
	"supervitec-sgd/backend/internal/repository"
)

// ── 月度审查模块业务错误 ──

var (
	ErrInvalidReviewMonth    = errors.New("月份格式无效，应为 MES_AAAA，例如 MARZO_2025")
	ErrReviewRowNotFound     = errors.New("审查表中未找到该司机所在行，请先同步")
	ErrMirrorNotConfigured   = errors.New("未配置 Google Sheets 审查表")
	ErrCalendarNotConfigured = errors.New("该司机当月未配置工作日历")
	ErrConductorRequired     = errors.New("缺少司机信息（userId、nombre）")
)

// requiresCitationThreshold 当月迟交与缺交合计达到该值时标记需约谈
const requiresCitationThreshold = 3

const emptyConsolidated = "-"

// MonthStatsResult 月度统计结果；Configured=false 表示该月无工作日历，Stats 为 nil
type MonthStatsResult struct {
	Configured bool
	Stats      *dto.MonthStatsResponse
}

// ReviewService 月度审查业务接口
type ReviewService interface {
	ReviewSyncer
	// ComputeMonthStats 汇总司机当月数据并尽力写入审查表镜像
	ComputeMonthStats(ctx context.Context, userID, userName string, year, month int) (*MonthStatsResult, error)
	// SyncMonth 手动同步；UserID 为空时同步全部在岗司机
	SyncMonth(ctx context.Context, req *dto.SyncReviewRequest) (*dto.SyncReviewResponse, error)
	// Review 按 MES_AAAA 返回全部在岗司机的月度统计（只读，不写镜像）
	Review(ctx context.Context, monthKey string) (*dto.ReviewResponse, error)
	// Months 最近 n 个月的审查表名，当前月在前
	Months(n int) []string
	CitarAutomatico(ctx context.Context, req *dto.CitarAutomaticoRequest, callerID string) (*dto.CitationResponse, error)
	UpdateField(ctx context.Context, column ReviewColumn, req *dto.UpdateReviewFieldRequest, callerID string) error
}

type reviewService struct {
	repo      *repository.Repository
	drivers   DriverDirectory
	citations CitationService
	mirror    Mirror
	logger    *zap.Logger
	now       func() time.Time
}

// NewReviewService 创建 ReviewService 实例
func NewReviewService(
	repo *repository.Repository,
	drivers DriverDirectory,
	citations CitationService,
	mirror Mirror,
	logger *zap.Logger,
) ReviewService {
	return &reviewService{
		repo:      repo,
		drivers:   drivers,
		citations: citations,
		mirror:    mirror,
		logger:    logger,
		now:       time.Now,
	}
}

// ────────────────────── ComputeMonthStats ──────────────────────

func (s *reviewService) ComputeMonthStats(ctx context.Context, userID, userName string, year, month int) (*MonthStatsResult, error) {
	res, err := s.computeStats(ctx, userID, userName, year, month)
	if err != nil || !res.Configured {
		return res, err
	}

	// 镜像写入失败不影响统计结果
	if err := s.mirror.WriteReviewRow(ctx, res.Stats); err != nil {
		s.logger.Warn("写入审查表失败",
			zap.String("user_id", userID),
			zap.Int("year", year),
			zap.Int("month", month),
			zap.Error(err),
		)
	}
	return res, nil
}

// SyncUser 提交后刷新单个司机的审查行；未配置日历时跳过
func (s *reviewService) SyncUser(ctx context.Context, userID, userName string, year, month int) error {
	res, err := s.ComputeMonthStats(ctx, userID, userName, year, month)
	if err != nil {
		return err
	}
	if !res.Configured {
		s.logger.Debug("司机当月未配置工作日历，跳过审查同步",
			zap.String("user_id", userID), zap.Int("year", year), zap.Int("month", month))
	}
	return nil
}

// ────────────────────── SyncMonth ──────────────────────

func (s *reviewService) SyncMonth(ctx context.Context, req *dto.SyncReviewRequest) (*dto.SyncReviewResponse, error) {
	if !validMonth(req.Year, req.Month) {
		return nil, ErrInvalidCalendarMonth
	}

	resp := &dto.SyncReviewResponse{NotConfigured: []dto.DriverRef{}}

	if req.UserID != "" {
		name := req.UserName
		if name == "" {
			name = s.driverName(ctx, req.UserID)
		}
		res, err := s.ComputeMonthStats(ctx, req.UserID, name, req.Year, req.Month)
		if err != nil {
			return nil, err
		}
		if !res.Configured {
			return nil, ErrCalendarNotConfigured
		}
		resp.Synced = 1
		return resp, nil
	}

	drivers, err := s.drivers.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range drivers {
		res, err := s.ComputeMonthStats(ctx, d.ID, d.Name, req.Year, req.Month)
		if err != nil {
			return nil, err
		}
		if !res.Configured {
			resp.NotConfigured = append(resp.NotConfigured, dto.DriverRef{UserID: d.ID, UserName: d.Name})
			continue
		}
		resp.Synced++
	}

	s.logger.Info("月度审查同步完成",
		zap.Int("year", req.Year),
		zap.Int("month", req.Month),
		zap.Int("synced", resp.Synced),
		zap.Int("not_configured", len(resp.NotConfigured)),
	)
	return resp, nil
}

// ────────────────────── Review ──────────────────────

func (s *reviewService) Review(ctx context.Context, monthKey string) (*dto.ReviewResponse, error) {
	year, month, err := ParseReviewMonth(monthKey)
	if err != nil {
		return nil, err
	}

	drivers, err := s.drivers.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	resp := &dto.ReviewResponse{
		Month:         ReviewSheetName(year, month),
		Year:          year,
		MonthNumber:   month,
		Rows:          make([]dto.MonthStatsResponse, 0, len(drivers)),
		NotConfigured: []dto.DriverRef{},
	}
	for _, d := range drivers {
		res, err := s.computeStats(ctx, d.ID, d.Name, year, month)
		if err != nil {
			return nil, err
		}
		if !res.Configured {
			resp.NotConfigured = append(resp.NotConfigured, dto.DriverRef{UserID: d.ID, UserName: d.Name})
			continue
		}
		resp.Rows = append(resp.Rows, *res.Stats)
	}
	return resp, nil
}

// ────────────────────── Months ──────────────────────

func (s *reviewService) Months(n int) []string {
	if n <= 0 {
		n = 12
	}
	cur := s.now().In(bogota)
	first := time.Date(cur.Year(), cur.Month(), 1, 0, 0, 0, 0, bogota)
	months := make([]string, 0, n)
	for i := 0; i < n; i++ {
		m := first.AddDate(0, -i, 0)
		months = append(months, ReviewSheetName(m.Year(), int(m.Month())))
	}
	return months
}

// ────────────────────── CitarAutomatico ──────────────────────

func (s *reviewService) CitarAutomatico(ctx context.Context, req *dto.CitarAutomaticoRequest, callerID string) (*dto.CitationResponse, error) {
	c := req.Conductor
	if strings.TrimSpace(c.UserID) == "" || strings.TrimSpace(c.Nombre) == "" {
		return nil, ErrConductorRequired
	}
	details := fmt.Sprintf("Citación automática por acumular %d tardanzas", c.TotalTardanzas)
	return s.citations.CreateAutomatic(ctx, strings.TrimSpace(c.UserID), strings.TrimSpace(c.Nombre), details, callerID)
}

// ────────────────────── UpdateField ──────────────────────

func (s *reviewService) UpdateField(ctx context.Context, column ReviewColumn, req *dto.UpdateReviewFieldRequest, callerID string) error {
	year, month, err := ParseReviewMonth(req.Month)
	if err != nil {
		return err
	}
	if err := s.mirror.UpdateReviewCell(ctx, year, month, req.UserID, column, req.Value); err != nil {
		if !errors.Is(err, ErrMirrorNotConfigured) && !errors.Is(err, ErrReviewRowNotFound) {
			s.logger.Error("更新审查表失败", zap.String("user_id", req.UserID), zap.Error(err))
		}
		return err
	}
	s.logger.Info("审查表字段已更新",
		zap.String("month", req.Month),
		zap.String("user_id", req.UserID),
		zap.String("column", string(column)),
		zap.String("by", callerID),
	)
	return nil
}

// ── 统计计算 ──

// computeStats 只读汇总；相同账本内容与相同“今天”得到相同结果
func (s *reviewService) computeStats(ctx context.Context, userID, userName string, year, month int) (*MonthStatsResult, error) {
	if !validMonth(year, month) {
		return nil, ErrInvalidCalendarMonth
	}

	cal, err := s.repo.WorkCalendar.Get(ctx, userID, year, month)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &MonthStatsResult{Configured: false}, nil
		}
		s.logger.Error("查询工作日历失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	start, end := monthBounds(year, month)
	records, err := s.repo.Submission.ListByUserRange(ctx, userID, start, end)
	if err != nil {
		s.logger.Error("查询月度预检记录失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	stats := buildMonthStats(userID, userName, year, month, cal, records, LocalDate(s.now()))
	return &MonthStatsResult{Configured: true, Stats: stats}, nil
}

// buildMonthStats 纯函数：按工作日逐日汇总
func buildMonthStats(userID, userName string, year, month int, cal *model.WorkCalendar, records []model.SubmissionRecord, today string) *dto.MonthStatsResponse {
	byDate := make(map[string]*model.SubmissionRecord, len(records))
	for i := range records {
		byDate[records[i].Date] = &records[i]
	}

	stats := &dto.MonthStatsResponse{
		UserID:         userID,
		UserName:       userName,
		Year:           year,
		Month:          month,
		RegisteredDays: []int{},
		MissingDays:    []int{},
		LateDeliveries: []dto.LateDelivery{},
		BadItems:       []dto.BadItemsDay{},
	}
	var maintenance, support, receipt, emails []string

	for day := 1; day <= daysInMonth(year, month); day++ {
		t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, bogota)
		if !isWorkingDayIn(cal, t) {
			continue
		}
		stats.TotalWorkingDays++
		date := dateOf(year, month, day)

		rec, ok := byDate[date]
		switch {
		case ok && rec.IsRegistered():
			stats.RegisteredDays = append(stats.RegisteredDays, day)
			if rec.WasLate || rec.Status == model.SubmissionLate {
				late := dto.LateDelivery{Day: day}
				if rec.DeliveredAt != nil {
					late.DeliveredAt = formatTime(*rec.DeliveredAt)
				}
				stats.LateDeliveries = append(stats.LateDeliveries, late)
			}
			if len(rec.FormData) == 0 {
				continue
			}
			form := map[string]interface{}(rec.FormData)
			if items := detectBadItems(form); len(items) > 0 {
				stats.BadItems = append(stats.BadItems, dto.BadItemsDay{Day: day, Items: items})
			}
			maintenance = appendDayNote(maintenance, day, maintenanceNote(form))
			support = appendDayNote(support, day, supportNote(form))
			receipt = appendDayNote(receipt, day, receiptNote(form))
			emails = appendDayNote(emails, day, emailNote(form))
		case ok && rec.Status == model.SubmissionMissing:
			stats.MissingDays = append(stats.MissingDays, day)
		case !ok && date <= today:
			stats.MissingDays = append(stats.MissingDays, day)
		}
	}

	stats.LateCount = len(stats.LateDeliveries)
	stats.Maintenance = consolidate(maintenance)
	stats.Support = consolidate(support)
	stats.Receipt = consolidate(receipt)
	stats.Emails = consolidate(emails)
	stats.ComplianceRate = complianceRate(len(stats.RegisteredDays), stats.TotalWorkingDays)
	stats.RequiresCitation = stats.LateCount+len(stats.MissingDays) >= requiresCitationThreshold
	return stats
}

func appendDayNote(lines []string, day int, note string) []string {
	if note == "" {
		return lines
	}
	return append(lines, fmt.Sprintf("%02d: %s", day, note))
}

func consolidate(lines []string) string {
	if len(lines) == 0 {
		return emptyConsolidated
	}
	return strings.Join(lines, " | ")
}

// complianceRate 已提交天数占工作日百分比，保留一位小数
func complianceRate(registered, total int) string {
	if total == 0 {
		return decimal.Zero.StringFixed(1)
	}
	return decimal.NewFromInt(int64(registered)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total))).
		StringFixed(1)
}

func (s *reviewService) driverName(ctx context.Context, userID string) string {
	info, err := s.drivers.Lookup(ctx, userID)
	if err != nil || info == nil {
		return userID
	}
	return info.Name
}
