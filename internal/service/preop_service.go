package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"supervitec-sgd/backend/internal/dto"
	"supervitec-sgd/backend/internal/model"
	"supervitec-sgd/backend/internal/repository"
	pkgerrors "supervitec-sgd/backend/pkg/errors"
)

// ── 预检模块业务错误 ──

var (
	ErrNonWorkingDay      = errors.New("今日为非工作日，无需提交预检")
	ErrPastDeadline       = errors.New("已超过 12:00 提交截止时间")
	ErrIdentityRequired   = errors.New("无法识别提交人身份（缺少 ID_CONDUCTOR）")
	ErrCheckDateInFuture  = errors.New("不能对未来日期执行缺交检查")
	ErrDeadlineNotReached = errors.New("当日 12:00 截止时间未到，不能执行缺交检查")
)

// 处罚升级跳过原因
const (
	SkipNonWorkingDay     = "non_working_day"
	SkipAlreadyDelivered  = "already_delivered"
	SkipAlreadySanctioned = "already_sanctioned"
)

// 公开提交来源标识
const PublicSubmissionSource = "APP-PUBLIC"

// citationThreshold 累计处罚达到该次数触发约谈
const citationThreshold = 3

// EscalationResult 单次处罚升级结果
type EscalationResult struct {
	Sanctioned        bool
	SkipReason        string
	TotalSanctions    int
	CitationTriggered bool
}

// ReviewSyncer 提交成功后刷新月度审查行
type ReviewSyncer interface {
	SyncUser(ctx context.Context, userID, userName string, year, month int) error
}

// PreopService 预检提交、每日状态与处罚升级业务接口
// 定时任务与 HTTP 入口调用同一组方法
type PreopService interface {
	// ClassifySubmission 结合司机工作日历对提交时刻分类，无副作用
	ClassifySubmission(ctx context.Context, userID string, at time.Time) (*Classification, error)
	// Submit 公开提交入口：规范化表单、识别身份后记录提交
	Submit(ctx context.Context, vehicleType string, raw map[string]interface{}, source string) (*dto.SubmitPreopResponse, error)
	RecordSubmission(ctx context.Context, userID, userName, vehicleType string, form map[string]interface{}, at time.Time) (*dto.SubmitPreopResponse, error)
	CheckAvailability(ctx context.Context, userID string) (*dto.AvailabilityResponse, error)
	DailyStatus(ctx context.Context, date string) (*dto.DailyStatusResponse, error)
	History(ctx context.Context, req *dto.UserRangeRequest) ([]dto.SubmissionResponse, error)
	UserCalendar(ctx context.Context, req *dto.UserRangeRequest) (*dto.UserCalendarResponse, error)
	Sanctions(ctx context.Context, userID string) (*dto.SanctionResponse, error)
	// EscalateMissed 对 (userID, date) 记一次缺交处罚，按 (userID, date) 幂等
	EscalateMissed(ctx context.Context, userID, userName, date string) (*EscalationResult, error)
	// CheckMissed 对全部在岗司机执行缺交处罚（12:00 定时任务与手动触发）
	CheckMissed(ctx context.Context, date string) (*dto.CheckMissedResponse, error)
	// FlagOverdue 09:00 后标记未提交司机并通知管理员一次
	FlagOverdue(ctx context.Context, date string) (int, error)
	SendReminders(ctx context.Context, date string) (int, error)
	DailyReport(ctx context.Context, date string) (*dto.DailyStatusResponse, error)
}

type preopService struct {
	repo      *repository.Repository
	calendar  CalendarService
	drivers   DriverDirectory
	citations CitationService
	review    ReviewSyncer
	notifier  Notifier
	locker    UserLocker
	logger    *zap.Logger
	now       func() time.Time
}

// NewPreopService 创建 PreopService 实例；review 为 nil 时提交后不刷新审查表
func NewPreopService(
	repo *repository.Repository,
	calendar CalendarService,
	drivers DriverDirectory,
	citations CitationService,
	review ReviewSyncer,
	notifier Notifier,
	locker UserLocker,
	logger *zap.Logger,
) PreopService {
	return &preopService{
		repo:      repo,
		calendar:  calendar,
		drivers:   drivers,
		citations: citations,
		review:    review,
		notifier:  notifier,
		locker:    locker,
		logger:    logger,
		now:       time.Now,
	}
}

// ────────────────────── ClassifySubmission ──────────────────────

func (s *preopService) ClassifySubmission(ctx context.Context, userID string, at time.Time) (*Classification, error) {
	working, err := s.calendar.IsWorkingDay(ctx, userID, LocalDate(at))
	if err != nil {
		return nil, err
	}
	c := Classify(at, working)
	return &c, nil
}

// ────────────────────── Submit ──────────────────────

func (s *preopService) Submit(ctx context.Context, vehicleType string, raw map[string]interface{}, source string) (*dto.SubmitPreopResponse, error) {
	if vehicleType != model.VehicleMoto && vehicleType != model.VehicleCarro {
		return nil, ErrInvalidVehicleType
	}

	form := NormalizeFormPayload(raw)
	userID, userName := submissionIdentity(form, vehicleType)
	if userID == "" {
		return nil, ErrIdentityRequired
	}
	if userName == "" {
		userName = s.lookupName(ctx, userID)
	}
	if source == "" {
		source = PublicSubmissionSource
	}

	now := s.now()
	form[fieldRegisteredAt] = formatTime(now)
	form[fieldSource] = source

	return s.RecordSubmission(ctx, userID, userName, vehicleType, form, now)
}

// ────────────────────── RecordSubmission ──────────────────────

func (s *preopService) RecordSubmission(ctx context.Context, userID, userName, vehicleType string, form map[string]interface{}, at time.Time) (*dto.SubmitPreopResponse, error) {
	cls, err := s.ClassifySubmission(ctx, userID, at)
	if err != nil {
		return nil, err
	}

	// 超过 12:00：先记缺交处罚，再返回截止错误；表单不入库
	if cls.Rejected {
		if _, err := s.EscalateMissed(ctx, userID, userName, cls.Date); err != nil {
			s.logger.Error("截止后提交触发处罚失败",
				zap.String("user_id", userID), zap.String("date", cls.Date), zap.Error(err))
			return nil, err
		}
		return nil, ErrPastDeadline
	}

	actor := model.SystemActor
	rec := &model.SubmissionRecord{
		UserID:      userID,
		UserName:    userName,
		Date:        cls.Date,
		VehicleType: vehicleType,
		Status:      cls.Status,
		WasLate:     cls.WasLate,
	}
	rec.CreatedBy = &actor
	rec.UpdatedBy = &actor
	if cls.WorkingDay {
		deliveredAt := at.UTC()
		rec.DeliveredAt = &deliveredAt
		rec.FormData = form
	}

	if err := s.repo.Submission.Upsert(ctx, rec); err != nil {
		s.logger.Error("保存预检记录失败",
			zap.String("user_id", userID), zap.String("date", cls.Date), zap.Error(err))
		return nil, err
	}

	s.logger.Info("预检提交已记录",
		zap.String("user_id", userID),
		zap.String("date", cls.Date),
		zap.String("status", cls.Status),
	)

	resp := &dto.SubmitPreopResponse{
		Status:    cls.Status,
		WasLate:   cls.WasLate,
		Timestamp: formatTime(at),
	}
	if !cls.WorkingDay {
		resp.Message = "Hoy es día no laboral. No es necesario llenar el preoperacional."
		return resp, nil
	}

	// 以下均为尽力而为
	if s.review != nil {
		day, _ := ParseDate(cls.Date)
		if err := s.review.SyncUser(ctx, userID, userName, day.Year(), int(day.Month())); err != nil {
			s.logger.Warn("同步月度审查行失败", zap.String("user_id", userID), zap.Error(err))
		}
	}
	if cls.WasLate {
		resp.Message = "Preoperacional registrado con RETRASO"
		if err := s.notifier.NotifyLate(ctx, userID, userName, cls.Date, at); err != nil {
			s.logger.Warn("发送迟交通知失败", zap.String("user_id", userID), zap.Error(err))
		}
	} else {
		resp.Message = "Preoperacional registrado correctamente"
	}
	return resp, nil
}

// ────────────────────── CheckAvailability ──────────────────────

func (s *preopService) CheckAvailability(ctx context.Context, userID string) (*dto.AvailabilityResponse, error) {
	now := s.now()
	date := LocalDate(now)
	resp := &dto.AvailabilityResponse{Date: date}

	blocked, err := s.isBlocked(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp.IsBlocked = blocked

	working, err := s.calendar.IsWorkingDay(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	if !working {
		resp.Reason = SkipNonWorkingDay
		resp.Message = "Hoy es día no laboral. No es necesario llenar el preoperacional."
		return resp, nil
	}

	rec, err := s.repo.Submission.Get(ctx, userID, date)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询预检记录失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	if rec != nil && rec.IsRegistered() {
		resp.Reason = "already_completed"
		resp.Message = "Ya has completado el preoperacional de hoy."
		return resp, nil
	}

	// 仅返回状态，截止后的查询不触发处罚
	resp.TimeWindow = TimeWindow(now)
	switch resp.TimeWindow {
	case WindowNormal:
		resp.CanFill = true
		resp.Message = "Puedes llenar tu preoperacional normalmente."
	case WindowLate:
		resp.CanFill = true
		resp.Message = "Estás fuera del horario normal. Se registrará como entrega tardía."
	default:
		resp.Reason = "past_deadline"
		resp.Message = "El plazo para llenar el preoperacional de hoy ha terminado (12:00 PM)."
	}
	return resp, nil
}

// ────────────────────── DailyStatus ──────────────────────

func (s *preopService) DailyStatus(ctx context.Context, date string) (*dto.DailyStatusResponse, error) {
	now := s.now()
	if date == "" {
		date = LocalDate(now)
	}
	if _, err := ParseDate(date); err != nil {
		return nil, err
	}

	drivers, err := s.drivers.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.Submission.ListByDate(ctx, date)
	if err != nil {
		s.logger.Error("查询当日预检记录失败", zap.String("date", date), zap.Error(err))
		return nil, err
	}
	byUser := make(map[string]*model.SubmissionRecord, len(records))
	for i := range records {
		byUser[records[i].UserID] = &records[i]
	}

	// 无记录时：截止前为 pending，截止后为 missing
	today := LocalDate(now)
	overdue := date < today || (date == today && DeadlinePassed(now))

	resp := &dto.DailyStatusResponse{Date: date, Items: make([]dto.DailyStatusItem, 0, len(drivers))}
	for _, d := range drivers {
		item := dto.DailyStatusItem{UserID: d.ID, UserName: d.Name, VehicleType: d.VehicleType}
		if rec, ok := byUser[d.ID]; ok {
			item.Status = rec.Status
			item.DeliveredAt = formatTimePtr(rec.DeliveredAt)
			item.WasLate = rec.WasLate
			if rec.Status == model.SubmissionMissing && !overdue {
				// 09:00 标记的未交记录在 12:00 前仍可补交
				item.Status = model.SubmissionPending
			}
		} else {
			working, err := s.calendar.IsWorkingDay(ctx, d.ID, date)
			if err != nil {
				return nil, err
			}
			switch {
			case !working:
				item.Status = model.SubmissionNonWorkingDay
			case overdue:
				item.Status = model.SubmissionMissing
			default:
				item.Status = model.SubmissionPending
			}
		}

		switch item.Status {
		case model.SubmissionCompleted:
			resp.Summary.Completed++
		case model.SubmissionLate:
			resp.Summary.Late++
		case model.SubmissionMissing:
			resp.Summary.Missing++
		case model.SubmissionNonWorkingDay:
			resp.Summary.NonWorkingDay++
		default:
			resp.Summary.Pending++
		}
		resp.Items = append(resp.Items, item)
	}
	resp.Summary.Total = len(resp.Items)
	return resp, nil
}

// ────────────────────── History ──────────────────────

func (s *preopService) History(ctx context.Context, req *dto.UserRangeRequest) ([]dto.SubmissionResponse, error) {
	if err := validateRange(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	records, err := s.repo.Submission.ListByUserRange(ctx, req.UserID, req.StartDate, req.EndDate)
	if err != nil {
		s.logger.Error("查询预检历史失败", zap.String("user_id", req.UserID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.SubmissionResponse, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		result = append(result, toSubmissionResponse(&records[i]))
	}
	return result, nil
}

// ────────────────────── UserCalendar ──────────────────────

func (s *preopService) UserCalendar(ctx context.Context, req *dto.UserRangeRequest) (*dto.UserCalendarResponse, error) {
	days, err := s.calendar.Range(ctx, req.UserID, req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.Submission.ListByUserRange(ctx, req.UserID, req.StartDate, req.EndDate)
	if err != nil {
		s.logger.Error("查询预检历史失败", zap.String("user_id", req.UserID), zap.Error(err))
		return nil, err
	}
	statusByDate := make(map[string]string, len(records))
	for _, r := range records {
		statusByDate[r.Date] = r.Status
	}
	for i := range days {
		days[i].Status = statusByDate[days[i].Date]
	}
	return &dto.UserCalendarResponse{UserID: req.UserID, Days: days}, nil
}

// ────────────────────── Sanctions ──────────────────────

func (s *preopService) Sanctions(ctx context.Context, userID string) (*dto.SanctionResponse, error) {
	rec, err := s.repo.Sanction.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &dto.SanctionResponse{
				UserID:                userID,
				SanctionHistory:       []dto.SanctionEntryResponse{},
				MissedCitationHistory: []dto.MissedCitationResponse{},
				UnblockHistory:        []dto.UnblockEntryResponse{},
			}, nil
		}
		s.logger.Error("查询处罚记录失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return toSanctionResponse(rec), nil
}

// ────────────────────── EscalateMissed ──────────────────────

func (s *preopService) EscalateMissed(ctx context.Context, userID, userName, date string) (*EscalationResult, error) {
	if _, err := ParseDate(date); err != nil {
		return nil, err
	}
	working, err := s.calendar.IsWorkingDay(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	if !working {
		return &EscalationResult{SkipReason: SkipNonWorkingDay}, nil
	}
	if userName == "" {
		userName = s.lookupName(ctx, userID)
	}

	// 同一司机的“检查-累加”必须串行，防止手动检查与定时任务并发重复处罚
	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.now()
	actor := model.SystemActor
	res := &EscalationResult{}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		// 1. 先确保当日记录存在（status=missing），已提交则跳过
		missing := &model.SubmissionRecord{
			UserID:   userID,
			UserName: userName,
			Date:     date,
			Status:   model.SubmissionMissing,
		}
		missing.CreatedBy = &actor
		missing.UpdatedBy = &actor
		created, err := tx.Submission.CreateIfAbsent(ctx, missing)
		if err != nil {
			return err
		}
		if !created {
			existing, err := tx.Submission.Get(ctx, userID, date)
			if err != nil {
				return err
			}
			if existing.IsRegistered() {
				res.SkipReason = SkipAlreadyDelivered
				return nil
			}
			if existing.Status == model.SubmissionNonWorkingDay {
				res.SkipReason = SkipNonWorkingDay
				return nil
			}
		}

		// 2. 锁定处罚汇总行
		rec, err := tx.Sanction.GetOrCreate(ctx, userID, userName, true)
		if err != nil {
			return err
		}

		// 3. 写入处罚明细；(user_id, date) 唯一约束保证幂等
		entry := &model.SanctionEntry{
			UserID:         userID,
			Date:           date,
			Reason:         model.SanctionReasonMissing,
			SanctionNumber: rec.TotalSanctions + 1,
			CreatedAt:      now.UTC(),
		}
		added, err := tx.Sanction.AddEntry(ctx, entry)
		if err != nil {
			return err
		}
		if !added {
			exists, err := tx.Sanction.HasEntry(ctx, userID, date)
			if err != nil {
				return err
			}
			if exists {
				res.SkipReason = SkipAlreadySanctioned
				res.TotalSanctions = rec.TotalSanctions
				return nil
			}
			// 序号被并发占用
			return pkgerrors.ErrOptimisticLock
		}

		rec.TotalSanctions = entry.SanctionNumber
		lastSanction := now.UTC()
		rec.LastSanctionDate = &lastSanction
		if rec.UserName == "" {
			rec.UserName = userName
		}

		// 4. 达到阈值且没有未结约谈时触发自动约谈
		// HasCitation 由约谈创建事务与约谈行一同写入，这里只读
		if rec.TotalSanctions >= citationThreshold {
			open, err := hasOpenCitation(ctx, tx, rec)
			if err != nil {
				return err
			}
			res.CitationTriggered = !open
		}
		rec.UpdatedBy = &actor

		if err := tx.Sanction.Update(ctx, rec); err != nil {
			return err
		}
		res.Sanctioned = true
		res.TotalSanctions = rec.TotalSanctions
		return nil
	})
	// 自动约谈会再次获取同一司机的锁
	unlock()
	if err != nil {
		s.logger.Error("缺交处罚失败",
			zap.String("user_id", userID), zap.String("date", date), zap.Error(err))
		return nil, err
	}
	if !res.Sanctioned {
		return res, nil
	}

	s.logger.Info("已记缺交处罚",
		zap.String("user_id", userID),
		zap.String("date", date),
		zap.Int("total_sanctions", res.TotalSanctions),
		zap.Bool("citation_triggered", res.CitationTriggered),
	)

	// 5. 自动约谈与管理员通知均为尽力而为
	if res.CitationTriggered {
		details := fmt.Sprintf("Citación automática por acumular %d sanciones por preoperacional no entregado", res.TotalSanctions)
		if _, err := s.citations.CreateAutomatic(ctx, userID, userName, details, actor); err != nil {
			// 标记未写入，下一次处罚会重新触发
			res.CitationTriggered = false
			s.logger.Warn("自动创建约谈失败", zap.String("user_id", userID), zap.Error(err))
		}
	}
	if err := s.notifier.NotifyMissed(ctx, userID, userName, date); err != nil {
		s.logger.Warn("发送缺交通知失败", zap.String("user_id", userID), zap.Error(err))
	}
	return res, nil
}

// hasOpenCitation 司机是否有未结约谈；标记为真但已无有效约谈行时视为没有
func hasOpenCitation(ctx context.Context, tx *repository.Repository, rec *model.SanctionRecord) (bool, error) {
	if !rec.HasCitation {
		return false, nil
	}
	if _, err := tx.Citation.GetActive(ctx, rec.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ────────────────────── CheckMissed ──────────────────────

func (s *preopService) CheckMissed(ctx context.Context, date string) (*dto.CheckMissedResponse, error) {
	now := s.now()
	today := LocalDate(now)
	if date == "" {
		date = today
	}
	if _, err := ParseDate(date); err != nil {
		return nil, err
	}
	if date > today {
		return nil, ErrCheckDateInFuture
	}
	if date == today && !DeadlinePassed(now) {
		return nil, ErrDeadlineNotReached
	}

	drivers, err := s.drivers.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	resp := &dto.CheckMissedResponse{Date: date}
	for _, d := range drivers {
		if ctx.Err() != nil {
			return resp, ctx.Err()
		}
		resp.Checked++
		res, err := s.EscalateMissed(ctx, d.ID, d.Name, date)
		if err != nil {
			resp.Failed = append(resp.Failed, d.ID)
			continue
		}
		if !res.Sanctioned {
			resp.Skipped++
			continue
		}
		resp.Sanctioned++
		if res.CitationTriggered {
			resp.CitationsTriggered++
		}
	}

	s.logger.Info("缺交检查完成",
		zap.String("date", date),
		zap.Int("checked", resp.Checked),
		zap.Int("sanctioned", resp.Sanctioned),
		zap.Int("citations", resp.CitationsTriggered),
		zap.Int("failed", len(resp.Failed)),
	)
	return resp, nil
}

// ────────────────────── FlagOverdue ──────────────────────

func (s *preopService) FlagOverdue(ctx context.Context, date string) (int, error) {
	if _, err := ParseDate(date); err != nil {
		return 0, err
	}
	pending, err := s.undelivered(ctx, date)
	if err != nil {
		return 0, err
	}

	actor := model.SystemActor
	var toNotify []DriverInfo
	for _, d := range pending {
		rec := &model.SubmissionRecord{
			UserID:      d.ID,
			UserName:    d.Name,
			Date:        date,
			VehicleType: d.VehicleType,
			Status:      model.SubmissionMissing,
		}
		rec.CreatedBy = &actor
		rec.UpdatedBy = &actor
		if _, err := s.repo.Submission.CreateIfAbsent(ctx, rec); err != nil {
			s.logger.Error("标记未交记录失败", zap.String("user_id", d.ID), zap.Error(err))
			return 0, err
		}
		existing, err := s.repo.Submission.Get(ctx, d.ID, date)
		if err != nil {
			return 0, err
		}
		if existing.Status == model.SubmissionMissing && !existing.AdminNotified {
			toNotify = append(toNotify, d)
		}
	}
	if len(toNotify) == 0 {
		return 0, nil
	}

	if err := s.notifier.NotifyOverdue(ctx, date, toNotify); err != nil {
		// 通知失败时不标记，下次执行重试
		s.logger.Warn("发送逾期汇总通知失败", zap.String("date", date), zap.Error(err))
		return len(toNotify), nil
	}
	for _, d := range toNotify {
		if err := s.repo.Submission.MarkAdminNotified(ctx, d.ID, date); err != nil {
			s.logger.Warn("更新通知标记失败", zap.String("user_id", d.ID), zap.Error(err))
		}
	}
	return len(toNotify), nil
}

// ────────────────────── SendReminders ──────────────────────

func (s *preopService) SendReminders(ctx context.Context, date string) (int, error) {
	if _, err := ParseDate(date); err != nil {
		return 0, err
	}
	pending, err := s.undelivered(ctx, date)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, d := range pending {
		if d.Email == "" {
			continue
		}
		if err := s.notifier.SendReminder(ctx, d, date); err != nil {
			s.logger.Warn("发送提醒失败", zap.String("user_id", d.ID), zap.Error(err))
			continue
		}
		sent++
	}
	return sent, nil
}

// ────────────────────── DailyReport ──────────────────────

func (s *preopService) DailyReport(ctx context.Context, date string) (*dto.DailyStatusResponse, error) {
	report, err := s.DailyStatus(ctx, date)
	if err != nil {
		return nil, err
	}
	if err := s.notifier.SendDailyReport(ctx, report); err != nil {
		s.logger.Warn("发送每日报告失败", zap.String("date", report.Date), zap.Error(err))
	}
	return report, nil
}

// ── 内部辅助方法 ──

// undelivered 返回当日为工作日且尚未提交的在岗司机
func (s *preopService) undelivered(ctx context.Context, date string) ([]DriverInfo, error) {
	drivers, err := s.drivers.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.Submission.ListByDate(ctx, date)
	if err != nil {
		s.logger.Error("查询当日预检记录失败", zap.String("date", date), zap.Error(err))
		return nil, err
	}
	delivered := make(map[string]bool, len(records))
	for _, r := range records {
		if r.IsRegistered() || r.Status == model.SubmissionNonWorkingDay {
			delivered[r.UserID] = true
		}
	}

	var result []DriverInfo
	for _, d := range drivers {
		if delivered[d.ID] {
			continue
		}
		working, err := s.calendar.IsWorkingDay(ctx, d.ID, date)
		if err != nil {
			return nil, err
		}
		if working {
			result = append(result, d)
		}
	}
	return result, nil
}

func (s *preopService) lookupName(ctx context.Context, userID string) string {
	info, err := s.drivers.Lookup(ctx, userID)
	if err != nil || info == nil || info.Name == "" {
		return userID
	}
	return info.Name
}

func (s *preopService) isBlocked(ctx context.Context, userID string) (bool, error) {
	rec, err := s.repo.Sanction.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		s.logger.Error("查询处罚记录失败", zap.String("user_id", userID), zap.Error(err))
		return false, err
	}
	return rec.IsBlocked, nil
}

func validateRange(startDate, endDate string) error {
	start, err := ParseDate(startDate)
	if err != nil {
		return err
	}
	end, err := ParseDate(endDate)
	if err != nil {
		return err
	}
	if end.Before(start) {
		return ErrInvalidDateRange
	}
	if end.Sub(start) > maxRangeDays*24*time.Hour {
		return ErrDateRangeTooLarge
	}
	return nil
}

func toSubmissionResponse(r *model.SubmissionRecord) dto.SubmissionResponse {
	return dto.SubmissionResponse{
		ID:          r.RecordID,
		UserID:      r.UserID,
		UserName:    r.UserName,
		Date:        r.Date,
		VehicleType: r.VehicleType,
		Status:      r.Status,
		DeliveredAt: formatTimePtr(r.DeliveredAt),
		WasLate:     r.WasLate,
		FormData:    r.FormData,
	}
}

func toSanctionResponse(rec *model.SanctionRecord) *dto.SanctionResponse {
	resp := &dto.SanctionResponse{
		UserID:                rec.UserID,
		UserName:              rec.UserName,
		TotalSanctions:        rec.TotalSanctions,
		LastSanctionDate:      formatTimePtr(rec.LastSanctionDate),
		HasCitation:           rec.HasCitation,
		CitationDate:          formatTimePtr(rec.CitationDate),
		IsBlocked:             rec.IsBlocked,
		BlockReason:           rec.BlockReason,
		MissedCitationsCount:  rec.MissedCitations,
		SanctionHistory:       make([]dto.SanctionEntryResponse, 0, len(rec.History)),
		MissedCitationHistory: make([]dto.MissedCitationResponse, 0, len(rec.MissedCitationHistory)),
		UnblockHistory:        make([]dto.UnblockEntryResponse, 0, len(rec.UnblockHistory)),
	}
	for _, e := range rec.History {
		resp.SanctionHistory = append(resp.SanctionHistory, dto.SanctionEntryResponse{
			Date:           e.Date,
			Reason:         e.Reason,
			SanctionNumber: e.SanctionNumber,
			CreatedAt:      formatTime(e.CreatedAt),
		})
	}
	for _, e := range rec.MissedCitationHistory {
		resp.MissedCitationHistory = append(resp.MissedCitationHistory, dto.MissedCitationResponse{
			CitationID:   e.CitationID,
			CitationDate: formatTime(e.CitationDate),
			MarkedBy:     e.MarkedBy,
			Notes:        e.Notes,
			CreatedAt:    formatTime(e.CreatedAt),
		})
	}
	for _, e := range rec.UnblockHistory {
		resp.UnblockHistory = append(resp.UnblockHistory, dto.UnblockEntryResponse{
			UnblockedBy:          e.UnblockedBy,
			Reason:               e.Reason,
			Note:                 e.Note,
			MissedCitationsCount: e.MissedCitations,
			CreatedAt:            formatTime(e.CreatedAt),
		})
	}
	return resp
}

func unblockNote(missed int) string {
	return fmt.Sprintf("Desbloqueado con %d citaciones incumplidas acumuladas", missed)
}
