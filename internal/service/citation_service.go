package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"supervitec-sgd/backend/internal/dto"
	"supervitec-sgd/backend/internal/model"
	"supervitec-sgd/backend/internal/repository"
	pkgerrors "supervitec-sgd/backend/pkg/errors"
)

// ── 约谈模块业务错误 ──

var (
	ErrActiveCitationExists = errors.New("该司机已有未结案的约谈")
	ErrCitationNotFound     = errors.New("约谈不存在")
	ErrCitationNotScheduled = errors.New("约谈已结案，不能重复处理")
	ErrNotBlocked           = errors.New("该司机未被封禁")
	ErrInvalidCitationDate  = errors.New("约谈时间无效，必须为未来时间（RFC3339）")
)

const (
	// blockThreshold 缺席约谈达到该次数封禁
	blockThreshold = 3
	// 自动约谈安排在 3 天后 09:00
	autoCitationDelayDays = 3
	autoCitationHour      = 9

	defaultUnblockReason = "Desbloqueo manual por admin"
	searchListLimit      = 500
)

// CitationService 约谈业务接口
type CitationService interface {
	Create(ctx context.Context, req *dto.CreateCitationRequest, callerID string) (*dto.CitationResponse, error)
	// CreateAutomatic 累计处罚触发的自动约谈
	CreateAutomatic(ctx context.Context, userID, userName, reasonDetails, callerID string) (*dto.CitationResponse, error)
	MarkAttendance(ctx context.Context, id string, req *dto.MarkAttendanceRequest, callerID string) (*dto.AttendanceResponse, error)
	Cancel(ctx context.Context, id string, req *dto.CancelCitationRequest, callerID string) (*dto.CitationResponse, error)
	Unblock(ctx context.Context, userID string, req *dto.UnblockRequest, callerID string) (*dto.UnblockResponse, error)
	List(ctx context.Context, req *dto.CitationListRequest) ([]dto.CitationResponse, error)
}

type citationService struct {
	repo     *repository.Repository
	drivers  DriverDirectory
	calendar CalendarSync
	mirror   Mirror
	notifier Notifier
	locker   UserLocker
	logger   *zap.Logger
	now      func() time.Time
}

// NewCitationService 创建 CitationService 实例
func NewCitationService(
	repo *repository.Repository,
	drivers DriverDirectory,
	calendar CalendarSync,
	mirror Mirror,
	notifier Notifier,
	locker UserLocker,
	logger *zap.Logger,
) CitationService {
	return &citationService{
		repo:     repo,
		drivers:  drivers,
		calendar: calendar,
		mirror:   mirror,
		notifier: notifier,
		locker:   locker,
		logger:   logger,
		now:      time.Now,
	}
}

// ────────────────────── Create ──────────────────────

func (s *citationService) Create(ctx context.Context, req *dto.CreateCitationRequest, callerID string) (*dto.CitationResponse, error) {
	at, err := time.Parse(time.RFC3339, strings.TrimSpace(req.CitationDate))
	if err != nil || !at.After(s.now()) {
		return nil, ErrInvalidCitationDate
	}

	c := &model.Citation{
		UserID:        strings.TrimSpace(req.UserID),
		UserName:      strings.TrimSpace(req.UserName),
		CitationDate:  at.UTC(),
		Reason:        req.Reason,
		ReasonDetails: req.ReasonDetails,
		Status:        model.CitationScheduled,
	}
	return s.create(ctx, c, callerID)
}

// ────────────────────── CreateAutomatic ──────────────────────

func (s *citationService) CreateAutomatic(ctx context.Context, userID, userName, reasonDetails, callerID string) (*dto.CitationResponse, error) {
	local := s.now().In(bogota).AddDate(0, 0, autoCitationDelayDays)
	at := time.Date(local.Year(), local.Month(), local.Day(), autoCitationHour, 0, 0, 0, bogota)

	c := &model.Citation{
		UserID:        userID,
		UserName:      userName,
		CitationDate:  at.UTC(),
		Reason:        model.CitationReasonAccumulatedSanctions,
		ReasonDetails: reasonDetails,
		Status:        model.CitationScheduled,
		Automatic:     true,
	}
	return s.create(ctx, c, callerID)
}

// create 持久化约谈并置位处罚汇总的约谈标记；日历、镜像与邮件在提交后尽力而为
func (s *citationService) create(ctx context.Context, c *model.Citation, callerID string) (*dto.CitationResponse, error) {
	unlock, err := s.locker.Lock(ctx, c.UserID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.now().UTC()
	activeKey := c.UserID
	c.ActiveKey = &activeKey
	c.CreatedBy = &callerID
	c.UpdatedBy = &callerID

	var rec *model.SanctionRecord
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := tx.Citation.ReleaseStale(ctx, c.UserID, now); err != nil {
			return err
		}
		active, err := tx.Citation.GetActive(ctx, c.UserID)
		if err == nil {
			return newConflict(ErrActiveCitationExists, map[string]interface{}{
				"citationId":   active.CitationID,
				"citationDate": formatTime(active.CitationDate),
			})
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Citation.Create(ctx, c); err != nil {
			// 并发创建由 active_key 唯一索引兜底
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return newConflict(ErrActiveCitationExists, nil)
			}
			return err
		}

		rec, err = tx.Sanction.GetOrCreate(ctx, c.UserID, c.UserName, true)
		if err != nil {
			return err
		}
		citationDate := c.CitationDate
		rec.HasCitation = true
		rec.CitationDate = &citationDate
		rec.UpdatedBy = &callerID
		return tx.Sanction.Update(ctx, rec)
	})
	if err != nil {
		if !errors.Is(err, ErrActiveCitationExists) {
			s.logger.Error("创建约谈失败", zap.String("user_id", c.UserID), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("约谈已创建",
		zap.String("citation_id", c.CitationID),
		zap.String("user_id", c.UserID),
		zap.Bool("automatic", c.Automatic),
		zap.String("by", callerID),
	)

	s.afterCreate(ctx, c)
	return toCitationResponse(c, rec), nil
}

func (s *citationService) afterCreate(ctx context.Context, c *model.Citation) {
	email := ""
	if info, err := s.drivers.Lookup(ctx, c.UserID); err != nil {
		s.logger.Warn("查询司机邮箱失败", zap.String("user_id", c.UserID), zap.Error(err))
	} else if info != nil && strings.Contains(info.Email, "@") {
		email = info.Email
	}

	eventID, err := s.calendar.CreateCitationEvent(ctx, c, email)
	if err != nil {
		s.logger.Warn("创建约谈日历事件失败", zap.String("citation_id", c.CitationID), zap.Error(err))
	} else if eventID != "" {
		if err := s.repo.Citation.SetCalendarEvent(ctx, c.CitationID, eventID); err != nil {
			s.logger.Warn("保存日历事件 ID 失败", zap.String("citation_id", c.CitationID), zap.Error(err))
		} else {
			c.CalendarEventID = &eventID
		}
	}

	if err := s.mirror.AppendCitation(ctx, c); err != nil {
		s.logger.Warn("写入约谈镜像失败", zap.String("citation_id", c.CitationID), zap.Error(err))
	}

	notice := CitationNotice{Citation: c, Email: email}
	if full, err := s.repo.Sanction.Get(ctx, c.UserID); err == nil {
		notice.History = full.History
	}
	if err := s.notifier.SendCitation(ctx, notice); err != nil {
		s.logger.Warn("发送约谈邮件失败", zap.String("citation_id", c.CitationID), zap.Error(err))
	}
}

// ────────────────────── MarkAttendance ──────────────────────

func (s *citationService) MarkAttendance(ctx context.Context, id string, req *dto.MarkAttendanceRequest, callerID string) (*dto.AttendanceResponse, error) {
	c, rec, justBlocked, err := s.resolve(ctx, id, req.Status, req.Notes, callerID)
	if err != nil {
		return nil, err
	}

	if err := s.mirror.AppendAttendance(ctx, c, rec); err != nil {
		s.logger.Warn("写入出席镜像失败", zap.String("citation_id", c.CitationID), zap.Error(err))
	}

	return &dto.AttendanceResponse{
		Citation:             *toCitationResponse(c, rec),
		IsBlocked:            rec.IsBlocked,
		MissedCitationsCount: rec.MissedCitations,
		JustBlocked:          justBlocked,
	}, nil
}

// ────────────────────── Cancel ──────────────────────

func (s *citationService) Cancel(ctx context.Context, id string, req *dto.CancelCitationRequest, callerID string) (*dto.CitationResponse, error) {
	c, rec, _, err := s.resolve(ctx, id, model.CitationCancelled, req.Notes, callerID)
	if err != nil {
		return nil, err
	}

	if c.CalendarEventID != nil && *c.CalendarEventID != "" {
		if err := s.calendar.DeleteEvent(ctx, *c.CalendarEventID); err != nil {
			s.logger.Warn("删除约谈日历事件失败", zap.String("citation_id", c.CitationID), zap.Error(err))
		}
	}
	return toCitationResponse(c, rec), nil
}

// resolve 将 scheduled 约谈结案并更新处罚汇总；返回是否因本次缺席而封禁
func (s *citationService) resolve(ctx context.Context, id, status, notes, callerID string) (*model.Citation, *model.SanctionRecord, bool, error) {
	c, err := s.repo.Citation.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, false, ErrCitationNotFound
		}
		s.logger.Error("查询约谈失败", zap.String("citation_id", id), zap.Error(err))
		return nil, nil, false, err
	}
	if c.IsTerminal() {
		return nil, nil, false, newConflict(ErrCitationNotScheduled, map[string]interface{}{"status": c.Status})
	}

	unlock, err := s.locker.Lock(ctx, c.UserID)
	if err != nil {
		return nil, nil, false, err
	}
	defer unlock()

	now := s.now().UTC()
	c.Status = status
	c.MarkedBy = &callerID
	c.MarkedAt = &now
	c.Notes = notes
	c.UpdatedBy = &callerID

	var rec *model.SanctionRecord
	justBlocked := false
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Citation.Resolve(ctx, c); err != nil {
			if errors.Is(err, pkgerrors.ErrOptimisticLock) {
				return newConflict(ErrCitationNotScheduled, nil)
			}
			return err
		}

		rec, err = tx.Sanction.GetOrCreate(ctx, c.UserID, c.UserName, true)
		if err != nil {
			return err
		}

		if status == model.CitationNoShow {
			rec.MissedCitations++
			entry := &model.MissedCitationEntry{
				UserID:       c.UserID,
				CitationID:   c.CitationID,
				CitationDate: c.CitationDate,
				MarkedBy:     callerID,
				Notes:        notes,
				CreatedAt:    now,
			}
			if err := tx.Sanction.AddMissedCitation(ctx, entry); err != nil {
				return err
			}
			rec.MissedCitationHistory = append(rec.MissedCitationHistory, *entry)

			if rec.MissedCitations >= blockThreshold && !rec.IsBlocked {
				reason := model.BlockReasonCitationAbsences
				rec.IsBlocked = true
				rec.BlockReason = &reason
				rec.BlockedAt = &now
				rec.BlockedBy = &callerID
				justBlocked = true
			}
		}

		// 结案的是已被新约谈取代的过期约谈时，标记跟随仍有效的那一条
		active, err := tx.Citation.GetActive(ctx, c.UserID)
		switch {
		case err == nil:
			activeDate := active.CitationDate
			rec.HasCitation = true
			rec.CitationDate = &activeDate
		case errors.Is(err, gorm.ErrRecordNotFound):
			rec.HasCitation = false
			rec.CitationDate = nil
		default:
			return err
		}
		rec.UpdatedBy = &callerID
		return tx.Sanction.Update(ctx, rec)
	})
	if err != nil {
		if !errors.Is(err, ErrCitationNotScheduled) {
			s.logger.Error("约谈结案失败", zap.String("citation_id", id), zap.Error(err))
		}
		return nil, nil, false, err
	}

	s.logger.Info("约谈已结案",
		zap.String("citation_id", c.CitationID),
		zap.String("user_id", c.UserID),
		zap.String("status", status),
		zap.Int("missed_citations", rec.MissedCitations),
		zap.Bool("just_blocked", justBlocked),
	)
	return c, rec, justBlocked, nil
}

// ────────────────────── Unblock ──────────────────────

func (s *citationService) Unblock(ctx context.Context, userID string, req *dto.UnblockRequest, callerID string) (*dto.UnblockResponse, error) {
	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = defaultUnblockReason
	}
	now := s.now().UTC()

	var rec *model.SanctionRecord
	var entry *model.UnblockEntry
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		rec, err = tx.Sanction.Get(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newConflict(ErrNotBlocked, map[string]interface{}{
					"isBlocked":            false,
					"missedCitationsCount": 0,
				})
			}
			return err
		}
		if !rec.IsBlocked {
			return newConflict(ErrNotBlocked, map[string]interface{}{
				"isBlocked":            false,
				"missedCitationsCount": rec.MissedCitations,
			})
		}

		// 缺席次数保留，不清零
		rec.IsBlocked = false
		rec.BlockReason = nil
		rec.BlockedAt = nil
		rec.BlockedBy = nil
		rec.UpdatedBy = &callerID
		if err := tx.Sanction.Update(ctx, rec); err != nil {
			return err
		}

		entry = &model.UnblockEntry{
			UserID:          userID,
			UnblockedBy:     callerID,
			Reason:          reason,
			Note:            unblockNote(rec.MissedCitations),
			MissedCitations: rec.MissedCitations,
			CreatedAt:       now,
		}
		return tx.Sanction.AddUnblock(ctx, entry)
	})
	if err != nil {
		if !errors.Is(err, ErrNotBlocked) {
			s.logger.Error("解封失败", zap.String("user_id", userID), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("司机已解封",
		zap.String("user_id", userID),
		zap.Int("missed_citations", rec.MissedCitations),
		zap.String("by", callerID),
	)

	if err := s.mirror.AppendUnblock(ctx, rec, entry); err != nil {
		s.logger.Warn("写入解封镜像失败", zap.String("user_id", userID), zap.Error(err))
	}

	return &dto.UnblockResponse{
		UserID:               userID,
		IsBlocked:            false,
		MissedCitationsCount: rec.MissedCitations,
		UnblockedBy:          callerID,
		UnblockedAt:          formatTime(now),
	}, nil
}

// ────────────────────── List ──────────────────────

func (s *citationService) List(ctx context.Context, req *dto.CitationListRequest) ([]dto.CitationResponse, error) {
	filters := &repository.CitationListFilters{
		Status: req.Status,
		UserID: strings.TrimSpace(req.UserID),
	}
	search := strings.TrimSpace(req.Search)

	var citations []model.Citation
	if search == "" {
		var err error
		citations, err = s.repo.Citation.List(ctx, filters)
		if err != nil {
			s.logger.Error("查询约谈列表失败", zap.Error(err))
			return nil, err
		}
	} else {
		// 去重音匹配无法下推到 SQL，按批遍历全部候选
		filters.Limit = searchListLimit
		for {
			batch, err := s.repo.Citation.List(ctx, filters)
			if err != nil {
				s.logger.Error("查询约谈列表失败", zap.Error(err))
				return nil, err
			}
			for _, c := range batch {
				if containsFolded(c.UserName, search) || containsFolded(c.UserID, search) {
					citations = append(citations, c)
				}
			}
			if len(batch) < searchListLimit {
				break
			}
			filters.Offset += len(batch)
		}
	}

	userIDs := make([]string, 0, len(citations))
	seen := make(map[string]bool)
	for _, c := range citations {
		if !seen[c.UserID] {
			seen[c.UserID] = true
			userIDs = append(userIDs, c.UserID)
		}
	}

	records := make(map[string]*model.SanctionRecord)
	if len(userIDs) > 0 {
		recs, err := s.repo.Sanction.ListByUsers(ctx, userIDs)
		if err != nil {
			s.logger.Error("查询处罚汇总失败", zap.Error(err))
			return nil, err
		}
		for i := range recs {
			records[recs[i].UserID] = &recs[i]
		}
	}

	result := make([]dto.CitationResponse, 0, len(citations))
	for i := range citations {
		result = append(result, *toCitationResponse(&citations[i], records[citations[i].UserID]))
	}
	return result, nil
}

// toCitationResponse rec 为 nil 时视为无处罚汇总
func toCitationResponse(c *model.Citation, rec *model.SanctionRecord) *dto.CitationResponse {
	resp := &dto.CitationResponse{
		ID:              c.CitationID,
		UserID:          c.UserID,
		UserName:        c.UserName,
		CitationDate:    formatTime(c.CitationDate),
		Reason:          c.Reason,
		ReasonDetails:   c.ReasonDetails,
		Status:          c.Status,
		Automatic:       c.Automatic,
		CalendarEventID: c.CalendarEventID,
		MarkedBy:        c.MarkedBy,
		MarkedAt:        formatTimePtr(c.MarkedAt),
		Notes:           c.Notes,
		CreatedBy:       c.CreatedBy,
	}
	if !c.CreatedAt.IsZero() {
		resp.CreatedAt = formatTime(c.CreatedAt)
	}
	if rec != nil {
		resp.IsBlocked = rec.IsBlocked
		resp.MissedCitationsCount = rec.MissedCitations
	}
	return resp
}
