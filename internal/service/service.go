package service

import (
	"go.uber.org/zap"

	"supervitec-sgd/backend/config"
	"supervitec-sgd/backend/internal/repository"
	"supervitec-sgd/backend/pkg/jwt"
)

// Dependencies 外部协作者；未启用的集成由调用方传入空实现
type Dependencies struct {
	Cache     DirectoryCache
	Blacklist TokenBlacklist
	Lock      DistributedLock
	Mail      MailSender
	Mirror    Mirror
	Calendar  CalendarSync
}

// Service 所有 Service 的聚合入口
type Service struct {
	Auth     AuthService
	Driver   DriverService
	Calendar CalendarService
	Citation CitationService
	Review   ReviewService
	Preop    PreopService
	Export   ExportService
	Notifier Notifier
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	deps Dependencies,
	logger *zap.Logger,
) *Service {
	if deps.Mirror == nil {
		deps.Mirror = NewNoopMirror()
	}
	if deps.Calendar == nil {
		deps.Calendar = NewNoopCalendar()
	}

	locker := NewUserLocker(deps.Lock)
	notifier := NewMailNotifier(deps.Mail, repo, &cfg.Mail, logger)
	drivers := NewDriverService(repo, deps.Cache, logger)
	calendar := NewCalendarService(repo, logger)
	citations := NewCitationService(repo, drivers, deps.Calendar, deps.Mirror, notifier, locker, logger)
	review := NewReviewService(repo, drivers, citations, deps.Mirror, logger)

	return &Service{
		Auth:     NewAuthService(&cfg.Auth, jwtMgr, deps.Blacklist, logger),
		Driver:   drivers,
		Calendar: calendar,
		Citation: citations,
		Review:   review,
		Preop:    NewPreopService(repo, calendar, drivers, citations, review, notifier, locker, logger),
		Export:   NewExportService(review, logger),
		Notifier: notifier,
	}
}
