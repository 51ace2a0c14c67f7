package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"supervitec-sgd/backend/config"
	"supervitec-sgd/backend/internal/dto"
	"supervitec-sgd/backend/internal/service"
)

// Jobs 定时任务调用的业务入口，与 HTTP 手动触发共用同一实现
type Jobs interface {
	SendReminders(ctx context.Context, date string) (int, error)
	FlagOverdue(ctx context.Context, date string) (int, error)
	CheckMissed(ctx context.Context, date string) (*dto.CheckMissedResponse, error)
	DailyReport(ctx context.Context, date string) (*dto.DailyStatusResponse, error)
}

const defaultJobTimeout = 10 * time.Minute

// Scheduler 按 America/Bogota 时区执行每日任务
//   - 07:45 提醒未提交的司机
//   - 09:00 标记逾期并通知管理员
//   - 12:01 缺交处罚（12:00:00 整仍可迟交）
//   - 19:00 日报
type Scheduler struct {
	cron    *cron.Cron
	jobs    Jobs
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// New 创建调度器并注册全部任务；cron 表达式无效时返回错误
func New(cfg *config.SchedulerConfig, jobs Jobs, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		jobs:    jobs,
		timeout: cfg.JobTimeout,
		logger:  logger,
		now:     time.Now,
	}
	if s.timeout <= 0 {
		s.timeout = defaultJobTimeout
	}

	cl := cronLogger{logger.Sugar()}
	s.cron = cron.New(
		cron.WithLocation(service.Bogota()),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	entries := []struct {
		name string
		spec string
		fn   func(ctx context.Context, date string) error
	}{
		{"reminders", cfg.ReminderSpec, s.reminders},
		{"overdue", cfg.OverdueSpec, s.overdue},
		{"sanctions", cfg.SanctionSpec, s.sanctions},
		{"daily_report", cfg.ReportSpec, s.dailyReport},
	}
	for _, e := range entries {
		if e.spec == "" {
			continue
		}
		if _, err := s.cron.AddFunc(e.spec, s.wrap(e.name, e.fn)); err != nil {
			return nil, fmt.Errorf("注册定时任务 %s 失败: %w", e.name, err)
		}
	}
	return s, nil
}

// Start 启动调度（非阻塞）
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("定时任务已启动", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop 停止调度，返回的 context 在运行中的任务结束后关闭
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// wrap 为任务注入超时 context 与当天日期（Bogota）
func (s *Scheduler) wrap(name string, fn func(ctx context.Context, date string) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		date := service.LocalDate(s.now())
		start := time.Now()
		if err := fn(ctx, date); err != nil {
			s.logger.Error("定时任务失败",
				zap.String("job", name), zap.String("date", date), zap.Error(err))
			return
		}
		s.logger.Info("定时任务完成",
			zap.String("job", name), zap.String("date", date), zap.Duration("elapsed", time.Since(start)))
	}
}

// ── 任务 ──

func (s *Scheduler) reminders(ctx context.Context, date string) error {
	sent, err := s.jobs.SendReminders(ctx, date)
	if err != nil {
		return err
	}
	s.logger.Info("提醒邮件已发送", zap.Int("sent", sent))
	return nil
}

func (s *Scheduler) overdue(ctx context.Context, date string) error {
	flagged, err := s.jobs.FlagOverdue(ctx, date)
	if err != nil {
		return err
	}
	s.logger.Info("逾期司机已标记", zap.Int("flagged", flagged))
	return nil
}

func (s *Scheduler) sanctions(ctx context.Context, date string) error {
	res, err := s.jobs.CheckMissed(ctx, date)
	if err != nil {
		return err
	}
	s.logger.Info("缺交处罚完成",
		zap.Int("checked", res.Checked),
		zap.Int("sanctioned", res.Sanctioned),
		zap.Int("citations", res.CitationsTriggered),
		zap.Strings("failed", res.Failed),
	)
	return nil
}

func (s *Scheduler) dailyReport(ctx context.Context, date string) error {
	_, err := s.jobs.DailyReport(ctx, date)
	return err
}

// cronLogger 将 cron 内部日志转给 zap
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
