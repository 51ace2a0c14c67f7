package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"

	"supervitec-sgd/backend/config"
	"supervitec-sgd/backend/internal/api/handler"
	"supervitec-sgd/backend/internal/api/router"
	"supervitec-sgd/backend/internal/model"
	"supervitec-sgd/backend/internal/repository"
	"supervitec-sgd/backend/internal/scheduler"
	"supervitec-sgd/backend/internal/service"
	"supervitec-sgd/backend/pkg/database"
	"supervitec-sgd/backend/pkg/google"
	"supervitec-sgd/backend/pkg/jwt"
	applogger "supervitec-sgd/backend/pkg/logger"
	"supervitec-sgd/backend/pkg/mailer"
	"supervitec-sgd/backend/pkg/redis"
)

func main() {
	// 1. 加载配置（SGD_CONFIG 指定 YAML 文件路径，可省略）
	cfg, err := config.Load(os.Getenv("SGD_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 连接数据库并迁移
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	if err := database.Migrate(db, model.AllModels(), logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 外部协作者（均可选：未配置时降级运行，不中断启动）
	var deps service.Dependencies

	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，分布式锁、目录缓存与 Token 黑名单将不可用", zap.Error(err))
		rdb = nil
	} else {
		deps.Cache = rdb
		deps.Blacklist = rdb
		deps.Lock = rdb
	}

	if cfg.Mail.Enabled {
		deps.Mail = mailer.New(&cfg.Mail, logger)
	} else {
		logger.Warn("邮件通知未启用，通知将记为 skipped")
	}

	if cfg.Google.Enabled {
		mirror, calendar, err := setupGoogle(cfg, logger)
		if err != nil {
			logger.Warn("Google 集成初始化失败，镜像与日历事件将不可用", zap.Error(err))
		} else {
			deps.Mirror = mirror
			deps.Calendar = calendar
		}
	}

	// 5. 初始化 JWT 管理器
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 6. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, jwtMgr, deps, logger)
	h := handler.NewHandler(svc)

	// 7. 定时任务
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.New(&cfg.Scheduler, svc.Preop, logger)
		if err != nil {
			logger.Fatal("定时任务初始化失败", zap.Error(err))
		}
		sched.Start()
	}

	// 8. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, rdb, logger)

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 等待运行中的定时任务结束
	if sched != nil {
		select {
		case <-sched.Stop().Done():
		case <-ctx.Done():
			logger.Warn("定时任务未在超时前结束")
		}
	}

	if sqlDB, _ := db.DB(); sqlDB != nil {
		sqlDB.Close()
	}
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}

// setupGoogle 使用存储的管理员凭证创建 Sheets 镜像与 Calendar 同步
func setupGoogle(cfg *config.Config, logger *zap.Logger) (service.Mirror, service.CalendarSync, error) {
	creds, err := google.NewAdminCredentialProvider(&cfg.Google)
	if err != nil {
		return nil, nil, err
	}

	// 客户端生命周期与进程一致，不使用带超时的 context
	ctx := context.Background()

	sheets, err := google.NewSheetsClient(ctx, creds, logger)
	if err != nil {
		return nil, nil, err
	}
	mirror := service.NewSheetMirror(sheets, cfg.Google.ReviewSheetID, cfg.Google.CitationsSheetID, logger)

	var calendar service.CalendarSync = service.NewNoopCalendar()
	if cfg.Google.CalendarID != "" {
		events, err := google.NewCalendarClient(ctx, creds, cfg.Google.CalendarID)
		if err != nil {
			return nil, nil, err
		}
		calendar = service.NewGoogleCalendarSync(events, cfg.Mail.AdminMailbox)
	}

	logger.Info("Google 集成已启用",
		zap.Bool("review_sheet", cfg.Google.ReviewSheetID != ""),
		zap.Bool("calendar", cfg.Google.CalendarID != ""),
	)
	return mirror, calendar, nil
}
