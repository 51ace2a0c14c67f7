package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Driver       DriverRepository
	WorkCalendar WorkCalendarRepository
	Submission   SubmissionRepository
	Sanction     SanctionRepository
	Citation     CitationRepository
	Notification NotificationRepository

	db *gorm.DB
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Driver:       NewDriverRepo(db),
		WorkCalendar: NewWorkCalendarRepo(db),
		Submission:   NewSubmissionRepo(db),
		Sanction:     NewSanctionRepo(db),
		Citation:     NewCitationRepo(db),
		Notification: NewNotificationRepo(db),
		db:           db,
	}
}

// Transaction 在同一事务内执行 fn，fn 收到绑定事务的 Repository
// 未绑定数据库的聚合（单元测试中的 mock 组合）直接以自身执行
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

// forUpdate 对支持行锁的方言追加 SELECT ... FOR UPDATE
// sqlite 无行锁，依赖唯一约束与进程内按司机加锁
func forUpdate(db *gorm.DB) *gorm.DB {
	switch db.Dialector.Name() {
	case "postgres", "mysql":
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	default:
		return db
	}
}
