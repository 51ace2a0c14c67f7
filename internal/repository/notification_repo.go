package repository

import (
	"context"

	"gorm.io/gorm"

	"supervitec-sgd/backend/internal/model"
)

// NotificationListFilters 通知流水筛选条件
type NotificationListFilters struct {
	Kind   string
	UserID string
}

// NotificationRepository 通知流水数据访问接口
type NotificationRepository interface {
	Create(ctx context.Context, log *model.NotificationLog) error
	List(ctx context.Context, filters *NotificationListFilters, offset, limit int) ([]model.NotificationLog, int64, error)
}

type notificationRepo struct {
	db *gorm.DB
}

// NewNotificationRepo 创建 NotificationRepository 实例
func NewNotificationRepo(db *gorm.DB) NotificationRepository {
	return &notificationRepo{db: db}
}

func (r *notificationRepo) Create(ctx context.Context, log *model.NotificationLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *notificationRepo) List(ctx context.Context, filters *NotificationListFilters, offset, limit int) ([]model.NotificationLog, int64, error) {
	var logs []model.NotificationLog
	var total int64

	db := r.db.WithContext(ctx).Model(&model.NotificationLog{})
	if filters != nil {
		if filters.Kind != "" {
			db = db.Where("kind = ?", filters.Kind)
		}
		if filters.UserID != "" {
			db = db.Where("user_id = ?", filters.UserID)
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
