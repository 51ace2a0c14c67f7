package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"supervitec-sgd/backend/internal/model"
)

// WorkCalendarRepository 工作日历数据访问接口
type WorkCalendarRepository interface {
	Get(ctx context.Context, userID string, year, month int) (*model.WorkCalendar, error)
	Upsert(ctx context.Context, cal *model.WorkCalendar) error
	// Delete 返回是否删除了记录
	Delete(ctx context.Context, userID string, year, month int) (bool, error)
}

type workCalendarRepo struct {
	db *gorm.DB
}

// NewWorkCalendarRepo 创建 WorkCalendarRepository 实例
func NewWorkCalendarRepo(db *gorm.DB) WorkCalendarRepository {
	return &workCalendarRepo{db: db}
}

func (r *workCalendarRepo) Get(ctx context.Context, userID string, year, month int) (*model.WorkCalendar, error) {
	var cal model.WorkCalendar
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND year = ? AND month = ?", userID, year, month).
		First(&cal).Error
	if err != nil {
		return nil, err
	}
	return &cal, nil
}

// Upsert 首次编辑时创建，之后覆盖非工作日集合
func (r *workCalendarRepo) Upsert(ctx context.Context, cal *model.WorkCalendar) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "year"}, {Name: "month"}},
			DoUpdates: clause.AssignmentColumns([]string{"non_working_days", "updated_by", "updated_at"}),
		}).
		Create(cal).Error
}

func (r *workCalendarRepo) Delete(ctx context.Context, userID string, year, month int) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND year = ? AND month = ?", userID, year, month).
		Delete(&model.WorkCalendar{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
