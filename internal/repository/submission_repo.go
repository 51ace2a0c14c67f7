package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"supervitec-sgd/backend/internal/model"
)

// SubmissionRepository 每日预检记录数据访问接口
type SubmissionRepository interface {
	Get(ctx context.Context, userID, date string) (*model.SubmissionRecord, error)
	// Upsert 以 (user_id, date) 为键写入提交结果（允许重复提交覆盖）
	Upsert(ctx context.Context, rec *model.SubmissionRecord) error
	// CreateIfAbsent 记录不存在时创建，返回是否新建
	CreateIfAbsent(ctx context.Context, rec *model.SubmissionRecord) (bool, error)
	ListByDate(ctx context.Context, date string) ([]model.SubmissionRecord, error)
	ListByUserRange(ctx context.Context, userID, startDate, endDate string) ([]model.SubmissionRecord, error)
	MarkAdminNotified(ctx context.Context, userID, date string) error
}

type submissionRepo struct {
	db *gorm.DB
}

// NewSubmissionRepo 创建 SubmissionRepository 实例
func NewSubmissionRepo(db *gorm.DB) SubmissionRepository {
	return &submissionRepo{db: db}
}

func (r *submissionRepo) Get(ctx context.Context, userID, date string) (*model.SubmissionRecord, error) {
	var rec model.SubmissionRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND date = ?", userID, date).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *submissionRepo) Upsert(ctx context.Context, rec *model.SubmissionRecord) error {
	rec.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"user_name", "vehicle_type", "status", "delivered_at",
				"form_data", "was_late", "updated_by", "updated_at",
			}),
		}).
		Create(rec).Error
}

func (r *submissionRepo) CreateIfAbsent(ctx context.Context, rec *model.SubmissionRecord) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
			DoNothing: true,
		}).
		Create(rec)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *submissionRepo) ListByDate(ctx context.Context, date string) ([]model.SubmissionRecord, error) {
	var recs []model.SubmissionRecord
	err := r.db.WithContext(ctx).
		Where("date = ?", date).
		Find(&recs).Error
	return recs, err
}

func (r *submissionRepo) ListByUserRange(ctx context.Context, userID, startDate, endDate string) ([]model.SubmissionRecord, error) {
	var recs []model.SubmissionRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, startDate, endDate).
		Order("date ASC").
		Find(&recs).Error
	return recs, err
}

func (r *submissionRepo) MarkAdminNotified(ctx context.Context, userID, date string) error {
	return r.db.WithContext(ctx).
		Model(&model.SubmissionRecord{}).
		Where("user_id = ? AND date = ?", userID, date).
		Updates(map[string]interface{}{
			"admin_notified": true,
			"updated_at":     time.Now().UTC(),
		}).Error
}
