package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"supervitec-sgd/backend/internal/model"
	pkgerrors "supervitec-sgd/backend/pkg/errors"
)

// SanctionRepository 处罚汇总与明细数据访问接口
type SanctionRepository interface {
	// Get 查询处罚汇总（含处罚、缺席、解封历史）
	Get(ctx context.Context, userID string) (*model.SanctionRecord, error)
	// GetOrCreate 不存在则创建；lock=true 时在事务内锁定该行
	GetOrCreate(ctx context.Context, userID, userName string, lock bool) (*model.SanctionRecord, error)
	// Update 乐观锁更新汇总字段
	Update(ctx context.Context, rec *model.SanctionRecord) error
	// AddEntry 追加处罚明细；同一 (user_id, date) 已存在时返回 false
	AddEntry(ctx context.Context, entry *model.SanctionEntry) (bool, error)
	HasEntry(ctx context.Context, userID, date string) (bool, error)
	AddMissedCitation(ctx context.Context, entry *model.MissedCitationEntry) error
	AddUnblock(ctx context.Context, entry *model.UnblockEntry) error
	ListByUsers(ctx context.Context, userIDs []string) ([]model.SanctionRecord, error)
}

type sanctionRepo struct {
	db *gorm.DB
}

// NewSanctionRepo 创建 SanctionRepository 实例
func NewSanctionRepo(db *gorm.DB) SanctionRepository {
	return &sanctionRepo{db: db}
}

func (r *sanctionRepo) Get(ctx context.Context, userID string) (*model.SanctionRecord, error) {
	var rec model.SanctionRecord
	err := r.db.WithContext(ctx).
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("sanction_number ASC") }).
		Preload("MissedCitationHistory", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("UnblockHistory", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("user_id = ?", userID).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *sanctionRepo) GetOrCreate(ctx context.Context, userID, userName string, lock bool) (*model.SanctionRecord, error) {
	db := r.db.WithContext(ctx)

	seed := &model.SanctionRecord{UserID: userID, UserName: userName}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Omit(clause.Associations).Create(seed).Error
	if err != nil {
		return nil, err
	}

	q := db.Where("user_id = ?", userID)
	if lock {
		q = forUpdate(q)
	}
	var rec model.SanctionRecord
	if err := q.First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *sanctionRepo) Update(ctx context.Context, rec *model.SanctionRecord) error {
	oldVersion := rec.Version
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&model.SanctionRecord{}).
		Where("user_id = ? AND version = ?", rec.UserID, oldVersion).
		Updates(map[string]interface{}{
			"user_name":              rec.UserName,
			"total_sanctions":        rec.TotalSanctions,
			"last_sanction_date":     rec.LastSanctionDate,
			"has_citation":           rec.HasCitation,
			"citation_date":          rec.CitationDate,
			"is_blocked":             rec.IsBlocked,
			"block_reason":           rec.BlockReason,
			"blocked_at":             rec.BlockedAt,
			"blocked_by":             rec.BlockedBy,
			"missed_citations_count": rec.MissedCitations,
			"updated_by":             rec.UpdatedBy,
			"updated_at":             now,
			"version":                oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	rec.Version = oldVersion + 1
	rec.UpdatedAt = now
	return nil
}

func (r *sanctionRepo) AddEntry(ctx context.Context, entry *model.SanctionEntry) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(entry)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *sanctionRepo) HasEntry(ctx context.Context, userID, date string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.SanctionEntry{}).
		Where("user_id = ? AND date = ?", userID, date).
		Count(&n).Error
	return n > 0, err
}

func (r *sanctionRepo) AddMissedCitation(ctx context.Context, entry *model.MissedCitationEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *sanctionRepo) AddUnblock(ctx context.Context, entry *model.UnblockEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *sanctionRepo) ListByUsers(ctx context.Context, userIDs []string) ([]model.SanctionRecord, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var recs []model.SanctionRecord
	err := r.db.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Find(&recs).Error
	return recs, err
}
