package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"supervitec-sgd/backend/internal/model"
	pkgerrors "supervitec-sgd/backend/pkg/errors"
)

// CitationListFilters 约谈列表筛选条件
type CitationListFilters struct {
	Status string
	UserID string
	Limit  int
	Offset int
}

// CitationRepository 约谈数据访问接口
type CitationRepository interface {
	// Create 创建约谈；active_key 冲突时返回 gorm.ErrDuplicatedKey
	Create(ctx context.Context, citation *model.Citation) error
	GetByID(ctx context.Context, id string) (*model.Citation, error)
	// GetActive 查询司机当前有效的 scheduled 约谈
	GetActive(ctx context.Context, userID string) (*model.Citation, error)
	// ReleaseStale 约谈时间已过但仍为 scheduled 的记录不再占用有效位
	ReleaseStale(ctx context.Context, userID string, now time.Time) (int64, error)
	// Resolve 将 scheduled 约谈结案；状态已变化时返回 ErrOptimisticLock
	Resolve(ctx context.Context, citation *model.Citation) error
	SetCalendarEvent(ctx context.Context, id, eventID string) error
	List(ctx context.Context, filters *CitationListFilters) ([]model.Citation, error)
}

type citationRepo struct {
	db *gorm.DB
}

// NewCitationRepo 创建 CitationRepository 实例
func NewCitationRepo(db *gorm.DB) CitationRepository {
	return &citationRepo{db: db}
}

func (r *citationRepo) Create(ctx context.Context, citation *model.Citation) error {
	return r.db.WithContext(ctx).Create(citation).Error
}

func (r *citationRepo) GetByID(ctx context.Context, id string) (*model.Citation, error) {
	var c model.Citation
	err := r.db.WithContext(ctx).Where("citation_id = ?", id).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *citationRepo) GetActive(ctx context.Context, userID string) (*model.Citation, error) {
	var c model.Citation
	err := r.db.WithContext(ctx).
		Where("active_key = ? AND status = ?", userID, model.CitationScheduled).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *citationRepo) ReleaseStale(ctx context.Context, userID string, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Citation{}).
		Where("active_key = ? AND citation_date < ?", userID, now).
		Updates(map[string]interface{}{
			"active_key": nil,
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}

func (r *citationRepo) Resolve(ctx context.Context, citation *model.Citation) error {
	result := r.db.WithContext(ctx).
		Model(&model.Citation{}).
		Where("citation_id = ? AND status = ?", citation.CitationID, model.CitationScheduled).
		Updates(map[string]interface{}{
			"status":     citation.Status,
			"marked_by":  citation.MarkedBy,
			"marked_at":  citation.MarkedAt,
			"notes":      citation.Notes,
			"active_key": nil,
			"updated_by": citation.UpdatedBy,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	citation.ActiveKey = nil
	return nil
}

func (r *citationRepo) SetCalendarEvent(ctx context.Context, id, eventID string) error {
	return r.db.WithContext(ctx).
		Model(&model.Citation{}).
		Where("citation_id = ?", id).
		Update("calendar_event_id", eventID).Error
}

func (r *citationRepo) List(ctx context.Context, filters *CitationListFilters) ([]model.Citation, error) {
	var citations []model.Citation

	db := r.db.WithContext(ctx).Model(&model.Citation{})
	limit := 100
	if filters != nil {
		if filters.Status != "" {
			db = db.Where("status = ?", filters.Status)
		}
		if filters.UserID != "" {
			db = db.Where("user_id = ?", filters.UserID)
		}
		if filters.Limit > 0 {
			limit = filters.Limit
		}
		if filters.Offset > 0 {
			db = db.Offset(filters.Offset)
		}
	}

	// citation_id 兜底排序，分页时顺序稳定
	err := db.Order("citation_date DESC").Order("citation_id").Limit(limit).Find(&citations).Error
	return citations, err
}
