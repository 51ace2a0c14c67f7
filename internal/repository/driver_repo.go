package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"supervitec-sgd/backend/internal/model"
)

// DriverListFilters 司机列表筛选条件
type DriverListFilters struct {
	VehicleType string
	Active      *bool
	Keyword     string
}

// DriverRepository 司机目录数据访问接口
type DriverRepository interface {
	Create(ctx context.Context, driver *model.Driver) error
	GetByID(ctx context.Context, id string) (*model.Driver, error)
	Update(ctx context.Context, driver *model.Driver) error
	Upsert(ctx context.Context, driver *model.Driver) error
	List(ctx context.Context, filters *DriverListFilters, offset, limit int) ([]model.Driver, int64, error)
	ListActive(ctx context.Context) ([]model.Driver, error)
}

type driverRepo struct {
	db *gorm.DB
}

// NewDriverRepo 创建 DriverRepository 实例
func NewDriverRepo(db *gorm.DB) DriverRepository {
	return &driverRepo{db: db}
}

func (r *driverRepo) Create(ctx context.Context, driver *model.Driver) error {
	return r.db.WithContext(ctx).Create(driver).Error
}

func (r *driverRepo) GetByID(ctx context.Context, id string) (*model.Driver, error) {
	var driver model.Driver
	err := r.db.WithContext(ctx).Where("driver_id = ?", id).First(&driver).Error
	if err != nil {
		return nil, err
	}
	return &driver, nil
}

func (r *driverRepo) Update(ctx context.Context, driver *model.Driver) error {
	return r.db.WithContext(ctx).Save(driver).Error
}

// Upsert 按 driver_id 插入或覆盖（批量导入使用）
func (r *driverRepo) Upsert(ctx context.Context, driver *model.Driver) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "driver_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "vehicle_type", "email", "active", "updated_by", "updated_at"}),
		}).
		Create(driver).Error
}

func (r *driverRepo) List(ctx context.Context, filters *DriverListFilters, offset, limit int) ([]model.Driver, int64, error) {
	var drivers []model.Driver
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Driver{})
	if filters != nil {
		if filters.VehicleType != "" {
			db = db.Where("vehicle_type = ?", filters.VehicleType)
		}
		if filters.Active != nil {
			db = db.Where("active = ?", *filters.Active)
		}
		if filters.Keyword != "" {
			kw := "%" + filters.Keyword + "%"
			db = db.Where("name LIKE ? OR driver_id LIKE ?", kw, kw)
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(offset).Limit(limit).Order("name ASC").Find(&drivers).Error; err != nil {
		return nil, 0, err
	}

	return drivers, total, nil
}

func (r *driverRepo) ListActive(ctx context.Context) ([]model.Driver, error) {
	var drivers []model.Driver
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("name ASC").
		Find(&drivers).Error
	return drivers, err
}
