package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"supervitec-sgd/backend/internal/dto"
	"supervitec-sgd/backend/internal/model"
	"supervitec-sgd/backend/internal/repository"
)

// ── 司机目录模块业务错误 ──

var (
	ErrDriverNotFound      = errors.New("司机不存在")
	ErrDriverExists        = errors.New("司机 ID 已存在")
	ErrImportNoData        = errors.New("Excel 文件无数据行（第一行为表头）")
	ErrImportTooManyRows   = fmt.Errorf("数据行数超过上限 %d 行", maxImportRows)
	ErrImportBadHeader     = errors.New("Excel 表头缺少必要列（ID/NOMBRE）")
	ErrInvalidVehicleType  = errors.New("车辆类型只能是 moto 或 carro")
	ErrInvalidImportActive = errors.New("ACTIVO 列只能是 SI 或 NO")
)

const (
	maxImportRows      = 1000
	activeDriversKey   = "drivers:active"
	activeDriversTTL   = 5 * time.Minute
	defaultVehicleType = model.VehicleMoto
)

// DirectoryCache 司机目录缓存，由 *redis.Client 实现
type DirectoryCache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// DriverService 司机目录业务接口
type DriverService interface {
	DriverDirectory
	// PublicList 司机端选择身份用的在岗名单，不含邮箱
	PublicList(ctx context.Context, vehicleType string) ([]dto.PublicDriverResponse, error)
	List(ctx context.Context, req *dto.DriverListRequest) ([]dto.DriverResponse, int64, error)
	Create(ctx context.Context, req *dto.CreateDriverRequest, callerID string) (*dto.DriverResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateDriverRequest, callerID string) (*dto.DriverResponse, error)
	ParseImportFile(reader io.Reader) ([]ImportDriverRow, error)
	Import(ctx context.Context, rows []ImportDriverRow, callerID string) (*dto.ImportDriverResponse, error)
}

// ImportDriverRow Excel 导入解析后的单行数据
type ImportDriverRow struct {
	Row         int
	ID          string
	Name        string
	VehicleType string
	Active      string
	Email       string
}

type driverService struct {
	repo   *repository.Repository
	cache  DirectoryCache
	logger *zap.Logger
}

// NewDriverService 创建 DriverService 实例；cache 为 nil 时直接读库
func NewDriverService(repo *repository.Repository, cache DirectoryCache, logger *zap.Logger) DriverService {
	return &driverService{repo: repo, cache: cache, logger: logger}
}

// ────────────────────── ListActive ──────────────────────

func (s *driverService) ListActive(ctx context.Context) ([]DriverInfo, error) {
	if s.cache != nil {
		var cached []DriverInfo
		hit, err := s.cache.GetJSON(ctx, activeDriversKey, &cached)
		if err != nil {
			s.logger.Warn("读取司机目录缓存失败，回退查库", zap.Error(err))
		} else if hit {
			return cached, nil
		}
	}

	drivers, err := s.repo.Driver.ListActive(ctx)
	if err != nil {
		s.logger.Error("查询在岗司机失败", zap.Error(err))
		return nil, err
	}

	infos := make([]DriverInfo, 0, len(drivers))
	for i := range drivers {
		infos = append(infos, toDriverInfo(&drivers[i]))
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, activeDriversKey, infos, activeDriversTTL); err != nil {
			s.logger.Warn("写入司机目录缓存失败", zap.Error(err))
		}
	}
	return infos, nil
}

// ────────────────────── PublicList ──────────────────────

func (s *driverService) PublicList(ctx context.Context, vehicleType string) ([]dto.PublicDriverResponse, error) {
	if vehicleType != "" {
		vt, err := parseVehicleType(vehicleType)
		if err != nil {
			return nil, err
		}
		vehicleType = vt
	}

	drivers, err := s.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	list := make([]dto.PublicDriverResponse, 0, len(drivers))
	for _, d := range drivers {
		if vehicleType != "" && d.VehicleType != vehicleType {
			continue
		}
		list = append(list, dto.PublicDriverResponse{ID: d.ID, Name: d.Name, VehicleType: d.VehicleType})
	}
	sort.Slice(list, func(i, j int) bool { return foldText(list[i].Name) < foldText(list[j].Name) })
	return list, nil
}

// ────────────────────── Lookup ──────────────────────

func (s *driverService) Lookup(ctx context.Context, userID string) (*DriverInfo, error) {
	driver, err := s.repo.Driver.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		s.logger.Error("查询司机失败", zap.String("id", userID), zap.Error(err))
		return nil, err
	}
	info := toDriverInfo(driver)
	return &info, nil
}

// ────────────────────── List ──────────────────────

func (s *driverService) List(ctx context.Context, req *dto.DriverListRequest) ([]dto.DriverResponse, int64, error) {
	filters := &repository.DriverListFilters{
		VehicleType: req.VehicleType,
		Active:      req.Active,
		Keyword:     strings.TrimSpace(req.Keyword),
	}
	drivers, total, err := s.repo.Driver.List(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询司机列表失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.DriverResponse, 0, len(drivers))
	for i := range drivers {
		result = append(result, *toDriverResponse(&drivers[i]))
	}
	return result, total, nil
}

// ────────────────────── Create ──────────────────────

func (s *driverService) Create(ctx context.Context, req *dto.CreateDriverRequest, callerID string) (*dto.DriverResponse, error) {
	driver := &model.Driver{
		DriverID:    strings.TrimSpace(req.ID),
		Name:        strings.TrimSpace(req.Name),
		VehicleType: req.VehicleType,
		Email:       strings.TrimSpace(req.Email),
		Active:      true,
	}
	if req.Active != nil {
		driver.Active = *req.Active
	}
	driver.CreatedBy = &callerID
	driver.UpdatedBy = &callerID

	if err := s.repo.Driver.Create(ctx, driver); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDriverExists
		}
		s.logger.Error("创建司机失败", zap.String("id", driver.DriverID), zap.Error(err))
		return nil, err
	}

	s.invalidateDirectory(ctx)
	return toDriverResponse(driver), nil
}

// ────────────────────── Update ──────────────────────

func (s *driverService) Update(ctx context.Context, id string, req *dto.UpdateDriverRequest, callerID string) (*dto.DriverResponse, error) {
	driver, err := s.repo.Driver.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDriverNotFound
		}
		s.logger.Error("查询司机失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if req.Name != nil {
		driver.Name = strings.TrimSpace(*req.Name)
	}
	if req.VehicleType != nil {
		driver.VehicleType = *req.VehicleType
	}
	if req.Email != nil {
		driver.Email = strings.TrimSpace(*req.Email)
	}
	if req.Active != nil {
		driver.Active = *req.Active
	}
	driver.UpdatedBy = &callerID

	if err := s.repo.Driver.Update(ctx, driver); err != nil {
		s.logger.Error("更新司机失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.invalidateDirectory(ctx)
	return toDriverResponse(driver), nil
}

// ────────────────────── Import ──────────────────────

// ParseImportFile 解析导入 Excel（列：ID, NOMBRE, TIPO, ACTIVO, EMAIL，列序不限）
func (s *driverService) ParseImportFile(reader io.Reader) ([]ImportDriverRow, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("无法解析Excel文件: %w", err)
	}
	defer f.Close()

	excelRows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %w", err)
	}
	if len(excelRows) < 2 {
		return nil, ErrImportNoData
	}

	colIndex := parseDriverHeader(excelRows[0])
	if colIndex["id"] < 0 || colIndex["name"] < 0 {
		return nil, ErrImportBadHeader
	}

	cellAt := func(row []string, col string) string {
		idx := colIndex[col]
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var rows []ImportDriverRow
	for i := 1; i < len(excelRows); i++ {
		item := ImportDriverRow{
			Row:         i + 1,
			ID:          cellAt(excelRows[i], "id"),
			Name:        cellAt(excelRows[i], "name"),
			VehicleType: cellAt(excelRows[i], "vehicle_type"),
			Active:      cellAt(excelRows[i], "active"),
			Email:       cellAt(excelRows[i], "email"),
		}
		// 跳过全空行
		if item.ID == "" && item.Name == "" && item.Email == "" {
			continue
		}
		rows = append(rows, item)
	}

	if len(rows) == 0 {
		return nil, ErrImportNoData
	}
	if len(rows) > maxImportRows {
		return nil, ErrImportTooManyRows
	}
	return rows, nil
}

// parseDriverHeader 解析表头，返回列名 -> 列索引
func parseDriverHeader(header []string) map[string]int {
	idx := map[string]int{
		"id":           -1,
		"name":         -1,
		"vehicle_type": -1,
		"active":       -1,
		"email":        -1,
	}
	for i, h := range header {
		switch normalizeFieldKey(h) {
		case "ID", "ID_CONDUCTOR", "CEDULA":
			idx["id"] = i
		case "NOMBRE", "NAME", "NOMBRE_CONDUCTOR":
			idx["name"] = i
		case "TIPO", "VEHICULO", "TIPO_VEHICULO", "VEHICLE_TYPE":
			idx["vehicle_type"] = i
		case "ACTIVO", "ACTIVE":
			idx["active"] = i
		case "EMAIL", "CORREO":
			idx["email"] = i
		}
	}
	return idx
}

func parseVehicleType(v string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "":
		return defaultVehicleType, nil
	case model.VehicleMoto:
		return model.VehicleMoto, nil
	case model.VehicleCarro:
		return model.VehicleCarro, nil
	default:
		return "", ErrInvalidVehicleType
	}
}

func parseActiveFlag(v string) (bool, error) {
	switch normalizeFieldKey(v) {
	case "", "SI", "S", "TRUE", "1":
		return true, nil
	case "NO", "N", "FALSE", "0":
		return false, nil
	default:
		return false, ErrInvalidImportActive
	}
}

func (s *driverService) Import(ctx context.Context, rows []ImportDriverRow, callerID string) (*dto.ImportDriverResponse, error) {
	resp := &dto.ImportDriverResponse{Total: len(rows)}

	// 第一阶段：逐行校验
	var valid []*model.Driver
	seen := make(map[string]int)
	for _, row := range rows {
		fail := func(reason string) {
			resp.Failed++
			resp.Errors = append(resp.Errors, dto.ImportRowError{Row: row.Row, ID: row.ID, Reason: reason})
		}

		if row.ID == "" || row.Name == "" {
			fail("ID 或 NOMBRE 为空")
			continue
		}
		if first, dup := seen[row.ID]; dup {
			fail(fmt.Sprintf("ID 与第 %d 行重复", first))
			continue
		}
		vehicleType, err := parseVehicleType(row.VehicleType)
		if err != nil {
			fail(err.Error())
			continue
		}
		active, err := parseActiveFlag(row.Active)
		if err != nil {
			fail(err.Error())
			continue
		}
		seen[row.ID] = row.Row

		d := &model.Driver{
			DriverID:    row.ID,
			Name:        row.Name,
			VehicleType: vehicleType,
			Email:       row.Email,
			Active:      active,
		}
		d.CreatedBy = &callerID
		d.UpdatedBy = &callerID
		valid = append(valid, d)
	}

	// 第二阶段：事务内批量写入，任一失败全部回滚
	if len(valid) > 0 {
		err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			for _, d := range valid {
				if err := tx.Driver.Upsert(ctx, d); err != nil {
					return fmt.Errorf("写入司机 %s 失败: %w", d.DriverID, err)
				}
			}
			return nil
		})
		if err != nil {
			s.logger.Error("导入司机失败，事务回滚", zap.Error(err))
			return nil, err
		}
		resp.Upserted = len(valid)
		s.invalidateDirectory(ctx)
	}

	s.logger.Info("司机目录导入完成",
		zap.Int("total", resp.Total),
		zap.Int("upserted", resp.Upserted),
		zap.Int("failed", resp.Failed),
		zap.String("by", callerID),
	)
	return resp, nil
}

// ── 内部辅助方法 ──

func (s *driverService) invalidateDirectory(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, activeDriversKey); err != nil {
		s.logger.Warn("清除司机目录缓存失败", zap.Error(err))
	}
}

func toDriverInfo(d *model.Driver) DriverInfo {
	return DriverInfo{
		ID:          d.DriverID,
		Name:        d.Name,
		VehicleType: d.VehicleType,
		Email:       d.Email,
		Active:      d.Active,
	}
}

func toDriverResponse(d *model.Driver) *dto.DriverResponse {
	return &dto.DriverResponse{
		ID:          d.DriverID,
		Name:        d.Name,
		VehicleType: d.VehicleType,
		Email:       d.Email,
		Active:      d.Active,
	}
}
