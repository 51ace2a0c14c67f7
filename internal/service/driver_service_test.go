package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"supervitec-sgd/backend/internal/dto"
	"supervitec-sgd/backend/internal/model"
	"supervitec-sgd/backend/internal/repository"
)

// ── Mock DirectoryCache ──

type fakeCache struct {
	data    map[string][]byte
	deletes int
}

func newFakeCache() *fakeCache { return &fakeCache{data: make(map[string][]byte)} }

func (f *fakeCache) GetJSON(_ context.Context, key string, dst interface{}) (bool, error) {
	raw, ok := f.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (f *fakeCache) SetJSON(_ context.Context, key string, v interface{}, _ time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.data[key] = raw
	return nil
}

func (f *fakeCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	f.deletes++
	return nil
}

func setupDriverService() (DriverService, *mockDriverRepo, *fakeCache) {
	drivers := newMockDriverRepo()
	cache := newFakeCache()
	repo := &repository.Repository{Driver: drivers}
	return NewDriverService(repo, cache, zap.NewNop()), drivers, cache
}

// buildWorkbook 生成导入用 Excel
func buildWorkbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cellRef, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cellRef, &row); err != nil {
			t.Fatalf("写入测试 Excel 失败: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("生成测试 Excel 失败: %v", err)
	}
	return buf
}

// ═══════════════════════════════════════════════════════════
// Create / Update / 目录缓存
// ═══════════════════════════════════════════════════════════

func TestDriverCreate_Duplicate(t *testing.T) {
	svc, _, _ := setupDriverService()
	ctx := context.Background()

	req := &dto.CreateDriverRequest{ID: " 1001 ", Name: "José Pérez", VehicleType: model.VehicleMoto}
	resp, err := svc.Create(ctx, req, testAdmin)
	if err != nil {
		t.Fatalf("创建司机失败: %v", err)
	}
	if resp.ID != "1001" || !resp.Active {
		t.Errorf("期望 ID 去空白且默认在岗, 实际=%+v", resp)
	}

	if _, err := svc.Create(ctx, req, testAdmin); !errors.Is(err, ErrDriverExists) {
		t.Errorf("期望 ErrDriverExists, 实际=%v", err)
	}
}

func TestDriverUpdate(t *testing.T) {
	svc, _, _ := setupDriverService()
	ctx := context.Background()

	svc.Create(ctx, &dto.CreateDriverRequest{ID: "1001", Name: "José Pérez", VehicleType: model.VehicleMoto}, testAdmin)

	inactive := false
	email := "jose@supervitec.co"
	resp, err := svc.Update(ctx, "1001", &dto.UpdateDriverRequest{Active: &inactive, Email: &email}, testAdmin)
	if err != nil {
		t.Fatalf("更新司机失败: %v", err)
	}
	if resp.Active || resp.Email != email || resp.Name != "José Pérez" {
		t.Errorf("部分更新错误: %+v", resp)
	}

	if _, err := svc.Update(ctx, "9999", &dto.UpdateDriverRequest{}, testAdmin); !errors.Is(err, ErrDriverNotFound) {
		t.Errorf("期望 ErrDriverNotFound, 实际=%v", err)
	}
}

func TestListActive_CachedAndInvalidated(t *testing.T) {
	svc, _, cache := setupDriverService()
	ctx := context.Background()

	svc.Create(ctx, &dto.CreateDriverRequest{ID: "1001", Name: "José Pérez", VehicleType: model.VehicleMoto}, testAdmin)

	list, err := svc.ListActive(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("期望 1 名在岗司机, 实际=%v err=%v", list, err)
	}
	if _, ok := cache.data[activeDriversKey]; !ok {
		t.Fatal("期望写入目录缓存")
	}

	svc.Create(ctx, &dto.CreateDriverRequest{ID: "1002", Name: "Ana Gómez", VehicleType: model.VehicleCarro}, testAdmin)
	if _, ok := cache.data[activeDriversKey]; ok {
		t.Error("新增司机后应清除目录缓存")
	}
	list, _ = svc.ListActive(ctx)
	if len(list) != 2 {
		t.Errorf("期望 2 名在岗司机, 实际=%d", len(list))
	}
}

func TestPublicList_ActiveOnlyWithoutEmail(t *testing.T) {
	svc, _, _ := setupDriverService()
	ctx := context.Background()

	inactive := false
	svc.Create(ctx, &dto.CreateDriverRequest{ID: "1001", Name: "José Pérez", VehicleType: model.VehicleMoto, Email: "jose@example.com"}, testAdmin)
	svc.Create(ctx, &dto.CreateDriverRequest{ID: "1002", Name: "Ana Gómez", VehicleType: model.VehicleCarro}, testAdmin)
	svc.Create(ctx, &dto.CreateDriverRequest{ID: "1003", Name: "Luis Rojas", VehicleType: model.VehicleMoto, Active: &inactive}, testAdmin)

	list, err := svc.PublicList(ctx, "")
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	want := []dto.PublicDriverResponse{
		{ID: "1002", Name: "Ana Gómez", VehicleType: model.VehicleCarro},
		{ID: "1001", Name: "José Pérez", VehicleType: model.VehicleMoto},
	}
	if len(list) != len(want) {
		t.Fatalf("期望 %d 名在岗司机, 实际=%v", len(want), list)
	}
	for i := range want {
		if list[i] != want[i] {
			t.Errorf("第 %d 项期望 %+v, 实际=%+v", i, want[i], list[i])
		}
	}

	list, _ = svc.PublicList(ctx, "MOTO")
	if len(list) != 1 || list[0].ID != "1001" {
		t.Errorf("按车型过滤期望仅 1001, 实际=%v", list)
	}

	if _, err := svc.PublicList(ctx, "bus"); !errors.Is(err, ErrInvalidVehicleType) {
		t.Errorf("期望 ErrInvalidVehicleType, 实际=%v", err)
	}
}

func TestLookup_UnknownReturnsNil(t *testing.T) {
	svc, _, _ := setupDriverService()

	info, err := svc.Lookup(context.Background(), "9999")
	if err != nil || info != nil {
		t.Errorf("未知司机期望 (nil, nil), 实际=(%v, %v)", info, err)
	}
}

func TestDriverList_Filters(t *testing.T) {
	svc, _, _ := setupDriverService()
	ctx := context.Background()

	inactive := false
	svc.Create(ctx, &dto.CreateDriverRequest{ID: "1001", Name: "José Pérez", VehicleType: model.VehicleMoto}, testAdmin)
	svc.Create(ctx, &dto.CreateDriverRequest{ID: "1002", Name: "Ana Gómez", VehicleType: model.VehicleCarro}, testAdmin)
	svc.Create(ctx, &dto.CreateDriverRequest{ID: "1003", Name: "Luis Rojas", VehicleType: model.VehicleMoto, Active: &inactive}, testAdmin)

	list, total, err := svc.List(ctx, &dto.DriverListRequest{VehicleType: model.VehicleMoto})
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if total != 2 || len(list) != 2 {
		t.Errorf("期望 2 名 moto 司机, 实际 total=%d", total)
	}

	active := true
	_, total, _ = svc.List(ctx, &dto.DriverListRequest{VehicleType: model.VehicleMoto, Active: &active})
	if total != 1 {
		t.Errorf("期望 1 名在岗 moto 司机, 实际=%d", total)
	}
}

// ═══════════════════════════════════════════════════════════
// Excel 导入
// ═══════════════════════════════════════════════════════════

func TestParseImportFile(t *testing.T) {
	svc, _, _ := setupDriverService()

	buf := buildWorkbook(t, [][]interface{}{
		{"Nombre", "ID", "Tipo", "Activo", "Correo"},
		{"José Pérez", "1001", "moto", "SI", "jose@supervitec.co"},
		{"", "", "", "", ""},
		{"Ana Gómez", "1002", "CARRO", "no", ""},
	})

	rows, err := svc.ParseImportFile(buf)
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("期望跳过空行后 2 行, 实际=%d", len(rows))
	}
	if rows[0].ID != "1001" || rows[0].Name != "José Pérez" || rows[0].Email != "jose@supervitec.co" {
		t.Errorf("列序识别错误: %+v", rows[0])
	}
	if rows[1].Row != 4 || rows[1].VehicleType != "CARRO" {
		t.Errorf("期望保留原始行号 4, 实际=%+v", rows[1])
	}
}

func TestParseImportFile_Errors(t *testing.T) {
	svc, _, _ := setupDriverService()

	onlyHeader := buildWorkbook(t, [][]interface{}{{"ID", "NOMBRE"}})
	if _, err := svc.ParseImportFile(onlyHeader); !errors.Is(err, ErrImportNoData) {
		t.Errorf("期望 ErrImportNoData, 实际=%v", err)
	}

	badHeader := buildWorkbook(t, [][]interface{}{{"CODIGO", "TIPO"}, {"1", "moto"}})
	if _, err := svc.ParseImportFile(badHeader); !errors.Is(err, ErrImportBadHeader) {
		t.Errorf("期望 ErrImportBadHeader, 实际=%v", err)
	}

	if _, err := svc.ParseImportFile(bytes.NewBufferString("no es excel")); err == nil {
		t.Error("非 Excel 文件应报错")
	}
}

func TestImport_ValidatesRowsAndUpserts(t *testing.T) {
	svc, drivers, cache := setupDriverService()
	ctx := context.Background()

	svc.Create(ctx, &dto.CreateDriverRequest{ID: "1001", Name: "Nombre viejo", VehicleType: model.VehicleMoto}, testAdmin)
	deletesBefore := cache.deletes

	rows := []ImportDriverRow{
		{Row: 2, ID: "1001", Name: "José Pérez", VehicleType: "carro", Active: "SI"},
		{Row: 3, ID: "1002", Name: "Ana Gómez"},
		{Row: 4, ID: "1001", Name: "Duplicado"},
		{Row: 5, ID: "1003", Name: "Luis Rojas", VehicleType: "bus"},
		{Row: 6, ID: "1004", Name: "Marta Díaz", Active: "quizás"},
		{Row: 7, ID: "", Name: "Sin ID"},
	}

	resp, err := svc.Import(ctx, rows, testAdmin)
	if err != nil {
		t.Fatalf("导入失败: %v", err)
	}
	if resp.Total != 6 || resp.Upserted != 2 || resp.Failed != 4 || len(resp.Errors) != 4 {
		t.Errorf("导入统计错误: %+v", resp)
	}
	if resp.Errors[0].Row != 4 {
		t.Errorf("期望第 4 行因重复失败, 实际=%+v", resp.Errors[0])
	}

	d, _ := drivers.GetByID(ctx, "1001")
	if d.Name != "José Pérez" || d.VehicleType != model.VehicleCarro {
		t.Errorf("期望覆盖已有司机, 实际=%+v", d)
	}
	d, _ = drivers.GetByID(ctx, "1002")
	if d.VehicleType != model.VehicleMoto || !d.Active {
		t.Errorf("期望默认 moto 且在岗, 实际=%+v", d)
	}
	if cache.deletes != deletesBefore+1 {
		t.Error("导入后应清除目录缓存")
	}
}

func TestParseFlags(t *testing.T) {
	if v, err := parseVehicleType(" Carro "); err != nil || v != model.VehicleCarro {
		t.Errorf("期望 carro, 实际=%s err=%v", v, err)
	}
	if _, err := parseVehicleType("camion"); !errors.Is(err, ErrInvalidVehicleType) {
		t.Errorf("期望 ErrInvalidVehicleType, 实际=%v", err)
	}
	if v, err := parseActiveFlag("sí"); err != nil || !v {
		t.Errorf("期望 sí 为 true, 实际=%v err=%v", v, err)
	}
	if v, err := parseActiveFlag("No"); err != nil || v {
		t.Errorf("期望 No 为 false, 实际=%v err=%v", v, err)
	}
}
