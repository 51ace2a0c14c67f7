package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoRows       = errors.New("该月没有已配置工作日历的司机")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response。
type ExportService interface {
	// ExportReview 导出月度审查表为 Excel，列与 Google 审查表一致
	ExportReview(ctx context.Context, monthKey string) (*bytes.Buffer, string, error)
}

type exportService struct {
	review ReviewService
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(review ReviewService, logger *zap.Logger) ExportService {
	return &exportService{review: review, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportReview 导出月度审查表
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet 名为 MES_AAAA
//   - 第 1 行标题，第 2 行表头（与审查表 A:K 相同，另加迟交与合规率）
//   - 每个司机一行；未配置日历的司机列在 "SIN CALENDARIO" Sheet

func (s *exportService) ExportReview(ctx context.Context, monthKey string) (*bytes.Buffer, string, error) {
	review, err := s.review.Review(ctx, monthKey)
	if err != nil {
		return nil, "", err
	}
	if len(review.Rows) == 0 {
		return nil, "", ErrExportNoRows
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := review.Month
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	header := make([]interface{}, 0, len(reviewHeader)+3)
	header = append(header, reviewHeader...)
	header = append(header, "TARDANZAS", "% CUMPLIMIENTO", "REQUIERE CITACIÓN")

	f.SetColWidth(sheetName, "A", "A", 28)
	f.SetColWidth(sheetName, "B", colName(len(header)-1), 20)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#1E40AF"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("Informe de revisión preoperacional %s", review.Month))
	f.MergeCell(sheetName, "A1", cell(colName(len(header)-1), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	for i, h := range header {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheetName, "A2", cell(colName(len(header)-1), 2), headerStyle)

	// 数据行
	row := 3
	for _, st := range review.Rows {
		values := []interface{}{
			st.UserName,
			st.Emails,
			formatBadItems(st.BadItems),
			st.TotalWorkingDays,
			formatDayList(st.RegisteredDays),
			formatDayList(st.MissingDays),
			st.Maintenance,
			st.Support,
			"",
			st.Receipt,
			st.UserID,
			st.LateCount,
			st.ComplianceRate,
			yesNo(st.RequiresCitation),
		}
		for i, v := range values {
			f.SetCellValue(sheetName, cell(colName(i), row), v)
		}
		row++
	}

	if len(review.NotConfigured) > 0 {
		missing := "SIN CALENDARIO"
		f.NewSheet(missing)
		f.SetCellValue(missing, "A1", "ID USUARIO")
		f.SetCellValue(missing, "B1", "NOMBRE")
		for i, d := range review.NotConfigured {
			f.SetCellValue(missing, cell("A", i+2), d.UserID)
			f.SetCellValue(missing, cell("B", i+2), d.UserName)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("revision_%s.xlsx", review.Month)
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
