package google

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const valueInputUserEntered = "USER_ENTERED"

// SheetsClient Google Sheets 读写封装
type SheetsClient struct {
	svc    *sheets.Service
	logger *zap.Logger
}

// NewSheetsClient 创建 Sheets 客户端
func NewSheetsClient(ctx context.Context, creds CredentialProvider, logger *zap.Logger) (*SheetsClient, error) {
	svc, err := sheets.NewService(ctx, option.WithTokenSource(creds))
	if err != nil {
		return nil, fmt.Errorf("初始化 Sheets 服务失败: %w", err)
	}
	return &SheetsClient{svc: svc, logger: logger}, nil
}

// AppendRow 在区域末尾追加一行
func (c *SheetsClient) AppendRow(ctx context.Context, spreadsheetID, rng string, row []interface{}) error {
	_, err := c.svc.Spreadsheets.Values.
		Append(spreadsheetID, rng, &sheets.ValueRange{Values: [][]interface{}{row}}).
		ValueInputOption(valueInputUserEntered).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("追加行失败 %s: %w", rng, err)
	}
	return nil
}

// GetValues 读取区域内的值
func (c *SheetsClient) GetValues(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("读取区域失败 %s: %w", rng, err)
	}
	return resp.Values, nil
}

// UpdateRange 覆盖写入区域
func (c *SheetsClient) UpdateRange(ctx context.Context, spreadsheetID, rng string, values [][]interface{}) error {
	_, err := c.svc.Spreadsheets.Values.
		Update(spreadsheetID, rng, &sheets.ValueRange{Values: values}).
		ValueInputOption(valueInputUserEntered).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("写入区域失败 %s: %w", rng, err)
	}
	return nil
}

// EnsureSheet 工作表不存在时创建并写入表头
func (c *SheetsClient) EnsureSheet(ctx context.Context, spreadsheetID, title string, header []interface{}) error {
	ss, err := c.svc.Spreadsheets.Get(spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("读取表格信息失败: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return nil
		}
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: title},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("创建工作表 %s 失败: %w", title, err)
	}
	c.logger.Info("已创建工作表", zap.String("title", title))

	if len(header) == 0 {
		return nil
	}
	return c.UpdateRange(ctx, spreadsheetID, title+"!A1", [][]interface{}{header})
}
