package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"supervitec-sgd/backend/internal/dto"
	"supervitec-sgd/backend/internal/service"
	"supervitec-sgd/backend/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportReview 导出月度审查表
// GET /api/v1/review/export?month=MARZO_2025
func (h *ExportHandler) ExportReview(c *gin.Context) {
	var req dto.ReviewRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ValidationFailed(c, err.Error())
		return
	}

	buf, filename, err := h.exportSvc.ExportReview(c.Request.Context(), req.Month)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	response.Attachment(c, filename, xlsxContentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidReviewMonth):
		response.ValidationFailed(c, err.Error())
	case errors.Is(err, service.ErrExportNoRows):
		response.NotFound(c, 23201, "该月没有可导出的数据")
	default:
		response.InternalError(c)
	}
}
