package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"supervitec-sgd/backend/internal/dto"
	"supervitec-sgd/backend/internal/service"
	"supervitec-sgd/backend/pkg/response"
)

// 可由管理员编辑的审查表列，路径参数 → 列
var reviewFields = map[string]service.ReviewColumn{
	"observation": service.ReviewColumnObservation,
	"maintenance": service.ReviewColumnMaintenance,
	"receipt":     service.ReviewColumnReceipt,
}

// 月份下拉列表长度
const reviewMonthsListed = 12

// ReviewHandler 月度审查 HTTP 处理器
type ReviewHandler struct {
	reviewSvc service.ReviewService
}

// NewReviewHandler 创建 ReviewHandler
func NewReviewHandler(reviewSvc service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewSvc: reviewSvc}
}

// Review 月度审查列表
// GET /api/v1/review?month=MARZO_2025
func (h *ReviewHandler) Review(c *gin.Context) {
	var req dto.ReviewRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ValidationFailed(c, err.Error())
		return
	}

	result, err := h.reviewSvc.Review(c.Request.Context(), req.Month)
	if err != nil {
		handleReviewError(c, err)
		return
	}

	response.OK(c, result)
}

// Months 最近月份（当前月在前）
// GET /api/v1/review/months
func (h *ReviewHandler) Months(c *gin.Context) {
	response.OK(c, gin.H{"items": h.reviewSvc.Months(reviewMonthsListed)})
}

// CitarAutomatico 从审查页面直接发起自动约谈
// POST /api/v1/review/citar-automatico
func (h *ReviewHandler) CitarAutomatico(c *gin.Context) {
	var req dto.CitarAutomaticoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, err.Error())
		return
	}
	callerID, ok := MustGetAdmin(c)
	if !ok {
		return
	}

	citation, err := h.reviewSvc.CitarAutomatico(c.Request.Context(), &req, callerID)
	if err != nil {
		handleReviewError(c, err)
		return
	}

	response.Created(c, citation)
}

// UpdateField 修改审查表人工字段（observation / maintenance / receipt）
// PUT /api/v1/review/:field
func (h *ReviewHandler) UpdateField(c *gin.Context) {
	column, ok := reviewFields[c.Param("field")]
	if !ok {
		response.NotFound(c, 23104, "不支持编辑该字段")
		return
	}
	var req dto.UpdateReviewFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, err.Error())
		return
	}
	callerID, ok := MustGetAdmin(c)
	if !ok {
		return
	}

	if err := h.reviewSvc.UpdateField(c.Request.Context(), column, &req, callerID); err != nil {
		handleReviewError(c, err)
		return
	}

	response.OK(c, nil)
}

// SyncReview 手动同步月度审查表
// POST /api/v1/preop/sync-review
func (h *ReviewHandler) SyncReview(c *gin.Context) {
	var req dto.SyncReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, err.Error())
		return
	}

	result, err := h.reviewSvc.SyncMonth(c.Request.Context(), &req)
	if err != nil {
		handleReviewError(c, err)
		return
	}

	response.OK(c, result)
}

func handleReviewError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidReviewMonth),
		errors.Is(err, service.ErrConductorRequired):
		response.ValidationFailed(c, err.Error())
	case errors.Is(err, service.ErrCalendarNotConfigured):
		response.Reject(c, http.StatusNotFound, 23101, "calendar_not_configured", err.Error(), nil)
	case errors.Is(err, service.ErrReviewRowNotFound):
		response.NotFound(c, 23102, err.Error())
	case errors.Is(err, service.ErrMirrorNotConfigured):
		response.Reject(c, http.StatusServiceUnavailable, 23103, "mirror_not_configured", err.Error(), nil)
	case errors.Is(err, service.ErrActiveCitationExists):
		response.Reject(c, http.StatusBadRequest, 22102, "active_citation_exists", err.Error(), service.ConflictContext(err))
	default:
		response.InternalError(c)
	}
}
