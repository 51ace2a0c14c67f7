package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"supervitec-sgd/backend/internal/dto"
	"supervitec-sgd/backend/internal/service"
	"supervitec-sgd/backend/pkg/response"
)

// CitationHandler 约谈模块 HTTP 处理器
type CitationHandler struct {
	citationSvc service.CitationService
}

// NewCitationHandler 创建 CitationHandler
func NewCitationHandler(citationSvc service.CitationService) *CitationHandler {
	return &CitationHandler{citationSvc: citationSvc}
}

// Create 手动创建约谈
// POST /api/v1/citations
func (h *CitationHandler) Create(c *gin.Context) {
	var req dto.CreateCitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, err.Error())
		return
	}
	callerID, ok := MustGetAdmin(c)
	if !ok {
		return
	}

	citation, err := h.citationSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		handleCitationError(c, err)
		return
	}

	response.Created(c, citation)
}

// List 约谈列表（附带司机封禁状态）
// GET /api/v1/citations?status=&userId=&search=
func (h *CitationHandler) List(c *gin.Context) {
	var req dto.CitationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ValidationFailed(c, err.Error())
		return
	}

	list, err := h.citationSvc.List(c.Request.Context(), &req)
	if err != nil {
		handleCitationError(c, err)
		return
	}

	response.OK(c, gin.H{"items": list})
}

// MarkAttendance 标记出席 / 缺席
// PATCH /api/v1/citations/:id/attendance
func (h *CitationHandler) MarkAttendance(c *gin.Context) {
	var req dto.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, err.Error())
		return
	}
	callerID, ok := MustGetAdmin(c)
	if !ok {
		return
	}

	result, err := h.citationSvc.MarkAttendance(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		handleCitationError(c, err)
		return
	}

	response.OK(c, result)
}

// Cancel 取消约谈
// PATCH /api/v1/citations/:id/cancel
func (h *CitationHandler) Cancel(c *gin.Context) {
	var req dto.CancelCitationRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.ValidationFailed(c, err.Error())
		return
	}
	callerID, ok := MustGetAdmin(c)
	if !ok {
		return
	}

	citation, err := h.citationSvc.Cancel(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		handleCitationError(c, err)
		return
	}

	response.OK(c, citation)
}

// Unblock 解封司机
// POST /api/v1/citations/unblock/:userId
func (h *CitationHandler) Unblock(c *gin.Context) {
	var req dto.UnblockRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.ValidationFailed(c, err.Error())
		return
	}
	callerID, ok := MustGetAdmin(c)
	if !ok {
		return
	}

	result, err := h.citationSvc.Unblock(c.Request.Context(), c.Param("userId"), &req, callerID)
	if err != nil {
		handleCitationError(c, err)
		return
	}

	response.OK(c, result)
}

// 冲突类错误按 400 返回，data 携带当前状态（如累计缺席次数）
func handleCitationError(c *gin.Context, err error) {
	ctx := service.ConflictContext(err)
	switch {
	case errors.Is(err, service.ErrInvalidCitationDate):
		response.ValidationFailed(c, err.Error())
	case errors.Is(err, service.ErrCitationNotFound):
		response.NotFound(c, 22101, "约谈不存在")
	case errors.Is(err, service.ErrActiveCitationExists):
		response.Reject(c, http.StatusBadRequest, 22102, "active_citation_exists", err.Error(), ctx)
	case errors.Is(err, service.ErrCitationNotScheduled):
		response.Reject(c, http.StatusBadRequest, 22103, "citation_not_scheduled", err.Error(), ctx)
	case errors.Is(err, service.ErrNotBlocked):
		response.Reject(c, http.StatusBadRequest, 22104, "not_blocked", err.Error(), ctx)
	default:
		response.InternalError(c)
	}
}
