package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"supervitec-sgd/backend/internal/dto"
	"supervitec-sgd/backend/internal/model"
	"supervitec-sgd/backend/internal/service"
	"supervitec-sgd/backend/pkg/response"
)

// PreopHandler 预检（preoperacional）HTTP 处理器
type PreopHandler struct {
	preopSvc service.PreopService
}

// NewPreopHandler 创建 PreopHandler
func NewPreopHandler(preopSvc service.PreopService) *PreopHandler {
	return &PreopHandler{preopSvc: preopSvc}
}

// ── 司机端（公开） ──

// Submit 提交预检表单，body 为表单字段键值
// POST /api/v1/preop/submit/:vehicleType
func (h *PreopHandler) Submit(c *gin.Context) {
	var raw map[string]interface{}
	if err := c.ShouldBindJSON(&raw); err != nil {
		response.ValidationFailed(c, "表单内容必须为 JSON 对象")
		return
	}

	result, err := h.preopSvc.Submit(c.Request.Context(), c.Param("vehicleType"), raw, service.PublicSubmissionSource)
	if err != nil {
		handlePreopError(c, err)
		return
	}

	// 非工作日：记录已保存，但对司机端按拒绝处理
	if result.Status == model.SubmissionNonWorkingDay {
		response.Reject(c, http.StatusForbidden, 20002, service.SkipNonWorkingDay, service.ErrNonWorkingDay.Error(), result)
		return
	}

	response.OK(c, result)
}

// Form 车辆类型对应的表单字段
// GET /api/v1/preop/form/:vehicleType
func (h *PreopHandler) Form(c *gin.Context) {
	form, err := service.FormDefinition(c.Param("vehicleType"))
	if err != nil {
		handlePreopError(c, err)
		return
	}

	response.OK(c, form)
}

// CheckAvailability 查询今日是否可填写
// GET /api/v1/preop/check-availability?userId=&userName=
func (h *PreopHandler) CheckAvailability(c *gin.Context) {
	var req dto.AvailabilityRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ValidationFailed(c, err.Error())
		return
	}

	result, err := h.preopSvc.CheckAvailability(c.Request.Context(), req.UserID)
	if err != nil {
		handlePreopError(c, err)
		return
	}

	response.OK(c, result)
}

// ── 管理端 ──

// DailyStatus 每日提交状态
// GET /api/v1/preop/daily-status?date=
func (h *PreopHandler) DailyStatus(c *gin.Context) {
	var req dto.DailyStatusRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ValidationFailed(c, err.Error())
		return
	}

	result, err := h.preopSvc.DailyStatus(c.Request.Context(), req.Date)
	if err != nil {
		handlePreopError(c, err)
		return
	}

	response.OK(c, result)
}

// CheckMissed 手动触发缺交检查，body 可省略（默认今天）
// POST /api/v1/preop/check-missed
func (h *PreopHandler) CheckMissed(c *gin.Context) {
	var req dto.CheckMissedRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.ValidationFailed(c, err.Error())
		return
	}

	result, err := h.preopSvc.CheckMissed(c.Request.Context(), req.Date)
	if err != nil {
		handlePreopError(c, err)
		return
	}

	response.OK(c, result)
}

// History 司机提交历史
// GET /api/v1/preop/history?userId=&startDate=&endDate=
func (h *PreopHandler) History(c *gin.Context) {
	var req dto.UserRangeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ValidationFailed(c, err.Error())
		return
	}

	list, err := h.preopSvc.History(c.Request.Context(), &req)
	if err != nil {
		handlePreopError(c, err)
		return
	}

	response.OK(c, gin.H{"items": list})
}

// UserCalendar 司机日期区间日历（含每日提交状态）
// GET /api/v1/preop/user-calendar?userId=&startDate=&endDate=
func (h *PreopHandler) UserCalendar(c *gin.Context) {
	var req dto.UserRangeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ValidationFailed(c, err.Error())
		return
	}

	result, err := h.preopSvc.UserCalendar(c.Request.Context(), &req)
	if err != nil {
		handlePreopError(c, err)
		return
	}

	response.OK(c, result)
}

// Sanctions 司机处罚汇总
// GET /api/v1/preop/sanctions?userId=
func (h *PreopHandler) Sanctions(c *gin.Context) {
	var req dto.SanctionRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ValidationFailed(c, err.Error())
		return
	}

	result, err := h.preopSvc.Sanctions(c.Request.Context(), req.UserID)
	if err != nil {
		handlePreopError(c, err)
		return
	}

	response.OK(c, result)
}

func handlePreopError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidVehicleType),
		errors.Is(err, service.ErrInvalidDate),
		errors.Is(err, service.ErrInvalidDateRange),
		errors.Is(err, service.ErrDateRangeTooLarge):
		response.ValidationFailed(c, err.Error())
	case errors.Is(err, service.ErrIdentityRequired):
		response.Reject(c, http.StatusUnauthorized, 20001, "identity_required", err.Error(), nil)
	case errors.Is(err, service.ErrNonWorkingDay):
		response.Reject(c, http.StatusForbidden, 20002, service.SkipNonWorkingDay, err.Error(), nil)
	case errors.Is(err, service.ErrPastDeadline):
		response.Reject(c, http.StatusForbidden, 20003, "past_deadline", err.Error(), nil)
	case errors.Is(err, service.ErrCheckDateInFuture):
		response.Reject(c, http.StatusBadRequest, 20004, "date_in_future", err.Error(), nil)
	case errors.Is(err, service.ErrDeadlineNotReached):
		response.Reject(c, http.StatusBadRequest, 20005, "deadline_not_reached", err.Error(), nil)
	default:
		response.InternalError(c)
	}
}
