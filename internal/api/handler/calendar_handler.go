package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"supervitec-sgd/backend/internal/dto"
	"supervitec-sgd/backend/internal/service"
	"supervitec-sgd/backend/pkg/response"
)

// CalendarHandler 工作日历 HTTP 处理器
type CalendarHandler struct {
	calendarSvc service.CalendarService
}

// NewCalendarHandler 创建 CalendarHandler
func NewCalendarHandler(calendarSvc service.CalendarService) *CalendarHandler {
	return &CalendarHandler{calendarSvc: calendarSvc}
}

// Get 获取某司机某月的工作日历
// GET /api/v1/calendars/:userId/:year/:month
func (h *CalendarHandler) Get(c *gin.Context) {
	year, month, ok := parseYearMonth(c)
	if !ok {
		return
	}

	cal, err := h.calendarSvc.Get(c.Request.Context(), c.Param("userId"), year, month)
	if err != nil {
		handleCalendarError(c, err)
		return
	}

	response.OK(c, cal)
}

// Update 覆盖某司机某月的非工作日
// PUT /api/v1/calendars/:userId/:year/:month
func (h *CalendarHandler) Update(c *gin.Context) {
	year, month, ok := parseYearMonth(c)
	if !ok {
		return
	}
	var req dto.UpdateWorkCalendarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, err.Error())
		return
	}
	callerID, ok := MustGetAdmin(c)
	if !ok {
		return
	}

	cal, err := h.calendarSvc.Update(c.Request.Context(), c.Param("userId"), year, month, &req, callerID)
	if err != nil {
		handleCalendarError(c, err)
		return
	}

	response.OK(c, cal)
}

// Delete 清除某司机某月的日历
// DELETE /api/v1/calendars/:userId/:year/:month
func (h *CalendarHandler) Delete(c *gin.Context) {
	year, month, ok := parseYearMonth(c)
	if !ok {
		return
	}
	callerID, ok := MustGetAdmin(c)
	if !ok {
		return
	}

	result, err := h.calendarSvc.Delete(c.Request.Context(), c.Param("userId"), year, month, callerID)
	if err != nil {
		handleCalendarError(c, err)
		return
	}

	response.OK(c, result)
}

func handleCalendarError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCalendarMonth),
		errors.Is(err, service.ErrCalendarDateOutOfMonth),
		errors.Is(err, service.ErrInvalidDate):
		response.ValidationFailed(c, err.Error())
	default:
		response.InternalError(c)
	}
}
