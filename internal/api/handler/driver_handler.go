package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"supervitec-sgd/backend/internal/dto"
	"supervitec-sgd/backend/internal/service"
	"supervitec-sgd/backend/pkg/response"
)

// DriverHandler 司机目录 HTTP 处理器
type DriverHandler struct {
	driverSvc service.DriverService
}

// NewDriverHandler 创建 DriverHandler
func NewDriverHandler(driverSvc service.DriverService) *DriverHandler {
	return &DriverHandler{driverSvc: driverSvc}
}

// List 司机列表
// GET /api/v1/drivers
func (h *DriverHandler) List(c *gin.Context) {
	var req dto.DriverListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ValidationFailed(c, err.Error())
		return
	}

	list, total, err := h.driverSvc.List(c.Request.Context(), &req)
	if err != nil {
		handleDriverError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Create 新建司机
// POST /api/v1/drivers
func (h *DriverHandler) Create(c *gin.Context) {
	var req dto.CreateDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, err.Error())
		return
	}
	callerID, ok := MustGetAdmin(c)
	if !ok {
		return
	}

	driver, err := h.driverSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		handleDriverError(c, err)
		return
	}

	response.Created(c, driver)
}

// Update 更新司机
// PUT /api/v1/drivers/:id
func (h *DriverHandler) Update(c *gin.Context) {
	var req dto.UpdateDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, err.Error())
		return
	}
	callerID, ok := MustGetAdmin(c)
	if !ok {
		return
	}

	driver, err := h.driverSvc.Update(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		handleDriverError(c, err)
		return
	}

	response.OK(c, driver)
}

// PublicList 司机端身份选择名单，仅在岗司机
// GET /api/v1/preop/drivers?vehicleType=
func (h *DriverHandler) PublicList(c *gin.Context) {
	var req dto.PublicDriverListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ValidationFailed(c, err.Error())
		return
	}

	list, err := h.driverSvc.PublicList(c.Request.Context(), req.VehicleType)
	if err != nil {
		handleDriverError(c, err)
		return
	}

	response.OK(c, gin.H{"items": list})
}

// Import 从 Excel 批量导入司机（列：ID、NOMBRE、TIPO、ACTIVO、EMAIL）
// POST /api/v1/drivers/import
func (h *DriverHandler) Import(c *gin.Context) {
	callerID, ok := MustGetAdmin(c)
	if !ok {
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		response.ValidationFailed(c, "请上传 Excel 文件（字段名 file）")
		return
	}
	defer file.Close()

	rows, err := h.driverSvc.ParseImportFile(file)
	if err != nil {
		handleDriverError(c, err)
		return
	}

	result, err := h.driverSvc.Import(c.Request.Context(), rows, callerID)
	if err != nil {
		handleDriverError(c, err)
		return
	}

	response.OK(c, result)
}

func handleDriverError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrDriverNotFound):
		response.NotFound(c, 24101, "司机不存在")
	case errors.Is(err, service.ErrDriverExists):
		response.Reject(c, http.StatusConflict, 24102, "driver_exists", err.Error(), nil)
	case errors.Is(err, service.ErrInvalidVehicleType):
		response.ValidationFailed(c, err.Error())
	case errors.Is(err, service.ErrImportNoData),
		errors.Is(err, service.ErrImportTooManyRows),
		errors.Is(err, service.ErrImportBadHeader),
		errors.Is(err, service.ErrInvalidImportActive):
		response.BadRequest(c, 24103, err.Error())
	default:
		response.InternalError(c)
	}
}
