package dto

// ── 司机目录 DTO ──

// CreateDriverRequest 新建司机
type CreateDriverRequest struct {
	ID          string `json:"id"          binding:"required,max=64"`
	Name        string `json:"name"        binding:"required,max=150"`
	VehicleType string `json:"vehicleType" binding:"required,oneof=moto carro"`
	Email       string `json:"email"       binding:"omitempty,email"`
	Active      *bool  `json:"active"`
}

// UpdateDriverRequest 更新司机（字段均可选）
type UpdateDriverRequest struct {
	Name        *string `json:"name"        binding:"omitempty,max=150"`
	VehicleType *string `json:"vehicleType" binding:"omitempty,oneof=moto carro"`
	Email       *string `json:"email"       binding:"omitempty,email"`
	Active      *bool   `json:"active"`
}

// DriverListRequest 司机列表查询
type DriverListRequest struct {
	PaginationRequest
	VehicleType string `form:"vehicleType"`
	Active      *bool  `form:"active"`
	Keyword     string `form:"keyword"`
}

// DriverResponse 司机信息
type DriverResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	VehicleType string `json:"vehicleType"`
	Email       string `json:"email,omitempty"`
	Active      bool   `json:"active"`
}

// PublicDriverResponse 司机端可见的司机信息
type PublicDriverResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	VehicleType string `json:"vehicleType"`
}

// PublicDriverListRequest 司机端名单查询
type PublicDriverListRequest struct {
	VehicleType string `form:"vehicleType"`
}

// ImportDriverResponse 批量导入结果
type ImportDriverResponse struct {
	Total    int              `json:"total"`
	Upserted int              `json:"upserted"`
	Failed   int              `json:"failed"`
	Errors   []ImportRowError `json:"errors,omitempty"`
}

// ImportRowError 导入失败行
type ImportRowError struct {
	Row    int    `json:"row"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
}
