package model

// 车辆类型
const (
	VehicleMoto  = "moto"
	VehicleCarro = "carro"
)

// Driver 司机表 对应 drivers
// DriverID 为组织内的证件号，与预检表单中的 ID_CONDUCTOR 一致
type Driver struct {
	DriverID    string `gorm:"size:64;primaryKey"                json:"id"`
	Name        string `gorm:"size:150;not null"                 json:"name"`
	VehicleType string `gorm:"size:20;not null;default:'moto'"   json:"vehicle_type"`
	Email       string `gorm:"size:255"                          json:"email,omitempty"`
	Active      bool   `gorm:"not null;index"                    json:"active"`
	BaseModel
}

// TableName 指定表名
func (Driver) TableName() string { return "drivers" }
