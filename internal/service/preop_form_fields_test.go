package service

import (
	"errors"
	"testing"

	"supervitec-sgd/backend/internal/model"
)

func TestFormDefinition(t *testing.T) {
	tests := []struct {
		vehicleType string
		nameField   string
		only        string // 该车型独有字段
	}{
		{model.VehicleMoto, fieldDriverNameMoto, "CASCO"},
		{"CARRO", fieldDriverNameCarro, "KIT_CARRETERA"},
	}
	for _, tt := range tests {
		form, err := FormDefinition(tt.vehicleType)
		if err != nil {
			t.Fatalf("%s: 查询失败: %v", tt.vehicleType, err)
		}

		seen := make(map[string]bool, len(form.Fields))
		for _, f := range form.Fields {
			if seen[f.Name] {
				t.Errorf("%s: 字段 %s 重复", form.VehicleType, f.Name)
			}
			seen[f.Name] = true
			// 字段名已是规范名，提交时不会再被别名映射
			if _, isAlias := formFieldAliases[f.Name]; isAlias {
				t.Errorf("%s: 字段 %s 是历史别名", form.VehicleType, f.Name)
			}
			if f.Type == "select" && len(f.Options) == 0 {
				t.Errorf("%s: 下拉字段 %s 缺少选项", form.VehicleType, f.Name)
			}
		}

		for _, name := range []string{fieldDriverID, tt.nameField, fieldEmail, tt.only} {
			if !seen[name] {
				t.Errorf("%s: 缺少字段 %s", form.VehicleType, name)
			}
		}
		if form.Fields[0].Name != fieldDriverID || !form.Fields[0].Required {
			t.Errorf("%s: 首个字段期望必填的 %s, 实际=%+v", form.VehicleType, fieldDriverID, form.Fields[0])
		}
	}
}

func TestFormDefinition_FreshCopy(t *testing.T) {
	a, _ := FormDefinition(model.VehicleMoto)
	a.Fields[0].Label = "changed"
	a.Fields[3].Options[0] = "changed" // PORTA_SU_CEDULA

	b, _ := FormDefinition(model.VehicleCarro)
	if b.Fields[3].Name != "PORTA_SU_CEDULA" || b.Fields[3].Options[0] != "SI" {
		t.Errorf("修改返回值不应影响共享选项, 实际=%+v", b.Fields[3])
	}
	c, _ := FormDefinition(model.VehicleMoto)
	if c.Fields[0].Label == "changed" {
		t.Error("修改返回值不应影响字段表")
	}
}

func TestFormDefinition_UnknownVehicle(t *testing.T) {
	if _, err := FormDefinition("bus"); !errors.Is(err, ErrInvalidVehicleType) {
		t.Errorf("期望 ErrInvalidVehicleType, 实际=%v", err)
	}
}
