package service

import (
	"strings"

	"supervitec-sgd/backend/internal/dto"
	"supervitec-sgd/backend/internal/model"
)

// ── 预检表单字段表 ──
//
// 字段名均为规范字段名，司机端按此渲染表单，提交时无需再经过别名映射。

var (
	optYesNo    = []string{"SI", "NO"}
	optNoYes    = []string{"NO", "SI"}
	optBueno    = []string{"BUENO", "MALO", "REGULAR"}
	optBuena    = []string{"BUENA", "MALA", "REGULAR"}
	optBuenas   = []string{"BUENAS", "MALAS", "REGULARES"}
	optBuenos   = []string{"BUENOS", "MALOS", "REGULARES"}
	optComplete = []string{"COMPLETO", "INCOMPLETO"}
)

func requiredField(label, typ, name string, opts ...string) dto.FormField {
	f := optionalField(label, typ, name, opts...)
	f.Required = true
	return f
}

// 选项切片复制一份，避免调用方改动共享的选项表
func optionalField(label, typ, name string, opts ...string) dto.FormField {
	f := dto.FormField{Label: label, Type: typ, Name: name}
	if len(opts) > 0 {
		f.Options = append([]string(nil), opts...)
	}
	return f
}

func withPlaceholder(f dto.FormField, p string) dto.FormField {
	f.Placeholder = p
	return f
}

// 两种车型共用的证件字段，位于姓名之后
func documentFields() []dto.FormField {
	return []dto.FormField{
		withPlaceholder(requiredField("Ingrese su correo", "text", fieldEmail), "ejemplo@correo.com"),
		requiredField("Porta su cédula", "select", "PORTA_SU_CEDULA", optYesNo...),
		requiredField("Porta tarjeta de propiedad", "select", "PORTA_TARJETA_DE_PROPIEDAD", optYesNo...),
		requiredField("Porta su licencia", "select", "PORTA_SU_LICENCIA", optYesNo...),
		requiredField("Placa", "text", "PLACA"),
		requiredField("Porta su SOAT", "select", "PORTA_SU_SOAT", optYesNo...),
		requiredField("Tecnomecánica vigente", "select", "TECNOMECANICA_VIGENTE", optYesNo...),
		requiredField("KM inicial", "number", "KM_INICIAL"),
	}
}

// 两种车型共用的维护与附件字段，位于表单末尾
func maintenanceFields(badObjectsHint string, extra ...dto.FormField) []dto.FormField {
	fields := []dto.FormField{
		withPlaceholder(optionalField("¿Posee algún objeto en mal estado? (especifique cuál)", "textarea", fieldBadObjects), badObjectsHint),
		optionalField("Reporte de mantenimientos correctivos y preventivos realizados en el mes", "select", fieldMaintenanceFlag, optYesNo...),
		optionalField("Fecha de mantenimiento", "date", "FECHA"),
		optionalField("Descripción del mantenimiento", "textarea", fieldMaintenanceDesc),
		withPlaceholder(optionalField("Adjuntar soportes (facturas)", "text", fieldSupport), "URL o referencia"),
	}
	fields = append(fields, extra...)
	return append(fields,
		optionalField("Día del mes", "number", "DIA_DEL_MES"),
		optionalField("Día de la semana", "text", "DIA_SEMANA"),
		optionalField("Mes", "text", "MES"),
		optionalField("¿Algún componente en mal estado o por cambiar?", "select", fieldComponent, optNoYes...),
		optionalField("¿Realizó arreglos?", "select", "REALIZO_ARREGLOS", optNoYes...),
		withPlaceholder(optionalField("Anexe recibo en caso de tener (archivo o enlace)", "text", fieldReceipt), "URL o referencia del recibo"),
		withPlaceholder(optionalField("¿Adjunta algún reporte? (archivo o enlace)", "text", fieldReport), "URL o referencia del reporte"),
	)
}

func motoFields() []dto.FormField {
	fields := []dto.FormField{
		requiredField("Cédula del conductor", "text", fieldDriverID),
		requiredField("Nombre del Conductor", "text", fieldDriverNameMoto),
	}
	fields = append(fields, documentFields()...)
	fields = append(fields,
		requiredField("Retrovisores (Espejos)", "select", "RETROVISORES", optBueno...),
		requiredField("Pito", "select", "PITO", optBueno...),
		requiredField("Direccionales", "select", "DIRECCIONALES", optBuenas...),
		requiredField("Luz delantera", "select", "LUZ_DELANTERA", optBuena...),
		requiredField("Luz trasera", "select", "LUZ_TRASERA", optBuena...),
		requiredField("Luz de freno", "select", "LUZ_FRENO", optBuena...),
		requiredField("Freno delantero", "select", "FRENO_DELANTERO", optBueno...),
		requiredField("Freno trasero", "select", "FRENO_TRASERO", optBueno...),
		requiredField("Llanta trasera", "select", "LLANTA_TRASERA", optBuena...),
		requiredField("Llanta delantera", "select", "LLANTA_DELANTERA", optBuena...),
		requiredField("Sistema de transmisión de fuerza", "select", "SISTEMA_TRANSMISION", optBueno...),
		requiredField("Derrame de fluidos", "select", fieldSpill, optYesNo...),
		requiredField("Velocímetro", "select", "VELOCIMETRO", optBueno...),
		requiredField("Casco", "select", "CASCO", "BUENO", "MALO"),
		requiredField("Chaleco", "select", "CHALECO", optYesNo...),
	)
	return append(fields, maintenanceFields("Ej: Espejo retrovisor roto, llanta delantera desgastada...")...)
}

func carroFields() []dto.FormField {
	fields := []dto.FormField{
		requiredField("Cédula del conductor", "text", fieldDriverID),
		requiredField("Conductor", "text", fieldDriverNameCarro),
	}
	fields = append(fields, documentFields()...)
	fields = append(fields,
		optionalField("KM final", "number", "KM_FINAL"),
		requiredField("Tablero de instrumentos: Velocímetro, gasolina, direccionales, temperatura, luces", "select", "TABLERO_INSTRUMENTOS", optBueno...),
		requiredField("Estado de las llantas", "select", "ESTADO_LLANTAS", optBuenas...),
		requiredField("Sistema de luces", "select", "SISTEMA_LUCES", optBueno...),
		requiredField("Kit de carretera: Gato, cruceta, herramientas, triángulos, tacos, llanta de repuesto, extintor, linterna, botiquín, conos", "select", "KIT_CARRETERA", optComplete...),
		requiredField("Presencia de fugas de fluidos, defectos o daños", "select", fieldLeak, optYesNo...),
		requiredField("Pito", "select", "PITO", optBueno...),
		requiredField("Llantas de repuesto", "select", "LLANTAS_REPUESTO", "BUENA", "MALA", "REGULAR", "NO TIENE"),
		requiredField("Limpiaparabrisas", "select", "LIMPIA_BRISAS", optBueno...),
		requiredField("Frenos: Hacer prueba de frenado", "select", "FRENOS", optBuenos...),
		requiredField("Espejos: Limpios y libres de daños, bien ajustados y máxima visibilidad", "select", "ESPEJOS", optBuenos...),
		requiredField("Estado y funcionamiento de los cinturones de seguridad", "select", "CINTURONES", optBuenos...),
	)
	return append(fields, maintenanceFields(
		"Ej: Espejo lateral derecho roto, freno delantero con ruido...",
		optionalField("¿Se encuentra de pico y placa?", "select", "PICO_Y_PLACA", optYesNo...),
	)...)
}

// FormDefinition 返回车辆类型对应的预检表单字段
// 每次调用都重新构建，调用方可自由修改
func FormDefinition(vehicleType string) (*dto.PreopFormResponse, error) {
	switch strings.ToLower(strings.TrimSpace(vehicleType)) {
	case model.VehicleMoto:
		return &dto.PreopFormResponse{VehicleType: model.VehicleMoto, Fields: motoFields()}, nil
	case model.VehicleCarro:
		return &dto.PreopFormResponse{VehicleType: model.VehicleCarro, Fields: carroFields()}, nil
	default:
		return nil, ErrInvalidVehicleType
	}
}
