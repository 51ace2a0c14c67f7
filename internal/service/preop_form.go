package service

import (
	"fmt"
	"sort"
	"strings"
)

// ── 预检表单规范化 ──
//
// 表单字段名在不同版本的表单中有多个历史别名。提交入库时统一规范化一次，
// 之后的不合格项检测与月度汇总只读取规范字段名。

// formFieldAliases 历史别名 → 规范字段名
var formFieldAliases = map[string]string{
	"RETROVISORES_ESPEJOS":             "RETROVISORES",
	"LUZ_DE_FRENO":                     "LUZ_FRENO",
	"SISTEMA_DE_TRANSMISION_DE_FUERZA": "SISTEMA_TRANSMISION",
	"DERRAME_DE_FLUIDOS":               "DERRAME_FLUIDOS",
	"POSEE_ALGUN_OBJETO_EN_MAL_ESTADO_ESPECIFIQUE_CUAL":                      "OBJETOS_MAL_ESTADO_DESCRIPCION",
	"REPORTE_DE_MANTENIMIENTOS_CORRECTIVOS_Y_PREVENTIVOS_REALIZADOS_EN_EL_MES": "REPORTE_MANTENIMIENTOS",
	"DESCRIPCION_DEL_MANTENIMIENTO":                  "DESCRIPCION",
	"ADJUNTAR_SOPORTES_FACTURAS":                     "ADJUNTAR_SOPORTES",
	"ANEXE_RECIBO_EN_CASO_DE_TENER_ARCHIVO_O_ENLACE": "RECIBO_REFERENCIA",
	"ADJUNTA_ALGUN_REPORTE_ARCHIVO_O_ENLACE":         "REPORTE_ADJUNTO",
	"INGRESE_SU_CORREO":                              "CORREO",
	"ALGUN_COMPONENTE_EN_MAL_ESTADO_O_POR_CAMBIAR":   "COMPONENTE_MAL_ESTADO",
	"DIA_DE_LA_SEMANA":                               "DIA_SEMANA",
	"NOMBRE_DEL_CONDUCTOR":                           "NOMBRE_CONDUCTOR",
}

// 规范字段名
const (
	fieldDriverID        = "ID_CONDUCTOR"
	fieldDriverNameMoto  = "NOMBRE_CONDUCTOR"
	fieldDriverNameCarro = "CONDUCTOR"
	fieldBadObjects      = "OBJETOS_MAL_ESTADO_DESCRIPCION"
	fieldComponent       = "COMPONENTE_MAL_ESTADO"
	fieldSpill           = "DERRAME_FLUIDOS"
	fieldLeak            = "FUGAS_FLUIDOS"
	fieldMaintenanceFlag = "REPORTE_MANTENIMIENTOS"
	fieldMaintenanceDesc = "DESCRIPCION"
	fieldSupport         = "ADJUNTAR_SOPORTES"
	fieldReport          = "REPORTE_ADJUNTO"
	fieldReceipt         = "RECIBO_REFERENCIA"
	fieldEmail           = "CORREO"
	fieldRegisteredAt    = "FECHA_REGISTRO"
	fieldSource          = "USUARIO_GOOGLE"
)

// normalizeFieldKey 字段名去重音、转大写、空白替换为下划线
func normalizeFieldKey(k string) string {
	return strings.ReplaceAll(foldText(k), " ", "_")
}

// NormalizeFormPayload 将表单字段统一为规范字段名
// 别名与规范名同时出现时，规范名的非空值优先
func NormalizeFormPayload(raw map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(raw))
	aliasValues := make(map[string]interface{})

	for k, v := range raw {
		key := normalizeFieldKey(k)
		if key == "" {
			continue
		}
		if _, isAlias := formFieldAliases[key]; isAlias {
			aliasValues[key] = v
			continue
		}
		out[key] = v
	}

	aliasKeys := make([]string, 0, len(aliasValues))
	for k := range aliasValues {
		aliasKeys = append(aliasKeys, k)
	}
	sort.Strings(aliasKeys)
	for _, k := range aliasKeys {
		canonical := formFieldAliases[k]
		if formString(out, canonical) == "" {
			out[canonical] = aliasValues[k]
		}
	}
	return out
}

// formString 读取字段的字符串值（去首尾空白）
func formString(form map[string]interface{}, key string) string {
	v, ok := form[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// submissionIdentity 从表单提取司机身份；moto 表单用 NOMBRE_CONDUCTOR，carro 表单用 CONDUCTOR
func submissionIdentity(form map[string]interface{}, vehicleType string) (string, string) {
	id := formString(form, fieldDriverID)
	primary, fallback := fieldDriverNameMoto, fieldDriverNameCarro
	if vehicleType == "carro" {
		primary, fallback = fallback, primary
	}
	name := formString(form, primary)
	if name == "" {
		name = formString(form, fallback)
	}
	return id, name
}

// ── 不合格项检测 ──

type badItemRule struct {
	field string
	bad   []string
}

// badItemRules 检查项 → 视为不合格的取值（按表单顺序）
var badItemRules = []badItemRule{
	{"RETROVISORES", []string{"MALO", "REGULAR"}},
	{"PITO", []string{"MALO", "REGULAR"}},
	{"DIRECCIONALES", []string{"MALAS", "REGULARES"}},
	{"LUZ_DELANTERA", []string{"MALA", "REGULAR"}},
	{"LUZ_TRASERA", []string{"MALA", "REGULAR"}},
	{"LUZ_FRENO", []string{"MALA", "REGULAR"}},
	{"FRENO_DELANTERO", []string{"MALO", "REGULAR"}},
	{"FRENO_TRASERO", []string{"MALO", "REGULAR"}},
	{"LLANTA_TRASERA", []string{"MALA", "REGULAR"}},
	{"LLANTA_DELANTERA", []string{"MALA", "REGULAR"}},
	{"SISTEMA_TRANSMISION", []string{"MALO", "REGULAR"}},
	{"VELOCIMETRO", []string{"MALO"}},
	{"CASCO", []string{"MALO"}},
	{"TABLERO_INSTRUMENTOS", []string{"MALO", "REGULAR"}},
	{"ESTADO_LLANTAS", []string{"MALAS", "REGULARES"}},
	{"SISTEMA_LUCES", []string{"MALO", "REGULAR"}},
	{"KIT_CARRETERA", []string{"INCOMPLETO"}},
	{"LLANTAS_REPUESTO", []string{"MALA", "REGULAR", "NO TIENE"}},
	{"LIMPIA_BRISAS", []string{"MALO", "REGULAR"}},
	{"FRENOS", []string{"MALOS", "REGULARES"}},
	{"ESPEJOS", []string{"MALOS", "REGULARES"}},
	{"CINTURONES", []string{"MALOS", "REGULARES"}},
}

func isYes(v string) bool {
	return strings.EqualFold(v, "SI") || strings.EqualFold(v, "SÍ")
}

// detectBadItems 返回某日表单中的不合格项描述
func detectBadItems(form map[string]interface{}) []string {
	var items []string

	if desc := formString(form, fieldBadObjects); desc != "" {
		upper := strings.ToUpper(desc)
		if upper != "NO" && upper != "NINGUNO" {
			items = append(items, desc)
		}
	}

	for _, rule := range badItemRules {
		value := formString(form, rule.field)
		if value == "" {
			continue
		}
		upper := strings.ToUpper(value)
		for _, bad := range rule.bad {
			if upper == bad {
				items = append(items, rule.field+": "+value)
				break
			}
		}
	}

	if isYes(formString(form, fieldComponent)) {
		items = append(items, "Componente por cambiar")
	}
	if isYes(formString(form, fieldSpill)) {
		items = append(items, "Derrame de fluidos")
	}
	if isYes(formString(form, fieldLeak)) {
		items = append(items, "Fugas de fluidos")
	}
	return items
}

// ── 汇总文本字段 ──

func isNotApplicable(v string) bool {
	upper := strings.ToUpper(strings.TrimSpace(v))
	return upper == "" || upper == "N/A" || upper == "NO APLICA"
}

func maintenanceNote(form map[string]interface{}) string {
	if !isYes(formString(form, fieldMaintenanceFlag)) {
		return ""
	}
	desc := formString(form, fieldMaintenanceDesc)
	if isNotApplicable(desc) {
		return ""
	}
	return desc
}

func supportNote(form map[string]interface{}) string {
	v := formString(form, fieldSupport)
	if v == "" {
		v = formString(form, fieldReport)
	}
	if isNotApplicable(v) {
		return ""
	}
	return v
}

func receiptNote(form map[string]interface{}) string {
	v := formString(form, fieldReceipt)
	if isNotApplicable(v) {
		return ""
	}
	return v
}

func emailNote(form map[string]interface{}) string {
	return formString(form, fieldEmail)
}
