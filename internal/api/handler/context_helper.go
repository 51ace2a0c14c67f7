package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"supervitec-sgd/backend/internal/api/middleware"
	"supervitec-sgd/backend/pkg/jwt"
	"supervitec-sgd/backend/pkg/response"
)

// MustGetAdmin 从 Gin 上下文中安全提取管理员邮箱，作为审计字段 createdBy/updatedBy。
// 如果 JWT 中间件未正确注入，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetAdmin(c *gin.Context) (string, bool) {
	s := c.GetString(middleware.ContextAdminEmail)
	if s == "" {
		response.Unauthorized(c, response.CodeUnauthorized, "未认证")
		return "", false
	}
	return s, true
}

// MustGetClaims 从 Gin 上下文中安全提取 JWT Claims。
func MustGetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get(middleware.ContextClaims)
	if !exists {
		response.Unauthorized(c, response.CodeUnauthorized, "未认证")
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	if !ok || claims == nil {
		response.Unauthorized(c, response.CodeUnauthorized, "未认证")
		return nil, false
	}
	return claims, true
}

// parseYearMonth 解析路径中的 :year/:month
func parseYearMonth(c *gin.Context) (int, int, bool) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		response.ValidationFailed(c, "year 必须为整数")
		return 0, 0, false
	}
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil {
		response.ValidationFailed(c, "month 必须为整数")
		return 0, 0, false
	}
	return year, month, true
}
