package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"supervitec-sgd/backend/pkg/response"
)

// BodyLimit 全局请求体大小限制中间件
// 声明长度超限的请求直接拒绝；未声明长度的请求由 MaxBytesReader 在读取时截断，
// 绑定失败后 Handler 返回 400
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 || c.Request.Body == nil {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, response.CodeBodyTooLarge, "请求体过大")
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
