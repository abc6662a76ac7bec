package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"boxatlas/backend/pkg/response"
)

// BodyLimit 全局请求体大小限制中间件
// maxBytes: 允许的最大请求体字节数（server.body_limit，默认 1MB）。
// 声明了 Content-Length 的超限请求直接返回 413；
// 分块传输的请求在读取超限时由 Handler 按参数错误返回 400
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()
	}
}
