package handler

import (
	"github.com/gin-gonic/gin"

	"boxatlas/backend/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetWorkspaceID 读取路由参数 :ws
func MustGetWorkspaceID(c *gin.Context) (string, bool) {
	ws := c.Param("ws")
	if ws == "" {
		response.BadRequest(c, 10001, "工作区ID不能为空")
		return "", false
	}
	return ws, true
}

// mustGetScope 一次取出工作区与调用者，绝大多数接口都需要这两项
func mustGetScope(c *gin.Context) (workspaceID, callerID string, ok bool) {
	if workspaceID, ok = MustGetWorkspaceID(c); !ok {
		return "", "", false
	}
	if callerID, ok = MustGetUserID(c); !ok {
		return "", "", false
	}
	return workspaceID, callerID, true
}
