package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"boxatlas/backend/internal/service"
	"boxatlas/backend/pkg/response"
)

// 业务错误码
//
//	10xxx 通用 | 12xxx 地点 | 13xxx 箱子 | 14xxx 二维码
const (
	codeInvalidParam = 10001
	codeForbidden    = 10003

	codeLocationNotFound = 12001
	codeParentNotFound   = 12002
	codeMaxDepth         = 12003
	codeSiblingConflict  = 12004
	codeLocationConflict = 12005

	codeBoxNotFound       = 13001
	codeWorkspaceMismatch = 13002

	codeQrCodeNotFound        = 14001
	codeQrCodeAlreadyAssigned = 14002
)

// handleServiceError 统一处理 Service 层错误
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotWorkspaceMember):
		response.Forbidden(c, codeForbidden, "无权访问该工作区")

	case errors.Is(err, service.ErrInvalidInput):
		response.ErrorWithDetails(c, http.StatusBadRequest, codeInvalidParam, "参数校验失败", err.Error())

	// ── 地点 ──
	case errors.Is(err, service.ErrLocationNotFound):
		response.NotFound(c, codeLocationNotFound, "地点不存在")
	case errors.Is(err, service.ErrParentNotFound):
		response.NotFound(c, codeParentNotFound, "父地点不存在")
	case errors.Is(err, service.ErrMaxDepthExceeded):
		response.UnprocessableEntity(c, codeMaxDepth, "地点层级超过上限")
	case errors.Is(err, service.ErrSiblingConflict):
		response.Conflict(c, codeSiblingConflict, "同一父地点下已存在同名地点")
	case errors.Is(err, service.ErrLocationConflict):
		response.Conflict(c, codeLocationConflict, "目标路径已被其他地点占用")

	// ── 箱子 ──
	case errors.Is(err, service.ErrBoxNotFound):
		response.NotFound(c, codeBoxNotFound, "箱子不存在")
	case errors.Is(err, service.ErrWorkspaceMismatch):
		response.UnprocessableEntity(c, codeWorkspaceMismatch, "关联资源不属于当前工作区")

	// ── 二维码 ──
	case errors.Is(err, service.ErrQrCodeNotFound):
		response.NotFound(c, codeQrCodeNotFound, "二维码不存在")
	case errors.Is(err, service.ErrQrCodeAlreadyAssigned):
		response.Conflict(c, codeQrCodeAlreadyAssigned, "二维码已绑定其他箱子")

	default:
		response.InternalError(c)
	}
}
