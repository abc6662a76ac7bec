package service

import (
	"errors"

	"go.uber.org/zap"
)

// ── 权限 ──

var (
	// ErrNotWorkspaceMember 调用者不是工作区成员；先于任何资源查询返回，不泄露资源是否存在
	ErrNotWorkspaceMember = errors.New("无权访问该工作区")
)

// ── 地点模块业务错误 ──

var (
	ErrParentNotFound   = errors.New("父地点不存在")
	ErrMaxDepthExceeded = errors.New("地点层级超过上限")
	ErrSiblingConflict  = errors.New("同一父地点下已存在同名地点")
	ErrLocationNotFound = errors.New("地点不存在")
	ErrLocationConflict = errors.New("目标路径已被其他地点占用")
)

// ── 箱子 / 二维码模块业务错误 ──

var (
	ErrBoxNotFound           = errors.New("箱子不存在")
	ErrQrCodeNotFound        = errors.New("二维码不存在")
	ErrQrCodeAlreadyAssigned = errors.New("二维码已绑定其他箱子")
	ErrWorkspaceMismatch     = errors.New("关联资源不属于当前工作区")
)

// ── 通用 ──

var (
	// ErrInvalidInput 请求参数校验失败，具体原因以 %w 包装
	ErrInvalidInput = errors.New("请求参数无效")
	// ErrOperationFailed 存储层故障的统一对外错误，原始错误只写日志
	ErrOperationFailed = errors.New("操作失败，请稍后重试")
)

var domainErrors = []error{
	ErrNotWorkspaceMember,
	ErrParentNotFound, ErrMaxDepthExceeded, ErrSiblingConflict, ErrLocationNotFound, ErrLocationConflict,
	ErrBoxNotFound, ErrQrCodeNotFound, ErrQrCodeAlreadyAssigned, ErrWorkspaceMismatch,
	ErrInvalidInput, ErrOperationFailed,
}

// storageFailure 业务错误原样返回；其余错误记录日志后统一为 ErrOperationFailed
func storageFailure(logger *zap.Logger, msg string, err error, fields ...zap.Field) error {
	for _, de := range domainErrors {
		if errors.Is(err, de) {
			return err
		}
	}
	logger.Error(msg, append(fields, zap.Error(err))...)
	return ErrOperationFailed
}
