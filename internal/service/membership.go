package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"boxatlas/backend/internal/repository"
)

// MembershipChecker 工作区成员校验（外部协作方）
type MembershipChecker interface {
	IsMember(ctx context.Context, workspaceID, userID string) (bool, error)
}

// MembershipCache 成员关系缓存，实现见 pkg/redis
type MembershipCache interface {
	GetMembership(ctx context.Context, workspaceID, userID string) (isMember, found bool, err error)
	SetMembership(ctx context.Context, workspaceID, userID string, isMember bool, ttl time.Duration) error
}

type membershipChecker struct {
	repo   *repository.Repository
	cache  MembershipCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewMembershipChecker 创建基于 workspace_members 表的校验器；cache 为 nil 时直接查库
func NewMembershipChecker(repo *repository.Repository, cache MembershipCache, ttl time.Duration, logger *zap.Logger) MembershipChecker {
	return &membershipChecker{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

func (c *membershipChecker) IsMember(ctx context.Context, workspaceID, userID string) (bool, error) {
	if workspaceID == "" || userID == "" {
		return false, nil
	}

	if c.cache != nil {
		isMember, found, err := c.cache.GetMembership(ctx, workspaceID, userID)
		switch {
		case err != nil:
			// 缓存故障降级为查库
			recordMembershipCache("error")
			c.logger.Warn("读取成员缓存失败", zap.String("workspace_id", workspaceID), zap.Error(err))
		case found:
			recordMembershipCache("hit")
			return isMember, nil
		default:
			recordMembershipCache("miss")
		}
	}

	isMember, err := c.repo.Member.IsMember(ctx, workspaceID, userID)
	if err != nil {
		return false, err
	}

	if c.cache != nil && c.ttl > 0 {
		if err := c.cache.SetMembership(ctx, workspaceID, userID, isMember, c.ttl); err != nil {
			c.logger.Warn("写入成员缓存失败", zap.String("workspace_id", workspaceID), zap.Error(err))
		}
	}
	return isMember, nil
}

// requireMember 所有核心操作的第一步
func requireMember(ctx context.Context, checker MembershipChecker, logger *zap.Logger, workspaceID, callerID string) error {
	ok, err := checker.IsMember(ctx, workspaceID, callerID)
	if err != nil {
		logger.Error("校验工作区成员失败",
			zap.String("workspace_id", workspaceID),
			zap.String("caller_id", callerID),
			zap.Error(err),
		)
		return ErrOperationFailed
	}
	if !ok {
		return ErrNotWorkspaceMember
	}
	return nil
}
