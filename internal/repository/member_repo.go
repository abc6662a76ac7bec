package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"boxatlas/backend/internal/model"
)

// MemberRepository 工作区成员数据访问接口
type MemberRepository interface {
	IsMember(ctx context.Context, workspaceID, userID string) (bool, error)
	Add(ctx context.Context, member *model.WorkspaceMember) error
}

type memberRepo struct {
	db *gorm.DB
}

// NewMemberRepo 创建 MemberRepository 实例
func NewMemberRepo(db *gorm.DB) MemberRepository {
	return &memberRepo{db: db}
}

func (r *memberRepo) IsMember(ctx context.Context, workspaceID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.WorkspaceMember{}).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		Count(&count).Error
	return count > 0, err
}

// Add 重复添加时更新角色
func (r *memberRepo) Add(ctx context.Context, member *model.WorkspaceMember) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "workspace_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role"}),
		}).
		Create(member).Error
}
