package model

import "time"

// WorkspaceMember 工作区成员表 — 对应 workspace_members
// 成员管理属于外部系统，本服务只读取（CLI 提供 member add 便于初始化）
type WorkspaceMember struct {
	WorkspaceID string    `gorm:"type:uuid;primaryKey"                     json:"workspace_id"`
	UserID      string    `gorm:"type:uuid;primaryKey"                     json:"user_id"`
	Role        string    `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	CreatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"       json:"created_at"`
}

// TableName 指定表名
func (WorkspaceMember) TableName() string { return "workspace_members" }
