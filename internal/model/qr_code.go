package model

import (
	"time"

	"gorm.io/gorm"
)

// QrCodeStatus 二维码状态
type QrCodeStatus string

const (
	// QrCodeGenerated 已生成，未被任何箱子占用
	QrCodeGenerated QrCodeStatus = "generated"
	// QrCodeAssigned 已绑定箱子（当且仅当 box_id 非空）
	QrCodeAssigned QrCodeStatus = "assigned"
	// QrCodePrinted 标签已打印，仍未被占用
	QrCodePrinted QrCodeStatus = "printed"
)

// Valid 判断状态值是否合法
func (s QrCodeStatus) Valid() bool {
	switch s {
	case QrCodeGenerated, QrCodeAssigned, QrCodePrinted:
		return true
	}
	return false
}

// QrCode 二维码表 — 对应 qr_codes
// 二维码只回收不删除：箱子删除后恢复为 generated
type QrCode struct {
	QrCodeID    string       `gorm:"type:uuid;primaryKey"                                                       json:"qr_code_id"`
	Code        string       `gorm:"type:varchar(32);not null;uniqueIndex:idx_qr_codes_code"                    json:"code"`
	WorkspaceID string       `gorm:"type:uuid;not null;index:idx_qr_codes_workspace_status"                     json:"workspace_id"`
	Status      QrCodeStatus `gorm:"type:varchar(16);not null;default:'generated';index:idx_qr_codes_workspace_status" json:"status"`
	BoxID       *string      `gorm:"type:uuid;index:idx_qr_codes_box_id"                                       json:"box_id,omitempty"`
	PrintedAt   *time.Time   `json:"printed_at,omitempty"`
	BaseModel
}

// TableName 指定表名
func (QrCode) TableName() string { return "qr_codes" }

// BeforeCreate 生成主键
func (q *QrCode) BeforeCreate(_ *gorm.DB) error {
	newID(&q.QrCodeID)
	return nil
}
