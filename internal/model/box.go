package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Box 收纳箱表 — 对应 boxes
// ShortID 创建时生成，之后不可变；QrCodeID 与 qr_codes.box_id 在同一事务内维护
type Box struct {
	BoxID       string                      `gorm:"type:uuid;primaryKey"                                                              json:"box_id"`
	ShortID     string                      `gorm:"type:varchar(32);not null;uniqueIndex:idx_boxes_short_id"                          json:"short_id"`
	WorkspaceID string                      `gorm:"type:uuid;not null;index:idx_boxes_workspace_location"                             json:"workspace_id"`
	Name        string                      `gorm:"type:varchar(100);not null"                                                        json:"name"`
	Description string                      `gorm:"type:varchar(1000);not null;default:''"                                            json:"description"`
	Tags        datatypes.JSONSlice[string] `gorm:"type:jsonb;not null;default:'[]'"                                                  json:"tags"`
	LocationID  *string                     `gorm:"type:uuid;index:idx_boxes_workspace_location"                                      json:"location_id,omitempty"`
	QrCodeID    *string                     `gorm:"type:uuid;uniqueIndex:idx_boxes_qr_code_id,where:qr_code_id IS NOT NULL"           json:"qr_code_id,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Box) TableName() string { return "boxes" }

// BeforeCreate 生成主键
func (b *Box) BeforeCreate(_ *gorm.DB) error {
	newID(&b.BoxID)
	if b.Tags == nil {
		b.Tags = datatypes.JSONSlice[string]{}
	}
	return nil
}
