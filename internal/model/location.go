package model

import "gorm.io/gorm"

// Location 存放地点表 — 对应 locations
// Path 为物化层级路径（root.garage.shelf_a），父地点不落库，由路径推导
type Location struct {
	LocationID  string `gorm:"type:uuid;primaryKey"                                                                   json:"location_id"`
	WorkspaceID string `gorm:"type:uuid;not null;uniqueIndex:idx_locations_workspace_path,where:is_deleted = false" json:"workspace_id"`
	Name        string `gorm:"type:varchar(100);not null"                                                             json:"name"`
	Description string `gorm:"type:text;not null;default:''"                                                          json:"description"`
	Path        string `gorm:"type:text;not null;uniqueIndex:idx_locations_workspace_path"                            json:"path"`
	Depth       int    `gorm:"not null"                                                                               json:"depth"`
	IsDeleted   bool   `gorm:"not null;default:false"                                                                 json:"is_deleted"`
	BaseModel
}

// TableName 指定表名
func (Location) TableName() string { return "locations" }

// BeforeCreate 生成主键
func (l *Location) BeforeCreate(_ *gorm.DB) error {
	newID(&l.LocationID)
	return nil
}
