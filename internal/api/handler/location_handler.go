package handler

import (
	"github.com/gin-gonic/gin"

	"boxatlas/backend/internal/dto"
	"boxatlas/backend/internal/service"
	"boxatlas/backend/pkg/response"
)

// LocationHandler 地点模块 HTTP 处理器
type LocationHandler struct {
	locationSvc service.LocationService
}

// NewLocationHandler 创建 LocationHandler
func NewLocationHandler(locationSvc service.LocationService) *LocationHandler {
	return &LocationHandler{locationSvc: locationSvc}
}

// ListChildren 获取子地点列表（不传 parent_id 时返回第一层）
// GET /api/v1/workspaces/:ws/locations?parent_id=xxx
func (h *LocationHandler) ListChildren(c *gin.Context) {
	var req dto.LocationChildrenRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	ws, callerID, ok := mustGetScope(c)
	if !ok {
		return
	}

	locations, err := h.locationSvc.ListChildren(c.Request.Context(), ws, req.ParentID, callerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": locations})
}

// GetLocation 获取地点详情
// GET /api/v1/workspaces/:ws/locations/:id
func (h *LocationHandler) GetLocation(c *gin.Context) {
	ws, callerID, ok := mustGetScope(c)
	if !ok {
		return
	}

	location, err := h.locationSvc.GetByID(c.Request.Context(), ws, c.Param("id"), callerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, location)
}

// GetBreadcrumb 获取地点的祖先链
// GET /api/v1/workspaces/:ws/locations/:id/breadcrumb
func (h *LocationHandler) GetBreadcrumb(c *gin.Context) {
	ws, callerID, ok := mustGetScope(c)
	if !ok {
		return
	}

	chain, err := h.locationSvc.Breadcrumb(c.Request.Context(), ws, c.Param("id"), callerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": chain})
}

// CreateLocation 创建地点
// POST /api/v1/workspaces/:ws/locations
func (h *LocationHandler) CreateLocation(c *gin.Context) {
	var req dto.CreateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	ws, callerID, ok := mustGetScope(c)
	if !ok {
		return
	}

	location, err := h.locationSvc.Create(c.Request.Context(), ws, &req, callerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, location)
}

// UpdateLocation 更新地点（重命名不会改写后代路径）
// PUT /api/v1/workspaces/:ws/locations/:id
func (h *LocationHandler) UpdateLocation(c *gin.Context) {
	var req dto.UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	ws, callerID, ok := mustGetScope(c)
	if !ok {
		return
	}

	location, err := h.locationSvc.Update(c.Request.Context(), ws, c.Param("id"), &req, callerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, location)
}

// DeleteLocation 软删除地点，其下箱子变为未分配
// DELETE /api/v1/workspaces/:ws/locations/:id
func (h *LocationHandler) DeleteLocation(c *gin.Context) {
	ws, callerID, ok := mustGetScope(c)
	if !ok {
		return
	}

	if err := h.locationSvc.Delete(c.Request.Context(), ws, c.Param("id"), callerID); err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, nil)
}
