package handler

import (
	"github.com/gin-gonic/gin"

	"boxatlas/backend/internal/dto"
	"boxatlas/backend/internal/service"
	"boxatlas/backend/pkg/response"
)

// BoxHandler 箱子模块 HTTP 处理器
type BoxHandler struct {
	boxSvc service.BoxService
}

// NewBoxHandler 创建 BoxHandler
func NewBoxHandler(boxSvc service.BoxService) *BoxHandler {
	return &BoxHandler{boxSvc: boxSvc}
}

// ListBoxes 分页查询箱子
// GET /api/v1/workspaces/:ws/boxes?location_id=&unassigned=&has_qr_code=&q=&page=&page_size=
func (h *BoxHandler) ListBoxes(c *gin.Context) {
	var req dto.BoxListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	ws, callerID, ok := mustGetScope(c)
	if !ok {
		return
	}

	page, err := h.boxSvc.List(c.Request.Context(), ws, &req, callerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKPage(c, page.List, page.Total, page.Page, page.PageSize)
}

// GetBox 获取箱子详情
// GET /api/v1/workspaces/:ws/boxes/:id
func (h *BoxHandler) GetBox(c *gin.Context) {
	ws, callerID, ok := mustGetScope(c)
	if !ok {
		return
	}

	box, err := h.boxSvc.GetByID(c.Request.Context(), ws, c.Param("id"), callerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, box)
}

// GetBoxByShortID 按短编号获取箱子
// GET /api/v1/workspaces/:ws/boxes/short/:short_id
func (h *BoxHandler) GetBoxByShortID(c *gin.Context) {
	ws, callerID, ok := mustGetScope(c)
	if !ok {
		return
	}

	box, err := h.boxSvc.GetByShortID(c.Request.Context(), ws, c.Param("short_id"), callerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, box)
}

// CreateBox 创建箱子，可同时指定地点与二维码
// POST /api/v1/workspaces/:ws/boxes
func (h *BoxHandler) CreateBox(c *gin.Context) {
	var req dto.CreateBoxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	ws, callerID, ok := mustGetScope(c)
	if !ok {
		return
	}

	box, err := h.boxSvc.Create(c.Request.Context(), ws, &req, callerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, box)
}

// UpdateBox 更新箱子；location_id / qr_code_id 传空字符串表示解除关联
// PUT /api/v1/workspaces/:ws/boxes/:id
func (h *BoxHandler) UpdateBox(c *gin.Context) {
	var req dto.UpdateBoxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	ws, callerID, ok := mustGetScope(c)
	if !ok {
		return
	}

	box, err := h.boxSvc.Update(c.Request.Context(), ws, c.Param("id"), &req, callerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, box)
}

// DeleteBox 删除箱子并释放其二维码
// DELETE /api/v1/workspaces/:ws/boxes/:id
func (h *BoxHandler) DeleteBox(c *gin.Context) {
	ws, callerID, ok := mustGetScope(c)
	if !ok {
		return
	}

	if err := h.boxSvc.Delete(c.Request.Context(), ws, c.Param("id"), callerID); err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, nil)
}
