package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"boxatlas/backend/internal/dto"
	"boxatlas/backend/internal/service"
	"boxatlas/backend/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// QrCodeHandler 二维码模块 HTTP 处理器
type QrCodeHandler struct {
	qrCodeSvc service.QrCodeService
}

// NewQrCodeHandler 创建 QrCodeHandler
func NewQrCodeHandler(qrCodeSvc service.QrCodeService) *QrCodeHandler {
	return &QrCodeHandler{qrCodeSvc: qrCodeSvc}
}

// GenerateBatch 批量生成二维码
// POST /api/v1/workspaces/:ws/qr-codes/batch
func (h *QrCodeHandler) GenerateBatch(c *gin.Context) {
	var req dto.GenerateQrCodesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	ws, callerID, ok := mustGetScope(c)
	if !ok {
		return
	}

	codes, err := h.qrCodeSvc.GenerateBatch(c.Request.Context(), ws, &req, callerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, gin.H{"list": codes})
}

// ListQrCodes 分页查询二维码
// GET /api/v1/workspaces/:ws/qr-codes?status=&page=&page_size=
func (h *QrCodeHandler) ListQrCodes(c *gin.Context) {
	var req dto.QrCodeListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	ws, callerID, ok := mustGetScope(c)
	if !ok {
		return
	}

	page, err := h.qrCodeSvc.List(c.Request.Context(), ws, &req, callerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKPage(c, page.List, page.Total, page.Page, page.PageSize)
}

// GetQrCode 获取二维码详情
// GET /api/v1/workspaces/:ws/qr-codes/:id
func (h *QrCodeHandler) GetQrCode(c *gin.Context) {
	ws, callerID, ok := mustGetScope(c)
	if !ok {
		return
	}

	qr, err := h.qrCodeSvc.GetByID(c.Request.Context(), ws, c.Param("id"), callerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, qr)
}

// Resolve 扫码解析
// GET /api/v1/workspaces/:ws/qr-codes/resolve/:code
func (h *QrCodeHandler) Resolve(c *gin.Context) {
	ws, callerID, ok := mustGetScope(c)
	if !ok {
		return
	}

	res, err := h.qrCodeSvc.Resolve(c.Request.Context(), ws, c.Param("code"), callerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, res)
}

// MarkPrinted 标记二维码已打印
// POST /api/v1/workspaces/:ws/qr-codes/printed
func (h *QrCodeHandler) MarkPrinted(c *gin.Context) {
	var req dto.MarkPrintedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	ws, callerID, ok := mustGetScope(c)
	if !ok {
		return
	}

	n, err := h.qrCodeSvc.MarkPrinted(c.Request.Context(), ws, &req, callerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, dto.MarkPrintedResponse{Updated: n})
}

// ExportLabels 导出二维码标签清单
// GET /api/v1/workspaces/:ws/qr-codes/export?status=generated
func (h *QrCodeHandler) ExportLabels(c *gin.Context) {
	ws, callerID, ok := mustGetScope(c)
	if !ok {
		return
	}

	buf, filename, err := h.qrCodeSvc.ExportLabels(c.Request.Context(), ws, c.Query("status"), callerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
