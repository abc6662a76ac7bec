package dto

// ── 二维码模块 DTO ──

// GenerateQrCodesRequest 批量生成二维码请求（上限由 qr.max_batch 控制）
type GenerateQrCodesRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

// QrCodeListRequest 二维码列表查询参数
type QrCodeListRequest struct {
	PaginationRequest
	Status string `form:"status" binding:"omitempty,oneof=generated assigned printed"`
}

// MarkPrintedRequest 标记已打印请求
type MarkPrintedRequest struct {
	IDs []string `json:"ids" binding:"required,min=1,max=500,dive,uuid"`
}

// MarkPrintedResponse 标记已打印结果
type MarkPrintedResponse struct {
	Updated int64 `json:"updated"`
}

// QrCodeResponse 二维码信息响应
type QrCodeResponse struct {
	ID          string  `json:"id"`
	Code        string  `json:"code"`
	WorkspaceID string  `json:"workspace_id"`
	Status      string  `json:"status"`
	BoxID       *string `json:"box_id"`
	ScanURL     string  `json:"scan_url"`
	PrintedAt   *string `json:"printed_at,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

// QrCodeResolveResponse 扫码解析结果；Box 为空表示该码尚未绑定箱子
type QrCodeResolveResponse struct {
	QrCode QrCodeResponse `json:"qr_code"`
	Box    *BoxResponse   `json:"box,omitempty"`
}
