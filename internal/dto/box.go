package dto

// ── 箱子模块 DTO ──

// CreateBoxRequest 创建箱子请求
// 空白标签在服务层被丢弃，不视为参数错误
type CreateBoxRequest struct {
	Name        string   `json:"name"        binding:"required,min=1,max=100"`
	Description string   `json:"description" binding:"omitempty,max=1000"`
	Tags        []string `json:"tags"        binding:"omitempty,max=20,dive,max=50"`
	LocationID  *string  `json:"location_id" binding:"omitempty,uuid|len=0"`
	QrCodeID    *string  `json:"qr_code_id"  binding:"omitempty,uuid|len=0"`
}

// UpdateBoxRequest 更新箱子请求
// 指针为 nil 表示不修改；LocationID / QrCodeID 传空字符串表示解除关联
type UpdateBoxRequest struct {
	Name        *string   `json:"name"        binding:"omitempty,min=1,max=100"`
	Description *string   `json:"description" binding:"omitempty,max=1000"`
	Tags        *[]string `json:"tags"        binding:"omitempty,max=20,dive,max=50"`
	LocationID  *string   `json:"location_id" binding:"omitempty,uuid|len=0"`
	QrCodeID    *string   `json:"qr_code_id"  binding:"omitempty,uuid|len=0"`
}

// BoxListRequest 箱子列表查询参数
type BoxListRequest struct {
	PaginationRequest
	LocationID string `form:"location_id" binding:"omitempty,uuid|len=0"`
	Unassigned bool   `form:"unassigned"`
	HasQrCode  *bool  `form:"has_qr_code"`
	Query      string `form:"q"           binding:"omitempty,max=100"`
}

// BoxResponse 箱子信息响应
type BoxResponse struct {
	ID          string   `json:"id"`
	ShortID     string   `json:"short_id"`
	WorkspaceID string   `json:"workspace_id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags"`
	LocationID  *string  `json:"location_id"`
	QrCodeID    *string  `json:"qr_code_id"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}
