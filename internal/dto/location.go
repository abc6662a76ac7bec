package dto

// ── 地点模块 DTO ──

// CreateLocationRequest 创建地点请求
type CreateLocationRequest struct {
	Name        string  `json:"name"        binding:"required,min=1,max=100"`
	Description string  `json:"description" binding:"omitempty,max=1000"`
	ParentID    *string `json:"parent_id"   binding:"omitempty,uuid|len=0"`
}

// UpdateLocationRequest 更新地点请求（字段为 nil 表示不修改）
type UpdateLocationRequest struct {
	Name        *string `json:"name"        binding:"omitempty,min=1,max=100"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
}

// LocationChildrenRequest 子地点查询参数；parent_id 为空时列出第一层
type LocationChildrenRequest struct {
	ParentID string `form:"parent_id" binding:"omitempty,uuid|len=0"`
}

// LocationResponse 地点信息响应
type LocationResponse struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspace_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Path        string `json:"path"`
	Depth       int    `json:"depth"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}
