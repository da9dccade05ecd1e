package dto

// ── 用户模块 DTO ──

// RegisterRequest 管理员创建账号请求（新账号默认未激活）
type RegisterRequest struct {
	Name     string `json:"name"     binding:"required,min=2,max=100"`
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// UserListRequest 用户列表查询参数
type UserListRequest struct {
	CursorRequest
}

// AssignTemplatesRequest 为用户分配班次模板
type AssignTemplatesRequest struct {
	TemplateIDs []string `json:"template_ids" binding:"omitempty,dive,uuid"`
}
