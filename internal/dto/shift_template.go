package dto

// ── 班次模板 DTO ──

// CreateShiftTemplateRequest 创建班次模板
type CreateShiftTemplateRequest struct {
	Name      string `json:"name"       binding:"required,max=50"`
	StartHour *int   `json:"start_hour" binding:"required,min=0,max=23"`
	EndHour   *int   `json:"end_hour"   binding:"required,min=0,max=23"`
	Type      string `json:"type"       binding:"required,oneof=MORNING EVENING NIGHT"`
}

// UpdateShiftTemplateRequest 更新班次模板（乐观锁）
type UpdateShiftTemplateRequest struct {
	Name      *string `json:"name"       binding:"omitempty,max=50"`
	StartHour *int    `json:"start_hour" binding:"omitempty,min=0,max=23"`
	EndHour   *int    `json:"end_hour"   binding:"omitempty,min=0,max=23"`
	Type      *string `json:"type"       binding:"omitempty,oneof=MORNING EVENING NIGHT"`
	Version   int     `json:"version"    binding:"required,min=1"`
}
