package dto

// CursorRequest keyset 分页参数，cursor_id 与 cursor_date 需同时提供
type CursorRequest struct {
	CursorID   string `form:"cursor_id"   binding:"omitempty,uuid"`
	CursorDate string `form:"cursor_date" binding:"required_with=CursorID"`
	Limit      int    `form:"limit"       binding:"omitempty,min=1,max=100"`
}
