package dto

import "github.com/shopspring/decimal"

// ── 班次 DTO ──

// StartShiftRequest 开班请求
type StartShiftRequest struct {
	CashFund decimal.Decimal `json:"cash_fund"`
}

// ShiftListRequest 班次列表查询参数
type ShiftListRequest struct {
	CursorRequest
}

// ExportRangeRequest 导出时间范围（YYYY-MM-DD，to 含当天）
type ExportRangeRequest struct {
	From string `form:"from" binding:"required"`
	To   string `form:"to"   binding:"required"`
}
