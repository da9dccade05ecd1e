package dto

import "github.com/shopspring/decimal"

// ── 记账 DTO ──

// CreateEntryRequest 记账请求
//
// EntryType=CONSULTATION 时 Patient 必填，Credit 表示赊账；
// EntryType=DEPENSE 时 Label 必填。
type CreateEntryRequest struct {
	EntryType        string          `json:"entry_type"        binding:"required,oneof=CONSULTATION DEPENSE"`
	Amount           decimal.Decimal `json:"amount"`
	Patient          string          `json:"patient"           binding:"omitempty,max=200"`
	ConsultationType string          `json:"consultation_type" binding:"omitempty,oneof=CONSULTATION BILAN"`
	Credit           bool            `json:"credit"`
	Label            string          `json:"label"             binding:"omitempty,max=200"`
}

// EntryListRequest 流水列表查询参数
type EntryListRequest struct {
	CursorRequest
}
