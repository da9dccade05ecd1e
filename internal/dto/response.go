package dto

import "github.com/shopspring/decimal"

// ── 认证模块响应 ──

// TokenResponse Token 对响应
type TokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"` // Access Token 有效期（秒）
	User         UserResponse `json:"user"`
}

// ── 用户模块响应 ──

// UserResponse 用户信息响应（脱敏）
type UserResponse struct {
	ID        string                  `json:"id"`
	Name      string                  `json:"name"`
	Email     string                  `json:"email"`
	Role      string                  `json:"role"`
	Activated bool                    `json:"activated"`
	Templates []ShiftTemplateResponse `json:"templates,omitempty"`
	CreatedAt string                  `json:"created_at,omitempty"`
}

// UserListItem 用户列表项（含流水数量）
type UserListItem struct {
	UserResponse
	OperationCount int64 `json:"operation_count"`
}

// ── 班次模板响应 ──

// ShiftTemplateResponse 班次模板
type ShiftTemplateResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StartHour int    `json:"start_hour"`
	EndHour   int    `json:"end_hour"`
	Type      string `json:"type"`
	Overnight bool   `json:"overnight"`
	Version   int    `json:"version"`
}

// ── 班次响应 ──

// ShiftResponse 班次信息
type ShiftResponse struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"user_id"`
	UserName  string                 `json:"user_name,omitempty"`
	Template  *ShiftTemplateResponse `json:"template,omitempty"`
	StartTime string                 `json:"start_time"`
	EndTime   *string                `json:"end_time"`
	Confirmed bool                   `json:"confirmed"`
	CashFund  *decimal.Decimal       `json:"cash_fund,omitempty"`
	Recette   *decimal.Decimal       `json:"recette,omitempty"`
}

// CurrentShiftResponse 当前班次与开班闸门结果
type CurrentShiftResponse struct {
	Shift            *ShiftResponse         `json:"shift"`
	CanStartNewShift bool                   `json:"can_start_new_shift"`
	Template         *ShiftTemplateResponse `json:"template"` // 按当前时间（含提前量）匹配到的模板
}

// ── 流水响应 ──

// OperationResponse 流水
type OperationResponse struct {
	ID           string                `json:"id"`
	Date         string                `json:"date"`
	ShiftID      string                `json:"shift_id"`
	Amount       decimal.Decimal       `json:"amount"`
	Type         string                `json:"type"`
	Label        string                `json:"label"`
	UserID       string                `json:"user_id"`
	UserName     string                `json:"user_name,omitempty"`
	Consultation *ConsultationResponse `json:"consultation,omitempty"`
	Depense      *DepenseResponse      `json:"depense,omitempty"`
}

// ConsultationResponse 问诊明细
type ConsultationResponse struct {
	ID      string          `json:"id"`
	Patient string          `json:"patient"`
	Amount  decimal.Decimal `json:"amount"`
	Type    string          `json:"type"`
	Credit  *CreditResponse `json:"credit,omitempty"`
}

// CreditResponse 赊账
type CreditResponse struct {
	ID     string          `json:"id"`
	Amount decimal.Decimal `json:"amount"`
	Date   string          `json:"date"`
	IsPaid bool            `json:"is_paid"`
	PaidAt *string         `json:"paid_at,omitempty"`
}

// DepenseResponse 支出明细
type DepenseResponse struct {
	ID     string          `json:"id"`
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// CreditActionResponse 赊账转换/还款结果
type CreditActionResponse struct {
	ShiftID string `json:"shift_id"`
}

// ── 汇总响应 ──

// ActivitySummaryResponse 当前班次汇总
type ActivitySummaryResponse struct {
	ShiftID            string          `json:"shift_id"`
	ShiftName          string          `json:"shift_name"`
	StartTime          string          `json:"start_time"`
	EndTime            *string         `json:"end_time"`
	ConsultationsCount int64           `json:"consultations_count"`
	TotalRecettes      decimal.Decimal `json:"total_recettes"`
	TotalDepenses      decimal.Decimal `json:"total_depenses"`
	Balance            decimal.Decimal `json:"balance"`
	CreditsAdded       decimal.Decimal `json:"credits_added"`
	CreditsPaid        decimal.Decimal `json:"credits_paid"`
	NetProfit          decimal.Decimal `json:"net_profit"`
	ExpectedProfit     decimal.Decimal `json:"expected_profit"`
}

// DashboardSummaryResponse 全局汇总
type DashboardSummaryResponse struct {
	RevenueTotal   decimal.Decimal `json:"revenue_total"`
	DepensesTotal  decimal.Decimal `json:"depenses_total"`
	CreditsUnpaid  decimal.Decimal `json:"credits_unpaid"`
	CreditsPaid    decimal.Decimal `json:"credits_paid"`
	NetProfit      decimal.Decimal `json:"net_profit"`
	ExpectedProfit decimal.Decimal `json:"expected_profit"`
}

// ChartSummaryResponse 图表计数
type ChartSummaryResponse struct {
	Consultations int64 `json:"consultations"`
	Bilans        int64 `json:"bilans"`
	UnpaidCredits int64 `json:"unpaid_credits"`
	Depenses      int64 `json:"depenses"`
}
