package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Shift 班次表，对应 shifts
// EndTime 为空表示班次未结束
type Shift struct {
	ShiftID    string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"shift_id"`
	UserID     string     `gorm:"type:uuid;not null"                             json:"user_id"`
	TemplateID *string    `gorm:"type:uuid"                                      json:"template_id,omitempty"` // NULL 表示历史/手工班次
	StartTime  time.Time  `gorm:"not null"                                       json:"start_time"`
	EndTime    *time.Time `json:"end_time,omitempty"`
	Confirmed  bool       `gorm:"not null;default:false"                         json:"confirmed"`
	BaseModel

	// 关联
	User     *User          `gorm:"foreignKey:UserID;references:UserID"                  json:"user,omitempty"`
	Template *ShiftTemplate `gorm:"foreignKey:TemplateID;references:ShiftTemplateID"     json:"template,omitempty"`
	CashFund *CashFund      `gorm:"foreignKey:ShiftID;references:ShiftID"                json:"cash_fund,omitempty"`
	Recette  *Recette       `gorm:"foreignKey:ShiftID;references:ShiftID"                json:"recette,omitempty"`
}

// TableName 指定表名
func (Shift) TableName() string { return "shifts" }

// CashFund 班次备用金，对应 cash_funds（每班一条）
type CashFund struct {
	CashFundID string          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"cash_fund_id"`
	ShiftID    string          `gorm:"type:uuid;not null;uniqueIndex"                 json:"shift_id"`
	Amount     decimal.Decimal `gorm:"type:numeric(12,2);not null"                    json:"amount"`
	CreatedAt  time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (CashFund) TableName() string { return "cash_funds" }

// Recette 班次收入累计，对应 recettes（每班一条）
// TotalAmount 只允许通过 total_amount ± ? 表达式更新
type Recette struct {
	RecetteID   string          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"recette_id"`
	ShiftID     string          `gorm:"type:uuid;not null;uniqueIndex"                 json:"shift_id"`
	TotalAmount decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"          json:"total_amount"`
	Date        time.Time       `gorm:"not null"                                       json:"date"`
	UpdatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`
}

// TableName 指定表名
func (Recette) TableName() string { return "recettes" }
