package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Operation 流水表，对应 operations（只追加；仅在还款时改挂班次）
type Operation struct {
	OperationID string          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"operation_id"`
	Date        time.Time       `gorm:"not null;index:idx_operations_date_id,priority:1" json:"date"`
	ShiftID     string          `gorm:"type:uuid;not null;index"                       json:"shift_id"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null"                    json:"amount"`
	Type        string          `gorm:"type:varchar(20);not null"                      json:"type"` // CONSULTATION | DEPENSE
	Label       string          `gorm:"type:varchar(200);not null"                     json:"label"`
	UserID      string          `gorm:"type:uuid;not null"                             json:"user_id"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`

	// 关联
	User         *User         `gorm:"foreignKey:UserID;references:UserID"           json:"user,omitempty"`
	Shift        *Shift        `gorm:"foreignKey:ShiftID;references:ShiftID"         json:"shift,omitempty"`
	Consultation *Consultation `gorm:"foreignKey:OperationID;references:OperationID" json:"consultation,omitempty"`
	Depense      *Depense      `gorm:"foreignKey:OperationID;references:OperationID" json:"depense,omitempty"`
}

// TableName 指定表名
func (Operation) TableName() string { return "operations" }

// Consultation 问诊明细，对应 consultations
type Consultation struct {
	ConsultationID string          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"consultation_id"`
	OperationID    string          `gorm:"type:uuid;not null;uniqueIndex"                 json:"operation_id"`
	ShiftID        *string         `gorm:"type:uuid;index"                                json:"shift_id,omitempty"`
	Date           time.Time       `gorm:"not null"                                       json:"date"`
	Patient        string          `gorm:"type:varchar(200);not null"                     json:"patient"`
	Amount         decimal.Decimal `gorm:"type:numeric(12,2);not null"                    json:"amount"`
	Type           string          `gorm:"type:varchar(20);not null"                      json:"type"` // CONSULTATION | BILAN
	CreatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`

	// 关联
	Credit *Credit `gorm:"foreignKey:ConsultationID;references:ConsultationID" json:"credit,omitempty"`
	Shift  *Shift  `gorm:"foreignKey:ShiftID;references:ShiftID"               json:"shift,omitempty"`
}

// TableName 指定表名
func (Consultation) TableName() string { return "consultations" }

// Credit 赊账，对应 credits（每个问诊至多一条）
type Credit struct {
	CreditID       string          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"credit_id"`
	ConsultationID string          `gorm:"type:uuid;not null;uniqueIndex"                 json:"consultation_id"`
	UserID         string          `gorm:"type:uuid;not null"                             json:"user_id"`
	Amount         decimal.Decimal `gorm:"type:numeric(12,2);not null"                    json:"amount"`
	Date           time.Time       `gorm:"not null"                                       json:"date"`
	IsPaid         bool            `gorm:"not null;default:false;index"                   json:"is_paid"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	PaidBy         *string         `gorm:"type:uuid"                                      json:"paid_by,omitempty"`
	BaseModel

	// 关联
	Consultation *Consultation `gorm:"foreignKey:ConsultationID;references:ConsultationID" json:"consultation,omitempty"`
}

// TableName 指定表名
func (Credit) TableName() string { return "credits" }

// Depense 支出明细，对应 depenses
type Depense struct {
	DepenseID   string          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"depense_id"`
	OperationID string          `gorm:"type:uuid;not null;uniqueIndex"                 json:"operation_id"`
	ShiftID     string          `gorm:"type:uuid;not null;index"                       json:"shift_id"`
	Date        time.Time       `gorm:"not null"                                       json:"date"`
	Label       string          `gorm:"type:varchar(200);not null"                     json:"label"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null"                    json:"amount"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (Depense) TableName() string { return "depenses" }
