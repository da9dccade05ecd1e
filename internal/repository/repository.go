package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Tx            Transactor
	User          UserRepository
	ShiftTemplate ShiftTemplateRepository
	Shift         ShiftRepository
	CashFund      CashFundRepository
	Recette       RecetteRepository
	Operation     OperationRepository
	Consultation  ConsultationRepository
	Credit        CreditRepository
	Depense       DepenseRepository
}

// NewRepository 创建 Repository 聚合
// db 可以是事务句柄，此时所有子 Repository 共享同一事务
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Tx:            NewTransactor(db),
		User:          NewUserRepo(db),
		ShiftTemplate: NewShiftTemplateRepo(db),
		Shift:         NewShiftRepo(db),
		CashFund:      NewCashFundRepo(db),
		Recette:       NewRecetteRepo(db),
		Operation:     NewOperationRepo(db),
		Consultation:  NewConsultationRepo(db),
		Credit:        NewCreditRepo(db),
		Depense:       NewDepenseRepo(db),
	}
}

// ── 事务 ──

// Transactor 在单个数据库事务中执行 fn
// fn 返回错误时整体回滚
type Transactor interface {
	Transaction(ctx context.Context, fn func(tx *Repository) error) error
}

type gormTransactor struct {
	db *gorm.DB
}

// NewTransactor 创建基于 gorm 的事务执行器
func NewTransactor(db *gorm.DB) Transactor {
	return &gormTransactor{db: db}
}

func (t *gormTransactor) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

// ── Keyset 分页 ──

// Cursor keyset 分页游标，排序为 (时间 DESC, ID DESC)
type Cursor struct {
	Date time.Time
	ID   string
}

// keyset 追加游标条件与排序，多取一条用于判断是否还有下一页
func keyset(db *gorm.DB, dateCol, idCol string, cursor *Cursor, limit int) *gorm.DB {
	if cursor != nil {
		db = db.Where("("+dateCol+", "+idCol+") < (?, ?)", cursor.Date, cursor.ID)
	}
	return db.Order(dateCol + " DESC").Order(idCol + " DESC").Limit(limit + 1)
}
