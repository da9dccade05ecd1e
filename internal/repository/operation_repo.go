package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clinic-ledger/backend/internal/model"
	pkgerrors "clinic-ledger/backend/pkg/errors"
)

// OperationRepository 流水数据访问接口
//
// List* 方法按 (date DESC, operation_id DESC) 返回最多 limit+1 条，并预加载明细。
type OperationRepository interface {
	Create(ctx context.Context, op *model.Operation) error
	GetByID(ctx context.Context, id string) (*model.Operation, error)
	// LastDateByShift 班次最后一笔流水时间，无流水时返回 nil
	LastDateByShift(ctx context.Context, shiftID string) (*time.Time, error)
	ListByShift(ctx context.Context, shiftID string, cursor *Cursor, limit int) ([]model.Operation, error)
	// ListLedger 班次流水 + 全部未还赊账对应的流水
	ListLedger(ctx context.Context, shiftID string, cursor *Cursor, limit int) ([]model.Operation, error)
	ListWithCredit(ctx context.Context, cursor *Cursor, limit int) ([]model.Operation, error)
	Reassign(ctx context.Context, id, shiftID string, date time.Time) error
	CountByUsers(ctx context.Context, userIDs []string) (map[string]int64, error)
}

// ConsultationRepository 问诊明细数据访问接口
type ConsultationRepository interface {
	Create(ctx context.Context, c *model.Consultation) error
	// GetForUpdate 以 SELECT ... FOR UPDATE 读取问诊并预加载赊账
	GetForUpdate(ctx context.Context, id string) (*model.Consultation, error)
	Reassign(ctx context.Context, id, shiftID string) error
	CountByType(ctx context.Context) (map[string]int64, error)
	CountByShift(ctx context.Context, shiftID string) (int64, error)
}

// CreditRepository 赊账数据访问接口
type CreditRepository interface {
	// Upsert 按 consultation_id 插入或重置为未还
	Upsert(ctx context.Context, credit *model.Credit) error
	GetByID(ctx context.Context, id string) (*model.Credit, error)
	// MarkPaid 仅当 is_paid = false 时置为已还，未命中返回 ErrConditionalUpdate
	MarkPaid(ctx context.Context, id string, paidAt time.Time, paidBy string) error
	SumUnpaidByShift(ctx context.Context, shiftID string) (decimal.Decimal, error)
	SumPaidByShift(ctx context.Context, shiftID string) (decimal.Decimal, error)
	SumByStatus(ctx context.Context, isPaid bool) (decimal.Decimal, error)
	CountUnpaid(ctx context.Context) (int64, error)
}

// DepenseRepository 支出明细数据访问接口
type DepenseRepository interface {
	Create(ctx context.Context, d *model.Depense) error
	SumByShift(ctx context.Context, shiftID string) (decimal.Decimal, error)
	SumAll(ctx context.Context) (decimal.Decimal, error)
	Count(ctx context.Context) (int64, error)
}

// ── Operation Repository 实现 ──

type operationRepo struct {
	db *gorm.DB
}

func NewOperationRepo(db *gorm.DB) OperationRepository {
	return &operationRepo{db: db}
}

func (r *operationRepo) Create(ctx context.Context, op *model.Operation) error {
	return r.db.WithContext(ctx).
		Omit("User", "Shift", "Consultation", "Depense").
		Create(op).Error
}

func (r *operationRepo) GetByID(ctx context.Context, id string) (*model.Operation, error) {
	var op model.Operation
	err := r.withDetails(ctx).
		Where("operation_id = ?", id).
		First(&op).Error
	if err != nil {
		return nil, err
	}
	return &op, nil
}

func (r *operationRepo) LastDateByShift(ctx context.Context, shiftID string) (*time.Time, error) {
	var last sql.NullTime
	err := r.db.WithContext(ctx).
		Model(&model.Operation{}).
		Select("MAX(date)").
		Where("shift_id = ?", shiftID).
		Row().Scan(&last)
	if err != nil {
		return nil, err
	}
	if !last.Valid {
		return nil, nil
	}
	return &last.Time, nil
}

func (r *operationRepo) ListByShift(ctx context.Context, shiftID string, cursor *Cursor, limit int) ([]model.Operation, error) {
	var ops []model.Operation
	db := r.withDetails(ctx).Where("operations.shift_id = ?", shiftID)
	if err := keyset(db, "operations.date", "operations.operation_id", cursor, limit).Find(&ops).Error; err != nil {
		return nil, err
	}
	return ops, nil
}

func (r *operationRepo) ListLedger(ctx context.Context, shiftID string, cursor *Cursor, limit int) ([]model.Operation, error) {
	var ops []model.Operation
	unpaid := r.db.Table("consultations AS c").
		Select("c.operation_id").
		Joins("JOIN credits AS cr ON cr.consultation_id = c.consultation_id").
		Where("cr.is_paid = ?", false)
	db := r.withDetails(ctx).
		Where(r.db.Where("operations.shift_id = ?", shiftID).Or("operations.operation_id IN (?)", unpaid))
	if err := keyset(db, "operations.date", "operations.operation_id", cursor, limit).Find(&ops).Error; err != nil {
		return nil, err
	}
	return ops, nil
}

func (r *operationRepo) ListWithCredit(ctx context.Context, cursor *Cursor, limit int) ([]model.Operation, error) {
	var ops []model.Operation
	withCredit := r.db.Table("consultations AS c").
		Select("c.operation_id").
		Joins("JOIN credits AS cr ON cr.consultation_id = c.consultation_id")
	db := r.withDetails(ctx).Where("operations.operation_id IN (?)", withCredit)
	if err := keyset(db, "operations.date", "operations.operation_id", cursor, limit).Find(&ops).Error; err != nil {
		return nil, err
	}
	return ops, nil
}

func (r *operationRepo) Reassign(ctx context.Context, id, shiftID string, date time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.Operation{}).
		Where("operation_id = ?", id).
		Updates(map[string]interface{}{
			"shift_id": shiftID,
			"date":     date,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrConditionalUpdate
	}
	return nil
}

func (r *operationRepo) CountByUsers(ctx context.Context, userIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(userIDs))
	if len(userIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		UserID string
		Total  int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Operation{}).
		Select("user_id, COUNT(*) AS total").
		Where("user_id IN ?", userIDs).
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.UserID] = row.Total
	}
	return counts, nil
}

func (r *operationRepo) withDetails(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("User").
		Preload("Consultation").
		Preload("Consultation.Credit").
		Preload("Depense")
}

// ── Consultation Repository 实现 ──

type consultationRepo struct {
	db *gorm.DB
}

func NewConsultationRepo(db *gorm.DB) ConsultationRepository {
	return &consultationRepo{db: db}
}

func (r *consultationRepo) Create(ctx context.Context, c *model.Consultation) error {
	return r.db.WithContext(ctx).Omit("Credit", "Shift").Create(c).Error
}

func (r *consultationRepo) GetForUpdate(ctx context.Context, id string) (*model.Consultation, error) {
	var c model.Consultation
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Credit").
		Where("consultation_id = ?", id).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *consultationRepo) Reassign(ctx context.Context, id, shiftID string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Consultation{}).
		Where("consultation_id = ?", id).
		Update("shift_id", shiftID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrConditionalUpdate
	}
	return nil
}

func (r *consultationRepo) CountByType(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Type  string
		Total int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Consultation{}).
		Select("type, COUNT(*) AS total").
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Type] = row.Total
	}
	return counts, nil
}

func (r *consultationRepo) CountByShift(ctx context.Context, shiftID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Consultation{}).
		Where("shift_id = ?", shiftID).
		Count(&count).Error
	return count, err
}

// ── Credit Repository 实现 ──

type creditRepo struct {
	db *gorm.DB
}

func NewCreditRepo(db *gorm.DB) CreditRepository {
	return &creditRepo{db: db}
}

func (r *creditRepo) Upsert(ctx context.Context, credit *model.Credit) error {
	return r.db.WithContext(ctx).
		Omit("Consultation").
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "consultation_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"is_paid":    false,
				"paid_at":    nil,
				"paid_by":    nil,
				"amount":     credit.Amount,
				"date":       credit.Date,
				"updated_at": time.Now(),
			}),
		}).
		Create(credit).Error
}

func (r *creditRepo) GetByID(ctx context.Context, id string) (*model.Credit, error) {
	var credit model.Credit
	err := r.db.WithContext(ctx).
		Preload("Consultation").
		Where("credit_id = ?", id).
		First(&credit).Error
	if err != nil {
		return nil, err
	}
	return &credit, nil
}

func (r *creditRepo) MarkPaid(ctx context.Context, id string, paidAt time.Time, paidBy string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Credit{}).
		Where("credit_id = ? AND is_paid = ?", id, false).
		Updates(map[string]interface{}{
			"is_paid":    true,
			"paid_at":    paidAt,
			"paid_by":    paidBy,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrConditionalUpdate
	}
	return nil
}

func (r *creditRepo) SumUnpaidByShift(ctx context.Context, shiftID string) (decimal.Decimal, error) {
	return r.sumByShift(ctx, shiftID, false)
}

func (r *creditRepo) SumPaidByShift(ctx context.Context, shiftID string) (decimal.Decimal, error) {
	return r.sumByShift(ctx, shiftID, true)
}

func (r *creditRepo) sumByShift(ctx context.Context, shiftID string, isPaid bool) (decimal.Decimal, error) {
	return sumDecimal(r.db.WithContext(ctx).
		Table("credits AS cr").
		Select("COALESCE(SUM(cr.amount), 0)").
		Joins("JOIN consultations AS c ON c.consultation_id = cr.consultation_id").
		Where("c.shift_id = ? AND cr.is_paid = ?", shiftID, isPaid))
}

func (r *creditRepo) SumByStatus(ctx context.Context, isPaid bool) (decimal.Decimal, error) {
	return sumDecimal(r.db.WithContext(ctx).
		Model(&model.Credit{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("is_paid = ?", isPaid))
}

func (r *creditRepo) CountUnpaid(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Credit{}).
		Where("is_paid = ?", false).
		Count(&count).Error
	return count, err
}

// ── Depense Repository 实现 ──

type depenseRepo struct {
	db *gorm.DB
}

func NewDepenseRepo(db *gorm.DB) DepenseRepository {
	return &depenseRepo{db: db}
}

func (r *depenseRepo) Create(ctx context.Context, d *model.Depense) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *depenseRepo) SumByShift(ctx context.Context, shiftID string) (decimal.Decimal, error) {
	return sumDecimal(r.db.WithContext(ctx).
		Model(&model.Depense{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("shift_id = ?", shiftID))
}

func (r *depenseRepo) SumAll(ctx context.Context) (decimal.Decimal, error) {
	return sumDecimal(r.db.WithContext(ctx).
		Model(&model.Depense{}).
		Select("COALESCE(SUM(amount), 0)"))
}

func (r *depenseRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Depense{}).Count(&count).Error
	return count, err
}
