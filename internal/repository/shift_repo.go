package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"clinic-ledger/backend/internal/model"
	pkgerrors "clinic-ledger/backend/pkg/errors"
)

// ShiftRepository 班次数据访问接口
//
// Find* 方法未命中时返回 (nil, nil)；Get* 方法未命中时返回 gorm.ErrRecordNotFound。
type ShiftRepository interface {
	Create(ctx context.Context, shift *model.Shift) error
	GetByID(ctx context.Context, id string) (*model.Shift, error)
	// FindOpenBetween 最新的未结束班次，start_time ∈ [from, to]
	FindOpenBetween(ctx context.Context, from, to time.Time) (*model.Shift, error)
	// FindOpenByTemplateSince 指定模板、start_time >= since 的未结束班次
	FindOpenByTemplateSince(ctx context.Context, templateID string, since time.Time) (*model.Shift, error)
	// Close 仅关闭未结束的班次，已结束时返回 ErrConditionalUpdate
	Close(ctx context.Context, id string, endTime time.Time) error
	// CloseStaleOpen 关闭 start_time < before 的全部未结束班次，
	// 结束时间取该班次最后一笔流水，无流水取开始时间；返回关闭条数
	CloseStaleOpen(ctx context.Context, before time.Time) (int64, error)
	// List 按 (start_time DESC, shift_id DESC) 返回最多 limit+1 条
	List(ctx context.Context, cursor *Cursor, limit int) ([]model.Shift, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]model.Shift, error)
}

// CashFundRepository 备用金数据访问接口
type CashFundRepository interface {
	Create(ctx context.Context, fund *model.CashFund) error
}

// RecetteRepository 班次收入数据访问接口
type RecetteRepository interface {
	Create(ctx context.Context, recette *model.Recette) error
	FindByShift(ctx context.Context, shiftID string) (*model.Recette, error)
	// AddAmount total_amount = total_amount + delta，未命中返回 ErrConditionalUpdate
	AddAmount(ctx context.Context, shiftID string, delta decimal.Decimal) error
	SumAll(ctx context.Context) (decimal.Decimal, error)
}

// ── Shift Repository 实现 ──

type shiftRepo struct {
	db *gorm.DB
}

func NewShiftRepo(db *gorm.DB) ShiftRepository {
	return &shiftRepo{db: db}
}

func (r *shiftRepo) Create(ctx context.Context, shift *model.Shift) error {
	return r.db.WithContext(ctx).
		Omit("User", "Template", "CashFund", "Recette").
		Create(shift).Error
}

func (r *shiftRepo) GetByID(ctx context.Context, id string) (*model.Shift, error) {
	var shift model.Shift
	err := r.withDetails(ctx).
		Where("shift_id = ?", id).
		First(&shift).Error
	if err != nil {
		return nil, err
	}
	return &shift, nil
}

func (r *shiftRepo) FindOpenBetween(ctx context.Context, from, to time.Time) (*model.Shift, error) {
	var shift model.Shift
	err := r.withDetails(ctx).
		Where("end_time IS NULL AND start_time >= ? AND start_time <= ?", from, to).
		Order("start_time DESC").
		First(&shift).Error
	return found(&shift, err)
}

func (r *shiftRepo) FindOpenByTemplateSince(ctx context.Context, templateID string, since time.Time) (*model.Shift, error) {
	var shift model.Shift
	err := r.withDetails(ctx).
		Where("end_time IS NULL AND template_id = ? AND start_time >= ?", templateID, since).
		Order("start_time DESC").
		First(&shift).Error
	return found(&shift, err)
}

func (r *shiftRepo) Close(ctx context.Context, id string, endTime time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.Shift{}).
		Where("shift_id = ? AND end_time IS NULL", id).
		Updates(map[string]interface{}{
			"end_time":   endTime,
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

func (r *shiftRepo) CloseStaleOpen(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Shift{}).
		Where("end_time IS NULL AND start_time < ?", before).
		Updates(map[string]interface{}{
			"end_time":   gorm.Expr("COALESCE((SELECT MAX(o.date) FROM operations o WHERE o.shift_id = shifts.shift_id), shifts.start_time)"),
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

func (r *shiftRepo) List(ctx context.Context, cursor *Cursor, limit int) ([]model.Shift, error) {
	var shifts []model.Shift
	db := r.withDetails(ctx).Preload("User")
	if err := keyset(db, "start_time", "shift_id", cursor, limit).Find(&shifts).Error; err != nil {
		return nil, err
	}
	return shifts, nil
}

func (r *shiftRepo) ListBetween(ctx context.Context, from, to time.Time) ([]model.Shift, error) {
	var shifts []model.Shift
	err := r.withDetails(ctx).
		Preload("User").
		Where("start_time >= ? AND start_time < ?", from, to).
		Order("start_time ASC").
		Find(&shifts).Error
	return shifts, err
}

func (r *shiftRepo) withDetails(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Template").
		Preload("CashFund").
		Preload("Recette")
}

// found 将 ErrRecordNotFound 转换为 (nil, nil)
func found[T any](v *T, err error) (*T, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// ── CashFund Repository 实现 ──

type cashFundRepo struct {
	db *gorm.DB
}

func NewCashFundRepo(db *gorm.DB) CashFundRepository {
	return &cashFundRepo{db: db}
}

func (r *cashFundRepo) Create(ctx context.Context, fund *model.CashFund) error {
	return r.db.WithContext(ctx).Create(fund).Error
}

// ── Recette Repository 实现 ──

type recetteRepo struct {
	db *gorm.DB
}

func NewRecetteRepo(db *gorm.DB) RecetteRepository {
	return &recetteRepo{db: db}
}

func (r *recetteRepo) Create(ctx context.Context, recette *model.Recette) error {
	return r.db.WithContext(ctx).Create(recette).Error
}

func (r *recetteRepo) FindByShift(ctx context.Context, shiftID string) (*model.Recette, error) {
	var recette model.Recette
	err := r.db.WithContext(ctx).
		Where("shift_id = ?", shiftID).
		First(&recette).Error
	return found(&recette, err)
}

func (r *recetteRepo) AddAmount(ctx context.Context, shiftID string, delta decimal.Decimal) error {
	result := r.db.WithContext(ctx).
		Model(&model.Recette{}).
		Where("shift_id = ?", shiftID).
		Updates(map[string]interface{}{
			"total_amount": gorm.Expr("total_amount + ?", delta),
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrConditionalUpdate
	}
	return nil
}

func (r *recetteRepo) SumAll(ctx context.Context) (decimal.Decimal, error) {
	return sumDecimal(r.db.WithContext(ctx).Model(&model.Recette{}).Select("COALESCE(SUM(total_amount), 0)"))
}

// sumDecimal 读取单列聚合结果
func sumDecimal(db *gorm.DB) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := db.Row().Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
