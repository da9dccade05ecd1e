package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"clinic-ledger/backend/internal/model"
	pkgerrors "clinic-ledger/backend/pkg/errors"
)

// ShiftTemplateRepository 班次模板数据访问接口
type ShiftTemplateRepository interface {
	Create(ctx context.Context, tpl *model.ShiftTemplate) error
	GetByID(ctx context.Context, id string) (*model.ShiftTemplate, error)
	List(ctx context.Context) ([]model.ShiftTemplate, error)
	ListByIDs(ctx context.Context, ids []string) ([]model.ShiftTemplate, error)
	Update(ctx context.Context, tpl *model.ShiftTemplate) error
	Delete(ctx context.Context, id, deletedBy string) error
}

type shiftTemplateRepo struct {
	db *gorm.DB
}

func NewShiftTemplateRepo(db *gorm.DB) ShiftTemplateRepository {
	return &shiftTemplateRepo{db: db}
}

func (r *shiftTemplateRepo) Create(ctx context.Context, tpl *model.ShiftTemplate) error {
	return r.db.WithContext(ctx).Omit("Users").Create(tpl).Error
}

func (r *shiftTemplateRepo) GetByID(ctx context.Context, id string) (*model.ShiftTemplate, error) {
	var tpl model.ShiftTemplate
	err := r.db.WithContext(ctx).
		Where("shift_template_id = ?", id).
		First(&tpl).Error
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *shiftTemplateRepo) List(ctx context.Context) ([]model.ShiftTemplate, error) {
	var tpls []model.ShiftTemplate
	err := r.db.WithContext(ctx).
		Order("start_hour ASC").
		Find(&tpls).Error
	return tpls, err
}

func (r *shiftTemplateRepo) ListByIDs(ctx context.Context, ids []string) ([]model.ShiftTemplate, error) {
	var tpls []model.ShiftTemplate
	if len(ids) == 0 {
		return tpls, nil
	}
	err := r.db.WithContext(ctx).
		Where("shift_template_id IN ?", ids).
		Order("start_hour ASC").
		Find(&tpls).Error
	return tpls, err
}

// Update 乐观锁更新：仅当 version 未变化时写入
func (r *shiftTemplateRepo) Update(ctx context.Context, tpl *model.ShiftTemplate) error {
	oldVersion := tpl.Version
	result := r.db.WithContext(ctx).
		Model(&model.ShiftTemplate{}).
		Where("shift_template_id = ? AND version = ?", tpl.ShiftTemplateID, oldVersion).
		Updates(map[string]interface{}{
			"name":       tpl.Name,
			"start_hour": tpl.StartHour,
			"end_hour":   tpl.EndHour,
			"type":       tpl.Type,
			"updated_by": tpl.UpdatedBy,
			"version":    oldVersion + 1,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	tpl.Version = oldVersion + 1
	return nil
}

func (r *shiftTemplateRepo) Delete(ctx context.Context, id, deletedBy string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.ShiftTemplate{}).
			Where("shift_template_id = ?", id).
			Update("deleted_by", deletedBy).Error; err != nil {
			return err
		}
		result := tx.Where("shift_template_id = ?", id).Delete(&model.ShiftTemplate{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
