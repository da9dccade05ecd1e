package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clinic-ledger/backend/internal/model"
)

// UserRepository 用户数据访问接口
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	// ListByRole 按 (created_at DESC, user_id DESC) 返回最多 limit+1 条
	ListByRole(ctx context.Context, role string, cursor *Cursor, limit int) ([]model.User, error)
	ReplaceTemplates(ctx context.Context, user *model.User, templates []model.ShiftTemplate) error
	IsAssigned(ctx context.Context, userID, templateID string) (bool, error)
}

// userRepo UserRepository 的 GORM 实现
type userRepo struct {
	db *gorm.DB
}

// NewUserRepo 创建 UserRepository 实例
func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(user).Error
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Preload("ShiftTemplates").
		Where("user_id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) Update(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(user).Error
}

func (r *userRepo) ListByRole(ctx context.Context, role string, cursor *Cursor, limit int) ([]model.User, error) {
	var users []model.User
	db := r.db.WithContext(ctx).
		Preload("ShiftTemplates").
		Where("role = ?", role)
	if err := keyset(db, "created_at", "user_id", cursor, limit).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepo) ReplaceTemplates(ctx context.Context, user *model.User, templates []model.ShiftTemplate) error {
	return r.db.WithContext(ctx).Model(user).Association("ShiftTemplates").Replace(templates)
}

func (r *userRepo) IsAssigned(ctx context.Context, userID, templateID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("user_shift_templates").
		Where("user_id = ? AND shift_template_id = ?", userID, templateID).
		Count(&count).Error
	return count > 0, err
}
