package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"clinic-ledger/backend/internal/dto"
	"clinic-ledger/backend/internal/model"
	"clinic-ledger/backend/internal/repository"
	"clinic-ledger/backend/internal/shiftrule"
)

// ── 班次模板模块业务错误 ──

var (
	ErrTemplateHoursEqual = errors.New("开始与结束小时不能相同")
)

// ShiftTemplateService 班次模板业务接口
type ShiftTemplateService interface {
	List(ctx context.Context) ([]dto.ShiftTemplateResponse, error)
	Create(ctx context.Context, caller Caller, req *dto.CreateShiftTemplateRequest) (*dto.ShiftTemplateResponse, error)
	Update(ctx context.Context, caller Caller, id string, req *dto.UpdateShiftTemplateRequest) (*dto.ShiftTemplateResponse, error)
	Delete(ctx context.Context, caller Caller, id string) error
}

type shiftTemplateService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewShiftTemplateService 创建 ShiftTemplateService 实例
func NewShiftTemplateService(repo *repository.Repository, logger *zap.Logger) ShiftTemplateService {
	return &shiftTemplateService{repo: repo, logger: logger}
}

// ────────────────────── List ──────────────────────

func (s *shiftTemplateService) List(ctx context.Context) ([]dto.ShiftTemplateResponse, error) {
	templates, err := s.repo.ShiftTemplate.List(ctx)
	if err != nil {
		s.logger.Error("列出班次模板失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.ShiftTemplateResponse, 0, len(templates))
	for i := range templates {
		result = append(result, toShiftTemplateResponse(&templates[i]))
	}
	return result, nil
}

// ────────────────────── Create ──────────────────────

func (s *shiftTemplateService) Create(ctx context.Context, caller Caller, req *dto.CreateShiftTemplateRequest) (*dto.ShiftTemplateResponse, error) {
	if err := caller.require(CapManageTemplates); err != nil {
		return nil, err
	}
	if *req.StartHour == *req.EndHour {
		return nil, ErrTemplateHoursEqual
	}

	tpl := &model.ShiftTemplate{
		Name:      req.Name,
		StartHour: *req.StartHour,
		EndHour:   *req.EndHour,
		Type:      req.Type,
	}
	tpl.CreatedBy = &caller.UserID
	tpl.UpdatedBy = &caller.UserID

	if err := s.repo.ShiftTemplate.Create(ctx, tpl); err != nil {
		s.logger.Error("创建班次模板失败", zap.Error(err))
		return nil, err
	}

	resp := toShiftTemplateResponse(tpl)
	return &resp, nil
}

// ────────────────────── Update ──────────────────────

func (s *shiftTemplateService) Update(ctx context.Context, caller Caller, id string, req *dto.UpdateShiftTemplateRequest) (*dto.ShiftTemplateResponse, error) {
	if err := caller.require(CapManageTemplates); err != nil {
		return nil, err
	}

	tpl, err := s.repo.ShiftTemplate.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		s.logger.Error("查询班次模板失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if req.Name != nil {
		tpl.Name = *req.Name
	}
	if req.StartHour != nil {
		tpl.StartHour = *req.StartHour
	}
	if req.EndHour != nil {
		tpl.EndHour = *req.EndHour
	}
	if req.Type != nil {
		tpl.Type = *req.Type
	}
	if tpl.StartHour == tpl.EndHour {
		return nil, ErrTemplateHoursEqual
	}

	// 以客户端持有的版本做乐观锁
	tpl.Version = req.Version
	tpl.UpdatedBy = &caller.UserID

	if err := s.repo.ShiftTemplate.Update(ctx, tpl); err != nil {
		return nil, err
	}

	resp := toShiftTemplateResponse(tpl)
	return &resp, nil
}

// ────────────────────── Delete ──────────────────────

func (s *shiftTemplateService) Delete(ctx context.Context, caller Caller, id string) error {
	if err := caller.require(CapManageTemplates); err != nil {
		return err
	}

	if err := s.repo.ShiftTemplate.Delete(ctx, id, caller.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTemplateNotFound
		}
		s.logger.Error("删除班次模板失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ── 内部辅助方法 ──

func toShiftTemplateResponse(t *model.ShiftTemplate) dto.ShiftTemplateResponse {
	return dto.ShiftTemplateResponse{
		ID:        t.ShiftTemplateID,
		Name:      t.Name,
		StartHour: t.StartHour,
		EndHour:   t.EndHour,
		Type:      t.Type,
		Overnight: shiftrule.IsOvernight(t),
		Version:   t.Version,
	}
}
