package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"clinic-ledger/backend/config"
	"clinic-ledger/backend/internal/dto"
	"clinic-ledger/backend/internal/model"
	"clinic-ledger/backend/internal/repository"
	"clinic-ledger/backend/internal/shiftrule"
	"clinic-ledger/backend/pkg/clock"
	pkgerrors "clinic-ledger/backend/pkg/errors"
	"clinic-ledger/backend/pkg/metrics"
)

// ── 班次模块业务错误 ──

var (
	ErrNoActiveTemplate   = errors.New("当前时段没有匹配的班次模板")
	ErrNoActiveShift      = errors.New("当前没有进行中的班次")
	ErrShiftAlreadyActive = errors.New("你已有进行中的班次")
	ErrInvalidCashFund    = errors.New("备用金不能小于 1")
	ErrShiftNotFound      = errors.New("班次不存在")
	ErrShiftAlreadyEnded  = errors.New("班次已结束")
)

var minCashFund = decimal.NewFromInt(1)

// ShiftResolver 解析当前班次
type ShiftResolver interface {
	// ResolveCurrent 返回当前班次，没有时返回 (nil, nil)
	ResolveCurrent(ctx context.Context) (*model.Shift, error)
}

// ShiftService 班次业务接口
type ShiftService interface {
	ShiftResolver
	GetCurrent(ctx context.Context, caller Caller) (*dto.CurrentShiftResponse, error)
	Start(ctx context.Context, caller Caller, req *dto.StartShiftRequest) (*dto.ShiftResponse, error)
	End(ctx context.Context, caller Caller, id string) (*dto.ShiftResponse, error)
	List(ctx context.Context, caller Caller, req *dto.ShiftListRequest) ([]dto.ShiftResponse, *repository.Cursor, error)
	ListOperations(ctx context.Context, caller Caller, shiftID string, req *dto.EntryListRequest) ([]dto.OperationResponse, *repository.Cursor, error)
}

type shiftService struct {
	cfg     *config.ShiftConfig
	repo    *repository.Repository
	clock   clock.Clock
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewShiftService 创建 ShiftService 实例
func NewShiftService(
	cfg *config.Config,
	repo *repository.Repository,
	clk clock.Clock,
	m *metrics.Metrics,
	logger *zap.Logger,
) ShiftService {
	return &shiftService{
		cfg:     &cfg.Shift,
		repo:    repo,
		clock:   clk,
		metrics: m,
		logger:  logger,
	}
}

// ═══════════════════════════════════════════════════════════
// ResolveCurrent，当前班次解析
// ═══════════════════════════════════════════════════════════
//
//  1. 昨天 00:00 之后开始且未结束的班次，取最新一条
//  2. 否则按当前小时匹配模板（不加提前量），无匹配返回 nil
//  3. 按模板计算回溯边界，查找该模板下未结束的班次

func (s *shiftService) ResolveCurrent(ctx context.Context) (*model.Shift, error) {
	now := s.clock.Now()

	open, err := s.repo.Shift.FindOpenBetween(ctx, shiftrule.OpenShiftWindowStart(now), now)
	if err != nil {
		s.logger.Error("查询未结束班次失败", zap.Error(err))
		return nil, err
	}
	if open != nil {
		return open, nil
	}

	templates, err := s.repo.ShiftTemplate.List(ctx)
	if err != nil {
		s.logger.Error("列出班次模板失败", zap.Error(err))
		return nil, err
	}
	tpl, ok := shiftrule.MatchTemplate(templates, now.Hour())
	if !ok {
		return nil, nil
	}

	shift, err := s.repo.Shift.FindOpenByTemplateSince(ctx, tpl.ShiftTemplateID, shiftrule.LookbackBoundary(tpl, now))
	if err != nil {
		s.logger.Error("按模板查询班次失败", zap.String("template_id", tpl.ShiftTemplateID), zap.Error(err))
		return nil, err
	}
	return shift, nil
}

// ────────────────────── GetCurrent ──────────────────────

func (s *shiftService) GetCurrent(ctx context.Context, caller Caller) (*dto.CurrentShiftResponse, error) {
	if err := caller.require(CapViewLedger); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	current, err := s.ResolveCurrent(ctx)
	if err != nil {
		return nil, err
	}

	resp := &dto.CurrentShiftResponse{
		CanStartNewShift: shiftrule.CanStartNewShift(current, now, s.cfg.PreCloseHours),
	}
	if current != nil {
		resp.Shift = toShiftResponse(current)
	}

	tpl, err := s.templateForStart(ctx, now)
	if err != nil && !errors.Is(err, ErrNoActiveTemplate) {
		return nil, err
	}
	if tpl != nil {
		t := toShiftTemplateResponse(tpl)
		resp.Template = &t
	}
	return resp, nil
}

// ═══════════════════════════════════════════════════════════
// Start，开班
// ═══════════════════════════════════════════════════════════
//
// 同一事务内：关闭当前班次（结束时间取其最后一笔流水，无流水取当前时间），
// 关闭解析窗口之外遗留的未结束班次，创建新班次、备用金与初始为 0 的收入记录。

func (s *shiftService) Start(ctx context.Context, caller Caller, req *dto.StartShiftRequest) (*dto.ShiftResponse, error) {
	if err := caller.require(CapStartShift); err != nil {
		return nil, err
	}
	if req.CashFund.LessThan(minCashFund) {
		return nil, ErrInvalidCashFund
	}

	now := s.clock.Now()

	// 1. 提前量匹配模板
	tpl, err := s.templateForStart(ctx, now)
	if err != nil {
		return nil, err
	}

	// 2. 同一用户在闸门关闭时不能重复开班
	current, err := s.ResolveCurrent(ctx)
	if err != nil {
		return nil, err
	}
	if current != nil && current.UserID == caller.UserID &&
		!shiftrule.CanStartNewShift(current, now, s.cfg.PreCloseHours) {
		return nil, ErrShiftAlreadyActive
	}

	shift := &model.Shift{
		UserID:     caller.UserID,
		TemplateID: &tpl.ShiftTemplateID,
		StartTime:  now,
	}
	shift.CreatedBy = &caller.UserID

	// 3. 事务：关闭旧班次 → 关闭遗留班次 → 新班次 → 备用金 → 收入
	var staleClosed int64
	err = s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		if current != nil {
			endTime := now
			last, err := tx.Operation.LastDateByShift(ctx, current.ShiftID)
			if err != nil {
				return err
			}
			if last != nil {
				endTime = *last
			}
			if err := tx.Shift.Close(ctx, current.ShiftID, endTime); err != nil &&
				!errors.Is(err, pkgerrors.ErrConditionalUpdate) {
				return err
			}
		}

		n, err := tx.Shift.CloseStaleOpen(ctx, shiftrule.OpenShiftWindowStart(now))
		if err != nil {
			return err
		}
		staleClosed = n

		if err := tx.Shift.Create(ctx, shift); err != nil {
			return err
		}

		fund := &model.CashFund{ShiftID: shift.ShiftID, Amount: req.CashFund}
		if err := tx.CashFund.Create(ctx, fund); err != nil {
			return err
		}
		shift.CashFund = fund

		recette := &model.Recette{ShiftID: shift.ShiftID, TotalAmount: decimal.Zero, Date: now}
		if err := tx.Recette.Create(ctx, recette); err != nil {
			return err
		}
		shift.Recette = recette
		return nil
	})
	if err != nil {
		s.logger.Error("开班失败", zap.String("user_id", caller.UserID), zap.Error(err))
		return nil, err
	}

	if staleClosed > 0 {
		s.logger.Warn("已关闭遗留的未结束班次", zap.Int64("count", staleClosed))
	}
	shift.Template = tpl
	s.metrics.IncShiftStarted()
	s.logger.Info("开班成功",
		zap.String("shift_id", shift.ShiftID),
		zap.String("user_id", caller.UserID),
		zap.String("template", tpl.Name),
	)
	return toShiftResponse(shift), nil
}

// ────────────────────── End ──────────────────────

func (s *shiftService) End(ctx context.Context, caller Caller, id string) (*dto.ShiftResponse, error) {
	if err := caller.require(CapStartShift); err != nil {
		return nil, err
	}

	shift, err := s.repo.Shift.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShiftNotFound
		}
		s.logger.Error("查询班次失败", zap.String("shift_id", id), zap.Error(err))
		return nil, err
	}
	if shift.UserID != caller.UserID && !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	if shift.EndTime != nil {
		return nil, ErrShiftAlreadyEnded
	}

	now := s.clock.Now()
	if err := s.repo.Shift.Close(ctx, id, now); err != nil {
		if errors.Is(err, pkgerrors.ErrConditionalUpdate) {
			return nil, ErrShiftAlreadyEnded
		}
		s.logger.Error("结束班次失败", zap.String("shift_id", id), zap.Error(err))
		return nil, err
	}
	shift.EndTime = &now

	s.metrics.IncShiftEnded()
	return toShiftResponse(shift), nil
}

// ────────────────────── List ──────────────────────

func (s *shiftService) List(ctx context.Context, caller Caller, req *dto.ShiftListRequest) ([]dto.ShiftResponse, *repository.Cursor, error) {
	if err := caller.require(CapViewLedger); err != nil {
		return nil, nil, err
	}

	cursor, err := parseCursor(req.CursorRequest)
	if err != nil {
		return nil, nil, err
	}
	limit := pageLimit(req.CursorRequest, s.cfg.DefaultPageSize)

	shifts, err := s.repo.Shift.List(ctx, cursor, limit)
	if err != nil {
		s.logger.Error("列出班次失败", zap.Error(err))
		return nil, nil, err
	}
	shifts, next := trimPage(shifts, limit, func(sh *model.Shift) repository.Cursor {
		return repository.Cursor{Date: sh.StartTime, ID: sh.ShiftID}
	})

	result := make([]dto.ShiftResponse, 0, len(shifts))
	for i := range shifts {
		result = append(result, *toShiftResponse(&shifts[i]))
	}
	return result, next, nil
}

// ────────────────────── ListOperations ──────────────────────

func (s *shiftService) ListOperations(ctx context.Context, caller Caller, shiftID string, req *dto.EntryListRequest) ([]dto.OperationResponse, *repository.Cursor, error) {
	if err := caller.require(CapViewLedger); err != nil {
		return nil, nil, err
	}

	cursor, err := parseCursor(req.CursorRequest)
	if err != nil {
		return nil, nil, err
	}
	limit := pageLimit(req.CursorRequest, s.cfg.DefaultPageSize)

	if _, err := s.repo.Shift.GetByID(ctx, shiftID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrShiftNotFound
		}
		s.logger.Error("查询班次失败", zap.String("shift_id", shiftID), zap.Error(err))
		return nil, nil, err
	}

	ops, err := s.repo.Operation.ListByShift(ctx, shiftID, cursor, limit)
	if err != nil {
		s.logger.Error("列出班次流水失败", zap.String("shift_id", shiftID), zap.Error(err))
		return nil, nil, err
	}
	return pageOperations(ops, limit)
}

// ── 内部辅助方法 ──

// templateForStart 按当前小时加提前量匹配模板
func (s *shiftService) templateForStart(ctx context.Context, now time.Time) (*model.ShiftTemplate, error) {
	templates, err := s.repo.ShiftTemplate.List(ctx)
	if err != nil {
		s.logger.Error("列出班次模板失败", zap.Error(err))
		return nil, err
	}
	tpl, ok := shiftrule.MatchTemplate(templates, shiftrule.ShiftHour(now.Hour(), s.cfg.EarlyStartHours))
	if !ok {
		return nil, ErrNoActiveTemplate
	}
	return tpl, nil
}

func toShiftResponse(sh *model.Shift) *dto.ShiftResponse {
	resp := &dto.ShiftResponse{
		ID:        sh.ShiftID,
		UserID:    sh.UserID,
		StartTime: formatTime(sh.StartTime),
		EndTime:   formatTimePtr(sh.EndTime),
		Confirmed: sh.Confirmed,
	}
	if sh.User != nil {
		resp.UserName = sh.User.Name
	}
	if sh.Template != nil {
		t := toShiftTemplateResponse(sh.Template)
		resp.Template = &t
	}
	if sh.CashFund != nil {
		amount := sh.CashFund.Amount
		resp.CashFund = &amount
	}
	if sh.Recette != nil {
		total := sh.Recette.TotalAmount
		resp.Recette = &total
	}
	return resp
}
