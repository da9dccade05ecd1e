package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"clinic-ledger/backend/config"
	"clinic-ledger/backend/internal/dto"
	"clinic-ledger/backend/internal/model"
	"clinic-ledger/backend/internal/repository"
	"clinic-ledger/backend/pkg/clock"
	pkgerrors "clinic-ledger/backend/pkg/errors"
	"clinic-ledger/backend/pkg/metrics"
)

// ── 记账模块业务错误 ──

var (
	ErrInvalidEntryType     = errors.New("记账类型无效")
	ErrInvalidAmount        = errors.New("金额必须大于 0")
	ErrPatientRequired      = errors.New("问诊必须填写患者姓名")
	ErrLabelRequired        = errors.New("支出必须填写说明")
	ErrNotAssigned          = errors.New("你未被分配到当前班次")
	ErrConsultationNotFound = errors.New("问诊记录不存在")
	ErrCreditOutstanding    = errors.New("该问诊已有未还的赊账")
	ErrConsultationNoShift  = errors.New("该问诊未关联任何班次")
	ErrRecetteNotFound      = errors.New("该班次没有收入记录")
	ErrCreditNotFound       = errors.New("赊账记录不存在")
	ErrCreditAlreadyPaid    = errors.New("赊账已还清")
)

// 流水列表为空时的原因
const (
	ReasonNoActiveShift = "NO_ACTIVE_SHIFT"
	ReasonNotAssigned   = "NOT_ASSIGNED"
)

// EntryPage 流水分页结果
type EntryPage struct {
	Items  []dto.OperationResponse
	Next   *repository.Cursor
	Reason string
}

// EntryService 记账业务接口
type EntryService interface {
	Create(ctx context.Context, caller Caller, req *dto.CreateEntryRequest) (*dto.OperationResponse, error)
	List(ctx context.Context, caller Caller, req *dto.EntryListRequest) (*EntryPage, error)
	ListCredits(ctx context.Context, caller Caller, req *dto.EntryListRequest) ([]dto.OperationResponse, *repository.Cursor, error)
	SwitchToCredit(ctx context.Context, caller Caller, consultationID string) (*dto.CreditActionResponse, error)
	PayCredit(ctx context.Context, caller Caller, creditID string) (*dto.CreditActionResponse, error)
}

type entryService struct {
	cfg      *config.ShiftConfig
	repo     *repository.Repository
	resolver ShiftResolver
	clock    clock.Clock
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewEntryService 创建 EntryService 实例
func NewEntryService(
	cfg *config.Config,
	repo *repository.Repository,
	resolver ShiftResolver,
	clk clock.Clock,
	m *metrics.Metrics,
	logger *zap.Logger,
) EntryService {
	return &entryService{
		cfg:      &cfg.Shift,
		repo:     repo,
		resolver: resolver,
		clock:    clk,
		metrics:  m,
		logger:   logger,
	}
}

// ═══════════════════════════════════════════════════════════
// Create，记账
// ═══════════════════════════════════════════════════════════
//
// 同一事务内：流水 → 明细（问诊/支出）→ 赊账或收入累加。
// 支出不改变收入；赊账问诊不计入收入。

func (s *entryService) Create(ctx context.Context, caller Caller, req *dto.CreateEntryRequest) (*dto.OperationResponse, error) {
	if err := caller.require(CapPostEntry); err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	patient := strings.TrimSpace(req.Patient)
	label := strings.TrimSpace(req.Label)
	consultationType := req.ConsultationType
	switch req.EntryType {
	case model.OperationTypeConsultation:
		if patient == "" {
			return nil, ErrPatientRequired
		}
		if consultationType == "" {
			consultationType = model.ConsultationTypeConsultation
		}
		label = patient
	case model.OperationTypeDepense:
		if label == "" {
			return nil, ErrLabelRequired
		}
	default:
		return nil, ErrInvalidEntryType
	}

	shift, err := s.resolver.ResolveCurrent(ctx)
	if err != nil {
		return nil, err
	}
	if shift == nil {
		return nil, ErrNoActiveShift
	}
	if err := s.authorizeShift(ctx, caller, shift); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	op := &model.Operation{
		Date:    now,
		ShiftID: shift.ShiftID,
		Amount:  req.Amount,
		Type:    req.EntryType,
		Label:   label,
		UserID:  caller.UserID,
	}

	err = s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Operation.Create(ctx, op); err != nil {
			return err
		}

		switch req.EntryType {
		case model.OperationTypeConsultation:
			c := &model.Consultation{
				OperationID: op.OperationID,
				ShiftID:     &shift.ShiftID,
				Date:        now,
				Patient:     patient,
				Amount:      req.Amount,
				Type:        consultationType,
			}
			if err := tx.Consultation.Create(ctx, c); err != nil {
				return err
			}
			op.Consultation = c

			if req.Credit {
				credit := &model.Credit{
					ConsultationID: c.ConsultationID,
					UserID:         caller.UserID,
					Amount:         req.Amount,
					Date:           now,
					IsPaid:         false,
				}
				if err := tx.Credit.Upsert(ctx, credit); err != nil {
					return err
				}
				c.Credit = credit
				return nil
			}
			return addToRecette(ctx, tx, shift.ShiftID, req.Amount)

		case model.OperationTypeDepense:
			d := &model.Depense{
				OperationID: op.OperationID,
				ShiftID:     shift.ShiftID,
				Date:        now,
				Label:       label,
				Amount:      req.Amount,
			}
			if err := tx.Depense.Create(ctx, d); err != nil {
				return err
			}
			op.Depense = d
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrRecetteNotFound) {
			return nil, err
		}
		s.logger.Error("记账失败",
			zap.String("shift_id", shift.ShiftID),
			zap.String("type", req.EntryType),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.IncEntryPosted(req.EntryType)
	return toOperationResponse(op), nil
}

// ────────────────────── List ──────────────────────

// List 当前班次流水 + 全部未还赊账流水
// 无当前班次或未被分配时返回空列表及原因
func (s *entryService) List(ctx context.Context, caller Caller, req *dto.EntryListRequest) (*EntryPage, error) {
	if err := caller.require(CapViewLedger); err != nil {
		return nil, err
	}

	cursor, err := parseCursor(req.CursorRequest)
	if err != nil {
		return nil, err
	}
	limit := pageLimit(req.CursorRequest, s.cfg.DefaultPageSize)

	shift, err := s.resolver.ResolveCurrent(ctx)
	if err != nil {
		return nil, err
	}
	if shift == nil {
		return &EntryPage{Items: []dto.OperationResponse{}, Reason: ReasonNoActiveShift}, nil
	}
	if err := s.authorizeShift(ctx, caller, shift); err != nil {
		if errors.Is(err, ErrNotAssigned) {
			return &EntryPage{Items: []dto.OperationResponse{}, Reason: ReasonNotAssigned}, nil
		}
		return nil, err
	}

	ops, err := s.repo.Operation.ListLedger(ctx, shift.ShiftID, cursor, limit)
	if err != nil {
		s.logger.Error("列出流水失败", zap.String("shift_id", shift.ShiftID), zap.Error(err))
		return nil, err
	}
	items, next, err := pageOperations(ops, limit)
	if err != nil {
		return nil, err
	}
	return &EntryPage{Items: items, Next: next}, nil
}

// ────────────────────── ListCredits ──────────────────────

func (s *entryService) ListCredits(ctx context.Context, caller Caller, req *dto.EntryListRequest) ([]dto.OperationResponse, *repository.Cursor, error) {
	if err := caller.require(CapViewLedger); err != nil {
		return nil, nil, err
	}

	cursor, err := parseCursor(req.CursorRequest)
	if err != nil {
		return nil, nil, err
	}
	limit := pageLimit(req.CursorRequest, s.cfg.DefaultPageSize)

	ops, err := s.repo.Operation.ListWithCredit(ctx, cursor, limit)
	if err != nil {
		s.logger.Error("列出赊账流水失败", zap.Error(err))
		return nil, nil, err
	}
	return pageOperations(ops, limit)
}

// ═══════════════════════════════════════════════════════════
// SwitchToCredit，已收款问诊转为赊账
// ═══════════════════════════════════════════════════════════

func (s *entryService) SwitchToCredit(ctx context.Context, caller Caller, consultationID string) (*dto.CreditActionResponse, error) {
	if err := caller.require(CapResolveCredit); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var shiftID string

	err := s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		// 1. 锁定问诊行
		c, err := tx.Consultation.GetForUpdate(ctx, consultationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrConsultationNotFound
			}
			return err
		}
		if c.Credit != nil && !c.Credit.IsPaid {
			return ErrCreditOutstanding
		}
		if c.ShiftID == nil {
			return ErrConsultationNoShift
		}
		shiftID = *c.ShiftID

		// 2. 所属班次必须有收入记录
		recette, err := tx.Recette.FindByShift(ctx, shiftID)
		if err != nil {
			return err
		}
		if recette == nil {
			return ErrRecetteNotFound
		}

		// 3. 每个问诊至多一条赊账
		credit := &model.Credit{
			ConsultationID: c.ConsultationID,
			UserID:         caller.UserID,
			Amount:         c.Amount,
			Date:           now,
			IsPaid:         false,
		}
		if err := tx.Credit.Upsert(ctx, credit); err != nil {
			return err
		}

		// 4. 收入回退
		return addToRecette(ctx, tx, shiftID, c.Amount.Neg())
	})
	if err != nil {
		if isEntryDomainError(err) {
			return nil, err
		}
		s.logger.Error("转赊账失败", zap.String("consultation_id", consultationID), zap.Error(err))
		return nil, err
	}

	s.metrics.IncCreditSwitched()
	return &dto.CreditActionResponse{ShiftID: shiftID}, nil
}

// ═══════════════════════════════════════════════════════════
// PayCredit，还款，计入当前班次
// ═══════════════════════════════════════════════════════════
//
// 条件更新 is_paid=false → true 保证同一赊账只计入一次收入。

func (s *entryService) PayCredit(ctx context.Context, caller Caller, creditID string) (*dto.CreditActionResponse, error) {
	if err := caller.require(CapResolveCredit); err != nil {
		return nil, err
	}

	shift, err := s.resolver.ResolveCurrent(ctx)
	if err != nil {
		return nil, err
	}
	if shift == nil || shift.Recette == nil {
		return nil, ErrNoActiveShift
	}

	now := s.clock.Now()
	err = s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		credit, err := tx.Credit.GetByID(ctx, creditID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCreditNotFound
			}
			return err
		}
		if credit.IsPaid {
			return ErrCreditAlreadyPaid
		}
		if credit.Consultation == nil {
			return ErrConsultationNotFound
		}

		if err := tx.Credit.MarkPaid(ctx, creditID, now, caller.UserID); err != nil {
			if errors.Is(err, pkgerrors.ErrConditionalUpdate) {
				return ErrCreditAlreadyPaid
			}
			return err
		}

		// 问诊与流水改挂到当前班次，流水时间更新为还款时间
		if err := tx.Consultation.Reassign(ctx, credit.ConsultationID, shift.ShiftID); err != nil {
			return err
		}
		if err := tx.Operation.Reassign(ctx, credit.Consultation.OperationID, shift.ShiftID, now); err != nil {
			return err
		}

		return addToRecette(ctx, tx, shift.ShiftID, credit.Amount)
	})
	if err != nil {
		if isEntryDomainError(err) {
			return nil, err
		}
		s.logger.Error("还款失败", zap.String("credit_id", creditID), zap.Error(err))
		return nil, err
	}

	s.metrics.IncCreditPaid()
	return &dto.CreditActionResponse{ShiftID: shift.ShiftID}, nil
}

// ── 内部辅助方法 ──

// authorizeShift 普通用户必须被分配到班次所属模板
func (s *entryService) authorizeShift(ctx context.Context, caller Caller, shift *model.Shift) error {
	if caller.IsAdmin() {
		return nil
	}
	if shift.TemplateID == nil {
		return ErrNotAssigned
	}
	ok, err := s.repo.User.IsAssigned(ctx, caller.UserID, *shift.TemplateID)
	if err != nil {
		s.logger.Error("查询模板分配失败", zap.String("user_id", caller.UserID), zap.Error(err))
		return err
	}
	if !ok {
		return ErrNotAssigned
	}
	return nil
}

// addToRecette 收入原子增减，收入记录缺失时返回 ErrRecetteNotFound
func addToRecette(ctx context.Context, tx *repository.Repository, shiftID string, delta decimal.Decimal) error {
	if err := tx.Recette.AddAmount(ctx, shiftID, delta); err != nil {
		if errors.Is(err, pkgerrors.ErrConditionalUpdate) {
			return ErrRecetteNotFound
		}
		return err
	}
	return nil
}

func isEntryDomainError(err error) bool {
	for _, target := range []error{
		ErrConsultationNotFound, ErrCreditOutstanding, ErrConsultationNoShift,
		ErrRecetteNotFound, ErrCreditNotFound, ErrCreditAlreadyPaid,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// pageOperations 截取分页并转换为响应
func pageOperations(ops []model.Operation, limit int) ([]dto.OperationResponse, *repository.Cursor, error) {
	ops, next := trimPage(ops, limit, func(op *model.Operation) repository.Cursor {
		return repository.Cursor{Date: op.Date, ID: op.OperationID}
	})
	items := make([]dto.OperationResponse, 0, len(ops))
	for i := range ops {
		items = append(items, *toOperationResponse(&ops[i]))
	}
	return items, next, nil
}

func toOperationResponse(op *model.Operation) *dto.OperationResponse {
	resp := &dto.OperationResponse{
		ID:      op.OperationID,
		Date:    formatTime(op.Date),
		ShiftID: op.ShiftID,
		Amount:  op.Amount,
		Type:    op.Type,
		Label:   op.Label,
		UserID:  op.UserID,
	}
	if op.User != nil {
		resp.UserName = op.User.Name
	}
	if c := op.Consultation; c != nil {
		resp.Consultation = &dto.ConsultationResponse{
			ID:      c.ConsultationID,
			Patient: c.Patient,
			Amount:  c.Amount,
			Type:    c.Type,
		}
		if cr := c.Credit; cr != nil {
			resp.Consultation.Credit = &dto.CreditResponse{
				ID:     cr.CreditID,
				Amount: cr.Amount,
				Date:   formatTime(cr.Date),
				IsPaid: cr.IsPaid,
				PaidAt: formatTimePtr(cr.PaidAt),
			}
		}
	}
	if d := op.Depense; d != nil {
		resp.Depense = &dto.DepenseResponse{
			ID:     d.DepenseID,
			Label:  d.Label,
			Amount: d.Amount,
		}
	}
	return resp
}
