package service

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"clinic-ledger/backend/internal/dto"
	"clinic-ledger/backend/internal/model"
	"clinic-ledger/backend/internal/repository"
)

// SummaryService 汇总业务接口
type SummaryService interface {
	// Activity 当前班次汇总，无当前班次时返回 (nil, nil)
	Activity(ctx context.Context, caller Caller) (*dto.ActivitySummaryResponse, error)
	Dashboard(ctx context.Context, caller Caller) (*dto.DashboardSummaryResponse, error)
	Chart(ctx context.Context, caller Caller) (*dto.ChartSummaryResponse, error)
}

type summaryService struct {
	repo     *repository.Repository
	resolver ShiftResolver
	logger   *zap.Logger
}

// NewSummaryService 创建 SummaryService 实例
func NewSummaryService(repo *repository.Repository, resolver ShiftResolver, logger *zap.Logger) SummaryService {
	return &summaryService{repo: repo, resolver: resolver, logger: logger}
}

// ────────────────────── Activity ──────────────────────
//
// balance        = 收入 − 支出
// netProfit      = 收入 + 已还赊账 − 支出
// expectedProfit = netProfit + 未还赊账

func (s *summaryService) Activity(ctx context.Context, caller Caller) (*dto.ActivitySummaryResponse, error) {
	if err := caller.require(CapViewLedger); err != nil {
		return nil, err
	}

	shift, err := s.resolver.ResolveCurrent(ctx)
	if err != nil {
		return nil, err
	}
	if shift == nil {
		return nil, nil
	}

	var (
		depenses, creditsAdded, creditsPaid decimal.Decimal
		consultations                       int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		depenses, err = s.repo.Depense.SumByShift(gctx, shift.ShiftID)
		return err
	})
	g.Go(func() (err error) {
		creditsAdded, err = s.repo.Credit.SumUnpaidByShift(gctx, shift.ShiftID)
		return err
	})
	g.Go(func() (err error) {
		creditsPaid, err = s.repo.Credit.SumPaidByShift(gctx, shift.ShiftID)
		return err
	})
	g.Go(func() (err error) {
		consultations, err = s.repo.Consultation.CountByShift(gctx, shift.ShiftID)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("班次汇总失败", zap.String("shift_id", shift.ShiftID), zap.Error(err))
		return nil, err
	}

	recettes := decimal.Zero
	if shift.Recette != nil {
		recettes = shift.Recette.TotalAmount
	}
	name := shift.StartTime.Format("2006-01-02")
	if shift.Template != nil {
		name = shift.Template.Name
	}

	netProfit := recettes.Add(creditsPaid).Sub(depenses)
	return &dto.ActivitySummaryResponse{
		ShiftID:            shift.ShiftID,
		ShiftName:          name,
		StartTime:          formatTime(shift.StartTime),
		EndTime:            formatTimePtr(shift.EndTime),
		ConsultationsCount: consultations,
		TotalRecettes:      recettes,
		TotalDepenses:      depenses,
		Balance:            recettes.Sub(depenses),
		CreditsAdded:       creditsAdded,
		CreditsPaid:        creditsPaid,
		NetProfit:          netProfit,
		ExpectedProfit:     netProfit.Add(creditsAdded),
	}, nil
}

// ────────────────────── Dashboard ──────────────────────

func (s *summaryService) Dashboard(ctx context.Context, caller Caller) (*dto.DashboardSummaryResponse, error) {
	if err := caller.require(CapViewDashboard); err != nil {
		return nil, err
	}

	var revenue, depenses, unpaid, paid decimal.Decimal
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		revenue, err = s.repo.Recette.SumAll(gctx)
		return err
	})
	g.Go(func() (err error) {
		depenses, err = s.repo.Depense.SumAll(gctx)
		return err
	})
	g.Go(func() (err error) {
		unpaid, err = s.repo.Credit.SumByStatus(gctx, false)
		return err
	})
	g.Go(func() (err error) {
		paid, err = s.repo.Credit.SumByStatus(gctx, true)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("全局汇总失败", zap.Error(err))
		return nil, err
	}

	netProfit := revenue.Add(paid).Sub(depenses)
	return &dto.DashboardSummaryResponse{
		RevenueTotal:   revenue,
		DepensesTotal:  depenses,
		CreditsUnpaid:  unpaid,
		CreditsPaid:    paid,
		NetProfit:      netProfit,
		ExpectedProfit: netProfit.Add(unpaid),
	}, nil
}

// ────────────────────── Chart ──────────────────────

func (s *summaryService) Chart(ctx context.Context, caller Caller) (*dto.ChartSummaryResponse, error) {
	if err := caller.require(CapViewLedger); err != nil {
		return nil, err
	}

	var (
		byType          map[string]int64
		unpaid, depense int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		byType, err = s.repo.Consultation.CountByType(gctx)
		return err
	})
	g.Go(func() (err error) {
		unpaid, err = s.repo.Credit.CountUnpaid(gctx)
		return err
	})
	g.Go(func() (err error) {
		depense, err = s.repo.Depense.Count(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("图表统计失败", zap.Error(err))
		return nil, err
	}

	return &dto.ChartSummaryResponse{
		Consultations: byType[model.ConsultationTypeConsultation],
		Bilans:        byType[model.ConsultationTypeBilan],
		UnpaidCredits: unpaid,
		Depenses:      depense,
	}, nil
}
