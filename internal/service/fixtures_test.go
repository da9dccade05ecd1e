package service

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"clinic-ledger/backend/config"
	"clinic-ledger/backend/internal/model"
	"clinic-ledger/backend/internal/repository"
	"clinic-ledger/backend/pkg/clock"
	"clinic-ledger/backend/pkg/jwt"
)

// ── 测试辅助 ──

// 固定偏移时区，避免依赖宿主机 tzdata
var testLoc = time.FixedZone("CET", 3600)

// at 2026-03-<day> hour:minute（业务时区）
func at(day, hour, minute int) time.Time {
	return time.Date(2026, time.March, day, hour, minute, 0, 0, testLoc)
}

const testPassword = "password123"

type testEnv struct {
	store     *memStore
	repo      *repository.Repository
	clock     *clock.Fake
	cfg       *config.Config
	jwtMgr    *jwt.Manager
	auth      AuthService
	users     UserService
	templates ShiftTemplateService
	shifts    ShiftService
	entries   EntryService
	summary   SummaryService
	export    ExportService
}

func newTestConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:       "test-secret-key-for-unit-tests",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 720 * time.Hour,
		},
		Shift: config.ShiftConfig{
			EarlyStartHours: 1,
			PreCloseHours:   1,
			DefaultPageSize: 20,
		},
	}
}

func setupTestEnv(now time.Time) *testEnv {
	store := newMemStore()
	clk := clock.NewFake(now)
	store.clock = clk.Now

	repo := newMockRepository(store)
	cfg := newTestConfig()
	jwtMgr := jwt.NewManager(&cfg.Auth)
	logger := zap.NewNop()

	svc := NewService(cfg, repo, jwtMgr, nil, clk, nil, logger)
	return &testEnv{
		store:     store,
		repo:      repo,
		clock:     clk,
		cfg:       cfg,
		jwtMgr:    jwtMgr,
		auth:      svc.Auth,
		users:     svc.User,
		templates: svc.ShiftTemplate,
		shifts:    svc.Shift,
		entries:   svc.Entry,
		summary:   svc.Summary,
		export:    svc.Export,
	}
}

// seedDefaultTemplates 写入 Matin 08–16、Soir 16–00、Nuit 00–08
func (e *testEnv) seedDefaultTemplates() {
	for _, t := range []model.ShiftTemplate{
		{ShiftTemplateID: "tpl-matin", Name: "Matin", StartHour: 8, EndHour: 16, Type: "MORNING"},
		{ShiftTemplateID: "tpl-soir", Name: "Soir", StartHour: 16, EndHour: 0, Type: "EVENING"},
		{ShiftTemplateID: "tpl-nuit", Name: "Nuit", StartHour: 0, EndHour: 8, Type: "NIGHT"},
	} {
		t.Version = 1
		e.store.templates[t.ShiftTemplateID] = t
	}
}

// seedUser 写入已激活用户并分配模板，返回对应的调用方
func (e *testEnv) seedUser(id, role string, templateIDs ...string) Caller {
	hash, _ := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	u := model.User{
		UserID:       id,
		Name:         "用户 " + id,
		Email:        id + "@clinic.test",
		PasswordHash: string(hash),
		Role:         role,
		Activated:    true,
	}
	u.CreatedAt = e.clock.Now()
	u.Version = 1
	e.store.users[id] = u
	set := make(map[string]bool, len(templateIDs))
	for _, tid := range templateIDs {
		set[tid] = true
	}
	e.store.assignments[id] = set
	return Caller{UserID: id, Role: role}
}

// seedShift 写入未结束班次及其备用金、收入
func (e *testEnv) seedShift(id, owner, templateID string, start time.Time, recette int64) {
	sh := model.Shift{ShiftID: id, UserID: owner, StartTime: start}
	if templateID != "" {
		tid := templateID
		sh.TemplateID = &tid
	}
	e.store.shifts[id] = sh
	e.store.cashFunds[id] = model.CashFund{CashFundID: "fund-" + id, ShiftID: id, Amount: decimal.NewFromInt(500)}
	e.store.recettes[id] = model.Recette{
		RecetteID:   "recette-" + id,
		ShiftID:     id,
		TotalAmount: decimal.NewFromInt(recette),
		Date:        start,
	}
}

// closeShift 将班次标记为已结束
func (e *testEnv) closeShift(id string, end time.Time) {
	sh := e.store.shifts[id]
	sh.EndTime = &end
	e.store.shifts[id] = sh
}

// seedUnpaidCredit 在指定班次写入一笔未还赊账问诊，返回 credit_id
func (e *testEnv) seedUnpaidCredit(shiftID, userID string, amount int64, date time.Time) (creditID, consultationID, operationID string) {
	operationID = "op-seed-" + shiftID
	consultationID = "consult-seed-" + shiftID
	creditID = "credit-seed-" + shiftID
	amt := decimal.NewFromInt(amount)
	sid := shiftID

	e.store.operations[operationID] = model.Operation{
		OperationID: operationID, Date: date, ShiftID: shiftID, Amount: amt,
		Type: model.OperationTypeConsultation, Label: "Patient crédit", UserID: userID,
	}
	e.store.consultations[consultationID] = model.Consultation{
		ConsultationID: consultationID, OperationID: operationID, ShiftID: &sid, Date: date,
		Patient: "Patient crédit", Amount: amt, Type: model.ConsultationTypeConsultation,
	}
	e.store.credits[creditID] = model.Credit{
		CreditID: creditID, ConsultationID: consultationID, UserID: userID, Amount: amt, Date: date,
	}
	return creditID, consultationID, operationID
}

func (e *testEnv) recette(shiftID string) decimal.Decimal {
	return e.store.recettes[shiftID].TotalAmount
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }
