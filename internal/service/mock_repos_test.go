package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"clinic-ledger/backend/internal/model"
	"clinic-ledger/backend/internal/repository"
	pkgerrors "clinic-ledger/backend/pkg/errors"
)

// ── 内存存储 ──
//
// 所有 mock repo 共享同一个 memStore；mockTransactor 在 fn 返回错误时恢复快照。

type memStore struct {
	mu sync.Mutex

	users         map[string]model.User
	assignments   map[string]map[string]bool // user_id → shift_template_id
	templates     map[string]model.ShiftTemplate
	shifts        map[string]model.Shift
	cashFunds     map[string]model.CashFund // shift_id →
	recettes      map[string]model.Recette  // shift_id →
	operations    map[string]model.Operation
	consultations map[string]model.Consultation
	credits       map[string]model.Credit
	depenses      map[string]model.Depense

	seq   int
	fail  map[string]error // "Repo.Method" → 注入的错误
	clock func() time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users:         make(map[string]model.User),
		assignments:   make(map[string]map[string]bool),
		templates:     make(map[string]model.ShiftTemplate),
		shifts:        make(map[string]model.Shift),
		cashFunds:     make(map[string]model.CashFund),
		recettes:      make(map[string]model.Recette),
		operations:    make(map[string]model.Operation),
		consultations: make(map[string]model.Consultation),
		credits:       make(map[string]model.Credit),
		depenses:      make(map[string]model.Depense),
		fail:          make(map[string]error),
		clock:         time.Now,
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%03d", prefix, s.seq)
}

func (s *memStore) failure(key string) error {
	return s.fail[key]
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) snapshot() *memStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	assignments := make(map[string]map[string]bool, len(s.assignments))
	for k, v := range s.assignments {
		assignments[k] = cloneMap(v)
	}
	return &memStore{
		users:         cloneMap(s.users),
		assignments:   assignments,
		templates:     cloneMap(s.templates),
		shifts:        cloneMap(s.shifts),
		cashFunds:     cloneMap(s.cashFunds),
		recettes:      cloneMap(s.recettes),
		operations:    cloneMap(s.operations),
		consultations: cloneMap(s.consultations),
		credits:       cloneMap(s.credits),
		depenses:      cloneMap(s.depenses),
	}
}

func (s *memStore) restore(snap *memStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.assignments = snap.assignments
	s.templates = snap.templates
	s.shifts = snap.shifts
	s.cashFunds = snap.cashFunds
	s.recettes = snap.recettes
	s.operations = snap.operations
	s.consultations = snap.consultations
	s.credits = snap.credits
	s.depenses = snap.depenses
}

// newMockRepository 组装基于 memStore 的 Repository
func newMockRepository(s *memStore) *repository.Repository {
	return &repository.Repository{
		Tx:            &mockTransactor{s: s},
		User:          &mockUserRepo{s: s},
		ShiftTemplate: &mockShiftTemplateRepo{s: s},
		Shift:         &mockShiftRepo{s: s},
		CashFund:      &mockCashFundRepo{s: s},
		Recette:       &mockRecetteRepo{s: s},
		Operation:     &mockOperationRepo{s: s},
		Consultation:  &mockConsultationRepo{s: s},
		Credit:        &mockCreditRepo{s: s},
		Depense:       &mockDepenseRepo{s: s},
	}
}

// mockKeyset 按 (时间 DESC, ID DESC) 排序并应用游标，返回最多 limit+1 条
func mockKeyset[T any](rows []T, key func(*T) (time.Time, string), cursor *repository.Cursor, limit int) []T {
	sort.Slice(rows, func(i, j int) bool {
		ti, ii := key(&rows[i])
		tj, ij := key(&rows[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return ii > ij
	})
	out := make([]T, 0, len(rows))
	for i := range rows {
		t, id := key(&rows[i])
		if cursor != nil && !(t.Before(cursor.Date) || (t.Equal(cursor.Date) && id < cursor.ID)) {
			continue
		}
		out = append(out, rows[i])
		if len(out) == limit+1 {
			break
		}
	}
	return out
}

// ── Mock Transactor ──

type mockTransactor struct {
	s *memStore
}

func (m *mockTransactor) Transaction(_ context.Context, fn func(tx *repository.Repository) error) error {
	snap := m.s.snapshot()
	if err := fn(newMockRepository(m.s)); err != nil {
		m.s.restore(snap)
		return err
	}
	return nil
}

// ── Mock UserRepository ──

type mockUserRepo struct {
	s *memStore
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if u.Email == user.Email {
			return errors.New("duplicate key value violates unique constraint \"idx_users_email\"")
		}
	}
	if user.UserID == "" {
		user.UserID = m.s.nextID("user")
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = m.s.clock()
	}
	stored := *user
	stored.ShiftTemplates = nil
	m.s.users[user.UserID] = stored
	return nil
}

func (m *mockUserRepo) withTemplates(u model.User) *model.User {
	u.ShiftTemplates = nil
	for tplID := range m.s.assignments[u.UserID] {
		if tpl, ok := m.s.templates[tplID]; ok {
			u.ShiftTemplates = append(u.ShiftTemplates, tpl)
		}
	}
	sort.Slice(u.ShiftTemplates, func(i, j int) bool {
		return u.ShiftTemplates[i].StartHour < u.ShiftTemplates[j].StartHour
	})
	return &u
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if u, ok := m.s.users[id]; ok {
		return m.withTemplates(u), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if u.Email == email {
			return m.withTemplates(u), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	stored := *user
	stored.ShiftTemplates = nil
	m.s.users[user.UserID] = stored
	return nil
}

func (m *mockUserRepo) ListByRole(_ context.Context, role string, cursor *repository.Cursor, limit int) ([]model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var rows []model.User
	for _, u := range m.s.users {
		if u.Role == role {
			rows = append(rows, *m.withTemplates(u))
		}
	}
	return mockKeyset(rows, func(u *model.User) (time.Time, string) { return u.CreatedAt, u.UserID }, cursor, limit), nil
}

func (m *mockUserRepo) ReplaceTemplates(_ context.Context, user *model.User, templates []model.ShiftTemplate) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	set := make(map[string]bool, len(templates))
	for _, t := range templates {
		set[t.ShiftTemplateID] = true
	}
	m.s.assignments[user.UserID] = set
	return nil
}

func (m *mockUserRepo) IsAssigned(_ context.Context, userID, templateID string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.s.assignments[userID][templateID], nil
}

// ── Mock ShiftTemplateRepository ──

type mockShiftTemplateRepo struct {
	s *memStore
}

func (m *mockShiftTemplateRepo) Create(_ context.Context, tpl *model.ShiftTemplate) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if tpl.ShiftTemplateID == "" {
		tpl.ShiftTemplateID = m.s.nextID("tpl")
	}
	if tpl.Version == 0 {
		tpl.Version = 1
	}
	m.s.templates[tpl.ShiftTemplateID] = *tpl
	return nil
}

func (m *mockShiftTemplateRepo) GetByID(_ context.Context, id string) (*model.ShiftTemplate, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if t, ok := m.s.templates[id]; ok {
		return &t, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockShiftTemplateRepo) List(_ context.Context) ([]model.ShiftTemplate, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.failure("ShiftTemplate.List"); err != nil {
		return nil, err
	}
	var result []model.ShiftTemplate
	for _, t := range m.s.templates {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartHour < result[j].StartHour })
	return result, nil
}

func (m *mockShiftTemplateRepo) ListByIDs(_ context.Context, ids []string) ([]model.ShiftTemplate, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.ShiftTemplate
	for _, id := range ids {
		if t, ok := m.s.templates[id]; ok {
			result = append(result, t)
		}
	}
	return result, nil
}

func (m *mockShiftTemplateRepo) Update(_ context.Context, tpl *model.ShiftTemplate) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cur, ok := m.s.templates[tpl.ShiftTemplateID]
	if !ok || cur.Version != tpl.Version {
		return pkgerrors.ErrOptimisticLock
	}
	tpl.Version++
	m.s.templates[tpl.ShiftTemplateID] = *tpl
	return nil
}

func (m *mockShiftTemplateRepo) Delete(_ context.Context, id, _ string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.templates[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.s.templates, id)
	return nil
}

// ── Mock ShiftRepository ──

type mockShiftRepo struct {
	s *memStore
}

// hydrate 模拟 Preload("Template", "CashFund", "Recette", "User")
func (m *mockShiftRepo) hydrate(sh model.Shift) *model.Shift {
	sh.Template, sh.CashFund, sh.Recette, sh.User = nil, nil, nil, nil
	if sh.TemplateID != nil {
		if t, ok := m.s.templates[*sh.TemplateID]; ok {
			sh.Template = &t
		}
	}
	if f, ok := m.s.cashFunds[sh.ShiftID]; ok {
		sh.CashFund = &f
	}
	if r, ok := m.s.recettes[sh.ShiftID]; ok {
		sh.Recette = &r
	}
	if u, ok := m.s.users[sh.UserID]; ok {
		sh.User = &u
	}
	return &sh
}

func (m *mockShiftRepo) Create(_ context.Context, shift *model.Shift) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.failure("Shift.Create"); err != nil {
		return err
	}
	if shift.ShiftID == "" {
		shift.ShiftID = m.s.nextID("shift")
	}
	stored := *shift
	stored.Template, stored.CashFund, stored.Recette, stored.User = nil, nil, nil, nil
	m.s.shifts[shift.ShiftID] = stored
	return nil
}

func (m *mockShiftRepo) GetByID(_ context.Context, id string) (*model.Shift, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if sh, ok := m.s.shifts[id]; ok {
		return m.hydrate(sh), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockShiftRepo) newestOpen(match func(*model.Shift) bool) *model.Shift {
	var best *model.Shift
	for _, sh := range m.s.shifts {
		sh := sh
		if sh.EndTime != nil || !match(&sh) {
			continue
		}
		if best == nil || sh.StartTime.After(best.StartTime) {
			best = &sh
		}
	}
	if best == nil {
		return nil
	}
	return m.hydrate(*best)
}

func (m *mockShiftRepo) FindOpenBetween(_ context.Context, from, to time.Time) (*model.Shift, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.newestOpen(func(sh *model.Shift) bool {
		return !sh.StartTime.Before(from) && !sh.StartTime.After(to)
	}), nil
}

func (m *mockShiftRepo) FindOpenByTemplateSince(_ context.Context, templateID string, since time.Time) (*model.Shift, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.newestOpen(func(sh *model.Shift) bool {
		return sh.TemplateID != nil && *sh.TemplateID == templateID && !sh.StartTime.Before(since)
	}), nil
}

func (m *mockShiftRepo) Close(_ context.Context, id string, endTime time.Time) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	sh, ok := m.s.shifts[id]
	if !ok || sh.EndTime != nil {
		return pkgerrors.ErrConditionalUpdate
	}
	sh.EndTime = &endTime
	m.s.shifts[id] = sh
	return nil
}

func (m *mockShiftRepo) CloseStaleOpen(_ context.Context, before time.Time) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.failure("Shift.CloseStaleOpen"); err != nil {
		return 0, err
	}
	var n int64
	for id, sh := range m.s.shifts {
		if sh.EndTime != nil || !sh.StartTime.Before(before) {
			continue
		}
		end := sh.StartTime
		for _, op := range m.s.operations {
			if op.ShiftID == id && op.Date.After(end) {
				end = op.Date
			}
		}
		sh.EndTime = &end
		m.s.shifts[id] = sh
		n++
	}
	return n, nil
}

func (m *mockShiftRepo) List(_ context.Context, cursor *repository.Cursor, limit int) ([]model.Shift, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var rows []model.Shift
	for _, sh := range m.s.shifts {
		rows = append(rows, *m.hydrate(sh))
	}
	return mockKeyset(rows, func(sh *model.Shift) (time.Time, string) { return sh.StartTime, sh.ShiftID }, cursor, limit), nil
}

func (m *mockShiftRepo) ListBetween(_ context.Context, from, to time.Time) ([]model.Shift, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var rows []model.Shift
	for _, sh := range m.s.shifts {
		if !sh.StartTime.Before(from) && sh.StartTime.Before(to) {
			rows = append(rows, *m.hydrate(sh))
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].StartTime.Before(rows[j].StartTime) })
	return rows, nil
}

// ── Mock CashFund / Recette ──

type mockCashFundRepo struct {
	s *memStore
}

func (m *mockCashFundRepo) Create(_ context.Context, fund *model.CashFund) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if fund.CashFundID == "" {
		fund.CashFundID = m.s.nextID("fund")
	}
	m.s.cashFunds[fund.ShiftID] = *fund
	return nil
}

type mockRecetteRepo struct {
	s *memStore
}

func (m *mockRecetteRepo) Create(_ context.Context, recette *model.Recette) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.failure("Recette.Create"); err != nil {
		return err
	}
	if recette.RecetteID == "" {
		recette.RecetteID = m.s.nextID("recette")
	}
	m.s.recettes[recette.ShiftID] = *recette
	return nil
}

func (m *mockRecetteRepo) FindByShift(_ context.Context, shiftID string) (*model.Recette, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if r, ok := m.s.recettes[shiftID]; ok {
		return &r, nil
	}
	return nil, nil
}

func (m *mockRecetteRepo) AddAmount(_ context.Context, shiftID string, delta decimal.Decimal) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.failure("Recette.AddAmount"); err != nil {
		return err
	}
	r, ok := m.s.recettes[shiftID]
	if !ok {
		return pkgerrors.ErrConditionalUpdate
	}
	r.TotalAmount = r.TotalAmount.Add(delta)
	m.s.recettes[shiftID] = r
	return nil
}

func (m *mockRecetteRepo) SumAll(_ context.Context) (decimal.Decimal, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	total := decimal.Zero
	for _, r := range m.s.recettes {
		total = total.Add(r.TotalAmount)
	}
	return total, nil
}

// ── Mock OperationRepository ──

type mockOperationRepo struct {
	s *memStore
}

// hydrate 模拟 Preload("User", "Consultation.Credit", "Depense")
func (m *mockOperationRepo) hydrate(op model.Operation) model.Operation {
	op.User, op.Consultation, op.Depense, op.Shift = nil, nil, nil, nil
	if u, ok := m.s.users[op.UserID]; ok {
		op.User = &u
	}
	for _, c := range m.s.consultations {
		if c.OperationID == op.OperationID {
			c := c
			c.Credit = nil
			for _, cr := range m.s.credits {
				if cr.ConsultationID == c.ConsultationID {
					cr := cr
					c.Credit = &cr
				}
			}
			op.Consultation = &c
		}
	}
	for _, d := range m.s.depenses {
		if d.OperationID == op.OperationID {
			d := d
			op.Depense = &d
		}
	}
	return op
}

func (m *mockOperationRepo) Create(_ context.Context, op *model.Operation) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.failure("Operation.Create"); err != nil {
		return err
	}
	if op.OperationID == "" {
		op.OperationID = m.s.nextID("op")
	}
	stored := *op
	stored.User, stored.Consultation, stored.Depense, stored.Shift = nil, nil, nil, nil
	m.s.operations[op.OperationID] = stored
	return nil
}

func (m *mockOperationRepo) GetByID(_ context.Context, id string) (*model.Operation, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if op, ok := m.s.operations[id]; ok {
		h := m.hydrate(op)
		return &h, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockOperationRepo) LastDateByShift(_ context.Context, shiftID string) (*time.Time, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var last *time.Time
	for _, op := range m.s.operations {
		if op.ShiftID != shiftID {
			continue
		}
		if last == nil || op.Date.After(*last) {
			d := op.Date
			last = &d
		}
	}
	return last, nil
}

func (m *mockOperationRepo) list(match func(*model.Operation) bool, cursor *repository.Cursor, limit int) []model.Operation {
	var rows []model.Operation
	for _, op := range m.s.operations {
		h := m.hydrate(op)
		if match(&h) {
			rows = append(rows, h)
		}
	}
	return mockKeyset(rows, func(op *model.Operation) (time.Time, string) { return op.Date, op.OperationID }, cursor, limit)
}

func (m *mockOperationRepo) ListByShift(_ context.Context, shiftID string, cursor *repository.Cursor, limit int) ([]model.Operation, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.list(func(op *model.Operation) bool { return op.ShiftID == shiftID }, cursor, limit), nil
}

func (m *mockOperationRepo) ListLedger(_ context.Context, shiftID string, cursor *repository.Cursor, limit int) ([]model.Operation, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.list(func(op *model.Operation) bool {
		if op.ShiftID == shiftID {
			return true
		}
		return op.Consultation != nil && op.Consultation.Credit != nil && !op.Consultation.Credit.IsPaid
	}, cursor, limit), nil
}

func (m *mockOperationRepo) ListWithCredit(_ context.Context, cursor *repository.Cursor, limit int) ([]model.Operation, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.list(func(op *model.Operation) bool {
		return op.Consultation != nil && op.Consultation.Credit != nil
	}, cursor, limit), nil
}

func (m *mockOperationRepo) Reassign(_ context.Context, id, shiftID string, date time.Time) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	op, ok := m.s.operations[id]
	if !ok {
		return pkgerrors.ErrConditionalUpdate
	}
	op.ShiftID = shiftID
	op.Date = date
	m.s.operations[id] = op
	return nil
}

func (m *mockOperationRepo) CountByUsers(_ context.Context, userIDs []string) (map[string]int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	wanted := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = true
	}
	counts := make(map[string]int64)
	for _, op := range m.s.operations {
		if wanted[op.UserID] {
			counts[op.UserID]++
		}
	}
	return counts, nil
}

// ── Mock ConsultationRepository ──

type mockConsultationRepo struct {
	s *memStore
}

func (m *mockConsultationRepo) Create(_ context.Context, c *model.Consultation) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.failure("Consultation.Create"); err != nil {
		return err
	}
	if c.ConsultationID == "" {
		c.ConsultationID = m.s.nextID("consult")
	}
	stored := *c
	stored.Credit, stored.Shift = nil, nil
	m.s.consultations[c.ConsultationID] = stored
	return nil
}

func (m *mockConsultationRepo) GetForUpdate(_ context.Context, id string) (*model.Consultation, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	c, ok := m.s.consultations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	for _, cr := range m.s.credits {
		if cr.ConsultationID == id {
			cr := cr
			c.Credit = &cr
		}
	}
	return &c, nil
}

func (m *mockConsultationRepo) Reassign(_ context.Context, id, shiftID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	c, ok := m.s.consultations[id]
	if !ok {
		return pkgerrors.ErrConditionalUpdate
	}
	c.ShiftID = &shiftID
	m.s.consultations[id] = c
	return nil
}

func (m *mockConsultationRepo) CountByType(_ context.Context) (map[string]int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	counts := make(map[string]int64)
	for _, c := range m.s.consultations {
		counts[c.Type]++
	}
	return counts, nil
}

func (m *mockConsultationRepo) CountByShift(_ context.Context, shiftID string) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var n int64
	for _, c := range m.s.consultations {
		if c.ShiftID != nil && *c.ShiftID == shiftID {
			n++
		}
	}
	return n, nil
}

// ── Mock CreditRepository ──

type mockCreditRepo struct {
	s *memStore
}

func (m *mockCreditRepo) Upsert(_ context.Context, credit *model.Credit) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.failure("Credit.Upsert"); err != nil {
		return err
	}
	for id, cr := range m.s.credits {
		if cr.ConsultationID == credit.ConsultationID {
			cr.IsPaid = false
			cr.PaidAt, cr.PaidBy = nil, nil
			cr.Amount = credit.Amount
			cr.Date = credit.Date
			m.s.credits[id] = cr
			credit.CreditID = id
			return nil
		}
	}
	if credit.CreditID == "" {
		credit.CreditID = m.s.nextID("credit")
	}
	stored := *credit
	stored.Consultation = nil
	m.s.credits[credit.CreditID] = stored
	return nil
}

func (m *mockCreditRepo) GetByID(_ context.Context, id string) (*model.Credit, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cr, ok := m.s.credits[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if c, ok := m.s.consultations[cr.ConsultationID]; ok {
		cr.Consultation = &c
	}
	return &cr, nil
}

func (m *mockCreditRepo) MarkPaid(_ context.Context, id string, paidAt time.Time, paidBy string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cr, ok := m.s.credits[id]
	if !ok || cr.IsPaid {
		return pkgerrors.ErrConditionalUpdate
	}
	cr.IsPaid = true
	cr.PaidAt = &paidAt
	cr.PaidBy = &paidBy
	m.s.credits[id] = cr
	return nil
}

func (m *mockCreditRepo) sumByShift(shiftID string, isPaid bool) decimal.Decimal {
	total := decimal.Zero
	for _, cr := range m.s.credits {
		c, ok := m.s.consultations[cr.ConsultationID]
		if ok && c.ShiftID != nil && *c.ShiftID == shiftID && cr.IsPaid == isPaid {
			total = total.Add(cr.Amount)
		}
	}
	return total
}

func (m *mockCreditRepo) SumUnpaidByShift(_ context.Context, shiftID string) (decimal.Decimal, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.sumByShift(shiftID, false), nil
}

func (m *mockCreditRepo) SumPaidByShift(_ context.Context, shiftID string) (decimal.Decimal, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.sumByShift(shiftID, true), nil
}

func (m *mockCreditRepo) SumByStatus(_ context.Context, isPaid bool) (decimal.Decimal, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	total := decimal.Zero
	for _, cr := range m.s.credits {
		if cr.IsPaid == isPaid {
			total = total.Add(cr.Amount)
		}
	}
	return total, nil
}

func (m *mockCreditRepo) CountUnpaid(_ context.Context) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var n int64
	for _, cr := range m.s.credits {
		if !cr.IsPaid {
			n++
		}
	}
	return n, nil
}

// ── Mock DepenseRepository ──

type mockDepenseRepo struct {
	s *memStore
}

func (m *mockDepenseRepo) Create(_ context.Context, d *model.Depense) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if d.DepenseID == "" {
		d.DepenseID = m.s.nextID("depense")
	}
	m.s.depenses[d.DepenseID] = *d
	return nil
}

func (m *mockDepenseRepo) SumByShift(_ context.Context, shiftID string) (decimal.Decimal, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	total := decimal.Zero
	for _, d := range m.s.depenses {
		if d.ShiftID == shiftID {
			total = total.Add(d.Amount)
		}
	}
	return total, nil
}

func (m *mockDepenseRepo) SumAll(_ context.Context) (decimal.Decimal, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	total := decimal.Zero
	for _, d := range m.s.depenses {
		total = total.Add(d.Amount)
	}
	return total, nil
}

func (m *mockDepenseRepo) Count(_ context.Context) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return int64(len(m.s.depenses)), nil
}
