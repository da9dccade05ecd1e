package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 账务与班次相关的 Prometheus 指标
// 所有方法对 nil 接收者安全，单元测试可直接传 nil
type Metrics struct {
	EntriesPosted   *prometheus.CounterVec
	CreditsSwitched prometheus.Counter
	CreditsPaid     prometheus.Counter
	ShiftsStarted   prometheus.Counter
	ShiftsEnded     prometheus.Counter
}

// New 创建并注册全部指标（注册到默认 Registry）
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer 注册到指定 Registerer
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EntriesPosted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clinic_entries_posted_total",
			Help: "Ledger entries posted, by entry type",
		}, []string{"type"}), // CONSULTATION | DEPENSE
		CreditsSwitched: f.NewCounter(prometheus.CounterOpts{
			Name: "clinic_credits_switched_total",
			Help: "Consultations switched to credit",
		}),
		CreditsPaid: f.NewCounter(prometheus.CounterOpts{
			Name: "clinic_credits_paid_total",
			Help: "Credits settled against the open shift",
		}),
		ShiftsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "clinic_shifts_started_total",
			Help: "Shifts started",
		}),
		ShiftsEnded: f.NewCounter(prometheus.CounterOpts{
			Name: "clinic_shifts_ended_total",
			Help: "Shifts ended explicitly",
		}),
	}
}

func (m *Metrics) IncEntryPosted(entryType string) {
	if m != nil {
		m.EntriesPosted.WithLabelValues(entryType).Inc()
	}
}

func (m *Metrics) IncCreditSwitched() {
	if m != nil {
		m.CreditsSwitched.Inc()
	}
}

func (m *Metrics) IncCreditPaid() {
	if m != nil {
		m.CreditsPaid.Inc()
	}
}

func (m *Metrics) IncShiftStarted() {
	if m != nil {
		m.ShiftsStarted.Inc()
	}
}

func (m *Metrics) IncShiftEnded() {
	if m != nil {
		m.ShiftsEnded.Inc()
	}
}
