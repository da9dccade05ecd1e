package service

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"clinic-ledger/backend/config"
	"clinic-ledger/backend/internal/dto"
	"clinic-ledger/backend/internal/model"
	"clinic-ledger/backend/internal/repository"
	"clinic-ledger/backend/pkg/clock"
	"clinic-ledger/backend/pkg/jwt"
	"clinic-ledger/backend/pkg/metrics"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth          AuthService
	User          UserService
	ShiftTemplate ShiftTemplateService
	Shift         ShiftService
	Entry         EntryService
	Summary       SummaryService
	Export        ExportService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	clk clock.Clock,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	shifts := NewShiftService(cfg, repo, clk, m, logger)
	return &Service{
		Auth:          NewAuthService(cfg, repo, jwtMgr, blacklist, logger),
		User:          NewUserService(cfg, repo, logger),
		ShiftTemplate: NewShiftTemplateService(repo, logger),
		Shift:         shifts,
		Entry:         NewEntryService(cfg, repo, shifts, clk, m, logger),
		Summary:       NewSummaryService(repo, shifts, logger),
		Export:        NewExportService(repo, clk, logger),
	}
}

// ── 调用方与权限 ──

var (
	ErrForbidden     = errors.New("无权执行此操作")
	ErrInvalidCursor = errors.New("分页游标无效")
)

// Capability 业务操作所需的能力
type Capability int

const (
	CapViewLedger      Capability = iota // 查看班次、流水、汇总
	CapStartShift                        // 开班
	CapPostEntry                         // 记账（普通用户另需被分配到当前班次模板）
	CapResolveCredit                     // 转赊账、还款
	CapManageUsers                       // 创建、激活用户，分配模板
	CapManageTemplates                   // 维护班次模板
	CapViewDashboard                     // 全局汇总
	CapExport                            // 导出
)

var userCapabilities = map[Capability]bool{
	CapViewLedger:    true,
	CapStartShift:    true,
	CapPostEntry:     true,
	CapResolveCredit: true,
}

// Caller 当前调用方（来自已认证的会话）
type Caller struct {
	UserID string
	Role   string
}

// IsAdmin 是否为管理员
func (c Caller) IsAdmin() bool { return c.Role == model.RoleAdmin }

// Can 判断调用方是否具备某项能力
func (c Caller) Can(cap Capability) bool {
	if c.UserID == "" {
		return false
	}
	if c.IsAdmin() {
		return true
	}
	return userCapabilities[cap]
}

// require 能力检查，不满足时返回 ErrForbidden
func (c Caller) require(cap Capability) error {
	if !c.Can(cap) {
		return ErrForbidden
	}
	return nil
}

// ── 分页辅助 ──

// parseCursor 解析 keyset 游标参数
func parseCursor(req dto.CursorRequest) (*repository.Cursor, error) {
	if req.CursorID == "" {
		return nil, nil
	}
	date, err := time.Parse(time.RFC3339Nano, req.CursorDate)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	return &repository.Cursor{Date: date, ID: req.CursorID}, nil
}

// pageLimit 返回请求的页大小，未指定时取默认值
func pageLimit(req dto.CursorRequest, def int) int {
	if req.Limit > 0 {
		return req.Limit
	}
	if def <= 0 {
		return 20
	}
	return def
}

// trimPage 截掉多取的一条，并以最后一条生成下一页游标
func trimPage[T any](rows []T, limit int, key func(*T) repository.Cursor) ([]T, *repository.Cursor) {
	if len(rows) <= limit {
		return rows, nil
	}
	rows = rows[:limit]
	next := key(&rows[len(rows)-1])
	return rows, &next
}

// formatTime 统一时间输出格式
func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}
