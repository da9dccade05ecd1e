package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"clinic-ledger/backend/config"
	"clinic-ledger/backend/internal/dto"
	"clinic-ledger/backend/internal/model"
	"clinic-ledger/backend/internal/repository"
)

// ── 用户模块业务错误 ──

var (
	ErrEmailExists      = errors.New("邮箱已被使用")
	ErrTemplateNotFound = errors.New("班次模板不存在")
)

// UserService 用户管理业务接口（管理员）
type UserService interface {
	Register(ctx context.Context, caller Caller, req *dto.RegisterRequest) (*dto.UserResponse, error)
	List(ctx context.Context, caller Caller, req *dto.UserListRequest) ([]dto.UserListItem, *repository.Cursor, error)
	ToggleActivation(ctx context.Context, caller Caller, id string) (*dto.UserResponse, error)
	AssignTemplates(ctx context.Context, caller Caller, id string, req *dto.AssignTemplatesRequest) (*dto.UserResponse, error)
}

type userService struct {
	cfg    *config.Config
	repo   *repository.Repository
	logger *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) UserService {
	return &userService{cfg: cfg, repo: repo, logger: logger}
}

// ────────────────────── Register ──────────────────────

func (s *userService) Register(ctx context.Context, caller Caller, req *dto.RegisterRequest) (*dto.UserResponse, error) {
	if err := caller.require(CapManageUsers); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.repo.User.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	user := &model.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: string(hash),
		Role:         model.RoleUser,
		Activated:    false,
	}
	user.CreatedBy = &caller.UserID
	user.UpdatedBy = &caller.UserID

	if err := s.repo.User.Create(ctx, user); err != nil {
		s.logger.Error("创建用户失败", zap.Error(err))
		return nil, err
	}

	resp := toUserResponse(user)
	return &resp, nil
}

// ────────────────────── List ──────────────────────

func (s *userService) List(ctx context.Context, caller Caller, req *dto.UserListRequest) ([]dto.UserListItem, *repository.Cursor, error) {
	if err := caller.require(CapManageUsers); err != nil {
		return nil, nil, err
	}

	cursor, err := parseCursor(req.CursorRequest)
	if err != nil {
		return nil, nil, err
	}
	limit := pageLimit(req.CursorRequest, s.cfg.Shift.DefaultPageSize)

	users, err := s.repo.User.ListByRole(ctx, model.RoleUser, cursor, limit)
	if err != nil {
		s.logger.Error("列出用户失败", zap.Error(err))
		return nil, nil, err
	}
	users, next := trimPage(users, limit, func(u *model.User) repository.Cursor {
		return repository.Cursor{Date: u.CreatedAt, ID: u.UserID}
	})

	ids := make([]string, 0, len(users))
	for i := range users {
		ids = append(ids, users[i].UserID)
	}
	counts, err := s.repo.Operation.CountByUsers(ctx, ids)
	if err != nil {
		s.logger.Error("统计用户流水失败", zap.Error(err))
		return nil, nil, err
	}

	items := make([]dto.UserListItem, 0, len(users))
	for i := range users {
		items = append(items, dto.UserListItem{
			UserResponse:   toUserResponse(&users[i]),
			OperationCount: counts[users[i].UserID],
		})
	}
	return items, next, nil
}

// ────────────────────── ToggleActivation ──────────────────────

// ToggleActivation 切换普通用户的激活状态；管理员账号视为不存在
func (s *userService) ToggleActivation(ctx context.Context, caller Caller, id string) (*dto.UserResponse, error) {
	if err := caller.require(CapManageUsers); err != nil {
		return nil, err
	}

	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role != model.RoleUser {
		return nil, ErrUserNotFound
	}

	user.Activated = !user.Activated
	user.UpdatedBy = &caller.UserID
	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("更新用户激活状态失败", zap.String("user_id", id), zap.Error(err))
		return nil, err
	}

	resp := toUserResponse(user)
	return &resp, nil
}

// ────────────────────── AssignTemplates ──────────────────────

func (s *userService) AssignTemplates(ctx context.Context, caller Caller, id string, req *dto.AssignTemplatesRequest) (*dto.UserResponse, error) {
	if err := caller.require(CapManageUsers); err != nil {
		return nil, err
	}

	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	ids := uniqueStrings(req.TemplateIDs)
	templates, err := s.repo.ShiftTemplate.ListByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("查询班次模板失败", zap.Error(err))
		return nil, err
	}
	if len(templates) != len(ids) {
		return nil, ErrTemplateNotFound
	}

	if err := s.repo.User.ReplaceTemplates(ctx, user, templates); err != nil {
		s.logger.Error("分配班次模板失败", zap.String("user_id", id), zap.Error(err))
		return nil, err
	}
	user.ShiftTemplates = templates

	resp := toUserResponse(user)
	return &resp, nil
}

// ── 内部辅助方法 ──

func (s *userService) getUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("user_id", id), zap.Error(err))
		return nil, err
	}
	return user, nil
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
