package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"clinic-ledger/backend/internal/dto"
	"clinic-ledger/backend/internal/service"
	"clinic-ledger/backend/pkg/response"
)

// UserHandler 用户模块 HTTP 处理器（管理员）
type UserHandler struct {
	userSvc service.UserService
}

// NewUserHandler 创建 UserHandler
func NewUserHandler(userSvc service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// Register 创建用户（默认未激活）
// POST /api/v1/users
func (h *UserHandler) Register(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	user, err := h.userSvc.Register(c.Request.Context(), caller, &req)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.Created(c, user)
}

// ListUsers 用户列表（含流水数量）
// GET /api/v1/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.UserListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	items, next, err := h.userSvc.List(c.Request.Context(), caller, &req)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OKCursor(c, items, toCursor(next))
}

// ToggleActivation 切换激活状态
// PUT /api/v1/users/:id/activate
func (h *UserHandler) ToggleActivation(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	user, err := h.userSvc.ToggleActivation(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, user)
}

// AssignTemplates 分配班次模板
// PUT /api/v1/users/:id/templates
func (h *UserHandler) AssignTemplates(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.AssignTemplatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	user, err := h.userSvc.AssignTemplates(c.Request.Context(), caller, c.Param("id"), &req)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, user)
}

func (h *UserHandler) handleUserError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, 10003, "无权限访问")
	case errors.Is(err, service.ErrInvalidCursor):
		response.BadRequest(c, 10001, "分页游标无效")
	case errors.Is(err, service.ErrEmailExists):
		response.BadRequest(c, 12001, "邮箱已被注册")
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 12002, "用户不存在")
	case errors.Is(err, service.ErrTemplateNotFound):
		response.NotFound(c, 12003, "班次模板不存在")
	default:
		response.InternalError(c)
	}
}
