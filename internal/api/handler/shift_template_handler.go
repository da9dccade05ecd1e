package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"clinic-ledger/backend/internal/dto"
	"clinic-ledger/backend/internal/service"
	pkgerrors "clinic-ledger/backend/pkg/errors"
	"clinic-ledger/backend/pkg/response"
)

// ShiftTemplateHandler 班次模板 HTTP 处理器
type ShiftTemplateHandler struct {
	templateSvc service.ShiftTemplateService
}

// NewShiftTemplateHandler 创建 ShiftTemplateHandler
func NewShiftTemplateHandler(templateSvc service.ShiftTemplateService) *ShiftTemplateHandler {
	return &ShiftTemplateHandler{templateSvc: templateSvc}
}

// ListTemplates 模板列表
// GET /api/v1/shift-templates
func (h *ShiftTemplateHandler) ListTemplates(c *gin.Context) {
	list, err := h.templateSvc.List(c.Request.Context())
	if err != nil {
		h.handleTemplateError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// CreateTemplate 创建模板
// POST /api/v1/shift-templates
func (h *ShiftTemplateHandler) CreateTemplate(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.CreateShiftTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	tpl, err := h.templateSvc.Create(c.Request.Context(), caller, &req)
	if err != nil {
		h.handleTemplateError(c, err)
		return
	}

	response.Created(c, tpl)
}

// UpdateTemplate 更新模板
// PUT /api/v1/shift-templates/:id
func (h *ShiftTemplateHandler) UpdateTemplate(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.UpdateShiftTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	tpl, err := h.templateSvc.Update(c.Request.Context(), caller, c.Param("id"), &req)
	if err != nil {
		h.handleTemplateError(c, err)
		return
	}

	response.OK(c, tpl)
}

// DeleteTemplate 删除模板
// DELETE /api/v1/shift-templates/:id
func (h *ShiftTemplateHandler) DeleteTemplate(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	if err := h.templateSvc.Delete(c.Request.Context(), caller, c.Param("id")); err != nil {
		h.handleTemplateError(c, err)
		return
	}

	response.OK(c, nil)
}

func (h *ShiftTemplateHandler) handleTemplateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, 10003, "无权限访问")
	case errors.Is(err, service.ErrTemplateHoursEqual):
		response.BadRequest(c, 13001, "开始与结束小时不能相同")
	case errors.Is(err, service.ErrTemplateNotFound):
		response.NotFound(c, 13002, "班次模板不存在")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 13003, "模板已被修改，请刷新后重试")
	default:
		response.InternalError(c)
	}
}
