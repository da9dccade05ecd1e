package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"clinic-ledger/backend/internal/dto"
	"clinic-ledger/backend/internal/service"
	"clinic-ledger/backend/pkg/response"
)

// ShiftHandler 班次模块 HTTP 处理器
type ShiftHandler struct {
	shiftSvc service.ShiftService
}

// NewShiftHandler 创建 ShiftHandler
func NewShiftHandler(shiftSvc service.ShiftService) *ShiftHandler {
	return &ShiftHandler{shiftSvc: shiftSvc}
}

// GetCurrent 当前班次与开班闸门
// GET /api/v1/shifts/current
func (h *ShiftHandler) GetCurrent(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.shiftSvc.GetCurrent(c.Request.Context(), caller)
	if err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.OK(c, result)
}

// StartShift 开班
// POST /api/v1/shifts
func (h *ShiftHandler) StartShift(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.StartShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	shift, err := h.shiftSvc.Start(c.Request.Context(), caller, &req)
	if err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.Created(c, shift)
}

// EndShift 结束班次
// POST /api/v1/shifts/:id/end
func (h *ShiftHandler) EndShift(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	shift, err := h.shiftSvc.End(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.OK(c, shift)
}

// ListShifts 班次列表
// GET /api/v1/shifts
func (h *ShiftHandler) ListShifts(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.ShiftListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	items, next, err := h.shiftSvc.List(c.Request.Context(), caller, &req)
	if err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.OKCursor(c, items, toCursor(next))
}

// ListOperations 班次流水
// GET /api/v1/shifts/:id/operations
func (h *ShiftHandler) ListOperations(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.EntryListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	items, next, err := h.shiftSvc.ListOperations(c.Request.Context(), caller, c.Param("id"), &req)
	if err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.OKCursor(c, items, toCursor(next))
}

func (h *ShiftHandler) handleShiftError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, 10003, "无权限访问")
	case errors.Is(err, service.ErrInvalidCursor):
		response.BadRequest(c, 10001, "分页游标无效")
	case errors.Is(err, service.ErrInvalidCashFund):
		response.BadRequest(c, 14001, "备用金不能小于 1")
	case errors.Is(err, service.ErrShiftAlreadyActive):
		response.BadRequest(c, 14002, "你已有进行中的班次")
	case errors.Is(err, service.ErrNoActiveTemplate):
		response.Conflict(c, 14003, "当前时段没有匹配的班次模板")
	case errors.Is(err, service.ErrShiftNotFound):
		response.NotFound(c, 14004, "班次不存在")
	case errors.Is(err, service.ErrShiftAlreadyEnded):
		response.BadRequest(c, 14005, "班次已结束")
	default:
		response.InternalError(c)
	}
}
