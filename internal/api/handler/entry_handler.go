package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"clinic-ledger/backend/internal/dto"
	"clinic-ledger/backend/internal/service"
	"clinic-ledger/backend/pkg/response"
)

// EntryHandler 记账模块 HTTP 处理器
type EntryHandler struct {
	entrySvc service.EntryService
}

// NewEntryHandler 创建 EntryHandler
func NewEntryHandler(entrySvc service.EntryService) *EntryHandler {
	return &EntryHandler{entrySvc: entrySvc}
}

// CreateEntry 记账
// POST /api/v1/entries
func (h *EntryHandler) CreateEntry(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.CreateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	op, err := h.entrySvc.Create(c.Request.Context(), caller, &req)
	if err != nil {
		h.handleEntryError(c, err)
		return
	}

	response.Created(c, op)
}

// ListEntries 当前班次流水 + 未还赊账
// GET /api/v1/entries
func (h *EntryHandler) ListEntries(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.EntryListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	page, err := h.entrySvc.List(c.Request.Context(), caller, &req)
	if err != nil {
		h.handleEntryError(c, err)
		return
	}

	response.OK(c, response.CursorPage{
		Items:      page.Items,
		NextCursor: toCursor(page.Next),
		Reason:     page.Reason,
	})
}

// ListCredits 含赊账的流水
// GET /api/v1/entries/credits
func (h *EntryHandler) ListCredits(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.EntryListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	items, next, err := h.entrySvc.ListCredits(c.Request.Context(), caller, &req)
	if err != nil {
		h.handleEntryError(c, err)
		return
	}

	response.OKCursor(c, items, toCursor(next))
}

// SwitchToCredit 已收款问诊转赊账
// POST /api/v1/entries/consultations/:id/credit
func (h *EntryHandler) SwitchToCredit(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.entrySvc.SwitchToCredit(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		h.handleEntryError(c, err)
		return
	}

	response.OK(c, result)
}

// PayCredit 还款
// POST /api/v1/entries/credits/:id/pay
func (h *EntryHandler) PayCredit(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.entrySvc.PayCredit(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		h.handleEntryError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *EntryHandler) handleEntryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, 10003, "无权限访问")
	case errors.Is(err, service.ErrInvalidCursor):
		response.BadRequest(c, 10001, "分页游标无效")
	case errors.Is(err, service.ErrInvalidEntryType):
		response.BadRequest(c, 15001, "记账类型无效")
	case errors.Is(err, service.ErrInvalidAmount):
		response.BadRequest(c, 15002, "金额必须大于 0")
	case errors.Is(err, service.ErrPatientRequired):
		response.BadRequest(c, 15003, "问诊必须填写患者姓名")
	case errors.Is(err, service.ErrLabelRequired):
		response.BadRequest(c, 15004, "支出必须填写说明")
	case errors.Is(err, service.ErrNoActiveShift):
		response.Conflict(c, 15005, "当前没有进行中的班次")
	case errors.Is(err, service.ErrNotAssigned):
		response.Forbidden(c, 15006, "你未被分配到当前班次")
	case errors.Is(err, service.ErrConsultationNotFound):
		response.NotFound(c, 15007, "问诊记录不存在")
	case errors.Is(err, service.ErrCreditOutstanding):
		response.Conflict(c, 15008, "该问诊已有未还的赊账")
	case errors.Is(err, service.ErrConsultationNoShift):
		response.Conflict(c, 15009, "该问诊未关联任何班次")
	case errors.Is(err, service.ErrRecetteNotFound):
		response.Conflict(c, 15010, "该班次没有收入记录")
	case errors.Is(err, service.ErrCreditNotFound):
		response.NotFound(c, 15011, "赊账记录不存在")
	case errors.Is(err, service.ErrCreditAlreadyPaid):
		response.BadRequest(c, 15012, "赊账已还清")
	default:
		response.InternalError(c)
	}
}
