package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"clinic-ledger/backend/internal/service"
	"clinic-ledger/backend/pkg/response"
)

// SummaryHandler 汇总模块 HTTP 处理器
type SummaryHandler struct {
	summarySvc service.SummaryService
}

// NewSummaryHandler 创建 SummaryHandler
func NewSummaryHandler(summarySvc service.SummaryService) *SummaryHandler {
	return &SummaryHandler{summarySvc: summarySvc}
}

// Activity 当前班次汇总，无班次时 data 为 null
// GET /api/v1/summary/activity
func (h *SummaryHandler) Activity(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.summarySvc.Activity(c.Request.Context(), caller)
	if err != nil {
		h.handleSummaryError(c, err)
		return
	}

	response.OK(c, result)
}

// Dashboard 全局汇总
// GET /api/v1/summary/dashboard
func (h *SummaryHandler) Dashboard(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.summarySvc.Dashboard(c.Request.Context(), caller)
	if err != nil {
		h.handleSummaryError(c, err)
		return
	}

	response.OK(c, result)
}

// Chart 图表计数
// GET /api/v1/summary/chart
func (h *SummaryHandler) Chart(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.summarySvc.Chart(c.Request.Context(), caller)
	if err != nil {
		h.handleSummaryError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *SummaryHandler) handleSummaryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, 10003, "无权限访问")
	default:
		response.InternalError(c)
	}
}
