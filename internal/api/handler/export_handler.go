package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"clinic-ledger/backend/internal/dto"
	"clinic-ledger/backend/internal/service"
	"clinic-ledger/backend/pkg/response"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportShiftsExcel 导出班次收支表
// GET /api/v1/export/shifts.xlsx?from=2026-03-01&to=2026-03-31
func (h *ExportHandler) ExportShiftsExcel(c *gin.Context) {
	h.export(c, contentTypeXLSX, h.exportSvc.ExportShiftsExcel)
}

// ExportShiftsICS 导出班次日历
// GET /api/v1/export/shifts.ics?from=2026-03-01&to=2026-03-31
func (h *ExportHandler) ExportShiftsICS(c *gin.Context) {
	h.export(c, contentTypeICS, h.exportSvc.ExportShiftsICS)
}

type exportFunc func(ctx context.Context, caller service.Caller, from, to string) (*bytes.Buffer, string, error)

func (h *ExportHandler) export(c *gin.Context, contentType string, fn exportFunc) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.ExportRangeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "from 与 to 不能为空")
		return
	}

	buf, filename, err := fn(c.Request.Context(), caller, req.From, req.To)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.PathEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, 10003, "无权限访问")
	case errors.Is(err, service.ErrExportInvalidRange):
		response.BadRequest(c, 16101, "导出时间范围无效")
	case errors.Is(err, service.ErrExportNoShifts):
		response.NotFound(c, 16102, "所选时间范围内没有班次")
	default:
		response.InternalError(c)
	}
}
