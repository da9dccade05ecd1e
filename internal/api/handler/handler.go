package handler

import "clinic-ledger/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth          *AuthHandler
	User          *UserHandler
	ShiftTemplate *ShiftTemplateHandler
	Shift         *ShiftHandler
	Entry         *EntryHandler
	Summary       *SummaryHandler
	Export        *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:          NewAuthHandler(svc.Auth),
		User:          NewUserHandler(svc.User),
		ShiftTemplate: NewShiftTemplateHandler(svc.ShiftTemplate),
		Shift:         NewShiftHandler(svc.Shift),
		Entry:         NewEntryHandler(svc.Entry),
		Summary:       NewSummaryHandler(svc.Summary),
		Export:        NewExportHandler(svc.Export),
	}
}
