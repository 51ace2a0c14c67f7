package handler

import "supervitec-sgd/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth     *AuthHandler
	Driver   *DriverHandler
	Calendar *CalendarHandler
	Preop    *PreopHandler
	Citation *CitationHandler
	Review   *ReviewHandler
	Export   *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:     NewAuthHandler(svc.Auth),
		Driver:   NewDriverHandler(svc.Driver),
		Calendar: NewCalendarHandler(svc.Calendar),
		Preop:    NewPreopHandler(svc.Preop),
		Citation: NewCitationHandler(svc.Citation),
		Review:   NewReviewHandler(svc.Review),
		Export:   NewExportHandler(svc.Export),
	}
}
