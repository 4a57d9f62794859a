package api

import (
	"net/http"
)

// RegisterRoutes регистрирует маршруты API и /healthz.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	mux.HandleFunc("GET /healthz", h.Healthz)

	mux.Handle("GET /api/v1/status", chain(http.HandlerFunc(h.GetStatus)))
	mux.Handle("POST /api/v1/tune", chain(http.HandlerFunc(h.RunPass)))
	mux.Handle("GET /api/v1/selections/{key}", chain(http.HandlerFunc(h.GetSelection)))
	mux.Handle("DELETE /api/v1/selections/{key}", chain(http.HandlerFunc(h.DeleteSelection)))
}
