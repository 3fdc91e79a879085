package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/user/blocklist-service/internal/delivery/http/handler"
	"github.com/user/blocklist-service/internal/delivery/http/middleware"
	"github.com/user/blocklist-service/web"
)

func New(h *handler.Handler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics)
	r.Use(chimw.Recoverer)

	r.Get("/", h.HandleIndex)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(web.Static()))))
	r.Get("/ws", h.HandleWebSocket)

	r.Get("/read_json/{filename}", h.HandleReadJSON)
	r.Post("/update_json", h.HandleUpdateJSON)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HandleHealthCheck)

		r.Get("/documents/{kind}", h.HandleGetDocument)
		r.Put("/documents/{kind}", h.HandlePutDocument)

		r.Post("/sites/block", h.HandleBlock)
		r.Post("/sites/unblock", h.HandleUnblock)

		r.Get("/blocked/export", h.HandleExport)
		r.Post("/blocked/import", h.HandleImport)
	})

	// Prometheus metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	return r
}
