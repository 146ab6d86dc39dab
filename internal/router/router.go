package router

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/morgath/linkcutter/internal/handlers"
	"github.com/morgath/linkcutter/internal/middleware"
)

// NewRouter создаёт и настраивает маршрутизатор
func NewRouter(handler *handlers.Handler, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.LoggingMiddleware(logger)) // Подключаем логирование
	r.Use(middleware.GzipMiddleware)            // Gzip-сжатие

	r.Post("/api/shorten", handler.ReceiveShorten)
	r.Get("/api/links", handler.RecentLinks)
	r.Get("/ping", handler.PingHandler)
	r.Get("/{code}", handler.ResponseURL)
	return r
}
