package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/morgath/linkcutter/internal/model"
	"github.com/morgath/linkcutter/internal/repositories"
	"github.com/morgath/linkcutter/internal/service"
)

// recentLimit — размер списка последних ссылок для дашборда.
const recentLimit = 10

// Handler обслуживает HTTP-интерфейс ядра.
type Handler struct {
	Service *service.ShortenerService
	Logger  *zap.Logger
}

// NewHandler создаёт обработчик поверх сервиса.
func NewHandler(svc *service.ShortenerService, logger *zap.Logger) *Handler {
	return &Handler{Service: svc, Logger: logger}
}

// ReceiveShorten принимает JSON {"url": ...} и создаёт короткую ссылку.
// Предполагается, что лимитер запросов стоит перед этим обработчиком
// и может отклонить запрос раньше.
func (h *Handler) ReceiveShorten(res http.ResponseWriter, req *http.Request) {
	var body model.ShortenRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(res, http.StatusBadRequest, model.ShortenResponse{
			Success: false,
			Error:   "invalid JSON body",
		})
		return
	}

	link, err := h.Service.CreateLink(req.Context(), body.URL)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidURL):
			writeJSON(res, http.StatusBadRequest, model.ShortenResponse{
				Success: false,
				Error:   err.Error(),
			})
		case errors.Is(err, service.ErrCollisionExhausted):
			h.Logger.Error("Исчерпаны попытки подбора короткого кода", zap.Error(err))
			writeJSON(res, http.StatusInternalServerError, model.ShortenResponse{
				Success: false,
				Error:   "could not allocate a short code, try again",
			})
		default:
			h.Logger.Error("Ошибка создания короткой ссылки", zap.Error(err))
			writeJSON(res, http.StatusInternalServerError, model.ShortenResponse{
				Success: false,
				Error:   "internal error",
			})
		}
		return
	}

	writeJSON(res, http.StatusCreated, model.ShortenResponse{
		Success: true,
		Link:    link,
	})
}

// ResponseURL выполняет редирект по короткому коду.
// Ответ не ждёт отложенного инкремента и заполнения кэша.
func (h *Handler) ResponseURL(res http.ResponseWriter, req *http.Request) {
	code := chi.URLParam(req, "code")
	if code == "" {
		http.Error(res, "Bad Request: Missing code in URL", http.StatusBadRequest)
		return
	}

	target, err := h.Service.Resolve(req.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			http.NotFound(res, req)
		case errors.Is(err, service.ErrGone):
			http.Error(res, "Gone", http.StatusGone)
		default:
			h.Logger.Error("Ошибка разрешения короткого кода",
				zap.String("code", code),
				zap.Error(err),
			)
			http.Error(res, "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}

	res.Header().Set("Location", target)
	res.WriteHeader(http.StatusTemporaryRedirect)
}

// RecentLinks возвращает последние созданные ссылки, новые первыми.
// Запрос читает уже сохранённые данные и на горячий путь не влияет.
func (h *Handler) RecentLinks(res http.ResponseWriter, req *http.Request) {
	links, err := h.Service.RecentLinks(req.Context(), recentLimit)
	if err != nil {
		http.Error(res, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if links == nil {
		links = []*model.Link{}
	}
	writeJSON(res, http.StatusOK, model.RecentLinksResponse{Links: links})
}

// PingHandler проверяет соединение с хранилищем.
func (h *Handler) PingHandler(res http.ResponseWriter, req *http.Request) {
	if err := h.Service.Ping(req.Context()); err != nil {
		http.Error(res, "Database unavailable", http.StatusInternalServerError)
		return
	}
	res.WriteHeader(http.StatusOK)
}

func writeJSON(res http.ResponseWriter, status int, v any) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(status)
	_ = json.NewEncoder(res).Encode(v)
}
