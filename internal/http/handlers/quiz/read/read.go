// Package read реализует HTTP-обработчик для получения викторины по ID.
package read

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/trading-academy/internal/http/response"
	"github.com/magabrotheeeer/trading-academy/internal/lib/sl"
	"github.com/magabrotheeeer/trading-academy/internal/models"
)

// Handler обрабатывает запросы на получение викторины по уникальному идентификатору.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики чтения викторины.
type Service interface {
	Get(ctx context.Context, id string) (*models.Quiz, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Получить викторину
// @Description Возвращает викторину по ID.
// @Tags Quizzes
// @Produce  json
// @Param id path string true "ID викторины"
// @Success 200 {object} map[string]any "Викторина"
// @Failure 404 {object} response.ErrorResponse "Викторина не найдена"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при чтении викторины"
// @Router /quizzes/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.quiz.read"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")

	quiz, err := h.service.Get(r.Context(), id)
	if err != nil {
		log.Error("failed to read quiz", sl.Err(err))
		if errors.Is(err, models.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("quiz not found"))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read quiz"))
		return
	}

	log.Info("success to read quiz", slog.String("id", quiz.ID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"quiz": quiz,
	}))
}
