// Package results реализует HTTP-обработчик для получения результатов
// прохождения викторины.
package results

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/trading-academy/internal/http/response"
	"github.com/magabrotheeeer/trading-academy/internal/lib/sl"
	"github.com/magabrotheeeer/trading-academy/internal/models"
)

// Handler обрабатывает запросы на получение результатов викторины.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики чтения результатов.
type Service interface {
	ListResults(ctx context.Context, quizID string) ([]*models.QuizResult, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Получить результаты викторины
// @Description Возвращает сохранённые результаты прохождения викторины.
// @Tags Quizzes
// @Produce  json
// @Param id path string true "ID викторины"
// @Success 200 {object} map[string]any "Результаты прохождения"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при чтении результатов"
// @Router /quizzes/{id}/results [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.quiz.results"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	quizID := chi.URLParam(r, "id")

	results, err := h.service.ListResults(r.Context(), quizID)
	if err != nil {
		log.Error("failed to list quiz results", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list quiz results"))
		return
	}

	log.Info("success to list quiz results", slog.Int("count", len(results)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"results": results,
	}))
}
