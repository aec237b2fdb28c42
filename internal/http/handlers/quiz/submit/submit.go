// Package submit реализует HTTP-обработчик приёма завершённой попытки
// прохождения викторины. Корректность ответов вычисляется на сервере:
// оценка, присланная клиентом, не принимается.
package submit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/trading-academy/internal/http/middlewarectx"
	"github.com/magabrotheeeer/trading-academy/internal/http/response"
	"github.com/magabrotheeeer/trading-academy/internal/lib/sl"
	"github.com/magabrotheeeer/trading-academy/internal/models"
)

// Handler управляет HTTP-запросами приёма попыток прохождения.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики оценки попытки.
type Service interface {
	SubmitAttempt(ctx context.Context, quizID, username string, req models.DummyAttempt) (*models.QuizResult, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Отправить попытку прохождения
// @Description Оценивает ответы пользователя на сервере и сохраняет результат.
// @Tags Quizzes
// @Accept  json
// @Produce  json
// @Param id path string true "ID викторины"
// @Param request body models.DummyAttempt true "Ответы пользователя"
// @Success 200 {object} map[string]any "Результат прохождения"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Викторина не найдена"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при оценке попытки"
// @Router /quizzes/{id}/attempts [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.quiz.submit"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	quizID := chi.URLParam(r, "id")

	var req models.DummyAttempt
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	username, ok := r.Context().Value(middlewarectx.User).(string)
	if !ok || username == "" {
		log.Error("username not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	result, err := h.service.SubmitAttempt(r.Context(), quizID, username, req)
	if err != nil {
		log.Error("failed to submit quiz attempt", sl.Err(err))
		switch {
		case errors.Is(err, models.ErrNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("quiz not found"))
		case errors.Is(err, models.ErrEmptyQuiz):
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("quiz has no questions"))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not submit quiz attempt"))
		}
		return
	}

	log.Info("success to submit quiz attempt",
		slog.String("quiz_id", quizID),
		slog.Float64("score", result.Score),
		slog.Bool("passed", result.Passed))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"result": result,
	}))
}
