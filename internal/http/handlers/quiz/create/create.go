// Package create реализует HTTP-обработчик для публикации новой викторины.
//
// Handler принимает JSON-запрос с викториной (например, результат внешнего
// генератора), валидирует структуру вопросов и сохраняет викторину. Викторина
// с нарушениями отклоняется, список нарушений возвращается в ответе.
package create

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/trading-academy/internal/http/response"
	"github.com/magabrotheeeer/trading-academy/internal/lib/sl"
	"github.com/magabrotheeeer/trading-academy/internal/models"
)

// Handler управляет HTTP-запросами на публикацию викторин.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики публикации викторины.
type Service interface {
	Create(ctx context.Context, req models.DummyQuiz) (*models.Quiz, []string, error)
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
// @Summary Опубликовать викторину
// @Description Валидирует структуру викторины и сохраняет её. Викторина с нарушениями отклоняется.
// @Tags Quizzes
// @Accept  json
// @Produce  json
// @Param request body models.DummyQuiz true "Викторина"
// @Success 200 {object} map[string]any "Созданная викторина"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации или нарушения структуры"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при сохранении викторины"
// @Router /quizzes [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.quiz.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyQuiz
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	log.Info("request body decoded", slog.String("title", req.Title))

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	quiz, violations, err := h.service.Create(r.Context(), req)
	if err != nil {
		if errors.Is(err, models.ErrInvalidQuiz) {
			log.Error("quiz has structure violations", slog.Int("count", len(violations)))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Response{
				Status: response.StatusError,
				Error:  "quiz has structure violations",
				Data:   map[string]any{"violations": violations},
			})
			return
		}
		log.Error("failed to create quiz", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not create quiz"))
		return
	}

	log.Info("success to create quiz", slog.String("id", quiz.ID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"quiz": quiz,
	}))
}
