// Package validate реализует HTTP-обработчик проверки викторины-кандидата
// без сохранения. Используется для контроля результата внешнего генератора
// до публикации.
package validate

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/trading-academy/internal/http/response"
	"github.com/magabrotheeeer/trading-academy/internal/lib/sl"
	"github.com/magabrotheeeer/trading-academy/internal/models"
)

// Handler управляет HTTP-запросами на проверку викторины.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики проверки викторины.
type Service interface {
	Validate(req models.DummyQuiz) []string
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
// @Summary Проверить викторину без сохранения
// @Description Возвращает список нарушений структуры викторины. Пустой список — викторина корректна.
// @Tags Quizzes
// @Accept  json
// @Produce  json
// @Param request body models.DummyQuiz true "Викторина-кандидат"
// @Success 200 {object} map[string]any "Итог проверки"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /quizzes/validate [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.quiz.validate"
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

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	violations := h.service.Validate(req)
	log.Info("quiz validated", slog.Int("violations", len(violations)))

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"valid":      len(violations) == 0,
		"violations": violations,
	}))
}
