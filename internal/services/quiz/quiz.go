// Package quiz содержит бизнес-логику работы с викторинами: сохранение
// проверенных викторин, выдачу с кешированием и оценку попыток.
package quiz

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/trading-academy/internal/lib/sl"
	"github.com/magabrotheeeer/trading-academy/internal/metrics"
	"github.com/magabrotheeeer/trading-academy/internal/models"
	"github.com/magabrotheeeer/trading-academy/internal/services/quizengine"
)

// Repository определяет методы для работы с викторинами в хранилище.
type Repository interface {
	// CreateQuiz сохраняет новую викторину.
	CreateQuiz(ctx context.Context, quiz *models.Quiz) error
	// ReadQuiz возвращает викторину по ID.
	ReadQuiz(ctx context.Context, id string) (*models.Quiz, error)
	// CreateQuizResult сохраняет результат прохождения.
	CreateQuizResult(ctx context.Context, result models.QuizResult) error
	// ListQuizResults возвращает результаты прохождения викторины.
	ListQuizResults(ctx context.Context, quizID string) ([]*models.QuizResult, error)
}

// Cache описывает методы для кэширования викторин.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Service реализует бизнес-логику работы с викторинами.
type Service struct {
	repo  Repository
	cache Cache
	log   *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, cache Cache, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// Create валидирует викторину, назначает ей стабильный идентификатор и
// сохраняет. Викторина с нарушениями структуры отклоняется: список
// нарушений возвращается вместе с ErrInvalidQuiz.
func (s *Service) Create(ctx context.Context, req models.DummyQuiz) (*models.Quiz, []string, error) {
	quiz := models.Quiz{
		Title:       req.Title,
		Description: req.Description,
		Difficulty:  req.Difficulty,
		Questions:   req.Questions,
	}
	quizengine.RepairQuestionIDs(&quiz)

	if violations := quizengine.ValidateQuiz(quiz); len(violations) > 0 {
		return nil, violations, models.ErrInvalidQuiz
	}

	quiz.ID = uuid.New().String()
	quiz.CreatedAt = time.Now().UTC()

	if err := s.repo.CreateQuiz(ctx, &quiz); err != nil {
		return nil, nil, err
	}
	s.log.Info("created quiz", slog.String("id", quiz.ID), slog.String("title", quiz.Title))

	cacheKey := quizCacheKey(quiz.ID)
	if err := s.cache.Set(cacheKey, quiz, time.Hour); err != nil {
		s.log.Warn("failed to cache quiz", slog.String("key", cacheKey), sl.Err(err))
	}
	return &quiz, nil, nil
}

// Validate проверяет структуру викторины-кандидата без сохранения.
// Используется для проверки результата внешнего генератора до публикации.
func (s *Service) Validate(req models.DummyQuiz) []string {
	quiz := models.Quiz{
		Title:       req.Title,
		Description: req.Description,
		Difficulty:  req.Difficulty,
		Questions:   req.Questions,
	}
	return quizengine.ValidateQuiz(quiz)
}

// Get возвращает викторину по ID, используя кеш или хранилище.
func (s *Service) Get(ctx context.Context, id string) (*models.Quiz, error) {
	var cached *models.Quiz
	cacheKey := quizCacheKey(id)
	found, err := s.cache.Get(cacheKey, &cached)
	if err != nil {
		s.log.Warn("failed to read quiz from cache", slog.String("key", cacheKey), sl.Err(err))
	}
	if found {
		return cached, nil
	}

	quiz, err := s.repo.ReadQuiz(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(cacheKey, quiz, time.Hour); err != nil {
		s.log.Warn("failed to cache quiz", slog.String("key", cacheKey), sl.Err(err))
	}
	return quiz, nil
}

// SubmitAttempt оценивает попытку прохождения по сырым ответам и сохраняет
// результат. Корректность ответов вычисляется на сервере.
func (s *Service) SubmitAttempt(ctx context.Context, quizID, username string, req models.DummyAttempt) (*models.QuizResult, error) {
	quiz, err := s.Get(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("read quiz: %w", err)
	}

	result, err := quizengine.Score(*quiz, req.Answers, req.TimeSpent, username, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateQuizResult(ctx, result); err != nil {
		return nil, err
	}
	metrics.QuizAttemptsTotal.Inc()
	s.log.Info("scored quiz attempt",
		slog.String("quiz_id", quizID),
		slog.String("username", username),
		slog.Float64("score", result.Score),
		slog.Bool("passed", result.Passed))

	return &result, nil
}

// ListResults возвращает результаты прохождения викторины.
func (s *Service) ListResults(ctx context.Context, quizID string) ([]*models.QuizResult, error) {
	return s.repo.ListQuizResults(ctx, quizID)
}

func quizCacheKey(id string) string {
	return fmt.Sprintf("quiz:%s", id)
}
