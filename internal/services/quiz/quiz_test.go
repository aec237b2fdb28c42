package quiz

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/trading-academy/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) CreateQuiz(ctx context.Context, quiz *models.Quiz) error {
	return m.Called(ctx, quiz).Error(0)
}
func (m *RepoMock) ReadQuiz(ctx context.Context, id string) (*models.Quiz, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Quiz), args.Error(1)
}
func (m *RepoMock) CreateQuizResult(ctx context.Context, result models.QuizResult) error {
	return m.Called(ctx, result).Error(0)
}
func (m *RepoMock) ListQuizResults(ctx context.Context, quizID string) ([]*models.QuizResult, error) {
	args := m.Called(ctx, quizID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.QuizResult), args.Error(1)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(key string, result any) (bool, error) {
	args := m.Called(key, result)
	return args.Bool(0), args.Error(1)
}
func (m *CacheMock) Set(key string, value any, expiration time.Duration) error {
	return m.Called(key, value, expiration).Error(0)
}
func (m *CacheMock) Invalidate(key string) error {
	return m.Called(key).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func boolPtr(v bool) *bool { return &v }

func validQuizReq() models.DummyQuiz {
	return models.DummyQuiz{
		Title:       "Основы свечного анализа",
		Description: "Паттерны японских свечей",
		Difficulty:  models.DifficultyBeginner,
		Questions: []models.Question{
			{
				Type:          models.QuestionTypeMultipleChoice,
				Text:          "Что показывает тело свечи?",
				Options:       []string{"Диапазон открытие-закрытие", "Объем", "Тренд"},
				CorrectOption: "Диапазон открытие-закрытие",
			},
			{
				Type:        models.QuestionTypeTrueFalse,
				Text:        "Доджи сигнализирует о нерешительности рынка",
				CorrectBool: boolPtr(true),
			},
		},
	}
}

func TestQuizService_Create(t *testing.T) {
	tests := []struct {
		name           string
		req            models.DummyQuiz
		setupMocks     func(r *RepoMock, c *CacheMock)
		wantViolations bool
		wantErr        error
	}{
		{
			name: "успешное создание назначает id вопросам и кеширует",
			req:  validQuizReq(),
			setupMocks: func(r *RepoMock, c *CacheMock) {
				r.On("CreateQuiz", mock.Anything, mock.MatchedBy(func(q *models.Quiz) bool {
					return q.ID != "" &&
						q.Questions[0].ID == "q1" &&
						q.Questions[1].ID == "q2"
				})).Return(nil).Once()
				c.On("Set", mock.Anything, mock.Anything, time.Hour).Return(nil).Once()
			},
		},
		{
			name: "викторина с нарушениями отклоняется",
			req: models.DummyQuiz{
				Title:      "Сломанная",
				Difficulty: models.DifficultyBeginner,
				Questions: []models.Question{
					{Type: models.QuestionTypeMultipleChoice, Text: "Вопрос без вариантов"},
				},
			},
			setupMocks:     func(_ *RepoMock, _ *CacheMock) {},
			wantViolations: true,
			wantErr:        models.ErrInvalidQuiz,
		},
		{
			name: "ошибка хранилища возвращается вызывающему",
			req:  validQuizReq(),
			setupMocks: func(r *RepoMock, _ *CacheMock) {
				r.On("CreateQuiz", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()
			},
			wantErr: errors.New("db down"),
		},
		{
			name: "сбой кеша не ломает создание",
			req:  validQuizReq(),
			setupMocks: func(r *RepoMock, c *CacheMock) {
				r.On("CreateQuiz", mock.Anything, mock.Anything).Return(nil).Once()
				c.On("Set", mock.Anything, mock.Anything, time.Hour).Return(errors.New("redis down")).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			cache := new(CacheMock)
			tt.setupMocks(repo, cache)

			svc := New(repo, cache, newNoopLogger())
			quiz, violations, err := svc.Create(context.Background(), tt.req)

			if tt.wantErr != nil {
				require.Error(t, err)
				if errors.Is(tt.wantErr, models.ErrInvalidQuiz) {
					assert.ErrorIs(t, err, models.ErrInvalidQuiz)
				}
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, quiz.ID)
			}
			if tt.wantViolations {
				assert.NotEmpty(t, violations)
			}

			repo.AssertExpectations(t)
			cache.AssertExpectations(t)
		})
	}
}

func TestQuizService_Validate(t *testing.T) {
	svc := New(new(RepoMock), new(CacheMock), newNoopLogger())

	assert.Empty(t, svc.Validate(validQuizReq()))

	broken := validQuizReq()
	broken.Questions[0].CorrectOption = "Нет такого варианта"
	assert.NotEmpty(t, svc.Validate(broken))
}

func TestQuizService_Get(t *testing.T) {
	t.Run("попадание в кеш не обращается к хранилищу", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)

		cache.On("Get", "quiz:abc", mock.Anything).
			Run(func(args mock.Arguments) {
				ptr := args.Get(1).(**models.Quiz)
				*ptr = &models.Quiz{ID: "abc", Title: "Из кеша"}
			}).Return(true, nil).Once()

		svc := New(repo, cache, newNoopLogger())
		got, err := svc.Get(context.Background(), "abc")
		require.NoError(t, err)
		assert.Equal(t, "Из кеша", got.Title)

		repo.AssertNotCalled(t, "ReadQuiz", mock.Anything, mock.Anything)
	})

	t.Run("промах кеша читает хранилище и кеширует", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)

		cache.On("Get", "quiz:abc", mock.Anything).Return(false, nil).Once()
		repo.On("ReadQuiz", mock.Anything, "abc").Return(&models.Quiz{ID: "abc"}, nil).Once()
		cache.On("Set", "quiz:abc", mock.Anything, time.Hour).Return(nil).Once()

		svc := New(repo, cache, newNoopLogger())
		got, err := svc.Get(context.Background(), "abc")
		require.NoError(t, err)
		assert.Equal(t, "abc", got.ID)

		repo.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	t.Run("неизвестная викторина", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)

		cache.On("Get", "quiz:ghost", mock.Anything).Return(false, nil).Once()
		repo.On("ReadQuiz", mock.Anything, "ghost").Return(nil, models.ErrNotFound).Once()

		svc := New(repo, cache, newNoopLogger())
		_, err := svc.Get(context.Background(), "ghost")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestQuizService_SubmitAttempt(t *testing.T) {
	storedQuiz := func() *models.Quiz {
		req := validQuizReq()
		q := &models.Quiz{
			ID:          "abc",
			Title:       req.Title,
			Description: req.Description,
			Difficulty:  req.Difficulty,
			Questions:   req.Questions,
		}
		q.Questions[0].ID = "q1"
		q.Questions[1].ID = "q2"
		return q
	}

	t.Run("попытка оценивается на сервере и сохраняется", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)

		cache.On("Get", "quiz:abc", mock.Anything).Return(false, nil).Once()
		repo.On("ReadQuiz", mock.Anything, "abc").Return(storedQuiz(), nil).Once()
		cache.On("Set", "quiz:abc", mock.Anything, time.Hour).Return(nil).Once()
		repo.On("CreateQuizResult", mock.Anything, mock.MatchedBy(func(res models.QuizResult) bool {
			return res.QuizID == "abc" &&
				res.Username == "alice" &&
				res.CorrectAnswers == 1 &&
				res.Score == 50.0 &&
				!res.Passed
		})).Return(nil).Once()

		svc := New(repo, cache, newNoopLogger())
		got, err := svc.SubmitAttempt(context.Background(), "abc", "alice", models.DummyAttempt{
			Answers: []models.SubmittedAnswer{
				{QuestionID: "q1", SelectedOption: "Диапазон открытие-закрытие"},
				{QuestionID: "q2", SelectedBool: boolPtr(false)},
			},
			TimeSpent: 120,
		})
		require.NoError(t, err)
		assert.Equal(t, 50.0, got.Score)
		assert.Equal(t, 120, got.TimeSpent)

		repo.AssertExpectations(t)
	})

	t.Run("полный правильный набор проходит порог", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)

		cache.On("Get", "quiz:abc", mock.Anything).Return(false, nil).Once()
		repo.On("ReadQuiz", mock.Anything, "abc").Return(storedQuiz(), nil).Once()
		cache.On("Set", "quiz:abc", mock.Anything, time.Hour).Return(nil).Once()
		repo.On("CreateQuizResult", mock.Anything, mock.MatchedBy(func(res models.QuizResult) bool {
			return res.Score == 100.0 && res.Passed
		})).Return(nil).Once()

		svc := New(repo, cache, newNoopLogger())
		got, err := svc.SubmitAttempt(context.Background(), "abc", "alice", models.DummyAttempt{
			Answers: []models.SubmittedAnswer{
				{QuestionID: "q1", SelectedOption: "Диапазон открытие-закрытие"},
				{QuestionID: "q2", SelectedBool: boolPtr(true)},
			},
		})
		require.NoError(t, err)
		assert.True(t, got.Passed)
	})

	t.Run("попытка по несуществующей викторине", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)

		cache.On("Get", "quiz:ghost", mock.Anything).Return(false, nil).Once()
		repo.On("ReadQuiz", mock.Anything, "ghost").Return(nil, models.ErrNotFound).Once()

		svc := New(repo, cache, newNoopLogger())
		_, err := svc.SubmitAttempt(context.Background(), "ghost", "alice", models.DummyAttempt{
			Answers: []models.SubmittedAnswer{{QuestionID: "q1"}},
		})
		assert.ErrorIs(t, err, models.ErrNotFound)
		repo.AssertNotCalled(t, "CreateQuizResult", mock.Anything, mock.Anything)
	})
}

func TestQuizService_ListResults(t *testing.T) {
	repo := new(RepoMock)
	expected := []*models.QuizResult{{QuizID: "abc", Username: "alice", Score: 80}}
	repo.On("ListQuizResults", mock.Anything, "abc").Return(expected, nil).Once()

	svc := New(repo, new(CacheMock), newNoopLogger())
	got, err := svc.ListResults(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, expected, got)
}
