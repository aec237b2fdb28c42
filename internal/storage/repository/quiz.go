package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/trading-academy/internal/models"
)

// CreateQuiz вставляет новую викторину. Вопросы хранятся единым JSON-документом:
// викторина после создания неизменяема и всегда читается целиком.
func (s *Storage) CreateQuiz(ctx context.Context, quiz *models.Quiz) error {
	const op = "storage.CreateQuiz"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	questions, err := json.Marshal(quiz.Questions)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO quizzes (id, title, description, difficulty, questions, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = s.DB.ExecContext(ctx, query,
		quiz.ID, quiz.Title, quiz.Description, quiz.Difficulty, questions, quiz.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ReadQuiz возвращает викторину по её ID.
func (s *Storage) ReadQuiz(ctx context.Context, id string) (*models.Quiz, error) {
	const op = "storage.ReadQuiz"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, title, description, difficulty, questions, created_at
			  FROM quizzes WHERE id = $1`
	row := s.DB.QueryRowContext(ctx, query, id)

	var quiz models.Quiz
	var questions []byte
	if err := row.Scan(&quiz.ID, &quiz.Title, &quiz.Description, &quiz.Difficulty,
		&questions, &quiz.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := json.Unmarshal(questions, &quiz.Questions); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &quiz, nil
}

// CreateQuizResult сохраняет результат прохождения викторины.
func (s *Storage) CreateQuizResult(ctx context.Context, result models.QuizResult) error {
	const op = "storage.CreateQuizResult"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	answers, err := json.Marshal(result.Answers)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO quiz_results (quiz_id, username, answers, score, total_questions,
			      correct_answers, passed, completed_at, time_spent)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = s.DB.ExecContext(ctx, query,
		result.QuizID, result.Username, answers, result.Score, result.TotalQuestions,
		result.CorrectAnswers, result.Passed, result.CompletedAt, result.TimeSpent)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListQuizResults возвращает результаты прохождения викторины.
func (s *Storage) ListQuizResults(ctx context.Context, quizID string) ([]*models.QuizResult, error) {
	const op = "storage.ListQuizResults"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT quiz_id, username, answers, score, total_questions,
			      correct_answers, passed, completed_at, time_spent
			  FROM quiz_results
			  WHERE quiz_id = $1
			  ORDER BY completed_at`
	rows, err := s.DB.QueryContext(ctx, query, quizID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.QuizResult
	for rows.Next() {
		var item models.QuizResult
		var answers []byte
		if err := rows.Scan(&item.QuizID, &item.Username, &answers, &item.Score,
			&item.TotalQuestions, &item.CorrectAnswers, &item.Passed,
			&item.CompletedAt, &item.TimeSpent); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := json.Unmarshal(answers, &item.Answers); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
