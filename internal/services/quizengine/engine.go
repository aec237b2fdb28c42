// Package quizengine реализует чистую логику проверки и оценки викторин:
// валидацию структуры викторины, проверку ответов и подсчёт результата.
// Пакет не выполняет I/O и не хранит состояние, все функции детерминированы.
package quizengine

import (
	"fmt"
	"time"

	"github.com/magabrotheeeer/trading-academy/internal/models"
)

// PassingScore — порог прохождения викторины в процентах.
const PassingScore = 70.0

// ValidateQuiz проверяет структурную целостность викторины и возвращает
// список всех найденных нарушений. Проверка не останавливается на первой
// ошибке. Пустой список означает, что викторина корректна.
func ValidateQuiz(q models.Quiz) []string {
	var errs []string

	if q.Title == "" {
		errs = append(errs, "quiz title must not be empty")
	}
	if q.Description == "" {
		errs = append(errs, "quiz description must not be empty")
	}
	if len(q.Questions) == 0 {
		errs = append(errs, "quiz must contain at least one question")
	}

	for i, question := range q.Questions {
		label := fmt.Sprintf("question %d", i+1)
		if question.ID == "" {
			errs = append(errs, fmt.Sprintf("%s: id is missing", label))
		}
		if question.Text == "" {
			errs = append(errs, fmt.Sprintf("%s: text must not be empty", label))
		}

		switch question.Type {
		case models.QuestionTypeMultipleChoice:
			if len(question.Options) < 2 {
				errs = append(errs, fmt.Sprintf("%s: multiple-choice question must have at least 2 options", label))
			}
			if question.CorrectOption == "" {
				errs = append(errs, fmt.Sprintf("%s: correct option must not be empty", label))
			} else if !containsOption(question.Options, question.CorrectOption) {
				errs = append(errs, fmt.Sprintf("%s: correct option is not among the options", label))
			}
		case models.QuestionTypeTrueFalse:
			if question.CorrectBool == nil {
				errs = append(errs, fmt.Sprintf("%s: true-false question must have a boolean correct answer", label))
			}
		case models.QuestionTypeMatching:
			if len(question.Pairs) < 2 {
				errs = append(errs, fmt.Sprintf("%s: matching question must have at least 2 pairs", label))
			}
			for j, pair := range question.Pairs {
				if pair.Item == "" || pair.Match == "" {
					errs = append(errs, fmt.Sprintf("%s: pair %d must have both item and match", label, j+1))
				}
			}
		default:
			errs = append(errs, fmt.Sprintf("%s: unknown question type %q", label, question.Type))
		}
	}
	return errs
}

// RepairQuestionIDs назначает отсутствующим вопросам идентификаторы вида
// q{index+1}. Это операция восстановления, а не валидации: вызывающий,
// выбравший семантику восстановления, применяет её до повторной валидации.
func RepairQuestionIDs(q *models.Quiz) {
	for i := range q.Questions {
		if q.Questions[i].ID == "" {
			q.Questions[i].ID = fmt.Sprintf("q%d", i+1)
		}
	}
}

// IsAnswerCorrect проверяет ответ пользователя на вопрос.
// Для matching сравнение чувствительно к порядку пар.
// Неизвестный тип вопроса считается неверным ответом.
func IsAnswerCorrect(q models.Question, answer models.SubmittedAnswer) bool {
	switch q.Type {
	case models.QuestionTypeMultipleChoice:
		return answer.SelectedOption != "" && answer.SelectedOption == q.CorrectOption
	case models.QuestionTypeTrueFalse:
		return q.CorrectBool != nil && answer.SelectedBool != nil && *answer.SelectedBool == *q.CorrectBool
	case models.QuestionTypeMatching:
		if len(answer.SelectedPairs) != len(q.Pairs) {
			return false
		}
		for i, pair := range q.Pairs {
			if answer.SelectedPairs[i] != pair {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Score вычисляет результат прохождения викторины по сырым ответам.
// Корректность каждого ответа вычисляется заново по определению вопроса,
// предвычисленные клиентом флаги не принимаются. Процент точный, без
// округления. Викторина без вопросов отклоняется до деления.
func Score(q models.Quiz, answers []models.SubmittedAnswer, timeSpent int, username string, completedAt time.Time) (models.QuizResult, error) {
	if len(q.Questions) == 0 {
		return models.QuizResult{}, models.ErrEmptyQuiz
	}

	byQuestion := make(map[string]models.SubmittedAnswer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	result := models.QuizResult{
		QuizID:         q.ID,
		Username:       username,
		TotalQuestions: len(q.Questions),
		CompletedAt:    completedAt,
		TimeSpent:      timeSpent,
	}
	for _, question := range q.Questions {
		answer, ok := byQuestion[question.ID]
		correct := ok && IsAnswerCorrect(question, answer)
		if correct {
			result.CorrectAnswers++
		}
		result.Answers = append(result.Answers, models.QuizAnswer{
			QuestionID: question.ID,
			IsCorrect:  correct,
			AnsweredAt: completedAt,
		})
	}

	result.Score = 100 * float64(result.CorrectAnswers) / float64(result.TotalQuestions)
	result.Passed = result.Score >= PassingScore
	return result, nil
}

func containsOption(options []string, option string) bool {
	for _, o := range options {
		if o == option {
			return true
		}
	}
	return false
}
