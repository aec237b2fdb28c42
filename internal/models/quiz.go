// Package models содержит доменные структуры образовательной части платформы:
// викторины, вопросы, ответы пользователей и результаты прохождения,
// а также вспомогательные типы для приёма данных из JSON-запросов.
package models

import "time"

// Типы вопросов викторины.
const (
	QuestionTypeMultipleChoice = "multiple-choice"
	QuestionTypeTrueFalse      = "true-false"
	QuestionTypeMatching       = "matching"
)

// Уровни сложности викторины.
const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

// MatchingPair представляет одну пару "элемент — соответствие" в вопросе типа matching.
type MatchingPair struct {
	Item  string `json:"item"`
	Match string `json:"match"`
}

// Question представляет один вопрос викторины. Поля, специфичные для типа,
// заполняются в зависимости от значения Type: Options и CorrectOption для
// multiple-choice, CorrectBool для true-false, Pairs для matching.
type Question struct {
	ID            string            `json:"id"`
	Type          string            `json:"type"`
	Text          string            `json:"text"`
	Explanation   string            `json:"explanation,omitempty"`
	Options       []string          `json:"options,omitempty"`        // Варианты ответа (multiple-choice)
	CorrectOption string            `json:"correct_option,omitempty"` // Правильный вариант (multiple-choice)
	CorrectBool   *bool             `json:"correct_bool,omitempty"`   // Правильный ответ (true-false), строго bool
	Pairs         []MatchingPair    `json:"pairs,omitempty"`          // Пары для сопоставления (matching)
	Feedback      map[string]string `json:"feedback,omitempty"`       // Пояснения по вариантам ответа
}

// Quiz представляет викторину целиком. После создания викторина неизменяема,
// идентификатор назначается при сохранении и не выводится из заголовка.
type Quiz struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Difficulty  string     `json:"difficulty"`
	Questions   []Question `json:"questions"`
	CreatedAt   time.Time  `json:"created_at"`
}

// SubmittedAnswer представляет сырой ответ пользователя на один вопрос.
// Корректность ответа вычисляется на сервере, от клиента она не принимается.
type SubmittedAnswer struct {
	QuestionID     string         `json:"question_id"`
	SelectedOption string         `json:"selected_option,omitempty"`
	SelectedBool   *bool          `json:"selected_bool,omitempty"`
	SelectedPairs  []MatchingPair `json:"selected_pairs,omitempty"`
}

// QuizAnswer — оценённый ответ на вопрос, входит в состав результата.
type QuizAnswer struct {
	QuestionID string    `json:"question_id"`
	IsCorrect  bool      `json:"is_correct"`
	AnsweredAt time.Time `json:"answered_at"`
}

// QuizResult представляет итог одного прохождения викторины.
// Вычисляется один раз по полному набору ответов и далее не изменяется.
type QuizResult struct {
	QuizID         string       `json:"quiz_id"`
	Username       string       `json:"username"`
	Answers        []QuizAnswer `json:"answers"`
	Score          float64      `json:"score"` // Процент правильных ответов, 0–100, без округления
	TotalQuestions int          `json:"total_questions"`
	CorrectAnswers int          `json:"correct_answers"`
	Passed         bool         `json:"passed"`
	CompletedAt    time.Time    `json:"completed_at"`
	TimeSpent      int          `json:"time_spent"` // Время прохождения в секундах
}

// DummyQuiz используется для приёма викторины из JSON-запроса
// (например, от внешнего генератора) до валидации и сохранения.
type DummyQuiz struct {
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description" validate:"required"`
	Difficulty  string     `json:"difficulty" validate:"required,oneof=beginner intermediate advanced"`
	Questions   []Question `json:"questions" validate:"required"`
}

// DummyAttempt используется для приёма завершённой попытки из JSON-запроса.
type DummyAttempt struct {
	Answers   []SubmittedAnswer `json:"answers" validate:"required"`
	TimeSpent int               `json:"time_spent" validate:"gte=0"`
}
