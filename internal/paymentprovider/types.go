package paymentprovider

import "time"

// CreateIntentRequest — запрос на создание платёжного намерения.
type CreateIntentRequest struct {
	Username      string   `json:"username"`
	PlanID        string   `json:"plan_id"`
	PaymentMethod string   `json:"payment_method"`
	AddOnIDs      []string `json:"add_on_ids,omitempty"`
	Amount        int      `json:"amount"`
	IsRecurring   bool     `json:"is_recurring"`
}

// PaymentIntent — ответ провайдера на создание намерения.
// Повторная обработка по одному и тому же ID безопасна: провайдер
// гарантирует идемпотентность по идентификатору намерения.
type PaymentIntent struct {
	ID        string    `json:"id"`
	Amount    int       `json:"amount"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
}

// ProcessResult — итог обработки платежа провайдером.
type ProcessResult struct {
	IntentID string `json:"intent_id"`
	Status   string `json:"status"` // succeeded | failed
	Message  string `json:"message,omitempty"`
}

// Succeeded сообщает, прошло ли списание.
func (r *ProcessResult) Succeeded() bool {
	return r.Status == "succeeded"
}
