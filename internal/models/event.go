package models

import "time"

// Типы событий жизненного цикла подписки. История событий append-only:
// записи никогда не изменяются и не удаляются.
const (
	EventCreated       = "created"
	EventRenewed       = "renewed"
	EventCancelled     = "cancelled"
	EventTrialEnded    = "trial_ended"
	EventPlanChanged   = "plan_changed"
	EventExpired       = "expired"
	EventPaymentFailed = "payment_failed"
	EventUsageWarning  = "usage_warning"
	EventUsageExceeded = "usage_exceeded"
)

// SubscriptionEvent представляет одно событие аудита жизненного цикла подписки.
type SubscriptionEvent struct {
	ID             string            `json:"id"`
	SubscriptionID string            `json:"subscription_id"`
	Username       string            `json:"username"`
	Type           string            `json:"type"`
	Description    string            `json:"description"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	Timestamp      time.Time         `json:"timestamp"`
}
