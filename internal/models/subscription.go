// Package models содержит доменную модель подписки пользователя платформы.
// Подписка принадлежит машине состояний жизненного цикла: все переходы
// статусов выполняются только через SubscriptionLifecycle, остальные
// компоненты читают записи, но не изменяют их напрямую.
package models

import "time"

// Статусы подписки. Cancelled и Expired — терминальные: автоматических
// переходов из них нет, возобновление оформляется новой подпиской.
const (
	StatusTrial     = "trial"
	StatusActive    = "active"
	StatusCancelled = "cancelled"
	StatusExpired   = "expired"
	StatusSuspended = "suspended"
)

// BillingPeriod описывает текущий оплаченный (или пробный) период подписки.
type BillingPeriod struct {
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	IsTrialPeriod bool      `json:"is_trial_period"`
}

// AddOn представляет дополнение к тарифному плану.
type AddOn struct {
	ID        string     `json:"id"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	AutoRenew bool       `json:"auto_renew"`
}

// Usage хранит счётчики потребления ресурсов за текущий период.
// Каждый счётчик неотрицателен и ограничен лимитами тарифного плана.
type Usage struct {
	Strategies int `json:"strategies"`
	Backtests  int `json:"backtests"`
	Alerts     int `json:"alerts"`
	APICalls   int `json:"api_calls"`
}

// BillingRecord — одна запись истории списаний.
type BillingRecord struct {
	InvoiceID string    `json:"invoice_id"`
	Amount    int       `json:"amount"`
	Status    string    `json:"status"`
	Date      time.Time `json:"date"`
}

// Subscription представляет подписку пользователя.
// Поле Version монотонно увеличивается при каждом изменении записи и
// используется для оптимистической блокировки: запись со старой версией
// не перезаписывается, вызывающий обязан перечитать и повторить.
type Subscription struct {
	ID                string            `json:"id"`
	Username          string            `json:"username"`
	PlanID            string            `json:"plan_id"`
	Status            string            `json:"status"`
	StartDate         time.Time         `json:"start_date"`
	EndDate           time.Time         `json:"end_date"`
	TrialEndDate      *time.Time        `json:"trial_end_date,omitempty"`
	CurrentPeriod     BillingPeriod     `json:"current_period"`
	PaymentMethod     string            `json:"payment_method"`
	AutoRenew         bool              `json:"auto_renew"`
	CancelAtPeriodEnd bool              `json:"cancel_at_period_end"`
	AddOns            []AddOn           `json:"add_ons,omitempty"`
	Usage             Usage             `json:"usage"`
	PaymentFailures   int               `json:"payment_failures"` // Подряд идущие неуспешные списания
	Metadata          map[string]string `json:"metadata,omitempty"`
	Version           int               `json:"version"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// IsTerminal сообщает, находится ли подписка в терминальном статусе.
func (s *Subscription) IsTerminal() bool {
	return s.Status == StatusCancelled || s.Status == StatusExpired
}

// Plan описывает тарифный план и его лимиты потребления.
// Нулевой лимит означает, что ресурс недоступен на данном плане.
type Plan struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Price         int    `json:"price"` // Цена за период в минорных единицах
	PeriodMonths  int    `json:"period_months"`
	TrialDays     int    `json:"trial_days"`
	MaxStrategies int    `json:"max_strategies"`
	MaxBacktests  int    `json:"max_backtests"`
	MaxAlerts     int    `json:"max_alerts"`
	MaxAPICalls   int    `json:"max_api_calls"`
}

// DummySubscription используется для приёма данных новой подписки из JSON-запроса.
type DummySubscription struct {
	PlanID        string   `json:"plan_id" validate:"required"`
	PaymentMethod string   `json:"payment_method" validate:"required"`
	AddOnIDs      []string `json:"add_on_ids,omitempty" validate:"omitempty,dive,required"`
	IsTrial       bool     `json:"is_trial"`
	AutoRenew     bool     `json:"auto_renew"`
}

// DummyCancel используется для приёма запроса отмены подписки.
type DummyCancel struct {
	Reason string `json:"reason,omitempty"`
}

// DummyChangePlan используется для приёма запроса смены тарифного плана.
type DummyChangePlan struct {
	NewPlanID string `json:"new_plan_id" validate:"required"`
}

// DummyPaymentMethod используется для приёма запроса смены платёжного метода.
type DummyPaymentMethod struct {
	PaymentMethod string `json:"payment_method" validate:"required"`
}

// DummyUsage используется для приёма инкремента счётчика потребления.
type DummyUsage struct {
	Counter string `json:"counter" validate:"required,oneof=strategies backtests alerts api_calls"`
	Delta   int    `json:"delta" validate:"required,gt=0"`
}
