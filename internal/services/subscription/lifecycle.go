// Package subscription реализует машину состояний жизненного цикла подписки.
// Все переходы статусов (создание, продление, конверсия триала, отмена,
// приостановка, истечение) выполняются только через этот сервис.
// Каждый переход фиксируется событием аудита и публикуется во внешний
// диспетчер уведомлений. Изменения записей защищены оптимистической
// блокировкой по полю Version, без межподписочных блокировок.
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/trading-academy/internal/lib/period"
	"github.com/magabrotheeeer/trading-academy/internal/lib/sl"
	"github.com/magabrotheeeer/trading-academy/internal/metrics"
	"github.com/magabrotheeeer/trading-academy/internal/models"
	"github.com/magabrotheeeer/trading-academy/internal/paymentprovider"
)

const (
	// RenewalWindow — окно, в пределах которого подписка считается
	// подлежащей продлению.
	RenewalWindow = 24 * time.Hour
	// MaxPaymentFailures — число подряд неуспешных списаний, после
	// которого подписка приостанавливается.
	MaxPaymentFailures = 3
	// SuspendedGrace — срок после окончания периода, по истечении
	// которого приостановленная подписка переводится в expired.
	SuspendedGrace = 7 * 24 * time.Hour
)

// Repository определяет методы хранилища для подписок, планов и событий.
type Repository interface {
	// CreateSubscription сохраняет новую подписку.
	CreateSubscription(ctx context.Context, sub *models.Subscription) error
	// ReadSubscription возвращает подписку по ID.
	ReadSubscription(ctx context.Context, id string) (*models.Subscription, error)
	// UpdateSubscription условно обновляет подписку: запись перезаписывается
	// только при совпадении версии, иначе возвращается ErrVersionConflict.
	UpdateSubscription(ctx context.Context, sub *models.Subscription, expectedVersion int) error
	// ListUserSubscriptions возвращает все подписки пользователя.
	ListUserSubscriptions(ctx context.Context, username string) ([]*models.Subscription, error)
	// ReadPlan возвращает тарифный план по ID.
	ReadPlan(ctx context.Context, id string) (*models.Plan, error)
	// AppendEvent добавляет событие в журнал аудита.
	AppendEvent(ctx context.Context, event models.SubscriptionEvent) error
	// ListEvents возвращает журнал событий подписки.
	ListEvents(ctx context.Context, subscriptionID string) ([]*models.SubscriptionEvent, error)
	// AppendBillingRecord добавляет запись в историю списаний.
	AppendBillingRecord(ctx context.Context, subscriptionID string, record models.BillingRecord) error
	// ListBillingRecords возвращает историю списаний подписки.
	ListBillingRecords(ctx context.Context, subscriptionID string) ([]*models.BillingRecord, error)
}

// PaymentProcessor описывает контракт внешнего платёжного провайдера.
type PaymentProcessor interface {
	CreatePaymentIntent(ctx context.Context, req paymentprovider.CreateIntentRequest) (*paymentprovider.PaymentIntent, error)
	ProcessPayment(ctx context.Context, intentID string) (*paymentprovider.ProcessResult, error)
}

// EventPublisher публикует события жизненного цикла во внешнюю шину
// для диспетчера уведомлений.
type EventPublisher interface {
	Publish(event models.SubscriptionEvent) error
}

// Cache описывает методы для кэширования подписок.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Lifecycle реализует бизнес-логику жизненного цикла подписок.
type Lifecycle struct {
	repo           Repository
	payments       PaymentProcessor
	events         EventPublisher
	cache          Cache
	log            *slog.Logger
	paymentTimeout time.Duration
}

// New создает новый экземпляр Lifecycle.
func New(repo Repository, payments PaymentProcessor, events EventPublisher, cache Cache, log *slog.Logger, paymentTimeout time.Duration) *Lifecycle {
	return &Lifecycle{
		repo:           repo,
		payments:       payments,
		events:         events,
		cache:          cache,
		log:            log,
		paymentTimeout: paymentTimeout,
	}
}

// Create оформляет новую подписку. Для пробной подписки списание не
// выполняется, иначе первый платёж проводится сразу; неуспех платежа
// возвращается вызывающему как ошибка — это прямое действие пользователя.
func (l *Lifecycle) Create(ctx context.Context, username string, req models.DummySubscription) (*models.Subscription, error) {
	plan, err := l.repo.ReadPlan(ctx, req.PlanID)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}

	now := time.Now().UTC()
	sub := &models.Subscription{
		ID:            uuid.New().String(),
		Username:      username,
		PlanID:        plan.ID,
		PaymentMethod: req.PaymentMethod,
		AutoRenew:     req.AutoRenew,
		StartDate:     now,
		Metadata:      map[string]string{},
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, id := range req.AddOnIDs {
		sub.AddOns = append(sub.AddOns, models.AddOn{ID: id, StartDate: now, AutoRenew: req.AutoRenew})
	}

	var invoiceID string
	if req.IsTrial && plan.TrialDays > 0 {
		trialEnd := now.AddDate(0, 0, plan.TrialDays)
		sub.Status = models.StatusTrial
		sub.TrialEndDate = &trialEnd
		sub.EndDate = trialEnd
		sub.CurrentPeriod = models.BillingPeriod{StartDate: now, EndDate: trialEnd, IsTrialPeriod: true}
	} else {
		invoiceID, err = l.charge(ctx, sub, plan)
		if err != nil {
			return nil, err
		}
		sub.Status = models.StatusActive
		sub.EndDate = period.Next(now, plan.PeriodMonths)
		sub.CurrentPeriod = models.BillingPeriod{StartDate: now, EndDate: sub.EndDate}
	}

	if err := l.repo.CreateSubscription(ctx, sub); err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	// Запись биллинга строго после вставки подписки: на её строку
	// ссылается внешний ключ billing_records.subscription_id.
	if invoiceID != "" {
		if err := l.repo.AppendBillingRecord(ctx, sub.ID, models.BillingRecord{
			InvoiceID: invoiceID,
			Amount:    plan.Price,
			Status:    "paid",
			Date:      now,
		}); err != nil {
			l.log.Warn("failed to append billing record", sl.Err(err))
		}
	}
	l.log.Info("created subscription",
		slog.String("id", sub.ID), slog.String("status", sub.Status))

	l.emit(ctx, sub, models.EventCreated, "subscription created", map[string]string{
		"plan_id": plan.ID,
		"trial":   strconv.FormatBool(sub.Status == models.StatusTrial),
	})
	l.cacheSet(sub)
	return sub, nil
}

// readOwned возвращает подписку только её владельцу. Чужая подписка
// неотличима от несуществующей: возвращается ErrNotFound.
func (l *Lifecycle) readOwned(ctx context.Context, username, id string) (*models.Subscription, error) {
	sub, err := l.repo.ReadSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Username != username {
		return nil, models.ErrNotFound
	}
	return sub, nil
}

// Cancel отменяет подписку. Повторная отмена — no-op: возвращается текущее
// состояние без дублирующего события. Отмена из expired невозможна.
func (l *Lifecycle) Cancel(ctx context.Context, username, id, reason string) (*models.Subscription, error) {
	sub, err := l.readOwned(ctx, username, id)
	if err != nil {
		return nil, err
	}
	if sub.Status == models.StatusCancelled {
		return sub, nil
	}
	if sub.Status == models.StatusExpired {
		return nil, models.ErrSubscriptionTerminal
	}

	expectedVersion := sub.Version
	sub.Status = models.StatusCancelled
	sub.AutoRenew = false
	sub.CancelAtPeriodEnd = true
	if sub.Metadata == nil {
		sub.Metadata = map[string]string{}
	}
	if reason != "" {
		sub.Metadata["cancel_reason"] = reason
	}
	sub.Metadata["cancelled_at"] = time.Now().UTC().Format(time.RFC3339)

	if err := l.repo.UpdateSubscription(ctx, sub, expectedVersion); err != nil {
		return nil, err
	}
	l.log.Info("cancelled subscription", slog.String("id", sub.ID))

	l.emit(ctx, sub, models.EventCancelled, "subscription cancelled", map[string]string{"reason": reason})
	l.cacheInvalidate(sub.ID)
	return sub, nil
}

// ChangePlan переводит подписку на другой тарифный план без смены статуса.
func (l *Lifecycle) ChangePlan(ctx context.Context, username, id, newPlanID string) (*models.Subscription, error) {
	sub, err := l.readOwned(ctx, username, id)
	if err != nil {
		return nil, err
	}
	if sub.IsTerminal() {
		return nil, models.ErrSubscriptionTerminal
	}
	plan, err := l.repo.ReadPlan(ctx, newPlanID)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}

	expectedVersion := sub.Version
	oldPlanID := sub.PlanID
	sub.PlanID = plan.ID

	if err := l.repo.UpdateSubscription(ctx, sub, expectedVersion); err != nil {
		return nil, err
	}
	l.log.Info("changed subscription plan",
		slog.String("id", sub.ID), slog.String("from", oldPlanID), slog.String("to", plan.ID))

	l.emit(ctx, sub, models.EventPlanChanged, "subscription plan changed", map[string]string{
		"old_plan_id": oldPlanID,
		"new_plan_id": plan.ID,
	})
	l.cacheInvalidate(sub.ID)
	return sub, nil
}

// UpdatePaymentMethod заменяет платёжный метод подписки. Счётчик
// неуспешных списаний сбрасывается: новый метод получает чистую попытку.
func (l *Lifecycle) UpdatePaymentMethod(ctx context.Context, username, id, paymentMethod string) (*models.Subscription, error) {
	sub, err := l.readOwned(ctx, username, id)
	if err != nil {
		return nil, err
	}
	if sub.IsTerminal() {
		return nil, models.ErrSubscriptionTerminal
	}

	expectedVersion := sub.Version
	sub.PaymentMethod = paymentMethod
	sub.PaymentFailures = 0

	if err := l.repo.UpdateSubscription(ctx, sub, expectedVersion); err != nil {
		return nil, err
	}
	l.log.Info("updated payment method", slog.String("id", sub.ID))
	l.cacheInvalidate(sub.ID)
	return sub, nil
}

// Get возвращает подписку по ID, используя кеш или хранилище.
// Подписка выдаётся только владельцу, в том числе при попадании в кеш.
func (l *Lifecycle) Get(ctx context.Context, username, id string) (*models.Subscription, error) {
	var cached *models.Subscription
	cacheKey := subscriptionCacheKey(id)
	found, err := l.cache.Get(cacheKey, &cached)
	if err != nil {
		l.log.Warn("failed to read subscription from cache", slog.String("key", cacheKey), sl.Err(err))
	}
	if found {
		if cached.Username != username {
			return nil, models.ErrNotFound
		}
		return cached, nil
	}

	sub, err := l.readOwned(ctx, username, id)
	if err != nil {
		return nil, err
	}
	l.cacheSet(sub)
	return sub, nil
}

// ListUser возвращает все подписки пользователя.
func (l *Lifecycle) ListUser(ctx context.Context, username string) ([]*models.Subscription, error) {
	return l.repo.ListUserSubscriptions(ctx, username)
}

// ListEvents возвращает журнал аудита подписки её владельцу.
func (l *Lifecycle) ListEvents(ctx context.Context, username, id string) ([]*models.SubscriptionEvent, error) {
	if _, err := l.readOwned(ctx, username, id); err != nil {
		return nil, err
	}
	return l.repo.ListEvents(ctx, id)
}

// ListBilling возвращает историю списаний подписки её владельцу.
func (l *Lifecycle) ListBilling(ctx context.Context, username, id string) ([]*models.BillingRecord, error) {
	if _, err := l.readOwned(ctx, username, id); err != nil {
		return nil, err
	}
	return l.repo.ListBillingRecords(ctx, id)
}

// RecordUsage увеличивает счётчик потребления. Достигнутый лимит не меняет
// статус подписки: фиксируется событие usage_exceeded и возвращается
// ошибка, инкремент при этом не применяется. При достижении 90% лимита
// фиксируется предупреждение.
func (l *Lifecycle) RecordUsage(ctx context.Context, username, id, counter string, delta int) (*models.Subscription, error) {
	sub, err := l.readOwned(ctx, username, id)
	if err != nil {
		return nil, err
	}
	if sub.Status != models.StatusTrial && sub.Status != models.StatusActive {
		return nil, models.ErrSubscriptionTerminal
	}
	plan, err := l.repo.ReadPlan(ctx, sub.PlanID)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}

	current, limit, err := usageCounter(sub, plan, counter)
	if err != nil {
		return nil, err
	}
	next := current + delta
	if next > limit {
		l.emit(ctx, sub, models.EventUsageExceeded, "usage limit exceeded", map[string]string{
			"counter": counter,
			"limit":   strconv.Itoa(limit),
		})
		return nil, models.ErrUsageLimitExceeded
	}

	expectedVersion := sub.Version
	setUsageCounter(sub, counter, next)
	if err := l.repo.UpdateSubscription(ctx, sub, expectedVersion); err != nil {
		return nil, err
	}

	if next >= limit {
		l.emit(ctx, sub, models.EventUsageExceeded, "usage limit reached", map[string]string{
			"counter": counter,
			"limit":   strconv.Itoa(limit),
		})
	} else if float64(next) >= 0.9*float64(limit) {
		l.emit(ctx, sub, models.EventUsageWarning, "usage approaching limit", map[string]string{
			"counter": counter,
			"used":    strconv.Itoa(next),
			"limit":   strconv.Itoa(limit),
		})
	}
	l.cacheInvalidate(sub.ID)
	return sub, nil
}

// CheckUsage сравнивает счётчики потребления подписки с лимитами плана и
// фиксирует события предупреждения и превышения. Статус не меняется.
func (l *Lifecycle) CheckUsage(ctx context.Context, id string) error {
	sub, err := l.repo.ReadSubscription(ctx, id)
	if err != nil {
		return err
	}
	if sub.Status != models.StatusTrial && sub.Status != models.StatusActive {
		return nil
	}
	plan, err := l.repo.ReadPlan(ctx, sub.PlanID)
	if err != nil {
		return fmt.Errorf("read plan: %w", err)
	}

	for _, counter := range []string{"strategies", "backtests", "alerts", "api_calls"} {
		used, limit, err := usageCounter(sub, plan, counter)
		if err != nil {
			return err
		}
		if limit <= 0 {
			continue
		}
		switch {
		case used >= limit:
			l.emit(ctx, sub, models.EventUsageExceeded, "usage limit reached", map[string]string{
				"counter": counter,
				"used":    strconv.Itoa(used),
				"limit":   strconv.Itoa(limit),
			})
		case float64(used) >= 0.9*float64(limit):
			l.emit(ctx, sub, models.EventUsageWarning, "usage approaching limit", map[string]string{
				"counter": counter,
				"used":    strconv.Itoa(used),
				"limit":   strconv.Itoa(limit),
			})
		}
	}
	return nil
}

// ProcessRenewal продлевает одну подписку с автопродлением: списывает
// оплату и сдвигает текущий период вперёд. Неуспешное списание оставляет
// статус без изменений, фиксирует payment_failed и увеличивает счётчик
// неудач; после MaxPaymentFailures подряд подписка приостанавливается.
func (l *Lifecycle) ProcessRenewal(ctx context.Context, id string) error {
	sub, err := l.repo.ReadSubscription(ctx, id)
	if err != nil {
		return err
	}
	if sub.Status != models.StatusActive || !sub.AutoRenew || sub.CancelAtPeriodEnd {
		return nil
	}
	// Планировщик выбирает кандидатов пачкой, между выборкой и обработкой
	// подписка могла быть продлена вручную.
	if !period.WithinWindow(sub.EndDate, time.Now().UTC(), RenewalWindow) {
		return nil
	}
	plan, err := l.repo.ReadPlan(ctx, sub.PlanID)
	if err != nil {
		return fmt.Errorf("read plan: %w", err)
	}

	invoiceID, err := l.charge(ctx, sub, plan)
	if err != nil {
		return l.handlePaymentFailure(ctx, sub, "renewal payment failed")
	}

	now := time.Now().UTC()
	expectedVersion := sub.Version
	sub.CurrentPeriod = models.BillingPeriod{
		StartDate: sub.EndDate,
		EndDate:   period.Next(sub.EndDate, plan.PeriodMonths),
	}
	sub.EndDate = sub.CurrentPeriod.EndDate
	sub.PaymentFailures = 0
	sub.Usage = models.Usage{}

	if err := l.repo.UpdateSubscription(ctx, sub, expectedVersion); err != nil {
		return err
	}
	if err := l.repo.AppendBillingRecord(ctx, sub.ID, models.BillingRecord{
		InvoiceID: invoiceID,
		Amount:    plan.Price,
		Status:    "paid",
		Date:      now,
	}); err != nil {
		l.log.Warn("failed to append billing record", sl.Err(err))
	}
	metrics.RenewalsTotal.Inc()
	l.log.Info("renewed subscription",
		slog.String("id", sub.ID), slog.Time("new_end_date", sub.EndDate))

	l.emit(ctx, sub, models.EventRenewed, "subscription renewed", map[string]string{
		"invoice_id": invoiceID,
	})
	l.cacheInvalidate(sub.ID)
	return nil
}

// ProcessTrialExpiry конвертирует истёкший триал в активную подписку.
// Неуспешное списание не меняет статус: подписка остаётся в trial и
// попадает в следующий цикл проверки, пока не сработает эскалация.
func (l *Lifecycle) ProcessTrialExpiry(ctx context.Context, id string) error {
	sub, err := l.repo.ReadSubscription(ctx, id)
	if err != nil {
		return err
	}
	if sub.Status != models.StatusTrial {
		return nil
	}
	plan, err := l.repo.ReadPlan(ctx, sub.PlanID)
	if err != nil {
		return fmt.Errorf("read plan: %w", err)
	}

	invoiceID, err := l.charge(ctx, sub, plan)
	if err != nil {
		return l.handlePaymentFailure(ctx, sub, "trial conversion payment failed")
	}

	now := time.Now().UTC()
	expectedVersion := sub.Version
	sub.Status = models.StatusActive
	sub.CurrentPeriod = models.BillingPeriod{
		StartDate: now,
		EndDate:   period.Next(now, plan.PeriodMonths),
	}
	sub.EndDate = sub.CurrentPeriod.EndDate
	sub.PaymentFailures = 0
	sub.Usage = models.Usage{}

	if err := l.repo.UpdateSubscription(ctx, sub, expectedVersion); err != nil {
		return err
	}
	if err := l.repo.AppendBillingRecord(ctx, sub.ID, models.BillingRecord{
		InvoiceID: invoiceID,
		Amount:    plan.Price,
		Status:    "paid",
		Date:      now,
	}); err != nil {
		l.log.Warn("failed to append billing record", sl.Err(err))
	}
	l.log.Info("converted trial subscription", slog.String("id", sub.ID))

	l.emit(ctx, sub, models.EventTrialEnded, "trial converted to active", map[string]string{
		"outcome":    "converted",
		"invoice_id": invoiceID,
	})
	l.cacheInvalidate(sub.ID)
	return nil
}

// ExpireOverdue переводит приостановленную подписку в expired, если с
// окончания её периода прошло больше льготного срока.
func (l *Lifecycle) ExpireOverdue(ctx context.Context, id string) error {
	sub, err := l.repo.ReadSubscription(ctx, id)
	if err != nil {
		return err
	}
	if sub.Status != models.StatusSuspended {
		return nil
	}
	if !period.Overdue(sub.EndDate, time.Now().UTC(), SuspendedGrace) {
		return nil
	}

	expectedVersion := sub.Version
	sub.Status = models.StatusExpired
	sub.AutoRenew = false

	if err := l.repo.UpdateSubscription(ctx, sub, expectedVersion); err != nil {
		return err
	}
	l.log.Info("expired suspended subscription", slog.String("id", sub.ID))

	l.emit(ctx, sub, models.EventExpired, "subscription expired after grace period", nil)
	l.cacheInvalidate(sub.ID)
	return nil
}

// handlePaymentFailure фиксирует неуспешное списание: событие, счётчик
// неудач и, при исчерпании попыток, перевод в suspended.
func (l *Lifecycle) handlePaymentFailure(ctx context.Context, sub *models.Subscription, description string) error {
	metrics.PaymentFailuresTotal.Inc()

	expectedVersion := sub.Version
	sub.PaymentFailures++
	escalated := sub.PaymentFailures >= MaxPaymentFailures
	if escalated {
		sub.Status = models.StatusSuspended
	}

	if err := l.repo.UpdateSubscription(ctx, sub, expectedVersion); err != nil {
		return err
	}
	l.log.Warn("payment failed",
		slog.String("id", sub.ID),
		slog.Int("failures", sub.PaymentFailures),
		slog.Bool("escalated", escalated))

	l.emit(ctx, sub, models.EventPaymentFailed, description, map[string]string{
		"failures":  strconv.Itoa(sub.PaymentFailures),
		"escalated": strconv.FormatBool(escalated),
	})
	l.cacheInvalidate(sub.ID)
	return nil
}

// charge проводит списание через платёжного провайдера. Вызов ограничен
// таймаутом: истёкшее время трактуется как отказ в списании.
func (l *Lifecycle) charge(ctx context.Context, sub *models.Subscription, plan *models.Plan) (string, error) {
	paymentCtx, cancel := context.WithTimeout(ctx, l.paymentTimeout)
	defer cancel()

	metrics.PaymentAttemptsTotal.Inc()

	addOnIDs := make([]string, 0, len(sub.AddOns))
	for _, a := range sub.AddOns {
		addOnIDs = append(addOnIDs, a.ID)
	}
	intent, err := l.payments.CreatePaymentIntent(paymentCtx, paymentprovider.CreateIntentRequest{
		Username:      sub.Username,
		PlanID:        plan.ID,
		PaymentMethod: sub.PaymentMethod,
		AddOnIDs:      addOnIDs,
		Amount:        plan.Price,
		IsRecurring:   sub.AutoRenew,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrPaymentFailed, err)
	}

	result, err := l.payments.ProcessPayment(paymentCtx, intent.ID)
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrPaymentFailed, err)
	}
	if !result.Succeeded() {
		return "", fmt.Errorf("%w: %s", models.ErrPaymentFailed, result.Message)
	}
	return intent.ID, nil
}

// emit добавляет событие в журнал аудита и публикует его в шину.
// Журнал best-effort: сбой записи логируется, но не повторяется.
func (l *Lifecycle) emit(ctx context.Context, sub *models.Subscription, eventType, description string, metadata map[string]string) {
	event := models.SubscriptionEvent{
		ID:             uuid.New().String(),
		SubscriptionID: sub.ID,
		Username:       sub.Username,
		Type:           eventType,
		Description:    description,
		Metadata:       metadata,
		Timestamp:      time.Now().UTC(),
	}
	if err := l.repo.AppendEvent(ctx, event); err != nil {
		l.log.Error("failed to append subscription event",
			slog.String("type", eventType), sl.Err(err))
	}
	if err := l.events.Publish(event); err != nil {
		l.log.Error("failed to publish subscription event",
			slog.String("type", eventType), sl.Err(err))
	}
}

func (l *Lifecycle) cacheSet(sub *models.Subscription) {
	cacheKey := subscriptionCacheKey(sub.ID)
	if err := l.cache.Set(cacheKey, sub, time.Hour); err != nil {
		l.log.Warn("failed to cache subscription", slog.String("key", cacheKey), sl.Err(err))
	}
}

func (l *Lifecycle) cacheInvalidate(id string) {
	cacheKey := subscriptionCacheKey(id)
	if err := l.cache.Invalidate(cacheKey); err != nil {
		l.log.Warn("failed to invalidate subscription cache", slog.String("key", cacheKey), sl.Err(err))
	}
}

func subscriptionCacheKey(id string) string {
	return fmt.Sprintf("subscription:%s", id)
}

func usageCounter(sub *models.Subscription, plan *models.Plan, counter string) (current, limit int, err error) {
	switch counter {
	case "strategies":
		return sub.Usage.Strategies, plan.MaxStrategies, nil
	case "backtests":
		return sub.Usage.Backtests, plan.MaxBacktests, nil
	case "alerts":
		return sub.Usage.Alerts, plan.MaxAlerts, nil
	case "api_calls":
		return sub.Usage.APICalls, plan.MaxAPICalls, nil
	default:
		return 0, 0, fmt.Errorf("unknown usage counter: %s", counter)
	}
}

func setUsageCounter(sub *models.Subscription, counter string, value int) {
	switch counter {
	case "strategies":
		sub.Usage.Strategies = value
	case "backtests":
		sub.Usage.Backtests = value
	case "alerts":
		sub.Usage.Alerts = value
	case "api_calls":
		sub.Usage.APICalls = value
	}
}
