package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/trading-academy/internal/models"
)

// CreateSubscription вставляет новую запись подписки.
func (s *Storage) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	const op = "storage.CreateSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	addOns, err := json.Marshal(sub.AddOns)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	usage, err := json.Marshal(sub.Usage)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	metadata, err := json.Marshal(sub.Metadata)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO subscriptions (id, username, plan_id, status, start_date, end_date,
			      trial_end_date, period_start, period_end, is_trial_period, payment_method,
			      auto_renew, cancel_at_period_end, add_ons, usage, payment_failures,
			      metadata, version, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`
	_, err = s.DB.ExecContext(ctx, query,
		sub.ID, sub.Username, sub.PlanID, sub.Status, sub.StartDate, sub.EndDate,
		sub.TrialEndDate, sub.CurrentPeriod.StartDate, sub.CurrentPeriod.EndDate,
		sub.CurrentPeriod.IsTrialPeriod, sub.PaymentMethod, sub.AutoRenew,
		sub.CancelAtPeriodEnd, addOns, usage, sub.PaymentFailures,
		metadata, sub.Version, sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ReadSubscription возвращает подписку по её ID.
func (s *Storage) ReadSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	const op = "storage.ReadSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, username, plan_id, status, start_date, end_date, trial_end_date,
			      period_start, period_end, is_trial_period, payment_method, auto_renew,
			      cancel_at_period_end, add_ons, usage, payment_failures, metadata,
			      version, created_at, updated_at
			  FROM subscriptions WHERE id = $1`
	row := s.DB.QueryRowContext(ctx, query, id)

	sub, err := scanSubscription(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// UpdateSubscription условно обновляет подписку: запись перезаписывается
// только при совпадении версии. При несовпадении возвращается
// ErrVersionConflict, при отсутствии записи — ErrNotFound.
func (s *Storage) UpdateSubscription(ctx context.Context, sub *models.Subscription, expectedVersion int) error {
	const op = "storage.UpdateSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	addOns, err := json.Marshal(sub.AddOns)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	usage, err := json.Marshal(sub.Usage)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	metadata, err := json.Marshal(sub.Metadata)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `UPDATE subscriptions
			  SET plan_id = $1, status = $2, start_date = $3, end_date = $4,
			      trial_end_date = $5, period_start = $6, period_end = $7,
			      is_trial_period = $8, payment_method = $9, auto_renew = $10,
			      cancel_at_period_end = $11, add_ons = $12, usage = $13,
			      payment_failures = $14, metadata = $15,
			      version = version + 1, updated_at = NOW()
			  WHERE id = $16 AND version = $17`
	result, err := s.DB.ExecContext(ctx, query,
		sub.PlanID, sub.Status, sub.StartDate, sub.EndDate, sub.TrialEndDate,
		sub.CurrentPeriod.StartDate, sub.CurrentPeriod.EndDate, sub.CurrentPeriod.IsTrialPeriod,
		sub.PaymentMethod, sub.AutoRenew, sub.CancelAtPeriodEnd, addOns, usage,
		sub.PaymentFailures, metadata, sub.ID, expectedVersion)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		var exists bool
		if err := s.DB.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM subscriptions WHERE id = $1)`, sub.ID).Scan(&exists); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if !exists {
			return models.ErrNotFound
		}
		return models.ErrVersionConflict
	}
	sub.Version = expectedVersion + 1
	return nil
}

// ListUserSubscriptions возвращает все подписки пользователя.
func (s *Storage) ListUserSubscriptions(ctx context.Context, username string) ([]*models.Subscription, error) {
	const op = "storage.ListUserSubscriptions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, username, plan_id, status, start_date, end_date, trial_end_date,
			      period_start, period_end, is_trial_period, payment_method, auto_renew,
			      cancel_at_period_end, add_ons, usage, payment_failures, metadata,
			      version, created_at, updated_at
			  FROM subscriptions
			  WHERE username = $1
			  ORDER BY created_at`
	rows, err := s.DB.QueryContext(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ReadPlan возвращает тарифный план по его ID.
func (s *Storage) ReadPlan(ctx context.Context, id string) (*models.Plan, error) {
	const op = "storage.ReadPlan"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, name, price, period_months, trial_days,
			      max_strategies, max_backtests, max_alerts, max_api_calls
			  FROM plans WHERE id = $1`
	row := s.DB.QueryRowContext(ctx, query, id)

	var plan models.Plan
	if err := row.Scan(&plan.ID, &plan.Name, &plan.Price, &plan.PeriodMonths, &plan.TrialDays,
		&plan.MaxStrategies, &plan.MaxBacktests, &plan.MaxAlerts, &plan.MaxAPICalls); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &plan, nil
}

// AppendEvent добавляет событие в журнал аудита подписки.
func (s *Storage) AppendEvent(ctx context.Context, event models.SubscriptionEvent) error {
	const op = "storage.AppendEvent"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO subscription_events (id, subscription_id, username, type, description, metadata, timestamp)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = s.DB.ExecContext(ctx, query,
		event.ID, event.SubscriptionID, event.Username, event.Type,
		event.Description, metadata, event.Timestamp)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListEvents возвращает журнал событий подписки в порядке возникновения.
func (s *Storage) ListEvents(ctx context.Context, subscriptionID string) ([]*models.SubscriptionEvent, error) {
	const op = "storage.ListEvents"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, subscription_id, username, type, description, metadata, timestamp
			  FROM subscription_events
			  WHERE subscription_id = $1
			  ORDER BY timestamp`
	rows, err := s.DB.QueryContext(ctx, query, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.SubscriptionEvent
	for rows.Next() {
		var event models.SubscriptionEvent
		var metadata []byte
		if err := rows.Scan(&event.ID, &event.SubscriptionID, &event.Username, &event.Type,
			&event.Description, &metadata, &event.Timestamp); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		}
		result = append(result, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// AppendBillingRecord добавляет запись в историю списаний подписки.
func (s *Storage) AppendBillingRecord(ctx context.Context, subscriptionID string, record models.BillingRecord) error {
	const op = "storage.AppendBillingRecord"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO billing_records (invoice_id, subscription_id, amount, status, date)
			  VALUES ($1, $2, $3, $4, $5)`
	_, err := s.DB.ExecContext(ctx, query,
		record.InvoiceID, subscriptionID, record.Amount, record.Status, record.Date)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListBillingRecords возвращает историю списаний подписки.
func (s *Storage) ListBillingRecords(ctx context.Context, subscriptionID string) ([]*models.BillingRecord, error) {
	const op = "storage.ListBillingRecords"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT invoice_id, amount, status, date
			  FROM billing_records
			  WHERE subscription_id = $1
			  ORDER BY date`
	rows, err := s.DB.QueryContext(ctx, query, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.BillingRecord
	for rows.Next() {
		var record models.BillingRecord
		if err := rows.Scan(&record.InvoiceID, &record.Amount, &record.Status, &record.Date); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// FindDueRenewals возвращает ID активных подписок с автопродлением,
// чей период заканчивается в пределах окна.
func (s *Storage) FindDueRenewals(ctx context.Context, window time.Duration) ([]string, error) {
	const op = "storage.FindDueRenewals"
	query := `SELECT id
			  FROM subscriptions
			  WHERE status = 'active'
			    AND auto_renew = true
			    AND cancel_at_period_end = false
			    AND end_date <= NOW() + $1::interval`
	return s.queryIDs(ctx, op, query, fmt.Sprintf("%f seconds", window.Seconds()))
}

// FindExpiredTrials возвращает ID подписок с истёкшим пробным периодом.
func (s *Storage) FindExpiredTrials(ctx context.Context) ([]string, error) {
	const op = "storage.FindExpiredTrials"
	query := `SELECT id
			  FROM subscriptions
			  WHERE status = 'trial'
			    AND trial_end_date <= NOW()`
	return s.queryIDs(ctx, op, query)
}

// FindSuspendedOverdue возвращает ID приостановленных подписок,
// просрочивших льготный период.
func (s *Storage) FindSuspendedOverdue(ctx context.Context, grace time.Duration) ([]string, error) {
	const op = "storage.FindSuspendedOverdue"
	query := `SELECT id
			  FROM subscriptions
			  WHERE status = 'suspended'
			    AND end_date + $1::interval < NOW()`
	return s.queryIDs(ctx, op, query, fmt.Sprintf("%f seconds", grace.Seconds()))
}

// FindActiveSubscriptionIDs возвращает ID подписок в статусах trial и active.
func (s *Storage) FindActiveSubscriptionIDs(ctx context.Context) ([]string, error) {
	const op = "storage.FindActiveSubscriptionIDs"
	query := `SELECT id
			  FROM subscriptions
			  WHERE status IN ('trial', 'active')`
	return s.queryIDs(ctx, op, query)
}

func (s *Storage) queryIDs(ctx context.Context, op, query string, args ...any) ([]string, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	var sub models.Subscription
	var addOns, usage, metadata []byte
	if err := row.Scan(&sub.ID, &sub.Username, &sub.PlanID, &sub.Status, &sub.StartDate,
		&sub.EndDate, &sub.TrialEndDate, &sub.CurrentPeriod.StartDate, &sub.CurrentPeriod.EndDate,
		&sub.CurrentPeriod.IsTrialPeriod, &sub.PaymentMethod, &sub.AutoRenew,
		&sub.CancelAtPeriodEnd, &addOns, &usage, &sub.PaymentFailures, &metadata,
		&sub.Version, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
		return nil, err
	}
	if len(addOns) > 0 {
		if err := json.Unmarshal(addOns, &sub.AddOns); err != nil {
			return nil, err
		}
	}
	if len(usage) > 0 {
		if err := json.Unmarshal(usage, &sub.Usage); err != nil {
			return nil, err
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &sub.Metadata); err != nil {
			return nil, err
		}
	}
	return &sub, nil
}
