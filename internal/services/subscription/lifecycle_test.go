package subscription

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
	"github.com/magabrotheeeer/trading-academy/internal/paymentprovider"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	return m.Called(ctx, sub).Error(0)
}
func (m *RepoMock) ReadSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}
func (m *RepoMock) UpdateSubscription(ctx context.Context, sub *models.Subscription, expectedVersion int) error {
	return m.Called(ctx, sub, expectedVersion).Error(0)
}
func (m *RepoMock) ListUserSubscriptions(ctx context.Context, username string) ([]*models.Subscription, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Subscription), args.Error(1)
}
func (m *RepoMock) ReadPlan(ctx context.Context, id string) (*models.Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Plan), args.Error(1)
}
func (m *RepoMock) AppendEvent(ctx context.Context, event models.SubscriptionEvent) error {
	return m.Called(ctx, event).Error(0)
}
func (m *RepoMock) ListEvents(ctx context.Context, subscriptionID string) ([]*models.SubscriptionEvent, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SubscriptionEvent), args.Error(1)
}
func (m *RepoMock) AppendBillingRecord(ctx context.Context, subscriptionID string, record models.BillingRecord) error {
	return m.Called(ctx, subscriptionID, record).Error(0)
}
func (m *RepoMock) ListBillingRecords(ctx context.Context, subscriptionID string) ([]*models.BillingRecord, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BillingRecord), args.Error(1)
}

type PaymentsMock struct{ mock.Mock }

func (m *PaymentsMock) CreatePaymentIntent(ctx context.Context, req paymentprovider.CreateIntentRequest) (*paymentprovider.PaymentIntent, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentprovider.PaymentIntent), args.Error(1)
}
func (m *PaymentsMock) ProcessPayment(ctx context.Context, intentID string) (*paymentprovider.ProcessResult, error) {
	args := m.Called(ctx, intentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentprovider.ProcessResult), args.Error(1)
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(event models.SubscriptionEvent) error {
	return m.Called(event).Error(0)
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

func newLifecycle(repo *RepoMock, payments *PaymentsMock, events *PublisherMock, cache *CacheMock) *Lifecycle {
	return New(repo, payments, events, cache, newNoopLogger(), 5*time.Second)
}

func proPlan() *models.Plan {
	return &models.Plan{
		ID:            "pro",
		Name:          "Pro",
		Price:         299900,
		PeriodMonths:  1,
		TrialDays:     14,
		MaxStrategies: 20,
		MaxBacktests:  500,
		MaxAlerts:     100,
		MaxAPICalls:   10000,
	}
}

func activeSub(version int) *models.Subscription {
	now := time.Now().UTC()
	return &models.Subscription{
		ID:            "sub-1",
		Username:      "alice",
		PlanID:        "pro",
		Status:        models.StatusActive,
		StartDate:     now.AddDate(0, -1, 0),
		EndDate:       now.Add(12 * time.Hour),
		PaymentMethod: "card-1",
		AutoRenew:     true,
		Metadata:      map[string]string{},
		Version:       version,
	}
}

func expectCharge(p *PaymentsMock, succeed bool) {
	p.On("CreatePaymentIntent", mock.Anything, mock.Anything).
		Return(&paymentprovider.PaymentIntent{ID: "intent-1", Amount: 299900}, nil).Once()
	status := "succeeded"
	if !succeed {
		status = "failed"
	}
	p.On("ProcessPayment", mock.Anything, "intent-1").
		Return(&paymentprovider.ProcessResult{IntentID: "intent-1", Status: status}, nil).Once()
}

func TestLifecycle_Create(t *testing.T) {
	tests := []struct {
		name       string
		req        models.DummySubscription
		setupMocks func(r *RepoMock, p *PaymentsMock, e *PublisherMock, c *CacheMock)
		wantStatus string
		wantErr    error
	}{
		{
			name: "триал создается без списания и с одним событием created",
			req:  models.DummySubscription{PlanID: "pro", PaymentMethod: "card-1", IsTrial: true, AutoRenew: true},
			setupMocks: func(r *RepoMock, _ *PaymentsMock, e *PublisherMock, c *CacheMock) {
				r.On("ReadPlan", mock.Anything, "pro").Return(proPlan(), nil).Once()
				r.On("CreateSubscription", mock.Anything, mock.MatchedBy(func(s *models.Subscription) bool {
					return s.Status == models.StatusTrial &&
						s.TrialEndDate != nil &&
						s.CurrentPeriod.IsTrialPeriod &&
						s.Version == 1
				})).Return(nil).Once()
				r.On("AppendEvent", mock.Anything, mock.MatchedBy(func(ev models.SubscriptionEvent) bool {
					return ev.Type == models.EventCreated && ev.Metadata["trial"] == "true"
				})).Return(nil).Once()
				e.On("Publish", mock.MatchedBy(func(ev models.SubscriptionEvent) bool {
					return ev.Type == models.EventCreated
				})).Return(nil).Once()
				c.On("Set", mock.Anything, mock.Anything, time.Hour).Return(nil).Once()
			},
			wantStatus: models.StatusTrial,
		},
		{
			name: "платная подписка списывает оплату и пишет запись биллинга",
			req:  models.DummySubscription{PlanID: "pro", PaymentMethod: "card-1", AutoRenew: true},
			setupMocks: func(r *RepoMock, p *PaymentsMock, e *PublisherMock, c *CacheMock) {
				r.On("ReadPlan", mock.Anything, "pro").Return(proPlan(), nil).Once()
				expectCharge(p, true)
				r.On("AppendBillingRecord", mock.Anything, mock.Anything, mock.MatchedBy(func(rec models.BillingRecord) bool {
					return rec.InvoiceID == "intent-1" && rec.Status == "paid" && rec.Amount == 299900
				})).Return(nil).Once()
				r.On("CreateSubscription", mock.Anything, mock.MatchedBy(func(s *models.Subscription) bool {
					return s.Status == models.StatusActive && s.TrialEndDate == nil
				})).Return(nil).Once()
				r.On("AppendEvent", mock.Anything, mock.Anything).Return(nil).Once()
				e.On("Publish", mock.Anything).Return(nil).Once()
				c.On("Set", mock.Anything, mock.Anything, time.Hour).Return(nil).Once()
			},
			wantStatus: models.StatusActive,
		},
		{
			name: "неуспешное списание возвращает ошибку без создания подписки",
			req:  models.DummySubscription{PlanID: "pro", PaymentMethod: "card-1"},
			setupMocks: func(r *RepoMock, p *PaymentsMock, _ *PublisherMock, _ *CacheMock) {
				r.On("ReadPlan", mock.Anything, "pro").Return(proPlan(), nil).Once()
				expectCharge(p, false)
			},
			wantErr: models.ErrPaymentFailed,
		},
		{
			name: "неизвестный план",
			req:  models.DummySubscription{PlanID: "ghost", PaymentMethod: "card-1"},
			setupMocks: func(r *RepoMock, _ *PaymentsMock, _ *PublisherMock, _ *CacheMock) {
				r.On("ReadPlan", mock.Anything, "ghost").Return(nil, models.ErrNotFound).Once()
			},
			wantErr: models.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			payments := new(PaymentsMock)
			events := new(PublisherMock)
			cache := new(CacheMock)
			tt.setupMocks(repo, payments, events, cache)

			svc := newLifecycle(repo, payments, events, cache)
			sub, err := svc.Create(context.Background(), "alice", tt.req)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantStatus, sub.Status)
				assert.Equal(t, "alice", sub.Username)
				assert.NotEmpty(t, sub.ID)
			}

			repo.AssertExpectations(t)
			payments.AssertExpectations(t)
			events.AssertExpectations(t)
			cache.AssertExpectations(t)
		})
	}
}

func TestLifecycle_CreateBillingAfterInsert(t *testing.T) {
	// billing_records ссылается на subscriptions по внешнему ключу,
	// поэтому запись биллинга пишется только после вставки подписки.
	repo := new(RepoMock)
	payments := new(PaymentsMock)
	events := new(PublisherMock)
	cache := new(CacheMock)

	var calls []string
	repo.On("ReadPlan", mock.Anything, "pro").Return(proPlan(), nil).Once()
	expectCharge(payments, true)
	repo.On("CreateSubscription", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { calls = append(calls, "create") }).
		Return(nil).Once()
	repo.On("AppendBillingRecord", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { calls = append(calls, "billing") }).
		Return(nil).Once()
	repo.On("AppendEvent", mock.Anything, mock.Anything).Return(nil).Once()
	events.On("Publish", mock.Anything).Return(nil).Once()
	cache.On("Set", mock.Anything, mock.Anything, time.Hour).Return(nil).Once()

	svc := newLifecycle(repo, payments, events, cache)
	sub, err := svc.Create(context.Background(), "alice", models.DummySubscription{
		PlanID: "pro", PaymentMethod: "card-1", AutoRenew: true,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"create", "billing"}, calls)

	repo.AssertCalled(t, "AppendBillingRecord", mock.Anything, sub.ID, mock.Anything)
	repo.AssertExpectations(t)
	payments.AssertExpectations(t)
}

func TestLifecycle_OwnershipIsolation(t *testing.T) {
	// Чужая подписка неотличима от несуществующей: любой доступ
	// не к своей подписке завершается ErrNotFound без изменений.
	t.Run("отмена чужой подписки", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("ReadSubscription", mock.Anything, "sub-1").Return(activeSub(3), nil).Once()

		svc := newLifecycle(repo, new(PaymentsMock), new(PublisherMock), new(CacheMock))
		_, err := svc.Cancel(context.Background(), "mallory", "sub-1", "takeover")
		assert.ErrorIs(t, err, models.ErrNotFound)
		repo.AssertNotCalled(t, "UpdateSubscription", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("смена плана чужой подписки", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("ReadSubscription", mock.Anything, "sub-1").Return(activeSub(3), nil).Once()

		svc := newLifecycle(repo, new(PaymentsMock), new(PublisherMock), new(CacheMock))
		_, err := svc.ChangePlan(context.Background(), "mallory", "sub-1", "elite")
		assert.ErrorIs(t, err, models.ErrNotFound)
		repo.AssertNotCalled(t, "ReadPlan", mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "UpdateSubscription", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("чтение чужой подписки из кеша", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)

		cache.On("Get", "subscription:sub-1", mock.Anything).
			Run(func(args mock.Arguments) {
				ptr := args.Get(1).(**models.Subscription)
				*ptr = activeSub(1)
			}).Return(true, nil).Once()

		svc := newLifecycle(repo, new(PaymentsMock), new(PublisherMock), cache)
		_, err := svc.Get(context.Background(), "mallory", "sub-1")
		assert.ErrorIs(t, err, models.ErrNotFound)
		repo.AssertNotCalled(t, "ReadSubscription", mock.Anything, mock.Anything)
	})

	t.Run("журнал событий чужой подписки", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("ReadSubscription", mock.Anything, "sub-1").Return(activeSub(1), nil).Once()

		svc := newLifecycle(repo, new(PaymentsMock), new(PublisherMock), new(CacheMock))
		_, err := svc.ListEvents(context.Background(), "mallory", "sub-1")
		assert.ErrorIs(t, err, models.ErrNotFound)
		repo.AssertNotCalled(t, "ListEvents", mock.Anything, mock.Anything)
	})

	t.Run("история списаний чужой подписки", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("ReadSubscription", mock.Anything, "sub-1").Return(activeSub(1), nil).Once()

		svc := newLifecycle(repo, new(PaymentsMock), new(PublisherMock), new(CacheMock))
		_, err := svc.ListBilling(context.Background(), "mallory", "sub-1")
		assert.ErrorIs(t, err, models.ErrNotFound)
		repo.AssertNotCalled(t, "ListBillingRecords", mock.Anything, mock.Anything)
	})
}

func TestLifecycle_Cancel(t *testing.T) {
	t.Run("успешная отмена фиксирует событие и инвалидирует кеш", func(t *testing.T) {
		repo := new(RepoMock)
		payments := new(PaymentsMock)
		events := new(PublisherMock)
		cache := new(CacheMock)

		sub := activeSub(4)
		repo.On("ReadSubscription", mock.Anything, "sub-1").Return(sub, nil).Once()
		repo.On("UpdateSubscription", mock.Anything, mock.MatchedBy(func(s *models.Subscription) bool {
			return s.Status == models.StatusCancelled &&
				!s.AutoRenew &&
				s.CancelAtPeriodEnd &&
				s.Metadata["cancel_reason"] == "too expensive"
		}), 4).Return(nil).Once()
		repo.On("AppendEvent", mock.Anything, mock.MatchedBy(func(ev models.SubscriptionEvent) bool {
			return ev.Type == models.EventCancelled
		})).Return(nil).Once()
		events.On("Publish", mock.Anything).Return(nil).Once()
		cache.On("Invalidate", "subscription:sub-1").Return(nil).Once()

		svc := newLifecycle(repo, payments, events, cache)
		got, err := svc.Cancel(context.Background(), "alice", "sub-1", "too expensive")
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, got.Status)

		repo.AssertExpectations(t)
		events.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	t.Run("повторная отмена не пишет дублирующее событие", func(t *testing.T) {
		repo := new(RepoMock)
		events := new(PublisherMock)
		cache := new(CacheMock)

		sub := activeSub(5)
		sub.Status = models.StatusCancelled
		repo.On("ReadSubscription", mock.Anything, "sub-1").Return(sub, nil).Once()

		svc := newLifecycle(repo, new(PaymentsMock), events, cache)
		got, err := svc.Cancel(context.Background(), "alice", "sub-1", "again")
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, got.Status)

		repo.AssertExpectations(t)
		repo.AssertNotCalled(t, "UpdateSubscription", mock.Anything, mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "AppendEvent", mock.Anything, mock.Anything)
		events.AssertNotCalled(t, "Publish", mock.Anything)
	})

	t.Run("отмена истекшей подписки невозможна", func(t *testing.T) {
		repo := new(RepoMock)
		sub := activeSub(2)
		sub.Status = models.StatusExpired
		repo.On("ReadSubscription", mock.Anything, "sub-1").Return(sub, nil).Once()

		svc := newLifecycle(repo, new(PaymentsMock), new(PublisherMock), new(CacheMock))
		_, err := svc.Cancel(context.Background(), "alice", "sub-1", "")
		assert.ErrorIs(t, err, models.ErrSubscriptionTerminal)
	})

	t.Run("конфликт версий возвращается вызывающему", func(t *testing.T) {
		repo := new(RepoMock)
		sub := activeSub(7)
		repo.On("ReadSubscription", mock.Anything, "sub-1").Return(sub, nil).Once()
		repo.On("UpdateSubscription", mock.Anything, mock.Anything, 7).
			Return(models.ErrVersionConflict).Once()

		svc := newLifecycle(repo, new(PaymentsMock), new(PublisherMock), new(CacheMock))
		_, err := svc.Cancel(context.Background(), "alice", "sub-1", "")
		assert.ErrorIs(t, err, models.ErrVersionConflict)
		repo.AssertNotCalled(t, "AppendEvent", mock.Anything, mock.Anything)
	})
}

func TestLifecycle_ChangePlan(t *testing.T) {
	repo := new(RepoMock)
	events := new(PublisherMock)
	cache := new(CacheMock)

	sub := activeSub(3)
	newPlan := &models.Plan{ID: "elite", Name: "Elite", Price: 999900, PeriodMonths: 1}
	repo.On("ReadSubscription", mock.Anything, "sub-1").Return(sub, nil).Once()
	repo.On("ReadPlan", mock.Anything, "elite").Return(newPlan, nil).Once()
	repo.On("UpdateSubscription", mock.Anything, mock.MatchedBy(func(s *models.Subscription) bool {
		return s.PlanID == "elite" && s.Status == models.StatusActive
	}), 3).Return(nil).Once()
	repo.On("AppendEvent", mock.Anything, mock.MatchedBy(func(ev models.SubscriptionEvent) bool {
		return ev.Type == models.EventPlanChanged &&
			ev.Metadata["old_plan_id"] == "pro" &&
			ev.Metadata["new_plan_id"] == "elite"
	})).Return(nil).Once()
	events.On("Publish", mock.Anything).Return(nil).Once()
	cache.On("Invalidate", "subscription:sub-1").Return(nil).Once()

	svc := newLifecycle(repo, new(PaymentsMock), events, cache)
	got, err := svc.ChangePlan(context.Background(), "alice", "sub-1", "elite")
	require.NoError(t, err)
	assert.Equal(t, "elite", got.PlanID)

	repo.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestLifecycle_UpdatePaymentMethod(t *testing.T) {
	repo := new(RepoMock)
	cache := new(CacheMock)

	sub := activeSub(2)
	sub.PaymentFailures = 2
	repo.On("ReadSubscription", mock.Anything, "sub-1").Return(sub, nil).Once()
	repo.On("UpdateSubscription", mock.Anything, mock.MatchedBy(func(s *models.Subscription) bool {
		return s.PaymentMethod == "card-2" && s.PaymentFailures == 0
	}), 2).Return(nil).Once()
	cache.On("Invalidate", "subscription:sub-1").Return(nil).Once()

	svc := newLifecycle(repo, new(PaymentsMock), new(PublisherMock), cache)
	got, err := svc.UpdatePaymentMethod(context.Background(), "alice", "sub-1", "card-2")
	require.NoError(t, err)
	assert.Equal(t, 0, got.PaymentFailures)

	repo.AssertExpectations(t)
}

func TestLifecycle_Get(t *testing.T) {
	t.Run("попадание в кеш не обращается к хранилищу", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)

		cache.On("Get", "subscription:sub-1", mock.Anything).
			Run(func(args mock.Arguments) {
				ptr := args.Get(1).(**models.Subscription)
				*ptr = activeSub(1)
			}).Return(true, nil).Once()

		svc := newLifecycle(repo, new(PaymentsMock), new(PublisherMock), cache)
		got, err := svc.Get(context.Background(), "alice", "sub-1")
		require.NoError(t, err)
		assert.Equal(t, "sub-1", got.ID)

		repo.AssertNotCalled(t, "ReadSubscription", mock.Anything, mock.Anything)
	})

	t.Run("промах кеша читает хранилище и кеширует", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)

		cache.On("Get", "subscription:sub-1", mock.Anything).Return(false, nil).Once()
		repo.On("ReadSubscription", mock.Anything, "sub-1").Return(activeSub(1), nil).Once()
		cache.On("Set", "subscription:sub-1", mock.Anything, time.Hour).Return(nil).Once()

		svc := newLifecycle(repo, new(PaymentsMock), new(PublisherMock), cache)
		got, err := svc.Get(context.Background(), "alice", "sub-1")
		require.NoError(t, err)
		assert.Equal(t, "sub-1", got.ID)

		repo.AssertExpectations(t)
		cache.AssertExpectations(t)
	})
}

func TestLifecycle_ProcessRenewal(t *testing.T) {
	t.Run("успешное продление сдвигает период и сбрасывает счетчики", func(t *testing.T) {
		repo := new(RepoMock)
		payments := new(PaymentsMock)
		events := new(PublisherMock)
		cache := new(CacheMock)

		sub := activeSub(5)
		sub.Usage = models.Usage{Backtests: 120}
		sub.PaymentFailures = 1
		oldEnd := sub.EndDate
		repo.On("ReadSubscription", mock.Anything, "sub-1").Return(sub, nil).Once()
		repo.On("ReadPlan", mock.Anything, "pro").Return(proPlan(), nil).Once()
		expectCharge(payments, true)
		repo.On("UpdateSubscription", mock.Anything, mock.MatchedBy(func(s *models.Subscription) bool {
			return s.Status == models.StatusActive &&
				s.CurrentPeriod.StartDate.Equal(oldEnd) &&
				s.EndDate.After(oldEnd) &&
				s.PaymentFailures == 0 &&
				s.Usage == (models.Usage{})
		}), 5).Return(nil).Once()
		repo.On("AppendBillingRecord", mock.Anything, "sub-1", mock.Anything).Return(nil).Once()
		repo.On("AppendEvent", mock.Anything, mock.MatchedBy(func(ev models.SubscriptionEvent) bool {
			return ev.Type == models.EventRenewed
		})).Return(nil).Once()
		events.On("Publish", mock.Anything).Return(nil).Once()
		cache.On("Invalidate", "subscription:sub-1").Return(nil).Once()

		svc := newLifecycle(repo, payments, events, cache)
		require.NoError(t, svc.ProcessRenewal(context.Background(), "sub-1"))

		repo.AssertExpectations(t)
		payments.AssertExpectations(t)
	})

	t.Run("неуспешное списание оставляет статус и увеличивает счетчик", func(t *testing.T) {
		repo := new(RepoMock)
		payments := new(PaymentsMock)
		events := new(PublisherMock)
		cache := new(CacheMock)

		sub := activeSub(2)
		repo.On("ReadSubscription", mock.Anything, "sub-1").Return(sub, nil).Once()
		repo.On("ReadPlan", mock.Anything, "pro").Return(proPlan(), nil).Once()
		expectCharge(payments, false)
		repo.On("UpdateSubscription", mock.Anything, mock.MatchedBy(func(s *models.Subscription) bool {
			return s.Status == models.StatusActive && s.PaymentFailures == 1
		}), 2).Return(nil).Once()
		repo.On("AppendEvent", mock.Anything, mock.MatchedBy(func(ev models.SubscriptionEvent) bool {
			return ev.Type == models.EventPaymentFailed && ev.Metadata["escalated"] == "false"
		})).Return(nil).Once()
		events.On("Publish", mock.Anything).Return(nil).Once()
		cache.On("Invalidate", "subscription:sub-1").Return(nil).Once()

		svc := newLifecycle(repo, payments, events, cache)
		require.NoError(t, svc.ProcessRenewal(context.Background(), "sub-1"))

		repo.AssertExpectations(t)
	})

	t.Run("третья подряд неудача приостанавливает подписку", func(t *testing.T) {
		repo := new(RepoMock)
		payments := new(PaymentsMock)
		events := new(PublisherMock)
		cache := new(CacheMock)

		sub := activeSub(9)
		sub.PaymentFailures = 2
		repo.On("ReadSubscription", mock.Anything, "sub-1").Return(sub, nil).Once()
		repo.On("ReadPlan", mock.Anything, "pro").Return(proPlan(), nil).Once()
		expectCharge(payments, false)
		repo.On("UpdateSubscription", mock.Anything, mock.MatchedBy(func(s *models.Subscription) bool {
			return s.Status == models.StatusSuspended && s.PaymentFailures == 3
		}), 9).Return(nil).Once()
		repo.On("AppendEvent", mock.Anything, mock.MatchedBy(func(ev models.SubscriptionEvent) bool {
			return ev.Type == models.EventPaymentFailed && ev.Metadata["escalated"] == "true"
		})).Return(nil).Once()
		events.On("Publish", mock.Anything).Return(nil).Once()
		cache.On("Invalidate", "subscription:sub-1").Return(nil).Once()

		svc := newLifecycle(repo, payments, events, cache)
		require.NoError(t, svc.ProcessRenewal(context.Background(), "sub-1"))

		repo.AssertExpectations(t)
	})

	t.Run("подписка без автопродления пропускается", func(t *testing.T) {
		repo := new(RepoMock)
		sub := activeSub(1)
		sub.AutoRenew = false
		repo.On("ReadSubscription", mock.Anything, "sub-1").Return(sub, nil).Once()

		svc := newLifecycle(repo, new(PaymentsMock), new(PublisherMock), new(CacheMock))
		require.NoError(t, svc.ProcessRenewal(context.Background(), "sub-1"))
		repo.AssertNotCalled(t, "UpdateSubscription", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("подписка вне окна продления пропускается", func(t *testing.T) {
		repo := new(RepoMock)
		sub := activeSub(1)
		sub.EndDate = time.Now().UTC().Add(RenewalWindow + 24*time.Hour)
		repo.On("ReadSubscription", mock.Anything, "sub-1").Return(sub, nil).Once()

		svc := newLifecycle(repo, new(PaymentsMock), new(PublisherMock), new(CacheMock))
		require.NoError(t, svc.ProcessRenewal(context.Background(), "sub-1"))
		repo.AssertNotCalled(t, "ReadPlan", mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "UpdateSubscription", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestLifecycle_ProcessTrialExpiry(t *testing.T) {
	t.Run("истекший триал конвертируется в active", func(t *testing.T) {
		repo := new(RepoMock)
		payments := new(PaymentsMock)
		events := new(PublisherMock)
		cache := new(CacheMock)

		now := time.Now().UTC()
		trialEnd := now.Add(-time.Hour)
		sub := activeSub(2)
		sub.Status = models.StatusTrial
		sub.TrialEndDate = &trialEnd
		sub.EndDate = trialEnd

		repo.On("ReadSubscription", mock.Anything, "sub-1").Return(sub, nil).Once()
		repo.On("ReadPlan", mock.Anything, "pro").Return(proPlan(), nil).Once()
		expectCharge(payments, true)
		repo.On("UpdateSubscription", mock.Anything, mock.MatchedBy(func(s *models.Subscription) bool {
			return s.Status == models.StatusActive && !s.CurrentPeriod.IsTrialPeriod
		}), 2).Return(nil).Once()
		repo.On("AppendBillingRecord", mock.Anything, "sub-1", mock.Anything).Return(nil).Once()
		repo.On("AppendEvent", mock.Anything, mock.MatchedBy(func(ev models.SubscriptionEvent) bool {
			return ev.Type == models.EventTrialEnded && ev.Metadata["outcome"] == "converted"
		})).Return(nil).Once()
		events.On("Publish", mock.Anything).Return(nil).Once()
		cache.On("Invalidate", "subscription:sub-1").Return(nil).Once()

		svc := newLifecycle(repo, payments, events, cache)
		require.NoError(t, svc.ProcessTrialExpiry(context.Background(), "sub-1"))

		repo.AssertExpectations(t)
		payments.AssertExpectations(t)
	})

	t.Run("не-триал пропускается", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("ReadSubscription", mock.Anything, "sub-1").Return(activeSub(1), nil).Once()

		svc := newLifecycle(repo, new(PaymentsMock), new(PublisherMock), new(CacheMock))
		require.NoError(t, svc.ProcessTrialExpiry(context.Background(), "sub-1"))
		repo.AssertNotCalled(t, "UpdateSubscription", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestLifecycle_ExpireOverdue(t *testing.T) {
	t.Run("приостановленная подписка истекает после льготного срока", func(t *testing.T) {
		repo := new(RepoMock)
		events := new(PublisherMock)
		cache := new(CacheMock)

		sub := activeSub(6)
		sub.Status = models.StatusSuspended
		sub.EndDate = time.Now().UTC().Add(-SuspendedGrace - time.Hour)

		repo.On("ReadSubscription", mock.Anything, "sub-1").Return(sub, nil).Once()
		repo.On("UpdateSubscription", mock.Anything, mock.MatchedBy(func(s *models.Subscription) bool {
			return s.Status == models.StatusExpired && !s.AutoRenew
		}), 6).Return(nil).Once()
		repo.On("AppendEvent", mock.Anything, mock.MatchedBy(func(ev models.SubscriptionEvent) bool {
			return ev.Type == models.EventExpired
		})).Return(nil).Once()
		events.On("Publish", mock.Anything).Return(nil).Once()
		cache.On("Invalidate", "subscription:sub-1").Return(nil).Once()

		svc := newLifecycle(repo, new(PaymentsMock), events, cache)
		require.NoError(t, svc.ExpireOverdue(context.Background(), "sub-1"))

		repo.AssertExpectations(t)
	})

	t.Run("внутри льготного срока ничего не меняется", func(t *testing.T) {
		repo := new(RepoMock)
		sub := activeSub(1)
		sub.Status = models.StatusSuspended
		sub.EndDate = time.Now().UTC().Add(-time.Hour)

		repo.On("ReadSubscription", mock.Anything, "sub-1").Return(sub, nil).Once()

		svc := newLifecycle(repo, new(PaymentsMock), new(PublisherMock), new(CacheMock))
		require.NoError(t, svc.ExpireOverdue(context.Background(), "sub-1"))
		repo.AssertNotCalled(t, "UpdateSubscription", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestLifecycle_RecordUsage(t *testing.T) {
	t.Run("инкремент в пределах лимита", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)

		sub := activeSub(2)
		sub.Usage.Backtests = 10
		repo.On("ReadSubscription", mock.Anything, "sub-1").Return(sub, nil).Once()
		repo.On("ReadPlan", mock.Anything, "pro").Return(proPlan(), nil).Once()
		repo.On("UpdateSubscription", mock.Anything, mock.MatchedBy(func(s *models.Subscription) bool {
			return s.Usage.Backtests == 15
		}), 2).Return(nil).Once()
		cache.On("Invalidate", "subscription:sub-1").Return(nil).Once()

		svc := newLifecycle(repo, new(PaymentsMock), new(PublisherMock), cache)
		got, err := svc.RecordUsage(context.Background(), "alice", "sub-1", "backtests", 5)
		require.NoError(t, err)
		assert.Equal(t, 15, got.Usage.Backtests)

		repo.AssertExpectations(t)
	})

	t.Run("превышение лимита отклоняется с событием usage_exceeded", func(t *testing.T) {
		repo := new(RepoMock)
		events := new(PublisherMock)

		sub := activeSub(2)
		sub.Usage.Strategies = 19
		repo.On("ReadSubscription", mock.Anything, "sub-1").Return(sub, nil).Once()
		repo.On("ReadPlan", mock.Anything, "pro").Return(proPlan(), nil).Once()
		repo.On("AppendEvent", mock.Anything, mock.MatchedBy(func(ev models.SubscriptionEvent) bool {
			return ev.Type == models.EventUsageExceeded && ev.Metadata["counter"] == "strategies"
		})).Return(nil).Once()
		events.On("Publish", mock.Anything).Return(nil).Once()

		svc := newLifecycle(repo, new(PaymentsMock), events, new(CacheMock))
		_, err := svc.RecordUsage(context.Background(), "alice", "sub-1", "strategies", 2)
		assert.ErrorIs(t, err, models.ErrUsageLimitExceeded)

		repo.AssertNotCalled(t, "UpdateSubscription", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("достижение 90 процентов лимита фиксирует предупреждение", func(t *testing.T) {
		repo := new(RepoMock)
		events := new(PublisherMock)
		cache := new(CacheMock)

		sub := activeSub(3)
		sub.Usage.Alerts = 85
		repo.On("ReadSubscription", mock.Anything, "sub-1").Return(sub, nil).Once()
		repo.On("ReadPlan", mock.Anything, "pro").Return(proPlan(), nil).Once()
		repo.On("UpdateSubscription", mock.Anything, mock.Anything, 3).Return(nil).Once()
		repo.On("AppendEvent", mock.Anything, mock.MatchedBy(func(ev models.SubscriptionEvent) bool {
			return ev.Type == models.EventUsageWarning && ev.Metadata["used"] == "92"
		})).Return(nil).Once()
		events.On("Publish", mock.Anything).Return(nil).Once()
		cache.On("Invalidate", "subscription:sub-1").Return(nil).Once()

		svc := newLifecycle(repo, new(PaymentsMock), events, cache)
		got, err := svc.RecordUsage(context.Background(), "alice", "sub-1", "alerts", 7)
		require.NoError(t, err)
		assert.Equal(t, 92, got.Usage.Alerts)
	})

	t.Run("неизвестный счетчик", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("ReadSubscription", mock.Anything, "sub-1").Return(activeSub(1), nil).Once()
		repo.On("ReadPlan", mock.Anything, "pro").Return(proPlan(), nil).Once()

		svc := newLifecycle(repo, new(PaymentsMock), new(PublisherMock), new(CacheMock))
		_, err := svc.RecordUsage(context.Background(), "alice", "sub-1", "coffee", 1)
		assert.Error(t, err)
	})

	t.Run("использование недоступно для отмененной подписки", func(t *testing.T) {
		repo := new(RepoMock)
		sub := activeSub(1)
		sub.Status = models.StatusCancelled
		repo.On("ReadSubscription", mock.Anything, "sub-1").Return(sub, nil).Once()

		svc := newLifecycle(repo, new(PaymentsMock), new(PublisherMock), new(CacheMock))
		_, err := svc.RecordUsage(context.Background(), "alice", "sub-1", "alerts", 1)
		assert.ErrorIs(t, err, models.ErrSubscriptionTerminal)
	})
}

func TestLifecycle_PaymentTimeout(t *testing.T) {
	repo := new(RepoMock)
	payments := new(PaymentsMock)
	events := new(PublisherMock)
	cache := new(CacheMock)

	sub := activeSub(4)
	repo.On("ReadSubscription", mock.Anything, "sub-1").Return(sub, nil).Once()
	repo.On("ReadPlan", mock.Anything, "pro").Return(proPlan(), nil).Once()
	payments.On("CreatePaymentIntent", mock.Anything, mock.Anything).
		Return(nil, context.DeadlineExceeded).Once()
	repo.On("UpdateSubscription", mock.Anything, mock.MatchedBy(func(s *models.Subscription) bool {
		return s.PaymentFailures == 1 && s.Status == models.StatusActive
	}), 4).Return(nil).Once()
	repo.On("AppendEvent", mock.Anything, mock.Anything).Return(nil).Once()
	events.On("Publish", mock.Anything).Return(nil).Once()
	cache.On("Invalidate", "subscription:sub-1").Return(nil).Once()

	svc := newLifecycle(repo, payments, events, cache)
	require.NoError(t, svc.ProcessRenewal(context.Background(), "sub-1"))

	repo.AssertExpectations(t)
}

func TestLifecycle_EventJournalBestEffort(t *testing.T) {
	// Сбой записи в журнал или публикации не ломает основную операцию.
	repo := new(RepoMock)
	events := new(PublisherMock)
	cache := new(CacheMock)

	sub := activeSub(2)
	repo.On("ReadSubscription", mock.Anything, "sub-1").Return(sub, nil).Once()
	repo.On("UpdateSubscription", mock.Anything, mock.Anything, 2).Return(nil).Once()
	repo.On("AppendEvent", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()
	events.On("Publish", mock.Anything).Return(errors.New("amqp down")).Once()
	cache.On("Invalidate", "subscription:sub-1").Return(nil).Once()

	svc := newLifecycle(repo, new(PaymentsMock), events, cache)
	got, err := svc.Cancel(context.Background(), "alice", "sub-1", "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
}
