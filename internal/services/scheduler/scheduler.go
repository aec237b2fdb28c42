// Package scheduler содержит периодические проверки жизненного цикла
// подписок: продление, конверсию триалов и контроль потребления.
// Каждая проверка выбирает подлежащие обработке подписки и обрабатывает
// их независимо: сбой одной подписки логируется и не прерывает остальные.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/trading-academy/internal/lib/sl"
)

// batchConcurrency ограничивает число одновременно обрабатываемых подписок.
const batchConcurrency = 10

// Repository определяет выборки подписок, подлежащих обработке.
type Repository interface {
	// FindDueRenewals возвращает ID активных подписок с автопродлением,
	// чей период заканчивается в пределах окна.
	FindDueRenewals(ctx context.Context, window time.Duration) ([]string, error)
	// FindExpiredTrials возвращает ID подписок, чей пробный период истёк.
	FindExpiredTrials(ctx context.Context) ([]string, error)
	// FindSuspendedOverdue возвращает ID приостановленных подписок,
	// просрочивших льготный период.
	FindSuspendedOverdue(ctx context.Context, grace time.Duration) ([]string, error)
	// FindActiveSubscriptionIDs возвращает ID подписок в статусах trial и active.
	FindActiveSubscriptionIDs(ctx context.Context) ([]string, error)
}

// LifecycleService описывает операции обработки одной подписки.
type LifecycleService interface {
	ProcessRenewal(ctx context.Context, id string) error
	ProcessTrialExpiry(ctx context.Context, id string) error
	ExpireOverdue(ctx context.Context, id string) error
	CheckUsage(ctx context.Context, id string) error
}

// Service запускает периодические проверки жизненного цикла.
type Service struct {
	repo          Repository
	lifecycle     LifecycleService
	log           *slog.Logger
	renewalWindow time.Duration
	grace         time.Duration
}

// New создает новый экземпляр Service.
func New(repo Repository, lifecycle LifecycleService, log *slog.Logger, renewalWindow, grace time.Duration) *Service {
	return &Service{
		repo:          repo,
		lifecycle:     lifecycle,
		log:           log,
		renewalWindow: renewalWindow,
		grace:         grace,
	}
}

// RunRenewalCheck выполняет проверку продлений сразу и далее по интервалу,
// пока контекст не отменён.
func (s *Service) RunRenewalCheck(ctx context.Context, interval time.Duration) {
	s.runRenewalCheck(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runRenewalCheck(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Service) runRenewalCheck(ctx context.Context) {
	s.log.Info("starting renewal check")
	ids, err := s.repo.FindDueRenewals(ctx, s.renewalWindow)
	if err != nil {
		s.log.Error("failed to find due renewals", sl.Err(err))
		return
	}
	if len(ids) == 0 {
		s.log.Info("no subscriptions due for renewal")
	} else {
		s.log.Info("found subscriptions due for renewal", slog.Int("count", len(ids)))
		s.processBatch(ctx, ids, "renewal", s.lifecycle.ProcessRenewal)
	}

	overdue, err := s.repo.FindSuspendedOverdue(ctx, s.grace)
	if err != nil {
		s.log.Error("failed to find overdue suspended subscriptions", sl.Err(err))
		return
	}
	if len(overdue) > 0 {
		s.log.Info("found overdue suspended subscriptions", slog.Int("count", len(overdue)))
		s.processBatch(ctx, overdue, "expire", s.lifecycle.ExpireOverdue)
	}
}

// RunTrialCheck выполняет проверку истёкших триалов сразу и далее по интервалу.
func (s *Service) RunTrialCheck(ctx context.Context, interval time.Duration) {
	s.runTrialCheck(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runTrialCheck(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Service) runTrialCheck(ctx context.Context) {
	s.log.Info("starting trial expiry check")
	ids, err := s.repo.FindExpiredTrials(ctx)
	if err != nil {
		s.log.Error("failed to find expired trials", sl.Err(err))
		return
	}
	if len(ids) == 0 {
		s.log.Info("no expired trials found")
		return
	}
	s.log.Info("found expired trials", slog.Int("count", len(ids)))
	s.processBatch(ctx, ids, "trial", s.lifecycle.ProcessTrialExpiry)
}

// RunUsageCheck выполняет контроль потребления сразу и далее по интервалу.
func (s *Service) RunUsageCheck(ctx context.Context, interval time.Duration) {
	s.runUsageCheck(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runUsageCheck(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Service) runUsageCheck(ctx context.Context) {
	s.log.Info("starting usage check")
	ids, err := s.repo.FindActiveSubscriptionIDs(ctx)
	if err != nil {
		s.log.Error("failed to find active subscriptions", sl.Err(err))
		return
	}
	if len(ids) == 0 {
		return
	}
	s.processBatch(ctx, ids, "usage", s.lifecycle.CheckUsage)
}

// processBatch обрабатывает подписки независимо друг от друга: ошибка
// одной подписки логируется и не влияет на обработку остальных.
func (s *Service) processBatch(ctx context.Context, ids []string, check string, process func(context.Context, string) error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)

	for _, id := range ids {
		g.Go(func() error {
			if err := process(gctx, id); err != nil {
				s.log.Error("failed to process subscription",
					slog.String("check", check),
					slog.String("subscription_id", id),
					sl.Err(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}
