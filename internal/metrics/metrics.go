// Package metrics содержит счётчики Prometheus для основных операций платформы.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PaymentAttemptsTotal — количество попыток списания через платёжного провайдера.
	PaymentAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trading_academy_payment_attempts_total",
		Help: "Total number of payment attempts sent to the payment provider.",
	})
	// PaymentFailuresTotal — количество неуспешных списаний.
	PaymentFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trading_academy_payment_failures_total",
		Help: "Total number of failed or timed out payments.",
	})
	// RenewalsTotal — количество успешных продлений подписок.
	RenewalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trading_academy_subscription_renewals_total",
		Help: "Total number of successful subscription renewals.",
	})
	// QuizAttemptsTotal — количество оценённых попыток прохождения викторин.
	QuizAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trading_academy_quiz_attempts_total",
		Help: "Total number of scored quiz attempts.",
	})
)
