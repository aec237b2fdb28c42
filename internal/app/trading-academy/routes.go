package tradingacademy

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/trading-academy/internal/http/handlers/health"
	quizcreate "github.com/magabrotheeeer/trading-academy/internal/http/handlers/quiz/create"
	quizread "github.com/magabrotheeeer/trading-academy/internal/http/handlers/quiz/read"
	quizresults "github.com/magabrotheeeer/trading-academy/internal/http/handlers/quiz/results"
	quizsubmit "github.com/magabrotheeeer/trading-academy/internal/http/handlers/quiz/submit"
	quizvalidate "github.com/magabrotheeeer/trading-academy/internal/http/handlers/quiz/validate"
	"github.com/magabrotheeeer/trading-academy/internal/http/handlers/subscription/billing"
	"github.com/magabrotheeeer/trading-academy/internal/http/handlers/subscription/cancel"
	"github.com/magabrotheeeer/trading-academy/internal/http/handlers/subscription/changeplan"
	subcreate "github.com/magabrotheeeer/trading-academy/internal/http/handlers/subscription/create"
	"github.com/magabrotheeeer/trading-academy/internal/http/handlers/subscription/events"
	"github.com/magabrotheeeer/trading-academy/internal/http/handlers/subscription/list"
	"github.com/magabrotheeeer/trading-academy/internal/http/handlers/subscription/paymentmethod"
	subread "github.com/magabrotheeeer/trading-academy/internal/http/handlers/subscription/read"
	"github.com/magabrotheeeer/trading-academy/internal/http/handlers/subscription/usage"
	"github.com/magabrotheeeer/trading-academy/internal/http/middlewarectx"
	"github.com/magabrotheeeer/trading-academy/internal/lib/jwt"
	quizservice "github.com/magabrotheeeer/trading-academy/internal/services/quiz"
	subservice "github.com/magabrotheeeer/trading-academy/internal/services/subscription"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, quizService *quizservice.Service, lifecycleService *subservice.Lifecycle, jwtMaker jwt.Maker) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Get("/health", health.New(logger).ServeHTTP)
		r.Get("/quizzes/{id}", quizread.New(logger, quizService).ServeHTTP)
		r.Post("/quizzes/validate", quizvalidate.New(logger, quizService).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(jwtMaker, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))

			r.Post("/quizzes", quizcreate.New(logger, quizService).ServeHTTP)
			r.Post("/quizzes/{id}/attempts", quizsubmit.New(logger, quizService).ServeHTTP)
			r.Get("/quizzes/{id}/results", quizresults.New(logger, quizService).ServeHTTP)

			r.Post("/subscriptions", subcreate.New(logger, lifecycleService).ServeHTTP)
			r.Get("/subscriptions", list.New(logger, lifecycleService).ServeHTTP)
			r.Get("/subscriptions/{id}", subread.New(logger, lifecycleService).ServeHTTP)
			r.Post("/subscriptions/{id}/cancel", cancel.New(logger, lifecycleService).ServeHTTP)
			r.Put("/subscriptions/{id}/plan", changeplan.New(logger, lifecycleService).ServeHTTP)
			r.Put("/subscriptions/{id}/payment-method", paymentmethod.New(logger, lifecycleService).ServeHTTP)
			r.Post("/subscriptions/{id}/usage", usage.New(logger, lifecycleService).ServeHTTP)
			r.Get("/subscriptions/{id}/events", events.New(logger, lifecycleService).ServeHTTP)
			r.Get("/subscriptions/{id}/billing", billing.New(logger, lifecycleService).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
