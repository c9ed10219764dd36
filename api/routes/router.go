package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ykarpenko/solvebot-backend/api/controllers"
	webhookcontrollers "github.com/ykarpenko/solvebot-backend/api/controllers/webhooks"
	"github.com/ykarpenko/solvebot-backend/api/middleware"
	paymentwebhook "github.com/ykarpenko/solvebot-backend/internal/webhooks/payment"
	"github.com/ykarpenko/solvebot-backend/pkg/config"
	"github.com/ykarpenko/solvebot-backend/pkg/db"
	"github.com/ykarpenko/solvebot-backend/pkg/logger"
	"github.com/ykarpenko/solvebot-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	ledgerService controllers.LedgerService,
	paymentService webhookcontrollers.PaymentIngestService,
	paymentGuard *paymentwebhook.IdempotencyGuard,
	answerCache controllers.AnswerCache,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payment", webhookcontrollers.PaymentWebhook(paymentService, cfg, paymentGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/contact", controllers.Contact(ledgerService, logg))
		r.Post("/consume", controllers.Consume(ledgerService, logg))
		r.Get("/users/{userId}/status", controllers.UserStatus(ledgerService, logg))
		r.Get("/plans", controllers.Plans(cfg))

		r.Route("/sessions", func(r chi.Router) {
			r.Put("/answer", controllers.SessionPutAnswer(answerCache, logg))
			r.Get("/{userId}/answer", controllers.SessionLastAnswer(answerCache, logg))
			r.Delete("/{userId}/answer", controllers.SessionForget(answerCache, logg))
		})
	})

	return r
}
