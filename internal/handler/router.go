package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/fintrack-go/internal/domain"
	"github.com/boddenberg/fintrack-go/internal/infra/observability"
	"github.com/boddenberg/fintrack-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Services bundles the use cases served over HTTP.
type Services struct {
	Auth         *service.AuthService
	Transactions *service.TransactionService
	Receipts     *service.ReceiptService
	Planning     *service.PlanningService
	Health       *service.HealthService
	Analysis     *service.AnalysisService
	Datasets     *service.DatasetService
}

// Options configures the router.
type Options struct {
	AllowedOrigins []string
	// Ping checks the store; nil means always healthy.
	Ping func(ctx context.Context) error
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Services, opts Options, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-LLM-API-Key", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(opts.Ping))
	r.Get("/readyz", readyzHandler(opts.Ping))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/register", authRegisterHandler(svc.Auth, logger))
		r.Post("/auth/login", authLoginHandler(svc.Auth, logger))

		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(svc.Auth, logger))

			r.Get("/me", meHandler(svc.Auth, logger))
			r.Put("/me/income", updateIncomeHandler(svc.Auth, logger))

			r.Get("/transactions", listTransactionsHandler(svc.Transactions, logger))
			r.Post("/transactions", createTransactionHandler(svc.Transactions, logger))
			r.Post("/transactions/import", importTransactionsHandler(svc.Transactions, logger))
			r.Post("/transactions/receipt", receiptHandler(svc.Receipts, logger))
			r.Get("/transactions/{transactionId}", getTransactionHandler(svc.Transactions, logger))
			r.Put("/transactions/{transactionId}", updateTransactionHandler(svc.Transactions, logger))
			r.Post("/transactions/{transactionId}/flag", flagTransactionHandler(svc.Transactions, logger))

			r.Post("/categorize", categorizeHandler(svc.Transactions, logger))
			r.Post("/fraud/check", fraudCheckHandler(svc.Transactions, logger))
			r.Get("/fraud/analysis", fraudAnalysisHandler(svc.Analysis, logger))

			r.Get("/health-score", getHealthScoreHandler(svc.Health, logger))
			r.Post("/health-score/recalculate", recalculateHealthScoreHandler(svc.Health, logger))

			r.Get("/budgets", listBudgetsHandler(svc.Planning, logger))
			r.Post("/budgets", createBudgetHandler(svc.Planning, logger))
			r.Put("/budgets/{budgetId}", updateBudgetHandler(svc.Planning, logger))
			r.Delete("/budgets/{budgetId}", deleteBudgetHandler(svc.Planning, logger))

			r.Get("/goals", listGoalsHandler(svc.Planning, logger))
			r.Post("/goals", createGoalHandler(svc.Planning, logger))
			r.Put("/goals/{goalId}", updateGoalHandler(svc.Planning, logger))
			r.Delete("/goals/{goalId}", deleteGoalHandler(svc.Planning, logger))

			r.Get("/dashboard", dashboardHandler(svc.Planning, logger))

			r.Get("/datasets/patterns", datasetPatternsHandler(svc.Datasets, logger))
			r.Post("/datasets/insights", datasetInsightsHandler(svc.Datasets, logger))

			r.Get("/metrics/fraud", fraudMetricsHandler(metrics))
		})
	})

	return r
}

// ============================================================
// Operational
// ============================================================

func healthzHandler(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "fintrack-api", Status: "healthy", LastChecked: now},
		}
		if ping != nil {
			start := time.Now()
			err := ping(r.Context())
			status := "healthy"
			if err != nil {
				status = "unhealthy"
			}
			services = append(services, domain.ServiceHealth{
				Name: "store", Status: status, LatencyMs: time.Since(start).Milliseconds(), LastChecked: now,
			})
		}

		overall := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overall = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{Status: overall, Services: services})
	}
}

func readyzHandler(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			if err := ping(r.Context()); err != nil {
				writeError(w, http.StatusServiceUnavailable, "store unavailable")
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func fraudMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetFraudSnapshot())
	}
}
