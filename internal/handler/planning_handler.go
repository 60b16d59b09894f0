package handler

import (
	"net/http"

	"github.com/boddenberg/fintrack-go/internal/domain"
	"github.com/boddenberg/fintrack-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Budgets
// ============================================================

func listBudgetsHandler(svc *service.PlanningService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/budgets")
		defer span.End()

		budgets, err := svc.ListBudgets(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, budgets)
	}
}

func createBudgetHandler(svc *service.PlanningService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/budgets")
		defer span.End()

		var req domain.BudgetRequest
		if !decodeJSON(w, r, &req, logger) {
			return
		}

		b, err := svc.CreateBudget(ctx, UserIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, b)
	}
}

func updateBudgetHandler(svc *service.PlanningService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/budgets/{budgetId}")
		defer span.End()

		var req domain.BudgetRequest
		if !decodeJSON(w, r, &req, logger) {
			return
		}

		b, err := svc.UpdateBudget(ctx, UserIDFromContext(ctx), chi.URLParam(r, "budgetId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

func deleteBudgetHandler(svc *service.PlanningService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/budgets/{budgetId}")
		defer span.End()

		if err := svc.DeleteBudget(ctx, UserIDFromContext(ctx), chi.URLParam(r, "budgetId")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ============================================================
// Goals
// ============================================================

func listGoalsHandler(svc *service.PlanningService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/goals")
		defer span.End()

		goals, err := svc.ListGoals(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, goals)
	}
}

func createGoalHandler(svc *service.PlanningService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/goals")
		defer span.End()

		var req domain.GoalRequest
		if !decodeJSON(w, r, &req, logger) {
			return
		}

		g, err := svc.CreateGoal(ctx, UserIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, g)
	}
}

func updateGoalHandler(svc *service.PlanningService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/goals/{goalId}")
		defer span.End()

		var req domain.GoalRequest
		if !decodeJSON(w, r, &req, logger) {
			return
		}

		g, err := svc.UpdateGoal(ctx, UserIDFromContext(ctx), chi.URLParam(r, "goalId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

func deleteGoalHandler(svc *service.PlanningService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/goals/{goalId}")
		defer span.End()

		if err := svc.DeleteGoal(ctx, UserIDFromContext(ctx), chi.URLParam(r, "goalId")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ============================================================
// Dashboard & health score
// ============================================================

func dashboardHandler(svc *service.PlanningService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/dashboard")
		defer span.End()

		dash, err := svc.Dashboard(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, dash)
	}
}

func getHealthScoreHandler(svc *service.HealthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/health-score")
		defer span.End()

		h, err := svc.Get(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, h)
	}
}

func recalculateHealthScoreHandler(svc *service.HealthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/health-score/recalculate")
		defer span.End()

		h, err := svc.Recalculate(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, h)
	}
}
