package handler

import (
	"net/http"

	"github.com/boddenberg/fintrack-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const maxDatasetBody = 200 << 20

// ============================================================
// Fraud analysis & reference dataset
// ============================================================

func fraudAnalysisHandler(svc *service.AnalysisService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/fraud/analysis")
		defer span.End()

		apiKey := r.Header.Get(llmKeyHeader)
		span.SetAttributes(attribute.Bool("llm.key_override", apiKey != ""))

		res, err := svc.Report(ctx, UserIDFromContext(ctx), apiKey)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func datasetPatternsHandler(svc *service.DatasetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/datasets/patterns")
		defer span.End()

		p, err := svc.Patterns(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func datasetInsightsHandler(svc *service.DatasetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/datasets/insights")
		defer span.End()

		ins, err := svc.Insights(ctx, http.MaxBytesReader(w, r.Body, maxDatasetBody))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, ins)
	}
}
