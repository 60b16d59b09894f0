package handler

import (
	"bytes"
	"io"
	"net/http"

	"github.com/boddenberg/fintrack-go/internal/domain"
	"github.com/boddenberg/fintrack-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	maxCSVBody       = 5 << 20
	llmKeyHeader     = "X-LLM-API-Key"
	receiptFormField = "receipt"
)

// ============================================================
// Transactions
// ============================================================

func listTransactionsHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/transactions")
		defer span.End()

		txs, err := svc.List(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, txs)
	}
}

func createTransactionHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions")
		defer span.End()

		var req domain.CreateTransactionRequest
		if !decodeJSON(w, r, &req, logger) {
			return
		}

		res, err := svc.Create(ctx, UserIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

func getTransactionHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/transactions/{transactionId}")
		defer span.End()

		tx, err := svc.Get(ctx, UserIDFromContext(ctx), chi.URLParam(r, "transactionId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, tx)
	}
}

func updateTransactionHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/transactions/{transactionId}")
		defer span.End()

		var req domain.UpdateTransactionRequest
		if !decodeJSON(w, r, &req, logger) {
			return
		}

		res, err := svc.Update(ctx, UserIDFromContext(ctx), chi.URLParam(r, "transactionId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func flagTransactionHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions/{transactionId}/flag")
		defer span.End()

		var req domain.FlagRequest
		if !decodeJSON(w, r, &req, logger) {
			return
		}

		tx, err := svc.Flag(ctx, UserIDFromContext(ctx), chi.URLParam(r, "transactionId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, tx)
	}
}

func importTransactionsHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions/import")
		defer span.End()

		body := http.MaxBytesReader(w, r.Body, maxCSVBody)
		res, err := svc.ImportCSV(ctx, UserIDFromContext(ctx), body)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func receiptHandler(svc *service.ReceiptService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions/receipt")
		defer span.End()

		r.Body = http.MaxBytesReader(w, r.Body, service.MaxReceiptBytes+1<<20)
		file, header, err := r.FormFile(receiptFormField)
		if err != nil {
			writeError(w, http.StatusBadRequest, "multipart field 'receipt' is required")
			return
		}
		defer file.Close()

		var buf bytes.Buffer
		if _, err := io.Copy(&buf, io.LimitReader(file, service.MaxReceiptBytes+1)); err != nil {
			writeError(w, http.StatusBadRequest, "could not read receipt")
			return
		}

		mimeType := header.Header.Get("Content-Type")
		if mimeType == "" || mimeType == "application/octet-stream" {
			mimeType = http.DetectContentType(buf.Bytes())
		}

		draft, err := svc.Extract(ctx, buf.Bytes(), mimeType, r.Header.Get(llmKeyHeader))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, draft)
	}
}

// ============================================================
// Scoring
// ============================================================

func categorizeHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "POST /v1/categorize")
		defer span.End()

		var req domain.CategorizeRequest
		if !decodeJSON(w, r, &req, logger) {
			return
		}
		writeJSON(w, http.StatusOK, svc.Categorize(&req))
	}
}

func fraudCheckHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/fraud/check")
		defer span.End()

		var req domain.FraudCheckRequest
		if !decodeJSON(w, r, &req, logger) {
			return
		}

		res, err := svc.FraudCheck(ctx, UserIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
