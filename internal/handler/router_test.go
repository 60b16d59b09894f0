package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/fintrack-go/internal/analysis"
	"github.com/boddenberg/fintrack-go/internal/categorize"
	"github.com/boddenberg/fintrack-go/internal/dataset"
	"github.com/boddenberg/fintrack-go/internal/domain"
	"github.com/boddenberg/fintrack-go/internal/fraud"
	"github.com/boddenberg/fintrack-go/internal/handler"
	"github.com/boddenberg/fintrack-go/internal/infra/cache"
	"github.com/boddenberg/fintrack-go/internal/infra/events"
	"github.com/boddenberg/fintrack-go/internal/infra/memstore"
	"github.com/boddenberg/fintrack-go/internal/infra/observability"
	"github.com/boddenberg/fintrack-go/internal/service"

	"go.uber.org/zap"
)

func newTestRouter(t *testing.T, ping func(context.Context) error) http.Handler {
	t.Helper()

	store := memstore.New()
	metrics := observability.NewMetrics()
	logger := zap.NewNop()
	categorizer := categorize.New()
	patterns := dataset.NewCache()
	reports := cache.New[*domain.FraudAnalysisResult](time.Minute)
	t.Cleanup(func() { _ = reports.Close() })

	health := service.NewHealthService(store, logger)
	svc := handler.Services{
		Auth:         service.NewAuthService(store, health, "router-test-secret", time.Hour, logger),
		Transactions: service.NewTransactionService(store, health, categorizer, fraud.NewEngine(), events.NopPublisher{}, metrics, logger),
		Receipts:     service.NewReceiptService(nil, categorizer, "", time.Second, metrics, logger),
		Planning:     service.NewPlanningService(store, health, logger),
		Health:       health,
		Analysis:     service.NewAnalysisService(store, analysis.New(nil, patterns, metrics, logger), patterns, reports, "", metrics, logger),
		Datasets:     service.NewDatasetService(patterns, metrics, logger),
	}
	return handler.NewRouter(svc, handler.Options{Ping: ping}, metrics, logger)
}

func do(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			if err := json.NewEncoder(&buf).Encode(b); err != nil {
				t.Fatalf("encode body: %v", err)
			}
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, router http.Handler) string {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"email": "maria@example.com", "name": "Maria", "password": "s3cret-pass", "monthlyIncome": 5000,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = do(t, router, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"email": "maria@example.com", "password": "s3cret-pass",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp domain.LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	return resp.AccessToken
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := do(t, router, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := do(t, router, http.MethodGet, "/readyz", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReadyz_StoreDown(t *testing.T) {
	router := newTestRouter(t, func(context.Context) error { return errors.New("db gone") })

	rec := do(t, router, http.MethodGet, "/readyz", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodGet, "/healthz", "", nil)
	var status domain.HealthStatus
	_ = json.Unmarshal(rec.Body.Bytes(), &status)
	if status.Status != "degraded" {
		t.Errorf("expected degraded, got %q", status.Status)
	}
}

func TestMetrics(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := do(t, router, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t, nil)

	for _, path := range []string{"/v1/me", "/v1/transactions", "/v1/dashboard", "/v1/metrics/fraud"} {
		rec := do(t, router, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", path, rec.Code)
		}
	}

	rec := do(t, router, http.MethodGet, "/v1/me", "garbage", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad token, got %d", rec.Code)
	}
}

func TestRegister_ValidationFields(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := do(t, router, http.MethodPost, "/v1/auth/register", "", map[string]any{"email": "nope", "password": "short"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, field := range []string{"email", "name", "password"} {
		if body.Fields[field] == "" {
			t.Errorf("expected message for field %q, got %+v", field, body.Fields)
		}
	}
}

func TestTransactionFlow(t *testing.T) {
	router := newTestRouter(t, nil)
	token := login(t, router)

	tx := map[string]any{"amount": "250.00", "merchant": "Corner Store", "type": "expense"}
	rec := do(t, router, http.MethodPost, "/v1/transactions", token, tx)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var first domain.TransactionResult
	if err := json.Unmarshal(rec.Body.Bytes(), &first); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = do(t, router, http.MethodPost, "/v1/transactions", token, tx)
	var second domain.TransactionResult
	if err := json.Unmarshal(rec.Body.Bytes(), &second); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !second.Transaction.IsFraudulent {
		t.Error("expected duplicate to be flagged")
	}

	rec = do(t, router, http.MethodGet, "/v1/transactions/"+first.Transaction.ID, token, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("get: expected 200, got %d", rec.Code)
	}
	rec = do(t, router, http.MethodGet, "/v1/transactions/missing", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get missing: expected 404, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodGet, "/v1/metrics/fraud", token, nil)
	var snap domain.FraudMetrics
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode metrics: %v", err)
	}
	if snap.FraudChecks != 2 || snap.FlaggedChecks != 1 {
		t.Errorf("expected 2 checks / 1 flagged, got %+v", snap)
	}

	rec = do(t, router, http.MethodGet, "/v1/fraud/analysis", token, nil)
	var report domain.FraudAnalysisResult
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Source != domain.AnalysisSourceRuleBased {
		t.Errorf("expected rule-based report, got %q", report.Source)
	}

	rec = do(t, router, http.MethodGet, "/v1/health-score", token, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("health-score: expected 200, got %d", rec.Code)
	}
}

func TestCreateTransaction_NegativeAmount(t *testing.T) {
	router := newTestRouter(t, nil)
	token := login(t, router)

	rec := do(t, router, http.MethodPost, "/v1/transactions", token, map[string]any{"amount": -1, "merchant": "X", "type": "expense"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestImportAndBudgets(t *testing.T) {
	router := newTestRouter(t, nil)
	token := login(t, router)

	today := time.Now().UTC().Format("2006-01-02")
	csv := "date,merchant,amount\n" + today + ",Kroger,120\n" + today + ",Oops,abc\n"
	rec := do(t, router, http.MethodPost, "/v1/transactions/import", token, csv)
	if rec.Code != http.StatusOK {
		t.Fatalf("import: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var imp domain.ImportResult
	_ = json.Unmarshal(rec.Body.Bytes(), &imp)
	if imp.Imported != 1 || len(imp.Rejected) != 1 || imp.Rejected[0].Row != 3 {
		t.Errorf("unexpected import result %+v", imp)
	}

	rec = do(t, router, http.MethodPost, "/v1/budgets", token, map[string]any{"category": "Groceries", "limit": 500, "period": "monthly"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create budget: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var b domain.Budget
	_ = json.Unmarshal(rec.Body.Bytes(), &b)

	rec = do(t, router, http.MethodPost, "/v1/budgets", token, map[string]any{"category": "Groceries", "limit": 500, "period": "daily"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid period: expected 400, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodGet, "/v1/dashboard", token, nil)
	var dash domain.Dashboard
	if err := json.Unmarshal(rec.Body.Bytes(), &dash); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}
	if len(dash.Budgets) != 1 || dash.Budgets[0].Spent.String() != "120" {
		t.Errorf("unexpected dashboard budgets %+v", dash.Budgets)
	}

	rec = do(t, router, http.MethodDelete, "/v1/budgets/"+b.ID, token, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete: expected 204, got %d", rec.Code)
	}
}

func TestReceipt_WithoutModelReturnsManualDraft(t *testing.T) {
	router := newTestRouter(t, nil)
	token := login(t, router)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="receipt"; filename="r.png"`)
	h.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write([]byte("\x89PNG\r\n\x1a\nfake"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/transactions/receipt", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var draft domain.ReceiptDraft
	_ = json.Unmarshal(rec.Body.Bytes(), &draft)
	if draft.Extracted || draft.Warning == "" {
		t.Errorf("expected manual draft, got %+v", draft)
	}
}

func TestDatasetPatterns_NotLoaded(t *testing.T) {
	router := newTestRouter(t, nil)
	token := login(t, router)

	rec := do(t, router, http.MethodGet, "/v1/datasets/patterns", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodPost, "/v1/datasets/insights", token, strings.Join([]string{
		"isFraud,TransactionAmt,ProductCD",
		"0,10,W",
		"1,900,C",
	}, "\n"))
	if rec.Code != http.StatusOK {
		t.Errorf("insights: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}
