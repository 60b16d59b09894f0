package domain

import "time"

// ============================================================
// Financial health
// ============================================================

// HealthComponents is the output of the health scorer. All values are
// integers in [0, 100].
type HealthComponents struct {
	IncomeStability int `json:"incomeStability"`
	ExpenseRatio    int `json:"expenseRatio"`
	SavingsRate     int `json:"savingsRate"`
	DebtRatio       int `json:"debtRatio"`
	Liquidity       int `json:"liquidity"`
	Score           int `json:"score"`
}

// FinancialHealth is the single live health record of a user.
type FinancialHealth struct {
	UserID string `json:"userId"`
	HealthComponents
	LastCalculated time.Time `json:"lastCalculated"`
}

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// FraudMetrics is returned by GET /v1/metrics/fraud.
type FraudMetrics struct {
	FraudChecks       int64   `json:"fraudChecks"`
	FlaggedChecks     int64   `json:"flaggedChecks"`
	FlagRate          float64 `json:"flagRate"`
	AnalysisReports   int64   `json:"analysisReports"`
	LLMReports        int64   `json:"llmReports"`
	FallbackRate      float64 `json:"fallbackRate"`
	CacheHitRate      float64 `json:"cacheHitRate"`
	DatasetPatterns   int64   `json:"datasetPatterns"`
	ExternalLLMErrors int64   `json:"externalLlmErrors"`
}
